package InputParameters

import (
	"fmt"
	"strings"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type StaticParameters struct {
	Title         string      `yaml:"Title"`
	ElementType   string      `yaml:"ElementType"` // Quad4 or Hex8
	Rule          string      `yaml:"Rule"`        // Gauss or Nodal
	Nelx          int         `yaml:"Nelx"`
	Nely          int         `yaml:"Nely"`
	Nelz          int         `yaml:"Nelz"`
	H             float64     `yaml:"H"`
	BulkModulus   float64     `yaml:"BulkModulus"`
	ShearModulus  float64     `yaml:"ShearModulus"`
	Density       float64     `yaml:"Density"`
	Gradient      [][]float64 `yaml:"Gradient"` // Affine displacement gradient imposed on the boundary
	Solver        string      `yaml:"Solver"`   // Cholesky, LU or CG
	Tolerance     float64     `yaml:"Tolerance"`
	MaxIterations int         `yaml:"MaxIterations"`
}

func NewStaticParameters() *StaticParameters {
	return &StaticParameters{
		Title:        "Patch test",
		ElementType:  "Hex8",
		Rule:         "Gauss",
		Nelx:         4,
		Nely:         4,
		Nelz:         4,
		H:            1,
		BulkModulus:  1,
		ShearModulus: .5,
		Density:      1,
		Solver:       "Cholesky",
	}
}

// Parse overwrites the defaults with the values present in data.
func (ip *StaticParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	return ip.Validate()
}

func (ip *StaticParameters) Ndim() int {
	if strings.EqualFold(ip.ElementType, "Quad4") {
		return 2
	}
	return 3
}

func (ip *StaticParameters) Validate() error {
	switch {
	case !strings.EqualFold(ip.ElementType, "Quad4") && !strings.EqualFold(ip.ElementType, "Hex8"):
		return fmt.Errorf("unknown ElementType \"%s\", want Quad4 or Hex8", ip.ElementType)
	case !strings.EqualFold(ip.Rule, "Gauss") && !strings.EqualFold(ip.Rule, "Nodal"):
		return fmt.Errorf("unknown Rule \"%s\", want Gauss or Nodal", ip.Rule)
	case ip.Nelx < 1 || ip.Nely < 1 || (ip.Ndim() == 3 && ip.Nelz < 1):
		return fmt.Errorf("mesh needs at least one element per direction, have %d x %d x %d", ip.Nelx, ip.Nely, ip.Nelz)
	case !(ip.H > 0):
		return fmt.Errorf("element size H must be positive, have %g", ip.H)
	}
	ndim := ip.Ndim()
	if len(ip.Gradient) != 0 {
		if len(ip.Gradient) != ndim {
			return fmt.Errorf("Gradient must be %d x %d, have %d rows", ndim, ndim, len(ip.Gradient))
		}
		for i, row := range ip.Gradient {
			if len(row) != ndim {
				return fmt.Errorf("Gradient row %d has %d entries, want %d", i, len(row), ndim)
			}
		}
	}
	switch strings.ToLower(ip.Solver) {
	case "cholesky", "lu", "cg":
	default:
		return fmt.Errorf("unknown Solver \"%s\", want Cholesky, LU or CG", ip.Solver)
	}
	return nil
}

// GradientOrDefault returns the imposed gradient, a uniaxial strain of 1e-3 when none is given.
func (ip *StaticParameters) GradientOrDefault() (A [][]float64) {
	if len(ip.Gradient) != 0 {
		return ip.Gradient
	}
	ndim := ip.Ndim()
	A = make([][]float64, ndim)
	for i := range A {
		A[i] = make([]float64, ndim)
	}
	A[0][0] = 1.e-3
	return
}

func (ip *StaticParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t\t= Element Type\n", ip.ElementType)
	fmt.Printf("[%s]\t\t\t= Integration Rule\n", ip.Rule)
	if ip.Ndim() == 3 {
		fmt.Printf("[%d x %d x %d]\t\t= Elements\n", ip.Nelx, ip.Nely, ip.Nelz)
	} else {
		fmt.Printf("[%d x %d]\t\t\t= Elements\n", ip.Nelx, ip.Nely)
	}
	fmt.Printf("%8.5f\t\t= H\n", ip.H)
	fmt.Printf("%8.5f\t\t= Bulk Modulus\n", ip.BulkModulus)
	fmt.Printf("%8.5f\t\t= Shear Modulus\n", ip.ShearModulus)
	fmt.Printf("%8.5f\t\t= Density\n", ip.Density)
	fmt.Printf("[%s]\t\t= Solver\n", ip.Solver)
	for i, row := range ip.GradientOrDefault() {
		fmt.Printf("Gradient[%d] = %v\n", i, row)
	}
}
