/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notargets/fekernel/InputParameters"
	"github.com/notargets/fekernel/element"
	"github.com/notargets/fekernel/material"
	"github.com/notargets/fekernel/matrix"
	"github.com/notargets/fekernel/mesh"
	"github.com/notargets/fekernel/types"
	"github.com/notargets/fekernel/utils"
	"github.com/notargets/fekernel/vector"
)

// StaticResult summarizes a static patch solve
type StaticResult struct {
	Nelem, Ndof, Nnu int
	MaxError         float64 // Displacement error against the imposed affine field
	StressError      float64 // Deviation of the integration point stress from the uniform stress
	Energy           float64 // Integrated strain energy
	EnergyExact      float64
	Mass             float64 // Lumped mass summed over the nodes
}

// StaticCmd represents the static command
var StaticCmd = &cobra.Command{
	Use:   "static",
	Short: "Static elastic patch solve on a regular Quad4 or Hex8 mesh",
	Long: `
Imposes an affine displacement on the boundary of a regular mesh, solves the
partitioned elastic system for the interior and compares against the affine
field, the uniform stress and the strain energy.

fekernel static -I input.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err    error
			ICFile string
		)
		if ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		ip := processStaticInput(ICFile)
		ip.Print()
		res, err := RunStatic(ip, logger)
		if err != nil {
			logger.Error("static solve failed", zap.Error(err))
			os.Exit(1)
		}
		fmt.Printf("%d elements, %d DOFs, %d unknowns\n", res.Nelem, res.Ndof, res.Nnu)
		fmt.Printf("%12.5e\t= Max Displacement Error\n", res.MaxError)
		fmt.Printf("%12.5e\t= Max Stress Error\n", res.StressError)
		fmt.Printf("%12.5e\t= Strain Energy (exact %12.5e)\n", res.Energy, res.EnergyExact)
		fmt.Printf("%12.5e\t= Lumped Mass\n", res.Mass)
	},
}

func processStaticInput(ICFile string) (ip *InputParameters.StaticParameters) {
	var (
		err  error
		data []byte
	)
	ip = InputParameters.NewStaticParameters()
	if len(ICFile) == 0 {
		fmt.Printf("no input parameters file (-I, --inputConditionsFile), using defaults\n")
		exampleFile := `
########################################
Title: "Shear patch"
ElementType: Hex8 # Can be Quad4
Rule: Gauss # Can be Nodal
Nelx: 4
Nely: 4
Nelz: 4
H: 0.25
BulkModulus: 1.
ShearModulus: 0.5
Gradient:
  - [0.0, 0.01, 0.0]
  - [0.0, 0.0, 0.0]
  - [0.0, 0.0, 0.0]
Solver: Cholesky # Can be LU or CG
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		return
	}
	if data, err = ioutil.ReadFile(ICFile); err != nil {
		panic(err)
	}
	if err = ip.Parse(data); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	return
}

func init() {
	rootCmd.AddCommand(StaticCmd)
	StaticCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- ElementType\n\t- Gradient (imposed affine displacement)")
}

func newSolver(ip *InputParameters.StaticParameters) matrix.Solver {
	switch strings.ToLower(ip.Solver) {
	case "lu":
		return matrix.NewLU()
	case "cg":
		return matrix.NewConjugateGradient(ip.Tolerance, ip.MaxIterations)
	default:
		return matrix.NewCholesky()
	}
}

func ruleByName(family element.Family, name string) element.Rule {
	if strings.EqualFold(name, "Nodal") {
		return family.Nodal()
	}
	return family.Gauss()
}

// RunStatic prescribes an affine displacement on the boundary and solves for the interior.
func RunStatic(ip *InputParameters.StaticParameters, logger *zap.Logger) (res StaticResult, err error) {
	var (
		r      *mesh.Regular
		family element.Family
		quad   *element.Quadrature
		elast  material.Elastic
		u      types.Array
	)
	if err = ip.Validate(); err != nil {
		return
	}
	if r, err = mesh.NewRegular(ip.ElementType, ip.Nelx, ip.Nely, ip.Nelz, ip.H); err != nil {
		return
	}
	if family, err = element.FamilyByName(ip.ElementType); err != nil {
		return
	}
	var (
		ndim = r.Ndim()
		coor = r.Coor()
		vec  = vector.NewPartitioned(r.Conn(), r.Dofs(), mesh.DofsOf(r.Dofs(), r.NodesBoundary()))
		A    = ip.GradientOrDefault()
	)
	res.Nelem, res.Ndof, res.Nnu = vec.Nelem(), vec.Ndof(), vec.Nnu()
	logger.Info("mesh",
		zap.String("element", family.Name()),
		zap.Int("nelem", vec.Nelem()),
		zap.Int("nnode", vec.Nnode()),
		zap.Int("nnu", vec.Nnu()),
		zap.Int("nnp", vec.Nnp()))

	if quad, err = element.NewQuadrature(family, vec.AsElementNode(coor), ruleByName(family, ip.Rule)); err != nil {
		return
	}
	if elast, err = material.NewElastic(ip.BulkModulus, ip.ShearModulus); err != nil {
		return
	}
	K := matrix.New(vec, newSolver(ip))
	K.Assemble(quad.IntGradNDotTensor4DotGradNTdV(elast.Tangent(quad.Nelem(), quad.Nip(), ndim)))
	logger.Debug("assembled", zap.Int("nnz", K.CSR().NNZ()), zap.String("memory", utils.GetMemUsage()))

	exact := vec.AllocateNodevec()
	for n := 0; n < vec.Nnode(); n++ {
		for i := 0; i < ndim; i++ {
			for j := 0; j < ndim; j++ {
				exact.Add(A[i][j]*coor.At(n, j), n, i)
			}
		}
	}
	if u, err = K.SolveNode(vec.AllocateNodevec(), vec.CopyP(exact, vec.AllocateNodevec())); err != nil {
		err = fmt.Errorf("%s solve: %w", ip.Solver, err)
		return
	}
	for n := range u.Data {
		res.MaxError = math.Max(res.MaxError, math.Abs(u.Data[n]-exact.Data[n]))
	}

	// The uniform stress of the symmetric part of A
	var (
		eps0 = make([]float64, ndim*ndim)
		sig0 = make([]float64, ndim*ndim)
	)
	for i := 0; i < ndim; i++ {
		for j := 0; j < ndim; j++ {
			eps0[i*ndim+j] = .5 * (A[i][j] + A[j][i])
		}
	}
	elast.StressPoint(ndim, eps0, sig0)
	var (
		eps = quad.SymGradNVector(vec.AsElementNode(u))
		sig = elast.Stress(eps)
		w   = elast.Energy(eps)
		dV  = quad.DV()
		vol float64
	)
	for n := range sig.Data {
		res.StressError = math.Max(res.StressError, math.Abs(sig.Data[n]-sig0[n%(ndim*ndim)]))
	}
	for n := range w.Data {
		res.Energy += w.Data[n] * dV.Data[n]
		vol += dV.Data[n]
	}
	for c := range sig0 {
		res.EnergyExact += .5 * sig0[c] * eps0[c] * vol
	}

	// Lumped mass from the nodal rule
	qn, err := element.NewQuadrature(family, vec.AsElementNode(coor), family.Nodal())
	if err != nil {
		return
	}
	M := matrix.NewDiagonal(vec)
	M.Assemble(qn.IntNScalarNTdV(qn.AllocateQscalar(ip.Density)))
	for _, m := range M.AsDiagonal() {
		res.Mass += m
	}
	res.Mass /= float64(ndim)

	logger.Info("static solve",
		zap.String("solver", ip.Solver),
		zap.Float64("maxError", res.MaxError),
		zap.Float64("stressError", res.StressError),
		zap.Float64("energy", res.Energy),
		zap.Float64("energyExact", res.EnergyExact),
		zap.Float64("mass", res.Mass))
	return
}
