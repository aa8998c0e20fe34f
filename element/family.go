package element

import (
	"fmt"
	"math"

	"github.com/notargets/fekernel/types"
)

// Family supplies the closed-form shape functions of one element type.
type Family interface {
	Name() string
	Nne() int
	Ndim() int
	// ShapeFunctions fills N [nne] and dNxi [nne*ndim] (row-major, node first)
	// at the local coordinate xi [ndim].
	ShapeFunctions(xi, N, dNxi []float64)
	// Gauss is the default (full) integration rule of the family.
	Gauss() Rule
	// Nodal puts one integration point on every node, giving a diagonal mass matrix.
	Nodal() Rule
}

// Rule is an integration rule in local coordinates: Xi [nip, ndim] and weights W [nip].
type Rule struct {
	Xi types.Array
	W  []float64
}

func NewRule(ndim int, xi [][]float64, w []float64) (r Rule) {
	if len(xi) != len(w) {
		panic(fmt.Errorf("integration rule: %d points, %d weights", len(xi), len(w)))
	}
	r = Rule{
		Xi: types.NewArray(len(w), ndim),
		W:  append([]float64{}, w...),
	}
	for q, pt := range xi {
		if len(pt) != ndim {
			panic(fmt.Errorf("integration rule: point %d has %d coordinates, want %d", q, len(pt), ndim))
		}
		copy(r.Xi.Block(q), pt)
	}
	return
}

func (r Rule) Nip() int { return len(r.W) }

var (
	gp = 1. / math.Sqrt(3.)
)

// Quad4 is the 4-node bilinear quadrilateral, nodes counter-clockwise from (-1,-1).
type Quad4 struct{}

func (Quad4) Name() string { return "Quad4" }
func (Quad4) Nne() int     { return 4 }
func (Quad4) Ndim() int    { return 2 }

func (Quad4) ShapeFunctions(xi, N, dNxi []float64) {
	var (
		r, s = xi[0], xi[1]
	)
	N[0] = .25 * (1. - r) * (1. - s)
	N[1] = .25 * (1. + r) * (1. - s)
	N[2] = .25 * (1. + r) * (1. + s)
	N[3] = .25 * (1. - r) * (1. + s)
	// dN/dr
	dNxi[0*2+0] = -.25 * (1. - s)
	dNxi[1*2+0] = +.25 * (1. - s)
	dNxi[2*2+0] = +.25 * (1. + s)
	dNxi[3*2+0] = -.25 * (1. + s)
	// dN/ds
	dNxi[0*2+1] = -.25 * (1. - r)
	dNxi[1*2+1] = -.25 * (1. + r)
	dNxi[2*2+1] = +.25 * (1. + r)
	dNxi[3*2+1] = +.25 * (1. - r)
}

func (Quad4) Gauss() Rule {
	return NewRule(2, [][]float64{
		{-gp, -gp},
		{+gp, -gp},
		{+gp, +gp},
		{-gp, +gp},
	}, []float64{1, 1, 1, 1})
}

func (Quad4) Nodal() Rule {
	return NewRule(2, [][]float64{
		{-1, -1},
		{+1, -1},
		{+1, +1},
		{-1, +1},
	}, []float64{1, 1, 1, 1})
}

// Hex8 is the 8-node trilinear hexahedron: the Quad4 ordering on t = -1, then on t = +1.
type Hex8 struct{}

func (Hex8) Name() string { return "Hex8" }
func (Hex8) Nne() int     { return 8 }
func (Hex8) Ndim() int    { return 3 }

var hex8Corners = [8][3]float64{
	{-1, -1, -1}, {+1, -1, -1}, {+1, +1, -1}, {-1, +1, -1},
	{-1, -1, +1}, {+1, -1, +1}, {+1, +1, +1}, {-1, +1, +1},
}

func (Hex8) ShapeFunctions(xi, N, dNxi []float64) {
	var (
		r, s, t = xi[0], xi[1], xi[2]
	)
	for m, c := range hex8Corners {
		var (
			fr = 1. + c[0]*r
			fs = 1. + c[1]*s
			ft = 1. + c[2]*t
		)
		N[m] = .125 * fr * fs * ft
		dNxi[m*3+0] = .125 * c[0] * fs * ft
		dNxi[m*3+1] = .125 * c[1] * fr * ft
		dNxi[m*3+2] = .125 * c[2] * fr * fs
	}
}

func (Hex8) Gauss() Rule {
	xi := make([][]float64, 8)
	for q, c := range hex8Corners {
		xi[q] = []float64{c[0] * gp, c[1] * gp, c[2] * gp}
	}
	return NewRule(3, xi, []float64{1, 1, 1, 1, 1, 1, 1, 1})
}

func (Hex8) Nodal() Rule {
	xi := make([][]float64, 8)
	for q, c := range hex8Corners {
		xi[q] = []float64{c[0], c[1], c[2]}
	}
	return NewRule(3, xi, []float64{1, 1, 1, 1, 1, 1, 1, 1})
}

// FamilyByName resolves "Quad4" or "Hex8".
func FamilyByName(name string) (f Family, err error) {
	switch name {
	case "Quad4", "quad4":
		f = Quad4{}
	case "Hex8", "hex8":
		f = Hex8{}
	default:
		err = fmt.Errorf("unknown element type \"%s\"", name)
	}
	return
}
