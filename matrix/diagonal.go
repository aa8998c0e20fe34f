package matrix

import (
	"fmt"

	"github.com/notargets/fekernel/types"
	"github.com/notargets/fekernel/utils"
	"github.com/notargets/fekernel/vector"
)

// Diagonal is a global diagonal matrix, e.g. a mass matrix lumped by a nodal
// integration rule. Its inverse is trivial, so Solve needs no factorization.
type Diagonal struct {
	vec        *vector.Vector
	conn, dofs types.IntArray
	d          []float64
	pm         *utils.PartitionMap
}

func NewDiagonal(vec *vector.Vector) *Diagonal {
	return &Diagonal{
		vec:  vec,
		conn: vec.Conn(),
		dofs: vec.Dofs(),
		d:    vec.AllocateDofval(),
		pm:   utils.NewPartitionMapFor(vec.Nelem()),
	}
}

// Assemble adds the diagonals of the element matrices. Element matrices with a
// non-zero off-diagonal entry are rejected.
func (m *Diagonal) Assemble(elemmat types.Array) { // Changes receiver
	var (
		nne, ndim = m.vec.Nne(), m.vec.Ndim()
		nd        = nne * ndim
	)
	elemmat.CheckShape("elemmat", m.vec.Nelem(), nd, nd)
	for e := 0; e < m.vec.Nelem(); e++ {
		Ke := elemmat.Block(e)
		for r := 0; r < nd; r++ {
			for c := 0; c < nd; c++ {
				if r != c && Ke[r*nd+c] != 0 {
					panic(fmt.Errorf("element %d matrix is not diagonal: (%d,%d) = %g", e, r, c, Ke[r*nd+c]))
				}
			}
		}
	}
	sum := m.pm.Reduce(len(m.d), func(kMin, kMax int, acc []float64) {
		for e := kMin; e < kMax; e++ {
			Ke := elemmat.Block(e)
			for a := 0; a < nne; a++ {
				n := m.conn.At(e, a)
				for i := 0; i < ndim; i++ {
					r := a*ndim + i
					acc[m.dofs.At(n, i)] += Ke[r*nd+r]
				}
			}
		}
	})
	for i, val := range sum {
		m.d[i] += val
	}
}

// Set replaces the diagonal.
func (m *Diagonal) Set(d []float64) { // Changes receiver
	if len(d) != len(m.d) {
		panic(fmt.Errorf("length mismatch for \"diagonal\": have %d, want %d", len(d), len(m.d)))
	}
	copy(m.d, d)
}

func (m *Diagonal) Reset() { // Changes receiver
	for i := range m.d {
		m.d[i] = 0
	}
}

// AsDiagonal returns a copy of the diagonal.
func (m *Diagonal) AsDiagonal() []float64 { return append([]float64{}, m.d...) }

func (m *Diagonal) Dot(x []float64) (b []float64) {
	if len(x) != len(m.d) {
		panic(fmt.Errorf("length mismatch for \"x\": have %d, want %d", len(x), len(m.d)))
	}
	b = make([]float64, len(x))
	for i := range x {
		b[i] = m.d[i] * x[i]
	}
	return
}

func (m *Diagonal) DotNode(x types.Array) types.Array {
	return m.vec.AsNode(m.Dot(m.vec.AsDofsNode(x)))
}

// Solve returns x with the unknown entries set to b_u / A_uu; A_up is zero.
func (m *Diagonal) Solve(b, x []float64) (xOut []float64, err error) {
	var (
		bu, xp = m.vec.AsDofsU(b), m.vec.AsDofsP(x)
		xu     []float64
	)
	if xu, err = m.solveU(bu); err != nil {
		return
	}
	xOut = m.vec.AsDofsParts(xu, xp)
	return
}

func (m *Diagonal) SolveNode(b, x types.Array) (xOut types.Array, err error) {
	var (
		bu, xp = m.vec.AsDofsUNode(b), m.vec.AsDofsPNode(x)
		xu     []float64
	)
	if xu, err = m.solveU(bu); err != nil {
		return
	}
	xOut = m.vec.AsNodeParts(xu, xp)
	return
}

func (m *Diagonal) solveU(bu []float64) (xu []float64, err error) {
	var (
		iiu = m.vec.Iiu()
	)
	xu = make([]float64, len(bu))
	for j, d := range iiu {
		if m.d[d] == 0 {
			return nil, fmt.Errorf("zero diagonal at DOF %d: %w", d, ErrSingular)
		}
		xu[j] = bu[j] / m.d[d]
	}
	return
}
