package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/fekernel/types"
	"github.com/notargets/fekernel/utils"
	"github.com/notargets/fekernel/vector"
)

/*
Matrix is a global sparse system over the DOFs of a Vector, accumulated from
element matrices. Solve eliminates the prescribed DOFs:

	x_u = A_uu^-1 (b_u - A_up x_p)

The factorization of A_uu is computed on the first Solve after an Assemble and
reused until the next Assemble or Reset.
*/
type Matrix struct {
	vec        *vector.Vector
	solver     Solver
	conn, dofs types.IntArray
	dok        *utils.DOK
	A, Auu     utils.CSR
	Aup        utils.CSR
	mapU, mapP utils.Index // dof -> position in iiu / iip, -1 if absent
	compressed bool
	factorized bool
	pm         *utils.PartitionMap
}

// New uses a Cholesky solver unless one is passed.
func New(vec *vector.Vector, solver ...Solver) (m *Matrix) {
	m = &Matrix{
		vec:    vec,
		solver: NewCholesky(),
		conn:   vec.Conn(),
		dofs:   vec.Dofs(),
		dok:    utils.NewDOK(vec.Ndof(), vec.Ndof(), "A"),
		mapU:   vec.Iiu().Inverse(vec.Ndof()),
		mapP:   vec.Iip().Inverse(vec.Ndof()),
		pm:     utils.NewPartitionMapFor(vec.Nelem()),
	}
	if len(solver) != 0 && solver[0] != nil {
		m.solver = solver[0]
	}
	return
}

func (m *Matrix) Ndof() int { return m.vec.Ndof() }
func (m *Matrix) Nnu() int  { return m.vec.Nnu() }
func (m *Matrix) Nnp() int  { return m.vec.Nnp() }

type entry struct {
	i, j int
	v    float64
}

// Assemble adds the element matrices [nelem, nne*ndim, nne*ndim]; local row
// m*ndim+i maps to DOF dofs(conn(e,m), i).
func (m *Matrix) Assemble(elemmat types.Array) { // Changes receiver
	var (
		nne, ndim = m.vec.Nne(), m.vec.Ndim()
		nd        = nne * ndim
		buckets   = make([][]entry, m.pm.ParallelDegree)
	)
	elemmat.CheckShape("elemmat", m.vec.Nelem(), nd, nd)
	m.pm.Run(func(bn, kMin, kMax int) {
		var (
			rows = make([]int, nd)
			list []entry
		)
		for e := kMin; e < kMax; e++ {
			for a := 0; a < nne; a++ {
				n := m.conn.At(e, a)
				for i := 0; i < ndim; i++ {
					rows[a*ndim+i] = m.dofs.At(n, i)
				}
			}
			Ke := elemmat.Block(e)
			for r := 0; r < nd; r++ {
				for c := 0; c < nd; c++ {
					if val := Ke[r*nd+c]; val != 0 {
						list = append(list, entry{rows[r], rows[c], val})
					}
				}
			}
		}
		buckets[bn] = list
	})
	// Sequential merge in element order
	for _, list := range buckets {
		for _, en := range list {
			m.dok.Add(en.i, en.j, en.v)
		}
	}
	m.compressed, m.factorized = false, false
}

// Reset discards all contributions.
func (m *Matrix) Reset() { // Changes receiver
	m.dok.Reset()
	m.compressed, m.factorized = false, false
}

func (m *Matrix) compress() {
	if m.compressed {
		return
	}
	var (
		nnu, nnp = m.vec.Nnu(), m.vec.Nnp()
	)
	m.A = m.dok.ToCSR()
	m.Auu = m.A.SubMatrix(m.mapU, m.mapU, nnu, nnu, "A_uu")
	m.Aup = m.A.SubMatrix(m.mapU, m.mapP, nnu, nnp, "A_up")
	m.compressed = true
}

// CSR returns the compressed full matrix.
func (m *Matrix) CSR() utils.CSR {
	m.compress()
	return m.A
}

func (m *Matrix) ToDense() *mat.Dense {
	return m.CSR().ToDense()
}

// Dot computes b = A x over the full DOF space.
func (m *Matrix) Dot(x []float64) (b []float64) {
	if len(x) != m.vec.Ndof() {
		panic(fmt.Errorf("length mismatch for \"x\": have %d, want %d", len(x), m.vec.Ndof()))
	}
	return m.CSR().MulVec(x)
}

// DotNode is Dot for nodevec fields.
func (m *Matrix) DotNode(x types.Array) (b types.Array) {
	return m.vec.AsNode(m.Dot(m.vec.AsDofsNode(x)))
}

func (m *Matrix) factorize() (err error) {
	if m.factorized {
		return
	}
	m.compress()
	if m.vec.Nnu() != 0 {
		if err = m.solver.Factorize(m.Auu); err != nil {
			return
		}
	}
	m.factorized = true
	return
}

/*
Solve returns the full solution: the prescribed entries copied from x, the unknown
entries solved from b. The prescribed entries of b are not used.
*/
func (m *Matrix) Solve(b, x []float64) (xOut []float64, err error) {
	var (
		bu = m.vec.AsDofsU(b)
		xp = m.vec.AsDofsP(x)
		xu []float64
	)
	if xu, err = m.solveU(bu, xp); err != nil {
		return
	}
	xOut = m.vec.AsDofsParts(xu, xp)
	return
}

// SolveNode is Solve for nodevec fields.
func (m *Matrix) SolveNode(b, x types.Array) (xOut types.Array, err error) {
	var (
		bu = m.vec.AsDofsUNode(b)
		xp = m.vec.AsDofsPNode(x)
		xu []float64
	)
	if xu, err = m.solveU(bu, xp); err != nil {
		return
	}
	xOut = m.vec.AsNodeParts(xu, xp)
	return
}

// SolveU solves the unknown part given its right-hand side and the prescribed values.
func (m *Matrix) SolveU(bu, xp []float64) (xu []float64, err error) {
	if len(bu) != m.vec.Nnu() || len(xp) != m.vec.Nnp() {
		panic(fmt.Errorf("length mismatch: len(b_u) = %d, len(x_p) = %d, want %d, %d",
			len(bu), len(xp), m.vec.Nnu(), m.vec.Nnp()))
	}
	return m.solveU(bu, xp)
}

func (m *Matrix) solveU(bu, xp []float64) (xu []float64, err error) {
	if err = m.factorize(); err != nil {
		return
	}
	if m.vec.Nnu() == 0 {
		return []float64{}, nil
	}
	rhs := append([]float64{}, bu...)
	if m.vec.Nnp() != 0 {
		Axp := m.Aup.MulVec(xp)
		for i := range rhs {
			rhs[i] -= Axp[i]
		}
	}
	if xu, err = m.solver.Solve(rhs); err != nil {
		return nil, err
	}
	if !utils.IsFinite(xu) {
		return nil, fmt.Errorf("non-finite solution of %d x %d system: %w", len(xu), len(xu), ErrSingular)
	}
	return
}
