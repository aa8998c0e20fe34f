package matrix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/fekernel/element"
	"github.com/notargets/fekernel/material"
	"github.com/notargets/fekernel/mesh"
	"github.com/notargets/fekernel/types"
	"github.com/notargets/fekernel/vector"
)

type problem struct {
	mesh *mesh.Regular
	vec  *vector.Vector
	quad *element.Quadrature
	coor types.Array
	Ke   types.Array
}

// newProblem is an elastic 3x3x3 cube with every boundary DOF prescribed.
func newProblem(t *testing.T, rule ...element.Rule) (p *problem) {
	var (
		err error
	)
	p = &problem{mesh: mesh.NewHex8(3, 3, 3, 1. / 3)}
	p.coor = p.mesh.Coor()
	p.vec = vector.NewPartitioned(p.mesh.Conn(), p.mesh.Dofs(),
		mesh.DofsOf(p.mesh.Dofs(), p.mesh.NodesBoundary()))
	p.quad, err = element.NewQuadrature(element.Hex8{}, p.vec.AsElementNode(p.coor), rule...)
	require.NoError(t, err)
	mat, err := material.NewElastic(1, .5)
	require.NoError(t, err)
	p.Ke = p.quad.IntGradNDotTensor4DotGradNTdV(mat.Tangent(p.quad.Nelem(), p.quad.Nip(), 3))
	return
}

func (p *problem) affine(A [3][3]float64) (u types.Array) {
	u = p.vec.AllocateNodevec()
	for n := 0; n < p.vec.Nnode(); n++ {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				u.Add(A[i][j]*p.coor.At(n, j), n, i)
			}
		}
	}
	return
}

func TestMatrixPatch(t *testing.T) {
	var (
		p = newProblem(t)
		A = [3][3]float64{
			{.01, .002, 0},
			{-.003, .02, .004},
			{.001, 0, -.01},
		}
		exact = p.affine(A)
	)
	assert.Equal(t, 8*3, p.vec.Nnu())
	for _, solver := range []Solver{NewCholesky(), NewLU(), NewConjugateGradient(1.e-14, 0)} {
		K := New(p.vec, solver)
		K.Assemble(p.Ke)
		// Only the prescribed part of x is used
		x := p.vec.CopyP(exact, p.vec.AllocateNodevec(1))
		u, err := K.SolveNode(p.vec.AllocateNodevec(), x)
		require.NoError(t, err)
		assert.InDeltaSlice(t, exact.Data, u.Data, 1.e-12)
		// Internal force of an affine field vanishes at the free nodes
		f := K.DotNode(exact)
		for _, n := range p.mesh.NodesInterior() {
			for i := 0; i < 3; i++ {
				assert.InDelta(t, 0., f.At(n, i), 1.e-12)
			}
		}
	}
}

func TestMatrixSolveConsistency(t *testing.T) {
	var (
		p = newProblem(t)
		K = New(p.vec)
		b = p.vec.AllocateDofval()
		x = p.vec.AllocateDofval()
	)
	K.Assemble(p.Ke)
	for d := range b {
		b[d] = math.Sin(float64(d))
		x[d] = 1.e-2 * math.Cos(float64(d))
	}
	x1, err := K.Solve(b, x)
	require.NoError(t, err)
	x2, err := K.Solve(b, x)
	require.NoError(t, err)
	assert.Equal(t, x1, x2)
	assert.Equal(t, p.vec.AsDofsP(x), p.vec.AsDofsP(x1))

	// A x restricted to the unknowns reproduces b_u
	var (
		Ax = K.Dot(x1)
		bu = p.vec.AsDofsU(b)
	)
	assert.InDeltaSlice(t, bu, p.vec.AsDofsU(Ax), 1.e-10)
	xu, err := K.SolveU(bu, p.vec.AsDofsP(x))
	require.NoError(t, err)
	assert.Equal(t, p.vec.AsDofsU(x1), xu)

	// Substitutable solvers agree
	for _, solver := range []Solver{NewLU(), NewConjugateGradient(1.e-14, 500)} {
		Ks := New(p.vec, solver)
		Ks.Assemble(p.Ke)
		xs, err := Ks.Solve(b, x)
		require.NoError(t, err)
		assert.InDeltaSlice(t, x1, xs, 1.e-9)
	}

	// Assembling again doubles the matrix and invalidates the factorization
	K.Assemble(p.Ke)
	x0 := p.vec.AllocateDofval()
	xa, err := K.Solve(b, x0)
	require.NoError(t, err)
	K.Reset()
	K.Assemble(p.Ke)
	xb, err := K.Solve(b, x0)
	require.NoError(t, err)
	for d := range xa {
		assert.InDelta(t, .5*xb[d], xa[d], 1.e-12)
	}
}

func TestMatrixAssemble(t *testing.T) {
	var (
		p     = newProblem(t)
		whole = New(p.vec)
		parts = New(p.vec)
		half  = p.quad.AllocateElemmat()
	)
	whole.Assemble(p.Ke)
	// The same contributions split over two calls
	for n := range half.Data {
		half.Data[n] = .5 * p.Ke.Data[n]
	}
	parts.Assemble(half)
	parts.Assemble(half)
	var (
		Dw = whole.ToDense()
		Dp = parts.ToDense()
	)
	r, c := Dw.Dims()
	require.Equal(t, p.vec.Ndof(), r)
	require.Equal(t, p.vec.Ndof(), c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.InDelta(t, Dw.At(i, j), Dp.At(i, j), 1.e-14)
			assert.InDelta(t, Dw.At(i, j), Dw.At(j, i), 1.e-14)
		}
	}
	// Dot agrees with the dense product
	x := p.vec.AllocateDofval()
	for d := range x {
		x[d] = float64(d%7) - 3
	}
	y := whole.Dot(x)
	for i := 0; i < r; i++ {
		var s float64
		for j := 0; j < c; j++ {
			s += Dw.At(i, j) * x[j]
		}
		assert.InDelta(t, s, y[i], 1.e-12)
	}
	assert.Equal(t, y, p.vec.AsDofsNode(whole.DotNode(p.vec.AsNode(x))))
	assert.Panics(t, func() { whole.Dot(x[1:]) })
	assert.Panics(t, func() { whole.Assemble(types.NewArray(1, 24, 24)) })
	whole.Reset()
	assert.Equal(t, 0, whole.CSR().NNZ())
}

func TestMatrixFailure(t *testing.T) {
	p := newProblem(t)
	{ // Nothing assembled
		_, err := New(p.vec).Solve(p.vec.AllocateDofval(1), p.vec.AllocateDofval())
		assert.ErrorIs(t, err, ErrNotPositiveDefinite)
		_, err = New(p.vec, NewLU()).Solve(p.vec.AllocateDofval(1), p.vec.AllocateDofval())
		assert.ErrorIs(t, err, ErrSingular)
	}
	{ // Negative definite
		neg := p.Ke.Copy()
		for n := range neg.Data {
			neg.Data[n] = -neg.Data[n]
		}
		for _, solver := range []Solver{NewCholesky(), NewConjugateGradient(0, 0)} {
			K := New(p.vec, solver)
			K.Assemble(neg)
			_, err := K.Solve(p.vec.AllocateDofval(1), p.vec.AllocateDofval())
			assert.ErrorIs(t, err, ErrNotPositiveDefinite)
		}
		// LU handles the indefinite but regular system
		K := New(p.vec, NewLU())
		K.Assemble(neg)
		_, err := K.Solve(p.vec.AllocateDofval(1), p.vec.AllocateDofval())
		assert.NoError(t, err)
	}
	{ // Too few iterations
		K := New(p.vec, NewConjugateGradient(1.e-14, 2))
		K.Assemble(p.Ke)
		b := p.vec.AllocateDofval()
		for d := range b {
			b[d] = float64(d % 5)
		}
		_, err := K.Solve(b, p.vec.AllocateDofval())
		assert.ErrorIs(t, err, ErrNotConverged)
	}
	{ // Every DOF prescribed
		var (
			m   = mesh.NewQuad4(1, 1, 1)
			vec = vector.NewPartitioned(m.Conn(), m.Dofs(), []int{7, 6, 5, 4, 3, 2, 1, 0})
			K   = New(vec)
			x   = []float64{1, 2, 3, 4, 5, 6, 7, 8}
		)
		K.Assemble(vec.AllocateElemmat(1))
		xOut, err := K.Solve(vec.AllocateDofval(), x)
		require.NoError(t, err)
		assert.Equal(t, x, xOut)
	}
	assert.Panics(t, func() { _, _ = New(p.vec).Solve(make([]float64, 3), p.vec.AllocateDofval()) })
}

func TestMatrixDiagonal(t *testing.T) {
	var (
		rho = 3.
		p   = newProblem(t, element.Hex8{}.Nodal())
		M   = NewDiagonal(p.vec)
	)
	M.Assemble(p.quad.IntNScalarNTdV(p.quad.AllocateQscalar(rho)))
	var (
		d     = M.AsDiagonal()
		total float64
	)
	for _, val := range d {
		total += val
	}
	assert.InDelta(t, 3*rho, total, 1.e-12)
	// Corner nodes carry a single element share, interior nodes eight
	assert.InDelta(t, rho/27/8, d[0], 1.e-14)
	interior := p.mesh.NodesInterior()[0]
	assert.InDelta(t, rho/27, d[interior*3], 1.e-14)

	b := p.vec.AllocateDofval()
	for i := range b {
		b[i] = float64(i)
	}
	assert.Equal(t, []float64{0, d[1], 2 * d[2]}, M.Dot(b)[:3])
	x := p.vec.AllocateDofval(-1)
	xOut, err := M.Solve(b, x)
	require.NoError(t, err)
	for _, dof := range p.vec.Iiu() {
		assert.InDelta(t, b[dof]/d[dof], xOut[dof], 1.e-12)
	}
	for _, dof := range p.vec.Iip() {
		assert.Equal(t, -1., xOut[dof])
	}
	xn, err := M.SolveNode(p.vec.AsNode(b), p.vec.AsNode(x))
	require.NoError(t, err)
	assert.InDeltaSlice(t, xOut, p.vec.AsDofsNode(xn), 1.e-15)
	assert.InDeltaSlice(t, M.Dot(b), p.vec.AsDofsNode(M.DotNode(p.vec.AsNode(b))), 1.e-15)

	// A consistent mass matrix is not diagonal
	q, err := element.NewQuadrature(element.Hex8{}, p.vec.AsElementNode(p.coor))
	require.NoError(t, err)
	assert.Panics(t, func() { M.Assemble(q.IntNScalarNTdV(q.AllocateQscalar(rho))) })

	M.Reset()
	_, err = M.Solve(b, x)
	assert.ErrorIs(t, err, ErrSingular)
	M.Set(p.vec.AllocateDofval(2))
	xOut, err = M.Solve(b, x)
	require.NoError(t, err)
	assert.Equal(t, b[p.vec.Iiu()[0]]/2, xOut[p.vec.Iiu()[0]])
	assert.Panics(t, func() { M.Set(make([]float64, 2)) })
}
