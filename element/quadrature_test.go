package element

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/fekernel/types"
)

func unitCube() types.Array {
	x := types.NewArray(1, 8, 3)
	for m, c := range hex8Corners {
		for i := 0; i < 3; i++ {
			x.Set(.5*(c[i]+1), 0, m, i)
		}
	}
	return x
}

// distortedHexes is two stacked hexahedra with one interior node moved off the grid.
func distortedHexes() types.Array {
	x := types.NewArray(2, 8, 3)
	for e := 0; e < 2; e++ {
		for m, c := range hex8Corners {
			x.Set(.5*(c[0]+1), e, m, 0)
			x.Set(.5*(c[1]+1), e, m, 1)
			x.Set(.5*(c[2]+1)+float64(e), e, m, 2)
		}
	}
	x.Set(1.1, 0, 6, 0)
	x.Set(0.95, 0, 6, 1)
	x.Set(1.2, 0, 6, 2)
	x.Set(2.3, 1, 6, 2)
	return x
}

func rectangle(lx, ly float64) types.Array {
	x := types.NewArray(1, 4, 2)
	corners := [][2]float64{{0, 0}, {lx, 0}, {lx, ly}, {0, ly}}
	for m, c := range corners {
		x.Set(c[0], 0, m, 0)
		x.Set(c[1], 0, m, 1)
	}
	return x
}

func sum(v []float64) (s float64) {
	for _, val := range v {
		s += val
	}
	return
}

// linearField evaluates u(m,j) = A(j,i) x(m,i) on every element node.
func linearField(x types.Array, A [][]float64) (u types.Array) {
	var (
		nelem, nne, ndim = x.Shape[0], x.Shape[1], x.Shape[2]
	)
	u = types.NewArray(nelem, nne, ndim)
	for e := 0; e < nelem; e++ {
		for m := 0; m < nne; m++ {
			for j := 0; j < ndim; j++ {
				for i := 0; i < ndim; i++ {
					u.Add(A[j][i]*x.At(e, m, i), e, m, j)
				}
			}
		}
	}
	return
}

func isotropicTangent(q *Quadrature, lambda, mu float64) (C types.Array) {
	C = q.AllocateQtensor(4)
	var (
		d     = q.Ndim()
		delta = func(i, j int) float64 {
			if i == j {
				return 1
			}
			return 0
		}
	)
	for e := 0; e < q.Nelem(); e++ {
		for k := 0; k < q.Nip(); k++ {
			for i := 0; i < d; i++ {
				for j := 0; j < d; j++ {
					for kk := 0; kk < d; kk++ {
						for l := 0; l < d; l++ {
							C.Set(lambda*delta(i, j)*delta(kk, l)+
								mu*(delta(i, kk)*delta(j, l)+delta(i, l)*delta(j, kk)), e, k, i, j, kk, l)
						}
					}
				}
			}
		}
	}
	return
}

func TestShapeFunctions(t *testing.T) {
	points := [][]float64{{0, 0, 0}, {.3, -.7, .1}, {-1, 1, -1}, {.9, .2, -.4}}
	for _, f := range []Family{Quad4{}, Hex8{}} {
		var (
			N    = make([]float64, f.Nne())
			dNxi = make([]float64, f.Nne()*f.Ndim())
		)
		for _, pt := range points {
			f.ShapeFunctions(pt[:f.Ndim()], N, dNxi)
			// Partition of unity and zero-sum gradients
			assert.InDelta(t, 1., sum(N), 1.e-14)
			for i := 0; i < f.Ndim(); i++ {
				var s float64
				for m := 0; m < f.Nne(); m++ {
					s += dNxi[m*f.Ndim()+i]
				}
				assert.InDelta(t, 0., s, 1.e-14)
			}
		}
		// Kronecker property on the nodes
		nodal := f.Nodal()
		for k := 0; k < nodal.Nip(); k++ {
			f.ShapeFunctions(nodal.Xi.Block(k), N, dNxi)
			for m := 0; m < f.Nne(); m++ {
				if m == k {
					assert.Equal(t, 1., N[m])
				} else {
					assert.Equal(t, 0., N[m])
				}
			}
		}
		assert.Equal(t, 1<<f.Ndim(), f.Gauss().Nip())
	}
	f, err := FamilyByName("Hex8")
	require.NoError(t, err)
	assert.Equal(t, "Hex8", f.Name())
	_, err = FamilyByName("Tri3")
	assert.Error(t, err)
	assert.Panics(t, func() { NewRule(2, [][]float64{{0, 0}}, []float64{1, 1}) })
}

func TestQuadratureVolume(t *testing.T) {
	{ // Unit cube under both rules
		for _, rule := range []Rule{Hex8{}.Gauss(), Hex8{}.Nodal()} {
			q, err := NewQuadrature(Hex8{}, unitCube(), rule)
			require.NoError(t, err)
			dV := q.DV()
			assert.Equal(t, []int{1, 8}, dV.Shape)
			assert.InDelta(t, 1., sum(dV.Data), 1.e-14)
			for _, v := range dV.Data {
				assert.InDelta(t, .125, v, 1.e-14)
			}
		}
	}
	{ // Rectangle
		q, err := NewQuadrature(Quad4{}, rectangle(2, 3))
		require.NoError(t, err)
		assert.InDelta(t, 6., sum(q.DV().Data), 1.e-13)
		assert.Equal(t, 4, q.Nip())
		assert.Equal(t, 2, q.Ndim())
	}
	{ // Distorted elements: volume is exact for trilinear geometry under 2x2x2 Gauss
		x := distortedHexes()
		q, err := NewQuadrature(Hex8{}, x)
		require.NoError(t, err)
		qn, err := NewQuadrature(Hex8{}, x, Hex8{}.Nodal())
		require.NoError(t, err)
		assert.InDelta(t, sum(q.DV().Data), sum(qn.DV().Data), .1)
		assert.Greater(t, sum(q.DV().Data), 2.)
	}
}

func TestQuadratureUniformStress(t *testing.T) {
	q, err := NewQuadrature(Hex8{}, unitCube())
	require.NoError(t, err)
	sig := [3][3]float64{
		{1, 2, 3},
		{2, 5, 4},
		{3, 4, 7},
	}
	qsig := q.AllocateQtensor(2)
	for k := 0; k < q.Nip(); k++ {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				qsig.Set(sig[i][j], 0, k, i, j)
			}
		}
	}
	f := q.IntGradNDotTensor2dV(qsig)
	assert.Equal(t, []int{1, 8, 3}, f.Shape)
	// Integral of dN_m/dx_j over the unit cube is c_m(j)/4
	for m, c := range hex8Corners {
		for i := 0; i < 3; i++ {
			var expected float64
			for j := 0; j < 3; j++ {
				expected += sig[j][i] * c[j] / 4
			}
			assert.InDelta(t, expected, f.At(0, m, i), 1.e-14)
		}
	}
	// Equilibrium: nodal forces of a uniform stress sum to zero
	for i := 0; i < 3; i++ {
		var s float64
		for m := 0; m < 8; m++ {
			s += f.At(0, m, i)
		}
		assert.InDelta(t, 0., s, 1.e-14)
	}
}

func TestQuadratureArrayLiteral(t *testing.T) {
	q, err := NewQuadrature(Hex8{}, distortedHexes())
	require.NoError(t, err)
	qsig := q.AllocateQtensor(2)
	for n := range qsig.Data {
		qsig.Data[n] = float64(n%9) - 4
	}
	// Same field without strides, as built by a caller
	lit := types.Array{Shape: append([]int{}, qsig.Shape...), Data: append([]float64{}, qsig.Data...)}
	assert.Equal(t, q.IntGradNDotTensor2dV(qsig).Data, q.IntGradNDotTensor2dV(lit).Data)
	// Inconsistent strides are rejected before any worker runs
	lit.Strides = []int{1, 1, 1, 1}
	assert.Panics(t, func() { q.IntGradNDotTensor2dV(lit) })
}

func TestQuadratureGradient(t *testing.T) {
	var (
		A = [][]float64{
			{.1, .2, .3},
			{-.4, .5, .6},
			{.7, -.8, .9},
		}
		x = distortedHexes()
	)
	q, err := NewQuadrature(Hex8{}, x)
	require.NoError(t, err)
	u := linearField(x, A)
	var (
		grad  = q.GradNVector(u)
		gradT = q.GradNVectorT(u)
		eps   = q.SymGradNVector(u)
	)
	assert.Equal(t, []int{2, 8, 3, 3}, grad.Shape)
	for e := 0; e < 2; e++ {
		for k := 0; k < 8; k++ {
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					assert.InDelta(t, A[j][i], grad.At(e, k, i, j), 1.e-12)
					assert.InDelta(t, A[i][j], gradT.At(e, k, i, j), 1.e-12)
					assert.InDelta(t, .5*(A[i][j]+A[j][i]), eps.At(e, k, i, j), 1.e-12)
				}
			}
		}
	}
	// Interpolation of the linear field to the points equals the field at the point locations
	var (
		qu = q.InterpNVector(u)
		qx = q.InterpNVector(x)
	)
	for e := 0; e < 2; e++ {
		for k := 0; k < 8; k++ {
			for j := 0; j < 3; j++ {
				var expected float64
				for i := 0; i < 3; i++ {
					expected += A[j][i] * qx.At(e, k, i)
				}
				assert.InDelta(t, expected, qu.At(e, k, j), 1.e-12)
			}
		}
	}
	assert.Panics(t, func() { q.GradNVector(types.NewArray(2, 8, 2)) })
}

func TestQuadratureMass(t *testing.T) {
	var (
		rho = 2.5
		x   = distortedHexes()
	)
	q, err := NewQuadrature(Hex8{}, x)
	require.NoError(t, err)
	M := q.IntNScalarNTdV(q.AllocateQscalar(rho))
	assert.Equal(t, []int{2, 24, 24}, M.Shape)
	assert.InDelta(t, 3*rho*sum(q.DV().Data), sum(M.Data), 1.e-12)
	// Symmetric, and components never couple
	for e := 0; e < 2; e++ {
		for r := 0; r < 24; r++ {
			for c := 0; c < 24; c++ {
				assert.InDelta(t, M.At(e, r, c), M.At(e, c, r), 1.e-14)
				if r%3 != c%3 {
					assert.Equal(t, 0., M.At(e, r, c))
				}
			}
		}
	}
	// The nodal rule lumps the mass onto the diagonal
	qn, err := NewQuadrature(Hex8{}, x, Hex8{}.Nodal())
	require.NoError(t, err)
	Mn := qn.IntNScalarNTdV(qn.AllocateQscalar(rho))
	for r := 0; r < 24; r++ {
		for c := 0; c < 24; c++ {
			if r != c {
				assert.Equal(t, 0., Mn.At(0, r, c))
			}
		}
	}
	// Body force of a uniform field
	g := q.AllocateQtensor(1)
	for n := range g.Data {
		if n%3 == 2 {
			g.Data[n] = -9.81
		}
	}
	fb := q.IntNVectordV(g)
	var fz float64
	for e := 0; e < 2; e++ {
		for m := 0; m < 8; m++ {
			fz += fb.At(e, m, 2)
			assert.Equal(t, 0., fb.At(e, m, 0))
		}
	}
	assert.InDelta(t, -9.81*sum(q.DV().Data), fz, 1.e-12)
}

func TestQuadratureStiffness(t *testing.T) {
	for _, tc := range []struct {
		family Family
		x      types.Array
	}{
		{Hex8{}, distortedHexes()},
		{Quad4{}, rectangle(2, .5)},
	} {
		q, err := NewQuadrature(tc.family, tc.x)
		require.NoError(t, err)
		var (
			C   = isotropicTangent(q, 1.3, .7)
			K   = q.IntGradNDotTensor4DotGradNTdV(C)
			nd  = q.Nne() * q.Ndim()
			d   = q.Ndim()
			u   = q.AllocateElemvec()
			sig = q.AllocateQtensor(2)
		)
		for n := range u.Data {
			u.Data[n] = math.Sin(float64(3*n + 1))
		}
		eps := q.SymGradNVector(u)
		for e := 0; e < q.Nelem(); e++ {
			for k := 0; k < q.Nip(); k++ {
				for i := 0; i < d; i++ {
					for j := 0; j < d; j++ {
						var s float64
						for kk := 0; kk < d; kk++ {
							for l := 0; l < d; l++ {
								s += C.At(e, k, i, j, kk, l) * eps.At(e, k, kk, l)
							}
						}
						sig.Set(s, e, k, i, j)
					}
				}
			}
		}
		f := q.IntGradNDotTensor2dV(sig)
		for e := 0; e < q.Nelem(); e++ {
			Ke, ue := K.Block(e), u.Block(e)
			for r := 0; r < nd; r++ {
				var (
					Ku, Kt float64
				)
				for c := 0; c < nd; c++ {
					Ku += Ke[r*nd+c] * ue[c]
					// Rigid translation along the first axis
					if c%d == 0 {
						Kt += Ke[r*nd+c]
					}
					assert.InDelta(t, Ke[r*nd+c], Ke[c*nd+r], 1.e-12)
				}
				assert.InDelta(t, f.Block(e)[r], Ku, 1.e-12)
				assert.InDelta(t, 0., Kt, 1.e-12)
			}
		}
	}
}

func TestQuadratureDegenerate(t *testing.T) {
	{ // Mirrored element has det(J) < 0
		x := unitCube()
		for m := 0; m < 8; m++ {
			x.Set(-x.At(0, m, 0), 0, m, 0)
		}
		_, err := NewQuadrature(Hex8{}, x)
		assert.ErrorIs(t, err, ErrDegenerateElement)
	}
	{ // Collapsed element
		x := rectangle(1, 0)
		_, err := NewQuadrature(Quad4{}, x)
		assert.ErrorIs(t, err, ErrDegenerateElement)
	}
	{ // Failed update keeps the previous state
		x := distortedHexes()
		q, err := NewQuadrature(Hex8{}, x)
		require.NoError(t, err)
		dV := q.DV()
		bad := x.Copy()
		bad.Set(math.NaN(), 1, 3, 1)
		err = q.Update(bad)
		assert.ErrorIs(t, err, ErrDegenerateElement)
		assert.Equal(t, dV.Data, q.DV().Data)
		// A valid update is taken
		moved := x.Copy()
		for n := range moved.Data {
			moved.Data[n] *= 2
		}
		require.NoError(t, q.Update(moved))
		assert.InDelta(t, 8*sum(dV.Data), sum(q.DV().Data), 1.e-12)
		assert.Equal(t, moved.Data, q.Coordinates().Data)
		assert.Panics(t, func() { _ = q.Update(types.NewArray(1, 8, 3)) })
	}
	assert.Panics(t, func() { _, _ = NewQuadrature(Hex8{}, types.NewArray(1, 4, 2)) })
	assert.Panics(t, func() { _, _ = NewQuadrature(Hex8{}, unitCube(), Quad4{}.Gauss()) })
}

func TestQuadratureAllocate(t *testing.T) {
	q, err := NewQuadrature(Quad4{}, rectangle(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, q.AllocateQscalar().Shape)
	assert.Equal(t, []int{1, 4, 2, 2}, q.AllocateQtensor(2).Shape)
	assert.Equal(t, []int{1, 4, 2, 2, 2, 2}, q.AllocateQtensor(4, 3).Shape)
	assert.Equal(t, 3., q.AllocateQtensor(4, 3).At(0, 3, 1, 0, 1, 1))
	assert.Equal(t, []int{1, 4, 2}, q.AllocateElemvec().Shape)
	assert.Equal(t, []int{1, 8, 8}, q.AllocateElemmat().Shape)
	s := q.AllocateQscalar()
	for k := 0; k < 4; k++ {
		s.Set(float64(k), 0, k)
	}
	T := q.AsTensor(2, s)
	for k := 0; k < 4; k++ {
		assert.Equal(t, []float64{float64(k), float64(k), float64(k), float64(k)}, T.Block(0, k))
	}
	gradN := q.GradN()
	assert.Equal(t, []int{1, 4, 4, 2}, gradN.Shape)
	gradN.Data[0] = 1.e10 // copies do not alias the internal state
	assert.NotEqual(t, 1.e10, q.GradN().Data[0])
	assert.Panics(t, func() { q.AllocateQtensor(-1) })
}
