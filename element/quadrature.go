package element

import (
	"errors"
	"fmt"

	"github.com/notargets/fekernel/types"
	"github.com/notargets/fekernel/utils"
)

// ErrDegenerateElement is wrapped by every error reporting a non-positive Jacobian determinant.
var ErrDegenerateElement = errors.New("degenerate element")

/*
Quadrature evaluates shape-function gradients and integration volumes on every
integration point of every element, and integrates per-point fields over the
elements.

	x    [nelem, nne, ndim]        nodal coordinates per element
	N    [nip, nne]                shape functions, fixed by the rule
	dNxi [nip, nne, ndim]          local gradients, fixed by the rule
	dNx  [nelem, nip, nne, ndim]   physical gradients, recomputed on Update
	vol  [nelem, nip]              integration volumes, recomputed on Update
*/
type Quadrature struct {
	family                Family
	nelem, nne, ndim, nip int
	x                     types.Array
	xi                    types.Array
	w                     []float64
	N, dNxi               types.Array
	dNx, vol              types.Array
	pm                    *utils.PartitionMap
}

// NewQuadrature uses the family's Gauss rule unless a rule is passed.
func NewQuadrature(family Family, x types.Array, rule ...Rule) (q *Quadrature, err error) {
	var (
		r = family.Gauss()
	)
	if len(rule) != 0 {
		r = rule[0]
	}
	if x.Rank() != 3 {
		panic(fmt.Errorf("nodal coordinates must be [nelem, nne, ndim], have shape %v", x.Shape))
	}
	var (
		nelem = x.Shape[0]
		nne   = family.Nne()
		ndim  = family.Ndim()
		nip   = r.Nip()
	)
	x.CheckShape("x", nelem, nne, ndim)
	r.Xi.CheckShape("xi", nip, ndim)
	q = &Quadrature{
		family: family,
		nelem:  nelem,
		nne:    nne,
		ndim:   ndim,
		nip:    nip,
		xi:     r.Xi.Copy(),
		w:      append([]float64{}, r.W...),
		N:      types.NewArray(nip, nne),
		dNxi:   types.NewArray(nip, nne, ndim),
		pm:     utils.NewPartitionMapFor(nelem),
	}
	for k := 0; k < nip; k++ {
		family.ShapeFunctions(q.xi.Block(k), q.N.Block(k), q.dNxi.Block(k))
	}
	if err = q.Update(x); err != nil {
		return nil, err
	}
	return
}

// Update replaces the nodal coordinates. On error the previous state is kept.
func (q *Quadrature) Update(x types.Array) (err error) {
	x.CheckShape("x", q.nelem, q.nne, q.ndim)
	var (
		dNx, vol types.Array
	)
	if dNx, vol, err = q.compute(x); err != nil {
		return
	}
	q.x, q.dNx, q.vol = x.Copy(), dNx, vol
	return
}

func (q *Quadrature) compute(x types.Array) (dNx, vol types.Array, err error) {
	var (
		nne, ndim, nip = q.nne, q.ndim, q.nip
	)
	dNx = types.NewArray(q.nelem, nip, nne, ndim)
	vol = types.NewArray(q.nelem, nip)
	err = q.pm.RunE(func(bn, kMin, kMax int) error {
		var (
			J    = make([]float64, ndim*ndim)
			Jinv = make([]float64, ndim*ndim)
		)
		for e := kMin; e < kMax; e++ {
			xe := x.Block(e)
			for k := 0; k < nip; k++ {
				dNxik := q.dNxi.Block(k)
				for i := 0; i < ndim; i++ {
					for j := 0; j < ndim; j++ {
						var sum float64
						for m := 0; m < nne; m++ {
							sum += dNxik[m*ndim+i] * xe[m*ndim+j]
						}
						J[i*ndim+j] = sum
					}
				}
				det := invert(ndim, J, Jinv)
				if !(det > 0) { // also rejects NaN
					return fmt.Errorf("element %d, integration point %d: det(J) = %g: %w",
						e, k, det, ErrDegenerateElement)
				}
				dNxek := dNx.Block(e, k)
				for m := 0; m < nne; m++ {
					for i := 0; i < ndim; i++ {
						var sum float64
						for j := 0; j < ndim; j++ {
							sum += Jinv[i*ndim+j] * dNxik[m*ndim+j]
						}
						dNxek[m*ndim+i] = sum
					}
				}
				vol.Data[e*nip+k] = q.w[k] * det
			}
		}
		return nil
	})
	return
}

func (q *Quadrature) Family() Family { return q.family }
func (q *Quadrature) Nelem() int     { return q.nelem }
func (q *Quadrature) Nne() int       { return q.nne }
func (q *Quadrature) Ndim() int      { return q.ndim }
func (q *Quadrature) Nip() int       { return q.nip }

// GradN returns a copy of the physical gradients [nelem, nip, nne, ndim].
func (q *Quadrature) GradN() types.Array { return q.dNx.Copy() }

// DV returns a copy of the integration volumes [nelem, nip].
func (q *Quadrature) DV() types.Array { return q.vol.Copy() }

// Coordinates returns a copy of the current nodal coordinates.
func (q *Quadrature) Coordinates() types.Array { return q.x.Copy() }

func (q *Quadrature) tensorShape(rank int) (shape []int) {
	shape = []int{q.nelem, q.nip}
	for r := 0; r < rank; r++ {
		shape = append(shape, q.ndim)
	}
	return
}

func (q *Quadrature) checkElemvec(name string, elemvec types.Array) {
	elemvec.CheckShape(name, q.nelem, q.nne, q.ndim)
}

func (q *Quadrature) checkQtensor(name string, rank int, qtensor types.Array) {
	qtensor.CheckShape(name, q.tensorShape(rank)...)
}

// InterpNVector interpolates a nodal field to the integration points [nelem, nip, ndim].
func (q *Quadrature) InterpNVector(elemvec types.Array) (qvector types.Array) {
	q.checkElemvec("elemvec", elemvec)
	var (
		nne, ndim, nip = q.nne, q.ndim, q.nip
	)
	qvector = types.NewArray(q.tensorShape(1)...)
	q.pm.Run(func(bn, kMin, kMax int) {
		for e := kMin; e < kMax; e++ {
			u := elemvec.Block(e)
			for k := 0; k < nip; k++ {
				Nk, qv := q.N.Block(k), qvector.Block(e, k)
				for m := 0; m < nne; m++ {
					for i := 0; i < ndim; i++ {
						qv[i] += Nk[m] * u[m*ndim+i]
					}
				}
			}
		}
	})
	return
}

// GradNVector computes gradu(i,j) = dNx(m,i) u(m,j) on every integration point.
func (q *Quadrature) GradNVector(elemvec types.Array) (qtensor types.Array) {
	return q.gradN(elemvec, func(g []float64, i, j, ndim int, val float64) {
		g[i*ndim+j] += val
	})
}

// GradNVectorT is the transpose of GradNVector.
func (q *Quadrature) GradNVectorT(elemvec types.Array) (qtensor types.Array) {
	return q.gradN(elemvec, func(g []float64, i, j, ndim int, val float64) {
		g[j*ndim+i] += val
	})
}

// SymGradNVector is the symmetric part of GradNVector.
func (q *Quadrature) SymGradNVector(elemvec types.Array) (qtensor types.Array) {
	return q.gradN(elemvec, func(g []float64, i, j, ndim int, val float64) {
		g[i*ndim+j] += .5 * val
		g[j*ndim+i] += .5 * val
	})
}

func (q *Quadrature) gradN(elemvec types.Array, add func(g []float64, i, j, ndim int, val float64)) (qtensor types.Array) {
	q.checkElemvec("elemvec", elemvec)
	var (
		nne, ndim, nip = q.nne, q.ndim, q.nip
	)
	qtensor = types.NewArray(q.tensorShape(2)...)
	q.pm.Run(func(bn, kMin, kMax int) {
		for e := kMin; e < kMax; e++ {
			u := elemvec.Block(e)
			for k := 0; k < nip; k++ {
				dNx, g := q.dNx.Block(e, k), qtensor.Block(e, k)
				for m := 0; m < nne; m++ {
					for i := 0; i < ndim; i++ {
						for j := 0; j < ndim; j++ {
							add(g, i, j, ndim, dNx[m*ndim+i]*u[m*ndim+j])
						}
					}
				}
			}
		}
	})
	return
}

// IntNScalarNTdV integrates M(m*d+a, n*d+a) = N(m) s N(n) dV, e.g. a consistent mass matrix.
func (q *Quadrature) IntNScalarNTdV(qscalar types.Array) (elemmat types.Array) {
	q.checkQtensor("qscalar", 0, qscalar)
	var (
		nne, ndim, nip = q.nne, q.ndim, q.nip
		nd             = nne * ndim
	)
	elemmat = q.AllocateElemmat()
	q.pm.Run(func(bn, kMin, kMax int) {
		for e := kMin; e < kMax; e++ {
			M := elemmat.Block(e)
			for k := 0; k < nip; k++ {
				var (
					Nk = q.N.Block(k)
					fv = qscalar.Data[e*nip+k] * q.vol.Data[e*nip+k]
				)
				for m := 0; m < nne; m++ {
					for n := 0; n < nne; n++ {
						val := Nk[m] * fv * Nk[n]
						for a := 0; a < ndim; a++ {
							M[(m*ndim+a)*nd+n*ndim+a] += val
						}
					}
				}
			}
		}
	})
	return
}

// IntNVectordV integrates f(m,i) = N(m) v(i) dV, e.g. a body force.
func (q *Quadrature) IntNVectordV(qvector types.Array) (elemvec types.Array) {
	q.checkQtensor("qvector", 1, qvector)
	var (
		nne, ndim, nip = q.nne, q.ndim, q.nip
	)
	elemvec = q.AllocateElemvec()
	q.pm.Run(func(bn, kMin, kMax int) {
		for e := kMin; e < kMax; e++ {
			f := elemvec.Block(e)
			for k := 0; k < nip; k++ {
				var (
					Nk = q.N.Block(k)
					v  = qvector.Block(e, k)
					dV = q.vol.Data[e*nip+k]
				)
				for m := 0; m < nne; m++ {
					for i := 0; i < ndim; i++ {
						f[m*ndim+i] += Nk[m] * v[i] * dV
					}
				}
			}
		}
	})
	return
}

// IntGradNDotTensor2dV integrates f(m,i) = dNx(m,j) sig(j,i) dV, e.g. the internal force.
func (q *Quadrature) IntGradNDotTensor2dV(qtensor types.Array) (elemvec types.Array) {
	q.checkQtensor("qtensor", 2, qtensor)
	var (
		nne, ndim, nip = q.nne, q.ndim, q.nip
	)
	elemvec = q.AllocateElemvec()
	q.pm.Run(func(bn, kMin, kMax int) {
		for e := kMin; e < kMax; e++ {
			f := elemvec.Block(e)
			for k := 0; k < nip; k++ {
				var (
					dNx = q.dNx.Block(e, k)
					sig = qtensor.Block(e, k)
					dV  = q.vol.Data[e*nip+k]
				)
				for m := 0; m < nne; m++ {
					for i := 0; i < ndim; i++ {
						var sum float64
						for j := 0; j < ndim; j++ {
							sum += dNx[m*ndim+j] * sig[j*ndim+i]
						}
						f[m*ndim+i] += sum * dV
					}
				}
			}
		}
	})
	return
}

// IntGradNDotTensor4DotGradNTdV integrates K(m*d+j, n*d+k) = dNx(m,i) C(i,j,k,l) dNx(n,l) dV,
// e.g. the tangent stiffness.
func (q *Quadrature) IntGradNDotTensor4DotGradNTdV(qtensor types.Array) (elemmat types.Array) {
	q.checkQtensor("qtensor", 4, qtensor)
	var (
		nne, ndim, nip = q.nne, q.ndim, q.nip
		nd             = nne * ndim
		d2, d3         = ndim * ndim, ndim * ndim * ndim
	)
	elemmat = q.AllocateElemmat()
	q.pm.Run(func(bn, kMin, kMax int) {
		for e := kMin; e < kMax; e++ {
			K := elemmat.Block(e)
			for kq := 0; kq < nip; kq++ {
				var (
					dNx = q.dNx.Block(e, kq)
					C   = qtensor.Block(e, kq)
					dV  = q.vol.Data[e*nip+kq]
				)
				for m := 0; m < nne; m++ {
					for n := 0; n < nne; n++ {
						for j := 0; j < ndim; j++ {
							for k := 0; k < ndim; k++ {
								var sum float64
								for i := 0; i < ndim; i++ {
									for l := 0; l < ndim; l++ {
										sum += dNx[m*ndim+i] * C[i*d3+j*d2+k*ndim+l] * dNx[n*ndim+l]
									}
								}
								K[(m*ndim+j)*nd+n*ndim+k] += sum * dV
							}
						}
					}
				}
			}
		}
	})
	return
}

func fillValue(val []float64) (v float64) {
	if len(val) != 0 {
		v = val[0]
	}
	return
}

// AllocateQtensor returns a [nelem, nip, ndim^rank] field, zero or filled with val.
func (q *Quadrature) AllocateQtensor(rank int, val ...float64) types.Array {
	if rank < 0 {
		panic(fmt.Errorf("negative tensor rank %d", rank))
	}
	return types.NewArrayFilled(fillValue(val), q.tensorShape(rank)...)
}

func (q *Quadrature) AllocateQscalar(val ...float64) types.Array {
	return q.AllocateQtensor(0, val...)
}

func (q *Quadrature) AllocateElemvec(val ...float64) types.Array {
	return types.NewArrayFilled(fillValue(val), q.nelem, q.nne, q.ndim)
}

func (q *Quadrature) AllocateElemmat(val ...float64) types.Array {
	return types.NewArrayFilled(fillValue(val), q.nelem, q.nne*q.ndim, q.nne*q.ndim)
}

// AsTensor broadcasts a per-point scalar to every component of a rank tensor.
func (q *Quadrature) AsTensor(rank int, qscalar types.Array) (qtensor types.Array) {
	q.checkQtensor("qscalar", 0, qscalar)
	qtensor = q.AllocateQtensor(rank)
	if len(qscalar.Data) == 0 {
		return
	}
	var (
		ncomp = qtensor.Size() / len(qscalar.Data)
	)
	for n, val := range qscalar.Data {
		blk := qtensor.Data[n*ncomp : (n+1)*ncomp]
		for c := range blk {
			blk[c] = val
		}
	}
	return
}
