package material

import (
	"fmt"

	"github.com/notargets/fekernel/types"
	"github.com/notargets/fekernel/utils"
)

/*
Elastic is isotropic linear elasticity split into a volumetric part (bulk modulus K)
and a deviatoric part (shear modulus G):

	sig = K tr(eps) I + 2 G dev(eps),   dev(eps) = eps - tr(eps)/ndim I

Strain and stress fields are qtensors [nelem, nip, ndim, ndim].
*/
type Elastic struct {
	K, G float64
}

func NewElastic(K, G float64) (m Elastic, err error) {
	if !(K > 0) || !(G > 0) {
		err = fmt.Errorf("elastic moduli must be positive, have K = %g, G = %g", K, G)
		return
	}
	m = Elastic{K: K, G: G}
	return
}

// NewElasticYoung converts Young's modulus and Poisson's ratio.
func NewElasticYoung(E, nu float64) (m Elastic, err error) {
	if !(nu > -1) || !(nu < .5) {
		err = fmt.Errorf("poisson ratio must be in (-1, 0.5), have %g", nu)
		return
	}
	return NewElastic(E/(3*(1-2*nu)), E/(2*(1+nu)))
}

func checkStrain(eps types.Array) (nelem, nip, ndim int) {
	if eps.Rank() != 4 || eps.Shape[2] != eps.Shape[3] {
		panic(fmt.Errorf("strain must be [nelem, nip, ndim, ndim], have shape %v", eps.Shape))
	}
	return eps.Shape[0], eps.Shape[1], eps.Shape[2]
}

// StressPoint evaluates one point, eps and sig are row-major ndim x ndim.
func (m Elastic) StressPoint(ndim int, eps, sig []float64) {
	var (
		tr float64
	)
	for i := 0; i < ndim; i++ {
		tr += eps[i*ndim+i]
	}
	for i := 0; i < ndim; i++ {
		for j := 0; j < ndim; j++ {
			sig[i*ndim+j] = 2 * m.G * eps[i*ndim+j]
		}
		sig[i*ndim+i] += (m.K - 2*m.G/float64(ndim)) * tr
	}
}

func (m Elastic) Stress(eps types.Array) (sig types.Array) {
	var (
		nelem, nip, ndim = checkStrain(eps)
	)
	sig = types.NewArray(eps.Shape...)
	utils.NewPartitionMapFor(nelem).Run(func(bn, kMin, kMax int) {
		for e := kMin; e < kMax; e++ {
			for k := 0; k < nip; k++ {
				m.StressPoint(ndim, eps.Block(e, k), sig.Block(e, k))
			}
		}
	})
	return
}

// Tangent returns the uniform tangent C(i,j,k,l) [nelem, nip, ndim, ndim, ndim, ndim].
func (m Elastic) Tangent(nelem, nip, ndim int) (C types.Array) {
	var (
		c     = m.TangentPoint(ndim)
		ncomp = len(c)
	)
	C = types.NewArray(nelem, nip, ndim, ndim, ndim, ndim)
	for n := 0; n < nelem*nip; n++ {
		copy(C.Data[n*ncomp:(n+1)*ncomp], c)
	}
	return
}

func (m Elastic) TangentPoint(ndim int) (c []float64) {
	var (
		delta = func(i, j int) float64 {
			if i == j {
				return 1
			}
			return 0
		}
		lambda = m.K - 2*m.G/float64(ndim)
		d2, d3 = ndim * ndim, ndim * ndim * ndim
	)
	c = make([]float64, d2*d2)
	for i := 0; i < ndim; i++ {
		for j := 0; j < ndim; j++ {
			for k := 0; k < ndim; k++ {
				for l := 0; l < ndim; l++ {
					c[i*d3+j*d2+k*ndim+l] = lambda*delta(i, j)*delta(k, l) +
						m.G*(delta(i, k)*delta(j, l)+delta(i, l)*delta(j, k))
				}
			}
		}
	}
	return
}

// StressTangent evaluates both the stress and the tangent of a strain field.
func (m Elastic) StressTangent(eps types.Array) (sig, C types.Array) {
	var (
		nelem, nip, ndim = checkStrain(eps)
	)
	return m.Stress(eps), m.Tangent(nelem, nip, ndim)
}

// Energy is the strain energy density 0.5 sig:eps per point [nelem, nip].
func (m Elastic) Energy(eps types.Array) (w types.Array) {
	var (
		nelem, nip, ndim = checkStrain(eps)
		sig              = m.Stress(eps)
	)
	w = types.NewArray(nelem, nip)
	for n := range w.Data {
		var (
			s = sig.Data[n*ndim*ndim : (n+1)*ndim*ndim]
			e = eps.Data[n*ndim*ndim : (n+1)*ndim*ndim]
		)
		for c := range s {
			w.Data[n] += .5 * s[c] * e[c]
		}
	}
	return
}
