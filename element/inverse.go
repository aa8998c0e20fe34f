package element

import "fmt"

// invert writes the inverse of the row-major ndim x ndim matrix J into Jinv and
// returns det(J). Jinv is only meaningful when det is non-zero.
func invert(ndim int, J, Jinv []float64) (det float64) {
	switch ndim {
	case 2:
		det = inv2(J, Jinv)
	case 3:
		det = inv3(J, Jinv)
	default:
		panic(fmt.Errorf("closed-form inverse not available for ndim = %d", ndim))
	}
	return
}

func inv2(J, Jinv []float64) (det float64) {
	det = J[0]*J[3] - J[1]*J[2]
	Jinv[0] = J[3] / det
	Jinv[1] = -J[1] / det
	Jinv[2] = -J[2] / det
	Jinv[3] = J[0] / det
	return
}

func inv3(J, Jinv []float64) (det float64) {
	var (
		a, b, c = J[0], J[1], J[2]
		d, e, f = J[3], J[4], J[5]
		g, h, k = J[6], J[7], J[8]
	)
	det = a*(e*k-f*h) - b*(d*k-f*g) + c*(d*h-e*g)
	Jinv[0] = (e*k - f*h) / det
	Jinv[1] = (c*h - b*k) / det
	Jinv[2] = (b*f - c*e) / det
	Jinv[3] = (f*g - d*k) / det
	Jinv[4] = (a*k - c*g) / det
	Jinv[5] = (c*d - a*f) / det
	Jinv[6] = (d*h - e*g) / det
	Jinv[7] = (b*g - a*h) / det
	Jinv[8] = (a*e - b*d) / det
	return
}
