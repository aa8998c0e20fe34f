package matrix

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/fekernel/utils"
)

var (
	ErrSingular            = errors.New("singular system matrix")
	ErrNotPositiveDefinite = errors.New("system matrix is not positive definite")
	ErrNotConverged        = errors.New("iterative solver did not converge")
)

// Solver factorizes the unknown-unknown block once and solves it for any number
// of right-hand sides. Factorize is only called with a non-empty square matrix.
type Solver interface {
	Factorize(A utils.CSR) error
	Solve(b []float64) (x []float64, err error)
}

func vecData(v *mat.VecDense) (x []float64) {
	x = make([]float64, v.Len())
	for i := range x {
		x[i] = v.AtVec(i)
	}
	return
}

// Cholesky is a dense Cholesky factorization of a symmetric positive definite
// matrix. Only the upper triangle is read.
type Cholesky struct {
	chol mat.Cholesky
	n    int
}

func NewCholesky() *Cholesky { return &Cholesky{} }

func (s *Cholesky) Factorize(A utils.CSR) error {
	s.n, _ = A.Dims()
	if ok := s.chol.Factorize(A.ToSymDense()); !ok {
		return fmt.Errorf("cholesky factorization of %d x %d matrix: %w", s.n, s.n, ErrNotPositiveDefinite)
	}
	return nil
}

func (s *Cholesky) Solve(b []float64) (x []float64, err error) {
	var (
		xv = mat.NewVecDense(s.n, nil)
	)
	if err = s.chol.SolveVecTo(xv, mat.NewVecDense(s.n, b)); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("cholesky solve, condition number %g: %w", float64(cond), ErrSingular)
		}
		return nil, err
	}
	x = vecData(xv)
	return
}

// LU is a dense LU factorization with partial pivoting, for general square matrices.
type LU struct {
	lu mat.LU
	n  int
}

func NewLU() *LU { return &LU{} }

func (s *LU) Factorize(A utils.CSR) error {
	s.n, _ = A.Dims()
	s.lu.Factorize(A.ToDense())
	if cond := s.lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || 1./cond < utils.MINCOND {
		return fmt.Errorf("lu factorization of %d x %d matrix, condition number %g: %w", s.n, s.n, cond, ErrSingular)
	}
	return nil
}

func (s *LU) Solve(b []float64) (x []float64, err error) {
	var (
		xv = mat.NewVecDense(s.n, nil)
	)
	if err = s.lu.SolveVecTo(xv, false, mat.NewVecDense(s.n, b)); err != nil {
		return nil, fmt.Errorf("lu solve: %v: %w", err, ErrSingular)
	}
	x = vecData(xv)
	return
}

// ConjugateGradient iterates on the sparse matrix directly, for symmetric positive
// definite systems. It converges when |r| <= Tol |b|.
type ConjugateGradient struct {
	Tol     float64
	MaxIter int
	A       utils.CSR
}

// NewConjugateGradient uses tol = 1e-12 and maxIter = 10 n for non-positive arguments.
func NewConjugateGradient(tol float64, maxIter int) *ConjugateGradient {
	return &ConjugateGradient{Tol: tol, MaxIter: maxIter}
}

func (s *ConjugateGradient) Factorize(A utils.CSR) error {
	for i, d := range A.Diagonal() {
		if !(d > 0) {
			return fmt.Errorf("diagonal entry %d = %g: %w", i, d, ErrNotPositiveDefinite)
		}
	}
	s.A = A
	return nil
}

func (s *ConjugateGradient) Solve(b []float64) (x []float64, err error) {
	var (
		n       = len(b)
		tol     = s.Tol
		maxIter = s.MaxIter
		r       = append([]float64{}, b...)
		p       = append([]float64{}, b...)
		Ap      = make([]float64, n)
		bnorm   = floats.Norm(b, 2)
		rr      = floats.Dot(r, r)
	)
	if tol <= 0 {
		tol = 1.e-12
	}
	if maxIter <= 0 {
		maxIter = 10 * n
	}
	x = make([]float64, n)
	if bnorm == 0 {
		return
	}
	for iter := 0; iter < maxIter; iter++ {
		s.A.MulVecTo(Ap, p)
		pAp := floats.Dot(p, Ap)
		if !(pAp > 0) {
			return nil, fmt.Errorf("iteration %d, p.Ap = %g: %w", iter, pAp, ErrNotPositiveDefinite)
		}
		alpha := rr / pAp
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, Ap)
		rrNew := floats.Dot(r, r)
		if math.Sqrt(rrNew) <= tol*bnorm {
			return
		}
		floats.AddScaledTo(p, r, rrNew/rr, p)
		rr = rrNew
	}
	return nil, fmt.Errorf("%d iterations, |r|/|b| = %g: %w", maxIter, math.Sqrt(rr)/bnorm, ErrNotConverged)
}
