//go:build netlib && cgo
// +build netlib,cgo

package utils

/*
#cgo CFLAGS: -march=native -mavx -mavx2
#cgo LDFLAGS: -lopenblas -llapacke -lgfortran -lm -lpthread
#include <cblas.h>
#include <lapacke.h>
*/
import "C"

import (
	"gonum.org/v1/gonum/blas/blas64"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

// Building with -tags netlib routes the dense factorizations through OpenBLAS.
func init() {
	blas64.Use(netblas.Implementation{})
	BLASBackend = "netlib"
}
