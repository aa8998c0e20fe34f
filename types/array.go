package types

import (
	"fmt"
)

/*
Array is a row-major, n-dimensional float64 array over owned contiguous storage.
It is used for the per-node, per-element and per-integration-point field
representations:

	nodevec  [nnode, ndim]
	elemvec  [nelem, nne, ndim]
	elemmat  [nelem, nne*ndim, nne*ndim]
	qscalar  [nelem, nip]
	qtensor  [nelem, nip, ndim, ndim(, ndim, ndim)]
*/
type Array struct {
	Shape   []int
	Strides []int // Row-major, derived from Shape when empty
	Data    []float64
}

func NewArray(shape ...int) (A Array) {
	var (
		size = 1
	)
	for _, n := range shape {
		if n < 0 {
			panic(fmt.Errorf("negative dimension in shape %v", shape))
		}
		size *= n
	}
	A = Array{
		Shape:   append([]int{}, shape...),
		Strides: strides(shape),
		Data:    make([]float64, size),
	}
	return
}

// NewArrayFrom wraps data (not copied) with the given shape.
func NewArrayFrom(data []float64, shape ...int) (A Array) {
	A = Array{
		Shape:   append([]int{}, shape...),
		Strides: strides(shape),
		Data:    data,
	}
	if len(data) != A.Size() {
		panic(fmt.Errorf("mismatch in allocation: shape = %v, len(data) = %d", shape, len(data)))
	}
	return
}

func NewArrayFilled(val float64, shape ...int) (A Array) {
	A = NewArray(shape...)
	A.Fill(val)
	return
}

func strides(shape []int) (s []int) {
	s = make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = stride
		stride *= shape[i]
	}
	return
}

func (A Array) Rank() int { return len(A.Shape) }

func (A Array) Size() (size int) {
	size = 1
	for _, n := range A.Shape {
		size *= n
	}
	return
}

func (A Array) HasShape(shape ...int) bool {
	if len(shape) != len(A.Shape) {
		return false
	}
	for i, n := range shape {
		if A.Shape[i] != n {
			return false
		}
	}
	if len(A.Strides) != 0 {
		if len(A.Strides) != len(A.Shape) {
			return false
		}
		for i, st := range strides(A.Shape) {
			if A.Strides[i] != st {
				return false
			}
		}
	}
	return len(A.Data) == A.Size()
}

func (A Array) rowMajor() []int {
	if len(A.Strides) == len(A.Shape) {
		return A.Strides
	}
	return strides(A.Shape)
}

// CheckShape panics when the array does not have the expected shape.
func (A Array) CheckShape(name string, shape ...int) {
	if !A.HasShape(shape...) {
		panic(fmt.Errorf("shape mismatch for \"%s\": have %v, want %v", name, A.Shape, shape))
	}
}

func (A Array) offset(idx []int) (ind int) {
	if len(idx) != len(A.Shape) {
		panic(fmt.Errorf("rank mismatch: array rank %d, index %v", len(A.Shape), idx))
	}
	st := A.rowMajor()
	for i, j := range idx {
		if j < 0 || j >= A.Shape[i] {
			panic(fmt.Errorf("index out of bounds: index = %v, shape = %v", idx, A.Shape))
		}
		ind += j * st[i]
	}
	return
}

func (A Array) At(idx ...int) float64 { return A.Data[A.offset(idx)] }

func (A Array) Set(val float64, idx ...int) { A.Data[A.offset(idx)] = val }

func (A Array) Add(val float64, idx ...int) { A.Data[A.offset(idx)] += val }

// Block returns a view of the contiguous sub-array addressed by the leading
// indices, e.g. elemvec.Block(e) is the [nne*ndim] block of element e.
func (A Array) Block(idx ...int) []float64 {
	if len(idx) > len(A.Shape) {
		panic(fmt.Errorf("too many indices %v for shape %v", idx, A.Shape))
	}
	var (
		start = 0
		size  = 1
		st    = A.rowMajor()
	)
	for i, j := range idx {
		if j < 0 || j >= A.Shape[i] {
			panic(fmt.Errorf("index out of bounds: index = %v, shape = %v", idx, A.Shape))
		}
		start += j * st[i]
	}
	for i := len(idx); i < len(A.Shape); i++ {
		size *= A.Shape[i]
	}
	return A.Data[start : start+size : start+size]
}

func (A Array) Fill(val float64) Array { // Changes receiver
	for i := range A.Data {
		A.Data[i] = val
	}
	return A
}

func (A Array) Copy() (R Array) { // Does not change receiver
	R = NewArray(A.Shape...)
	copy(R.Data, A.Data)
	return
}

func (A Array) String() string {
	return fmt.Sprintf("Array%v%v", A.Shape, A.Data)
}
