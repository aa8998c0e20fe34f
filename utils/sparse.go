package utils

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// DOK is an additive sparse accumulator: repeated Add calls on the same entry sum.
type DOK struct {
	M    *sparse.DOK
	name string
}

func NewDOK(nr, nc int, name ...string) (R *DOK) {
	R = &DOK{
		M:    sparse.NewDOK(nr, nc),
		name: "unnamed",
	}
	if len(name) != 0 {
		R.name = name[0]
	}
	return
}

// Dims and At minimally satisfy the mat.Matrix interface.
func (m *DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m *DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m *DOK) T() mat.Matrix       { return m.M.T() }
func (m *DOK) NNZ() int            { return m.M.NNZ() }

func (m *DOK) Add(i, j int, val float64) { // Changes receiver
	var (
		nr, nc = m.Dims()
	)
	if i < 0 || i >= nr || j < 0 || j >= nc {
		panic(fmt.Errorf("index out of bounds in \"%s\": (%d,%d), dims = (%d,%d)", m.name, i, j, nr, nc))
	}
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m *DOK) Reset() { // Changes receiver
	var (
		nr, nc = m.Dims()
	)
	m.M = sparse.NewDOK(nr, nc)
}

type triplet struct {
	i, j int
	v    float64
}

// ToCSR compresses the accumulator with columns sorted inside every row, so the
// storage order (and therefore every product over it) is reproducible.
func (m *DOK) ToCSR() (R CSR) {
	var (
		nr, nc = m.Dims()
		trips  = make([]triplet, 0, m.NNZ())
	)
	m.M.DoNonZero(func(i, j int, v float64) {
		trips = append(trips, triplet{i, j, v})
	})
	R = newCSRFromTriplets(nr, nc, trips, m.name)
	return
}

func newCSRFromTriplets(nr, nc int, trips []triplet, name string) (R CSR) {
	sort.Slice(trips, func(a, b int) bool {
		if trips[a].i != trips[b].i {
			return trips[a].i < trips[b].i
		}
		return trips[a].j < trips[b].j
	})
	var (
		ia   = make([]int, nr+1)
		ja   = make([]int, len(trips))
		data = make([]float64, len(trips))
	)
	for n, tr := range trips {
		ia[tr.i+1]++
		ja[n] = tr.j
		data[n] = tr.v
	}
	for i := 0; i < nr; i++ {
		ia[i+1] += ia[i]
	}
	R = CSR{
		nr:   nr,
		nc:   nc,
		name: name,
	}
	if nr != 0 && nc != 0 {
		R.M = sparse.NewCSR(nr, nc, ia, ja, data)
	}
	return
}

// CSR is compressed row storage; a matrix with a zero dimension has no backing M.
type CSR struct {
	M      *sparse.CSR
	nr, nc int
	name   string
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int) { return m.nr, m.nc }
func (m CSR) T() mat.Matrix    { return mat.Transpose{Matrix: m} }
func (m CSR) NNZ() int         { return len(m.RawMatrix().Data) }
func (m CSR) At(i, j int) float64 {
	if m.M == nil {
		panic(fmt.Errorf("index out of bounds in empty matrix \"%s\": (%d,%d)", m.name, i, j))
	}
	return m.M.At(i, j)
}
func (m CSR) RawMatrix() *blas.SparseMatrix {
	if m.M == nil {
		return &blas.SparseMatrix{I: m.nr, J: m.nc, Indptr: make([]int, m.nr+1)}
	}
	return m.M.RawMatrix()
}
func (m CSR) Data() []float64 {
	return m.RawMatrix().Data
}

// MulVecTo computes dst = M*x, visiting entries in storage order.
func (m CSR) MulVecTo(dst, x []float64) {
	var (
		nr, nc = m.Dims()
	)
	if len(x) != nc || len(dst) != nr {
		panic(fmt.Errorf("dimension mismatch in \"%s\" product: dims = (%d,%d), len(x) = %d, len(dst) = %d",
			m.name, nr, nc, len(x), len(dst)))
	}
	for i := range dst {
		dst[i] = 0
	}
	if m.M != nil {
		// Accumulates into dst
		m.M.MulVecTo(dst, false, x)
	}
}

func (m CSR) MulVec(x []float64) (y []float64) {
	var (
		nr, _ = m.Dims()
	)
	y = make([]float64, nr)
	m.MulVecTo(y, x)
	return
}

/*
SubMatrix extracts the block selected by the index maps: rowMap[i] is the row of
the block that row i of the receiver lands in, or -1 to drop it, likewise for
columns. The result has nr x nc entries.
*/
func (m CSR) SubMatrix(rowMap, colMap []int, nr, nc int, name string) (R CSR) {
	var (
		nrM, ncM = m.Dims()
		raw      = m.RawMatrix()
		trips    []triplet
	)
	if len(rowMap) != nrM || len(colMap) != ncM {
		panic(fmt.Errorf("index map length mismatch in \"%s\": dims = (%d,%d), maps = (%d,%d)",
			m.name, nrM, ncM, len(rowMap), len(colMap)))
	}
	for i := 0; i < nrM; i++ {
		ii := rowMap[i]
		if ii < 0 {
			continue
		}
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			jj := colMap[raw.Ind[k]]
			if jj < 0 {
				continue
			}
			trips = append(trips, triplet{ii, jj, raw.Data[k]})
		}
	}
	R = newCSRFromTriplets(nr, nc, trips, name)
	return
}

func (m CSR) Diagonal() (d []float64) {
	var (
		nr, nc = m.Dims()
		raw    = m.RawMatrix()
	)
	if nr != nc {
		panic(fmt.Errorf("diagonal of non-square matrix \"%s\": dims = (%d,%d)", m.name, nr, nc))
	}
	d = make([]float64, nr)
	for i := 0; i < nr; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			if raw.Ind[k] == i {
				d[i] += raw.Data[k]
			}
		}
	}
	return
}

func (m CSR) ToDense() (R *mat.Dense) {
	if m.M == nil {
		return mat.NewDense(m.nr, m.nc, nil)
	}
	return m.M.ToDense()
}

// ToSymDense uses the upper triangle; the lower triangle is assumed to mirror it.
func (m CSR) ToSymDense() (R *mat.SymDense) {
	var (
		nr, nc = m.Dims()
		raw    = m.RawMatrix()
	)
	if nr != nc {
		panic(fmt.Errorf("symmetric view of non-square matrix \"%s\": dims = (%d,%d)", m.name, nr, nc))
	}
	R = mat.NewSymDense(nr, nil)
	for i := 0; i < nr; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			j := raw.Ind[k]
			if j >= i {
				R.SetSym(i, j, R.At(i, j)+raw.Data[k])
			}
		}
	}
	return
}
