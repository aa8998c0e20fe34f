package types

import "fmt"

// IntArray is a row-major [Nr, Nc] table of ids, used for the connectivity
// [nelem, nne] and the DOF map [nnode, ndim].
type IntArray struct {
	Nr, Nc int
	Data   []int
}

func NewIntArray(nr, nc int, dataO ...[]int) (R IntArray) {
	R = IntArray{Nr: nr, Nc: nc}
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			panic(fmt.Errorf("mismatch in allocation: NewIntArray nr,nc = %v,%v, len(data[0]) = %v", nr, nc, len(dataO[0])))
		}
		R.Data = dataO[0]
		return
	}
	R.Data = make([]int, nr*nc)
	return
}

// NewIntArrayFromRows copies a slice of equally sized rows.
func NewIntArrayFromRows(rows [][]int) (R IntArray) {
	var (
		nr = len(rows)
		nc int
	)
	if nr != 0 {
		nc = len(rows[0])
	}
	R = NewIntArray(nr, nc)
	for i, row := range rows {
		if len(row) != nc {
			panic(fmt.Errorf("ragged rows: row %d has %d entries, want %d", i, len(row), nc))
		}
		copy(R.Data[i*nc:], row)
	}
	return
}

func (m IntArray) Dims() (r, c int) { return m.Nr, m.Nc }

func (m IntArray) At(i, j int) int {
	if i < 0 || i >= m.Nr || j < 0 || j >= m.Nc {
		panic(fmt.Errorf("index out of bounds: (%d,%d), dims = (%d,%d)", i, j, m.Nr, m.Nc))
	}
	return m.Data[i*m.Nc+j]
}

func (m IntArray) Set(i, j, val int) {
	if i < 0 || i >= m.Nr || j < 0 || j >= m.Nc {
		panic(fmt.Errorf("index out of bounds: (%d,%d), dims = (%d,%d)", i, j, m.Nr, m.Nc))
	}
	m.Data[i*m.Nc+j] = val
}

// Row is a view of row i.
func (m IntArray) Row(i int) []int {
	if i < 0 || i >= m.Nr {
		panic(fmt.Errorf("row out of bounds: %d, nr = %d", i, m.Nr))
	}
	return m.Data[i*m.Nc : (i+1)*m.Nc : (i+1)*m.Nc]
}

// Max returns the largest entry, -1 for an empty table.
func (m IntArray) Max() (mx int) {
	mx = -1
	for _, v := range m.Data {
		if v > mx {
			mx = v
		}
	}
	return
}

func (m IntArray) Min() (mn int) {
	if len(m.Data) == 0 {
		return -1
	}
	mn = m.Data[0]
	for _, v := range m.Data {
		if v < mn {
			mn = v
		}
	}
	return
}

func (m IntArray) Copy() (R IntArray) {
	R = NewIntArray(m.Nr, m.Nc)
	copy(R.Data, m.Data)
	return
}
