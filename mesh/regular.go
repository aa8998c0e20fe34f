package mesh

import (
	"fmt"

	"github.com/notargets/fekernel/types"
)

/*
Regular is a structured grid of square (Quad4) or cubic (Hex8) elements of edge H.
Node (ix, iy, iz) has id iz*(Nelx+1)*(Nely+1) + iy*(Nelx+1) + ix. Element nodes
run counter-clockwise from the lowest corner, the bottom face before the top face.
*/
type Regular struct {
	Nelx, Nely, Nelz int
	H                float64
	ndim             int
}

func NewQuad4(nelx, nely int, h float64) *Regular {
	return newRegular(2, nelx, nely, 0, h)
}

func NewHex8(nelx, nely, nelz int, h float64) *Regular {
	return newRegular(3, nelx, nely, nelz, h)
}

// NewRegular builds a mesh from the element type name, nelz is ignored for Quad4.
func NewRegular(elementType string, nelx, nely, nelz int, h float64) (r *Regular, err error) {
	switch elementType {
	case "Quad4", "quad4":
		r = NewQuad4(nelx, nely, h)
	case "Hex8", "hex8":
		r = NewHex8(nelx, nely, nelz, h)
	default:
		err = fmt.Errorf("no regular mesh for element type \"%s\"", elementType)
	}
	return
}

func newRegular(ndim, nelx, nely, nelz int, h float64) *Regular {
	if nelx < 1 || nely < 1 || (ndim == 3 && nelz < 1) {
		panic(fmt.Errorf("regular mesh needs at least one element per direction, have %d x %d x %d", nelx, nely, nelz))
	}
	if !(h > 0) {
		panic(fmt.Errorf("element size must be positive, have %g", h))
	}
	return &Regular{Nelx: nelx, Nely: nely, Nelz: nelz, H: h, ndim: ndim}
}

func (r *Regular) Ndim() int { return r.ndim }

func (r *Regular) Nne() int { return 1 << r.ndim }

func (r *Regular) layers() (nz int) {
	if r.ndim == 3 {
		return r.Nelz + 1
	}
	return 1
}

func (r *Regular) Nnode() int { return (r.Nelx + 1) * (r.Nely + 1) * r.layers() }

func (r *Regular) Nelem() int {
	if r.ndim == 3 {
		return r.Nelx * r.Nely * r.Nelz
	}
	return r.Nelx * r.Nely
}

func (r *Regular) node(ix, iy, iz int) int {
	return iz*(r.Nelx+1)*(r.Nely+1) + iy*(r.Nelx+1) + ix
}

func (r *Regular) index(n int) (ix, iy, iz int) {
	var (
		nx, ny = r.Nelx + 1, r.Nely + 1
	)
	ix, iy, iz = n%nx, (n/nx)%ny, n/(nx*ny)
	return
}

// Coor returns the nodal coordinates [nnode, ndim].
func (r *Regular) Coor() (coor types.Array) {
	coor = types.NewArray(r.Nnode(), r.ndim)
	for n := 0; n < r.Nnode(); n++ {
		ix, iy, iz := r.index(n)
		coor.Set(float64(ix)*r.H, n, 0)
		coor.Set(float64(iy)*r.H, n, 1)
		if r.ndim == 3 {
			coor.Set(float64(iz)*r.H, n, 2)
		}
	}
	return
}

// Conn returns the connectivity [nelem, nne].
func (r *Regular) Conn() (conn types.IntArray) {
	var (
		nelz = 1
		row  = 0
	)
	if r.ndim == 3 {
		nelz = r.Nelz
	}
	conn = types.NewIntArray(r.Nelem(), r.Nne())
	for ez := 0; ez < nelz; ez++ {
		for ey := 0; ey < r.Nely; ey++ {
			for ex := 0; ex < r.Nelx; ex++ {
				c := conn.Row(row)
				c[0] = r.node(ex, ey, ez)
				c[1] = r.node(ex+1, ey, ez)
				c[2] = r.node(ex+1, ey+1, ez)
				c[3] = r.node(ex, ey+1, ez)
				if r.ndim == 3 {
					for m := 0; m < 4; m++ {
						c[4+m] = c[m] + (r.Nelx+1)*(r.Nely+1)
					}
				}
				row++
			}
		}
	}
	return
}

// Dofs numbers the DOFs node by node, dofs(n,i) = n*ndim + i.
func (r *Regular) Dofs() (dofs types.IntArray) {
	dofs = types.NewIntArray(r.Nnode(), r.ndim)
	for n := range dofs.Data {
		dofs.Data[n] = n
	}
	return
}

// DofsPeriodic ties every node on a maximum face to its partner on the opposite
// minimum face, then numbers the DOFs of the independent nodes contiguously.
func (r *Regular) DofsPeriodic() (dofs types.IntArray) {
	var (
		rank = make([]int, r.Nnode())
		next = 0
	)
	for n := range rank {
		ix, iy, iz := r.index(n)
		if ix == r.Nelx || iy == r.Nely || (r.ndim == 3 && iz == r.Nelz) {
			rank[n] = -1
			continue
		}
		rank[n] = next
		next++
	}
	dofs = types.NewIntArray(r.Nnode(), r.ndim)
	for n := range rank {
		ix, iy, iz := r.index(n)
		ix, iy = ix%r.Nelx, iy%r.Nely
		if r.ndim == 3 {
			iz = iz % r.Nelz
		}
		independent := rank[r.node(ix, iy, iz)]
		for i := 0; i < r.ndim; i++ {
			dofs.Set(n, i, independent*r.ndim+i)
		}
	}
	return
}

func (r *Regular) nodesWhere(keep func(ix, iy, iz int) bool) (nodes []int) {
	nodes = []int{}
	for n := 0; n < r.Nnode(); n++ {
		if keep(r.index(n)) {
			nodes = append(nodes, n)
		}
	}
	return
}

func (r *Regular) NodesLeft() []int {
	return r.nodesWhere(func(ix, iy, iz int) bool { return ix == 0 })
}

func (r *Regular) NodesRight() []int {
	return r.nodesWhere(func(ix, iy, iz int) bool { return ix == r.Nelx })
}

func (r *Regular) NodesBottom() []int {
	return r.nodesWhere(func(ix, iy, iz int) bool { return iy == 0 })
}

func (r *Regular) NodesTop() []int {
	return r.nodesWhere(func(ix, iy, iz int) bool { return iy == r.Nely })
}

// NodesFront and NodesBack are empty for a 2D mesh.
func (r *Regular) NodesFront() []int {
	return r.nodesWhere(func(ix, iy, iz int) bool { return r.ndim == 3 && iz == 0 })
}

func (r *Regular) NodesBack() []int {
	return r.nodesWhere(func(ix, iy, iz int) bool { return r.ndim == 3 && iz == r.Nelz })
}

// NodesBoundary returns every node on the outer surface, ascending.
func (r *Regular) NodesBoundary() []int {
	return r.nodesWhere(func(ix, iy, iz int) bool {
		return ix == 0 || ix == r.Nelx || iy == 0 || iy == r.Nely ||
			(r.ndim == 3 && (iz == 0 || iz == r.Nelz))
	})
}

// NodesInterior is the complement of NodesBoundary.
func (r *Regular) NodesInterior() []int {
	return r.nodesWhere(func(ix, iy, iz int) bool {
		return ix != 0 && ix != r.Nelx && iy != 0 && iy != r.Nely &&
			(r.ndim == 2 || (iz != 0 && iz != r.Nelz))
	})
}

// DofsOf lists the DOFs of the given nodes, node-major.
func DofsOf(dofs types.IntArray, nodes []int) (ids []int) {
	ids = make([]int, 0, len(nodes)*dofs.Nc)
	for _, n := range nodes {
		ids = append(ids, dofs.Row(n)...)
	}
	return
}

// Coordination counts the (element, local node) pairs that reference every node.
func Coordination(conn types.IntArray, nnode int) (count []int) {
	count = make([]int, nnode)
	for _, n := range conn.Data {
		if n < 0 || n >= nnode {
			panic(fmt.Errorf("connectivity value %d out of range [0,%d)", n, nnode))
		}
		count[n]++
	}
	return
}
