package vector

import (
	"fmt"

	"github.com/notargets/fekernel/types"
	"github.com/notargets/fekernel/utils"
)

/*
Vector converts a field between its three representations

	dofval   [ndof]               one value per degree of freedom
	nodevec  [nnode, ndim]        one vector per node
	elemvec  [nelem, nne, ndim]   one vector per element node

and between the full dofval and its unknown [nnu] and prescribed [nnp] parts.

The As* conversions assign one source value to every target. When the DOF map
aliases several (node, dim) pairs to one DOF, the source that comes last in
sequential order wins: the highest node for a nodevec source, the highest
(element, local node) pair for an elemvec source. The Assemble* conversions sum
every contribution.
*/
type Vector struct {
	conn                           types.IntArray // [nelem, nne]
	dofs                           types.IntArray // [nnode, ndim]
	iiu, iip                       utils.Index
	part                           types.IntArray // [nnode, ndim], position in [iiu | iip]
	nelem, nne, nnode, ndim        int
	ndof, nnu, nnp                 int
	dofNodeOwner, dofElemOwner     []int // [ndof] flat source offset, -1 if none
	nodeElemOwner                  []int // [nnode] flat (e*nne+m) offset, -1 if none
	pmElem, pmNode, pmDof, pmDofsU *utils.PartitionMap
}

// NewVector is a Vector with every DOF unknown.
func NewVector(conn, dofs types.IntArray) *Vector {
	return NewPartitioned(conn, dofs, nil)
}

// NewPartitioned splits the DOFs into the prescribed ids iip, kept in the given
// order, and the remaining unknown ids iiu in ascending order.
func NewPartitioned(conn, dofs types.IntArray, iip []int) (v *Vector) {
	v = &Vector{
		conn:  conn.Copy(),
		dofs:  dofs.Copy(),
		nelem: conn.Nr,
		nne:   conn.Nc,
		nnode: dofs.Nr,
		ndim:  dofs.Nc,
		ndof:  dofs.Max() + 1,
		iip:   utils.Index(iip).Copy(),
	}
	if len(conn.Data) != 0 && (conn.Min() < 0 || conn.Max() >= v.nnode) {
		panic(fmt.Errorf("connectivity out of range: values in [%d,%d], nnode = %d", conn.Min(), conn.Max(), v.nnode))
	}
	if len(dofs.Data) != 0 && dofs.Min() < 0 {
		panic(fmt.Errorf("negative DOF id %d", dofs.Min()))
	}
	if len(utils.Index(dofs.Data).Unique()) != v.ndof {
		panic(fmt.Errorf("DOF ids do not cover [0,%d)", v.ndof))
	}
	for _, d := range v.iip {
		if d < 0 || d >= v.ndof {
			panic(fmt.Errorf("prescribed DOF %d out of range [0,%d)", d, v.ndof))
		}
	}
	if v.iip.HasDuplicates() {
		panic(fmt.Errorf("duplicate prescribed DOF ids"))
	}
	v.iiu = utils.Index(dofs.Data).SetDiff(v.iip)
	v.nnu, v.nnp = len(v.iiu), len(v.iip)
	if v.nnu+v.nnp != v.ndof {
		panic(fmt.Errorf("partition is not a cover: nnu = %d, nnp = %d, ndof = %d", v.nnu, v.nnp, v.ndof))
	}

	pos := make([]int, v.ndof)
	for j, d := range v.iiu {
		pos[d] = j
	}
	for j, d := range v.iip {
		pos[d] = v.nnu + j
	}
	v.part = types.NewIntArray(v.nnode, v.ndim)
	for n, d := range v.dofs.Data {
		v.part.Data[n] = pos[d]
	}

	// Owners are the last writers of a sequential scatter
	v.dofNodeOwner = filled(v.ndof, -1)
	for n, d := range v.dofs.Data {
		v.dofNodeOwner[d] = n
	}
	v.dofElemOwner = filled(v.ndof, -1)
	v.nodeElemOwner = filled(v.nnode, -1)
	for em, n := range v.conn.Data {
		v.nodeElemOwner[n] = em
		for i := 0; i < v.ndim; i++ {
			v.dofElemOwner[v.dofs.Data[n*v.ndim+i]] = em*v.ndim + i
		}
	}

	v.pmElem = utils.NewPartitionMapFor(v.nelem)
	v.pmNode = utils.NewPartitionMapFor(v.nnode)
	v.pmDof = utils.NewPartitionMapFor(v.ndof)
	v.pmDofsU = utils.NewPartitionMapFor(v.nnu)
	return
}

func filled(n, val int) (r []int) {
	r = make([]int, n)
	for i := range r {
		r[i] = val
	}
	return
}

func (v *Vector) Nelem() int { return v.nelem }
func (v *Vector) Nne() int   { return v.nne }
func (v *Vector) Nnode() int { return v.nnode }
func (v *Vector) Ndim() int  { return v.ndim }
func (v *Vector) Ndof() int  { return v.ndof }
func (v *Vector) Nnu() int   { return v.nnu }
func (v *Vector) Nnp() int   { return v.nnp }

func (v *Vector) Conn() types.IntArray { return v.conn.Copy() }
func (v *Vector) Dofs() types.IntArray { return v.dofs.Copy() }
func (v *Vector) Iiu() utils.Index     { return v.iiu.Copy() }
func (v *Vector) Iip() utils.Index     { return v.iip.Copy() }

// Part returns the position of every (node, dim) pair in the [unknown | prescribed] ordering.
func (v *Vector) Part() types.IntArray { return v.part.Copy() }

func fillValue(val []float64) (f float64) {
	if len(val) != 0 {
		f = val[0]
	}
	return
}

func (v *Vector) AllocateDofval(val ...float64) []float64 {
	return types.NewArrayFilled(fillValue(val), v.ndof).Data
}

func (v *Vector) AllocateDofvalU(val ...float64) []float64 {
	return types.NewArrayFilled(fillValue(val), v.nnu).Data
}

func (v *Vector) AllocateDofvalP(val ...float64) []float64 {
	return types.NewArrayFilled(fillValue(val), v.nnp).Data
}

func (v *Vector) AllocateNodevec(val ...float64) types.Array {
	return types.NewArrayFilled(fillValue(val), v.nnode, v.ndim)
}

func (v *Vector) AllocateElemvec(val ...float64) types.Array {
	return types.NewArrayFilled(fillValue(val), v.nelem, v.nne, v.ndim)
}

func (v *Vector) AllocateElemmat(val ...float64) types.Array {
	return types.NewArrayFilled(fillValue(val), v.nelem, v.nne*v.ndim, v.nne*v.ndim)
}

func checkLen(name string, x []float64, n int) {
	if len(x) != n {
		panic(fmt.Errorf("length mismatch for \"%s\": have %d, want %d", name, len(x), n))
	}
}

func (v *Vector) checkDofval(dofval []float64) { checkLen("dofval", dofval, v.ndof) }

func (v *Vector) checkParts(dofvalU, dofvalP []float64) {
	checkLen("dofval_u", dofvalU, v.nnu)
	checkLen("dofval_p", dofvalP, v.nnp)
}

func (v *Vector) checkNodevec(nodevec types.Array) {
	nodevec.CheckShape("nodevec", v.nnode, v.ndim)
}

func (v *Vector) checkElemvec(elemvec types.Array) {
	elemvec.CheckShape("elemvec", v.nelem, v.nne, v.ndim)
}
