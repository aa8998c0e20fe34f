package vector

import (
	"github.com/notargets/fekernel/types"
)

// AsDofsNode gathers a nodevec onto the DOFs.
func (v *Vector) AsDofsNode(nodevec types.Array) (dofval []float64) {
	v.checkNodevec(nodevec)
	dofval = v.AllocateDofval()
	v.pmDof.Run(func(bn, kMin, kMax int) {
		for d := kMin; d < kMax; d++ {
			dofval[d] = nodevec.Data[v.dofNodeOwner[d]]
		}
	})
	return
}

// AsDofsElem gathers an elemvec onto the DOFs. DOFs of nodes outside the
// connectivity stay zero.
func (v *Vector) AsDofsElem(elemvec types.Array) (dofval []float64) {
	v.checkElemvec(elemvec)
	dofval = v.AllocateDofval()
	v.pmDof.Run(func(bn, kMin, kMax int) {
		for d := kMin; d < kMax; d++ {
			if src := v.dofElemOwner[d]; src >= 0 {
				dofval[d] = elemvec.Data[src]
			}
		}
	})
	return
}

// AsDofsParts merges the unknown and prescribed parts into a full dofval.
func (v *Vector) AsDofsParts(dofvalU, dofvalP []float64) (dofval []float64) {
	v.checkParts(dofvalU, dofvalP)
	dofval = v.AllocateDofval()
	for j, d := range v.iiu {
		dofval[d] = dofvalU[j]
	}
	for j, d := range v.iip {
		dofval[d] = dofvalP[j]
	}
	return
}

func (v *Vector) AsDofsU(dofval []float64) (dofvalU []float64) {
	v.checkDofval(dofval)
	dofvalU = v.AllocateDofvalU()
	v.pmDofsU.Run(func(bn, kMin, kMax int) {
		for j := kMin; j < kMax; j++ {
			dofvalU[j] = dofval[v.iiu[j]]
		}
	})
	return
}

func (v *Vector) AsDofsP(dofval []float64) (dofvalP []float64) {
	v.checkDofval(dofval)
	dofvalP = v.AllocateDofvalP()
	for j, d := range v.iip {
		dofvalP[j] = dofval[d]
	}
	return
}

func (v *Vector) AsDofsUNode(nodevec types.Array) []float64 { return v.AsDofsU(v.AsDofsNode(nodevec)) }
func (v *Vector) AsDofsPNode(nodevec types.Array) []float64 { return v.AsDofsP(v.AsDofsNode(nodevec)) }
func (v *Vector) AsDofsUElem(elemvec types.Array) []float64 { return v.AsDofsU(v.AsDofsElem(elemvec)) }
func (v *Vector) AsDofsPElem(elemvec types.Array) []float64 { return v.AsDofsP(v.AsDofsElem(elemvec)) }

// AsNode scatters a dofval to the nodes, nodevec(n,i) = dofval(dofs(n,i)).
func (v *Vector) AsNode(dofval []float64) (nodevec types.Array) {
	v.checkDofval(dofval)
	nodevec = v.AllocateNodevec()
	v.pmNode.Run(func(bn, kMin, kMax int) {
		for n := kMin * v.ndim; n < kMax*v.ndim; n++ {
			nodevec.Data[n] = dofval[v.dofs.Data[n]]
		}
	})
	return
}

func (v *Vector) AsNodeParts(dofvalU, dofvalP []float64) (nodevec types.Array) {
	v.checkParts(dofvalU, dofvalP)
	nodevec = v.AllocateNodevec()
	v.pmNode.Run(func(bn, kMin, kMax int) {
		for n := kMin * v.ndim; n < kMax*v.ndim; n++ {
			if p := v.part.Data[n]; p < v.nnu {
				nodevec.Data[n] = dofvalU[p]
			} else {
				nodevec.Data[n] = dofvalP[p-v.nnu]
			}
		}
	})
	return
}

// AsNodeElem takes every node from the last element that holds it. Nodes outside
// the connectivity stay zero.
func (v *Vector) AsNodeElem(elemvec types.Array) (nodevec types.Array) {
	v.checkElemvec(elemvec)
	nodevec = v.AllocateNodevec()
	v.pmNode.Run(func(bn, kMin, kMax int) {
		for n := kMin; n < kMax; n++ {
			if em := v.nodeElemOwner[n]; em >= 0 {
				copy(nodevec.Data[n*v.ndim:(n+1)*v.ndim], elemvec.Data[em*v.ndim:(em+1)*v.ndim])
			}
		}
	})
	return
}

// AsElement scatters a dofval to the element nodes.
func (v *Vector) AsElement(dofval []float64) (elemvec types.Array) {
	v.checkDofval(dofval)
	elemvec = v.AllocateElemvec()
	v.forElemNodes(func(em, n int) {
		for i := 0; i < v.ndim; i++ {
			elemvec.Data[em*v.ndim+i] = dofval[v.dofs.Data[n*v.ndim+i]]
		}
	})
	return
}

func (v *Vector) AsElementParts(dofvalU, dofvalP []float64) (elemvec types.Array) {
	v.checkParts(dofvalU, dofvalP)
	elemvec = v.AllocateElemvec()
	v.forElemNodes(func(em, n int) {
		for i := 0; i < v.ndim; i++ {
			if p := v.part.Data[n*v.ndim+i]; p < v.nnu {
				elemvec.Data[em*v.ndim+i] = dofvalU[p]
			} else {
				elemvec.Data[em*v.ndim+i] = dofvalP[p-v.nnu]
			}
		}
	})
	return
}

func (v *Vector) AsElementNode(nodevec types.Array) (elemvec types.Array) {
	v.checkNodevec(nodevec)
	elemvec = v.AllocateElemvec()
	v.forElemNodes(func(em, n int) {
		copy(elemvec.Data[em*v.ndim:(em+1)*v.ndim], nodevec.Data[n*v.ndim:(n+1)*v.ndim])
	})
	return
}

// forElemNodes visits every (element, local node) pair in parallel over elements,
// passing the flat offset e*nne+m and the global node.
func (v *Vector) forElemNodes(fn func(em, n int)) {
	v.pmElem.Run(func(bn, kMin, kMax int) {
		for em := kMin * v.nne; em < kMax*v.nne; em++ {
			fn(em, v.conn.Data[em])
		}
	})
}

// AssembleDofsNode sums every node contribution onto its DOF.
func (v *Vector) AssembleDofsNode(nodevec types.Array) (dofval []float64) {
	v.checkNodevec(nodevec)
	return v.pmNode.Reduce(v.ndof, func(kMin, kMax int, acc []float64) {
		for n := kMin * v.ndim; n < kMax*v.ndim; n++ {
			acc[v.dofs.Data[n]] += nodevec.Data[n]
		}
	})
}

// AssembleDofsElem sums every element contribution onto its DOF.
func (v *Vector) AssembleDofsElem(elemvec types.Array) (dofval []float64) {
	v.checkElemvec(elemvec)
	return v.pmElem.Reduce(v.ndof, func(kMin, kMax int, acc []float64) {
		for em := kMin * v.nne; em < kMax*v.nne; em++ {
			n := v.conn.Data[em]
			for i := 0; i < v.ndim; i++ {
				acc[v.dofs.Data[n*v.ndim+i]] += elemvec.Data[em*v.ndim+i]
			}
		}
	})
}

// AssembleDofsUNode is the unknown part of AssembleDofsNode, indexed by partition position.
func (v *Vector) AssembleDofsUNode(nodevec types.Array) []float64 {
	return v.AsDofsU(v.AssembleDofsNode(nodevec))
}

func (v *Vector) AssembleDofsPNode(nodevec types.Array) []float64 {
	return v.AsDofsP(v.AssembleDofsNode(nodevec))
}

func (v *Vector) AssembleDofsUElem(elemvec types.Array) []float64 {
	return v.AsDofsU(v.AssembleDofsElem(elemvec))
}

func (v *Vector) AssembleDofsPElem(elemvec types.Array) []float64 {
	return v.AsDofsP(v.AssembleDofsElem(elemvec))
}

// AssembleNode sums the element contributions onto the nodes.
func (v *Vector) AssembleNode(elemvec types.Array) (nodevec types.Array) {
	v.checkElemvec(elemvec)
	acc := v.pmElem.Reduce(v.nnode*v.ndim, func(kMin, kMax int, acc []float64) {
		for em := kMin * v.nne; em < kMax*v.nne; em++ {
			n := v.conn.Data[em]
			for i := 0; i < v.ndim; i++ {
				acc[n*v.ndim+i] += elemvec.Data[em*v.ndim+i]
			}
		}
	})
	nodevec = types.NewArrayFrom(acc, v.nnode, v.ndim)
	return
}

// Copy returns a copy of src.
func (v *Vector) Copy(src types.Array) types.Array {
	v.checkNodevec(src)
	return src.Copy()
}

// CopyU returns dst with the entries of the unknown DOFs taken from src.
func (v *Vector) CopyU(src, dst types.Array) types.Array {
	return v.copyWhere(src, dst, func(p int) bool { return p < v.nnu })
}

// CopyP returns dst with the entries of the prescribed DOFs taken from src.
func (v *Vector) CopyP(src, dst types.Array) types.Array {
	return v.copyWhere(src, dst, func(p int) bool { return p >= v.nnu })
}

func (v *Vector) copyWhere(src, dst types.Array, take func(p int) bool) (R types.Array) {
	v.checkNodevec(src)
	v.checkNodevec(dst)
	R = dst.Copy()
	for n, p := range v.part.Data {
		if take(p) {
			R.Data[n] = src.Data[n]
		}
	}
	return
}
