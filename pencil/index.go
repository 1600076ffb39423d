package pencil

// Index arithmetic in axis order: i0 runs along the fast axis, i1 along
// axis+1, i2 along axis+2 (mod 3). Offsets are in doubles.

// LocalIndexAO returns the memory offset of element (i0,i1,i2) given in axis
// order.
func (t *Topology) LocalIndexAO(i0, i1, i2 int) int {
	ax0 := t.axis
	ax1 := (ax0 + 1) % 3
	return t.nf * (i0 + t.nmem[ax0]*(i1+t.nmem[ax1]*i2))
}

// LocalIndexXYZ returns the memory offset of element (ix,iy,iz) given in
// physical dimension order.
func (t *Topology) LocalIndexXYZ(ix, iy, iz int) int {
	i := [3]int{ix, iy, iz}
	ax0 := t.axis
	return t.LocalIndexAO(i[ax0], i[(ax0+1)%3], i[(ax0+2)%3])
}

// localRegion returns this rank's owned element range in global coordinates,
// per physical dimension: [start, end).
func (t *Topology) localRegion() (start, end [3]int) {
	for id := 0; id < 3; id++ {
		start[id] = t.rankd[id] * t.nbyproc[id]
		end[id] = start[id] + t.nloc[id]
	}
	return
}

// regionOfRank returns the owned element range of an arbitrary rank of the
// topology, in global coordinates.
func (t *Topology) regionOfRank(rank int) (start, end [3]int) {
	var rankd [3]int
	ranksplit(rank, t.axproc, t.nproc, &rankd)
	for id := 0; id < 3; id++ {
		start[id] = rankd[id] * t.nbyproc[id]
		nloc := t.nbyproc[id]
		if rankd[id] == t.nproc[id]-1 {
			nloc = max(t.nbyproc[id], t.nglob[id]-t.nbyproc[id]*rankd[id])
		}
		end[id] = start[id] + nloc
	}
	return
}

// PencilNproc computes a process grid for a pencil topology with the fast
// axis dim: one process along dim, the others split as evenly as possible.
func PencilNproc(dim, commSize int) [3]int {
	n1 := 1
	for d := 1; d*d <= commSize; d++ {
		if commSize%d == 0 {
			n1 = d
		}
	}
	var nproc [3]int
	nproc[dim] = 1
	nproc[(dim+1)%3] = n1
	nproc[(dim+2)%3] = commSize / n1
	return nproc
}
