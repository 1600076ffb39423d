package pencil

// MemChunk is a contiguous 3D block exchanged between one source and one
// target rank when remapping between two topologies. Coordinates are global
// element indices expressed in the coordinate system of the side that owns
// the chunk (send chunks in the input topology, receive chunks in the output
// topology).
type MemChunk struct {
	Peer       int // communicator rank of the other side
	Start, End [3]int
}

// Nelem is the number of elements of the chunk.
func (c *MemChunk) Nelem() int {
	return (c.End[0] - c.Start[0]) * (c.End[1] - c.Start[1]) * (c.End[2] - c.Start[2])
}

// buildChunks computes, for the calling rank, the chunks to send from topo
// `from` and the chunks to receive into topo `to`. shift is the position of
// from's global origin inside to: an element at g in `from` sits at g+shift
// in `to`. Both lists are ordered by peer rank, so the two sides enumerate
// the same chunk pairs in the same order.
func buildChunks(from, to *Topology, shift [3]int) (send, recv []MemChunk) {
	myStart, myEnd := from.localRegion()
	for q := 0; q < to.comm.Size(); q++ {
		qs, qe := to.regionOfRank(q)
		var c MemChunk
		c.Peer = q
		empty := false
		for d := 0; d < 3; d++ {
			lo := max(myStart[d], qs[d]-shift[d])
			hi := min(myEnd[d], qe[d]-shift[d])
			if hi <= lo {
				empty = true
				break
			}
			c.Start[d] = lo
			c.End[d] = hi
		}
		if !empty {
			send = append(send, c)
		}
	}
	myStart, myEnd = to.localRegion()
	for p := 0; p < from.comm.Size(); p++ {
		ps, pe := from.regionOfRank(p)
		var c MemChunk
		c.Peer = p
		empty := false
		for d := 0; d < 3; d++ {
			lo := max(myStart[d], ps[d]+shift[d])
			hi := min(myEnd[d], pe[d]+shift[d])
			if hi <= lo {
				empty = true
				break
			}
			c.Start[d] = lo
			c.End[d] = hi
		}
		if !empty {
			recv = append(recv, c)
		}
	}
	return
}

// pack copies the chunk out of the local block of view into buf, iterating
// the chunk in global dimension order (dimension 0 fastest). The same order
// is used by unpack on the receiving side, whatever the two fast axes are.
func pack(view *Topology, c *MemChunk, data, buf []float64) {
	var istart [3]int
	view.IstartGlob(&istart)
	nf := view.nf
	k := 0
	for i2 := c.Start[2]; i2 < c.End[2]; i2++ {
		for i1 := c.Start[1]; i1 < c.End[1]; i1++ {
			id := view.LocalIndexXYZ(c.Start[0]-istart[0], i1-istart[1], i2-istart[2])
			stride := view.strideXYZ(0)
			for i0 := c.Start[0]; i0 < c.End[0]; i0++ {
				for f := 0; f < nf; f++ {
					buf[k] = data[id+f]
					k++
				}
				id += stride
			}
		}
	}
}

// unpack is the inverse of pack on the destination side.
func unpack(view *Topology, c *MemChunk, buf, data []float64) {
	var istart [3]int
	view.IstartGlob(&istart)
	nf := view.nf
	k := 0
	for i2 := c.Start[2]; i2 < c.End[2]; i2++ {
		for i1 := c.Start[1]; i1 < c.End[1]; i1++ {
			id := view.LocalIndexXYZ(c.Start[0]-istart[0], i1-istart[1], i2-istart[2])
			stride := view.strideXYZ(0)
			for i0 := c.Start[0]; i0 < c.End[0]; i0++ {
				for f := 0; f < nf; f++ {
					data[id+f] = buf[k]
					k++
				}
				id += stride
			}
		}
	}
}

// strideXYZ returns the memory stride (in doubles) of one step along the
// physical dimension dim.
func (t *Topology) strideXYZ(dim int) int {
	ax0 := t.axis
	switch dim {
	case ax0:
		return t.nf
	case (ax0 + 1) % 3:
		return t.nf * t.nmem[ax0]
	default:
		return t.nf * t.nmem[ax0] * t.nmem[(ax0+1)%3]
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
