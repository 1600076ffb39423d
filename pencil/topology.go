// Package pencil implements the distributed pencil decomposition of a 3D
// Cartesian grid: the Topology describing one decomposition, and the
// SwitchTopo engine that remaps a distributed array between two of them.
package pencil

import (
	"fmt"

	"github.com/notargets/gopoisson/mpi"
	"github.com/notargets/gopoisson/utils"
)

// Topology describes one pencil decomposition: the global size, the process
// grid, this rank's share of it, and the memory layout of the local block.
// The direction `axis` is fully local and contiguous in memory (the fast
// axis). Sizes are in elements; an element is nf doubles (nf=2 when the
// topology carries interleaved complex data).
type Topology struct {
	comm *mpi.Comm

	axis      int
	nf        int
	alignment int

	nglob   [3]int
	nproc   [3]int
	axproc  [3]int
	rankd   [3]int
	nbyproc [3]int
	nloc    [3]int
	nmem    [3]int
}

// NewTopology builds the topology of the calling rank.
//
// axproc gives the order in which ranks are split across the dimensions; nil
// means (0,1,2). alignment is the byte alignment wanted for the start of
// every pencil; the memory extent along axis is padded up accordingly.
func NewTopology(comm *mpi.Comm, axis int, nglob, nproc [3]int, isComplex bool,
	axproc *[3]int, alignment int) (*Topology, error) {

	if nproc[0]*nproc[1]*nproc[2] != comm.Size() {
		return nil, fmt.Errorf("pencil: nproc %v does not match the communicator size %d", nproc, comm.Size())
	}
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("pencil: invalid axis %d", axis)
	}
	t := &Topology{comm: comm, axis: axis, alignment: alignment, nf: 1}
	if isComplex {
		t.nf = 2
	}
	if alignment%(t.nf*8) != 0 {
		return nil, fmt.Errorf("pencil: alignment %d is not a multiple of %d bytes", alignment, t.nf*8)
	}
	for id := 0; id < 3; id++ {
		t.nglob[id] = nglob[id]
		t.nproc[id] = nproc[id]
		if axproc != nil {
			t.axproc[id] = axproc[id]
		} else {
			t.axproc[id] = id
		}
	}
	ranksplit(comm.Rank(), t.axproc, t.nproc, &t.rankd)
	t.computeSizes()
	utils.Infof("topology: axis = %d, nf = %d, nloc = %v, nmem = %v", t.axis, t.nf, t.nloc, t.nmem)
	return t, nil
}

// computeSizes fills nbyproc, nloc and nmem from nglob, nproc and rankd. The
// last rank of a direction absorbs the remainder; the fast axis is padded so
// that every pencil starts aligned.
func (t *Topology) computeSizes() {
	for id := 0; id < 3; id++ {
		t.nbyproc[id] = t.nglob[id] / t.nproc[id]
		if t.rankd[id] < t.nproc[id]-1 {
			t.nloc[id] = t.nbyproc[id]
		} else {
			t.nloc[id] = max(t.nbyproc[id], t.nglob[id]-t.nbyproc[id]*t.rankd[id])
		}
		t.nmem[id] = t.nloc[id]
		if id == t.axis {
			bytes := t.nloc[id] * t.nf * 8
			pad := (utils.AlignUp(bytes, t.alignment) - bytes) / 8
			t.nmem[id] += pad / t.nf
		}
	}
}

// ranksplit decomposes a linear rank into grid coordinates, splitting in the
// order given by axproc.
func ranksplit(rank int, axproc, nproc [3]int, rankd *[3]int) {
	ax0, ax1, ax2 := axproc[0], axproc[1], axproc[2]
	rankd[ax0] = rank % nproc[ax0]
	rankd[ax1] = (rank % (nproc[ax0] * nproc[ax1])) / nproc[ax0]
	rankd[ax2] = rank / (nproc[ax0] * nproc[ax1])
}

// rankindex is the inverse of ranksplit.
func rankindex(rankd, axproc, nproc [3]int) int {
	ax0, ax1, ax2 := axproc[0], axproc[1], axproc[2]
	return rankd[ax0] + nproc[ax0]*(rankd[ax1]+nproc[ax1]*rankd[ax2])
}

func (t *Topology) Comm() *mpi.Comm { return t.comm }
func (t *Topology) Axis() int       { return t.axis }
func (t *Topology) Nf() int         { return t.nf }
func (t *Topology) IsComplex() bool { return t.nf == 2 }

func (t *Topology) Nglob(id int) int { return t.nglob[id] }
func (t *Topology) Nproc(id int) int { return t.nproc[id] }
func (t *Topology) Nloc(id int) int  { return t.nloc[id] }
func (t *Topology) Nmem(id int) int  { return t.nmem[id] }
func (t *Topology) Rankd(id int) int { return t.rankd[id] }

// IstartGlob returns the global index of this rank's first element per
// direction.
func (t *Topology) IstartGlob(istart *[3]int) {
	for id := 0; id < 3; id++ {
		istart[id] = t.rankd[id] * t.nbyproc[id]
	}
}

// LocSize is the number of local elements.
func (t *Topology) LocSize() int {
	return t.nloc[0] * t.nloc[1] * t.nloc[2]
}

// LocMemSize is the number of doubles of local memory, padding included.
func (t *Topology) LocMemSize() int {
	return t.nmem[0] * t.nmem[1] * t.nmem[2] * t.nf
}

// SwitchToComplex reinterprets pairs of reals along the fast axis as complex
// elements. The memory footprint is unchanged.
func (t *Topology) SwitchToComplex() {
	if t.nf == 2 {
		return
	}
	utils.Checkf(t.nloc[t.axis]%2 == 0 && t.nmem[t.axis]%2 == 0 && t.nglob[t.axis]%2 == 0,
		"cannot switch to complex: odd size %d along axis %d", t.nglob[t.axis], t.axis)
	t.nf = 2
	t.nglob[t.axis] /= 2
	t.nbyproc[t.axis] /= 2
	t.nloc[t.axis] /= 2
	t.nmem[t.axis] /= 2
}

// SwitchToReal reinterprets complex elements along the fast axis as pairs of
// reals.
func (t *Topology) SwitchToReal() {
	if t.nf == 1 {
		return
	}
	t.nf = 1
	t.nglob[t.axis] *= 2
	t.nbyproc[t.axis] *= 2
	t.nloc[t.axis] *= 2
	t.nmem[t.axis] *= 2
}

// ChangeComm moves the topology onto a new communicator: the rank this
// process gets in newComm takes over the grid coordinates of the rank that
// held that id in the old communicator.
func (t *Topology) ChangeComm(newComm *mpi.Comm) error {
	curRank := t.comm.Rank()
	fromRank := newComm.Rank() // I will be this rank: receive its coordinates
	toRank := newComm.TranslateRank(curRank, t.comm)
	if toRank < 0 {
		return fmt.Errorf("pencil: no correspondence between the old and new communicator")
	}
	send := []int{t.rankd[0], t.rankd[1], t.rankd[2]}
	recv := make([]int, 3)
	t.comm.SendInts(send, toRank, 0)
	t.comm.RecvInts(recv, fromRank, 0)
	copy(t.rankd[:], recv)
	t.computeSizes()
	t.comm = newComm
	return nil
}

// Disp logs the topology.
func (t *Topology) Disp() {
	utils.Infof("------------------------------------------")
	utils.Infof("## topology on rank %d/%d", t.comm.Rank(), t.comm.Size())
	utils.Infof(" - axis = %d, isComplex = %v", t.axis, t.nf == 2)
	utils.Infof(" - nglob = %v, nproc = %v", t.nglob, t.nproc)
	utils.Infof(" - nloc = %v, nmem = %v", t.nloc, t.nmem)
	utils.Infof(" - rankd = %v, nbyproc = %v, axproc = %v", t.rankd, t.nbyproc, t.axproc)
	utils.Infof("------------------------------------------")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
