package pencil

import (
	"sync"

	"github.com/notargets/gopoisson/mpi"
	"github.com/notargets/gopoisson/types"
	"github.com/notargets/gopoisson/utils"
)

// Strategy selects how a SwitchTopo progresses its communication. The three
// strategies produce byte-identical results.
type Strategy int

const (
	// Persistent posts every send and receive, waits for all of them, then
	// shuffles. Both send and receive staging buffers are used.
	Persistent Strategy = iota
	// WaitAny posts all receives up front and shuffles each chunk as it
	// arrives, overlapping the network with the local reorder.
	WaitAny
	// Stream posts every send up front, then partitions the receive chunks
	// (one per peer rank) among a few goroutines, each waiting for and
	// unpacking its own share independently.
	Stream
)

// DefaultStreams is the goroutine count of the Stream strategy.
const DefaultStreams = 4

// SwitchTopo remaps a distributed array between two pencil topologies. The
// chunk lists and the layout of both sides are frozen at construction, so the
// remap stays valid whatever state the live Topology objects are toggled to
// afterwards.
type SwitchTopo struct {
	comm     *mpi.Comm
	strategy Strategy
	id       int // message tag, unique per concurrent remap on the communicator

	inView  Topology // snapshot of the input topology at construction
	outView Topology
	shift   [3]int

	i2oChunks []MemChunk // chunks to send forward, in input coordinates
	o2iChunks []MemChunk // chunks to receive forward, in output coordinates

	i2oBuf [][]float64
	o2iBuf [][]float64

	nstreams int
}

// NewSwitchTopo precomputes the remap between topoIn and topoOut. shift is
// the position of topoIn's origin inside topoOut (nonzero when a transform
// pads and the physical domain sits at an offset in the padded one). Both
// topologies must be on the same communicator and in the same real/complex
// state.
func NewSwitchTopo(topoIn, topoOut *Topology, shift [3]int, id int, strategy Strategy) *SwitchTopo {
	utils.Checkf(topoIn.comm.Size() == topoOut.comm.Size(),
		"switchtopo: communicator sizes differ: %d vs %d", topoIn.comm.Size(), topoOut.comm.Size())
	utils.Checkf(topoIn.nf == topoOut.nf,
		"switchtopo: the two topologies must both be real or both complex")
	s := &SwitchTopo{
		comm:     topoIn.comm,
		strategy: strategy,
		id:       id,
		inView:   *topoIn,
		outView:  *topoOut,
		shift:    shift,
		nstreams: DefaultStreams,
	}
	s.i2oChunks, s.o2iChunks = buildChunks(topoIn, topoOut, shift)
	s.i2oBuf = makeBuffers(s.i2oChunks, topoIn.nf)
	s.o2iBuf = makeBuffers(s.o2iChunks, topoOut.nf)
	return s
}

func makeBuffers(chunks []MemChunk, nf int) [][]float64 {
	bufs := make([][]float64, len(chunks))
	for i := range chunks {
		bufs[i] = make([]float64, chunks[i].Nelem()*nf)
	}
	return bufs
}

// BufMemSize returns the staging memory of the remap, in doubles.
func (s *SwitchTopo) BufMemSize() int {
	n := 0
	for i := range s.i2oChunks {
		n += s.i2oChunks[i].Nelem() * s.inView.nf
	}
	for i := range s.o2iChunks {
		n += s.o2iChunks[i].Nelem() * s.outView.nf
	}
	return n
}

// Execute remaps data in place: FORWARD goes input to output, BACKWARD swaps
// the roles. The regions of the destination layout not covered by a chunk
// (padding introduced by a nonzero shift) are left zeroed.
func (s *SwitchTopo) Execute(data []float64, dir types.SolveDirection) {
	sendChunks, recvChunks := s.i2oChunks, s.o2iChunks
	sendBuf, recvBuf := s.i2oBuf, s.o2iBuf
	sendView, recvView := &s.inView, &s.outView
	if dir == types.BACKWARD {
		sendChunks, recvChunks = s.o2iChunks, s.i2oChunks
		sendBuf, recvBuf = s.o2iBuf, s.i2oBuf
		sendView, recvView = &s.outView, &s.inView
	}

	switch s.strategy {
	case Persistent:
		s.executePersistent(data, sendChunks, recvChunks, sendBuf, recvBuf, sendView, recvView)
	case WaitAny:
		s.executeWaitany(data, sendChunks, recvChunks, sendBuf, recvBuf, sendView, recvView)
	case Stream:
		s.executeStream(data, sendChunks, recvChunks, sendBuf, recvBuf, sendView, recvView)
	}
}

// zeroDest clears the destination layout before the shuffle so that stale
// data from the source layout never survives in padded regions.
func (s *SwitchTopo) zeroDest(data []float64, recvView *Topology) {
	n := recvView.LocMemSize()
	for i := 0; i < n; i++ {
		data[i] = 0
	}
}

func (s *SwitchTopo) executePersistent(data []float64,
	sendChunks, recvChunks []MemChunk, sendBuf, recvBuf [][]float64,
	sendView, recvView *Topology) {

	reqs := make([]*mpi.Request, 0, len(sendChunks)+len(recvChunks))
	for i := range recvChunks {
		reqs = append(reqs, s.comm.Irecv(recvBuf[i], recvChunks[i].Peer, s.id))
	}
	for i := range sendChunks {
		pack(sendView, &sendChunks[i], data, sendBuf[i])
		reqs = append(reqs, s.comm.Isend(sendBuf[i], sendChunks[i].Peer, s.id))
	}
	mpi.Waitall(reqs)
	s.zeroDest(data, recvView)
	for i := range recvChunks {
		unpack(recvView, &recvChunks[i], recvBuf[i], data)
	}
}

func (s *SwitchTopo) executeWaitany(data []float64,
	sendChunks, recvChunks []MemChunk, sendBuf, recvBuf [][]float64,
	sendView, recvView *Topology) {

	recvReqs := make([]*mpi.Request, len(recvChunks))
	for i := range recvChunks {
		recvReqs[i] = s.comm.Irecv(recvBuf[i], recvChunks[i].Peer, s.id)
	}
	for i := range sendChunks {
		pack(sendView, &sendChunks[i], data, sendBuf[i])
		s.comm.Isend(sendBuf[i], sendChunks[i].Peer, s.id)
	}
	s.zeroDest(data, recvView)
	for range recvChunks {
		i := mpi.Waitany(recvReqs)
		unpack(recvView, &recvChunks[i], recvBuf[i], data)
	}
}

func (s *SwitchTopo) executeStream(data []float64,
	sendChunks, recvChunks []MemChunk, sendBuf, recvBuf [][]float64,
	sendView, recvView *Topology) {

	// pack and send everything first so the buffer can be cleared for the
	// destination layout
	for i := range sendChunks {
		pack(sendView, &sendChunks[i], data, sendBuf[i])
		s.comm.Isend(sendBuf[i], sendChunks[i].Peer, s.id)
	}
	s.zeroDest(data, recvView)

	ns := s.nstreams
	if ns > len(recvChunks) {
		ns = len(recvChunks)
	}
	if ns <= 1 {
		for i := range recvChunks {
			s.comm.Irecv(recvBuf[i], recvChunks[i].Peer, s.id).Wait()
			unpack(recvView, &recvChunks[i], recvBuf[i], data)
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(ns)
	for st := 0; st < ns; st++ {
		go func(st int) {
			defer wg.Done()
			for i := st; i < len(recvChunks); i += ns {
				s.comm.Irecv(recvBuf[i], recvChunks[i].Peer, s.id).Wait()
				unpack(recvView, &recvChunks[i], recvBuf[i], data)
			}
		}(st)
	}
	wg.Wait()
}

// Disp logs the remap layout.
func (s *SwitchTopo) Disp() {
	utils.Infof("switchtopo %d: %d send chunks, %d recv chunks, shift = %v",
		s.id, len(s.i2oChunks), len(s.o2iChunks), s.shift)
}
