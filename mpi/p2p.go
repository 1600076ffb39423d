package mpi

import "sync"

// message is a delivered payload waiting to be matched by a receive. Payloads
// are copied on send, so the sender may reuse its buffer immediately.
type message struct {
	commID int64
	src    int // communicator rank of the sender
	tag    int
	data   []float64
}

// mailbox is the per-world-rank inbox. Matching is by (commID, src, tag) in
// arrival order, which preserves MPI's per-pair ordering guarantee.
type mailbox struct {
	mu   sync.Mutex
	cond *sync.Cond
	q    []message
}

func newMailbox() *mailbox {
	b := &mailbox{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *mailbox) deliver(m message) {
	b.mu.Lock()
	b.q = append(b.q, m)
	b.cond.Broadcast()
	b.mu.Unlock()
}

// takeLocked removes and returns the first matching message; caller holds mu.
func (b *mailbox) takeLocked(commID int64, src, tag int) ([]float64, bool) {
	for i, m := range b.q {
		if m.commID == commID && m.src == src && m.tag == tag {
			b.q = append(b.q[:i], b.q[i+1:]...)
			return m.data, true
		}
	}
	return nil, false
}

// Request is the handle of a nonblocking operation.
type Request struct {
	recv bool
	done bool
	buf  []float64
	src  int
	tag  int
	comm *Comm
}

func (c *Comm) box() *mailbox { return c.world.boxes[c.WorldRank()] }

// Isend starts a nonblocking send of buf to dest with the given tag. The
// payload is copied out, so the request is complete on return.
func (c *Comm) Isend(buf []float64, dest, tag int) *Request {
	data := make([]float64, len(buf))
	copy(data, buf)
	c.world.boxes[c.WorldRankOf(dest)].deliver(message{
		commID: c.shared.id, src: c.rank, tag: tag, data: data,
	})
	return &Request{done: true, comm: c}
}

// Irecv starts a nonblocking receive into buf from src with the given tag.
func (c *Comm) Irecv(buf []float64, src, tag int) *Request {
	return &Request{recv: true, buf: buf, src: src, tag: tag, comm: c}
}

// tryCompleteLocked attempts to match a pending receive; caller holds the box lock.
func (r *Request) tryCompleteLocked(b *mailbox) bool {
	if r.done {
		return true
	}
	data, ok := b.takeLocked(r.comm.shared.id, r.src, r.tag)
	if !ok {
		return false
	}
	if len(data) > len(r.buf) {
		panic("mpi: receive buffer too small")
	}
	copy(r.buf, data)
	r.done = true
	return true
}

// Wait blocks until the request completes.
func (r *Request) Wait() {
	if r.done {
		return
	}
	b := r.comm.box()
	b.mu.Lock()
	for !r.tryCompleteLocked(b) {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// Waitall blocks until every request in reqs completes.
func Waitall(reqs []*Request) {
	for _, r := range reqs {
		if r != nil {
			r.Wait()
		}
	}
}

// Waitany blocks until one incomplete request in reqs completes and returns
// its index. It returns -1 when every request is already complete.
func Waitany(reqs []*Request) int {
	var box *mailbox
	for _, r := range reqs {
		if r != nil && !r.done {
			box = r.comm.box()
			break
		}
	}
	if box == nil {
		return -1
	}
	box.mu.Lock()
	defer box.mu.Unlock()
	for {
		for i, r := range reqs {
			if r == nil || r.done {
				continue
			}
			if !r.recv {
				r.done = true
				return i
			}
			if r.tryCompleteLocked(box) {
				return i
			}
		}
		box.cond.Wait()
	}
}

// Send is the blocking send.
func (c *Comm) Send(buf []float64, dest, tag int) { c.Isend(buf, dest, tag) }

// Recv is the blocking receive.
func (c *Comm) Recv(buf []float64, src, tag int) { c.Irecv(buf, src, tag).Wait() }

// SendInts and RecvInts move small integer payloads (topology metadata).
func (c *Comm) SendInts(v []int, dest, tag int) {
	buf := make([]float64, len(v))
	for i, x := range v {
		buf[i] = float64(x)
	}
	c.Send(buf, dest, tag)
}

func (c *Comm) RecvInts(v []int, src, tag int) {
	buf := make([]float64, len(v))
	c.Recv(buf, src, tag)
	for i := range v {
		v[i] = int(buf[i])
	}
}
