package plan

import (
	"math"
	"sync"

	"github.com/notargets/gopoisson/pencil"
	"github.com/notargets/gopoisson/types"
	"github.com/notargets/gopoisson/utils"
	"gonum.org/v1/gonum/dsp/fourier"
)

// executor holds the 1D transform state of one plan: the gonum transform
// object, the type-IV basis tables where needed, and the per-worker scratch.
type executor struct {
	kind      Kind
	nIn, nOut int // elements (complex elements for the complex kinds)

	qw   *fourier.QuarterWaveFFT
	dct1 *fourier.DCT
	fft  *fourier.FFT
	cfft *fourier.CmplxFFT
	tab4 [][]float64 // type-IV cos/sin tables, tab4[k][i]

	scratch sync.Pool
}

type scratchBuf struct {
	ra, rb []float64
	ca, cb []complex128
}

func newExecutor(kind Kind, nIn, nOut int) *executor {
	e := &executor{kind: kind, nIn: nIn, nOut: nOut}
	switch kind {
	case KindDCT2, KindDCT3, KindDST2, KindDST3:
		e.qw = fourier.NewQuarterWaveFFT(nIn)
	case KindDCT1:
		e.dct1 = fourier.NewDCT(nIn)
	case KindDCT4, KindDST4:
		e.tab4 = typeIVTable(kind, nIn)
	case KindR2C, KindC2R:
		// nIn is the real sequence length on both signs
		e.fft = fourier.NewFFT(nIn)
	case KindC2CFwd, KindC2CBwd:
		e.cfft = fourier.NewCmplxFFT(nIn)
	}
	n := maxInt(nIn, nOut)
	e.scratch.New = func() interface{} {
		return &scratchBuf{
			ra: make([]float64, 2*n+2),
			rb: make([]float64, 2*n+2),
			ca: make([]complex128, n+1),
			cb: make([]complex128, n+1),
		}
	}
	return e
}

// typeIVTable precomputes the DCT-IV / DST-IV basis,
//
//	DCT-IV: X_k = 2 sum_i x_i cos(pi (2i+1)(2k+1) / (4n))
//	DST-IV: X_k = 2 sum_i x_i sin(pi (2i+1)(2k+1) / (4n))
//
// which are their own inverses up to the scale 2n.
// TODO: evaluate through a half-length complex FFT instead of the direct sum.
func typeIVTable(kind Kind, n int) [][]float64 {
	tab := make([][]float64, n)
	f := math.Pi / float64(4*n)
	for k := 0; k < n; k++ {
		tab[k] = make([]float64, n)
		for i := 0; i < n; i++ {
			arg := f * float64((2*i+1)*(2*k+1))
			if kind == KindDCT4 {
				tab[k][i] = 2.0 * math.Cos(arg)
			} else {
				tab[k][i] = 2.0 * math.Sin(arg)
			}
		}
	}
	return tab
}

// run1d executes the transform on one pencil: it holds nIn elements from off
// with the given stride (in doubles, 1 for a real sequence, 2 for one component of a
// complex pair); the result overwrites the pencil. For the complex kinds the
// pencil is interleaved and stride must be 2 with off 0.
func (e *executor) run1d(pencil []float64, off, stride int) {
	sb := e.scratch.Get().(*scratchBuf)
	defer e.scratch.Put(sb)

	switch e.kind {
	case KindDCT2, KindDCT3, KindDST2, KindDST3, KindDCT1, KindDCT4, KindDST4:
		src := sb.ra[:e.nIn]
		dst := sb.rb[:e.nOut]
		for i := 0; i < e.nIn; i++ {
			src[i] = pencil[off+i*stride]
		}
		switch e.kind {
		case KindDCT2:
			e.qw.CosSequence(dst, src)
		case KindDCT3:
			e.qw.CosCoefficients(dst, src)
		case KindDST2:
			e.qw.SinSequence(dst, src)
		case KindDST3:
			e.qw.SinCoefficients(dst, src)
		case KindDCT1:
			e.dct1.Transform(dst, src)
		case KindDCT4, KindDST4:
			for k := range dst {
				acc := 0.0
				row := e.tab4[k]
				for i, x := range src {
					acc += row[i] * x
				}
				dst[k] = acc
			}
		}
		for i := 0; i < e.nOut; i++ {
			pencil[off+i*stride] = dst[i]
		}

	case KindR2C:
		src := sb.ra[:e.nIn]
		for i := range src {
			src[i] = pencil[i]
		}
		coeff := sb.ca[:e.nIn/2+1]
		e.fft.Coefficients(coeff, src)
		for i, c := range coeff {
			pencil[2*i] = real(c)
			pencil[2*i+1] = imag(c)
		}

	case KindC2R:
		m := e.nIn // real output length
		coeff := sb.ca[:m/2+1]
		for i := range coeff {
			coeff[i] = complex(pencil[2*i], pencil[2*i+1])
		}
		dst := sb.ra[:m]
		e.fft.Sequence(dst, coeff)
		copy(pencil[:m], dst)
		for i := m; i < len(pencil); i++ {
			pencil[i] = 0
		}

	case KindC2CFwd, KindC2CBwd:
		src := sb.ca[:e.nIn]
		for i := range src {
			src[i] = complex(pencil[2*i], pencil[2*i+1])
		}
		dst := sb.cb[:e.nOut]
		if e.kind == KindC2CFwd {
			e.cfft.Coefficients(dst, src)
		} else {
			e.cfft.Sequence(dst, src)
		}
		for i, c := range dst {
			pencil[2*i] = real(c)
			pencil[2*i+1] = imag(c)
		}
	}
}

// Allocate builds the executor of the plan for the given topology. The
// topology must hold the plan's direction as its fast axis.
func (p *PlanDim) Allocate(topo *pencil.Topology) {
	utils.Checkf(topo.Axis() == p.dimID,
		"plan dim %d allocated on a topology with axis %d", p.dimID, topo.Axis())
	if p.kind == KindNone {
		return
	}
	p.ex = newExecutor(p.kind, p.nIn, p.nOut)
}

// Execute runs the transform of the plan over every pencil of the local
// block, in place. The topology must be in the state the data is in:
// pre-transform for a forward plan, post-transform for a backward one.
func (p *PlanDim) Execute(topo *pencil.Topology, data []float64) {
	if p.kind == KindNone {
		return
	}
	utils.Checkf(p.ex != nil, "plan dim %d executed before Allocate", p.dimID)
	utils.Checkf(topo.Axis() == p.dimID,
		"plan dim %d executed on a topology with axis %d", p.dimID, topo.Axis())

	ax0 := topo.Axis()
	ax1 := (ax0 + 1) % 3
	ax2 := (ax0 + 2) % 3
	n1, n2 := topo.Nloc(ax1), topo.Nloc(ax2)
	rowLen := topo.Nmem(ax0) * topo.Nf()

	realOnComplex := topo.Nf() == 2 && realKind(p.kind)

	work := func(i2lo, i2hi int) {
		for i2 := i2lo; i2 < i2hi; i2++ {
			for i1 := 0; i1 < n1; i1++ {
				id := topo.LocalIndexAO(0, i1, i2)
				row := data[id : id+rowLen]
				if realOnComplex {
					// a real-to-real transform on interleaved complex data
					// runs on the real and imaginary sequences independently
					p.executePencil(row, 0, 2)
					p.executePencil(row, 1, 2)
				} else if topo.Nf() == 2 {
					p.executePencil(row, 0, 2)
				} else {
					p.executePencil(row, 0, 1)
				}
			}
		}
	}

	nw := utils.NumThreads()
	if nw <= 1 || n2 < 2*nw {
		work(0, n2)
		return
	}
	var wg sync.WaitGroup
	chunk := (n2 + nw - 1) / nw
	for w := 0; w < nw; w++ {
		lo := w * chunk
		hi := minInt(lo+chunk, n2)
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			work(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

// executePencil applies reversal, correction and the raw transform to one
// strided sequence of the pencil, in the order demanded by the plan sign.
func (p *PlanDim) executePencil(row []float64, off, stride int) {
	if p.sign == types.FORWARD {
		if p.reversed {
			reverse(row, off, stride, p.nIn)
		}
		p.ex.run1d(row, off, stride)
		applyForwardCorrection(p.corrtype, row, off, stride, p.nOut)
	} else {
		applyBackwardCorrection(p.corrtype, row, off, stride, p.nIn)
		p.ex.run1d(row, off, stride)
		if p.reversed {
			reverse(row, off, stride, p.nOut)
		}
	}
}

// realKind reports whether the kind transforms a real sequence.
func realKind(k Kind) bool {
	switch k {
	case KindDCT1, KindDCT2, KindDCT3, KindDST2, KindDST3, KindDCT4, KindDST4:
		return true
	}
	return false
}

func reverse(row []float64, off, stride, n int) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		a, b := off+i*stride, off+j*stride
		row[a], row[b] = row[b], row[a]
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
