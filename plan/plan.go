package plan

import (
	"fmt"
	"math"

	"github.com/notargets/gopoisson/types"
	"github.com/notargets/gopoisson/utils"
)

// Kind is the 1D transform bound to a plan, one per (category, sign,
// complex-state) combination.
type Kind int

const (
	KindNone Kind = iota
	KindDCT2      // forward cosine, cell-centered
	KindDCT3      // backward cosine, cell-centered
	KindDST2      // forward sine, cell-centered
	KindDST3      // backward sine, cell-centered
	KindDCT4      // mixed even/odd pair, self-inverse
	KindDST4      // mixed odd/even pair, self-inverse
	KindDCT1      // node-centered cosine, Green along a symmetric-unbounded direction
	KindR2C       // forward real-to-complex DFT
	KindC2R       // backward complex-to-real DFT
	KindC2CFwd    // forward complex DFT
	KindC2CBwd    // backward complex DFT
)

// Correction is the post-step applied around the raw transform, decided once
// at plan construction so the inner loops stay branch-free.
type Correction int

const (
	CorrNone Correction = iota
	// CorrDCT zeroes the flip-flop (Nyquist) bin on the forward transform.
	CorrDCT
	// CorrDST shifts the forward output up by one and zeroes index 0, so
	// that array index i holds mode i; the backward pass shifts back before
	// transforming.
	CorrDST
	// CorrNDST is CorrDST followed by a global negation. Reserved for
	// node-centered sine conventions; the cell-centered kinds used here
	// never select it.
	CorrNDST
)

// PlanDim is the descriptor of a single-direction transform: the boundary
// condition pair, the family derived from it, the sizing computed during the
// dry run, and the normalization and wave-number factors.
type PlanDim struct {
	dimID   int
	sign    types.SolveDirection
	isGreen bool
	bc      [2]types.BoundaryType

	category Category
	typeSum  int
	h, l     float64

	// set by Init
	nIn, nOut  int // elements given to / produced by the transform
	fieldstart int
	symstart   float64
	normfact   float64
	volfact    float64
	kfact      float64
	koffset    float64
	imult      bool
	isr2c      bool // this plan is the one that introduces complexity
	isSpectral bool // Green handled spectrally along this direction
	ignoreMode bool // Green carries one extra mode that the field never sees
	reversed   bool // symmetry sits on the right boundary: run reversed
	corrtype   Correction
	kind       Kind

	ex *executor
}

// NewPlanDim builds the descriptor of direction dimID. h and L are the grid
// spacing and domain length per direction; sign is FORWARD or BACKWARD;
// isGreen marks the plans of the Green pipeline (always forward).
func NewPlanDim(dimID int, h, L [3]float64, bc [2]types.BoundaryType,
	sign types.SolveDirection, isGreen bool) (*PlanDim, error) {

	for _, b := range bc {
		if !b.Valid() {
			return nil, fmt.Errorf("plan: invalid boundary condition %d on direction %d", b, dimID)
		}
	}
	if (bc[0] == types.PER) != (bc[1] == types.PER) {
		return nil, fmt.Errorf("plan: a periodic condition must be periodic on both sides of direction %d", dimID)
	}
	if (bc[0] == types.NONE) != (bc[1] == types.NONE) {
		return nil, fmt.Errorf("plan: an empty condition must be empty on both sides of direction %d", dimID)
	}
	p := &PlanDim{
		dimID:   dimID,
		sign:    sign,
		isGreen: isGreen,
		bc:      bc,
		typeSum: BcToType(bc),
		h:       h[dimID],
		l:       L[dimID],
	}
	p.category = categoryOf(bc)
	return p, nil
}

// Init performs the dry-run step of the plan: given the current tentative
// size and complex state of the data, it derives the transform sizing, the
// normalization and the wave numbers. size is in elements of the current
// state (complex elements when isComplex).
func (p *PlanDim) Init(size [3]int, isComplex bool) {
	n := size[p.dimID]
	switch p.category {
	case SYMSYM:
		p.initSymSym(n, isComplex)
	case MIXUNB:
		p.initMixUnbounded(n, isComplex)
	case PERPER:
		p.initPeriodic(n, isComplex)
	case UNBUNB:
		p.initUnbounded(n, isComplex)
	case EMPTY:
		p.nIn, p.nOut = n, n
		p.normfact, p.volfact = 1.0, 1.0
		p.kind = KindNone
	}
	utils.Infof("plan dim %d (%s/%s, sign %d, green %v): n_in=%d n_out=%d fieldstart=%d symstart=%g normfact=%g volfact=%g kfact=%g koffset=%g",
		p.dimID, p.bc[0], p.bc[1], p.sign, p.isGreen, p.nIn, p.nOut, p.fieldstart, p.symstart, p.normfact, p.volfact, p.kfact, p.koffset)
}

func (p *PlanDim) initSymSym(n int, isComplex bool) {
	utils.Checkf(!isComplex || p.isGreen, "real-to-real transforms must run before any complex direction")
	p.nIn, p.nOut = n, n
	p.fieldstart = 0
	p.symstart = 0
	p.volfact = 1.0
	p.kfact = math.Pi / p.l
	p.isSpectral = true
	fwd := p.sign == types.FORWARD

	switch {
	case p.bc[0] == types.EVEN && p.bc[1] == types.EVEN:
		p.kind = pick(fwd, KindDCT2, KindDCT3)
		p.corrtype = CorrDCT
		p.normfact = 1.0 / float64(4*n)
	case p.bc[0] == types.ODD && p.bc[1] == types.ODD:
		p.kind = pick(fwd, KindDST2, KindDST3)
		p.corrtype = CorrDST
		p.imult = true
		p.normfact = 1.0 / float64(4*n)
	case p.bc[0] == types.EVEN && p.bc[1] == types.ODD:
		p.kind = KindDCT4
		p.koffset = 0.5
		p.normfact = 1.0 / float64(2*n)
	default: // ODD, EVEN
		p.kind = KindDST4
		p.koffset = 0.5
		p.imult = true
		p.normfact = 1.0 / float64(2*n)
	}
	if p.isGreen {
		// spectral direction: the Green kernel is filled directly in modes,
		// no transform runs and no factor of i is deferred
		p.kind = KindNone
		p.corrtype = CorrNone
		p.imult = false
	}
}

func (p *PlanDim) initMixUnbounded(n int, isComplex bool) {
	utils.Checkf(!isComplex || p.isGreen, "mixed unbounded transforms must run before any complex direction")
	m := 2 * n
	p.volfact = p.h
	p.kfact = math.Pi / (2.0 * p.l)
	odd := p.bc[0] == types.ODD || p.bc[1] == types.ODD
	fwd := p.sign == types.FORWARD

	if p.isGreen {
		// the kernel is even whatever the field symmetry: node-centered
		// cosine over the doubled domain, one extra mode that the field
		// spectrum does not carry
		p.nIn, p.nOut = m+1, m+1
		p.ignoreMode = true
		p.kind = KindDCT1
		p.normfact = 1.0 / float64(4*n)
		return
	}
	p.nIn, p.nOut = m, m
	p.reversed = p.bc[0] == types.UNB
	if p.reversed {
		p.fieldstart = n
	}
	p.normfact = 1.0 / float64(4*m)
	if odd {
		p.kind = pick(fwd, KindDST2, KindDST3)
		p.corrtype = CorrDST
		p.imult = true
	} else {
		p.kind = pick(fwd, KindDCT2, KindDCT3)
	}
}

func (p *PlanDim) initPeriodic(n int, isComplex bool) {
	p.nIn = n
	p.fieldstart = 0
	p.volfact = 1.0
	p.normfact = 1.0 / float64(n)
	p.kfact = 2.0 * math.Pi / p.l
	p.isSpectral = true
	fwd := p.sign == types.FORWARD

	if !isComplex {
		p.isr2c = true
		p.nOut = n/2 + 1
		p.kind = pick(fwd, KindR2C, KindC2R)
		p.symstart = 0
	} else {
		p.nOut = n
		p.kind = pick(fwd, KindC2CFwd, KindC2CBwd)
		p.symstart = float64(n) / 2.0
	}
	if p.isGreen {
		// spectral: filled directly in modes, sizing identical to the field
		p.kind = KindNone
	}
}

func (p *PlanDim) initUnbounded(n int, isComplex bool) {
	m := 2 * n
	p.fieldstart = 0
	p.volfact = p.h
	p.normfact = 1.0 / float64(m)
	p.kfact = math.Pi / p.l
	p.symstart = float64(n)
	fwd := p.sign == types.FORWARD

	if !isComplex {
		p.isr2c = true
		p.nIn = m
		p.nOut = n + 1
		p.kind = pick(fwd, KindR2C, KindC2R)
	} else {
		p.nIn = m
		p.nOut = m
		p.kind = pick(fwd, KindC2CFwd, KindC2CBwd)
	}
}

func pick(fwd bool, a, b Kind) Kind {
	if fwd {
		return a
	}
	return b
}

// Getters used by the solver dry run and the Green filler.

func (p *PlanDim) DimID() int                { return p.dimID }
func (p *PlanDim) Category() Category        { return p.category }
func (p *PlanDim) TypeSum() int              { return p.typeSum }
func (p *PlanDim) NIn() int                  { return p.nIn }
func (p *PlanDim) NOut() int                 { return p.nOut }
func (p *PlanDim) Symstart() float64         { return p.symstart }
func (p *PlanDim) Normfact() float64         { return p.normfact }
func (p *PlanDim) Volfact() float64          { return p.volfact }
func (p *PlanDim) Kfact() float64            { return p.kfact }
func (p *PlanDim) Koffset() float64          { return p.koffset }
func (p *PlanDim) Imult() bool               { return p.imult }
func (p *PlanDim) IsR2C() bool               { return p.isr2c }
func (p *PlanDim) IsSpectral() bool          { return p.isSpectral }
func (p *PlanDim) IgnoreMode() bool          { return p.ignoreMode }
func (p *PlanDim) Correction() Correction    { return p.corrtype }
func (p *PlanDim) TransformKind() Kind       { return p.kind }
func (p *PlanDim) BC() [2]types.BoundaryType { return p.bc }

// R2CByTransform reports whether this plan's own transform performs the
// real-to-complex change (as opposed to a spectral reinterpretation).
func (p *PlanDim) R2CByTransform() bool { return p.isr2c && !p.isSpectral }

// OutSize replaces the plan's direction in size by the transform output
// length.
func (p *PlanDim) OutSize(size *[3]int) { size[p.dimID] = p.nOut }

// FieldStart replaces the plan's direction in start by the offset at which
// the input field sits in the (possibly padded) transform input.
func (p *PlanDim) FieldStart(start *[3]int) { start[p.dimID] = p.fieldstart }

// IsNowComplex ors the plan's complexity change into isComplex.
func (p *PlanDim) IsNowComplex(isComplex *bool) { *isComplex = *isComplex || p.isr2c }

// Disp logs the plan.
func (p *PlanDim) Disp() {
	utils.Infof("plan dim=%d type=%d (%v,%v) kind=%d corr=%d r2c=%v spectral=%v reversed=%v",
		p.dimID, p.category, p.bc[0], p.bc[1], p.kind, p.corrtype, p.isr2c, p.isSpectral, p.reversed)
}
