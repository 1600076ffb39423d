// Package solver owns the full solve pipeline: the three directional plans
// per sign, the four topologies, the remaps between them, the Green's
// function and the spectral convolution.
package solver

import (
	"fmt"

	"github.com/notargets/gopoisson/green"
	"github.com/notargets/gopoisson/mpi"
	"github.com/notargets/gopoisson/pencil"
	"github.com/notargets/gopoisson/plan"
	"github.com/notargets/gopoisson/types"
	"github.com/notargets/gopoisson/utils"
)

// DefaultAlphaGreen is the smoothing length of the regularized kernels in
// units of the grid spacing.
const DefaultAlphaGreen = 2.0

// Options tunes a Solver beyond its boundary conditions.
type Options struct {
	GreenType  types.GreenType
	AlphaGreen float64
	Strategy   pencil.Strategy
	Lda        int // leading dimension: 1 for scalar, 3 for vector data
	Timer      *utils.Timer
}

// Solver is a Poisson solver on one topology and one set of boundary
// conditions. Plans and topologies are frozen at construction, buffers and
// transforms at Setup; Solve may then be called any number of times.
type Solver struct {
	comm   *mpi.Comm
	topoIn *pencil.Topology

	planFwd   [3]*plan.PlanDim
	planBwd   [3]*plan.PlanDim
	planGreen [3]*plan.PlanDim

	topoHat   [3]*pencil.Topology
	topoGreen [3]*pencil.Topology

	switchtopo      [3]*pencil.SwitchTopo
	switchtopoGreen [3]*pencil.SwitchTopo

	data     []float64
	greenBuf []float64
	slabSize int

	hgrid, length [3]float64
	normfact      float64
	volfact       float64
	nbrImult      int

	typeGreen  types.GreenType
	alphaGreen float64
	strategy   pencil.Strategy
	lda        int
	prof       *utils.Timer

	isSetup bool
}

// New constructs a solver for the Poisson equation on topo with the given
// boundary conditions (first index: direction, second: left/right side), grid
// spacing h and domain length L. opts may be nil.
func New(topo *pencil.Topology, bc [3][2]types.BoundaryType, h, L [3]float64, opts *Options) (*Solver, error) {
	if topo.IsComplex() {
		return nil, fmt.Errorf("solver: the input topology cannot be complex")
	}
	s := &Solver{
		comm:       topo.Comm(),
		topoIn:     topo,
		hgrid:      h,
		length:     L,
		typeGreen:  types.CHAT2,
		alphaGreen: DefaultAlphaGreen,
		lda:        1,
	}
	if opts != nil {
		s.typeGreen = opts.GreenType
		s.strategy = opts.Strategy
		if opts.AlphaGreen > 0 {
			s.alphaGreen = opts.AlphaGreen
		}
		if opts.Lda > 0 {
			s.lda = opts.Lda
		}
		s.prof = opts.Timer
	}
	if s.lda != 1 && s.lda != 3 {
		return nil, fmt.Errorf("solver: lda must be 1 or 3, got %d", s.lda)
	}
	if s.typeGreen > types.HEJ6 {
		return nil, fmt.Errorf("solver: unknown Green type %d", s.typeGreen)
	}
	s.prof.Create("init")
	s.prof.Start("init")
	defer s.prof.Stop("init")

	for id := 0; id < 3; id++ {
		var err error
		if s.planFwd[id], err = plan.NewPlanDim(id, h, L, bc[id], types.FORWARD, false); err != nil {
			return nil, err
		}
		if s.planBwd[id], err = plan.NewPlanDim(id, h, L, bc[id], types.BACKWARD, false); err != nil {
			return nil, err
		}
		if s.planGreen[id], err = plan.NewPlanDim(id, h, L, bc[id], types.FORWARD, true); err != nil {
			return nil, err
		}
	}
	plan.SortPlans(s.planFwd[:])
	plan.SortPlans(s.planBwd[:])
	plan.SortPlans(s.planGreen[:])
	utils.Infof("solver: forward transforms in direction order %d, %d, %d",
		s.planFwd[0].DimID(), s.planFwd[1].DimID(), s.planFwd[2].DimID())

	if err := s.initPlansAndTopos(s.planFwd, &s.topoHat, &s.switchtopo, false); err != nil {
		return nil, err
	}
	if err := s.initPlansAndTopos(s.planBwd, nil, nil, false); err != nil {
		return nil, err
	}
	if err := s.initPlansAndTopos(s.planGreen, &s.topoGreen, &s.switchtopoGreen, true); err != nil {
		return nil, err
	}

	s.normfact, s.volfact, s.nbrImult = 1.0, 1.0, 0
	for ip := 0; ip < 3; ip++ {
		s.normfact *= s.planFwd[ip].Normfact()
		s.volfact *= s.planFwd[ip].Volfact()
		if s.planFwd[ip].Imult() {
			s.nbrImult++
		}
		if s.planBwd[ip].Imult() {
			s.nbrImult--
		}
		if s.planGreen[ip].Imult() {
			s.nbrImult++
		}
	}
	return s, nil
}

// initPlansAndTopos performs the sizing dry run of one plan triplet and, when
// topomap is given, creates the intermediate topologies and the remaps
// between them. For the Green pipeline the topologies are rebuilt walking
// backward so that the fill topology covers the full symmetric domain.
func (s *Solver) initPlansAndTopos(planmap [3]*plan.PlanDim,
	topomap *[3]*pencil.Topology, switchtopo *[3]*pencil.SwitchTopo, isGreen bool) error {

	var sizeTmp [3]int
	for id := 0; id < 3; id++ {
		sizeTmp[id] = s.topoIn.Nglob(id)
	}
	isComplex := false
	current := s.topoIn

	for ip := 0; ip < 3; ip++ {
		p := planmap[ip]
		p.Init(sizeTmp, isComplex)
		p.OutSize(&sizeTmp)
		p.IsNowComplex(&isComplex)
		dimID := p.DimID()

		if isGreen && p.IgnoreMode() {
			sizeTmp[dimID]--
		}
		if !isGreen && topomap != nil && switchtopo != nil {
			nproc := pencil.PencilNproc(dimID, s.comm.Size())
			newTopo, err := pencil.NewTopology(s.comm, dimID, sizeTmp, nproc, isComplex, nil, utils.Alignment)
			if err != nil {
				return err
			}
			var fieldstart [3]int
			p.FieldStart(&fieldstart)
			if p.IsR2C() {
				// the remap happens while the data is still real
				newTopo.SwitchToReal()
				switchtopo[ip] = pencil.NewSwitchTopo(current, newTopo, fieldstart, swTag(isGreen, ip), s.strategy)
				newTopo.SwitchToComplex()
			} else {
				switchtopo[ip] = pencil.NewSwitchTopo(current, newTopo, fieldstart, swTag(isGreen, ip), s.strategy)
			}
			topomap[ip] = newTopo
			current = newTopo
		}
	}

	// Green: rebuild the topologies from the last to the first, re-adding the
	// ignored modes and undoing the r2c so the fill topology is the full
	// symmetric domain in the representation the kernel is written in.
	if isGreen && topomap != nil && switchtopo != nil {
		var currentGreen *pencil.Topology
		for ip := 2; ip >= 0; ip-- {
			p := planmap[ip]
			dimID := p.DimID()
			nproc := pencil.PencilNproc(dimID, s.comm.Size())
			if p.IgnoreMode() {
				sizeTmp[dimID]++
			}
			newTopo, err := pencil.NewTopology(s.comm, dimID, sizeTmp, nproc, isComplex, nil, utils.Alignment)
			if err != nil {
				return err
			}
			topomap[ip] = newTopo
			if ip < 2 {
				switchtopo[ip+1] = pencil.NewSwitchTopo(newTopo, currentGreen, [3]int{}, swTag(true, ip+1), s.strategy)
			}
			if p.R2CByTransform() {
				// before its own transform the kernel is real on the doubled
				// domain
				newTopo.SwitchToReal()
				sizeTmp[dimID] = newTopo.Nglob(dimID)
				isComplex = false
			}
			currentGreen = newTopo
		}
	}

	// the r2c topologies start every execution in their real state
	if !isGreen && topomap != nil {
		for ip := 0; ip < 3; ip++ {
			if planmap[ip].IsR2C() {
				topomap[ip].SwitchToReal()
			}
		}
	}
	return nil
}

// swTag gives each remap of the solver a distinct message tag.
func swTag(isGreen bool, ip int) int {
	if isGreen {
		return 8 + ip
	}
	return ip
}

// Setup allocates the data buffers and the transforms and computes the
// Green's function. After Setup the solver is immutable. changeTopoComm asks
// for a communicator reordering matched to the remap pattern; the in-process
// transport has a flat cost matrix, so the topologies are kept on the
// construction communicator.
func (s *Solver) Setup(changeTopoComm bool) error {
	s.prof.Start("init")
	defer s.prof.Stop("init")
	if changeTopoComm {
		utils.Infof("solver: communicator reordering requested; the in-process transport gains nothing, keeping rank order")
	}

	s.slabSize = s.topoIn.LocMemSize()
	for ip := 0; ip < 3; ip++ {
		if m := s.topoHat[ip].LocMemSize(); m > s.slabSize {
			s.slabSize = m
		}
	}
	s.data = utils.AlignedFloats(s.slabSize * s.lda)

	greenSize := 0
	for ip := 0; ip < 3; ip++ {
		if m := s.topoGreen[ip].LocMemSize(); m > greenSize {
			greenSize = m
		}
	}
	s.greenBuf = utils.AlignedFloats(greenSize)

	for ip := 0; ip < 3; ip++ {
		s.planFwd[ip].Allocate(s.topoHat[ip])
		s.planBwd[ip].Allocate(s.topoHat[ip])
		s.planGreen[ip].Allocate(s.topoGreen[ip])
	}

	if err := s.computeGreen(); err != nil {
		return err
	}

	// the Green remaps are only needed during setup
	for ip := range s.switchtopoGreen {
		s.switchtopoGreen[ip] = nil
	}
	s.isSetup = true
	return nil
}

// computeGreen fills the kernel in the fill topology, pushes it through the
// Green pipeline to full spectral space and scales it by the volume factor.
func (s *Solver) computeGreen() error {
	if err := green.Fill(s.topoGreen[0], s.planGreen, s.hgrid, s.typeGreen, s.alphaGreen, s.greenBuf); err != nil {
		return err
	}
	for ip := 0; ip < 3; ip++ {
		if ip > 0 {
			s.switchtopoGreen[ip].Execute(s.greenBuf, types.FORWARD)
		}
		if !s.planGreen[ip].IsSpectral() {
			s.planGreen[ip].Execute(s.topoGreen[ip], s.greenBuf)
		}
		if s.planGreen[ip].R2CByTransform() {
			s.topoGreen[ip].SwitchToComplex()
		}
	}
	s.scaleGreen()
	return nil
}

// scaleGreen multiplies the spectral kernel by the volume factor so that the
// convolution carries the Riemann-sum weight of the unbounded directions.
func (s *Solver) scaleGreen() {
	topo := s.topoGreen[2]
	ax0 := topo.Axis()
	ax1 := (ax0 + 1) % 3
	ax2 := (ax0 + 2) % 3
	for i2 := 0; i2 < topo.Nloc(ax2); i2++ {
		for i1 := 0; i1 < topo.Nloc(ax1); i1++ {
			id := topo.LocalIndexAO(0, i1, i2)
			for i0 := 0; i0 < topo.Nloc(ax0)*topo.Nf(); i0++ {
				s.greenBuf[id+i0] *= s.volfact
			}
		}
	}
}

// SetGreenType changes the kernel; only allowed before Setup.
func (s *Solver) SetGreenType(t types.GreenType) error {
	if s.isSetup {
		return fmt.Errorf("solver: the Green type is frozen by Setup")
	}
	if t > types.HEJ6 {
		return fmt.Errorf("solver: unknown Green type %d", t)
	}
	s.typeGreen = t
	return nil
}

// Free releases the solver buffers.
func (s *Solver) Free() {
	s.data = nil
	s.greenBuf = nil
	s.isSetup = false
}

// Normfact returns the accumulated normalization of the forward pipeline.
func (s *Solver) Normfact() float64 { return s.normfact }

// Volfact returns the accumulated Riemann-sum weight.
func (s *Solver) Volfact() float64 { return s.volfact }

// NbrImult returns the net count of directional transforms contributing a
// factor of i.
func (s *Solver) NbrImult() int { return s.nbrImult }

// PlanOrder returns the direction ids in processing order.
func (s *Solver) PlanOrder() [3]int {
	return [3]int{s.planFwd[0].DimID(), s.planFwd[1].DimID(), s.planFwd[2].DimID()}
}

// Disp logs the solver configuration.
func (s *Solver) Disp() {
	utils.Infof("solver: normfact=%g volfact=%g nbr_imult=%d", s.normfact, s.volfact, s.nbrImult)
	for ip := 0; ip < 3; ip++ {
		s.planFwd[ip].Disp()
	}
	for ip := 0; ip < 3; ip++ {
		s.topoHat[ip].Disp()
	}
}
