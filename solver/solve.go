package solver

import (
	"fmt"

	"github.com/notargets/gopoisson/plan"
	"github.com/notargets/gopoisson/types"
	"github.com/notargets/gopoisson/utils"
)

// Solve computes the solution of the Poisson equation with the right-hand
// side rhs into fieldOut. Both arrays are in the layout of the input
// topology, aligned; for the vector solver types they hold lda blocks of
// LocMemSize doubles. All ranks of the communicator must call Solve in
// lock-step.
func (s *Solver) Solve(fieldOut, rhs []float64, solverType types.SolverType) error {
	if !s.isSetup {
		return fmt.Errorf("solver: Solve called before Setup")
	}
	if fieldOut == nil || rhs == nil {
		return fmt.Errorf("solver: nil field or rhs")
	}
	utils.Checkf(utils.IsAligned(fieldOut) && utils.IsAligned(rhs),
		"field and rhs must be %d-byte aligned", utils.Alignment)
	utils.Checkf(!s.topoIn.IsComplex(), "the rhs topology cannot be complex")

	s.prof.Create("solve_total")
	s.prof.Start("solve_total")
	defer s.prof.Stop("solve_total")

	switch solverType {
	case types.SRHS:
		if s.lda != 1 {
			return fmt.Errorf("solver: SRHS needs lda 1, solver was built with %d", s.lda)
		}
		s.solveScalar(fieldOut, rhs)
	case types.VRHS:
		if s.lda != 3 {
			return fmt.Errorf("solver: VRHS needs lda 3, solver was built with %d", s.lda)
		}
		inSize := s.topoIn.LocMemSize()
		for c := 0; c < 3; c++ {
			s.solveScalarInto(s.data[:s.slabSize], fieldOut[c*inSize:(c+1)*inSize], rhs[c*inSize:(c+1)*inSize])
		}
	case types.ROT, types.DIV:
		return s.solveSpectralDerivative(fieldOut, rhs, solverType)
	default:
		return fmt.Errorf("solver: type %v not implemented", solverType)
	}
	return nil
}

func (s *Solver) solveScalar(fieldOut, rhs []float64) {
	s.solveScalarInto(s.data[:s.slabSize], fieldOut, rhs)
}

// solveScalarInto runs the six-stage pipeline for one scalar component on the
// given scratch slab.
func (s *Solver) solveScalarInto(slab, fieldOut, rhs []float64) {
	s.prof.Create("solve_copy")
	s.prof.Start("solve_copy")
	zero(slab)
	s.copyLocalBlock(rhs, slab)
	s.prof.Stop("solve_copy")

	s.forwardPipeline(slab)

	s.prof.Create("solve_domagic")
	s.prof.Start("solve_domagic")
	s.convolve(slab)
	s.prof.Stop("solve_domagic")

	s.backwardPipeline(slab)

	s.prof.Start("solve_copy")
	s.copyLocalBlock(slab, fieldOut)
	s.prof.Stop("solve_copy")
}

// forwardPipeline remaps and transforms one slab to full spectral space,
// toggling the hat topologies complex as the r2c plan passes.
func (s *Solver) forwardPipeline(slab []float64) {
	s.prof.Create("solve_fft")
	s.prof.Create("solve_reorder")
	for ip := 0; ip < 3; ip++ {
		s.prof.Start("solve_reorder")
		s.switchtopo[ip].Execute(slab, types.FORWARD)
		s.prof.Stop("solve_reorder")
		s.prof.Start("solve_fft")
		s.planFwd[ip].Execute(s.topoHat[ip], slab)
		s.prof.Stop("solve_fft")
		if s.planFwd[ip].IsR2C() {
			s.topoHat[ip].SwitchToComplex()
		}
	}
}

// backwardPipeline is the exact reverse of forwardPipeline.
func (s *Solver) backwardPipeline(slab []float64) {
	for ip := 2; ip >= 0; ip-- {
		s.prof.Start("solve_fft")
		s.planBwd[ip].Execute(s.topoHat[ip], slab)
		s.prof.Stop("solve_fft")
		if s.planFwd[ip].IsR2C() {
			s.topoHat[ip].SwitchToReal()
		}
		s.prof.Start("solve_reorder")
		s.switchtopo[ip].Execute(slab, types.BACKWARD)
		s.prof.Stop("solve_reorder")
	}
}

// resetHatReal puts the hat topologies back in their pre-forward state.
func (s *Solver) resetHatReal() {
	for ip := 0; ip < 3; ip++ {
		if s.planFwd[ip].IsR2C() {
			s.topoHat[ip].SwitchToReal()
		}
	}
}

// resetHatComplex puts the hat topologies in their post-forward state.
func (s *Solver) resetHatComplex() {
	for ip := 0; ip < 3; ip++ {
		if s.planFwd[ip].IsR2C() {
			s.topoHat[ip].SwitchToComplex()
		}
	}
}

// solveSpectralDerivative handles the curl and divergence right-hand sides:
// all three components go to spectral space, the i*k combinations and the
// convolution happen there, and the result comes back.
func (s *Solver) solveSpectralDerivative(fieldOut, rhs []float64, solverType types.SolverType) error {
	if s.lda != 3 {
		return fmt.Errorf("solver: %v needs lda 3, solver was built with %d", solverType, s.lda)
	}
	for ip := 0; ip < 3; ip++ {
		cat := s.planFwd[ip].Category()
		if cat != plan.PERPER && cat != plan.UNBUNB {
			return fmt.Errorf("solver: %v is only available when every direction is periodic or unbounded", solverType)
		}
	}

	inSize := s.topoIn.LocMemSize()
	for c := 0; c < 3; c++ {
		slab := s.slab(c)
		zero(slab)
		s.copyLocalBlock(rhs[c*inSize:(c+1)*inSize], slab)
		s.forwardPipeline(slab)
		if c < 2 {
			s.resetHatReal()
		}
	}

	s.prof.Create("solve_domagic")
	s.prof.Start("solve_domagic")
	if solverType == types.ROT {
		s.magicRot()
	} else {
		s.magicDiv()
	}
	s.prof.Stop("solve_domagic")

	nOut := 3
	if solverType == types.DIV {
		nOut = 1
	}
	for c := 0; c < nOut; c++ {
		if c > 0 {
			s.resetHatComplex()
		}
		slab := s.slab(c)
		s.backwardPipeline(slab)
		s.copyLocalBlock(slab, fieldOut[c*inSize:(c+1)*inSize])
	}
	return nil
}

func (s *Solver) slab(c int) []float64 {
	return s.data[c*s.slabSize : (c+1)*s.slabSize]
}

// copyLocalBlock copies the local block of the input topology between two
// buffers of its layout, leaving any padding untouched.
func (s *Solver) copyLocalBlock(src, dst []float64) {
	topo := s.topoIn
	ax0 := topo.Axis()
	ax1 := (ax0 + 1) % 3
	ax2 := (ax0 + 2) % 3
	n0 := topo.Nloc(ax0) * topo.Nf()
	for i2 := 0; i2 < topo.Nloc(ax2); i2++ {
		for i1 := 0; i1 < topo.Nloc(ax1); i1++ {
			id := topo.LocalIndexAO(0, i1, i2)
			copy(dst[id:id+n0], src[id:id+n0])
		}
	}
}

func zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}
