package solver

import (
	"math"
	"math/rand"
	"testing"

	"github.com/notargets/gopoisson/mpi"
	"github.com/notargets/gopoisson/pencil"
	"github.com/notargets/gopoisson/types"
	"github.com/notargets/gopoisson/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCase bundles the grid of one solve.
type testCase struct {
	nglob [3]int
	np    int
	bc    [3][2]types.BoundaryType
	l     [3]float64
	opts  *Options
}

// buildSolver creates topology and solver of a case on the calling rank.
func buildSolver(t *testing.T, c *mpi.Comm, tc testCase) (*Solver, *pencil.Topology) {
	nproc := pencil.PencilNproc(0, c.Size())
	topo, err := pencil.NewTopology(c, 0, tc.nglob, nproc, false, nil, utils.Alignment)
	require.NoError(t, err)
	var h [3]float64
	for d := 0; d < 3; d++ {
		h[d] = tc.l[d] / float64(tc.nglob[d])
	}
	s, err := New(topo, tc.bc, h, tc.l, tc.opts)
	require.NoError(t, err)
	require.NoError(t, s.Setup(false))
	return s, topo
}

// forEachCell visits the local cells of topo with their global indices.
func forEachCell(topo *pencil.Topology, f func(id int, g [3]int)) {
	ax0 := topo.Axis()
	ax1 := (ax0 + 1) % 3
	ax2 := (ax0 + 2) % 3
	var istart [3]int
	topo.IstartGlob(&istart)
	for i2 := 0; i2 < topo.Nloc(ax2); i2++ {
		for i1 := 0; i1 < topo.Nloc(ax1); i1++ {
			for i0 := 0; i0 < topo.Nloc(ax0); i0++ {
				var g [3]int
				g[ax0] = istart[ax0] + i0
				g[ax1] = istart[ax1] + i1
				g[ax2] = istart[ax2] + i2
				f(topo.LocalIndexAO(i0, i1, i2), g)
			}
		}
	}
}

func cellCenter(g [3]int, h [3]float64) (x, y, z float64) {
	return (float64(g[0]) + 0.5) * h[0], (float64(g[1]) + 0.5) * h[1], (float64(g[2]) + 0.5) * h[2]
}

func allUNB() [3][2]types.BoundaryType {
	u := [2]types.BoundaryType{types.UNB, types.UNB}
	return [3][2]types.BoundaryType{u, u, u}
}

func allPER() [3][2]types.BoundaryType {
	p := [2]types.BoundaryType{types.PER, types.PER}
	return [3][2]types.BoundaryType{p, p, p}
}

func TestPlanOrderSpecScenario(t *testing.T) {
	mpi.Run(1, func(c *mpi.Comm) {
		bc := [3][2]types.BoundaryType{
			{types.UNB, types.UNB},
			{types.EVEN, types.ODD},
			{types.PER, types.PER},
		}
		s, _ := buildSolver(t, c, testCase{nglob: [3]int{8, 8, 8}, bc: bc, l: [3]float64{1, 1, 1}})
		assert.Equal(t, [3]int{1, 2, 0}, s.PlanOrder())
		assert.Equal(t, 0, s.NbrImult())
	})
}

// setGreenToOne turns the convolution into the identity, exposing the pure
// forward/backward pipeline.
func setGreenToOne(s *Solver) {
	nf := s.topoGreen[2].Nf()
	for i := 0; i < len(s.greenBuf); i += nf {
		s.greenBuf[i] = 1
		if nf == 2 {
			s.greenBuf[i+1] = 0
		}
	}
}

func roundtripCase(t *testing.T, bc [3][2]types.BoundaryType, nglob [3]int, np int) {
	mpi.Run(np, func(c *mpi.Comm) {
		s, topo := buildSolver(t, c, testCase{nglob: nglob, bc: bc, l: [3]float64{1, 1, 1}})
		setGreenToOne(s)

		rhs := utils.AlignedFloats(topo.LocMemSize())
		out := utils.AlignedFloats(topo.LocMemSize())
		rng := rand.New(rand.NewSource(int64(17 + c.Rank())))
		forEachCell(topo, func(id int, g [3]int) {
			rhs[id] = rng.Float64() - 0.5
		})
		require.NoError(t, s.Solve(out, rhs, types.SRHS))

		maxErr := 0.0
		forEachCell(topo, func(id int, g [3]int) {
			if e := math.Abs(out[id] - rhs[id]); e > maxErr {
				maxErr = e
			}
		})
		maxErr = c.AllreduceMax(maxErr)
		assert.Less(t, maxErr, 1e-13, "forward/backward with unit Green must be the identity")
	})
}

func TestRoundtripIdentityPeriodic(t *testing.T) {
	roundtripCase(t, allPER(), [3]int{16, 8, 12}, 1)
	roundtripCase(t, allPER(), [3]int{16, 8, 12}, 4)
}

func TestRoundtripIdentityUnbounded(t *testing.T) {
	roundtripCase(t, allUNB(), [3]int{8, 8, 8}, 1)
	roundtripCase(t, allUNB(), [3]int{8, 8, 8}, 2)
}

func periodicSineCase(t *testing.T, np int) {
	mpi.Run(np, func(c *mpi.Comm) {
		nglob := [3]int{16, 16, 16}
		l := [3]float64{1, 1, 1}
		s, topo := buildSolver(t, c, testCase{nglob: nglob, bc: allPER(), l: l})
		h := 1.0 / 16.0

		k := 2.0 * math.Pi * 2.0 // mode 2 along x
		rhs := utils.AlignedFloats(topo.LocMemSize())
		out := utils.AlignedFloats(topo.LocMemSize())
		forEachCell(topo, func(id int, g [3]int) {
			x := (float64(g[0]) + 0.5) * h
			rhs[id] = math.Sin(k * x)
		})
		require.NoError(t, s.Solve(out, rhs, types.SRHS))

		maxErr := 0.0
		forEachCell(topo, func(id int, g [3]int) {
			x := (float64(g[0]) + 0.5) * h
			want := -math.Sin(k*x) / (k * k)
			if e := math.Abs(out[id] - want); e > maxErr {
				maxErr = e
			}
		})
		maxErr = c.AllreduceMax(maxErr)
		assert.Less(t, maxErr, 1e-12, "periodic sine is an exact eigenfunction")
	})
}

func TestPeriodicSine(t *testing.T) {
	periodicSineCase(t, 1)
	periodicSineCase(t, 4)
}

func TestSymmetricCosineEigenfunction(t *testing.T) {
	// fully even: the real convolution path, cosine modes are exact
	mpi.Run(2, func(c *mpi.Comm) {
		e := [2]types.BoundaryType{types.EVEN, types.EVEN}
		nglob := [3]int{16, 16, 16}
		l := [3]float64{1, 1, 1}
		s, topo := buildSolver(t, c, testCase{nglob: nglob, bc: [3][2]types.BoundaryType{e, e, e}, l: l})
		h := 1.0 / 16.0

		kx := math.Pi * 2.0
		ky := math.Pi * 3.0
		rhs := utils.AlignedFloats(topo.LocMemSize())
		out := utils.AlignedFloats(topo.LocMemSize())
		forEachCell(topo, func(id int, g [3]int) {
			x, y, _ := cellCenter(g, [3]float64{h, h, h})
			rhs[id] = math.Cos(kx*x) * math.Cos(ky*y)
		})
		require.NoError(t, s.Solve(out, rhs, types.SRHS))

		ksqr := kx*kx + ky*ky
		maxErr := 0.0
		forEachCell(topo, func(id int, g [3]int) {
			x, y, _ := cellCenter(g, [3]float64{h, h, h})
			want := -math.Cos(kx*x) * math.Cos(ky*y) / ksqr
			if e := math.Abs(out[id] - want); e > maxErr {
				maxErr = e
			}
		})
		maxErr = c.AllreduceMax(maxErr)
		assert.Less(t, maxErr, 1e-12)
	})
}

func TestOddSineEigenfunction(t *testing.T) {
	mpi.Run(1, func(c *mpi.Comm) {
		o := [2]types.BoundaryType{types.ODD, types.ODD}
		nglob := [3]int{16, 16, 16}
		l := [3]float64{1, 1, 1}
		s, topo := buildSolver(t, c, testCase{nglob: nglob, bc: [3][2]types.BoundaryType{o, o, o}, l: l})
		h := 1.0 / 16.0
		// the sine factors of the forward and backward plans cancel and the
		// spectral Green carries none
		assert.Equal(t, 0, s.NbrImult())

		kx := math.Pi * 2.0
		ky := math.Pi * 3.0
		kz := math.Pi * 1.0
		rhs := utils.AlignedFloats(topo.LocMemSize())
		out := utils.AlignedFloats(topo.LocMemSize())
		forEachCell(topo, func(id int, g [3]int) {
			x, y, z := cellCenter(g, [3]float64{h, h, h})
			rhs[id] = math.Sin(kx*x) * math.Sin(ky*y) * math.Sin(kz*z)
		})
		require.NoError(t, s.Solve(out, rhs, types.SRHS))

		ksqr := kx*kx + ky*ky + kz*kz
		maxErr := 0.0
		forEachCell(topo, func(id int, g [3]int) {
			x, y, z := cellCenter(g, [3]float64{h, h, h})
			want := -math.Sin(kx*x) * math.Sin(ky*y) * math.Sin(kz*z) / ksqr
			if e := math.Abs(out[id] - want); e > maxErr {
				maxErr = e
			}
		})
		assert.Less(t, maxErr, 1e-12)
	})
}

func TestOddOddPeriodicEigenfunction(t *testing.T) {
	// two sine directions against a periodic one: the complex convolution
	// path with cancelled sine factors, exact for a product of eigenmodes
	mpi.Run(1, func(c *mpi.Comm) {
		bc := [3][2]types.BoundaryType{
			{types.ODD, types.ODD},
			{types.ODD, types.ODD},
			{types.PER, types.PER},
		}
		nglob := [3]int{16, 16, 16}
		l := [3]float64{1, 1, 1}
		s, topo := buildSolver(t, c, testCase{nglob: nglob, bc: bc, l: l})
		assert.Equal(t, 0, s.NbrImult())
		h := 1.0 / 16.0

		kx := math.Pi * 2.0
		ky := math.Pi * 3.0
		kz := 2.0 * math.Pi * 2.0
		rhs := utils.AlignedFloats(topo.LocMemSize())
		out := utils.AlignedFloats(topo.LocMemSize())
		forEachCell(topo, func(id int, g [3]int) {
			x, y, z := cellCenter(g, [3]float64{h, h, h})
			rhs[id] = math.Sin(kx*x) * math.Sin(ky*y) * math.Sin(kz*z)
		})
		require.NoError(t, s.Solve(out, rhs, types.SRHS))

		ksqr := kx*kx + ky*ky + kz*kz
		maxErr := 0.0
		forEachCell(topo, func(id int, g [3]int) {
			x, y, z := cellCenter(g, [3]float64{h, h, h})
			want := -math.Sin(kx*x) * math.Sin(ky*y) * math.Sin(kz*z) / ksqr
			if e := math.Abs(out[id] - want); e > maxErr {
				maxErr = e
			}
		})
		assert.Less(t, maxErr, 1e-12, "the solution must come back with its sign intact")
	})
}

// gaussianRHS is the unit-mass Gaussian and its free-space solution.
func gaussianRHS(r, sigma float64) float64 {
	return math.Exp(-0.5*r*r/(sigma*sigma)) / (sigma * sigma * sigma * math.Pow(2*math.Pi, 1.5))
}

func gaussianSol(r, sigma float64) float64 {
	if r < 1e-14 {
		return -1.0 / (4 * math.Pi * sigma) * math.Sqrt(2/math.Pi)
	}
	return -math.Erf(r/(sigma*math.Sqrt2)) / (4 * math.Pi * r)
}

// unboundedGaussianError solves the free-space Gaussian at resolution n and
// returns the relative L2 error.
func unboundedGaussianError(t *testing.T, n, np int, g types.GreenType) float64 {
	var relErr float64
	mpi.Run(np, func(c *mpi.Comm) {
		nglob := [3]int{n, n, n}
		l := [3]float64{1, 1, 1}
		sigma := 0.1
		s, topo := buildSolver(t, c, testCase{
			nglob: nglob, bc: allUNB(), l: l,
			opts: &Options{GreenType: g},
		})
		h := 1.0 / float64(n)

		rhs := utils.AlignedFloats(topo.LocMemSize())
		out := utils.AlignedFloats(topo.LocMemSize())
		forEachCell(topo, func(id int, gi [3]int) {
			x, y, z := cellCenter(gi, [3]float64{h, h, h})
			r := math.Sqrt((x-0.5)*(x-0.5) + (y-0.5)*(y-0.5) + (z-0.5)*(z-0.5))
			rhs[id] = gaussianRHS(r, sigma)
		})
		require.NoError(t, s.Solve(out, rhs, types.SRHS))

		err2, ref2 := 0.0, 0.0
		forEachCell(topo, func(id int, gi [3]int) {
			x, y, z := cellCenter(gi, [3]float64{h, h, h})
			r := math.Sqrt((x-0.5)*(x-0.5) + (y-0.5)*(y-0.5) + (z-0.5)*(z-0.5))
			want := gaussianSol(r, sigma)
			err2 += (out[id] - want) * (out[id] - want)
			ref2 += want * want
		})
		err2 = c.AllreduceSum(err2)
		ref2 = c.AllreduceSum(ref2)
		relErr = math.Sqrt(err2 / ref2)
	})
	return relErr
}

func TestUnboundedGaussian(t *testing.T) {
	err32 := unboundedGaussianError(t, 32, 1, types.CHAT2)
	assert.Less(t, err32, 0.02, "free-space Gaussian at 32^3")

	// second-order convergence of the CHAT_2 quadrature
	err16 := unboundedGaussianError(t, 16, 1, types.CHAT2)
	assert.Greater(t, err16/err32, 2.5, "CHAT_2 must converge at second order")
}

func TestUnboundedGaussianHEJ(t *testing.T) {
	err := unboundedGaussianError(t, 32, 1, types.HEJ2)
	assert.Less(t, err, 0.05, "regularized kernel stays consistent")
}

func TestUnboundedGaussianMultiRank(t *testing.T) {
	err := unboundedGaussianError(t, 16, 4, types.CHAT2)
	errSerial := unboundedGaussianError(t, 16, 1, types.CHAT2)
	assert.InDelta(t, errSerial, err, 1e-12, "rank count must not change the solution")
}

// mixUnboundedCase solves a Gaussian against one symmetric wall and compares
// with the analytic image solution.
func mixUnboundedCase(t *testing.T, bc0 [2]types.BoundaryType, center float64, imageX float64, sign float64) {
	mpi.Run(2, func(c *mpi.Comm) {
		u := [2]types.BoundaryType{types.UNB, types.UNB}
		nglob := [3]int{32, 32, 32}
		l := [3]float64{1, 1, 1}
		sigma := 0.08
		s, topo := buildSolver(t, c, testCase{
			nglob: nglob, bc: [3][2]types.BoundaryType{bc0, u, u}, l: l,
		})
		h := 1.0 / 32.0

		rhs := utils.AlignedFloats(topo.LocMemSize())
		out := utils.AlignedFloats(topo.LocMemSize())
		forEachCell(topo, func(id int, gi [3]int) {
			x, y, z := cellCenter(gi, [3]float64{h, h, h})
			r := math.Sqrt((x-center)*(x-center) + (y-0.5)*(y-0.5) + (z-0.5)*(z-0.5))
			rhs[id] = gaussianRHS(r, sigma)
		})
		require.NoError(t, s.Solve(out, rhs, types.SRHS))

		err2, ref2 := 0.0, 0.0
		forEachCell(topo, func(id int, gi [3]int) {
			x, y, z := cellCenter(gi, [3]float64{h, h, h})
			r := math.Sqrt((x-center)*(x-center) + (y-0.5)*(y-0.5) + (z-0.5)*(z-0.5))
			ri := math.Sqrt((x-imageX)*(x-imageX) + (y-0.5)*(y-0.5) + (z-0.5)*(z-0.5))
			want := gaussianSol(r, sigma) + sign*gaussianSol(ri, sigma)
			err2 += (out[id] - want) * (out[id] - want)
			ref2 += want * want
		})
		err2 = c.AllreduceSum(err2)
		ref2 = c.AllreduceSum(ref2)
		assert.Less(t, math.Sqrt(err2/ref2), 0.05, "image solution of the symmetric wall")
	})
}

func TestMixUnboundedEvenLeft(t *testing.T) {
	// even wall at x=0: positive image at -center
	mixUnboundedCase(t, [2]types.BoundaryType{types.EVEN, types.UNB}, 0.7, -0.7, 1.0)
}

func TestMixUnboundedOddLeft(t *testing.T) {
	// odd wall at x=0: negative image
	mixUnboundedCase(t, [2]types.BoundaryType{types.ODD, types.UNB}, 0.7, -0.7, -1.0)
}

func TestMixUnboundedEvenRight(t *testing.T) {
	// even wall at x=1: image at 2-center
	mixUnboundedCase(t, [2]types.BoundaryType{types.UNB, types.EVEN}, 0.3, 1.7, 1.0)
}

func TestVortexTube(t *testing.T) {
	if testing.Short() {
		t.Skip("64^3 vortex tube validation")
	}
	// spec scenario 1: unbounded x unbounded x periodic, a Gaussian vortex
	// tube along z; the azimuthal velocity from the streamfunction gradient
	// must match (1/(2 pi r)) (1 - exp(-r^2/(2 sigma^2)))
	mpi.Run(1, func(c *mpi.Comm) {
		n := 64
		nglob := [3]int{n, n, n}
		l := [3]float64{1, 1, 1}
		sigma := 0.05
		bc := [3][2]types.BoundaryType{
			{types.UNB, types.UNB},
			{types.UNB, types.UNB},
			{types.PER, types.PER},
		}
		s, topo := buildSolver(t, c, testCase{nglob: nglob, bc: bc, l: l})
		h := 1.0 / float64(n)

		// solve laplacian(psi) = -omega_z
		rhs := utils.AlignedFloats(topo.LocMemSize())
		psi := utils.AlignedFloats(topo.LocMemSize())
		forEachCell(topo, func(id int, gi [3]int) {
			x, y, _ := cellCenter(gi, [3]float64{h, h, h})
			r2 := (x-0.5)*(x-0.5) + (y-0.5)*(y-0.5)
			rhs[id] = -1.0 / (2.0 * math.Pi * sigma * sigma) * math.Exp(-0.5*r2/(sigma*sigma))
		})
		require.NoError(t, s.Solve(psi, rhs, types.SRHS))

		// u = rot(psi e_z): central differences on the single-rank block
		err2, ref2 := 0.0, 0.0
		forEachCell(topo, func(id int, gi [3]int) {
			ix, iy := gi[0], gi[1]
			if ix == 0 || ix == n-1 || iy == 0 || iy == n-1 {
				return
			}
			x, y, _ := cellCenter(gi, [3]float64{h, h, h})
			idxp := topo.LocalIndexXYZ(ix+1, iy, gi[2])
			idxm := topo.LocalIndexXYZ(ix-1, iy, gi[2])
			idyp := topo.LocalIndexXYZ(ix, iy+1, gi[2])
			idym := topo.LocalIndexXYZ(ix, iy-1, gi[2])
			ux := (psi[idyp] - psi[idym]) / (2 * h)
			uy := -(psi[idxp] - psi[idxm]) / (2 * h)
			umag := math.Hypot(ux, uy)

			r := math.Hypot(x-0.5, y-0.5)
			if r < 2*h {
				return
			}
			want := (1.0 - math.Exp(-0.5*r*r/(sigma*sigma))) / (2.0 * math.Pi * r)
			err2 += (umag - want) * (umag - want)
			ref2 += want * want
		})
		assert.Less(t, math.Sqrt(err2/ref2), 5e-3, "vortex tube azimuthal velocity")
	})
}

func TestIsotropy(t *testing.T) {
	// the same Gaussian with the periodic direction rotated across the three
	// axes must produce the same field after relabeling
	n := 16
	h := 1.0 / float64(n)
	sigma := 0.1
	fields := make([][]float64, 3)
	for perDir := 0; perDir < 3; perDir++ {
		var field []float64
		mpi.Run(1, func(c *mpi.Comm) {
			bc := allUNB()
			bc[perDir] = [2]types.BoundaryType{types.PER, types.PER}
			s, topo := buildSolver(t, c, testCase{nglob: [3]int{n, n, n}, bc: bc, l: [3]float64{1, 1, 1}})

			rhs := utils.AlignedFloats(topo.LocMemSize())
			out := utils.AlignedFloats(topo.LocMemSize())
			forEachCell(topo, func(id int, gi [3]int) {
				x, y, z := cellCenter(gi, [3]float64{h, h, h})
				r := math.Sqrt((x-0.5)*(x-0.5) + (y-0.5)*(y-0.5) + (z-0.5)*(z-0.5))
				rhs[id] = gaussianRHS(r, sigma)
			})
			require.NoError(t, s.Solve(out, rhs, types.SRHS))

			// store in global xyz order for relabeling
			field = make([]float64, n*n*n)
			forEachCell(topo, func(id int, gi [3]int) {
				field[gi[0]+n*(gi[1]+n*gi[2])] = out[id]
			})
		})
		fields[perDir] = field
	}
	// relabel: the solve with PER on y at (x,y,z) must equal the solve with
	// PER on x at (y,x,z), and so on; the source is symmetric under the swap
	maxDiff := 0.0
	for ix := 0; ix < n; ix++ {
		for iy := 0; iy < n; iy++ {
			for iz := 0; iz < n; iz++ {
				v0 := fields[0][ix+n*(iy+n*iz)]
				v1 := fields[1][iy+n*(ix+n*iz)]
				v2 := fields[2][iz+n*(iy+n*ix)]
				maxDiff = math.Max(maxDiff, math.Abs(v0-v1))
				maxDiff = math.Max(maxDiff, math.Abs(v0-v2))
			}
		}
	}
	assert.Less(t, maxDiff, 1e-12, "axis swap isotropy")
}

func TestStrategiesProduceIdenticalSolutions(t *testing.T) {
	var ref []float64
	for _, strat := range []pencil.Strategy{pencil.Persistent, pencil.WaitAny, pencil.Stream} {
		var got []float64
		mpi.Run(2, func(c *mpi.Comm) {
			s, topo := buildSolver(t, c, testCase{
				nglob: [3]int{16, 8, 8}, bc: allPER(), l: [3]float64{1, 1, 1},
				opts: &Options{Strategy: strat},
			})
			h := [3]float64{1.0 / 16, 1.0 / 8, 1.0 / 8}
			rhs := utils.AlignedFloats(topo.LocMemSize())
			out := utils.AlignedFloats(topo.LocMemSize())
			forEachCell(topo, func(id int, gi [3]int) {
				x, y, z := cellCenter(gi, h)
				rhs[id] = math.Sin(2*math.Pi*x) * math.Cos(2*math.Pi*(y+z))
			})
			require.NoError(t, s.Solve(out, rhs, types.SRHS))
			if c.Rank() == 0 {
				got = append([]float64(nil), out...)
			}
		})
		if ref == nil {
			ref = got
		} else {
			assert.Equal(t, ref, got, "all remap strategies must agree bitwise")
		}
	}
}

func TestVectorRHS(t *testing.T) {
	mpi.Run(1, func(c *mpi.Comm) {
		s, topo := buildSolver(t, c, testCase{
			nglob: [3]int{16, 16, 16}, bc: allPER(), l: [3]float64{1, 1, 1},
			opts: &Options{Lda: 3},
		})
		h := 1.0 / 16.0
		k := 2.0 * math.Pi * 2.0
		size := topo.LocMemSize()
		rhs := utils.AlignedFloats(3 * size)
		out := utils.AlignedFloats(3 * size)
		forEachCell(topo, func(id int, gi [3]int) {
			x, y, z := cellCenter(gi, [3]float64{h, h, h})
			rhs[id] = math.Sin(k * x)
			rhs[size+id] = math.Sin(k * y)
			rhs[2*size+id] = math.Sin(k * z)
		})
		require.NoError(t, s.Solve(out, rhs, types.VRHS))

		maxErr := 0.0
		forEachCell(topo, func(id int, gi [3]int) {
			x, y, z := cellCenter(gi, [3]float64{h, h, h})
			for comp, v := range []float64{math.Sin(k * x), math.Sin(k * y), math.Sin(k * z)} {
				if e := math.Abs(out[comp*size+id] + v/(k*k)); e > maxErr {
					maxErr = e
				}
			}
		})
		assert.Less(t, maxErr, 1e-12)
	})
}

func TestRotDiv(t *testing.T) {
	mpi.Run(1, func(c *mpi.Comm) {
		s, topo := buildSolver(t, c, testCase{
			nglob: [3]int{16, 16, 16}, bc: allPER(), l: [3]float64{1, 1, 1},
			opts: &Options{Lda: 3},
		})
		h := 1.0 / 16.0
		k := 2.0 * math.Pi * 2.0
		size := topo.LocMemSize()
		rhs := utils.AlignedFloats(3 * size)
		out := utils.AlignedFloats(3 * size)

		// f = (0, 0, sin(kx)): curl f = (0, -k cos(kx), 0), so
		// psi = (0, cos(kx)/k, 0)
		forEachCell(topo, func(id int, gi [3]int) {
			x, _, _ := cellCenter(gi, [3]float64{h, h, h})
			rhs[2*size+id] = math.Sin(k * x)
		})
		require.NoError(t, s.Solve(out, rhs, types.ROT))
		maxErr := 0.0
		forEachCell(topo, func(id int, gi [3]int) {
			x, _, _ := cellCenter(gi, [3]float64{h, h, h})
			e := math.Abs(out[size+id] - math.Cos(k*x)/k)
			e = math.Max(e, math.Abs(out[id]))
			e = math.Max(e, math.Abs(out[2*size+id]))
			maxErr = math.Max(maxErr, e)
		})
		assert.Less(t, maxErr, 1e-12, "spectral curl right-hand side")

		// f = (sin(kx), 0, 0): div f = k cos(kx), so u = -cos(kx)/k
		zero(rhs)
		zero(out)
		forEachCell(topo, func(id int, gi [3]int) {
			x, _, _ := cellCenter(gi, [3]float64{h, h, h})
			rhs[id] = math.Sin(k * x)
		})
		require.NoError(t, s.Solve(out, rhs, types.DIV))
		maxErr = 0.0
		forEachCell(topo, func(id int, gi [3]int) {
			x, _, _ := cellCenter(gi, [3]float64{h, h, h})
			maxErr = math.Max(maxErr, math.Abs(out[id]+math.Cos(k*x)/k))
		})
		assert.Less(t, maxErr, 1e-12, "spectral divergence right-hand side")
	})
}

func TestConfigurationErrors(t *testing.T) {
	mpi.Run(1, func(c *mpi.Comm) {
		topo, err := pencil.NewTopology(c, 0, [3]int{8, 8, 8}, [3]int{1, 1, 1}, false, nil, utils.Alignment)
		require.NoError(t, err)
		h := [3]float64{1.0 / 8, 1.0 / 8, 1.0 / 8}
		l := [3]float64{1, 1, 1}

		// regularized kernel with a spectral direction
		s, err := New(topo, [3][2]types.BoundaryType{
			{types.UNB, types.UNB}, {types.UNB, types.UNB}, {types.PER, types.PER},
		}, h, l, &Options{GreenType: types.HEJ4})
		require.NoError(t, err)
		assert.Error(t, s.Setup(false))

		// anisotropic spacing with a regularized kernel
		ha := [3]float64{1.0 / 8, 2.0 / 8, 1.0 / 8}
		la := [3]float64{1, 2, 1}
		s, err = New(topo, allUNB(), ha, la, &Options{GreenType: types.HEJ2})
		require.NoError(t, err)
		assert.Error(t, s.Setup(false))

		// curl right-hand side with a real-to-real direction
		s, err = New(topo, [3][2]types.BoundaryType{
			{types.EVEN, types.EVEN}, {types.PER, types.PER}, {types.PER, types.PER},
		}, h, l, &Options{Lda: 3})
		require.NoError(t, err)
		require.NoError(t, s.Setup(false))
		buf := utils.AlignedFloats(3 * topo.LocMemSize())
		assert.Error(t, s.Solve(buf, buf, types.ROT))

		// lda mismatch
		s, err = New(topo, allPER(), h, l, nil)
		require.NoError(t, err)
		require.NoError(t, s.Setup(false))
		assert.Error(t, s.Solve(buf, buf, types.VRHS))

		// missing LGF kernel file surfaces as an I/O error naming the path
		s, err = New(topo, allUNB(), h, l, &Options{GreenType: types.LGF2})
		require.NoError(t, err)
		err = s.Setup(false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LGF")
	})
}
