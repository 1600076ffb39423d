package pencil

import (
	"testing"

	"github.com/notargets/gopoisson/mpi"
	"github.com/notargets/gopoisson/types"
	"github.com/notargets/gopoisson/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillGlobal writes a value unique to each global element into the local
// block of topo.
func fillGlobal(topo *Topology, data []float64) {
	var istart [3]int
	topo.IstartGlob(&istart)
	ax0 := topo.Axis()
	ax1 := (ax0 + 1) % 3
	ax2 := (ax0 + 2) % 3
	for i2 := 0; i2 < topo.Nloc(ax2); i2++ {
		for i1 := 0; i1 < topo.Nloc(ax1); i1++ {
			for i0 := 0; i0 < topo.Nloc(ax0); i0++ {
				var g [3]int
				g[ax0] = istart[ax0] + i0
				g[ax1] = istart[ax1] + i1
				g[ax2] = istart[ax2] + i2
				id := topo.LocalIndexAO(i0, i1, i2)
				for f := 0; f < topo.Nf(); f++ {
					data[id+f] = globalValue(g, f)
				}
			}
		}
	}
}

func globalValue(g [3]int, f int) float64 {
	return float64(1+g[0]) + 1e3*float64(g[1]) + 1e6*float64(g[2]) + 0.25*float64(f)
}

// checkGlobal verifies that every local element of topo holds its global
// value, shifted by the given offset.
func checkGlobal(t *testing.T, topo *Topology, data []float64, shift [3]int) {
	var istart [3]int
	topo.IstartGlob(&istart)
	ax0 := topo.Axis()
	ax1 := (ax0 + 1) % 3
	ax2 := (ax0 + 2) % 3
	for i2 := 0; i2 < topo.Nloc(ax2); i2++ {
		for i1 := 0; i1 < topo.Nloc(ax1); i1++ {
			for i0 := 0; i0 < topo.Nloc(ax0); i0++ {
				var g [3]int
				g[ax0] = istart[ax0] + i0 - shift[ax0]
				g[ax1] = istart[ax1] + i1 - shift[ax1]
				g[ax2] = istart[ax2] + i2 - shift[ax2]
				id := topo.LocalIndexAO(i0, i1, i2)
				for f := 0; f < topo.Nf(); f++ {
					want := 0.0
					if g[0] >= 0 && g[1] >= 0 && g[2] >= 0 {
						want = globalValue(g, f)
					}
					if data[id+f] != want {
						t.Fatalf("element %v field %d: got %v want %v", g, f, data[id+f], want)
					}
				}
			}
		}
	}
}

func newBuffer(topos ...*Topology) []float64 {
	n := 0
	for _, tp := range topos {
		if tp.LocMemSize() > n {
			n = tp.LocMemSize()
		}
	}
	return utils.AlignedFloats(n)
}

func TestSwitchTopoForwardBackward(t *testing.T) {
	mpi.Run(4, func(c *mpi.Comm) {
		nglob := [3]int{8, 12, 10}
		tin, err := NewTopology(c, 0, nglob, PencilNproc(0, 4), false, nil, 32)
		require.NoError(t, err)
		tout, err := NewTopology(c, 1, nglob, PencilNproc(1, 4), false, nil, 32)
		require.NoError(t, err)

		data := newBuffer(tin, tout)
		fillGlobal(tin, data)
		sw := NewSwitchTopo(tin, tout, [3]int{}, 0, Persistent)

		sw.Execute(data, types.FORWARD)
		checkGlobal(t, tout, data, [3]int{})

		sw.Execute(data, types.BACKWARD)
		checkGlobal(t, tin, data, [3]int{})
	})
}

func TestSwitchTopoComplex(t *testing.T) {
	mpi.Run(2, func(c *mpi.Comm) {
		nglob := [3]int{6, 4, 8}
		tin, err := NewTopology(c, 2, nglob, PencilNproc(2, 2), true, nil, 32)
		require.NoError(t, err)
		tout, err := NewTopology(c, 0, nglob, PencilNproc(0, 2), true, nil, 32)
		require.NoError(t, err)

		data := newBuffer(tin, tout)
		fillGlobal(tin, data)
		sw := NewSwitchTopo(tin, tout, [3]int{}, 1, WaitAny)
		sw.Execute(data, types.FORWARD)
		checkGlobal(t, tout, data, [3]int{})
		sw.Execute(data, types.BACKWARD)
		checkGlobal(t, tin, data, [3]int{})
	})
}

func TestSwitchTopoShift(t *testing.T) {
	// the physical domain lands at an offset inside a padded topology, the
	// padding stays zero
	mpi.Run(2, func(c *mpi.Comm) {
		small := [3]int{4, 6, 4}
		big := [3]int{8, 6, 4}
		shift := [3]int{4, 0, 0}
		tin, err := NewTopology(c, 0, small, PencilNproc(0, 2), false, nil, 32)
		require.NoError(t, err)
		tout, err := NewTopology(c, 0, big, PencilNproc(0, 2), false, nil, 32)
		require.NoError(t, err)

		data := newBuffer(tin, tout)
		fillGlobal(tin, data)
		sw := NewSwitchTopo(tin, tout, shift, 2, Persistent)
		sw.Execute(data, types.FORWARD)
		checkGlobal(t, tout, data, shift)
		sw.Execute(data, types.BACKWARD)
		checkGlobal(t, tin, data, [3]int{})
	})
}

func TestSwitchTopoStrategiesBitIdentical(t *testing.T) {
	mpi.Run(4, func(c *mpi.Comm) {
		nglob := [3]int{9, 7, 11}
		tin, err := NewTopology(c, 1, nglob, PencilNproc(1, 4), false, nil, 32)
		require.NoError(t, err)
		tout, err := NewTopology(c, 2, nglob, PencilNproc(2, 4), false, nil, 32)
		require.NoError(t, err)

		var results [3][]float64
		for i, strat := range []Strategy{Persistent, WaitAny, Stream} {
			data := newBuffer(tin, tout)
			fillGlobal(tin, data)
			sw := NewSwitchTopo(tin, tout, [3]int{}, 3+i, strat)
			sw.Execute(data, types.FORWARD)
			results[i] = data
		}
		assert.Equal(t, results[0], results[1])
		assert.Equal(t, results[0], results[2])
	})
}
