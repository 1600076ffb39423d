// Package green fills the discrete Green's function of the solver for the
// four unbounded/spectral configurations and holds the analytic kernels.
package green

import (
	"fmt"
	"math"

	"github.com/notargets/gopoisson/pencil"
	"github.com/notargets/gopoisson/plan"
	"github.com/notargets/gopoisson/types"
	"github.com/notargets/gopoisson/utils"
)

// dirInfo is the per-physical-dimension view of the Green plans.
type dirInfo struct {
	isSpectral [3]bool
	symstart   [3]float64
	hfact      [3]float64
	kfact      [3]float64
	koffset    [3]float64
	nbrSpec    int
}

func gatherDirInfo(plans [3]*plan.PlanDim, hgrid [3]float64) dirInfo {
	var di dirInfo
	for _, p := range plans {
		d := p.DimID()
		di.isSpectral[d] = p.IsSpectral()
		di.symstart[d] = p.Symstart()
		di.hfact[d] = hgrid[d]
		if p.IsSpectral() {
			di.hfact[d] = 0
			di.kfact[d] = p.Kfact()
			di.koffset[d] = p.Koffset()
			di.nbrSpec++
		}
	}
	return di
}

// Fill computes the Green's function in the fill topology. plans are the
// three Green plans in sorted order; alpha is the regularization parameter of
// the HEJ kernels (epsilon = alpha * h).
func Fill(topo *pencil.Topology, plans [3]*plan.PlanDim, hgrid [3]float64,
	typeGreen types.GreenType, alpha float64, data []float64) error {

	di := gatherDirInfo(plans, hgrid)
	eps := alpha * hgrid[0]

	if typeGreen.Regularized() && (hgrid[0] != hgrid[1] || hgrid[1] != hgrid[2]) {
		return fmt.Errorf("green: the regularized kernels require dx = dy = dz, got %v", hgrid)
	}
	if typeGreen != types.CHAT2 && di.nbrSpec > 0 {
		return fmt.Errorf("green: kernel %v is not implemented with %d spectral directions",
			typeGreen, di.nbrSpec)
	}

	utils.Infof("green: type %v with %d spectral directions", typeGreen, di.nbrSpec)
	switch di.nbrSpec {
	case 0:
		return fill3DirUnbounded(topo, di, typeGreen, eps, hgrid, data)
	case 1:
		fill2Dir1Spec(topo, di, data)
	case 2:
		fill1Dir2Spec(topo, di, data)
	case 3:
		fill0Dir3Spec(topo, di, data)
	}
	return nil
}

// symIdx replaces a global index beyond the reflection center: on an
// unbounded axis by its positive mirror (clamped away from 0 so kernel
// evaluations never divide by zero at the padding cell), on a spectral axis
// by the negative mode preserving the sign of k.
func symIdx(ie int, symstart float64, spectral bool) int {
	if symstart == 0 || float64(ie) <= symstart {
		return ie
	}
	twoSym := int(math.Round(2 * symstart))
	if !spectral {
		m := twoSym - ie
		if m < 0 {
			m = -m
		}
		if m < 1 {
			m = 1
		}
		return m
	}
	m := ie - twoSym
	if m > -1 {
		m = -1
	}
	return m
}

// store writes the (real) kernel value of one element, zeroing the imaginary
// part on a complex topology.
func store(topo *pencil.Topology, data []float64, id int, v float64) {
	data[id] = v
	if topo.Nf() == 2 {
		data[id+1] = 0
	}
}

// forEach walks the local block in axis order and hands the callback the
// memory offset together with the symmetrized global index and the
// spectral/spatial coordinate of every dimension.
func forEach(topo *pencil.Topology, di dirInfo, f func(id int, is [3]int, x, k [3]float64)) {
	ax0 := topo.Axis()
	ax1 := (ax0 + 1) % 3
	ax2 := (ax0 + 2) % 3
	var istart [3]int
	topo.IstartGlob(&istart)

	var is [3]int
	var x, k [3]float64
	for i2 := 0; i2 < topo.Nloc(ax2); i2++ {
		for i1 := 0; i1 < topo.Nloc(ax1); i1++ {
			for i0 := 0; i0 < topo.Nloc(ax0); i0++ {
				var ie [3]int
				ie[ax0] = istart[ax0] + i0
				ie[ax1] = istart[ax1] + i1
				ie[ax2] = istart[ax2] + i2
				for d := 0; d < 3; d++ {
					is[d] = symIdx(ie[d], di.symstart[d], di.isSpectral[d])
					x[d] = float64(is[d]) * di.hfact[d]
					k[d] = (float64(is[d]) + di.koffset[d]) * di.kfact[d]
				}
				f(topo.LocalIndexAO(i0, i1, i2), is, x, k)
			}
		}
	}
}

// fill3DirUnbounded fills the kernel directly in physical space.
func fill3DirUnbounded(topo *pencil.Topology, di dirInfo, typeGreen types.GreenType,
	eps float64, hgrid [3]float64, data []float64) error {

	if typeGreen == types.LGF2 {
		return fillLGF(topo, di, hgrid, data)
	}
	g, g0 := selectKernel(typeGreen, hgrid, eps)
	forEach(topo, di, func(id int, is [3]int, x, _ [3]float64) {
		if is[0] == 0 && is[1] == 0 && is[2] == 0 {
			store(topo, data, id, -g0)
			return
		}
		r := math.Sqrt(x[0]*x[0] + x[1]*x[1] + x[2]*x[2])
		store(topo, data, id, -g(r))
	})
	return nil
}

// fill2Dir1Spec fills, for each mode of the one spectral direction, the 2D
// free-space kernel of the remaining plane: K0 for k != 0, log for the mean
// mode, with an equivalent-radius regularization on the r = 0 line.
func fill2Dir1Spec(topo *pencil.Topology, di dirInfo, data []float64) {
	// the equivalent radius of one cell of the unbounded plane
	hh := 1.0
	for d := 0; d < 3; d++ {
		if !di.isSpectral[d] {
			hh *= di.hfact[d]
		}
	}
	rEq := math.Sqrt(hh) / math.SqrtPi

	forEach(topo, di, func(id int, is [3]int, x, k [3]float64) {
		k0 := 0.0
		for d := 0; d < 3; d++ {
			if di.isSpectral[d] {
				k0 = k[d]
			}
		}
		r := math.Sqrt(x[0]*x[0] + x[1]*x[1] + x[2]*x[2])
		var v float64
		switch {
		case r == 0 && k0 == 0:
			v = 0.25 * c1o2Pi * (math.Pi - 6.0 + 2.0*math.Log(0.5*math.Pi*rEq))
		case r == 0:
			kr := math.Abs(k0) * rEq
			v = -(1.0 - kr*utils.BesselK1(kr)) * c1oPi / (kr * kr)
		case k0 == 0:
			v = c1o2Pi * math.Log(r)
		default:
			v = -c1o2Pi * utils.BesselK0(math.Abs(k0)*r)
		}
		store(topo, data, id, v)
	})
}

// fill1Dir2Spec fills the kernel of one unbounded direction against the two
// spectral wave numbers.
func fill1Dir2Spec(topo *pencil.Topology, di dirInfo, data []float64) {
	forEach(topo, di, func(id int, is [3]int, x, k [3]float64) {
		kk := 0.0
		xx := 0.0
		for d := 0; d < 3; d++ {
			if di.isSpectral[d] {
				kk += k[d] * k[d]
			} else {
				xx = math.Abs(x[d])
			}
		}
		kn := math.Sqrt(kk)
		var v float64
		if kn == 0 {
			v = 0.5 * xx
		} else {
			v = -0.5 * math.Exp(-kn*xx) / kn
		}
		store(topo, data, id, v)
	})
}

// fill0Dir3Spec fills the fully spectral kernel -1/k^2, killing the zero
// mode by convention.
func fill0Dir3Spec(topo *pencil.Topology, di dirInfo, data []float64) {
	forEach(topo, di, func(id int, is [3]int, _, k [3]float64) {
		ksqr := k[0]*k[0] + k[1]*k[1] + k[2]*k[2]
		if ksqr == 0 {
			store(topo, data, id, 0)
			return
		}
		store(topo, data, id, -1.0/ksqr)
	})
}
