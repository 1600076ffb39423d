package solver

import (
	"github.com/notargets/gopoisson/utils"
)

// convolve multiplies the spectral field by the spectral Green kernel with
// the normalization factor and the accumulated (+/-1, +/-i) factor of the
// sine transforms.
func (s *Solver) convolve(slab []float64) {
	hat := s.topoHat[2]
	grn := s.topoGreen[2]
	utils.Checkf(hat.Axis() == grn.Axis(), "field and Green must share the final axis")
	m := ((s.nbrImult % 4) + 4) % 4

	if !hat.IsComplex() {
		utils.Checkf(!grn.IsComplex(), "a real field needs a real Green kernel")
		utils.Checkf(m == 0, "nbr_imult = %d is not possible on real data", s.nbrImult)
		s.magicReal(slab)
		return
	}
	utils.Checkf(grn.IsComplex(), "a complex field needs a complex Green kernel")
	s.magicComplex(slab, m)
}

func (s *Solver) magicReal(slab []float64) {
	hat := s.topoHat[2]
	grn := s.topoGreen[2]
	ax0 := hat.Axis()
	ax1 := (ax0 + 1) % 3
	ax2 := (ax0 + 2) % 3
	nf := s.normfact
	for i2 := 0; i2 < hat.Nloc(ax2); i2++ {
		for i1 := 0; i1 < hat.Nloc(ax1); i1++ {
			id := hat.LocalIndexAO(0, i1, i2)
			idG := grn.LocalIndexAO(0, i1, i2)
			for i0 := 0; i0 < hat.Nloc(ax0); i0++ {
				slab[id+i0] *= nf * s.greenBuf[idG+i0]
			}
		}
	}
}

// magicComplex performs the complex convolution with the factor selected by
// nbr_imult mod 4: 1, -i, -1, +i.
func (s *Solver) magicComplex(slab []float64, m int) {
	hat := s.topoHat[2]
	grn := s.topoGreen[2]
	ax0 := hat.Axis()
	ax1 := (ax0 + 1) % 3
	ax2 := (ax0 + 2) % 3
	nf := s.normfact
	for i2 := 0; i2 < hat.Nloc(ax2); i2++ {
		for i1 := 0; i1 < hat.Nloc(ax1); i1++ {
			id := hat.LocalIndexAO(0, i1, i2)
			idG := grn.LocalIndexAO(0, i1, i2)
			for i0 := 0; i0 < hat.Nloc(ax0); i0++ {
				a, b := slab[id], slab[id+1]
				c, d := s.greenBuf[idG], s.greenBuf[idG+1]
				re := nf * (a*c - b*d)
				im := nf * (a*d + b*c)
				switch m {
				case 0:
					slab[id], slab[id+1] = re, im
				case 1:
					slab[id], slab[id+1] = im, -re
				case 2:
					slab[id], slab[id+1] = -re, -im
				case 3:
					slab[id], slab[id+1] = -im, re
				}
				id += 2
				idG += 2
			}
		}
	}
}

// waveNumbers returns the per-dimension spectral factors of the forward
// plans, indexed by physical dimension.
func (s *Solver) waveNumbers() (kfact, koffset, symstart [3]float64) {
	for ip := 0; ip < 3; ip++ {
		p := s.planFwd[ip]
		d := p.DimID()
		kfact[d] = p.Kfact()
		koffset[d] = p.Koffset()
		symstart[d] = p.Symstart()
	}
	return
}

// spectralK maps a global spectral index to its wave number, reflecting the
// modes beyond the symmetry point to negative k.
func spectralK(ie int, kfact, koffset, symstart float64) float64 {
	i := ie
	if symstart != 0 && float64(ie) > symstart {
		i = ie - int(2*symstart+0.5)
		if i > -1 {
			i = -1
		}
	}
	return (float64(i) + koffset) * kfact
}

// forEachSpectral walks the final spectral topology handing out the memory
// offsets of field and Green and the wave-number vector.
func (s *Solver) forEachSpectral(f func(id, idG int, k [3]float64)) {
	hat := s.topoHat[2]
	grn := s.topoGreen[2]
	ax0 := hat.Axis()
	ax1 := (ax0 + 1) % 3
	ax2 := (ax0 + 2) % 3
	kfact, koffset, symstart := s.waveNumbers()
	var istart [3]int
	hat.IstartGlob(&istart)
	var k [3]float64
	for i2 := 0; i2 < hat.Nloc(ax2); i2++ {
		k[ax2] = spectralK(istart[ax2]+i2, kfact[ax2], koffset[ax2], symstart[ax2])
		for i1 := 0; i1 < hat.Nloc(ax1); i1++ {
			k[ax1] = spectralK(istart[ax1]+i1, kfact[ax1], koffset[ax1], symstart[ax1])
			id := hat.LocalIndexAO(0, i1, i2)
			idG := grn.LocalIndexAO(0, i1, i2)
			for i0 := 0; i0 < hat.Nloc(ax0); i0++ {
				k[ax0] = spectralK(istart[ax0]+i0, kfact[ax0], koffset[ax0], symstart[ax0])
				f(id+2*i0, idG+2*i0, k)
			}
		}
	}
}

// magicRot replaces the three spectral components by the convolution of the
// spectral curl: psi_hat = G * (i k x w_hat).
func (s *Solver) magicRot() {
	s0, s1, s2 := s.slab(0), s.slab(1), s.slab(2)
	nf := s.normfact
	s.forEachSpectral(func(id, idG int, k [3]float64) {
		wx := complex(s0[id], s0[id+1])
		wy := complex(s1[id], s1[id+1])
		wz := complex(s2[id], s2[id+1])
		g := complex(s.greenBuf[idG], s.greenBuf[idG+1])
		cx := complex(0, k[1])*wz - complex(0, k[2])*wy
		cy := complex(0, k[2])*wx - complex(0, k[0])*wz
		cz := complex(0, k[0])*wy - complex(0, k[1])*wx
		px := g * cx * complex(nf, 0)
		py := g * cy * complex(nf, 0)
		pz := g * cz * complex(nf, 0)
		s0[id], s0[id+1] = real(px), imag(px)
		s1[id], s1[id+1] = real(py), imag(py)
		s2[id], s2[id+1] = real(pz), imag(pz)
	})
}

// magicDiv replaces the first spectral component by the convolution of the
// spectral divergence: u_hat = G * (i k . f_hat).
func (s *Solver) magicDiv() {
	s0, s1, s2 := s.slab(0), s.slab(1), s.slab(2)
	nf := s.normfact
	s.forEachSpectral(func(id, idG int, k [3]float64) {
		fx := complex(s0[id], s0[id+1])
		fy := complex(s1[id], s1[id+1])
		fz := complex(s2[id], s2[id+1])
		g := complex(s.greenBuf[idG], s.greenBuf[idG+1])
		div := complex(0, k[0])*fx + complex(0, k[1])*fy + complex(0, k[2])*fz
		p := g * div * complex(nf, 0)
		s0[id], s0[id+1] = real(p), imag(p)
	})
}
