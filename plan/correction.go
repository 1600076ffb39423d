package plan

// applyForwardCorrection post-processes the raw forward transform output of
// one strided sequence of length n.
func applyForwardCorrection(corr Correction, row []float64, off, stride, n int) {
	switch corr {
	case CorrDCT:
		// kill the flip-flop mode
		row[off+(n-1)*stride] = 0
	case CorrDST, CorrNDST:
		// the raw sine output holds mode i+1 at index i; shift so that index
		// i holds mode i, dropping the top mode
		for j := n - 1; j > 0; j-- {
			row[off+j*stride] = row[off+(j-1)*stride]
		}
		row[off] = 0
		if corr == CorrNDST {
			for j := 0; j < n; j++ {
				row[off+j*stride] = -row[off+j*stride]
			}
		}
	}
}

// applyBackwardCorrection undoes the forward correction before the raw
// backward transform runs on a sequence of length n.
func applyBackwardCorrection(corr Correction, row []float64, off, stride, n int) {
	switch corr {
	case CorrDCT:
		// the killed mode carries no information, nothing to restore
	case CorrDST, CorrNDST:
		if corr == CorrNDST {
			for j := 0; j < n; j++ {
				row[off+j*stride] = -row[off+j*stride]
			}
		}
		for j := 0; j < n-1; j++ {
			row[off+j*stride] = row[off+(j+1)*stride]
		}
		row[off+(n-1)*stride] = 0
	}
}
