package green

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/notargets/gopoisson/pencil"
	"github.com/notargets/gopoisson/utils"
)

// lgfCutoff is the extent of the tabulated 3D lattice kernel; offsets beyond
// it fall back to the asymptotic form.
const lgfCutoff = 64

// lgfPath assembles the kernel file path from the GOPOISSON_KERNEL_PATH
// environment variable (current directory when unset).
func lgfPath(dim, n int) string {
	root := os.Getenv("GOPOISSON_KERNEL_PATH")
	if root == "" {
		root = "."
	}
	return filepath.Join(root, fmt.Sprintf("LGF_%dd_sym_acc12_%d.ker", dim, n))
}

// lgfReadFile loads the tabulated lattice Green's function: n^3 doubles in
// native endianness.
func lgfReadFile(dim int) (n int, data []float64, err error) {
	if dim != 3 {
		return 0, nil, fmt.Errorf("green: the lattice kernel is only available in 3D, got %dD", dim)
	}
	n = lgfCutoff
	path := lgfPath(dim, n)
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, fmt.Errorf("green: unable to read the LGF kernel file %s: %w", path, err)
	}
	size := n * n * n
	if len(raw) < 8*size {
		return 0, nil, fmt.Errorf("green: LGF kernel file %s holds %d bytes, need %d", path, len(raw), 8*size)
	}
	data = make([]float64, size)
	for i := range data {
		data[i] = math.Float64frombits(binary.NativeEndian.Uint64(raw[8*i:]))
	}
	utils.Infof("green: loaded LGF kernel %s", path)
	return n, data, nil
}

// fillLGF fills the lattice Green's function: tabulated values within the
// cutoff, the leading free-space asymptotic beyond. The tabulated kernel is
// dimensionless; physical values scale with 1/h.
func fillLGF(topo *pencil.Topology, di dirInfo, hgrid [3]float64, data []float64) error {
	if hgrid[0] != hgrid[1] || hgrid[1] != hgrid[2] {
		return fmt.Errorf("green: the lattice kernel requires dx = dy = dz, got %v", hgrid)
	}
	n, tab, err := lgfReadFile(3)
	if err != nil {
		return err
	}
	ooh := 1.0 / hgrid[0]
	forEach(topo, di, func(id int, is [3]int, _, _ [3]float64) {
		i0, i1, i2 := is[0], is[1], is[2]
		var v float64
		if i0 < n && i1 < n && i2 < n {
			v = tab[i0+n*(i1+n*i2)] * ooh
		} else {
			rho := math.Sqrt(float64(i0*i0 + i1*i1 + i2*i2))
			v = c1o4Pi / rho * ooh
		}
		store(topo, data, id, -v)
	})
	return nil
}
