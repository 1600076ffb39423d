/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"os"

	"github.com/notargets/gopoisson/mpi"
	"github.com/notargets/gopoisson/params"
	"github.com/notargets/gopoisson/pencil"
	"github.com/notargets/gopoisson/solver"
	"github.com/notargets/gopoisson/types"
	"github.com/notargets/gopoisson/utils"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

// vtubeCmd runs the vortex-tube validation case
var vtubeCmd = &cobra.Command{
	Use:   "vtube",
	Short: "Vortex tube validation of the unbounded-periodic solver",
	Long: `
Solves the streamfunction of a Gaussian vortex tube aligned with the periodic
direction and reports the L2 and Linf error of the azimuthal velocity against
the analytic profile.

gopoisson vtube`,
	Run: func(cmd *cobra.Command, args []string) {
		cp := params.Defaults()
		if file, _ := cmd.Flags().GetString("case"); file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			if err = cp.Parse(data); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}
		if n, _ := cmd.Flags().GetInt("n"); n > 0 {
			cp.Nglob = [3]int{n, n, n}
		}
		if np, _ := cmd.Flags().GetInt("np"); np > 0 {
			cp.Nproc = np
		}
		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		}
		cp.Print()
		RunVTube(cp)
	},
}

func init() {
	rootCmd.AddCommand(vtubeCmd)
	vtubeCmd.Flags().StringP("case", "c", "", "YAML case file overriding the default vortex tube")
	vtubeCmd.Flags().IntP("n", "n", 0, "override the grid size, n^3")
	vtubeCmd.Flags().Int("np", 0, "number of ranks")
	vtubeCmd.Flags().Bool("profile", false, "write a CPU profile")
}

// RunVTube solves the case and prints the velocity error norms.
func RunVTube(cp params.CaseParameters) {
	bc, err := cp.BoundaryConditions()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	var h [3]float64
	for d := 0; d < 3; d++ {
		h[d] = cp.Length[d] / float64(cp.Nglob[d])
	}

	mpi.Run(cp.Nproc, func(c *mpi.Comm) {
		prof := utils.NewTimer("vtube")
		topo, err := pencil.NewTopology(c, 0, cp.Nglob, pencil.PencilNproc(0, c.Size()), false, nil, utils.Alignment)
		if err != nil {
			c.Abort(err.Error())
		}
		s, err := solver.New(topo, bc, h, cp.Length, &solver.Options{
			GreenType: types.GreenType(cp.GreenType),
			Timer:     prof,
		})
		if err != nil {
			c.Abort(err.Error())
		}
		if err = s.Setup(false); err != nil {
			c.Abort(err.Error())
		}

		rhs := utils.AlignedFloats(topo.LocMemSize())
		psi := utils.AlignedFloats(topo.LocMemSize())
		var istart [3]int
		topo.IstartGlob(&istart)
		sig2 := cp.Sigma * cp.Sigma
		fillCells(topo, func(id int, g [3]int) {
			x := (float64(g[0]) + 0.5) * h[0]
			y := (float64(g[1]) + 0.5) * h[1]
			r2 := (x-cp.Center[0])*(x-cp.Center[0]) + (y-cp.Center[1])*(y-cp.Center[1])
			rhs[id] = -1.0 / (2.0 * math.Pi * sig2) * math.Exp(-0.5*r2/sig2)
		})

		if err = s.Solve(psi, rhs, types.SRHS); err != nil {
			c.Abort(err.Error())
		}

		// azimuthal velocity by central differences on the interior cells
		var errs, refs []float64
		fillCells(topo, func(id int, g [3]int) {
			if g[0] == 0 || g[0] == cp.Nglob[0]-1 || g[1] == 0 || g[1] == cp.Nglob[1]-1 {
				return
			}
			lx := g[0] - istart[0]
			ly := g[1] - istart[1]
			lz := g[2] - istart[2]
			if lx < 1 || lx > topo.Nloc(0)-2 || ly < 1 || ly > topo.Nloc(1)-2 {
				return // rank-boundary halo, skipped in the distributed norm
			}
			x := (float64(g[0]) + 0.5) * h[0]
			y := (float64(g[1]) + 0.5) * h[1]
			ux := (psi[topo.LocalIndexXYZ(lx, ly+1, lz)] - psi[topo.LocalIndexXYZ(lx, ly-1, lz)]) / (2 * h[1])
			uy := -(psi[topo.LocalIndexXYZ(lx+1, ly, lz)] - psi[topo.LocalIndexXYZ(lx-1, ly, lz)]) / (2 * h[0])
			r := math.Hypot(x-cp.Center[0], y-cp.Center[1])
			if r < 2*h[0] {
				return
			}
			want := (1.0 - math.Exp(-0.5*r*r/sig2)) / (2.0 * math.Pi * r)
			errs = append(errs, math.Hypot(ux, uy)-want)
			refs = append(refs, want)
		})
		err2 := c.AllreduceSum(floats.Dot(errs, errs))
		ref2 := c.AllreduceSum(floats.Dot(refs, refs))
		errInf := c.AllreduceMax(floats.Norm(errs, math.Inf(1)))

		if c.Rank() == 0 {
			fmt.Printf("vtube %dx%dx%d on %d ranks: L2 = %.6e, Linf = %.6e\n",
				cp.Nglob[0], cp.Nglob[1], cp.Nglob[2], c.Size(),
				math.Sqrt(err2/ref2), errInf)
			prof.Disp()
		}
	})
}

// fillCells visits the local cells with their global indices.
func fillCells(topo *pencil.Topology, f func(id int, g [3]int)) {
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
