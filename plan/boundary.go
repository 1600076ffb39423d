// Package plan holds the per-direction transform plans of the solver: the
// boundary-condition analysis that picks a transform family, the sizing dry
// run, and the execution of the 1D transforms over the pencils of a topology.
package plan

import (
	"sort"

	"github.com/notargets/gopoisson/types"
)

// Category is the transform family of one direction, computed from the sum of
// its two boundary condition codes. The numeric value is the processing
// priority: real-to-real first (sizes unchanged, data stays real), then the
// padded real-to-real, then the periodic DFT which introduces complex
// interleaving, and last the fully unbounded which doubles and goes complex.
type Category int

const (
	SYMSYM Category = 2  // EE, EO/OE, OO: DCT / DST
	MIXUNB Category = 5  // UE/EU, UO/OU: zero-pad to 2x, r2r
	PERPER Category = 6  // periodic: r2c forward, c2r backward
	UNBUNB Category = 8  // zero-pad to 2x, r2c/c2r
	EMPTY  Category = 18 // direction not used
)

// BcToType returns the integer sum of a boundary condition pair.
func BcToType(bc [2]types.BoundaryType) int {
	return int(bc[0]) + int(bc[1])
}

// categoryOf maps the boundary sum to its transform family.
func categoryOf(bc [2]types.BoundaryType) Category {
	sum := BcToType(bc)
	switch {
	case sum <= 2:
		return SYMSYM
	case sum == 4 || sum == 5:
		return MIXUNB
	case sum == 6:
		return PERPER
	case sum == 8:
		return UNBUNB
	}
	return EMPTY
}

// SortPlans orders the three directional plans by non-decreasing category,
// ties broken by the smaller original direction index.
func SortPlans(plans []*PlanDim) {
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].category != plans[j].category {
			return plans[i].category < plans[j].category
		}
		return plans[i].dimID < plans[j].dimID
	})
}
