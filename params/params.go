// Package params holds the YAML description of a validation case.
package params

import (
	"fmt"

	"github.com/ghodss/yaml"
	"github.com/notargets/gopoisson/types"
)

// CaseParameters is the input of the vortex-tube validation driver.
type CaseParameters struct {
	Title     string     `yaml:"Title"`
	Nglob     [3]int     `yaml:"Nglob"`
	Nproc     int        `yaml:"Nproc"`
	Length    [3]float64 `yaml:"Length"`
	Sigma     float64    `yaml:"Sigma"`
	Center    [2]float64 `yaml:"Center"`
	BCs       [3][2]int  `yaml:"BCs"` // boundary codes, first index direction, second left/right
	GreenType int        `yaml:"GreenType"`
}

// Defaults is the 64^3 vortex tube of the validation suite.
func Defaults() CaseParameters {
	return CaseParameters{
		Title:  "vortex tube",
		Nglob:  [3]int{64, 64, 64},
		Nproc:  1,
		Length: [3]float64{1, 1, 1},
		Sigma:  0.05,
		Center: [2]float64{0.5, 0.5},
		BCs: [3][2]int{
			{int(types.UNB), int(types.UNB)},
			{int(types.UNB), int(types.UNB)},
			{int(types.PER), int(types.PER)},
		},
		GreenType: int(types.CHAT2),
	}
}

// Parse overlays the YAML document on the receiver.
func (cp *CaseParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, cp)
}

// BoundaryConditions decodes the boundary bytes.
func (cp *CaseParameters) BoundaryConditions() ([3][2]types.BoundaryType, error) {
	var bc [3][2]types.BoundaryType
	for d := 0; d < 3; d++ {
		for side := 0; side < 2; side++ {
			b := types.BoundaryType(cp.BCs[d][side])
			if !b.Valid() {
				return bc, fmt.Errorf("params: invalid boundary code %d on direction %d", cp.BCs[d][side], d)
			}
			bc[d][side] = b
		}
	}
	return bc, nil
}

// Print dumps the case the way the solver will read it.
func (cp *CaseParameters) Print() {
	fmt.Printf("\"%s\"\t= Title\n", cp.Title)
	fmt.Printf("%v\t= Nglob\n", cp.Nglob)
	fmt.Printf("%d\t\t= Nproc\n", cp.Nproc)
	fmt.Printf("%v\t= Length\n", cp.Length)
	fmt.Printf("%8.5f\t= Sigma\n", cp.Sigma)
	fmt.Printf("%v\t= Center\n", cp.Center)
	keys := []string{"X", "Y", "Z"}
	for d, key := range keys {
		fmt.Printf("BCs[%s] = (%s, %s)\n", key,
			types.BoundaryType(cp.BCs[d][0]), types.BoundaryType(cp.BCs[d][1]))
	}
	fmt.Printf("[%s]\t= Green type\n", types.GreenType(cp.GreenType))
}
