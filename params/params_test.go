package params

import (
	"testing"

	"github.com/notargets/gopoisson/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	cp := Defaults()
	doc := []byte(`
Title: tilted tube
Nglob: [32, 32, 16]
Sigma: 0.1
BCs:
  - [4, 4]
  - [3, 3]
  - [4, 4]
`)
	require.NoError(t, cp.Parse(doc))
	assert.Equal(t, "tilted tube", cp.Title)
	assert.Equal(t, [3]int{32, 32, 16}, cp.Nglob)
	assert.Equal(t, 0.1, cp.Sigma)
	assert.Equal(t, [2]float64{0.5, 0.5}, cp.Center, "untouched fields keep their defaults")

	bc, err := cp.BoundaryConditions()
	require.NoError(t, err)
	assert.Equal(t, types.PER, bc[1][0])
	assert.Equal(t, types.UNB, bc[2][1])
}

func TestInvalidBoundaryCode(t *testing.T) {
	cp := Defaults()
	cp.BCs[0][0] = 2
	_, err := cp.BoundaryConditions()
	assert.Error(t, err)
}
