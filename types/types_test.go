package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundaryEncoding(t *testing.T) {
	// the byte values are the wire encoding
	assert.Equal(t, uint8(0), uint8(EVEN))
	assert.Equal(t, uint8(1), uint8(ODD))
	assert.Equal(t, uint8(3), uint8(PER))
	assert.Equal(t, uint8(4), uint8(UNB))
	assert.True(t, EVEN.Valid())
	assert.False(t, BoundaryType(2).Valid())
	assert.Equal(t, "PER", PER.String())
}

func TestGreenEncoding(t *testing.T) {
	assert.Equal(t, uint8(0), uint8(CHAT2))
	assert.Equal(t, uint8(1), uint8(LGF2))
	assert.Equal(t, uint8(4), uint8(HEJ6))
	assert.True(t, HEJ2.Regularized())
	assert.False(t, CHAT2.Regularized())
	assert.Equal(t, "HEJ_4", HEJ4.String())
}
