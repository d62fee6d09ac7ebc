package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectKeyRejectsWrongLengthChroma(t *testing.T) {
	k := DetectKey([]float64{1, 2, 3})
	assert.Equal(t, Key{}, k)
}

func TestDetectKeyFindsDominantPitchClass(t *testing.T) {
	chroma := make([]float64, 12)
	copy(chroma, majorProfile)

	k := DetectKey(chroma)
	assert.Equal(t, "C", k.PitchClass)
	assert.False(t, k.Minor)
	assert.Greater(t, k.Confidence, 0.0)
}

func TestDetectKeyDetectsMinorOverMajor(t *testing.T) {
	chroma := make([]float64, 12)
	copy(chroma, minorProfile)

	k := DetectKey(chroma)
	assert.Equal(t, "C", k.PitchClass)
	assert.True(t, k.Minor)
}
