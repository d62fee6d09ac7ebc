package acquire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeCollapsesAndLowercases(t *testing.T) {
	assert.Equal(t, "daft_punk", Sanitize("Daft!!  Punk"))
	assert.Equal(t, "a_b_c", Sanitize("A___B___C"))
	assert.Equal(t, "trackname", Sanitize("TrackName"))
}

func TestObjectKeyIsDeterministic(t *testing.T) {
	k1 := ObjectKey("Daft Punk", "One More Time")
	k2 := ObjectKey("Daft Punk", "One More Time")
	assert.Equal(t, k1, k2)
	assert.Equal(t, "audio/daft_punk/one_more_time.mp3", k1)
}

func TestFreshObjectKeyIsUnique(t *testing.T) {
	k1 := freshObjectKey("Daft Punk", "One More Time")
	k2 := freshObjectKey("Daft Punk", "One More Time")
	assert.NotEqual(t, k1, k2)
	assert.Contains(t, k1, "audio/daft_punk/one_more_time_")
}
