package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTrackID(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"buy track 9", 9},
		{"buy track id 17 please", 17},
		{"Track ID: 204", 204},
		{"the one with id 3", 3},
		{"Bohemian Rhapsody - Queen ($0.99) [Track ID: 6]", 6},
		{"9", 0},
		{"buy highway to hell", 0},
		{"", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseTrackID(tc.in), "input %q", tc.in)
	}
}

func TestBareInt(t *testing.T) {
	assert.Equal(t, 9, BareInt("9"))
	assert.Equal(t, 42, BareInt("  42  "))
	assert.Equal(t, 0, BareInt("track 9"))
	assert.Equal(t, 0, BareInt("0"))
	assert.Equal(t, 0, BareInt(""))
}

func TestFirstInt(t *testing.T) {
	assert.Equal(t, 2, FirstInt("the 2nd one"))
	assert.Equal(t, 0, FirstInt("none here"))
	assert.Equal(t, 101, FirstInt("play 101 again"))
}

func TestFromContext(t *testing.T) {
	ids := []int{101, 202}

	// An id match beats a positional reading.
	assert.Equal(t, 101, FromContext(ids, 101))

	// Small numbers are 1-based positions.
	assert.Equal(t, 101, FromContext(ids, 1))
	assert.Equal(t, 202, FromContext(ids, 2))

	// Out of range and empty context ground to nothing.
	assert.Equal(t, 0, FromContext(ids, 3))
	assert.Equal(t, 0, FromContext(nil, 1))
	assert.Equal(t, 0, FromContext(ids, 0))
}
