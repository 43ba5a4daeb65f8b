package opinion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

func TestParseClearFeaturesPolicy(t *testing.T) {
	cases := map[string]ClearFeaturesPolicy{
		"no":       Never,
		"":         Never,
		"yes":      EverySentence,
		"YES":      EverySentence,
		"docstart": OnBoundaryMarker,
	}
	for in, want := range cases {
		got, err := ParseClearFeaturesPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseClearFeaturesPolicy("always")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePolicyInvalid))
}

func TestClearFeaturesPolicy_StringRoundTrip(t *testing.T) {
	for _, p := range []ClearFeaturesPolicy{Never, EverySentence, OnBoundaryMarker} {
		got, err := ParseClearFeaturesPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	assert.Equal(t, "unknown", ClearFeaturesPolicy(42).String())
}

func TestShouldResetBefore(t *testing.T) {
	plain := sentenceOf(1, "t", "Nice", "room")
	boundary := sentenceOf(2, "t", "-DOCSTART-", "Intro")

	assert.False(t, ShouldResetBefore(plain, Never))
	assert.False(t, ShouldResetBefore(boundary, Never))

	assert.True(t, ShouldResetBefore(plain, EverySentence))
	assert.True(t, ShouldResetBefore(boundary, EverySentence))

	assert.False(t, ShouldResetBefore(plain, OnBoundaryMarker))
	assert.True(t, ShouldResetBefore(boundary, OnBoundaryMarker))
}

func TestShouldResetAfter(t *testing.T) {
	boundary := sentenceOf(2, "t", "-DOCSTART-")
	assert.True(t, ShouldResetAfter(boundary, EverySentence))
	assert.False(t, ShouldResetAfter(boundary, OnBoundaryMarker))
	assert.False(t, ShouldResetAfter(boundary, Never))
}

type countingState struct{ resets int }

func (c *countingState) ResetAdaptiveState() { c.resets++ }

func TestResetAll(t *testing.T) {
	a, b := &countingState{}, &countingState{}
	ResetAll(a, nil, b)
	assert.Equal(t, 1, a.resets)
	assert.Equal(t, 1, b.resets)
}
