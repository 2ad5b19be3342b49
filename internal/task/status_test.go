package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	testCases := []struct {
		from, to Status
		allowed  bool
	}{
		{NotStarted, WaitingForResources, true},
		{WaitingForResources, NotStarted, true},
		{NotStarted, Success, true},
		{NotStarted, Failed, true},
		{WaitingForResources, Success, true},
		{WaitingForResources, Failed, true},
		{NotStarted, NotStarted, false},
		{Success, Failed, false},
		{Success, NotStarted, false},
		{Failed, Success, false},
		{Failed, WaitingForResources, false},
		{Status(9), NotStarted, false},
	}

	for _, tc := range testCases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			err := Transition(tc.from, tc.to)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, NotStarted.Terminal())
	assert.False(t, WaitingForResources.Terminal())
	assert.True(t, Success.Terminal())
	assert.True(t, Failed.Terminal())
}

func TestStatus_TextRoundTrip(t *testing.T) {
	for _, s := range []Status{NotStarted, WaitingForResources, Success, Failed} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		parsed, err := ParseStatus(string(text))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := Status(42).MarshalText()
	assert.Error(t, err)
	_, err = ParseStatus("RUNNING")
	assert.Error(t, err)
}
