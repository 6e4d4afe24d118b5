package mcproto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadNextStateRejectsUnknownValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVarInt(&buf, 0))

	_, err := ReadNextState(&buf)
	require.Error(t, err)
	assert.IsType(t, &UnexpectedEnumVariantError{}, err)
}

func TestNextStateRoundTrip(t *testing.T) {
	for _, n := range []NextState{NextStateStatus, NextStateLogin} {
		var buf bytes.Buffer
		require.NoError(t, WriteNextState(&buf, n))
		got, err := ReadNextState(&buf)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}
