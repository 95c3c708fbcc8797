package snowflake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextMessageID(t *testing.T) {
	require.NoError(t, Init(1, 1))

	a, err := NextMessageID("reminder")
	require.NoError(t, err)
	b, err := NextMessageID("reminder")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "reminder_"))
	assert.NotEqual(t, a, b)
}
