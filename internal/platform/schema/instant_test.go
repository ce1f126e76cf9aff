package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigepren/sigepren/internal/platform/apperr"
)

func TestParseISO(t *testing.T) {
	want := time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-05-10T14:00:00Z",
		"2024-05-10T10:00:00-04:00",
		"2024-05-10T14:00:00",
		" 2024-05-10 14:00 ",
	} {
		got, err := ParseISO(in, "start_at")
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want), in)
		assert.Equal(t, time.UTC, got.Location(), in)
	}

	day, err := ParseISO("2024-05-10", "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), day)

	day, err = ParseISO("2024-5-1", "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), day)

	_, err = ParseISO("10/05/2024", "start_at")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "start_at no es un ISO 8601 válido", appErr.Message)

	_, err = ParseISO(12, "end_at")
	assert.EqualError(t, err, "end_at debe ser un string ISO 8601")
}
