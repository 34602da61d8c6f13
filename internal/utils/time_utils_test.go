package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUsesDisplayLocation(t *testing.T) {
	t.Cleanup(func() { displayLoc.Store(time.UTC) })

	ts := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "Mar 1, 2024", FormatDate(ts))
	assert.Equal(t, "Mar 1, 2024 11:30 PM", FormatDateTime(ts))

	require.NoError(t, SetDisplayLocation("Asia/Tokyo"))
	assert.Equal(t, "Mar 2, 2024", FormatDate(ts))
	assert.Equal(t, "Mar 2, 2024 8:30 AM", FormatDateTime(ts))
}

func TestSetDisplayLocationRejectsUnknownZone(t *testing.T) {
	t.Cleanup(func() { displayLoc.Store(time.UTC) })

	assert.Error(t, SetDisplayLocation("Nowhere/Special"))
	assert.Equal(t, time.UTC, GetLocation())
}

func TestZeroTimesRenderEmpty(t *testing.T) {
	assert.Empty(t, FormatDate(time.Time{}))
	assert.Empty(t, FormatDateTime(time.Time{}))
	assert.Empty(t, RelativeTime(time.Time{}))
}

func TestRelativeTime(t *testing.T) {
	assert.Equal(t, "2 hours ago", RelativeTime(time.Now().Add(-2*time.Hour)))
}
