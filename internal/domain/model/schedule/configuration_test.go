package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollover(t *testing.T) {
	cfg := Configuration{
		Enabled:             true,
		AlreadyClockedToday: true,
		LastRunDate:         "2024-01-09",
	}

	changed := Rollover(&cfg, wednesday)
	require.True(t, changed)
	assert.False(t, cfg.AlreadyClockedToday)
	assert.Equal(t, "2024-01-10", cfg.LastRunDate)

	snapshot := cfg
	changed = Rollover(&cfg, wednesday.Add(3*time.Hour))
	assert.False(t, changed, "second rollover on the same day must be a no-op")
	assert.Equal(t, snapshot, cfg)
}

func TestRollover_KeepsClockedFlagOnSameDay(t *testing.T) {
	cfg := Configuration{AlreadyClockedToday: true, LastRunDate: "2024-01-10"}

	assert.False(t, Rollover(&cfg, wednesday))
	assert.True(t, cfg.AlreadyClockedToday)
}

func TestISOWeekday(t *testing.T) {
	monday := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	for i, want := range []int{1, 2, 3, 4, 5, 6, 7} {
		assert.Equal(t, want, ISOWeekday(monday.AddDate(0, 0, i)))
	}
}

func TestRandomWindow(t *testing.T) {
	cfg := Configuration{RandomWindowMinutes: [2]int{2, 10}}
	lo, hi := cfg.RandomWindow()
	assert.Equal(t, 2*time.Minute, lo)
	assert.Equal(t, 10*time.Minute, hi)

	cfg.RandomWindowMinutes = [2]int{5, 1}
	lo, hi = cfg.RandomWindow()
	assert.Equal(t, lo, hi)
}

func TestSkipDates(t *testing.T) {
	cfg := DefaultConfiguration()

	assert.True(t, cfg.AddSkipDate("2024-01-10"))
	assert.False(t, cfg.AddSkipDate("2024-01-10"))
	assert.Equal(t, []string{"2024-01-10"}, cfg.SkipDates)

	assert.True(t, cfg.RemoveSkipDate("2024-01-10"))
	assert.False(t, cfg.RemoveSkipDate("2024-01-10"))
	assert.Empty(t, cfg.SkipDates)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", FormatDate(d))

	_, err = ParseDate("notes", time.UTC)
	assert.Error(t, err)
}
