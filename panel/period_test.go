package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessPeriodsSkipsWeekends(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(time.DateOnly, s)
		require.NoError(t, err)
		return d
	}
	ts := []time.Time{
		day("2024-06-03"), // Mon
		day("2024-06-04"), // Tue
		day("2024-06-07"), // Fri
		day("2024-06-10"), // Mon
	}

	periods, err := BusinessPeriods(ts, nil)
	require.NoError(t, err)

	// consecutive weekdays are one period apart
	assert.Equal(t, 1, periods[1]-periods[0])
	// Fri to Mon crosses a weekend but stays one period apart
	assert.Equal(t, 1, periods[3]-periods[2])
	// Tue to Fri spans three business days
	assert.Equal(t, 3, periods[2]-periods[1])
}

func TestBusinessPeriodsUnsortedInput(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(time.DateOnly, s)
		require.NoError(t, err)
		return d
	}
	ts := []time.Time{day("2024-06-05"), day("2024-06-03")}

	periods, err := BusinessPeriods(ts, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, periods[0]-periods[1])
}

func TestBusinessPeriodsEmpty(t *testing.T) {
	_, err := BusinessPeriods(nil, nil)
	assert.ErrorIs(t, err, ErrNoTimestamps)
}

func TestYearPeriods(t *testing.T) {
	ts := []time.Time{
		time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	periods, err := YearPeriods(ts)
	require.NoError(t, err)
	assert.Equal(t, []int{2019, 2021}, periods)

	_, err = YearPeriods(nil)
	assert.ErrorIs(t, err, ErrNoTimestamps)
}
