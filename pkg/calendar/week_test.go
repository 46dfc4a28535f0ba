package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekRange(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	r, err := WeekRange(2024, 1, paris)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, paris), r.Start)
	assert.Equal(t, time.Date(2024, time.January, 7, 23, 59, 59, 999999999, paris), r.End)

	// 2021 week 1 starts on January 4th.
	r, err = WeekRange(2021, 1, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC), r.Start)

	r, err = WeekRange(2020, 53, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, time.December, 28, 0, 0, 0, 0, time.UTC), r.Start)
}

func TestWeekRangeRejectsOutOfRange(t *testing.T) {
	_, err := WeekRange(2024, 0, nil)
	assert.Error(t, err)
	_, err = WeekRange(2024, 53, nil)
	assert.Error(t, err)
}

func TestCurrentWeek(t *testing.T) {
	year, week := CurrentWeek(time.Date(2024, time.December, 30, 12, 0, 0, 0, time.UTC), nil)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 1, week)

	year, week = CurrentWeek(time.Date(2027, time.January, 1, 12, 0, 0, 0, time.UTC), nil)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 53, week)
	assert.Equal(t, 53, WeeksInYear(2026))

	assert.Equal(t, 53, WeeksInYear(2020))
	assert.Equal(t, 52, WeeksInYear(2024))
}
