package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_GoldenFixture(t *testing.T) {
	start := StartTime(1541121934796, time.UTC)

	assert.True(t, start.Equal(time.Date(2018, 11, 2, 1, 25, 34, 796_000_000, time.UTC)), "got %s", start)

	row := Calendar(start)
	assert.Equal(t, int32(1), row.Hour)
	assert.Equal(t, int32(2), row.Day)
	assert.Equal(t, int32(44), row.Week)
	assert.Equal(t, int32(11), row.Month)
	assert.Equal(t, int32(2018), row.Year)
	assert.Equal(t, int32(6), row.Weekday, "2018-11-02 is a Friday")
}

func TestCalendar_Conventions(t *testing.T) {
	tests := []struct {
		name    string
		t       time.Time
		week    int32
		weekday int32
	}{
		{name: "sunday is 1", t: time.Date(2018, 11, 4, 12, 0, 0, 0, time.UTC), week: 44, weekday: 1},
		{name: "saturday is 7", t: time.Date(2018, 11, 3, 12, 0, 0, 0, time.UTC), week: 44, weekday: 7},
		{name: "iso week 1 starts in december", t: time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC), week: 1, weekday: 2},
		{name: "iso week 53", t: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), week: 53, weekday: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := Calendar(tt.t)
			assert.Equal(t, tt.week, row.Week)
			assert.Equal(t, tt.weekday, row.Weekday)
		})
	}
}

func TestStartTime_Zone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start := StartTime(1541121934796, ny)
	row := Calendar(start)

	// 01:25 UTC on Nov 2 is 21:25 EDT on Nov 1
	assert.Equal(t, int32(21), row.Hour)
	assert.Equal(t, int32(1), row.Day)
	assert.Equal(t, int32(5), row.Weekday)
	assert.Equal(t, int64(1541121934796), start.UnixMilli())

	assert.Equal(t, time.UTC, StartTime(0, nil).Location())
}
