// Package transform turns raw catalog and event records into the
// dimensional tables and assembles the song_plays fact table.
//
// Every function here is pure: outputs depend only on the full input set,
// never on record order.
package transform

import (
	"time"

	"github.com/leapstack-labs/playlake/pkg/core"
)

// EventPageSongPlay is the page value that marks a song-play event.
const EventPageSongPlay = "NextSong"

// StartTime converts a millisecond epoch into a timestamp in loc.
func StartTime(ts int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(ts).In(loc)
}

// Calendar derives the time dimension row for t, in t's location.
//
// Week is the ISO-8601 week number. Weekday counts from 1 = Sunday to
// 7 = Saturday.
func Calendar(t time.Time) core.TimeRow {
	_, week := t.ISOWeek()
	return core.TimeRow{
		StartTime: t,
		Hour:      int32(t.Hour()),
		Day:       int32(t.Day()),
		Week:      int32(week),
		Month:     int32(t.Month()),
		Year:      int32(t.Year()),
		Weekday:   int32(t.Weekday()) + 1,
	}
}
