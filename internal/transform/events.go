package transform

import (
	"errors"
	"time"

	"github.com/leapstack-labs/playlake/pkg/core"
)

// EventTables holds the outputs of the event transform.
type EventTables struct {
	Users []core.User
	Times []core.TimeRow
	// Plays are the filtered song-play events. They are kept in memory for
	// fact assembly and never persisted.
	Plays []core.PlayEvent

	Scanned int
	Kept    int
}

// BuildEvents filters raw event records down to song plays, derives their
// start times in loc and projects the users and time dimensions.
//
// Records that are not song plays, including those without a page, are
// dropped before any other field is looked at. A kept record must carry ts, userId and sessionId; a ts that
// cannot be read as an integer is a *core.DerivationError.
func BuildEvents(rs *core.RecordSet, loc *time.Location) (*EventTables, error) {
	out := &EventTables{Scanned: rs.Len()}
	users := make([]core.User, 0, rs.Len())

	for i, rec := range rs.Records {
		f := newFieldReader(rs.Source, i, rec)
		page := f.optStr("page")
		if f.err != nil {
			return nil, f.err
		}
		if !page.Valid || page.String != EventPageSongPlay {
			continue
		}

		ts, err := rec.Int64("ts")
		if err != nil {
			raw, _ := rec.Get("ts")
			derr := &core.DerivationError{Source: rs.Source, Record: i, Field: "ts", Value: raw}
			if !errors.Is(err, core.ErrMissingField) {
				derr.Err = err
			}
			return nil, derr
		}

		play := core.PlayEvent{
			StartTime: StartTime(ts, loc),
			UserID:    f.str("userId"),
			SessionID: f.bigint("sessionId"),
			Song:      f.optStr("song"),
			Artist:    f.optStr("artist"),
			Location:  f.optStr("location"),
			UserAgent: f.optStr("userAgent"),
		}
		user := core.User{
			UserID:    play.UserID,
			FirstName: f.optStr("firstName"),
			LastName:  f.optStr("lastName"),
			Gender:    f.optStr("gender"),
			Level:     f.optStr("level"),
		}
		if f.err != nil {
			return nil, f.err
		}

		out.Plays = append(out.Plays, play)
		users = append(users, user)
	}

	out.Kept = len(out.Plays)
	out.Users = Distinct(users)

	starts := DistinctBy(out.Plays, func(p core.PlayEvent) int64 { return p.StartTime.UnixMilli() })
	out.Times = make([]core.TimeRow, 0, len(starts))
	for _, p := range starts {
		out.Times = append(out.Times, Calendar(p.StartTime))
	}

	return out, nil
}
