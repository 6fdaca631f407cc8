package transform

import (
	"database/sql"

	"github.com/leapstack-labs/playlake/pkg/core"
)

// FactResult is the assembled song_plays table and its join statistics.
type FactResult struct {
	Plays []core.SongPlay
	// Matched counts events that resolved to at least one song.
	Matched int
	// Unmatched counts events no song resolved to. They are dropped under
	// JoinInner and kept with null ids under JoinLeft.
	Unmatched int
}

type songPlayKey struct {
	startMillis int64
	userID      string
	songID      sql.NullString
	artistID    sql.NullString
	sessionID   int64
	location    sql.NullString
	userAgent   sql.NullString
}

// AssembleFacts joins filtered play events with the catalog. Month and year
// are taken from each event's own start time. The result holds no two rows
// equal in every column.
func AssembleFacts(plays []core.PlayEvent, cat *CatalogTables, strategy JoinStrategy, mode JoinMode) *FactResult {
	if strategy == nil {
		strategy = TitleJoin{}
	}
	match := strategy.Prepare(cat)
	res := &FactResult{}

	var facts []core.SongPlay
	for _, ev := range plays {
		songs := match(ev)
		if len(songs) == 0 {
			res.Unmatched++
			if mode == JoinLeft {
				facts = append(facts, newSongPlay(ev, sql.NullString{}, sql.NullString{}))
			}
			continue
		}
		res.Matched++
		for _, s := range songs {
			facts = append(facts, newSongPlay(ev,
				sql.NullString{String: s.SongID, Valid: true},
				sql.NullString{String: s.ArtistID, Valid: true},
			))
		}
	}

	res.Plays = DistinctBy(facts, func(p core.SongPlay) songPlayKey {
		// month and year are functions of start_time
		return songPlayKey{
			startMillis: p.StartTime.UnixMilli(),
			userID:      p.UserID,
			songID:      p.SongID,
			artistID:    p.ArtistID,
			sessionID:   p.SessionID,
			location:    p.Location,
			userAgent:   p.UserAgent,
		}
	})
	return res
}

func newSongPlay(ev core.PlayEvent, songID, artistID sql.NullString) core.SongPlay {
	cal := Calendar(ev.StartTime)
	return core.SongPlay{
		StartTime: ev.StartTime,
		Month:     cal.Month,
		Year:      cal.Year,
		UserID:    ev.UserID,
		SongID:    songID,
		ArtistID:  artistID,
		SessionID: ev.SessionID,
		Location:  ev.Location,
		UserAgent: ev.UserAgent,
	}
}
