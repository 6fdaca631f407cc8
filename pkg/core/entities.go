package core

import (
	"database/sql"
	"time"
)

// Output table names.
const (
	TableSongs     = "songs"
	TableArtists   = "artists"
	TableUsers     = "users"
	TableTime      = "time"
	TableSongPlays = "song_plays"
)

// Song is one row of the songs dimension. Year 0 means unknown.
type Song struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int32
	Duration float64
}

// Artist is one row of the artists dimension.
type Artist struct {
	ArtistID  string
	Name      string
	Location  sql.NullString
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64
}

// User is one row of the users dimension. A user whose level changed during
// the logged period appears once per distinct level.
type User struct {
	UserID    string
	FirstName sql.NullString
	LastName  sql.NullString
	Gender    sql.NullString
	Level     sql.NullString
}

// TimeRow is one row of the time dimension, keyed by StartTime.
type TimeRow struct {
	StartTime time.Time
	Hour      int32
	Day       int32
	Week      int32
	Month     int32
	Year      int32
	Weekday   int32
}

// PlayEvent is a song-play event that survived the NextSong filter,
// annotated with its derived start time. It lives only in memory between
// the event and fact stages.
type PlayEvent struct {
	StartTime time.Time
	UserID    string
	SessionID int64
	Song      sql.NullString
	Artist    sql.NullString
	Location  sql.NullString
	UserAgent sql.NullString
}

// SongPlay is one row of the song_plays fact table. SongID and ArtistID are
// null only when facts are assembled with a left join.
type SongPlay struct {
	StartTime time.Time
	Month     int32
	Year      int32
	UserID    string
	SongID    sql.NullString
	ArtistID  sql.NullString
	SessionID int64
	Location  sql.NullString
	UserAgent sql.NullString
}
