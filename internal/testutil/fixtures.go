package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// GoldenTS is a NextSong timestamp (2018-11-02T01:25:34.796Z) used across
// tests: hour 1, day 2, week 44, month 11, year 2018, weekday 6.
const GoldenTS int64 = 1541121934796

// WriteNDJSON writes records as newline-delimited JSON to path, creating
// parent directories.
func WriteNDJSON(t testing.TB, path string, records ...map[string]any) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create fixture dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			t.Fatalf("failed to encode fixture record: %v", err)
		}
	}
}

// SongRecord returns a catalog record in the raw song_data layout.
func SongRecord(songID, title, artistID, artistName string, year int, duration float64) map[string]any {
	return map[string]any{
		"num_songs":        1,
		"song_id":          songID,
		"title":            title,
		"artist_id":        artistID,
		"artist_name":      artistName,
		"artist_location":  "",
		"artist_latitude":  nil,
		"artist_longitude": nil,
		"year":             year,
		"duration":         duration,
	}
}

// EventRecord returns a raw log_data record for page at ts.
func EventRecord(page string, ts int64, userID, sessionID int, song, artist string) map[string]any {
	return map[string]any{
		"artist":        artist,
		"auth":          "Logged In",
		"firstName":     "Walter",
		"gender":        "M",
		"itemInSession": 0,
		"lastName":      "Frye",
		"length":        218.93179,
		"level":         "free",
		"location":      "San Francisco-Oakland-Hayward, CA",
		"method":        "PUT",
		"page":          page,
		"registration":  1540919166796.0,
		"sessionId":     sessionID,
		"song":          song,
		"status":        200,
		"ts":            ts,
		"userAgent":     "Mozilla/5.0",
		"userId":        userID,
	}
}
