package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/playlake/pkg/core"
)

func eventRecord(page string, ts int64, userID string, level string, song string) core.Record {
	return core.NewRecord(map[string]any{
		"artist":        "Artist",
		"auth":          "Logged In",
		"firstName":     "Ada",
		"gender":        "F",
		"itemInSession": int64(0),
		"lastName":      "Lovelace",
		"length":        200.5,
		"level":         level,
		"location":      "London",
		"method":        "PUT",
		"page":          page,
		"sessionId":     int64(139),
		"song":          song,
		"status":        int64(200),
		"ts":            ts,
		"userAgent":     "Mozilla/5.0",
		"userId":        userID,
	})
}

func TestBuildEvents_FiltersAndProjects(t *testing.T) {
	rs := &core.RecordSet{Source: "log_data", Records: []core.Record{
		eventRecord("NextSong", 1541121934796, "8", "free", "Song A"),
		eventRecord("Home", 1541121934000, "8", "free", ""),
		eventRecord("NextSong", 1541121934796, "8", "free", "Song B"),
		eventRecord("NextSong", 1541122000000, "8", "paid", "Song A"),
		eventRecord("Logout", 1541122100000, "8", "paid", ""),
	}}

	out, err := BuildEvents(rs, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 5, out.Scanned)
	assert.Equal(t, 3, out.Kept)
	assert.Len(t, out.Plays, 3)
	assert.Len(t, out.Times, 2, "time rows are distinct on start_time")
	assert.Len(t, out.Users, 2, "one user row per distinct level")

	for _, tr := range out.Times {
		assert.Equal(t, int32(2018), tr.Year)
		assert.Equal(t, int32(11), tr.Month)
	}
}

func TestBuildEvents_NoSongPlays(t *testing.T) {
	rs := &core.RecordSet{Source: "log_data", Records: []core.Record{
		eventRecord("Home", 1541121934000, "8", "free", ""),
		// logged-out events carry no user fields and must not fail the run
		core.NewRecord(map[string]any{"page": "Login", "ts": int64(1), "userId": nil, "sessionId": nil}),
		// records without a page are not song plays
		core.NewRecord(map[string]any{"ts": int64(1)}),
		core.NewRecord(map[string]any{"page": nil, "ts": "garbage"}),
	}}

	out, err := BuildEvents(rs, time.UTC)
	require.NoError(t, err)
	assert.Zero(t, out.Kept)
	assert.Empty(t, out.Plays)
	assert.Empty(t, out.Users)
	assert.Empty(t, out.Times)
}

func TestBuildEvents_Errors(t *testing.T) {
	tests := []struct {
		name     string
		record   core.Record
		classErr error
		field    string
	}{
		{
			name:     "unparseable ts",
			record:   core.NewRecord(map[string]any{"page": "NextSong", "ts": "yesterday", "userId": "1", "sessionId": int64(1)}),
			classErr: core.ErrDerivation,
			field:    "ts",
		},
		{
			name:     "missing ts",
			record:   core.NewRecord(map[string]any{"page": "NextSong", "userId": "1", "sessionId": int64(1)}),
			classErr: core.ErrDerivation,
			field:    "ts",
		},
		{
			name:     "missing user id on song play",
			record:   core.NewRecord(map[string]any{"page": "NextSong", "ts": int64(1), "sessionId": int64(1)}),
			classErr: core.ErrIngestion,
			field:    "userId",
		},
		{
			name:     "missing session id on song play",
			record:   core.NewRecord(map[string]any{"page": "NextSong", "ts": int64(1), "userId": "1"}),
			classErr: core.ErrIngestion,
			field:    "sessionId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildEvents(&core.RecordSet{Source: "log_data", Records: []core.Record{tt.record}}, time.UTC)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.classErr)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestBuildEvents_UserIDCaseInsensitive(t *testing.T) {
	rec := core.NewRecord(map[string]any{"page": "NextSong", "ts": int64(1), "userID": "42", "sessionId": int64(1)})

	out, err := BuildEvents(&core.RecordSet{Source: "log_data", Records: []core.Record{rec}}, time.UTC)
	require.NoError(t, err)
	require.Len(t, out.Users, 1)
	assert.Equal(t, "42", out.Users[0].UserID)
}

func TestBuildEvents_StartTimeIsOrderIndependent(t *testing.T) {
	a := eventRecord("NextSong", 1541121934796, "8", "free", "Song A")
	b := eventRecord("NextSong", 1541106106796, "9", "paid", "Song B")

	first, err := BuildEvents(&core.RecordSet{Records: []core.Record{a, b}}, time.UTC)
	require.NoError(t, err)
	second, err := BuildEvents(&core.RecordSet{Records: []core.Record{b, a}}, time.UTC)
	require.NoError(t, err)

	assert.ElementsMatch(t, first.Times, second.Times)
	assert.ElementsMatch(t, first.Users, second.Users)
}
