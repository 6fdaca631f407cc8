package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/playlake/pkg/core"
)

func songRecord(songID, title, artistID, artistName string, year int64) core.Record {
	return core.NewRecord(map[string]any{
		"num_songs":        int64(1),
		"song_id":          songID,
		"title":            title,
		"artist_id":        artistID,
		"artist_name":      artistName,
		"artist_location":  nil,
		"artist_latitude":  nil,
		"artist_longitude": nil,
		"year":             year,
		"duration":         218.93179,
	})
}

func TestBuildCatalog(t *testing.T) {
	rs := &core.RecordSet{Source: "song_data", Records: []core.Record{
		songRecord("SOUPIRU12A6D4FA1E1", "Der Kleine Dompfaff", "ARJIE2Y1187B994AB7", "Line Renaud", 0),
		songRecord("SOUPIRU12A6D4FA1E1", "Der Kleine Dompfaff", "ARJIE2Y1187B994AB7", "Line Renaud", 0),
		songRecord("SOBLFFE12AF72AA5BA", "Scream", "ARJIE2Y1187B994AB7", "Line Renaud", 2009),
	}}

	cat, err := BuildCatalog(rs)
	require.NoError(t, err)

	assert.Len(t, cat.Songs, 2)
	assert.Len(t, cat.Artists, 1, "artist repeated on every song collapses to one row")
	assert.Equal(t, "Line Renaud", cat.Artists[0].Name)
	assert.False(t, cat.Artists[0].Location.Valid)
	assert.Equal(t, int32(2009), cat.Songs[1].Year)
}

func TestBuildCatalog_DistinctIsCaseSensitive(t *testing.T) {
	rs := &core.RecordSet{Source: "song_data", Records: []core.Record{
		songRecord("S1", "Song A", "AR1", "Artist", 2000),
		songRecord("S1", "song a", "AR1", "Artist", 2000),
	}}

	cat, err := BuildCatalog(rs)
	require.NoError(t, err)
	assert.Len(t, cat.Songs, 2)
}

func TestBuildCatalog_Errors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(core.Record)
		field     string
		errSubstr string
	}{
		{name: "missing title", mutate: func(r core.Record) { delete(r, "title") }, field: "title", errSubstr: "missing required field"},
		{name: "null artist name", mutate: func(r core.Record) { r["artist_name"] = nil }, field: "artist_name", errSubstr: "missing required field"},
		{name: "non numeric year", mutate: func(r core.Record) { r["year"] = "unknown" }, field: "year", errSubstr: "invalid value"},
		{name: "year out of range", mutate: func(r core.Record) { r["year"] = int64(1) << 40 }, field: "year", errSubstr: "out of range"},
		{name: "non numeric duration", mutate: func(r core.Record) { r["duration"] = "long" }, field: "duration", errSubstr: "invalid value"},
		{name: "bad latitude", mutate: func(r core.Record) { r["artist_latitude"] = "north" }, field: "artist_latitude", errSubstr: "invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := songRecord("S1", "Song A", "AR1", "Artist", 2000)
			tt.mutate(rec)
			rs := &core.RecordSet{Source: "song_data", Records: []core.Record{
				songRecord("S0", "Fine", "AR0", "Other", 1999),
				rec,
			}}

			_, err := BuildCatalog(rs)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrIngestion)

			var ingErr *core.IngestionError
			require.ErrorAs(t, err, &ingErr)
			assert.Equal(t, 1, ingErr.Record)
			assert.Equal(t, tt.field, ingErr.Field)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestCatalogFromTables(t *testing.T) {
	songs := &core.RecordSet{Source: "songs", Records: []core.Record{
		core.NewRecord(map[string]any{"song_id": "S1", "title": "Song A", "duration": 1.5, "year": int32(2000), "artist_id": "AR1"}),
	}}
	artists := &core.RecordSet{Source: "artists", Records: []core.Record{
		core.NewRecord(map[string]any{"artist_id": "AR1", "name": "Artist", "location": "Paris", "latitude": nil, "longitude": nil}),
	}}

	cat, err := CatalogFromTables(songs, artists)
	require.NoError(t, err)
	require.Len(t, cat.Songs, 1)
	assert.Equal(t, core.Song{SongID: "S1", Title: "Song A", ArtistID: "AR1", Year: 2000, Duration: 1.5}, cat.Songs[0])
	require.Len(t, cat.Artists, 1)
	assert.Equal(t, "Paris", cat.Artists[0].Location.String)

	cat, err = CatalogFromTables(songs, nil)
	require.NoError(t, err)
	assert.Empty(t, cat.Artists)

	_, err = CatalogFromTables(&core.RecordSet{Source: "songs", Records: []core.Record{{"song_id": "S1"}}}, nil)
	assert.ErrorIs(t, err, core.ErrIngestion)
}
