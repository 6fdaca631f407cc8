package transform

import (
	"github.com/leapstack-labs/playlake/pkg/core"
)

// CatalogTables holds the two dimensions derived from the song catalog.
type CatalogTables struct {
	Songs   []core.Song
	Artists []core.Artist
}

// BuildCatalog projects raw catalog records into distinct songs and artists.
// Any record missing one of song_id, title, artist_id, artist_name, year or
// duration fails the whole call with a *core.IngestionError.
func BuildCatalog(rs *core.RecordSet) (*CatalogTables, error) {
	songs := make([]core.Song, 0, rs.Len())
	artists := make([]core.Artist, 0, rs.Len())

	for i, rec := range rs.Records {
		f := newFieldReader(rs.Source, i, rec)
		song := core.Song{
			SongID:   f.str("song_id"),
			Title:    f.str("title"),
			ArtistID: f.str("artist_id"),
			Year:     f.integer("year"),
			Duration: f.float("duration"),
		}
		artist := core.Artist{
			ArtistID:  song.ArtistID,
			Name:      f.str("artist_name"),
			Location:  f.optStr("artist_location"),
			Latitude:  f.optFloat("artist_latitude"),
			Longitude: f.optFloat("artist_longitude"),
		}
		if f.err != nil {
			return nil, f.err
		}
		songs = append(songs, song)
		artists = append(artists, artist)
	}

	return &CatalogTables{
		Songs:   Distinct(songs),
		Artists: Distinct(artists),
	}, nil
}

// CatalogFromTables decodes songs and artists read back from their
// persisted tables. artists may be nil when only songs are needed.
func CatalogFromTables(songs, artists *core.RecordSet) (*CatalogTables, error) {
	cat := &CatalogTables{Songs: make([]core.Song, 0, songs.Len())}

	for i, rec := range songs.Records {
		f := newFieldReader(songs.Source, i, rec)
		s := core.Song{
			SongID:   f.str("song_id"),
			Title:    f.str("title"),
			ArtistID: f.str("artist_id"),
			Year:     f.integer("year"),
			Duration: f.float("duration"),
		}
		if f.err != nil {
			return nil, f.err
		}
		cat.Songs = append(cat.Songs, s)
	}

	if artists == nil {
		return cat, nil
	}
	cat.Artists = make([]core.Artist, 0, artists.Len())
	for i, rec := range artists.Records {
		f := newFieldReader(artists.Source, i, rec)
		a := core.Artist{
			ArtistID:  f.str("artist_id"),
			Name:      f.str("name"),
			Location:  f.optStr("location"),
			Latitude:  f.optFloat("latitude"),
			Longitude: f.optFloat("longitude"),
		}
		if f.err != nil {
			return nil, f.err
		}
		cat.Artists = append(cat.Artists, a)
	}
	return cat, nil
}
