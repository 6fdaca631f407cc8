package transform

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/playlake/pkg/core"
)

// Matcher returns the catalog songs a play event resolves to. An empty
// result means the event has no match.
type Matcher func(ev core.PlayEvent) []core.Song

// JoinStrategy decides how play events are resolved against the catalog.
type JoinStrategy interface {
	// Name is the configuration key of the strategy.
	Name() string
	// Prepare indexes the catalog and returns a matcher over it.
	Prepare(cat *CatalogTables) Matcher
}

// JoinMode controls what happens to events no song matches.
type JoinMode string

const (
	// JoinInner drops unmatched events.
	JoinInner JoinMode = "inner"
	// JoinLeft keeps unmatched events with null song_id and artist_id.
	JoinLeft JoinMode = "left"
)

// ParseJoinMode validates a join mode name. Empty means inner.
func ParseJoinMode(s string) (JoinMode, error) {
	switch JoinMode(strings.ToLower(s)) {
	case "", JoinInner:
		return JoinInner, nil
	case JoinLeft:
		return JoinLeft, nil
	}
	return "", fmt.Errorf("unknown join mode %q (available: inner, left)", s)
}

// Default strategy names.
const (
	StrategyTitle       = "title"
	StrategyTitleArtist = "title_artist"
)

// TitleJoin matches an event to every song whose title equals the event's
// song name exactly. Songs sharing a title all match, so one event can yield
// several facts; titles differing in case or whitespace never match.
type TitleJoin struct{}

// Name implements JoinStrategy.
func (TitleJoin) Name() string { return StrategyTitle }

// Prepare implements JoinStrategy.
func (TitleJoin) Prepare(cat *CatalogTables) Matcher {
	byTitle := indexByTitle(cat.Songs)
	return func(ev core.PlayEvent) []core.Song {
		if !ev.Song.Valid {
			return nil
		}
		return byTitle[ev.Song.String]
	}
}

// TitleArtistJoin additionally requires the event's artist name to equal
// the name of the song's artist.
type TitleArtistJoin struct{}

// Name implements JoinStrategy.
func (TitleArtistJoin) Name() string { return StrategyTitleArtist }

// Prepare implements JoinStrategy.
func (TitleArtistJoin) Prepare(cat *CatalogTables) Matcher {
	byTitle := indexByTitle(cat.Songs)
	names := make(map[string][]string, len(cat.Artists))
	for _, a := range cat.Artists {
		names[a.ArtistID] = append(names[a.ArtistID], a.Name)
	}
	return func(ev core.PlayEvent) []core.Song {
		if !ev.Song.Valid || !ev.Artist.Valid {
			return nil
		}
		var out []core.Song
		for _, s := range byTitle[ev.Song.String] {
			if slices.Contains(names[s.ArtistID], ev.Artist.String) {
				out = append(out, s)
			}
		}
		return out
	}
}

func indexByTitle(songs []core.Song) map[string][]core.Song {
	idx := make(map[string][]core.Song)
	for _, s := range songs {
		idx[s.Title] = append(idx[s.Title], s)
	}
	for _, list := range idx {
		sort.Slice(list, func(i, j int) bool {
			if list[i].SongID != list[j].SongID {
				return list[i].SongID < list[j].SongID
			}
			return list[i].ArtistID < list[j].ArtistID
		})
	}
	return idx
}

var (
	strategiesMu sync.RWMutex
	strategies   = map[string]JoinStrategy{
		StrategyTitle:       TitleJoin{},
		StrategyTitleArtist: TitleArtistJoin{},
	}
)

// RegisterJoinStrategy makes a strategy available by name.
func RegisterJoinStrategy(s JoinStrategy) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	strategies[s.Name()] = s
}

// LookupJoinStrategy returns the strategy registered under name.
// Empty means the title strategy.
func LookupJoinStrategy(name string) (JoinStrategy, error) {
	if name == "" {
		name = StrategyTitle
	}
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown join strategy %q (available: %s)", name, strings.Join(joinStrategyNames(), ", "))
	}
	return s, nil
}

// JoinStrategies returns the registered strategy names, sorted.
func JoinStrategies() []string {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	return joinStrategyNames()
}

func joinStrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for n := range strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
