package core

import (
	"cmp"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ColumnType is the logical type of an output column.
type ColumnType string

// Supported column types. Go value representations are string, int32,
// int64, float64 and time.Time respectively; nil is NULL.
const (
	TypeVarchar   ColumnType = "VARCHAR"
	TypeInteger   ColumnType = "INTEGER"
	TypeBigint    ColumnType = "BIGINT"
	TypeDouble    ColumnType = "DOUBLE"
	TypeTimestamp ColumnType = "TIMESTAMP"
)

// Column describes one column of an output table.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Table is a fully materialized, typed output table.
type Table struct {
	Name        string
	Columns     []Column
	PartitionBy []string
	Rows        [][]any
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks that partition columns exist and every row matches the
// column list in width, type and nullability.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.Name)
	}
	for _, p := range t.PartitionBy {
		if !slices.Contains(t.ColumnNames(), p) {
			return fmt.Errorf("table %s: unknown partition column %q", t.Name, p)
		}
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("table %s row %d: has %d values, want %d", t.Name, i, len(row), len(t.Columns))
		}
		for j, v := range row {
			col := t.Columns[j]
			if v == nil {
				if !col.Nullable {
					return fmt.Errorf("table %s row %d: column %s is not nullable", t.Name, i, col.Name)
				}
				continue
			}
			if !typeMatches(col.Type, v) {
				return fmt.Errorf("table %s row %d: column %s: %T is not %s", t.Name, i, col.Name, v, col.Type)
			}
		}
	}
	return nil
}

func typeMatches(ct ColumnType, v any) bool {
	switch ct {
	case TypeVarchar:
		_, ok := v.(string)
		return ok
	case TypeInteger:
		_, ok := v.(int32)
		return ok
	case TypeBigint:
		_, ok := v.(int64)
		return ok
	case TypeDouble:
		_, ok := v.(float64)
		return ok
	case TypeTimestamp:
		_, ok := v.(time.Time)
		return ok
	}
	return false
}

// Sort orders rows by every column, left to right, with NULL first.
func (t *Table) Sort() {
	slices.SortStableFunc(t.Rows, CompareRows)
}

// CompareRows compares two rows column by column.
func CompareRows(a, b []any) int {
	for i := range min(len(a), len(b)) {
		if c := CompareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// CompareValues orders two values of the same column type. NULL sorts first.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case int32:
		if y, ok := b.(int32); ok {
			return cmp.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func nullString(s sql.NullString) any {
	if !s.Valid {
		return nil
	}
	return s.String
}

func nullFloat(f sql.NullFloat64) any {
	if !f.Valid {
		return nil
	}
	return f.Float64
}

// WallClock returns t's wall-clock reading in its own location, labelled UTC.
// TIMESTAMP columns carry no zone, so start_time is stored as the local
// reading the calendar fields were derived from.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Column layouts of the output tables.
var (
	SongColumns = []Column{
		{Name: "song_id", Type: TypeVarchar},
		{Name: "title", Type: TypeVarchar},
		{Name: "artist_id", Type: TypeVarchar},
		{Name: "year", Type: TypeInteger},
		{Name: "duration", Type: TypeDouble},
	}
	ArtistColumns = []Column{
		{Name: "artist_id", Type: TypeVarchar},
		{Name: "name", Type: TypeVarchar},
		{Name: "location", Type: TypeVarchar, Nullable: true},
		{Name: "latitude", Type: TypeDouble, Nullable: true},
		{Name: "longitude", Type: TypeDouble, Nullable: true},
	}
	UserColumns = []Column{
		{Name: "user_id", Type: TypeVarchar},
		{Name: "first_name", Type: TypeVarchar, Nullable: true},
		{Name: "last_name", Type: TypeVarchar, Nullable: true},
		{Name: "gender", Type: TypeVarchar, Nullable: true},
		{Name: "level", Type: TypeVarchar, Nullable: true},
	}
	TimeColumns = []Column{
		{Name: "start_time", Type: TypeTimestamp},
		{Name: "hour", Type: TypeInteger},
		{Name: "day", Type: TypeInteger},
		{Name: "week", Type: TypeInteger},
		{Name: "month", Type: TypeInteger},
		{Name: "year", Type: TypeInteger},
		{Name: "weekday", Type: TypeInteger},
	}
	SongPlayColumns = []Column{
		{Name: "start_time", Type: TypeTimestamp},
		{Name: "month", Type: TypeInteger},
		{Name: "year", Type: TypeInteger},
		{Name: "user_id", Type: TypeVarchar},
		{Name: "song_id", Type: TypeVarchar, Nullable: true},
		{Name: "artist_id", Type: TypeVarchar, Nullable: true},
		{Name: "session_id", Type: TypeBigint},
		{Name: "location", Type: TypeVarchar, Nullable: true},
		{Name: "user_agent", Type: TypeVarchar, Nullable: true},
	}
)

// SongsTable builds the songs table, partitioned by year and artist_id.
func SongsTable(songs []Song) *Table {
	t := &Table{Name: TableSongs, Columns: SongColumns, PartitionBy: []string{"year", "artist_id"}}
	for _, s := range songs {
		t.Rows = append(t.Rows, []any{s.SongID, s.Title, s.ArtistID, s.Year, s.Duration})
	}
	t.Sort()
	return t
}

// ArtistsTable builds the unpartitioned artists table.
func ArtistsTable(artists []Artist) *Table {
	t := &Table{Name: TableArtists, Columns: ArtistColumns}
	for _, a := range artists {
		t.Rows = append(t.Rows, []any{a.ArtistID, a.Name, nullString(a.Location), nullFloat(a.Latitude), nullFloat(a.Longitude)})
	}
	t.Sort()
	return t
}

// UsersTable builds the unpartitioned users table.
func UsersTable(users []User) *Table {
	t := &Table{Name: TableUsers, Columns: UserColumns}
	for _, u := range users {
		t.Rows = append(t.Rows, []any{u.UserID, nullString(u.FirstName), nullString(u.LastName), nullString(u.Gender), nullString(u.Level)})
	}
	t.Sort()
	return t
}

// TimeTable builds the time table, partitioned by year and month.
func TimeTable(rows []TimeRow) *Table {
	t := &Table{Name: TableTime, Columns: TimeColumns, PartitionBy: []string{"year", "month"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{WallClock(r.StartTime), r.Hour, r.Day, r.Week, r.Month, r.Year, r.Weekday})
	}
	t.Sort()
	return t
}

// SongPlaysTable builds the song_plays fact table, partitioned by year and month.
func SongPlaysTable(plays []SongPlay) *Table {
	t := &Table{Name: TableSongPlays, Columns: SongPlayColumns, PartitionBy: []string{"year", "month"}}
	for _, p := range plays {
		t.Rows = append(t.Rows, []any{
			WallClock(p.StartTime), p.Month, p.Year, p.UserID,
			nullString(p.SongID), nullString(p.ArtistID),
			p.SessionID, nullString(p.Location), nullString(p.UserAgent),
		})
	}
	t.Sort()
	return t
}

// WriteResult describes one committed table.
type WriteResult struct {
	Table       string
	Path        string
	Rows        int64
	Partitions  int
	Fingerprint string
}
