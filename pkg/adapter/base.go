package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/playlake/pkg/core"
)

// ErrNotConnected is returned by BaseSQLAdapter methods before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter carries the database/sql plumbing shared by SQL-backed
// sessions. Concrete sessions embed it and set DB during Connect.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

func (b *BaseSQLAdapter) conn() (*sql.DB, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	return b.DB, nil
}

// IsConnected reports whether Connect has opened a database.
func (b *BaseSQLAdapter) IsConnected() bool { return b.DB != nil }

// Close releases the database. Closing an unconnected session is a no-op.
func (b *BaseSQLAdapter) Close() error {
	db := b.DB
	if db == nil {
		return nil
	}
	b.DB = nil
	if b.Logger != nil {
		b.Logger.Debug("closing session database")
	}
	return db.Close()
}

// Exec runs a statement that returns no rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, stmt string) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query runs a statement and hands the open rows to the caller, who must
// close them and check Err.
func (b *BaseSQLAdapter) Query(ctx context.Context, query string) (*core.Rows, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	//nolint:rowserrcheck // caller iterates and checks Err
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// QueryRecords runs query and collects every row as a core.Record keyed by
// column name. Values keep the driver's Go types; NULLs read as absent.
func (b *BaseSQLAdapter) QueryRecords(ctx context.Context, source, query string, args ...any) (*core.RecordSet, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	out := &core.RecordSet{Source: source}
	dest := make([]any, len(cols))
	for rows.Next() {
		vals := make([]any, len(cols))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		raw := make(map[string]any, len(cols))
		for i, c := range cols {
			raw[c] = vals[i]
		}
		out.Records = append(out.Records, core.NewRecord(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
