package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/leapstack-labs/playlake/pkg/adapter"
	"github.com/leapstack-labs/playlake/pkg/core"
)

// stagingPrefix names the per-write staging directory under a local
// destination root.
const stagingPrefix = ".playlake-staging-"

// WriteTable persists t as Parquet under dest/<t.Name>, replacing whatever
// the table held before. Rows are sorted in place first.
//
// Local destinations are written into a staging directory next to the table
// and swapped in with renames, so a failed write leaves the previous
// contents untouched. Remote destinations have their prefix emptied first
// and are then written in place.
func (a *Adapter) WriteTable(ctx context.Context, t *core.Table, dest string) (*core.WriteResult, error) {
	final := core.JoinPath(dest, t.Name)
	if !a.IsConnected() {
		return nil, &core.WriteError{Table: t.Name, Path: final, Err: errors.New("database connection not established")}
	}
	if err := t.Validate(); err != nil {
		return nil, &core.WriteError{Table: t.Name, Path: final, Err: err}
	}
	t.Sort()

	start := time.Now()
	var err error
	if core.IsRemote(dest) {
		err = a.writeRemote(ctx, t, final)
	} else {
		err = a.writeLocal(ctx, t, dest, final)
	}
	if err != nil {
		return nil, &core.WriteError{Table: t.Name, Path: final, Err: err}
	}

	res := &core.WriteResult{
		Table:       t.Name,
		Path:        final,
		Rows:        int64(len(t.Rows)),
		Partitions:  countPartitions(t),
		Fingerprint: adapter.Fingerprint(t),
	}
	a.Logger.Debug("table written",
		"table", t.Name,
		"path", final,
		"rows", res.Rows,
		"partitions", res.Partitions,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (a *Adapter) writeLocal(ctx context.Context, t *core.Table, dest, final string) error {
	stagingRoot := filepath.Join(dest, stagingPrefix+uuid.NewString())
	if err := os.MkdirAll(stagingRoot, 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(stagingRoot) }()

	staged := filepath.Join(stagingRoot, t.Name)
	if err := a.copyTable(ctx, t, staged, false); err != nil {
		return err
	}
	return commitDir(staged, final, filepath.Join(stagingRoot, "previous"))
}

// commitDir replaces final with staged. The old contents are moved to trash,
// which the caller removes; if the second rename fails they are restored.
func commitDir(staged, final, trash string) error {
	hadPrevious := false
	if _, err := os.Stat(final); err == nil {
		if err := os.Rename(final, trash); err != nil {
			return fmt.Errorf("move previous contents aside: %w", err)
		}
		hadPrevious = true
	}
	if err := os.Rename(staged, final); err != nil {
		if hadPrevious {
			_ = os.Rename(trash, final)
		}
		return fmt.Errorf("commit staged table: %w", err)
	}
	return nil
}

// copyTable loads t into a scratch table and copies it out to target.
// Empty tables are written as a single unpartitioned file so their schema
// survives a read-back.
func (a *Adapter) copyTable(ctx context.Context, t *core.Table, target string, overwrite bool) error {
	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	scratch := "playlake_stage_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := conn.ExecContext(ctx, createTableSQL(scratch, t.Columns)); err != nil {
		return fmt.Errorf("create scratch table: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+quoteIdent(scratch))
	}()

	if err := appendRows(ctx, conn, scratch, t.Rows); err != nil {
		return err
	}

	opts := []string{"FORMAT PARQUET"}
	out := target
	if len(t.PartitionBy) > 0 && len(t.Rows) > 0 {
		quoted := make([]string, len(t.PartitionBy))
		for i, p := range t.PartitionBy {
			quoted[i] = quoteIdent(p)
		}
		opts = append(opts, "PARTITION_BY ("+strings.Join(quoted, ", ")+")")
		if overwrite {
			opts = append(opts, "OVERWRITE_OR_IGNORE true")
		}
	} else {
		if !core.IsRemote(target) {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create table directory: %w", err)
			}
		}
		out = core.JoinPath(target, "data_0.parquet")
	}

	copySQL := fmt.Sprintf("COPY (SELECT * FROM %s ORDER BY ALL) TO %s (%s)",
		quoteIdent(scratch), quoteLiteral(out), strings.Join(opts, ", "))
	if _, err := conn.ExecContext(ctx, copySQL); err != nil {
		return fmt.Errorf("copy to parquet: %w", err)
	}
	return nil
}

func appendRows(ctx context.Context, conn *sql.Conn, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	return conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		app, err := goduckdb.NewAppenderFromConn(dc, "", table)
		if err != nil {
			return fmt.Errorf("create appender: %w", err)
		}

		values := make([]driver.Value, 0, 16)
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				_ = app.Close()
				return err
			}
			values = values[:0]
			for _, v := range row {
				values = append(values, v)
			}
			if err := app.AppendRow(values...); err != nil {
				_ = app.Close()
				return fmt.Errorf("append row %d: %w", i, err)
			}
		}
		if err := app.Close(); err != nil {
			return fmt.Errorf("flush appender: %w", err)
		}
		return nil
	})
}

func createTableSQL(name string, cols []core.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		def := quoteIdent(c.Name) + " " + string(c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
}

func countPartitions(t *core.Table) int {
	if len(t.PartitionBy) == 0 {
		return 0
	}
	idx := make([]int, 0, len(t.PartitionBy))
	for _, p := range t.PartitionBy {
		for i, c := range t.Columns {
			if c.Name == p {
				idx = append(idx, i)
			}
		}
	}
	seen := make(map[string]struct{})
	for _, row := range t.Rows {
		key := make([]string, len(idx))
		for i, j := range idx {
			key[i] = fmt.Sprint(row[j])
		}
		seen[strings.Join(key, "\x00")] = struct{}{}
	}
	return len(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
