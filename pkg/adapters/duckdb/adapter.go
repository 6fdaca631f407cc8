// Package duckdb provides the DuckDB execution session for playlake.
//
// The session reads newline-delimited JSON and hive-partitioned Parquet
// through DuckDB table functions and writes typed tables with COPY ... TO.
// Object-store paths (s3://, gs://, ...) work once the httpfs extension is
// loaded and a secret is configured, either from Params.Secrets or from
// resolved credentials.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/playlake/pkg/adapter"
	"github.com/leapstack-labs/playlake/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// credentialsSecretName is the secret installed from resolved credentials.
const credentialsSecretName = "playlake_credentials"

// Adapter implements core.Adapter for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	params  *Params
	remover PrefixRemover
}

// New creates a new DuckDB adapter instance.
// A nil logger discards all output.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// Connect opens DuckDB and applies extensions, settings and secrets.
// Use ":memory:" or an empty path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	a.params = params

	if err := a.bootstrap(ctx); err != nil {
		_ = a.Close()
		return err
	}

	a.Logger.Debug("duckdb session connected", "path", path, "extensions", params.Extensions)
	return nil
}

func (a *Adapter) bootstrap(ctx context.Context) error {
	for _, ext := range a.params.Extensions {
		if err := a.Exec(ctx, "INSTALL "+quoteIdent(ext)); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if err := a.Exec(ctx, "LOAD "+quoteIdent(ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	for _, stmt := range settingStatements(a.params.Settings) {
		if err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply setting: %w", err)
		}
	}

	for i, s := range a.params.Secrets {
		stmt, err := s.SQL(fmt.Sprintf("playlake_secret_%d", i))
		if err != nil {
			return err
		}
		if err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create secret %d: %w", i, err)
		}
	}

	if a.Cfg.Credentials.HasKeys() {
		stmt, err := SecretFromCredentials(a.Cfg.Credentials).SQL(credentialsSecretName)
		if err != nil {
			return err
		}
		if err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to install %s credentials: %w", a.Cfg.Credentials.Source, err)
		}
		a.Logger.Debug("installed object store credentials", "source", a.Cfg.Credentials.Source)
	}
	return nil
}

// ReadJSON reads every newline-delimited JSON file matching pattern into a
// RecordSet. Files are unioned by column name. A pattern that matches no
// file is an ingestion error.
func (a *Adapter) ReadJSON(ctx context.Context, pattern string) (*core.RecordSet, error) {
	if !a.IsConnected() {
		return nil, fmt.Errorf("database connection not established")
	}

	files, err := a.glob(ctx, pattern)
	if err != nil {
		return nil, &core.IngestionError{Source: pattern, Record: -1, Reason: "cannot list files", Err: err}
	}
	if len(files) == 0 {
		return nil, &core.IngestionError{Source: pattern, Record: -1, Reason: "no files match"}
	}

	query := fmt.Sprintf(
		"SELECT * FROM read_json_auto(%s, format = 'newline_delimited', union_by_name = true)",
		quoteLiteral(pattern),
	)
	rs, err := a.QueryRecords(ctx, pattern, query)
	if err != nil {
		return nil, &core.IngestionError{Source: pattern, Record: -1, Reason: "cannot read json", Err: err}
	}

	a.Logger.Debug("read json", "pattern", pattern, "files", len(files), "records", rs.Len())
	return rs, nil
}

// ReadParquet reads a table written by WriteTable. Partition columns present
// in the directory layout are decoded with partitionTypes.
func (a *Adapter) ReadParquet(ctx context.Context, dir string, partitionTypes map[string]core.ColumnType) (*core.RecordSet, error) {
	if !a.IsConnected() {
		return nil, fmt.Errorf("database connection not established")
	}

	pattern := core.JoinPath(dir, "**", "*.parquet")
	files, err := a.glob(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrNotMaterialized, dir)
	}

	opts := []string{"hive_partitioning = true"}
	if hive := hiveTypes(files, partitionTypes); hive != "" {
		opts = append(opts, "hive_types = "+hive)
	}
	query := fmt.Sprintf("SELECT * FROM read_parquet(%s, %s)", quoteLiteral(pattern), strings.Join(opts, ", "))

	rs, err := a.QueryRecords(ctx, dir, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	a.Logger.Debug("read parquet", "dir", dir, "files", len(files), "records", rs.Len())
	return rs, nil
}

func (a *Adapter) glob(ctx context.Context, pattern string) ([]string, error) {
	rs, err := a.QueryRecords(ctx, pattern, fmt.Sprintf("SELECT file FROM glob(%s) ORDER BY file", quoteLiteral(pattern)))
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, rs.Len())
	for _, r := range rs.Records {
		f, err := r.String("file")
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// hiveTypes renders a hive_types struct literal for the partition columns
// that actually appear as key=value directories in files. Empty tables are
// written without partition directories, so the result may be empty.
func hiveTypes(files []string, types map[string]core.ColumnType) string {
	var parts []string
	for _, col := range sortedKeys(types) {
		marker := col + "="
		for _, f := range files {
			if strings.Contains(filepath.ToSlash(f), "/"+marker) {
				parts = append(parts, fmt.Sprintf("%s: %s", quoteLiteral(col), types[col]))
				break
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
