package core

import (
	"context"
	"database/sql"
)

// Adapter defines the execution session the pipeline runs against.
// A session reads raw JSON sources and persisted tables and writes typed
// tables as partitioned columnar files.
type Adapter interface {
	// Connect establishes the session.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close releases the session.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// ReadJSON reads every newline-delimited JSON file matching pattern.
	ReadJSON(ctx context.Context, pattern string) (*RecordSet, error)

	// ReadParquet reads a table previously written by WriteTable under dir.
	// Partition columns are restored from the directory layout using the
	// given types. It returns ErrNotMaterialized when dir holds no data.
	ReadParquet(ctx context.Context, dir string, partitionTypes map[string]ColumnType) (*RecordSet, error)

	// WriteTable persists t under dest/<t.Name>, replacing any previous
	// contents of that table.
	WriteTable(ctx context.Context, t *Table, dest string) (*WriteResult, error)
}

// AdapterConfig holds configuration for opening a session.
type AdapterConfig struct {
	Type        string
	Path        string
	Options     map[string]string
	Params      map[string]any
	Credentials *Credentials
}

// Credentials is resolved object-store access material.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Endpoint        string
	Source          string
}

// HasKeys reports whether an access key pair is present.
func (c *Credentials) HasKeys() bool {
	return c != nil && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
