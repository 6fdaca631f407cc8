package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/playlake/pkg/adapter"
)

// Importing this package with a blank identifier registers the adapter:
//
//	import _ "github.com/leapstack-labs/playlake/pkg/adapters/duckdb"
func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
