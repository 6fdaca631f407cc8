// Package state records pipeline runs and per-table outcomes in SQLite.
//
// Core types are defined in pkg/core; this package re-exports the ones its
// callers need.
package state

import (
	"github.com/leapstack-labs/playlake/pkg/core"
)

type (
	// Store is an alias for core.Store.
	Store = core.Store

	// Run is an alias for core.Run.
	Run = core.Run

	// TableRun is an alias for core.TableRun.
	TableRun = core.TableRun
)

var _ Store = (*SQLiteStore)(nil)
