// Package adapter provides the execution-session contract and the registry
// concrete sessions register themselves with.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"github.com/leapstack-labs/playlake/pkg/core"
)

type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig
)
