package adapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/playlake/pkg/adapter"
	"github.com/leapstack-labs/playlake/pkg/core"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/playlake/pkg/adapters/duckdb"
)

func TestDuckDBSelfRegistration(t *testing.T) {
	assert.True(t, adapter.IsRegistered("duckdb"), "duckdb adapter should be auto-registered")
	assert.Contains(t, adapter.ListAdapters(), "duckdb")
	assert.False(t, adapter.IsRegistered("spark"))
}

func TestNewAdapter_DuckDB(t *testing.T) {
	a, err := adapter.NewAdapter(core.AdapterConfig{Type: "duckdb"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, a)
}
