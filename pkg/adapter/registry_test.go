package adapter

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "spark",
		Available: []string{"duckdb"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "spark", "error should mention the unknown type")
	assert.Contains(t, msg, "duckdb", "error should list available adapters")
	assert.Contains(t, msg, "playlake.yaml", "error should mention config file")
}

func TestRegister(t *testing.T) {
	Register("Test_Session", func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered("test_session"), "names are case-insensitive")
	assert.True(t, IsRegistered("TEST_SESSION"))
	assert.Contains(t, ListAdapters(), "test_session")

	factory, ok := Get("test_session")
	assert.True(t, ok)
	assert.NotNil(t, factory)

	assert.Panics(t, func() {
		Register("test_session", func(_ *slog.Logger) Adapter { return nil })
	}, "duplicate registration")
	assert.Panics(t, func() { Register("nil_factory", nil) })
	assert.False(t, IsRegistered("nil_factory"))
}

func TestNewAdapter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
		unknown bool
	}{
		{name: "empty type", cfg: Config{}, wantErr: "adapter type not specified"},
		{name: "unknown type", cfg: Config{Type: "hive"}, unknown: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdapter(tt.cfg, nil)
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, err.Error())
			}
			if tt.unknown {
				var unknownErr *UnknownAdapterError
				require.True(t, errors.As(err, &unknownErr))
				assert.Equal(t, "hive", unknownErr.Type)
			}
		})
	}
}
