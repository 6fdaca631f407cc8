package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/playlake/pkg/core"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name: "extensions and settings",
			input: map[string]any{
				"extensions": []any{"httpfs"},
				"settings":   map[string]any{"threads": 4, "memory_limit": "2GB"},
			},
			want: &Params{
				Extensions: []string{"httpfs"},
				Settings:   map[string]string{"threads": "4", "memory_limit": "2GB"},
			},
		},
		{
			name: "secret with scope list",
			input: map[string]any{
				"secrets": []any{
					map[string]any{
						"type":     "s3",
						"provider": "credential_chain",
						"region":   "us-west-2",
						"scope":    []any{"s3://udacity-dend"},
					},
				},
			},
			want: &Params{
				Secrets: []SecretConfig{{
					Type:     "s3",
					Provider: "credential_chain",
					Region:   "us-west-2",
					Scope:    []any{"s3://udacity-dend"},
				}},
			},
		},
		{
			name:    "unknown key is rejected",
			input:   map[string]any{"extension": []any{"httpfs"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSecretConfig_SQL(t *testing.T) {
	useSSL := false
	tests := []struct {
		name    string
		secret  SecretConfig
		want    string
		wantErr bool
	}{
		{
			name:   "credential chain",
			secret: SecretConfig{Type: "s3", Provider: "credential_chain", Region: "us-west-2"},
			want:   `CREATE OR REPLACE SECRET "s" (TYPE S3, PROVIDER credential_chain, REGION 'us-west-2')`,
		},
		{
			name: "explicit keys for minio",
			secret: SecretConfig{
				Type: "s3", KeyID: "AK", Secret: "it's", Endpoint: "http://localhost:9000",
				URLStyle: "path", UseSSL: &useSSL, Scope: "s3://bucket",
			},
			want: `CREATE OR REPLACE SECRET "s" (TYPE S3, KEY_ID 'AK', SECRET 'it''s', ENDPOINT 'localhost:9000', URL_STYLE 'path', USE_SSL false, SCOPE 's3://bucket')`,
		},
		{
			name:    "missing type",
			secret:  SecretConfig{},
			wantErr: true,
		},
		{
			name:    "bad scope",
			secret:  SecretConfig{Type: "s3", Scope: 3},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.secret.SQL("s")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSecretFromCredentials(t *testing.T) {
	s := SecretFromCredentials(&core.Credentials{
		AccessKeyID:     "AK",
		SecretAccessKey: "SK",
		SessionToken:    "TOK",
		Region:          "eu-west-1",
		Endpoint:        "minio:9000",
	})

	assert.Equal(t, "s3", s.Type)
	assert.Equal(t, "AK", s.KeyID)
	assert.Equal(t, "TOK", s.SessionToken)
	assert.Equal(t, "path", s.URLStyle)

	stmt, err := s.SQL(credentialsSecretName)
	require.NoError(t, err)
	assert.Contains(t, stmt, "SESSION_TOKEN 'TOK'")
	assert.NotContains(t, stmt, "PROVIDER")
}

func TestSettingStatements(t *testing.T) {
	got := settingStatements(map[string]string{"threads": "4", "memory_limit": "2GB"})
	assert.Equal(t, []string{
		`SET GLOBAL "memory_limit" = '2GB'`,
		`SET GLOBAL "threads" = '4'`,
	}, got)
}
