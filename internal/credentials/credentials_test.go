package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAWSEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY", "AWS_SECRET_KEY",
		"AWS_SESSION_TOKEN", "AWS_PROFILE", "AWS_DEFAULT_PROFILE", "AWS_REGION", "AWS_DEFAULT_REGION",
	} {
		t.Setenv(k, "")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantName  string
		errSubstr string
	}{
		{name: "default is none", cfg: Config{}, wantName: ProviderNone},
		{name: "static", cfg: Config{Provider: "static", AccessKeyID: "AK", SecretAccessKey: "SK"}, wantName: ProviderStatic},
		{name: "static without keys", cfg: Config{Provider: "static"}, errSubstr: "require access_key_id"},
		{name: "env", cfg: Config{Provider: "env"}, wantName: ProviderEnv},
		{name: "aws", cfg: Config{Provider: "aws"}, wantName: ProviderAWS},
		{name: "unknown", cfg: Config{Provider: "vault"}, errSubstr: "unknown credentials provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.errSubstr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestRetrieve_None(t *testing.T) {
	p, err := New(Config{Provider: ProviderNone})
	require.NoError(t, err)

	creds, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Nil(t, creds)
	assert.False(t, creds.HasKeys())
}

func TestRetrieve_Static(t *testing.T) {
	p, err := New(Config{
		Provider:        ProviderStatic,
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		Region:          "us-west-2",
		Endpoint:        "localhost:9000",
	})
	require.NoError(t, err)

	creds, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
	assert.Equal(t, "us-west-2", creds.Region)
	assert.Equal(t, "localhost:9000", creds.Endpoint)
	assert.Contains(t, creds.Source, "static")
	assert.True(t, creds.HasKeys())
}

func TestRetrieve_Env(t *testing.T) {
	clearAWSEnv(t)

	p, err := New(Config{Provider: ProviderEnv})
	require.NoError(t, err)

	_, err = p.Retrieve(context.Background())
	assert.Error(t, err, "no keys in the environment")

	t.Setenv("AWS_ACCESS_KEY_ID", "AKENV")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SKENV")
	p, err = New(Config{Provider: ProviderEnv})
	require.NoError(t, err)

	creds, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKENV", creds.AccessKeyID)
}

func TestRetrieve_AWSSharedFile(t *testing.T) {
	clearAWSEnv(t)
	dir := t.TempDir()

	credsFile := filepath.Join(dir, "credentials")
	require.NoError(t, os.WriteFile(credsFile, []byte("[etl]\naws_access_key_id = AKFILE\naws_secret_access_key = SKFILE\n"), 0o600))
	configFile := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(configFile, []byte("[profile etl]\nregion = eu-central-1\n"), 0o600))

	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", credsFile)
	t.Setenv("AWS_CONFIG_FILE", configFile)

	p, err := New(Config{Provider: ProviderAWS, Profile: "etl"})
	require.NoError(t, err)

	creds, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKFILE", creds.AccessKeyID)
	assert.Equal(t, "SKFILE", creds.SecretAccessKey)
	assert.Equal(t, "eu-central-1", creds.Region)
}

func TestRetrieve_CanceledContext(t *testing.T) {
	p, err := New(Config{Provider: ProviderStatic, AccessKeyID: "a", SecretAccessKey: "b"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Retrieve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
