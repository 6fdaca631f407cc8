package duckdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/playlake/pkg/core"
)

// Params holds DuckDB-specific configuration.
// Parsed from core.AdapterConfig.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "httpfs", "aws")
	Extensions []string `mapstructure:"extensions"`

	// Secrets for cloud storage authentication
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings to apply globally (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig defines a DuckDB secret for cloud storage.
type SecretConfig struct {
	// Type: "s3", "gcs", "azure", "r2"
	Type string `mapstructure:"type"`

	// Provider: "config", "credential_chain", ...
	Provider string `mapstructure:"provider"`

	Region string `mapstructure:"region,omitempty"`

	// Scope limits the secret to specific paths (string or []string)
	Scope any `mapstructure:"scope,omitempty"`

	KeyID        string `mapstructure:"key_id,omitempty"`
	Secret       string `mapstructure:"secret,omitempty"`
	SessionToken string `mapstructure:"session_token,omitempty"`

	// Endpoint for S3-compatible services (MinIO, etc.)
	Endpoint string `mapstructure:"endpoint,omitempty"`

	// URLStyle: "vhost" or "path" for S3
	URLStyle string `mapstructure:"url_style,omitempty"`

	UseSSL *bool `mapstructure:"use_ssl,omitempty"`
}

// ParseParams decodes adapter params into Params.
func ParseParams(params map[string]any) (*Params, error) {
	p := &Params{}
	if len(params) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}

// SecretFromCredentials builds an S3 secret from resolved credentials.
func SecretFromCredentials(c *core.Credentials) SecretConfig {
	s := SecretConfig{
		Type:         "s3",
		Provider:     "config",
		Region:       c.Region,
		KeyID:        c.AccessKeyID,
		Secret:       c.SecretAccessKey,
		SessionToken: c.SessionToken,
		Endpoint:     c.Endpoint,
	}
	if c.Endpoint != "" {
		s.URLStyle = "path"
	}
	return s
}

// SQL renders the CREATE SECRET statement for s under name.
func (s SecretConfig) SQL(name string) (string, error) {
	if s.Type == "" {
		return "", fmt.Errorf("secret %s: type is required", name)
	}

	opts := []string{"TYPE " + strings.ToUpper(s.Type)}
	if s.Provider != "" && s.Provider != "config" {
		opts = append(opts, "PROVIDER "+s.Provider)
	}
	add := func(key, val string) {
		if val != "" {
			opts = append(opts, key+" "+quoteLiteral(val))
		}
	}
	add("KEY_ID", s.KeyID)
	add("SECRET", s.Secret)
	add("SESSION_TOKEN", s.SessionToken)
	add("REGION", s.Region)
	add("ENDPOINT", strings.TrimPrefix(strings.TrimPrefix(s.Endpoint, "https://"), "http://"))
	add("URL_STYLE", s.URLStyle)
	if s.UseSSL != nil {
		opts = append(opts, fmt.Sprintf("USE_SSL %t", *s.UseSSL))
	}

	switch scope := s.Scope.(type) {
	case nil:
	case string:
		add("SCOPE", scope)
	case []any:
		for _, v := range scope {
			add("SCOPE", fmt.Sprint(v))
		}
	case []string:
		for _, v := range scope {
			add("SCOPE", v)
		}
	default:
		return "", fmt.Errorf("secret %s: scope must be a string or list", name)
	}

	return fmt.Sprintf("CREATE OR REPLACE SECRET %s (%s)", quoteIdent(name), strings.Join(opts, ", ")), nil
}

// settingStatements renders settings as SET GLOBAL statements in key order.
func settingStatements(settings map[string]string) []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stmts := make([]string, 0, len(keys))
	for _, k := range keys {
		stmts = append(stmts, fmt.Sprintf("SET GLOBAL %s = %s", quoteIdent(k), quoteLiteral(settings[k])))
	}
	return stmts
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
