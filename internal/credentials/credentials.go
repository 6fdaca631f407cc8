// Package credentials resolves object-store access keys for the execution
// session.
//
// Providers wrap the AWS SDK credential types so that static keys (the
// [AWS] section of a config file), environment variables and the full SDK
// default chain (env, shared credentials file, instance role) all resolve
// the same way.
package credentials

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	awscreds "github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/leapstack-labs/playlake/pkg/core"
)

// Provider names.
const (
	ProviderNone   = "none"
	ProviderStatic = "static"
	ProviderEnv    = "env"
	ProviderAWS    = "aws"
)

// Config selects and parameterizes a provider.
type Config struct {
	Provider        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Endpoint        string
	Profile         string
}

// Provider resolves credentials on demand.
type Provider interface {
	Name() string
	// Retrieve returns resolved credentials, or nil when the provider
	// deliberately supplies none.
	Retrieve(ctx context.Context) (*core.Credentials, error)
}

// Providers returns the known provider names, sorted.
func Providers() []string {
	names := []string{ProviderNone, ProviderStatic, ProviderEnv, ProviderAWS}
	sort.Strings(names)
	return names
}

// New builds the provider named by cfg.Provider. Empty means none.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", ProviderNone:
		return noneProvider{}, nil
	case ProviderStatic:
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, fmt.Errorf("static credentials require access_key_id and secret_access_key")
		}
		return &sdkProvider{
			name:  ProviderStatic,
			cfg:   cfg,
			creds: awscreds.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		}, nil
	case ProviderEnv:
		return &sdkProvider{name: ProviderEnv, cfg: cfg, creds: awscreds.NewEnvCredentials()}, nil
	case ProviderAWS:
		return &sdkProvider{name: ProviderAWS, cfg: cfg}, nil
	}
	return nil, fmt.Errorf("unknown credentials provider %q (available: %v)", cfg.Provider, Providers())
}

type noneProvider struct{}

func (noneProvider) Name() string { return ProviderNone }

func (noneProvider) Retrieve(context.Context) (*core.Credentials, error) { return nil, nil }

// sdkProvider resolves through an AWS SDK credentials value. When creds is
// nil the SDK default chain of a fresh session is used.
type sdkProvider struct {
	name  string
	cfg   Config
	creds *awscreds.Credentials
}

func (p *sdkProvider) Name() string { return p.name }

func (p *sdkProvider) Retrieve(ctx context.Context) (*core.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	creds := p.creds
	region := p.cfg.Region
	if creds == nil {
		opts := session.Options{
			Profile:           p.cfg.Profile,
			SharedConfigState: session.SharedConfigEnable,
		}
		if region != "" {
			opts.Config.Region = aws.String(region)
		}
		sess, err := session.NewSessionWithOptions(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create aws session: %w", err)
		}
		creds = sess.Config.Credentials
		if region == "" && sess.Config.Region != nil {
			region = *sess.Config.Region
		}
	}

	v, err := creds.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s credentials: %w", p.name, err)
	}

	return &core.Credentials{
		AccessKeyID:     v.AccessKeyID,
		SecretAccessKey: v.SecretAccessKey,
		SessionToken:    v.SessionToken,
		Region:          region,
		Endpoint:        p.cfg.Endpoint,
		Source:          p.name + ":" + v.ProviderName,
	}, nil
}
