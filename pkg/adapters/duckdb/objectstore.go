package duckdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	awscreds "github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/leapstack-labs/playlake/pkg/core"
)

// deleteBatch is the DeleteObjects per-request key limit.
const deleteBatch = 1000

// PrefixRemover deletes every object under a remote table prefix. Remote
// writes call it before COPY so that partitions the new run does not
// produce are gone afterwards.
type PrefixRemover interface {
	RemovePrefix(ctx context.Context, url string) (int, error)
}

// S3Remover removes prefixes through the S3 API. It serves s3:// and the
// S3-compatible gs:// endpoint.
type S3Remover struct {
	Client s3iface.S3API
}

// NewS3Remover builds an S3 client from resolved credentials. Without keys
// the SDK default chain is used.
func NewS3Remover(scheme string, creds *core.Credentials) (*S3Remover, error) {
	cfg := aws.NewConfig().WithRegion("us-east-1")
	if scheme == "gs" || scheme == "gcs" {
		cfg = cfg.WithEndpoint("https://storage.googleapis.com")
	}
	if creds != nil {
		if creds.Region != "" {
			cfg = cfg.WithRegion(creds.Region)
		}
		if creds.Endpoint != "" {
			cfg = cfg.WithEndpoint(creds.Endpoint).WithS3ForcePathStyle(true)
		}
		if creds.HasKeys() {
			cfg = cfg.WithCredentials(awscreds.NewStaticCredentials(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken))
		}
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store session: %w", err)
	}
	return &S3Remover{Client: s3.New(sess)}, nil
}

// RemovePrefix deletes every object below url, treated as a directory, and
// returns how many were removed.
func (r *S3Remover) RemovePrefix(ctx context.Context, url string) (int, error) {
	_, bucket, prefix, err := splitObjectURL(url)
	if err != nil {
		return 0, err
	}

	var keys []*s3.ObjectIdentifier
	err = r.Client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, &s3.ObjectIdentifier{Key: obj.Key})
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", url, err)
	}

	for start := 0; start < len(keys); start += deleteBatch {
		batch := keys[start:min(start+deleteBatch, len(keys))]
		out, err := r.Client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return start, fmt.Errorf("delete under %s: %w", url, err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return start, fmt.Errorf("delete %s: %s", aws.StringValue(e.Key), aws.StringValue(e.Message))
		}
	}
	return len(keys), nil
}

// splitObjectURL splits scheme://bucket/key into its parts. The key is
// returned with a trailing slash so sibling prefixes never match.
func splitObjectURL(url string) (scheme, bucket, prefix string, err error) {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return "", "", "", fmt.Errorf("not an object store url: %q", url)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	key = strings.Trim(key, "/")
	if bucket == "" || key == "" {
		return "", "", "", fmt.Errorf("object store url %q needs a bucket and a key", url)
	}
	return strings.ToLower(scheme), bucket, key + "/", nil
}

// SetPrefixRemover replaces the remover used for remote writes.
func (a *Adapter) SetPrefixRemover(r PrefixRemover) {
	a.remover = r
}

func (a *Adapter) prefixRemover(url string) (PrefixRemover, error) {
	if a.remover != nil {
		return a.remover, nil
	}
	scheme, _, _, err := splitObjectURL(url)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case "s3", "s3a", "s3n", "gs", "gcs":
	default:
		return nil, fmt.Errorf("cannot replace %s: no object store client for scheme %q", url, scheme)
	}
	r, err := NewS3Remover(scheme, a.Cfg.Credentials)
	if err != nil {
		return nil, err
	}
	a.remover = r
	return r, nil
}

// writeRemote clears the table prefix and copies t into it.
func (a *Adapter) writeRemote(ctx context.Context, t *core.Table, final string) error {
	remover, err := a.prefixRemover(final)
	if err != nil {
		return err
	}
	n, err := remover.RemovePrefix(ctx, final)
	if err != nil {
		return fmt.Errorf("clear previous contents: %w", err)
	}
	a.Logger.Debug("cleared previous table contents", "path", final, "objects", n)
	return a.copyTable(ctx, t, final, true)
}
