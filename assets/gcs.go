package assets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GCSConfig selects how the storage client is built.
type GCSConfig struct {
	// EmulatorHost points the client at a fake-gcs style emulator and
	// disables authentication.
	EmulatorHost string
	MaxBytes     int64
	// Buckets lists the buckets references may name. An empty list refuses
	// every reference.
	Buckets []string
}

// GCSResolver reads gs://bucket/object references from Cloud Storage.
// Objects are read from the "<owner>/" prefix of an allowed bucket.
type GCSResolver struct {
	client   *storage.Client
	maxBytes int64
	buckets  map[string]bool
}

// NewGCSResolver builds the storage client. Callers own Close.
func NewGCSResolver(ctx context.Context, cfg GCSConfig) (*GCSResolver, error) {
	var opts []option.ClientOption
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		opts = append(opts, option.WithoutAuthentication(), option.WithEndpoint(host+"/storage/v1/"))
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadOnly))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("go-portfolio: gcs client: %w", err)
	}
	return NewGCSResolverWithClient(client, cfg), nil
}

// NewGCSResolverWithClient wraps an existing client.
func NewGCSResolverWithClient(client *storage.Client, cfg GCSConfig) *GCSResolver {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	buckets := make(map[string]bool, len(cfg.Buckets))
	for _, bucket := range cfg.Buckets {
		if bucket = strings.TrimSpace(bucket); bucket != "" {
			buckets[bucket] = true
		}
	}
	return &GCSResolver{client: client, maxBytes: cfg.MaxBytes, buckets: buckets}
}

// ResolveAsset implements types.AssetResolver.
func (r *GCSResolver) ResolveAsset(ctx context.Context, owner uuid.UUID, ref string) ([]byte, error) {
	bucket, object, err := r.scope(owner, ref)
	if err != nil {
		return nil, err
	}
	reader, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrAssetNotFound, ref)
		}
		return nil, fmt.Errorf("go-portfolio: open gcs object: %w", err)
	}
	defer reader.Close()
	return readLimited(reader, r.maxBytes, ref)
}

// scope checks the bucket allowlist and places the object under the
// owner's prefix.
func (r *GCSResolver) scope(owner uuid.UUID, ref string) (string, string, error) {
	bucket, object, err := ParseGSRef(ref)
	if err != nil {
		return "", "", err
	}
	if !r.buckets[bucket] {
		return "", "", refused(ref, "bucket not allowed")
	}
	key, ok := OwnerKey(owner, object)
	if !ok {
		return "", "", refused(ref, "outside owner prefix")
	}
	return bucket, key, nil
}

// Close releases the underlying client.
func (r *GCSResolver) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// ParseGSRef splits gs://bucket/path/to/object.
func ParseGSRef(ref string) (bucket, object string, err error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || !strings.EqualFold(u.Scheme, "gs") || u.Host == "" {
		return "", "", fmt.Errorf("%w: not a gs reference: %s", types.ErrAssetNotFound, ref)
	}
	object = strings.TrimPrefix(u.Path, "/")
	if object == "" {
		return "", "", fmt.Errorf("%w: missing object in %s", types.ErrAssetNotFound, ref)
	}
	return u.Host, object, nil
}
