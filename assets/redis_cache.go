package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long resolved bytes stay in Redis.
const DefaultCacheTTL = time.Hour

// RedisCacheConfig customizes CachedResolver.
type RedisCacheConfig struct {
	Prefix   string
	TTL      time.Duration
	MaxBytes int
	Logger   types.Logger
}

// RedisStore is the subset of the go-redis client used by CachedResolver.
type RedisStore interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// CachedResolver keeps resolved asset bytes in Redis in front of another
// resolver. Cache failures fall through to the wrapped resolver; misses are
// never cached.
type CachedResolver struct {
	next     types.AssetResolver
	rdb      RedisStore
	prefix   string
	ttl      time.Duration
	maxBytes int
	logger   types.Logger
}

// NewCachedResolver wraps next with a Redis read-through cache.
func NewCachedResolver(next types.AssetResolver, rdb RedisStore, cfg RedisCacheConfig) *CachedResolver {
	if cfg.Prefix == "" {
		cfg.Prefix = "portfolio:asset:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 2 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	return &CachedResolver{
		next:     next,
		rdb:      rdb,
		prefix:   cfg.Prefix,
		ttl:      cfg.TTL,
		maxBytes: cfg.MaxBytes,
		logger:   cfg.Logger,
	}
}

// NewRedisClient opens a client and verifies it with PING.
func NewRedisClient(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// ResolveAsset implements types.AssetResolver. Entries are keyed by owner
// and reference.
func (c *CachedResolver) ResolveAsset(ctx context.Context, owner uuid.UUID, ref string) ([]byte, error) {
	key := c.key(owner, ref)
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, goredis.Nil):
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Warn("asset cache read failed", "ref", ref, "error", err.Error())
		}
	}

	data, err := c.next.ResolveAsset(ctx, owner, ref)
	if err != nil {
		return nil, err
	}
	if c.rdb != nil && len(data) <= c.maxBytes {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("asset cache write failed", "ref", ref, "error", err.Error())
		}
	}
	return data, nil
}

func (c *CachedResolver) key(owner uuid.UUID, ref string) string {
	sum := sha256.Sum256([]byte(owner.String() + "\x00" + ref))
	return c.prefix + hex.EncodeToString(sum[:])
}
