package assets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestFSResolverScopesToOwner(t *testing.T) {
	owner, other := uuid.New(), uuid.New()
	resolver := FSResolver{FS: fstest.MapFS{
		owner.String() + "/uploads/logo.png":   {Data: []byte("LOGO")},
		other.String() + "/uploads/secret.png": {Data: []byte("SECRET")},
		"uploads/shared.png":                    {Data: []byte("SHARED")},
	}}
	ctx := context.Background()

	data, err := resolver.ResolveAsset(ctx, owner, "uploads/logo.png")
	require.NoError(t, err)
	require.Equal(t, "LOGO", string(data))

	data, err = resolver.ResolveAsset(ctx, owner, "/uploads/logo.png?v=3")
	require.NoError(t, err)
	require.Equal(t, "LOGO", string(data))

	data, err = resolver.ResolveAsset(ctx, owner, owner.String()+"/uploads/logo.png")
	require.NoError(t, err)
	require.Equal(t, "LOGO", string(data))

	_, err = resolver.ResolveAsset(ctx, owner, "uploads/missing.png")
	require.ErrorIs(t, err, types.ErrAssetNotFound)

	_, err = resolver.ResolveAsset(ctx, owner, other.String()+"/uploads/secret.png")
	require.ErrorIs(t, err, types.ErrAssetNotFound)

	_, err = resolver.ResolveAsset(ctx, owner, "../"+other.String()+"/uploads/secret.png")
	require.ErrorIs(t, err, types.ErrAssetNotFound)

	_, err = resolver.ResolveAsset(ctx, owner, "uploads/shared.png")
	require.ErrorIs(t, err, types.ErrAssetNotFound)

	_, err = resolver.ResolveAsset(ctx, uuid.Nil, "uploads/shared.png")
	require.ErrorIs(t, err, ErrAssetRefused)
	require.ErrorIs(t, err, types.ErrAssetNotFound)
}

func TestOwnerKey(t *testing.T) {
	owner := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	prefix := owner.String() + "/"

	key, ok := OwnerKey(owner, "uploads/a.png")
	require.True(t, ok)
	require.Equal(t, prefix+"uploads/a.png", key)

	key, ok = OwnerKey(owner, "/"+prefix+"a.png")
	require.True(t, ok)
	require.Equal(t, prefix+"a.png", key)

	key, ok = OwnerKey(owner, "../../etc/passwd")
	require.True(t, ok)
	require.Equal(t, prefix+"etc/passwd", key)

	_, ok = OwnerKey(owner, "/")
	require.False(t, ok)
	_, ok = OwnerKey(uuid.Nil, "a.png")
	require.False(t, ok)
}

func TestHTTPResolver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/logo.png":
			_, _ = w.Write([]byte("LOGO"))
		case "/big.png":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		case "/broken.png":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	resolver := NewHTTPResolver(HTTPConfig{Timeout: time.Second, MaxBytes: 32, AllowPrivateNetworks: true})
	ctx := context.Background()
	owner := uuid.New()

	data, err := resolver.ResolveAsset(ctx, owner, server.URL+"/logo.png")
	require.NoError(t, err)
	require.Equal(t, "LOGO", string(data))

	_, err = resolver.ResolveAsset(ctx, owner, server.URL+"/missing.png")
	require.ErrorIs(t, err, types.ErrAssetNotFound)

	_, err = resolver.ResolveAsset(ctx, owner, server.URL+"/broken.png")
	require.Error(t, err)
	require.False(t, errors.Is(err, types.ErrAssetNotFound))

	_, err = resolver.ResolveAsset(ctx, owner, server.URL+"/big.png")
	require.ErrorIs(t, err, ErrAssetTooLarge)
}

func TestHTTPResolverRefusesPrivateAddresses(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("internal-secret"))
	}))
	t.Cleanup(server.Close)

	resolver := NewHTTPResolver(HTTPConfig{Timeout: time.Second})
	mux := NewMux().Handle("http", resolver).Handle("https", resolver)
	ctx := context.Background()
	owner := uuid.New()
	port := server.Listener.Addr().(*net.TCPAddr).Port

	refs := []string{
		server.URL + "/latest/meta-data",
		fmt.Sprintf("http://localhost:%d/latest/meta-data", port),
		"http://169.254.169.254/latest/meta-data",
		"http://10.0.0.8/admin",
		"http://[::1]/admin",
		"http://[::ffff:127.0.0.1]/admin",
	}
	for _, ref := range refs {
		data, err := mux.ResolveAsset(ctx, owner, ref)
		require.ErrorIs(t, err, ErrAssetRefused, ref)
		require.ErrorIs(t, err, types.ErrAssetNotFound, ref)
		require.Nil(t, data)
	}
	require.Zero(t, hits.Load())
}

func TestHTTPResolverFollowsHostAllowlist(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/hop" {
			http.Redirect(w, r, "http://169.254.169.254/latest/meta-data", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("OK"))
	}))
	t.Cleanup(server.Close)
	host := server.Listener.Addr().(*net.TCPAddr).IP.String()

	resolver := NewHTTPResolver(HTTPConfig{
		Timeout:              time.Second,
		AllowedHosts:         []string{host, ".cdn.example.com"},
		AllowPrivateNetworks: true,
	})
	ctx := context.Background()
	owner := uuid.New()

	data, err := resolver.ResolveAsset(ctx, owner, server.URL+"/logo.png")
	require.NoError(t, err)
	require.Equal(t, "OK", string(data))

	_, err = resolver.ResolveAsset(ctx, owner, server.URL+"/hop")
	require.ErrorIs(t, err, ErrAssetRefused)
	require.ErrorIs(t, err, types.ErrAssetNotFound)

	_, err = resolver.ResolveAsset(ctx, owner, "https://evil.example.org/logo.png")
	require.ErrorIs(t, err, ErrAssetRefused)

	_, err = resolver.ResolveAsset(ctx, owner, "ftp://"+host+"/logo.png")
	require.ErrorIs(t, err, ErrAssetRefused)
	require.Equal(t, int32(2), hits.Load())
}

func TestMuxRoutesByScheme(t *testing.T) {
	local := types.AssetResolverFunc(func(context.Context, uuid.UUID, string) ([]byte, error) { return []byte("local"), nil })
	remote := types.AssetResolverFunc(func(context.Context, uuid.UUID, string) ([]byte, error) { return []byte("remote"), nil })
	mux := NewMux().Handle("", local).Handle("https", remote)
	ctx := context.Background()
	owner := uuid.New()

	data, err := mux.ResolveAsset(ctx, owner, "uploads/a.png")
	require.NoError(t, err)
	require.Equal(t, "local", string(data))

	data, err = mux.ResolveAsset(ctx, owner, "HTTPS://cdn.example.com/a.png")
	require.NoError(t, err)
	require.Equal(t, "remote", string(data))

	_, err = mux.ResolveAsset(ctx, owner, "gs://bucket/a.png")
	require.ErrorIs(t, err, ErrUnsupportedScheme)
	require.ErrorIs(t, err, types.ErrAssetNotFound)
}

func TestGCSResolverScope(t *testing.T) {
	owner := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	resolver := NewGCSResolverWithClient(nil, GCSConfig{Buckets: []string{"media"}})

	bucket, object, err := resolver.scope(owner, "gs://media/logo.png")
	require.NoError(t, err)
	require.Equal(t, "media", bucket)
	require.Equal(t, owner.String()+"/logo.png", object)

	_, object, err = resolver.scope(owner, "gs://media/"+owner.String()+"/logo.png")
	require.NoError(t, err)
	require.Equal(t, owner.String()+"/logo.png", object)

	_, _, err = resolver.scope(owner, "gs://private-backups/db.sql")
	require.ErrorIs(t, err, ErrAssetRefused)
	require.ErrorIs(t, err, types.ErrAssetNotFound)

	_, err = resolver.ResolveAsset(context.Background(), uuid.Nil, "gs://media/logo.png")
	require.ErrorIs(t, err, ErrAssetRefused)

	_, err = NewGCSResolverWithClient(nil, GCSConfig{}).ResolveAsset(context.Background(), owner, "gs://media/logo.png")
	require.ErrorIs(t, err, ErrAssetRefused)
}

func TestParseGSRef(t *testing.T) {
	bucket, object, err := ParseGSRef("gs://media/users/1/logo.png")
	require.NoError(t, err)
	require.Equal(t, "media", bucket)
	require.Equal(t, "users/1/logo.png", object)

	_, _, err = ParseGSRef("gs://media/")
	require.ErrorIs(t, err, types.ErrAssetNotFound)
	_, _, err = ParseGSRef("https://media/logo.png")
	require.ErrorIs(t, err, types.ErrAssetNotFound)
}

type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]string
	getErr  error
	sets    int
	lastTTL time.Duration
}

func (f *fakeRedis) Get(ctx context.Context, key string) *goredis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return goredis.NewStringResult("", f.getErr)
	}
	value, ok := f.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = string(value.([]byte))
	f.sets++
	f.lastTTL = expiration
	return goredis.NewStatusResult("OK", nil)
}

func TestCachedResolverReadsThrough(t *testing.T) {
	calls := 0
	next := types.AssetResolverFunc(func(_ context.Context, _ uuid.UUID, ref string) ([]byte, error) {
		calls++
		if ref == "missing.png" {
			return nil, types.ErrAssetNotFound
		}
		return []byte("bytes:" + ref), nil
	})
	store := &fakeRedis{}
	cached := NewCachedResolver(next, store, RedisCacheConfig{TTL: time.Minute})
	ctx := context.Background()
	owner := uuid.New()

	for range 3 {
		data, err := cached.ResolveAsset(ctx, owner, "logo.png")
		require.NoError(t, err)
		require.Equal(t, "bytes:logo.png", string(data))
	}
	require.Equal(t, 1, calls)
	require.Equal(t, 1, store.sets)
	require.Equal(t, time.Minute, store.lastTTL)

	_, err := cached.ResolveAsset(ctx, owner, "missing.png")
	require.ErrorIs(t, err, types.ErrAssetNotFound)
	require.Equal(t, 1, store.sets)
}

func TestCachedResolverFallsThroughOnCacheFailure(t *testing.T) {
	next := types.AssetResolverFunc(func(context.Context, uuid.UUID, string) ([]byte, error) {
		return []byte("fresh"), nil
	})
	store := &fakeRedis{getErr: errors.New("connection refused")}
	cached := NewCachedResolver(next, store, RedisCacheConfig{})

	data, err := cached.ResolveAsset(context.Background(), uuid.New(), "logo.png")
	require.NoError(t, err)
	require.Equal(t, "fresh", string(data))
}

func TestCachedResolverKeysByOwner(t *testing.T) {
	next := types.AssetResolverFunc(func(_ context.Context, owner uuid.UUID, ref string) ([]byte, error) {
		return []byte(owner.String() + ":" + ref), nil
	})
	cached := NewCachedResolver(next, &fakeRedis{}, RedisCacheConfig{})
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()

	data, err := cached.ResolveAsset(ctx, first, "me.png")
	require.NoError(t, err)
	require.Equal(t, first.String()+":me.png", string(data))

	data, err = cached.ResolveAsset(ctx, second, "me.png")
	require.NoError(t, err)
	require.Equal(t, second.String()+":me.png", string(data))
}
