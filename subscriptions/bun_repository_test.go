package subscriptions

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"github.com/goliatone/go-portfolio/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestSubscriptionRepository_DefaultsToFree(t *testing.T) {
	db := newTestDB(t)
	applyDDL(t, db)

	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	tier, err := repo.SubscriptionTier(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, types.TierFree, tier)

	_, err = repo.SubscriptionTier(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, types.ErrActorRequired)
}

func TestSubscriptionRepository_SetTier(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	owner := uuid.New()
	require.NoError(t, repo.SetTier(ctx, owner, types.TierProfessional))
	tier, err := repo.SubscriptionTier(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, types.TierProfessional, tier)

	require.NoError(t, repo.SetTier(ctx, owner, types.TierAgency))
	tier, err = repo.SubscriptionTier(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, types.TierAgency, tier)

	require.ErrorIs(t, repo.SetTier(ctx, owner, types.Tier("platinum")), types.ErrUnknownTier)
}

func TestSubscriptionRepository_CacheWrapsRepository(t *testing.T) {
	db := newTestDB(t)
	applyDDL(t, db)

	repo, err := NewRepository(RepositoryConfig{Repository: newBaseRecordRepository(db)}, WithCache(true))
	require.NoError(t, err)

	_, ok := repo.subscriptionStore.(*repositorycache.CachedRepository[*Record])
	require.True(t, ok)
}

func TestSubscriptionRepository_CacheDoesNotDoubleWrap(t *testing.T) {
	db := newTestDB(t)
	applyDDL(t, db)

	cacheService, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)
	cached := repositorycache.New(newBaseRecordRepository(db), cacheService, cache.NewDefaultKeySerializer())

	repo, err := NewRepository(RepositoryConfig{Repository: cached}, WithCache(true))
	require.NoError(t, err)

	stored, ok := repo.subscriptionStore.(*repositorycache.CachedRepository[*Record])
	require.True(t, ok)
	require.Same(t, cached, stored)
}

func TestSubscriptionRepository_CachedReadsSeeWrites(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	repo, err := NewRepository(RepositoryConfig{DB: db}, WithCache(true))
	require.NoError(t, err)

	owner := uuid.New()
	other := uuid.New()
	require.NoError(t, repo.SetTier(ctx, owner, types.TierStarter))
	require.NoError(t, repo.SetTier(ctx, other, types.TierAgency))

	tier, err := repo.SubscriptionTier(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, types.TierStarter, tier)
	tier, err = repo.SubscriptionTier(ctx, other)
	require.NoError(t, err)
	require.Equal(t, types.TierAgency, tier)

	require.NoError(t, repo.SetTier(ctx, owner, types.TierProfessional))
	tier, err = repo.SubscriptionTier(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, types.TierProfessional, tier)
}

func newBaseRecordRepository(db *bun.DB) repository.Repository[*Record] {
	return repository.NewRepository(db, repository.ModelHandlers[*Record]{
		NewRecord: func() *Record { return &Record{} },
		GetID: func(rec *Record) uuid.UUID {
			if rec == nil {
				return uuid.Nil
			}
			return rec.ID
		},
		SetID: func(rec *Record, id uuid.UUID) {
			if rec != nil {
				rec.ID = id
			}
		},
	})
}

func newTestDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	return db
}

func applyDDL(t *testing.T, db *bun.DB) {
	content, err := os.ReadFile("../data/sql/migrations/sqlite/00003_owner_subscriptions.up.sql")
	require.NoError(t, err)
	for _, stmt := range strings.Split(string(content), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}
