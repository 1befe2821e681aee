package subscriptions

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-portfolio/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires dependencies for the Bun-backed subscription store.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
}

type subscriptionStore interface {
	repository.Repository[*Record]
}

// Repository implements types.SubscriptionProvider. Owners without a row are
// on the free tier.
type Repository struct {
	subscriptionStore
	clock types.Clock
}

// NewRepository constructs the default subscription repository.
func NewRepository(cfg RepositoryConfig, options ...RepositoryOption) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("subscriptions: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
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

	opts := applyRepositoryOptions(options)
	if opts.CacheEnabled {
		if _, ok := repo.(*repositorycache.CachedRepository[*Record]); !ok {
			cacheCfg := cache.DefaultConfig()
			if opts.CacheConfig != nil {
				cacheCfg = *opts.CacheConfig
			}
			cacheService, err := cache.NewCacheService(cacheCfg)
			if err != nil {
				return nil, err
			}
			repo = repositorycache.New(repo, cacheService, cache.NewDefaultKeySerializer())
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &Repository{
		subscriptionStore: repo,
		clock:             clock,
	}, nil
}

var _ types.SubscriptionProvider = (*Repository)(nil)

// SubscriptionTier returns the stored tier of owner, or free when none was
// recorded. Stored names outside the known set are returned as-is; the quota
// guard treats them as free.
func (r *Repository) SubscriptionTier(ctx context.Context, owner uuid.UUID) (types.Tier, error) {
	if owner == uuid.Nil {
		return "", types.ErrActorRequired
	}
	rec, err := r.GetByID(ctx, owner.String())
	if err != nil {
		if isNotFound(err) {
			return types.TierFree, nil
		}
		return "", err
	}
	if tier, err := types.ParseTier(rec.Tier); err == nil {
		return tier, nil
	}
	return types.Tier(rec.Tier), nil
}

// SetTier records the tier of owner. It is the write side used by payment
// integrations and admin tooling.
func (r *Repository) SetTier(ctx context.Context, owner uuid.UUID, tier types.Tier) error {
	if owner == uuid.Nil {
		return types.ErrActorRequired
	}
	if !tier.Valid() {
		return types.ErrUnknownTier
	}
	now := r.clock.Now()
	existing, err := r.GetByID(ctx, owner.String())
	switch {
	case err == nil && existing != nil:
		existing.Tier = tier.String()
		existing.UpdatedAt = now
		_, err = r.Update(ctx, existing)
		return err
	case isNotFound(err):
		_, err = r.Create(ctx, &Record{ID: owner, Tier: tier.String(), UpdatedAt: now})
		return err
	default:
		return err
	}
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}
