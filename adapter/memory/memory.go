// Package memory provides in-memory implementations of the go-portfolio
// ports. They back the service tests and local development servers.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
)

// PortfolioRepository stores portfolios in a map. Creates for the same owner
// are serialized by a per-owner mutex so the quota count and the insert
// happen as one step.
type PortfolioRepository struct {
	mu         sync.RWMutex
	portfolios map[uuid.UUID]document.Portfolio

	ownerMu sync.Mutex
	owners  map[uuid.UUID]*sync.Mutex

	clock types.Clock
	ids   types.IDGenerator
}

// PortfolioOption customizes the repository.
type PortfolioOption func(*PortfolioRepository)

// WithClock overrides the timestamp source.
func WithClock(clock types.Clock) PortfolioOption {
	return func(r *PortfolioRepository) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithIDGenerator overrides id assignment.
func WithIDGenerator(ids types.IDGenerator) PortfolioOption {
	return func(r *PortfolioRepository) {
		if ids != nil {
			r.ids = ids
		}
	}
}

// NewPortfolioRepository provisions an empty repository.
func NewPortfolioRepository(opts ...PortfolioOption) *PortfolioRepository {
	repo := &PortfolioRepository{
		portfolios: make(map[uuid.UUID]document.Portfolio),
		owners:     make(map[uuid.UUID]*sync.Mutex),
		clock:      types.SystemClock{},
		ids:        types.UUIDGenerator{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

var _ types.PortfolioRepository = (*PortfolioRepository)(nil)

func (r *PortfolioRepository) ownerLock(owner uuid.UUID) *sync.Mutex {
	r.ownerMu.Lock()
	defer r.ownerMu.Unlock()
	lock, ok := r.owners[owner]
	if !ok {
		lock = &sync.Mutex{}
		r.owners[owner] = lock
	}
	return lock
}

// ListPortfolios returns the owner's portfolios oldest first.
func (r *PortfolioRepository) ListPortfolios(_ context.Context, owner uuid.UUID) ([]document.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]document.Portfolio, 0)
	for _, p := range r.portfolios {
		if p.OwnerID == owner {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *PortfolioRepository) GetPortfolio(_ context.Context, id uuid.UUID) (*document.Portfolio, error) {
	if id == uuid.Nil {
		return nil, types.ErrPortfolioIDRequired
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.portfolios[id]
	if !ok {
		return nil, types.ErrPortfolioNotFound
	}
	clone := p.Clone()
	return &clone, nil
}

func (r *PortfolioRepository) CountPortfolios(_ context.Context, owner uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked(owner), nil
}

func (r *PortfolioRepository) countLocked(owner uuid.UUID) int {
	count := 0
	for _, p := range r.portfolios {
		if p.OwnerID == owner {
			count++
		}
	}
	return count
}

// CreatePortfolio counts and inserts under the owner's lock.
func (r *PortfolioRepository) CreatePortfolio(ctx context.Context, portfolio document.Portfolio, limit int) (*document.Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock := r.ownerLock(portfolio.OwnerID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if limit >= 0 && r.countLocked(portfolio.OwnerID) >= limit {
		return nil, types.ErrQuotaExceeded
	}
	record := portfolio.Clone()
	if record.ID == uuid.Nil {
		record.ID = r.ids.UUID()
	}
	if _, exists := r.portfolios[record.ID]; exists {
		return nil, fmt.Errorf("memory portfolios: duplicate id %s", record.ID)
	}
	now := r.clock.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.Sections == nil {
		record.Sections = []document.Section{}
	}
	r.portfolios[record.ID] = record
	clone := record.Clone()
	return &clone, nil
}

// SavePortfolio replaces the stored document. Owner and creation time are
// kept from the stored copy.
func (r *PortfolioRepository) SavePortfolio(_ context.Context, portfolio document.Portfolio) (*document.Portfolio, error) {
	if portfolio.ID == uuid.Nil {
		return nil, types.ErrPortfolioIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.portfolios[portfolio.ID]
	if !ok {
		return nil, types.ErrPortfolioNotFound
	}
	record := portfolio.Clone()
	record.OwnerID = current.OwnerID
	record.CreatedAt = current.CreatedAt
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = r.clock.Now()
	}
	r.portfolios[record.ID] = record
	clone := record.Clone()
	return &clone, nil
}

func (r *PortfolioRepository) DeletePortfolio(_ context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return types.ErrPortfolioIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.portfolios[id]; !ok {
		return types.ErrPortfolioNotFound
	}
	delete(r.portfolios, id)
	return nil
}

// SubscriptionStore keeps owner tiers in memory. Owners without an entry
// read as the fallback tier.
type SubscriptionStore struct {
	mu       sync.RWMutex
	tiers    map[uuid.UUID]types.Tier
	fallback types.Tier
}

// NewSubscriptionStore provisions the store with a free fallback tier.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		tiers:    make(map[uuid.UUID]types.Tier),
		fallback: types.TierFree,
	}
}

var _ types.SubscriptionProvider = (*SubscriptionStore)(nil)

// SetTier records the tier for owner.
func (s *SubscriptionStore) SetTier(owner uuid.UUID, tier types.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[owner] = tier
}

func (s *SubscriptionStore) SubscriptionTier(_ context.Context, owner uuid.UUID) (types.Tier, error) {
	if owner == uuid.Nil {
		return "", types.ErrActorRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tier, ok := s.tiers[owner]; ok {
		return tier, nil
	}
	return s.fallback, nil
}

// AssetStore serves asset bytes from a map keyed by reference. Entries added
// with PutOwned are visible to that owner only; Put entries are shared.
type AssetStore struct {
	mu     sync.RWMutex
	assets map[string][]byte
	owned  map[uuid.UUID]map[string][]byte
}

// NewAssetStore provisions an empty store.
func NewAssetStore() *AssetStore {
	return &AssetStore{
		assets: make(map[string][]byte),
		owned:  make(map[uuid.UUID]map[string][]byte),
	}
}

var _ types.AssetResolver = (*AssetStore)(nil)

// Put stores data under ref.
func (s *AssetStore) Put(ref string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[ref] = append([]byte(nil), data...)
}

// PutOwned stores data under ref for owner.
func (s *AssetStore) PutOwned(owner uuid.UUID, ref string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owned[owner] == nil {
		s.owned[owner] = make(map[string][]byte)
	}
	s.owned[owner][ref] = append([]byte(nil), data...)
}

func (s *AssetStore) ResolveAsset(ctx context.Context, owner uuid.UUID, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.owned[owner][ref]
	if !ok {
		data, ok = s.assets[ref]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrAssetNotFound, ref)
	}
	return append([]byte(nil), data...), nil
}

// ActivityStore logs activity entries in memory and exposes query helpers.
type ActivityStore struct {
	mu      sync.RWMutex
	records []types.ActivityRecord
}

// NewActivityStore provisions the store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

var (
	_ types.ActivitySink       = (*ActivityStore)(nil)
	_ types.ActivityRepository = (*ActivityStore)(nil)
)

func (s *ActivityStore) Log(_ context.Context, record types.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now().UTC()
	}
	s.records = append([]types.ActivityRecord{record}, s.records...)
	return nil
}

// Records returns a snapshot, newest first.
func (s *ActivityStore) Records() []types.ActivityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.ActivityRecord{}, s.records...)
}

func (s *ActivityStore) ListActivity(_ context.Context, filter types.ActivityFilter) (types.ActivityPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	filtered := make([]types.ActivityRecord, 0, len(s.records))
	for _, record := range s.records {
		if filter.OwnerID != uuid.Nil && record.OwnerID != filter.OwnerID {
			continue
		}
		if filter.ObjectID != "" && record.ObjectID != filter.ObjectID {
			continue
		}
		if len(filter.Verbs) > 0 && !containsVerb(filter.Verbs, record.Verb) {
			continue
		}
		if filter.Since != nil && record.OccurredAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && record.OccurredAt.After(*filter.Until) {
			continue
		}
		filtered = append(filtered, record)
	}
	limit := filter.Pagination.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Pagination.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(filtered) {
		offset = len(filtered)
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return types.ActivityPage{
		Records:    append([]types.ActivityRecord{}, filtered[offset:end]...),
		Total:      len(filtered),
		NextOffset: end,
		HasMore:    end < len(filtered),
	}, nil
}

func containsVerb(verbs []string, verb string) bool {
	for _, v := range verbs {
		if v == verb {
			return true
		}
	}
	return false
}
