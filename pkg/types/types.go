package types

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-portfolio/document"
	"github.com/google/uuid"
)

// ActorRef identifies the caller of a command or query.
type ActorRef struct {
	ID   uuid.UUID
	Type string
}

// Pagination supports list queries.
type Pagination struct {
	Limit  int
	Offset int
}

// PortfolioRepository is the persistence port. CreatePortfolio performs the
// quota count and the insert atomically per owner: it returns
// ErrQuotaExceeded when the owner already holds limit portfolios. A negative
// limit disables the check.
type PortfolioRepository interface {
	ListPortfolios(ctx context.Context, owner uuid.UUID) ([]document.Portfolio, error)
	GetPortfolio(ctx context.Context, id uuid.UUID) (*document.Portfolio, error)
	CountPortfolios(ctx context.Context, owner uuid.UUID) (int, error)
	CreatePortfolio(ctx context.Context, portfolio document.Portfolio, limit int) (*document.Portfolio, error)
	SavePortfolio(ctx context.Context, portfolio document.Portfolio) (*document.Portfolio, error)
	DeletePortfolio(ctx context.Context, id uuid.UUID) error
}

// IdentityProvider resolves the owner acting on the current request.
type IdentityProvider interface {
	CurrentOwner(ctx context.Context) (uuid.UUID, error)
}

// SubscriptionProvider reads the subscription tier of an owner. Payment
// collection lives entirely behind this port.
type SubscriptionProvider interface {
	SubscriptionTier(ctx context.Context, owner uuid.UUID) (Tier, error)
}

// SubscriptionProviderFunc adapts bare functions to SubscriptionProvider.
type SubscriptionProviderFunc func(ctx context.Context, owner uuid.UUID) (Tier, error)

// SubscriptionTier implements SubscriptionProvider.
func (f SubscriptionProviderFunc) SubscriptionTier(ctx context.Context, owner uuid.UUID) (Tier, error) {
	return f(ctx, owner)
}

// AssetResolver returns the bytes behind an asset reference found in the
// owner's portfolio. Implementations scope stored keys to owner and return
// an error wrapping ErrAssetNotFound for unknown or refused references.
type AssetResolver interface {
	ResolveAsset(ctx context.Context, owner uuid.UUID, ref string) ([]byte, error)
}

// AssetResolverFunc adapts bare functions to AssetResolver.
type AssetResolverFunc func(ctx context.Context, owner uuid.UUID, ref string) ([]byte, error)

// ResolveAsset implements AssetResolver.
func (f AssetResolverFunc) ResolveAsset(ctx context.Context, owner uuid.UUID, ref string) ([]byte, error) {
	return f(ctx, owner, ref)
}

// PortfolioEvent is emitted after a portfolio is created, updated, deleted,
// published or unpublished.
type PortfolioEvent struct {
	PortfolioID uuid.UUID
	OwnerID     uuid.UUID
	ActorID     uuid.UUID
	Action      string
	FromState   PublishState
	ToState     PublishState
	OccurredAt  time.Time
	Metadata    map[string]any
}

// ExportEvent is emitted after an archive has been produced.
type ExportEvent struct {
	PortfolioID uuid.UUID
	OwnerID     uuid.UUID
	ActorID     uuid.UUID
	Filename    string
	Size        int
	Warnings    []string
	OccurredAt  time.Time
}

// Hooks groups optional callbacks invoked after key workflows complete.
type Hooks struct {
	AfterPortfolioChange func(context.Context, PortfolioEvent)
	AfterPublishChange   func(context.Context, PortfolioEvent)
	AfterExport          func(context.Context, ExportEvent)
	AfterActivity        func(context.Context, ActivityRecord)
}

// ActivityRecord describes sink inputs and is shared across sink and query layers.
type ActivityRecord struct {
	ID         uuid.UUID      `json:"id"`
	OwnerID    uuid.UUID      `json:"ownerId"`
	ActorID    uuid.UUID      `json:"actorId"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"objectType"`
	ObjectID   string         `json:"objectId"`
	Channel    string         `json:"channel"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// ActivitySink is the minimal DI contract for emitting activity.
type ActivitySink interface {
	Log(context.Context, ActivityRecord) error
}

// ActivityRepository exposes read-side access to activity logs.
type ActivityRepository interface {
	ListActivity(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

// ActivityFilter narrows activity feed queries.
type ActivityFilter struct {
	Actor      ActorRef
	OwnerID    uuid.UUID
	ObjectID   string
	Verbs      []string
	Since      *time.Time
	Until      *time.Time
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (ActivityFilter) Type() string {
	return "query.activity.feed"
}

// Validate implements gocommand.Message.
func (filter ActivityFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// ActivityPage represents a paginated feed response.
type ActivityPage struct {
	Records    []ActivityRecord `json:"records"`
	Total      int              `json:"total"`
	NextOffset int              `json:"nextOffset"`
	HasMore    bool             `json:"hasMore"`
}

// Clock abstracts time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID creation.
type IDGenerator interface {
	UUID() uuid.UUID
}

// Logger captures basic logging hooks used by the service.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// SystemClock defers to time.Now for production usage.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator produces UUIDv4 identifiers.
type UUIDGenerator struct{}

// UUID returns a randomly generated UUID.
func (UUIDGenerator) UUID() uuid.UUID { return uuid.New() }

// NopLogger discards all log lines.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Warn implements Logger.
func (NopLogger) Warn(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = errors.New("go-portfolio: actor reference required")
	// ErrPortfolioIDRequired indicates a portfolio identifier was omitted.
	ErrPortfolioIDRequired = errors.New("go-portfolio: portfolio id required")
	// ErrPortfolioNotFound indicates the portfolio does not exist or is not visible to the actor.
	ErrPortfolioNotFound = errors.New("go-portfolio: portfolio not found")
	// ErrAssetNotFound indicates the asset store has no bytes for a reference.
	ErrAssetNotFound = errors.New("go-portfolio: asset not found")
	// ErrQuotaExceeded is returned by persistence when the atomic count-and-create refuses.
	ErrQuotaExceeded = errors.New("go-portfolio: portfolio quota exceeded")
	// ErrServiceNotReady indicates the service has not been properly configured.
	ErrServiceNotReady = errors.New("go-portfolio: service not ready")
	// ErrMissingPortfolioRepository occurs when no portfolio repository was supplied.
	ErrMissingPortfolioRepository = errors.New("go-portfolio: missing portfolio repository")
	// ErrMissingSubscriptionProvider occurs when no subscription provider was supplied.
	ErrMissingSubscriptionProvider = errors.New("go-portfolio: missing subscription provider")
	// ErrMissingActivityRepository occurs when no activity repository was supplied.
	ErrMissingActivityRepository = errors.New("go-portfolio: missing activity repository")
	// ErrMissingActivitySink occurs when activity logging runs without a sink.
	ErrMissingActivitySink = errors.New("go-portfolio: missing activity sink")
	// ErrMissingAssetResolver occurs when export runs without an asset resolver.
	ErrMissingAssetResolver = errors.New("go-portfolio: missing asset resolver")
)
