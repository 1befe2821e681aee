package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/lifecycle"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/google/uuid"
)

// PortfolioListInput lists the portfolios of OwnerID, defaulting to the actor.
type PortfolioListInput struct {
	Actor   types.ActorRef
	OwnerID uuid.UUID
}

// Type implements gocommand.Message.
func (PortfolioListInput) Type() string {
	return "query.portfolio.list"
}

// Validate implements gocommand.Message.
func (PortfolioListInput) Validate() error {
	return nil
}

// PortfolioListQuery returns an owner's portfolios oldest first.
type PortfolioListQuery struct {
	repo     types.PortfolioRepository
	identity types.IdentityProvider
	guard    scope.Guard
}

// NewPortfolioListQuery constructs the list query.
func NewPortfolioListQuery(repo types.PortfolioRepository, identity types.IdentityProvider, guard scope.Guard) *PortfolioListQuery {
	return &PortfolioListQuery{repo: repo, identity: identity, guard: safeScopeGuard(guard)}
}

var _ gocommand.Querier[PortfolioListInput, []document.Portfolio] = (*PortfolioListQuery)(nil)

// Query lists the portfolios.
func (q *PortfolioListQuery) Query(ctx context.Context, input PortfolioListInput) ([]document.Portfolio, error) {
	if q.repo == nil {
		return nil, types.ErrMissingPortfolioRepository
	}
	actor, err := resolveActor(ctx, q.identity, input.Actor)
	if err != nil {
		return nil, err
	}
	owner := ownerOrActor(input.OwnerID, actor)
	if err := q.guard.Enforce(ctx, actor, types.PolicyActionPortfoliosRead, owner, uuid.Nil); err != nil {
		return nil, err
	}
	return q.repo.ListPortfolios(ctx, owner)
}

// PortfolioDetailInput fetches one portfolio.
type PortfolioDetailInput struct {
	Actor       types.ActorRef
	PortfolioID uuid.UUID
}

// Type implements gocommand.Message.
func (PortfolioDetailInput) Type() string {
	return "query.portfolio.detail"
}

// Validate implements gocommand.Message.
func (input PortfolioDetailInput) Validate() error {
	if input.PortfolioID == uuid.Nil {
		return types.ErrPortfolioIDRequired
	}
	return nil
}

// PortfolioDetail is the editor read model.
type PortfolioDetail struct {
	Portfolio      document.Portfolio   `json:"portfolio"`
	State          types.PublishState   `json:"state"`
	AllowedTargets []types.PublishState `json:"allowedTargets"`
}

// PortfolioDetailQuery loads a portfolio with its publish state.
type PortfolioDetailQuery struct {
	repo     types.PortfolioRepository
	identity types.IdentityProvider
	policy   types.TransitionPolicy
	guard    scope.Guard
}

// NewPortfolioDetailQuery constructs the detail query. A nil policy uses
// types.DefaultTransitionPolicy.
func NewPortfolioDetailQuery(repo types.PortfolioRepository, identity types.IdentityProvider, policy types.TransitionPolicy, guard scope.Guard) *PortfolioDetailQuery {
	if policy == nil {
		policy = types.DefaultTransitionPolicy()
	}
	return &PortfolioDetailQuery{repo: repo, identity: identity, policy: policy, guard: safeScopeGuard(guard)}
}

var _ gocommand.Querier[PortfolioDetailInput, PortfolioDetail] = (*PortfolioDetailQuery)(nil)

// Query returns the detail view.
func (q *PortfolioDetailQuery) Query(ctx context.Context, input PortfolioDetailInput) (PortfolioDetail, error) {
	if q.repo == nil {
		return PortfolioDetail{}, types.ErrMissingPortfolioRepository
	}
	if err := input.Validate(); err != nil {
		return PortfolioDetail{}, err
	}
	actor, err := resolveActor(ctx, q.identity, input.Actor)
	if err != nil {
		return PortfolioDetail{}, err
	}
	current, err := loadPortfolio(ctx, q.repo, q.guard, actor, types.PolicyActionPortfoliosRead, input.PortfolioID)
	if err != nil {
		return PortfolioDetail{}, err
	}
	state := types.PublishStateOf(*current)
	return PortfolioDetail{
		Portfolio:      *current,
		State:          state,
		AllowedTargets: q.policy.AllowedTargets(state),
	}, nil
}

// QuotaStatusInput asks for the allowance of OwnerID, defaulting to the actor.
type QuotaStatusInput struct {
	Actor   types.ActorRef
	OwnerID uuid.UUID
}

// Type implements gocommand.Message.
func (QuotaStatusInput) Type() string {
	return "query.portfolio.quota"
}

// Validate implements gocommand.Message.
func (QuotaStatusInput) Validate() error {
	return nil
}

// QuotaStatusQuery builds the dashboard quota readout.
type QuotaStatusQuery struct {
	repo          types.PortfolioRepository
	subscriptions types.SubscriptionProvider
	identity      types.IdentityProvider
	guard         scope.Guard
}

// NewQuotaStatusQuery constructs the quota query.
func NewQuotaStatusQuery(repo types.PortfolioRepository, subscriptions types.SubscriptionProvider, identity types.IdentityProvider, guard scope.Guard) *QuotaStatusQuery {
	return &QuotaStatusQuery{repo: repo, subscriptions: subscriptions, identity: identity, guard: safeScopeGuard(guard)}
}

var _ gocommand.Querier[QuotaStatusInput, lifecycle.QuotaStatus] = (*QuotaStatusQuery)(nil)

// Query reads the tier and the current count.
func (q *QuotaStatusQuery) Query(ctx context.Context, input QuotaStatusInput) (lifecycle.QuotaStatus, error) {
	if q.repo == nil {
		return lifecycle.QuotaStatus{}, types.ErrMissingPortfolioRepository
	}
	if q.subscriptions == nil {
		return lifecycle.QuotaStatus{}, types.ErrMissingSubscriptionProvider
	}
	actor, err := resolveActor(ctx, q.identity, input.Actor)
	if err != nil {
		return lifecycle.QuotaStatus{}, err
	}
	owner := ownerOrActor(input.OwnerID, actor)
	if err := q.guard.Enforce(ctx, actor, types.PolicyActionPortfoliosRead, owner, uuid.Nil); err != nil {
		return lifecycle.QuotaStatus{}, err
	}
	tier, err := q.subscriptions.SubscriptionTier(ctx, owner)
	if err != nil {
		return lifecycle.QuotaStatus{}, err
	}
	count, err := q.repo.CountPortfolios(ctx, owner)
	if err != nil {
		return lifecycle.QuotaStatus{}, err
	}
	return lifecycle.NewQuotaStatus(tier, count), nil
}
