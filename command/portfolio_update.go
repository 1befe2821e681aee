package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/google/uuid"
)

// PortfolioUpdateInput applies a batch of mutations to one portfolio. The
// batch is all-or-nothing.
type PortfolioUpdateInput struct {
	Actor       types.ActorRef
	PortfolioID uuid.UUID
	Mutations   []document.Mutation
	Result      *PortfolioUpdateResult
}

// Type implements gocommand.Message.
func (PortfolioUpdateInput) Type() string {
	return "command.portfolio.update"
}

// Validate implements gocommand.Message.
func (input PortfolioUpdateInput) Validate() error {
	switch {
	case input.PortfolioID == uuid.Nil:
		return ErrPortfolioIDRequired
	case len(input.Mutations) == 0:
		return ErrMutationsRequired
	default:
		return nil
	}
}

// PortfolioUpdateResult carries the saved document.
type PortfolioUpdateResult struct {
	Portfolio *document.Portfolio
}

// PortfolioUpdateCommand validates mutations against the section registry
// and theme catalogue before persisting.
type PortfolioUpdateCommand struct {
	repo     types.PortfolioRepository
	identity types.IdentityProvider
	rules    document.Rules
	clock    types.Clock
	logger   types.Logger
	hooks    types.Hooks
	activity types.ActivitySink
	guard    scope.Guard
}

// PortfolioUpdateCommandConfig wires the update handler.
type PortfolioUpdateCommandConfig struct {
	Repository types.PortfolioRepository
	Identity   types.IdentityProvider
	Content    document.ContentValidator
	Themes     document.ThemeCatalogue
	Clock      types.Clock
	Logger     types.Logger
	Hooks      types.Hooks
	Activity   types.ActivitySink
	ScopeGuard scope.Guard
}

// NewPortfolioUpdateCommand constructs the handler.
func NewPortfolioUpdateCommand(cfg PortfolioUpdateCommandConfig) *PortfolioUpdateCommand {
	return &PortfolioUpdateCommand{
		repo:     cfg.Repository,
		identity: cfg.Identity,
		rules:    document.Rules{Content: cfg.Content, Themes: cfg.Themes},
		clock:    safeClock(cfg.Clock),
		logger:   safeLogger(cfg.Logger),
		hooks:    cfg.Hooks,
		activity: cfg.Activity,
		guard:    safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[PortfolioUpdateInput] = (*PortfolioUpdateCommand)(nil)

// Execute loads, mutates and saves the document.
func (c *PortfolioUpdateCommand) Execute(ctx context.Context, input PortfolioUpdateInput) error {
	if c.repo == nil {
		return types.ErrMissingPortfolioRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	actor, err := resolveActor(ctx, c.identity, input.Actor)
	if err != nil {
		return err
	}
	current, err := loadPortfolio(ctx, c.repo, c.guard, actor, types.PolicyActionPortfoliosWrite, input.PortfolioID)
	if err != nil {
		return err
	}

	updatedAt := now(c.clock)
	next, err := document.Apply(*current, updatedAt, c.rules, input.Mutations...)
	if err != nil {
		c.logger.Debug("portfolio mutation rejected", "portfolio_id", input.PortfolioID, "kinds", document.Kinds(input.Mutations))
		return err
	}
	saved, err := c.repo.SavePortfolio(ctx, next)
	if err != nil {
		return err
	}

	kinds := document.Kinds(input.Mutations)
	recordPortfolioActivity(ctx, c.activity, c.hooks, c.logger, actor, saved.OwnerID, saved.ID, VerbPortfolioUpdated, updatedAt, map[string]any{
		"mutations": kinds,
	})
	emitPortfolioHook(ctx, c.hooks, types.PortfolioEvent{
		PortfolioID: saved.ID,
		OwnerID:     saved.OwnerID,
		ActorID:     actor.ID,
		Action:      VerbPortfolioUpdated,
		FromState:   types.PublishStateOf(*current),
		ToState:     types.PublishStateOf(*saved),
		OccurredAt:  updatedAt,
		Metadata:    map[string]any{"mutations": kinds},
	})

	if input.Result != nil {
		input.Result.Portfolio = saved
	}
	return nil
}

// loadPortfolio fetches a document and applies the ownership guard.
func loadPortfolio(ctx context.Context, repo types.PortfolioRepository, guard scope.Guard, actor types.ActorRef, action types.PolicyAction, id uuid.UUID) (*document.Portfolio, error) {
	current, err := repo.GetPortfolio(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, types.ErrPortfolioNotFound
	}
	if err := guard.Enforce(ctx, actor, action, current.OwnerID, current.ID); err != nil {
		return nil, err
	}
	return current, nil
}
