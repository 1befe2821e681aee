package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/google/uuid"
)

// PortfolioDeleteInput removes a portfolio and releases its quota slot.
type PortfolioDeleteInput struct {
	Actor       types.ActorRef
	PortfolioID uuid.UUID
}

// Type implements gocommand.Message.
func (PortfolioDeleteInput) Type() string {
	return "command.portfolio.delete"
}

// Validate implements gocommand.Message.
func (input PortfolioDeleteInput) Validate() error {
	if input.PortfolioID == uuid.Nil {
		return ErrPortfolioIDRequired
	}
	return nil
}

// PortfolioDeleteCommand deletes documents. Deletion is not a publish
// transition; published documents can be deleted directly.
type PortfolioDeleteCommand struct {
	repo     types.PortfolioRepository
	identity types.IdentityProvider
	clock    types.Clock
	logger   types.Logger
	hooks    types.Hooks
	activity types.ActivitySink
	guard    scope.Guard
}

// PortfolioDeleteCommandConfig wires the delete handler.
type PortfolioDeleteCommandConfig struct {
	Repository types.PortfolioRepository
	Identity   types.IdentityProvider
	Clock      types.Clock
	Logger     types.Logger
	Hooks      types.Hooks
	Activity   types.ActivitySink
	ScopeGuard scope.Guard
}

// NewPortfolioDeleteCommand constructs the handler.
func NewPortfolioDeleteCommand(cfg PortfolioDeleteCommandConfig) *PortfolioDeleteCommand {
	return &PortfolioDeleteCommand{
		repo:     cfg.Repository,
		identity: cfg.Identity,
		clock:    safeClock(cfg.Clock),
		logger:   safeLogger(cfg.Logger),
		hooks:    cfg.Hooks,
		activity: cfg.Activity,
		guard:    safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[PortfolioDeleteInput] = (*PortfolioDeleteCommand)(nil)

// Execute deletes the document.
func (c *PortfolioDeleteCommand) Execute(ctx context.Context, input PortfolioDeleteInput) error {
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
	if err := c.repo.DeletePortfolio(ctx, current.ID); err != nil {
		return err
	}

	deletedAt := now(c.clock)
	recordPortfolioActivity(ctx, c.activity, c.hooks, c.logger, actor, current.OwnerID, current.ID, VerbPortfolioDeleted, deletedAt, map[string]any{
		"title":     current.Title,
		"published": current.Published,
	})
	emitPortfolioHook(ctx, c.hooks, types.PortfolioEvent{
		PortfolioID: current.ID,
		OwnerID:     current.OwnerID,
		ActorID:     actor.ID,
		Action:      VerbPortfolioDeleted,
		FromState:   types.PublishStateOf(*current),
		OccurredAt:  deletedAt,
	})
	return nil
}
