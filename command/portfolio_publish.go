package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/lifecycle"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/render"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/google/uuid"
)

// Renderer produces the static files of a portfolio.
type Renderer interface {
	Render(p document.Portfolio, opts ...render.Option) (render.Result, error)
}

// PortfolioPublishInput moves a portfolio between draft and published.
type PortfolioPublishInput struct {
	Actor       types.ActorRef
	PortfolioID uuid.UUID
	Result      *PortfolioPublishResult
}

// Type implements gocommand.Message.
func (PortfolioPublishInput) Type() string {
	return "command.portfolio.publish"
}

// Validate implements gocommand.Message.
func (input PortfolioPublishInput) Validate() error {
	if input.PortfolioID == uuid.Nil {
		return ErrPortfolioIDRequired
	}
	return nil
}

// PortfolioUnpublishInput moves a published portfolio back to draft.
type PortfolioUnpublishInput struct {
	Actor       types.ActorRef
	PortfolioID uuid.UUID
	Result      *PortfolioPublishResult
}

// Type implements gocommand.Message.
func (PortfolioUnpublishInput) Type() string {
	return "command.portfolio.unpublish"
}

// Validate implements gocommand.Message.
func (input PortfolioUnpublishInput) Validate() error {
	if input.PortfolioID == uuid.Nil {
		return ErrPortfolioIDRequired
	}
	return nil
}

// PortfolioPublishResult carries the saved document and the states it moved
// between.
type PortfolioPublishResult struct {
	Portfolio *document.Portfolio `json:"portfolio"`
	From      types.PublishState  `json:"from"`
	To        types.PublishState  `json:"to"`
}

// PublishCommandConfig configures both publish handlers.
type PublishCommandConfig struct {
	Repository  types.PortfolioRepository
	Identity    types.IdentityProvider
	Renderer    Renderer
	Policy      types.TransitionPolicy
	FeatureGate featuregate.FeatureGate
	Clock       types.Clock
	Logger      types.Logger
	Hooks       types.Hooks
	Activity    types.ActivitySink
	ScopeGuard  scope.Guard
}

type publishHandler struct {
	repo     types.PortfolioRepository
	identity types.IdentityProvider
	machine  *lifecycle.Machine
	gate     featuregate.FeatureGate
	clock    types.Clock
	logger   types.Logger
	hooks    types.Hooks
	activity types.ActivitySink
	guard    scope.Guard
}

func newPublishHandler(cfg PublishCommandConfig) publishHandler {
	var dryRun lifecycle.DryRun
	if cfg.Renderer != nil {
		renderer := cfg.Renderer
		dryRun = func(p document.Portfolio) error {
			_, err := renderer.Render(p)
			return err
		}
	}
	return publishHandler{
		repo:     cfg.Repository,
		identity: cfg.Identity,
		machine:  lifecycle.NewMachine(cfg.Policy, dryRun),
		gate:     cfg.FeatureGate,
		clock:    safeClock(cfg.Clock),
		logger:   safeLogger(cfg.Logger),
		hooks:    cfg.Hooks,
		activity: cfg.Activity,
		guard:    safeScopeGuard(cfg.ScopeGuard),
	}
}

// PortfolioPublishCommand publishes drafts after the publish guard and a
// dry-run render succeed.
type PortfolioPublishCommand struct {
	handler publishHandler
}

// NewPortfolioPublishCommand wires the publish handler.
func NewPortfolioPublishCommand(cfg PublishCommandConfig) *PortfolioPublishCommand {
	return &PortfolioPublishCommand{handler: newPublishHandler(cfg)}
}

var _ gocommand.Commander[PortfolioPublishInput] = (*PortfolioPublishCommand)(nil)

// Execute performs the draft to published transition.
func (c *PortfolioPublishCommand) Execute(ctx context.Context, input PortfolioPublishInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	return c.handler.transition(ctx, input.Actor, input.PortfolioID, types.PublishStatePublished, input.Result)
}

// PortfolioUnpublishCommand returns published portfolios to draft.
type PortfolioUnpublishCommand struct {
	handler publishHandler
}

// NewPortfolioUnpublishCommand wires the unpublish handler.
func NewPortfolioUnpublishCommand(cfg PublishCommandConfig) *PortfolioUnpublishCommand {
	return &PortfolioUnpublishCommand{handler: newPublishHandler(cfg)}
}

var _ gocommand.Commander[PortfolioUnpublishInput] = (*PortfolioUnpublishCommand)(nil)

// Execute performs the published to draft transition.
func (c *PortfolioUnpublishCommand) Execute(ctx context.Context, input PortfolioUnpublishInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	return c.handler.transition(ctx, input.Actor, input.PortfolioID, types.PublishStateDraft, input.Result)
}

func (h publishHandler) transition(ctx context.Context, actorRef types.ActorRef, id uuid.UUID, target types.PublishState, result *PortfolioPublishResult) error {
	if h.repo == nil {
		return types.ErrMissingPortfolioRepository
	}
	actor, err := resolveActor(ctx, h.identity, actorRef)
	if err != nil {
		return err
	}
	current, err := loadPortfolio(ctx, h.repo, h.guard, actor, types.PolicyActionPortfoliosPublish, id)
	if err != nil {
		return err
	}
	if target == types.PublishStatePublished {
		enabled, err := featureEnabled(ctx, h.gate, featurePortfoliosPublish, current.OwnerID)
		if err != nil {
			return err
		}
		if !enabled {
			return ErrPublishDisabled
		}
	}

	from := types.PublishStateOf(*current)
	changedAt := now(h.clock)
	var next document.Portfolio
	if target == types.PublishStatePublished {
		next, err = h.machine.Publish(*current, changedAt)
	} else {
		next, err = h.machine.Unpublish(*current, changedAt)
	}
	if err != nil {
		h.logger.Debug("publish transition rejected", "portfolio_id", id, "from", from, "to", target, "error", err.Error())
		return err
	}
	saved, err := h.repo.SavePortfolio(ctx, next)
	if err != nil {
		return err
	}

	verb := VerbPortfolioPublished
	if target == types.PublishStateDraft {
		verb = VerbPortfolioUnpublished
	}
	recordPortfolioActivity(ctx, h.activity, h.hooks, h.logger, actor, saved.OwnerID, saved.ID, verb, changedAt, map[string]any{
		"from_state": string(from),
		"to_state":   string(target),
	})
	emitPublishHook(ctx, h.hooks, types.PortfolioEvent{
		PortfolioID: saved.ID,
		OwnerID:     saved.OwnerID,
		ActorID:     actor.ID,
		Action:      verb,
		FromState:   from,
		ToState:     target,
		OccurredAt:  changedAt,
	})

	if result != nil {
		result.Portfolio = saved
		result.From = from
		result.To = target
	}
	return nil
}
