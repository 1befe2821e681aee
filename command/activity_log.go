package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/google/uuid"
)

// Verbs a host application may record against a portfolio. Lifecycle verbs
// such as portfolio.published are written by their own commands only.
const (
	VerbPortfolioDeployed        = "portfolio.deployed"
	VerbPortfolioDomainConnected = "portfolio.domain_connected"
	VerbPortfolioShared          = "portfolio.shared"
	VerbPortfolioViewed          = "portfolio.viewed"
)

var hostActivityVerbs = map[string]types.PolicyAction{
	VerbPortfolioDeployed:        types.PolicyActionPortfoliosWrite,
	VerbPortfolioDomainConnected: types.PolicyActionPortfoliosWrite,
	VerbPortfolioShared:          types.PolicyActionPortfoliosWrite,
	VerbPortfolioViewed:          types.PolicyActionPortfoliosRead,
}

// PortfolioActivityInput records a host-side event on one portfolio, for
// instance a deploy of the exported bundle.
type PortfolioActivityInput struct {
	Actor       types.ActorRef
	PortfolioID uuid.UUID
	Verb        string
	Data        map[string]any
	Result      *types.ActivityRecord
}

// Type implements gocommand.Message.
func (PortfolioActivityInput) Type() string {
	return "command.portfolio.activity"
}

// Validate implements gocommand.Message.
func (input PortfolioActivityInput) Validate() error {
	if input.PortfolioID == uuid.Nil {
		return ErrPortfolioIDRequired
	}
	verb := strings.TrimSpace(input.Verb)
	if verb == "" {
		return ErrActivityVerbRequired
	}
	if _, ok := hostActivityVerbs[verb]; !ok {
		return ErrActivityVerbNotAllowed
	}
	return nil
}

// PortfolioActivityCommand appends host events to a portfolio's feed. The
// actor must be able to see the portfolio; verbs that change its public
// footprint also need write access.
type PortfolioActivityCommand struct {
	repo     types.PortfolioRepository
	identity types.IdentityProvider
	sink     types.ActivitySink
	hooks    types.Hooks
	clock    types.Clock
	guard    scope.Guard
}

// PortfolioActivityCommandConfig wires the activity handler.
type PortfolioActivityCommandConfig struct {
	Repository types.PortfolioRepository
	Identity   types.IdentityProvider
	Sink       types.ActivitySink
	Hooks      types.Hooks
	Clock      types.Clock
	ScopeGuard scope.Guard
}

// NewPortfolioActivityCommand constructs the handler.
func NewPortfolioActivityCommand(cfg PortfolioActivityCommandConfig) *PortfolioActivityCommand {
	return &PortfolioActivityCommand{
		repo:     cfg.Repository,
		identity: cfg.Identity,
		sink:     cfg.Sink,
		hooks:    cfg.Hooks,
		clock:    safeClock(cfg.Clock),
		guard:    safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[PortfolioActivityInput] = (*PortfolioActivityCommand)(nil)

// Execute checks access to the portfolio and persists the record. Unlike
// lifecycle commands a sink failure is returned to the caller.
func (c *PortfolioActivityCommand) Execute(ctx context.Context, input PortfolioActivityInput) error {
	if c.repo == nil {
		return types.ErrMissingPortfolioRepository
	}
	if c.sink == nil {
		return types.ErrMissingActivitySink
	}
	if err := input.Validate(); err != nil {
		return err
	}
	verb := strings.TrimSpace(input.Verb)
	actor, err := resolveActor(ctx, c.identity, input.Actor)
	if err != nil {
		return err
	}
	current, err := loadPortfolio(ctx, c.repo, c.guard, actor, hostActivityVerbs[verb], input.PortfolioID)
	if err != nil {
		return err
	}

	record := types.ActivityRecord{
		OwnerID:    current.OwnerID,
		ActorID:    actor.ID,
		Verb:       verb,
		ObjectType: objectTypePortfolio,
		ObjectID:   current.ID.String(),
		Channel:    "host",
		Data:       input.Data,
		OccurredAt: now(c.clock),
	}
	if err := c.sink.Log(ctx, record); err != nil {
		return err
	}
	emitActivityHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = record
	}
	return nil
}
