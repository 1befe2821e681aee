package command

import (
	"context"
	"errors"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/lifecycle"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
)

// PortfolioCreateInput requests a new draft portfolio for the actor. Title
// and Template optionally override the default document.
type PortfolioCreateInput struct {
	Actor    types.ActorRef
	Title    string
	Template string
	Result   *PortfolioCreateResult
}

// Type implements gocommand.Message.
func (PortfolioCreateInput) Type() string {
	return "command.portfolio.create"
}

// Validate implements gocommand.Message.
func (input PortfolioCreateInput) Validate() error {
	if input.Title != "" && strings.TrimSpace(input.Title) == "" {
		return document.Invalid("title", "title must not be blank")
	}
	return nil
}

// PortfolioCreateResult carries the stored document and the quota readout
// after the create.
type PortfolioCreateResult struct {
	Portfolio *document.Portfolio
	Quota     lifecycle.QuotaStatus
}

// PortfolioCreateCommand creates portfolios subject to the owner's tier quota.
// The count-and-create itself is delegated to the repository so concurrent
// creates cannot overshoot the limit.
type PortfolioCreateCommand struct {
	repo          types.PortfolioRepository
	subscriptions types.SubscriptionProvider
	identity      types.IdentityProvider
	themes        document.ThemeCatalogue
	clock         types.Clock
	logger        types.Logger
	hooks         types.Hooks
	activity      types.ActivitySink
}

// PortfolioCreateCommandConfig wires the create handler.
type PortfolioCreateCommandConfig struct {
	Repository    types.PortfolioRepository
	Subscriptions types.SubscriptionProvider
	Identity      types.IdentityProvider
	Themes        document.ThemeCatalogue
	Clock         types.Clock
	Logger        types.Logger
	Hooks         types.Hooks
	Activity      types.ActivitySink
}

// NewPortfolioCreateCommand constructs the handler.
func NewPortfolioCreateCommand(cfg PortfolioCreateCommandConfig) *PortfolioCreateCommand {
	return &PortfolioCreateCommand{
		repo:          cfg.Repository,
		subscriptions: cfg.Subscriptions,
		identity:      cfg.Identity,
		themes:        cfg.Themes,
		clock:         safeClock(cfg.Clock),
		logger:        safeLogger(cfg.Logger),
		hooks:         cfg.Hooks,
		activity:      cfg.Activity,
	}
}

var _ gocommand.Commander[PortfolioCreateInput] = (*PortfolioCreateCommand)(nil)

// Execute creates the document or returns *lifecycle.QuotaExceededError.
func (c *PortfolioCreateCommand) Execute(ctx context.Context, input PortfolioCreateInput) error {
	if c.repo == nil {
		return types.ErrMissingPortfolioRepository
	}
	if c.subscriptions == nil {
		return types.ErrMissingSubscriptionProvider
	}
	if err := input.Validate(); err != nil {
		return err
	}
	actor, err := resolveActor(ctx, c.identity, input.Actor)
	if err != nil {
		return err
	}
	owner := actor.ID

	tier, err := c.subscriptions.SubscriptionTier(ctx, owner)
	if err != nil {
		return err
	}
	limit := tier.PortfolioLimit()

	createdAt := now(c.clock)
	draft, err := c.draft(owner, input, createdAt)
	if err != nil {
		return err
	}

	created, err := c.repo.CreatePortfolio(ctx, draft, limit)
	if err != nil {
		if errors.Is(err, types.ErrQuotaExceeded) {
			count, countErr := c.repo.CountPortfolios(ctx, owner)
			if countErr != nil {
				count = limit
			}
			c.logger.Debug("portfolio quota refused create", "owner_id", owner, "tier", tier, "limit", limit, "count", count)
			return &lifecycle.QuotaExceededError{Tier: tier, Limit: limit, Count: count}
		}
		return err
	}

	count, err := c.repo.CountPortfolios(ctx, owner)
	if err != nil {
		return err
	}

	recordPortfolioActivity(ctx, c.activity, c.hooks, c.logger, actor, owner, created.ID, VerbPortfolioCreated, createdAt, map[string]any{
		"title":    created.Title,
		"template": created.Template,
		"tier":     string(tier),
	})
	emitPortfolioHook(ctx, c.hooks, types.PortfolioEvent{
		PortfolioID: created.ID,
		OwnerID:     owner,
		ActorID:     actor.ID,
		Action:      VerbPortfolioCreated,
		ToState:     types.PublishStateOf(*created),
		OccurredAt:  createdAt,
	})

	if input.Result != nil {
		input.Result.Portfolio = created
		input.Result.Quota = lifecycle.NewQuotaStatus(tier, count)
	}
	return nil
}

func (c *PortfolioCreateCommand) draft(owner uuid.UUID, input PortfolioCreateInput, at time.Time) (document.Portfolio, error) {
	draft := document.NewDefault(owner, at)
	var mutations []document.Mutation
	if input.Title != "" {
		mutations = append(mutations, document.Rename{Title: input.Title})
	}
	if input.Template != "" {
		mutations = append(mutations, document.SetTemplate{Template: input.Template})
	}
	if len(mutations) == 0 {
		return draft, nil
	}
	return document.Apply(draft, at, document.Rules{Themes: c.themes}, mutations...)
}
