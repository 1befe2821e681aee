package command

import (
	"context"
	"time"

	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/google/uuid"
)

const (
	VerbPortfolioCreated     = "portfolio.created"
	VerbPortfolioUpdated     = "portfolio.updated"
	VerbPortfolioDeleted     = "portfolio.deleted"
	VerbPortfolioPublished   = "portfolio.published"
	VerbPortfolioUnpublished = "portfolio.unpublished"
	VerbPortfolioExported    = "portfolio.exported"

	objectTypePortfolio = "portfolio"
)

func safeClock(clock types.Clock) types.Clock {
	if clock != nil {
		return clock
	}
	return types.SystemClock{}
}

func safeLogger(logger types.Logger) types.Logger {
	if logger != nil {
		return logger
	}
	return types.NopLogger{}
}

func safeScopeGuard(g scope.Guard) scope.Guard {
	return scope.Ensure(g)
}

func now(clock types.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now()
}

// resolveActor fills a missing actor from the identity provider. Actors
// resolved this way act as owners.
func resolveActor(ctx context.Context, identity types.IdentityProvider, actor types.ActorRef) (types.ActorRef, error) {
	if actor.ID != uuid.Nil {
		return actor, nil
	}
	if identity == nil {
		return types.ActorRef{}, ErrActorRequired
	}
	owner, err := identity.CurrentOwner(ctx)
	if err != nil {
		return types.ActorRef{}, err
	}
	if owner == uuid.Nil {
		return types.ActorRef{}, ErrActorRequired
	}
	return types.ActorRef{ID: owner, Type: types.ActorRoleOwner}, nil
}

func logActivity(ctx context.Context, sink types.ActivitySink, logger types.Logger, record types.ActivityRecord) {
	if sink == nil {
		return
	}
	if err := sink.Log(ctx, record); err != nil {
		safeLogger(logger).Error("activity sink failed", err, "verb", record.Verb, "object_id", record.ObjectID)
	}
}

func emitActivityHook(ctx context.Context, hooks types.Hooks, record types.ActivityRecord) {
	if hooks.AfterActivity == nil {
		return
	}
	hooks.AfterActivity(ctx, record)
}

func emitPortfolioHook(ctx context.Context, hooks types.Hooks, event types.PortfolioEvent) {
	if hooks.AfterPortfolioChange == nil {
		return
	}
	hooks.AfterPortfolioChange(ctx, event)
}

func emitPublishHook(ctx context.Context, hooks types.Hooks, event types.PortfolioEvent) {
	if hooks.AfterPublishChange == nil {
		return
	}
	hooks.AfterPublishChange(ctx, event)
}

func emitExportHook(ctx context.Context, hooks types.Hooks, event types.ExportEvent) {
	if hooks.AfterExport == nil {
		return
	}
	hooks.AfterExport(ctx, event)
}

// recordPortfolioActivity logs the activity entry first, then fires the
// activity hook.
func recordPortfolioActivity(ctx context.Context, sink types.ActivitySink, hooks types.Hooks, logger types.Logger, actor types.ActorRef, owner, portfolioID uuid.UUID, verb string, at time.Time, data map[string]any) {
	record := types.ActivityRecord{
		OwnerID:    owner,
		ActorID:    actor.ID,
		Verb:       verb,
		ObjectType: objectTypePortfolio,
		ObjectID:   portfolioID.String(),
		Channel:    "portfolio",
		Data:       data,
		OccurredAt: at,
	}
	logActivity(ctx, sink, logger, record)
	emitActivityHook(ctx, hooks, record)
}
