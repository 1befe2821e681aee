package query

import (
	"context"

	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/google/uuid"
)

func safeScopeGuard(g scope.Guard) scope.Guard {
	return scope.Ensure(g)
}

func resolveActor(ctx context.Context, identity types.IdentityProvider, actor types.ActorRef) (types.ActorRef, error) {
	if actor.ID != uuid.Nil {
		return actor, nil
	}
	if identity == nil {
		return types.ActorRef{}, types.ErrActorRequired
	}
	owner, err := identity.CurrentOwner(ctx)
	if err != nil {
		return types.ActorRef{}, err
	}
	if owner == uuid.Nil {
		return types.ActorRef{}, types.ErrActorRequired
	}
	return types.ActorRef{ID: owner, Type: types.ActorRoleOwner}, nil
}

// ownerOrActor defaults an empty owner filter to the actor.
func ownerOrActor(owner uuid.UUID, actor types.ActorRef) uuid.UUID {
	if owner == uuid.Nil {
		return actor.ID
	}
	return owner
}

func loadPortfolio(ctx context.Context, repo types.PortfolioRepository, guard scope.Guard, actor types.ActorRef, action types.PolicyAction, id uuid.UUID) (*document.Portfolio, error) {
	if id == uuid.Nil {
		return nil, types.ErrPortfolioIDRequired
	}
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
