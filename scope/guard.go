package scope

import (
	"context"
	"errors"

	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
)

// Guard decides whether an actor may act on a portfolio owned by owner.
// Owners always pass; everyone else goes through the authorization policy.
type Guard interface {
	Enforce(ctx context.Context, actor types.ActorRef, action types.PolicyAction, owner, target uuid.UUID) error
}

type guard struct {
	policy types.AuthorizationPolicy
	open   bool
}

// NewGuard builds an ownership Guard. A nil policy means only owners pass.
func NewGuard(policy types.AuthorizationPolicy) Guard {
	return guard{policy: policy}
}

// Ensure returns a non-nil guard so command/query constructors can accept nil
// guards when tests instantiate them directly.
func Ensure(g Guard) Guard {
	if g == nil {
		return guard{}
	}
	return g
}

// NopGuard returns a guard that never blocks.
func NopGuard() Guard {
	return guard{open: true}
}

// Enforce returns nil when the actor owns the document or the policy allows
// the action. Refusals surface as types.ErrPortfolioNotFound so callers
// cannot probe for other owners' documents.
func (g guard) Enforce(ctx context.Context, actor types.ActorRef, action types.PolicyAction, owner, target uuid.UUID) error {
	if g.open {
		return nil
	}
	if actor.ID == uuid.Nil {
		return types.ErrActorRequired
	}
	if owner != uuid.Nil && actor.ID == owner {
		return nil
	}
	if g.policy == nil {
		return types.ErrPortfolioNotFound
	}
	err := g.policy.Authorize(ctx, types.PolicyCheck{
		Actor:    actor,
		Action:   action,
		OwnerID:  owner,
		TargetID: target,
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrUnauthorized) {
		return types.ErrPortfolioNotFound
	}
	return err
}
