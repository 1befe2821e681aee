package types

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// PolicyAction enumerates the authorization actions enforced by the
// ownership guard. Host applications can remap these actions to their own
// policies or ACL systems.
type PolicyAction string

const (
	PolicyActionPortfoliosRead    PolicyAction = "portfolios:read"
	PolicyActionPortfoliosWrite   PolicyAction = "portfolios:write"
	PolicyActionPortfoliosPublish PolicyAction = "portfolios:publish"
	PolicyActionPortfoliosExport  PolicyAction = "portfolios:export"
	PolicyActionActivityRead      PolicyAction = "activity:read"
)

// ReadOnly reports whether the action leaves documents unchanged.
func (a PolicyAction) ReadOnly() bool {
	return a == PolicyActionPortfoliosRead || a == PolicyActionActivityRead
}

// PolicyCheck captures the authorization context for a single command/query.
type PolicyCheck struct {
	Actor    ActorRef
	Action   PolicyAction
	OwnerID  uuid.UUID
	TargetID uuid.UUID
}

// AuthorizationPolicy governs whether an actor can act on another owner's
// documents.
type AuthorizationPolicy interface {
	Authorize(ctx context.Context, check PolicyCheck) error
}

// AuthorizationPolicyFunc adapts bare functions to AuthorizationPolicy.
type AuthorizationPolicyFunc func(ctx context.Context, check PolicyCheck) error

// Authorize implements AuthorizationPolicy.
func (f AuthorizationPolicyFunc) Authorize(ctx context.Context, check PolicyCheck) error {
	return f(ctx, check)
}

// ErrUnauthorized indicates the actor may not perform the action.
var ErrUnauthorized = errors.New("go-portfolio: actor not authorized")

// RoleAuthorizationPolicy lets system admins act on any document and support
// agents read any document. Everyone else is refused.
type RoleAuthorizationPolicy struct{}

// Authorize implements AuthorizationPolicy.
func (RoleAuthorizationPolicy) Authorize(_ context.Context, check PolicyCheck) error {
	if check.Actor.IsSystemAdmin() {
		return nil
	}
	if check.Actor.IsSupport() && check.Action.ReadOnly() {
		return nil
	}
	return ErrUnauthorized
}
