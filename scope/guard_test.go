package scope

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGuardAllowsOwner(t *testing.T) {
	owner := uuid.New()
	g := Ensure(nil)
	err := g.Enforce(context.Background(), types.ActorRef{ID: owner}, types.PolicyActionPortfoliosWrite, owner, uuid.New())
	require.NoError(t, err)
}

func TestGuardHidesForeignPortfolios(t *testing.T) {
	g := NewGuard(types.RoleAuthorizationPolicy{})
	err := g.Enforce(context.Background(), types.ActorRef{ID: uuid.New()}, types.PolicyActionPortfoliosRead, uuid.New(), uuid.New())
	require.ErrorIs(t, err, types.ErrPortfolioNotFound)

	err = Ensure(nil).Enforce(context.Background(), types.ActorRef{ID: uuid.New()}, types.PolicyActionPortfoliosRead, uuid.New(), uuid.New())
	require.ErrorIs(t, err, types.ErrPortfolioNotFound)
}

func TestGuardRoles(t *testing.T) {
	g := NewGuard(types.RoleAuthorizationPolicy{})
	ctx := context.Background()
	owner := uuid.New()

	admin := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystemAdmin}
	require.NoError(t, g.Enforce(ctx, admin, types.PolicyActionPortfoliosWrite, owner, uuid.New()))

	support := types.ActorRef{ID: uuid.New(), Type: "Support"}
	require.NoError(t, g.Enforce(ctx, support, types.PolicyActionPortfoliosRead, owner, uuid.New()))
	require.ErrorIs(t, g.Enforce(ctx, support, types.PolicyActionPortfoliosPublish, owner, uuid.New()), types.ErrPortfolioNotFound)
}

func TestGuardPropagatesPolicyFailures(t *testing.T) {
	boom := errors.New("policy backend down")
	g := NewGuard(types.AuthorizationPolicyFunc(func(context.Context, types.PolicyCheck) error { return boom }))
	err := g.Enforce(context.Background(), types.ActorRef{ID: uuid.New()}, types.PolicyActionPortfoliosRead, uuid.New(), uuid.New())
	require.ErrorIs(t, err, boom)
}

func TestGuardRequiresActor(t *testing.T) {
	err := Ensure(nil).Enforce(context.Background(), types.ActorRef{}, types.PolicyActionPortfoliosRead, uuid.New(), uuid.New())
	require.ErrorIs(t, err, types.ErrActorRequired)

	require.NoError(t, NopGuard().Enforce(context.Background(), types.ActorRef{}, types.PolicyActionPortfoliosRead, uuid.New(), uuid.New()))
}
