// Package goauth adapts go-auth request metadata and user records to the
// go-portfolio identity and subscription ports.
package goauth

import (
	"context"
	"strings"

	auth "github.com/goliatone/go-auth"
	"github.com/goliatone/go-portfolio/pkg/authctx"
	"github.com/goliatone/go-portfolio/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// DefaultTierMetadataKey is the user metadata entry read by UserTierProvider.
const DefaultTierMetadataKey = "subscription_tier"

// Identity resolves the current owner from the actor stored on the request
// context by go-auth middleware.
type Identity struct{}

var _ types.IdentityProvider = Identity{}

// CurrentOwner implements types.IdentityProvider.
func (Identity) CurrentOwner(ctx context.Context) (uuid.UUID, error) {
	return authctx.OwnerFromContext(ctx)
}

// UserLookup is the part of auth.Users used to read user metadata.
type UserLookup interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.User, error)
}

// UserTierProvider reads the subscription tier the payment integration
// stores on the go-auth user metadata.
type UserTierProvider struct {
	users UserLookup
	key   string
}

// NewUserTierProvider builds a provider. An empty key uses
// DefaultTierMetadataKey.
func NewUserTierProvider(users UserLookup, key string) *UserTierProvider {
	if strings.TrimSpace(key) == "" {
		key = DefaultTierMetadataKey
	}
	return &UserTierProvider{users: users, key: key}
}

var _ types.SubscriptionProvider = (*UserTierProvider)(nil)

// SubscriptionTier implements types.SubscriptionProvider. Users without a
// recognised tier read as free.
func (p *UserTierProvider) SubscriptionTier(ctx context.Context, owner uuid.UUID) (types.Tier, error) {
	if owner == uuid.Nil {
		return "", types.ErrActorRequired
	}
	user, err := p.users.GetByID(ctx, owner.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return types.TierFree, nil
		}
		return "", err
	}
	if user == nil || user.Metadata == nil {
		return types.TierFree, nil
	}
	raw, _ := user.Metadata[p.key].(string)
	tier, err := types.ParseTier(raw)
	if err != nil {
		return types.TierFree, nil
	}
	return tier, nil
}
