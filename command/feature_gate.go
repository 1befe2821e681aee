package command

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
)

const (
	featurePortfoliosPublish = "portfolios.publish"
	featurePortfoliosExport  = "portfolios.export"
)

func featureEnabled(ctx context.Context, gate featuregate.FeatureGate, key string, owner uuid.UUID) (bool, error) {
	if gate == nil {
		return true, nil
	}
	scopeSet := featureScopeSet(owner)
	if scopeSet == nil {
		return gate.Enabled(ctx, key)
	}
	return gate.Enabled(ctx, key, featuregate.WithScopeSet(*scopeSet))
}

func featureScopeSet(owner uuid.UUID) *featuregate.ScopeSet {
	if owner == uuid.Nil {
		return nil
	}
	return &featuregate.ScopeSet{
		System: true,
		UserID: owner.String(),
	}
}
