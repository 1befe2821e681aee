package main

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"
)

// staticGate serves feature flags from the config file. Unknown keys are
// enabled.
type staticGate map[string]bool

func newStaticGate(flags map[string]bool) staticGate {
	out := make(staticGate, len(flags))
	for k, v := range flags {
		out[k] = v
	}
	return out
}

var _ featuregate.FeatureGate = staticGate{}

func (g staticGate) Enabled(_ context.Context, key string, _ ...featuregate.ResolveOption) (bool, error) {
	enabled, ok := g[key]
	if !ok {
		return true, nil
	}
	return enabled, nil
}
