package types

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-portfolio/document"
)

// PublishState is the lifecycle position of a portfolio.
type PublishState string

const (
	PublishStateDraft     PublishState = "draft"
	PublishStatePublished PublishState = "published"
)

// PublishStateOf derives the state from the document flag.
func PublishStateOf(p document.Portfolio) PublishState {
	if p.Published {
		return PublishStatePublished
	}
	return PublishStateDraft
}

// ErrTransitionNotAllowed reports that the target publish state is not
// reachable from the current state according to configured policies.
var ErrTransitionNotAllowed = fmt.Errorf("go-portfolio: publish transition not allowed")

// TransitionPolicy validates publish transitions.
type TransitionPolicy interface {
	Validate(current, target PublishState) error
	AllowedTargets(current PublishState) []PublishState
}

// StaticTransitionPolicy enforces a fixed transition graph.
type StaticTransitionPolicy struct {
	graph map[PublishState]map[PublishState]struct{}
}

// NewStaticTransitionPolicy creates a policy from a transition graph.
func NewStaticTransitionPolicy(graph map[PublishState][]PublishState) *StaticTransitionPolicy {
	internal := make(map[PublishState]map[PublishState]struct{}, len(graph))
	for from, targets := range graph {
		targetSet := make(map[PublishState]struct{}, len(targets))
		for _, to := range targets {
			if to == "" {
				continue
			}
			targetSet[to] = struct{}{}
		}
		internal[from] = targetSet
	}
	return &StaticTransitionPolicy{graph: internal}
}

// DefaultTransitionPolicy returns draft→published and published→draft.
func DefaultTransitionPolicy() *StaticTransitionPolicy {
	return NewStaticTransitionPolicy(map[PublishState][]PublishState{
		PublishStateDraft:     {PublishStatePublished},
		PublishStatePublished: {PublishStateDraft},
	})
}

// Validate ensures the target is allowed from the current state.
func (p *StaticTransitionPolicy) Validate(current, target PublishState) error {
	if current == "" || target == "" {
		return ErrTransitionNotAllowed
	}
	targets, ok := p.graph[current]
	if !ok {
		return ErrTransitionNotAllowed
	}
	if _, ok := targets[target]; !ok {
		return ErrTransitionNotAllowed
	}
	return nil
}

// AllowedTargets returns the valid targets from the provided state, sorted.
func (p *StaticTransitionPolicy) AllowedTargets(current PublishState) []PublishState {
	targets := p.graph[current]
	if len(targets) == 0 {
		return nil
	}
	out := make([]PublishState, 0, len(targets))
	for target := range targets {
		out = append(out, target)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
