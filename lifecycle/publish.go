package lifecycle

import (
	"fmt"
	"time"

	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/pkg/types"
)

// DryRun renders a document without producing output; a non-nil error
// blocks publishing.
type DryRun func(document.Portfolio) error

// Machine drives the Draft/Published lifecycle.
type Machine struct {
	policy types.TransitionPolicy
	dryRun DryRun
}

// NewMachine builds a Machine. A nil policy falls back to
// types.DefaultTransitionPolicy; a nil dryRun skips the render check.
func NewMachine(policy types.TransitionPolicy, dryRun DryRun) *Machine {
	if policy == nil {
		policy = types.DefaultTransitionPolicy()
	}
	return &Machine{policy: policy, dryRun: dryRun}
}

// Publish moves a draft to published. It requires a non-empty title, at
// least one visible section and a successful dry-run render. The input is
// never modified.
func (m *Machine) Publish(p document.Portfolio, now time.Time) (document.Portfolio, error) {
	if err := m.transition(p, types.PublishStatePublished); err != nil {
		return p, err
	}
	if err := document.CheckPublishable(p); err != nil {
		return p, err
	}
	if m.dryRun != nil {
		if err := m.dryRun(p); err != nil {
			return p, err
		}
	}
	next := p.Clone()
	next.Published = true
	if err := next.Validate(); err != nil {
		return p, err
	}
	next.UpdatedAt = now
	return next, nil
}

// Unpublish moves a published document back to draft unconditionally.
func (m *Machine) Unpublish(p document.Portfolio, now time.Time) (document.Portfolio, error) {
	if err := m.transition(p, types.PublishStateDraft); err != nil {
		return p, err
	}
	next := p.Clone()
	next.Published = false
	next.UpdatedAt = now
	return next, nil
}

// AllowedTargets lists the states reachable from the document's state.
func (m *Machine) AllowedTargets(p document.Portfolio) []types.PublishState {
	return m.policy.AllowedTargets(types.PublishStateOf(p))
}

func (m *Machine) transition(p document.Portfolio, target types.PublishState) error {
	current := types.PublishStateOf(p)
	if err := m.policy.Validate(current, target); err != nil {
		return fmt.Errorf("%w: %s -> %s", err, current, target)
	}
	return nil
}
