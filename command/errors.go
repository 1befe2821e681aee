package command

import (
	"errors"

	"github.com/goliatone/go-portfolio/pkg/types"
)

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = types.ErrActorRequired
	// ErrPortfolioIDRequired indicates the command lacks a portfolio id.
	ErrPortfolioIDRequired = types.ErrPortfolioIDRequired
	// ErrMutationsRequired occurs when an update carries no mutations.
	ErrMutationsRequired = errors.New("go-portfolio: update requires at least one mutation")
	// ErrActivityVerbRequired indicates an activity log entry is missing a verb.
	ErrActivityVerbRequired = errors.New("go-portfolio: activity verb required")
	// ErrActivityVerbNotAllowed rejects verbs outside the host event set.
	ErrActivityVerbNotAllowed = errors.New("go-portfolio: activity verb not allowed")
	// ErrPublishDisabled indicates publishing is disabled via feature gate.
	ErrPublishDisabled = errors.New("go-portfolio: publish disabled")
	// ErrExportDisabled indicates archive export is disabled via feature gate.
	ErrExportDisabled = errors.New("go-portfolio: export disabled")
	// ErrRendererRequired occurs when publish or export run without a render engine.
	ErrRendererRequired = errors.New("go-portfolio: render engine required")
)
