package command

import (
	"context"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/lifecycle"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/render"
)

const (
	TextCodeValidation        = "VALIDATION_FAILED"
	TextCodeQuotaExceeded     = "QUOTA_EXCEEDED"
	TextCodeRenderFailed      = "RENDER_FAILED"
	TextCodeNotFound          = "PORTFOLIO_NOT_FOUND"
	TextCodeTransitionDenied  = "TRANSITION_NOT_ALLOWED"
	TextCodeFeatureDisabled   = "FEATURE_DISABLED"
	TextCodeActorMissing      = "ACTOR_REQUIRED"
	TextCodeForbidden         = "FORBIDDEN"
	TextCodeCancelled         = "REQUEST_CANCELLED"
	TextCodeInternal          = "INTERNAL_ERROR"
	TextCodeMissingDependency = "DEPENDENCY_MISSING"
)

// ToServiceError maps domain errors onto go-errors values with a category,
// an HTTP status code, a text code and metadata describing the failure.
// Errors that already are *goerrors.Error are returned unchanged.
func ToServiceError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich
	}

	var quota *lifecycle.QuotaExceededError
	if errors.As(err, &quota) {
		return goerrors.Wrap(err, goerrors.CategoryAuthz, "portfolio quota exceeded").
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeQuotaExceeded).
			WithMetadata(map[string]any{
				"tier":  string(quota.Tier),
				"limit": quota.Limit,
				"count": quota.Count,
			})
	}

	var renderErr *render.RenderError
	if errors.As(err, &renderErr) {
		meta := map[string]any{"reason": renderErr.Reason}
		addValidationMetadata(meta, renderErr.Err)
		return goerrors.Wrap(err, goerrors.CategoryValidation, "portfolio cannot be rendered").
			WithCode(http.StatusUnprocessableEntity).
			WithTextCode(TextCodeRenderFailed).
			WithMetadata(meta)
	}

	var validation *document.ValidationError
	if errors.As(err, &validation) {
		meta := map[string]any{}
		addValidationMetadata(meta, validation)
		return goerrors.Wrap(err, goerrors.CategoryValidation, "portfolio validation failed").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeValidation).
			WithMetadata(meta)
	}

	switch {
	case errors.Is(err, types.ErrQuotaExceeded):
		return goerrors.Wrap(err, goerrors.CategoryAuthz, "portfolio quota exceeded").
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeQuotaExceeded)
	case errors.Is(err, types.ErrPortfolioNotFound):
		return goerrors.Wrap(err, goerrors.CategoryNotFound, "portfolio not found").
			WithCode(goerrors.CodeNotFound).
			WithTextCode(TextCodeNotFound)
	case errors.Is(err, types.ErrTransitionNotAllowed):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "publish transition not allowed").
			WithCode(http.StatusConflict).
			WithTextCode(TextCodeTransitionDenied)
	case errors.Is(err, ErrPublishDisabled):
		return featureDisabled(err, featurePortfoliosPublish)
	case errors.Is(err, ErrExportDisabled):
		return featureDisabled(err, featurePortfoliosExport)
	case errors.Is(err, types.ErrActorRequired):
		return goerrors.Wrap(err, goerrors.CategoryAuth, "actor required").
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeActorMissing)
	case errors.Is(err, types.ErrUnauthorized):
		return goerrors.Wrap(err, goerrors.CategoryAuthz, "actor not authorized").
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeForbidden)
	case errors.Is(err, types.ErrPortfolioIDRequired), errors.Is(err, ErrMutationsRequired), errors.Is(err, types.ErrUnknownTier),
		errors.Is(err, ErrActivityVerbRequired), errors.Is(err, ErrActivityVerbNotAllowed):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeValidation)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryInternal, "request cancelled").
			WithCode(http.StatusRequestTimeout).
			WithTextCode(TextCodeCancelled)
	case errors.Is(err, types.ErrMissingPortfolioRepository),
		errors.Is(err, types.ErrMissingSubscriptionProvider),
		errors.Is(err, types.ErrMissingActivityRepository),
		errors.Is(err, types.ErrMissingActivitySink),
		errors.Is(err, types.ErrMissingAssetResolver),
		errors.Is(err, ErrRendererRequired):
		return goerrors.Wrap(err, goerrors.CategoryInternal, "service dependency missing").
			WithCode(goerrors.CodeInternal).
			WithTextCode(TextCodeMissingDependency)
	default:
		return goerrors.Wrap(err, goerrors.CategoryInternal, "internal error").
			WithCode(goerrors.CodeInternal).
			WithTextCode(TextCodeInternal)
	}
}

func featureDisabled(err error, feature string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryAuthz, "feature disabled").
		WithCode(goerrors.CodeForbidden).
		WithTextCode(TextCodeFeatureDisabled).
		WithMetadata(map[string]any{"feature": feature})
}

func addValidationMetadata(meta map[string]any, err error) {
	var validation *document.ValidationError
	if !errors.As(err, &validation) {
		return
	}
	if validation.Field != "" {
		meta["field"] = validation.Field
	}
	if validation.SectionID != "" {
		meta["section_id"] = validation.SectionID
	}
	if validation.Reason != "" {
		meta["reason"] = validation.Reason
	}
}
