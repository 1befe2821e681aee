package query

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-portfolio/assets"
	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/render"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/google/uuid"
)

// Renderer produces the static files of a portfolio.
type Renderer interface {
	Render(p document.Portfolio, opts ...render.Option) (render.Result, error)
}

// RenderPreviewInput renders one portfolio without packaging it.
// AssetBaseURL is prefixed to the owner-scoped key of relative asset
// references in the preview.
type RenderPreviewInput struct {
	Actor        types.ActorRef
	PortfolioID  uuid.UUID
	AssetBaseURL string
}

// Type implements gocommand.Message.
func (RenderPreviewInput) Type() string {
	return "query.portfolio.preview"
}

// Validate implements gocommand.Message.
func (input RenderPreviewInput) Validate() error {
	if input.PortfolioID == uuid.Nil {
		return types.ErrPortfolioIDRequired
	}
	return nil
}

// RenderPreview is the live preview of a document. Asset links point at the
// original references instead of bundle paths.
type RenderPreview struct {
	HTML     string           `json:"html"`
	CSS      string           `json:"css"`
	Warnings []render.Warning `json:"warnings"`
}

// RenderPreviewQuery renders drafts for the editor preview pane.
type RenderPreviewQuery struct {
	repo     types.PortfolioRepository
	identity types.IdentityProvider
	renderer Renderer
	guard    scope.Guard
}

// NewRenderPreviewQuery constructs the preview query.
func NewRenderPreviewQuery(repo types.PortfolioRepository, identity types.IdentityProvider, renderer Renderer, guard scope.Guard) *RenderPreviewQuery {
	return &RenderPreviewQuery{repo: repo, identity: identity, renderer: renderer, guard: safeScopeGuard(guard)}
}

var _ gocommand.Querier[RenderPreviewInput, RenderPreview] = (*RenderPreviewQuery)(nil)

// Query renders the document with asset links pointing at their sources.
func (q *RenderPreviewQuery) Query(ctx context.Context, input RenderPreviewInput) (RenderPreview, error) {
	if q.repo == nil {
		return RenderPreview{}, types.ErrMissingPortfolioRepository
	}
	if q.renderer == nil {
		return RenderPreview{}, types.ErrServiceNotReady
	}
	if err := input.Validate(); err != nil {
		return RenderPreview{}, err
	}
	actor, err := resolveActor(ctx, q.identity, input.Actor)
	if err != nil {
		return RenderPreview{}, err
	}
	current, err := loadPortfolio(ctx, q.repo, q.guard, actor, types.PolicyActionPortfoliosRead, input.PortfolioID)
	if err != nil {
		return RenderPreview{}, err
	}
	base := strings.TrimRight(input.AssetBaseURL, "/")
	owner := current.OwnerID
	result, err := q.renderer.Render(*current, render.WithAssetLinks(func(f render.File) string {
		return previewLink(base, owner, f.AssetRef)
	}))
	if err != nil {
		return RenderPreview{}, err
	}
	files := result.Files
	preview := RenderPreview{Warnings: result.Warnings}
	if markup, ok := files.Lookup(render.IndexPath); ok {
		preview.HTML = string(markup.Content)
	}
	if css, ok := files.Lookup(render.StylesheetPath); ok {
		preview.CSS = string(css.Content)
	}
	return preview, nil
}

func previewLink(base string, owner uuid.UUID, ref string) string {
	if base == "" || strings.Contains(ref, "://") {
		return ref
	}
	key, ok := assets.OwnerKey(owner, ref)
	if !ok {
		return ref
	}
	return base + "/" + key
}
