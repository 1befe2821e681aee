package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-portfolio/export"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/render"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/google/uuid"
)

// Packer writes rendered files into an archive.
type Packer interface {
	Pack(ctx context.Context, files render.OrderedFileSet, resolver types.AssetResolver, options ...export.PackOption) (export.Archive, error)
}

// PortfolioExportInput requests the static site archive of a portfolio.
type PortfolioExportInput struct {
	Actor       types.ActorRef
	PortfolioID uuid.UUID
	Result      *PortfolioExportResult
}

// Type implements gocommand.Message.
func (PortfolioExportInput) Type() string {
	return "command.portfolio.export"
}

// Validate implements gocommand.Message.
func (input PortfolioExportInput) Validate() error {
	if input.PortfolioID == uuid.Nil {
		return ErrPortfolioIDRequired
	}
	return nil
}

// PortfolioExportResult carries the archive, its download name and every
// render or pack warning.
type PortfolioExportResult struct {
	Filename string
	Archive  export.Archive
	Warnings []render.Warning
}

// PortfolioExportCommand renders and packages a portfolio. Drafts can be
// exported; the archive is returned only when packing completes.
type PortfolioExportCommand struct {
	repo     types.PortfolioRepository
	identity types.IdentityProvider
	renderer Renderer
	packer   Packer
	assets   types.AssetResolver
	gate     featuregate.FeatureGate
	clock    types.Clock
	logger   types.Logger
	hooks    types.Hooks
	activity types.ActivitySink
	guard    scope.Guard
}

// PortfolioExportCommandConfig wires the export handler.
type PortfolioExportCommandConfig struct {
	Repository  types.PortfolioRepository
	Identity    types.IdentityProvider
	Renderer    Renderer
	Packer      Packer
	Assets      types.AssetResolver
	FeatureGate featuregate.FeatureGate
	Clock       types.Clock
	Logger      types.Logger
	Hooks       types.Hooks
	Activity    types.ActivitySink
	ScopeGuard  scope.Guard
}

// NewPortfolioExportCommand constructs the handler. A nil packer uses
// export.NewPackager defaults.
func NewPortfolioExportCommand(cfg PortfolioExportCommandConfig) *PortfolioExportCommand {
	packer := cfg.Packer
	if packer == nil {
		packer = export.NewPackager(export.Config{Logger: cfg.Logger})
	}
	return &PortfolioExportCommand{
		repo:     cfg.Repository,
		identity: cfg.Identity,
		renderer: cfg.Renderer,
		packer:   packer,
		assets:   cfg.Assets,
		gate:     cfg.FeatureGate,
		clock:    safeClock(cfg.Clock),
		logger:   safeLogger(cfg.Logger),
		hooks:    cfg.Hooks,
		activity: cfg.Activity,
		guard:    safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[PortfolioExportInput] = (*PortfolioExportCommand)(nil)

// Execute renders, resolves assets and zips the bundle.
func (c *PortfolioExportCommand) Execute(ctx context.Context, input PortfolioExportInput) error {
	if c.repo == nil {
		return types.ErrMissingPortfolioRepository
	}
	if c.renderer == nil {
		return ErrRendererRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	actor, err := resolveActor(ctx, c.identity, input.Actor)
	if err != nil {
		return err
	}
	current, err := loadPortfolio(ctx, c.repo, c.guard, actor, types.PolicyActionPortfoliosExport, input.PortfolioID)
	if err != nil {
		return err
	}
	enabled, err := featureEnabled(ctx, c.gate, featurePortfoliosExport, current.OwnerID)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrExportDisabled
	}

	rendered, err := c.renderer.Render(*current)
	if err != nil {
		return err
	}
	archive, err := c.packer.Pack(ctx, rendered.Files, c.assets, export.WithOwner(current.OwnerID), export.WithMetadata(export.Metadata{
		Title:        current.Title,
		Template:     current.Template,
		CustomDomain: current.CustomDomain,
	}))
	if err != nil {
		return err
	}

	warnings := make([]render.Warning, 0, len(rendered.Warnings)+len(archive.Warnings))
	warnings = append(warnings, rendered.Warnings...)
	warnings = append(warnings, archive.Warnings...)
	for _, warning := range warnings {
		c.logger.Warn("portfolio export warning", "portfolio_id", current.ID, "section_id", warning.SectionID, "message", warning.Message)
	}

	filename := export.ArchiveName(current.Title)
	exportedAt := now(c.clock)
	messages := make([]string, 0, len(warnings))
	for _, warning := range warnings {
		messages = append(messages, warning.String())
	}
	recordPortfolioActivity(ctx, c.activity, c.hooks, c.logger, actor, current.OwnerID, current.ID, VerbPortfolioExported, exportedAt, map[string]any{
		"filename": filename,
		"size":     len(archive.Bytes),
		"warnings": len(warnings),
	})
	emitExportHook(ctx, c.hooks, types.ExportEvent{
		PortfolioID: current.ID,
		OwnerID:     current.OwnerID,
		ActorID:     actor.ID,
		Filename:    filename,
		Size:        len(archive.Bytes),
		Warnings:    messages,
		OccurredAt:  exportedAt,
	})

	if input.Result != nil {
		input.Result.Filename = filename
		input.Result.Archive = archive
		input.Result.Warnings = warnings
	}
	return nil
}
