package service

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-portfolio/command"
	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/export"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/query"
	"github.com/goliatone/go-portfolio/render"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/goliatone/go-portfolio/section"
)

// Service is the entry point for go-portfolio. It wires repositories, the
// section registry, the render engine, hooks, and command/query facades
// supplied by the host application.
type Service struct {
	cfg          Config
	commands     Commands
	queries      Queries
	activityRepo types.ActivityRepository
	engine       *render.Engine
	packager     *export.Packager
	scopeGuard   scope.Guard
}

// Commands exposes the service command handlers.
type Commands struct {
	PortfolioCreate    *command.PortfolioCreateCommand
	PortfolioUpdate    *command.PortfolioUpdateCommand
	PortfolioDelete    *command.PortfolioDeleteCommand
	PortfolioPublish   *command.PortfolioPublishCommand
	PortfolioUnpublish *command.PortfolioUnpublishCommand
	PortfolioExport    *command.PortfolioExportCommand
	PortfolioActivity  *command.PortfolioActivityCommand
}

// Queries exposes read-model helpers.
type Queries struct {
	PortfolioList   *query.PortfolioListQuery
	PortfolioDetail *query.PortfolioDetailQuery
	QuotaStatus     *query.QuotaStatusQuery
	ActivityFeed    *query.ActivityFeedQuery
	RenderPreview   *query.RenderPreviewQuery
}

// Config captures all required dependencies so callers can provide their own
// instances (bun.DB backed repositories, asset stores, hooks, etc.).
type Config struct {
	PortfolioRepository  types.PortfolioRepository
	SubscriptionProvider types.SubscriptionProvider
	IdentityProvider     types.IdentityProvider
	AssetResolver        types.AssetResolver
	ActivitySink         types.ActivitySink
	ActivityRepository   types.ActivityRepository
	SectionRegistry      *section.Registry
	Themes               *render.Catalogue
	FeatureGate          featuregate.FeatureGate
	AuthorizationPolicy  types.AuthorizationPolicy
	TransitionPolicy     types.TransitionPolicy
	Hooks                types.Hooks
	Clock                types.Clock
	IDGenerator          types.IDGenerator
	Logger               types.Logger
	ExportConcurrency    int
	Placeholder          []byte
}

// New constructs a Service from the supplied configuration.
func New(cfg Config) *Service {
	norm := normalizeConfig(cfg)
	actRepo := norm.ActivityRepository
	if actRepo == nil {
		if sinkRepo, ok := norm.ActivitySink.(types.ActivityRepository); ok {
			actRepo = sinkRepo
		}
	}

	engine, err := render.NewEngine(norm.SectionRegistry, norm.Themes)
	if err != nil {
		norm.Logger.Error("go-portfolio: render engine initialization failed", err)
		engine = nil
	}

	s := &Service{
		cfg:          norm,
		activityRepo: actRepo,
		engine:       engine,
		packager: export.NewPackager(export.Config{
			Concurrency: norm.ExportConcurrency,
			Placeholder: norm.Placeholder,
			Logger:      norm.Logger,
		}),
		scopeGuard: scope.Ensure(scope.NewGuard(norm.AuthorizationPolicy)),
	}
	s.commands = s.buildCommands()
	s.queries = s.buildQueries()
	return s
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = types.UUIDGenerator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	if cfg.TransitionPolicy == nil {
		cfg.TransitionPolicy = types.DefaultTransitionPolicy()
	}
	if cfg.SectionRegistry == nil {
		cfg.SectionRegistry = section.NewRegistry()
	}
	if cfg.ExportConcurrency <= 0 {
		cfg.ExportConcurrency = export.DefaultConcurrency
	}
	return cfg
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// Ready reports whether the service has the required dependencies wired in.
func (s *Service) Ready() bool {
	return s != nil &&
		s.cfg.PortfolioRepository != nil &&
		s.cfg.SubscriptionProvider != nil &&
		s.cfg.AssetResolver != nil &&
		s.cfg.ActivitySink != nil &&
		s.activityRepo != nil &&
		s.engine != nil
}

// HealthCheck surfaces the first missing dependency so upstream transports
// can refuse traffic before a request fails halfway.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s == nil {
		return types.ErrServiceNotReady
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.PortfolioRepository == nil {
		return types.ErrMissingPortfolioRepository
	}
	if s.cfg.SubscriptionProvider == nil {
		return types.ErrMissingSubscriptionProvider
	}
	if s.cfg.AssetResolver == nil {
		return types.ErrMissingAssetResolver
	}
	if s.cfg.ActivitySink == nil {
		return types.ErrMissingActivitySink
	}
	if s.activityRepo == nil {
		return types.ErrMissingActivityRepository
	}
	if s.engine == nil {
		return types.ErrServiceNotReady
	}
	return nil
}

// ScopeGuard exposes the guard instance used internally so transports can
// reuse the same ownership checks.
func (s *Service) ScopeGuard() scope.Guard {
	if s == nil {
		return scope.NopGuard()
	}
	return scope.Ensure(s.scopeGuard)
}

// Engine returns the render engine, nil when the theme catalogue failed to load.
func (s *Service) Engine() *render.Engine {
	if s == nil {
		return nil
	}
	return s.engine
}

func (s *Service) buildCommands() Commands {
	publish := command.PublishCommandConfig{
		Repository:  s.cfg.PortfolioRepository,
		Identity:    s.cfg.IdentityProvider,
		Renderer:    s.renderer(),
		Policy:      s.cfg.TransitionPolicy,
		FeatureGate: s.cfg.FeatureGate,
		Clock:       s.cfg.Clock,
		Logger:      s.cfg.Logger,
		Hooks:       s.cfg.Hooks,
		Activity:    s.cfg.ActivitySink,
		ScopeGuard:  s.scopeGuard,
	}
	return Commands{
		PortfolioCreate: command.NewPortfolioCreateCommand(command.PortfolioCreateCommandConfig{
			Repository:    s.cfg.PortfolioRepository,
			Subscriptions: s.cfg.SubscriptionProvider,
			Identity:      s.cfg.IdentityProvider,
			Themes:        s.themes(),
			Clock:         s.cfg.Clock,
			Logger:        s.cfg.Logger,
			Hooks:         s.cfg.Hooks,
			Activity:      s.cfg.ActivitySink,
		}),
		PortfolioUpdate: command.NewPortfolioUpdateCommand(command.PortfolioUpdateCommandConfig{
			Repository: s.cfg.PortfolioRepository,
			Identity:   s.cfg.IdentityProvider,
			Content:    s.cfg.SectionRegistry,
			Themes:     s.themes(),
			Clock:      s.cfg.Clock,
			Logger:     s.cfg.Logger,
			Hooks:      s.cfg.Hooks,
			Activity:   s.cfg.ActivitySink,
			ScopeGuard: s.scopeGuard,
		}),
		PortfolioDelete: command.NewPortfolioDeleteCommand(command.PortfolioDeleteCommandConfig{
			Repository: s.cfg.PortfolioRepository,
			Identity:   s.cfg.IdentityProvider,
			Clock:      s.cfg.Clock,
			Logger:     s.cfg.Logger,
			Hooks:      s.cfg.Hooks,
			Activity:   s.cfg.ActivitySink,
			ScopeGuard: s.scopeGuard,
		}),
		PortfolioPublish:   command.NewPortfolioPublishCommand(publish),
		PortfolioUnpublish: command.NewPortfolioUnpublishCommand(publish),
		PortfolioExport: command.NewPortfolioExportCommand(command.PortfolioExportCommandConfig{
			Repository:  s.cfg.PortfolioRepository,
			Identity:    s.cfg.IdentityProvider,
			Renderer:    s.renderer(),
			Packer:      s.packager,
			Assets:      s.cfg.AssetResolver,
			FeatureGate: s.cfg.FeatureGate,
			Clock:       s.cfg.Clock,
			Logger:      s.cfg.Logger,
			Hooks:       s.cfg.Hooks,
			Activity:    s.cfg.ActivitySink,
			ScopeGuard:  s.scopeGuard,
		}),
		PortfolioActivity: command.NewPortfolioActivityCommand(command.PortfolioActivityCommandConfig{
			Repository: s.cfg.PortfolioRepository,
			Identity:   s.cfg.IdentityProvider,
			Sink:       s.cfg.ActivitySink,
			Hooks:      s.cfg.Hooks,
			Clock:      s.cfg.Clock,
			ScopeGuard: s.scopeGuard,
		}),
	}
}

func (s *Service) buildQueries() Queries {
	return Queries{
		PortfolioList:   query.NewPortfolioListQuery(s.cfg.PortfolioRepository, s.cfg.IdentityProvider, s.scopeGuard),
		PortfolioDetail: query.NewPortfolioDetailQuery(s.cfg.PortfolioRepository, s.cfg.IdentityProvider, s.cfg.TransitionPolicy, s.scopeGuard),
		QuotaStatus:     query.NewQuotaStatusQuery(s.cfg.PortfolioRepository, s.cfg.SubscriptionProvider, s.cfg.IdentityProvider, s.scopeGuard),
		ActivityFeed:    query.NewActivityFeedQuery(s.activityRepo, s.scopeGuard),
		RenderPreview:   query.NewRenderPreviewQuery(s.cfg.PortfolioRepository, s.cfg.IdentityProvider, s.renderer(), s.scopeGuard),
	}
}

// renderer keeps a failed engine as a nil interface so handlers report
// ErrRendererRequired instead of panicking.
func (s *Service) renderer() command.Renderer {
	if s.engine == nil {
		return nil
	}
	return s.engine
}

func (s *Service) themes() document.ThemeCatalogue {
	if s.engine == nil {
		return nil
	}
	return s.engine
}
