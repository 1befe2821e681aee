// Command portfolio-server serves the portfolio editor API over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	auth "github.com/goliatone/go-auth"
	portfolio "github.com/goliatone/go-portfolio"
	"github.com/goliatone/go-portfolio/activity"
	"github.com/goliatone/go-portfolio/adapter/goauth"
	"github.com/goliatone/go-portfolio/assets"
	"github.com/goliatone/go-portfolio/migrations"
	"github.com/goliatone/go-portfolio/pkg/logging"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/portfolios"
	"github.com/goliatone/go-portfolio/subscriptions"
	"github.com/goliatone/go-portfolio/transport/httpapi"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	configPath := flag.String("config", os.Getenv(envPrefix+"CONFIG"), "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "portfolio-server:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging.Mode)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Persistence, log)
	if err != nil {
		return err
	}
	defer db.Close()

	svcCfg, cleanup, err := buildServiceConfig(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer cleanup()

	svc := portfolio.New(svcCfg)
	if err := svc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("service not ready: %w", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: newRouter(cfg, svc, log),
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("portfolio server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("portfolio server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDatabase(ctx context.Context, cfg PersistenceConfig, log *logging.Logger) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite3", cfg.GetServer())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	persistence.RegisterModel((*portfolios.Record)(nil))
	persistence.RegisterModel((*portfolios.OwnerCounter)(nil))
	persistence.RegisterModel((*subscriptions.Record)(nil))
	persistence.RegisterModel((*activity.LogEntry)(nil))

	client, err := persistence.New(cfg, sqldb, sqlitedialect.New())
	if err != nil {
		return nil, fmt.Errorf("persistence client: %w", err)
	}

	for _, migrationsFS := range migrations.Filesystems() {
		client.RegisterDialectMigrations(
			migrationsFS,
			persistence.WithDialectSourceLabel("."),
			persistence.WithValidationTargets("postgres", "sqlite"),
		)
	}
	if err := client.ValidateDialects(ctx); err != nil {
		log.Warn("migration dialect validation failed", "error", err.Error())
	}
	if err := client.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if report := client.Report(); report != nil && !report.IsZero() {
		log.Info("migrations applied", "report", report.String())
	}
	if err := migrations.ValidateSchema(ctx, sqldb, "sqlite"); err != nil {
		return nil, err
	}
	return client.DB(), nil
}

func buildServiceConfig(ctx context.Context, cfg Config, db *bun.DB, log *logging.Logger) (portfolio.Config, func(), error) {
	cleanup := func() {}

	repo, err := portfolios.NewRepository(portfolios.RepositoryConfig{DB: db})
	if err != nil {
		return portfolio.Config{}, cleanup, err
	}
	activityRepo, err := activity.NewRepository(activity.RepositoryConfig{DB: db})
	if err != nil {
		return portfolio.Config{}, cleanup, err
	}

	var tiers types.SubscriptionProvider
	switch cfg.Subscriptions.Source {
	case "auth":
		users := auth.NewRepositoryManager(db).Users()
		tiers = goauth.NewUserTierProvider(users, cfg.Subscriptions.MetadataKey)
	default:
		tiers, err = subscriptions.NewRepository(
			subscriptions.RepositoryConfig{DB: db},
			subscriptions.WithCache(cfg.Subscriptions.Cache),
		)
		if err != nil {
			return portfolio.Config{}, cleanup, err
		}
	}

	resolver, cleanup, err := buildAssetResolver(ctx, cfg.Assets, log)
	if err != nil {
		return portfolio.Config{}, cleanup, err
	}

	return portfolio.Config{
		PortfolioRepository:  repo,
		SubscriptionProvider: tiers,
		IdentityProvider:     goauth.Identity{},
		AssetResolver:        resolver,
		ActivitySink:         activityRepo,
		ActivityRepository:   activityRepo,
		FeatureGate:          newStaticGate(cfg.Features),
		AuthorizationPolicy:  types.RoleAuthorizationPolicy{},
		Logger:               log,
		ExportConcurrency:    cfg.Export.Concurrency,
	}, cleanup, nil
}

// buildAssetResolver routes bare paths to the upload directory, http(s) to
// the network and gs:// to Cloud Storage, optionally behind a Redis cache.
func buildAssetResolver(ctx context.Context, cfg AssetsConfig, log *logging.Logger) (types.AssetResolver, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}

	httpResolver := assets.NewHTTPResolver(assets.HTTPConfig{
		Timeout:              cfg.HTTPTimeout,
		MaxBytes:             cfg.MaxBytes,
		AllowedHosts:         cfg.AllowedHosts,
		AllowPrivateNetworks: cfg.AllowPrivateNetworks,
	})
	if cfg.AllowPrivateNetworks {
		log.Warn("asset downloads may reach private networks")
	}
	mux := assets.NewMux().
		Handle("", assets.FSResolver{FS: os.DirFS(cfg.Root)}).
		Handle("http", httpResolver).
		Handle("https", httpResolver)

	if cfg.GCS.Enabled {
		gcs, err := assets.NewGCSResolver(ctx, assets.GCSConfig{
			EmulatorHost: cfg.GCS.EmulatorHost,
			MaxBytes:     cfg.MaxBytes,
			Buckets:      cfg.GCS.Buckets,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("gcs resolver: %w", err)
		}
		closers = append(closers, gcs.Close)
		mux.Handle("gs", gcs)
	}

	var resolver types.AssetResolver = mux
	if cfg.Redis.Addr != "" {
		rdb, err := assets.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			return nil, cleanup, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, rdb.Close)
		resolver = assets.NewCachedResolver(mux, rdb, assets.RedisCacheConfig{
			Prefix: cfg.Redis.Prefix,
			TTL:    cfg.Redis.TTL,
			Logger: log,
		})
	}
	return resolver, cleanup, nil
}

func newRouter(cfg Config, svc *portfolio.Service, log *logging.Logger) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), httpapi.RequestLogger(log))
	if cfg.Server.Tracing {
		router.Use(otelgin.Middleware(cfg.Persistence.OtelIdentifier))
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.Server.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Authorization", "Content-Type", cfg.Server.ActorHeader, cfg.Server.RoleHeader},
			ExposeHeaders: []string{"Content-Disposition", "X-Export-Warnings"},
		}))
	}

	actor := httpapi.ContextActor
	if cfg.Server.ActorHeader != "" {
		actor = httpapi.FirstActor(httpapi.ContextActor, httpapi.HeaderActor(cfg.Server.ActorHeader, cfg.Server.RoleHeader))
	}
	httpapi.NewHandler(httpapi.Config{
		Backend:      svc,
		Actor:        actor,
		Logger:       log,
		AssetBaseURL: cfg.Assets.BaseURL,
	}).Register(router)
	return router
}
