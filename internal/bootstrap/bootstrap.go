package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/contractor-compliance/internal/config"
	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
	"github.com/kirillkom/contractor-compliance/internal/core/usecase"
	"github.com/kirillkom/contractor-compliance/internal/infrastructure/queue/nats"
	"github.com/kirillkom/contractor-compliance/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/contractor-compliance/internal/infrastructure/resilience"
	"github.com/kirillkom/contractor-compliance/internal/observability/metrics"
)

const serviceName = "compliance-api"

type App struct {
	Config config.Config

	Store       *postgres.Store
	HTTPMetrics *metrics.HTTPServerMetrics

	Documents ports.DocumentService
	Audits    ports.AuditService
	Recompute ports.RecomputeService
	Roster    ports.RosterService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := seedCatalog(ctx, store, cfg.CatalogFile); err != nil {
		_ = db.Close()
		return nil, err
	}

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	complianceMetrics := metrics.NewComplianceMetrics(httpMetrics.Registerer())

	executor := resilience.NewExecutor(resilienceConfig(cfg)).WithObserver(complianceMetrics)
	uow := resilience.NewUnitOfWork(store, executor)

	publisher, closePublisher, err := newPublisher(cfg, executor)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	now := time.Now
	propagator := usecase.NewPropagator(
		usecase.NewApprovalCalculator(),
		usecase.NewCompletionCalculator(domain.DocumentType(cfg.CompletionDocumentType)),
		complianceMetrics,
		now,
	)
	audits := usecase.NewAuditTrail(uow, complianceMetrics, now)

	return &App{
		Config:      cfg,
		Store:       store,
		HTTPMetrics: httpMetrics,

		Documents: usecase.NewDocumentUseCase(uow, audits, propagator, publisher, now),
		Audits:    audits,
		Recompute: usecase.NewRecomputeUseCase(uow, propagator, publisher),
		Roster:    usecase.NewRosterUseCase(uow, propagator, publisher, now),

		closeFn: func() {
			closePublisher()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func seedCatalog(ctx context.Context, store *postgres.Store, path string) error {
	if path == "" {
		return nil
	}
	catalog, err := config.LoadCatalog(path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if catalog.Empty() {
		return nil
	}
	if err := store.SeedCatalog(ctx, catalog); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	slog.Info("catalog_seeded",
		"criteria", len(catalog.Criteria),
		"subcriteria", len(catalog.Subcriteria),
		"pairings", len(catalog.Pairings),
	)
	return nil
}

// newPublisher returns a nil publisher when events are disabled; the use
// cases then skip publishing.
func newPublisher(cfg config.Config, executor *resilience.Executor) (ports.EventPublisher, func(), error) {
	if !cfg.EventsEnabled {
		slog.Info("events_disabled")
		return nil, func() {}, nil
	}
	publisher, err := nats.NewPublisher(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
	if err != nil {
		return nil, nil, fmt.Errorf("init event publisher: %w", err)
	}
	return publisher, publisher.Close, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        cfg.RetryMaxAttempts,
		RetryInitialBackoff:     cfg.RetryInitialBackoff,
		RetryMaxBackoff:         cfg.RetryMaxBackoff,
		RetryMultiplier:         cfg.RetryMultiplier,
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio:     cfg.BreakerFailureRatio,
		BreakerOpenTimeout:      cfg.BreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: uint32(max(cfg.BreakerHalfOpenMaxCalls, 0)),
	}
}

// Ping backs the health endpoint.
func (a *App) Ping(ctx context.Context) error {
	return a.Store.Ping(ctx)
}
