// Package app assembles the service from configuration. Both entry points in
// cmd/ call Build and differ only in how they serve the returned router.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"storefront-support/internal/auth"
	"storefront-support/internal/config"
	"storefront-support/internal/database"
	"storefront-support/internal/httpapi"
	"storefront-support/internal/integrations/completion"
	"storefront-support/internal/integrations/openai"
	"storefront-support/internal/integrations/paramstore"
	"storefront-support/internal/observability"
	"storefront-support/internal/repository"
	"storefront-support/internal/session"
	"storefront-support/internal/usecase"
)

// Store is everything the use cases need from a backend. The DynamoDB
// repository and the gorm database both satisfy it.
type Store interface {
	usecase.StateStore
	usecase.OrderCatalog
	usecase.RefundStore
	usecase.FAQReader
	usecase.FAQLister
	usecase.EscalationStore
	Seed(ctx context.Context) error
}

// App is a fully wired service.
type App struct {
	Router  http.Handler
	Metrics *observability.Metrics
	closers []func() error
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build wires the store, fallback responder, use cases and HTTP router.
func Build(ctx context.Context, cfg config.Config) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()
	sdk := &lazyAWS{}

	store, err := openStore(ctx, cfg, sdk, a)
	if err != nil {
		return nil, err
	}
	if cfg.SeedDemoData {
		if err = store.Seed(ctx); err != nil {
			return nil, fmt.Errorf("app: seed demo data: %w", err)
		}
		slog.Info("demo data seeded", "backend", cfg.StoreBackend)
	}

	fallback, err := newFallback(ctx, cfg, sdk)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = observability.NewMetrics(cfg.MetricsNamespace, reg)
	observe := usecase.WithObserver(a.Metrics)

	refunds, err := usecase.NewRefundService(store, store, observe)
	if err != nil {
		return nil, err
	}
	resolver, err := usecase.NewResolver(store, store, refunds, fallback, cfg.FallbackSystemPrompt, observe)
	if err != nil {
		return nil, err
	}
	chat, err := usecase.NewChatService(store, resolver, cfg.MaxQueryLength, observe)
	if err != nil {
		return nil, err
	}
	escalations, err := usecase.NewEscalationService(store, observe)
	if err != nil {
		return nil, err
	}
	catalog, err := usecase.NewCatalogService(store, store)
	if err != nil {
		return nil, err
	}
	admin, err := usecase.NewAdminService(store)
	if err != nil {
		return nil, err
	}

	srv, err := httpapi.New(httpapi.Services{
		Chat:       chat,
		Escalation: escalations,
		Refund:     refunds,
		Catalog:    catalog,
		Admin:      admin,
	}, session.NewManager(cfg.CookieMaxAge, cfg.CookieSecure), auth.Demo(), a.Metrics, httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		return nil, err
	}
	a.Router = srv.Router()
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config, sdk *lazyAWS, a *App) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		awsCfg, err := sdk.load(ctx)
		if err != nil {
			return nil, err
		}
		client, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.SupportTable)
		if err != nil {
			return nil, fmt.Errorf("app: dynamodb store: %w", err)
		}
		return client, nil

	case config.BackendPostgres, config.BackendSQLite:
		driver, dsn := database.DriverPostgres, cfg.DatabaseURL
		if cfg.StoreBackend == config.BackendSQLite {
			driver, dsn = database.DriverSQLite, cfg.SQLitePath
		}
		db, err := database.Open(ctx, driver, dsn)
		if err != nil {
			return nil, err
		}
		store, err := database.NewStore(db)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		if err := store.Migrate(); err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("app: unknown store backend %q", cfg.StoreBackend)
}

// newFallback returns nil when no provider is configured; the resolver then
// answers unmatched messages with its canned reply.
func newFallback(ctx context.Context, cfg config.Config, sdk *lazyAWS) (usecase.Fallback, error) {
	if cfg.FallbackProvider == config.FallbackNone {
		return nil, nil
	}

	tokens, err := tokenSource(ctx, cfg, sdk)
	if err != nil {
		return nil, err
	}

	switch cfg.FallbackProvider {
	case config.FallbackHTTP:
		c, err := completion.NewClient(cfg.FallbackURL, tokens, completion.WithTimeout(cfg.FallbackTimeout))
		if err != nil {
			return nil, fmt.Errorf("app: completion client: %w", err)
		}
		return c, nil
	case config.FallbackOpenAI:
		c, err := openai.NewClient(tokens, cfg.OpenAIModel,
			openai.WithBaseURL(cfg.OpenAIBaseURL),
			openai.WithHTTPClient(&http.Client{Timeout: cfg.FallbackTimeout}),
		)
		if err != nil {
			return nil, fmt.Errorf("app: openai client: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("app: unknown fallback provider %q", cfg.FallbackProvider)
}

// tokenSource prefers a key given directly in configuration over one stored
// in Parameter Store.
func tokenSource(ctx context.Context, cfg config.Config, sdk *lazyAWS) (paramstore.TokenSource, error) {
	if cfg.FallbackAPIKey != "" {
		return paramstore.StaticToken(cfg.FallbackAPIKey), nil
	}
	awsCfg, err := sdk.load(ctx)
	if err != nil {
		return nil, err
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: ssm client: %w", err)
	}
	cached, err := paramstore.NewCachedToken(ssmClient, cfg.TokenParameter())
	if err != nil {
		return nil, fmt.Errorf("app: token source: %w", err)
	}
	return cached, nil
}
