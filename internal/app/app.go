// Package app assembles the Phoenix services from configuration. Both the
// CLI and the batch worker build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/phoenix/internal/activity"
	"github.com/efebarandurmaz/phoenix/internal/analysis"
	"github.com/efebarandurmaz/phoenix/internal/catalog"
	"github.com/efebarandurmaz/phoenix/internal/config"
	"github.com/efebarandurmaz/phoenix/internal/lineage"
	lineageneo4j "github.com/efebarandurmaz/phoenix/internal/lineage/neo4j"
	"github.com/efebarandurmaz/phoenix/internal/llm"
	"github.com/efebarandurmaz/phoenix/internal/llm/providers"
	"github.com/efebarandurmaz/phoenix/internal/observability"
	"github.com/efebarandurmaz/phoenix/internal/server"
	"github.com/efebarandurmaz/phoenix/internal/session"
	"github.com/efebarandurmaz/phoenix/internal/transform"
	"github.com/efebarandurmaz/phoenix/internal/vector"
	vectorqdrant "github.com/efebarandurmaz/phoenix/internal/vector/qdrant"
)

// Version is reported by health checks and traces.
var Version = "0.1.0"

const (
	janitorInterval   = time.Minute
	memoryLineageSize = 10000
)

type pinger interface {
	Ping(ctx context.Context) error
}

// App holds the assembled services.
type App struct {
	Config    *config.Config
	Catalog   *catalog.Registry
	Sessions  *session.MemoryStore
	Provider  llm.Provider
	Transform *transform.Service
	Analysis  *analysis.Service
	Lineage   lineage.Repository
	Index     *vector.Index
	Tracing   *observability.TracerProvider
	Activity  *activity.Feed

	graph  pinger
	vector pinger
	log    *logrus.Entry
}

// Build wires every service described by cfg. Optional backends that cannot
// be reached are replaced by their in-memory counterparts.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, log: logrus.WithField("component", "app")}

	var err error
	if cfg.Catalog.Dir != "" {
		a.Catalog, err = catalog.LoadDir(cfg.Catalog.Dir, cfg.Catalog.Fallback)
	} else {
		a.Catalog, err = catalog.Load(cfg.Catalog.Fallback)
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	a.Sessions = session.NewMemoryStore(session.Options{
		TTL:             cfg.Session.TTL,
		MaxSessions:     cfg.Session.MaxSessions,
		JanitorInterval: janitorInterval,
	})
	observability.Metrics().ObserveSessions(a.Sessions.Len)

	a.Provider, err = providers.NewFactory().Create(cfg.LLM.ProviderConfig())
	if err != nil {
		a.Sessions.Close()
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	if a.Provider == nil {
		a.log.Info("no LLM provider configured, analysis runs in demo mode")
	} else {
		a.log.WithField("provider", a.Provider.Name()).Info("LLM provider ready")
	}

	a.Lineage = a.buildLineage(ctx)
	a.Index = a.buildIndex()

	var analyzer analysis.Analyzer
	if a.Provider != nil {
		analyzer = analysis.NewLLMAnalyzer(a.Provider, cfg.LLM.Model)
	}
	a.Analysis = analysis.NewService(a.Catalog, analyzer, analysis.Options{
		Timeout: cfg.LLM.AnalysisTimeout,
		Workers: cfg.LLM.AnalysisWorkers,
	})
	a.Activity = activity.NewFeed(activity.DefaultLimit)
	a.Transform = transform.NewService(a.Catalog, nil,
		transform.WithSessions(a.Sessions),
		transform.WithLineage(a.Lineage),
		transform.WithLineage(a.Activity),
	)

	a.Tracing, err = observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Environment:    "production",
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	if err := observability.InitGlobalAuditLogger(&observability.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		OutputPath: cfg.Audit.Path,
	}); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("initializing audit log: %w", err)
	}
	return a, nil
}

func (a *App) buildLineage(ctx context.Context) lineage.Repository {
	g := a.Config.Graph
	if g.URI == "" {
		return lineage.NewMemory(memoryLineageSize)
	}
	repo, err := lineageneo4j.New(ctx, g.URI, g.Username, g.Password)
	if err != nil {
		a.log.WithError(err).Warn("neo4j unavailable, lineage kept in memory")
		return lineage.NewMemory(memoryLineageSize)
	}
	a.graph = repo
	a.log.WithField("uri", g.URI).Info("lineage stored in neo4j")
	return repo
}

func (a *App) buildIndex() *vector.Index {
	if !llm.CanEmbed(a.Provider) {
		if a.Provider != nil {
			a.log.WithField("provider", a.Provider.Name()).Info("provider cannot embed, similarity search disabled")
		}
		return vector.NewIndex(nil, nil)
	}
	v := a.Config.Vector
	if v.Host == "" {
		return vector.NewIndex(a.Provider, vector.NewMemory())
	}
	repo, err := vectorqdrant.New(v.Host, v.Port, v.Collection)
	if err != nil {
		a.log.WithError(err).Warn("qdrant unavailable, similarity index kept in memory")
		return vector.NewIndex(a.Provider, vector.NewMemory())
	}
	a.vector = repo
	return vector.NewIndex(a.Provider, repo)
}

// RegisterHealth adds a check per component to hs.
func (a *App) RegisterHealth(hs *server.HealthServer) {
	hs.RegisterCheck("catalog", server.CountChecker("fixtures", 1, 0, a.Catalog.Len))
	hs.RegisterCheck("sessions", server.CountChecker("sessions", 0, a.Config.Session.MaxSessions, a.Sessions.Len))

	if a.Provider == nil {
		hs.RegisterCheck("llm", server.StaticChecker(server.HealthStatusHealthy, "demo mode", nil))
	} else {
		hs.RegisterCheck("llm", server.StaticChecker(server.HealthStatusHealthy, "provider configured",
			map[string]string{"provider": a.Provider.Name(), "model": a.Config.LLM.Model}))
	}
	if a.graph != nil {
		hs.RegisterCheck("neo4j", server.DependencyChecker("neo4j", false, a.graph.Ping))
	}
	if a.vector != nil {
		hs.RegisterCheck("qdrant", server.DependencyChecker("qdrant", false, a.vector.Ping))
	}
}

// RegisterShutdown closes every component through sd.
func (a *App) RegisterShutdown(sd *server.ShutdownHandler) {
	sd.RegisterHook("sessions", server.PrioritySessions, func(context.Context) error { return a.Sessions.Close() })
	sd.RegisterHook("tracing", server.PriorityTracing, a.Tracing.Shutdown)
	sd.RegisterHook("lineage", server.PriorityStores, a.Lineage.Close)
	sd.RegisterHook("vector", server.PriorityStores, func(context.Context) error { return a.Index.Close() })
	sd.RegisterHook("audit", server.PriorityAudit, func(context.Context) error { return observability.Audit().Close() })
}

// Close releases every component directly. Use it when no ShutdownHandler runs.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Sessions != nil {
		errs = append(errs, a.Sessions.Close())
	}
	if a.Tracing != nil {
		errs = append(errs, a.Tracing.Shutdown(ctx))
	}
	if a.Lineage != nil {
		errs = append(errs, a.Lineage.Close(ctx))
	}
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	return errors.Join(errs...)
}
