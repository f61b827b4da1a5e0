package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/treeforge/internal/builder"
	"github.com/specialistvlad/treeforge/internal/ctxlog"
	"github.com/specialistvlad/treeforge/internal/hclgraph"
	"github.com/specialistvlad/treeforge/internal/metrics"
	"github.com/specialistvlad/treeforge/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	ctx      context.Context
	config   *Config
	registry *registry.Registry
	loader   *hclgraph.Loader
	metrics  *metrics.Collector

	mu         sync.RWMutex
	builder    *builder.Builder
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// When no modules are given the core plugins are registered.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules))

	// A plugin whose arguments cannot be decoded is a programmer error.
	if err := reg.ValidateRegistry(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.", "plugins", reg.Names())

	return &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   cfg,
		registry: reg,
		loader:   hclgraph.NewLoader(reg),
		metrics:  metrics.New(),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Metrics returns the application's metrics collector.
func (a *App) Metrics() *metrics.Collector {
	return a.metrics
}

func (a *App) setBuilder(b *builder.Builder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.builder = b
}

func (a *App) currentBuilder() *builder.Builder {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.builder
}
