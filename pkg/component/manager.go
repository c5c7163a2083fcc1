// Package component assembles the service from configuration. The
// ComponentManager is the composition root: every dependency is built here
// once, handed down explicitly, and torn down in reverse order on Close.
package component

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kadirpekel/ontomed/pkg/config"
	"github.com/kadirpekel/ontomed/pkg/generator"
	"github.com/kadirpekel/ontomed/pkg/llms"
	"github.com/kadirpekel/ontomed/pkg/logger"
	"github.com/kadirpekel/ontomed/pkg/observability"
	"github.com/kadirpekel/ontomed/pkg/semantic"
	"github.com/kadirpekel/ontomed/pkg/server"
	"github.com/kadirpekel/ontomed/pkg/template"
	"github.com/kadirpekel/ontomed/pkg/vector"
)

// ComponentManager owns every component built from the configuration.
type ComponentManager struct {
	globalConfig *config.Config

	store       *template.Store
	llmRegistry *llms.LLMRegistry
	llm         llms.Provider
	graph       *semantic.GraphService
	index       vector.Provider
	generator   *generator.ContentGenerator
	obs         *observability.Manager

	logClose func()
}

// NewComponentManager builds all components from a processed configuration.
// Build order: logger, observability, template store, LLM providers, graph
// store, vector index, generator. A failed build tears down whatever was
// already started and returns the error.
func NewComponentManager(ctx context.Context, globalConfig *config.Config) (*ComponentManager, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("config is required")
	}

	cm := &ComponentManager{globalConfig: globalConfig}

	steps := []func(context.Context) error{
		cm.setupLogger,
		cm.setupObservability,
		cm.setupTemplates,
		cm.setupLLMs,
		cm.setupGraph,
		cm.setupVector,
		cm.setupGenerator,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			cm.Close()
			return nil, err
		}
	}

	return cm, nil
}

func (cm *ComponentManager) setupLogger(_ context.Context) error {
	cfg := cm.globalConfig.Logger

	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	if cfg.File != "" {
		file, cleanup, err := logger.OpenLogFile(cfg.File)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		output = file
		cm.logClose = cleanup
	}

	logger.Init(level, output, cfg.Format)
	return nil
}

func (cm *ComponentManager) setupObservability(ctx context.Context) error {
	if cm.globalConfig.Server.Observability == nil {
		return nil
	}

	manager := observability.NewManager(*cm.globalConfig.Server.Observability)
	if err := manager.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	cm.obs = manager
	return nil
}

func (cm *ComponentManager) setupTemplates(_ context.Context) error {
	store := template.NewStore()
	if err := store.LoadDir(cm.globalConfig.Templates.Dir); err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	cm.store = store

	slog.Info("Templates loaded", "dir", cm.globalConfig.Templates.Dir, "count", store.Count())

	if config.BoolValue(cm.globalConfig.Templates.Lint, true) {
		// ValidateAll logs each finding; lint warnings never fail startup.
		template.NewValidator().ValidateAll(store)
	}
	return nil
}

func (cm *ComponentManager) setupLLMs(_ context.Context) error {
	registry := llms.NewLLMRegistry()
	for name, llmConfig := range cm.globalConfig.LLMs {
		if _, err := registry.CreateLLMFromConfig(name, llmConfig); err != nil {
			return fmt.Errorf("failed to initialize LLM '%s': %w", name, err)
		}
	}
	cm.llmRegistry = registry

	provider, err := registry.GetLLM(config.DefaultLLMName)
	if err != nil {
		slog.Warn("No default LLM configured; generation endpoints will be unavailable")
		return nil
	}
	cm.llm = provider
	return nil
}

// setupGraph builds the graph store and connects. A failed connect is
// logged, not fatal: concept endpoints answer 503 until the backend is
// reachable.
func (cm *ComponentManager) setupGraph(ctx context.Context) error {
	store, err := semantic.NewGraphStoreFromConfig(&cm.globalConfig.Graph)
	if err != nil {
		return fmt.Errorf("failed to create graph store: %w", err)
	}

	service, err := semantic.NewGraphService(store)
	if err != nil {
		return err
	}

	if err := service.Connect(ctx); err != nil {
		slog.Warn("Graph store connection failed",
			"provider", cm.globalConfig.Graph.Provider,
			"error", err)
	}

	cm.graph = service
	return nil
}

func (cm *ComponentManager) setupVector(_ context.Context) error {
	index, err := vector.NewProvider(cm.globalConfig.Vector)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	cm.index = index
	return nil
}

func (cm *ComponentManager) setupGenerator(_ context.Context) error {
	opts := []generator.GeneratorOption{
		generator.WithVectorIndex(cm.index, cm.globalConfig.Vector),
	}
	if cm.llm != nil {
		opts = append(opts, generator.WithLLM(cm.llm))
	}

	gen, err := generator.NewContentGenerator(cm.store, opts...)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}
	cm.generator = gen
	return nil
}

// BuildServer wires the HTTP server from the built components.
func (cm *ComponentManager) BuildServer() (*server.Server, error) {
	deps := server.Dependencies{
		Store:     cm.store,
		Generator: cm.generator,
		Graph:     cm.graph,
	}
	if cm.obs != nil {
		deps.Tracer = cm.obs.GetTracer(observability.DefaultServiceName)
		deps.Metrics = cm.obs.GetMetrics()
	}

	return server.NewServer(&cm.globalConfig.Server, deps)
}

// GetGlobalConfig returns the configuration the manager was built from.
func (cm *ComponentManager) GetGlobalConfig() *config.Config {
	return cm.globalConfig
}

// GetStore returns the template store.
func (cm *ComponentManager) GetStore() *template.Store {
	return cm.store
}

// GetLLMRegistry returns the LLM provider registry.
func (cm *ComponentManager) GetLLMRegistry() *llms.LLMRegistry {
	return cm.llmRegistry
}

// GetLLM returns the default LLM provider, or nil when none is configured.
func (cm *ComponentManager) GetLLM() llms.Provider {
	return cm.llm
}

// GetGraph returns the graph service.
func (cm *ComponentManager) GetGraph() *semantic.GraphService {
	return cm.graph
}

// GetVector returns the vector index provider.
func (cm *ComponentManager) GetVector() vector.Provider {
	return cm.index
}

// GetGenerator returns the content generator.
func (cm *ComponentManager) GetGenerator() *generator.ContentGenerator {
	return cm.generator
}

// GetObservability returns the observability manager, or nil when disabled.
func (cm *ComponentManager) GetObservability() *observability.Manager {
	return cm.obs
}

// Close tears components down in reverse build order. Errors are logged and
// swallowed so one failing component does not block the rest.
func (cm *ComponentManager) Close() {
	ctx := context.Background()

	if cm.index != nil {
		if err := cm.index.Close(); err != nil {
			slog.Warn("Failed to close vector index", "error", err)
		}
	}

	if cm.graph != nil {
		if err := cm.graph.Close(); err != nil {
			slog.Warn("Failed to close graph store", "error", err)
		}
	}

	if cm.llmRegistry != nil {
		for _, provider := range cm.llmRegistry.List() {
			if err := provider.Close(); err != nil {
				slog.Warn("Failed to close LLM provider", "error", err)
			}
		}
	}

	if cm.obs != nil {
		if err := cm.obs.Shutdown(ctx); err != nil {
			slog.Warn("Failed to shut down observability", "error", err)
		}
	}

	if cm.logClose != nil {
		cm.logClose()
	}
}
