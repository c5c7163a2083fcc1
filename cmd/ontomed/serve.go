package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/ontomed/pkg/component"
	"github.com/kadirpekel/ontomed/pkg/config"
	"github.com/kadirpekel/ontomed/pkg/observability"
	"github.com/kadirpekel/ontomed/pkg/server"
)

// shutdownTimeout bounds the graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// ServeCmd starts the REST API server.
type ServeCmd struct {
	Port         int    `help:"Port to listen on (overrides config)."`
	TemplatesDir string `name:"templates-dir" help:"Templates directory (overrides config)." type:"path"`
	GraphURL     string `name:"graph-url" help:"Blazegraph base URL (switches the graph provider to blazegraph)."`
	Observe      bool   `help:"Enable observability (metrics + OTLP tracing to localhost:4317)."`
	Watch        bool   `help:"Watch config file for changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, loader, err := loadConfigOrDefault(ctx, cli.Config)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
		slog.Info("Loaded configuration", "path", cli.Config)
	} else {
		slog.Info("Using zero-config mode")
	}

	c.applyOverrides(cli, cfg)

	cm, err := component.NewComponentManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer cm.Close()

	srv, err := cm.BuildServer()
	if err != nil {
		return err
	}

	printServeInfo(cfg, cm, srv)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		return srv.Stop(stopCtx)
	})
	if c.Watch {
		if loader == nil {
			slog.Warn("No config file to watch; ignoring --watch")
		} else {
			g.Go(func() error {
				// Reloads validate the edited file; changed settings apply
				// on restart.
				if err := loader.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// applyOverrides merges command-line flags into the loaded configuration.
// Flags win over config file values.
func (c *ServeCmd) applyOverrides(cli *CLI, cfg *config.Config) {
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.TemplatesDir != "" {
		cfg.Templates.Dir = c.TemplatesDir
	}
	if c.GraphURL != "" {
		cfg.Graph.Provider = config.GraphProviderBlazegraph
		cfg.Graph.BaseURL = c.GraphURL
	}
	if c.Observe && cfg.Server.Observability == nil {
		obs := &observability.Config{}
		obs.Tracing.Enabled = true
		obs.Metrics.Enabled = true
		obs.SetDefaults()
		cfg.Server.Observability = obs
	}
	if cli.LogLevel != "" {
		cfg.Logger.Level = cli.LogLevel
	}
	if cli.LogFile != "" {
		cfg.Logger.File = cli.LogFile
	}
	if cli.LogFormat != "" {
		cfg.Logger.Format = cli.LogFormat
	}
}

func printServeInfo(cfg *config.Config, cm *component.ComponentManager, srv *server.Server) {
	address := srv.Address()

	fmt.Printf("\n%s🚀 OntoMed server ready!%s\n", accentColor, resetColor)
	fmt.Printf("   API:         http://%s/api\n", address)
	fmt.Printf("   Templates:   http://%s/api/templates (%d loaded)\n", address, cm.GetStore().Count())
	fmt.Printf("   Concepts:    http://%s/api/concepts\n", address)
	fmt.Printf("   Health:      http://%s/health\n", address)

	if graph := cm.GetGraph(); graph != nil {
		status := "connected"
		if !graph.IsConnected() {
			status = "unreachable"
		}
		fmt.Printf("   Graph:       %s (%s)\n", cfg.Graph.Provider, status)
	}

	if llm := cm.GetLLM(); llm != nil {
		fmt.Printf("   LLM:         %s\n", llm.GetModelName())
	} else {
		fmt.Printf("   LLM:         none (generation disabled)\n")
	}

	if cfg.Vector != nil {
		fmt.Printf("   Vector:      collection %q (threshold %.2f)\n",
			cfg.Vector.Collection, cfg.Vector.SimilarityThreshold)
	}

	if obs := cfg.Server.Observability; obs != nil {
		if obs.Tracing.Enabled {
			fmt.Printf("   Tracing:     %s (%s)\n", obs.Tracing.Exporter, obs.Tracing.Endpoint)
		}
		if obs.Metrics.Enabled {
			fmt.Printf("   Metrics:     http://%s/metrics\n", address)
		}
	}

	fmt.Println("\nPress Ctrl+C to stop")
}
