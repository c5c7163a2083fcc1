// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command ontomed is the OntoMed service CLI.
//
// Usage:
//
//	ontomed serve --config config.yaml
//	ontomed fill concept_explanation concept_name=Hypertension
//	ontomed templates --dir ./templates
//	ontomed validate config.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/ontomed"
	"github.com/kadirpekel/ontomed/pkg/config"
	"github.com/kadirpekel/ontomed/pkg/template"
)

// CLI defines the command-line interface.
type CLI struct {
	Version   VersionCmd   `cmd:"" help:"Show version information."`
	Serve     ServeCmd     `cmd:"" help:"Start the REST API server."`
	Fill      FillCmd      `cmd:"" help:"Fill a template and print the result."`
	Templates TemplatesCmd `cmd:"" help:"List loaded templates or show a single definition."`
	Validate  ValidateCmd  `cmd:"" help:"Validate a configuration file."`
	Schema    SchemaCmd    `cmd:"" help:"Generate JSON Schema for config or template files."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, or custom)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := ontomed.GetVersion()
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version.Version = info.Main.Version
		}
	}
	fmt.Println(version.String())
	return nil
}

// loadConfigOrDefault loads the config file when a path is given, otherwise
// builds the zero-config defaults (memory graph, env-detected LLM provider).
// The returned loader is nil in zero-config mode.
func loadConfigOrDefault(ctx context.Context, path string) (*config.Config, *config.Loader, error) {
	if path != "" {
		cfg, loader, err := config.LoadConfigFile(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, loader, nil
	}

	cfg, err := config.ProcessConfigPipeline(&config.Config{})
	if err != nil {
		return nil, nil, err
	}
	return cfg, nil, nil
}

// openStore loads the template store from the override directory when given,
// falling back to the configured directory.
func openStore(ctx context.Context, configPath, dirOverride string) (*template.Store, error) {
	dir := dirOverride
	if dir == "" {
		cfg, loader, err := loadConfigOrDefault(ctx, configPath)
		if err != nil {
			return nil, err
		}
		if loader != nil {
			defer loader.Close()
		}
		dir = cfg.Templates.Dir
	}

	store := template.NewStore()
	if err := store.LoadDir(dir); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return store, nil
}

const (
	accentColor = "\033[38;2;14;165;233m"
	resetColor  = "\033[0m"
)

// printBanner prints a colored ASCII banner using ontomed-blue (#0ea5e9)
func printBanner() {
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			// Not a terminal, skip banner
			return
		}
	} else {
		return
	}

	banner := `
 ██████╗ ███╗   ██╗████████╗ ██████╗ ███╗   ███╗███████╗██████╗
██╔═══██╗████╗  ██║╚══██╔══╝██╔═══██╗████╗ ████║██╔════╝██╔══██╗
██║   ██║██╔██╗ ██║   ██║   ██║   ██║██╔████╔██║█████╗  ██║  ██║
██║   ██║██║╚██╗██║   ██║   ██║   ██║██║╚██╔╝██║██╔══╝  ██║  ██║
╚██████╔╝██║ ╚████║   ██║   ╚██████╔╝██║ ╚═╝ ██║███████╗██████╔╝
 ╚═════╝ ╚═╝  ╚═══╝   ╚═╝    ╚═════╝ ╚═╝     ╚═╝╚══════╝╚═════╝
`
	fmt.Printf("%s%s%s\n", accentColor, banner, resetColor)
}

// shouldShowBanner reports whether the serve command is being run. The other
// commands write to stdout for piping and stay banner-free.
func shouldShowBanner(args []string) bool {
	for _, arg := range args[1:] {
		if arg == "serve" {
			return true
		}
	}
	return false
}

func main() {
	if shouldShowBanner(os.Args) {
		printBanner()
	}

	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("ontomed"),
		kong.Description("OntoMed - medical ontology template and content generation service"),
		kong.UsageOnError(),
	)

	// Initialize logger with CLI flags/env vars (before config loading).
	// Config file logger settings apply later for serve.
	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
