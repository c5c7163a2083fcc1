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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/ontomed/pkg/config"
	"github.com/kadirpekel/ontomed/pkg/template"
)

// ValidateCmd validates a configuration file and, optionally, the templates
// directory it points at.
type ValidateCmd struct {
	// Config is the configuration file path (positional argument)
	Config string `arg:"" name:"config" help:"Configuration file path." placeholder:"PATH"`

	// Format specifies the output format
	Format string `short:"f" help:"Output format: compact, verbose, json." default:"compact" enum:"compact,verbose,json"`

	// PrintConfig prints the expanded configuration
	PrintConfig bool `short:"p" name:"print-config" help:"Print the expanded configuration (with defaults applied and env vars resolved)."`

	// Templates also loads and lints the configured templates directory
	Templates bool `short:"t" help:"Also load and lint the configured templates directory."`
}

// Run executes the validate command.
func (c *ValidateCmd) Run(cli *CLI) error {
	ctx := context.Background()

	// LoadConfigFile runs the full pipeline: defaults applied, env vars
	// resolved, validation complete.
	cfg, loader, err := config.LoadConfigFile(ctx, c.Config)
	if err != nil {
		return printLoadError(c.Format, c.Config, err)
	}
	if loader != nil {
		defer loader.Close()
	}

	var warnings []template.Warning
	if c.Templates {
		store := template.NewStore()
		if err := store.LoadDir(cfg.Templates.Dir); err != nil {
			return printLoadError(c.Format, cfg.Templates.Dir, err)
		}
		warnings = template.NewValidator().ValidateAll(store)
	}

	if c.PrintConfig {
		return printExpandedConfig(c.Format, c.Config, cfg)
	}

	printSuccess(c.Format, c.Config, warnings)
	return nil
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// printLoadError prints a configuration load error.
func printLoadError(format, file string, err error) error {
	switch format {
	case "json":
		printJSONResult(false, file, []ValidationError{{Type: "load", Message: err.Error()}}, nil)
	case "verbose":
		fmt.Fprintf(os.Stderr, "Configuration Load Error\n")
		fmt.Fprintf(os.Stderr, "========================\n\n")
		fmt.Fprintf(os.Stderr, "File:    %s\n", file)
		fmt.Fprintf(os.Stderr, "Error:   %s\n", err.Error())
	default: // compact
		fmt.Fprintf(os.Stderr, "%s: load error: %s\n", file, err.Error())
	}
	return fmt.Errorf("config load failed")
}

// printSuccess prints a success message, including template lint findings
// when present. Lint findings are warnings and never fail validation.
func printSuccess(format, file string, warnings []template.Warning) {
	switch format {
	case "json":
		printJSONResult(true, file, nil, warnings)
	case "verbose":
		fmt.Fprintf(os.Stdout, "Configuration Validation Successful\n")
		fmt.Fprintf(os.Stdout, "===================================\n\n")
		fmt.Fprintf(os.Stdout, "File:   %s\n", file)
		fmt.Fprintf(os.Stdout, "Status: OK Valid\n")
		if len(warnings) > 0 {
			fmt.Fprintf(os.Stdout, "\nTemplate lint findings (%d):\n", len(warnings))
			for _, w := range warnings {
				fmt.Fprintf(os.Stdout, "  - %s [%s]: %s\n", w.TemplateID, w.Field, w.Message)
			}
		}
	default: // compact
		fmt.Fprintf(os.Stdout, "%s: valid\n", file)
		for _, w := range warnings {
			fmt.Fprintf(os.Stdout, "%s: lint: %s [%s]: %s\n", file, w.TemplateID, w.Field, w.Message)
		}
	}
}

// printExpandedConfig prints the expanded configuration.
func printExpandedConfig(format, file string, cfg *config.Config) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config as JSON: %w", err)
		}
	case "verbose", "compact":
		fmt.Fprintf(os.Stdout, "# Expanded Configuration from: %s\n", file)
		fmt.Fprintf(os.Stdout, "# (defaults applied, env vars resolved)\n\n")

		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config as YAML: %w", err)
		}
		encoder.Close()
	}
	return nil
}

// jsonOutput is the JSON output structure.
type jsonOutput struct {
	Valid    bool              `json:"valid"`
	File     string            `json:"file"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []lintWarning     `json:"warnings,omitempty"`
}

// lintWarning is the JSON shape of a template lint finding.
type lintWarning struct {
	TemplateID string `json:"template_id"`
	Field      string `json:"field,omitempty"`
	Message    string `json:"message"`
}

// printJSONResult prints a JSON validation result.
func printJSONResult(valid bool, file string, errors []ValidationError, warnings []template.Warning) {
	output := jsonOutput{
		Valid:  valid,
		File:   file,
		Errors: errors,
	}
	for _, w := range warnings {
		output.Warnings = append(output.Warnings, lintWarning{
			TemplateID: w.TemplateID,
			Field:      w.Field,
			Message:    w.Message,
		})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}
