// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/kadirpekel/ontomed/pkg/config"
	"github.com/kadirpekel/ontomed/pkg/template"
)

// SchemaCmd generates JSON Schema from OntoMed structs. The config schema
// documents the service configuration file; the template schema documents
// declarative template definition files. Output goes to stdout so it can be
// redirected.
type SchemaCmd struct {
	// Target selects which schema to generate
	Target string `arg:"" optional:"" default:"config" enum:"config,template" help:"Schema to generate: config or template."`

	// Compact enables compact JSON output (no indentation)
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

// Run executes the schema generation command.
func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		// Disallow additional properties for strict validation
		AllowAdditionalProperties: false,
		// Inline all definitions (no $ref)
		DoNotReference: true,
	}

	var schema *jsonschema.Schema
	switch c.Target {
	case "template":
		schema = reflector.Reflect(&template.Definition{})
		schema.ID = "https://ontomed.dev/schemas/template.json"
		schema.Title = "OntoMed Template Schema"
		schema.Description = "Schema for declarative template definition files"
	default:
		schema = reflector.Reflect(&config.Config{})
		schema.ID = "https://ontomed.dev/schemas/config.json"
		schema.Title = "OntoMed Configuration Schema"
		schema.Description = "Complete configuration schema for the OntoMed service"
		schema.Examples = []interface{}{
			map[string]interface{}{
				"server": map[string]interface{}{
					"port": 8080,
				},
				"templates": map[string]interface{}{
					"dir": "./templates",
				},
				"llms": map[string]interface{}{
					"default": map[string]interface{}{
						"provider": "openai",
						"model":    "gpt-4o",
						"api_key":  "${OPENAI_API_KEY}",
					},
				},
				"graph": map[string]interface{}{
					"provider": "blazegraph",
					"base_url": "http://localhost:9999/blazegraph",
				},
			},
		}
	}

	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}

	return nil
}
