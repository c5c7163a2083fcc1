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

package config

import "fmt"

// TemplatesConfig configures the prompt template store.
//
// Templates are YAML files loaded once at startup. Files without a
// template_id and files that fail to parse are skipped with a log entry;
// a missing directory yields an empty store.
//
// Example:
//
//	templates:
//	  dir: ./templates
//	  lint: true
type TemplatesConfig struct {
	// Dir is the directory containing template YAML files.
	// Default: "templates"
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty" jsonschema:"title=Directory,description=Directory containing template YAML files,default=templates"`

	// Lint enables schema warnings for loaded templates (undeclared
	// placeholders, unknown parameter types). Warnings never fail startup.
	// Default: true
	Lint *bool `yaml:"lint,omitempty" json:"lint,omitempty" jsonschema:"title=Lint,description=Log schema warnings for loaded templates,default=true"`
}

// SetDefaults applies default values to TemplatesConfig.
func (c *TemplatesConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "templates"
	}
	if c.Lint == nil {
		c.Lint = BoolPtr(true)
	}
}

// Validate checks the templates configuration.
func (c *TemplatesConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}
	return nil
}
