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

// Package template provides declarative prompt templates for OntoMed.
//
// Templates are YAML documents with named {{placeholder}} markers that are
// resolved against caller-supplied parameters at fill time:
//
//	template_id: concept_explanation
//	description: Explains a medical concept in plain language
//	template: |
//	  Explain the concept {{concept_name}} to a patient.
//	parameters:
//	  concept_name:
//	    type: string
//	    description: Name of the medical concept
//	    required: true
//
// A Store loads every definition from a directory once at startup, a Filler
// performs literal placeholder substitution, and a Validator reports schema
// inconsistencies without rejecting templates.
package template

import (
	"regexp"
	"strings"
)

// Parameter types accepted in template definitions.
const (
	ParamString  = "string"
	ParamNumber  = "number"
	ParamBoolean = "boolean"
	ParamArray   = "array"
	ParamObject  = "object"
)

// ValidParamTypes lists every accepted parameter type tag.
var ValidParamTypes = []string{ParamString, ParamNumber, ParamBoolean, ParamArray, ParamObject}

// placeholderRegex matches {{name}} markers where name is an identifier.
// Anything else between double braces is treated as literal text.
var placeholderRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ParameterSpec describes a single template parameter.
type ParameterSpec struct {
	// Type of the parameter value. One of: string, number, boolean, array, object.
	Type string `yaml:"type" json:"type" jsonschema:"enum=string,enum=number,enum=boolean,enum=array,enum=object,description=Parameter value type"`

	// Description explains what the parameter holds.
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"description=Human-readable parameter description"`

	// Required marks the parameter as mandatory. Informational: fills with
	// missing parameters still succeed and leave placeholders intact.
	Required bool `yaml:"required,omitempty" json:"required,omitempty" jsonschema:"description=Whether the parameter is expected on every fill"`

	// Default value substituted when the caller omits the parameter.
	Default any `yaml:"default,omitempty" json:"default,omitempty" jsonschema:"description=Fallback value used when the parameter is not supplied"`
}

// Definition is a single loaded template.
type Definition struct {
	// TemplateID uniquely identifies the template within a store.
	TemplateID string `yaml:"template_id" json:"template_id" jsonschema:"required,description=Unique template identifier"`

	// Name is an optional display name. Defaults to the id.
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"description=Display name"`

	// Description explains what the template produces.
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"description=What the template is for"`

	// Type tags the template's intended use (e.g. text, structured, embedding).
	Type string `yaml:"type,omitempty" json:"type,omitempty" jsonschema:"description=Intended use of the generated output"`

	// Version of the template definition.
	Version string `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"description=Template version"`

	// Template is the body text containing {{name}} placeholders.
	Template string `yaml:"template" json:"template" jsonschema:"description=Template body with {{name}} placeholders"`

	// Parameters declares the placeholders the body expects.
	Parameters map[string]ParameterSpec `yaml:"parameters,omitempty" json:"parameters,omitempty" jsonschema:"description=Parameter name to spec mapping"`

	// Examples holds sample parameter mappings for documentation and tests.
	Examples []map[string]any `yaml:"examples,omitempty" json:"examples,omitempty" jsonschema:"description=Example parameter sets"`

	// Metadata carries free-form annotations such as domain or author.
	Metadata map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty" jsonschema:"description=Free-form template metadata"`
}

// DisplayName returns the template's name, falling back to its id.
func (d *Definition) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.TemplateID
}

// Placeholders returns the placeholder names appearing in the body,
// deduplicated, in order of first appearance.
func (d *Definition) Placeholders() []string {
	return Placeholders(d.Template)
}

// HasPlaceholder reports whether the body references the named placeholder.
func (d *Definition) HasPlaceholder(name string) bool {
	for _, p := range d.Placeholders() {
		if p == name {
			return true
		}
	}
	return false
}

// Placeholders returns all placeholder names found in a template body,
// deduplicated, in order of first appearance.
func Placeholders(body string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(body, -1)
	var names []string
	seen := make(map[string]bool)

	for _, match := range matches {
		name := match[1]
		if !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	return names
}

// HasPlaceholders returns true if the body contains any placeholders.
func HasPlaceholders(body string) bool {
	return placeholderRegex.MatchString(body)
}

// IsValidParamType reports whether the given type tag is accepted.
func IsValidParamType(t string) bool {
	for _, valid := range ValidParamTypes {
		if strings.EqualFold(t, valid) {
			return true
		}
	}
	return false
}
