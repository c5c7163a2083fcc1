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

package template

import (
	"fmt"
	"log/slog"
)

// Warning describes a single template lint finding.
//
// Warnings never reject a template. A template with warnings still loads
// and fills normally; the findings exist so template authors can tighten
// their definitions.
type Warning struct {
	// TemplateID identifies the template the finding belongs to.
	TemplateID string

	// Field names the part of the definition the finding refers to.
	Field string

	// Message describes the finding.
	Message string
}

// String formats the warning for display.
func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.TemplateID, w.Field, w.Message)
}

// Validator lints template definitions against their own parameter schemas.
type Validator struct{}

// NewValidator creates a template validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a single definition for schema inconsistencies.
func (v *Validator) Validate(def *Definition) []Warning {
	var warnings []Warning

	warn := func(field, format string, args ...any) {
		warnings = append(warnings, Warning{
			TemplateID: def.TemplateID,
			Field:      field,
			Message:    fmt.Sprintf(format, args...),
		})
	}

	if def.Template == "" {
		warn("template", "template body is empty")
	}
	if def.Description == "" {
		warn("description", "description is empty")
	}

	// Placeholders referenced in the body should be declared as parameters.
	for _, name := range def.Placeholders() {
		if _, ok := def.Parameters[name]; !ok {
			warn("template", "placeholder {{%s}} has no parameter declaration", name)
		}
	}

	for name, spec := range def.Parameters {
		if spec.Type != "" && !IsValidParamType(spec.Type) {
			warn("parameters."+name, "unknown parameter type %q", spec.Type)
		}
		if spec.Required && !def.HasPlaceholder(name) {
			warn("parameters."+name, "required parameter is never referenced in the template body")
		}
	}

	return warnings
}

// ValidateAll lints every definition in the store and logs each finding.
func (v *Validator) ValidateAll(store *Store) []Warning {
	var all []Warning
	for _, def := range store.List() {
		warnings := v.Validate(def)
		for _, w := range warnings {
			slog.Warn("Template lint finding", "template_id", w.TemplateID, "field", w.Field, "message", w.Message)
		}
		all = append(all, warnings...)
	}
	return all
}

// CheckParameters compares supplied parameters against a definition's schema.
//
// Findings cover missing required parameters, parameters not declared in the
// schema, and values whose type does not match the declared type tag. Fills
// proceed regardless; callers decide whether to surface the findings.
func (v *Validator) CheckParameters(def *Definition, params map[string]any) []Warning {
	var warnings []Warning

	warn := func(field, format string, args ...any) {
		warnings = append(warnings, Warning{
			TemplateID: def.TemplateID,
			Field:      field,
			Message:    fmt.Sprintf(format, args...),
		})
	}

	for name, spec := range def.Parameters {
		if _, ok := params[name]; !ok && spec.Required && spec.Default == nil {
			warn("parameters."+name, "required parameter not supplied")
		}
	}

	for name, value := range params {
		spec, ok := def.Parameters[name]
		if !ok {
			warn("parameters."+name, "parameter is not declared in the template schema")
			continue
		}
		if spec.Type == "" {
			continue
		}
		if !matchesType(value, spec.Type) {
			warn("parameters."+name, "value of type %T does not match declared type %q", value, spec.Type)
		}
	}

	return warnings
}

// matchesType reports whether a decoded YAML/JSON value fits a type tag.
func matchesType(value any, paramType string) bool {
	if value == nil {
		return true
	}
	switch paramType {
	case ParamString:
		_, ok := value.(string)
		return ok
	case ParamNumber:
		switch value.(type) {
		case int, int32, int64, uint, uint32, uint64, float32, float64:
			return true
		}
		return false
	case ParamBoolean:
		_, ok := value.(bool)
		return ok
	case ParamArray:
		_, ok := value.([]any)
		return ok
	case ParamObject:
		_, ok := value.(map[string]any)
		return ok
	default:
		// Unknown type tags are reported by Validate, not here.
		return true
	}
}
