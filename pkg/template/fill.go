package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Filler substitutes parameters into stored templates.
//
// Substitution is literal text replacement. Placeholders without a supplied
// parameter pass through verbatim, and parameters without a matching
// placeholder are ignored. Missing required parameters are not an error.
type Filler struct {
	store *Store
}

// NewFiller creates a filler backed by the given store.
func NewFiller(store *Store) *Filler {
	return &Filler{store: store}
}

// Fill looks up the template by id and substitutes the given parameters
// into its body. Declared defaults apply for parameters the caller omits.
// Returns a NotFoundError (matching ErrNotFound) for unknown ids.
func (f *Filler) Fill(id string, params map[string]any) (string, error) {
	def, err := f.store.Get(id)
	if err != nil {
		return "", err
	}
	return FillBody(def.Template, withDefaults(def, params)), nil
}

// Missing returns the placeholders of the template that neither the supplied
// parameters nor the declared defaults cover, in order of first appearance.
// Returns a NotFoundError for unknown ids.
func (f *Filler) Missing(id string, params map[string]any) ([]string, error) {
	def, err := f.store.Get(id)
	if err != nil {
		return nil, err
	}

	merged := withDefaults(def, params)
	var missing []string
	for _, name := range def.Placeholders() {
		if _, ok := merged[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// withDefaults merges declared parameter defaults under the supplied
// parameters. The caller's map is never mutated.
func withDefaults(def *Definition, params map[string]any) map[string]any {
	hasDefaults := false
	for _, spec := range def.Parameters {
		if spec.Default != nil {
			hasDefaults = true
			break
		}
	}
	if !hasDefaults {
		return params
	}

	merged := make(map[string]any, len(params)+len(def.Parameters))
	for name, spec := range def.Parameters {
		if spec.Default != nil {
			merged[name] = spec.Default
		}
	}
	for name, value := range params {
		merged[name] = value
	}
	return merged
}

// FillBody substitutes parameters into a template body.
//
// The body is scanned in a single pass, so substituted values are never
// re-scanned for placeholders. Placeholders with no matching parameter are
// written back verbatim.
func FillBody(body string, params map[string]any) string {
	if body == "" {
		return ""
	}

	matches := placeholderRegex.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body
	}

	var result strings.Builder
	lastIndex := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		name := body[m[2]:m[3]]

		result.WriteString(body[lastIndex:start])
		if value, ok := params[name]; ok {
			result.WriteString(Stringify(value))
		} else {
			result.WriteString(body[start:end])
		}
		lastIndex = end
	}
	result.WriteString(body[lastIndex:])
	return result.String()
}

// Stringify converts a parameter value to its canonical text form.
//
// Booleans render as true/false and numbers in plain decimal notation.
// Arrays and objects render as compact JSON. Nil renders as the empty string.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any, map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
