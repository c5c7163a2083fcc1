package template

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, files map[string]string) *Store {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeTemplateFile(t, dir, name, content)
	}
	store := NewStore()
	require.NoError(t, store.LoadDir(dir))
	return store
}

func TestFiller_Fill(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"clinical_summary.yaml": clinicalSummaryYAML,
	})
	filler := NewFiller(store)

	out, err := filler.Fill("clinical_summary", map[string]any{
		"condition": "Hypertension",
		"level":     "moderate",
	})
	require.NoError(t, err)
	assert.Equal(t, "Patient has Hypertension with severity moderate", out)
}

func TestFiller_Fill_UnknownID(t *testing.T) {
	store := newTestStore(t, nil)
	filler := NewFiller(store)

	out, err := filler.Fill("nope", map[string]any{"x": "y"})
	assert.Empty(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFiller_Fill_EmptyParamsLeavesPlaceholders(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"greeting.yaml": conceptGreetingYAML,
	})
	filler := NewFiller(store)

	out, err := filler.Fill("concept_greeting", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Hello {{name}}", out)

	// Nil parameter maps behave the same as empty ones.
	out, err = filler.Fill("concept_greeting", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello {{name}}", out)
}

func TestFiller_Fill_ExtraParamsIgnored(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"clinical_summary.yaml": clinicalSummaryYAML,
	})
	filler := NewFiller(store)

	params := map[string]any{"condition": "Asthma", "level": "mild"}
	base, err := filler.Fill("clinical_summary", params)
	require.NoError(t, err)

	params["unused"] = "x"
	withExtra, err := filler.Fill("clinical_summary", params)
	require.NoError(t, err)

	assert.Equal(t, base, withExtra)
}

func TestFiller_Fill_CoveringParamsLeaveNoTokens(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"clinical_summary.yaml": clinicalSummaryYAML,
	})
	filler := NewFiller(store)

	def, err := store.Get("clinical_summary")
	require.NoError(t, err)

	params := make(map[string]any)
	for _, name := range def.Placeholders() {
		params[name] = "covered"
	}

	out, err := filler.Fill("clinical_summary", params)
	require.NoError(t, err)
	assert.NotContains(t, out, "{{")
	assert.NotContains(t, out, "}}")
}

func TestFiller_Fill_RepeatedPlaceholder(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"repeat.yaml": `template_id: repeat
template: "{{term}}, again {{term}}, and once more {{term}}"
`,
	})
	filler := NewFiller(store)

	out, err := filler.Fill("repeat", map[string]any{"term": "insulin"})
	require.NoError(t, err)
	assert.Equal(t, "insulin, again insulin, and once more insulin", out)
}

func TestFiller_Fill_AppliesDefaults(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"dosed.yaml": `template_id: dosed
template: "Take {{dose}} of {{drug}}"
parameters:
  drug:
    type: string
    description: Drug name
    required: true
  dose:
    type: string
    description: Dose amount
    default: one tablet
`,
	})
	filler := NewFiller(store)

	out, err := filler.Fill("dosed", map[string]any{"drug": "aspirin"})
	require.NoError(t, err)
	assert.Equal(t, "Take one tablet of aspirin", out)

	// A supplied value wins over the declared default.
	out, err = filler.Fill("dosed", map[string]any{"drug": "aspirin", "dose": "two tablets"})
	require.NoError(t, err)
	assert.Equal(t, "Take two tablets of aspirin", out)
}

func TestFiller_Missing(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"clinical_summary.yaml": clinicalSummaryYAML,
	})
	filler := NewFiller(store)

	missing, err := filler.Missing("clinical_summary", map[string]any{"condition": "Flu"})
	require.NoError(t, err)
	assert.Equal(t, []string{"level"}, missing)

	missing, err = filler.Missing("clinical_summary", map[string]any{
		"condition": "Flu",
		"level":     "mild",
	})
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = filler.Missing("ghost", nil)
	assert.True(t, IsNotFound(err))
}

func TestFillBody_SinglePass(t *testing.T) {
	// A substituted value containing placeholder syntax is not re-scanned.
	out := FillBody("{{a}} {{b}}", map[string]any{"a": "{{b}}", "b": "two"})
	assert.Equal(t, "{{b}} two", out)
}

func TestFillBody_NonIdentifierBracesLeftAlone(t *testing.T) {
	body := "literal {{ spaced }} and {{not-a-name}} stay, {{real}} goes"
	out := FillBody(body, map[string]any{"spaced": "x", "real": "y"})
	assert.Equal(t, "literal {{ spaced }} and {{not-a-name}} stay, y goes", out)
}

func TestFillBody_Empty(t *testing.T) {
	assert.Equal(t, "", FillBody("", map[string]any{"a": "b"}))
	assert.Equal(t, "no placeholders", FillBody("no placeholders", nil))
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "text", "text"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"float", 3.14, "3.14"},
		{"whole float", 2.0, "2"},
		{"nil", nil, ""},
		{"array", []any{"a", 1, true}, `["a",1,true]`},
		{"object", map[string]any{"b": 2, "a": 1}, `{"a":1,"b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Stringify(tt.value))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	body := "{{first}} then {{second}} then {{first}} again"
	assert.Equal(t, []string{"first", "second"}, Placeholders(body))

	assert.Empty(t, Placeholders("plain text"))
	assert.True(t, HasPlaceholders(body))
	assert.False(t, HasPlaceholders("plain text"))
}

func TestDefinition_Placeholders(t *testing.T) {
	def := &Definition{
		TemplateID: "embed",
		Template:   "Concept: {{concept_name}}\nDescription: {{concept_description}}",
	}
	assert.Equal(t, []string{"concept_name", "concept_description"}, def.Placeholders())
	assert.True(t, def.HasPlaceholder("concept_name"))
	assert.False(t, def.HasPlaceholder("missing"))
}

func TestFill_OutputNeverGainsTokens(t *testing.T) {
	// Escaped-looking sequences in the body survive substitution untouched.
	body := "{{a}}{{a}} tight, spaced {{a}} {{a}}, trailing brace } and { leading"
	out := FillBody(body, map[string]any{"a": "v"})
	assert.Equal(t, "vv tight, spaced v v, trailing brace } and { leading", out)
	assert.False(t, strings.Contains(out, "{{"))
}
