package template

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplateFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const clinicalSummaryYAML = `template_id: clinical_summary
name: Clinical Summary
description: Summarizes a patient condition
type: text
template: "Patient has {{condition}} with severity {{level}}"
parameters:
  condition:
    type: string
    description: Diagnosed condition
    required: true
  level:
    type: string
    description: Severity level
    required: true
examples:
  - condition: Hypertension
    level: moderate
`

const conceptGreetingYAML = `template_id: concept_greeting
description: Greets by concept name
template: "Hello {{name}}"
parameters:
  name:
    type: string
    description: Concept name
`

func TestStore_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, "clinical_summary.yaml", clinicalSummaryYAML)
	writeTemplateFile(t, dir, "concept_greeting.yaml", conceptGreetingYAML)

	store := NewStore()
	require.NoError(t, store.LoadDir(dir))

	assert.Equal(t, 2, store.Count())

	def, err := store.Get("clinical_summary")
	require.NoError(t, err)
	assert.Equal(t, "Clinical Summary", def.Name)
	assert.Equal(t, "Summarizes a patient condition", def.Description)
	assert.Equal(t, "text", def.Type)
	assert.Equal(t, "Patient has {{condition}} with severity {{level}}", def.Template)

	require.Contains(t, def.Parameters, "condition")
	assert.Equal(t, ParamString, def.Parameters["condition"].Type)
	assert.True(t, def.Parameters["condition"].Required)

	require.Len(t, def.Examples, 1)
	assert.Equal(t, "Hypertension", def.Examples[0]["condition"])
}

func TestStore_LoadDir_SkipsFileWithoutTemplateID(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, "valid.yaml", conceptGreetingYAML)
	writeTemplateFile(t, dir, "anonymous.yaml", `description: no id here
template: "{{x}}"
`)

	store := NewStore()
	require.NoError(t, store.LoadDir(dir))

	assert.Equal(t, 1, store.Count())
	assert.Equal(t, []string{"concept_greeting"}, store.IDs())
}

func TestStore_LoadDir_SkipsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, "valid.yaml", conceptGreetingYAML)
	writeTemplateFile(t, dir, "broken.yaml", "template_id: [unclosed\n  bad indent: {{{")

	store := NewStore()
	require.NoError(t, store.LoadDir(dir))

	assert.Equal(t, 1, store.Count())

	_, err := store.Get("concept_greeting")
	assert.NoError(t, err)
}

func TestStore_LoadDir_MissingDirectory(t *testing.T) {
	store := NewStore()
	err := store.LoadDir(filepath.Join(t.TempDir(), "does-not-exist"))

	require.NoError(t, err)
	assert.Equal(t, 0, store.Count())
	assert.Empty(t, store.List())
}

func TestStore_LoadDir_Idempotent(t *testing.T) {
	dir1 := t.TempDir()
	writeTemplateFile(t, dir1, "a.yaml", clinicalSummaryYAML)
	writeTemplateFile(t, dir1, "b.yaml", conceptGreetingYAML)

	dir2 := t.TempDir()
	writeTemplateFile(t, dir2, "c.yaml", `template_id: other
template: "{{x}}"
`)

	store := NewStore()
	require.NoError(t, store.LoadDir(dir1))
	require.NoError(t, store.LoadDir(dir2))

	assert.Equal(t, 2, store.Count())
	assert.Equal(t, []string{"clinical_summary", "concept_greeting"}, store.IDs())
	assert.Equal(t, dir1, store.Dir())
}

func TestStore_LoadDir_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, "valid.yaml", conceptGreetingYAML)
	writeTemplateFile(t, dir, "notes.txt", "not a template")
	writeTemplateFile(t, dir, "README.md", "# readme")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	store := NewStore()
	require.NoError(t, store.LoadDir(dir))

	assert.Equal(t, 1, store.Count())
}

func TestStore_LoadDir_JSONTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, "summary.json", `{
  "template_id": "json_summary",
  "description": "JSON-defined template",
  "template": "Value: {{value}}",
  "parameters": {"value": {"type": "number", "description": "A number"}}
}`)

	store := NewStore()
	require.NoError(t, store.LoadDir(dir))

	def, err := store.Get("json_summary")
	require.NoError(t, err)
	assert.Equal(t, "Value: {{value}}", def.Template)
	assert.Equal(t, ParamNumber, def.Parameters["value"].Type)
}

func TestStore_LoadDir_DuplicateIDKeepsLast(t *testing.T) {
	dir := t.TempDir()
	// os.ReadDir yields lexical order, so second.yaml loads after first.yaml.
	writeTemplateFile(t, dir, "first.yaml", `template_id: dup
description: first version
template: one
`)
	writeTemplateFile(t, dir, "second.yaml", `template_id: dup
description: second version
template: two
`)

	store := NewStore()
	require.NoError(t, store.LoadDir(dir))

	assert.Equal(t, 1, store.Count())
	def, err := store.Get("dup")
	require.NoError(t, err)
	assert.Equal(t, "second version", def.Description)
}

func TestStore_Get_NotFound(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.LoadDir(t.TempDir()))

	def, err := store.Get("ghost")
	assert.Nil(t, def)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(err))

	var nfe *NotFoundError
	require.True(t, errors.As(err, &nfe))
	assert.Equal(t, "ghost", nfe.TemplateID)
}

func TestStore_List_SortedByID(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, "z.yaml", "template_id: zebra\ntemplate: z\n")
	writeTemplateFile(t, dir, "a.yaml", "template_id: alpha\ntemplate: a\n")
	writeTemplateFile(t, dir, "m.yaml", "template_id: mid\ntemplate: m\n")

	store := NewStore()
	require.NoError(t, store.LoadDir(dir))

	defs := store.List()
	require.Len(t, defs, 3)
	assert.Equal(t, "alpha", defs[0].TemplateID)
	assert.Equal(t, "mid", defs[1].TemplateID)
	assert.Equal(t, "zebra", defs[2].TemplateID)
}

func TestDefinition_DisplayName(t *testing.T) {
	named := &Definition{TemplateID: "id", Name: "Pretty Name"}
	assert.Equal(t, "Pretty Name", named.DisplayName())

	unnamed := &Definition{TemplateID: "id"}
	assert.Equal(t, "id", unnamed.DisplayName())
}
