package prompt_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradementor/tradementor/internal/knowledge/prompt"
)

func mustDefaultLibrary(t *testing.T) *prompt.Library {
	t.Helper()
	lib, err := prompt.DefaultLibrary()
	require.NoError(t, err)
	return lib
}

func TestComposeFullPromptSectionOrder(t *testing.T) {
	lib := mustDefaultLibrary(t)
	out := lib.Compose(prompt.DefaultComposeOptions())

	markers := []string{
		"## Role",
		"## Inputs",
		"## Internal reasoning",
		"## Output format",
		"## Response-depth guidelines",
		"## Tone & style",
		"## Engagement & curriculum rules",
		"## Rules",
		"## Few-shot examples",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(out, m)
		require.GreaterOrEqual(t, idx, 0, "missing section %q", m)
		assert.Greater(t, idx, last, "section %q out of order", m)
		last = idx
	}

	assert.Contains(t, out, prompt.FormatInstructionsPlaceholder)
}

func TestComposeSectionSubset(t *testing.T) {
	lib := mustDefaultLibrary(t)
	out := lib.Compose(prompt.ComposeOptions{
		Sections:        []string{"role", "rules", "output_schema"},
		IncludeExamples: true,
	})

	assert.Contains(t, out, "## Role")
	assert.Contains(t, out, "## Rules")
	assert.Contains(t, out, "## Output format")
	assert.NotContains(t, out, "## Tone & style")
	assert.NotContains(t, out, "## Few-shot examples")
	assert.NotContains(t, out, "## Response-depth guidelines")
}

func TestComposeDifficultyNarrowing(t *testing.T) {
	lib := mustDefaultLibrary(t)
	out := lib.Compose(prompt.ComposeOptions{
		Difficulty:      "beginner",
		IncludeExamples: true,
	})

	assert.Contains(t, out, "| beginner |")
	assert.NotContains(t, out, "| intermediate |")
	assert.NotContains(t, out, "| advanced |")

	assert.Contains(t, out, "### Example — winning CALL, momentum question")
	assert.NotContains(t, out, "### Example — off-library question")
}

func TestComposeUnknownDifficultyKeepsAll(t *testing.T) {
	lib := mustDefaultLibrary(t)
	out := lib.Compose(prompt.ComposeOptions{
		Difficulty:      "expert",
		IncludeExamples: true,
	})

	assert.Contains(t, out, "| beginner |")
	assert.Contains(t, out, "| intermediate |")
	assert.Contains(t, out, "| advanced |")
}

func TestComposeExtraRulesRenumbered(t *testing.T) {
	lib := mustDefaultLibrary(t)
	base := len(lib.Rules)

	out := lib.Compose(prompt.ComposeOptions{
		IncludeExamples: false,
		ExtraRules:      []string{"Respond in Spanish."},
	})

	assert.Contains(t, out, "1. ")
	assert.Contains(t, out, fmt.Sprintf("%d. Respond in Spanish.", base+1))
}

func TestComposeIncludeExamplesOff(t *testing.T) {
	lib := mustDefaultLibrary(t)
	out := lib.Compose(prompt.ComposeOptions{IncludeExamples: false})
	assert.NotContains(t, out, "## Few-shot examples")
}

func TestComposeExampleBracesEscaped(t *testing.T) {
	lib := mustDefaultLibrary(t)
	out := lib.Compose(prompt.DefaultComposeOptions())

	examples := out[strings.Index(out, "## Few-shot examples"):]
	assert.Contains(t, examples, "{{")
	assert.Contains(t, examples, "}}")
	for i := 0; i < len(examples); i++ {
		if examples[i] != '{' {
			continue
		}
		if i+1 < len(examples) && examples[i+1] == '{' {
			i++
			continue
		}
		t.Fatalf("unescaped brace at offset %d", i)
	}
}

func TestRender(t *testing.T) {
	composed := "## Output format\n{format_instructions}\n\n{{\"answer\": \"x\"}}"
	out := prompt.Render(composed, "Respond with JSON.")

	assert.Contains(t, out, "Respond with JSON.")
	assert.Contains(t, out, `{"answer": "x"}`)
	assert.NotContains(t, out, "{format_instructions}")
	assert.NotContains(t, out, "{{")
}

func TestSchemaInstructions(t *testing.T) {
	minimal := prompt.SchemaInstructions("minimal")
	assert.Contains(t, minimal, "difficulty")
	assert.NotContains(t, minimal, "lesson_title")

	extended := prompt.SchemaInstructions("extended")
	assert.Contains(t, extended, "lesson_title")
	assert.Contains(t, extended, "deep_dive_links")
}

func TestManagerOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.json")
	override := `{
		"role": "## Role\nCustom role.",
		"output_schema": "## Output format\n{format_instructions}",
		"rules": ["Only rule."]
	}`
	require.NoError(t, os.WriteFile(path, []byte(override), 0o644))

	m, err := prompt.NewManager(path)
	require.NoError(t, err)

	out := m.Snapshot().Compose(prompt.DefaultComposeOptions())
	assert.Contains(t, out, "Custom role.")
	assert.Contains(t, out, "1. Only rule.")
}

func TestManagerInvalidOverrideFailsStartup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := prompt.NewManager(path)
	assert.Error(t, err)
}

func TestManagerReloadKeepsSnapshotOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.json")
	valid := `{
		"role": "## Role\nFirst.",
		"output_schema": "## Output format\n{format_instructions}",
		"rules": ["r"]
	}`
	require.NoError(t, os.WriteFile(path, []byte(valid), 0o644))

	m, err := prompt.NewManager(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	assert.Error(t, m.Reload())
	assert.Contains(t, m.Snapshot().Role, "First.")
}

func TestManagerWatchPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.json")
	first := `{
		"role": "## Role\nFirst.",
		"output_schema": "## Output format\n{format_instructions}",
		"rules": ["r"]
	}`
	require.NoError(t, os.WriteFile(path, []byte(first), 0o644))

	m, err := prompt.NewManager(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))

	second := strings.Replace(first, "First.", "Second.", 1)
	require.NoError(t, os.WriteFile(path, []byte(second), 0o644))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(m.Snapshot().Role, "Second.") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("watcher did not pick up the change")
}
