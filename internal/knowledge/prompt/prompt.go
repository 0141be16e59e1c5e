// Package prompt assembles the system prompt for the knowledge
// assistant from a section library that upstream callers can tailor
// per request.
package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Section names, in composition order.
const (
	SectionRole              = "role"
	SectionInputs            = "inputs"
	SectionReasoning         = "reasoning"
	SectionOutputSchema      = "output_schema"
	SectionResponseDepth     = "response_depth"
	SectionTone              = "tone"
	SectionEngagement        = "engagement"
	SectionRules             = "rules"
	SectionExamples          = "examples"
	SectionExtraInstructions = "extra_instructions"
)

// FormatInstructionsPlaceholder is kept literal in the composed prompt
// and substituted via Render once the answer schema is known.
const FormatInstructionsPlaceholder = "{format_instructions}"

// difficultyOrder fixes the row order of the response-depth table.
var difficultyOrder = []string{"beginner", "intermediate", "advanced"}

// DepthRow is one row of the response-depth table.
type DepthRow struct {
	TargetLength string `json:"target_length"`
	Style        string `json:"style"`
}

// Example is a few-shot example attached to the prompt.
type Example struct {
	Label          string          `json:"label"`
	Difficulty     string          `json:"difficulty"`
	TradeAnalysis  string          `json:"trade_analysis"`
	Question       string          `json:"question"`
	Context        string          `json:"context"`
	ExpectedOutput json.RawMessage `json:"expected_output"`
}

// Library holds the prompt section contents loaded from JSON.
type Library struct {
	Role          string              `json:"role"`
	Inputs        string              `json:"inputs"`
	Reasoning     []string            `json:"reasoning"`
	OutputSchema  string              `json:"output_schema"`
	ResponseDepth map[string]DepthRow `json:"response_depth"`
	Tone          []string            `json:"tone"`
	Engagement    []string            `json:"engagement"`
	Rules         []string            `json:"rules"`
	Examples      []Example           `json:"examples"`
}

// Validate rejects libraries missing the load-bearing sections.
func (l *Library) Validate() error {
	if strings.TrimSpace(l.Role) == "" {
		return fmt.Errorf("prompt library: role section is empty")
	}
	if strings.TrimSpace(l.OutputSchema) == "" {
		return fmt.Errorf("prompt library: output_schema section is empty")
	}
	if len(l.Rules) == 0 {
		return fmt.Errorf("prompt library: rules section is empty")
	}
	return nil
}

// ComposeOptions are the per-request knobs for prompt assembly.
type ComposeOptions struct {
	// Sections restricts which sections are included. Empty means all.
	Sections []string
	// Difficulty narrows the response-depth table and the examples to
	// one level. Unknown values keep everything.
	Difficulty string
	// IncludeExamples toggles the few-shot examples section.
	IncludeExamples bool
	// ExtraRules are appended after the base rules before renumbering.
	ExtraRules []string
	// ExtraInstructions is free-form text appended at the very end.
	ExtraInstructions string
}

// DefaultComposeOptions returns the full-prompt configuration.
func DefaultComposeOptions() ComposeOptions {
	return ComposeOptions{IncludeExamples: true}
}

func (o *ComposeOptions) wants(section string) bool {
	if len(o.Sections) == 0 {
		return true
	}
	for _, s := range o.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// Compose assembles the system prompt. Output is deterministic for a
// given library and options, and still contains the literal
// {format_instructions} placeholder.
func (l *Library) Compose(opts ComposeOptions) string {
	var parts []string

	if opts.wants(SectionRole) && l.Role != "" {
		parts = append(parts, l.Role)
	}

	if opts.wants(SectionInputs) && l.Inputs != "" {
		parts = append(parts, l.Inputs)
	}

	if opts.wants(SectionReasoning) && len(l.Reasoning) > 0 {
		parts = append(parts,
			"## Internal reasoning (do NOT output — perform silently before answering)\n"+
				strings.Join(l.Reasoning, "\n"))
	}

	if opts.wants(SectionOutputSchema) && l.OutputSchema != "" {
		parts = append(parts, l.OutputSchema)
	}

	if opts.wants(SectionResponseDepth) && len(l.ResponseDepth) > 0 {
		parts = append(parts, l.composeResponseDepth(opts.Difficulty))
	}

	if opts.wants(SectionTone) && len(l.Tone) > 0 {
		parts = append(parts,
			"## Tone & style (be a coach, not a textbook)\n"+bulleted(l.Tone))
	}

	if opts.wants(SectionEngagement) && len(l.Engagement) > 0 {
		parts = append(parts,
			"## Engagement & curriculum rules (make learning stick)\n"+bulleted(l.Engagement))
	}

	if opts.wants(SectionRules) && len(l.Rules) > 0 {
		rules := make([]string, 0, len(l.Rules)+len(opts.ExtraRules))
		rules = append(rules, l.Rules...)
		rules = append(rules, opts.ExtraRules...)
		numbered := make([]string, len(rules))
		for i, r := range rules {
			numbered[i] = fmt.Sprintf("%d. %s", i+1, r)
		}
		parts = append(parts, "## Rules\n"+strings.Join(numbered, "\n"))
	}

	if opts.IncludeExamples && opts.wants(SectionExamples) {
		if block := l.composeExamples(opts.Difficulty); block != "" {
			parts = append(parts, block)
		}
	}

	if opts.ExtraInstructions != "" {
		parts = append(parts, opts.ExtraInstructions)
	}

	return strings.Join(parts, "\n\n")
}

func (l *Library) composeResponseDepth(difficulty string) string {
	var b strings.Builder
	b.WriteString("## Response-depth guidelines\n\n")
	b.WriteString("| Difficulty | Target length | Style |\n")
	b.WriteString("|------------|---------------|-------|\n")

	if row, ok := l.ResponseDepth[difficulty]; ok {
		fmt.Fprintf(&b, "| %s | %s | %s |", difficulty, row.TargetLength, row.Style)
		return b.String()
	}

	rows := make([]string, 0, len(l.ResponseDepth))
	for _, level := range depthLevels(l.ResponseDepth) {
		row := l.ResponseDepth[level]
		rows = append(rows, fmt.Sprintf("| %s | %s | %s |", level, row.TargetLength, row.Style))
	}
	b.WriteString(strings.Join(rows, "\n"))
	return b.String()
}

func (l *Library) composeExamples(difficulty string) string {
	examples := l.Examples
	if difficulty != "" {
		filtered := make([]Example, 0, len(examples))
		for _, ex := range examples {
			if ex.Difficulty == difficulty {
				filtered = append(filtered, ex)
			}
		}
		examples = filtered
	}
	if len(examples) == 0 {
		return ""
	}

	parts := []string{"## Few-shot examples"}
	for _, ex := range examples {
		parts = append(parts, fmt.Sprintf("\n### Example — %s", ex.Label))
		parts = append(parts, fmt.Sprintf("TRADE_ANALYSIS: %s", ex.TradeAnalysis))
		parts = append(parts, fmt.Sprintf("QUESTION: %s", ex.Question))
		parts = append(parts, fmt.Sprintf("CONTEXT:\n%s", ex.Context))
		parts = append(parts, escapeBraces(strings.TrimSpace(string(ex.ExpectedOutput))))
	}
	return strings.Join(parts, "\n")
}

// depthLevels returns the known difficulty levels in fixed order,
// followed by any extra levels sorted by name.
func depthLevels(depth map[string]DepthRow) []string {
	levels := make([]string, 0, len(depth))
	seen := make(map[string]bool, len(depth))
	for _, level := range difficultyOrder {
		if _, ok := depth[level]; ok {
			levels = append(levels, level)
			seen[level] = true
		}
	}
	extras := make([]string, 0)
	for level := range depth {
		if !seen[level] {
			extras = append(extras, level)
		}
	}
	sort.Strings(extras)
	return append(levels, extras...)
}

func bulleted(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// escapeBraces doubles JSON braces so the composed prompt stays a
// valid template until Render substitutes the placeholder.
func escapeBraces(s string) string {
	s = strings.ReplaceAll(s, "{", "{{")
	return strings.ReplaceAll(s, "}", "}}")
}

// Render substitutes {format_instructions} and unescapes the doubled
// braces, yielding the final system prompt sent to the model.
func Render(composed, formatInstructions string) string {
	out := strings.ReplaceAll(composed, FormatInstructionsPlaceholder, formatInstructions)
	out = strings.ReplaceAll(out, "{{", "{")
	return strings.ReplaceAll(out, "}}", "}")
}

// SchemaInstructions describes the expected answer JSON for the
// configured schema. schema is "minimal" or "extended"; anything else
// falls back to extended.
func SchemaInstructions(schema string) string {
	if schema == "minimal" {
		return "Respond with a single JSON object and nothing else. Keys:\n" +
			"- difficulty: \"beginner\" | \"intermediate\" | \"advanced\" | \"unknown\"\n" +
			"- answer: the educational content, or \"INSUFFICIENT_CONTEXT\" when the context does not cover the question\n" +
			"- confidence: \"high\" | \"medium\" | \"low\", based on context coverage\n" +
			"- sources: list of source URLs (or filenames when no URL is available)"
	}
	return "Respond with a single JSON object and nothing else. Keys:\n" +
		"- difficulty: \"beginner\" | \"intermediate\" | \"advanced\" | \"unknown\"\n" +
		"- lesson_title: a short, catchy title for this lesson\n" +
		"- answer: the main educational content anchored to the trader's own trade, or \"INSUFFICIENT_CONTEXT\" when the context does not cover the question\n" +
		"- key_takeaway: one memorable sentence the trader should remember\n" +
		"- reflection_question: an interactive question that makes the trader think\n" +
		"- deep_dive_links: list of {title, url} objects taken from CONTEXT for further reading\n" +
		"- next_topics: 2-3 suggested follow-up topics building on this lesson\n" +
		"- confidence: \"high\" | \"medium\" | \"low\", based on context coverage\n" +
		"- sources: list of source URLs (or filenames when no URL is available)"
}
