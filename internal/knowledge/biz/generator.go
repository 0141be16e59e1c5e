package biz

import (
	"fmt"
	"strings"

	"github.com/tradementor/tradementor/internal/knowledge/store"
)

// dedupePrefixLen is how many leading characters identify a chunk for
// deduplication. Overlapping chunks from the size splitter share long
// prefixes, so near-duplicates collapse to one context block.
const dedupePrefixLen = 200

// FormatContext builds the labelled context string handed to the model.
// Each block is tagged with its source URL (preferred) or filename and,
// when present, the header trail of the section it came from, so the
// model can cite real references.
func FormatContext(results []*store.SearchResult) string {
	parts := make([]string, 0, len(results))
	seen := make(map[string]struct{}, len(results))

	for _, r := range results {
		sig := contentPrefix(r.Content, dedupePrefixLen)
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}

		label := r.SourceURL
		if label == "" {
			label = r.Filename
		}
		if label == "" {
			label = "unknown"
		}

		headerLine := ""
		if len(r.HeaderPath) > 0 {
			headerLine = fmt.Sprintf("  Section: %s\n", strings.Join(r.HeaderPath, " > "))
		}

		parts = append(parts, fmt.Sprintf("[%s]\n%s%s", label, headerLine, r.Content))
	}
	return strings.Join(parts, "\n\n")
}

// BuildUserPrompt assembles the human message. trade analysis defaults
// to "none" so the template shape is stable.
func BuildUserPrompt(question, tradeAnalysis, context string) string {
	if strings.TrimSpace(tradeAnalysis) == "" {
		tradeAnalysis = "none"
	}
	return fmt.Sprintf("TRADE_ANALYSIS:\n%s\n\nQUESTION:\n%s\n\nCONTEXT:\n%s",
		tradeAnalysis, question, context)
}

func contentPrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
