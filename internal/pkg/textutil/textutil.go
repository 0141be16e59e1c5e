// Package textutil provides text processing helpers for the knowledge base.
package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// CosineSimilarity computes the cosine similarity of two vectors.
// The result is in [-1, 1]; mismatched or empty vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// HashString returns the hex MD5 digest of s.
func HashString(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TruncateString truncates s to at most maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// SplitIntoChunks splits text into overlapping chunks of at most
// chunkSize Unicode characters with the given overlap.
func SplitIntoChunks(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	step := chunkSize - overlap

	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// Section is a markdown region delimited by headers.
type Section struct {
	// Content includes the header line itself.
	Content string
	// HeaderPath holds the header values active at this point, outermost
	// first. Empty for content before the first header.
	HeaderPath []string
}

// HeaderPathString renders a header path as "h1 > h2 > h3", skipping
// levels that were never seen.
func HeaderPathString(path []string) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " > ")
}

var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

// SplitByHeaders splits markdown into sections on ATX headers up to
// maxLevel. Headers stay in the section content; each section carries
// the path of headers governing it.
func SplitByHeaders(markdown string, maxLevel int) []Section {
	if maxLevel <= 0 || maxLevel > 6 {
		maxLevel = 3
	}

	var sections []Section
	path := make([]string, 0, maxLevel)
	var current []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(current, "\n"))
		if content != "" {
			sections = append(sections, Section{
				Content:    content,
				HeaderPath: append([]string(nil), path...),
			})
		}
		current = current[:0]
	}

	for _, line := range strings.Split(markdown, "\n") {
		m := headerRegex.FindStringSubmatch(line)
		if m != nil && len(m[1]) <= maxLevel {
			flush()
			level := len(m[1])
			if level <= len(path) {
				path = path[:level-1]
			}
			for len(path) < level-1 {
				path = append(path, "")
			}
			path = append(path, m[2])
			current = append(current, line)
			continue
		}
		current = append(current, line)
	}
	flush()

	return sections
}
