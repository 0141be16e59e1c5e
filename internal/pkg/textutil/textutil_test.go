package textutil_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradementor/tradementor/internal/pkg/textutil"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2, 3},
			expected: 1.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1, 0, 0},
			b:        []float32{-1, 0, 0},
			expected: -1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1, 0},
			b:        []float32{0, 1},
			expected: 0.0,
		},
		{
			name:     "mismatched lengths",
			a:        []float32{1, 2},
			b:        []float32{1, 2, 3},
			expected: 0.0,
		},
		{
			name:     "zero vector",
			a:        []float32{0, 0, 0},
			b:        []float32{1, 2, 3},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textutil.CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-6)
		})
	}
}

func TestSplitIntoChunks(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		chunkSize int
		overlap   int
		wantLen   int
	}{
		{
			name:      "short text single chunk",
			text:      "hello",
			chunkSize: 10,
			overlap:   2,
			wantLen:   1,
		},
		{
			name:      "exact boundary",
			text:      strings.Repeat("a", 10),
			chunkSize: 10,
			overlap:   2,
			wantLen:   1,
		},
		{
			name:      "two chunks with overlap",
			text:      strings.Repeat("a", 15),
			chunkSize: 10,
			overlap:   2,
			wantLen:   2,
		},
		{
			name:      "invalid chunk size",
			text:      "hello",
			chunkSize: 0,
			overlap:   0,
			wantLen:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := textutil.SplitIntoChunks(tt.text, tt.chunkSize, tt.overlap)
			assert.Len(t, chunks, tt.wantLen)
			for _, chunk := range chunks {
				assert.LessOrEqual(t, len([]rune(chunk)), tt.chunkSize)
			}
		})
	}
}

func TestSplitIntoChunksOverlap(t *testing.T) {
	text := strings.Repeat("x", 800) + strings.Repeat("y", 800)
	chunks := textutil.SplitIntoChunks(text, 800, 120)
	require.GreaterOrEqual(t, len(chunks), 2)

	// Consecutive chunks share the trailing overlap of the previous one
	first := []rune(chunks[0])
	second := []rune(chunks[1])
	assert.Equal(t, string(first[len(first)-120:]), string(second[:120]))
}

func TestSplitByHeaders(t *testing.T) {
	markdown := `intro text

# Options Basics

What an option is.

## Call Options

Calls explained.

### Premiums

Premium details.

## Put Options

Puts explained.

# Risk Management

Position sizing.`

	sections := textutil.SplitByHeaders(markdown, 3)
	require.Len(t, sections, 6)

	assert.Equal(t, "intro text", sections[0].Content)
	assert.Empty(t, sections[0].HeaderPath)

	assert.True(t, strings.HasPrefix(sections[1].Content, "# Options Basics"))
	assert.Equal(t, []string{"Options Basics"}, sections[1].HeaderPath)

	assert.Equal(t, []string{"Options Basics", "Call Options"}, sections[2].HeaderPath)
	assert.Equal(t, []string{"Options Basics", "Call Options", "Premiums"}, sections[3].HeaderPath)

	// Sibling h2 resets the h3 level
	assert.Equal(t, []string{"Options Basics", "Put Options"}, sections[4].HeaderPath)

	// New h1 resets everything
	assert.Equal(t, []string{"Risk Management"}, sections[5].HeaderPath)
}

func TestSplitByHeadersKeepsHeaders(t *testing.T) {
	sections := textutil.SplitByHeaders("# Title\n\nbody", 3)
	require.Len(t, sections, 1)
	assert.Contains(t, sections[0].Content, "# Title")
	assert.Contains(t, sections[0].Content, "body")
}

func TestSplitByHeadersIgnoresDeepLevels(t *testing.T) {
	sections := textutil.SplitByHeaders("# A\n\n#### deep\n\nbody", 3)
	require.Len(t, sections, 1)
	// h4 is not a split point; it stays inside the h1 section
	assert.Contains(t, sections[0].Content, "#### deep")
}

func TestHeaderPathString(t *testing.T) {
	assert.Equal(t, "", textutil.HeaderPathString(nil))
	assert.Equal(t, "A > B", textutil.HeaderPathString([]string{"A", "B"}))
	assert.Equal(t, "B", textutil.HeaderPathString([]string{"", "B"}))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", textutil.TruncateString("hello", 10))
	assert.Equal(t, "he", textutil.TruncateString("hello", 2))
	assert.Equal(t, "日本", textutil.TruncateString("日本語", 2))
}

func TestHashString(t *testing.T) {
	a := textutil.HashString("question one")
	b := textutil.HashString("question two")
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 32)
}
