// Package knowledge provides knowledge base configuration options.
package knowledge

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/tradementor/tradementor/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Answer schema variants selectable via AnswerSchema.
const (
	SchemaMinimal  = "minimal"
	SchemaExtended = "extended"
)

// Options contains knowledge base configuration shared by the server and
// the ingestion CLI.
type Options struct {
	// ChunkSize is the character bound for a chunk.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the character overlap between adjacent chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the number of chunks returned from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// DataDir is the root directory for source material. HTML documents
	// live under DataDir/html and url_map.json under DataDir.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`

	// IndexDir is the directory holding the persisted vector index and
	// documents.json.
	IndexDir string `json:"index-dir" mapstructure:"index-dir"`

	// AnswerSchema selects the structured answer shape (minimal|extended).
	AnswerSchema string `json:"answer-schema" mapstructure:"answer-schema"`

	// PromptFile optionally overrides the embedded prompt section library.
	// When set, the file is watched and reloaded on change.
	PromptFile string `json:"prompt-file" mapstructure:"prompt-file"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:    800,
		ChunkOverlap: 120,
		TopK:         10,
		EmbeddingDim: 1024,
		DataDir:      "data",
		IndexDir:     "search_index",
		AnswerSchema: SchemaExtended,
	}
}

// AddFlags adds flags for knowledge options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"knowledge.chunk-size", o.ChunkSize, "Character bound for a chunk.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"knowledge.chunk-overlap", o.ChunkOverlap, "Character overlap between adjacent chunks.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"knowledge.top-k", o.TopK, "Number of chunks from similarity search.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"knowledge.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.StringVar(&o.DataDir, options.Join(prefixes...)+"knowledge.data-dir", o.DataDir, "Root directory for source documents.")
	fs.StringVar(&o.IndexDir, options.Join(prefixes...)+"knowledge.index-dir", o.IndexDir, "Directory for the persisted index.")
	fs.StringVar(&o.AnswerSchema, options.Join(prefixes...)+"knowledge.answer-schema", o.AnswerSchema, "Structured answer shape (minimal|extended).")
	fs.StringVar(&o.PromptFile, options.Join(prefixes...)+"knowledge.prompt-file", o.PromptFile, "Optional prompt section library file, watched for changes.")
}

// Validate validates the knowledge options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap must be in [0, chunk-size)"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	if o.AnswerSchema != SchemaMinimal && o.AnswerSchema != SchemaExtended {
		errs = append(errs, fmt.Errorf("answer-schema must be %q or %q", SchemaMinimal, SchemaExtended))
	}
	return errs
}

// Complete completes the knowledge options with defaults.
func (o *Options) Complete() error {
	if o.AnswerSchema == "" {
		o.AnswerSchema = SchemaExtended
	}
	return nil
}
