// Package model holds the request, response and persistence types shared
// across services.
package model

// Difficulty levels for answers and prompt narrowing.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
	DifficultyUnknown      = "unknown"
)

// Confidence levels for answers.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// InsufficientContext is the answer text returned when retrieval yields
// nothing usable.
const InsufficientContext = "INSUFFICIENT_CONTEXT"

// PromptOverrides lets a caller reshape the composed system prompt per
// request.
type PromptOverrides struct {
	// Difficulty narrows depth guidance and examples to one level.
	Difficulty string `json:"difficulty,omitempty"`

	// Sections selects a subset of prompt sections; nil keeps all.
	Sections []string `json:"sections,omitempty"`

	// IncludeExamples controls the few-shot examples section.
	IncludeExamples *bool `json:"include_examples,omitempty"`

	// ExtraRules are appended to the base rules before renumbering.
	ExtraRules []string `json:"extra_rules,omitempty"`

	// ExtraInstructions is free-form text appended as its own section.
	ExtraInstructions string `json:"extra_instructions,omitempty"`
}

// WantExamples reports the effective include_examples value (default true).
func (o *PromptOverrides) WantExamples() bool {
	if o == nil || o.IncludeExamples == nil {
		return true
	}
	return *o.IncludeExamples
}

// QueryRequest is the body of /query and /query/sync.
type QueryRequest struct {
	Question        string           `json:"question" binding:"required"`
	TradeAnalysis   string           `json:"trade_analysis"`
	PromptOverrides *PromptOverrides `json:"prompt_overrides,omitempty"`
}

// DeepDiveLink points a learner at source material worth reading next.
type DeepDiveLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// StructuredAnswer is the parsed answer returned by the sync query path.
// The lesson fields past Confidence belong to the extended schema and are
// omitted when the service runs with the minimal schema.
type StructuredAnswer struct {
	Difficulty string   `json:"difficulty"`
	Answer     string   `json:"answer"`
	Confidence string   `json:"confidence"`
	Sources    []string `json:"sources"`

	LessonTitle        string         `json:"lesson_title,omitempty"`
	KeyTakeaway        string         `json:"key_takeaway,omitempty"`
	ReflectionQuestion string         `json:"reflection_question,omitempty"`
	DeepDiveLinks      []DeepDiveLink `json:"deep_dive_links,omitempty"`
	NextTopics         []string       `json:"next_topics,omitempty"`
}

// DefaultAnswer is returned when no index is loaded or retrieval finds
// nothing relevant. The LLM is never consulted for it.
func DefaultAnswer() *StructuredAnswer {
	return &StructuredAnswer{
		Difficulty: DifficultyUnknown,
		Answer:     InsufficientContext,
		Confidence: ConfidenceLow,
		Sources:    []string{},
	}
}

// QuerySubmitResponse acknowledges an async query submission.
type QuerySubmitResponse struct {
	JobID     string `json:"job_id"`
	StreamURL string `json:"stream_url"`
}

// DocumentMeta describes one ingested source file in documents.json.
type DocumentMeta struct {
	Filename       string `json:"filename"`
	SourceURL      string `json:"source_url"`
	SourceCategory string `json:"source_category"`
	CharCount      int    `json:"char_count"`
	ChunkCount     int    `json:"chunk_count"`
}
