// Package options contains flags and options for the ingestion CLI.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/tradementor/tradementor/pkg/app/cliflag"
	knowledgeopts "github.com/tradementor/tradementor/pkg/options/knowledge"
	llmopts "github.com/tradementor/tradementor/pkg/options/llm"
	logopts "github.com/tradementor/tradementor/pkg/options/logger"
	vsopts "github.com/tradementor/tradementor/pkg/options/vectorstore"
)

// IngestOptions contains the configuration options for the ingestion run.
type IngestOptions struct {
	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// KnowledgeOptions contains chunking and index location configuration.
	KnowledgeOptions *knowledgeopts.Options `json:"knowledge" mapstructure:"knowledge"`

	// VectorStoreOptions selects and configures the vector store driver.
	VectorStoreOptions *vsopts.Options `json:"vectorstore" mapstructure:"vectorstore"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
}

// NewIngestOptions creates an IngestOptions instance with default values.
func NewIngestOptions() *IngestOptions {
	return &IngestOptions{
		LogOptions:         logopts.NewOptions(),
		KnowledgeOptions:   knowledgeopts.NewOptions(),
		VectorStoreOptions: vsopts.NewOptions(),
		EmbeddingOptions:   llmopts.NewEmbeddingOptions(),
	}
}

// Flags returns flags grouped by section name.
func (o *IngestOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.KnowledgeOptions.AddFlags(fss.FlagSet("knowledge"))
	o.VectorStoreOptions.AddFlags(fss.FlagSet("vectorstore"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	return fss
}

// Complete completes all the required options.
func (o *IngestOptions) Complete() error {
	if err := o.LogOptions.Complete(); err != nil {
		return err
	}
	if err := o.KnowledgeOptions.Complete(); err != nil {
		return err
	}
	if err := o.VectorStoreOptions.Complete(); err != nil {
		return err
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	return nil
}

// Validate checks whether the options in IngestOptions are valid.
func (o *IngestOptions) Validate() error {
	errs := []error{}

	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.KnowledgeOptions.Validate()...)
	errs = append(errs, o.VectorStoreOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}
