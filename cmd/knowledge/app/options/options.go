// Package options contains flags and options for initializing the
// knowledge server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/tradementor/tradementor/internal/knowledge"
	"github.com/tradementor/tradementor/pkg/app/cliflag"
	cacheopts "github.com/tradementor/tradementor/pkg/options/cache"
	dbopts "github.com/tradementor/tradementor/pkg/options/db"
	httpopts "github.com/tradementor/tradementor/pkg/options/http"
	knowledgeopts "github.com/tradementor/tradementor/pkg/options/knowledge"
	llmopts "github.com/tradementor/tradementor/pkg/options/llm"
	logopts "github.com/tradementor/tradementor/pkg/options/logger"
	vsopts "github.com/tradementor/tradementor/pkg/options/vectorstore"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// KnowledgeOptions contains retrieval and chunking configuration.
	KnowledgeOptions *knowledgeopts.Options `json:"knowledge" mapstructure:"knowledge"`

	// VectorStoreOptions selects and configures the vector store driver.
	VectorStoreOptions *vsopts.Options `json:"vectorstore" mapstructure:"vectorstore"`

	// CacheOptions contains answer cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// DBOptions contains the transaction database configuration.
	DBOptions *dbopts.Options `json:"db" mapstructure:"db"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:        httpopts.NewOptions(),
		LogOptions:         logopts.NewOptions(),
		KnowledgeOptions:   knowledgeopts.NewOptions(),
		VectorStoreOptions: vsopts.NewOptions(),
		CacheOptions:       cacheopts.NewOptions(),
		DBOptions:          dbopts.NewOptions(),
		EmbeddingOptions:   llmopts.NewEmbeddingOptions(),
		ChatOptions:        llmopts.NewChatOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.KnowledgeOptions.AddFlags(fss.FlagSet("knowledge"))
	o.VectorStoreOptions.AddFlags(fss.FlagSet("vectorstore"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.DBOptions.AddFlags(fss.FlagSet("db"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat")
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.LogOptions.Complete(); err != nil {
		return err
	}
	if err := o.KnowledgeOptions.Complete(); err != nil {
		return err
	}
	if err := o.VectorStoreOptions.Complete(); err != nil {
		return err
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return err
	}
	if err := o.DBOptions.Complete(); err != nil {
		return err
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.KnowledgeOptions.Validate()...)
	errs = append(errs, o.VectorStoreOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.DBOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a knowledge.Config based on ServerOptions.
func (o *ServerOptions) Config() *knowledge.Config {
	return &knowledge.Config{
		HTTP:        o.HTTPOptions,
		Knowledge:   o.KnowledgeOptions,
		VectorStore: o.VectorStoreOptions,
		Cache:       o.CacheOptions,
		DB:          o.DBOptions,
		Embedding:   o.EmbeddingOptions,
		Chat:        o.ChatOptions,
	}
}
