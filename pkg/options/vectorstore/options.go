// Package vectorstore provides vector store driver configuration options.
package vectorstore

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/tradementor/tradementor/pkg/options"
	milvusopts "github.com/tradementor/tradementor/pkg/options/milvus"
)

var _ options.IOptions = (*Options)(nil)

// Supported drivers.
const (
	DriverLocal  = "local"
	DriverMilvus = "milvus"
)

// Options selects and configures the vector store driver.
type Options struct {
	// Driver is the store implementation (local|milvus).
	Driver string `json:"driver" mapstructure:"driver"`

	// Collection is the logical collection name.
	Collection string `json:"collection" mapstructure:"collection"`

	// Milvus holds the milvus connection configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Driver:     DriverLocal,
		Collection: "knowledge_chunks",
		Milvus:     milvusopts.NewOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Driver, options.Join(prefixes...)+"vectorstore.driver", o.Driver, "Vector store driver (local|milvus).")
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"vectorstore.collection", o.Collection, "Vector collection name.")

	if o.Milvus == nil {
		o.Milvus = milvusopts.NewOptions()
	}
	o.Milvus.AddFlags(fs, prefixes...)
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Driver {
	case DriverLocal:
	case DriverMilvus:
		errs = append(errs, o.Milvus.Validate()...)
	default:
		errs = append(errs, fmt.Errorf("unknown vectorstore driver %q", o.Driver))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("vectorstore collection is required"))
	}
	return errs
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	if o.Milvus == nil {
		o.Milvus = milvusopts.NewOptions()
	}
	return nil
}
