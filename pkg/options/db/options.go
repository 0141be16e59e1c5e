// Package db provides relational database configuration options.
package db

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/tradementor/tradementor/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the sqlite database used by the analysis vertical.
type Options struct {
	// Path is the sqlite database file path.
	Path string `json:"path" mapstructure:"path"`

	// LogSQL enables gorm statement logging.
	LogSQL bool `json:"log-sql" mapstructure:"log-sql"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Path: "tradementor.db",
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, options.Join(prefixes...)+"db.path", o.Path, "SQLite database file path.")
	fs.BoolVar(&o.LogSQL, options.Join(prefixes...)+"db.log-sql", o.LogSQL, "Log SQL statements.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Path == "" {
		errs = append(errs, fmt.Errorf("db path is required"))
	}
	return errs
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	return nil
}
