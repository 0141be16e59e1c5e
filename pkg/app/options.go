package app

// CompletableOptions is an optional interface for options that need completion.
type CompletableOptions interface {
	Complete() error
}

// ValidatableOptions is an optional interface for options that need validation.
type ValidatableOptions interface {
	Validate() error
}

// PrintableOptions is an optional interface for options that can print themselves.
type PrintableOptions interface {
	String() string
}
