package dynamicstore

import "github.com/google/uuid"

// Option configures Open.
type Option func(*openOptions)

// openOptions holds configuration options for opening an engine.
type openOptions struct {
	logger       Logger
	withoutForce bool
	storeID      [16]byte
}

// WithLogger sets a custom logger for the engine.
func WithLogger(logger Logger) Option {
	return func(o *openOptions) {
		o.logger = logger
	}
}

// WithoutFormat disables the default behavior of formatting a zero-length
// backing file on Open. Opening a zero-length file with this set returns
// ErrNotFormatted.
func WithoutFormat() Option {
	return func(o *openOptions) {
		o.withoutForce = true
	}
}

// WithStoreID sets the identifier Open stamps into the header when it
// formats a zero-length file, instead of a freshly generated one. It has
// no effect on a file that is already formatted, and a later call to
// Engine.Format stamps a freshly generated identifier regardless.
func WithStoreID(id [16]byte) Option {
	return func(o *openOptions) {
		o.storeID = id
	}
}

func defaultOpenOptions() *openOptions {
	generated := uuid.New()
	var id [16]byte
	copy(id[:], generated[:])
	return &openOptions{
		logger:  NewDefaultLogger(),
		storeID: id,
	}
}
