package multivarka

import (
	"io"
	"log/slog"
	"os"
)

// Option configures a QueryBuilder
type Option func(*QueryBuilder)

// WithDriver uses driver instead of the one registered for the address scheme
func WithDriver(driver Driver) Option {
	return func(b *QueryBuilder) {
		if driver != nil {
			b.driver = driver
		}
	}
}

// WithLogger sets the structured logger used for connection lifecycle events
func WithLogger(logger *slog.Logger) Option {
	return func(b *QueryBuilder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithDebug enables debug output on stdout
func WithDebug(level DebugLevel) Option {
	return WithDebugContext(&DebugContext{
		Level:       level,
		Writer:      os.Stdout,
		ColorOutput: true,
	})
}

// WithDebugWriter enables uncolored debug output on w
func WithDebugWriter(level DebugLevel, w io.Writer) Option {
	return WithDebugContext(&DebugContext{
		Level:  level,
		Writer: w,
	})
}

// WithDebugContext sets the debug context as is
func WithDebugContext(debug *DebugContext) Option {
	return func(b *QueryBuilder) {
		if debug != nil {
			b.debug = debug
		}
	}
}
