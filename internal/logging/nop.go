package logging

import (
	"io"
	"log/slog"
)

// NewNopLogger returns a Logger that discards everything. Handy in tests.
func NewNopLogger() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var _ Logger = (*SlogLogger)(nil)
