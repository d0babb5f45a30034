package core

import "context"

// Sink consumes generated rows. WriteRow is called once per row, in
// generation order, and must not retain or mutate the row's values.
// An error returned from WriteRow halts generation.
type Sink interface {
	WriteRow(ctx context.Context, row *Row) error
	Close() error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, row *Row) error

// WriteRow calls f.
func (f SinkFunc) WriteRow(ctx context.Context, row *Row) error { return f(ctx, row) }

// Close is a no-op.
func (f SinkFunc) Close() error { return nil }
