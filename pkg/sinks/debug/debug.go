// Package debug provides a sink that prints one line per row:
//
//	Person(id=1, name=Alice, age=30)
package debug

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/leapstack-labs/leapfake/pkg/sink"
)

func init() {
	sink.Register("debug", func(logger *slog.Logger) sink.Sink { return New(logger) })
}

// Sink writes rows as text lines.
type Sink struct {
	out    *sink.Stream
	logger *slog.Logger
}

// New creates a debug sink.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{logger: logger}
}

// Open opens the output.
func (s *Sink) Open(_ context.Context, cfg sink.Config) error {
	out, err := sink.OpenStream(cfg)
	if err != nil {
		return err
	}
	s.out = out
	return nil
}

// WriteRow prints the row.
func (s *Sink) WriteRow(_ context.Context, row *core.Row) error {
	if s.out == nil {
		return fmt.Errorf("sink not opened")
	}
	_, err := fmt.Fprintln(s.out, Format(row))
	return err
}

// Close closes the output.
func (s *Sink) Close() error {
	return s.out.Close()
}

// Format renders a row as Object(id=1, field=value, ...).
func Format(row *core.Row) string {
	var sb strings.Builder
	sb.WriteString(row.Object())
	fmt.Fprintf(&sb, "(id=%d", row.ID())
	values := row.Values()
	for i, name := range row.Fields() {
		sb.WriteString(", ")
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(core.FormatValue(values[i]))
	}
	sb.WriteByte(')')
	return sb.String()
}
