// Package jsonl provides a sink that writes one JSON object per row.
// Each object carries the row's object name under "_object" and its id,
// followed by the fields in declaration order. References are written as
// the referenced row's id.
package jsonl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/leapstack-labs/leapfake/pkg/sink"
)

func init() {
	sink.Register("jsonl", func(logger *slog.Logger) sink.Sink { return New(logger) })
}

// Sink writes JSON lines.
type Sink struct {
	out    *sink.Stream
	logger *slog.Logger
}

// New creates a JSON lines sink.
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

// WriteRow writes the row as one line.
func (s *Sink) WriteRow(_ context.Context, row *core.Row) error {
	if s.out == nil {
		return fmt.Errorf("sink not opened")
	}
	line, err := Marshal(row)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = s.out.Write(line)
	return err
}

// Close closes the output.
func (s *Sink) Close() error {
	return s.out.Close()
}

// Marshal encodes a row as a JSON object with ordered keys.
func Marshal(row *core.Row) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"_object":`)
	if err := writeJSON(&buf, row.Object()); err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, `,"id":%d`, row.ID())

	values := row.Values()
	for i, name := range row.Fields() {
		if name == "id" || name == "_object" {
			continue
		}
		buf.WriteByte(',')
		if err := writeJSON(&buf, name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, jsonValue(values[i])); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case core.Reference:
		return val.ID
	case time.Time:
		return core.FormatValue(val)
	default:
		return v
	}
}
