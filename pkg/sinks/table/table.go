// Package table provides a sink that renders each object's rows as a text
// table when the run finishes.
package table

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/leapstack-labs/leapfake/pkg/sink"
)

func init() {
	sink.Register("table", func(logger *slog.Logger) sink.Sink { return New(logger) })
}

var styles = map[string]table.Style{
	"light":   table.StyleLight,
	"rounded": table.StyleRounded,
	"double":  table.StyleDouble,
	"default": table.StyleDefault,
}

// Params are the table sink settings.
type Params struct {
	// Style is light (default), rounded, double, default or markdown.
	Style string `mapstructure:"style"`
}

type object struct {
	name    string
	columns []string
	rows    []*core.Row
}

// Sink buffers rows and renders them on Close.
type Sink struct {
	out     *sink.Stream
	style   string
	objects []*object
	logger  *slog.Logger
}

// New creates a table sink.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{logger: logger, style: "light"}
}

// Open validates the style and opens the output.
func (s *Sink) Open(_ context.Context, cfg sink.Config) error {
	var p Params
	if err := cfg.DecodeParams(&p); err != nil {
		return err
	}
	if p.Style != "" {
		if _, ok := styles[p.Style]; !ok && p.Style != "markdown" {
			return fmt.Errorf("unknown table style %q", p.Style)
		}
		s.style = p.Style
	}

	out, err := sink.OpenStream(cfg)
	if err != nil {
		return err
	}
	s.out = out
	return nil
}

// WriteRow buffers the row under its object.
func (s *Sink) WriteRow(_ context.Context, row *core.Row) error {
	if s.out == nil {
		return fmt.Errorf("sink not opened")
	}

	idx := slices.IndexFunc(s.objects, func(o *object) bool { return o.name == row.Object() })
	if idx < 0 {
		s.objects = append(s.objects, &object{name: row.Object(), columns: []string{"id"}})
		idx = len(s.objects) - 1
	}
	obj := s.objects[idx]
	for _, f := range row.Fields() {
		if !slices.Contains(obj.columns, f) {
			obj.columns = append(obj.columns, f)
		}
	}
	obj.rows = append(obj.rows, row)
	return nil
}

// Close renders every object's table and closes the output.
func (s *Sink) Close() error {
	if s.out == nil {
		return nil
	}
	for _, obj := range s.objects {
		s.render(obj)
	}
	s.logger.Debug("rendered tables", "objects", len(s.objects))
	s.objects = nil
	return s.out.Close()
}

func (s *Sink) render(obj *object) {
	t := table.NewWriter()
	t.SetOutputMirror(s.out)
	t.SetTitle(obj.name)

	header := make(table.Row, len(obj.columns))
	for i, c := range obj.columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, row := range obj.rows {
		r := make(table.Row, len(obj.columns))
		r[0] = row.ID()
		for i, c := range obj.columns[1:] {
			if v, ok := row.Get(c); ok {
				r[i+1] = core.FormatValue(v)
			}
		}
		t.AppendRow(r)
	}

	if s.style == "markdown" {
		t.RenderMarkdown()
	} else {
		t.SetStyle(styles[s.style])
		t.Render()
	}
	_, _ = fmt.Fprintf(s.out, "(%d rows)\n", len(obj.rows))
}
