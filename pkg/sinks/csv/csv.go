// Package csv provides a sink that writes one CSV file per object into a
// directory. The header is taken from the object's first row.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/leapstack-labs/leapfake/pkg/sink"
)

func init() {
	sink.Register("csv", func(logger *slog.Logger) sink.Sink { return New(logger) })
}

// Params are the csv sink settings.
type Params struct {
	// Delimiter is the field separator (default ",").
	Delimiter string `mapstructure:"delimiter"`
}

type objectFile struct {
	file   *os.File
	w      *csv.Writer
	header []string
}

// Sink writes CSV files.
type Sink struct {
	dir    string
	comma  rune
	files  map[string]*objectFile
	logger *slog.Logger
}

// New creates a csv sink.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{logger: logger, comma: ',', files: make(map[string]*objectFile)}
}

// Open creates the output directory (default ".").
func (s *Sink) Open(_ context.Context, cfg sink.Config) error {
	var p Params
	if err := cfg.DecodeParams(&p); err != nil {
		return err
	}
	if p.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(p.Delimiter)
		if size != len(p.Delimiter) {
			return fmt.Errorf("csv delimiter must be a single character, got %q", p.Delimiter)
		}
		s.comma = r
	}

	s.dir = cfg.Path
	if s.dir == "" {
		s.dir = "."
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// WriteRow appends the row to its object's file.
func (s *Sink) WriteRow(_ context.Context, row *core.Row) error {
	of, err := s.fileFor(row)
	if err != nil {
		return err
	}

	record := make([]string, len(of.header))
	record[0] = fmt.Sprint(row.ID())
	values := row.Values()
	for i, name := range row.Fields() {
		col := slices.Index(of.header, name)
		if col < 0 {
			return fmt.Errorf("%s row %d has field %q not in the header of %s.csv", row.Object(), row.ID(), name, row.Object())
		}
		record[col] = csvValue(values[i])
	}
	if err := of.w.Write(record); err != nil {
		return fmt.Errorf("failed to write %s.csv: %w", row.Object(), err)
	}
	return nil
}

func (s *Sink) fileFor(row *core.Row) (*objectFile, error) {
	if of, ok := s.files[row.Object()]; ok {
		return of, nil
	}

	path := filepath.Join(s.dir, row.Object()+".csv")
	f, err := os.Create(path) //nolint:gosec // G304: object names come from the recipe
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	w.Comma = s.comma

	header := append([]string{"id"}, slices.DeleteFunc(row.Fields(), func(n string) bool { return n == "id" })...)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	s.logger.Debug("created csv file", "path", path, "columns", len(header))

	of := &objectFile{file: f, w: w, header: header}
	s.files[row.Object()] = of
	return of, nil
}

// Close flushes and closes every file.
func (s *Sink) Close() error {
	var firstErr error
	for name, of := range s.files {
		of.w.Flush()
		if err := of.w.Error(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to flush %s.csv: %w", name, err)
		}
		if err := of.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.files = make(map[string]*objectFile)
	return firstErr
}

func csvValue(v any) string {
	if ref, ok := v.(core.Reference); ok {
		return fmt.Sprint(ref.ID)
	}
	return core.FormatValue(v)
}
