package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Stream is the output of a text sink: a file when Config.Path is set,
// otherwise Config.Writer or stdout.
type Stream struct {
	io.Writer
	file *os.File
}

// OpenStream opens the output for cfg.
func OpenStream(cfg Config) (*Stream, error) {
	if cfg.Path == "" {
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		return &Stream{Writer: w}, nil
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(cfg.Path) //nolint:gosec // G304: output path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &Stream{Writer: f, file: f}, nil
}

// Close closes the output file, if any.
func (s *Stream) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}
