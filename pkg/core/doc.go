// Package core defines the shared language of the leapfake system.
//
// This package contains:
//   - Located recipe errors (Error, ErrSyntax, ErrName, ErrDataGen)
//   - Generated rows (Row, Reference)
//   - Service interfaces (Sink, Store)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
