// Package state records generation runs in a SQLite database so that a
// previous run's seed can be looked up and replayed.
package state

import "github.com/leapstack-labs/leapfake/pkg/core"

var _ core.Store = (*SQLiteStore)(nil)

// DefaultPath is the state database used when none is configured.
const DefaultPath = ".leapfake/state.db"
