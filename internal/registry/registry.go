// Package registry records generated rows so later declarations can refer
// to them by object name or nickname.
package registry

import (
	"sort"
	"sync"

	"github.com/leapstack-labs/leapfake/pkg/core"
)

// Rows maps object names and nicknames to the rows generated so far.
type Rows struct {
	mu sync.RWMutex

	// byObject holds every row per object type in generation order: "Person" → [...]
	byObject map[string][]*core.Row

	// byNickname maps a nickname to the rows generated under it: "boss" → [...]
	// Nickname rows are also listed under their object type.
	byNickname map[string][]*core.Row

	// nextID is the last ID handed out per object type.
	nextID map[string]int64
}

// NewRows creates an empty registry.
func NewRows() *Rows {
	return &Rows{
		byObject:   make(map[string][]*core.Row),
		byNickname: make(map[string][]*core.Row),
		nextID:     make(map[string]int64),
	}
}

// NextID reserves the next sequential ID for an object type, starting at 1.
func (r *Rows) NextID(object string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID[object]++
	return r.nextID[object]
}

// Add records a row under its object type and, when set, its nickname.
func (r *Rows) Add(row *core.Row, nickname string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byObject[row.Object()] = append(r.byObject[row.Object()], row)
	if nickname != "" {
		r.byNickname[nickname] = append(r.byNickname[nickname], row)
	}
}

// Latest returns the most recent row for a nickname or object name.
// Nicknames win over object names.
func (r *Rows) Latest(name string) (*core.Row, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.lookup(name)
	if len(rows) == 0 {
		return nil, false
	}
	return rows[len(rows)-1], true
}

// All returns a copy of the rows registered under a nickname or object name.
func (r *Rows) All(name string) []*core.Row {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.lookup(name)
	result := make([]*core.Row, len(rows))
	copy(result, rows)
	return result
}

// Count returns how many rows exist for a nickname or object name.
func (r *Rows) Count(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lookup(name))
}

// Has reports whether name is a known object type or nickname, even if no
// rows have been generated under it yet.
func (r *Rows) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, isNick := r.byNickname[name]
	_, isObject := r.nextID[name]
	return isNick || isObject
}

// Lookup resolves a reference to its row.
func (r *Rows) Lookup(ref core.Reference) (*core.Row, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.byObject[ref.Object]
	// IDs are sequential from 1 and rows are appended in ID order.
	if i := int(ref.ID) - 1; i >= 0 && i < len(rows) && rows[i].ID() == ref.ID {
		return rows[i], true
	}
	for _, row := range rows {
		if row.ID() == ref.ID {
			return row, true
		}
	}
	return nil, false
}

// Counts returns the number of rows per object type.
func (r *Rows) Counts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]int, len(r.byObject))
	for name, rows := range r.byObject {
		result[name] = len(rows)
	}
	return result
}

// Objects returns the object types that have rows, sorted by name.
func (r *Rows) Objects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byObject))
	for name := range r.byObject {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Rows) lookup(name string) []*core.Row {
	if rows, ok := r.byNickname[name]; ok {
		return rows
	}
	return r.byObject[name]
}
