// Package symbol interns target names into dense integer handles.
//
// A handle is stable for the life of the table and doubles as an index into
// arenas kept by other packages. Handles are never reused.
package symbol

import (
	"fmt"
	"sync"
)

// Handle identifies an interned name. The zero value is a valid handle for
// the first interned name; use Invalid for "no symbol".
type Handle int32

// Invalid is returned by lookups that find nothing.
const Invalid Handle = -1

// Table is a thread-safe interning table.
type Table struct {
	mu    sync.RWMutex
	index map[string]Handle
	names []string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]Handle)}
}

// Intern returns the handle for name, creating it on first use.
func (t *Table) Intern(name string) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.index[name]; ok {
		return h
	}
	h := Handle(len(t.names))
	t.index[name] = h
	t.names = append(t.names, name)
	return h
}

// Lookup returns the handle for name without creating it.
func (t *Table) Lookup(name string) (Handle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.index[name]
	if !ok {
		return Invalid, false
	}
	return h, true
}

// Name returns the string a handle was interned from.
func (t *Table) Name(h Handle) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if h < 0 || int(h) >= len(t.names) {
		return fmt.Sprintf("<invalid symbol %d>", h)
	}
	return t.names[h]
}

// Len reports how many names have been interned.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}
