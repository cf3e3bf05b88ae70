// Package lock serializes mutations per workspace and resource kind.
package lock

import (
	"sort"
	"sync"
)

// Kind is a resource kind within a workspace. Kinds are always acquired in
// ascending order.
type Kind int

const (
	Categories Kind = iota
	Ledger
	Receipts
	Budgets
)

func (k Kind) String() string {
	switch k {
	case Categories:
		return "categories"
	case Ledger:
		return "ledger"
	case Receipts:
		return "receipts"
	case Budgets:
		return "budgets"
	}
	return "unknown"
}

type key struct {
	workspace string
	kind      Kind
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// Manager hands out one mutex per (workspace, kind). Entries are dropped
// once nobody holds or waits on them.
type Manager struct {
	mapMu   sync.Mutex
	entries map[key]*entry
}

func NewManager() *Manager {
	return &Manager{entries: make(map[key]*entry)}
}

func (m *Manager) acquire(k key) *entry {
	m.mapMu.Lock()
	e, ok := m.entries[k]
	if !ok {
		e = &entry{}
		m.entries[k] = e
	}
	e.refs++
	m.mapMu.Unlock()
	return e
}

func (m *Manager) release(k key, e *entry) {
	m.mapMu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, k)
	}
	m.mapMu.Unlock()
}

// Lock blocks until every requested kind of workspace is held and returns
// the function that releases them. Duplicate kinds are ignored.
func (m *Manager) Lock(workspace string, kinds ...Kind) (unlock func()) {
	ordered := append([]Kind(nil), kinds...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	held := make([]key, 0, len(ordered))
	locked := make([]*entry, 0, len(ordered))
	for i, k := range ordered {
		if i > 0 && ordered[i-1] == k {
			continue
		}
		kk := key{workspace: workspace, kind: k}
		e := m.acquire(kk)
		e.mu.Lock()
		held = append(held, kk)
		locked = append(locked, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(locked) - 1; i >= 0; i-- {
				locked[i].mu.Unlock()
				m.release(held[i], locked[i])
			}
		})
	}
}

// Len reports the number of live entries.
func (m *Manager) Len() int {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	return len(m.entries)
}
