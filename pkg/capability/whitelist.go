// Package capability restricts which accessor names expressions may use on
// host objects and built-in values.
//
// Entries are keyed by type name: a HostObject's HostType, or a built-in kind
// name such as "string", "list" or "map". A type may alias other types, in
// which case it inherits their entries; this mirrors supertypes and
// implemented interfaces of the host type.
package capability

import (
	"sort"
	"sync"
)

// Mode selects the getter or setter list.
type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

type entry struct {
	get map[string]bool
	set map[string]bool
}

// Whitelist is a concurrency-safe accessor registry.
type Whitelist struct {
	mu      sync.RWMutex
	entries map[string]*entry
	aliases map[string][]string
}

// New returns an empty whitelist.
func New() *Whitelist {
	return &Whitelist{
		entries: make(map[string]*entry),
		aliases: make(map[string][]string),
	}
}

// Register adds getter and setter names for a type. Repeated calls accumulate.
func (w *Whitelist) Register(typeName string, getters, setters []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entries[typeName]
	if !ok {
		e = &entry{get: make(map[string]bool), set: make(map[string]bool)}
		w.entries[typeName] = e
	}
	for _, name := range getters {
		e.get[name] = true
	}
	for _, name := range setters {
		e.set[name] = true
	}
}

// Alias makes typeName inherit the entries of each parent type.
func (w *Whitelist) Alias(typeName string, parents ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	existing := w.aliases[typeName]
	for _, p := range parents {
		if p == typeName || contains(existing, p) {
			continue
		}
		existing = append(existing, p)
	}
	w.aliases[typeName] = existing
}

// Allowed reports whether name may be used on typeName in the given mode,
// either directly or through an alias chain.
func (w *Whitelist) Allowed(typeName, name string, mode Mode) bool {
	if w == nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	seen := make(map[string]bool)
	queue := []string{typeName}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if seen[t] {
			continue
		}
		seen[t] = true

		if e, ok := w.entries[t]; ok {
			if mode == Write && e.set[name] {
				return true
			}
			if mode == Read && e.get[name] {
				return true
			}
		}
		queue = append(queue, w.aliases[t]...)
	}
	return false
}

// Types returns the registered type names, sorted.
func (w *Whitelist) Types() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]string, 0, len(w.entries))
	for t := range w.entries {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// Aliases returns the direct parents registered for typeName.
func (w *Whitelist) Aliases(typeName string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, len(w.aliases[typeName]))
	copy(out, w.aliases[typeName])
	return out
}

// Names returns the sorted getter or setter names registered directly on typeName.
func (w *Whitelist) Names(typeName string, mode Mode) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	e, ok := w.entries[typeName]
	if !ok {
		return nil
	}
	set := e.get
	if mode == Write {
		set = e.set
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Default returns a whitelist with the intrinsic accessors of built-in kinds.
func Default() *Whitelist {
	w := New()
	w.Register("string", []string{"length"}, nil)
	w.Register("list", []string{"length", "first", "last"}, nil)
	w.Register("map", []string{"length"}, nil)
	return w
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
