package standards

import (
	"sort"

	"github.com/dshills/csr/internal/config"
)

// Entry pairs a loaded set with its index.
type Entry struct {
	Set   *Set
	Index *Index
}

// Catalog holds every loaded set. It is read-only after construction.
type Catalog struct {
	entries map[string]*Entry
}

// NewCatalog indexes every set in sets.
func NewCatalog(sets map[string]*Set, cfg config.Retrieval) *Catalog {
	c := &Catalog{entries: make(map[string]*Entry, len(sets))}
	for id, s := range sets {
		c.entries[id] = &Entry{Set: s, Index: NewIndex(s, cfg)}
	}
	return c
}

// Get returns the entry for id.
func (c *Catalog) Get(id string) (*Entry, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.entries[id]
	return e, ok
}

// Len returns the number of loaded sets.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// List returns a summary of every set sorted by id.
func (c *Catalog) List() []Info {
	out := make([]Info, 0, c.Len())
	if c == nil {
		return out
	}
	for _, e := range c.entries {
		out = append(out, e.Set.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
