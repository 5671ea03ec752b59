// Package catalog holds the named transforms configured for the service.
package catalog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/star/skyrot/internal/transform"
)

// ErrNotFound is returned by Get for an unknown name.
var ErrNotFound = errors.New("transform not found")

// Entry is a named, built transform.
type Entry struct {
	Name      string
	Transform transform.Transform
}

// Spec returns the entry's description including its name.
func (e Entry) Spec() transform.Spec {
	s := e.Transform.Spec()
	s.Name = e.Name
	return s
}

// Catalog is an immutable set of named transforms. Safe for concurrent reads.
type Catalog struct {
	entries map[string]Entry
	names   []string
}

// New builds every spec. It fails on an empty or duplicate name or on the
// first spec that does not build.
func New(specs []transform.Spec) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]Entry, len(specs))}
	for i, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("transform %d: %w: name is required", i, transform.ErrInvalidParameter)
		}
		if _, ok := c.entries[s.Name]; ok {
			return nil, fmt.Errorf("transform %q: %w: duplicate name", s.Name, transform.ErrInvalidParameter)
		}
		t, err := transform.Build(s)
		if err != nil {
			return nil, fmt.Errorf("transform %q: %w", s.Name, err)
		}
		c.entries[s.Name] = Entry{Name: s.Name, Transform: t}
		c.names = append(c.names, s.Name)
	}
	slices.Sort(c.names)
	return c, nil
}

// Get returns the entry with the given name.
func (c *Catalog) Get(name string) (Entry, error) {
	e, ok := c.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e, nil
}

// Names returns all entry names, sorted.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Entries returns all entries sorted by name.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.entries[n])
	}
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.names)
}
