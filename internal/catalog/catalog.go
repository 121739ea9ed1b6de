package catalog

import (
	"fmt"
	"sort"
)

// Reserved is the set of source IDs that may never be assigned to a
// backend, since they collide with top-level HTTP routes.
var Reserved = map[string]bool{
	"_": true, "catalog": true, "config": true, "font": true,
	"health": true, "help": true, "index": true, "manifest": true,
	"metrics": true, "refresh": true, "reload": true, "sprite": true,
	"status": true,
}

// entry pairs a Source with whether it came from explicit configuration
// (which takes precedence over auto-discovered sources on ID collision).
type entry struct {
	source     Source
	fromConfig bool
}

// Builder accumulates sources before Build freezes them into a Catalog.
// It is not safe for concurrent use; all registration happens at
// startup on a single goroutine.
type Builder struct {
	order   []string
	byID    map[string]entry
	seenRaw map[string]int // raw desired id -> next suffix
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		byID:    make(map[string]entry),
		seenRaw: make(map[string]int),
	}
}

// Add registers src under its preferred ID, resolving reserved-word and
// duplicate-ID collisions by appending a deterministic numeric suffix
// (".1", ".2", ...) in registration order. fromConfig sources that
// collide with an already-registered auto-discovered source bump the
// auto-discovered one to the next suffix instead of themselves.
func (b *Builder) Add(src Source, fromConfig bool) string {
	id := src.ID()
	id = b.resolve(id, fromConfig)
	b.order = append(b.order, id)
	b.byID[id] = entry{source: src, fromConfig: fromConfig}
	return id
}

func (b *Builder) resolve(want string, fromConfig bool) string {
	if existing, ok := b.byID[want]; ok && !(fromConfig && !existing.fromConfig) {
		return b.nextSuffix(want)
	}
	if Reserved[want] {
		return b.nextSuffix(want)
	}
	if existing, ok := b.byID[want]; ok && fromConfig && !existing.fromConfig {
		// Configuration wins the bare ID; bump the auto-discovered
		// entry that is currently holding it to a suffixed ID.
		displaced := existing
		suffixed := b.nextSuffix(want)
		b.byID[suffixed] = displaced
		for i, id := range b.order {
			if id == want {
				b.order[i] = suffixed
			}
		}
		delete(b.byID, want)
		return want
	}
	return want
}

func (b *Builder) nextSuffix(base string) string {
	for {
		b.seenRaw[base]++
		candidate := fmt.Sprintf("%s.%d", base, b.seenRaw[base])
		if _, taken := b.byID[candidate]; !taken && !Reserved[candidate] {
			return candidate
		}
	}
}

// Build freezes the builder into an immutable Catalog.
func (b *Builder) Build() *Catalog {
	ids := make([]string, len(b.order))
	copy(ids, b.order)
	sort.Strings(ids)

	sources := make(map[string]Source, len(b.byID))
	for id, e := range b.byID {
		sources[id] = e.source
	}
	return &Catalog{ids: ids, sources: sources}
}

// Catalog is the immutable, process-lifetime mapping from SourceId to
// Source built once at startup (§3). Lookup is case-sensitive;
// iteration order is stable but unspecified to clients.
type Catalog struct {
	ids     []string
	sources map[string]Source
}

// Lookup returns the Source registered under id, or (nil, false).
func (c *Catalog) Lookup(id string) (Source, bool) {
	s, ok := c.sources[id]
	return s, ok
}

// IDs returns every registered source ID in stable order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len returns the number of registered sources.
func (c *Catalog) Len() int { return len(c.sources) }
