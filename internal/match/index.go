package match

import (
	"errors"
	"fmt"

	"entity-harmonizer/internal/diagnostic"
	"entity-harmonizer/internal/registry"
)

var (
	// ErrUnknownAlias is returned by Lookup for names that are not indexed.
	ErrUnknownAlias = errors.New("name is not a known alias")
	// ErrAliasConflict is returned by BuildIndex in strict mode when one
	// alias points at two canonical entities.
	ErrAliasConflict = errors.New("alias maps to more than one canonical name")
)

// Entry is one canonical entity as seen by the ranker: its canonical name
// followed by its aliases. Codes are indexed for lookup but not searched.
type Entry struct {
	Canonical string
	Names     []string
}

// AliasIndex maps every known name, alias and code, case-insensitively,
// to its canonical name. It is built fresh from a registry and never
// mutated afterwards.
type AliasIndex struct {
	keys        map[string]string
	entries     []Entry
	diagnostics diagnostic.Diagnostics
}

// IndexOption configures BuildIndex.
type IndexOption func(*indexConfig)

type indexConfig struct {
	strict bool
}

// WithStrictAliases makes alias collisions a build error instead of a warning.
func WithStrictAliases(strict bool) IndexOption {
	return func(c *indexConfig) {
		c.strict = strict
	}
}

// BuildIndex registers, for every entity in order, its name, its aliases
// and its code. When the same key is registered for two different
// canonical names the last registration wins and an alias_conflict warning
// is recorded.
func BuildIndex(entities []registry.Entity, opts ...IndexOption) (*AliasIndex, error) {
	var cfg indexConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	idx := &AliasIndex{
		keys: make(map[string]string),
	}

	positions := make(map[string]int)

	for i := range entities {
		ent := &entities[i]
		if ent.Name == "" {
			continue
		}

		pos, seen := positions[ent.Name]
		if !seen {
			pos = len(idx.entries)
			positions[ent.Name] = pos
			idx.entries = append(idx.entries, Entry{Canonical: ent.Name})
		}

		idx.register(ent.Name, ent.Name)
		idx.entries[pos].Names = appendUnique(idx.entries[pos].Names, ent.Name)

		for _, alias := range ent.Aliases {
			if alias == "" {
				continue
			}

			idx.register(alias, ent.Name)
			idx.entries[pos].Names = appendUnique(idx.entries[pos].Names, alias)
		}

		if ent.Code != "" {
			idx.register(ent.Code, ent.Name)
		}
	}

	if cfg.strict {
		if conflicts := idx.diagnostics.ByCode("alias_conflict"); len(conflicts) > 0 {
			return nil, fmt.Errorf("%w: %d conflicting aliases, first: %s",
				ErrAliasConflict, len(conflicts), conflicts[0].String())
		}
	}

	return idx, nil
}

func (idx *AliasIndex) register(name, canonical string) {
	key := FoldKey(name)

	if prev, ok := idx.keys[key]; ok && prev != canonical {
		idx.diagnostics.AddWarning("alias_conflict",
			fmt.Sprintf("alias reassigned from %q to %q", prev, canonical),
			canonical, name, prev)
	}

	idx.keys[key] = canonical
}

// Contains reports whether name is a registered name, alias or code.
func (idx *AliasIndex) Contains(name string) bool {
	_, ok := idx.keys[FoldKey(name)]
	return ok
}

// Lookup returns the canonical name for name.
func (idx *AliasIndex) Lookup(name string) (string, error) {
	canonical, ok := idx.keys[FoldKey(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlias, name)
	}

	return canonical, nil
}

// IsCanonical reports whether name is, byte for byte, a canonical name.
func (idx *AliasIndex) IsCanonical(name string) bool {
	canonical, ok := idx.keys[FoldKey(name)]
	return ok && canonical == name
}

// Canonical returns the canonical names in registry order.
func (idx *AliasIndex) Canonical() []string {
	names := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		names[i] = e.Canonical
	}

	return names
}

// Entries returns the searchable entries in registry order.
func (idx *AliasIndex) Entries() []Entry {
	return idx.entries
}

// Len returns the number of indexed keys.
func (idx *AliasIndex) Len() int {
	return len(idx.keys)
}

// Diagnostics returns the warnings collected while building the index.
func (idx *AliasIndex) Diagnostics() diagnostic.Diagnostics {
	return idx.diagnostics
}

func appendUnique(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}

	return append(names, name)
}
