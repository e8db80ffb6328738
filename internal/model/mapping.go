package model

import (
	"maps"
	"slices"

	"github.com/koustreak/datforge/internal/errs"
)

// NameMapping renames attributes between a referencing relation and the
// relation it references. Names not listed map to themselves.
type NameMapping struct {
	forward  map[string]string
	backward map[string]string
}

// NewNameMapping builds a mapping from source names to target names. Two
// sources renamed to the same target are rejected.
func NewNameMapping(rename map[string]string) (NameMapping, error) {
	m := NameMapping{
		forward:  make(map[string]string, len(rename)),
		backward: make(map[string]string, len(rename)),
	}
	for _, src := range slices.Sorted(maps.Keys(rename)) {
		dst := rename[src]
		if prev, ok := m.backward[dst]; ok {
			return NameMapping{}, errs.Newf(errs.ErrKindSchema,
				"rename mapping sends both %q and %q to %q", prev, src, dst)
		}
		m.forward[src] = dst
		m.backward[dst] = src
	}
	return m, nil
}

// To returns the target-side name for a source attribute.
func (m NameMapping) To(name string) string {
	if dst, ok := m.forward[name]; ok {
		return dst
	}
	return name
}

// From returns the source-side name for a target attribute.
func (m NameMapping) From(name string) string {
	if src, ok := m.backward[name]; ok {
		return src
	}
	return name
}

// Renames returns the explicit renames, source to target.
func (m NameMapping) Renames() map[string]string {
	return maps.Clone(m.forward)
}

// Len is the number of explicit renames.
func (m NameMapping) Len() int {
	return len(m.forward)
}
