// Package generator provides the value generators attached to attributes.
//
// A Generator is one of two shapes, fixed when it is built:
//
//   - a Sequence (KindSequence): a stateful cursor advanced on every call,
//     blind to the tuple being forged (counters, seeded random draws, word
//     lists);
//   - a Func (KindContext): a function of the attribute values already
//     resolved for the current tuple.
//
// Every produced value is normalised to text. Generators are never shared
// between relation instances: instances work on Clone()s and Reset() them.
package generator

import (
	"fmt"
	"hash/fnv"
	"maps"

	"github.com/spf13/cast"
)

// Values maps attribute names to their textual values.
type Values map[string]string

// Kind selects how a Generator produces values.
type Kind int

const (
	KindSequence Kind = iota
	KindContext
)

func (k Kind) String() string {
	if k == KindContext {
		return "context"
	}
	return "sequence"
}

// Sequence is a stateful source of successive values.
type Sequence interface {
	// Next advances the cursor and returns the value it lands on.
	Next() any
	// Reset rewinds the cursor to its initial state.
	Reset()
	// Clone returns an independent copy with the same configuration.
	Clone() Sequence
}

// Func computes a value from the attribute values already resolved for the
// tuple. It must not rely on mutating values.
type Func func(values Values) any

// Generator is the tagged union of a Sequence and a Func.
type Generator struct {
	kind Kind
	seq  Sequence
	fn   Func
}

// FromSequence wraps a stateful sequence.
func FromSequence(s Sequence) *Generator {
	return &Generator{kind: KindSequence, seq: s}
}

// FromFunc wraps a context function.
func FromFunc(fn Func) *Generator {
	return &Generator{kind: KindContext, fn: fn}
}

// Kind reports which shape the generator has.
func (g *Generator) Kind() Kind {
	return g.kind
}

// Advance moves a sequence generator forward. ok is false for context
// generators, which have no cursor.
func (g *Generator) Advance() (value string, ok bool) {
	if g.kind != KindSequence {
		return "", false
	}
	return normalize(g.seq.Next()), true
}

// Evaluate runs a context generator over a copy of values. Sequence
// generators ignore the context and advance instead.
func (g *Generator) Evaluate(values Values) string {
	if g.kind == KindSequence {
		v, _ := g.Advance()
		return v
	}
	return normalize(g.fn(maps.Clone(values)))
}

// Value resolves one value: sequences advance, functions evaluate.
func (g *Generator) Value(values Values) string {
	if v, ok := g.Advance(); ok {
		return v
	}
	return g.Evaluate(values)
}

// Reset restores the initial state. Context generators are stateless.
func (g *Generator) Reset() {
	if g.kind == KindSequence {
		g.seq.Reset()
	}
}

// Clone returns a generator with independent state, reset to its start.
func (g *Generator) Clone() *Generator {
	if g.kind == KindSequence {
		s := g.seq.Clone()
		s.Reset()
		return FromSequence(s)
	}
	return FromFunc(g.fn)
}

func normalize(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

// SeedFor derives a stable seed from a name so that default random
// generators of different attributes do not draw identical streams.
func SeedFor(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}
