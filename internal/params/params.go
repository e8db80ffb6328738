// Package params turns coarse generation settings into per-relation
// instantiation and degeneration specs.
package params

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/koustreak/datforge/internal/instance"
)

// TableParameters configure the generation of one relation.
type TableParameters struct {
	// Count is the total number of rows to generate.
	Count int
	// Given groups fix attribute values for some of the rows.
	Given      []instance.Group
	Projection []string
	// RespectFK defaults to the database setting when nil.
	RespectFK *bool

	// DegenerationPercent of Count is degenerated after instantiation.
	DegenerationPercent int
	RandomSelection     bool
	Selector            instance.Selector
	// FixedAttributes kept by degeneration, the primary key when nil.
	FixedAttributes []string
}

// InstantiationSpec keeps the given groups while their running total stays
// within Count and puts one unconstrained group for the remainder first.
func (p TableParameters) InstantiationSpec() instance.InstantiationSpec {
	var kept []instance.Group
	total := 0
	for _, g := range p.Given {
		if total+g.Count > p.Count {
			break
		}
		total += g.Count
		kept = append(kept, g)
	}
	groups := make([]instance.Group, 0, len(kept)+1)
	if rest := p.Count - total; rest > 0 {
		groups = append(groups, instance.Group{Count: rest})
	}
	groups = append(groups, kept...)
	return instance.InstantiationSpec{
		Groups:     groups,
		Projection: p.Projection,
		RespectFK:  p.RespectFK,
	}
}

// DegenerationCount is floor(Count * DegenerationPercent / 100).
func (p TableParameters) DegenerationCount() int {
	return max(p.Count*p.DegenerationPercent/100, 0)
}

// DegenerationSpec builds the degeneration of DegenerationCount rows. rng is
// only used for random selection and may be nil.
func (p TableParameters) DegenerationSpec(rng *rand.Rand) instance.DegenerationSpec {
	return instance.DegenerationSpec{
		Count:    p.DegenerationCount(),
		Random:   p.RandomSelection,
		Selector: p.Selector,
		Fixed:    p.FixedAttributes,
		Rand:     rng,
	}
}

func (p TableParameters) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d tuples", p.Count)
	if p.Projection == nil {
		b.WriteString(" - using all attributes")
	} else {
		fmt.Fprintf(&b, " - projecting on %s", strings.Join(p.Projection, ","))
	}
	if p.RespectFK != nil {
		fmt.Fprintf(&b, " - respect FK %t", *p.RespectFK)
	}
	fmt.Fprintf(&b, " | degenerating %d%%", p.DegenerationPercent)
	if p.FixedAttributes == nil {
		b.WriteString(" on PK")
	} else {
		fmt.Fprintf(&b, " on %s", strings.Join(p.FixedAttributes, ","))
	}
	if p.RandomSelection {
		b.WriteString(" - randomly selected")
	} else {
		b.WriteString(" - sequentially selected")
	}
	if p.Selector != nil {
		b.WriteString(" - with selector")
	}
	if len(p.Given) > 0 {
		fmt.Fprintf(&b, " | %d given groups", len(p.Given))
	}
	return b.String()
}

// GlobalParameters is one configuration shared by the relations that have
// no TableParameters of their own.
type GlobalParameters struct {
	Count               int
	Projection          []string
	RespectFK           *bool
	DegenerationPercent int
	RandomSelection     bool
	Selector            instance.Selector
	FixedAttributes     []string
}

// Deduce derives the parameters of every relation lacking its own. tables
// holds one entry per relation, nil where none is given. What the explicit
// parameters do not consume of Count and DegenerationPercent, clamped at 0,
// is split evenly with floor division. With no relation lacking parameters
// both shares are 0.
func (g GlobalParameters) Deduce(tables []*TableParameters) TableParameters {
	remainingCount := g.Count
	remainingPercent := g.DegenerationPercent
	missing := 0
	for _, t := range tables {
		if t == nil {
			missing++
			continue
		}
		remainingCount -= t.Count
		remainingPercent -= t.DegenerationPercent
	}

	var count, percent int
	if missing > 0 {
		count = max(remainingCount, 0) / missing
		percent = max(remainingPercent, 0) / missing
	}
	return TableParameters{
		Count:               count,
		Projection:          g.Projection,
		RespectFK:           g.RespectFK,
		DegenerationPercent: percent,
		RandomSelection:     g.RandomSelection,
		Selector:            g.Selector,
		FixedAttributes:     g.FixedAttributes,
	}
}
