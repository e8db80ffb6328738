package instance

import (
	"math/rand/v2"

	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/generator"
	"github.com/koustreak/datforge/internal/model"
)

// Selector picks the stored rows eligible for degeneration.
type Selector func(Tuple) bool

// DegenerationSpec describes which rows to regenerate and what to keep.
type DegenerationSpec struct {
	Count    int
	Random   bool
	Selector Selector
	// Fixed lists the attributes copied from the original row. Nil means
	// the primary key.
	Fixed []string
	// Rand shuffles candidates when Random is set. Nil means a source
	// seeded from the relation name.
	Rand *rand.Rand
}

// SelectIndices returns exactly count row positions whenever at least one
// candidate exists, and none otherwise. Candidates are all positions,
// shuffled when random is set, filtered by selector. When fewer than count
// candidates exist the selection is repeated cyclically until it reaches
// count, so a row may be picked several times.
func (i *Instance) SelectIndices(count int, selector Selector, random bool, rng *rand.Rand) []int {
	if count <= 0 || len(i.tuples) == 0 {
		return nil
	}
	candidates := make([]int, len(i.tuples))
	for p := range candidates {
		candidates[p] = p
	}
	if random {
		if rng == nil {
			rng = i.defaultRand()
		}
		rng.Shuffle(len(candidates), func(a, b int) { candidates[a], candidates[b] = candidates[b], candidates[a] })
	}

	selected := make([]int, 0, count)
	for _, p := range candidates {
		if len(selected) == count {
			break
		}
		if selector == nil || selector(i.tuples[p]) {
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		return nil
	}
	base := len(selected)
	for n := 0; len(selected) < count; n++ {
		selected = append(selected, selected[n%base])
	}
	return selected
}

func (i *Instance) defaultRand() *rand.Rand {
	seed := generator.SeedFor(i.Name())
	return rand.New(rand.NewPCG(seed, seed>>1))
}

// DegenerateAt forges a new row for each index, keeping the fixed attributes
// of the original row (its primary key when fixed is nil) and regenerating
// the rest. New rows may collide on key and are stored as degenerated. The
// returned obligations come from their foreign keys.
func (i *Instance) DegenerateAt(indices []int, fixed []string) (*Obligations, error) {
	if fixed == nil {
		fixed = i.schema.PrimaryKey()
	}
	givens := make([]model.Values, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(i.tuples) {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "no tuple at index %d in %s", idx, i.Name())
		}
		row := i.tuples[idx].Values
		given := make(model.Values, len(fixed))
		for _, n := range fixed {
			if p, ok := i.position[n]; ok {
				given[n] = row[p]
			}
		}
		givens = append(givens, given)
	}
	return i.GenerateAndFeed(givens, false, true, false)
}

// Degenerate selects rows as spec says and degenerates them.
func (i *Instance) Degenerate(spec DegenerationSpec) (*Obligations, error) {
	indices := i.SelectIndices(spec.Count, spec.Selector, spec.Random, spec.Rand)
	return i.DegenerateAt(indices, spec.Fixed)
}
