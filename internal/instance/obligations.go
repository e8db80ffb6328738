package instance

import (
	"github.com/koustreak/datforge/internal/model"
)

// Obligations collects the partial tuples that referenced relations must
// contain, grouped by target relation name in first-seen order. Partials
// for the same target are concatenated, never deduplicated.
type Obligations struct {
	order    []string
	byTarget map[string][]model.Values
}

func NewObligations() *Obligations {
	return &Obligations{byTarget: make(map[string][]model.Values)}
}

// Add appends partials owed to target.
func (o *Obligations) Add(target string, partials ...model.Values) {
	if len(partials) == 0 {
		return
	}
	if _, ok := o.byTarget[target]; !ok {
		o.order = append(o.order, target)
	}
	o.byTarget[target] = append(o.byTarget[target], partials...)
}

// Merge appends every obligation of other. A nil other is a no-op.
func (o *Obligations) Merge(other *Obligations) {
	if other == nil {
		return
	}
	for _, t := range other.order {
		o.Add(t, other.byTarget[t]...)
	}
}

// Targets returns the target names in first-seen order.
func (o *Obligations) Targets() []string {
	return append([]string(nil), o.order...)
}

// For returns the partials owed to target.
func (o *Obligations) For(target string) []model.Values {
	return o.byTarget[target]
}

// Len is the total number of partial tuples across all targets.
func (o *Obligations) Len() int {
	n := 0
	for _, p := range o.byTarget {
		n += len(p)
	}
	return n
}

func (o *Obligations) Empty() bool {
	return len(o.order) == 0
}
