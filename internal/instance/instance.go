// Package instance materialises tuples of one relation.
//
// An Instance stores rows laid out along a fixed projection, each tagged
// with its provenance: regularly generated, fed to satisfy a foreign key of
// another relation, degenerated, or both of the last two. It forges new rows
// through a private copy of the relation so its generators start fresh and
// are never shared with another instance.
package instance

import (
	"slices"
	"strings"

	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/model"
)

// Tuple is one stored row.
type Tuple struct {
	Values         []string
	FromConstraint bool
	Degenerated    bool
}

// Instance is the materialised content of one relation.
type Instance struct {
	schema     *model.Relation
	projection []string
	position   map[string]int
	keyPos     []int
	respectFK  bool

	tuples []Tuple
	keys   map[string]struct{}
	// lookups indexes stored rows by the values of some attribute subset,
	// keyed by that subset's signature. Built on first use.
	lookups map[string]*lookup

	generated   int
	constrained int
	degenerated int
}

type lookup struct {
	pos  []int
	seen map[string]struct{}
}

// New creates an empty instance over a private copy of rel. A nil
// projection means rel's default projection.
func New(rel *model.Relation, projection []string) (*Instance, error) {
	if rel == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "instance of a nil relation")
	}
	schema := rel.Clone()
	schema.ResetGenerators()

	if projection == nil {
		projection = schema.DefaultProjection()
	}
	inst := &Instance{
		schema:     schema,
		projection: slices.Clone(projection),
		position:   make(map[string]int, len(projection)),
		respectFK:  true,
		keys:       make(map[string]struct{}),
		lookups:    make(map[string]*lookup),
	}
	for i, n := range projection {
		if _, dup := inst.position[n]; dup {
			return nil, errs.Newf(errs.ErrKindSchema, "projection of %s lists %q twice", rel.Name(), n)
		}
		inst.position[n] = i
	}
	for _, k := range schema.PrimaryKey() {
		if p, ok := inst.position[k]; ok {
			inst.keyPos = append(inst.keyPos, p)
		}
	}
	return inst, nil
}

func (i *Instance) Name() string { return i.schema.Name() }

// Schema returns the private relation copy the instance forges from.
func (i *Instance) Schema() *model.Relation { return i.schema }

func (i *Instance) Projection() []string { return slices.Clone(i.projection) }

// Tuples returns the stored rows. The slice must not be modified.
func (i *Instance) Tuples() []Tuple { return i.tuples }

func (i *Instance) Size() int { return len(i.tuples) }

func (i *Instance) Generated() int   { return i.generated }
func (i *Instance) Constrained() int { return i.constrained }
func (i *Instance) Degenerated() int { return i.degenerated }

// RespectFK reports whether new rows produce foreign key obligations.
func (i *Instance) RespectFK() bool { return i.respectFK }

// SetRespectFK toggles foreign key obligations for rows forged from now on.
func (i *Instance) SetRespectFK(v bool) { i.respectFK = v }

// Values returns the row at index as a name to value map.
func (i *Instance) Values(index int) model.Values {
	row := i.tuples[index].Values
	out := make(model.Values, len(row))
	for p, n := range i.projection {
		out[n] = row[p]
	}
	return out
}

// Feed appends rows laid out along the projection. Counters move by
// len(rows): generated when neither flag is set, constrained when
// fromConstraint is set, degenerated when only degenerated is set.
func (i *Instance) Feed(rows [][]string, fromConstraint, degenerated bool) error {
	for _, row := range rows {
		if len(row) != len(i.projection) {
			return errs.Newf(errs.ErrKindSchema,
				"tuple of %d values does not fit projection %v of %s", len(row), i.projection, i.Name())
		}
	}
	for _, row := range rows {
		i.append(slices.Clone(row), fromConstraint, degenerated)
	}
	i.count(len(rows), fromConstraint, degenerated)
	return nil
}

// FeedFields is Feed for name-tagged rows. Each name must match the
// projection at its position.
func (i *Instance) FeedFields(rows [][]model.Field, fromConstraint, degenerated bool) error {
	plain := make([][]string, len(rows))
	for r, row := range rows {
		if len(row) != len(i.projection) {
			return errs.Newf(errs.ErrKindSchema,
				"tuple of %d values does not fit projection %v of %s", len(row), i.projection, i.Name())
		}
		values := make([]string, len(row))
		for p, f := range row {
			if f.Name != i.projection[p] {
				return errs.Newf(errs.ErrKindSchema,
					"attribute %q at position %d does not fit projection %v of %s", f.Name, p, i.projection, i.Name())
			}
			values[p] = f.Value
		}
		plain[r] = values
	}
	return i.Feed(plain, fromConstraint, degenerated)
}

func (i *Instance) count(n int, fromConstraint, degenerated bool) {
	switch {
	case fromConstraint:
		i.constrained += n
	case degenerated:
		i.degenerated += n
	default:
		i.generated += n
	}
}

func (i *Instance) append(row []string, fromConstraint, degenerated bool) {
	i.tuples = append(i.tuples, Tuple{Values: row, FromConstraint: fromConstraint, Degenerated: degenerated})
	if k, ok := i.key(row); ok {
		i.keys[k] = struct{}{}
	}
	for _, l := range i.lookups {
		l.seen[join(row, l.pos)] = struct{}{}
	}
}

// key is the primary key projection of row. ok is false when no key
// attribute is part of the projection, in which case rows never collide.
func (i *Instance) key(row []string) (string, bool) {
	if len(i.keyPos) == 0 {
		return "", false
	}
	return join(row, i.keyPos), true
}

// HasKey reports whether a stored row has the primary key projection of row.
func (i *Instance) HasKey(row []string) bool {
	k, ok := i.key(row)
	if !ok {
		return false
	}
	_, found := i.keys[k]
	return found
}

// Contains reports whether a stored row agrees with every value of partial.
// Names outside the projection cannot be checked and make it false.
func (i *Instance) Contains(partial model.Values) bool {
	if len(partial) == 0 {
		return false
	}
	names := make([]string, 0, len(partial))
	for n := range partial {
		if _, ok := i.position[n]; !ok {
			return false
		}
		names = append(names, n)
	}
	slices.Sort(names)
	l := i.lookup(names)

	vals := make([]string, len(names))
	for p, n := range names {
		vals[p] = partial[n]
	}
	_, found := l.seen[strings.Join(vals, sep)]
	return found
}

func (i *Instance) lookup(sorted []string) *lookup {
	sig := strings.Join(sorted, sep)
	if l, ok := i.lookups[sig]; ok {
		return l
	}
	l := &lookup{seen: make(map[string]struct{}, len(i.tuples))}
	for _, n := range sorted {
		l.pos = append(l.pos, i.position[n])
	}
	for _, t := range i.tuples {
		l.seen[join(t.Values, l.pos)] = struct{}{}
	}
	i.lookups[sig] = l
	return l
}

const sep = "\x1f"

func join(row []string, pos []int) string {
	var b strings.Builder
	for n, p := range pos {
		if n > 0 {
			b.WriteString(sep)
		}
		b.WriteString(row[p])
	}
	return b.String()
}
