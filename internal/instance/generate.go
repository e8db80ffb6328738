package instance

import (
	"slices"

	"github.com/koustreak/datforge/internal/model"
)

// Group asks for Count rows sharing the Fixed values.
type Group struct {
	Count int
	Fixed model.Values
}

// InstantiationSpec describes how to populate a fresh instance.
type InstantiationSpec struct {
	Groups     []Group
	Projection []string
	// RespectFK defaults to true when nil.
	RespectFK *bool
	// AllowDuplicateKeys keeps rows whose primary key is already stored.
	AllowDuplicateKeys bool
}

// Batch collects the rows accepted during one generation call.
type Batch struct {
	rows [][]string
	keys map[string]struct{}
}

func NewBatch() *Batch {
	return &Batch{keys: make(map[string]struct{})}
}

func (b *Batch) Rows() [][]string { return b.rows }

func (b *Batch) Len() int { return len(b.rows) }

// Instantiate builds an instance of rel and forges the rows spec asks for.
// It also returns what rel's foreign keys require from the relations they
// reference.
func Instantiate(rel *model.Relation, spec InstantiationSpec) (*Instance, *Obligations, error) {
	inst, err := New(rel, spec.Projection)
	if err != nil {
		return nil, nil, err
	}
	if spec.RespectFK != nil {
		inst.respectFK = *spec.RespectFK
	}

	var givens []model.Values
	for _, g := range spec.Groups {
		for range g.Count {
			givens = append(givens, g.Fixed)
		}
	}
	ob, err := inst.GenerateAndFeed(givens, false, false, !spec.AllowDuplicateKeys)
	if err != nil {
		return nil, nil, err
	}
	return inst, ob, nil
}

// GenerateNewTuple forges one row from given. With enforcePK it returns
// ok=false, and nothing else happens, when the row's primary key is already
// stored or already in batch. An accepted row is added to batch when batch
// is not nil.
func (i *Instance) GenerateNewTuple(given model.Values, batch *Batch, enforcePK bool) (row []string, ok bool, err error) {
	row, err = i.schema.ForgeTuple(given, i.projection)
	if err != nil {
		return nil, false, err
	}
	k, hasKey := i.key(row)
	if enforcePK && hasKey {
		if _, dup := i.keys[k]; dup {
			return nil, false, nil
		}
		if batch != nil {
			if _, dup := batch.keys[k]; dup {
				return nil, false, nil
			}
		}
	}
	if batch != nil {
		batch.rows = append(batch.rows, row)
		if hasKey {
			batch.keys[k] = struct{}{}
		}
	}
	return row, true, nil
}

// GenerateAndFeed forges one row per given value map and stores the accepted
// ones with the provenance flags. With enforcePK a forged row is dropped only
// when its primary key is already stored, including rows stored earlier in
// the same call. The returned obligations come from the stored rows' foreign
// keys.
func (i *Instance) GenerateAndFeed(givens []model.Values, fromConstraint, degenerated, enforcePK bool) (*Obligations, error) {
	batch := NewBatch()
	for _, given := range givens {
		row, ok, err := i.GenerateNewTuple(given, batch, enforcePK)
		if err != nil {
			return nil, err
		}
		if ok {
			i.append(row, fromConstraint, degenerated)
		}
	}
	i.count(batch.Len(), fromConstraint, degenerated)
	return i.obligations(batch.rows), nil
}

// obligations extracts, for each foreign key whose attributes all appear in
// the projection, the partial tuple every row requires from the target.
func (i *Instance) obligations(rows [][]string) *Obligations {
	ob := NewObligations()
	if !i.respectFK || len(rows) == 0 {
		return ob
	}
	for _, fk := range i.schema.ForeignKeys() {
		if !i.covers(fk.Attributes) {
			continue
		}
		partials := make([]model.Values, 0, len(rows))
		for _, row := range rows {
			values := make(model.Values, len(fk.Attributes))
			for _, a := range fk.Attributes {
				values[a] = row[i.position[a]]
			}
			if p, ok := fk.Obligation(values); ok {
				partials = append(partials, p)
			}
		}
		ob.Add(fk.Target.Name(), partials...)
	}
	return ob
}

func (i *Instance) covers(names []string) bool {
	return !slices.ContainsFunc(names, func(n string) bool {
		_, ok := i.position[n]
		return !ok
	})
}
