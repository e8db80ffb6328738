// Package model declares relation schemas and forges single tuples from them.
//
// A Relation owns its attributes. Instances never forge from a shared
// Relation: they work on a Clone, so generator cursors are never shared.
package model

import (
	"maps"
	"slices"
	"strings"

	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/generator"
)

// Relation is a named set of attributes with a primary key and foreign keys.
type Relation struct {
	name  string
	attrs map[string]*Attribute
	order []string
	pk    []string
	fks   []*ForeignKey
}

// NewRelation declares a relation. Attributes keep their insertion order for
// display. Every primary key name must be one of the attributes.
func NewRelation(name string, attrs []*Attribute, pk ...string) (*Relation, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.New(errs.ErrKindSchema, "relation name is empty")
	}
	r := &Relation{name: name, attrs: make(map[string]*Attribute, len(attrs))}
	for _, a := range attrs {
		if err := r.add(a, a.Name); err != nil {
			return nil, err
		}
	}
	for _, k := range pk {
		if _, ok := r.attrs[k]; !ok {
			return nil, errs.Newf(errs.ErrKindSchema, "inconsistent primary key: attribute %q not in relation %s", k, name)
		}
		if slices.Contains(r.pk, k) {
			return nil, errs.Newf(errs.ErrKindSchema, "primary key of %s lists %q twice", name, k)
		}
		r.pk = append(r.pk, k)
	}
	return r, nil
}

// MustRelation is NewRelation for declarations known to be consistent.
func MustRelation(name string, attrs []*Attribute, pk ...string) *Relation {
	r, err := NewRelation(name, attrs, pk...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Relation) add(a *Attribute, as string) error {
	if a == nil {
		return errs.Newf(errs.ErrKindSchema, "nil attribute in relation %s", r.name)
	}
	if as == "" {
		return errs.Newf(errs.ErrKindSchema, "unnamed attribute in relation %s", r.name)
	}
	if _, dup := r.attrs[as]; dup {
		return errs.Newf(errs.ErrKindSchema, "attribute %q declared twice in relation %s", as, r.name)
	}
	if a.Type == "" || a.Generator == nil {
		// Completed on a copy: the caller's literal is left as declared.
		a = a.Clone()
		if a.Type == "" {
			a.Type = TypeInteger
		}
		if a.Generator == nil {
			a.Generator = a.Type.DefaultGenerator(generator.SeedFor(as))
		}
	}
	r.attrs[as] = a
	r.order = append(r.order, as)
	return nil
}

// AddAttribute adds a copy of attr under the name as (attr.Name when empty),
// optionally appending it to the primary key. The same definition can thus
// serve several relations under different names.
func (r *Relation) AddAttribute(attr *Attribute, as string, primary bool) error {
	if attr == nil {
		return errs.Newf(errs.ErrKindSchema, "nil attribute in relation %s", r.name)
	}
	if as == "" {
		as = attr.Name
	}
	c := attr.Clone()
	c.Name = as
	if err := r.add(c, as); err != nil {
		return err
	}
	if primary {
		r.pk = append(r.pk, as)
	}
	return nil
}

func (r *Relation) Name() string { return r.name }

// AttributeNames returns the attribute names in insertion order.
func (r *Relation) AttributeNames() []string {
	return slices.Clone(r.order)
}

// Attributes returns the attributes in insertion order.
func (r *Relation) Attributes() []*Attribute {
	out := make([]*Attribute, len(r.order))
	for i, n := range r.order {
		out[i] = r.attrs[n]
	}
	return out
}

func (r *Relation) Attribute(name string) (*Attribute, bool) {
	a, ok := r.attrs[name]
	return a, ok
}

// PrimaryKey returns the primary key names in declaration order.
func (r *Relation) PrimaryKey() []string {
	return slices.Clone(r.pk)
}

// IsKey reports whether name is part of the primary key.
func (r *Relation) IsKey(name string) bool {
	return slices.Contains(r.pk, name)
}

func (r *Relation) ForeignKeys() []*ForeignKey {
	return slices.Clone(r.fks)
}

// ForeignKeyOn returns the foreign key declared on exactly these attributes.
func (r *Relation) ForeignKeyOn(attrs ...string) (*ForeignKey, bool) {
	for _, fk := range r.fks {
		if slices.Equal(fk.Attributes, attrs) {
			return fk, true
		}
	}
	return nil, false
}

// generationOrder splits names into key and non-key attributes, each sorted
// by rank. Ties keep insertion order.
func (r *Relation) generationOrder(names []string) (keys, others []*Attribute) {
	for _, n := range names {
		if r.IsKey(n) {
			keys = append(keys, r.attrs[n])
		} else {
			others = append(others, r.attrs[n])
		}
	}
	byRank := func(a, b *Attribute) int { return a.Rank - b.Rank }
	slices.SortStableFunc(keys, byRank)
	slices.SortStableFunc(others, byRank)
	return keys, others
}

// DefaultProjection lists key attributes by rank, then the others by rank.
func (r *Relation) DefaultProjection() []string {
	keys, others := r.generationOrder(r.order)
	out := make([]string, 0, len(r.order))
	for _, a := range keys {
		out = append(out, a.Name)
	}
	for _, a := range others {
		out = append(out, a.Name)
	}
	return out
}

// Clone deep-copies the relation. Attributes get fresh generators. Foreign
// keys keep pointing at the referenced relations, which are identified by
// name when tuples cross relations.
func (r *Relation) Clone() *Relation {
	c := &Relation{
		name:  r.name,
		attrs: make(map[string]*Attribute, len(r.attrs)),
		order: slices.Clone(r.order),
		pk:    slices.Clone(r.pk),
	}
	for n, a := range r.attrs {
		c.attrs[n] = a.Clone()
	}
	for _, fk := range r.fks {
		cp := *fk
		cp.Attributes = slices.Clone(fk.Attributes)
		c.fks = append(c.fks, &cp)
	}
	return c
}

// ResetGenerators rewinds every attribute generator.
func (r *Relation) ResetGenerators() {
	for _, a := range r.attrs {
		if a.Generator != nil {
			a.Generator.Reset()
		}
	}
}

// Equal reports whether two relations declare the same attribute names,
// primary key and foreign key shapes. Generators are not compared.
func (r *Relation) Equal(o *Relation) bool {
	if r.name != o.name || !slices.Equal(r.order, o.order) || !slices.Equal(r.pk, o.pk) || len(r.fks) != len(o.fks) {
		return false
	}
	for i, fk := range r.fks {
		other := o.fks[i]
		if !slices.Equal(fk.Attributes, other.Attributes) || fk.Target.Name() != other.Target.Name() ||
			!maps.Equal(fk.Mapping.forward, other.Mapping.forward) {
			return false
		}
	}
	return true
}
