package model

import (
	"slices"

	"github.com/koustreak/datforge/internal/errs"
)

// ForeignKey constrains Attributes of the owning relation to match, after
// renaming through Mapping, the primary key (or a prefix of it) of Target.
type ForeignKey struct {
	Attributes []string
	Target     *Relation
	Mapping    NameMapping
}

// TargetAttributes returns Attributes renamed to the target's names.
func (fk *ForeignKey) TargetAttributes() []string {
	out := make([]string, len(fk.Attributes))
	for i, a := range fk.Attributes {
		out[i] = fk.Mapping.To(a)
	}
	return out
}

// Obligation extracts the partial tuple the target must contain for a
// source tuple carrying values. ok is false when a key attribute is absent.
func (fk *ForeignKey) Obligation(values Values) (Values, bool) {
	out := make(Values, len(fk.Attributes))
	for _, a := range fk.Attributes {
		v, present := values[a]
		if !present {
			return nil, false
		}
		out[fk.Mapping.To(a)] = v
	}
	return out, true
}

// AddForeignKey declares that attrs reference target. rename maps source
// names to target names where they differ. The renamed attributes must be
// exactly the first len(attrs) attributes of the target's primary key, in
// any order.
func (r *Relation) AddForeignKey(attrs []string, target *Relation, rename map[string]string) (*ForeignKey, error) {
	if target == nil {
		return nil, errs.Newf(errs.ErrKindSchema, "foreign key of %s references no relation", r.name)
	}
	if len(attrs) == 0 {
		return nil, errs.Newf(errs.ErrKindSchema, "foreign key of %s to %s has no attributes", r.name, target.name)
	}
	for i, a := range attrs {
		if _, ok := r.attrs[a]; !ok {
			return nil, errs.Newf(errs.ErrKindSchema, "foreign key attribute %q not in relation %s", a, r.name)
		}
		if slices.Contains(attrs[:i], a) {
			return nil, errs.Newf(errs.ErrKindSchema, "foreign key of %s lists %q twice", r.name, a)
		}
	}
	for src := range rename {
		if !slices.Contains(attrs, src) {
			return nil, errs.Newf(errs.ErrKindSchema, "rename of %q does not apply to foreign key %v of %s", src, attrs, r.name)
		}
	}
	mapping, err := NewNameMapping(rename)
	if err != nil {
		return nil, err
	}

	fk := &ForeignKey{Attributes: slices.Clone(attrs), Target: target, Mapping: mapping}
	mapped := fk.TargetAttributes()
	if len(mapped) > len(target.pk) {
		return nil, errs.Newf(errs.ErrKindSchema,
			"foreign key %v of %s is wider than the primary key of %s", attrs, r.name, target.name)
	}
	prefix := target.pk[:len(mapped)]
	for i, m := range mapped {
		if !slices.Contains(prefix, m) || slices.Contains(mapped[:i], m) {
			return nil, errs.Newf(errs.ErrKindSchema,
				"foreign key %v of %s wrongly references primary key %v of %s", attrs, r.name, target.pk, target.name)
		}
	}
	if _, dup := r.ForeignKeyOn(attrs...); dup {
		return nil, errs.Newf(errs.ErrKindSchema, "foreign key %v of %s declared twice", attrs, r.name)
	}
	r.fks = append(r.fks, fk)
	return fk, nil
}
