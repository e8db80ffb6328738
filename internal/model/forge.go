package model

import (
	"maps"

	"github.com/koustreak/datforge/internal/errs"
)

// Field is one value tagged with the attribute it belongs to.
type Field struct {
	Name  string
	Value string
}

// Resolve completes given into a value for every attribute. Given values are
// kept as they are. Unset key attributes are generated first, by rank, then
// the unset non-key attributes, by rank, each generator seeing everything
// resolved before it. given is not modified.
func (r *Relation) Resolve(given Values) Values {
	values := make(Values, len(r.attrs))
	maps.Copy(values, given)

	var unset []string
	for _, n := range r.order {
		if _, ok := values[n]; !ok {
			unset = append(unset, n)
		}
	}
	keys, others := r.generationOrder(unset)
	for _, a := range keys {
		values[a.Name] = a.Generator.Value(values)
	}
	for _, a := range others {
		values[a.Name] = a.Generator.Value(values)
	}
	return values
}

// Project lays out resolved values along projection, the default projection
// when nil.
func (r *Relation) Project(values Values, projection []string) ([]string, error) {
	if projection == nil {
		projection = r.DefaultProjection()
	}
	out := make([]string, len(projection))
	for i, n := range projection {
		v, ok := values[n]
		if !ok {
			return nil, errs.Newf(errs.ErrKindSchema,
				"queried attribute %q was not generated in the tuple for relation %s", n, r.name)
		}
		out[i] = v
	}
	return out, nil
}

// ForgeTuple resolves one tuple from given and projects it.
func (r *Relation) ForgeTuple(given Values, projection []string) ([]string, error) {
	return r.Project(r.Resolve(given), projection)
}

// ForgeFields is ForgeTuple keeping the attribute name beside each value.
func (r *Relation) ForgeFields(given Values, projection []string) ([]Field, error) {
	if projection == nil {
		projection = r.DefaultProjection()
	}
	row, err := r.ForgeTuple(given, projection)
	if err != nil {
		return nil, err
	}
	out := make([]Field, len(row))
	for i, v := range row {
		out[i] = Field{Name: projection[i], Value: v}
	}
	return out, nil
}
