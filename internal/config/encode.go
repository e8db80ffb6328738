package config

import (
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/model"
)

// FromRelations describes relations as a document. Attributes keep their
// type's default generator. The global count is set so that every relation
// gets count rows.
func FromRelations(relations []*model.Relation, count int, seed uint64) *Document {
	d := &Document{Parameters: ParametersDoc{Seed: seed}}
	if count > 0 {
		d.Parameters.Global = &TableDoc{Count: count * len(relations)}
	}
	for _, r := range relations {
		rd := RelationDoc{Name: r.Name(), PrimaryKey: r.PrimaryKey()}
		for _, a := range r.Attributes() {
			rd.Attributes = append(rd.Attributes, AttributeDoc{
				Name:        a.Name,
				Type:        strings.ToLower(string(a.Type)),
				Description: a.Description,
			})
		}
		for _, fk := range r.ForeignKeys() {
			fd := ForeignKeyDoc{Attributes: fk.Attributes, References: fk.Target.Name()}
			rename := make(map[string]string)
			for from, to := range fk.Mapping.Renames() {
				if from != to {
					rename[from] = to
				}
			}
			if len(rename) > 0 {
				fd.Rename = rename
			}
			rd.ForeignKeys = append(rd.ForeignKeys, fd)
		}
		d.Relations = append(d.Relations, rd)
	}
	return d
}

// Encode writes d as YAML.
func (d *Document) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "encode schema document", err)
	}
	return enc.Close()
}
