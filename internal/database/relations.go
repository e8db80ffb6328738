package database

import (
	"strings"

	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/generator"
	"github.com/koustreak/datforge/internal/logger"
	"github.com/koustreak/datforge/internal/model"
)

// ToRelations turns an introspected schema into relations ready to be
// instantiated. Columns get the attribute type closest to their SQL type
// and the default generator of that type; a single-column integer or text
// key gets an incrementing one so generated keys never collide. Foreign
// keys the model cannot express (not on a prefix of the referenced primary
// key) are skipped with a warning.
func ToRelations(info *SchemaInfo, seed uint64, log *logger.Logger) ([]*model.Relation, error) {
	if log == nil {
		log = logger.Nop()
	}

	relations := make([]*model.Relation, 0, len(info.Tables))
	byName := make(map[string]*model.Relation, len(info.Tables))
	for _, t := range info.Tables {
		attrs := make([]*model.Attribute, 0, len(t.Columns))
		for _, c := range t.Columns {
			typ := AttributeTypeOf(c.DataType)
			if len(t.PrimaryKey) == 1 && t.PrimaryKey[0] == c.Name {
				typ = incrementing(typ)
			}
			attrSeed := seed ^ generator.SeedFor(t.Name+"."+c.Name)
			attrs = append(attrs, model.NewAttribute(c.Name, typ,
				model.WithGenerator(typ.DefaultGenerator(attrSeed))))
		}
		rel, err := model.NewRelation(t.Name, attrs, t.PrimaryKey...)
		if err != nil {
			return nil, err
		}
		relations = append(relations, rel)
		byName[t.Name] = rel
	}

	for _, g := range groupForeignKeys(info.ForeignKeys) {
		from, ok := byName[g.fromTable]
		if !ok {
			return nil, errs.Newf(errs.ErrKindSchema, "foreign key %s on unknown table %s", g.name, g.fromTable)
		}
		to, ok := byName[g.toTable]
		if !ok {
			return nil, errs.Newf(errs.ErrKindSchema, "foreign key %s references unknown table %s", g.name, g.toTable)
		}
		rename := map[string]string{}
		for i, c := range g.from {
			if c != g.to[i] {
				rename[c] = g.to[i]
			}
		}
		if _, err := from.AddForeignKey(g.from, to, rename); err != nil {
			log.With().Str("constraint", g.name).Str("relation", g.fromTable).Err(err).Logger().
				Warn("foreign key skipped")
		}
	}
	return relations, nil
}

// AttributeTypeOf maps a SQL data type name to an attribute type.
func AttributeTypeOf(dataType string) model.AttributeType {
	t := strings.ToLower(dataType)
	switch {
	case strings.Contains(t, "int"), strings.Contains(t, "serial"):
		return model.TypeInteger
	case strings.Contains(t, "date"), strings.Contains(t, "time"):
		return model.TypeDate
	default:
		return model.TypeString
	}
}

func incrementing(t model.AttributeType) model.AttributeType {
	switch t {
	case model.TypeInteger:
		return model.TypeIntegerIncr
	case model.TypeString:
		return model.TypeStringIncr
	default:
		return t
	}
}

type fkGroup struct {
	name, fromTable, toTable string
	from, to                 []string
}

// groupForeignKeys collects the column pairs of each constraint, keeping
// first-seen order.
func groupForeignKeys(fks []ForeignKey) []*fkGroup {
	var out []*fkGroup
	index := map[string]*fkGroup{}
	for _, fk := range fks {
		key := fk.FromTable + "\x1f" + fk.Name
		g, ok := index[key]
		if !ok {
			g = &fkGroup{name: fk.Name, fromTable: fk.FromTable, toTable: fk.ToTable}
			index[key] = g
			out = append(out, g)
		}
		g.from = append(g.from, fk.FromColumn)
		g.to = append(g.to, fk.ToColumn)
	}
	return out
}
