package database

import (
	"context"
	"slices"

	"github.com/spf13/cast"

	"github.com/koustreak/datforge/internal/dbinstance"
	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/instance"
	"github.com/koustreak/datforge/internal/logger"
	"github.com/koustreak/datforge/internal/model"
)

// DefaultBatchSize is the number of rows per INSERT statement.
const DefaultBatchSize = 500

// LoadOptions controls how generated instances are written.
type LoadOptions struct {
	// CreateTables issues CREATE TABLE IF NOT EXISTS for every relation.
	CreateTables bool
	// DropExisting drops the tables first, referencing tables before
	// referenced ones.
	DropExisting bool
	// ForeignKeys declares foreign key constraints on created tables.
	ForeignKeys bool
	// BatchSize is the number of rows per INSERT. 0 means DefaultBatchSize.
	BatchSize int
}

// Loader writes a generated database into a live one.
type Loader struct {
	db   DB
	opts LoadOptions
	log  *logger.Logger
}

// NewLoader returns a Loader writing through db. A nil log discards output.
func NewLoader(db DB, opts LoadOptions, log *logger.Logger) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{db: db, opts: opts, log: log}
}

// Load writes every instance of data, referenced relations before the
// relations referencing them, and returns the number of rows inserted.
func (l *Loader) Load(ctx context.Context, data *dbinstance.Database) (int, error) {
	instances := data.Instances()
	relations := make([]*model.Relation, len(instances))
	for i, inst := range instances {
		relations[i] = inst.Schema()
	}
	order := LoadOrder(relations)
	d := l.db.Dialect()

	if l.opts.DropExisting {
		for _, rel := range slices.Backward(order) {
			if err := l.db.Exec(ctx, DropTable(rel.Name(), d)); err != nil {
				return 0, err
			}
		}
	}
	if l.opts.CreateTables || l.opts.DropExisting {
		for _, rel := range order {
			b := CreateTable(rel, d).IfNotExists()
			if l.opts.ForeignKeys {
				b.WithForeignKeys()
			}
			stmt, err := b.Build()
			if err != nil {
				return 0, err
			}
			l.log.Debugf("create table %s", rel.Name())
			if err := l.db.Exec(ctx, stmt); err != nil {
				return 0, err
			}
		}
	}

	total := 0
	for _, rel := range order {
		inst, _ := data.Instance(rel.Name())
		n, err := l.insert(ctx, rel, inst.Projection(), inst.Tuples())
		total += n
		if err != nil {
			return total, err
		}
		l.log.InfoWith("relation loaded", map[string]interface{}{
			"relation": rel.Name(),
			"rows":     n,
			"dialect":  string(d.Name()),
		})
	}
	return total, nil
}

func (l *Loader) insert(ctx context.Context, rel *model.Relation, projection []string, tuples []instance.Tuple) (int, error) {
	types := make([]model.AttributeType, len(projection))
	for i, name := range projection {
		a, _ := rel.Attribute(name)
		types[i] = a.Type
	}

	written := 0
	for start := 0; start < len(tuples); start += l.opts.BatchSize {
		end := min(start+l.opts.BatchSize, len(tuples))
		b := Insert(rel.Name(), l.db.Dialect()).Columns(projection...)
		for _, t := range tuples[start:end] {
			row := make([]any, len(t.Values))
			for i, v := range t.Values {
				cv, err := convert(types[i], v, rel.IsKey(projection[i]))
				if err != nil {
					return written, errs.Wrap(errs.ErrKindInvalidInput,
						"value of "+rel.Name()+"."+projection[i], err)
				}
				row[i] = cv
			}
			b.Values(row...)
		}
		stmt, args, err := b.Build()
		if err != nil {
			return written, err
		}
		if err := l.db.Exec(ctx, stmt, args...); err != nil {
			return written, err
		}
		written += end - start
	}
	return written, nil
}

// convert turns generated text into the Go value bound for a column of
// type t. An empty value outside the key is NULL.
func convert(t model.AttributeType, v string, key bool) (any, error) {
	if v == "" && !key {
		return nil, nil
	}
	switch t {
	case model.TypeInteger, model.TypeIntegerIncr:
		return cast.ToInt64E(v)
	case model.TypeDate:
		return cast.ToTimeE(v)
	default:
		return v, nil
	}
}

// LoadOrder sorts relations so that a relation comes after every relation
// it references. Relations on a reference cycle keep their input order
// after the acyclic ones; self references are ignored.
func LoadOrder(relations []*model.Relation) []*model.Relation {
	index := make(map[string]int, len(relations))
	for i, r := range relations {
		index[r.Name()] = i
	}

	// pending[i] counts the distinct referenced relations not yet placed.
	pending := make([]int, len(relations))
	referencedBy := make([][]int, len(relations))
	for i, r := range relations {
		seen := map[int]bool{}
		for _, fk := range r.ForeignKeys() {
			j, ok := index[fk.Target.Name()]
			if !ok || j == i || seen[j] {
				continue
			}
			seen[j] = true
			pending[i]++
			referencedBy[j] = append(referencedBy[j], i)
		}
	}

	placed := make([]bool, len(relations))
	order := make([]*model.Relation, 0, len(relations))
	for progress := true; progress; {
		progress = false
		for i, r := range relations {
			if placed[i] || pending[i] > 0 {
				continue
			}
			placed[i] = true
			progress = true
			order = append(order, r)
			for _, k := range referencedBy[i] {
				pending[k]--
			}
		}
	}
	for i, r := range relations {
		if !placed[i] {
			order = append(order, r)
		}
	}
	return order
}
