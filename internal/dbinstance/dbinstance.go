// Package dbinstance populates a whole schema and drives foreign key
// propagation to a fixpoint.
//
// Each relation is instantiated on its own. The partial tuples its foreign
// keys require from other relations are queued and fed into the referenced
// instances, which may in turn owe partial tuples to a third relation. Every
// fed partial tuple is forged into a row; a row whose primary key is already
// stored is dropped and queues nothing. The loop ends when nothing is owed
// any more. A cyclic schema whose foreign keys reference key prefixes can
// keep minting fresh keys, so callers bound the loop with a context.
package dbinstance

import (
	"context"

	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/instance"
	"github.com/koustreak/datforge/internal/logger"
	"github.com/koustreak/datforge/internal/model"
)

// Entry pairs a relation with how to instantiate it.
type Entry struct {
	Relation *model.Relation
	Spec     instance.InstantiationSpec
}

// DegenerationEntry names an instantiated relation and how to degenerate it.
type DegenerationEntry struct {
	Relation string
	Spec     instance.DegenerationSpec
}

// Database holds one instance per relation, in instantiation order.
type Database struct {
	instances map[string]*instance.Instance
	order     []string
	respectFK bool
	log       *logger.Logger

	rounds int
}

// Option configures Build.
type Option func(*Database)

func WithLogger(l *logger.Logger) Option {
	return func(db *Database) {
		if l != nil {
			db.log = l
		}
	}
}

// Build instantiates every entry, then feeds the referenced relations until
// every foreign key is satisfied. respectFK applies to entries whose spec
// leaves RespectFK unset. Obligations towards a relation without an entry
// are dropped. Build stops with an ErrKindTimeout error once ctx is done,
// checked before each entry and each drained batch.
func Build(ctx context.Context, entries []Entry, respectFK bool, opts ...Option) (*Database, error) {
	db := &Database{
		instances: make(map[string]*instance.Instance, len(entries)),
		respectFK: respectFK,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(db)
	}

	q := newQueue()
	for _, e := range entries {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		if e.Relation == nil {
			return nil, errs.New(errs.ErrKindInvalidInput, "entry without relation")
		}
		name := e.Relation.Name()
		if _, dup := db.instances[name]; dup {
			return nil, errs.Newf(errs.ErrKindSchema, "relation %s instantiated twice", name)
		}
		spec := e.Spec
		if spec.RespectFK == nil {
			spec.RespectFK = &db.respectFK
		}
		inst, ob, err := instance.Instantiate(e.Relation, spec)
		if err != nil {
			return nil, err
		}
		db.instances[name] = inst
		db.order = append(db.order, name)
		db.log.With().Str("relation", name).Int("rows", inst.Size()).Int("obligations", ob.Len()).Logger().
			Debug("relation instantiated")
		q.push(ob, false)
	}

	if err := db.drain(ctx, q); err != nil {
		return nil, err
	}
	db.log.InfoWith("database instantiated", map[string]interface{}{
		"relations": len(db.order),
		"rows":      db.Size(),
		"rounds":    db.rounds,
	})
	return db, nil
}

// Degenerate degenerates each named instance, then propagates the
// obligations the new rows carry. Rows fed because of a degeneration are
// tagged both constrained and degenerated.
func (db *Database) Degenerate(ctx context.Context, entries []DegenerationEntry) error {
	q := newQueue()
	for _, e := range entries {
		if err := checkContext(ctx); err != nil {
			return err
		}
		inst, ok := db.instances[e.Relation]
		if !ok {
			return errs.Newf(errs.ErrKindNotFound, "no instance for relation %s", e.Relation)
		}
		before := inst.Size()
		ob, err := inst.Degenerate(e.Spec)
		if err != nil {
			return err
		}
		db.log.With().Str("relation", e.Relation).Int("rows", inst.Size()-before).Int("obligations", ob.Len()).Logger().
			Debug("relation degenerated")
		q.push(ob, true)
	}
	if err := db.drain(ctx, q); err != nil {
		return err
	}
	db.log.InfoWith("database degenerated", map[string]interface{}{
		"relations": len(entries),
		"rows":      db.Size(),
	})
	return nil
}

func (db *Database) drain(ctx context.Context, q *queue) error {
	for {
		if err := checkContext(ctx); err != nil {
			db.log.With().Int("rounds", db.rounds).Int("queued", q.len()).Logger().
				Warn("propagation interrupted")
			return err
		}
		p, ok := q.pop()
		if !ok {
			return nil
		}
		db.rounds++
		inst, ok := db.instances[p.target]
		if !ok {
			db.log.With().Str("relation", p.target).Int("obligations", len(p.partials)).Logger().
				Warn("no instance for referenced relation, obligations dropped")
			continue
		}
		before := inst.Size()
		ob, err := inst.GenerateAndFeed(p.partials, true, p.degenerated, true)
		if err != nil {
			return err
		}
		db.log.DebugWith("obligations fed", map[string]interface{}{
			"relation":    p.target,
			"obligations": len(p.partials),
			"rows":        inst.Size() - before,
			"queued":      q.len(),
		})
		q.push(ob, p.degenerated)
	}
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if e, ok := errs.FromContext(err, "instantiation interrupted"); ok {
			return e
		}
		return err
	}
	return nil
}

// Instance returns the instance of the named relation.
func (db *Database) Instance(name string) (*instance.Instance, bool) {
	inst, ok := db.instances[name]
	return inst, ok
}

// Instances returns every instance in instantiation order.
func (db *Database) Instances() []*instance.Instance {
	out := make([]*instance.Instance, len(db.order))
	for i, n := range db.order {
		out[i] = db.instances[n]
	}
	return out
}

// Names returns the relation names in instantiation order.
func (db *Database) Names() []string {
	return append([]string(nil), db.order...)
}

// Size is the total number of stored rows.
func (db *Database) Size() int {
	n := 0
	for _, inst := range db.instances {
		n += inst.Size()
	}
	return n
}

// Rounds is the number of obligation batches drained so far.
func (db *Database) Rounds() int {
	return db.rounds
}
