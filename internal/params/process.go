package params

import (
	"context"
	"math/rand/v2"

	"github.com/koustreak/datforge/internal/dbinstance"
	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/logger"
	"github.com/koustreak/datforge/internal/model"
)

// Item pairs a relation with its own parameters, nil to use the deduced
// ones.
type Item struct {
	Relation *model.Relation
	Params   *TableParameters
}

// Process instantiates then degenerates a set of relations.
type Process struct {
	relations []*model.Relation
	params    []TableParameters
	respectFK bool
	seed      uint64
	log       *logger.Logger

	db *dbinstance.Database
}

// ProcessOption configures a Process.
type ProcessOption func(*Process)

func WithLogger(l *logger.Logger) ProcessOption {
	return func(p *Process) {
		if l != nil {
			p.log = l
		}
	}
}

// WithSeed seeds the random selection of degenerated rows.
func WithSeed(seed uint64) ProcessOption {
	return func(p *Process) { p.seed = seed }
}

// WithRespectFK sets the default for relations whose parameters leave
// RespectFK unset. It is true otherwise.
func WithRespectFK(v bool) ProcessOption {
	return func(p *Process) { p.respectFK = v }
}

// NewProcess resolves the parameters of every item. Items without their own
// parameters share what global leaves, see GlobalParameters.Deduce. A nil
// global gives them nothing to generate.
func NewProcess(items []Item, global *GlobalParameters, opts ...ProcessOption) (*Process, error) {
	p := &Process{respectFK: true, log: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	if global == nil {
		global = &GlobalParameters{}
	}

	tables := make([]*TableParameters, len(items))
	for i, it := range items {
		if it.Relation == nil {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "process item %d has no relation", i)
		}
		tables[i] = it.Params
	}
	deduced := global.Deduce(tables)

	for _, it := range items {
		tp := deduced
		if it.Params != nil {
			tp = *it.Params
		}
		p.relations = append(p.relations, it.Relation)
		p.params = append(p.params, tp)
		p.log.With().Str("relation", it.Relation.Name()).Logger().Debug(tp.String())
	}
	return p, nil
}

// Parameters returns the resolved parameters of the named relation.
func (p *Process) Parameters(name string) (TableParameters, bool) {
	for i, r := range p.relations {
		if r.Name() == name {
			return p.params[i], true
		}
	}
	return TableParameters{}, false
}

// Rows is the number of rows the parameters ask for before propagation:
// every relation's count plus its degeneration count.
func (p *Process) Rows() int {
	n := 0
	for _, tp := range p.params {
		n += tp.Count + tp.DegenerationCount()
	}
	return n
}

// Instantiate builds the database, replacing any previous one.
func (p *Process) Instantiate(ctx context.Context) (*dbinstance.Database, error) {
	entries := make([]dbinstance.Entry, len(p.relations))
	for i, r := range p.relations {
		entries[i] = dbinstance.Entry{Relation: r, Spec: p.params[i].InstantiationSpec()}
	}
	db, err := dbinstance.Build(ctx, entries, p.respectFK, dbinstance.WithLogger(p.log))
	if err != nil {
		return nil, err
	}
	p.db = db
	return db, nil
}

// Degenerate degenerates every relation with a non-zero degeneration count.
func (p *Process) Degenerate(ctx context.Context) error {
	if p.db == nil {
		return errs.New(errs.ErrKindInvalidInput, "degenerate called before instantiate")
	}
	rng := rand.New(rand.NewPCG(p.seed, p.seed^0x5bd1e995))
	var entries []dbinstance.DegenerationEntry
	for i, r := range p.relations {
		if p.params[i].DegenerationCount() == 0 {
			continue
		}
		entries = append(entries, dbinstance.DegenerationEntry{
			Relation: r.Name(),
			Spec:     p.params[i].DegenerationSpec(rng),
		})
	}
	return p.db.Degenerate(ctx, entries)
}

// Run instantiates then degenerates. It stops with an ErrKindTimeout error
// once ctx is done.
func (p *Process) Run(ctx context.Context) (*dbinstance.Database, error) {
	db, err := p.Instantiate(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.Degenerate(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Database returns the last instantiated database, nil before Instantiate.
func (p *Process) Database() *dbinstance.Database {
	return p.db
}

// Relations returns the relations in processing order.
func (p *Process) Relations() []*model.Relation {
	return append([]*model.Relation(nil), p.relations...)
}
