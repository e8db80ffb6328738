package dbinstance

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/generator"
	"github.com/koustreak/datforge/internal/instance"
	"github.com/koustreak/datforge/internal/logger"
	"github.com/koustreak/datforge/internal/model"
)

func count(n int) instance.InstantiationSpec {
	return instance.InstantiationSpec{Groups: []instance.Group{{Count: n}}}
}

func rows(inst *instance.Instance) [][]string {
	out := make([][]string, inst.Size())
	for i, t := range inst.Tuples() {
		out[i] = t.Values
	}
	return out
}

// assertReferentialIntegrity checks every foreign key of every instance
// against the referenced instance.
func assertReferentialIntegrity(t *testing.T, db *Database) {
	t.Helper()
	for _, inst := range db.Instances() {
		for _, fk := range inst.Schema().ForeignKeys() {
			target, ok := db.Instance(fk.Target.Name())
			require.True(t, ok, "no instance for %s", fk.Target.Name())
			for n := range inst.Tuples() {
				ob, ok := fk.Obligation(inst.Values(n))
				if !ok {
					continue
				}
				assert.True(t, target.Contains(ob), "%s row %d: %v missing from %s", inst.Name(), n, ob, target.Name())
			}
		}
	}
}

func assertCounters(t *testing.T, db *Database) {
	t.Helper()
	for _, inst := range db.Instances() {
		assert.Equal(t, inst.Size(), inst.Generated()+inst.Constrained()+inst.Degenerated(), inst.Name())
	}
}

func parentChild(t *testing.T) (*model.Relation, *model.Relation) {
	t.Helper()
	parent := model.MustRelation("Parent", []*model.Attribute{model.NewAttribute("pk", model.TypeIntegerIncr)}, "pk")
	child := model.MustRelation("Child", []*model.Attribute{
		model.NewAttribute("pk", model.TypeIntegerIncr),
		model.NewAttribute("parent_ref", model.TypeIntegerIncr),
	}, "pk")
	_, err := child.AddForeignKey([]string{"parent_ref"}, parent, map[string]string{"parent_ref": "pk"})
	require.NoError(t, err)
	return parent, child
}

func TestBuild_ParentChildScenario(t *testing.T) {
	parent, child := parentChild(t)

	db, err := Build(context.Background(), []Entry{
		{Relation: child, Spec: count(3)},
		{Relation: parent, Spec: count(0)},
	}, true)
	require.NoError(t, err)

	c, ok := db.Instance("Child")
	require.True(t, ok)
	p, ok := db.Instance("Parent")
	require.True(t, ok)

	assert.Equal(t, [][]string{{"1", "1"}, {"2", "2"}, {"3", "3"}}, rows(c))
	assert.Equal(t, [][]string{{"1"}, {"2"}, {"3"}}, rows(p))
	assert.Equal(t, 3, p.Constrained())
	for _, tup := range p.Tuples() {
		assert.True(t, tup.FromConstraint)
		assert.False(t, tup.Degenerated)
	}
	assertReferentialIntegrity(t, db)

	require.NoError(t, db.Degenerate(context.Background(), []DegenerationEntry{
		{Relation: "Child", Spec: instance.DegenerationSpec{Count: 2}},
	}))

	assert.Equal(t, [][]string{{"1", "1"}, {"2", "2"}, {"3", "3"}, {"1", "4"}, {"2", "5"}}, rows(c))
	assert.Equal(t, 2, c.Degenerated())
	assert.Equal(t, [][]string{{"1"}, {"2"}, {"3"}, {"4"}, {"5"}}, rows(p))
	assert.Equal(t, 5, p.Constrained())
	for _, tup := range p.Tuples()[3:] {
		assert.True(t, tup.FromConstraint)
		assert.True(t, tup.Degenerated)
	}
	assertReferentialIntegrity(t, db)
	assertCounters(t, db)
}

func TestBuild_OwnTuplesAbsorbObligations(t *testing.T) {
	parent, child := parentChild(t)

	db, err := Build(context.Background(), []Entry{
		{Relation: parent, Spec: count(2)},
		{Relation: child, Spec: count(3)},
	}, true)
	require.NoError(t, err)

	p, _ := db.Instance("Parent")
	assert.Equal(t, [][]string{{"1"}, {"2"}, {"3"}}, rows(p))
	assert.Equal(t, 2, p.Generated())
	assert.Equal(t, 1, p.Constrained())
}

func TestBuild_GeneratorIndependence(t *testing.T) {
	parent, child := parentChild(t)
	entries := []Entry{{Relation: child, Spec: count(3)}, {Relation: parent, Spec: count(0)}}

	first, err := Build(context.Background(), entries, true)
	require.NoError(t, err)
	second, err := Build(context.Background(), entries, true)
	require.NoError(t, err)

	for _, name := range []string{"Child", "Parent"} {
		a, _ := first.Instance(name)
		b, _ := second.Instance(name)
		assert.Equal(t, rows(a), rows(b), name)
	}
}

func TestBuild_RespectFKOff(t *testing.T) {
	parent, child := parentChild(t)
	db, err := Build(context.Background(), []Entry{{Relation: child, Spec: count(3)}, {Relation: parent, Spec: count(0)}}, false)
	require.NoError(t, err)

	p, _ := db.Instance("Parent")
	assert.Equal(t, 0, p.Size())
	assert.Equal(t, 0, db.Rounds())
}

func TestBuild_MissingTargetDropsObligations(t *testing.T) {
	_, child := parentChild(t)
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Output: &buf})

	db, err := Build(context.Background(), []Entry{{Relation: child, Spec: count(2)}}, true, WithLogger(log))
	require.NoError(t, err)
	assert.Equal(t, 2, db.Size())
	assert.Contains(t, buf.String(), "obligations dropped")
	assert.Contains(t, buf.String(), `"relation":"Parent"`)
}

func TestBuild_DuplicateRelation(t *testing.T) {
	parent, _ := parentChild(t)
	_, err := Build(context.Background(), []Entry{{Relation: parent}, {Relation: parent}}, true)
	assert.True(t, errs.IsSchemaInconsistent(err))
}

func TestBuild_CyclicForeignKeysTerminate(t *testing.T) {
	a := model.MustRelation("A", []*model.Attribute{
		model.NewAttribute("a", model.TypeIntegerIncr),
		model.NewAttribute("ref_b", model.TypeIntegerIncr),
	}, "a")
	b := model.MustRelation("B", []*model.Attribute{
		model.NewAttribute("b", model.TypeIntegerIncr),
		model.NewAttribute("ref_a", model.TypeInteger,
			model.WithGenerator(generator.FromSequence(generator.RandomInt(1, 6, 5)))),
	}, "b")
	_, err := a.AddForeignKey([]string{"ref_b"}, b, map[string]string{"ref_b": "b"})
	require.NoError(t, err)
	_, err = b.AddForeignKey([]string{"ref_a"}, a, map[string]string{"ref_a": "a"})
	require.NoError(t, err)

	db, err := Build(context.Background(), []Entry{{Relation: a, Spec: count(3)}, {Relation: b, Spec: count(0)}}, true)
	require.NoError(t, err)

	ai, _ := db.Instance("A")
	bi, _ := db.Instance("B")
	assert.LessOrEqual(t, ai.Size(), 6)
	assert.GreaterOrEqual(t, bi.Size(), 3)
	assertReferentialIntegrity(t, db)
	assertCounters(t, db)
}

func TestBuild_SelfReference(t *testing.T) {
	emp := model.MustRelation("Employee", []*model.Attribute{
		model.NewAttribute("id", model.TypeInteger,
			model.WithGenerator(generator.FromSequence(generator.RandomInt(1, 10, 1)))),
		model.NewAttribute("manager", model.TypeInteger,
			model.WithGenerator(generator.FromSequence(generator.RandomInt(1, 10, 2)))),
	}, "id")
	_, err := emp.AddForeignKey([]string{"manager"}, emp, map[string]string{"manager": "id"})
	require.NoError(t, err)

	db, err := Build(context.Background(), []Entry{{Relation: emp, Spec: count(4)}}, true)
	require.NoError(t, err)

	e, _ := db.Instance("Employee")
	assert.LessOrEqual(t, e.Size(), 10)
	assertReferentialIntegrity(t, db)
}

// university mirrors a members/faculties/sites schema where the foreign key
// into Faculties covers only a prefix of its primary key.
func university(t *testing.T) (univ, faculties, sites *model.Relation) {
	t.Helper()
	facs := []string{"sciences", "EII", "SHS", "FPSE", "FMM"}

	role := generator.FromFunc(func(v generator.Values) any {
		m, _ := strconv.Atoi(v["matricule"])
		if m%10 == 0 {
			return "professor"
		}
		return "student"
	})
	univ = model.MustRelation("UnivMembers", []*model.Attribute{
		model.NewAttribute("matricule", model.TypeIntegerIncr),
		model.NewAttribute("persid", model.TypeString),
		model.NewAttribute("faculty", model.TypeString,
			model.WithGenerator(generator.FromSequence(generator.Choice(facs, 11)))),
		model.NewAttribute("role", model.TypeString, model.WithRank(2), model.WithGenerator(role)),
	}, "matricule")

	label, err := generator.Template("{{.city}}-{{.faculty}}")
	require.NoError(t, err)
	faculties = model.MustRelation("Faculties", []*model.Attribute{
		model.NewAttribute("faculty", model.TypeString,
			model.WithGenerator(generator.FromSequence(generator.Choice(facs, 12)))),
		model.NewAttribute("city", model.TypeString,
			model.WithGenerator(generator.FromSequence(generator.Constant("Mons")))),
		model.NewAttribute("sitelabel", model.TypeString, model.WithRank(2), model.WithGenerator(label)),
	}, "faculty", "city")

	sites = model.MustRelation("UsedSites", nil)
	require.NoError(t, sites.AddAttribute(model.NewAttribute("shortcut", model.TypeString), "sitelabel", true))

	_, err = univ.AddForeignKey([]string{"faculty"}, faculties, nil)
	require.NoError(t, err)
	_, err = faculties.AddForeignKey([]string{"sitelabel"}, sites, nil)
	require.NoError(t, err)
	return univ, faculties, sites
}

func TestBuild_TransitivePrefixKeys(t *testing.T) {
	univ, faculties, sites := university(t)

	db, err := Build(context.Background(), []Entry{
		{Relation: univ, Spec: instance.InstantiationSpec{Groups: []instance.Group{
			{Count: 10, Fixed: model.Values{"faculty": "sciences"}},
		}}},
		{Relation: faculties},
		{Relation: sites},
	}, true)
	require.NoError(t, err)

	u, _ := db.Instance("UnivMembers")
	f, _ := db.Instance("Faculties")
	s, _ := db.Instance("UsedSites")
	assert.Equal(t, 10, u.Size())
	assert.Equal(t, "professor", u.Values(9)["role"])
	assert.Equal(t, [][]string{{"sciences", "Mons", "Mons-sciences"}}, rows(f))
	assert.Equal(t, []string{"Mons-sciences"}, rows(s)[0])
	assert.Equal(t, 1, s.Size())
	assertReferentialIntegrity(t, db)

	require.NoError(t, db.Degenerate(context.Background(), []DegenerationEntry{
		{Relation: "UnivMembers", Spec: instance.DegenerationSpec{Count: 5}},
	}))
	assert.Equal(t, 15, u.Size())
	assert.Equal(t, 5, u.Degenerated())
	for i := 10; i < 15; i++ {
		assert.Equal(t, u.Values(i-10)["matricule"], u.Values(i)["matricule"])
	}
	assert.Equal(t, f.Size(), s.Size())
	assertReferentialIntegrity(t, db)
	assertCounters(t, db)
}

func TestBuild_PrefixKeyObligationsForgeFreshKeys(t *testing.T) {
	members := model.MustRelation("Members", []*model.Attribute{
		model.NewAttribute("id", model.TypeIntegerIncr),
		model.NewAttribute("faculty", model.TypeString,
			model.WithGenerator(generator.FromSequence(generator.Constant("sciences")))),
	}, "id")
	faculties := model.MustRelation("Faculties", []*model.Attribute{
		model.NewAttribute("faculty", model.TypeString),
		model.NewAttribute("city", model.TypeStringIncr),
	}, "faculty", "city")
	_, err := members.AddForeignKey([]string{"faculty"}, faculties, nil)
	require.NoError(t, err)

	db, err := Build(context.Background(), []Entry{
		{Relation: members, Spec: count(3)},
		{Relation: faculties},
	}, true)
	require.NoError(t, err)

	f, _ := db.Instance("Faculties")
	assert.Equal(t, [][]string{{"sciences", "aaaaa"}, {"sciences", "aaaab"}, {"sciences", "aaaac"}}, rows(f))
	assert.Equal(t, 3, f.Constrained())
	assertReferentialIntegrity(t, db)
	assertCounters(t, db)
}

// endlessPrefixCycle owes itself a fresh row for every row it stores: the
// foreign key fixes only the first key attribute and the second is always new.
func endlessPrefixCycle(t *testing.T) *model.Relation {
	t.Helper()
	x := func() *generator.Generator { return generator.FromSequence(generator.Constant("x")) }
	r := model.MustRelation("Tree", []*model.Attribute{
		model.NewAttribute("root", model.TypeString, model.WithGenerator(x())),
		model.NewAttribute("node", model.TypeIntegerIncr),
		model.NewAttribute("parent_root", model.TypeString, model.WithGenerator(x())),
	}, "root", "node")
	_, err := r.AddForeignKey([]string{"parent_root"}, r, map[string]string{"parent_root": "root"})
	require.NoError(t, err)
	return r
}

func TestBuild_StopsWhenContextDone(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Output: &buf})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := Build(ctx, []Entry{{Relation: endlessPrefixCycle(t), Spec: count(1)}}, true, WithLogger(log))
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))
	assert.Contains(t, buf.String(), "propagation interrupted")

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = Build(ctx, []Entry{{Relation: endlessPrefixCycle(t), Spec: count(1)}}, true)
	assert.True(t, errs.IsTimeout(err))
}

func TestDegenerate_StopsWhenContextDone(t *testing.T) {
	parent, child := parentChild(t)
	db, err := Build(context.Background(), []Entry{{Relation: child, Spec: count(2)}, {Relation: parent}}, true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = db.Degenerate(ctx, []DegenerationEntry{{Relation: "Child", Spec: instance.DegenerationSpec{Count: 1}}})
	assert.True(t, errs.IsTimeout(err))
	c, _ := db.Instance("Child")
	assert.Equal(t, 2, c.Size())
}

func TestDegenerate_UnknownRelation(t *testing.T) {
	parent, _ := parentChild(t)
	db, err := Build(context.Background(), []Entry{{Relation: parent, Spec: count(1)}}, true)
	require.NoError(t, err)

	err = db.Degenerate(context.Background(), []DegenerationEntry{{Relation: "Ghost", Spec: instance.DegenerationSpec{Count: 1}}})
	assert.True(t, errs.IsNotFound(err))
}

func TestQueue_MergeOnEnqueue(t *testing.T) {
	q := newQueue()
	first := instance.NewObligations()
	first.Add("P", model.Values{"pk": "1"})
	first.Add("Q", model.Values{"id": "a"})
	q.push(first, false)

	second := instance.NewObligations()
	second.Add("P", model.Values{"pk": "2"})
	q.push(second, false)
	q.push(second, true)

	require.Equal(t, 3, q.len())
	p, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, "P", p.target)
	assert.Len(t, p.partials, 2)

	q.push(second, false)
	p, _ = q.pop()
	assert.Equal(t, "Q", p.target)
	p, _ = q.pop()
	assert.True(t, p.degenerated)
	p, _ = q.pop()
	assert.Equal(t, "P", p.target)
	assert.Len(t, p.partials, 1)

	_, ok = q.pop()
	assert.False(t, ok)
}
