package instance

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/generator"
	"github.com/koustreak/datforge/internal/model"
)

func parentChild(t *testing.T) (*model.Relation, *model.Relation) {
	t.Helper()
	parent, err := model.NewRelation("Parent", []*model.Attribute{
		model.NewAttribute("pk", model.TypeIntegerIncr),
		model.NewAttribute("label", model.TypeStringIncr),
	}, "pk")
	require.NoError(t, err)
	child, err := model.NewRelation("Child", []*model.Attribute{
		model.NewAttribute("pk", model.TypeIntegerIncr),
		model.NewAttribute("parent_ref", model.TypeIntegerIncr),
	}, "pk")
	require.NoError(t, err)
	_, err = child.AddForeignKey([]string{"parent_ref"}, parent, map[string]string{"parent_ref": "pk"})
	require.NoError(t, err)
	return parent, child
}

func values(inst *Instance) [][]string {
	out := make([][]string, inst.Size())
	for n, t := range inst.Tuples() {
		out[n] = t.Values
	}
	return out
}

func assertCounters(t *testing.T, inst *Instance) {
	t.Helper()
	assert.Equal(t, inst.Size(), inst.Generated()+inst.Constrained()+inst.Degenerated())
}

func TestFeed_Counters(t *testing.T) {
	parent, _ := parentChild(t)
	inst, err := New(parent, nil)
	require.NoError(t, err)

	require.NoError(t, inst.FeedFields([][]model.Field{
		{{Name: "pk", Value: "1"}, {Name: "label", Value: "valueeeee"}},
	}, false, false))
	require.NoError(t, inst.Feed([][]string{{"2", "longvalforlabel"}}, false, false))
	require.NoError(t, inst.Feed([][]string{{"3", "from_constraint"}}, true, false))
	require.NoError(t, inst.Feed([][]string{{"4", "degenerated"}}, false, true))
	require.NoError(t, inst.Feed([][]string{{"5", "both"}}, true, true))

	assert.Equal(t, 5, inst.Size())
	assert.Equal(t, 2, inst.Generated())
	assert.Equal(t, 2, inst.Constrained())
	assert.Equal(t, 1, inst.Degenerated())
	assertCounters(t, inst)

	last := inst.Tuples()[4]
	assert.True(t, last.FromConstraint)
	assert.True(t, last.Degenerated)
}

func TestFeedFields_NameMismatch(t *testing.T) {
	parent, _ := parentChild(t)
	inst, err := New(parent, nil)
	require.NoError(t, err)

	err = inst.FeedFields([][]model.Field{
		{{Name: "label", Value: "x"}, {Name: "pk", Value: "1"}},
	}, false, false)
	require.Error(t, err)
	assert.True(t, errs.IsSchemaInconsistent(err))
	assert.Equal(t, 0, inst.Size())

	err = inst.Feed([][]string{{"1"}}, false, false)
	assert.True(t, errs.IsSchemaInconsistent(err))
}

func TestNew_DuplicateProjection(t *testing.T) {
	parent, _ := parentChild(t)
	_, err := New(parent, []string{"pk", "pk"})
	assert.True(t, errs.IsSchemaInconsistent(err))
}

func TestInstantiate_GroupsAndObligations(t *testing.T) {
	_, child := parentChild(t)

	inst, ob, err := Instantiate(child, InstantiationSpec{Groups: []Group{
		{Count: 2},
		{Count: 1, Fixed: model.Values{"parent_ref": "42"}},
	}})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"1", "1"}, {"2", "2"}, {"3", "42"}}, values(inst))
	assert.Equal(t, 3, inst.Generated())
	assert.Equal(t, []string{"Parent"}, ob.Targets())
	assert.Equal(t, []model.Values{{"pk": "1"}, {"pk": "2"}, {"pk": "42"}}, ob.For("Parent"))
}

func TestInstantiate_RespectFKOff(t *testing.T) {
	_, child := parentChild(t)
	off := false
	_, ob, err := Instantiate(child, InstantiationSpec{Groups: []Group{{Count: 3}}, RespectFK: &off})
	require.NoError(t, err)
	assert.True(t, ob.Empty())
}

func TestInstantiate_ProjectionWithoutFKDropsObligations(t *testing.T) {
	_, child := parentChild(t)
	inst, ob, err := Instantiate(child, InstantiationSpec{
		Groups:     []Group{{Count: 2}},
		Projection: []string{"pk"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1"}, {"2"}}, values(inst))
	assert.True(t, ob.Empty())
}

func TestInstantiate_UnknownProjection(t *testing.T) {
	_, child := parentChild(t)
	_, _, err := Instantiate(child, InstantiationSpec{
		Groups:     []Group{{Count: 1}},
		Projection: []string{"pk", "ghost"},
	})
	assert.True(t, errs.IsSchemaInconsistent(err))
}

func TestInstantiate_IndependentGenerators(t *testing.T) {
	_, child := parentChild(t)

	first, _, err := Instantiate(child, InstantiationSpec{Groups: []Group{{Count: 2}}})
	require.NoError(t, err)
	second, _, err := Instantiate(child, InstantiationSpec{Groups: []Group{{Count: 2}}})
	require.NoError(t, err)

	assert.Equal(t, values(first), values(second))
	assert.Equal(t, "1", second.Tuples()[0].Values[0])
}

func TestGenerateNewTuple_DropsDuplicateKeys(t *testing.T) {
	r := model.MustRelation("R", []*model.Attribute{
		model.NewAttribute("k", model.TypeInteger, model.WithGenerator(generator.FromSequence(generator.Constant("7")))),
		model.NewAttribute("v", model.TypeIntegerIncr),
	}, "k")

	inst, _, err := Instantiate(r, InstantiationSpec{Groups: []Group{{Count: 5}}})
	require.NoError(t, err)
	assert.Equal(t, 1, inst.Size())

	batch := NewBatch()
	_, ok, err := inst.GenerateNewTuple(nil, batch, true)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = inst.GenerateNewTuple(model.Values{"k": "8"}, batch, true)
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = inst.GenerateNewTuple(model.Values{"k": "8"}, batch, true)
	require.NoError(t, err)
	assert.False(t, ok, "same-batch key must be rejected")
	assert.Equal(t, 1, batch.Len())

	_, ok, err = inst.GenerateNewTuple(nil, nil, false)
	require.NoError(t, err)
	assert.True(t, ok)

	dup, _, err := Instantiate(r, InstantiationSpec{Groups: []Group{{Count: 3}}, AllowDuplicateKeys: true})
	require.NoError(t, err)
	assert.Equal(t, 3, dup.Size())
}

func TestPrimaryKeyUniqueness(t *testing.T) {
	r := model.MustRelation("R", []*model.Attribute{
		model.NewAttribute("k", model.TypeInteger, model.WithGenerator(generator.FromSequence(generator.RandomInt(0, 20, 3)))),
		model.NewAttribute("v", model.TypeString),
	}, "k")

	inst, _, err := Instantiate(r, InstantiationSpec{Groups: []Group{{Count: 100}}})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, tup := range inst.Tuples() {
		assert.False(t, seen[tup.Values[0]], "duplicate key %s", tup.Values[0])
		seen[tup.Values[0]] = true
	}
	assert.LessOrEqual(t, inst.Size(), 21)
	assertCounters(t, inst)
}

func TestGenerateAndFeed_ConstraintDedupsOnFullKey(t *testing.T) {
	course := model.MustRelation("Course", []*model.Attribute{
		model.NewAttribute("code", model.TypeStringIncr),
		model.NewAttribute("year", model.TypeIntegerIncr),
	}, "code", "year")

	inst, err := New(course, nil)
	require.NoError(t, err)

	ob, err := inst.GenerateAndFeed([]model.Values{
		{"code": "algo"}, {"code": "algo"}, {"code": "db"},
	}, true, false, true)
	require.NoError(t, err)
	assert.True(t, ob.Empty())
	assert.Equal(t, [][]string{{"algo", "1"}, {"algo", "2"}, {"db", "3"}}, values(inst))
	assert.Equal(t, 3, inst.Constrained())

	_, err = inst.GenerateAndFeed([]model.Values{
		{"code": "db", "year": "3"}, {"code": "algo", "year": "1"}, {"code": "db", "year": "9"},
	}, true, false, true)
	require.NoError(t, err)
	assert.Equal(t, 4, inst.Size())
	assert.True(t, inst.Contains(model.Values{"code": "db", "year": "9"}))
	assertCounters(t, inst)
}

func TestSelectIndices(t *testing.T) {
	parent, _ := parentChild(t)
	inst, _, err := Instantiate(parent, InstantiationSpec{Groups: []Group{{Count: 5}}})
	require.NoError(t, err)

	even := func(tup Tuple) bool { return tup.Values[0] == "2" || tup.Values[0] == "4" }

	tests := []struct {
		name     string
		count    int
		selector Selector
		want     []int
	}{
		{"sequential", 3, nil, []int{0, 1, 2}},
		{"all", 5, nil, []int{0, 1, 2, 3, 4}},
		{"cyclic padding", 12, nil, []int{0, 1, 2, 3, 4, 0, 1, 2, 3, 4, 0, 1}},
		{"selector", 2, even, []int{1, 3}},
		{"selector padded", 5, even, []int{1, 3, 1, 3, 1}},
		{"selector stops at count", 1, even, []int{1}},
		{"nothing matches", 3, func(Tuple) bool { return false }, nil},
		{"zero", 0, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inst.SelectIndices(tt.count, tt.selector, false, nil))
		})
	}

	empty, err := New(parent, nil)
	require.NoError(t, err)
	assert.Empty(t, empty.SelectIndices(3, nil, false, nil))
}

func TestSelectIndices_RandomExactCount(t *testing.T) {
	parent, _ := parentChild(t)
	inst, _, err := Instantiate(parent, InstantiationSpec{Groups: []Group{{Count: 7}}})
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	odd := func(tup Tuple) bool { return tup.Values[0] == "1" || tup.Values[0] == "3" || tup.Values[0] == "5" }
	for count := 1; count <= 20; count++ {
		got := inst.SelectIndices(count, odd, true, rng)
		require.Len(t, got, count)
		for _, idx := range got {
			assert.True(t, odd(inst.Tuples()[idx]))
		}
	}

	a := inst.SelectIndices(7, nil, true, nil)
	b := inst.SelectIndices(7, nil, true, nil)
	assert.Equal(t, a, b, "default source is seeded from the relation name")
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6}, a)
}

func TestDegenerate_KeepsKeyRegeneratesRest(t *testing.T) {
	_, child := parentChild(t)
	inst, _, err := Instantiate(child, InstantiationSpec{Groups: []Group{{Count: 3}}})
	require.NoError(t, err)

	ob, err := inst.Degenerate(DegenerationSpec{Count: 2})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"1", "1"}, {"2", "2"}, {"3", "3"}, {"1", "4"}, {"2", "5"}}, values(inst))
	assert.Equal(t, 3, inst.Generated())
	assert.Equal(t, 2, inst.Degenerated())
	assertCounters(t, inst)
	assert.Equal(t, []model.Values{{"pk": "4"}, {"pk": "5"}}, ob.For("Parent"))
}

func TestDegenerateAt_FixedAttributes(t *testing.T) {
	_, child := parentChild(t)
	inst, _, err := Instantiate(child, InstantiationSpec{Groups: []Group{{Count: 2}}})
	require.NoError(t, err)

	_, err = inst.DegenerateAt([]int{1, 1}, []string{"parent_ref"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "1"}, {"2", "2"}, {"3", "2"}, {"4", "2"}}, values(inst))

	_, err = inst.DegenerateAt([]int{9}, nil)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestObligations_Merge(t *testing.T) {
	a := NewObligations()
	a.Add("P", model.Values{"pk": "1"})
	b := NewObligations()
	b.Add("Q", model.Values{"id": "x"})
	b.Add("P", model.Values{"pk": "1"})
	a.Merge(b)
	a.Merge(nil)
	a.Add("Z")

	assert.Equal(t, []string{"P", "Q"}, a.Targets())
	assert.Len(t, a.For("P"), 2)
	assert.Equal(t, 3, a.Len())
}
