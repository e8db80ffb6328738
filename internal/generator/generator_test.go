package generator

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func take(g *Generator, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = g.Value(nil)
	}
	return out
}

func TestIncrementInt(t *testing.T) {
	g := FromSequence(IncrementInt(1, 1))
	assert.Equal(t, []string{"1", "2", "3", "4"}, take(g, 4))

	g = FromSequence(IncrementInt(10, 5))
	assert.Equal(t, []string{"10", "15", "20"}, take(g, 3))
}

func TestIncrementString(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		letters string
		want    []string
	}{
		{
			name:    "default alphabet",
			length:  DefaultIncrLength,
			letters: DefaultIncrLetters,
			want:    []string{"aaaaa", "aaaab", "aaaac"},
		},
		{
			name:    "grows on overflow",
			length:  1,
			letters: "ab",
			want:    []string{"a", "b", "aa", "ab", "ba", "bb", "aaa"},
		},
		{
			name:    "carry across positions",
			length:  2,
			letters: "abc",
			want:    []string{"aa", "ab", "ac", "ba"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := FromSequence(IncrementString(tt.length, tt.letters, 1))
			assert.Equal(t, tt.want, take(g, len(tt.want)))
		})
	}
}

func TestReset_RestartsSequences(t *testing.T) {
	seqs := map[string]Sequence{
		"increment int":    IncrementInt(1, 1),
		"increment string": IncrementString(3, "xyz", 1),
		"random int":       RandomInt(0, 1000, 7),
		"random string":    RandomString(6, "", 7),
		"random date":      RandomDate(DefaultDateFrom, DefaultDateTo, 7),
		"random bool":      RandomBool(7),
		"choice":           Choice([]string{"a", "b", "c"}, 7),
		"uuid":             UUID(7),
		"words":            Words([]string{"alpha", "beta", "gamma", "delta"}, 4, true, 7),
	}

	for name, seq := range seqs {
		t.Run(name, func(t *testing.T) {
			g := FromSequence(seq)
			first := take(g, 5)
			g.Reset()
			assert.Equal(t, first, take(g, 5))
		})
	}
}

func TestClone_IsIndependentAndStartsOver(t *testing.T) {
	g := FromSequence(IncrementInt(1, 1))
	take(g, 3)

	c := g.Clone()
	assert.Equal(t, "1", c.Value(nil))
	assert.Equal(t, "4", g.Value(nil))
	assert.Equal(t, "2", c.Value(nil))
}

func TestContextGenerator(t *testing.T) {
	g := FromFunc(func(v Values) any {
		n, _ := strconv.Atoi(v["matricule"])
		if n%10 == 0 {
			return "professor"
		}
		return "student"
	})

	assert.Equal(t, KindContext, g.Kind())
	_, ok := g.Advance()
	assert.False(t, ok)
	assert.Equal(t, "professor", g.Value(Values{"matricule": "10"}))
	assert.Equal(t, "student", g.Value(Values{"matricule": "11"}))
}

func TestContextGenerator_CannotMutateCallerValues(t *testing.T) {
	g := FromFunc(func(v Values) any {
		v["leak"] = "x"
		return 1
	})
	values := Values{"a": "1"}
	assert.Equal(t, "1", g.Value(values))
	assert.NotContains(t, values, "leak")
}

func TestNormalisesToText(t *testing.T) {
	tests := []struct {
		name string
		out  any
		want string
	}{
		{"int", 42, "42"},
		{"float", 1.5, "1.5"},
		{"bool", true, "true"},
		{"string", "x", "x"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := FromFunc(func(Values) any { return tt.out })
			assert.Equal(t, tt.want, g.Value(nil))
		})
	}
}

func TestRandomInt_Bounds(t *testing.T) {
	g := FromSequence(RandomInt(5, 7, 1))
	for _, v := range take(g, 200) {
		n, err := strconv.Atoi(v)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 5)
		assert.LessOrEqual(t, n, 7)
	}
}

func TestRandomString_Shape(t *testing.T) {
	g := FromSequence(RandomString(DefaultStringLength, DefaultStringAlpha, 3))
	re := regexp.MustCompile(`^[A-Z0-9]{8}$`)
	for _, v := range take(g, 20) {
		assert.Regexp(t, re, v)
	}
}

func TestRandomDate_InRange(t *testing.T) {
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)
	g := FromSequence(RandomDate(from, to, 9))
	for _, v := range take(g, 30) {
		assert.Contains(t, []string{"2020-01-01", "2020-01-02", "2020-01-03"}, v)
	}
}

func TestUUID_Format(t *testing.T) {
	g := FromSequence(UUID(11))
	re := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	vals := take(g, 3)
	for _, v := range vals {
		assert.Regexp(t, re, v)
	}
	assert.NotEqual(t, vals[0], vals[1])
}

func TestWords(t *testing.T) {
	g := FromSequence(Words([]string{"ab", "alpha", "beta", " "}, 4, false, 0))
	assert.Equal(t, []string{"alpha", "beta", "alpha"}, take(g, 3))

	empty := FromSequence(Words(nil, 4, false, 0))
	assert.Equal(t, DefaultFallbackWord, empty.Value(nil))
}

func TestLoadWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words")
	require.NoError(t, os.WriteFile(path, []byte("apple\nbanana\n"), 0o644))

	list, err := LoadWords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana"}, list)

	_, err = LoadWords(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestTemplate(t *testing.T) {
	g, err := Template("{{.city}}-{{.faculty}}")
	require.NoError(t, err)
	assert.Equal(t, "Mons-sciences", g.Value(Values{"city": "Mons", "faculty": "sciences"}))
	assert.Equal(t, "Mons-", g.Value(Values{"city": "Mons"}))

	_, err = Template("{{.broken")
	assert.Error(t, err)
}

func TestSeedFor_Stable(t *testing.T) {
	assert.Equal(t, SeedFor("pk"), SeedFor("pk"))
	assert.NotEqual(t, SeedFor("pk"), SeedFor("fk"))
}
