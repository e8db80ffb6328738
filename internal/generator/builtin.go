package generator

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultIntMin        = 0
	DefaultIntMax        = 100000
	DefaultStringLength  = 8
	DefaultStringAlpha   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultIncrLength    = 5
	DefaultIncrLetters   = "abcdefghijklmnopqrstuvwxyz"
	DefaultFallbackWord  = "word"
	DefaultWordMinLength = 4
)

var (
	DefaultDateFrom = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	DefaultDateTo   = time.Date(2030, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// --- counters ---

type incrementInt struct {
	start, step, cur int
	started          bool
}

// IncrementInt yields start, start+step, start+2*step, ...
func IncrementInt(start, step int) Sequence {
	if step == 0 {
		step = 1
	}
	return &incrementInt{start: start, step: step}
}

func (s *incrementInt) Next() any {
	if !s.started {
		s.started = true
		s.cur = s.start
		return s.cur
	}
	s.cur += s.step
	return s.cur
}

func (s *incrementInt) Reset()          { s.started = false }
func (s *incrementInt) Clone() Sequence { c := *s; return &c }

type incrementString struct {
	letters     []rune
	startLength int
	step        int
	digits      []int
	started     bool
}

// IncrementString counts in base len(letters) over a fixed alphabet,
// starting from startLength copies of the first letter. When every position
// overflows the string grows by one leading letter: with the default
// alphabet "zzzzz" is followed by "aaaaaa".
func IncrementString(startLength int, letters string, step int) Sequence {
	if letters == "" {
		letters = DefaultIncrLetters
	}
	if startLength <= 0 {
		startLength = 1
	}
	if step <= 0 {
		step = 1
	}
	return &incrementString{letters: []rune(letters), startLength: startLength, step: step}
}

func (s *incrementString) Next() any {
	if !s.started {
		s.started = true
		s.digits = make([]int, s.startLength)
		return s.render()
	}
	base := len(s.letters)
	carry := s.step
	for i := len(s.digits) - 1; i >= 0 && carry > 0; i-- {
		sum := s.digits[i] + carry
		s.digits[i] = sum % base
		carry = sum / base
	}
	if carry > 0 {
		s.digits = append([]int{0}, s.digits...)
	}
	return s.render()
}

func (s *incrementString) render() string {
	var b strings.Builder
	for _, d := range s.digits {
		b.WriteRune(s.letters[d])
	}
	return b.String()
}

func (s *incrementString) Reset() {
	s.started = false
	s.digits = nil
}

func (s *incrementString) Clone() Sequence {
	c := *s
	c.digits = append([]int(nil), s.digits...)
	return &c
}

// --- seeded random draws ---

// seeded holds the RNG shared by every random sequence. Reset reseeds it so
// a reset generator replays the same stream.
type seeded struct {
	seed uint64
	rng  *rand.Rand
}

func newSeeded(seed uint64) seeded {
	return seeded{seed: seed, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seeded) reseed() {
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
}

type randomInt struct {
	seeded
	min, max int
}

// RandomInt draws uniformly from [min, max].
func RandomInt(min, max int, seed uint64) Sequence {
	if max < min {
		min, max = max, min
	}
	return &randomInt{seeded: newSeeded(seed), min: min, max: max}
}

func (s *randomInt) Next() any       { return s.min + s.rng.IntN(s.max-s.min+1) }
func (s *randomInt) Reset()          { s.reseed() }
func (s *randomInt) Clone() Sequence { return RandomInt(s.min, s.max, s.seed) }

type randomString struct {
	seeded
	length   int
	alphabet []rune
}

// RandomString draws length characters from alphabet.
func RandomString(length int, alphabet string, seed uint64) Sequence {
	if length <= 0 {
		length = DefaultStringLength
	}
	if alphabet == "" {
		alphabet = DefaultStringAlpha
	}
	return &randomString{seeded: newSeeded(seed), length: length, alphabet: []rune(alphabet)}
}

func (s *randomString) Next() any {
	out := make([]rune, s.length)
	for i := range out {
		out[i] = s.alphabet[s.rng.IntN(len(s.alphabet))]
	}
	return string(out)
}

func (s *randomString) Reset() { s.reseed() }
func (s *randomString) Clone() Sequence {
	return RandomString(s.length, string(s.alphabet), s.seed)
}

type randomDate struct {
	seeded
	from time.Time
	days int
}

// RandomDate draws a calendar day in [from, to], rendered as YYYY-MM-DD.
func RandomDate(from, to time.Time, seed uint64) Sequence {
	if to.Before(from) {
		from, to = to, from
	}
	days := int(to.Sub(from).Hours() / 24)
	return &randomDate{seeded: newSeeded(seed), from: from, days: days}
}

func (s *randomDate) Next() any {
	return s.from.AddDate(0, 0, s.rng.IntN(s.days+1)).Format(time.DateOnly)
}

func (s *randomDate) Reset() { s.reseed() }
func (s *randomDate) Clone() Sequence {
	return RandomDate(s.from, s.from.AddDate(0, 0, s.days), s.seed)
}

type randomBool struct {
	seeded
}

// RandomBool yields "0" or "1".
func RandomBool(seed uint64) Sequence {
	return &randomBool{seeded: newSeeded(seed)}
}

func (s *randomBool) Next() any       { return s.rng.IntN(2) }
func (s *randomBool) Reset()          { s.reseed() }
func (s *randomBool) Clone() Sequence { return RandomBool(s.seed) }

type choice struct {
	seeded
	values []string
}

// Choice draws one of values uniformly.
func Choice(values []string, seed uint64) Sequence {
	return &choice{seeded: newSeeded(seed), values: append([]string(nil), values...)}
}

func (s *choice) Next() any {
	if len(s.values) == 0 {
		return ""
	}
	return s.values[s.rng.IntN(len(s.values))]
}

func (s *choice) Reset()          { s.reseed() }
func (s *choice) Clone() Sequence { return Choice(s.values, s.seed) }

type randomUUID struct {
	seed uint64
	src  *rand.ChaCha8
}

// UUID yields version 4 UUIDs drawn from a seeded stream.
func UUID(seed uint64) Sequence {
	s := &randomUUID{seed: seed}
	s.Reset()
	return s
}

func (s *randomUUID) Next() any {
	id, err := uuid.NewRandomFromReader(s.src)
	if err != nil {
		return uuid.Nil.String()
	}
	return id.String()
}

func (s *randomUUID) Reset() {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], s.seed)
	s.src = rand.NewChaCha8(key)
}

func (s *randomUUID) Clone() Sequence { return UUID(s.seed) }

// --- fixed values ---

type constant struct {
	value string
}

// Constant always yields value.
func Constant(value string) Sequence {
	return &constant{value: value}
}

func (s *constant) Next() any       { return s.value }
func (s *constant) Reset()          {}
func (s *constant) Clone() Sequence { return &constant{value: s.value} }

type words struct {
	seeded
	all     []string
	order   []int
	shuffle bool
	pos     int
}

// Words cycles through the entries of list at least minLength runes long,
// optionally in a seeded shuffled order. An empty selection yields "word".
func Words(list []string, minLength int, shuffle bool, seed uint64) Sequence {
	var kept []string
	for _, w := range list {
		w = strings.TrimSpace(w)
		if len([]rune(w)) >= minLength && w != "" {
			kept = append(kept, w)
		}
	}
	s := &words{seeded: newSeeded(seed), all: kept, shuffle: shuffle}
	s.Reset()
	return s
}

func (s *words) Next() any {
	if len(s.all) == 0 {
		return DefaultFallbackWord
	}
	w := s.all[s.order[s.pos]]
	s.pos = (s.pos + 1) % len(s.all)
	return w
}

func (s *words) Reset() {
	s.reseed()
	s.pos = 0
	s.order = make([]int, len(s.all))
	for i := range s.order {
		s.order[i] = i
	}
	if s.shuffle {
		s.rng.Shuffle(len(s.order), func(i, j int) { s.order[i], s.order[j] = s.order[j], s.order[i] })
	}
}

func (s *words) Clone() Sequence {
	c := &words{seeded: newSeeded(s.seed), all: s.all, shuffle: s.shuffle}
	c.Reset()
	return c
}

// LoadWords reads a newline separated dictionary file.
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	var list []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		list = append(list, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return list, nil
}
