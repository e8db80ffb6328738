package model

import (
	"fmt"
	"strings"

	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/generator"
)

// Values maps attribute names to textual values. It is the shape of both a
// partially resolved tuple and a foreign key obligation.
type Values = generator.Values

// AttributeType tags the kind of values an attribute holds.
type AttributeType string

const (
	TypeInteger     AttributeType = "INTEGER"
	TypeString      AttributeType = "STRING"
	TypeDate        AttributeType = "DATE"
	TypeIntegerIncr AttributeType = "INTEGER_INCR"
	TypeStringIncr  AttributeType = "STRING_INCR"
)

// DefaultRank is the generation rank of an attribute declared without one.
const DefaultRank = 1

var attributeTypes = []AttributeType{TypeInteger, TypeString, TypeDate, TypeIntegerIncr, TypeStringIncr}

// ParseAttributeType accepts a type tag case-insensitively.
func ParseAttributeType(s string) (AttributeType, error) {
	want := AttributeType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range attributeTypes {
		if t == want {
			return t, nil
		}
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "unknown attribute type %q", s)
}

// DefaultGenerator returns the generator used when an attribute of this type
// is declared without one. seed only matters for random types.
func (t AttributeType) DefaultGenerator(seed uint64) *generator.Generator {
	switch t {
	case TypeIntegerIncr:
		return generator.FromSequence(generator.IncrementInt(1, 1))
	case TypeStringIncr:
		return generator.FromSequence(generator.IncrementString(generator.DefaultIncrLength, generator.DefaultIncrLetters, 1))
	case TypeString:
		return generator.FromSequence(generator.RandomString(generator.DefaultStringLength, generator.DefaultStringAlpha, seed))
	case TypeDate:
		return generator.FromSequence(generator.RandomDate(generator.DefaultDateFrom, generator.DefaultDateTo, seed))
	default:
		return generator.FromSequence(generator.RandomInt(generator.DefaultIntMin, generator.DefaultIntMax, seed))
	}
}

// SQLType is the column type used when creating a table for the attribute.
func (t AttributeType) SQLType() string {
	switch t {
	case TypeInteger, TypeIntegerIncr:
		return "BIGINT"
	case TypeDate:
		return "DATE"
	default:
		return "VARCHAR(255)"
	}
}

// Attribute describes one column: its type tag, the generator producing its
// values and the rank controlling when it is resolved inside a tuple.
type Attribute struct {
	Name        string
	Type        AttributeType
	Generator   *generator.Generator
	Rank        int
	Description string
}

// AttributeOption customises an Attribute built by NewAttribute.
type AttributeOption func(*Attribute)

// WithGenerator replaces the type's default generator.
func WithGenerator(g *generator.Generator) AttributeOption {
	return func(a *Attribute) {
		if g != nil {
			a.Generator = g
		}
	}
}

// WithRank sets the generation rank. Negative ranks clamp to 0.
func WithRank(rank int) AttributeOption {
	return func(a *Attribute) {
		a.Rank = max(rank, 0)
	}
}

func WithDescription(desc string) AttributeOption {
	return func(a *Attribute) {
		a.Description = desc
	}
}

// NewAttribute declares an attribute. An empty type means TypeInteger.
func NewAttribute(name string, typ AttributeType, opts ...AttributeOption) *Attribute {
	if typ == "" {
		typ = TypeInteger
	}
	a := &Attribute{Name: name, Type: typ, Rank: DefaultRank}
	for _, opt := range opts {
		opt(a)
	}
	if a.Generator == nil {
		a.Generator = typ.DefaultGenerator(generator.SeedFor(name))
	}
	return a
}

// Clone returns a copy owning a fresh generator.
func (a *Attribute) Clone() *Attribute {
	c := *a
	if a.Generator != nil {
		c.Generator = a.Generator.Clone()
	}
	return &c
}

func (a *Attribute) String() string {
	s := fmt.Sprintf("%s %s rank=%d gen=%s", a.Name, a.Type, a.Rank, a.Generator.Kind())
	if a.Description != "" {
		s += " (" + a.Description + ")"
	}
	return s
}
