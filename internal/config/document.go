// Package config decodes schema documents: YAML files declaring relations,
// their generators and keys, and the parameters of a generation run.
//
//	relations:
//	  - name: Parent
//	    attributes:
//	      - {name: pk, type: integer_incr}
//	    primary_key: pk
//	  - name: Child
//	    attributes:
//	      pk: {type: integer_incr}
//	      parent_ref: {type: integer_incr}
//	    primary_key: [pk]
//	    foreign_keys:
//	      - attributes: [parent_ref]
//	        references: Parent
//	        rename: {parent_ref: pk}
//	parameters:
//	  global: {count: 10, degeneration_percent: 50}
//	  tables:
//	    Child: 3
//	    Parent: {count: 0}
package config

import (
	"strconv"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/datforge/internal/errs"
)

// Document is the raw shape of a schema file.
type Document struct {
	Relations  []RelationDoc `yaml:"relations"`
	Parameters ParametersDoc `yaml:"parameters,omitempty"`
}

type RelationDoc struct {
	Name        string          `yaml:"name"`
	Attributes  AttributeList   `yaml:"attributes,omitempty"`
	PrimaryKey  StringList      `yaml:"primary_key,omitempty"`
	ForeignKeys []ForeignKeyDoc `yaml:"foreign_keys,omitempty"`
}

type AttributeDoc struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type,omitempty"`
	Rank        *int          `yaml:"rank,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Generator   *GeneratorDoc `yaml:"generator,omitempty"`
}

type ForeignKeyDoc struct {
	Attributes StringList        `yaml:"attributes,omitempty"`
	References string            `yaml:"references,omitempty"`
	Rename     map[string]string `yaml:"rename,omitempty"`
}

// GeneratorDoc selects a built-in generator by Kind. Only the fields the
// kind uses are read.
type GeneratorDoc struct {
	Kind      string   `yaml:"kind,omitempty"`
	Start     *int     `yaml:"start,omitempty"`
	Step      int      `yaml:"step,omitempty"`
	Min       *int     `yaml:"min,omitempty"`
	Max       *int     `yaml:"max,omitempty"`
	Length    int      `yaml:"length,omitempty"`
	Alphabet  string   `yaml:"alphabet,omitempty"`
	From      string   `yaml:"from,omitempty"`
	To        string   `yaml:"to,omitempty"`
	Values    []string `yaml:"values,omitempty"`
	Value     string   `yaml:"value,omitempty"`
	Words     []string `yaml:"words,omitempty"`
	WordsFile string   `yaml:"words_file,omitempty"`
	MinLength *int     `yaml:"min_length,omitempty"`
	Shuffle   bool     `yaml:"shuffle,omitempty"`
	Template  string   `yaml:"template,omitempty"`
	Seed      *uint64  `yaml:"seed,omitempty"`
}

type ParametersDoc struct {
	RespectFK *bool               `yaml:"respect_fk,omitempty"`
	Seed      uint64              `yaml:"seed,omitempty"`
	Global    *TableDoc           `yaml:"global,omitempty"`
	Tables    map[string]TableDoc `yaml:"tables,omitempty"`
}

// TableDoc holds the parameters of one relation. A bare integer is
// accepted as a row count.
type TableDoc struct {
	Count               int          `yaml:"count,omitempty"`
	Given               []GroupDoc   `yaml:"given,omitempty"`
	Projection          StringList   `yaml:"projection,omitempty"`
	RespectFK           *bool        `yaml:"respect_fk,omitempty"`
	DegenerationPercent int          `yaml:"degeneration_percent,omitempty"`
	RandomSelection     bool         `yaml:"random_selection,omitempty"`
	Selector            *SelectorDoc `yaml:"selector,omitempty"`
	FixedAttributes     StringList   `yaml:"fixed_attributes,omitempty"`
}

type GroupDoc struct {
	Count  int               `yaml:"count,omitempty"`
	Values map[string]string `yaml:"values,omitempty"`
}

// SelectorDoc keeps rows whose Attribute equals one of the listed values.
type SelectorDoc struct {
	Attribute string     `yaml:"attribute,omitempty"`
	Equals    StringList `yaml:"equals,omitempty"`
}

func (t *TableDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		n, err := strconv.Atoi(node.Value)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "table parameters must be a count or a mapping", err)
		}
		*t = TableDoc{Count: n}
		return nil
	}
	type plain TableDoc
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = TableDoc(p)
	return nil
}

// StringList accepts either a single scalar or a sequence of scalars.
type StringList []string

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "line %d: expected a name or a list of names", node.Line)
	}
}

// AttributeList accepts a sequence of attributes or a mapping from name to
// attribute, where a bare scalar is the type. Mapping order is kept.
type AttributeList []AttributeDoc

func (l *AttributeList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []AttributeDoc
		if err := node.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	case yaml.MappingNode:
		out := make(AttributeList, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var a AttributeDoc
			switch v := node.Content[i+1]; {
			case v.Kind == yaml.ScalarNode && v.Tag == "!!null":
			case v.Kind == yaml.ScalarNode:
				a.Type = v.Value
			default:
				if err := v.Decode(&a); err != nil {
					return err
				}
			}
			a.Name = node.Content[i].Value
			out = append(out, a)
		}
		*l = out
		return nil
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "line %d: attributes must be a list or a mapping", node.Line)
	}
}
