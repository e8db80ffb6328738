package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/generator"
	"github.com/koustreak/datforge/internal/instance"
	"github.com/koustreak/datforge/internal/model"
	"github.com/koustreak/datforge/internal/params"
)

// Schema is a decoded document: relations with their foreign keys resolved
// and the parameters of each.
type Schema struct {
	Relations []*model.Relation
	Items     []params.Item
	Global    *params.GlobalParameters
	RespectFK bool
	Seed      uint64
}

// Load reads and decodes a schema file. Word list files are resolved
// relative to it.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "schema file "+path, err)
		}
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "read schema file "+path, err)
	}
	return parse(data, source{dir: filepath.Dir(path)})
}

// Decode reads a document from r.
func Decode(r io.Reader) (*Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "read schema document", err)
	}
	return Parse(data)
}

// Parse decodes a document held in memory. Relative word list files are
// resolved against the working directory.
func Parse(data []byte) (*Schema, error) {
	return parse(data, source{})
}

// ParseInline decodes a document that must be self-contained: word list
// files are rejected. Documents received over the network go through it.
func ParseInline(data []byte) (*Schema, error) {
	return parse(data, source{inline: true})
}

// source tells generators where the document came from.
type source struct {
	dir    string
	inline bool
}

func parse(data []byte, src source) (*Schema, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errs.New(errs.ErrKindInvalidInput, "empty schema document")
		}
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "decode schema document", err)
	}
	return doc.build(src)
}

// Build resolves the document into relations and parameters. Relative word
// list files are resolved against baseDir.
func (d *Document) Build(baseDir string) (*Schema, error) {
	return d.build(source{dir: baseDir})
}

func (d *Document) build(src source) (*Schema, error) {
	if len(d.Relations) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "schema declares no relation")
	}
	s := &Schema{RespectFK: true, Seed: d.Parameters.Seed}
	if d.Parameters.RespectFK != nil {
		s.RespectFK = *d.Parameters.RespectFK
	}

	byName := make(map[string]*model.Relation, len(d.Relations))
	for _, rd := range d.Relations {
		if _, dup := byName[rd.Name]; dup {
			return nil, errs.Newf(errs.ErrKindSchema, "relation %s declared twice", rd.Name)
		}
		rel, err := rd.build(s.Seed, src)
		if err != nil {
			return nil, err
		}
		byName[rd.Name] = rel
		s.Relations = append(s.Relations, rel)
	}

	// Foreign keys come second so relations may reference each other in
	// any order, cycles included.
	for i, rd := range d.Relations {
		for _, fd := range rd.ForeignKeys {
			target, ok := byName[fd.References]
			if !ok {
				return nil, errs.Newf(errs.ErrKindSchema, "foreign key of %s references unknown relation %q", rd.Name, fd.References)
			}
			if _, err := s.Relations[i].AddForeignKey(fd.Attributes, target, fd.Rename); err != nil {
				return nil, err
			}
		}
	}

	for name := range d.Parameters.Tables {
		if _, ok := byName[name]; !ok {
			return nil, errs.Newf(errs.ErrKindSchema, "parameters given for unknown relation %q", name)
		}
	}
	for _, rel := range s.Relations {
		item := params.Item{Relation: rel}
		if td, ok := d.Parameters.Tables[rel.Name()]; ok {
			tp, err := td.tableParameters(rel)
			if err != nil {
				return nil, err
			}
			item.Params = &tp
		}
		s.Items = append(s.Items, item)
	}

	if g := d.Parameters.Global; g != nil {
		if g.Selector != nil {
			return nil, errs.New(errs.ErrKindInvalidInput, "selector is only supported in table parameters")
		}
		if len(g.Given) > 0 {
			return nil, errs.New(errs.ErrKindInvalidInput, "given values are only supported in table parameters")
		}
		s.Global = &params.GlobalParameters{
			Count:               g.Count,
			Projection:          g.Projection,
			RespectFK:           g.RespectFK,
			DegenerationPercent: g.DegenerationPercent,
			RandomSelection:     g.RandomSelection,
			FixedAttributes:     g.FixedAttributes,
		}
	}
	return s, nil
}

// Relation returns the named relation.
func (s *Schema) Relation(name string) (*model.Relation, bool) {
	for _, r := range s.Relations {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// Process prepares the generation run the document describes. opts are
// applied after the document's own settings.
func (s *Schema) Process(opts ...params.ProcessOption) (*params.Process, error) {
	all := append([]params.ProcessOption{
		params.WithRespectFK(s.RespectFK),
		params.WithSeed(s.Seed),
	}, opts...)
	return params.NewProcess(s.Items, s.Global, all...)
}

func (rd RelationDoc) build(seed uint64, src source) (*model.Relation, error) {
	attrs := make([]*model.Attribute, 0, len(rd.Attributes))
	for _, ad := range rd.Attributes {
		if ad.Name == "" {
			return nil, errs.Newf(errs.ErrKindSchema, "unnamed attribute in relation %s", rd.Name)
		}
		typ := model.TypeInteger
		if ad.Type != "" {
			t, err := model.ParseAttributeType(ad.Type)
			if err != nil {
				return nil, errs.Wrap(errs.ErrKindInvalidInput, "attribute "+rd.Name+"."+ad.Name, err)
			}
			typ = t
		}
		attrSeed := seed ^ generator.SeedFor(rd.Name+"."+ad.Name)
		gen := typ.DefaultGenerator(attrSeed)
		if ad.Generator != nil {
			g, err := ad.Generator.build(attrSeed, src)
			if err != nil {
				return nil, errs.Wrap(errs.ErrKindInvalidInput, "generator of "+rd.Name+"."+ad.Name, err)
			}
			gen = g
		}
		opts := []model.AttributeOption{model.WithGenerator(gen), model.WithDescription(ad.Description)}
		if ad.Rank != nil {
			opts = append(opts, model.WithRank(*ad.Rank))
		}
		attrs = append(attrs, model.NewAttribute(ad.Name, typ, opts...))
	}
	return model.NewRelation(rd.Name, attrs, rd.PrimaryKey...)
}

func (g *GeneratorDoc) build(seed uint64, src source) (*generator.Generator, error) {
	if g.Seed != nil {
		seed = *g.Seed
	}
	switch g.Kind {
	case "increment_int":
		return generator.FromSequence(generator.IncrementInt(intOr(g.Start, 1), g.Step)), nil
	case "increment_string":
		length := g.Length
		if length == 0 {
			length = generator.DefaultIncrLength
		}
		return generator.FromSequence(generator.IncrementString(length, g.Alphabet, g.Step)), nil
	case "random_int":
		return generator.FromSequence(generator.RandomInt(
			intOr(g.Min, generator.DefaultIntMin), intOr(g.Max, generator.DefaultIntMax), seed)), nil
	case "random_string":
		return generator.FromSequence(generator.RandomString(g.Length, g.Alphabet, seed)), nil
	case "random_date":
		from, err := dateOr(g.From, generator.DefaultDateFrom)
		if err != nil {
			return nil, err
		}
		to, err := dateOr(g.To, generator.DefaultDateTo)
		if err != nil {
			return nil, err
		}
		return generator.FromSequence(generator.RandomDate(from, to, seed)), nil
	case "random_bool":
		return generator.FromSequence(generator.RandomBool(seed)), nil
	case "choice":
		if len(g.Values) == 0 {
			return nil, errs.New(errs.ErrKindInvalidInput, "choice needs values")
		}
		return generator.FromSequence(generator.Choice(g.Values, seed)), nil
	case "constant":
		return generator.FromSequence(generator.Constant(g.Value)), nil
	case "words":
		list := slices.Clone(g.Words)
		if g.WordsFile != "" {
			if src.inline {
				return nil, errs.New(errs.ErrKindInvalidInput, "words_file is not allowed in an inline document")
			}
			path := g.WordsFile
			if !filepath.IsAbs(path) && src.dir != "" {
				path = filepath.Join(src.dir, path)
			}
			loaded, err := generator.LoadWords(path)
			if err != nil {
				return nil, err
			}
			list = append(list, loaded...)
		}
		return generator.FromSequence(generator.Words(list,
			intOr(g.MinLength, generator.DefaultWordMinLength), g.Shuffle, seed)), nil
	case "uuid":
		return generator.FromSequence(generator.UUID(seed)), nil
	case "template":
		if g.Template == "" {
			return nil, errs.New(errs.ErrKindInvalidInput, "template needs a template text")
		}
		return generator.Template(g.Template)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown generator kind %q", g.Kind)
	}
}

func (t TableDoc) tableParameters(rel *model.Relation) (params.TableParameters, error) {
	tp := params.TableParameters{
		Count:               t.Count,
		Projection:          t.Projection,
		RespectFK:           t.RespectFK,
		DegenerationPercent: t.DegenerationPercent,
		RandomSelection:     t.RandomSelection,
		FixedAttributes:     t.FixedAttributes,
	}
	for _, g := range t.Given {
		tp.Given = append(tp.Given, instance.Group{Count: g.Count, Fixed: model.Values(g.Values)})
	}
	if t.Selector != nil {
		projection := t.Projection
		if projection == nil {
			projection = rel.DefaultProjection()
		}
		pos := slices.Index(projection, t.Selector.Attribute)
		if pos < 0 {
			return tp, errs.Newf(errs.ErrKindSchema, "selector attribute %q not projected in %s", t.Selector.Attribute, rel.Name())
		}
		equals := slices.Clone(t.Selector.Equals)
		tp.Selector = func(tup instance.Tuple) bool {
			return slices.Contains(equals, tup.Values[pos])
		}
	}
	return tp, nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func dateOr(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errs.Wrap(errs.ErrKindInvalidInput, "date "+s, err)
	}
	return t, nil
}
