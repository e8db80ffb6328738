package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/koustreak/datforge/internal/dbinstance"
	"github.com/koustreak/datforge/internal/instance"
	"github.com/koustreak/datforge/internal/model"
)

// TextFormatter renders relations and instances for people to read.
type TextFormatter struct {
	writer io.Writer
	// MaxRows caps the rows printed per instance. 0 prints them all.
	MaxRows int
}

func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// FormatRelation writes the key attributes, then the others, each in
// generation order, marking foreign keys.
func (f *TextFormatter) FormatRelation(r *model.Relation) error {
	bw := bufio.NewWriter(f.writer)
	writeRelation(bw, r)
	return bw.Flush()
}

// Write errors stick to w and surface on Flush.
func writeRelation(w *bufio.Writer, r *model.Relation) {
	header := "Relation " + r.Name()
	pad := strings.Repeat(" ", len(header))
	fmt.Fprintf(w, "%s| PK\n", header)

	fkOf := map[string]string{}
	for _, fk := range r.ForeignKeys() {
		for _, a := range fk.Attributes {
			fkOf[a] = fk.Target.Name()
		}
	}
	keyCount := len(r.PrimaryKey())
	for i, name := range r.DefaultProjection() {
		if i == keyCount {
			fmt.Fprintf(w, "%s| OTHERS\n", pad)
		}
		a, _ := r.Attribute(name)
		line := fmt.Sprintf("%s| %s : %s", pad, name, a)
		if target, ok := fkOf[name]; ok {
			line += " - FK for " + target
		}
		fmt.Fprintln(w, line)
	}
	if keyCount == len(r.AttributeNames()) {
		fmt.Fprintf(w, "%s| OTHERS\n", pad)
	}
}

// FormatInstance writes a table of rows with a C column marking rows fed
// for a foreign key and a D column marking degenerated rows.
func (f *TextFormatter) FormatInstance(inst *instance.Instance) error {
	bw := bufio.NewWriter(f.writer)
	f.writeInstance(bw, inst)
	return bw.Flush()
}

func (f *TextFormatter) writeInstance(w *bufio.Writer, inst *instance.Instance) {
	proj := inst.Projection()
	tuples := inst.Tuples()
	if f.MaxRows > 0 && len(tuples) > f.MaxRows {
		tuples = tuples[:f.MaxRows]
	}

	widths := make([]int, len(proj))
	for i, n := range proj {
		widths[i] = len(n)
	}
	for _, t := range tuples {
		for i, v := range t.Values {
			widths[i] = max(widths[i], len(v))
		}
	}

	prefix := inst.Name() + " "
	pad := strings.Repeat(" ", len(prefix))
	var header strings.Builder
	header.WriteString(" C D ")
	for i, n := range proj {
		fmt.Fprintf(&header, " %-*s", widths[i], n)
	}
	fmt.Fprintf(w, "%s|%s\n", prefix, header.String())
	fmt.Fprintf(w, "%s+%s\n", pad, strings.Repeat("-", header.Len()))

	for _, t := range tuples {
		var line strings.Builder
		fmt.Fprintf(&line, "%s| %s %s ", pad, mark(t.FromConstraint), mark(t.Degenerated))
		for i, v := range t.Values {
			fmt.Fprintf(&line, " %-*s", widths[i], v)
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}
}

// Format writes a summary line then every instance, blank line separated.
func (f *TextFormatter) Format(db *dbinstance.Database) error {
	bw := bufio.NewWriter(f.writer)
	fmt.Fprintf(bw, "Database with %d relation instances\n", len(db.Names()))
	for _, inst := range db.Instances() {
		fmt.Fprintln(bw)
		fmt.Fprintf(bw, "%s: %d tuples (%d generated, %d constrained, %d degenerated)\n",
			inst.Name(), inst.Size(), inst.Generated(), inst.Constrained(), inst.Degenerated())
		f.writeInstance(bw, inst)
	}
	return bw.Flush()
}

func mark(b bool) string {
	if b {
		return "*"
	}
	return " "
}
