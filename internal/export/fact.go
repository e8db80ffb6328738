// Package export writes populated databases out as text.
package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/koustreak/datforge/internal/dbinstance"
	"github.com/koustreak/datforge/internal/instance"
)

// FactFormatter writes one fact per stored row:
//
//	relation(v1,v2,...,vn).
//
// The relation name and every value are lowercased. Values follow the
// instance projection. Relations follow each other without separators.
type FactFormatter struct {
	writer io.Writer
}

func NewFactFormatter(w io.Writer) *FactFormatter {
	return &FactFormatter{writer: w}
}

// Format writes every instance of db in instantiation order.
func (f *FactFormatter) Format(db *dbinstance.Database) error {
	bw := bufio.NewWriter(f.writer)
	for _, inst := range db.Instances() {
		writeFacts(bw, inst)
	}
	return bw.Flush()
}

// FormatInstance writes the facts of a single instance.
func (f *FactFormatter) FormatInstance(inst *instance.Instance) error {
	bw := bufio.NewWriter(f.writer)
	writeFacts(bw, inst)
	return bw.Flush()
}

func writeFacts(w *bufio.Writer, inst *instance.Instance) {
	name := strings.ToLower(inst.Name())
	for _, t := range inst.Tuples() {
		_, _ = w.WriteString(Fact(name, t.Values))
	}
}

// Fact renders a single fact line, newline included.
func Fact(relation string, values []string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(relation))
	b.WriteByte('(')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strings.ToLower(v))
	}
	b.WriteString(").\n")
	return b.String()
}
