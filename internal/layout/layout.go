// Package layout reads published record-layout descriptions and turns them into
// byte-offset field extractors for fixed-width survey files.
package layout

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"golang.org/x/text/encoding/charmap"

	"cpstables/pkg/domain"
)

// Field locates one named field inside a fixed-width line using zero-based,
// half-open offsets.
type Field struct {
	Name  string
	Start int
	End   int
}

// Width returns the number of bytes occupied by the field.
func (f Field) Width() int { return f.End - f.Start }

// Layout is an ordered set of fields. Order follows the description text.
type Layout struct {
	Fields []Field
	index  map[string]int
}

// New builds a Layout from fields, keeping the first occurrence of each name.
func New(fields []Field) Layout {
	l := Layout{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if _, dup := l.index[f.Name]; dup {
			continue
		}
		l.index[f.Name] = len(l.Fields)
		l.Fields = append(l.Fields, f)
	}
	return l
}

// Len returns the number of fields.
func (l Layout) Len() int { return len(l.Fields) }

// Index returns the column position of name.
func (l Layout) Index(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

// Names returns field names in column order.
func (l Layout) Names() []string {
	out := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		out[i] = f.Name
	}
	return out
}

// MinLineLength is the shortest line that can hold every field.
func (l Layout) MinLineLength() int {
	m := 0
	for _, f := range l.Fields {
		if f.End > m {
			m = f.End
		}
	}
	return m
}

// Selector decides which field names are kept.
type Selector func(name string) bool

// Only keeps the listed names.
func Only(names ...string) Selector {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}
}

// Except keeps every name not listed.
func Except(names ...string) Selector {
	keep := Only(names...)
	return func(name string) bool { return !keep(name) }
}

// A description line reads: NAME SIZE free-text description START<sep>END.
// Start and end are the last two integers on the line, 1-based and inclusive.
var entryPattern = regexp.MustCompile(`^(\w+)[ \t]+(\d+)[ \t]+(.*?)[ \t]+(\d+)\D+?(\d+)[ \t]*$`)

// Parse scans a layout description for field entries. Text is read as
// ISO-8859-1. Entries not accepted by keep are dropped. A description that
// yields no fields returns a *domain.LayoutParseError.
func Parse(r io.Reader, keep Selector) (Layout, error) {
	return parse(r, keep, "")
}

// ParseFile parses the layout description stored at path.
func ParseFile(path string, keep Selector) (Layout, error) {
	f, err := os.Open(path) // #nosec G304 -- caller-provided layout path
	if err != nil {
		return Layout{}, fmt.Errorf("open layout: %w", err)
	}
	defer func() { _ = f.Close() }()
	return parse(f, keep, path)
}

func parse(r io.Reader, keep Selector, source string) (Layout, error) {
	if keep == nil {
		keep = func(string) bool { return true }
	}
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var fields []Field
	for scanner.Scan() {
		f, ok := parseEntry(scanner.Text())
		if !ok || !keep(f.Name) {
			continue
		}
		fields = append(fields, f)
	}
	if err := scanner.Err(); err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	l := New(fields)
	if l.Len() == 0 {
		return Layout{}, &domain.LayoutParseError{Source: source}
	}
	return l, nil
}

func parseEntry(line string) (Field, bool) {
	m := entryPattern.FindStringSubmatch(line)
	if m == nil {
		return Field{}, false
	}
	start, err := strconv.Atoi(m[4])
	if err != nil {
		return Field{}, false
	}
	end, err := strconv.Atoi(m[5])
	if err != nil {
		return Field{}, false
	}
	// published positions are 1-based inclusive
	f := Field{Name: m[1], Start: start - 1, End: end}
	if f.Start < 0 || f.Start >= f.End {
		return Field{}, false
	}
	return f, true
}
