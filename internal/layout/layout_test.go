package layout

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cpstables/pkg/domain"
)

const sampleLayout = "January 2017 CPS Public Use Record Layout\n" +
	"NAME\tSIZE\tDESCRIPTION\t\tLOCATION\n" +
	"HRHHID\t15\tHOUSEHOLD IDENTIFIER (Part 1)\t\t1 - 15\n" +
	"HRMONTH\t2\tMONTH OF INTERVIEW\t\t16 - 17\n" +
	"FILLER\t2\t\t\t18 - 19\n" +
	"PRTAGE     2     PERSONS AGE (topcoded at 85, 90 or 80)     122 - 123\n" +
	"PESEX\t2\tSEX\t\t129-130\n" +
	"PRTAGE\t2\tDUPLICATE ENTRY\t\t200 - 201\n" +
	"garbage line without positions\n"

func TestParseConvertsOffsets(t *testing.T) {
	l, err := Parse(strings.NewReader(sampleLayout), Only("HRMONTH", "PRTAGE", "PESEX", "MISSING"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Field{
		{Name: "HRMONTH", Start: 15, End: 17},
		{Name: "PRTAGE", Start: 121, End: 123},
		{Name: "PESEX", Start: 128, End: 130},
	}
	if len(l.Fields) != len(want) {
		t.Fatalf("expected %d fields, got %#v", len(want), l.Fields)
	}
	for i, f := range want {
		if l.Fields[i] != f {
			t.Fatalf("field %d: want %#v got %#v", i, f, l.Fields[i])
		}
	}
	if i, ok := l.Index("PESEX"); !ok || i != 2 {
		t.Fatalf("index lookup failed: %d %v", i, ok)
	}
	if l.MinLineLength() != 130 {
		t.Fatalf("min line length %d", l.MinLineLength())
	}
}

func TestParseSpaceSeparatedPositions(t *testing.T) {
	l, err := Parse(strings.NewReader("PRTAGE  2  AGE OF PERSON  5 9\n"), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if l.Len() != 1 || l.Fields[0].Start != 4 || l.Fields[0].End != 9 {
		t.Fatalf("unexpected fields %#v", l.Fields)
	}
}

func TestParseInvariants(t *testing.T) {
	l, err := Parse(strings.NewReader(sampleLayout), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	seen := map[string]bool{}
	for _, f := range l.Fields {
		if f.Start < 0 || f.Start >= f.End {
			t.Fatalf("bad offsets %#v", f)
		}
		if seen[f.Name] {
			t.Fatalf("duplicate field %s", f.Name)
		}
		seen[f.Name] = true
	}
	if l.Fields[len(l.Fields)-1].Name != "PESEX" {
		t.Fatalf("expected duplicate PRTAGE entry to be dropped: %v", l.Names())
	}
}

func TestParseExcept(t *testing.T) {
	l, err := Parse(strings.NewReader(sampleLayout), Except("HRHHID", "FILLER"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := l.Index("HRHHID"); ok {
		t.Fatalf("excluded field kept")
	}
	if _, ok := l.Index("PESEX"); !ok {
		t.Fatalf("expected PESEX")
	}
}

func TestParseRejectsInvertedPositions(t *testing.T) {
	_, err := Parse(strings.NewReader("PRTAGE\t2\tAGE\t\t9 - 5\n"), nil)
	if !errors.Is(err, domain.ErrLayoutParse) {
		t.Fatalf("expected layout parse error, got %v", err)
	}
}

func TestParseEmptyIsFatal(t *testing.T) {
	_, err := Parse(strings.NewReader("nothing useful here\n"), nil)
	var perr *domain.LayoutParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected LayoutParseError, got %v", err)
	}
	_, err = Parse(strings.NewReader(sampleLayout), Only("NOT_THERE"))
	if !errors.Is(err, domain.ErrLayoutParse) {
		t.Fatalf("expected unmatched selection to be fatal, got %v", err)
	}
}

func TestParseFileLatin1(t *testing.T) {
	// 0xE9 is e-acute in ISO-8859-1 and invalid as a lone UTF-8 byte.
	content := []byte("PESEX\t2\tSEXO DE LA PERSONA (g\xe9nero)\t\t129 - 130\n")
	path := filepath.Join(t.TempDir(), "layout.txt")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	l, err := ParseFile(path, nil)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	if l.Len() != 1 || l.Fields[0].Name != "PESEX" {
		t.Fatalf("unexpected fields %#v", l.Fields)
	}
	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"), nil)
	if err == nil {
		t.Fatalf("expected open error")
	}
	_, err = ParseFile(writeTemp(t, []byte("none\n")), nil)
	var perr *domain.LayoutParseError
	if !errors.As(err, &perr) || !strings.HasSuffix(perr.Source, "layout.txt") {
		t.Fatalf("expected source in error, got %v", err)
	}
}

func writeTemp(t *testing.T, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layout.txt")
	if err := os.WriteFile(path, bytes.Clone(b), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}
