package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestInternalImportForbidden(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"cpstables/internal/recode", true},
		{"cpstables/pkg/domain", false},
		{"gopkg.in/yaml.v3", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestStorageImportForbidden(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"cpstables/internal/microdata", true},
		{"cpstables/internal/blob", true},
		{"cpstables/internal/blob/core", true},
		{"cpstables/internal/infra/persistence/sqlite", true},
		{"cpstables/internal/publication", true},
		{"database/sql", true},
		{"github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"cpstables/internal/plan", false},
		{"cpstables/internal/blobby", false},
		{"sort", false},
	}
	for _, c := range cases {
		if got := StorageImportForbidden(c.in); got != c.want {
			t.Fatalf("StorageImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("a.go", "package tmp\nimport \"cpstables/internal/microdata\"\nvar _ = microdata.Open\n")
	write("a_test.go", "package tmp\nimport \"cpstables/internal/blob\"\n")
	if err := os.Mkdir(filepath.Join(dir, "sub.go"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := directImportViolations(dir, StorageImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "cpstables/internal/microdata (in a.go)" {
		t.Fatalf("violations = %v", viols)
	}

	var r recorder
	failIfDirectViolations(&r, "engine", viols)
	if r.msg == "" {
		t.Fatal("expected failure message")
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}
