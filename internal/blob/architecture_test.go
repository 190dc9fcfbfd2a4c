package blob

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyFacadesImportInfra checks that infra backends are reached through
// their facade packages: blob backends via internal/blob and persistence
// backends via internal/microdata.
func TestOnlyFacadesImportInfra(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "cpstables/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	rules := []struct{ infra, facade string }{
		{"cpstables/internal/infra/blob", "cpstables/internal/blob"},
		{"cpstables/internal/infra/persistence", "cpstables/internal/microdata"},
	}
	for _, r := range rules {
		checkInfraImports(t, pkgs, r.infra, r.facade)
	}
}

func checkInfraImports(t *testing.T, pkgs []*packages.Package, infraPrefix, allowedPrefix string) {
	t.Helper()

	seen := make(map[string]struct{})

	for _, pkg := range pkgs {
		if strings.HasPrefix(pkg.PkgPath, allowedPrefix) {
			continue
		}
		if strings.HasPrefix(pkg.PkgPath, infraPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			if isInfraImport(importPath, infraPrefix) {
				pos := filepath.Join(pkg.PkgPath, "...")
				seen[pos+": "+importPath] = struct{}{}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import of %s: %s", infraPrefix, v)
		}
		t.Fatalf("found %d forbidden imports of %s", len(violations), infraPrefix)
	}
}

func isInfraImport(importPath, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}
