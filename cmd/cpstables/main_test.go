package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cpstables/internal/fixedwidth"
	"cpstables/internal/layout"
	"cpstables/internal/recode"
)

func writeFile(t *testing.T, path string, body []byte) {
	t.Helper()
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func layoutDoc(names []string) string {
	var b strings.Builder
	for i, n := range names {
		start := i*8 + 1
		fmt.Fprintf(&b, "%s\t8\t%s\t\t%d - %d\n", n, n, start, start+7)
	}
	return b.String()
}

func invoke(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// writeJanuary writes a layout and a January 2017 file holding one adult.
func writeJanuary(t *testing.T) (layoutPath, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	doc := layoutDoc(recode.MonthlyFields)
	layoutPath = filepath.Join(dir, "layout.txt")
	writeFile(t, layoutPath, []byte(doc))
	l, err := layout.Parse(strings.NewReader(doc), nil)
	if err != nil {
		t.Fatalf("parse layout: %v", err)
	}
	vals := map[string]int64{
		recode.FieldSurveyID: 7, recode.FieldLineNumber: 1, recode.FieldMonth: 1, recode.FieldMonthInSample: 4,
		recode.FieldAge: 33, recode.FieldPersonType: 2, recode.FieldHouseholdWeight: 1,
		recode.FieldWeight: 2500000, recode.FieldOtherWeight: 2500000, recode.FieldEarnings: 120000,
		recode.FieldEmployed: 1, recode.FieldFullTimeLF: 1, recode.FieldEarningsEligible: 1,
		recode.FieldState: 6, recode.FieldCert1: 1, recode.FieldCert2: 1, recode.FieldExperiencedLF: 1,
	}
	ordered := make([]int64, 0, l.Len())
	for _, name := range l.Names() {
		ordered = append(ordered, vals[name])
	}
	line, err := fixedwidth.Format(l, ordered)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	writeFile(t, filepath.Join(dir, "jan17pub.dat"), append(line, '\n'))
	return layoutPath, dir
}

func TestFieldsCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.txt")
	writeFile(t, path, []byte(layoutDoc([]string{"QSTNUM", "PRTAGE"})))

	out, stderr, code := invoke(t, "fields", "--layout", path, "--field", "PRTAGE")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(out, "PRTAGE") || strings.Contains(out, "QSTNUM") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "9") || !strings.Contains(out, "16") {
		t.Fatalf("expected 1-based positions 9-16:\n%s", out)
	}
}

func TestCompilePublishAndListRuns(t *testing.T) {
	layoutPath, dataDir := writeJanuary(t)
	work := t.TempDir()
	db := filepath.Join(work, "micro.db")
	blobRoot := filepath.Join(work, "blobs")
	metricsPath := filepath.Join(work, "metrics.prom")
	common := []string{"--storage", "sqlite", "--sqlite-path", db, "--blob-root", blobRoot, "--log-level", "error"}

	out, stderr, code := invoke(t, append([]string{"compile", "--year", "2017", "--layout", layoutPath,
		"--data-dir", dataDir, "--metrics-file", metricsPath}, common...)...)
	if code != exitOK {
		t.Fatalf("compile exit %d: %s", code, stderr)
	}
	if !strings.Contains(out, "1 kept") {
		t.Fatalf("compile output: %s", out)
	}
	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(prom), `cpstables_records_kept_total{year="2017"} 1`) {
		t.Fatalf("metrics textfile:\n%s", prom)
	}

	planPath := filepath.Join(work, "plans.yaml")
	writeFile(t, planPath, []byte("by_state:\n  key: [state]\n  cells:\n    state:\n      group: [state]\n"))
	out, stderr, code = invoke(t, append([]string{"publish", "--plan", planPath, "--name", "earnings",
		"--suppress=false", "--run-id", "run-a"}, common...)...)
	if code != exitOK {
		t.Fatalf("publish exit %d: %s", code, stderr)
	}
	if !strings.Contains(out, "run-a") || strings.Contains(out, "suppressed") {
		t.Fatalf("publish output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(blobRoot, "tables", "earnings", "run-a.csv")); err != nil {
		t.Fatalf("published artifact: %v", err)
	}

	out, stderr, code = invoke(t, append([]string{"runs", "--name", "earnings"}, common...)...)
	if code != exitOK {
		t.Fatalf("runs exit %d: %s", code, stderr)
	}
	if !strings.Contains(out, "run-a") {
		t.Fatalf("runs output: %s", out)
	}
}

func TestRequiredFlags(t *testing.T) {
	if _, stderr, code := invoke(t, "publish", "--name", "x"); code != exitError || !strings.Contains(stderr, "plan") {
		t.Fatalf("publish without --plan: exit %d, %s", code, stderr)
	}
	if _, _, code := invoke(t, "compile"); code != exitError {
		t.Fatalf("compile without --year: exit %d", code)
	}
}

func TestInvalidStorageFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.txt")
	writeFile(t, path, []byte(layoutDoc([]string{"QSTNUM"})))
	if _, _, code := invoke(t, "fields", "--layout", path, "--storage", "oracle"); code != exitError {
		t.Fatalf("expected validation failure, got exit %d", code)
	}
}
