package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aotc/internal/options"
)

func TestRunCompilesToAssembly(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.src")
	out := filepath.Join(dir, "out.s")
	src := `
func add(a: i64, b: i64) -> i64 {
	return a + b;
}
`
	if err := os.WriteFile(in, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	opt := &options.Options{Input: in, Output: out, Target: options.TargetARM64, OptLevel: 1}
	var stderr bytes.Buffer
	code := Run(opt, &stderr)
	if code != 0 {
		t.Fatalf("Run() = %d, stderr:\n%s", code, stderr.String())
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(got), ".global main\n") {
		t.Fatalf("unexpected assembly output:\n%s", got)
	}
	if !strings.Contains(string(got), "add:\n") {
		t.Fatalf("missing add: label:\n%s", got)
	}
}

func TestRunReportsParseError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.src")
	if err := os.WriteFile(in, []byte("func ("), 0o644); err != nil {
		t.Fatal(err)
	}

	opt := &options.Options{Input: in, Output: filepath.Join(dir, "out.s"), Target: options.TargetARM64, OptLevel: 0}
	var stderr bytes.Buffer
	code := Run(opt, &stderr)
	if code != 1 {
		t.Fatalf("Run() = %d, want 1 on parse error", code)
	}
	if stderr.Len() == 0 {
		t.Fatal("expected a diagnostic on stderr")
	}
}

func TestRunReportsMissingFile(t *testing.T) {
	opt := &options.Options{Input: "/nonexistent/in.src", Output: "/tmp/out.s", Target: options.TargetARM64, OptLevel: 0}
	var stderr bytes.Buffer
	code := Run(opt, &stderr)
	if code != 1 {
		t.Fatalf("Run() = %d, want 1 on missing input", code)
	}
}
