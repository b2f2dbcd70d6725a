package suite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/funfuzz/internal/fuzzer"
)

func writeSuite(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeSuite(t, `
targets:
  - module: demo
    function: add
    maxTests: 200
    fnTimeoutMs: 50
    seed: reproduce-me
    useProperty: true
    overrides:
      - arg: a
        min: -5
        max: 5
        integer: true
  - module: demo
    function: div
`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(s.Targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(s.Targets))
	}

	min, max, integer := -5.0, 5.0, true
	want := fuzzer.Options{
		MaxTests:      200,
		MaxDupeInputs: 1000,
		SuiteTimeout:  3 * time.Second,
		FnTimeout:     50 * time.Millisecond,
		UseImplicit:   true,
		UseProperty:   true,
		Seed:          "reproduce-me",
		Overrides: []fuzzer.Override{
			{Arg: "a", Min: &min, Max: &max, Integer: &integer},
		},
	}
	if diff := cmp.Diff(want, s.Targets[0].Options()); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_DefaultsApply(t *testing.T) {
	path := writeSuite(t, `
targets:
  - module: demo
    function: add
`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	opts := s.Targets[0].Options()
	if opts.MaxTests != 1000 {
		t.Errorf("default MaxTests = %d", opts.MaxTests)
	}
	// Implicit oracle defaults to on when the file does not mention it.
	if !opts.UseImplicit {
		t.Error("default UseImplicit is off")
	}
	if opts.UseHuman || opts.UseProperty {
		t.Error("human/property oracles on by default")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}

	empty := writeSuite(t, "targets: []\n")
	if _, err := Load(empty); err == nil {
		t.Error("empty target list accepted")
	}

	incomplete := writeSuite(t, "targets:\n  - module: demo\n")
	if _, err := Load(incomplete); err == nil {
		t.Error("target without function accepted")
	}

	invalid := writeSuite(t, "targets: {not: a list\n")
	if _, err := Load(invalid); err == nil {
		t.Error("malformed YAML accepted")
	}
}
