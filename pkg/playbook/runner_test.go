package playbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sansible/sansible/pkg/inventory"
)

func newTestRunner(t *testing.T, playbookDir string) *Runner {
	t.Helper()
	return NewRunner(inventory.NewManager(), playbookDir)
}

func TestRunner_preprocessModuleArgs_template(t *testing.T) {
	dir := t.TempDir()
	templatesDir := filepath.Join(dir, "templates")
	if err := os.MkdirAll(templatesDir, 0755); err != nil {
		t.Fatalf("failed to create templates dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(templatesDir, "motd.j2"), []byte("hello {{ name }}"), 0644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}

	r := newTestRunner(t, dir)
	args := map[string]interface{}{"src": "motd.j2", "dest": "/etc/motd"}
	context := map[string]interface{}{"name": "world"}

	if err := r.preprocessModuleArgs("template", args, context); err != nil {
		t.Fatalf("preprocessModuleArgs() error = %v", err)
	}

	rendered, ok := args["_rendered_content"].(string)
	if !ok {
		t.Fatalf("_rendered_content not set: %#v", args["_rendered_content"])
	}
	if rendered != "hello world" {
		t.Errorf("_rendered_content = %q, want %q", rendered, "hello world")
	}
}

func TestRunner_preprocessModuleArgs_templateMissingSrc(t *testing.T) {
	r := newTestRunner(t, t.TempDir())
	err := r.preprocessModuleArgs("template", map[string]interface{}{}, map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error when 'src' is missing, got nil")
	}
}

func TestRunner_preprocessModuleArgs_templateMissingFile(t *testing.T) {
	r := newTestRunner(t, t.TempDir())
	err := r.preprocessModuleArgs("template", map[string]interface{}{"src": "nope.j2"}, map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error when template file does not exist, got nil")
	}
}

func TestRunner_preprocessModuleArgs_assert(t *testing.T) {
	r := newTestRunner(t, t.TempDir())
	args := map[string]interface{}{
		"that": []interface{}{"x == 1", "y == 2"},
	}
	context := map[string]interface{}{"x": 1, "y": 3}

	if err := r.preprocessModuleArgs("assert", args, context); err != nil {
		t.Fatalf("preprocessModuleArgs() error = %v", err)
	}

	results, ok := args["_that_results"].([]bool)
	if !ok || len(results) != 2 {
		t.Fatalf("_that_results = %#v, want two bool entries", args["_that_results"])
	}
	if !results[0] {
		t.Errorf("results[0] = false, want true for x == 1")
	}
	if results[1] {
		t.Errorf("results[1] = true, want false for y == 2 (y is 3)")
	}

	exprs, ok := args["_that_exprs"].([]string)
	if !ok || len(exprs) != 2 {
		t.Fatalf("_that_exprs = %#v, want two entries", args["_that_exprs"])
	}
}

func TestRunner_preprocessModuleArgs_assertSingleString(t *testing.T) {
	r := newTestRunner(t, t.TempDir())
	args := map[string]interface{}{"that": "x == 1"}
	context := map[string]interface{}{"x": 1}

	if err := r.preprocessModuleArgs("assert", args, context); err != nil {
		t.Fatalf("preprocessModuleArgs() error = %v", err)
	}

	results := args["_that_results"].([]bool)
	if len(results) != 1 || !results[0] {
		t.Errorf("_that_results = %#v, want [true]", results)
	}
}

func TestRunner_preprocessModuleArgs_assertMissingThat(t *testing.T) {
	r := newTestRunner(t, t.TempDir())
	err := r.preprocessModuleArgs("assert", map[string]interface{}{}, map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error when 'that' is missing, got nil")
	}
}

func TestRunner_preprocessModuleArgs_noopForOtherModules(t *testing.T) {
	r := newTestRunner(t, t.TempDir())
	args := map[string]interface{}{"cmd": "echo hi"}
	if err := r.preprocessModuleArgs("command", args, map[string]interface{}{}); err != nil {
		t.Fatalf("preprocessModuleArgs() error = %v", err)
	}
	if len(args) != 1 {
		t.Errorf("args mutated for a module with no preprocessing step: %#v", args)
	}
}

func TestPlay_ShouldGatherFacts(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name string
		play Play
		want bool
	}{
		{name: "omitted defaults to true", play: Play{}, want: true},
		{name: "explicit true", play: Play{GatherFacts: &trueVal}, want: true},
		{name: "explicit false", play: Play{GatherFacts: &falseVal}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.play.ShouldGatherFacts(); got != tt.want {
				t.Errorf("ShouldGatherFacts() = %v, want %v", got, tt.want)
			}
		})
	}
}
