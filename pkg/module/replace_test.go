package module

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReplaceModule_Execute(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.conf")
	if err := os.WriteFile(path, []byte("foo=1\nbar=2\nfoo=3\n"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	m := &ReplaceModule{}
	result, err := m.Execute(conn, map[string]interface{}{
		"path":    path,
		"regexp":  `foo=\d+`,
		"replace": "foo=9",
	}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Changed {
		t.Fatalf("Changed = false, want true: %s", result.Msg)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file after replace: %v", err)
	}
	want := "foo=9\nbar=2\nfoo=9\n"
	if string(content) != want {
		t.Errorf("file content = %q, want %q", content, want)
	}
}

func TestReplaceModule_Execute_noMatch(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.conf")
	if err := os.WriteFile(path, []byte("unrelated content\n"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	m := &ReplaceModule{}
	result, err := m.Execute(conn, map[string]interface{}{
		"path":   path,
		"regexp": `nothing_here_\d+`,
	}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Changed {
		t.Errorf("Changed = true, want false when regexp doesn't match")
	}
}

func TestReplaceModule_Execute_checkMode(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.conf")
	original := "foo=1\n"
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	m := &ReplaceModule{}
	result, err := m.Execute(conn, map[string]interface{}{
		"path":    path,
		"regexp":  `foo=\d+`,
		"replace": "foo=9",
	}, RunOptions{Check: true})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Changed {
		t.Errorf("Changed = false, want true (check mode still reports the change)")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(content) != original {
		t.Errorf("file content = %q, want unchanged %q in check mode", content, original)
	}
}

func TestReplaceModule_Execute_missingArgs(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	m := &ReplaceModule{}

	result, err := m.Execute(conn, map[string]interface{}{}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when path is missing")
	}

	result, err = m.Execute(conn, map[string]interface{}{"path": "/tmp/whatever"}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when regexp is missing")
	}
}

func TestReplaceModule_Execute_missingFile(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	m := &ReplaceModule{}
	result, err := m.Execute(conn, map[string]interface{}{
		"path":   "/no/such/file/at/all",
		"regexp": `foo`,
	}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when file does not exist")
	}
}
