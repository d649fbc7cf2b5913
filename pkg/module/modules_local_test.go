package module

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sansible/sansible/pkg/connection"
	"github.com/sansible/sansible/pkg/inventory"
)

// localConn returns a connection that runs commands via the local shell,
// so module tests exercise real conn.Exec/ExecWithTimeout calls instead of
// a mock.
func localConn(t *testing.T) *connection.Connection {
	t.Helper()
	conn, err := connection.NewManager().Connect(&inventory.Host{Name: "localhost"})
	if err != nil {
		t.Fatalf("failed to open local connection: %v", err)
	}
	return conn
}

func TestAssertModule_Execute(t *testing.T) {
	m := &AssertModule{}

	tests := []struct {
		name       string
		args       map[string]interface{}
		wantFailed bool
		wantMsg    string
	}{
		{
			name: "all pass",
			args: map[string]interface{}{
				"_that_results": []bool{true, true},
				"_that_exprs":   []string{"1 == 1", "2 == 2"},
			},
			wantFailed: false,
			wantMsg:    "all assertions passed",
		},
		{
			name: "one fails, default message",
			args: map[string]interface{}{
				"_that_results": []bool{true, false},
				"_that_exprs":   []string{"1 == 1", "1 == 2"},
			},
			wantFailed: true,
			wantMsg:    "assertion failed: 1 == 2",
		},
		{
			name: "fail_msg overrides default",
			args: map[string]interface{}{
				"_that_results": []bool{false},
				"_that_exprs":   []string{"false"},
				"fail_msg":      "custom failure",
			},
			wantFailed: true,
			wantMsg:    "custom failure",
		},
		{
			name:       "missing preprocessed results",
			args:       map[string]interface{}{},
			wantFailed: true,
			wantMsg:    "internal error: _that_results not provided by runner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.Execute(nil, tt.args, RunOptions{})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if result.Failed != tt.wantFailed {
				t.Errorf("Failed = %v, want %v", result.Failed, tt.wantFailed)
			}
			if result.Msg != tt.wantMsg {
				t.Errorf("Msg = %q, want %q", result.Msg, tt.wantMsg)
			}
		})
	}
}

func TestSetFactModule_Execute(t *testing.T) {
	m := &SetFactModule{}

	args := map[string]interface{}{
		"my_fact":   "hello",
		"count":     3,
		"cacheable": true,
	}

	result, err := m.Execute(nil, args, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Changed {
		t.Errorf("Changed = true, want false")
	}
	if result.AnsibleFacts["my_fact"] != "hello" {
		t.Errorf("AnsibleFacts[my_fact] = %v, want hello", result.AnsibleFacts["my_fact"])
	}
	if result.AnsibleFacts["count"] != 3 {
		t.Errorf("AnsibleFacts[count] = %v, want 3", result.AnsibleFacts["count"])
	}
	if _, ok := result.AnsibleFacts["cacheable"]; ok {
		t.Errorf("AnsibleFacts should not contain cacheable key")
	}
}

func TestWaitForModule_Execute_pathPresent(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "marker")
	if err := os.WriteFile(path, []byte("ok"), 0644); err != nil {
		t.Fatalf("failed to write marker file: %v", err)
	}

	m := &WaitForModule{}
	result, err := m.Execute(conn, map[string]interface{}{
		"path":    path,
		"timeout": 5,
	}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Failed {
		t.Errorf("Failed = true, want false: %s", result.Msg)
	}
}

func TestWaitForModule_Execute_pathTimeout(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "never-exists")

	m := &WaitForModule{}
	result, err := m.Execute(conn, map[string]interface{}{
		"path":    path,
		"timeout": 1,
	}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true for a path that never appears")
	}
}

func TestWaitForModule_Execute_missingArgs(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	m := &WaitForModule{}
	result, err := m.Execute(conn, map[string]interface{}{}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when neither path nor port is given")
	}
}

func TestStatModule_Execute(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	m := &StatModule{}
	result, err := m.Execute(conn, map[string]interface{}{"path": path}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Failed {
		t.Fatalf("Failed = true: %s", result.Msg)
	}

	stat, ok := result.Data["stat"].(map[string]interface{})
	if !ok {
		t.Fatalf("Data[stat] missing or wrong type: %#v", result.Data["stat"])
	}
	if stat["exists"] != true {
		t.Errorf("stat[exists] = %v, want true", stat["exists"])
	}
	if stat["isreg"] != true {
		t.Errorf("stat[isreg] = %v, want true", stat["isreg"])
	}
	if stat["size"] != int64(11) {
		t.Errorf("stat[size] = %v, want 11", stat["size"])
	}
}

func TestStatModule_Execute_missing(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	m := &StatModule{}
	result, err := m.Execute(conn, map[string]interface{}{"path": "/no/such/path/at/all"}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	stat := result.Data["stat"].(map[string]interface{})
	if stat["exists"] != false {
		t.Errorf("stat[exists] = %v, want false", stat["exists"])
	}
}

func TestBlockinfileModule_Execute_insertAndRemove(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.conf")
	if err := os.WriteFile(path, []byte("existing line\n"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	m := &BlockinfileModule{}

	insertResult, err := m.Execute(conn, map[string]interface{}{
		"path":  path,
		"block": "new line one\nnew line two",
	}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() insert error = %v", err)
	}
	if !insertResult.Changed {
		t.Fatalf("Changed = false on first insert, want true: %s", insertResult.Msg)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file after insert: %v", err)
	}
	if !strings.Contains(string(content), "new line one") || !strings.Contains(string(content), "BEGIN ANSIBLE MANAGED BLOCK") {
		t.Errorf("file content missing inserted block: %q", string(content))
	}

	idempotentResult, err := m.Execute(conn, map[string]interface{}{
		"path":  path,
		"block": "new line one\nnew line two",
	}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() idempotent error = %v", err)
	}
	if idempotentResult.Changed {
		t.Errorf("Changed = true on repeat insert of identical block, want false")
	}

	removeResult, err := m.Execute(conn, map[string]interface{}{
		"path":  path,
		"state": "absent",
	}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() remove error = %v", err)
	}
	if !removeResult.Changed {
		t.Fatalf("Changed = false on remove, want true: %s", removeResult.Msg)
	}

	content, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file after remove: %v", err)
	}
	if strings.Contains(string(content), "BEGIN ANSIBLE MANAGED BLOCK") {
		t.Errorf("block marker still present after removal: %q", string(content))
	}
}

func TestBlockinfileModule_Execute_missingPath(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	m := &BlockinfileModule{}
	result, err := m.Execute(conn, map[string]interface{}{}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when path is missing")
	}
}

func TestSetupModule_Execute(t *testing.T) {
	conn := localConn(t)
	defer conn.Close()

	m := &SetupModule{}
	result, err := m.Execute(conn, map[string]interface{}{}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Failed {
		t.Fatalf("Failed = true: %s", result.Msg)
	}
	if _, ok := result.AnsibleFacts["ansible_system"]; !ok {
		t.Errorf("AnsibleFacts missing ansible_system")
	}
}
