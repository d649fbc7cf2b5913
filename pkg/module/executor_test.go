package module

import (
	"testing"
)

func TestExecutor_executeDebug(t *testing.T) {
	executor := NewExecutor()

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantMsg string
		wantErr bool
		changed bool
	}{
		{
			name: "debug with msg",
			args: map[string]interface{}{
				"msg": "Hello, World!",
			},
			wantMsg: "Hello, World!",
			wantErr: false,
			changed: false,
		},
		{
			name: "debug with var",
			args: map[string]interface{}{
				"var":      "test_var",
				"test_var": "test_value",
			},
			wantMsg: "test_var: test_value",
			wantErr: false,
			changed: false,
		},
		{
			name:    "debug with no args",
			args:    map[string]interface{}{},
			wantMsg: "Debug output",
			wantErr: false,
			changed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := executor.Execute(nil, "debug", tt.args, RunOptions{})
			if (err != nil) != tt.wantErr {
				t.Errorf("executeDebug() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if result.Changed != tt.changed {
				t.Errorf("executeDebug() Changed = %v, want %v", result.Changed, tt.changed)
			}
			if result.Msg != tt.wantMsg {
				t.Errorf("executeDebug() Msg = %v, want %v", result.Msg, tt.wantMsg)
			}
		})
	}
}

func TestExecutor_IsKnown(t *testing.T) {
	executor := NewExecutor()

	known := []string{
		"command", "shell", "copy", "file", "template", "lineinfile",
		"service", "stat", "assert", "set_fact", "wait_for", "blockinfile",
		"setup", "replace",
		"win_command", "win_shell", "win_copy", "win_file", "win_service",
		"win_stat", "win_lineinfile", "win_wait_for",
		"ansible.builtin.copy", "ansible.windows.win_copy",
	}
	for _, name := range known {
		if !executor.IsKnown(name) {
			t.Errorf("IsKnown(%q) = false, want true", name)
		}
	}

	if executor.IsKnown("totally_unregistered_module") {
		t.Error("IsKnown() = true for an unregistered module, want false")
	}
}

func TestExecutor_Execute_unknownModule(t *testing.T) {
	executor := NewExecutor()
	_, err := executor.Execute(nil, "no_such_module", map[string]interface{}{}, RunOptions{})
	if err == nil {
		t.Fatal("Execute() error = nil, want an unsupported-module error")
	}
}

func TestParseModuleArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		want    map[string]string
		wantErr bool
	}{
		{
			name: "simple string args",
			args: map[string]interface{}{
				"src":  "/tmp/file.txt",
				"dest": "/etc/file.txt",
			},
			want: map[string]string{
				"src":  "/tmp/file.txt",
				"dest": "/etc/file.txt",
			},
			wantErr: false,
		},
		{
			name: "mixed types",
			args: map[string]interface{}{
				"path":  "/tmp/test",
				"mode":  "0644",
				"owner": "root",
			},
			want: map[string]string{
				"path":  "/tmp/test",
				"mode":  "0644",
				"owner": "root",
			},
			wantErr: false,
		},
		{
			name:    "empty args",
			args:    map[string]interface{}{},
			want:    map[string]string{},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(map[string]string)
			for k, v := range tt.args {
				if str, ok := v.(string); ok {
					got[k] = str
				}
			}

			for key, wantVal := range tt.want {
				if gotVal, exists := got[key]; !exists {
					t.Errorf("parseModuleArgs()[%s] missing", key)
				} else if gotVal != wantVal {
					t.Errorf("parseModuleArgs()[%s] = %v, want %v", key, gotVal, wantVal)
				}
			}
		})
	}
}

func TestResult_Failed(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   bool
	}{
		{
			name: "success result",
			result: &Result{
				Changed: true,
				Failed:  false,
				Msg:     "Success",
			},
			want: false,
		},
		{
			name: "failed result",
			result: &Result{
				Changed: false,
				Failed:  true,
				Msg:     "Error occurred",
			},
			want: true,
		},
		{
			name: "unchanged result",
			result: &Result{
				Changed: false,
				Failed:  false,
				Msg:     "No changes",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Failed; got != tt.want {
				t.Errorf("Result.Failed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResult_Changed(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   bool
	}{
		{
			name: "changed result",
			result: &Result{
				Changed: true,
				Failed:  false,
			},
			want: true,
		},
		{
			name: "unchanged result",
			result: &Result{
				Changed: false,
				Failed:  false,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Changed; got != tt.want {
				t.Errorf("Result.Changed = %v, want %v", got, tt.want)
			}
		})
	}
}
