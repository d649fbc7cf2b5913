package module

import "testing"

func TestStartModeToStartType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"auto", "Automatic"},
		{"manual", "Manual"},
		{"disabled", "Disabled"},
		{"Automatic", "Automatic"},
	}

	for _, tt := range tests {
		if got := startModeToStartType(tt.in); got != tt.want {
			t.Errorf("startModeToStartType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWinServiceModule_Execute_missingArgs(t *testing.T) {
	m := &WinServiceModule{}

	result, err := m.Execute(nil, map[string]interface{}{}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when name is missing")
	}

	result, err = m.Execute(nil, map[string]interface{}{"name": "spooler"}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when neither state nor start_mode is given")
	}
}
