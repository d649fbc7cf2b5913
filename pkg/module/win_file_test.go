package module

import "testing"

func TestPsLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"C:\\Windows\\Temp", "'C:\\Windows\\Temp'"},
		{"it's a path", "'it''s a path'"},
		{"", "''"},
	}

	for _, tt := range tests {
		if got := psLiteral(tt.in); got != tt.want {
			t.Errorf("psLiteral(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWinFileModule_Execute_missingPath(t *testing.T) {
	m := &WinFileModule{}
	result, err := m.Execute(nil, map[string]interface{}{}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when path is missing")
	}
}
