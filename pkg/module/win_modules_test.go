package module

import "testing"

func TestWinCommandModule_Execute_missingArgs(t *testing.T) {
	m := &WinCommandModule{}
	result, err := m.Execute(nil, map[string]interface{}{}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when cmd/_raw_params is missing")
	}
}

func TestWinShellModule_Execute_missingArgs(t *testing.T) {
	m := &WinShellModule{}
	result, err := m.Execute(nil, map[string]interface{}{}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when cmd/_raw_params is missing")
	}
}

func TestWinCopyModule_Execute_missingArgs(t *testing.T) {
	m := &WinCopyModule{}

	result, err := m.Execute(nil, map[string]interface{}{}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when dest is missing")
	}

	result, err = m.Execute(nil, map[string]interface{}{"dest": "C:\\out.txt"}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when neither src nor content is given")
	}
}

func TestWinLineinfileModule_Execute_missingPath(t *testing.T) {
	m := &WinLineinfileModule{}
	result, err := m.Execute(nil, map[string]interface{}{}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when path is missing")
	}
}

func TestWinStatModule_Execute_missingPath(t *testing.T) {
	m := &WinStatModule{}
	result, err := m.Execute(nil, map[string]interface{}{}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when path is missing")
	}
}

func TestWinWaitForModule_Execute_missingArgs(t *testing.T) {
	m := &WinWaitForModule{}
	result, err := m.Execute(nil, map[string]interface{}{"timeout": 1}, RunOptions{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Failed {
		t.Errorf("Failed = false, want true when neither path nor port is given")
	}
}
