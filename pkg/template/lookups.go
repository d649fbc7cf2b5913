package template

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// lookupFunc returns the callable bound into the pongo2 context as
// `lookup`, implementing the lookup set:
// file, env, pipe, fileglob, first_found, items, dict, password, lines.
// `pipe` executes via the control-node process facility, not through a
// transport; it never touches a remote host.
// Relative paths resolve against the playbook directory.
func (e *Engine) lookupFunc(vars map[string]interface{}) func(string, interface{}) (interface{}, error) {
	return func(kind string, arg interface{}) (interface{}, error) {
		switch kind {
		case "file":
			return e.lookupFile(asString(arg))
		case "env":
			return os.Getenv(asString(arg)), nil
		case "pipe":
			return e.lookupPipe(asString(arg))
		case "fileglob":
			return e.lookupFileglob(asString(arg))
		case "first_found":
			return e.lookupFirstFound(asStringSlice(arg))
		case "items":
			return arg, nil
		case "dict":
			return arg, nil
		case "password":
			return e.lookupPassword(asString(arg))
		case "lines":
			return e.lookupLines(asString(arg))
		case "template":
			return e.lookupTemplate(asString(arg), vars)
		default:
			return nil, fmt.Errorf("unknown lookup %q", kind)
		}
	}
}

func (e *Engine) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.lookupDir, p)
}

func (e *Engine) lookupFile(p string) (string, error) {
	data, err := os.ReadFile(e.resolvePath(p))
	if err != nil {
		return "", fmt.Errorf("lookup file %q: %w", p, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func (e *Engine) lookupPipe(cmd string) (string, error) {
	out, err := exec.Command("/bin/sh", "-c", cmd).Output()
	if err != nil {
		return "", fmt.Errorf("lookup pipe %q: %w", cmd, err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (e *Engine) lookupFileglob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(e.resolvePath(pattern))
	if err != nil {
		return nil, fmt.Errorf("lookup fileglob %q: %w", pattern, err)
	}
	return matches, nil
}

func (e *Engine) lookupFirstFound(candidates []string) (string, error) {
	for _, c := range candidates {
		p := e.resolvePath(c)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("first_found: none of %v exist", candidates)
}

// lookupPassword reads a password file at the given control-node path.
// When the file is absent it returns an error; no password is generated
// or written.
func (e *Engine) lookupPassword(p string) (string, error) {
	full := e.resolvePath(p)
	if data, err := os.ReadFile(full); err == nil {
		return strings.TrimRight(string(data), "\n"), nil
	}
	return "", fmt.Errorf("lookup password %q: no password file present", p)
}

// lookupTemplate loads a template file relative to lookupDir and
// renders it against the calling context's vars, letting a playbook
// compose templates via {{ lookup('template', 'partial.j2') }}.
func (e *Engine) lookupTemplate(p string, vars map[string]interface{}) (string, error) {
	data, err := os.ReadFile(e.resolvePath(p))
	if err != nil {
		return "", fmt.Errorf("lookup template %q: %w", p, err)
	}
	return e.RenderString(string(data), vars)
}

func (e *Engine) lookupLines(p string) ([]string, error) {
	data, err := os.ReadFile(e.resolvePath(p))
	if err != nil {
		return nil, fmt.Errorf("lookup lines %q: %w", p, err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	return lines, nil
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asStringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, len(vv))
		for i, x := range vv {
			out[i] = asString(x)
		}
		return out
	default:
		return []string{asString(v)}
	}
}
