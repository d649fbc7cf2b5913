// Package template implements the templating and expression core: strict
// variable interpolation over a fixed filter/test/lookup surface, used for
// task arguments, when conditions, and loop expansion. Built on
// github.com/flosch/pongo2/v6 for Jinja2-compatible syntax.
package template

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/sansible/sansible/pkg/errors"
)

func init() {
	registerFilters()
}

// Engine renders strings/structures and evaluates boolean conditions
// against a variable mapping.
type Engine struct {
	mu        sync.Mutex
	cache     map[string]*pongo2.Template
	lookupDir string // playbook directory; lookups resolve relative paths here
}

// New creates a template engine. lookupDir is the playbook's directory,
// used to resolve relative lookup() paths.
func New(lookupDir string) *Engine {
	return &Engine{cache: map[string]*pongo2.Template{}, lookupDir: lookupDir}
}

// identRe extracts the bare leading identifier of a {{ ... }} expression
// (before any filter pipe, attribute access, or function call), used to
// implement strict-undefined checking: pongo2 itself renders an
// undefined top-level name as empty rather than erroring, so the engine
// pre-scans each template for root identifiers and rejects any that are
// absent from vars and not supplied a `default` filter.
var identRe = regexp.MustCompile(`\{\{\-?\s*([A-Za-z_][A-Za-z0-9_]*)`)
var hasDefaultFilterRe = regexp.MustCompile(`\|\s*default\s*\(|\|\s*d\s*\(`)

// knownBuiltins never participate in strict-undefined checks: they are
// pongo2/engine-level names, not user variables.
var knownBuiltins = map[string]bool{
	"lookup": true, "now": true, "range": true, "true": true, "false": true, "none": true,
}

func (e *Engine) compile(text string) (*pongo2.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.cache[text]; ok {
		return t, nil
	}
	t, err := pongo2.FromString(text)
	if err != nil {
		return nil, err
	}
	e.cache[text] = t
	return t, nil
}

// checkStrictUndefined scans text for {{ name ... }} expressions whose
// root identifier is absent from vars and has no `default`/`d` filter
// applied.
func (e *Engine) checkStrictUndefined(text string, vars map[string]interface{}) error {
	for _, m := range identRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		if knownBuiltins[name] {
			continue
		}
		if _, ok := vars[name]; ok {
			continue
		}
		// look for a default()/d() filter anywhere in this {{ }} expression
		end := strings.Index(text[m[1]:], "}}")
		exprEnd := len(text)
		if end >= 0 {
			exprEnd = m[1] + end
		}
		expr := text[m[0]:exprEnd]
		if hasDefaultFilterRe.MatchString(expr) {
			continue
		}
		return errors.NewTemplateError(strings.TrimSpace(expr), fmt.Errorf("%q is undefined", name))
	}
	return nil
}

// RenderString renders a single string through the template language.
// Strings without "{{"/"{%" are returned unchanged (cheap common case).
func (e *Engine) RenderString(text string, vars map[string]interface{}) (string, error) {
	if !strings.Contains(text, "{{") && !strings.Contains(text, "{%") {
		return text, nil
	}
	if err := e.checkStrictUndefined(text, vars); err != nil {
		return "", err
	}
	tpl, err := e.compile(text)
	if err != nil {
		return "", errors.NewTemplateError(text, err)
	}
	ctx := e.buildContext(vars)
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", errors.NewTemplateError(text, err)
	}
	return out, nil
}

func (e *Engine) buildContext(vars map[string]interface{}) pongo2.Context {
	ctx := pongo2.Context{}
	for k, v := range vars {
		ctx[k] = v
	}
	ctx["lookup"] = e.lookupFunc(vars)
	return ctx
}

// RenderValue renders a single arbitrary value: strings go through
// RenderString, everything else (including nested maps/slices) goes
// through RenderStructure.
func (e *Engine) RenderValue(value interface{}, vars map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return e.resolveIterative(v, vars)
	case map[string]interface{}:
		return e.RenderStructure(v, vars)
	case []interface{}:
		return e.RenderStructure(v, vars)
	default:
		return v, nil
	}
}

// resolveIterative repeatedly renders text until a pass produces no
// change (variables may reference other templated variables), capped at
// 10 passes. On cap exhaustion, returns the last
// partial result rather than looping forever.
func (e *Engine) resolveIterative(text string, vars map[string]interface{}) (string, error) {
	current := text
	for pass := 0; pass < 10; pass++ {
		next, err := e.RenderString(current, vars)
		if err != nil {
			return "", err
		}
		if next == current {
			return next, nil
		}
		current = next
		if !strings.Contains(current, "{{") && !strings.Contains(current, "{%") {
			return current, nil
		}
	}
	return current, nil
}

// RenderStructure recursively renders every string leaf of tree,
// preserving non-string scalars.
func (e *Engine) RenderStructure(tree interface{}, vars map[string]interface{}) (interface{}, error) {
	switch v := tree.(type) {
	case string:
		return e.resolveIterative(v, vars)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			rendered, err := e.RenderStructure(val, vars)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			rendered, err := e.RenderStructure(val, vars)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	default:
		return v, nil
	}
}

// RenderArgs renders a task's module argument map.
func (e *Engine) RenderArgs(args map[string]interface{}, vars map[string]interface{}) (map[string]interface{}, error) {
	rendered, err := e.RenderStructure(args, vars)
	if err != nil {
		return nil, err
	}
	if m, ok := rendered.(map[string]interface{}); ok {
		return m, nil
	}
	return map[string]interface{}{}, nil
}

func (e *Engine) Close() error { return nil }
