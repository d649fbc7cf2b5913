package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/sansible/sansible/pkg/errors"
)

var bareIdentRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\b`)
var quotedLiteralRe = regexp.MustCompile(`'[^']*'|"[^"]*"`)

var reservedWords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true,
	"true": true, "false": true, "True": true, "False": true, "none": true, "None": true,
}

// EvaluateCondition evaluates a `when` expression. It accepts
// a bare boolean expression without surrounding {{ }}. vars must supply
// every free identifier referenced (strict-undefined applies here too).
func (e *Engine) EvaluateCondition(expr string, vars map[string]interface{}) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	if err := e.checkBareStrictUndefined(expr, vars); err != nil {
		return false, err
	}

	wrapped := fmt.Sprintf("{%% if %s %%}true{%% else %%}false{%% endif %%}", expr)
	tpl, err := pongo2.FromString(wrapped)
	if err != nil {
		return false, errors.NewTemplateError(expr, err)
	}
	out, err := tpl.Execute(e.buildContext(vars))
	if err != nil {
		return false, errors.NewTemplateError(expr, err)
	}
	return strings.TrimSpace(out) == "true", nil
}

// EvaluateWhenList evaluates the boolean-list shorthand: a YAML list of
// conditions is the AND of its elements.
func (e *Engine) EvaluateWhenList(exprs []string, vars map[string]interface{}) (bool, error) {
	for _, expr := range exprs {
		ok, err := e.EvaluateCondition(expr, vars)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e *Engine) checkBareStrictUndefined(expr string, vars map[string]interface{}) error {
	// words inside quoted string literals are not identifiers
	scan := quotedLiteralRe.ReplaceAllString(expr, "''")
	for _, m := range bareIdentRe.FindAllString(scan, -1) {
		if reservedWords[m] || knownBuiltins[m] {
			continue
		}
		// skip numeric-looking tokens and dotted-attribute continuations
		// (only the root identifier of a dotted path needs to be defined)
		if _, ok := vars[m]; ok {
			continue
		}
		if looksLikeAttributeContinuation(scan, m) {
			continue
		}
		return errors.NewTemplateError(expr, fmt.Errorf("%q is undefined", m))
	}
	return nil
}

// looksLikeAttributeContinuation reports whether ident appears
// immediately after a "." in expr, meaning it's an attribute name (e.g.
// the "stdout" in "result.stdout") rather than a free variable.
func looksLikeAttributeContinuation(expr, ident string) bool {
	idx := strings.Index(expr, "."+ident)
	return idx >= 0
}
