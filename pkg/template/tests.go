package template

import (
	"github.com/flosch/pongo2/v6"
)

// init registers the tests pongo2 doesn't
// already ship natively. pongo2 itself provides `defined`, `undefined`,
// `even`, `odd`, and `divisibleby`; `string`/`number`/`iterable` and the
// TaskResult-shaped tests (failed/success/changed/skipped) are added here.
func init() {
	reg := func(name string, fn pongo2.TestFunction) { _ = pongo2.RegisterTest(name, fn) }

	reg("string", func(in, _ *pongo2.Value) (bool, *pongo2.Error) {
		_, ok := in.Interface().(string)
		return ok, nil
	})
	reg("number", func(in, _ *pongo2.Value) (bool, *pongo2.Error) {
		return in.IsNumber(), nil
	})
	reg("mapping", func(in, _ *pongo2.Value) (bool, *pongo2.Error) {
		_, ok := in.Interface().(map[string]interface{})
		return ok, nil
	})
	reg("sequence", func(in, _ *pongo2.Value) (bool, *pongo2.Error) {
		return in.CanSlice(), nil
	})
	reg("iterable", func(in, _ *pongo2.Value) (bool, *pongo2.Error) {
		return in.CanSlice(), nil
	})
	reg("failed", taskResultTest("failed"))
	reg("success", taskResultTest("success"))
	reg("succeeded", taskResultTest("success"))
	reg("changed", taskResultTest("changed"))
	reg("skipped", taskResultTest("skipped"))
}

// taskResultTest builds a test that inspects a TaskResult-shaped map
// (as registered by `register`) for the named boolean attribute.
func taskResultTest(attr string) pongo2.TestFunction {
	return func(in, _ *pongo2.Value) (bool, *pongo2.Error) {
		m, ok := in.Interface().(map[string]interface{})
		if !ok {
			return false, nil
		}
		switch attr {
		case "success":
			failed, _ := m["failed"].(bool)
			unreachable, _ := m["unreachable"].(bool)
			return !failed && !unreachable, nil
		default:
			v, _ := m[attr].(bool)
			return v, nil
		}
	}
}
