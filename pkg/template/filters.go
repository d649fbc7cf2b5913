package template

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/flosch/pongo2/v6"
	"gopkg.in/yaml.v3"
)

// sprigFuncs backs b64encode/b64decode/regex_replace so this package
// doesn't hand-duplicate logic sprig already provides.
var sprigFuncs = sprig.GenericFuncMap()

func registerFilters() {
	reg := func(name string, fn pongo2.FilterFunction) {
		_ = pongo2.RegisterFilter(name, fn)
	}

	reg("default", filterDefault)
	reg("d", filterDefault)
	reg("lower", simpleStringFilter("lower"))
	reg("upper", simpleStringFilter("upper"))
	reg("trim", simpleStringFilter("trim"))
	reg("replace", filterReplace)
	reg("regex_replace", filterRegexReplace)
	reg("to_json", filterToJSON)
	reg("to_yaml", filterToYAML)
	reg("join", filterJoin)
	reg("first", filterFirst)
	reg("last", filterLast)
	reg("length", filterLength)
	reg("int", filterInt)
	reg("bool", filterBool)
	reg("string", filterString)
	reg("basename", filterBasename)
	reg("dirname", filterDirname)
	reg("b64encode", filterB64Encode)
	reg("b64decode", filterB64Decode)
	reg("combine", filterCombine)
}

func filterDefault(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in == nil || in.IsNil() || !in.IsTrue() && in.String() == "" {
		if param != nil {
			return param, nil
		}
		return pongo2.AsValue(""), nil
	}
	return in, nil
}

func simpleStringFilter(which string) pongo2.FilterFunction {
	return func(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		s := in.String()
		switch which {
		case "lower":
			return pongo2.AsValue(strings.ToLower(s)), nil
		case "upper":
			return pongo2.AsValue(strings.ToUpper(s)), nil
		case "trim":
			return pongo2.AsValue(strings.TrimSpace(s)), nil
		}
		return in, nil
	}
}

func filterReplace(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	parts := strings.SplitN(param.String(), ",", 2)
	if len(parts) != 2 {
		return nil, &pongo2.Error{Sender: "replace", OrigError: fmt.Errorf("replace expects 'from,to'")}
	}
	return pongo2.AsValue(strings.ReplaceAll(in.String(), parts[0], parts[1])), nil
}

func filterRegexReplace(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	parts := strings.SplitN(param.String(), ",", 2)
	if len(parts) != 2 {
		return nil, &pongo2.Error{Sender: "regex_replace", OrigError: fmt.Errorf("regex_replace expects 'pattern,repl'")}
	}
	fn := sprigFuncs["regexReplaceAll"].(func(string, string, string) string)
	return pongo2.AsValue(fn(parts[0], in.String(), parts[1])), nil
}

func filterToJSON(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	b, err := json.Marshal(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "to_json", OrigError: err}
	}
	return pongo2.AsValue(string(b)), nil
}

func filterToYAML(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	b, err := yaml.Marshal(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "to_yaml", OrigError: err}
	}
	return pongo2.AsValue(string(b)), nil
}

func filterJoin(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	sep := ","
	if param != nil && param.String() != "" {
		sep = param.String()
	}
	var items []string
	if in.CanSlice() {
		for i := 0; i < in.Len(); i++ {
			items = append(items, in.Index(i).String())
		}
	}
	return pongo2.AsValue(strings.Join(items, sep)), nil
}

func filterFirst(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.CanSlice() && in.Len() > 0 {
		return in.Index(0), nil
	}
	return pongo2.AsValue(nil), nil
}

func filterLast(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.CanSlice() && in.Len() > 0 {
		return in.Index(in.Len() - 1), nil
	}
	return pongo2.AsValue(nil), nil
}

func filterLength(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.CanSlice() {
		return pongo2.AsValue(in.Len()), nil
	}
	return pongo2.AsValue(len(in.String())), nil
}

func filterInt(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.IsInteger() {
		return in, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(in.String()))
	if err != nil {
		return nil, &pongo2.Error{Sender: "int", OrigError: err}
	}
	return pongo2.AsValue(n), nil
}

func filterBool(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	s := strings.ToLower(strings.TrimSpace(in.String()))
	switch s {
	case "true", "yes", "1", "on":
		return pongo2.AsValue(true), nil
	case "false", "no", "0", "off", "":
		return pongo2.AsValue(false), nil
	}
	return pongo2.AsValue(in.IsTrue()), nil
}

func filterString(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(in.String()), nil
}

func filterBasename(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(path.Base(in.String())), nil
}

func filterDirname(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(path.Dir(in.String())), nil
}

func filterB64Encode(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	fn := sprigFuncs["b64enc"].(func(string) string)
	return pongo2.AsValue(fn(in.String())), nil
}

func filterB64Decode(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	fn := sprigFuncs["b64dec"].(func(string) string)
	return pongo2.AsValue(fn(in.String())), nil
}

// filterCombine performs a shallow dict merge: {{ a | combine(b) }}.
func filterCombine(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	base, ok := in.Interface().(map[string]interface{})
	if !ok {
		return nil, &pongo2.Error{Sender: "combine", OrigError: fmt.Errorf("combine requires a mapping")}
	}
	other, ok := param.Interface().(map[string]interface{})
	if !ok {
		return nil, &pongo2.Error{Sender: "combine", OrigError: fmt.Errorf("combine requires a mapping argument")}
	}
	out := make(map[string]interface{}, len(base)+len(other))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return pongo2.AsValue(out), nil
}
