package module

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sansible/sansible/pkg/connection"
	"github.com/sansible/sansible/pkg/errors"
)

// Executor dispatches a qualified or short module name to its
// implementation via a registry, so the task parser (which accepts
// any module key, not a fixed whitelist) and the CLI's introspection
// commands can share one source of truth.
type Executor struct {
	modules map[string]Factory
}

// NewExecutor builds an Executor with the documented minimum module
// surface registered: command family, file state, templating, service
// management, and the housekeeping modules (debug/fail/set_fact/ping).
func NewExecutor() *Executor {
	e := &Executor{modules: make(map[string]Factory)}

	e.Register("ping", func() Module { return moduleFunc(executePingAdapter) })
	e.Register("raw", func() Module { return moduleFunc(executeRawAdapter) })
	e.Register("command", func() Module { return moduleFunc(executeCommandAdapter) })
	e.Register("shell", func() Module { return moduleFunc(executeShellAdapter) })
	e.Register("copy", func() Module { return moduleFunc(executeCopyAdapter) })
	e.Register("debug", func() Module { return moduleFunc(executeDebugAdapter) })
	e.Register("file", func() Module { return &FileModule{} })
	e.Register("template", func() Module { return &TemplateModule{} })
	e.Register("lineinfile", func() Module { return &LineinfileModule{} })
	e.Register("get_url", func() Module { return &GetUrlModule{} })
	e.Register("service", func() Module { return &ServiceModule{} })
	e.Register("systemd", func() Module { return &SystemdModule{} })
	e.Register("fail", func() Module { return &FailModule{} })
	e.Register("stat", func() Module { return &StatModule{} })
	e.Register("assert", func() Module { return &AssertModule{} })
	e.Register("set_fact", func() Module { return &SetFactModule{} })
	e.Register("wait_for", func() Module { return &WaitForModule{} })
	e.Register("blockinfile", func() Module { return &BlockinfileModule{} })
	e.Register("replace", func() Module { return &ReplaceModule{} })
	e.Register("setup", func() Module { return &SetupModule{} })

	e.Register("win_command", func() Module { return &WinCommandModule{} })
	e.Register("win_shell", func() Module { return &WinShellModule{} })
	e.Register("win_copy", func() Module { return &WinCopyModule{} })
	e.Register("win_file", func() Module { return &WinFileModule{} })
	e.Register("win_service", func() Module { return &WinServiceModule{} })
	e.Register("win_stat", func() Module { return &WinStatModule{} })
	e.Register("win_lineinfile", func() Module { return &WinLineinfileModule{} })
	e.Register("win_wait_for", func() Module { return &WinWaitForModule{} })

	return e
}

// Register adds or replaces a module factory under name.
func (e *Executor) Register(name string, f Factory) {
	e.modules[name] = f
}

// IsKnown reports whether name resolves to a registered module, after
// stripping any FQCN-style qualifier (ansible.builtin.copy -> copy).
func (e *Executor) IsKnown(name string) bool {
	_, ok := e.modules[unqualify(name)]
	return ok
}

// unqualify strips a fully-qualified collection prefix
// (ansible.builtin.*, ansible.windows.*, community.*) down to the bare
// module name the registry keys on.
func unqualify(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Execute resolves name against the registry and runs it. win_-prefixed
// names dispatch to their own registered implementations (over the
// WinRM transport); a name with no matching registry entry at all
// surfaces as an unsupported-module error rather than silently
// falling through to another implementation.
func (e *Executor) Execute(conn *connection.Connection, name string, args map[string]interface{}, opts RunOptions) (*Result, error) {
	factory, ok := e.modules[unqualify(name)]
	if !ok {
		return nil, errors.NewModuleError(name, "unsupported module")
	}
	return factory().Execute(conn, args, opts)
}

// moduleFunc adapts a plain function to the Module interface, used for
// the small inline modules that don't warrant their own struct/file.
type moduleFunc func(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error)

func (f moduleFunc) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	return f(conn, args, opts)
}

func executePingAdapter(conn *connection.Connection, _ map[string]interface{}, _ RunOptions) (*Result, error) {
	return &Result{Changed: false, Ping: "pong"}, nil
}

func executeRawAdapter(conn *connection.Connection, args map[string]interface{}, _ RunOptions) (*Result, error) {
	cmd, ok := args["_raw_params"].(string)
	if !ok {
		if c, ok := args["cmd"].(string); ok {
			cmd = c
		} else {
			return nil, fmt.Errorf("raw module requires command")
		}
	}

	stdout, stderr, exitCode, err := conn.Exec(cmd)
	if err != nil {
		return &Result{Failed: true, Msg: err.Error(), RC: exitCode}, nil
	}

	result := &Result{Changed: true, RC: exitCode, Stdout: string(stdout), Stderr: string(stderr)}
	if exitCode != 0 {
		result.Failed = true
		result.Msg = fmt.Sprintf("non-zero return code: %d", exitCode)
	}
	return result, nil
}

func executeCommandAdapter(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	var cmd string
	if rawCmd, ok := args["_raw_params"].(string); ok {
		cmd = rawCmd
	} else if argvInterface, ok := args["argv"]; ok {
		if argv, ok := argvInterface.([]interface{}); ok {
			parts := make([]string, len(argv))
			for i, v := range argv {
				parts[i] = fmt.Sprintf("%v", v)
			}
			cmd = strings.Join(parts, " ")
		}
	} else if cmdArg, ok := args["cmd"].(string); ok {
		cmd = cmdArg
	} else {
		return &Result{Failed: true, Msg: "command module requires 'cmd' or '_raw_params' argument"}, nil
	}

	if chdir, _ := args["chdir"].(string); chdir != "" {
		cmd = fmt.Sprintf("cd %s && %s", chdir, cmd)
	}

	if opts.Check {
		return &Result{Changed: true, Msg: "check mode: command not executed", Skipped: false}, nil
	}

	stdout, stderr, exitCode, err := conn.Exec(cmd)
	if err != nil {
		return &Result{Failed: true, Msg: err.Error(), RC: exitCode}, nil
	}

	result := &Result{Changed: true, RC: exitCode, Stdout: strings.TrimSpace(string(stdout)), Stderr: strings.TrimSpace(string(stderr))}
	if exitCode != 0 {
		result.Failed = true
		result.Msg = "non-zero return code"
	}
	return result, nil
}

func executeShellAdapter(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	var cmd string
	if rawCmd, ok := args["_raw_params"].(string); ok {
		cmd = rawCmd
	} else if cmdArg, ok := args["cmd"].(string); ok {
		cmd = cmdArg
	} else {
		return &Result{Failed: true, Msg: "shell module requires 'cmd' or '_raw_params' argument"}, nil
	}

	chdir, _ := args["chdir"].(string)
	executable, _ := args["executable"].(string)
	if executable == "" {
		executable = "/bin/sh"
	}

	fullCmd := fmt.Sprintf("%s -c %s", executable, shellQuote(cmd))
	if chdir != "" {
		fullCmd = fmt.Sprintf("cd %s && %s", chdir, fullCmd)
	}

	if opts.Check {
		return &Result{Changed: true, Msg: "check mode: command not executed"}, nil
	}

	stdout, stderr, exitCode, err := conn.Exec(fullCmd)
	if err != nil {
		return &Result{Failed: true, Msg: err.Error(), RC: exitCode}, nil
	}

	result := &Result{Changed: true, RC: exitCode, Stdout: strings.TrimSpace(string(stdout)), Stderr: strings.TrimSpace(string(stderr))}
	if exitCode != 0 {
		result.Failed = true
		result.Msg = "non-zero return code"
	}
	return result, nil
}

func executeCopyAdapter(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	dest, ok := args["dest"].(string)
	if !ok {
		return &Result{Failed: true, Msg: "copy module requires 'dest' argument"}, nil
	}

	if content, hasContent := args["content"].(string); hasContent {
		if opts.Check {
			return &Result{Changed: true, Dest: dest, Msg: "check mode: content not written"}, nil
		}
		writeCmd := fmt.Sprintf("cat > %s << 'SANSIBLE_EOF'\n%s\nSANSIBLE_EOF", dest, content)
		_, stderr, exitCode, err := conn.Exec(writeCmd)
		if err != nil || exitCode != 0 {
			return &Result{Failed: true, Msg: "failed to write content to destination", RC: exitCode, Stderr: string(stderr)}, nil
		}
		return &Result{Changed: true, Dest: dest}, nil
	}

	src, ok := args["src"].(string)
	if !ok {
		return &Result{Failed: true, Msg: "copy module requires either 'src' or 'content' argument"}, nil
	}

	if opts.Check {
		return &Result{Changed: true, Dest: dest, Msg: "check mode: file not copied"}, nil
	}

	if err := conn.PutFile(src, dest); err != nil {
		return &Result{Failed: true, Msg: fmt.Sprintf("failed to copy file: %s", err.Error())}, nil
	}

	if mode, ok := args["mode"].(string); ok {
		chmodCmd := fmt.Sprintf("chmod %s %s", mode, dest)
		_, _, exitCode, err := conn.Exec(chmodCmd)
		if err != nil || exitCode != 0 {
			return &Result{Failed: true, Msg: "failed to set file permissions", RC: exitCode}, nil
		}
	}

	return &Result{Changed: true, Dest: dest}, nil
}

func executeDebugAdapter(conn *connection.Connection, args map[string]interface{}, _ RunOptions) (*Result, error) {
	var msg string
	if msgArg, ok := args["msg"].(string); ok {
		msg = msgArg
	} else if varArg, ok := args["var"].(string); ok {
		msg = fmt.Sprintf("%s: %v", varArg, args[varArg])
	} else {
		msg = "Debug output"
	}
	return &Result{Changed: false, Msg: msg}, nil
}

// shellQuote quotes a string for safe embedding in an sh -c argument.
func shellQuote(s string) string {
	s = strings.ReplaceAll(s, "'", "'\"'\"'")
	return "'" + s + "'"
}

// ToJSON renders a Result as its JSON wire form.
func (r *Result) ToJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
