package module

import (
	"fmt"

	"github.com/sansible/sansible/pkg/connection"
)

// WinShellModule win_shell 模块实现
// win_shell 把命令文本交给 PowerShell 解释执行，对应 Linux 侧的 shell 模块。
type WinShellModule struct{}

// Execute 执行 win_shell 模块
func (m *WinShellModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	var script string
	if raw, ok := args["_raw_params"].(string); ok {
		script = raw
	} else if c, ok := args["cmd"].(string); ok {
		script = c
	} else {
		return &Result{Failed: true, Msg: "win_shell module requires 'cmd' or '_raw_params' argument"}, nil
	}

	if chdir, _ := args["chdir"].(string); chdir != "" {
		script = fmt.Sprintf("Set-Location -Path %s; %s", chdir, script)
	}

	if opts.Check {
		return &Result{Changed: true, Msg: "check mode: command not executed"}, nil
	}

	res, err := executePowerShell(conn, script)
	if err != nil {
		return &Result{Failed: true, Msg: err.Error()}, nil
	}

	result := &Result{Changed: true, RC: res.RC, Stdout: res.Stdout, Stderr: res.Stderr}
	if res.RC != 0 {
		result.Failed = true
		result.Msg = "non-zero return code"
	}
	return result, nil
}
