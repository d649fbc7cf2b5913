package module

import (
	"fmt"

	"github.com/sansible/sansible/pkg/connection"
)

// WinCommandModule win_command 模块实现
// win_command 直接执行一个 Windows 可执行文件，不经过 PowerShell 解析，
// 对应 Linux 侧的 command 模块。
type WinCommandModule struct{}

// Execute 执行 win_command 模块
func (m *WinCommandModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	var cmd string
	if raw, ok := args["_raw_params"].(string); ok {
		cmd = raw
	} else if c, ok := args["cmd"].(string); ok {
		cmd = c
	} else {
		return &Result{Failed: true, Msg: "win_command module requires 'cmd' or '_raw_params' argument"}, nil
	}

	if chdir, _ := args["chdir"].(string); chdir != "" {
		cmd = fmt.Sprintf("cmd.exe /c \"cd /d %s && %s\"", chdir, cmd)
	} else {
		cmd = fmt.Sprintf("cmd.exe /c %s", cmd)
	}

	if opts.Check {
		return &Result{Changed: true, Msg: "check mode: command not executed"}, nil
	}

	stdout, stderr, exitCode, err := conn.Exec(cmd)
	if err != nil {
		return &Result{Failed: true, Msg: err.Error(), RC: exitCode}, nil
	}

	result := &Result{Changed: true, RC: exitCode, Stdout: string(stdout), Stderr: string(stderr)}
	if exitCode != 0 {
		result.Failed = true
		result.Msg = "non-zero return code"
	}
	return result, nil
}
