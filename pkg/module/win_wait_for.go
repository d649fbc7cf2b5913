package module

import (
	"fmt"
	"strings"
	"time"

	"github.com/sansible/sansible/pkg/connection"
)

// WinWaitForModule win_wait_for 模块实现
// win_wait_for 轮询一个 TCP 端口或文件路径直至其达到目标状态，或超时
// 失败，对应 Linux 侧的 wait_for 模块，探测通过 PowerShell 的
// Test-NetConnection/Test-Path 完成。
type WinWaitForModule struct{}

// Execute 执行 win_wait_for 模块
func (m *WinWaitForModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	result := &Result{}

	state := "started"
	if s, ok := args["state"].(string); ok && s != "" {
		state = s
	}

	timeout := 300 * time.Second
	if t, ok := numericArg(args["timeout"]); ok {
		timeout = time.Duration(t) * time.Second
	}

	delay := 0 * time.Second
	if d, ok := numericArg(args["delay"]); ok {
		delay = time.Duration(d) * time.Second
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	var script string
	var description string

	if path, ok := args["path"].(string); ok && path != "" {
		description = fmt.Sprintf("path %s", path)
		script = fmt.Sprintf("Test-Path -Path %s", psLiteral(path))
		if state == "absent" {
			script = fmt.Sprintf("-not (%s)", script)
		}
	} else {
		host, _ := args["host"].(string)
		if host == "" {
			host = "127.0.0.1"
		}
		port, ok := numericArg(args["port"])
		if !ok {
			result.Failed = true
			result.Msg = "win_wait_for module requires 'port' or 'path' argument"
			return result, nil
		}
		description = fmt.Sprintf("%s:%d", host, port)
		script = fmt.Sprintf("(Test-NetConnection -ComputerName %s -Port %d -WarningAction SilentlyContinue).TcpTestSucceeded", psLiteral(host), port)
		if state == "stopped" {
			script = fmt.Sprintf("-not (%s)", script)
		}
	}

	deadline := time.Now().Add(timeout)
	pollInterval := time.Second

	for {
		res, err := executePowerShell(conn, script)
		if err == nil && res.RC == 0 && strings.TrimSpace(res.Stdout) == "True" {
			result.Changed = false
			result.Msg = fmt.Sprintf("%s reached state %q", description, state)
			return result, nil
		}

		if time.Now().After(deadline) {
			result.Failed = true
			result.Msg = fmt.Sprintf("timed out waiting for %s to reach state %q", description, state)
			return result, nil
		}

		time.Sleep(pollInterval)
	}
}
