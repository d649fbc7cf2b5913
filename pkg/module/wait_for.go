package module

import (
	"fmt"
	"time"

	"github.com/sansible/sansible/pkg/connection"
)

// WaitForModule wait_for 模块实现
// wait_for 轮询一个 TCP 端口或文件路径直至其达到目标状态，或超时失败。
// 探测在远程主机上通过 shell 完成（bash 的 /dev/tcp 伪设备或 test -e），
// 不依赖控制节点上是否能访问目标端口。
type WaitForModule struct{}

// Execute 执行 wait_for 模块
func (m *WaitForModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
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

	var probe string
	var description string

	if path, ok := args["path"].(string); ok && path != "" {
		description = fmt.Sprintf("path %s", path)
		switch state {
		case "absent":
			probe = fmt.Sprintf("test ! -e %s", path)
		default:
			probe = fmt.Sprintf("test -e %s", path)
		}
	} else {
		host, _ := args["host"].(string)
		if host == "" {
			host = "127.0.0.1"
		}
		port, ok := numericArg(args["port"])
		if !ok {
			result.Failed = true
			result.Msg = "wait_for module requires 'port' or 'path' argument"
			return result, nil
		}
		description = fmt.Sprintf("%s:%d", host, port)
		tcpCheck := fmt.Sprintf("(exec 3<>/dev/tcp/%s/%d) 2>/dev/null", host, port)
		switch state {
		case "stopped":
			probe = fmt.Sprintf("! %s", tcpCheck)
		default:
			probe = tcpCheck
		}
	}

	deadline := time.Now().Add(timeout)
	pollInterval := time.Second
	var lastRC int

	for {
		_, _, rc, err := conn.ExecWithTimeout(fmt.Sprintf("bash -c '%s'", probe), 10*time.Second)
		if err == nil {
			lastRC = rc
			if rc == 0 {
				result.Changed = false
				result.Msg = fmt.Sprintf("%s reached state %q", description, state)
				return result, nil
			}
		}

		if time.Now().After(deadline) {
			result.Failed = true
			result.Msg = fmt.Sprintf("timed out waiting for %s to reach state %q (rc=%d)", description, state, lastRC)
			return result, nil
		}

		time.Sleep(pollInterval)
	}
}

// numericArg coerces a loosely-typed module argument (float64 from YAML
// parsing, or a string) into an int.
func numericArg(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		var out int
		if _, err := fmt.Sscanf(n, "%d", &out); err == nil {
			return out, true
		}
	}
	return 0, false
}
