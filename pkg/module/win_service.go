package module

import (
	"fmt"
	"strings"

	"github.com/sansible/sansible/pkg/connection"
)

// WinServiceModule win_service 模块实现
// win_service 管理 Windows 服务的运行状态和启动类型，对应 Linux 侧的
// service 模块，底层通过 PowerShell 的 *-Service cmdlet 家族实现。
type WinServiceModule struct{}

// Execute 执行 win_service 模块
func (m *WinServiceModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	result := &Result{}

	nameInterface, ok := args["name"]
	if !ok {
		result.Failed = true
		result.Msg = "missing required argument: name"
		return result, nil
	}
	name, ok := nameInterface.(string)
	if !ok {
		result.Failed = true
		result.Msg = "name must be a string"
		return result, nil
	}

	var state string
	if s, ok := args["state"].(string); ok {
		state = s
	}

	var startMode string
	if s, ok := args["start_mode"].(string); ok {
		startMode = s
	}

	if state == "" && startMode == "" {
		result.Failed = true
		result.Msg = "one of 'state' or 'start_mode' is required"
		return result, nil
	}

	changed := false

	if startMode != "" {
		modeChanged, err := m.manageStartMode(conn, name, startMode, opts.Check)
		if err != nil {
			result.Failed = true
			result.Msg = err.Error()
			return result, nil
		}
		if modeChanged {
			changed = true
		}
	}

	if state != "" {
		stateChanged, err := m.manageState(conn, name, state, opts.Check)
		if err != nil {
			result.Failed = true
			result.Msg = err.Error()
			return result, nil
		}
		if stateChanged {
			changed = true
		}
	}

	result.Changed = changed
	if changed {
		result.Msg = fmt.Sprintf("service %s state changed", name)
	} else {
		result.Msg = fmt.Sprintf("service %s already in desired state", name)
	}
	return result, nil
}

func (m *WinServiceModule) currentStatus(conn *connection.Connection, name string) (string, error) {
	res, err := executePowerShell(conn, fmt.Sprintf("(Get-Service -Name %s).Status", psLiteral(name)))
	if err != nil {
		return "", err
	}
	if res.RC != 0 {
		return "", fmt.Errorf("failed to query service %s: %s", name, res.Stderr)
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (m *WinServiceModule) manageState(conn *connection.Connection, name, state string, check bool) (bool, error) {
	status, err := m.currentStatus(conn, name)
	if err != nil {
		return false, err
	}

	var cmdlet string
	needChange := false

	switch state {
	case "started":
		if status != "Running" {
			cmdlet = "Start-Service"
			needChange = true
		}
	case "stopped":
		if status != "Stopped" {
			cmdlet = "Stop-Service"
			needChange = true
		}
	case "restarted":
		cmdlet = "Restart-Service"
		needChange = true
	default:
		return false, fmt.Errorf("invalid state: %s (must be started/stopped/restarted)", state)
	}

	if !needChange {
		return false, nil
	}
	if check {
		return true, nil
	}

	res, err := executePowerShell(conn, fmt.Sprintf("%s -Name %s -Force", cmdlet, psLiteral(name)))
	if err != nil || res.RC != 0 {
		return false, fmt.Errorf("failed to change service state: %s", res.Stderr)
	}
	return true, nil
}

func (m *WinServiceModule) manageStartMode(conn *connection.Connection, name, startMode string, check bool) (bool, error) {
	res, err := executePowerShell(conn, fmt.Sprintf("(Get-Service -Name %s).StartType", psLiteral(name)))
	if err != nil {
		return false, err
	}
	if res.RC != 0 {
		return false, fmt.Errorf("failed to query start type for %s: %s", name, res.Stderr)
	}
	current := strings.TrimSpace(res.Stdout)

	desired := startModeToStartType(startMode)
	if strings.EqualFold(current, desired) {
		return false, nil
	}
	if check {
		return true, nil
	}

	setRes, err := executePowerShell(conn, fmt.Sprintf("Set-Service -Name %s -StartupType %s", psLiteral(name), desired))
	if err != nil || setRes.RC != 0 {
		return false, fmt.Errorf("failed to change start mode: %s", setRes.Stderr)
	}
	return true, nil
}

func startModeToStartType(mode string) string {
	switch mode {
	case "auto":
		return "Automatic"
	case "manual":
		return "Manual"
	case "disabled":
		return "Disabled"
	default:
		return mode
	}
}
