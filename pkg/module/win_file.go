package module

import (
	"fmt"

	"github.com/sansible/sansible/pkg/connection"
)

// WinFileModule win_file 模块实现
// win_file 管理 Windows 路径的存在性（文件/目录/删除），对应 Linux 侧
// 的 file 模块，底层通过 PowerShell 的 Test-Path/New-Item/Remove-Item 实现。
type WinFileModule struct{}

// Execute 执行 win_file 模块
func (m *WinFileModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	result := &Result{}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		result.Failed = true
		result.Msg = "missing required argument: path"
		return result, nil
	}

	state := "file"
	if s, ok := args["state"].(string); ok && s != "" {
		state = s
	}

	existsRes, err := executePowerShell(conn, fmt.Sprintf("Test-Path -Path %s", psLiteral(path)))
	if err != nil {
		result.Failed = true
		result.Msg = fmt.Sprintf("failed to check path: %v", err)
		return result, nil
	}
	exists := existsRes.RC == 0 && existsRes.Stdout == "True"

	switch state {
	case "directory":
		if exists {
			result.Changed = false
			result.Msg = "directory already present"
			return result, nil
		}
		if opts.Check {
			return &Result{Changed: true, Msg: "check mode: directory not created"}, nil
		}
		res, err := executePowerShell(conn, fmt.Sprintf("New-Item -ItemType Directory -Force -Path %s | Out-Null", psLiteral(path)))
		if err != nil || res.RC != 0 {
			result.Failed = true
			result.Msg = fmt.Sprintf("failed to create directory: %s", res.Stderr)
			return result, nil
		}
		result.Changed = true
		result.Msg = "directory created"
		return result, nil

	case "touch":
		if opts.Check {
			return &Result{Changed: true, Msg: "check mode: file not touched"}, nil
		}
		res, err := executePowerShell(conn, fmt.Sprintf(
			"if (-not (Test-Path -Path %s)) { New-Item -ItemType File -Force -Path %s | Out-Null } else { (Get-Item %s).LastWriteTime = Get-Date }",
			psLiteral(path), psLiteral(path), psLiteral(path)))
		if err != nil || res.RC != 0 {
			result.Failed = true
			result.Msg = fmt.Sprintf("failed to touch file: %s", res.Stderr)
			return result, nil
		}
		result.Changed = true
		result.Msg = "file touched"
		return result, nil

	case "absent":
		if !exists {
			result.Changed = false
			result.Msg = "path already absent"
			return result, nil
		}
		if opts.Check {
			return &Result{Changed: true, Msg: "check mode: path not removed"}, nil
		}
		res, err := executePowerShell(conn, fmt.Sprintf("Remove-Item -Path %s -Recurse -Force", psLiteral(path)))
		if err != nil || res.RC != 0 {
			result.Failed = true
			result.Msg = fmt.Sprintf("failed to remove path: %s", res.Stderr)
			return result, nil
		}
		result.Changed = true
		result.Msg = "path removed"
		return result, nil

	case "file":
		if !exists {
			result.Failed = true
			result.Msg = fmt.Sprintf("file %s does not exist", path)
			return result, nil
		}
		result.Changed = false
		result.Msg = "file already present"
		return result, nil

	default:
		result.Failed = true
		result.Msg = fmt.Sprintf("unsupported state: %s", state)
		return result, nil
	}
}

// psLiteral quotes a value as a single-quoted PowerShell string literal
// for embedding inside a script body built by this package.
func psLiteral(s string) string {
	return "'" + replaceAllPSQuotes(s) + "'"
}

func replaceAllPSQuotes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
		} else {
			out = append(out, s[i])
		}
	}
	return string(out)
}
