package module

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sansible/sansible/pkg/connection"
)

// WinStatModule win_stat 模块实现
// win_stat 获取 Windows 路径的元数据，不做任何修改，对应 Linux 侧的
// stat 模块，底层通过 PowerShell 的 Get-Item/Get-FileHash 实现。
type WinStatModule struct{}

// Execute 执行 win_stat 模块
func (m *WinStatModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	result := &Result{Data: make(map[string]interface{})}

	pathInterface, ok := args["path"]
	if !ok {
		result.Failed = true
		result.Msg = "missing required argument: path"
		return result, nil
	}
	path, ok := pathInterface.(string)
	if !ok {
		result.Failed = true
		result.Msg = "path must be a string"
		return result, nil
	}

	script := fmt.Sprintf(
		`if (Test-Path -Path %s) { $i = Get-Item -Path %s -Force; "{0}|{1}|{2}|{3}" -f $i.PSIsContainer, $i.Length, $i.LastWriteTimeUtc.Ticks, $i.Attributes } else { "absent" }`,
		psLiteral(path), psLiteral(path))
	res, err := executePowerShell(conn, script)
	if err != nil {
		result.Failed = true
		result.Msg = fmt.Sprintf("failed to stat path: %v", err)
		return result, nil
	}

	stat := map[string]interface{}{}
	out := strings.TrimSpace(res.Stdout)

	if res.RC != 0 || out == "absent" || out == "" {
		stat["exists"] = false
	} else {
		fields := strings.SplitN(out, "|", 4)
		if len(fields) == 4 {
			isDir := fields[0] == "True"
			size, _ := strconv.ParseInt(fields[1], 10, 64)
			ticks, _ := strconv.ParseInt(fields[2], 10, 64)

			stat["exists"] = true
			stat["path"] = path
			stat["isdir"] = isDir
			stat["isreg"] = !isDir
			stat["size"] = size
			stat["last_write_time_ticks"] = ticks
			stat["attributes"] = fields[3]

			if !isDir {
				if sumRes, err := executePowerShell(conn, fmt.Sprintf("(Get-FileHash -Path %s -Algorithm SHA1).Hash", psLiteral(path))); err == nil && sumRes.RC == 0 {
					stat["checksum"] = strings.ToLower(strings.TrimSpace(sumRes.Stdout))
				}
			}
		} else {
			stat["exists"] = false
		}
	}

	result.Data["stat"] = stat
	result.Changed = false
	result.Msg = fmt.Sprintf("stat of %s", path)
	return result, nil
}
