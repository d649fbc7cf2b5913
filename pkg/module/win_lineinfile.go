package module

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sansible/sansible/pkg/connection"
)

// WinLineinfileModule win_lineinfile 模块实现
// win_lineinfile 确保 Windows 文本文件中存在或不存在某一行，对应
// Linux 侧的 lineinfile 模块，复用其查找/插入/删除逻辑，读写通过
// PowerShell 的 Get-Content/Set-Content 完成。
type WinLineinfileModule struct{}

// Execute 执行 win_lineinfile 模块
func (m *WinLineinfileModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	result := &Result{}

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

	state := "present"
	if s, ok := args["state"].(string); ok && s != "" {
		state = s
	}

	lineInterface, hasLine := args["line"]
	if !hasLine && state == "present" {
		result.Failed = true
		result.Msg = "missing required argument: line (required when state=present)"
		return result, nil
	}
	var line string
	if hasLine {
		line, ok = lineInterface.(string)
		if !ok {
			result.Failed = true
			result.Msg = "line must be a string"
			return result, nil
		}
	}

	var regexpCompiled *regexp.Regexp
	if r, ok := args["regexp"].(string); ok && r != "" {
		var err error
		regexpCompiled, err = regexp.Compile(r)
		if err != nil {
			result.Failed = true
			result.Msg = fmt.Sprintf("invalid regexp: %v", err)
			return result, nil
		}
	}

	existsRes, err := executePowerShell(conn, fmt.Sprintf("Test-Path -Path %s", psLiteral(path)))
	if err != nil {
		result.Failed = true
		result.Msg = fmt.Sprintf("failed to check path: %v", err)
		return result, nil
	}
	fileExists := existsRes.RC == 0 && strings.TrimSpace(existsRes.Stdout) == "True"

	if !fileExists {
		create := false
		if c, ok := args["create"].(bool); ok {
			create = c
		}
		if !create {
			result.Failed = true
			result.Msg = fmt.Sprintf("file %s does not exist (use create=yes to create)", path)
			return result, nil
		}
		if state != "present" {
			result.Changed = false
			result.Msg = fmt.Sprintf("file %s does not exist, nothing to do", path)
			return result, nil
		}
		if opts.Check {
			return &Result{Changed: true, Msg: "check mode: file not created"}, nil
		}
		touchRes, err := executePowerShell(conn, fmt.Sprintf("New-Item -ItemType File -Force -Path %s | Out-Null", psLiteral(path)))
		if err != nil || touchRes.RC != 0 {
			result.Failed = true
			result.Msg = fmt.Sprintf("failed to create file: %s", touchRes.Stderr)
			return result, nil
		}
	}

	catRes, err := executePowerShell(conn, fmt.Sprintf("Get-Content -Path %s -Raw -ErrorAction SilentlyContinue", psLiteral(path)))
	if err != nil {
		result.Failed = true
		result.Msg = fmt.Sprintf("failed to read file: %v", err)
		return result, nil
	}
	content := catRes.Stdout
	var lines []string
	if content != "" {
		lines = strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	}

	if state == "absent" {
		return m.ensureAbsent(conn, path, lines, line, regexpCompiled, opts.Check, result)
	}
	return m.ensurePresent(conn, path, lines, line, regexpCompiled, args, opts.Check, result)
}

func (m *WinLineinfileModule) ensurePresent(conn *connection.Connection, path string, lines []string, line string, regexpCompiled *regexp.Regexp, args map[string]interface{}, check bool, result *Result) (*Result, error) {
	matchedLineIndex := -1
	if regexpCompiled != nil {
		for i, l := range lines {
			if regexpCompiled.MatchString(l) {
				matchedLineIndex = i
				break
			}
		}
	}

	if matchedLineIndex >= 0 {
		if lines[matchedLineIndex] == line {
			result.Changed = false
			result.Msg = "line already present"
			return result, nil
		}
		lines[matchedLineIndex] = line
		result.Changed = true
	} else {
		insertAfter, hasInsertAfter := args["insertafter"].(string)
		insertBefore, hasInsertBefore := args["insertbefore"].(string)
		insertIndex := -1

		if hasInsertBefore {
			if insertBefore == "BOF" {
				insertIndex = 0
			} else if beforeRegexp, err := regexp.Compile(insertBefore); err == nil {
				for i, l := range lines {
					if beforeRegexp.MatchString(l) {
						insertIndex = i
						break
					}
				}
			}
		} else if hasInsertAfter {
			if insertAfter == "EOF" {
				insertIndex = len(lines)
			} else if afterRegexp, err := regexp.Compile(insertAfter); err == nil {
				for i, l := range lines {
					if afterRegexp.MatchString(l) {
						insertIndex = i + 1
						break
					}
				}
			}
		}

		if insertIndex == -1 {
			insertIndex = len(lines)
		}
		if insertIndex >= len(lines) {
			lines = append(lines, line)
		} else {
			lines = append(lines[:insertIndex], append([]string{line}, lines[insertIndex:]...)...)
		}
		result.Changed = true
	}

	if result.Changed {
		if check {
			return &Result{Changed: true, Msg: "check mode: line not written"}, nil
		}
		if err := m.writeLines(conn, path, lines); err != nil {
			result.Failed = true
			result.Msg = err.Error()
			return result, nil
		}
		result.Msg = "line added or modified"
	}
	return result, nil
}

func (m *WinLineinfileModule) ensureAbsent(conn *connection.Connection, path string, lines []string, line string, regexpCompiled *regexp.Regexp, check bool, result *Result) (*Result, error) {
	newLines := []string{}
	removed := false

	for _, l := range lines {
		shouldRemove := false
		if regexpCompiled != nil && regexpCompiled.MatchString(l) {
			shouldRemove = true
		} else if line != "" && l == line {
			shouldRemove = true
		}
		if shouldRemove {
			removed = true
		} else {
			newLines = append(newLines, l)
		}
	}

	if !removed {
		result.Changed = false
		result.Msg = "line not present, nothing to do"
		return result, nil
	}
	if check {
		return &Result{Changed: true, Msg: "check mode: line not removed"}, nil
	}

	if err := m.writeLines(conn, path, newLines); err != nil {
		result.Failed = true
		result.Msg = err.Error()
		return result, nil
	}
	result.Changed = true
	result.Msg = "line removed"
	return result, nil
}

func (m *WinLineinfileModule) writeLines(conn *connection.Connection, path string, lines []string) error {
	content := strings.Join(lines, "\r\n")
	script := fmt.Sprintf("Set-Content -Path %s -Value %s -NoNewline", psLiteral(path), psLiteral(content))
	res, err := executePowerShell(conn, script)
	if err != nil {
		return fmt.Errorf("failed to write file: %v", err)
	}
	if res.RC != 0 {
		return fmt.Errorf("failed to write file: %s", res.Stderr)
	}
	return nil
}
