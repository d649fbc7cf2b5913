package module

import (
	"fmt"
	"strings"

	"github.com/sansible/sansible/pkg/connection"
)

// BlockinfileModule blockinfile 模块实现
// blockinfile 在一对标记注释之间插入/更新/删除一段多行文本，标记使
// marker 参数（默认 "# {mark} ANSIBLE MANAGED BLOCK"）定界，复用
// lineinfile 模块同样的 cat/heredoc 读写方式。
type BlockinfileModule struct{}

// Execute 执行 blockinfile 模块
func (m *BlockinfileModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	result := &Result{}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		result.Failed = true
		result.Msg = "missing required argument: path"
		return result, nil
	}

	state := "present"
	if s, ok := args["state"].(string); ok && s != "" {
		state = s
	}

	marker := "# {mark} ANSIBLE MANAGED BLOCK"
	if mk, ok := args["marker"].(string); ok && mk != "" {
		marker = mk
	}
	beginMarker := strings.Replace(marker, "{mark}", "BEGIN", 1)
	endMarker := strings.Replace(marker, "{mark}", "END", 1)

	block, _ := args["block"].(string)

	checkCmd := fmt.Sprintf("test -f %s", path)
	checkResult, _ := executeCommand(conn, checkCmd)
	fileExists := checkResult != nil && checkResult.RC == 0

	if !fileExists {
		create := false
		switch v := args["create"].(type) {
		case bool:
			create = v
		case string:
			create = v == "yes" || v == "true"
		}
		if state == "absent" {
			result.Changed = false
			result.Msg = fmt.Sprintf("file %s does not exist, nothing to do", path)
			return result, nil
		}
		if !create {
			result.Failed = true
			result.Msg = fmt.Sprintf("file %s does not exist (use create=yes to create)", path)
			return result, nil
		}
		if _, err := executeCommand(conn, fmt.Sprintf("touch %s", path)); err != nil {
			result.Failed = true
			result.Msg = fmt.Sprintf("failed to create file: %v", err)
			return result, nil
		}
	}

	catResult, err := executeCommand(conn, fmt.Sprintf("cat %s", path))
	if err != nil || catResult.RC != 0 {
		result.Failed = true
		result.Msg = "failed to read file"
		return result, nil
	}

	lines := strings.Split(catResult.Stdout, "\n")
	beginIdx, endIdx := -1, -1
	for i, l := range lines {
		if strings.TrimSpace(l) == beginMarker {
			beginIdx = i
		} else if strings.TrimSpace(l) == endMarker && beginIdx >= 0 {
			endIdx = i
			break
		}
	}

	var newLines []string
	switch state {
	case "absent":
		if beginIdx < 0 || endIdx < 0 {
			result.Changed = false
			result.Msg = "block not present, nothing to do"
			return result, nil
		}
		newLines = append(append([]string{}, lines[:beginIdx]...), lines[endIdx+1:]...)
	default:
		blockLines := append([]string{beginMarker}, strings.Split(block, "\n")...)
		blockLines = append(blockLines, endMarker)

		if beginIdx >= 0 && endIdx >= 0 {
			existing := strings.Join(lines[beginIdx+1:endIdx], "\n")
			if existing == block {
				result.Changed = false
				result.Msg = "block already present"
				return result, nil
			}
			newLines = append(append([]string{}, lines[:beginIdx]...), blockLines...)
			newLines = append(newLines, lines[endIdx+1:]...)
		} else {
			insertAfter, _ := args["insertafter"].(string)
			if insertAfter == "" || len(lines) == 0 {
				newLines = append(append([]string{}, lines...), blockLines...)
			} else {
				idx := -1
				for i, l := range lines {
					if strings.Contains(l, insertAfter) {
						idx = i + 1
						break
					}
				}
				if idx < 0 {
					newLines = append(append([]string{}, lines...), blockLines...)
				} else {
					newLines = append(append([]string{}, lines[:idx]...), append(blockLines, lines[idx:]...)...)
				}
			}
		}
	}

	newContent := strings.Join(newLines, "\n")
	writeCmd := fmt.Sprintf("cat > %s << 'SANSIBLE_BLOCKINFILE_EOF'\n%s\nSANSIBLE_BLOCKINFILE_EOF", path, newContent)
	writeResult, err := executeCommand(conn, writeCmd)
	if err != nil || writeResult.RC != 0 {
		result.Failed = true
		result.Msg = "failed to write file"
		return result, nil
	}

	result.Changed = true
	if state == "absent" {
		result.Msg = "block removed"
	} else {
		result.Msg = "block inserted or updated"
	}
	return result, nil
}
