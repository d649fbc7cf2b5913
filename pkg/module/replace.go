package module

import (
	"fmt"
	"regexp"

	"github.com/sansible/sansible/pkg/connection"
)

// ReplaceModule replace 模块实现
// replace 模块对文件做一次正则的全文替换，对应 lineinfile/blockinfile
// 的读取-改写-写回流程，但作用对象是整个文件内容而非单独的行。
type ReplaceModule struct{}

// Execute 执行 replace 模块
func (m *ReplaceModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
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

	patternInterface, ok := args["regexp"]
	if !ok {
		result.Failed = true
		result.Msg = "missing required argument: regexp"
		return result, nil
	}
	pattern, ok := patternInterface.(string)
	if !ok {
		result.Failed = true
		result.Msg = "regexp must be a string"
		return result, nil
	}

	replaceWith, _ := args["replace"].(string)

	re, err := regexp.Compile(pattern)
	if err != nil {
		result.Failed = true
		result.Msg = fmt.Sprintf("invalid regexp: %v", err)
		return result, nil
	}

	checkCmd := fmt.Sprintf("test -f %s", path)
	checkResult, _ := executeCommand(conn, checkCmd)
	if checkResult == nil || checkResult.RC != 0 {
		result.Failed = true
		result.Msg = fmt.Sprintf("file %s does not exist", path)
		return result, nil
	}

	catResult, err := executeCommand(conn, fmt.Sprintf("cat %s", path))
	if err != nil || catResult.RC != 0 {
		result.Failed = true
		result.Msg = fmt.Sprintf("failed to read file: %s", catResult.Stderr)
		return result, nil
	}

	original := catResult.Stdout
	replaced := re.ReplaceAllString(original, replaceWith)

	if replaced == original {
		result.Changed = false
		result.Msg = "no matches found, file unchanged"
		return result, nil
	}

	if opts.Check {
		return &Result{Changed: true, Msg: "check mode: file not written"}, nil
	}

	writeCmd := fmt.Sprintf("cat > %s << 'SANSIBLE_REPLACE_EOF'\n%s\nSANSIBLE_REPLACE_EOF", path, replaced)
	writeResult, err := executeCommand(conn, writeCmd)
	if err != nil || writeResult.RC != 0 {
		result.Failed = true
		result.Msg = fmt.Sprintf("failed to write file: %s", writeResult.Stderr)
		return result, nil
	}

	result.Changed = true
	result.Msg = fmt.Sprintf("replaced matches of %q in %s", pattern, path)
	return result, nil
}
