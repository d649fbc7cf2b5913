package module

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sansible/sansible/pkg/connection"
)

// StatModule stat 模块实现
// stat 模块用于获取远程文件/目录的元数据，不做任何修改
type StatModule struct{}

// Execute 执行 stat 模块
func (m *StatModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
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

	// %F gives the file type as a word (regular file, directory, symbolic
	// link, ...), which is easier to classify than decoding st_mode bits.
	statCmd := fmt.Sprintf("stat -c '%%a|%%u|%%g|%%s|%%F' %s 2>/dev/null", path)
	statResult, err := executeCommand(conn, statCmd)
	if err != nil {
		result.Failed = true
		result.Msg = fmt.Sprintf("failed to stat path: %v", err)
		return result, nil
	}

	stat := map[string]interface{}{
		"exists": statResult.RC == 0,
	}

	if statResult.RC == 0 {
		fields := strings.SplitN(strings.TrimSpace(statResult.Stdout), "|", 5)
		if len(fields) == 5 {
			mode := fields[0]
			uid, _ := strconv.Atoi(fields[1])
			gid, _ := strconv.Atoi(fields[2])
			size, _ := strconv.ParseInt(fields[3], 10, 64)
			fileType := fields[4]

			stat["mode"] = mode
			stat["uid"] = uid
			stat["gid"] = gid
			stat["size"] = size
			stat["isdir"] = fileType == "directory"
			stat["isreg"] = fileType == "regular file" || fileType == "regular empty file"
			stat["islnk"] = fileType == "symbolic link"
			stat["path"] = path
		}

		if stat["isreg"] == true {
			if sumResult, err := executeCommand(conn, fmt.Sprintf("sha1sum %s 2>/dev/null | cut -d' ' -f1", path)); err == nil && sumResult.RC == 0 {
				stat["checksum"] = strings.TrimSpace(sumResult.Stdout)
			}
		}
	}

	result.Data["stat"] = stat
	result.Changed = false
	result.Msg = fmt.Sprintf("stat of %s", path)
	return result, nil
}
