package module

import (
	"fmt"
	"os"

	"github.com/sansible/sansible/pkg/connection"
)

// WinCopyModule win_copy 模块实现
// win_copy 把本地文件上传到 Windows 主机，复用 Connection.PutFile 的
// WinRM 分块上传协议，对应 Linux 侧的 copy 模块。
type WinCopyModule struct{}

// Execute 执行 win_copy 模块
func (m *WinCopyModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	dest, ok := args["dest"].(string)
	if !ok || dest == "" {
		return &Result{Failed: true, Msg: "win_copy module requires 'dest' argument"}, nil
	}

	if content, hasContent := args["content"].(string); hasContent {
		if opts.Check {
			return &Result{Changed: true, Dest: dest, Msg: "check mode: content not written"}, nil
		}
		tmp, err := os.CreateTemp("", "sansible-win-copy-*")
		if err != nil {
			return &Result{Failed: true, Msg: fmt.Sprintf("failed to stage content: %v", err)}, nil
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.WriteString(content); err != nil {
			tmp.Close()
			return &Result{Failed: true, Msg: fmt.Sprintf("failed to stage content: %v", err)}, nil
		}
		tmp.Close()

		if err := conn.PutFile(tmp.Name(), dest); err != nil {
			return &Result{Failed: true, Msg: fmt.Sprintf("failed to copy content: %v", err)}, nil
		}
		return &Result{Changed: true, Dest: dest}, nil
	}

	src, ok := args["src"].(string)
	if !ok || src == "" {
		return &Result{Failed: true, Msg: "win_copy module requires either 'src' or 'content' argument"}, nil
	}

	if opts.Check {
		return &Result{Changed: true, Dest: dest, Msg: "check mode: file not copied"}, nil
	}

	if err := conn.PutFile(src, dest); err != nil {
		return &Result{Failed: true, Msg: fmt.Sprintf("failed to copy file: %v", err)}, nil
	}

	return &Result{Changed: true, Dest: dest}, nil
}
