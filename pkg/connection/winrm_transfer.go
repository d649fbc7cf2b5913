package connection

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"
)

// powershellEncodedCommand wraps script as a powershell.exe invocation
// using -EncodedCommand (base64 of UTF-16LE), the standard way to carry
// an arbitrary multi-statement script through a single command-line
// argument without fighting Windows/PowerShell quoting rules.
func powershellEncodedCommand(script string) string {
	units := utf16.Encode([]rune(script))
	buf := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	encoded := base64.StdEncoding.EncodeToString(buf)
	return fmt.Sprintf("powershell.exe -NoProfile -NonInteractive -EncodedCommand %s", encoded)
}

// putFileWinRM implements the chunked base64 upload protocol spec'd for
// the Windows remote-shell transport: stage into a temp file under the
// destination directory, append ordered 700 KiB plaintext chunks, then
// atomically rename into place. Any chunk failure deletes the temp file
// and aborts rather than leaving a partial destination file.
func (c *Connection) putFileWinRM(localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read local file: %w", err)
	}

	destPath := toWindowsPath(remotePath)
	destDir := windowsDir(destPath)

	if _, stderr, rc, err := c.ExecPowerShell(fmt.Sprintf(
		"New-Item -ItemType Directory -Force -Path %s | Out-Null", psArg(destDir))); err != nil || rc != 0 {
		return fmt.Errorf("failed to ensure destination directory: %v %s", err, string(stderr))
	}

	tempPath := fmt.Sprintf("%s\\.sansible-upload-%s.tmp", destDir, uuid.New().String())

	chunks := chunkBytes(data, winrmChunkPlainBytes)
	for i, chunk := range chunks {
		encoded := base64.StdEncoding.EncodeToString(chunk)
		script := fmt.Sprintf(
			"$b = [Convert]::FromBase64String(%s); $fs = [System.IO.File]::Open(%s,[System.IO.FileMode]::Append); $fs.Write($b,0,$b.Length); $fs.Close()",
			psArg(encoded), psArg(tempPath),
		)
		if _, stderr, rc, err := c.ExecPowerShell(script); err != nil || rc != 0 {
			c.removeRemoteFileWinRM(tempPath)
			return fmt.Errorf("chunked upload failed on chunk %d/%d: %v %s", i+1, len(chunks), err, string(stderr))
		}
	}

	moveScript := fmt.Sprintf("Move-Item -Path %s -Destination %s -Force", psArg(tempPath), psArg(destPath))
	if _, stderr, rc, err := c.ExecPowerShell(moveScript); err != nil || rc != 0 {
		c.removeRemoteFileWinRM(tempPath)
		return fmt.Errorf("failed to rename temp file into place: %v %s", err, string(stderr))
	}

	return nil
}

// chunkBytes splits data into ordered, size-bounded slices; an empty
// input still yields one (empty) chunk so zero-byte files still create
// the temp file and complete the rename step.
func chunkBytes(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return [][]byte{{}}
	}
	chunks := make([][]byte, 0, (len(data)/size)+1)
	for offset := 0; offset < len(data); offset += size {
		end := offset + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[offset:end])
	}
	return chunks
}

func (c *Connection) removeRemoteFileWinRM(remotePath string) {
	script := fmt.Sprintf("Remove-Item -Path %s -Force -ErrorAction SilentlyContinue", psArg(remotePath))
	c.ExecPowerShell(script)
}

// getFileWinRM has no chunked counterpart in the documented contract;
// it base64-encodes the remote file in one round trip and decodes
// locally, which is adequate for the file sizes modules exchange.
func (c *Connection) getFileWinRM(remotePath, localPath string) error {
	script := fmt.Sprintf("[Convert]::ToBase64String([System.IO.File]::ReadAllBytes(%s))", psArg(toWindowsPath(remotePath)))
	stdout, stderr, rc, err := c.ExecPowerShell(script)
	if err != nil {
		return err
	}
	if rc != 0 {
		return fmt.Errorf("failed to read remote file: %s", string(stderr))
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(stdout)))
	if err != nil {
		return fmt.Errorf("failed to decode remote file contents: %w", err)
	}
	return os.WriteFile(localPath, data, 0o644)
}

func toWindowsPath(p string) string {
	return strings.ReplaceAll(p, "/", "\\")
}

func windowsDir(p string) string {
	if idx := strings.LastIndex(p, "\\"); idx >= 0 {
		return p[:idx]
	}
	return p
}

func psArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
