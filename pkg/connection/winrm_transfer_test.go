package connection

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"testing"
	"unicode/utf16"
)

func TestChunkBytes(t *testing.T) {
	t.Run("splits evenly with a remainder", func(t *testing.T) {
		data := make([]byte, 2500)
		chunks := chunkBytes(data, 1000)
		if len(chunks) != 3 {
			t.Fatalf("got %d chunks, want 3", len(chunks))
		}
		if len(chunks[0]) != 1000 || len(chunks[1]) != 1000 || len(chunks[2]) != 500 {
			t.Errorf("chunk sizes = %d/%d/%d, want 1000/1000/500", len(chunks[0]), len(chunks[1]), len(chunks[2]))
		}

		var reassembled []byte
		for _, c := range chunks {
			reassembled = append(reassembled, c...)
		}
		if !bytes.Equal(reassembled, data) {
			t.Error("reassembled chunks don't match the original data")
		}
	})

	t.Run("empty input still yields one empty chunk", func(t *testing.T) {
		chunks := chunkBytes(nil, 1000)
		if len(chunks) != 1 || len(chunks[0]) != 0 {
			t.Fatalf("chunkBytes(nil) = %v, want one empty chunk", chunks)
		}
	})

	t.Run("input smaller than chunk size", func(t *testing.T) {
		data := []byte("hello")
		chunks := chunkBytes(data, 1000)
		if len(chunks) != 1 || !bytes.Equal(chunks[0], data) {
			t.Fatalf("chunkBytes() = %v, want a single chunk equal to the input", chunks)
		}
	})
}

func TestToWindowsPath(t *testing.T) {
	if got := toWindowsPath("C:/Users/deploy/app.exe"); got != `C:\Users\deploy\app.exe` {
		t.Errorf("toWindowsPath() = %q, want backslash-separated path", got)
	}
}

func TestWindowsDir(t *testing.T) {
	if got := windowsDir(`C:\Users\deploy\app.exe`); got != `C:\Users\deploy` {
		t.Errorf("windowsDir() = %q, want %q", got, `C:\Users\deploy`)
	}
	if got := windowsDir(`app.exe`); got != `app.exe` {
		t.Errorf("windowsDir() with no separator = %q, want input unchanged", got)
	}
}

func TestPsArg(t *testing.T) {
	if got := psArg("plain"); got != "'plain'" {
		t.Errorf("psArg() = %q, want 'plain'", got)
	}
	if got := psArg("it's a test"); got != "'it''s a test'" {
		t.Errorf("psArg() = %q, want single quotes doubled", got)
	}
}

func TestPowershellEncodedCommand(t *testing.T) {
	script := "Write-Output 'hi'"
	cmd := powershellEncodedCommand(script)

	if !strings.HasPrefix(cmd, "powershell.exe -NoProfile -NonInteractive -EncodedCommand ") {
		t.Fatalf("powershellEncodedCommand() = %q, want the -EncodedCommand invocation prefix", cmd)
	}

	encoded := strings.TrimPrefix(cmd, "powershell.exe -NoProfile -NonInteractive -EncodedCommand ")
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("base64 decode failed: %v", err)
	}

	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	decoded := string(utf16.Decode(units))
	if decoded != script {
		t.Errorf("round-tripped script = %q, want %q", decoded, script)
	}
}
