package connection

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sansible/sansible/pkg/inventory"
)

func TestIsLocal(t *testing.T) {
	tests := []struct {
		name string
		host *inventory.Host
		want bool
	}{
		{
			name: "ansible_connection local",
			host: &inventory.Host{Name: "web1", Vars: map[string]interface{}{"ansible_connection": "local"}},
			want: true,
		},
		{
			name: "localhost alias",
			host: &inventory.Host{Name: "localhost", Vars: map[string]interface{}{}},
			want: true,
		},
		{
			name: "loopback IPv4",
			host: &inventory.Host{Name: "127.0.0.1", Vars: map[string]interface{}{}},
			want: true,
		},
		{
			name: "remote host with no override",
			host: &inventory.Host{Name: "db1", Vars: map[string]interface{}{}},
			want: false,
		},
		{
			name: "explicit ssh overrides nothing special",
			host: &inventory.Host{Name: "web1", Vars: map[string]interface{}{"ansible_connection": "ssh"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLocal(tt.host); got != tt.want {
				t.Errorf("isLocal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager_ConnectLocal(t *testing.T) {
	mgr := NewManager()
	host := &inventory.Host{Name: "localhost", Vars: map[string]interface{}{}}

	conn, err := mgr.Connect(host)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer conn.Close()

	if !conn.local {
		t.Fatal("expected a local connection")
	}

	stdout, _, exitCode, err := conn.Exec("echo hello")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if exitCode != 0 {
		t.Fatalf("Exec() exitCode = %d, want 0", exitCode)
	}
	if got := string(stdout); got != "hello\n" {
		t.Errorf("Exec() stdout = %q, want %q", got, "hello\n")
	}
}

func TestConnection_LocalPutGetFile(t *testing.T) {
	mgr := NewManager()
	conn, err := mgr.Connect(&inventory.Host{Name: "localhost", Vars: map[string]interface{}{}})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer conn.Close()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("failed to seed source file: %v", err)
	}

	dest := filepath.Join(dir, "nested", "dest.txt")
	if err := conn.PutFile(src, dest); err != nil {
		t.Fatalf("PutFile() error = %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read destination: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("PutFile() wrote %q, want %q", data, "payload")
	}

	roundTrip := filepath.Join(dir, "roundtrip.txt")
	if err := conn.GetFile(dest, roundTrip); err != nil {
		t.Fatalf("GetFile() error = %v", err)
	}
	data, err = os.ReadFile(roundTrip)
	if err != nil {
		t.Fatalf("failed to read round-tripped file: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("GetFile() wrote %q, want %q", data, "payload")
	}
}

func TestConnection_LocalExecNonZeroExit(t *testing.T) {
	mgr := NewManager()
	conn, err := mgr.Connect(&inventory.Host{Name: "localhost", Vars: map[string]interface{}{}})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer conn.Close()

	_, _, exitCode, err := conn.Exec("exit 7")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if exitCode != 7 {
		t.Errorf("Exec() exitCode = %d, want 7", exitCode)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Run("envBool", func(t *testing.T) {
		t.Setenv("SANSIBLE_TEST_BOOL", "yes")
		if !envBool("SANSIBLE_TEST_BOOL", false) {
			t.Error("envBool() = false, want true for \"yes\"")
		}
		if got := envBool("SANSIBLE_TEST_BOOL_UNSET", true); !got {
			t.Error("envBool() fallback not honored for unset var")
		}
	})

	t.Run("envSeconds", func(t *testing.T) {
		t.Setenv("SANSIBLE_TEST_SECONDS", "45")
		if got := envSeconds("SANSIBLE_TEST_SECONDS", 0); got.Seconds() != 45 {
			t.Errorf("envSeconds() = %v, want 45s", got)
		}
		if got := envSeconds("SANSIBLE_TEST_SECONDS_UNSET", 10*time.Second); got.Seconds() != 10 {
			t.Errorf("envSeconds() fallback = %v, want 10s", got)
		}
	})
}
