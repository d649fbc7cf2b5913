package connection

import (
	"strings"
	"testing"

	"github.com/sansible/sansible/pkg/inventory"
)

func TestIsWinRM(t *testing.T) {
	tests := []struct {
		name string
		host *inventory.Host
		want bool
	}{
		{
			name: "ansible_connection winrm",
			host: &inventory.Host{Name: "win1", Vars: map[string]interface{}{"ansible_connection": "winrm"}},
			want: true,
		},
		{
			name: "no override",
			host: &inventory.Host{Name: "win1", Vars: map[string]interface{}{}},
			want: false,
		},
		{
			name: "ssh override",
			host: &inventory.Host{Name: "web1", Vars: map[string]interface{}{"ansible_connection": "ssh"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isWinRM(tt.host); got != tt.want {
				t.Errorf("isWinRM() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewWinRMSession_Defaults(t *testing.T) {
	host := &inventory.Host{Name: "win1", Vars: map[string]interface{}{}}
	session := newWinRMSession(host, 0)

	if want := "http://win1:5985/wsman"; session.endpoint != want {
		t.Errorf("endpoint = %q, want %q", session.endpoint, want)
	}
	if session.username != "Administrator" {
		t.Errorf("username = %q, want Administrator", session.username)
	}
}

func TestNewWinRMSession_HTTPS(t *testing.T) {
	host := &inventory.Host{Name: "win1", Vars: map[string]interface{}{
		"ansible_winrm_scheme": "https",
		"ansible_user":         "deploy",
		"ansible_password":     "secret",
	}}
	session := newWinRMSession(host, 0)

	if want := "https://win1:5986/wsman"; session.endpoint != want {
		t.Errorf("endpoint = %q, want %q", session.endpoint, want)
	}
	if session.username != "deploy" {
		t.Errorf("username = %q, want deploy", session.username)
	}
}

func TestWinRMSession_SelectorSet(t *testing.T) {
	s := &winrmSession{}
	if got := s.selectorSet(); got != "" {
		t.Errorf("selectorSet() with no shellID = %q, want empty", got)
	}

	s.shellID = "ABC-123"
	got := s.selectorSet()
	if !strings.Contains(got, `Name="ShellId"`) || !strings.Contains(got, "ABC-123") {
		t.Errorf("selectorSet() = %q, want it to reference ShellId ABC-123", got)
	}
}

func TestXmlEscape(t *testing.T) {
	got := xmlEscape(`echo & <b>`)
	if strings.Contains(got, "&") && !strings.Contains(got, "&amp;") {
		t.Errorf("xmlEscape() left a bare & unescaped: %q", got)
	}
	if strings.Contains(got, "<b>") {
		t.Errorf("xmlEscape() left angle brackets unescaped: %q", got)
	}
}

func TestExtractSelector(t *testing.T) {
	resp := []byte(`<s:Body><x:Selector Name="ShellId">67A74734-BEEF-0001</x:Selector></s:Body>`)
	if got := extractSelector(resp, "ShellId"); got != "67A74734-BEEF-0001" {
		t.Errorf("extractSelector() = %q, want the shell id", got)
	}
	if got := extractSelector(resp, "Missing"); got != "" {
		t.Errorf("extractSelector() for missing name = %q, want empty", got)
	}
}

func TestExtractTag(t *testing.T) {
	resp := []byte(`<rsp:CommandResponse><rsp:CommandId>CMD-1</rsp:CommandId></rsp:CommandResponse>`)
	if got := extractTag(resp, "CommandId"); got != "CMD-1" {
		t.Errorf("extractTag() = %q, want CMD-1", got)
	}
}

func TestExtractStreams(t *testing.T) {
	resp := []byte(`<rsp:ReceiveResponse>
  <rsp:Stream Name="stdout" CommandId="CMD-1">aGVsbG8=</rsp:Stream>
  <rsp:Stream Name="stderr" CommandId="CMD-1">b29wcw==</rsp:Stream>
  <rsp:Stream Name="stdout" CommandId="CMD-1">IHdvcmxk</rsp:Stream>
</rsp:ReceiveResponse>`)

	stdout := extractStreams(resp, "stdout")
	if len(stdout) != 2 || stdout[0] != "aGVsbG8=" || stdout[1] != "IHdvcmxk" {
		t.Errorf("extractStreams(stdout) = %v, want two base64 chunks in order", stdout)
	}

	stderr := extractStreams(resp, "stderr")
	if len(stderr) != 1 || stderr[0] != "b29wcw==" {
		t.Errorf("extractStreams(stderr) = %v, want one chunk", stderr)
	}
}

func TestExtractAttr(t *testing.T) {
	resp := []byte(`<rsp:CommandState State="http://schemas.microsoft.com/wbem/wsman/1/windows/shell/CommandState/Done" CommandId="CMD-1"/>`)
	if got := extractAttr(resp, "CommandState", "State"); !strings.HasSuffix(got, "Done") {
		t.Errorf("extractAttr() = %q, want a state ending in Done", got)
	}
}
