package connection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/sansible/sansible/pkg/errors"
	"github.com/sansible/sansible/pkg/inventory"
	"golang.org/x/crypto/ssh"
)

// Connection is a single target's transport: an SSH session, a WinRM
// session for ansible_connection=winrm, or, for
// ansible_connection=local / localhost, direct local execution with
// no network round trip at all.
type Connection struct {
	client     *ssh.Client
	sftp       *sftp.Client
	winrm      *winrmSession
	host       *inventory.Host
	local      bool
	cmdTimeout time.Duration
}

// Manager dials and pools transport connections for hosts, honoring the
// connection-level knobs (timeout, host key checking, connect retries)
// an inventory or environment can override.
type Manager struct {
	timeout         time.Duration
	hostKeyChecking bool
	connectRetries  int
}

// NewManager builds a Manager with ansible-compatible defaults: host key
// checking disabled (matches ansible.cfg's common lab/CI default), a
// 30s connect/command timeout (overridable via ANSIBLE_TIMEOUT), and a
// single connect attempt.
func NewManager() *Manager {
	return &Manager{
		timeout:         envSeconds("ANSIBLE_TIMEOUT", 30*time.Second),
		hostKeyChecking: envBool("ANSIBLE_HOST_KEY_CHECKING", false),
		connectRetries:  1,
	}
}

// SetTimeout overrides the per-connection dial/command timeout.
func (m *Manager) SetTimeout(d time.Duration) { m.timeout = d }

// SetHostKeyChecking toggles strict host key verification via the
// known_hosts file at ~/.ssh/known_hosts.
func (m *Manager) SetHostKeyChecking(enabled bool) { m.hostKeyChecking = enabled }

// SetConnectRetries sets the total number of SSH dial attempts Connect
// makes (1 means no retry), with linear backoff between attempts, before
// giving up.
func (m *Manager) SetConnectRetries(n int) {
	if n > 0 {
		m.connectRetries = n
	}
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

// isLocal reports whether host should run via direct local execution
// rather than SSH: ansible_connection=local, or the well-known
// localhost aliases with no explicit remote connection requested.
func isLocal(host *inventory.Host) bool {
	if conn, ok := host.Vars["ansible_connection"].(string); ok {
		return conn == "local"
	}
	switch host.Name {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// isWinRM reports whether host is configured for the Windows
// remote-shell transport (ansible_connection: winrm).
func isWinRM(host *inventory.Host) bool {
	conn, _ := host.Vars["ansible_connection"].(string)
	return conn == "winrm"
}

// Connect dials host, choosing local execution, WinRM, or SSH.
func (m *Manager) Connect(host *inventory.Host) (*Connection, error) {
	if isLocal(host) {
		return &Connection{host: host, local: true, cmdTimeout: m.timeout}, nil
	}
	if isWinRM(host) {
		return m.connectWinRM(host)
	}
	return m.connectSSH(host)
}

func (m *Manager) connectWinRM(host *inventory.Host) (*Connection, error) {
	session := newWinRMSession(host, m.timeout)
	if err := session.open(); err != nil {
		return nil, errors.NewUnreachableError(host.Name, err)
	}
	return &Connection{winrm: session, host: host, cmdTimeout: m.timeout}, nil
}

func (m *Manager) connectSSH(host *inventory.Host) (*Connection, error) {
	ansibleHost, _ := host.Vars["ansible_host"].(string)
	if ansibleHost == "" {
		ansibleHost = host.Name
	}

	port := 22
	if portStr, ok := host.Vars["ansible_port"].(string); ok {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	user, _ := host.Vars["ansible_user"].(string)
	if user == "" {
		user = os.Getenv("ANSIBLE_REMOTE_USER")
	}
	if user == "" {
		user = "root"
	}

	password, _ := host.Vars["ansible_password"].(string)
	keyFile, _ := host.Vars["ansible_ssh_private_key_file"].(string)
	if keyFile == "" {
		keyFile = os.Getenv("ANSIBLE_PRIVATE_KEY_FILE")
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{},
		HostKeyCallback: m.hostKeyCallback(),
		Timeout:         m.timeout,
	}

	if password != "" {
		config.Auth = append(config.Auth, ssh.Password(password))
	}

	if keyFile != "" {
		if auth, err := publicKeyAuth(keyFile); err == nil {
			config.Auth = append(config.Auth, auth)
		}
	}

	if len(config.Auth) == 0 {
		homeDir, _ := os.UserHomeDir()
		defaultKeys := []string{
			filepath.Join(homeDir, ".ssh", "id_rsa"),
			filepath.Join(homeDir, ".ssh", "id_ed25519"),
		}
		for _, keyPath := range defaultKeys {
			if auth, err := publicKeyAuth(keyPath); err == nil {
				config.Auth = append(config.Auth, auth)
			}
		}
	}

	addr := fmt.Sprintf("%s:%d", ansibleHost, port)

	var client *ssh.Client
	var dialErr error
	for attempt := 1; attempt <= m.connectRetries; attempt++ {
		client, dialErr = ssh.Dial("tcp", addr, config)
		if dialErr == nil {
			break
		}
		if attempt < m.connectRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	if dialErr != nil {
		return nil, errors.NewUnreachableError(host.Name, dialErr)
	}

	return &Connection{client: client, host: host, cmdTimeout: m.timeout}, nil
}

// hostKeyCallback returns a strict known_hosts-backed callback when host
// key checking is enabled, otherwise an ignore-all callback.
func (m *Manager) hostKeyCallback() ssh.HostKeyCallback {
	if !m.hostKeyChecking {
		return ssh.InsecureIgnoreHostKey()
	}
	homeDir, _ := os.UserHomeDir()
	knownHosts := filepath.Join(homeDir, ".ssh", "known_hosts")
	callback, err := knownHostsCallback(knownHosts)
	if err != nil {
		return ssh.InsecureIgnoreHostKey()
	}
	return callback
}

// publicKeyAuth 创建公钥认证
func publicKeyAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}

	return ssh.PublicKeys(signer), nil
}

// Exec runs cmd using the connection's configured command timeout.
func (c *Connection) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	timeout := c.cmdTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return c.ExecWithTimeout(cmd, timeout)
}

// ExecWithTimeout runs cmd through a shell, locally, over SSH, or over
// WinRM, bounded by timeout.
func (c *Connection) ExecWithTimeout(cmd string, timeout time.Duration) (stdout, stderr []byte, exitCode int, err error) {
	if c.local {
		return c.execLocal(cmd, timeout)
	}
	if c.winrm != nil {
		return c.winrm.run(cmd, timeout)
	}
	return c.execSSH(cmd, timeout)
}

// ExecPowerShell wraps script for PowerShell execution. Over WinRM this
// is the normal way to run anything beyond a bare executable; other
// transports run the text unwrapped, since only a WinRM target is
// expected to carry a PowerShell interpreter.
func (c *Connection) ExecPowerShell(script string) (stdout, stderr []byte, exitCode int, err error) {
	if c.winrm != nil {
		return c.Exec(powershellEncodedCommand(script))
	}
	return c.Exec(script)
}

func (c *Connection) execLocal(cmd string, timeout time.Duration) (stdout, stderr []byte, exitCode int, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	command := exec.CommandContext(ctx, "sh", "-c", cmd)
	var stdoutBuf, stderrBuf bytes.Buffer
	command.Stdout = &stdoutBuf
	command.Stderr = &stderrBuf

	runErr := command.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, nil, -1, errors.NewTimeoutError(c.host.Name, cmd, timeout)
	}
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitCode(), nil
		}
		return nil, nil, -1, runErr
	}
	return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
}

func (c *Connection) execSSH(cmd string, timeout time.Duration) (stdout, stderr []byte, exitCode int, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	session, err := c.client.NewSession()
	if err != nil {
		return nil, nil, -1, err
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	if err := session.Start(cmd); err != nil {
		return nil, nil, -1, err
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return nil, nil, -1, errors.NewTimeoutError(c.host.Name, cmd, timeout)
	case err := <-done:
		stdout = stdoutBuf.Bytes()
		stderr = stderrBuf.Bytes()

		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				return stdout, stderr, exitErr.ExitStatus(), nil
			}
			return stdout, stderr, -1, err
		}
		return stdout, stderr, 0, nil
	}
}

// sftpClient lazily opens the SFTP subsystem over the existing SSH
// connection; file transfer modules reuse it rather than spawning a new
// cat-redirection shell per call.
func (c *Connection) sftpClient() (*sftp.Client, error) {
	if c.sftp != nil {
		return c.sftp, nil
	}
	client, err := sftp.NewClient(c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to start sftp subsystem: %w", err)
	}
	c.sftp = client
	return client, nil
}

// PutFile copies localPath to remotePath: locally, over the WinRM
// chunked upload protocol, or over SFTP.
func (c *Connection) PutFile(localPath, remotePath string) error {
	if c.local {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return fmt.Errorf("failed to read local file: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(remotePath), 0o755); err != nil {
			return fmt.Errorf("failed to create destination directory: %w", err)
		}
		return os.WriteFile(remotePath, data, 0o644)
	}

	if c.winrm != nil {
		return c.putFileWinRM(localPath, remotePath)
	}

	client, err := c.sftpClient()
	if err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to read local file: %w", err)
	}
	defer src.Close()

	if dir := filepath.Dir(remotePath); dir != "." {
		_ = client.MkdirAll(dir)
	}

	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

// GetFile copies remotePath to localPath: locally, over WinRM, or over
// SFTP.
func (c *Connection) GetFile(remotePath, localPath string) error {
	if c.local {
		data, err := os.ReadFile(remotePath)
		if err != nil {
			return fmt.Errorf("failed to read remote file: %w", err)
		}
		return os.WriteFile(localPath, data, 0o644)
	}

	if c.winrm != nil {
		return c.getFileWinRM(remotePath, localPath)
	}

	client, err := c.sftpClient()
	if err != nil {
		return err
	}

	src, err := client.Open(remotePath)
	if err != nil {
		return fmt.Errorf("failed to open remote file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to write local file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	return nil
}

// Close 关闭连接
func (c *Connection) Close() error {
	if c.winrm != nil {
		return c.winrm.close()
	}
	if c.sftp != nil {
		c.sftp.Close()
	}
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ExecWithBecome 使用权限提升执行命令
func (c *Connection) ExecWithBecome(cmd string, becomeUser, becomeMethod string) (stdout, stderr []byte, exitCode int, err error) {
	// 如果没有指定 become_user，默认为 root
	if becomeUser == "" {
		becomeUser = "root"
	}

	// 如果没有指定 become_method，默认为 sudo
	if becomeMethod == "" {
		becomeMethod = "sudo"
	}

	// 构建 sudo 命令
	// 使用 -n 选项避免密码提示（假设配置了 NOPASSWD）
	// 使用 -u 指定目标用户
	var sudoCmd string
	switch becomeMethod {
	case "sudo":
		if becomeUser == "root" {
			sudoCmd = fmt.Sprintf("sudo -n sh -c %s", shellQuote(cmd))
		} else {
			sudoCmd = fmt.Sprintf("sudo -n -u %s sh -c %s", becomeUser, shellQuote(cmd))
		}
	case "su":
		// su 方式（不太常用）
		sudoCmd = fmt.Sprintf("su - %s -c %s", becomeUser, shellQuote(cmd))
	default:
		return nil, nil, -1, fmt.Errorf("unsupported become method: %s", becomeMethod)
	}

	return c.ExecWithTimeout(sudoCmd, 30*time.Second)
}

// shellQuote 为 shell 命令添加引号
func shellQuote(s string) string {
	// 简单实现：使用单引号，并转义内部的单引号
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// ExecuteCommand 执行命令并返回标准输出（用于 facts 收集）
func (c *Connection) ExecuteCommand(cmd string) ([]byte, error) {
	stdout, _, exitCode, err := c.Exec(cmd)
	if err != nil {
		return nil, err
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("command failed with exit code %d", exitCode)
	}
	return stdout, nil
}
