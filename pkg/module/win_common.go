package module

import (
	"strings"

	"github.com/sansible/sansible/pkg/connection"
)

// executePowerShell runs script over the connection's PowerShell
// wrapping (ExecPowerShell) and packages the result the same way
// executeCommand does for POSIX shells, so the win_* modules share the
// same result-handling shape as their Linux counterparts.
func executePowerShell(conn *connection.Connection, script string) (*execResult, error) {
	stdout, stderr, exitCode, err := conn.ExecPowerShell(script)
	if err != nil {
		return nil, err
	}
	return &execResult{
		RC:     exitCode,
		Stdout: strings.TrimSpace(string(stdout)),
		Stderr: strings.TrimSpace(string(stderr)),
	}, nil
}
