package module

import "github.com/sansible/sansible/pkg/connection"

// RunOptions carries the execution-mode flags every module must honor:
// privilege escalation and check/diff mode propagation from the runner.
type RunOptions struct {
	Become       bool
	BecomeUser   string
	BecomeMethod string
	Check        bool
	Diff         bool
}

// Module is the single contract every module implementation satisfies:
// inline dispatch modules (ping/raw/command/shell/copy/debug) and the
// standalone file-backed modules all execute through the same signature.
type Module interface {
	Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error)
}

// Factory builds a fresh Module instance for a registry entry.
type Factory func() Module
