// Package errors defines the error taxonomy shared by every other package:
// parse failures, unsupported constructs, template failures, transport and
// module failures, timeouts, and internal invariant violations. Each kind
// maps to a CLI exit code via ExitCode.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies an error for exit-code mapping and runner dispatch.
type ErrorType int

const (
	ErrUnreachable ErrorType = iota
	ErrFailed
	ErrTimeout
	ErrParse
	ErrUnsupportedFeature
	ErrTemplate
	ErrModuleNotFound
	ErrInvariant
)

// ExecutionError is the common shape every constructor below produces.
// Host/Task/Module are empty when not applicable (e.g. parse errors).
type ExecutionError struct {
	Type      ErrorType
	Host      string
	Task      string
	Module    string
	Message   string
	Cause     error
	Retriable bool
	Details   map[string]interface{}
}

func (e *ExecutionError) Error() string {
	switch {
	case e.Host != "" && e.Task != "":
		return fmt.Sprintf("[%s] %s: %s", e.Host, e.Task, e.Message)
	case e.Host != "":
		return fmt.Sprintf("[%s] %s", e.Host, e.Message)
	default:
		return e.Message
	}
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// NewUnreachableError records a transport connect/auth/session failure.
func NewUnreachableError(host string, cause error) *ExecutionError {
	return &ExecutionError{
		Type:      ErrUnreachable,
		Host:      host,
		Message:   fmt.Sprintf("unreachable: %v", cause),
		Cause:     cause,
		Retriable: true,
	}
}

// NewModuleFailedError records a module returning a failed TaskResult.
func NewModuleFailedError(host, task, module, msg string) *ExecutionError {
	return &ExecutionError{
		Type:    ErrFailed,
		Host:    host,
		Task:    task,
		Module:  module,
		Message: msg,
	}
}

// NewTimeoutError records a per-command timeout, treated as a module
// failure (not unreachable); the caller resets the transport.
func NewTimeoutError(host, task string, d time.Duration) *ExecutionError {
	return &ExecutionError{
		Type:      ErrTimeout,
		Host:      host,
		Task:      task,
		Message:   fmt.Sprintf("timed out after %v", d),
		Retriable: true,
	}
}

// ParseError carries the source file and line of a malformed inventory or
// playbook document. Fatal to the whole run (exit 3).
type ParseError struct {
	File  string
	Line  int
	Cause error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s:%d: %v", e.File, e.Line, e.Cause)
	}
	return fmt.Sprintf("parse error in %s: %v", e.File, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func NewParseError(file string, line int, cause error) *ParseError {
	return &ParseError{File: file, Line: line, Cause: cause}
}

// UnsupportedFeatureError marks a syntactically valid construct the core
// deliberately does not implement (async+poll, non-linear strategy, serial,
// throttle, max_fail_percentage). Fatal to the whole run (exit 4).
type UnsupportedFeatureError struct {
	Feature string
	Where   string
}

func (e *UnsupportedFeatureError) Error() string {
	if e.Where != "" {
		return fmt.Sprintf("unsupported construct %q in %s", e.Feature, e.Where)
	}
	return fmt.Sprintf("unsupported construct %q", e.Feature)
}

func NewUnsupportedFeatureError(feature, where string) *UnsupportedFeatureError {
	return &UnsupportedFeatureError{Feature: feature, Where: where}
}

// TemplateError carries the failing expression text. Converted into a task
// failure for the affected host by default, respecting ignore_errors.
type TemplateError struct {
	Expr  string
	Cause error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error in %q: %v", e.Expr, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

func NewTemplateError(expr string, cause error) *TemplateError {
	return &TemplateError{Expr: expr, Cause: cause}
}

// TransportError distinguishes a connect/auth/session failure (Unreachable)
// from a command that executed but returned a non-zero exit status.
type TransportError struct {
	Host        string
	Unreachable bool
	Cause       error
}

func (e *TransportError) Error() string {
	if e.Unreachable {
		return fmt.Sprintf("[%s] unreachable: %v", e.Host, e.Cause)
	}
	return fmt.Sprintf("[%s] transport error: %v", e.Host, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

func NewTransportError(host string, unreachable bool, cause error) *TransportError {
	return &TransportError{Host: host, Unreachable: unreachable, Cause: cause}
}

// ModuleError is raised by the registry when a qualified module name
// cannot be resolved, or by a module's argument validation.
type ModuleError struct {
	Module  string
	Message string
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %q: %s", e.Module, e.Message)
}

func NewModuleError(module, msg string) *ModuleError {
	return &ModuleError{Module: module, Message: msg}
}

// InvariantError marks a bug: internal state the program assumed could
// never happen. Always fatal.
type InvariantError struct {
	Context string
	Details map[string]interface{}
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("internal invariant violated: %s (%v)", e.Context, e.Details)
}

func NewInvariantError(context string, details map[string]interface{}) *InvariantError {
	return &InvariantError{Context: context, Details: details}
}

// ExitCode maps an error to the process exit code:
// 0 success, 2 task failure, 3 parse error, 4 unsupported construct.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var parseErr *ParseError
	var unsupportedErr *UnsupportedFeatureError
	if errors.As(err, &parseErr) {
		return 3
	}
	if errors.As(err, &unsupportedErr) {
		return 4
	}
	return 2
}

// IsUnreachable reports whether err (or anything it wraps) represents a
// transport-level unreachable condition rather than a completed command.
func IsUnreachable(err error) bool {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Type == ErrUnreachable
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Unreachable
	}
	return false
}
