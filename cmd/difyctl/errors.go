package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/d2verb/difyctl/internal/client"
)

// Exit codes for CLI commands.
const (
	exitSuccess     = 0
	exitError       = 1
	exitUsage       = 2
	exitUnreachable = 3
	exitNotFound    = 4
	exitDaemonError = 5
	exitTaskFailed  = 6
	exitInterrupted = 130
)

// maxSuggestions caps the "did you mean" list for unknown tools.
const maxSuggestions = 3

// ExitError represents an error that should cause the process to exit with a specific code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func errUsage(format string, args ...any) *ExitError {
	return &ExitError{
		Code:    exitUsage,
		Message: fmt.Sprintf(format, args...),
	}
}

func errTenantRequired() *ExitError {
	return &ExitError{
		Code:    exitUsage,
		Message: "Tenant ID is required. Provide --tenant, set DIFY_PLUGIN_TENANT_ID, or set tenant in the config file.",
	}
}

func errTaskFailed(id string) *ExitError {
	return &ExitError{
		Code:    exitTaskFailed,
		Message: fmt.Sprintf("Install task '%s' failed.", id),
	}
}

func errToolNotFound(e *client.ToolNotFoundError) *ExitError {
	msg := fmt.Sprintf("Tool '%s' not found for provider '%s'.", e.Tool, e.Provider)
	if s := suggest(e.Tool, e.Available); len(s) > 0 {
		msg += fmt.Sprintf("\nDid you mean: %s?", strings.Join(s, ", "))
	}
	return &ExitError{Code: exitNotFound, Message: msg}
}

// suggest returns the closest candidates to name, best first.
func suggest(name string, candidates []string) []string {
	matches := fuzzy.Find(name, candidates)
	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// exitStatus maps a command error to a process exit code and the message
// to print.
func exitStatus(err error) (int, string) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, exitErr.Message
	}

	var toolErr *client.ToolNotFoundError
	if errors.As(err, &toolErr) {
		e := errToolNotFound(toolErr)
		return e.Code, e.Message
	}

	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted, "interrupted"
	case client.IsValidation(err):
		return exitUsage, err.Error()
	case errors.Is(err, client.ErrUnreachable):
		return exitUnreachable, err.Error() + "\nIs the plugin daemon running? Check --url or DIFY_PLUGIN_DAEMON_URL."
	case errors.Is(err, client.ErrPluginNotFound),
		errors.Is(err, client.ErrNotFound),
		client.IsStatus(err, http.StatusNotFound):
		return exitNotFound, err.Error()
	}

	var daemonErr *client.DaemonError
	if errors.As(err, &daemonErr) || client.IsProtocol(err) {
		return exitDaemonError, err.Error()
	}
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return exitDaemonError, err.Error()
	}
	return exitError, err.Error()
}
