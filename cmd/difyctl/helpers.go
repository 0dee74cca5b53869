package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/d2verb/difyctl/internal/client"
	"github.com/d2verb/difyctl/internal/config"
	"github.com/d2verb/difyctl/internal/pathutil"
	"github.com/d2verb/difyctl/internal/protocol"
	"github.com/d2verb/difyctl/internal/ui"
)

// App carries what commands need to reach the daemon. Settings and the
// client are resolved on first use so commands like version never read the
// config file.
type App struct {
	ctx     context.Context
	globals *Globals
	logger  *slog.Logger
	getenv  func(string) string

	resolved *config.Resolved
	client   *client.Client
}

func newApp(ctx context.Context, g *Globals, logger *slog.Logger, getenv func(string) string) *App {
	return &App{ctx: ctx, globals: g, logger: logger, getenv: getenv}
}

func (a *App) settings() (*config.Resolved, error) {
	if a.resolved != nil {
		return a.resolved, nil
	}

	var settings *config.Settings
	if a.globals.Config != "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		path, err := pathutil.ResolvePath(a.globals.Config, wd)
		if err != nil {
			return nil, err
		}
		if settings, err = config.LoadSettings(path); err != nil {
			return nil, errUsage("%v", err)
		}
	}

	resolved, err := config.Resolve(config.Overrides{
		URL:     a.globals.URL,
		Key:     a.globals.Key,
		Timeout: a.globals.Timeout,
		Tenant:  a.globals.Tenant,
	}, a.getenv, settings)
	if err != nil {
		return nil, errUsage("%v", err)
	}
	a.resolved = resolved
	return resolved, nil
}

// Client returns the daemon client built from the resolved settings.
func (a *App) Client() (*client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	r, err := a.settings()
	if err != nil {
		return nil, err
	}
	c, err := client.New(r.ClientConfig(), client.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

// Session returns the client and the tenant for a tenant-scoped command.
func (a *App) Session() (*client.Client, string, error) {
	r, err := a.settings()
	if err != nil {
		return nil, "", err
	}
	if r.Tenant == "" {
		return nil, "", errTenantRequired()
	}
	c, err := a.Client()
	if err != nil {
		return nil, "", err
	}
	return c, r.Tenant, nil
}

// readFileArg reads a file named by a command-line flag.
func readFileArg(flag, path string) ([]byte, error) {
	data, err := pathutil.ReadFile(path)
	if err != nil {
		return nil, errUsage("--%s: %v", flag, err)
	}
	return data, nil
}

// parseJSONArg decodes a JSON flag given inline or as a file, but not both.
// Neither yields def.
func parseJSONArg(name, value, file string, def any) (any, error) {
	if value != "" && file != "" {
		return nil, errUsage("provide either --%s or --%s-file, not both", name, name)
	}

	var data []byte
	switch {
	case file != "":
		b, err := readFileArg(name+"-file", file)
		if err != nil {
			return nil, err
		}
		data = b
	case value != "":
		data = []byte(value)
	default:
		return def, nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errUsage("--%s: invalid JSON: %v", name, err)
	}
	return v, nil
}

// parseJSONObject is parseJSONArg for flags that must hold a JSON object.
func parseJSONObject(name, value, file string) (map[string]any, error) {
	v, err := parseJSONArg(name, value, file, map[string]any{})
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errUsage("--%s must be a JSON object", name)
	}
	return obj, nil
}

// permissionLookup maps plugin unique identifiers to permission summaries.
// A failed listing yields an empty map so callers can print degraded output.
func permissionLookup(ctx context.Context, c *client.Client, tenant string) map[string]string {
	plugins, err := c.ListPlugins(ctx, tenant)
	if err != nil {
		return map[string]string{}
	}
	lookup := make(map[string]string, len(plugins))
	for i := range plugins {
		lookup[plugins[i].PluginUniqueIdentifier] = plugins[i].PermissionSummary()
	}
	return lookup
}

// defaultPollInterval is how often waitForTask checks task status.
const defaultPollInterval = 2 * time.Second

// checkPollInterval rejects intervals time.NewTicker cannot use.
func checkPollInterval(interval time.Duration) error {
	if interval <= 0 {
		return errUsage("--poll-interval must be positive, got %s", interval)
	}
	return nil
}

// waitForTask polls an install task until it finishes.
func waitForTask(ctx context.Context, c *client.Client, tenant, taskID string, interval time.Duration) (*protocol.InstallTask, error) {
	if err := checkPollInterval(interval); err != nil {
		return nil, err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		task, err := c.FetchInstallationTask(ctx, tenant, taskID)
		if err != nil {
			return nil, fmt.Errorf("poll task %s: %w", taskID, err)
		}
		if task.ID == "" {
			task.ID = taskID
		}
		if task.Status.Finished() {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// reportTask prints a finished task and fails when it did not succeed.
func reportTask(task *protocol.InstallTask) error {
	ui.PrintTask(*task)
	if task.Status == protocol.TaskFailed {
		return errTaskFailed(task.ID)
	}
	return nil
}

// stdin is the input source for prompts. Can be replaced for testing.
var stdin = bufio.NewReader(os.Stdin)

// promptConfirm prompts the user for a yes/no confirmation.
// Returns true only if user enters "y" or "Y".
func promptConfirm(message string) bool {
	fmt.Fprintf(ui.Output, "%s (y/N): ", message)
	input, err := stdin.ReadString('\n')
	if err != nil {
		return false
	}
	input = strings.TrimSpace(input)
	return input == "y" || input == "Y"
}
