package client

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/d2verb/difyctl/internal/protocol"
)

// InstallFromIdentifiers starts an installation task for already uploaded
// packages. metas must hold one entry per identifier.
func (c *Client) InstallFromIdentifiers(ctx context.Context, tenant string, identifiers []string, source protocol.InstallationSource, metas []map[string]any) (*protocol.InstallTaskStartResponse, error) {
	if len(identifiers) == 0 {
		return nil, validationErrorf("identifiers", "identifiers must be provided")
	}
	if len(metas) != len(identifiers) {
		return nil, validationErrorf("metas", "metas length %d must match identifiers length %d", len(metas), len(identifiers))
	}
	for i, meta := range metas {
		if meta == nil {
			return nil, validationErrorf("metas", "metas[%d] must be an object", i)
		}
	}
	if !slices.Contains(protocol.InstallationSources, source) {
		return nil, validationErrorf("source", "unknown installation source %q", source)
	}

	path, err := tenantPath(tenant, "management/install/identifiers")
	if err != nil {
		return nil, err
	}

	resp, err := call[protocol.InstallTaskStartResponse](ctx, c, request{
		method:  http.MethodPost,
		path:    path,
		headers: jsonHeaders(),
		body: map[string]any{
			"plugin_unique_identifiers": identifiers,
			"source":                    source,
			"metas":                     metas,
		},
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchInstallationTasks returns one page of installation tasks.
func (c *Client) FetchInstallationTasks(ctx context.Context, tenant string, page, pageSize int) ([]protocol.InstallTask, error) {
	path, err := tenantPath(tenant, "management/install/tasks")
	if err != nil {
		return nil, err
	}
	if page < 1 || pageSize < 1 {
		return nil, validationErrorf("page", "page and page size must be positive, got %d and %d", page, pageSize)
	}
	return call[[]protocol.InstallTask](ctx, c, request{
		method: http.MethodGet,
		path:   path,
		query:  pageQuery(page, pageSize),
	}, nil)
}

// FetchInstallationTask returns a single installation task.
func (c *Client) FetchInstallationTask(ctx context.Context, tenant, taskID string) (*protocol.InstallTask, error) {
	if taskID == "" {
		return nil, validationErrorf("task id", "task id is required")
	}
	path, err := tenantPath(tenant, fmt.Sprintf("management/install/tasks/%s", taskID))
	if err != nil {
		return nil, err
	}

	resp, err := call[protocol.InstallTask](ctx, c, request{
		method: http.MethodGet,
		path:   path,
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteInstallationTask deletes an installation task.
func (c *Client) DeleteInstallationTask(ctx context.Context, tenant, taskID string) (bool, error) {
	if taskID == "" {
		return false, validationErrorf("task id", "task id is required")
	}
	path, err := tenantPath(tenant, fmt.Sprintf("management/install/tasks/%s/delete", taskID))
	if err != nil {
		return false, err
	}
	return call[bool](ctx, c, request{method: http.MethodPost, path: path}, nil)
}

// DeleteAllInstallationTaskItems deletes every installation task item.
func (c *Client) DeleteAllInstallationTaskItems(ctx context.Context, tenant string) (bool, error) {
	path, err := tenantPath(tenant, "management/install/tasks/delete_all")
	if err != nil {
		return false, err
	}
	return call[bool](ctx, c, request{method: http.MethodPost, path: path}, nil)
}

// DeleteInstallationTaskItem deletes the item of one package from a task.
func (c *Client) DeleteInstallationTaskItem(ctx context.Context, tenant, taskID, identifier string) (bool, error) {
	if taskID == "" || identifier == "" {
		return false, validationErrorf("task item", "task id and identifier are required")
	}
	path, err := tenantPath(tenant, fmt.Sprintf("management/install/tasks/%s/delete/%s", taskID, identifier))
	if err != nil {
		return false, err
	}
	return call[bool](ctx, c, request{method: http.MethodPost, path: path}, nil)
}

// Uninstall removes an installation.
func (c *Client) Uninstall(ctx context.Context, tenant, installationID string) (bool, error) {
	if installationID == "" {
		return false, validationErrorf("installation id", "installation id is required")
	}
	path, err := tenantPath(tenant, "management/uninstall")
	if err != nil {
		return false, err
	}
	return call[bool](ctx, c, request{
		method:  http.MethodPost,
		path:    path,
		headers: jsonHeaders(),
		body:    map[string]any{"plugin_installation_id": installationID},
	}, nil)
}

// UpgradePlugin replaces an installed package with a newer one.
func (c *Client) UpgradePlugin(ctx context.Context, tenant, original, replacement string, source protocol.InstallationSource, meta map[string]any) (*protocol.InstallTaskStartResponse, error) {
	if original == "" || replacement == "" {
		return nil, validationErrorf("identifier", "original and new identifiers are required")
	}
	if meta == nil {
		meta = map[string]any{}
	}
	path, err := tenantPath(tenant, "management/install/upgrade")
	if err != nil {
		return nil, err
	}

	resp, err := call[protocol.InstallTaskStartResponse](ctx, c, request{
		method:  http.MethodPost,
		path:    path,
		headers: jsonHeaders(),
		body: map[string]any{
			"original_plugin_unique_identifier": original,
			"new_plugin_unique_identifier":      replacement,
			"source":                            source,
			"meta":                              meta,
		},
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
