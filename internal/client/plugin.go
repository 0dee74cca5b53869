package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/d2verb/difyctl/internal/protocol"
)

// DefaultPageSize is the page size used when listing without explicit paging.
const DefaultPageSize = 256

// call performs a single-shot request and unwraps its envelope into T.
func call[T any](ctx context.Context, c *Client, r request, transform transformer) (T, error) {
	resp, err := c.do(ctx, r)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := unwrap[T](resp, transform)
	if err != nil {
		c.logger.Debug("plugin daemon call failed", "method", r.method, "path", r.path, "error", err)
	}
	return v, err
}

func verifyFlag(verify bool) string {
	if verify {
		return "true"
	}
	return "false"
}

func pageQuery(page, pageSize int) url.Values {
	return url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
	}
}

// FetchPluginReadme returns the readme of a plugin in the given language.
// A 404 from the daemon means the plugin has no readme and yields "".
func (c *Client) FetchPluginReadme(ctx context.Context, tenant, identifier, language string) (string, error) {
	path, err := tenantPath(tenant, "management/fetch/readme")
	if err != nil {
		return "", err
	}

	resp, err := call[protocol.PluginReadmeResponse](ctx, c, request{
		method: http.MethodGet,
		path:   path,
		query: url.Values{
			"tenant_id":                {tenant},
			"plugin_unique_identifier": {identifier},
			"language":                 {language},
		},
	}, nil)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return "", nil
		}
		return "", err
	}
	return resp.Content, nil
}

// FetchPluginByIdentifier reports whether the daemon knows the package.
func (c *Client) FetchPluginByIdentifier(ctx context.Context, tenant, identifier string) (bool, error) {
	path, err := tenantPath(tenant, "management/fetch/identifier")
	if err != nil {
		return false, err
	}
	return call[bool](ctx, c, request{
		method: http.MethodGet,
		path:   path,
		query:  url.Values{"plugin_unique_identifier": {identifier}},
	}, nil)
}

// ListPlugins returns the first page of installed plugins.
func (c *Client) ListPlugins(ctx context.Context, tenant string) ([]protocol.PluginEntity, error) {
	resp, err := c.ListPluginsWithTotal(ctx, tenant, 1, DefaultPageSize)
	if err != nil {
		return nil, err
	}
	return resp.List, nil
}

// ListPluginsWithTotal returns one page of installed plugins and the total.
func (c *Client) ListPluginsWithTotal(ctx context.Context, tenant string, page, pageSize int) (*protocol.PluginListResponse, error) {
	path, err := tenantPath(tenant, "management/list")
	if err != nil {
		return nil, err
	}
	if page < 1 || pageSize < 1 {
		return nil, validationErrorf("page", "page and page size must be positive, got %d and %d", page, pageSize)
	}

	query := pageQuery(page, pageSize)
	query.Set("response_type", "paged")

	resp, err := call[protocol.PluginListResponse](ctx, c, request{
		method: http.MethodGet,
		path:   path,
		query:  query,
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadPackage uploads a .difypkg and returns what the daemon decoded from it.
func (c *Client) UploadPackage(ctx context.Context, tenant string, pkg []byte, verifySignature bool) (*protocol.PluginDecodeResponse, error) {
	path, err := tenantPath(tenant, "management/install/upload/package")
	if err != nil {
		return nil, err
	}

	resp, err := call[protocol.PluginDecodeResponse](ctx, c, request{
		method: http.MethodPost,
		path:   path,
		body:   map[string]any{"verify_signature": verifyFlag(verifySignature)},
		files: map[string]File{
			"dify_pkg": {Name: "dify_pkg", Content: pkg, ContentType: "application/octet-stream"},
		},
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadBundle uploads a .difybndl and returns its dependencies.
func (c *Client) UploadBundle(ctx context.Context, tenant string, bundle []byte, verifySignature bool) ([]protocol.BundleDependency, error) {
	path, err := tenantPath(tenant, "management/install/upload/bundle")
	if err != nil {
		return nil, err
	}
	return call[[]protocol.BundleDependency](ctx, c, request{
		method: http.MethodPost,
		path:   path,
		body:   map[string]any{"verify_signature": verifyFlag(verifySignature)},
		files: map[string]File{
			"dify_bundle": {Name: "dify_bundle", Content: bundle, ContentType: "application/octet-stream"},
		},
	}, nil)
}

// FetchPluginManifest returns the manifest of a plugin package.
func (c *Client) FetchPluginManifest(ctx context.Context, tenant, identifier string) (*protocol.PluginDeclaration, error) {
	path, err := tenantPath(tenant, "management/fetch/manifest")
	if err != nil {
		return nil, err
	}

	resp, err := call[protocol.PluginDeclaration](ctx, c, request{
		method: http.MethodGet,
		path:   path,
		query:  url.Values{"plugin_unique_identifier": {identifier}},
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DecodePluginFromIdentifier decodes an already uploaded package.
func (c *Client) DecodePluginFromIdentifier(ctx context.Context, tenant, identifier string) (*protocol.PluginDecodeResponse, error) {
	path, err := tenantPath(tenant, "management/decode/from_identifier")
	if err != nil {
		return nil, err
	}

	resp, err := call[protocol.PluginDecodeResponse](ctx, c, request{
		method: http.MethodGet,
		path:   path,
		query:  url.Values{"plugin_unique_identifier": {identifier}},
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchInstallationsByIDs returns the installations of the given plugin ids.
func (c *Client) FetchInstallationsByIDs(ctx context.Context, tenant string, pluginIDs []string) ([]protocol.PluginInstallation, error) {
	path, err := tenantPath(tenant, "management/installation/fetch/batch")
	if err != nil {
		return nil, err
	}
	return call[[]protocol.PluginInstallation](ctx, c, request{
		method:  http.MethodPost,
		path:    path,
		headers: jsonHeaders(),
		body:    map[string]any{"plugin_ids": nonNil(pluginIDs)},
	}, nil)
}

// FetchMissingDependencies returns the identifiers that are not installed.
func (c *Client) FetchMissingDependencies(ctx context.Context, tenant string, identifiers []string) ([]protocol.MissingPluginDependency, error) {
	path, err := tenantPath(tenant, "management/installation/missing")
	if err != nil {
		return nil, err
	}
	return call[[]protocol.MissingPluginDependency](ctx, c, request{
		method:  http.MethodPost,
		path:    path,
		headers: jsonHeaders(),
		body:    map[string]any{"plugin_unique_identifiers": nonNil(identifiers)},
	}, nil)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
