package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/d2verb/difyctl/internal/protocol"
	"github.com/d2verb/difyctl/internal/toolschema"
)

// ParseProviderRef splits a provider reference into plugin id and provider
// name. It accepts "plugin_id/provider" and "org/plugin/provider"; in the
// two-segment form the whole reference is the plugin id.
func ParseProviderRef(ref string) (protocol.ProviderID, error) {
	parts := strings.Split(ref, "/")
	switch len(parts) {
	case 2:
		return protocol.ProviderID{PluginID: ref, ProviderName: parts[1]}, nil
	case 3:
		return protocol.ProviderID{PluginID: parts[0] + "/" + parts[1], ProviderName: parts[2]}, nil
	}
	return protocol.ProviderID{}, validationErrorf("provider",
		"%q: expected 'plugin_id/provider_name' or 'organization/plugin_name/provider_name'", ref)
}

// ToolNotFoundError is returned when a provider does not declare a tool.
type ToolNotFoundError struct {
	Provider  string
	Tool      string
	Available []string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found for provider %q", e.Tool, e.Provider)
}

// CheckToolsExistence reports, per provider, whether it exists.
func (c *Client) CheckToolsExistence(ctx context.Context, tenant string, providers []protocol.ProviderID) ([]bool, error) {
	path, err := tenantPath(tenant, "management/tools/check_existence")
	if err != nil {
		return nil, err
	}
	return call[[]bool](ctx, c, request{
		method:  http.MethodPost,
		path:    path,
		headers: jsonHeaders(),
		body:    map[string]any{"provider_ids": nonNil(providers)},
	}, nil)
}

// FetchToolProviders returns every tool provider of the tenant. Provider
// names are qualified as plugin_id/provider.
func (c *Client) FetchToolProviders(ctx context.Context, tenant string) ([]protocol.PluginToolProvider, error) {
	path, err := tenantPath(tenant, "management/tools")
	if err != nil {
		return nil, err
	}

	providers, err := call[[]protocol.PluginToolProvider](ctx, c, request{
		method: http.MethodGet,
		path:   path,
		query:  pageQuery(1, DefaultPageSize),
	}, resolveOutputSchemas)
	if err != nil {
		return nil, err
	}
	for i := range providers {
		qualifyProvider(&providers[i])
	}
	return providers, nil
}

// FetchToolProvider returns a single tool provider. Its name is qualified as
// plugin_id/provider.
func (c *Client) FetchToolProvider(ctx context.Context, tenant, providerRef string) (*protocol.PluginToolProvider, error) {
	ref, err := ParseProviderRef(providerRef)
	if err != nil {
		return nil, err
	}
	path, err := tenantPath(tenant, "management/tool")
	if err != nil {
		return nil, err
	}

	provider, err := call[protocol.PluginToolProvider](ctx, c, request{
		method: http.MethodGet,
		path:   path,
		query: url.Values{
			"provider":  {ref.ProviderName},
			"plugin_id": {ref.PluginID},
		},
	}, resolveOutputSchemas)
	if err != nil {
		return nil, err
	}
	qualifyProvider(&provider)
	return &provider, nil
}

// Invoke runs a tool and streams its messages. Parameters are first cast to
// the types the tool declares. The caller must drain or Close the stream.
func (c *Client) Invoke(ctx context.Context, tenant, userID, providerRef, toolName string, credentials, parameters map[string]any) (*Stream[protocol.ToolInvokeMessage], error) {
	ref, err := ParseProviderRef(providerRef)
	if err != nil {
		return nil, err
	}
	path, err := tenantPath(tenant, "dispatch/tool/invoke")
	if err != nil {
		return nil, err
	}

	normalized, err := c.NormalizeToolParameters(ctx, tenant, providerRef, toolName, parameters)
	if err != nil {
		return nil, err
	}
	if credentials == nil {
		credentials = map[string]any{}
	}

	headers := jsonHeaders()
	headers["X-Plugin-ID"] = ref.PluginID

	src, err := c.openStream(ctx, request{
		method:  http.MethodPost,
		path:    path,
		headers: headers,
		body: map[string]any{
			"user_id": userID,
			"data": map[string]any{
				"provider":        ref.ProviderName,
				"tool":            toolName,
				"credentials":     credentials,
				"tool_parameters": normalized,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return newStream[protocol.ToolInvokeMessage](src, path, c.logger), nil
}

// qualifyProvider renames a provider to plugin_id/provider and points every
// tool's provider back-reference at the new name.
func qualifyProvider(p *protocol.PluginToolProvider) {
	name := p.PluginID + "/" + p.Declaration.Identity.Name
	p.Declaration.Identity.Name = name
	for i := range p.Declaration.Tools {
		p.Declaration.Tools[i].Identity.Provider = name
	}
}

// resolveOutputSchemas inlines $refs of every tool output schema in a
// provider response, whether data holds one provider or a list.
func resolveOutputSchemas(doc any) (any, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return doc, nil
	}
	switch data := root["data"].(type) {
	case []any:
		for _, item := range data {
			if provider, ok := item.(map[string]any); ok {
				resolveProviderSchemas(provider)
			}
		}
	case map[string]any:
		resolveProviderSchemas(data)
	}
	return root, nil
}

func resolveProviderSchemas(provider map[string]any) {
	declaration, _ := provider["declaration"].(map[string]any)
	tools, _ := declaration["tools"].([]any)
	for _, item := range tools {
		tool, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if schema, ok := tool["output_schema"].(map[string]any); ok && len(schema) > 0 {
			tool["output_schema"] = toolschema.ResolveRefs(schema)
		}
	}
}
