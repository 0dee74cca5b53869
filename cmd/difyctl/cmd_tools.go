package main

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/d2verb/difyctl/internal/client"
	"github.com/d2verb/difyctl/internal/editor"
	"github.com/d2verb/difyctl/internal/protocol"
	"github.com/d2verb/difyctl/internal/toolschema"
	"github.com/d2verb/difyctl/internal/ui"
)

// providerView is a tool provider annotated with its plugin's permissions.
type providerView struct {
	protocol.PluginToolProvider
	PermissionSummary string `json:"permission_summary"`
}

type ListToolsCmd struct {
	Provider string `help:"Provider as plugin_id/provider_name or organization/plugin_name/provider_name. All providers are listed when omitted."`
}

func (c *ListToolsCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	var (
		providers []protocol.PluginToolProvider
		lookup    map[string]string
	)
	g, ctx := errgroup.WithContext(app.ctx)
	g.Go(func() error {
		if c.Provider == "" {
			var err error
			providers, err = cl.FetchToolProviders(ctx, tenant)
			return err
		}
		p, err := cl.FetchToolProvider(ctx, tenant, c.Provider)
		if err != nil {
			return err
		}
		providers = []protocol.PluginToolProvider{*p}
		return nil
	})
	g.Go(func() error {
		lookup = permissionLookup(ctx, cl, tenant)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	views := make([]providerView, len(providers))
	for i, p := range providers {
		summary, ok := lookup[p.PluginUniqueIdentifier]
		if !ok {
			summary = "unknown"
		}
		views[i] = providerView{PluginToolProvider: p, PermissionSummary: summary}
	}

	if c.Provider != "" {
		return ui.PrintJSON(views[0])
	}
	if len(views) == 0 {
		fmt.Fprintln(ui.Output, "No tool providers found.")
		return nil
	}
	return ui.PrintJSON(views)
}

type CheckToolsCmd struct {
	Providers []string `arg:"" name:"provider" help:"Providers as plugin_id/provider_name or organization/plugin_name/provider_name."`
}

func (c *CheckToolsCmd) Run(app *App) error {
	ids := make([]protocol.ProviderID, len(c.Providers))
	for i, ref := range c.Providers {
		id, err := client.ParseProviderRef(ref)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	exists, err := cl.CheckToolsExistence(app.ctx, tenant, ids)
	if err != nil {
		return err
	}
	if len(exists) != len(ids) {
		return fmt.Errorf("check tools: daemon answered %d of %d providers", len(exists), len(ids))
	}

	missing := 0
	for i, ref := range c.Providers {
		if exists[i] {
			fmt.Fprintf(ui.Output, "%s %s\n", ui.Green("✓"), ref)
			continue
		}
		missing++
		fmt.Fprintf(ui.Output, "%s %s %s\n", ui.Red("✗"), ref, ui.Dim("(not found)"))
	}
	if missing > 0 {
		return &ExitError{Code: exitNotFound, Message: fmt.Sprintf("%d of %d providers not found.", missing, len(ids))}
	}
	return nil
}

type InvokeCmd struct {
	User            string `help:"User ID for the invocation." required:""`
	Provider        string `help:"Tool provider as plugin_id/provider_name or organization/plugin_name/provider_name." required:""`
	Tool            string `help:"Tool name." required:""`
	Credentials     string `help:"Credentials as a JSON string."`
	CredentialsFile string `help:"Path to a JSON file containing credentials." predictor:"file"`
	Params          string `help:"Tool parameters as a JSON string."`
	ParamsFile      string `help:"Path to a JSON file containing tool parameters." predictor:"file"`
	Edit            bool   `help:"Compose tool parameters in $EDITOR, starting from the declared parameters."`
	ValidateOutput  bool   `help:"Check JSON messages against the tool's output schema."`
}

func (c *InvokeCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	credentials, err := parseJSONObject("credentials", c.Credentials, c.CredentialsFile)
	if err != nil {
		return err
	}
	params, err := parseJSONObject("params", c.Params, c.ParamsFile)
	if err != nil {
		return err
	}

	var schema map[string]any
	if c.Edit || c.ValidateOutput {
		tool, err := c.lookupTool(app, cl, tenant)
		if err != nil {
			return err
		}
		if c.Edit {
			if params, err = editParams(tool, params); err != nil {
				return err
			}
		}
		if c.ValidateOutput {
			schema = tool.OutputSchema
			if len(schema) == 0 {
				ui.PrintWarning(fmt.Sprintf("Tool '%s' declares no output schema; skipping validation.", c.Tool))
			}
		}
	}

	stream, err := cl.Invoke(app.ctx, tenant, c.User, c.Provider, c.Tool, credentials, params)
	if err != nil {
		var notFound *client.ToolNotFoundError
		if errors.As(err, &notFound) {
			return errToolNotFound(notFound)
		}
		return err
	}
	defer stream.Close()

	for msg, err := range stream.All() {
		if err != nil {
			return err
		}
		if len(schema) > 0 && msg.Type == protocol.MessageJSON {
			if err := toolschema.Validate(schema, msg.JSON); err != nil {
				return &ExitError{Code: exitDaemonError, Message: fmt.Sprintf("Tool output does not match its schema: %v", err)}
			}
		}
		if err := ui.PrintInvokeMessage(msg); err != nil {
			return err
		}
	}

	if ui.IsTerminal(ui.Output) {
		fmt.Fprintln(ui.Output)
	}
	return nil
}

// lookupTool fetches the declaration of the tool being invoked.
func (c *InvokeCmd) lookupTool(app *App, cl *client.Client, tenant string) (*protocol.ToolEntity, error) {
	provider, err := cl.FetchToolProvider(app.ctx, tenant, c.Provider)
	if err != nil {
		return nil, err
	}
	tool, ok := provider.Declaration.Tool(c.Tool)
	if !ok {
		return nil, errToolNotFound(&client.ToolNotFoundError{
			Provider:  c.Provider,
			Tool:      c.Tool,
			Available: provider.Declaration.ToolNames(),
		})
	}
	return tool, nil
}

// editParams opens the user's editor on the tool's parameters, prefilled
// with params and a placeholder for every other declared parameter.
func editParams(tool *protocol.ToolEntity, params map[string]any) (map[string]any, error) {
	ed, err := editor.Find()
	if err != nil {
		return nil, err
	}
	return editor.EditJSON(ed, paramTemplate(tool, params))
}

// paramTemplate returns params plus a typed placeholder for each declared
// parameter params does not set.
func paramTemplate(tool *protocol.ToolEntity, params map[string]any) map[string]any {
	out := make(map[string]any, len(tool.Parameters)+len(params))
	for _, p := range tool.Parameters {
		out[p.Name] = placeholder(p)
	}
	for k, v := range params {
		out[k] = v
	}
	return out
}

func placeholder(p protocol.ToolParameter) any {
	switch p.Type {
	case protocol.ParamNumber:
		return 0
	case protocol.ParamBoolean:
		return false
	case protocol.ParamSelect:
		if len(p.Options) > 0 {
			return p.Options[0].Value
		}
		return ""
	case protocol.ParamFiles, protocol.ParamArray:
		return []any{}
	case protocol.ParamFile:
		return nil
	default:
		return ""
	}
}
