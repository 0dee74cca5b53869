package main

import (
	"github.com/d2verb/difyctl/internal/client"
	"github.com/d2verb/difyctl/internal/ui"
)

type ListCmd struct {
	Page      int  `help:"Page number." default:"1"`
	PageSize  int  `help:"Page size." default:"256"`
	WithTotal bool `help:"Return total count alongside the list."`
}

func (c *ListCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	if c.WithTotal {
		result, err := cl.ListPluginsWithTotal(app.ctx, tenant, c.Page, c.PageSize)
		if err != nil {
			return err
		}
		return ui.PrintJSON(result)
	}

	if c.Page != 1 || c.PageSize != client.DefaultPageSize {
		ui.PrintWarning("--page and --page-size only apply with --with-total")
	}

	plugins, err := cl.ListPlugins(app.ctx, tenant)
	if err != nil {
		return err
	}

	// Convert to UI format
	infos := make([]ui.PluginInfo, len(plugins))
	for i := range plugins {
		infos[i] = ui.PluginInfo{
			Name:        plugins[i].Name,
			Identifier:  plugins[i].PluginUniqueIdentifier,
			Permissions: plugins[i].PermissionSummary(),
		}
	}
	ui.PrintPluginList(infos)
	return nil
}
