package main

import (
	"fmt"

	"github.com/d2verb/difyctl/internal/protocol"
	"github.com/d2verb/difyctl/internal/ui"
)

type ManifestCmd struct {
	Identifier string `arg:"" help:"Plugin unique identifier." predictor:"plugin"`
	JSON       bool   `help:"Print the raw manifest as JSON."`
}

func (c *ManifestCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	manifest, err := cl.FetchPluginManifest(app.ctx, tenant, c.Identifier)
	if err != nil {
		return err
	}
	if c.JSON {
		return ui.PrintJSON(manifest)
	}

	ui.PrintPluginDetails(pluginDetails(c.Identifier, manifest, nil))
	return nil
}

type DecodeCmd struct {
	Identifier string `arg:"" help:"Plugin unique identifier of an uploaded package."`
	JSON       bool   `help:"Print the raw response as JSON."`
}

func (c *DecodeCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	decoded, err := cl.DecodePluginFromIdentifier(app.ctx, tenant, c.Identifier)
	if err != nil {
		return err
	}
	if c.JSON {
		return ui.PrintJSON(decoded)
	}

	ui.PrintPluginDetails(pluginDetails(decoded.UniqueIdentifier, &decoded.Manifest, decoded.Verification))
	return nil
}

func pluginDetails(identifier string, m *protocol.PluginDeclaration, v *protocol.PluginVerification) ui.PluginDetails {
	d := ui.PluginDetails{
		Identifier:  identifier,
		Name:        m.Name,
		Author:      m.Author,
		Version:     m.Version,
		Description: m.Description.EnUS,
		Permissions: m.Resource.Permission.Summary(),
		Tools:       m.Plugins.Tools,
	}
	if v != nil {
		d.Verified = v.AuthorizedCategory
	}
	return d
}

type ReadmeCmd struct {
	Identifier string `arg:"" help:"Plugin unique identifier." predictor:"plugin"`
	Language   string `help:"README language." default:"en_US"`
	Raw        bool   `help:"Print markdown without rendering."`
}

func (c *ReadmeCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	content, err := cl.FetchPluginReadme(app.ctx, tenant, c.Identifier, c.Language)
	if err != nil {
		return err
	}
	if content == "" {
		ui.PrintInfo(fmt.Sprintf("No README available for %s (%s).", c.Identifier, c.Language))
		return nil
	}

	if !c.Raw {
		if content, err = ui.RenderMarkdown(content); err != nil {
			return err
		}
	}
	fmt.Fprint(ui.Output, content)
	return nil
}

type InstallationsCmd struct {
	PluginIDs []string `arg:"" name:"plugin-id" help:"Plugin IDs (organization/name)."`
}

func (c *InstallationsCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	installations, err := cl.FetchInstallationsByIDs(app.ctx, tenant, c.PluginIDs)
	if err != nil {
		return err
	}
	return ui.PrintJSON(installations)
}

type MissingDepsCmd struct {
	Identifiers []string `arg:"" name:"identifier" help:"Plugin unique identifiers to check." predictor:"plugin"`
}

func (c *MissingDepsCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	missing, err := cl.FetchMissingDependencies(app.ctx, tenant, c.Identifiers)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		ui.PrintSuccess("All dependencies are installed.")
		return nil
	}
	return ui.PrintJSON(missing)
}
