package main

import (
	"fmt"
	"time"

	"github.com/d2verb/difyctl/internal/identifier"
	"github.com/d2verb/difyctl/internal/protocol"
	"github.com/d2verb/difyctl/internal/ui"
)

type InstallCmd struct {
	Identifier      []string      `help:"Plugin unique identifier to install. Can be provided multiple times." predictor:"plugin"`
	File            string        `help:"Path to a .difypkg file to upload and install." predictor:"file"`
	Source          string        `help:"Installation source when using identifiers." default:"package" enum:"github,marketplace,package,remote" predictor:"source"`
	Meta            string        `help:"Metadata JSON applied to each identifier during install."`
	MetaFile        string        `help:"Path to a JSON file containing metadata applied to each identifier." predictor:"file"`
	VerifySignature bool          `help:"Verify package signature when using --file."`
	Wait            bool          `help:"Wait for the install task to finish."`
	PollInterval    time.Duration `help:"Interval between task status checks with --wait." default:"2s"`
}

// installResult is printed after an install is queued.
type installResult struct {
	TaskID       string   `json:"task_id"`
	AllInstalled bool     `json:"all_installed"`
	Identifiers  []string `json:"identifiers"`
}

func (c *InstallCmd) Run(app *App) error {
	if c.Wait {
		if err := checkPollInterval(c.PollInterval); err != nil {
			return err
		}
	}

	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	meta, err := parseJSONObject("meta", c.Meta, c.MetaFile)
	if err != nil {
		return err
	}

	identifiers := append([]string(nil), c.Identifier...)
	if c.File != "" {
		pkg, err := readFileArg("file", c.File)
		if err != nil {
			return err
		}
		decoded, err := cl.UploadPackage(app.ctx, tenant, pkg, c.VerifySignature)
		if err != nil {
			return fmt.Errorf("upload %s: %w", c.File, err)
		}
		identifiers = append(identifiers, decoded.UniqueIdentifier)
	}
	if len(identifiers) == 0 {
		return errUsage("Provide at least one --identifier or --file to install.")
	}

	metas := make([]map[string]any, len(identifiers))
	for i := range metas {
		metas[i] = meta
	}

	source := protocol.InstallationSource(c.Source)
	if c.File != "" {
		source = protocol.SourcePackage
	}

	resp, err := cl.InstallFromIdentifiers(app.ctx, tenant, identifiers, source, metas)
	if err != nil {
		return err
	}
	if err := ui.PrintJSON(installResult{
		TaskID:       resp.TaskID,
		AllInstalled: resp.AllInstalled,
		Identifiers:  identifiers,
	}); err != nil {
		return err
	}

	if !c.Wait || resp.AllInstalled || resp.TaskID == "" {
		return nil
	}
	task, err := waitForTask(app.ctx, cl, tenant, resp.TaskID, c.PollInterval)
	if err != nil {
		return err
	}
	return reportTask(task)
}

type UpgradeCmd struct {
	Original     string        `arg:"" help:"Currently installed plugin unique identifier." predictor:"plugin"`
	Replacement  string        `arg:"" help:"Plugin unique identifier to upgrade to."`
	Source       string        `help:"Installation source of the replacement." default:"marketplace" enum:"github,marketplace,package,remote" predictor:"source"`
	Meta         string        `help:"Metadata JSON for the replacement."`
	MetaFile     string        `help:"Path to a JSON file containing metadata for the replacement." predictor:"file"`
	Force        bool          `help:"Allow downgrades and reinstalling the same version." short:"f"`
	Wait         bool          `help:"Wait for the upgrade task to finish."`
	PollInterval time.Duration `help:"Interval between task status checks with --wait." default:"2s"`
}

func (c *UpgradeCmd) Run(app *App) error {
	if c.Wait {
		if err := checkPollInterval(c.PollInterval); err != nil {
			return err
		}
	}
	if err := c.checkVersions(); err != nil {
		return err
	}

	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}
	meta, err := parseJSONObject("meta", c.Meta, c.MetaFile)
	if err != nil {
		return err
	}

	resp, err := cl.UpgradePlugin(app.ctx, tenant, c.Original, c.Replacement, protocol.InstallationSource(c.Source), meta)
	if err != nil {
		return err
	}
	if err := ui.PrintJSON(resp); err != nil {
		return err
	}

	if !c.Wait || resp.AllInstalled || resp.TaskID == "" {
		return nil
	}
	task, err := waitForTask(app.ctx, cl, tenant, resp.TaskID, c.PollInterval)
	if err != nil {
		return err
	}
	return reportTask(task)
}

// checkVersions refuses to replace a plugin with a different plugin, and
// refuses downgrades unless forced.
func (c *UpgradeCmd) checkVersions() error {
	from, err := identifier.Parse(c.Original)
	if err != nil {
		return errUsage("original identifier: %v", err)
	}
	to, err := identifier.Parse(c.Replacement)
	if err != nil {
		return errUsage("replacement identifier: %v", err)
	}

	if from.PluginID() != to.PluginID() {
		return errUsage("cannot upgrade %s to a different plugin %s", from.PluginID(), to.PluginID())
	}

	cmp, err := identifier.CompareVersions(to.Version, from.Version)
	if err != nil {
		if c.Force {
			ui.PrintWarning(fmt.Sprintf("Skipping version check: %v", err))
			return nil
		}
		return errUsage("%v (use --force to skip the version check)", err)
	}
	if cmp > 0 {
		return nil
	}
	if !c.Force {
		return errUsage("%s is not newer than %s (use --force to proceed)", to.Version, from.Version)
	}
	ui.PrintWarning(fmt.Sprintf("Proceeding from %s to %s (--force)", from.Version, to.Version))
	return nil
}

type UninstallCmd struct {
	InstallationID string `arg:"" help:"Plugin installation ID."`
}

func (c *UninstallCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	ok, err := cl.Uninstall(app.ctx, tenant, c.InstallationID)
	if err != nil {
		return err
	}
	if !ok {
		return &ExitError{Code: exitDaemonError, Message: fmt.Sprintf("Daemon did not uninstall '%s'.", c.InstallationID)}
	}
	ui.PrintSuccess(fmt.Sprintf("Uninstalled: %s", c.InstallationID))
	return nil
}
