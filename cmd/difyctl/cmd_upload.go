package main

import (
	"fmt"

	"github.com/d2verb/difyctl/internal/ui"
)

type UploadPkgCmd struct {
	File            string `help:"Path to the .difypkg file." required:"" predictor:"file"`
	VerifySignature bool   `help:"Ask the daemon to verify the package signature."`
}

func (c *UploadPkgCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	pkg, err := readFileArg("file", c.File)
	if err != nil {
		return err
	}

	decoded, err := cl.UploadPackage(app.ctx, tenant, pkg, c.VerifySignature)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Uploaded plugin: %s", decoded.UniqueIdentifier))
	return nil
}

type UploadBundleCmd struct {
	File            string `help:"Path to the bundle file." required:"" predictor:"file"`
	VerifySignature bool   `help:"Ask the daemon to verify bundle signatures."`
}

func (c *UploadBundleCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	bundle, err := readFileArg("file", c.File)
	if err != nil {
		return err
	}

	deps, err := cl.UploadBundle(app.ctx, tenant, bundle, c.VerifySignature)
	if err != nil {
		return err
	}
	return ui.PrintJSON(deps)
}
