package main

import (
	"fmt"

	"github.com/d2verb/difyctl/internal/ui"
)

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(ui.Output, "difyctl version %s (%s)\n", version, commit)
	return nil
}
