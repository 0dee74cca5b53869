package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/d2verb/difyctl/internal/config"
	"github.com/d2verb/difyctl/internal/logging"
	"github.com/d2verb/difyctl/internal/protocol"
)

var (
	version = "dev"
	commit  = "none"
)

// Globals are the connection flags shared by every command.
type Globals struct {
	Config  string `help:"Path to config file with defaults." default:"${config_path}" predictor:"file"`
	URL     string `name:"url" help:"Plugin daemon URL (env: DIFY_PLUGIN_DAEMON_URL)."`
	Key     string `help:"Plugin daemon API key (env: DIFY_PLUGIN_DAEMON_KEY)."`
	Timeout string `help:"Request timeout in seconds (env: DIFY_PLUGIN_DAEMON_TIMEOUT)."`
	Tenant  string `help:"Tenant ID (env: DIFY_PLUGIN_TENANT_ID)."`
	Verbose bool   `short:"v" help:"Write debug records to the log file."`
}

type CLI struct {
	Globals

	List          ListCmd          `cmd:"" help:"List installed plugins"`
	UploadPkg     UploadPkgCmd     `cmd:"" name:"upload-pkg" help:"Upload a .difypkg plugin package"`
	UploadBundle  UploadBundleCmd  `cmd:"" name:"upload-bundle" help:"Upload a bundle of plugins"`
	Install       InstallCmd       `cmd:"" help:"Install plugins from identifiers or upload-and-install a .difypkg"`
	Upgrade       UpgradeCmd       `cmd:"" help:"Upgrade an installed plugin to another identifier"`
	Uninstall     UninstallCmd     `cmd:"" help:"Uninstall a plugin installation"`
	Tasks         TasksCmd         `cmd:"" help:"Manage install tasks"`
	Installations InstallationsCmd `cmd:"" help:"Show installation records by plugin ID"`
	MissingDeps   MissingDepsCmd   `cmd:"" name:"missing-deps" help:"Report dependencies that are not installed"`
	Manifest      ManifestCmd      `cmd:"" help:"Show the manifest of a plugin"`
	Decode        DecodeCmd        `cmd:"" help:"Decode an uploaded plugin package"`
	Readme        ReadmeCmd        `cmd:"" help:"Show the README of a plugin"`
	ListTools     ListToolsCmd     `cmd:"" name:"list-tools" help:"List tool providers (or a single provider)"`
	CheckTools    CheckToolsCmd    `cmd:"" name:"check-tools" help:"Check whether tool providers exist"`
	Invoke        InvokeCmd        `cmd:"" help:"Invoke a tool and stream its output"`

	Version            VersionCmd                   `cmd:"" help:"Show version"`
	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	paths, err := config.GetPaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	cli := CLI{}
	parser := kong.Must(&cli,
		kong.Name("difyctl"),
		kong.Description("Interact with a Dify plugin daemon from the command line."),
		kong.UsageOnError(),
		kong.Vars{"config_path": paths.Config},
	)
	kongplete.Complete(parser,
		kongplete.WithPredictor("file", complete.PredictFiles("*")),
		kongplete.WithPredictor("source", complete.PredictSet(sourceNames()...)),
		kongplete.WithPredictor("plugin", newPluginPredictor(paths.Config)),
	)

	kctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	logger, closeLog := openLogger(paths, cli.Verbose)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(ctx, &cli.Globals, logger, os.Getenv)
	err = kctx.Run(app)
	if err == nil {
		return exitSuccess
	}

	logger.Error("command failed", "command", kctx.Command(), "error", err)
	code, message := exitStatus(err)
	if message != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
	return code
}

// openLogger writes to the rotating log file under the state directory.
func openLogger(paths *config.Paths, verbose bool) (*slog.Logger, func()) {
	cfg := logging.DefaultConfig(paths.Log)
	cfg.Verbose = verbose
	return logging.Open(cfg)
}

func sourceNames() []string {
	names := make([]string, len(protocol.InstallationSources))
	for i, s := range protocol.InstallationSources {
		names[i] = string(s)
	}
	return names
}
