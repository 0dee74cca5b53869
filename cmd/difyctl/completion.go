package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/posener/complete"

	"github.com/d2verb/difyctl/internal/client"
)

// completionTimeout bounds the daemon round trip made while completing.
const completionTimeout = 2 * time.Second

// pluginPredictor completes installed plugin unique identifiers.
// Connection settings come from the environment and the default config file.
type pluginPredictor struct {
	configPath string
}

func newPluginPredictor(configPath string) complete.Predictor {
	return &pluginPredictor{configPath: configPath}
}

// Predict implements complete.Predictor interface.
func (p *pluginPredictor) Predict(args complete.Args) []string {
	// complete.Predictor has no context; bound the lookup instead.
	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	app := newApp(ctx, &Globals{Config: p.configPath}, slog.New(slog.DiscardHandler), os.Getenv)
	cl, tenant, err := app.Session()
	if err != nil {
		return nil
	}
	return completePlugins(ctx, cl, tenant, args.Last)
}

// completePlugins returns installed plugin identifiers starting with partial.
func completePlugins(ctx context.Context, cl *client.Client, tenant, partial string) []string {
	plugins, err := cl.ListPlugins(ctx, tenant)
	if err != nil {
		return nil
	}

	results := make([]string, 0, len(plugins))
	for _, p := range plugins {
		if strings.HasPrefix(p.PluginUniqueIdentifier, partial) {
			results = append(results, p.PluginUniqueIdentifier)
		}
	}
	return results
}
