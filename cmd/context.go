package cmd

import (
	"context"
	"time"

	"github.com/inkyvoxel/interrogate/internal/fetch"
	"github.com/inkyvoxel/interrogate/internal/scan"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type appContextKey struct{}

// AppContext carries state initialised once in the root command.
type AppContext struct {
	Logger *zap.SugaredLogger
	Config *CLIConfig
}

var globalAppContext *AppContext

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil {
		if ctx := cmd.Context(); ctx != nil {
			if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
				return appCtx
			}
		}
	}
	if globalAppContext != nil {
		return globalAppContext
	}
	return &AppContext{Logger: zap.NewNop().Sugar(), Config: newCLIConfig()}
}

// newScanner builds a Scanner from the resolved defaults.
func (a *AppContext) newScanner() *scan.Scanner {
	d := a.Config.Defaults
	var base *zap.Logger
	if a.Logger != nil {
		base = a.Logger.Desugar()
	}
	client := fetch.NewClient(fetch.Options{
		Timeout:      time.Duration(d.TimeoutSecs) * time.Second,
		MaxRedirects: d.MaxRedirects,
		MaxBodyBytes: int64(d.MaxBodyBytes),
		UserAgent:    d.UserAgent,
		RetryDelay:   time.Duration(d.RetryDelayMs) * time.Millisecond,
		Logger:       base,
	})
	return scan.NewScanner(client, base)
}

// scanOptions returns the report sections selected by --headers, --body,
// --robots and --all.
func (a *AppContext) scanOptions(cmd *cobra.Command) scan.Options {
	flags := cmd.Flags()
	headers, _ := flags.GetBool("headers")
	body, _ := flags.GetBool("body")
	robots, _ := flags.GetBool("robots")
	all, _ := flags.GetBool("all")

	opts := scan.Options{
		IncludeHeaders: headers,
		IncludeBody:    body,
		IncludeRobots:  robots,
		PreviewBytes:   a.Config.Defaults.BodyPreviewBytes,
	}
	if all {
		opts = opts.All()
	}
	return opts
}
