package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

// runInterrogate handles the root command: one URL, one report.
func runInterrogate(cmd *cobra.Command, args []string) error {
	appCtx := getAppContext(cmd)

	target, _ := cmd.Flags().GetString("url")
	target = strings.TrimSpace(target)
	if target == "" {
		return &MissingFlagError{Flag: "url"}
	}

	format := appCtx.Config.Output.Format
	if err := validateFormat(format); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := appCtx.newScanner().Scan(ctx, target, appCtx.scanOptions(cmd))
	if err != nil {
		appCtx.Logger.Debugw("interrogation failed", "url", target, "error", err)
		return err
	}
	appCtx.Logger.Debugw("interrogation complete",
		"url", target,
		"status", report.StatusCode,
		"technologies", len(report.Technologies),
	)

	return renderReport(cmd.OutOrStdout(), format, report)
}
