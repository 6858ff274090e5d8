package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/inkyvoxel/interrogate/internal/fetch"
	"github.com/inkyvoxel/interrogate/internal/scan"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch [FILE]",
	Short: "Interrogate every URL listed in FILE (or stdin)",
	Long: `Read one target per line from FILE, or from stdin when FILE is omitted or "-".
Blank lines and lines starting with # are ignored. Bare hosts such as
example.com are interrogated over https.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		format := appCtx.Config.Output.Format
		if err := validateFormat(format); err != nil {
			return err
		}

		source := "-"
		if len(args) == 1 {
			source = args[0]
		}
		targets, err := loadTargets(source, cmd.InOrStdin())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		batch := appCtx.Config.Batch
		runner := &scan.Runner{
			Concurrency: batch.Concurrency,
			RateLimit:   batch.RateLimit,
		}

		var progress *progressPrinter
		if batch.ProgressEnabled {
			progress = newProgressPrinter(len(targets), "interrogate", cmd.ErrOrStderr())
			progress.Start()
		}

		appCtx.Logger.Debugw("batch started",
			"targets", len(targets),
			"concurrency", runner.Concurrency,
			"rate", runner.RateLimit,
		)

		start := time.Now()
		results := runner.Run(ctx, targets, appCtx.newScanner(), appCtx.scanOptions(cmd), func(result scan.Result, duration time.Duration) {
			if progress != nil {
				progress.Increment(result.Error == "", duration.Seconds())
			}
			if result.Error != "" {
				appCtx.Logger.Debugw("target failed", "target", result.Target, "error", result.Error)
			}
		})

		if progress != nil {
			progress.Stop()
		}

		failed := 0
		for _, res := range results {
			if res.Error != "" {
				failed++
			}
		}
		appCtx.Logger.Debugw("batch finished",
			"targets", len(results),
			"failed", failed,
			"duration", time.Since(start),
		)

		return renderBatch(cmd.OutOrStdout(), format, results)
	},
}

func init() {
	batchCmd.Flags().Bool("headers", false, "include response headers in each report")
	batchCmd.Flags().Bool("body", false, "include a preview of each response body")
	batchCmd.Flags().Bool("robots", false, "include each parsed robots.txt")
	batchCmd.Flags().Bool("all", false, "include headers, body preview and robots.txt")
	batchCmd.Flags().String("format", cliConfig.Output.Format, "output format: json or text")
	batchCmd.Flags().Int("concurrency", cliConfig.Batch.Concurrency, "maximum concurrent interrogations")
	batchCmd.Flags().Int("rate", cliConfig.Batch.RateLimit, "interrogations started per second (0 = unlimited)")
	batchCmd.Flags().Bool("progress", false, "show a progress line on stderr")
}

// loadTargets reads targets from a file path, or from stdin for "-".
func loadTargets(source string, stdin io.Reader) ([]string, error) {
	var r io.Reader = stdin
	name := "stdin"
	if source != "-" {
		f, err := os.Open(source) // #nosec G304 -- path supplied by the operator on the command line.
		if err != nil {
			return nil, fmt.Errorf("failed to open targets file: %w", err)
		}
		defer f.Close()
		r = f
		name = source
	}

	targets, err := parseTargets(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets from %s: %w", name, err)
	}
	if len(targets) == 0 {
		return nil, &EmptyBatchError{Source: name}
	}
	return targets, nil
}

// parseTargets returns one normalized target per non-comment line,
// de-duplicated in first-seen order.
func parseTargets(r io.Reader) ([]string, error) {
	var targets []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		target := fetch.NormalizeTarget(line)
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		targets = append(targets, target)
	}
	return targets, scanner.Err()
}
