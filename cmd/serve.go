package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inkyvoxel/interrogate/internal/api"
	"github.com/inkyvoxel/interrogate/internal/scan"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run interrogate as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		addr, _ := cmd.Flags().GetString("addr")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

		// Initialize structured logger
		var logger *zap.Logger
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() {
			_ = logger.Sync()
		}()

		cfg, writeTimeout := buildServeConfig(cmd, appCtx, logger)
		server := api.NewServer(cfg)
		defer server.Close()

		httpServer := &http.Server{
			Addr:         addr,
			Handler:      server,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  120 * time.Second,
		}

		out := cmd.OutOrStdout()

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		// Start server in a goroutine
		go func() {
			fmt.Fprintf(out, "%s API server listening on %s\n", colorInfo("→"), addr)
			fmt.Fprintf(out, "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		// Channel to listen for interrupt signals
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		// Block until we receive a signal or an error
		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Fprintf(out, "\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Fprintf(out, "%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

const (
	defaultServeMaxBatch = 50
	serveWriteTimeout    = 30 * time.Second
	// serveWriteSlack covers encoding and sending a response once scanning is done.
	serveWriteSlack = 10 * time.Second
)

// buildServeConfig maps the serve flags and resolved defaults onto an
// api.Config, and returns the write timeout the HTTP server needs so a full
// batch can finish before its connection is cut.
func buildServeConfig(cmd *cobra.Command, appCtx *AppContext, logger *zap.Logger) (api.Config, time.Duration) {
	flags := cmd.Flags()
	authToken, _ := flags.GetString("auth-token")
	scanTimeout, _ := flags.GetDuration("scan-timeout")
	maxBatch, _ := flags.GetInt("max-batch")
	corsOrigins, _ := flags.GetStringSlice("cors-origins")
	rateLimit, _ := flags.GetInt("rate-limit")
	rateBurst, _ := flags.GetInt("rate-burst")

	runner := &scan.Runner{
		Concurrency: appCtx.Config.Batch.Concurrency,
		RateLimit:   appCtx.Config.Batch.RateLimit,
		Timeout:     scanTimeout,
	}
	if runner.Concurrency <= 0 {
		runner.Concurrency = 1
	}
	if maxBatch <= 0 {
		maxBatch = defaultServeMaxBatch
	}

	batchTimeout := batchBudget(maxBatch, runner, perScanBound(scanTimeout, appCtx.Config.Defaults))
	writeTimeout := batchTimeout + serveWriteSlack
	if writeTimeout < serveWriteTimeout {
		writeTimeout = serveWriteTimeout
	}

	return api.Config{
		Scanner:      appCtx.newScanner(),
		Runner:       runner,
		ScanTimeout:  scanTimeout,
		BatchTimeout: batchTimeout,
		MaxBatchSize: maxBatch,
		Version:      Version,
		AuthToken:    authToken,
		Logger:       logger,
		CORSOrigins:  corsOrigins,
		RateLimit:    rateLimit,
		RateBurst:    rateBurst,
	}, writeTimeout
}

// perScanBound is the longest one interrogation can run: scanTimeout when set,
// otherwise the page and robots.txt fetches each retried once.
func perScanBound(scanTimeout time.Duration, d DefaultValues) time.Duration {
	if scanTimeout > 0 {
		return scanTimeout
	}
	perFetch := 2*time.Duration(d.TimeoutSecs)*time.Second + time.Duration(d.RetryDelayMs)*time.Millisecond
	return 2 * perFetch
}

// batchBudget is the worst-case wall time of a maxBatch-sized batch: one wave
// of perScan per Concurrency targets, plus the time the rate limiter holds
// back target starts.
func batchBudget(maxBatch int, runner *scan.Runner, perScan time.Duration) time.Duration {
	waves := (maxBatch + runner.Concurrency - 1) / runner.Concurrency
	budget := time.Duration(waves) * perScan
	if runner.RateLimit > 0 {
		budget += time.Duration(maxBatch/runner.RateLimit) * time.Second
	}
	return budget
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the API server")
	serveCmd.Flags().String("auth-token", "", "Optional shared secret for API requests")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().Duration("scan-timeout", 30*time.Second, "Upper bound for a single interrogation (0 = request lifetime)")
	serveCmd.Flags().Int("max-batch", defaultServeMaxBatch, "Maximum URLs accepted by /api/v1/batch")
	serveCmd.Flags().Int("concurrency", cliConfig.Batch.Concurrency, "Concurrent interrogations per batch request")
	serveCmd.Flags().Int("rate", cliConfig.Batch.RateLimit, "Outbound interrogations started per second per batch (0 = unlimited)")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", 20, "Rate limit burst size")
	rootCmd.AddCommand(serveCmd)
}
