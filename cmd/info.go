package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the effective configuration",
	Long: `Display interrogate configuration information including:
  - Configuration file location
  - Effective retrieval defaults
  - Batch settings
  - Platform information`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config

		configPath := viper.ConfigFileUsed()
		configExists := "✓ (loaded)"
		if configPath == "" {
			configExists = "✗ (using defaults)"
			if homeDir, err := os.UserHomeDir(); err == nil {
				configPath = filepath.Join(homeDir, configName+".yaml")
			} else {
				configPath = "~/" + configName + ".yaml"
			}
		}

		// Get output writer (for testing support)
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "interrogate System Information")
		fmt.Fprintln(out, "==============================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:             %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Version:              %s\n", Version)
		fmt.Fprintf(out, "Configuration File:   %s %s\n", configPath, configExists)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Retrieval Defaults:")
		fmt.Fprintf(out, "  Timeout:            %s\n", time.Duration(cfg.Defaults.TimeoutSecs)*time.Second)
		fmt.Fprintf(out, "  User-Agent:         %s\n", cfg.Defaults.UserAgent)
		fmt.Fprintf(out, "  Max Body Bytes:     %d\n", cfg.Defaults.MaxBodyBytes)
		fmt.Fprintf(out, "  Max Redirects:      %d\n", cfg.Defaults.MaxRedirects)
		fmt.Fprintf(out, "  Retry Delay:        %s\n", time.Duration(cfg.Defaults.RetryDelayMs)*time.Millisecond)
		fmt.Fprintf(out, "  Body Preview Bytes: %d\n", cfg.Defaults.BodyPreviewBytes)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Batch:")
		fmt.Fprintf(out, "  Concurrency:        %d\n", cfg.Batch.Concurrency)
		fmt.Fprintf(out, "  Rate Limit:         %d/s\n", cfg.Batch.RateLimit)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Output Format:        %s\n", cfg.Output.Format)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "To override defaults, create %s with:\n", configPath)
		fmt.Fprintln(out, "  defaults:")
		fmt.Fprintln(out, "    timeout_secs: 20")
		fmt.Fprintln(out, "    user_agent: \"MyScanner/1.0\"")
		fmt.Fprintln(out, "  output:")
		fmt.Fprintln(out, "    format: text")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Environment variables use the INTERROGATE_ prefix.")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
