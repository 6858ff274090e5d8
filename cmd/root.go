package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const configName = ".interrogate"

var cfgFile string
var logger *zap.SugaredLogger
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "interrogate",
	Short: "Fingerprint the technologies behind a website",
	Long: `Interrogate fetches a URL and its robots.txt and reports the web servers,
runtimes, CMSs, CDNs and JavaScript frameworks it can identify from
response headers, HTML structure, body text and robots.txt rules.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(configName)
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("INTERROGATE")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}

		// init logger
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l.Sugar()

		applyConfigDefaults(cmd)

		storeAppContext(cmd, &AppContext{
			Logger: logger,
			Config: cliConfig,
		})

		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debugf("config_file=%s", used)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runInterrogate,
}

// newLogger returns a production logger, or a development console logger
// when verbose output is requested.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	// stdout carries the JSON report; keep diagnostics on stderr and quiet.
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.interrogate.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging on stderr")
	rootCmd.PersistentFlags().Int("timeout", cliConfig.Defaults.TimeoutSecs, "HTTP timeout in seconds")
	rootCmd.PersistentFlags().String("user-agent", cliConfig.Defaults.UserAgent, "User-Agent sent with every request")

	rootCmd.Flags().String("url", "", "URL to interrogate (must include http:// or https://)")
	rootCmd.Flags().Bool("headers", false, "include response headers in the output")
	rootCmd.Flags().Bool("body", false, "include a preview of the response body")
	rootCmd.Flags().Bool("robots", false, "include the parsed robots.txt")
	rootCmd.Flags().Bool("all", false, "include headers, body preview and robots.txt")
	rootCmd.Flags().String("format", cliConfig.Output.Format, "output format: json or text")

	// add subcommands
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(versionCmd)
}
