package cmd

import (
	"strings"
	"time"

	consts "github.com/inkyvoxel/interrogate/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultHTTPTimeoutSeconds = int(consts.DefaultTimeout / time.Second)
	defaultBatchConcurrency   = 4
	defaultBatchRateLimit     = 5
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Defaults DefaultValues
	Output   OutputConfig
	Batch    BatchConfig
}

// DefaultValues hold retrieval settings, typically derived from env/config.
type DefaultValues struct {
	TimeoutSecs      int
	UserAgent        string
	MaxBodyBytes     int
	MaxRedirects     int
	RetryDelayMs     int
	BodyPreviewBytes int
}

// OutputConfig controls how reports are rendered.
type OutputConfig struct {
	Format string
}

// BatchConfig consolidates flag-driven settings for the batch command.
type BatchConfig struct {
	Concurrency     int
	RateLimit       int
	ProgressEnabled bool
}

type defaultOverrides struct {
	TimeoutSecs      *int
	UserAgent        string
	MaxBodyBytes     *int
	MaxRedirects     *int
	RetryDelayMs     *int
	BodyPreviewBytes *int
	Format           string
	Concurrency      *int
	RateLimit        *int
	Progress         *bool
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Defaults: DefaultValues{
			TimeoutSecs:      defaultHTTPTimeoutSeconds,
			UserAgent:        consts.DefaultUserAgent,
			MaxBodyBytes:     consts.MaxBodyBytes,
			MaxRedirects:     consts.DefaultMaxRedirects,
			RetryDelayMs:     int(consts.DefaultRetryDelay / time.Millisecond),
			BodyPreviewBytes: consts.BodyPreviewBytes,
		},
		Output: OutputConfig{
			Format: formatJSON,
		},
		Batch: BatchConfig{
			Concurrency: defaultBatchConcurrency,
			RateLimit:   defaultBatchRateLimit,
		},
	}
}

func intOverride(key string) *int {
	if !viper.IsSet(key) {
		return nil
	}
	val := viper.GetInt(key)
	if val <= 0 {
		return nil
	}
	return &val
}

func loadDefaultOverrides() defaultOverrides {
	overrides := defaultOverrides{
		TimeoutSecs:      intOverride("defaults.timeout_secs"),
		MaxBodyBytes:     intOverride("defaults.max_body_bytes"),
		MaxRedirects:     intOverride("defaults.max_redirects"),
		RetryDelayMs:     intOverride("defaults.retry_delay_ms"),
		BodyPreviewBytes: intOverride("defaults.body_preview_bytes"),
		Concurrency:      intOverride("batch.concurrency"),
		RateLimit:        intOverride("batch.rate_limit"),
	}

	if viper.IsSet("defaults.user_agent") {
		overrides.UserAgent = strings.TrimSpace(viper.GetString("defaults.user_agent"))
	}

	if viper.IsSet("batch.progress") {
		val := viper.GetBool("batch.progress")
		overrides.Progress = &val
	}

	if viper.IsSet("output.format") {
		overrides.Format = strings.ToLower(strings.TrimSpace(viper.GetString("output.format")))
	}

	return overrides
}

// applyConfigDefaults merges config file defaults into the runtime config when the user
// did not explicitly override the corresponding flag, then copies explicit flags in.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadDefaultOverrides()
	flags := cmd.Flags()

	if overrides.TimeoutSecs != nil {
		applyIntDefault(flags, "timeout", *overrides.TimeoutSecs, func(v int) {
			cliConfig.Defaults.TimeoutSecs = v
		})
	}
	if overrides.UserAgent != "" {
		setStringFlagIfUnset(flags, "user-agent", overrides.UserAgent)
	}
	if overrides.Format != "" {
		setStringFlagIfUnset(flags, "format", overrides.Format)
	}
	if overrides.Concurrency != nil {
		applyIntDefault(flags, "concurrency", *overrides.Concurrency, func(v int) {
			cliConfig.Batch.Concurrency = v
		})
	}
	if overrides.RateLimit != nil {
		applyIntDefault(flags, "rate", *overrides.RateLimit, func(v int) {
			cliConfig.Batch.RateLimit = v
		})
	}

	if overrides.Progress != nil {
		applyBoolDefault(flags, "progress", *overrides.Progress, func(v bool) {
			cliConfig.Batch.ProgressEnabled = v
		})
	}

	// Config-only keys.
	if overrides.MaxBodyBytes != nil {
		cliConfig.Defaults.MaxBodyBytes = *overrides.MaxBodyBytes
	}
	if overrides.MaxRedirects != nil {
		cliConfig.Defaults.MaxRedirects = *overrides.MaxRedirects
	}
	if overrides.RetryDelayMs != nil {
		cliConfig.Defaults.RetryDelayMs = *overrides.RetryDelayMs
	}
	if overrides.BodyPreviewBytes != nil {
		cliConfig.Defaults.BodyPreviewBytes = *overrides.BodyPreviewBytes
	}

	applyFlagValues(flags)
}

// applyFlagValues copies explicitly set flags into cliConfig.
func applyFlagValues(flags *pflag.FlagSet) {
	if flags == nil {
		return
	}
	if v, err := flags.GetInt("timeout"); err == nil && changed(flags, "timeout") {
		cliConfig.Defaults.TimeoutSecs = v
	}
	if v, err := flags.GetString("user-agent"); err == nil && strings.TrimSpace(v) != "" {
		cliConfig.Defaults.UserAgent = strings.TrimSpace(v)
	}
	if v, err := flags.GetString("format"); err == nil && v != "" {
		cliConfig.Output.Format = strings.ToLower(v)
	}
	if v, err := flags.GetInt("concurrency"); err == nil && changed(flags, "concurrency") {
		cliConfig.Batch.Concurrency = v
	}
	if v, err := flags.GetInt("rate"); err == nil && changed(flags, "rate") {
		cliConfig.Batch.RateLimit = v
	}
	if v, err := flags.GetBool("progress"); err == nil && changed(flags, "progress") {
		cliConfig.Batch.ProgressEnabled = v
	}
}

func changed(flags *pflag.FlagSet, name string) bool {
	flag := flags.Lookup(name)
	return flag != nil && flag.Changed
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}
