package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/privscan/internal/checker"
	"github.com/khanhnv2901/privscan/internal/observability"
)

const (
	defaultTimeoutSeconds = 10
	defaultResultsDir     = "./results"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Defaults DefaultValues
	Scan     ScanRuntimeConfig
	Storage  StorageConfig
	Log      LogConfig
}

// DefaultValues represent operator-level defaults, typically derived from config.
type DefaultValues struct {
	TimeoutSecs int
	ResultsDir  string
}

// ScanRuntimeConfig consolidates flag-driven settings for the scan command.
type ScanRuntimeConfig struct {
	Concurrency     int
	RateLimit       int
	TimeoutSecs     int
	PixelThreshold  float64
	CookieDB        string
	NoProbe         bool
	NoAudit         bool
	ProgressEnabled bool
}

// StorageConfig holds the browser storage allow-lists.
type StorageConfig struct {
	LocalAllow   []string
	SessionAllow []string
}

// LogConfig selects log level, console format and optional log file.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

func (l LogConfig) loggerConfig() observability.Config {
	cfg := observability.DefaultConfig()
	if l.Level != "" {
		cfg.Level = l.Level
	}
	if l.Format != "" {
		cfg.Format = l.Format
	}
	cfg.File = l.File
	return cfg
}

// rules returns the classification rules for this run.
func (s ScanRuntimeConfig) rules() (checker.Rules, error) {
	if s.PixelThreshold <= 0 {
		return checker.Rules{}, fmt.Errorf("--pixel-threshold must be positive, got %v", s.PixelThreshold)
	}
	rules := checker.DefaultRules()
	rules.Tracking = rules.Tracking.WithPixelThreshold(s.PixelThreshold)
	return rules, nil
}

// applyTimeouts sets the per-request and legacy handshake timeouts on p.
func (s ScanRuntimeConfig) applyTimeouts(p *checker.EncryptionProber) {
	if p == nil || s.TimeoutSecs <= 0 {
		return
	}
	p.Timeout = time.Duration(s.TimeoutSecs) * time.Second
	p.HandshakeTimeout = p.Timeout
}

type defaultOverrides struct {
	TimeoutSecs    *int
	ResultsDir     string
	Concurrency    *int
	RateLimit      *int
	PixelThreshold *float64
	CookieDB       string
	LocalAllow     []string
	SessionAllow   []string
	LogLevel       string
	LogFormat      string
	LogFile        string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Defaults: DefaultValues{
			TimeoutSecs: defaultTimeoutSeconds,
			ResultsDir:  defaultResultsDir,
		},
		Scan: ScanRuntimeConfig{
			Concurrency:    1,
			RateLimit:      0,
			TimeoutSecs:    defaultTimeoutSeconds,
			PixelThreshold: checker.DefaultPixelThreshold,
		},
		Storage: StorageConfig{
			LocalAllow:   []string{},
			SessionAllow: []string{},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func loadDefaultOverrides() defaultOverrides {
	overrides := defaultOverrides{}

	if viper.IsSet("defaults.timeout_secs") {
		val := viper.GetInt("defaults.timeout_secs")
		overrides.TimeoutSecs = &val
	}

	overrides.ResultsDir = viper.GetString("results_dir")

	if viper.IsSet("scan.concurrency") {
		val := viper.GetInt("scan.concurrency")
		overrides.Concurrency = &val
	}

	if viper.IsSet("scan.rate_limit") {
		val := viper.GetInt("scan.rate_limit")
		overrides.RateLimit = &val
	}

	if viper.IsSet("scan.pixel_threshold") {
		val := viper.GetFloat64("scan.pixel_threshold")
		overrides.PixelThreshold = &val
	}

	overrides.CookieDB = viper.GetString("cookie_db")

	if viper.IsSet("storage.local_allow") {
		overrides.LocalAllow = viper.GetStringSlice("storage.local_allow")
	}
	if viper.IsSet("storage.session_allow") {
		overrides.SessionAllow = viper.GetStringSlice("storage.session_allow")
	}

	overrides.LogLevel = viper.GetString("log.level")
	overrides.LogFormat = viper.GetString("log.format")
	overrides.LogFile = viper.GetString("log.file")

	return overrides
}

// applyConfigDefaults merges config file defaults into the runtime config when the user
// did not explicitly override the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadDefaultOverrides()
	rootFlags := rootCmd.PersistentFlags()
	scanFlags := scanCmd.Flags()

	if overrides.TimeoutSecs != nil {
		cliConfig.Defaults.TimeoutSecs = *overrides.TimeoutSecs
		applyIntDefault(scanFlags, "timeout", *overrides.TimeoutSecs, func(v int) {
			cliConfig.Scan.TimeoutSecs = v
		})
		applyIntDefault(probeCmd.Flags(), "timeout", *overrides.TimeoutSecs, func(v int) {
			probeTimeoutSecs = v
		})
	}

	if overrides.ResultsDir != "" {
		applyStringDefault(rootFlags, "results-dir", overrides.ResultsDir, func(v string) {
			cliConfig.Defaults.ResultsDir = v
		})
	}

	if overrides.Concurrency != nil {
		applyIntDefault(scanFlags, "concurrency", *overrides.Concurrency, func(v int) {
			cliConfig.Scan.Concurrency = v
		})
	}

	if overrides.RateLimit != nil {
		applyIntDefault(scanFlags, "rate-limit", *overrides.RateLimit, func(v int) {
			cliConfig.Scan.RateLimit = v
		})
	}

	if overrides.PixelThreshold != nil {
		applyFloatDefault(scanFlags, "pixel-threshold", *overrides.PixelThreshold, func(v float64) {
			cliConfig.Scan.PixelThreshold = v
		})
	}

	if overrides.CookieDB != "" {
		applyStringDefault(scanFlags, "cookie-db", overrides.CookieDB, func(v string) {
			cliConfig.Scan.CookieDB = v
		})
	}

	if overrides.LocalAllow != nil {
		applyStringSliceDefault(scanFlags, "local-allow", overrides.LocalAllow, func(v []string) {
			cliConfig.Storage.LocalAllow = v
		})
	}

	if overrides.SessionAllow != nil {
		applyStringSliceDefault(scanFlags, "session-allow", overrides.SessionAllow, func(v []string) {
			cliConfig.Storage.SessionAllow = v
		})
	}

	if overrides.LogLevel != "" {
		applyStringDefault(rootFlags, "log-level", overrides.LogLevel, func(v string) {
			cliConfig.Log.Level = v
		})
	}
	if overrides.LogFormat != "" {
		applyStringDefault(rootFlags, "log-format", overrides.LogFormat, func(v string) {
			cliConfig.Log.Format = v
		})
	}
	if overrides.LogFile != "" {
		applyStringDefault(rootFlags, "log-file", overrides.LogFile, func(v string) {
			cliConfig.Log.File = v
		})
	}
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

func applyFloatDefault(flags *pflag.FlagSet, name string, value float64, setter func(float64)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringSliceDefault(flags *pflag.FlagSet, name string, value []string, setter func([]string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(append([]string(nil), value...))
}
