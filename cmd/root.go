package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/khanhnv2901/privscan/internal/observability"
	"github.com/khanhnv2901/privscan/internal/shared/constants"
)

var cfgFile string

// AppContext carries the state shared by every command after PersistentPreRunE.
type AppContext struct {
	Logger     *zap.SugaredLogger
	ResultsDir string
	Config     *CLIConfig
}

type appContextKey struct{}

var globalAppContext *AppContext

var rootCmd = &cobra.Command{
	Use:           "privscan",
	Short:         "Privacy and transport-security audit of recorded browsing sessions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

func persistentPreRunE(cmd *cobra.Command, args []string) error {
	// init config
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".privscan")
		viper.SetConfigType("yaml")
	}
	_ = viper.ReadInConfig()

	applyConfigDefaults(cmd)

	resultsDir := cliConfig.Defaults.ResultsDir
	if resultsDir == "" {
		resultsDir = defaultResultsDir
	}
	// Make final resultsDir absolute (for clarity in logs)
	if abs, err := filepath.Abs(resultsDir); err == nil {
		resultsDir = abs
	}
	if err := os.MkdirAll(resultsDir, constants.DefaultDirPerm); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	logger := observability.NewLogger(cliConfig.Log.loggerConfig())
	logger.Debugw("configuration loaded", "results_dir", resultsDir, "config_file", viper.ConfigFileUsed())

	storeAppContext(cmd, &AppContext{
		Logger:     logger,
		ResultsDir: resultsDir,
		Config:     cliConfig,
	})
	return nil
}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if ctx := cmd.Context(); ctx != nil {
		if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	return globalAppContext
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		os.Exit(exitCode(err))
	}
}

func init() {
	// assigned here rather than in the rootCmd literal to avoid an initialization cycle
	rootCmd.PersistentPreRunE = persistentPreRunE

	// config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.privscan.yaml)")
	rootCmd.PersistentFlags().StringVar(&cliConfig.Defaults.ResultsDir, "results-dir", defaultResultsDir, "directory result documents are written to")
	rootCmd.PersistentFlags().StringVar(&cliConfig.Log.Level, "log-level", cliConfig.Log.Level, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cliConfig.Log.Format, "log-format", cliConfig.Log.Format, "console log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&cliConfig.Log.File, "log-file", "", "also write JSON logs to this file (rotated)")

	// add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(versionCmd)
}
