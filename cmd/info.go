package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/privscan/internal/compliance"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration, data locations and evaluated criteria",
	Long: `Display privscan configuration information including:
  - Data and results directory locations
  - Configuration file and cookie database
  - The criteria every scan is evaluated against`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		dataDir, err := getDataDir()
		if err != nil {
			return fmt.Errorf("failed to get data directory: %w", err)
		}

		resultsStatus := "✗ (not created yet)"
		if _, err := os.Stat(appCtx.ResultsDir); err == nil {
			docs, _ := filepath.Glob(filepath.Join(appCtx.ResultsDir, "result_*.json"))
			resultsStatus = fmt.Sprintf("✓ (%d document(s))", len(docs))
		}

		configPath := configFilePath()
		configStatus := "✗ (using defaults)"
		if _, err := os.Stat(configPath); err == nil {
			configStatus = "✓ (exists)"
		}

		cookieDB := resolveCookieDBPath(appCtx.Config.Scan.CookieDB)
		cookieStatus := "✗ (cookie findings are not annotated)"
		if cookieDB != "" {
			cookieStatus = cookieDB
		}

		logFile := appCtx.Config.Log.File
		if logFile == "" {
			logFile = "-"
		}

		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "privscan System Information")
		fmt.Fprintln(out, "===========================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:          %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Version:           %s\n", Version)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Data Locations:")
		fmt.Fprintf(out, "  Data Directory:     %s\n", dataDir)
		fmt.Fprintf(out, "  Results Directory:  %s %s\n", appCtx.ResultsDir, resultsStatus)
		fmt.Fprintf(out, "  Cookie Database:    %s\n", cookieStatus)
		fmt.Fprintf(out, "  Log File:           %s\n", logFile)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Configuration File:   %s %s\n", configPath, configStatus)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Criteria:")
		for _, c := range compliance.Criteria() {
			fmt.Fprintf(out, "  %-12s %s\n", c.Code, c.Name)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "To use the cookie knowledge base, place %s in the data directory\n", cookieDBFileName)
		fmt.Fprintln(out, "or set cookie_db in ~/.privscan.yaml.")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
