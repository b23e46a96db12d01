package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/privscan/internal/application"
	scanapp "github.com/khanhnv2901/privscan/internal/application/scan"
	"github.com/khanhnv2901/privscan/internal/infrastructure/archive"
	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
)

var scanCmd = &cobra.Command{
	Use:   "scan <archive.zip>",
	Short: "Analyze every session folder in a capture archive",
	Long: `Extract a capture archive, run the cookie, tracking, storage and encryption
checks for every folder that contains a browser_data_log.jsonl, and write one
result document per folder to the results directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	flags := scanCmd.Flags()
	flags.IntVar(&cliConfig.Scan.Concurrency, "concurrency", cliConfig.Scan.Concurrency, "folders analyzed in parallel")
	flags.IntVar(&cliConfig.Scan.RateLimit, "rate-limit", cliConfig.Scan.RateLimit, "folder starts per second (0 = unlimited)")
	flags.IntVar(&cliConfig.Scan.TimeoutSecs, "timeout", cliConfig.Scan.TimeoutSecs, "timeout in seconds for each live probe request")
	flags.Float64Var(&cliConfig.Scan.PixelThreshold, "pixel-threshold", cliConfig.Scan.PixelThreshold, "max width/height (inclusive) of a tracking pixel")
	flags.StringVar(&cliConfig.Scan.CookieDB, "cookie-db", "", "Open Cookie Database JSON used to annotate cookie findings")
	flags.BoolVar(&cliConfig.Scan.NoProbe, "no-probe", false, "skip live HTTPS/TLS probing")
	flags.BoolVar(&cliConfig.Scan.NoAudit, "no-audit", false, "do not write a sealed audit trail for this scan")
	flags.BoolVar(&cliConfig.Scan.ProgressEnabled, "progress", false, "show folder progress")
	flags.StringSliceVar(&cliConfig.Storage.LocalAllow, "local-allow", nil, "allowed local storage key or key prefix (repeatable)")
	flags.StringSliceVar(&cliConfig.Storage.SessionAllow, "session-allow", nil, "allowed session storage key or key prefix (repeatable)")
}

func runScan(cmd *cobra.Command, args []string) error {
	appCtx := getAppContext(cmd)
	archivePath := args[0]
	cfg := appCtx.Config

	rules, err := cfg.Scan.rules()
	if err != nil {
		return err
	}

	total, err := countSessions(archivePath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	var progress *progressPrinter
	if cfg.Scan.ProgressEnabled && total > 0 {
		progress = newProgressPrinter(out, total, "scan")
		progress.Start()
	}

	scanCfg := scanapp.Config{
		Rules:        rules,
		LocalAllow:   cfg.Storage.LocalAllow,
		SessionAllow: cfg.Storage.SessionAllow,
		Concurrency:  cfg.Scan.Concurrency,
		RateLimit:    cfg.Scan.RateLimit,
	}
	if progress != nil {
		scanCfg.OnFolder = func(fr scanapp.FolderReport) {
			progress.Increment(fr.Err == nil, fr.Duration.Seconds())
		}
	}

	container, err := application.NewContainer(ctx, application.Options{
		ResultsDir:   appCtx.ResultsDir,
		CookieDBPath: resolveCookieDBPath(cfg.Scan.CookieDB),
		NoProbe:      cfg.Scan.NoProbe,
		NoAudit:      cfg.Scan.NoAudit,
		Scan:         scanCfg,
	}, appCtx.Logger)
	if err != nil {
		return err
	}
	defer container.Close()

	cfg.Scan.applyTimeouts(container.Prober)

	report, err := container.ScanService.Run(ctx, archivePath)
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		if isArchiveError(err) {
			return &ArchiveError{Path: archivePath, Err: err}
		}
		if report != nil {
			printScanSummary(out, report)
		}
		return fmt.Errorf("scan interrupted: %w", err)
	}

	printScanSummary(out, report)
	return nil
}

// countSessions opens the archive once up front so a bad path fails before any
// work starts and the progress printer knows the folder count.
func countSessions(archivePath string) (int, error) {
	a, err := archive.Open(archivePath)
	if err != nil {
		return 0, &ArchiveError{Path: archivePath, Err: err}
	}
	defer a.Close()
	return len(a.Sessions()), nil
}

func isArchiveError(err error) bool {
	return errors.Is(err, sharedErrors.ErrArchiveNotFound) || errors.Is(err, sharedErrors.ErrArchiveInvalid)
}

func printScanSummary(w io.Writer, report *scanapp.Report) {
	fmt.Fprintf(w, "%s %s\n", colorInfo("Scan"), report.ScanID)
	if len(report.Folders) == 0 {
		msg := report.Diagnostic
		if msg == "" {
			msg = "no session folders found"
		}
		fmt.Fprintln(w, colorWarn(msg))
		return
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FOLDER\tSTATUS\tPIXELS\tCOOKIES\tSTORAGE\tCROSS-PAGE\tDOCUMENT")
	passed := 0
	for _, f := range report.Folders {
		if f.Err != nil || f.Result == nil {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t%v\n", f.Folder, formatStatusWithColor("error"), f.Err)
			continue
		}
		res := f.Result
		if !res.Analyzable() {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t%s\n", f.Folder, formatStatusWithColor("N/A"), f.Path)
			continue
		}
		if res.OverallPassed() {
			passed++
		}
		storage := len(res.LocalStorageIssues()) + len(res.SessionStorageIssues())
		cross := "no"
		if res.CrossPageTrackingFound() {
			cross = colorWarn("yes")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			f.Folder, passLabel(res.OverallPassed()),
			len(res.TrackingPixels()), len(res.UnnecessaryCookies()), storage, cross, f.Path)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush summary table: %v\n", err)
	}

	fmt.Fprintf(w, "Folders: %d | Passed: %s | Failed: %s | Errors: %s\n",
		len(report.Folders),
		colorSuccess(fmt.Sprintf("%d", passed)),
		colorError(fmt.Sprintf("%d", len(report.Folders)-passed-report.Failed()-unanalyzable(report))),
		colorWarn(fmt.Sprintf("%d", report.Failed())),
	)
	if report.AuditHash != "" {
		fmt.Fprintf(w, "Audit trail sealed (sha256 %s)\n", report.AuditHash)
	}
}

func unanalyzable(report *scanapp.Report) int {
	n := 0
	for _, f := range report.Folders {
		if f.Err == nil && f.Result != nil && !f.Result.Analyzable() {
			n++
		}
	}
	return n
}
