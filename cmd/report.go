package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/privscan/internal/application"
	"github.com/khanhnv2901/privscan/internal/compliance"
	"github.com/khanhnv2901/privscan/internal/domain/result"
)

var (
	reportFolder    string
	reportFramework string
	reportFormat    = "text"
	reportAll       bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print criterion verdicts from saved result documents",
	Long: `Read the result documents in the results directory and print the pass/fail
verdict of every criterion. By default only the newest document per folder is
shown; use --all to list every document.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		if reportFormat != "text" && reportFormat != "json" {
			return fmt.Errorf("unsupported format %q (use text or json)", reportFormat)
		}

		var codes map[string]bool
		if reportFramework != "" {
			if _, ok := compliance.GetFramework(reportFramework); !ok {
				return fmt.Errorf("unknown framework %q (supported: %s)", reportFramework, strings.Join(frameworkIDs(), ", "))
			}
			codes = map[string]bool{}
			for _, c := range compliance.CriteriaForFramework(reportFramework) {
				codes[c.Code] = true
			}
		}

		container, err := application.NewContainer(cmd.Context(), application.Options{
			ResultsDir: appCtx.ResultsDir,
			NoProbe:    true,
			NoAudit:    true,
		}, appCtx.Logger)
		if err != nil {
			return err
		}
		defer container.Close()

		results, err := container.ScanService.Results(cmd.Context(), reportFolder)
		if err != nil {
			return fmt.Errorf("failed to load results: %w", err)
		}
		if !reportAll {
			results = latestPerFolder(results)
		}
		if len(results) == 0 {
			return &NoResultsError{Folder: reportFolder, Dir: appCtx.ResultsDir}
		}

		entries := make([]reportEntry, 0, len(results))
		for _, res := range results {
			entries = append(entries, newReportEntry(res, codes))
		}

		if reportFormat == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		printReport(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFolder, "folder", "", "only show documents for this session folder")
	reportCmd.Flags().StringVar(&reportFramework, "framework", "", "only show criteria citing this framework (gdpr, eprivacy, tdddg, bsi)")
	reportCmd.Flags().StringVar(&reportFormat, "format", reportFormat, "output format (text, json)")
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "show every document instead of the newest per folder")
}

type reportEntry struct {
	Folder        string          `json:"folder"`
	ScanID        string          `json:"scan_id"`
	Timestamp     time.Time       `json:"timestamp"`
	TargetURL     string          `json:"target_url"`
	Analyzable    bool            `json:"analyzable"`
	Diagnostic    string          `json:"diagnostic,omitempty"`
	OverallPassed bool            `json:"overall_passed"`
	Criteria      []reportVerdict `json:"criteria"`
}

type reportVerdict struct {
	Code        string              `json:"code"`
	Name        string              `json:"name"`
	Passed      bool                `json:"passed"`
	Explanation string              `json:"explanation"`
	References  map[string][]string `json:"references,omitempty"`
}

func newReportEntry(res *result.SessionResult, codes map[string]bool) reportEntry {
	verdicts := res.Criteria()
	if len(verdicts) == 0 {
		// Documents written without criteria are evaluated on read.
		verdicts = compliance.Evaluate(res)
	}

	entry := reportEntry{
		Folder:        res.Folder(),
		ScanID:        res.ScanID(),
		Timestamp:     res.Timestamp(),
		TargetURL:     res.TargetURL(),
		Analyzable:    res.Analyzable(),
		Diagnostic:    res.Diagnostic(),
		OverallPassed: res.OverallPassed(),
		Criteria:      make([]reportVerdict, 0, len(verdicts)),
	}
	for _, v := range verdicts {
		if codes != nil && !codes[v.Code] {
			continue
		}
		rv := reportVerdict{Code: v.Code, Name: v.Name, Passed: v.Passed, Explanation: v.Explanation}
		if c, ok := compliance.GetCriterion(v.Code); ok {
			rv.References = c.References
		}
		entry.Criteria = append(entry.Criteria, rv)
	}
	return entry
}

// latestPerFolder keeps the first (newest) document of each folder.
func latestPerFolder(results []*result.SessionResult) []*result.SessionResult {
	seen := make(map[string]bool, len(results))
	out := make([]*result.SessionResult, 0, len(results))
	for _, res := range results {
		if seen[res.Folder()] {
			continue
		}
		seen[res.Folder()] = true
		out = append(out, res)
	}
	return out
}

func frameworkIDs() []string {
	var ids []string
	for _, f := range compliance.SupportedFrameworks() {
		ids = append(ids, f.ID)
	}
	sort.Strings(ids)
	return ids
}

func printReport(w io.Writer, entries []reportEntry) {
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		status := passLabel(e.OverallPassed)
		if !e.Analyzable {
			status = formatStatusWithColor("N/A")
		}
		fmt.Fprintf(w, "%s %s  %s  %s\n", colorInfo(e.Folder), status, e.TargetURL, e.Timestamp.Format(time.RFC3339))
		if e.Diagnostic != "" {
			fmt.Fprintf(w, "  %s\n", colorWarn(e.Diagnostic))
		}

		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  CODE\tSTATUS\tCRITERION\tEXPLANATION")
		for _, v := range e.Criteria {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", v.Code, passLabel(v.Passed), v.Name, v.Explanation)
		}
		if err := tw.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush report table: %v\n", err)
		}
	}
}
