package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	auditapp "github.com/khanhnv2901/privscan/internal/application/audit"
	"github.com/khanhnv2901/privscan/internal/domain/audit"
	jsonrepo "github.com/khanhnv2901/privscan/internal/infrastructure/persistence/json"
	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and verify scan audit trails",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded scans, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newAuditService(cmd)
		if err != nil {
			return err
		}

		ids, err := svc.ListScans(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, colorWarn("no audit trails recorded"))
			return nil
		}

		tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCAN ID\tFOLDERS\tPASSED\tFAILED\tN/A\tERRORS\tSEALED")
		for _, id := range ids {
			trail, err := svc.GetAuditTrail(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t%s\n", id, colorError("unreadable"))
				continue
			}
			counts := trail.Counts()
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
				id, len(trail.Entries()),
				counts[audit.StatusPassed], counts[audit.StatusFailed],
				counts[audit.StatusUnanalyzable], counts[audit.StatusError],
				yesNo(trail.IsSealed()))
		}
		return tw.Flush()
	},
}

var auditShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Print every folder entry of a scan's audit trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newAuditService(cmd)
		if err != nil {
			return err
		}

		trail, err := svc.GetAuditTrail(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIMESTAMP\tFOLDER\tSTATUS\tISSUES\tDURATION\tDETAIL")
		for _, e := range trail.Entries() {
			detail := e.Document
			if e.Error != "" {
				detail = e.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.3fs\t%s\n",
				e.Timestamp.Format("2006-01-02 15:04:05"), e.Folder,
				formatStatusWithColor(e.Status), e.Issues, e.DurationSeconds, detail)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if trail.IsSealed() {
			fmt.Fprintf(out, "Sealed: %s %s\n", trail.HashAlgorithm(), trail.Hash())
		}
		return nil
	},
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <scan-id>",
	Short: "Recompute a sealed audit trail's digest and compare it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newAuditService(cmd)
		if err != nil {
			return err
		}

		ok, err := svc.VerifyIntegrity(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, sharedErrors.ErrAuditTrailNotSealed) {
				return fmt.Errorf("audit trail %s was never sealed", args[0])
			}
			return err
		}
		if !ok {
			return fmt.Errorf("audit trail %s failed integrity verification", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s audit trail %s is intact\n", colorSuccess("✓"), args[0])
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditVerifyCmd)
}

func newAuditService(cmd *cobra.Command) (*auditapp.Service, error) {
	appCtx := getAppContext(cmd)
	repo, err := jsonrepo.NewAuditRepository(appCtx.ResultsDir)
	if err != nil {
		return nil, err
	}
	return auditapp.NewService(repo), nil
}

func yesNo(v bool) string {
	if v {
		return colorSuccess("yes")
	}
	return colorWarn("no")
}
