package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sumerian-dev/sumerian/internal/audit"
	"github.com/sumerian-dev/sumerian/pkg/color"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit trail",
		Long: `The audit trail is one JSON object per line in ~/.sumerian/audit.log,
shared by all projects. Set SUMERIAN_AUDIT_LOG to use another file.`,
	}
	cmd.AddCommand(newAuditPathCmd(), newAuditVerifyCmd())
	return cmd
}

func newAuditPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the audit log location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := audit.DefaultPath()
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]string{"path": p})
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newAuditVerifyCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the audit log hash chain",
		Long: `Check that every entry's recordHash matches its content and that each
prevHash links to the entry before it. Exits non-zero on the first break.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				p, err := audit.DefaultPath()
				if err != nil {
					return err
				}
				file = p
			}
			report, verr := audit.Verify(file)
			if report == nil {
				return verr
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if err := outputJSON(out, report); err != nil {
					return err
				}
				return verr
			}
			if report.Valid {
				fmt.Fprintf(out, "%s %d entries in %s\n", color.Success("ok"), report.Entries, report.Path)
			} else {
				fmt.Fprintf(out, "%s line %d: %s\n", color.Error("broken"), report.BrokenLine, report.Error)
			}
			return verr
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "audit log to verify (default: the shared log)")
	return cmd
}
