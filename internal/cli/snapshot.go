package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sumerian-dev/sumerian/pkg/color"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect pre-edit snapshots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			snaps, err := svc.Session().Snapshots.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(out, snaps)
			}
			if len(snaps) == 0 {
				fmt.Fprintln(out, "No snapshots.")
				return nil
			}
			for _, s := range snaps {
				fmt.Fprintf(out, "%s  %s  %s\n",
					color.ID(s.ID),
					color.Dim(time.UnixMilli(s.Timestamp).UTC().Format(time.RFC3339)),
					s.SnapshotPath)
			}
			return nil
		},
	})
	return cmd
}
