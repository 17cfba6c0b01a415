package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sumerian-dev/sumerian/pkg/color"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

func newCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Create, list, roll back and delete checkpoints",
		Long: `Checkpoints are labeled multi-file copies kept under
.sumerian/checkpoints/. At most 20 are retained; the oldest is evicted.`,
	}
	cmd.AddCommand(
		newCheckpointCreateCmd(),
		newCheckpointListCmd(),
		newCheckpointRollbackCmd(),
		newCheckpointDeleteCmd(),
	)
	return cmd
}

func newCheckpointCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <label> <file>...",
		Short: "Capture files under a label",
		Long: `Capture the current content of each file. Unreadable files are skipped
and reported; the checkpoint keeps what could be read.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			files := make([]string, 0, len(args)-1)
			for _, a := range args[1:] {
				p, err := absArg(a)
				if err != nil {
					return err
				}
				files = append(files, p)
			}

			res, err := svc.CreateCheckpoint(args[0], files, model.ActorUser)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(out, res)
			}
			fmt.Fprintf(out, "Created checkpoint %s (%d files)\n", color.ID(res.Checkpoint.ID), len(res.Checkpoint.Files))
			for _, s := range res.Skipped {
				fmt.Fprintf(out, "  %s %s: %s\n", color.Warning("skipped"), s.Path, s.Reason)
			}
			for _, id := range res.Evicted {
				fmt.Fprintf(out, "  %s %s\n", color.Dim("evicted"), id)
			}
			return nil
		},
	}
}

func newCheckpointListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List checkpoints, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			list, err := svc.ListCheckpoints()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No checkpoints.")
				return nil
			}
			for _, cp := range list {
				fmt.Fprintf(out, "%s  %s  %-30s %d files\n",
					color.ID(cp.ID),
					color.Dim(time.UnixMilli(cp.Timestamp).UTC().Format(time.RFC3339)),
					cp.Label,
					len(cp.Files))
			}
			return nil
		},
	}
}

func newCheckpointRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <id>",
		Short: "Restore the files of a checkpoint",
		Long: `Write every file recorded in the checkpoint back to its original path.
Files that cannot be restored are reported; the rest are still restored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			res, err := svc.RollbackCheckpoint(args[0], model.ActorUser)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(out, res)
			}
			fmt.Fprintf(out, "Restored %d files from %s\n", len(res.Restored), color.ID(res.ID))
			for _, s := range res.Skipped {
				fmt.Fprintf(out, "  %s %s: %s\n", color.Warning("skipped"), s.Path, s.Reason)
			}
			return nil
		},
	}
}

func newCheckpointDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			if err := svc.DeleteCheckpoint(args[0], model.ActorUser); err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted checkpoint %s\n", args[0])
			return nil
		},
	}
}
