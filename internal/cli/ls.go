package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sumerian-dev/sumerian/pkg/color"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [dir]",
		Short: "List a directory the way the agent sees it",
		Long: `List dir (default: project root) with dotfiles hidden except the
configured allowlist, directories first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			dir := svc.ProjectRoot()
			if len(args) > 0 {
				if dir, err = absArg(args[0]); err != nil {
					return err
				}
			}

			entries, err := svc.List(dir, model.ActorUser)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(out, entries)
			}
			for _, e := range entries {
				if e.IsDir {
					fmt.Fprintln(out, color.Dir(e.Name+"/"))
				} else {
					fmt.Fprintln(out, e.Name)
				}
			}
			return nil
		},
	}
}
