package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sumerian-dev/sumerian/internal/project"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Mark a directory as a sumerian project",
		Long: `Create .sumerian/ with a default config.yaml in dir (default: the
current directory). An existing config is kept.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			root, err := project.Init(dir)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]string{"root": root})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized sumerian project in %s\n", root)
			return nil
		},
	}
}
