package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sumerian-dev/sumerian/pkg/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show project configuration",
		Long: `Configuration lives in .sumerian/config.yaml. Missing or invalid files
fall back to defaults.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot()
			if err != nil {
				return err
			}
			cfg := config.Load(root)

			out := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(out, cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Fprintf(out, "# %s\n%s", config.Path(root), data)
			return nil
		},
	})
	return cmd
}
