package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sumerian-dev/sumerian/pkg/color"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
)

type checkResult struct {
	Path    string `json:"path"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>...",
		Short: "Test paths against the project boundary",
		Long: `Report whether each path lies inside the project root. Symlinks are
resolved. Exits non-zero if any path is outside. Nothing is audited.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			guard := svc.Session().Guard

			results := make([]checkResult, 0, len(args))
			denied := 0
			for _, arg := range args {
				p, err := absArg(arg)
				if err != nil {
					return err
				}
				d := guard.Check(p)
				results = append(results, checkResult{Path: p, Allowed: d.Allowed, Reason: d.Reason})
				if !d.Allowed {
					denied++
				}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if err := outputJSON(out, results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					if r.Allowed {
						fmt.Fprintf(out, "%s  %s\n", color.Success("allow"), r.Path)
					} else {
						fmt.Fprintf(out, "%s   %s\n", color.Error("deny"), r.Reason)
					}
				}
			}
			if denied > 0 {
				return errclass.ErrAccessDenied.WithMessagef("%d of %d paths outside %s", denied, len(args), guard.Root())
			}
			return nil
		},
	}
}
