// Package cli implements the sumerian maintenance command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sumerian-dev/sumerian/pkg/color"
	"github.com/sumerian-dev/sumerian/pkg/config"
	"github.com/sumerian-dev/sumerian/pkg/logging"
)

var (
	jsonOutput bool
	rootFlag   string
	logLevel   string
	noColor    bool
)

func newRootCmd() *cobra.Command {
	jsonOutput, rootFlag, logLevel, noColor = false, "", "", false

	cmd := &cobra.Command{
		Use:   "sumerian",
		Short: "Sumerian - file safety for agent-driven edits",
		Long: `Sumerian guards, audits and reverts file changes made by an agent inside
a project. This command inspects and maintains that state: the project
boundary, the audit trail, snapshots and checkpoints.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.PersistentFlags().StringVar(&rootFlag, "root", "", "project root (default: nearest directory with .sumerian/)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newInitCmd(),
		newCheckCmd(),
		newLsCmd(),
		newAuditCmd(),
		newSnapshotCmd(),
		newCheckpointCmd(),
		newWatchCmd(),
		newConfigCmd(),
	)
	return cmd
}

// setupLogging applies --log-level, falling back to the project config.
func setupLogging(cmd *cobra.Command, args []string) error {
	color.Init(noColor)

	level := logLevel
	format := ""
	if root, err := resolveRoot(); err == nil {
		cfg := config.Load(root)
		if level == "" {
			level = cfg.Logging.Level
		}
		format = cfg.Logging.Format
	}
	logger := logging.Global()
	logger.SetLevel(logging.ParseLevel(level))
	if format != "" {
		logger.SetFormat(logging.Format(format))
	}
	logger.SetOutput(cmd.ErrOrStderr())
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmtErr("%v", err)
		os.Exit(1)
	}
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fmtErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, color.Error("sumerian:")+" "+format+"\n", args...)
}
