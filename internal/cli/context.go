package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sumerian-dev/sumerian/internal/audit"
	"github.com/sumerian-dev/sumerian/internal/fileops"
	"github.com/sumerian-dev/sumerian/internal/project"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
)

// resolveRoot returns --root, or the project enclosing the working directory.
func resolveRoot() (string, error) {
	if rootFlag != "" {
		return rootFlag, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot get current directory: %w", err)
	}
	return project.Discover(cwd)
}

// openService returns a facade bound to the resolved project root that
// records to the shared audit log. Everything the CLI does is actor=user.
func openService() (*fileops.Service, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, fmt.Errorf("%w (run 'sumerian init' or pass --root)", err)
	}
	auditPath, err := audit.DefaultPath()
	if err != nil {
		return nil, err
	}

	reg := metrics.Default()
	svc := fileops.New(fileops.Options{
		Recorder: audit.NewTrail(auditPath, reg),
		Metrics:  reg,
	})
	if err := svc.SetProjectRoot(root); err != nil {
		return nil, err
	}
	return svc, nil
}

// absArg makes a command-line path absolute against the working directory.
func absArg(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return abs, nil
}
