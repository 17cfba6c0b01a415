// Package project locates and initializes sumerian projects: directories
// holding a .sumerian/ state directory.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sumerian-dev/sumerian/pkg/config"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/fsutil"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

// Init creates .sumerian/ under root with a default config file. An
// existing config is left untouched.
func Init(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errclass.NewIOError("init", abs, err)
	}
	if !info.IsDir() {
		return "", errclass.NewIOError("init", abs, fmt.Errorf("not a directory"))
	}

	if err := os.MkdirAll(filepath.Join(abs, model.DirName), 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", model.DirName, err)
	}
	if _, err := os.Stat(config.Path(abs)); os.IsNotExist(err) {
		if err := config.Save(abs, config.Default()); err != nil {
			return "", err
		}
	}
	if err := fsutil.FsyncDir(abs); err != nil {
		return "", fmt.Errorf("fsync project root: %w", err)
	}
	return abs, nil
}

// Discover walks up from cwd to the nearest directory containing .sumerian/.
// The home directory's .sumerian (which holds the audit log) does not mark
// a project.
func Discover(cwd string) (string, error) {
	path, err := filepath.Abs(cwd)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", cwd, err)
	}
	home, _ := os.UserHomeDir()

	for {
		if path != home {
			if info, err := os.Stat(filepath.Join(path, model.DirName)); err == nil && info.IsDir() {
				return path, nil
			}
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", errclass.ErrNoProject.WithMessagef("no %s directory in %s or its parents", model.DirName, cwd)
		}
		path = parent
	}
}
