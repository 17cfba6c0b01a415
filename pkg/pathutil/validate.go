// Package pathutil provides the project boundary guard and label validation.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

const maxLabelLen = 200

// Guard decides whether candidate paths fall inside a project root.
// Decisions are recomputed on every call.
type Guard struct {
	root string
}

// NewGuard returns a guard for root. Relative roots are made absolute
// against the working directory.
func NewGuard(root string) (*Guard, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errclass.ErrNoProject.WithMessage("project root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	return &Guard{root: filepath.Clean(abs)}, nil
}

// Root returns the lexical absolute project root.
func (g *Guard) Root() string {
	return g.root
}

// Abs returns the lexical absolute form of candidate. Relative candidates
// are taken relative to the project root.
func (g *Guard) Abs(candidate string) string {
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(g.root, candidate)
	}
	return filepath.Clean(candidate)
}

// Check resolves candidate and the root, following symlinks on the closest
// existing ancestor, and allows the candidate only if it lies on or below
// the root on a path-segment boundary.
func (g *Guard) Check(candidate string) model.AccessDecision {
	target := g.Abs(candidate)
	resolvedRoot := Canonicalize(g.root)
	resolvedTarget := Canonicalize(target)

	if IsWithin(resolvedRoot, resolvedTarget) {
		return model.AccessDecision{Allowed: true}
	}
	return model.AccessDecision{
		Allowed: false,
		Reason:  fmt.Sprintf("path %s is outside project root %s", candidate, g.root),
	}
}

// IsWithin reports whether target equals root or is a descendant of it.
// Both paths must already be absolute and clean.
func IsWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

// Canonicalize resolves symlinks in path. When path does not exist the
// closest existing ancestor is resolved and the remaining components are
// appended lexically.
func Canonicalize(path string) string {
	path = filepath.Clean(path)
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved
	}
	if os.IsNotExist(err) {
		return resolveClosestAncestor(path)
	}
	return path
}

// resolveClosestAncestor walks up from path to find the closest existing
// ancestor, resolves it, then appends the remaining components.
func resolveClosestAncestor(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == path {
		return path
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = resolveClosestAncestor(dir)
		} else {
			return path
		}
	}
	return filepath.Join(resolved, base)
}

// ValidateLabel checks a checkpoint label and returns its NFC-normalized form.
func ValidateLabel(label string) (string, error) {
	label = strings.TrimSpace(norm.NFC.String(label))
	if label == "" {
		return "", errclass.ErrLabelInvalid.WithMessage("label must not be empty")
	}
	if len(label) > maxLabelLen {
		return "", errclass.ErrLabelInvalid.WithMessagef("label longer than %d bytes", maxLabelLen)
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return "", errclass.ErrLabelInvalid.WithMessagef("label must not contain control characters: %q", label)
		}
	}
	return label, nil
}
