package fileops

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sumerian-dev/sumerian/pkg/config"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

// listCollation is the root locale; names compare case-insensitively at the
// primary level.
var listCollation = language.Und

// leadingPunct is stripped from names before collation so that ".env" sorts
// with "env" the way a file browser shows it.
const leadingPunct = "._-"

// sortKey returns the collation key for a listing name.
func sortKey(name string) string {
	return strings.TrimLeft(name, leadingPunct)
}

// Entry is one item of a directory listing.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	IsDir   bool      `json:"isDirectory"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// List returns the entries of dir. Dot entries are hidden unless listed in
// the project's hidden allowlist. Directories come first, then files, each
// group ordered by name.
func (s *Service) List(dir string, actor model.Actor) ([]Entry, error) {
	sess := s.Session()
	abs, err := s.authorize(sess, model.ActionList, dir, actor, false)
	if err != nil {
		return nil, err
	}

	allow := config.Default().List.HiddenAllowlist
	if sess != nil {
		allow = sess.Config.List.HiddenAllowlist
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errclass.NewIOError("list", abs, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if strings.HasPrefix(name, ".") && !slices.Contains(allow, name) {
			continue
		}
		e := Entry{Name: name, Path: filepath.Join(abs, name), IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil {
			e.Size = info.Size()
			e.ModTime = info.ModTime()
		}
		entries = append(entries, e)
	}
	SortEntries(entries)
	return entries, nil
}

// SortEntries orders entries directories first, then by collated name with
// leading punctuation ignored, with byte order on the full name breaking ties.
func SortEntries(entries []Entry) {
	col := collate.New(listCollation)
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		if c := col.CompareString(sortKey(a.Name), sortKey(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
