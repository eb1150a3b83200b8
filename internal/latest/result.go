package latest

import (
	"sort"
	"strings"

	"github.com/theabolton/kroftig-backend/internal/git"
)

// Entry is the resolved provenance of one path.
type Entry struct {
	Path         string
	ContentID    git.ContentID
	Kind         git.ObjectKind
	LatestCommit git.ContentID
}

// Result maps root-relative paths to their resolved provenance.
type Result map[string]Entry

// Paths returns the result's paths in lexical order.
func (r Result) Paths() []string {
	paths := make([]string, 0, len(r))
	for p := range r {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Entries returns the result's entries ordered by path.
func (r Result) Entries() []Entry {
	entries := make([]Entry, 0, len(r))
	for _, p := range r.Paths() {
		entries = append(entries, r[p])
	}
	return entries
}

// Commits returns the distinct latest commits referenced by the result.
func (r Result) Commits() []git.ContentID {
	seen := make(map[git.ContentID]struct{}, len(r))
	var ids []git.ContentID
	for _, e := range r.Entries() {
		if _, ok := seen[e.LatestCommit]; ok {
			continue
		}
		seen[e.LatestCommit] = struct{}{}
		ids = append(ids, e.LatestCommit)
	}
	return ids
}

// RelativePath strips filterPath from a root-relative result path.
func RelativePath(filterPath, path string) string {
	filter := NormalizeFilterPath(filterPath)
	if filter == "" {
		return path
	}
	if rel, ok := strings.CutPrefix(path, filter+"/"); ok {
		return rel
	}
	return path
}
