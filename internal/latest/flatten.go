package latest

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/theabolton/kroftig-backend/internal/git"
)

// maxTreeDepth bounds directory nesting so a store that hands back a tree
// containing one of its ancestors cannot keep the flattener busy forever.
const maxTreeDepth = 4096

// Mode controls how far the flattener descends below the filter path.
type Mode int

const (
	// ModeRecursive records every entry below the filter path, at any depth.
	ModeRecursive Mode = iota
	// ModeListing records only the direct children of the filter path, like a tree view.
	ModeListing
)

// String returns a string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeRecursive:
		return "recursive"
	case ModeListing:
		return "listing"
	default:
		return "unknown"
	}
}

// FlatEntry is the recorded identity of one path in a FlatTree.
type FlatEntry struct {
	ContentID git.ContentID
	Kind      git.ObjectKind
}

// FlatTree maps root-relative paths to the content recorded at that path.
type FlatTree map[string]FlatEntry

// NormalizeFilterPath cleans p into a root-relative path without surrounding slashes.
// "", "." and "/" mean no filter; ".." cannot climb above the root.
func NormalizeFilterPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

type treeFrame struct {
	tree   *git.Tree
	prefix string
	depth  int
}

// Flatten expands tree into a FlatTree restricted to filterPath.
//
// Ancestors of the filter path are descended but not recorded. Entries strictly
// inside the filter path are recorded; in ModeRecursive subtrees are descended as well.
// A filter path that does not name a directory in tree yields an empty FlatTree.
func Flatten(ctx context.Context, store git.ObjectStore, tree *git.Tree, filterPath string, mode Mode) (FlatTree, error) {
	filter := NormalizeFilterPath(filterPath)
	flat := make(FlatTree)

	stack := []treeFrame{{tree: tree}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := frame.tree.Validate(); err != nil {
			return nil, err
		}

		for _, entry := range frame.tree.Entries {
			p := entry.Name
			if frame.prefix != "" {
				p = frame.prefix + "/" + entry.Name
			}

			var descend bool
			switch {
			case filter != "" && (filter == p || strings.HasPrefix(filter, p+"/")):
				descend = entry.Kind == git.KindTree
			case filter == "" || strings.HasPrefix(p, filter+"/"):
				flat[p] = FlatEntry{ContentID: entry.ID, Kind: entry.Kind}
				descend = entry.Kind == git.KindTree && mode == ModeRecursive
			}
			if !descend {
				continue
			}

			if frame.depth+1 > maxTreeDepth {
				return nil, fmt.Errorf("%w: nesting below %q exceeds %d levels", git.ErrMalformedTree, p, maxTreeDepth)
			}
			sub, err := store.Tree(ctx, entry.ID)
			if err != nil {
				return nil, fmt.Errorf("read tree %q: %w", p, err)
			}
			stack = append(stack, treeFrame{tree: sub, prefix: p, depth: frame.depth + 1})
		}
	}

	return flat, nil
}
