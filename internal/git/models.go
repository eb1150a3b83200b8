package git

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

var (
	// ErrObjectNotFound is returned when an identifier cannot be resolved by the store.
	ErrObjectNotFound = errors.New("object not found")
	// ErrMalformedTree is returned for trees with duplicate, empty or self-referential entries.
	ErrMalformedTree = errors.New("malformed tree")
	// ErrUnexpectedKind is returned when an identifier resolves to a different kind of object.
	ErrUnexpectedKind = errors.New("unexpected object kind")
	// ErrInvalidRevision is returned when a revision does not name a commit.
	ErrInvalidRevision = errors.New("invalid revision")
)

// ContentID identifies an immutable object by its content hash.
type ContentID = plumbing.Hash

// ParseContentID parses a full hex object name.
func ParseContentID(s string) (ContentID, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2*len(plumbing.ZeroHash) {
		return plumbing.ZeroHash, fmt.Errorf("invalid object name %q", s)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("invalid object name %q: %w", s, err)
	}
	return plumbing.NewHash(s), nil
}

// ShortID returns the abbreviated form of id used in reports.
func ShortID(id ContentID) string {
	return id.String()[:8]
}

// ObjectKind tags the variants of Object.
type ObjectKind int

const (
	KindCommit ObjectKind = iota
	KindTree
	KindBlob
)

// String returns a string representation of the object kind.
func (k ObjectKind) String() string {
	switch k {
	case KindCommit:
		return "commit"
	case KindTree:
		return "tree"
	case KindBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// Object is the closed set of values an ObjectStore can return: *Commit, *Tree or *Blob.
type Object interface {
	ID() ContentID
	Kind() ObjectKind
	object()
}

// AuthorInfo represents commit author information.
type AuthorInfo struct {
	Name  string
	Email string
}

// Commit is an immutable node of the commit graph.
// Parents are ordered; the first parent is the mainline ancestor.
type Commit struct {
	Hash    ContentID
	Parents []ContentID
	Tree    ContentID
	Author  AuthorInfo
	When    time.Time
	Message string
}

func (c *Commit) ID() ContentID    { return c.Hash }
func (c *Commit) Kind() ObjectKind { return KindCommit }
func (c *Commit) object()          {}

// IsRoot reports whether the commit has no parents.
func (c *Commit) IsRoot() bool {
	return len(c.Parents) == 0
}

// Subject returns the first line of the commit message.
func (c *Commit) Subject() string {
	msg := strings.TrimLeft(c.Message, "\n")
	if idx := strings.IndexByte(msg, '\n'); idx != -1 {
		return msg[:idx]
	}
	return msg
}

// TreeEntry is one named child of a Tree.
type TreeEntry struct {
	Name string
	ID   ContentID
	Kind ObjectKind
	Mode filemode.FileMode
}

// Tree is an ordered directory listing.
type Tree struct {
	Hash    ContentID
	Entries []TreeEntry
}

func (t *Tree) ID() ContentID    { return t.Hash }
func (t *Tree) Kind() ObjectKind { return KindTree }
func (t *Tree) object()          {}

// Validate checks the structural invariants of a tree. It does not repair anything.
func (t *Tree) Validate() error {
	seen := make(map[string]struct{}, len(t.Entries))
	for _, e := range t.Entries {
		if e.Name == "" || e.Name == "." || e.Name == ".." || strings.ContainsRune(e.Name, '/') {
			return fmt.Errorf("%w: tree %s has invalid entry name %q", ErrMalformedTree, t.Hash, e.Name)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: tree %s has duplicate entry %q", ErrMalformedTree, t.Hash, e.Name)
		}
		seen[e.Name] = struct{}{}
		if e.Kind == KindTree && e.ID == t.Hash {
			return fmt.Errorf("%w: tree %s contains itself as %q", ErrMalformedTree, t.Hash, e.Name)
		}
	}
	return nil
}

// Blob is file content. Only its identity is needed for provenance.
type Blob struct {
	Hash ContentID
	Size int64
}

func (b *Blob) ID() ContentID    { return b.Hash }
func (b *Blob) Kind() ObjectKind { return KindBlob }
func (b *Blob) object()          {}

// AsCommit narrows an Object to a commit.
func AsCommit(obj Object) (*Commit, error) {
	switch o := obj.(type) {
	case *Commit:
		return o, nil
	case *Tree, *Blob:
		return nil, fmt.Errorf("%w: %s is a %s, not a commit", ErrUnexpectedKind, o.ID(), o.Kind())
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedKind, obj)
	}
}

// AsTree narrows an Object to a tree.
func AsTree(obj Object) (*Tree, error) {
	switch o := obj.(type) {
	case *Tree:
		return o, nil
	case *Commit, *Blob:
		return nil, fmt.Errorf("%w: %s is a %s, not a tree", ErrUnexpectedKind, o.ID(), o.Kind())
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedKind, obj)
	}
}

// entryKind maps a tree entry mode to the kind of object it references.
// Submodule entries point at commits in another repository.
func entryKind(mode filemode.FileMode) ObjectKind {
	switch mode {
	case filemode.Dir:
		return KindTree
	case filemode.Submodule:
		return KindCommit
	default:
		return KindBlob
	}
}

// Backend selects the ObjectStore implementation.
type Backend string

const (
	BackendGoGit  Backend = "go-git"
	BackendGitCLI Backend = "git-cli"
)

// ParseBackend parses a backend name. Empty selects go-git.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "go-git", "gogit":
		return BackendGoGit, nil
	case "git-cli", "cli", "git":
		return BackendGitCLI, nil
	default:
		return "", fmt.Errorf("invalid backend %q (expected go-git or git-cli)", s)
	}
}

// UnknownBranch is reported when HEAD does not resolve to a branch.
const UnknownBranch = "<unknown branch (empty repo?)>"
