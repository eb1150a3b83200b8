package git

import "context"

// ObjectStore resolves identifiers to commits and trees.
// Implementations are read-only and safe for concurrent use.
type ObjectStore interface {
	// Object fetches any object and tags it with its kind.
	Object(ctx context.Context, id ContentID) (Object, error)
	// Commit fetches a commit. Missing objects yield ErrObjectNotFound.
	Commit(ctx context.Context, id ContentID) (*Commit, error)
	// Tree fetches a tree. Missing objects yield ErrObjectNotFound.
	Tree(ctx context.Context, id ContentID) (*Tree, error)
}

// Repository is an ObjectStore that also understands revisions and branches.
type Repository interface {
	ObjectStore
	ResolveRevision(ctx context.Context, rev string) (ContentID, error)
	CurrentBranch(ctx context.Context) string
	// Close releases readers or helper processes held by the repository.
	Close() error
}

// Compile-time interface conformance checks.
var (
	_ Repository  = (*RepoStore)(nil)
	_ Repository  = (*CLIStore)(nil)
	_ ObjectStore = (*MemoryStore)(nil)
)
