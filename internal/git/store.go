package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// RepoStore reads objects from a repository through go-git.
type RepoStore struct {
	// go-git's filesystem storer shares packfile readers between calls.
	mu   sync.Mutex
	repo *git.Repository
}

// NewRepoStore opens the repository at path, searching parent directories for .git.
func NewRepoStore(path string) (*RepoStore, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	return &RepoStore{repo: repo}, nil
}

// NewRepoStoreFrom wraps an already opened repository, such as one backed by memory storage.
func NewRepoStoreFrom(repo *git.Repository) *RepoStore {
	return &RepoStore{repo: repo}
}

// Close releases the storer's open packfiles.
func (s *RepoStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.repo.Storer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// OpenRepository opens path with the requested backend.
func OpenRepository(path string, backend Backend) (Repository, error) {
	switch backend {
	case BackendGitCLI:
		return NewCLIStore(path)
	case BackendGoGit, "":
		return NewRepoStore(path)
	default:
		return nil, fmt.Errorf("unsupported backend %q", backend)
	}
}

// Object fetches the object with the given id and converts it to its tagged form.
func (s *RepoStore) Object(ctx context.Context, id ContentID) (Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	enc, err := s.repo.Storer.EncodedObject(plumbing.AnyObject, id)
	if err != nil {
		return nil, mapStoreError(id, err)
	}

	switch enc.Type() {
	case plumbing.CommitObject:
		c, err := object.DecodeCommit(s.repo.Storer, enc)
		if err != nil {
			return nil, fmt.Errorf("decode commit %s: %w", id, err)
		}
		return convertCommit(c), nil
	case plumbing.TreeObject:
		t, err := object.DecodeTree(s.repo.Storer, enc)
		if err != nil {
			return nil, fmt.Errorf("decode tree %s: %w", id, err)
		}
		return convertTree(t), nil
	case plumbing.BlobObject:
		return &Blob{Hash: id, Size: enc.Size()}, nil
	default:
		return nil, fmt.Errorf("%w: %s has type %s", ErrUnexpectedKind, id, enc.Type())
	}
}

// Commit fetches a commit.
func (s *RepoStore) Commit(ctx context.Context, id ContentID) (*Commit, error) {
	obj, err := s.Object(ctx, id)
	if err != nil {
		return nil, err
	}
	return AsCommit(obj)
}

// Tree fetches a tree.
func (s *RepoStore) Tree(ctx context.Context, id ContentID) (*Tree, error) {
	obj, err := s.Object(ctx, id)
	if err != nil {
		return nil, err
	}
	return AsTree(obj)
}

// ResolveRevision resolves a branch, tag, HEAD or hex revision to a commit id.
func (s *RepoStore) ResolveRevision(ctx context.Context, rev string) (ContentID, error) {
	if err := ctx.Err(); err != nil {
		return plumbing.ZeroHash, err
	}
	rev = strings.TrimSpace(rev)
	if rev == "" {
		rev = "HEAD"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w %q: %v", ErrInvalidRevision, rev, err)
	}
	return *h, nil
}

// CurrentBranch returns the short name HEAD points at.
func (s *RepoStore) CurrentBranch(ctx context.Context) string {
	if ctx.Err() != nil {
		return UnknownBranch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.repo.Head()
	if err != nil {
		return UnknownBranch
	}
	return ref.Name().Short()
}

func mapStoreError(id ContentID, err error) error {
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	return fmt.Errorf("read object %s: %w", id, err)
}

func convertCommit(c *object.Commit) *Commit {
	return &Commit{
		Hash:    c.Hash,
		Parents: append([]ContentID(nil), c.ParentHashes...),
		Tree:    c.TreeHash,
		Author:  AuthorInfo{Name: c.Author.Name, Email: c.Author.Email},
		When:    c.Committer.When,
		Message: c.Message,
	}
}

func convertTree(t *object.Tree) *Tree {
	entries := make([]TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		entries = append(entries, TreeEntry{
			Name: e.Name,
			ID:   e.Hash,
			Kind: entryKind(e.Mode),
			Mode: e.Mode,
		})
	}
	return &Tree{Hash: t.Hash, Entries: entries}
}
