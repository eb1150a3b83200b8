package latest

import (
	"context"
	"fmt"
	"sync"

	"github.com/theabolton/kroftig-backend/internal/git"
)

// SnapshotCache memoizes commits and their flattened trees for one resolution run.
// Entries are written once; the cache is safe for concurrent use.
type SnapshotCache struct {
	store  git.ObjectStore
	filter string
	mode   Mode

	mu        sync.Mutex
	commits   map[git.ContentID]*git.Commit
	byCommit  map[git.ContentID]FlatTree
	byTree    map[git.ContentID]FlatTree
	flattened int
}

// NewSnapshotCache creates a cache that flattens every tree with filterPath and mode.
func NewSnapshotCache(store git.ObjectStore, filterPath string, mode Mode) *SnapshotCache {
	return &SnapshotCache{
		store:    store,
		filter:   NormalizeFilterPath(filterPath),
		mode:     mode,
		commits:  make(map[git.ContentID]*git.Commit),
		byCommit: make(map[git.ContentID]FlatTree),
		byTree:   make(map[git.ContentID]FlatTree),
	}
}

// Commit returns the commit with the given id, fetching it on first use.
func (c *SnapshotCache) Commit(ctx context.Context, id git.ContentID) (*git.Commit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commitLocked(ctx, id)
}

func (c *SnapshotCache) commitLocked(ctx context.Context, id git.ContentID) (*git.Commit, error) {
	if commit, ok := c.commits[id]; ok {
		return commit, nil
	}
	commit, err := c.store.Commit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", id, err)
	}
	c.commits[id] = commit
	return commit, nil
}

// FlatTree returns the flattened root tree of the commit with the given id.
// Each commit is flattened at most once; commits sharing a root tree share the result.
func (c *SnapshotCache) FlatTree(ctx context.Context, commitID git.ContentID) (FlatTree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if flat, ok := c.byCommit[commitID]; ok {
		return flat, nil
	}

	commit, err := c.commitLocked(ctx, commitID)
	if err != nil {
		return nil, err
	}

	flat, ok := c.byTree[commit.Tree]
	if !ok {
		root, err := c.store.Tree(ctx, commit.Tree)
		if err != nil {
			return nil, fmt.Errorf("read root tree of %s: %w", commitID, err)
		}
		flat, err = Flatten(ctx, c.store, root, c.filter, c.mode)
		if err != nil {
			return nil, fmt.Errorf("flatten %s: %w", commitID, err)
		}
		c.byTree[commit.Tree] = flat
		c.flattened++
	}

	c.byCommit[commitID] = flat
	return flat, nil
}

// Flattened returns how many trees have been flattened so far.
func (c *SnapshotCache) Flattened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flattened
}
