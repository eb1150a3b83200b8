package latest

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/theabolton/kroftig-backend/internal/git"
)

// Stats describes the work done by the last Resolve call.
type Stats struct {
	CommitsVisited int
	TreesFlattened int
	PathsResolved  int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMode selects recursive flattening or a one-level listing.
func WithMode(mode Mode) Option {
	return func(r *Resolver) {
		r.mode = mode
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// Resolver finds, for every path below a filter path, the oldest ancestor commit
// that still records the content the path has at the start commit.
//
// A Resolver may be reused but not shared between goroutines.
type Resolver struct {
	store git.ObjectStore
	mode  Mode
	log   logrus.FieldLogger
	stats Stats
}

// NewResolver creates a resolver reading from store.
func NewResolver(store git.ObjectStore, opts ...Option) *Resolver {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	r := &Resolver{
		store: store,
		mode:  ModeRecursive,
		log:   quiet,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// resolution is the in-flight record of one path. contentID never changes;
// latest is replaced each time the path moves to a parent.
type resolution struct {
	contentID git.ContentID
	kind      git.ObjectKind
	latest    git.ContentID
}

// workState is owned by a single Resolve call and discarded when it returns.
type workState struct {
	cache   *SnapshotCache
	held    map[git.ContentID]map[string]resolution
	pending map[git.ContentID]struct{}
	queue   []git.ContentID
	result  Result
}

func (w *workState) hold(commit git.ContentID, path string, res resolution) {
	paths, ok := w.held[commit]
	if !ok {
		paths = make(map[string]resolution)
		w.held[commit] = paths
	}
	paths[path] = res

	if _, queued := w.pending[commit]; !queued {
		w.pending[commit] = struct{}{}
		w.queue = append(w.queue, commit)
	}
}

func (w *workState) next() (git.ContentID, map[string]resolution) {
	commit := w.queue[0]
	w.queue = w.queue[1:]
	delete(w.pending, commit)

	paths := w.held[commit]
	delete(w.held, commit)
	return commit, paths
}

// Resolve computes the latest changing commit of every path under filterPath at start.
// Returned paths are relative to the repository root, not to filterPath.
// Either the complete result or an error is returned, never both.
func (r *Resolver) Resolve(ctx context.Context, start git.ContentID, filterPath string) (Result, error) {
	r.stats = Stats{}
	filter := NormalizeFilterPath(filterPath)

	w := &workState{
		cache:   NewSnapshotCache(r.store, filter, r.mode),
		held:    make(map[git.ContentID]map[string]resolution),
		pending: make(map[git.ContentID]struct{}),
		result:  make(Result),
	}

	initial, err := w.cache.FlatTree(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", start, err)
	}
	for path, entry := range initial {
		w.hold(start, path, resolution{contentID: entry.ContentID, kind: entry.Kind, latest: start})
	}

	for len(w.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", start, err)
		}
		if err := r.step(ctx, w); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", start, err)
		}
	}

	r.stats.TreesFlattened = w.cache.Flattened()
	r.stats.PathsResolved = len(w.result)
	r.log.WithFields(logrus.Fields{
		"start":     git.ShortID(start),
		"filter":    filter,
		"visited":   r.stats.CommitsVisited,
		"flattened": r.stats.TreesFlattened,
		"resolved":  r.stats.PathsResolved,
	}).Debug("latest changes resolved")

	return w.result, nil
}

// step moves every path held by the next pending commit either into the first
// parent, in declared order, recording identical content, or into the result.
func (r *Resolver) step(ctx context.Context, w *workState) error {
	id, working := w.next()
	if len(working) == 0 {
		return nil
	}

	commit, err := w.cache.Commit(ctx, id)
	if err != nil {
		return err
	}
	r.stats.CommitsVisited++

	var advanced int
	for path, res := range working {
		moved := false
		for _, parent := range commit.Parents {
			flat, err := w.cache.FlatTree(ctx, parent)
			if err != nil {
				return err
			}
			if entry, ok := flat[path]; ok && entry.ContentID == res.contentID {
				w.hold(parent, path, resolution{contentID: res.contentID, kind: res.kind, latest: parent})
				moved = true
				break
			}
		}
		if moved {
			advanced++
			continue
		}
		w.result[path] = Entry{
			Path:         path,
			ContentID:    res.contentID,
			Kind:         res.kind,
			LatestCommit: res.latest,
		}
	}

	r.log.WithFields(logrus.Fields{
		"commit":   git.ShortID(id),
		"parents":  len(commit.Parents),
		"held":     len(working),
		"advanced": advanced,
		"resolved": len(working) - advanced,
	}).Debug("processed commit")
	return nil
}

// Stats returns counters for the last Resolve call.
func (r *Resolver) Stats() Stats {
	return r.stats
}

// ComputeLatestChangingCommits resolves with default options.
func ComputeLatestChangingCommits(ctx context.Context, store git.ObjectStore, start git.ContentID, filterPath string) (Result, error) {
	return NewResolver(store).Resolve(ctx, start, filterPath)
}
