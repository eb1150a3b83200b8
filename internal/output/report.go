package output

import (
	"context"
	"fmt"

	"github.com/theabolton/kroftig-backend/internal/git"
	"github.com/theabolton/kroftig-backend/internal/latest"
)

// BuildItems turns a resolved result into report rows ordered by path, reading each
// distinct latest commit once for its metadata.
func BuildItems(ctx context.Context, store git.ObjectStore, result latest.Result, filterPath string, relative bool) ([]LatestChangeItem, error) {
	summaries := make(map[git.ContentID]CommitSummary)
	for _, id := range result.Commits() {
		c, err := store.Commit(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("read commit %s: %w", git.ShortID(id), err)
		}
		summaries[id] = CommitSummary{
			ID:      id,
			Subject: c.Subject(),
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			When:    c.When,
		}
	}

	items := make([]LatestChangeItem, 0, len(result))
	for _, e := range result.Entries() {
		p := e.Path
		if relative {
			p = latest.RelativePath(filterPath, p)
		}
		items = append(items, LatestChangeItem{
			Path:      p,
			Kind:      e.Kind,
			ContentID: e.ContentID,
			Commit:    summaries[e.LatestCommit],
		})
	}
	return items, nil
}
