package cmd

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/theabolton/kroftig-backend/internal/output"
)

// testRepo is a temporary repository built through a go-git worktree.
type testRepo struct {
	t    *testing.T
	dir  string
	wt   *git.Worktree
	when time.Time
}

func createTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("Failed to initialize git repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}
	return &testRepo{t: t, dir: dir, wt: wt, when: time.Date(2017, 3, 1, 9, 0, 0, 0, time.UTC)}
}

// commit writes files (path to content) and commits them.
func (r *testRepo) commit(message string, files map[string]string) plumbing.Hash {
	r.t.Helper()
	for name, content := range files {
		full := filepath.Join(r.dir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			r.t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			r.t.Fatalf("Failed to write file: %v", err)
		}
		if _, err := r.wt.Add(name); err != nil {
			r.t.Fatalf("Failed to add file: %v", err)
		}
	}

	r.when = r.when.Add(24 * time.Hour)
	sig := &object.Signature{Name: "Sean", Email: "sean@example.com", When: r.when}
	hash, err := r.wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		r.t.Fatalf("Failed to commit: %v", err)
	}
	return hash
}

// runApp runs the CLI with output discarded and no configuration file.
func runApp(t *testing.T, args ...string) error {
	t.Helper()
	app := App()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	missing := filepath.Join(t.TempDir(), "none.json")
	return app.Run(append([]string{"kroftig", "--config", missing}, args...))
}

// runJSON runs the latest command with JSON output and decodes the report.
func runJSON(t *testing.T, args ...string) output.JSONLatestReport {
	t.Helper()
	out := filepath.Join(t.TempDir(), "report.json")
	full := append([]string{"latest", "--format", "json", "--output", out}, args...)
	if err := runApp(t, full...); err != nil {
		t.Fatalf("run %v: %v", full, err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var report output.JSONLatestReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, data)
	}
	return report
}

// latestByPath maps each reported path to its commit sha.
func latestByPath(report output.JSONLatestReport) map[string]string {
	m := make(map[string]string, len(report.Items))
	for _, item := range report.Items {
		m[item.Path] = item.Commit.SHA
	}
	return m
}
