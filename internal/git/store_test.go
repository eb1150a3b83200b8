package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *gogit.Repository
	wt   *gogit.Worktree
	when time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	return &testRepo{t: t, dir: dir, repo: repo, wt: wt, when: time.Date(2017, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (r *testRepo) write(rel, content string) {
	r.t.Helper()
	full := filepath.Join(r.dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("WriteFile: %v", err)
	}
	if _, err := r.wt.Add(rel); err != nil {
		r.t.Fatalf("Add: %v", err)
	}
}

func (r *testRepo) commit(msg string) ContentID {
	r.t.Helper()
	r.when = r.when.Add(time.Hour)
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: r.when}
	h, err := r.wt.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		r.t.Fatalf("Commit: %v", err)
	}
	return h
}

func TestRepoStore_ReadsObjects(t *testing.T) {
	r := newTestRepo(t)
	r.write("README.md", "hello\n")
	r.write("src/main.go", "package main\n")
	first := r.commit("initial\n\nbody")
	r.write("src/main.go", "package main // v2\n")
	second := r.commit("update main")

	store, err := NewRepoStore(r.dir)
	if err != nil {
		t.Fatalf("NewRepoStore: %v", err)
	}
	ctx := context.Background()

	c, err := store.Commit(ctx, second)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(c.Parents) != 1 || c.Parents[0] != first {
		t.Errorf("parents = %v, expected [%s]", c.Parents, first)
	}
	if c.Subject() != "update main" {
		t.Errorf("subject = %q", c.Subject())
	}
	if c.Author.Email != "test@example.com" || !c.When.Equal(r.when) {
		t.Errorf("author/when = %+v %v", c.Author, c.When)
	}

	root, err := store.Tree(ctx, c.Tree)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(root.Entries) != 2 {
		t.Fatalf("root entries = %+v", root.Entries)
	}
	if root.Entries[0].Name != "README.md" || root.Entries[0].Kind != KindBlob {
		t.Errorf("entry[0] = %+v", root.Entries[0])
	}
	if root.Entries[1].Name != "src" || root.Entries[1].Kind != KindTree {
		t.Errorf("entry[1] = %+v", root.Entries[1])
	}
	if err := root.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	blobID := plumbing.ComputeHash(plumbing.BlobObject, []byte("hello\n"))
	if root.Entries[0].ID != blobID {
		t.Errorf("README id = %s, expected %s", root.Entries[0].ID, blobID)
	}
	obj, err := store.Object(ctx, blobID)
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if obj.Kind() != KindBlob {
		t.Errorf("kind = %v, expected blob", obj.Kind())
	}

	if _, err := store.Tree(ctx, second); !errors.Is(err, ErrUnexpectedKind) {
		t.Errorf("Tree(commit) error = %v, expected ErrUnexpectedKind", err)
	}
}

func TestRepoStore_MissingObject(t *testing.T) {
	r := newTestRepo(t)
	r.write("a", "1")
	r.commit("initial")

	store := NewRepoStoreFrom(r.repo)
	missing := plumbing.NewHash("0123456789012345678901234567890123456789")

	_, err := store.Commit(context.Background(), missing)
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestRepoStore_ResolveRevisionAndBranch(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	empty := NewRepoStoreFrom(r.repo)
	if got := empty.CurrentBranch(ctx); got != UnknownBranch {
		t.Errorf("CurrentBranch on empty repo = %q, expected %q", got, UnknownBranch)
	}

	r.write("a", "1")
	first := r.commit("initial")
	r.write("a", "2")
	second := r.commit("second")

	store := NewRepoStoreFrom(r.repo)

	tests := []struct {
		name    string
		rev     string
		want    ContentID
		wantErr bool
	}{
		{name: "Empty means HEAD", rev: "", want: second},
		{name: "HEAD", rev: "HEAD", want: second},
		{name: "Parent", rev: "HEAD~1", want: first},
		{name: "Branch", rev: "master", want: second},
		{name: "Full hex", rev: first.String(), want: first},
		{name: "Unknown", rev: "no-such-branch", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ResolveRevision(ctx, tt.rev)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRevision) {
					t.Fatalf("expected ErrInvalidRevision, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveRevision(%q) = %s, expected %s", tt.rev, got, tt.want)
			}
		})
	}

	if got := store.CurrentBranch(ctx); got != "master" {
		t.Errorf("CurrentBranch = %q, expected master", got)
	}
}

func TestRepoStore_CancelledContext(t *testing.T) {
	r := newTestRepo(t)
	r.write("a", "1")
	id := r.commit("initial")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRepoStoreFrom(r.repo).Commit(ctx, id)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenRepository(t *testing.T) {
	r := newTestRepo(t)

	repo, err := OpenRepository(r.dir, BackendGoGit)
	if err != nil {
		t.Fatalf("OpenRepository: %v", err)
	}
	if _, ok := repo.(*RepoStore); !ok {
		t.Errorf("expected *RepoStore, got %T", repo)
	}

	if _, err := OpenRepository(t.TempDir(), BackendGoGit); err == nil {
		t.Error("expected error opening a directory that is not a repository")
	}
	if _, err := OpenRepository(r.dir, Backend("svn")); err == nil {
		t.Error("expected error for unsupported backend")
	}
}

func TestMemoryStore_TreeIDsMatchGit(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{name: "Simple", files: map[string]string{"README.md": "hello\n", "src/main.go": "package main\n"}},
		// git sorts the directory "a" as "a/", after "a.txt".
		{name: "Directory sorts after dotted sibling", files: map[string]string{"a.txt": "1\n", "a/b": "2\n"}},
		{name: "Nested prefixes", files: map[string]string{"lib-x/y": "1\n", "lib/z": "2\n", "lib.go": "3\n", "lib0": "4\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRepo(t)
			for name, content := range tt.files {
				r.write(name, content)
			}
			id := r.commit("initial")

			store := NewRepoStoreFrom(r.repo)
			gitCommit, err := store.Commit(context.Background(), id)
			if err != nil {
				t.Fatalf("Commit: %v", err)
			}

			mem := NewMemoryStore()
			tree := mem.AddFiles(tt.files)
			if tree != gitCommit.Tree {
				t.Fatalf("memory tree id %s, git tree id %s", tree, gitCommit.Tree)
			}

			gitTree, err := store.Tree(context.Background(), gitCommit.Tree)
			if err != nil {
				t.Fatalf("Tree: %v", err)
			}
			memTree, err := mem.Tree(context.Background(), tree)
			if err != nil {
				t.Fatalf("memory Tree: %v", err)
			}
			for i := range gitTree.Entries {
				if memTree.Entries[i].Name != gitTree.Entries[i].Name {
					t.Errorf("entry %d: memory %q, git %q", i, memTree.Entries[i].Name, gitTree.Entries[i].Name)
				}
			}
		})
	}
}

func TestMemoryStore_CountsReadsAndRemoves(t *testing.T) {
	mem := NewMemoryStore()
	tree := mem.AddFiles(map[string]string{"a": "1"})
	c := mem.AddCommit(tree, "one")
	ctx := context.Background()

	if _, err := mem.Commit(ctx, c); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := mem.Commit(ctx, c); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := mem.Reads(c); got != 2 {
		t.Errorf("Reads = %d, expected 2", got)
	}

	mem.Remove(tree)
	if _, err := mem.Tree(ctx, tree); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestRepoStore_Close(t *testing.T) {
	r := newTestRepo(t)
	r.write("README.md", "hello\n")
	id := r.commit("initial")

	store, err := NewRepoStore(r.dir)
	if err != nil {
		t.Fatalf("NewRepoStore: %v", err)
	}
	if _, err := store.Commit(context.Background(), id); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	mem, err := gogit.Init(memory.NewStorage(), nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := NewRepoStoreFrom(mem).Close(); err != nil {
		t.Errorf("Close on memory storage: %v", err)
	}
}
