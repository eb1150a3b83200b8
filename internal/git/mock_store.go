package git

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// MemoryStore is an in-memory ObjectStore test double.
// It lets tests build arbitrary commit graphs, including malformed trees and dangling ids,
// and counts lookups per object.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[ContentID]Object
	reads   map[ContentID]int
	clock   time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[ContentID]Object),
		reads:   make(map[ContentID]int),
		clock:   time.Date(2017, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Object returns the stored object or ErrObjectNotFound.
func (m *MemoryStore) Object(ctx context.Context, id ContentID) (Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[id]++
	obj, ok := m.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	return obj, nil
}

// Commit returns the stored commit.
func (m *MemoryStore) Commit(ctx context.Context, id ContentID) (*Commit, error) {
	obj, err := m.Object(ctx, id)
	if err != nil {
		return nil, err
	}
	return AsCommit(obj)
}

// Tree returns the stored tree.
func (m *MemoryStore) Tree(ctx context.Context, id ContentID) (*Tree, error) {
	obj, err := m.Object(ctx, id)
	if err != nil {
		return nil, err
	}
	return AsTree(obj)
}

// Reads returns how many times id has been looked up.
func (m *MemoryStore) Reads(id ContentID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[id]
}

// Remove deletes an object, leaving references to it dangling.
func (m *MemoryStore) Remove(id ContentID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
}

// Put stores obj as is, without any validation.
func (m *MemoryStore) Put(obj Object) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.ID()] = obj
}

// AddBlob stores content and returns its git blob id.
func (m *MemoryStore) AddBlob(content string) ContentID {
	id := plumbing.ComputeHash(plumbing.BlobObject, []byte(content))
	m.Put(&Blob{Hash: id, Size: int64(len(content))})
	return id
}

// AddTree stores a tree with the given entries, in git's canonical order, and returns its id.
func (m *MemoryStore) AddTree(entries ...TreeEntry) ContentID {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return treeSortKey(sorted[i]) < treeSortKey(sorted[j]) })

	var buf bytes.Buffer
	for _, e := range sorted {
		fmt.Fprintf(&buf, "%o %s", uint32(e.Mode), e.Name)
		buf.WriteByte(0)
		buf.Write(e.ID[:])
	}
	id := plumbing.ComputeHash(plumbing.TreeObject, buf.Bytes())
	m.Put(&Tree{Hash: id, Entries: sorted})
	return id
}

// treeSortKey orders directories as if their name ended in "/", as git does.
func treeSortKey(e TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// AddFiles builds nested trees from a path to content mapping and returns the root tree id.
func (m *MemoryStore) AddFiles(files map[string]string) ContentID {
	children := make(map[string]map[string]string)
	var entries []TreeEntry
	for p, content := range files {
		dir, rest, nested := strings.Cut(p, "/")
		if nested {
			if children[dir] == nil {
				children[dir] = make(map[string]string)
			}
			children[dir][rest] = content
			continue
		}
		entries = append(entries, FileEntry(p, m.AddBlob(content)))
	}
	for dir, sub := range children {
		entries = append(entries, DirEntry(dir, m.AddFiles(sub)))
	}
	return m.AddTree(entries...)
}

// AddCommit stores a commit of tree with the given parents, in order, and returns its id.
func (m *MemoryStore) AddCommit(tree ContentID, message string, parents ...ContentID) ContentID {
	m.mu.Lock()
	m.clock = m.clock.Add(time.Hour)
	when := m.clock
	m.mu.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", tree)
	for _, p := range parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author Test <test@example.com> %d +0000\n", when.Unix())
	fmt.Fprintf(&buf, "committer Test <test@example.com> %d +0000\n\n%s\n", when.Unix(), message)
	id := plumbing.ComputeHash(plumbing.CommitObject, buf.Bytes())

	m.Put(&Commit{
		Hash:    id,
		Parents: append([]ContentID(nil), parents...),
		Tree:    tree,
		Author:  AuthorInfo{Name: "Test", Email: "test@example.com"},
		When:    when,
		Message: message + "\n",
	})
	return id
}

// FileEntry returns a regular file entry.
func FileEntry(name string, id ContentID) TreeEntry {
	return TreeEntry{Name: name, ID: id, Kind: KindBlob, Mode: filemode.Regular}
}

// DirEntry returns a subdirectory entry.
func DirEntry(name string, id ContentID) TreeEntry {
	return TreeEntry{Name: name, ID: id, Kind: KindTree, Mode: filemode.Dir}
}
