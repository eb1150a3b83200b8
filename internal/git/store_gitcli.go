package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// CLIStore reads objects by shelling out to the git executable.
// Object reads share one long-running `git cat-file --batch` process; call Close to stop it.
type CLIStore struct {
	path string

	mu    sync.Mutex
	batch *catFileBatch
}

// catFileBatch is a running `git cat-file --batch` process.
type catFileBatch struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// NewCLIStore checks that path is inside a git repository and returns a store for it.
func NewCLIStore(path string) (*CLIStore, error) {
	s := &CLIStore{path: path}
	if _, err := s.git(context.Background(), nil, "rev-parse", "--git-dir"); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CLIStore) git(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", s.path}, args...)...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("git %s failed: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Object fetches one object through the store's `git cat-file --batch` process,
// starting it on first use.
func (s *CLIStore) Object(ctx context.Context, id ContentID) (Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch == nil {
		b, err := s.startBatch()
		if err != nil {
			return nil, err
		}
		s.batch = b
	}

	if _, err := io.WriteString(s.batch.stdin, id.String()+"\n"); err != nil {
		s.stopBatchLocked()
		return nil, fmt.Errorf("git cat-file: write request for %s: %w", id, err)
	}
	obj, err := readBatchObject(id, s.batch.stdout)
	if errors.Is(err, errBatchStream) {
		// The stream position is unknown after a failed read.
		s.stopBatchLocked()
	}
	return obj, err
}

func (s *CLIStore) startBatch() (*catFileBatch, error) {
	cmd := exec.Command("git", "-C", s.path, "cat-file", "--batch")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("git cat-file: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("git cat-file: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start git cat-file: %w", err)
	}
	return &catFileBatch{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}, nil
}

func (s *CLIStore) stopBatchLocked() error {
	if s.batch == nil {
		return nil
	}
	b := s.batch
	s.batch = nil

	// Closing stdin makes cat-file exit once it has drained its input.
	b.stdin.Close()
	if err := b.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	}
	return nil
}

// Close stops the batch process, if one is running. The store can still be used afterwards.
func (s *CLIStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopBatchLocked()
}

// Commit fetches a commit.
func (s *CLIStore) Commit(ctx context.Context, id ContentID) (*Commit, error) {
	obj, err := s.Object(ctx, id)
	if err != nil {
		return nil, err
	}
	return AsCommit(obj)
}

// Tree fetches a tree.
func (s *CLIStore) Tree(ctx context.Context, id ContentID) (*Tree, error) {
	obj, err := s.Object(ctx, id)
	if err != nil {
		return nil, err
	}
	return AsTree(obj)
}

// ResolveRevision resolves rev to a commit id with `git rev-parse --verify`.
func (s *CLIStore) ResolveRevision(ctx context.Context, rev string) (ContentID, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		rev = "HEAD"
	}
	if strings.HasPrefix(rev, "-") {
		return plumbing.ZeroHash, fmt.Errorf("%w %q", ErrInvalidRevision, rev)
	}
	out, err := s.git(ctx, nil, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		if ctx.Err() != nil {
			return plumbing.ZeroHash, err
		}
		return plumbing.ZeroHash, fmt.Errorf("%w %q: %v", ErrInvalidRevision, rev, err)
	}
	return ParseContentID(string(out))
}

// CurrentBranch returns the short name HEAD points at.
func (s *CLIStore) CurrentBranch(ctx context.Context) string {
	if _, err := s.git(ctx, nil, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		return UnknownBranch
	}
	out, err := s.git(ctx, nil, "symbolic-ref", "--short", "--quiet", "HEAD")
	if err != nil {
		return "HEAD"
	}
	return strings.TrimSpace(string(out))
}

// parseBatchObject parses buffered `git cat-file --batch` output for a single id.
func parseBatchObject(id ContentID, out []byte) (Object, error) {
	return readBatchObject(id, bufio.NewReader(bytes.NewReader(out)))
}

// errBatchStream marks a cat-file response that could not be framed; the reader is out of sync.
var errBatchStream = errors.New("cat-file stream")

// readBatchObject reads one `git cat-file --batch` response from r.
// Format: "<id> <type> <size>\n<contents>\n" or "<id> missing\n".
func readBatchObject(id ContentID, r *bufio.Reader) (Object, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: unexpected output for %s: %v", errBatchStream, id, err)
	}
	header := strings.Fields(line)
	if len(header) == 2 && (header[1] == "missing" || header[1] == "ambiguous") {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	if len(header) != 3 {
		return nil, fmt.Errorf("%w: unexpected header %q", errBatchStream, strings.TrimSpace(line))
	}
	size, err := strconv.ParseInt(header[2], 10, 64)
	if err != nil || size < 0 {
		return nil, fmt.Errorf("%w: bad object size %q", errBatchStream, header[2])
	}

	// Contents are followed by a single newline. Blob contents are never needed.
	if header[1] != "commit" && header[1] != "tree" {
		if n, err := r.Discard(int(size) + 1); err != nil {
			return nil, fmt.Errorf("%w: short output for %s: %d of %d bytes", errBatchStream, id, n, size+1)
		}
		if header[1] == "blob" {
			return &Blob{Hash: id, Size: size}, nil
		}
		return nil, fmt.Errorf("%w: %s has type %s", ErrUnexpectedKind, id, header[1])
	}
	body := make([]byte, size+1)
	if n, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: short output for %s: %d of %d bytes", errBatchStream, id, n, size+1)
	}
	body = body[:size]

	if header[1] == "commit" {
		return parseRawCommit(id, body)
	}
	return parseRawTree(id, body)
}

// parseRawTree parses the binary tree encoding: repeated "<mode> <name>\0<20-byte id>".
func parseRawTree(id ContentID, data []byte) (*Tree, error) {
	tree := &Tree{Hash: id}
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp == -1 {
			return nil, fmt.Errorf("%w: tree %s: missing mode separator", ErrMalformedTree, id)
		}
		mode, err := parseEntryMode(string(data[:sp]))
		if err != nil {
			return nil, fmt.Errorf("tree %s: %w", id, err)
		}
		data = data[sp+1:]

		nul := bytes.IndexByte(data, 0)
		if nul == -1 {
			return nil, fmt.Errorf("%w: tree %s: unterminated entry name", ErrMalformedTree, id)
		}
		name := string(data[:nul])
		data = data[nul+1:]

		if len(data) < len(plumbing.ZeroHash) {
			return nil, fmt.Errorf("%w: tree %s: truncated entry %q", ErrMalformedTree, id, name)
		}
		var child ContentID
		copy(child[:], data[:len(child)])
		data = data[len(child):]

		tree.Entries = append(tree.Entries, TreeEntry{
			Name: name,
			ID:   child,
			Kind: entryKind(mode),
			Mode: mode,
		})
	}
	return tree, nil
}

// parseRawCommit parses the text commit encoding.
func parseRawCommit(id ContentID, data []byte) (*Commit, error) {
	c := &Commit{Hash: id}
	headers, message, _ := bytes.Cut(data, []byte("\n\n"))
	c.Message = string(message)

	var sawTree bool
	for _, line := range strings.Split(string(headers), "\n") {
		// continuation lines of multi-line headers such as gpgsig
		if strings.HasPrefix(line, " ") {
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "tree":
			h, err := ParseContentID(value)
			if err != nil {
				return nil, fmt.Errorf("commit %s: %w", id, err)
			}
			c.Tree = h
			sawTree = true
		case "parent":
			h, err := ParseContentID(value)
			if err != nil {
				return nil, fmt.Errorf("commit %s: %w", id, err)
			}
			c.Parents = append(c.Parents, h)
		case "author":
			c.Author, _ = parseSignature(value)
		case "committer":
			_, c.When = parseSignature(value)
		}
	}
	if !sawTree {
		return nil, fmt.Errorf("commit %s: missing tree header", id)
	}
	return c, nil
}

// parseSignature parses "Name <email> <unix-seconds> <+hhmm>".
func parseSignature(s string) (AuthorInfo, time.Time) {
	var info AuthorInfo
	open := strings.IndexByte(s, '<')
	closeIdx := strings.LastIndexByte(s, '>')
	if open == -1 || closeIdx < open {
		info.Name = strings.TrimSpace(s)
		return info, time.Time{}
	}
	info.Name = strings.TrimSpace(s[:open])
	info.Email = s[open+1 : closeIdx]

	fields := strings.Fields(s[closeIdx+1:])
	if len(fields) == 0 {
		return info, time.Time{}
	}
	secs, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return info, time.Time{}
	}
	when := time.Unix(secs, 0)
	if len(fields) > 1 {
		if loc, ok := parseZone(fields[1]); ok {
			when = when.In(loc)
		}
	}
	return info, when
}

func parseZone(tz string) (*time.Location, bool) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return nil, false
	}
	hh, err1 := strconv.Atoi(tz[1:3])
	mm, err2 := strconv.Atoi(tz[3:5])
	if err1 != nil || err2 != nil {
		return nil, false
	}
	offset := hh*3600 + mm*60
	if tz[0] == '-' {
		offset = -offset
	}
	return time.FixedZone("", offset), true
}
