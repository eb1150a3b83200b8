package git

import (
	"fmt"
	"strconv"

	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// parseEntryMode parses the octal mode of a raw tree entry (e.g. "100644", "40000", "160000").
func parseEntryMode(s string) (filemode.FileMode, error) {
	if s == "" {
		return filemode.Empty, fmt.Errorf("%w: empty entry mode", ErrMalformedTree)
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return filemode.Empty, fmt.Errorf("%w: parse entry mode %q: %v", ErrMalformedTree, s, err)
	}
	mode := filemode.FileMode(v)
	if mode == filemode.Empty || mode.IsMalformed() {
		return filemode.Empty, fmt.Errorf("%w: unsupported entry mode %q", ErrMalformedTree, s)
	}
	return mode, nil
}
