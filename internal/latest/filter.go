package latest

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PathFilter selects result paths with doublestar include/exclude globs.
type PathFilter struct {
	Include []string
	Exclude []string
}

// Validate reports the first malformed pattern.
func (f PathFilter) Validate() error {
	for _, pattern := range append(append([]string{}, f.Exclude...), f.Include...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}
	return nil
}

// Match reports whether path passes the filter. Excludes win over includes;
// an empty include list accepts everything not excluded.
func (f PathFilter) Match(path string) (bool, error) {
	path = strings.ReplaceAll(path, "\\", "/")

	for _, pattern := range f.Exclude {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			return false, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		if matched {
			return false, nil
		}
	}

	if len(f.Include) == 0 {
		return true, nil
	}

	for _, pattern := range f.Include {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			return false, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		if matched {
			return true, nil
		}
	}

	return false, nil
}

// Apply returns the subset of result whose paths pass the filter.
func (f PathFilter) Apply(result Result) (Result, error) {
	if len(f.Include) == 0 && len(f.Exclude) == 0 {
		return result, nil
	}
	out := make(Result, len(result))
	for path, entry := range result {
		ok, err := f.Match(path)
		if err != nil {
			return nil, err
		}
		if ok {
			out[path] = entry
		}
	}
	return out, nil
}
