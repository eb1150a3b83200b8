package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/theabolton/kroftig-backend/internal/git"
)

// CILatestWriter writes latest-change reports as NDJSON (one JSON object per line) for CI pipelines.
type CILatestWriter struct{}

// CISummary is the first line of CI output, containing aggregate statistics.
type CISummary struct {
	Type        string `json:"type"`
	Start       string `json:"start"`
	TotalPaths  int    `json:"totalPaths"`
	Directories int    `json:"directories"`
	Commits     int    `json:"commits"`
	Newest      string `json:"newest,omitempty"`
	Oldest      string `json:"oldest,omitempty"`
}

// CIPathEntry represents a single path in CI output.
type CIPathEntry struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Commit string `json:"commit"`
	When   string `json:"when"`
}

// Write outputs the latest-change report as NDJSON.
func (w *CILatestWriter) Write(report *LatestChangeReport, options OutputOptions) error {
	items := limitTop(report.Items, options.Top)

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	// Totals cover the whole report; Top only limits the path lines.
	summary := CISummary{Type: "summary", Start: report.Start.String(), TotalPaths: len(report.Items)}
	commits := make(map[git.ContentID]struct{})
	var newest, oldest time.Time
	for _, item := range report.Items {
		if item.Kind == git.KindTree {
			summary.Directories++
		}
		commits[item.Commit.ID] = struct{}{}
		if newest.IsZero() || item.Commit.When.After(newest) {
			newest = item.Commit.When
		}
		if oldest.IsZero() || item.Commit.When.Before(oldest) {
			oldest = item.Commit.When
		}
	}
	summary.Commits = len(commits)
	if len(report.Items) > 0 {
		summary.Newest = newest.Format(time.RFC3339)
		summary.Oldest = oldest.Format(time.RFC3339)
	}
	if err := writeNDJSONLine(out, summary); err != nil {
		return err
	}

	for _, item := range items {
		entry := CIPathEntry{
			Type:   "path",
			Path:   item.Path,
			Kind:   item.Kind.String(),
			Commit: item.Commit.ID.String(),
			When:   item.Commit.When.Format(time.RFC3339),
		}
		if err := writeNDJSONLine(out, entry); err != nil {
			return err
		}
	}

	return nil
}

func writeNDJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal NDJSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
