package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// JSONLatestWriter writes latest-change reports as JSON.
type JSONLatestWriter struct{}

// JSONLatestReport is the JSON output structure for a latest-change report.
type JSONLatestReport struct {
	RepoPath    string           `json:"repo"`
	Branch      string           `json:"branch"`
	Revision    string           `json:"revision"`
	Start       string           `json:"start"`
	FilterPath  string           `json:"path"`
	Mode        string           `json:"mode"`
	Relative    bool             `json:"relative"`
	GeneratedAt string           `json:"generatedAt"`
	TotalPaths  int              `json:"totalPaths"`
	Items       []JSONLatestItem `json:"items"`
}

// JSONLatestItem is the JSON output structure for a single path.
type JSONLatestItem struct {
	Path      string     `json:"path"`
	Kind      string     `json:"kind"`
	ContentID string     `json:"contentId"`
	Commit    JSONCommit `json:"commit"`
}

// JSONCommit holds the metadata of a path's latest commit in JSON format.
type JSONCommit struct {
	SHA     string `json:"sha"`
	Subject string `json:"subject"`
	Author  string `json:"author"`
	Email   string `json:"email"`
	When    string `json:"when"`
}

// Write outputs the latest-change report as JSON.
func (w *JSONLatestWriter) Write(report *LatestChangeReport, options OutputOptions) error {
	items := limitTop(report.Items, options.Top)

	jsonItems := make([]JSONLatestItem, len(items))
	for i, item := range items {
		jsonItems[i] = JSONLatestItem{
			Path:      item.Path,
			Kind:      item.Kind.String(),
			ContentID: item.ContentID.String(),
			Commit: JSONCommit{
				SHA:     item.Commit.ID.String(),
				Subject: item.Commit.Subject,
				Author:  item.Commit.Author,
				Email:   item.Commit.Email,
				When:    item.Commit.When.Format(time.RFC3339),
			},
		}
	}

	jsonReport := JSONLatestReport{
		RepoPath:    report.RepoPath,
		Branch:      report.Branch,
		Revision:    report.Revision,
		Start:       report.Start.String(),
		FilterPath:  report.FilterPath,
		Mode:        report.Mode,
		Relative:    report.Relative,
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		TotalPaths:  len(report.Items),
		Items:       jsonItems,
	}

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}
	return writeJSON(out, jsonReport)
}

func writeJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
