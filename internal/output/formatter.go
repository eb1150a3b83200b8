package output

import (
	"time"

	"github.com/theabolton/kroftig-backend/internal/git"
)

// Compile-time interface conformance checks.
var (
	_ LatestReportWriter = (*ConsoleLatestWriter)(nil)
	_ LatestReportWriter = (*JSONLatestWriter)(nil)
	_ LatestReportWriter = (*CSVLatestWriter)(nil)
	_ LatestReportWriter = (*MarkdownLatestWriter)(nil)
	_ LatestReportWriter = (*CILatestWriter)(nil)
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
	FormatMarkdown OutputFormat = "markdown"
	FormatCI       OutputFormat = "ci"
)

// OutputOptions controls output behavior.
type OutputOptions struct {
	Format     OutputFormat
	Top        int
	OutputPath string
}

// CommitSummary describes the commit that last changed a path.
type CommitSummary struct {
	ID      git.ContentID
	Subject string
	Author  string
	Email   string
	When    time.Time
}

// LatestChangeItem is one row of a latest-change report.
type LatestChangeItem struct {
	// Path is root-relative, or relative to the filter path when the report was built that way.
	Path      string
	Kind      git.ObjectKind
	ContentID git.ContentID
	Commit    CommitSummary
}

// LatestChangeReport holds the latest changing commit for every path under a filter.
type LatestChangeReport struct {
	RepoPath    string
	Branch      string
	Revision    string
	Start       git.ContentID
	FilterPath  string
	Mode        string
	Relative    bool
	GeneratedAt time.Time
	Items       []LatestChangeItem
}

// LatestReportWriter writes latest-change reports.
type LatestReportWriter interface {
	Write(report *LatestChangeReport, options OutputOptions) error
}

// NewLatestReportWriter creates a report writer for the specified format.
func NewLatestReportWriter(format OutputFormat) LatestReportWriter {
	switch format {
	case FormatJSON:
		return &JSONLatestWriter{}
	case FormatCSV:
		return &CSVLatestWriter{}
	case FormatMarkdown:
		return &MarkdownLatestWriter{}
	case FormatCI:
		return &CILatestWriter{}
	default:
		return &ConsoleLatestWriter{}
	}
}
