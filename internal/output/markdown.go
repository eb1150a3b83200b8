package output

import (
	"fmt"

	"github.com/theabolton/kroftig-backend/internal/git"
)

// MarkdownLatestWriter writes latest-change reports as Markdown.
type MarkdownLatestWriter struct{}

// Write outputs the latest-change report as Markdown.
func (w *MarkdownLatestWriter) Write(report *LatestChangeReport, options OutputOptions) error {
	items := limitTop(report.Items, options.Top)

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	fmt.Fprintln(out, "# Latest Changes")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "**Repository:** %s\n\n", report.RepoPath)
	fmt.Fprintf(out, "**Branch:** %s\n\n", escapeMarkdown(report.Branch))
	fmt.Fprintf(out, "**Revision:** %s (`%s`)\n\n", escapeMarkdown(report.Revision), git.ShortID(report.Start))
	fmt.Fprintf(out, "**Path:** `%s` (%s)\n\n", filterLabel(report.FilterPath), report.Mode)
	fmt.Fprintf(out, "**Total Paths:** %d\n\n", len(report.Items))

	fmt.Fprintln(out, "| Path | Commit | Date | Author | Subject |")
	fmt.Fprintln(out, "|------|--------|------|--------|---------|")
	for _, item := range items {
		fmt.Fprintf(out, "| `%s` | `%s` | %s | %s | %s |\n",
			displayPath(item),
			git.ShortID(item.Commit.ID),
			item.Commit.When.Format("2006-01-02"),
			escapeMarkdown(item.Commit.Author),
			escapeMarkdown(item.Commit.Subject),
		)
	}

	return nil
}
