package output

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/theabolton/kroftig-backend/internal/git"
)

const consoleSubjectWidth = 50

// ConsoleLatestWriter writes latest-change reports as an aligned table.
type ConsoleLatestWriter struct{}

// Write outputs the latest-change report to the console.
func (w *ConsoleLatestWriter) Write(report *LatestChangeReport, options OutputOptions) error {
	items := limitTop(report.Items, options.Top)

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	green := color.New(color.FgGreen)
	green.Fprintln(out, "Latest Changes")
	fmt.Fprintf(out, "Repository: %s\n", report.RepoPath)
	fmt.Fprintf(out, "Branch: %s\n", report.Branch)
	fmt.Fprintf(out, "Revision: %s (%s)\n", report.Revision, git.ShortID(report.Start))
	fmt.Fprintf(out, "Path: %s [%s]\n", filterLabel(report.FilterPath), report.Mode)
	fmt.Fprintf(out, "Total paths: %d\n\n", len(report.Items))

	if len(items) == 0 {
		fmt.Fprintln(out, "No paths found.")
		return nil
	}

	dir := color.New(color.FgBlue, color.Bold)
	sha := color.New(color.FgYellow)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Path\tCommit\tAge\tAuthor\tSubject")
	for _, item := range items {
		p := displayPath(item)
		if item.Kind == git.KindTree {
			p = dir.Sprint(p)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p,
			sha.Sprint(git.ShortID(item.Commit.ID)),
			formatAge(item.Commit.When, report.GeneratedAt),
			item.Commit.Author,
			truncateMessage(item.Commit.Subject, consoleSubjectWidth),
		)
	}
	return tw.Flush()
}
