package output

import (
	"encoding/csv"
)

// CSVLatestWriter writes latest-change reports as CSV.
type CSVLatestWriter struct{}

// Write outputs the latest-change report as CSV.
func (w *CSVLatestWriter) Write(report *LatestChangeReport, options OutputOptions) error {
	items := limitTop(report.Items, options.Top)

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}
	writer := csv.NewWriter(out)

	headers := []string{"Path", "Kind", "ContentID", "CommitSHA", "CommitDate", "Author", "Subject"}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, item := range items {
		row := []string{
			item.Path,
			item.Kind.String(),
			item.ContentID.String(),
			item.Commit.ID.String(),
			item.Commit.When.Format(reportDateTimeLayout),
			item.Commit.Author,
			item.Commit.Subject,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
