package output

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/theabolton/kroftig-backend/internal/git"
)

const reportDateTimeLayout = "2006-01-02T15:04:05"

func limitTop[T any](items []T, top int) []T {
	if top <= 0 || top >= len(items) {
		return items
	}
	return items[:top]
}

func openOutputWriter(outputPath string) (io.Writer, *os.File, error) {
	if outputPath == "" {
		return os.Stdout, nil, nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return file, file, nil
}

// truncateMessage shortens msg to at most maxLen runes.
func truncateMessage(msg string, maxLen int) string {
	runes := []rune(msg)
	if len(runes) <= maxLen {
		return msg
	}
	if maxLen <= 0 {
		return ""
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
	)
	return replacer.Replace(s)
}

// formatAge renders when relative to now, e.g. "3 days ago".
func formatAge(when, now time.Time) string {
	if when.IsZero() {
		return ""
	}
	return humanize.RelTime(when, now, "ago", "from now")
}

// displayPath marks directories with a trailing slash and shows the filter root as ".".
func displayPath(item LatestChangeItem) string {
	p := item.Path
	if p == "" {
		p = "."
	}
	if item.Kind == git.KindTree && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// filterLabel returns the filter path as shown in report headers.
func filterLabel(filterPath string) string {
	if filterPath == "" {
		return "/"
	}
	return filterPath
}
