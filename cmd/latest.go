package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/theabolton/kroftig-backend/internal/latest"
	"github.com/theabolton/kroftig-backend/internal/output"
)

// LatestCmd returns the latest command.
func LatestCmd() *cli.Command {
	return &cli.Command{
		Name:      "latest",
		Aliases:   []string{"l"},
		Usage:     "Find the latest commit that changed each path",
		ArgsUsage: "[path]",
		Flags:     latestFlags(),
		Action:    latestAction,
	}
}

func latestAction(c *cli.Context) error {
	began := time.Now()

	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cc.Repo.Close()
	cfg := cc.Config

	filterPath := latest.NormalizeFilterPath(c.Args().First())
	mode := latest.ModeRecursive
	if cfg.Latest.Listing {
		mode = latest.ModeListing
	}

	resolver := latest.NewResolver(cc.Repo, latest.WithMode(mode), latest.WithLogger(cc.Log))
	result, err := resolver.Resolve(c.Context, cc.Start, filterPath)
	if err != nil {
		return fmt.Errorf("failed to resolve latest changes: %w", err)
	}

	// Globs match root-relative paths, before any relative rewrite.
	filter := latest.PathFilter{Include: cfg.Filters.Include, Exclude: cfg.Filters.Exclude}
	result, err = filter.Apply(result)
	if err != nil {
		return err
	}

	items, err := output.BuildItems(c.Context, cc.Repo, result, filterPath, cfg.Latest.Relative)
	if err != nil {
		return err
	}

	report := &output.LatestChangeReport{
		RepoPath:    cc.RepoPath,
		Branch:      cc.Branch,
		Revision:    cc.Revision,
		Start:       cc.Start,
		FilterPath:  filterPath,
		Mode:        mode.String(),
		Relative:    cfg.Latest.Relative,
		GeneratedAt: time.Now(),
		Items:       items,
	}

	opts := cc.OutputOptions(c)
	if err := output.NewLatestReportWriter(opts.Format).Write(report, opts); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	stats := resolver.Stats()
	cc.Log.WithFields(logrus.Fields{
		"visited":   stats.CommitsVisited,
		"flattened": stats.TreesFlattened,
		"resolved":  stats.PathsResolved,
		"reported":  len(items),
	}).Debug("report written")

	if opts.Format == output.FormatConsole && opts.OutputPath == "" {
		color.New(color.FgCyan).Fprintf(c.App.ErrWriter, "\nResolved %s paths across %s commits in %v\n",
			humanize.Comma(int64(stats.PathsResolved)),
			humanize.Comma(int64(stats.CommitsVisited)),
			time.Since(began).Round(time.Millisecond))
	}
	return nil
}
