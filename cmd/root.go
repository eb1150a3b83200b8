package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/theabolton/kroftig-backend/config"
	"github.com/theabolton/kroftig-backend/internal/output"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "kroftig",
		Usage:   "Show the latest commit that changed each path of a Git repository",
		Version: "0.3.0",
		Commands: []*cli.Command{
			LatestCmd(),
			InitCmd(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
		},
		Action: defaultAction,
	}
}

// latestFlags are the flags of the latest command.
func latestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"r"},
			Usage:   "Path to Git repository",
			Value:   ".",
		},
		&cli.StringFlag{
			Name:  "rev",
			Usage: "Revision to start from (default: from config or HEAD)",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Object store backend (go-git, git-cli)",
		},
		&cli.BoolFlag{
			Name:  "listing",
			Usage: "Only report the direct children of the path",
		},
		&cli.BoolFlag{
			Name:  "relative",
			Usage: "Report paths relative to the given path",
		},
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Glob patterns to include (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns to exclude (can be specified multiple times)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (console, json, csv, markdown, ci)",
		},
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"n"},
			Usage:   "Number of paths to show (0 for all)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (default: stdout)",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log resolver progress to stderr",
		},
	}
}

// getOutputFormat parses the output format flag.
func getOutputFormat(s string) output.OutputFormat {
	switch strings.ToLower(s) {
	case "json":
		return output.FormatJSON
	case "csv":
		return output.FormatCSV
	case "markdown", "md":
		return output.FormatMarkdown
	case "ci", "ndjson":
		return output.FormatCI
	default:
		return output.FormatConsole
	}
}

// loadConfig loads configuration from file or defaults and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if backend := c.String("backend"); backend != "" {
		cfg.Repository.Backend = backend
	}
	if rev := c.String("rev"); rev != "" {
		cfg.Repository.DefaultRevision = rev
	}
	if c.IsSet("listing") {
		cfg.Latest.Listing = c.Bool("listing")
	}
	if c.IsSet("relative") {
		cfg.Latest.Relative = c.Bool("relative")
	}
	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Filters.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Filters.Exclude = excludes
	}
	if format := c.String("format"); format != "" {
		cfg.Output.Format = string(getOutputFormat(format))
	}
	if c.IsSet("top") {
		cfg.Output.Top = c.Int("top")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// defaultAction treats a bare argument as the path to report on.
func defaultAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.ShowAppHelp(c)
	}
	return latestAction(c)
}

// Run executes the CLI application.
func Run() {
	if err := App().Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
