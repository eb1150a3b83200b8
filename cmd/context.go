package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/theabolton/kroftig-backend/config"
	"github.com/theabolton/kroftig-backend/internal/git"
	"github.com/theabolton/kroftig-backend/internal/output"
)

// CommandContext holds common state for command execution.
type CommandContext struct {
	Config   *config.Config
	RepoPath string
	Repo     git.Repository
	Revision string
	Start    git.ContentID
	Branch   string
	Log      *logrus.Logger
}

// NewCommandContext loads configuration, opens the repository and resolves the start revision.
func NewCommandContext(c *cli.Context) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	log := newLogger(c.App.ErrWriter, c.Bool("verbose"))

	repoPath := c.String("repo")
	if repoPath == "" {
		repoPath = "."
	}
	backend, err := git.ParseBackend(cfg.Repository.Backend)
	if err != nil {
		return nil, err
	}
	repo, err := git.OpenRepository(repoPath, backend)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	branch := repo.CurrentBranch(c.Context)
	start, err := repo.ResolveRevision(c.Context, cfg.Repository.DefaultRevision)
	if err != nil {
		repo.Close()
		if branch == git.UnknownBranch {
			return nil, fmt.Errorf("repository has no commits: %w", err)
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"repo":     repoPath,
		"backend":  backend,
		"branch":   branch,
		"revision": cfg.Repository.DefaultRevision,
		"start":    start.String(),
	}).Debug("repository opened")

	return &CommandContext{
		Config:   cfg,
		RepoPath: repoPath,
		Repo:     repo,
		Revision: cfg.Repository.DefaultRevision,
		Start:    start,
		Branch:   branch,
		Log:      log,
	}, nil
}

// OutputOptions creates OutputOptions from the merged configuration and CLI flags.
func (cc *CommandContext) OutputOptions(c *cli.Context) output.OutputOptions {
	return output.OutputOptions{
		Format:     getOutputFormat(cc.Config.Output.Format),
		Top:        cc.Config.Output.Top,
		OutputPath: c.String("output"),
	}
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	if w == nil {
		w = os.Stderr
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.WarnLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
