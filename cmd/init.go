package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/theabolton/kroftig-backend/config"
)

// InitCmd returns the command that writes a default configuration file.
func InitCmd() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Write a default " + config.FileName + " file",
		ArgsUsage: "[directory]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing configuration file",
			},
		},
		Action: initAction,
	}
}

func initAction(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, config.FileName)

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	color.New(color.FgGreen).Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}
