// Package version implements the "version" subcommand.
package version

import (
	"fmt"

	"github.com/mitchellh/cli"

	"github.com/collabhub/server/internal/version"
)

// Command implements the "version" subcommand.
type Command struct {
	UI cli.Ui
}

func (c *Command) Synopsis() string {
	return "Print the build version"
}

func (c *Command) Help() string {
	return "Usage: collabhub version"
}

func (c *Command) Run(args []string) int {
	c.UI.Output(fmt.Sprintf("collabhub %s", version.Version))
	return 0
}
