package cmd

import (
	"bufio"
	"os"

	"github.com/mitchellh/cli"

	"github.com/collabhub/server/internal/cmd/commands/serve"
	versioncmd "github.com/collabhub/server/internal/cmd/commands/version"
	"github.com/collabhub/server/internal/version"
)

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	cliName := args[0]

	if len(args) == 2 &&
		(args[1] == "-version" ||
			args[1] == "-v") {
		args = []string{cliName, "version"}
	}

	// If no subcommand is provided, default to 'serve'.
	if len(args) == 1 {
		args = append(args, "serve")
	}

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	c := &cli.CLI{
		Name:    cliName,
		Args:    args[1:],
		Version: version.Version,
		Commands: map[string]cli.CommandFactory{
			"serve": func() (cli.Command, error) {
				return &serve.Command{UI: ui}, nil
			},
			"version": func() (cli.Command, error) {
				return &versioncmd.Command{UI: ui}, nil
			},
		},
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	return exitCode
}
