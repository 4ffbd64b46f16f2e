// Command minikernel is the command-line interface to the simulator: an
// interactive shell and a non-interactive batch runner.
package main

import (
	"context"
	"os"

	"github.com/ucv-so/minikernel/internal/cli"
	"github.com/ucv-so/minikernel/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Shell(),
	cmd.Run(),
}

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
