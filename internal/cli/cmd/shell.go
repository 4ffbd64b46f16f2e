package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ucv-so/minikernel/internal/cli"
	"github.com/ucv-so/minikernel/internal/log"
	"github.com/ucv-so/minikernel/internal/shell"
	"github.com/ucv-so/minikernel/internal/tty"
)

// Shell creates the `shell` sub-command: an interactive cargar/ejecutar/
// debug/salir session against a freshly wired machine.
func Shell() cli.Command {
	return &shellCmd{log: log.DefaultLogger()}
}

type shellCmd struct {
	console bool
	log     *log.Logger
}

func (shellCmd) Description() string {
	return "start the interactive shell"
}

func (shellCmd) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `shell

Starts the interactive shell: cargar <file>, ejecutar, debug, salir.`)

	return err
}

func (s *shellCmd) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	fs.BoolVar(&s.console, "console", false, "step the debugger with a single keystroke instead of a command line")

	return fs
}

func (s *shellCmd) Run(ctx context.Context, _ []string, out io.Writer, logger *log.Logger) int {
	m, err := newMachine(logger)
	if err != nil {
		logger.Error("failed to initialize machine", "err", err)
		return 1
	}

	sh := shell.New(m.bus, m.dma, m.cpu, m.loader, logger, os.Stdin, out)

	if s.console {
		console, err := tty.NewConsole(os.Stdin)
		if err != nil {
			logger.Warn("console unavailable, falling back to line input", "err", err)
		} else {
			defer console.Restore()

			go console.Run(ctx)

			sh.WithConsole(console)
		}
	}

	if err := sh.Run(ctx); err != nil {
		logger.Error("shell exited with error", "err", err)
		return 1
	}

	return 0
}
