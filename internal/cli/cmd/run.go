package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ucv-so/minikernel/internal/cli"
	"github.com/ucv-so/minikernel/internal/cpu"
	"github.com/ucv-so/minikernel/internal/log"
)

// Run creates the `run` sub-command: a non-interactive batch run of a
// single program file, for scripting and CI use, without the shell's REPL.
func Run() cli.Command {
	return &runCmd{log: log.DefaultLogger()}
}

type runCmd struct {
	log *log.Logger
}

func (runCmd) Description() string {
	return "load and run a single program, non-interactively"
}

func (runCmd) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run program.txt

Loads and runs a program to completion without the interactive shell.
Exit code is 0 on a clean finish, the interrupt code when the CPU halts on
a fatal interrupt, 2 on wrong usage, and 1 on any other failure.`)

	return err
}

func (runCmd) FlagSet() *cli.FlagSet {
	return flag.NewFlagSet("run", flag.ExitOnError)
}

func (r *runCmd) Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: run program.txt")
		return 2
	}

	m, err := newMachine(logger)
	if err != nil {
		logger.Error("failed to initialize machine", "err", err)
		return 1
	}

	f, err := os.Open(args[0])
	if err != nil {
		logger.Error("could not open program", "err", err)
		return 1
	}
	defer f.Close()

	const userProgramStart = 300

	res, err := m.loader.Load(f, userProgramStart)
	if err != nil {
		logger.Error("load failed", "err", err)
		return 1
	}

	m.cpu.Ctx.RB = res.LoadAddress
	m.cpu.Ctx.RL = 1999
	m.cpu.Ctx.PSW.PC = res.IndexStart
	m.cpu.Ctx.SP = 299
	m.cpu.Ctx.PSW.Mode = cpu.ModeUser
	m.cpu.Ctx.PSW.Interrupts = 1

	for {
		select {
		case <-ctx.Done():
			return 1
		default:
		}

		stepErr := m.cpu.Step()

		var fatal *cpu.FatalError
		if errors.As(stepErr, &fatal) {
			fmt.Fprintf(out, "halted: code %d\n", fatal.Code)
			return fatal.Code
		} else if stepErr != nil {
			logger.Error("run aborted", "err", stepErr)
			return 1
		}

		if m.cpu.Ctx.PSW.Mode == cpu.ModeUser &&
			!m.cpu.Latch().Pending() &&
			m.cpu.Ctx.PSW.PC >= res.NumWords {
			fmt.Fprintf(out, "finished: PC=%d\n", m.cpu.Ctx.PSW.PC)
			return 0
		}
	}
}
