// Package shell implements the interactive command loop: cargar, ejecutar,
// debug and salir, plus the debug subshell's step and regs commands.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/cpu"
	"github.com/ucv-so/minikernel/internal/dma"
	"github.com/ucv-so/minikernel/internal/loader"
	"github.com/ucv-so/minikernel/internal/log"
	"github.com/ucv-so/minikernel/internal/tty"
)

// UserProgramStart is the physical base address every `cargar` loads a
// program at.
const UserProgramStart = 300

// SystemStackStart is the SP a freshly loaded user program starts with.
const SystemStackStart = 299

// Shell is the REPL: it owns the machine's external-facing controls (the
// loader and CPU) and drives the CPU to completion on `ejecutar`, or one
// tick at a time under `debug`.
type Shell struct {
	out io.Writer
	in  *bufio.Scanner

	bus    *bus.Bus
	dma    *dma.Controller
	cpu    *cpu.CPU
	loader *loader.Loader
	log    *log.Logger

	console *tty.Console // optional, set via WithConsole

	result loader.Result
	loaded bool
}

// New creates a shell reading commands from in and writing output to out.
func New(b *bus.Bus, d *dma.Controller, c *cpu.CPU, l *loader.Loader, logger *log.Logger, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		out:    out,
		in:     bufio.NewScanner(in),
		bus:    b,
		dma:    d,
		cpu:    c,
		loader: l,
		log:    logger,
	}
}

// WithConsole attaches a raw-mode terminal console; when set, the debug
// subshell accepts a single keystroke per step instead of reading a "step"
// line.
func (s *Shell) WithConsole(c *tty.Console) {
	s.console = c
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) printBanner() {
	s.printf("\nminikernel shell\n")
	s.printf("Commands:\n")
	s.printf("  cargar <file>  - load a program into memory\n")
	s.printf("  ejecutar       - run the loaded program\n")
	s.printf("  debug          - single-step with state dump\n")
	s.printf("  salir          - shut down\n\n")
}

func (s *Shell) printRegisters() {
	s.printf("\n[CPU STATE] ------------------------------------\n")
	s.printf(" %s\n", s.cpu.String())
	s.printf("--------------------------------------------------\n")
}

// Run drives the shell until `salir` or EOF on the input.
func (s *Shell) Run(ctx context.Context) error {
	s.printBanner()

	for {
		s.printf("Shell> ")

		if !s.in.Scan() {
			break
		}

		line := strings.TrimSpace(s.in.Text())

		switch {
		case line == "salir":
			s.printf("shutting down...\n")
			return s.shutdown(ctx)

		case line == "ejecutar":
			s.ejecutar(ctx)

		case line == "debug":
			s.debug(ctx)

		case strings.HasPrefix(line, "cargar "):
			s.cargar(strings.TrimSpace(strings.TrimPrefix(line, "cargar ")))

		case line == "":
			// ignore blank lines

		default:
			s.printf("unrecognized command: %q\n", line)
		}
	}

	return s.in.Err()
}

func (s *Shell) shutdown(ctx context.Context) error {
	return s.dma.Shutdown(ctx)
}

// cargar loads filename at UserProgramStart and configures the CPU for a
// fresh User-mode run, per the loader's external contract.
func (s *Shell) cargar(filename string) {
	if filename == "" {
		s.printf("usage: cargar <file>\n")
		return
	}

	f, err := os.Open(filename)
	if err != nil {
		s.printf("error: could not open %q: %v\n", filename, err)
		return
	}
	defer f.Close()

	res, err := s.loader.Load(f, UserProgramStart)
	if err != nil {
		s.printf("error: load failed: %v\n", err)
		s.loaded = false

		return
	}

	s.result = res
	s.loaded = true
	s.resetProcess()

	s.printf("program loaded: PC=%d RB=%d RL=%d\n", s.cpu.Ctx.PSW.PC, s.cpu.Ctx.RB, s.cpu.Ctx.RL)
}

// resetProcess configures the CPU the way a freshly loaded (or restarted)
// user program expects: RB at the load address, RL at the end of memory,
// PC at the entry offset, the system stack pointer, and User mode.
func (s *Shell) resetProcess() {
	s.cpu.Ctx = cpu.Context{}
	s.cpu.Ctx.RB = s.result.LoadAddress
	s.cpu.Ctx.RL = 1999
	s.cpu.Ctx.PSW.PC = s.result.IndexStart
	s.cpu.Ctx.SP = SystemStackStart
	s.cpu.Ctx.PSW.Mode = cpu.ModeUser
	s.cpu.Ctx.PSW.Interrupts = 1
}

// programFinished reports whether the user-mode PC has run off the end of
// the loaded words. An interrupt still waiting to be serviced (raised by
// the instruction that just ran) postpones the check — the kernel trap
// handler must run even if the faulting PC already sits past NumWords.
func (s *Shell) programFinished() bool {
	if s.cpu.Latch().Pending() {
		return false
	}

	return s.cpu.Ctx.PSW.Mode == cpu.ModeUser && s.cpu.Ctx.PSW.PC >= s.result.NumWords
}

// ejecutar runs the loaded program to completion: either a fatal interrupt,
// or the user-mode PC running off the end of the loaded words.
func (s *Shell) ejecutar(ctx context.Context) {
	if !s.loaded {
		s.printf("error: no program loaded\n")
		return
	}

	if s.programFinished() {
		s.printf(">> restarting program from the top\n")
		s.resetProcess()
	}

	s.printf("running...\n")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := s.cpu.Step()

		var fatal *cpu.FatalError
		if errors.As(err, &fatal) {
			s.printf(">> CPU halted (code %d)\n", fatal.Code)
			s.printRegisters()

			return
		} else if err != nil {
			s.printf(">> run aborted: %v\n", err)
			return
		}

		if s.programFinished() {
			s.printf(">> program finished: PC=%d\n", s.cpu.Ctx.PSW.PC)
			s.printRegisters()

			return
		}
	}
}

// debug runs the program one tick at a time, dumping state after each step,
// announcing the instruction about to run beforehand.
func (s *Shell) debug(ctx context.Context) {
	if !s.loaded {
		s.printf("error: no program loaded\n")
		return
	}

	s.log.Info("debug mode entered")
	s.printf("commands: 'step', 'regs', 'salir'\n")
	s.printRegisters()

	for {
		s.printf("Debug> ")

		cmd, ok := s.readDebugCommand()
		if !ok {
			return
		}

		switch cmd {
		case "step":
			s.debugStep(ctx)
		case "regs":
			s.printRegisters()
		case "salir":
			s.log.Info("debug mode exited")
			s.printf("leaving debugger\n")

			return
		default:
			s.printf("unknown debug command\n")
		}
	}
}

// readDebugCommand reads one debug-subshell command, either from the raw
// console ("q" leaves, any other keystroke steps) or by reading a line.
func (s *Shell) readDebugCommand() (string, bool) {
	if s.console != nil {
		select {
		case key := <-s.console.Keys():
			if key == 'q' {
				return "salir", true
			}

			return "step", true
		default:
		}
	}

	if !s.in.Scan() {
		return "", false
	}

	return strings.TrimSpace(s.in.Text()), true
}

func (s *Shell) debugStep(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	before := s.describeNext()
	s.printf("\n>> executing %s\n", before)

	err := s.cpu.Step()

	s.printRegisters()

	var fatal *cpu.FatalError
	if errors.As(err, &fatal) {
		s.log.Info("debug mode exited")
		s.printf(">> program finished (code %d)\n", fatal.Code)
	}
}

// describeNext peeks at the instruction the next Step will fetch, without
// mutating CPU state, purely for the debug announcement.
func (s *Shell) describeNext() string {
	pc := s.cpu.Ctx.PSW.PC
	phys := pc

	if s.cpu.Ctx.PSW.Mode == cpu.ModeUser {
		phys += s.cpu.Ctx.RB
	}

	word, err := s.bus.Read(phys, bus.ClientCPU)
	if err != nil {
		return fmt.Sprintf("line %d (PC=%d) | <unreadable>", pc+1, pc)
	}

	opcode := word / 1_000_000

	return fmt.Sprintf("line %d (PC=%d) | %s", pc+1, pc, cpu.Mnemonic(opcode))
}
