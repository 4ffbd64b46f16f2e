// Package tty adapts a Unix terminal for the interactive debug stepper.
//
// The shell's `debug` sub-shell normally reads whole lines (`step`, `regs`,
// `salir`). When the operator's stdin is a real terminal, the console instead
// switches the terminal to raw mode and reports every keystroke on a
// channel; the debug sub-shell treats "q" as leaving the debugger and any
// other key as one step. This is an optional convenience; every shell
// command also works against a plain pipe.
package tty

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ErrNoTTY is returned if standard input is not a terminal. Callers should
// fall back to line-buffered reads in that case.
var ErrNoTTY = errors.New("tty: not a terminal")

// Console adapts a terminal into a channel of single keystrokes.
type Console struct {
	in    *os.File
	fd    int
	state *term.State
	keyCh chan byte
}

// NewConsole puts the given input stream into raw mode. Keystrokes are read
// only once Run is started. Callers must call Restore to return the
// terminal to cooked mode.
func NewConsole(in *os.File) (*Console, error) {
	fd := int(in.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	cons := &Console{
		fd:    fd,
		in:    in,
		state: saved,
		keyCh: make(chan byte, 1),
	}

	if err := cons.setTerminalParams(1, 0); err != nil {
		_ = term.Restore(fd, saved)
		return nil, err
	}

	return cons, nil
}

// Keys returns the channel on which keystrokes are reported.
func (c *Console) Keys() <-chan byte {
	return c.keyCh
}

// Restore returns the terminal to its original state.
func (c *Console) Restore() {
	_ = os.Stdin.SetReadDeadline(time.Now())
	_ = term.Restore(c.fd, c.state)
}

// Run reads keystrokes until the context is cancelled or the stream errors.
func (c *Console) Run(ctx context.Context) {
	buf := bufio.NewReader(c.in)
	_ = syscall.SetNonblock(c.fd, false)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b, err := buf.ReadByte()
		if err != nil {
			return
		}

		select {
		case c.keyCh <- b:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Console) setTerminalParams(vmin, vtime byte) error {
	_ = syscall.SetNonblock(c.fd, true)

	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	if err := unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO); err != nil {
		return err
	}

	_ = os.Stdin.SetReadDeadline(time.Time{})

	return nil
}
