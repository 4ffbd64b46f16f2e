// Package loader parses the line-oriented decimal program text format and
// streams words into physical memory over the bus.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/log"
)

// ErrLoad is the sentinel wrapped by every load failure.
var ErrLoad = errors.New("loader error")

// Result reports where a program landed and where execution should begin.
type Result struct {
	LoadAddress int
	NumWords    int
	IndexStart  int // zero-based entry offset from LoadAddress
}

// Loader streams program text onto a bus.
type Loader struct {
	bus *bus.Bus
	log *log.Logger
}

// New creates a loader writing through the given bus.
func New(b *bus.Bus, logger *log.Logger) *Loader {
	return &Loader{bus: b, log: logger}
}

// Load reads program text from r and writes successive words to consecutive
// physical addresses starting at baseAddress. It recognizes the `_start`,
// `.NumeroPalabras` and `.NombreProg` directives and ignores `//` comments
// and blank lines. If `.NumeroPalabras` is declared, a mismatch against the
// words actually read is a load error.
func (l *Loader) Load(r io.Reader, baseAddress int) (Result, error) {
	res := Result{LoadAddress: baseAddress}

	declaredWords := -1
	offset := 0

	scanner := bufio.NewScanner(r)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		token := fields[0]

		switch {
		case strings.HasPrefix(token, "//"):
			continue

		case token == "_start":
			n, err := directiveInt(fields, lineNo)
			if err != nil {
				return res, err
			}

			res.IndexStart = n - 1

			l.log.Debug("loader: _start", "line", lineNo, "index_start", res.IndexStart)

		case token == ".NumeroPalabras":
			n, err := directiveInt(fields, lineNo)
			if err != nil {
				return res, err
			}

			declaredWords = n

			l.log.Debug("loader: .NumeroPalabras", "line", lineNo, "declared", n)

		case token == ".NombreProg":
			name := ""
			if len(fields) > 1 {
				name = fields[1]
			}

			l.log.Debug("loader: .NombreProg", "line", lineNo, "name", name)

		default:
			word, err := strconv.Atoi(token)
			if err != nil {
				l.log.Warn("loader: ignoring unrecognized token", "line", lineNo, "token", token)
				continue
			}

			addr := baseAddress + offset

			if err := l.bus.Write(addr, word, bus.ClientLoader); err != nil {
				return res, fmt.Errorf("%w: write at %d: %w", ErrLoad, addr, err)
			}

			offset++
		}
	}

	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	res.NumWords = offset

	if declaredWords >= 0 && declaredWords != offset {
		return res, fmt.Errorf("%w: .NumeroPalabras declared %d, read %d", ErrLoad, declaredWords, offset)
	}

	l.log.Info("loader: load complete", "base", baseAddress, "words", offset, "index_start", res.IndexStart)

	return res, nil
}

func directiveInt(fields []string, lineNo int) (int, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("%w: line %d: %s missing argument", ErrLoad, lineNo, fields[0])
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s: %w", ErrLoad, lineNo, fields[0], err)
	}

	return n, nil
}
