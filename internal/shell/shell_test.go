package shell_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/cpu"
	"github.com/ucv-so/minikernel/internal/disk"
	"github.com/ucv-so/minikernel/internal/dma"
	"github.com/ucv-so/minikernel/internal/latch"
	"github.com/ucv-so/minikernel/internal/loader"
	"github.com/ucv-so/minikernel/internal/log"
	"github.com/ucv-so/minikernel/internal/mem"
	"github.com/ucv-so/minikernel/internal/shell"
)

const program = `.NumeroPalabras 3
_start 1
04100005
00100003
13000000
`

func writeProgram(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "demo.txt")

	if err := os.WriteFile(path, []byte(program), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

func newTestShell(t *testing.T, in string, out *bytes.Buffer) *shell.Shell {
	t.Helper()

	logger := log.DefaultLogger()
	b := bus.New(mem.New(), logger)
	d := disk.New(logger)

	var l latch.Latch

	dc := dma.New(b, d, &l, logger)
	c := cpu.New(b, dc, &l, logger)

	if err := cpu.BootstrapVector(b, cpu.DefaultStub); err != nil {
		t.Fatalf("BootstrapVector: %v", err)
	}

	ld := loader.New(b, logger)

	return shell.New(b, dc, c, ld, logger, strings.NewReader(in), out)
}

func TestCargarThenEjecutarRunsToCompletion(t *testing.T) {
	path := writeProgram(t)

	var out bytes.Buffer

	input := "cargar " + path + "\nejecutar\nsalir\n"
	s := newTestShell(t, input, &out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := out.String()

	if !strings.Contains(got, "program loaded") {
		t.Errorf("output missing load confirmation: %q", got)
	}

	if !strings.Contains(got, "program finished") {
		t.Errorf("output missing completion: %q", got)
	}
}

func TestEjecutarWithoutLoadIsAnError(t *testing.T) {
	var out bytes.Buffer

	s := newTestShell(t, "ejecutar\nsalir\n", &out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out.String(), "no program loaded") {
		t.Errorf("expected 'no program loaded' error, got %q", out.String())
	}
}

func TestCargarWithMissingFileReportsError(t *testing.T) {
	var out bytes.Buffer

	s := newTestShell(t, "cargar /no/such/file\nsalir\n", &out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out.String(), "could not open") {
		t.Errorf("expected open error, got %q", out.String())
	}
}
