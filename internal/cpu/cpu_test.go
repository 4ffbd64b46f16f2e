package cpu_test

import (
	"errors"
	"testing"

	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/cpu"
	"github.com/ucv-so/minikernel/internal/disk"
	"github.com/ucv-so/minikernel/internal/dma"
	"github.com/ucv-so/minikernel/internal/latch"
	"github.com/ucv-so/minikernel/internal/log"
	"github.com/ucv-so/minikernel/internal/mem"
)

type testMachine struct {
	bus *bus.Bus
	cpu *cpu.CPU
}

func newMachine(t *testing.T) *testMachine {
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

	return &testMachine{bus: b, cpu: c}
}

// TestArithmeticAndSyscallReturn is scenario S1: LOAD, SUM, SVC, then the
// default RETRN stub unwinds back with AC intact.
func TestArithmeticAndSyscallReturn(t *testing.T) {
	m := newMachine(t)

	m.cpu.Ctx.PSW.Mode = cpu.ModeKernel
	m.cpu.Ctx.PSW.PC = 300

	mustWrite(t, m.bus, 300, 4_100_005) // LOAD immediate 5
	mustWrite(t, m.bus, 301, 100_003) // SUM immediate 3
	mustWrite(t, m.bus, 302, 13_000_000) // SVC

	if err := m.cpu.Step(); err != nil {
		t.Fatalf("LOAD step: %v", err)
	}

	if m.cpu.Ctx.AC != 5 {
		t.Fatalf("AC after LOAD = %d, want 5", m.cpu.Ctx.AC)
	}

	if err := m.cpu.Step(); err != nil {
		t.Fatalf("SUM step: %v", err)
	}

	if m.cpu.Ctx.AC != 8 || m.cpu.Ctx.PSW.CC != cpu.CCPositive {
		t.Fatalf("after SUM: AC=%d CC=%d, want AC=8 CC=2", m.cpu.Ctx.AC, m.cpu.Ctx.PSW.CC)
	}

	if err := m.cpu.Step(); err != nil { // SVC: raises SYSCALL, tick completes
		t.Fatalf("SVC step: %v", err)
	}

	if err := m.cpu.Step(); err != nil { // interrupt entry
		t.Fatalf("interrupt entry step: %v", err)
	}

	if err := m.cpu.Step(); err != nil { // RETRN at the stub
		t.Fatalf("RETRN step: %v", err)
	}

	if m.cpu.Ctx.AC != 8 {
		t.Errorf("AC after RETRN = %d, want 8", m.cpu.Ctx.AC)
	}

	if m.cpu.Ctx.PSW.PC != 303 {
		t.Errorf("PC after RETRN = %d, want 303", m.cpu.Ctx.PSW.PC)
	}
}

// TestSegmentationViolationIsFatal is scenario S2.
func TestSegmentationViolationIsFatal(t *testing.T) {
	m := newMachine(t)

	m.cpu.Ctx.PSW.Mode = cpu.ModeUser
	m.cpu.Ctx.RB = 300
	m.cpu.Ctx.RL = 310
	m.cpu.Ctx.PSW.PC = 0
	m.cpu.Ctx.AC = 42

	mustWrite(t, m.bus, 300, 5_000_050) // STR direct 50 -> eff phys 350

	if err := m.cpu.Step(); err != nil {
		t.Fatalf("STR step: %v", err)
	}

	var fatal *cpu.FatalError

	err := m.cpu.Step()
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}

	got, rerr := m.bus.Read(350, bus.ClientCPU)
	if rerr != nil {
		t.Fatalf("Read(350): %v", rerr)
	}

	if got != 0 {
		t.Errorf("mem[350] = %d, want 0 (untouched)", got)
	}
}

// TestDivisionByZeroIsFatal is scenario S3.
func TestDivisionByZeroIsFatal(t *testing.T) {
	m := newMachine(t)

	m.cpu.Ctx.PSW.Mode = cpu.ModeKernel
	m.cpu.Ctx.PSW.PC = 300
	m.cpu.Ctx.AC = 10 // encoded +10

	mustWrite(t, m.bus, 300, 3_100_000) // DIVI immediate 0

	if err := m.cpu.Step(); err != nil {
		t.Fatalf("DIVI step: %v", err)
	}

	if m.cpu.Ctx.AC != 10 {
		t.Errorf("AC = %d, want 10 (preserved)", m.cpu.Ctx.AC)
	}

	var fatal *cpu.FatalError

	if err := m.cpu.Step(); !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}
}

// TestStackSaveRestoreAcrossSoftwareInterrupt is scenario S6.
func TestStackSaveRestoreAcrossSoftwareInterrupt(t *testing.T) {
	m := newMachine(t)

	m.cpu.Ctx.PSW.Mode = cpu.ModeUser
	m.cpu.Ctx.RB = 300
	m.cpu.Ctx.RL = 1999
	m.cpu.Ctx.PSW.PC = 0
	m.cpu.Ctx.AC = 7
	m.cpu.Ctx.RX = 9
	m.cpu.Ctx.PSW.CC = cpu.CCPositive
	m.cpu.Ctx.PSW.Interrupts = 1

	mustWrite(t, m.bus, 300, 13_000_000) // SVC

	if err := m.cpu.Step(); err != nil { // SVC
		t.Fatalf("SVC step: %v", err)
	}

	if err := m.cpu.Step(); err != nil { // interrupt entry
		t.Fatalf("interrupt entry step: %v", err)
	}

	if err := m.cpu.Step(); err != nil { // RETRN at the stub
		t.Fatalf("RETRN step: %v", err)
	}

	want := cpu.Context{
		AC: 7, RX: 9,
		RB: 300, RL: 1999,
	}
	want.PSW = cpu.PSW{CC: cpu.CCPositive, Mode: cpu.ModeUser, Interrupts: 1, PC: 1}

	got := m.cpu.Ctx

	if got.AC != want.AC || got.RX != want.RX || got.RB != want.RB || got.RL != want.RL {
		t.Errorf("registers = %+v, want %+v", got, want)
	}

	if got.PSW != want.PSW {
		t.Errorf("PSW = %+v, want %+v", got.PSW, want.PSW)
	}
}

func mustWrite(t *testing.T, b *bus.Bus, addr, value int) {
	t.Helper()

	if err := b.Write(addr, value, bus.ClientLoader); err != nil {
		t.Fatalf("Write(%d, %d): %v", addr, value, err)
	}
}
