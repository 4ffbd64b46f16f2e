package latch_test

import (
	"testing"

	"github.com/ucv-so/minikernel/internal/latch"
)

func TestPopDrainsPending(t *testing.T) {
	var l latch.Latch

	if _, ok := l.Pop(); ok {
		t.Fatal("Pop: expected nothing pending on a fresh latch")
	}

	l.Raise(4)

	if !l.Pending() {
		t.Fatal("Pending: expected true after Raise")
	}

	code, ok := l.Pop()
	if !ok || code != 4 {
		t.Fatalf("Pop = (%d, %v), want (4, true)", code, ok)
	}

	if _, ok := l.Pop(); ok {
		t.Fatal("Pop: expected drained latch to report nothing pending")
	}
}

func TestSecondRaiseOverwritesFirst(t *testing.T) {
	var l latch.Latch

	l.Raise(1)
	l.Raise(8)

	code, ok := l.Pop()
	if !ok || code != 8 {
		t.Fatalf("Pop = (%d, %v), want (8, true)", code, ok)
	}
}
