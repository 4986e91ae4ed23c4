package gid

import "testing"

func TestID(t *testing.T) {
	if ID() == 0 {
		t.Fatalf("ID() = 0 on a live goroutine")
	}

	other := make(chan uint64, 1)
	go func() { other <- ID() }()
	if got := <-other; got == ID() {
		t.Fatalf("distinct goroutines reported the same id %d", got)
	}
}
