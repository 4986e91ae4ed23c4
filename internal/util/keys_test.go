package util

import "testing"

func TestSetKey(t *testing.T) {
	if got, want := SetKey([]uintptr{0x1A, 2, 1}), "1,2,1a,"; got != want {
		t.Fatalf("SetKey = %q, want %q", got, want)
	}
	if SetKey([]uintptr{3, 1, 2}) != SetKey([]uintptr{2, 3, 1, 1}) {
		t.Fatalf("order/dups should not affect the key")
	}
	if SetKey(nil) != "" {
		t.Fatalf("empty set should produce empty key")
	}
	// {1,2} vs {12} must not collide through hex joining.
	if SetKey([]uintptr{0x1, 0x2}) == SetKey([]uintptr{0x12}) {
		t.Fatalf("separator failed to disambiguate sets")
	}
}
