package kpcache

import (
	"bytes"
	"testing"

	"github.com/unkn0wn-root/kpcache/codec"
)

func TestProgramKeyCanonicalization(t *testing.T) {
	a := progKey(5, "sc", 1, 2, 3).canonical()
	b := progKey(5, "sc", 3, 1, 2, 2).canonical() // order and dups ignored
	if a != b {
		t.Fatalf("equivalent keys canonicalize differently: %+v vs %+v", a, b)
	}

	c := progKey(5, "sc2", 1, 2, 3).canonical()
	if a == c {
		t.Fatalf("different spec blobs collide")
	}
	d := progKey(6, "sc", 1, 2, 3).canonical()
	if a == d {
		t.Fatalf("different images collide")
	}
}

func TestCommonKeyDropsSpecConsts(t *testing.T) {
	a := progKey(5, "sc", 2, 1).Common().canonical()
	b := progKey(5, "other", 1, 2).Common().canonical()
	if a != b {
		t.Fatalf("common key should ignore spec constants and device order")
	}
}

func TestSerializeSpecConstsDeterministic(t *testing.T) {
	cdc := codec.MustCBOR[map[string]int64](true)

	// Equal maps built in different insertion orders must produce identical
	// blobs, otherwise one logical program splits into several cache entries.
	m1 := map[string]int64{}
	m1["alpha"] = 1
	m1["beta"] = 2
	m2 := map[string]int64{}
	m2["beta"] = 2
	m2["alpha"] = 1

	b1, err := SerializeSpecConsts(cdc, m1)
	if err != nil {
		t.Fatalf("SerializeSpecConsts: %v", err)
	}
	b2, err := SerializeSpecConsts(cdc, m2)
	if err != nil {
		t.Fatalf("SerializeSpecConsts: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("deterministic encoding differs: %x vs %x", b1, b2)
	}
}

func TestFastKeyString(t *testing.T) {
	k1 := KernelFastKey{SpecConsts: "a", Device: 1, Name: "k"}
	k2 := KernelFastKey{SpecConsts: "a", Device: 1, Name: "k"}
	if FastKeyString(k1) != FastKeyString(k2) {
		t.Fatalf("equal keys flatten differently")
	}
	for _, other := range []KernelFastKey{
		{SpecConsts: "b", Device: 1, Name: "k"},
		{SpecConsts: "a", Device: 2, Name: "k"},
		{SpecConsts: "a", Device: 1, Name: "k2"},
	} {
		if FastKeyString(k1) == FastKeyString(other) {
			t.Fatalf("distinct keys %+v and %+v collide", k1, other)
		}
	}
}
