package kpcache

import (
	"strconv"
	"sync"

	"github.com/unkn0wn-root/kpcache/codec"
	"github.com/unkn0wn-root/kpcache/internal/util"
)

// SpecConstBlob is the serialized specialization-constant state of a program.
// Equal constant sets must serialize to equal blobs, since the blob is part of
// the cache key; use a deterministic codec (see SerializeSpecConsts).
type SpecConstBlob []byte

// SerializeSpecConsts encodes v into a SpecConstBlob with the given codec.
// Prefer a canonical encoding such as codec.MustCBOR(true) so that equal
// constant sets produce byte-identical blobs and therefore one cache entry.
func SerializeSpecConsts[V any](cdc codec.Codec[V], v V) (SpecConstBlob, error) {
	b, err := cdc.Encode(v)
	return SpecConstBlob(b), err
}

// ProgramCacheKey uniquely identifies one compiled program: the serialized
// spec constants, the source image, and the set of target devices. Link and
// compile options are deliberately not part of the key; when the debugging
// environment overrides them it overrides them identically for every build.
type ProgramCacheKey struct {
	SpecConsts SpecConstBlob
	ImageID    ImageID
	Devices    []DeviceHandle
}

// Common coarsens the key by dropping the spec constants, grouping every
// variant of the same logical program (multi-device builds, virtual-function
// variants) under one identity.
func (k ProgramCacheKey) Common() CommonProgramKey {
	return CommonProgramKey{ImageID: k.ImageID, Devices: k.Devices}
}

// CommonProgramKey is the coarsened program identity: image plus device set.
type CommonProgramKey struct {
	ImageID ImageID
	Devices []DeviceHandle
}

// Comparable canonical forms used as map keys. The device set is order- and
// duplicate-insensitive.
type programKey struct {
	spec    string
	imageID ImageID
	devices string
}

type commonKey struct {
	imageID ImageID
	devices string
}

func (k ProgramCacheKey) canonical() programKey {
	return programKey{
		spec:    string(k.SpecConsts),
		imageID: k.ImageID,
		devices: deviceSetKey(k.Devices),
	}
}

func (k CommonProgramKey) canonical() commonKey {
	return commonKey{imageID: k.ImageID, devices: deviceSetKey(k.Devices)}
}

func deviceSetKey(devs []DeviceHandle) string {
	hs := make([]uintptr, len(devs))
	for i, d := range devs {
		hs[i] = uintptr(d)
	}
	return util.SetKey(hs)
}

// KernelFastKey addresses the fast lookup cache: spec-constant blob (as a
// string, for comparability), target device and kernel name.
type KernelFastKey struct {
	SpecConsts string
	Device     DeviceHandle
	Name       string
}

// KernelFastValue is the fast-cache payload: non-owning references into the
// authoritative tables. The zero value is the all-null miss sentinel. Values
// must not outlive the table entries they point into.
type KernelFastValue struct {
	Kernel  KernelHandle
	Mu      *sync.Mutex
	ArgMask *KernelArgMask
	Program ProgramHandle
}

// FastKeyString flattens a KernelFastKey for backends that need textual keys,
// such as the ristretto fast-cache store.
func FastKeyString(k KernelFastKey) string {
	return k.SpecConsts + "\x00" + strconv.FormatUint(uint64(k.Device), 16) + "\x00" + k.Name
}
