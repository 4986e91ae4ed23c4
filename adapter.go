package kpcache

// Native handle types are opaque to the cache. The zero value is the "unset"
// sentinel; a holder's handle is usable only while its state is Done.
type (
	ProgramHandle uintptr
	KernelHandle  uintptr
	DeviceHandle  uintptr

	// ImageID identifies the source device image a program was built from.
	ImageID uintptr
)

// Result is a native-style status code reported by adapter calls and carried
// by build errors.
type Result int32

const (
	ResultSuccess Result = 0

	// Retryable resource-exhaustion codes. See IsRetryable.
	ResultOutOfResources    Result = 4
	ResultOutOfHostMemory   Result = 5
	ResultOutOfDeviceMemory Result = 6

	ResultProgramBuildFailure Result = 48
	ResultProgramLinkFailure  Result = 49
	ResultInvalidKernelName   Result = 52
)

// Adapter is the native-driver call surface the cache needs: releasing
// compiled handles when holders are destroyed. Implementations must be safe
// for concurrent use. A non-success Result is logged by the cache, never
// propagated.
type Adapter interface {
	ReleaseProgram(ProgramHandle) Result
	ReleaseKernel(KernelHandle) Result
}

// KernelArgMask marks kernel arguments eliminated by the native compiler.
// Index i is true when argument i was optimized out.
type KernelArgMask []bool

// KernelValue is the payload of a kernel build: the native kernel handle and
// the eliminated-argument mask extracted alongside it.
type KernelValue struct {
	Kernel  KernelHandle
	ArgMask *KernelArgMask
}
