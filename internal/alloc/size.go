package alloc

import "github.com/chazu/loxvm/internal/bytecode"

// sizeOf returns a representative byte size for an object, used only
// for this allocator's own bytesAllocated bookkeeping (the invariant
// "bytesAllocated equals the sum of sizes of live objects" is a
// property of this accounting, not of the host's real memory use —
// actual storage reclamation is left to the Go runtime once an object
// is unlinked from the all-objects list).
func sizeOf(o bytecode.Obj) int {
	switch v := o.(type) {
	case *bytecode.StringObj:
		return 24 + len(v.Chars)
	case *bytecode.FunctionObj:
		return 64
	case *bytecode.UpvalueObj:
		return 24
	case *bytecode.ClosureObj:
		return 24 + len(v.Upvalues)*8
	case *bytecode.NativeObj:
		return 32
	case *bytecode.ClassObj:
		return 32
	case *bytecode.InstanceObj:
		return 24
	case *bytecode.BoundMethodObj:
		return 32
	case *bytecode.NativeHandleObj:
		return 32
	default:
		return 16
	}
}

// fnv32 computes the 32-bit FNV-1a hash of s, matching the hash scheme
// string objects carry for debugging/equality-table use.
func fnv32(s string) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	h := uint32(offsetBasis)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}
