// Package alloc implements the ObjectAllocator: the sole owner of every
// heap-allocated Lox object, the string-interning table, and the
// tri-color mark-sweep garbage collector that reclaims them.
package alloc

import "github.com/chazu/loxvm/internal/bytecode"

// RootSource is implemented by the VM so the allocator can discover GC
// roots without the alloc package importing the vm package. It is
// supplied once via SetRootSource after both are constructed.
type RootSource interface {
	// StackRoots returns every Value currently live on the operand
	// stack.
	StackRoots() []bytecode.Value
	// FrameClosures returns the Closure of every active call frame.
	FrameClosures() []*bytecode.ClosureObj
	// OpenUpvalues returns every Upvalue currently open.
	OpenUpvalues() []*bytecode.UpvalueObj
	// Globals returns the live global variable map.
	Globals() map[string]bytecode.Value
}

// Stats summarizes one completed collection, for diagnostics only.
type Stats struct {
	BytesBefore    int
	BytesAfter     int
	ObjectsFreed   int
	NextCollection int
}

// DefaultInitialThreshold is the byte threshold that triggers the first
// collection, before any growth-factor adjustment.
const DefaultInitialThreshold = 1 << 20

// DefaultGrowthFactor is the multiplier applied to bytesAllocated after
// each collection to compute the next threshold.
const DefaultGrowthFactor = 2

// Allocator owns every heap object, interns strings, and runs the GC.
type Allocator struct {
	objects        bytecode.Obj
	strings        map[string]*bytecode.StringObj
	lastAllocated  bytecode.Obj
	bytesAllocated int
	nextGC         int
	growthFactor   int
	stressGC       bool
	roots          RootSource
	grey           []bytecode.Obj

	// StatsHook, if set, is invoked after every collection.
	StatsHook func(Stats)
}

// New creates an Allocator with default tuning. Call SetRootSource
// before any collection-triggering allocation.
func New() *Allocator {
	return &Allocator{
		strings:      make(map[string]*bytecode.StringObj),
		nextGC:       DefaultInitialThreshold,
		growthFactor: DefaultGrowthFactor,
	}
}

// SetRootSource registers the VM (or any root provider) used to find
// roots during collection.
func (a *Allocator) SetRootSource(rs RootSource) { a.roots = rs }

// SetStressGC forces a collection on every allocation when enabled,
// matching spec.md §4.3's stress-test flag.
func (a *Allocator) SetStressGC(enabled bool) { a.stressGC = enabled }

// SetGrowthFactor overrides the default threshold growth multiplier.
func (a *Allocator) SetGrowthFactor(factor int) {
	if factor > 0 {
		a.growthFactor = factor
	}
}

// BytesAllocated returns the allocator's current bookkeeping total.
func (a *Allocator) BytesAllocated() int { return a.bytesAllocated }

// NextCollection returns the threshold that will trigger the next GC.
func (a *Allocator) NextCollection() int { return a.nextGC }

func (a *Allocator) shouldCollect() bool {
	return a.stressGC || a.bytesAllocated > a.nextGC
}

// track adds a newly constructed object to the allocator's bookkeeping:
// the intrusive all-objects list, the byte counter, and "last allocation
// is a root" tracking. If collect is true and the allocator is over
// threshold (or under GC-stress), a collection runs before returning —
// the newly tracked object survives it because it is always the most
// recent allocation.
func (a *Allocator) track(o bytecode.Obj, size int, collect bool) {
	o.SetNext(a.objects)
	a.objects = o
	a.bytesAllocated += size
	a.lastAllocated = o

	if collect && a.shouldCollect() {
		a.Collect()
	}
}

// InternString returns the canonical StringObj for text, allocating one
// only if this exact text has never been interned. Because later
// lookups alias the same StringObj, interned values compare equal by
// handle identity.
func (a *Allocator) InternString(text string) *bytecode.StringObj {
	if s, ok := a.strings[text]; ok {
		return s
	}
	s := &bytecode.StringObj{Chars: text, Hash: fnv32(text)}
	a.track(s, sizeOf(s), true)
	a.strings[text] = s
	return s
}

// NewFunction allocates an empty FunctionObj; the compiler fills in its
// Chunk as it emits code.
func (a *Allocator) NewFunction(name string) *bytecode.FunctionObj {
	fn := &bytecode.FunctionObj{Name: name, Chunk: bytecode.NewChunk()}
	a.track(fn, sizeOf(fn), true)
	return fn
}

// NewUpvalue allocates an open Upvalue pointing at a live stack slot.
func (a *Allocator) NewUpvalue(slot *bytecode.Value) *bytecode.UpvalueObj {
	uv := &bytecode.UpvalueObj{Location: slot}
	a.track(uv, sizeOf(uv), true)
	return uv
}

// NewClosure allocates a Closure over fn with an empty (to be filled by
// the VM's CLOSURE handler) upvalue vector.
func (a *Allocator) NewClosure(fn *bytecode.FunctionObj) *bytecode.ClosureObj {
	cl := &bytecode.ClosureObj{
		Function: fn,
		Upvalues: make([]*bytecode.UpvalueObj, fn.UpvalueCount),
	}
	a.track(cl, sizeOf(cl), true)
	return cl
}

// NewNative wraps a host function as a callable Lox value. Native
// registration happens once at VM construction, before the VM has any
// roots to protect — callers may pass collect=false to skip the check.
func (a *Allocator) NewNative(name string, fn bytecode.NativeFn, collect bool) *bytecode.NativeObj {
	n := &bytecode.NativeObj{Name: name, Fn: fn}
	a.track(n, sizeOf(n), collect)
	return n
}

// NewClass allocates an empty class with no methods yet.
func (a *Allocator) NewClass(name string) *bytecode.ClassObj {
	c := &bytecode.ClassObj{Name: name, Methods: make(map[string]*bytecode.ClosureObj)}
	a.track(c, sizeOf(c), true)
	return c
}

// NewInstance allocates an instance of class with an empty field map.
func (a *Allocator) NewInstance(class *bytecode.ClassObj) *bytecode.InstanceObj {
	i := &bytecode.InstanceObj{Class: class, Fields: make(map[string]bytecode.Value)}
	a.track(i, sizeOf(i), true)
	return i
}

// NewBoundMethod allocates a BoundMethod pairing a receiver with a
// method Closure, produced when a method is read off an instance.
func (a *Allocator) NewBoundMethod(receiver bytecode.Value, method *bytecode.ClosureObj) *bytecode.BoundMethodObj {
	b := &bytecode.BoundMethodObj{Receiver: receiver, Method: method}
	a.track(b, sizeOf(b), true)
	return b
}

// NewNativeHandle wraps an opaque host resource in a GC-tracked object.
// close, if non-nil, runs once when the handle is swept as unreachable.
func (a *Allocator) NewNativeHandle(kind string, value any, close func() error) *bytecode.NativeHandleObj {
	h := &bytecode.NativeHandleObj{Kind: kind, Value: value, Close: close}
	a.track(h, sizeOf(h), true)
	return h
}
