// Package bytecode defines the runtime data model shared by the compiler,
// VM, and allocator: tagged Values, heap Object variants, and the
// compiled Chunk format they live in.
package bytecode

import (
	"fmt"
	"math"
)

// Kind tags a Value's active representation.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is a tagged scalar: exactly one of Nil, Bool, Number, or Object.
type Value struct {
	kind   Kind
	b      bool
	n      float64
	object Obj
}

// Nil is the singular nil value.
var Nil = Value{kind: KindNil}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// FromObject returns a Value wrapping a heap object handle.
func FromObject(o Obj) Value { return Value{kind: KindObject, object: o} }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObject() bool { return v.kind == KindObject }

func (v Value) AsBool() bool     { return v.b }
func (v Value) AsNumber() float64 { return v.n }
func (v Value) AsObject() Obj    { return v.object }

// IsObjType reports whether v is an object of the given type.
func (v Value) IsObjType(t ObjType) bool {
	return v.kind == KindObject && v.object != nil && v.object.Type() == t
}

// IsFalsey reports Lox falsiness: nil and false are falsey, everything
// else is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Equal implements Lox `==`: same tag required; bools/numbers compare by
// value, objects by handle identity (interning makes this correct for
// strings), Nil == Nil always.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindObject:
		return v.object == other.object
	default:
		return false
	}
}

// String renders a Value the way the `print` native and string
// concatenation do.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.n)
	case KindObject:
		if v.object == nil {
			return "nil"
		}
		return v.object.String()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	return fmt.Sprintf("%g", n)
}

// TypeName returns a human-readable type name, used in runtime error
// messages.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObject:
		return v.object.Type().String()
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Heap objects
// ---------------------------------------------------------------------------

// ObjType identifies a heap Object's variant.
type ObjType int

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeUpvalue
	ObjTypeClosure
	ObjTypeNative
	ObjTypeClass
	ObjTypeInstance
	ObjTypeBoundMethod
	ObjTypeNativeHandle
)

func (t ObjType) String() string {
	switch t {
	case ObjTypeString:
		return "string"
	case ObjTypeFunction:
		return "function"
	case ObjTypeUpvalue:
		return "upvalue"
	case ObjTypeClosure:
		return "closure"
	case ObjTypeNative:
		return "native function"
	case ObjTypeClass:
		return "class"
	case ObjTypeInstance:
		return "instance"
	case ObjTypeBoundMethod:
		return "bound method"
	case ObjTypeNativeHandle:
		return "native handle"
	default:
		return "object"
	}
}

// Obj is the interface every heap object variant implements. The
// allocator is the only code that constructs or walks Objs outside of
// the VM reading through a Value.
type Obj interface {
	Type() ObjType
	String() string

	Marked() bool
	SetMarked(bool)
	Next() Obj
	SetNext(Obj)
}

// header is embedded in every object variant. It carries the GC mark bit
// and the intrusive "all objects" list link the allocator threads
// through every live object (see internal/alloc).
type header struct {
	isMarked bool
	nextObj  Obj
}

func (h *header) Marked() bool     { return h.isMarked }
func (h *header) SetMarked(m bool) { h.isMarked = m }
func (h *header) Next() Obj        { return h.nextObj }
func (h *header) SetNext(o Obj)    { h.nextObj = o }

// StringObj is an interned, immutable byte sequence. Equality is handle
// identity; the allocator guarantees equal text maps to one StringObj.
type StringObj struct {
	header
	Chars string
	Hash  uint32
}

func (s *StringObj) Type() ObjType  { return ObjTypeString }
func (s *StringObj) String() string { return s.Chars }

// FunctionObj is an immutable compiled function prototype.
type FunctionObj struct {
	header
	Name         string // empty for the top-level script
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
}

func (f *FunctionObj) Type() ObjType { return ObjTypeFunction }
func (f *FunctionObj) String() string {
	if f.Name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name)
}

// UpvalueObj is either open (Location points into a live operand stack
// slot) or closed (Location is nil and Closed holds the owned value).
type UpvalueObj struct {
	header
	Location *Value // non-nil while open
	Closed   Value
}

func (u *UpvalueObj) Type() ObjType  { return ObjTypeUpvalue }
func (u *UpvalueObj) String() string { return "<upvalue>" }

// Get returns the upvalue's current value, open or closed.
func (u *UpvalueObj) Get() Value {
	if u.Location != nil {
		return *u.Location
	}
	return u.Closed
}

// Set writes through the upvalue, open or closed.
func (u *UpvalueObj) Set(v Value) {
	if u.Location != nil {
		*u.Location = v
		return
	}
	u.Closed = v
}

// Close copies the current value into the owned slot and severs the
// stack pointer; called when the enclosing stack frame is about to be
// popped.
func (u *UpvalueObj) Close() {
	u.Closed = *u.Location
	u.Location = nil
}

// ClosureObj pairs a FunctionObj with the Upvalues it captured.
type ClosureObj struct {
	header
	Function *FunctionObj
	Upvalues []*UpvalueObj
}

func (c *ClosureObj) Type() ObjType  { return ObjTypeClosure }
func (c *ClosureObj) String() string { return c.Function.String() }

// NativeFn is a host-provided callable: it reads the argument slice and
// returns a single Value, or an error that becomes a runtime error.
type NativeFn func(args []Value) (Value, error)

// NativeObj wraps a host function so it can be called like any other
// Lox callable.
type NativeObj struct {
	header
	Name string
	Fn   NativeFn
}

func (n *NativeObj) Type() ObjType  { return ObjTypeNative }
func (n *NativeObj) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }

// ClassObj is a runtime class: a name and its method table, keyed by
// method name to a Closure.
type ClassObj struct {
	header
	Name    string
	Methods map[string]*ClosureObj
}

func (c *ClassObj) Type() ObjType  { return ObjTypeClass }
func (c *ClassObj) String() string { return c.Name }

// InstanceObj is an instance of a ClassObj with its own field map.
type InstanceObj struct {
	header
	Class  *ClassObj
	Fields map[string]Value
}

func (i *InstanceObj) Type() ObjType  { return ObjTypeInstance }
func (i *InstanceObj) String() string { return fmt.Sprintf("<%s instance>", i.Class.Name) }

// BoundMethodObj is a method value with its receiver pre-bound; produced
// when a method is read off an instance.
type BoundMethodObj struct {
	header
	Receiver Value
	Method   *ClosureObj
}

func (b *BoundMethodObj) Type() ObjType  { return ObjTypeBoundMethod }
func (b *BoundMethodObj) String() string { return b.Method.String() }

// NativeHandleObj wraps an opaque host resource (e.g. an open database
// handle) in a GC-tracked object. Close, if set, runs once when the
// allocator sweeps the handle as unreachable. Tracing treats it as a
// leaf: it holds no references to other Lox objects to blacken.
type NativeHandleObj struct {
	header
	Kind  string
	Value any
	Close func() error
}

func (n *NativeHandleObj) Type() ObjType  { return ObjTypeNativeHandle }
func (n *NativeHandleObj) String() string { return fmt.Sprintf("<native handle %s>", n.Kind) }
