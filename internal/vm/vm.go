// Package vm implements the stack-based bytecode interpreter: call
// frames, the operand stack, instruction dispatch, and the native
// function table. It supplies the alloc.RootSource the garbage
// collector uses to find live references.
package vm

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chazu/loxvm/internal/alloc"
	"github.com/chazu/loxvm/internal/bytecode"
	"github.com/chazu/loxvm/internal/compiler"
)

// DefaultMaxFrames bounds recursion depth, matching the reference
// implementation's FRAMES_MAX.
const DefaultMaxFrames = 64

// DefaultStackSlotsPerFrame bounds the operand stack, sized so every
// frame could in principle fill a full frame's worth of locals.
const DefaultStackSlotsPerFrame = 256

// Config tunes a VM instance. Zero values fall back to defaults.
type Config struct {
	MaxFrames          int
	StackSlotsPerFrame int
	Stdout             io.Writer
	Stderr             io.Writer
	TraceExecution     bool
}

func (c Config) withDefaults() Config {
	if c.MaxFrames <= 0 {
		c.MaxFrames = DefaultMaxFrames
	}
	if c.StackSlotsPerFrame <= 0 {
		c.StackSlotsPerFrame = DefaultStackSlotsPerFrame
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	return c
}

// frame is one active call's bookkeeping: the closure being executed,
// its instruction pointer, and the base stack slot its locals start at.
type frame struct {
	closure *bytecode.ClosureObj
	ip      int
	slots   int
}

// VM is the bytecode interpreter. A stack slice of fixed length backs
// every operand and local: its address is stable for the VM's
// lifetime, which is what lets open Upvalues hold a live *Value
// pointing directly into it.
type VM struct {
	cfg   Config
	alloc *alloc.Allocator

	stack    []bytecode.Value
	stackTop int

	frames     []frame
	frameCount int

	globals      map[string]bytecode.Value
	openUpvalues []openUpvalue

	initString *bytecode.StringObj
	pendingErr error
}

// openUpvalue pairs a still-open Upvalue with the stack slot it points
// into. Go pointers support no ordering comparison, so "every upvalue
// at or above a given slot" (needed when a scope or frame closes) is
// tracked by slot index here instead of by comparing *Value addresses.
type openUpvalue struct {
	slot int
	uv   *bytecode.UpvalueObj
}

// New constructs a VM bound to the given allocator and registers it as
// the allocator's GC root source. It also installs the native function
// table (clock, print).
func New(a *alloc.Allocator, cfg Config) *VM {
	cfg = cfg.withDefaults()
	vm := &VM{
		cfg:        cfg,
		alloc:      a,
		stack:      make([]bytecode.Value, cfg.MaxFrames*cfg.StackSlotsPerFrame),
		frames:     make([]frame, cfg.MaxFrames),
		globals:    make(map[string]bytecode.Value),
		initString: a.InternString("init"),
	}
	a.SetRootSource(vm)
	vm.registerNatives()
	return vm
}

// Interpret compiles and runs source in this VM's global environment.
// A compile failure returns CompileErrors without executing anything; a
// runtime failure returns a *RuntimeError.
func (vm *VM) Interpret(source string) error {
	fn, errs := compiler.Compile(source, vm.alloc)
	if len(errs) > 0 {
		return CompileErrors(errs)
	}

	closure := vm.alloc.NewClosure(fn)
	vm.push(bytecode.FromObject(closure))
	if !vm.callValue(bytecode.FromObject(closure), 0) {
		return vm.popError()
	}
	return vm.run()
}

// popError drains a pending error left by a failed callValue before any
// frame was pushed for it; callValue itself always returns a concrete
// error via vm.pendingErr in that case.
func (vm *VM) popError() error {
	err := vm.pendingErr
	vm.pendingErr = nil
	return err
}

// ---------------------------------------------------------------------------
// alloc.RootSource
// ---------------------------------------------------------------------------

func (vm *VM) StackRoots() []bytecode.Value { return vm.stack[:vm.stackTop] }

func (vm *VM) FrameClosures() []*bytecode.ClosureObj {
	out := make([]*bytecode.ClosureObj, vm.frameCount)
	for i := 0; i < vm.frameCount; i++ {
		out[i] = vm.frames[i].closure
	}
	return out
}

func (vm *VM) OpenUpvalues() []*bytecode.UpvalueObj {
	out := make([]*bytecode.UpvalueObj, len(vm.openUpvalues))
	for i, ou := range vm.openUpvalues {
		out[i] = ou.uv
	}
	return out
}

func (vm *VM) Globals() map[string]bytecode.Value { return vm.globals }

// ---------------------------------------------------------------------------
// Stack primitives
// ---------------------------------------------------------------------------

func (vm *VM) push(v bytecode.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() bytecode.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) bytecode.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// callValue dispatches a call by callee's runtime type. It returns false
// on failure, leaving the error in vm.pendingErr, so it composes with
// run()'s dispatch switch the way the reference VM's callValue returns
// bool.
func (vm *VM) callValue(callee bytecode.Value, argCount int) bool {
	if callee.IsObject() {
		switch obj := callee.AsObject().(type) {
		case *bytecode.ClosureObj:
			return vm.call(obj, argCount)
		case *bytecode.NativeObj:
			return vm.callNative(obj, argCount)
		case *bytecode.ClassObj:
			return vm.instantiate(obj, argCount)
		case *bytecode.BoundMethodObj:
			vm.stack[vm.stackTop-argCount-1] = obj.Receiver
			return vm.call(obj.Method, argCount)
		}
	}
	vm.pendingErr = vm.runtimeError("Can only call functions and classes.")
	return false
}

func (vm *VM) call(closure *bytecode.ClosureObj, argCount int) bool {
	if argCount != closure.Function.Arity {
		vm.pendingErr = vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
		return false
	}
	if vm.frameCount >= len(vm.frames) {
		vm.pendingErr = vm.runtimeError("Stack overflow.")
		return false
	}
	vm.frames[vm.frameCount] = frame{closure: closure, slots: vm.stackTop - argCount - 1}
	vm.frameCount++
	return true
}

func (vm *VM) callNative(native *bytecode.NativeObj, argCount int) bool {
	args := vm.stack[vm.stackTop-argCount : vm.stackTop]
	result, err := native.Fn(args)
	if err != nil {
		vm.pendingErr = vm.runtimeError("%s", err.Error())
		return false
	}
	vm.stackTop -= argCount + 1
	vm.push(result)
	return true
}

func (vm *VM) instantiate(class *bytecode.ClassObj, argCount int) bool {
	instance := vm.alloc.NewInstance(class)
	vm.stack[vm.stackTop-argCount-1] = bytecode.FromObject(instance)

	if init, ok := class.Methods[vm.initString.Chars]; ok {
		return vm.call(init, argCount)
	}
	if argCount != 0 {
		vm.pendingErr = vm.runtimeError("Expected 0 arguments but got %d.", argCount)
		return false
	}
	return true
}

func (vm *VM) invoke(name string, argCount int) bool {
	receiver := vm.peek(argCount)
	instance, ok := receiver.AsObject().(*bytecode.InstanceObj)
	if !receiver.IsObject() || !ok {
		vm.pendingErr = vm.runtimeError("Only instances have methods.")
		return false
	}

	if field, ok := instance.Fields[name]; ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}

	method, ok := instance.Class.Methods[name]
	if !ok {
		vm.pendingErr = vm.runtimeError("Undefined property '%s'.", name)
		return false
	}
	return vm.call(method, argCount)
}

func (vm *VM) invokeFromClass(class *bytecode.ClassObj, name string, argCount int) bool {
	method, ok := class.Methods[name]
	if !ok {
		vm.pendingErr = vm.runtimeError("Undefined method '%s' for superclass %s.", name, class.Name)
		return false
	}
	return vm.call(method, argCount)
}

func (vm *VM) bindMethod(class *bytecode.ClassObj, name string) (*bytecode.BoundMethodObj, bool) {
	method, ok := class.Methods[name]
	if !ok {
		return nil, false
	}
	return vm.alloc.NewBoundMethod(vm.peek(0), method), true
}

// ---------------------------------------------------------------------------
// Upvalues
// ---------------------------------------------------------------------------

func (vm *VM) captureUpvalue(localSlot int) *bytecode.UpvalueObj {
	for _, ou := range vm.openUpvalues {
		if ou.slot == localSlot {
			return ou.uv
		}
	}
	uv := vm.alloc.NewUpvalue(&vm.stack[localSlot])
	vm.openUpvalues = append(vm.openUpvalues, openUpvalue{slot: localSlot, uv: uv})
	return uv
}

// closeUpvalues closes (copies off the stack) every open upvalue whose
// slot is at or above fromSlot, run when a scope or call frame whose
// locals they point into is about to be discarded.
func (vm *VM) closeUpvalues(fromSlot int) {
	kept := vm.openUpvalues[:0]
	for _, ou := range vm.openUpvalues {
		if ou.slot >= fromSlot {
			ou.uv.Close()
		} else {
			kept = append(kept, ou)
		}
	}
	vm.openUpvalues = kept
}

// ---------------------------------------------------------------------------
// Natives
// ---------------------------------------------------------------------------

// RegisterNative installs a host function as a global callable, for use
// by supplementary native modules (e.g. internal/natives/db) wired in
// by the CLI entrypoint before a script runs.
func (vm *VM) RegisterNative(name string, fn bytecode.NativeFn) {
	native := vm.alloc.NewNative(name, fn, false)
	vm.globals[name] = bytecode.FromObject(native)
}

func (vm *VM) registerNatives() {
	vm.RegisterNative("clock", func(args []bytecode.Value) (bytecode.Value, error) {
		return bytecode.Number(float64(time.Now().UnixNano()) / float64(time.Second)), nil
	})

	vm.RegisterNative("print", func(args []bytecode.Value) (bytecode.Value, error) {
		for i, a := range args {
			if i > 0 {
				fmt.Fprint(vm.cfg.Stdout, ", ")
			}
			fmt.Fprint(vm.cfg.Stdout, a.String())
		}
		fmt.Fprintln(vm.cfg.Stdout)
		return bytecode.Nil, nil
	})
}

// runtimeError builds a *RuntimeError carrying the current call stack's
// trace, innermost frame first, matching the reference VM's
// _runtime_error. It then resets the operand stack, call frames, and
// open upvalues, so the VM is ready for the next Interpret call.
func (vm *VM) runtimeError(format string, args ...any) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	trace := make([]traceFrame, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line := f.closure.Function.Chunk.LineAt(f.ip - 1)
		trace = append(trace, traceFrame{Line: line, Name: f.closure.Function.Name})
	}
	vm.resetStack()
	return &RuntimeError{Message: msg, Trace: trace}
}
