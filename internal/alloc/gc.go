package alloc

import "github.com/chazu/loxvm/internal/bytecode"

// Collect runs one full tri-color mark-sweep cycle: mark roots, trace
// to fixpoint, drop interned strings that didn't survive, sweep unmarked
// objects, then grow the next-collection threshold.
//
// No object referenced from a reachable object is ever freed in the
// same sweep, because sweep only runs after tracing reaches a fixpoint.
// Every surviving object's mark bit is cleared by the end of sweep, so
// the next collection starts from an all-white heap.
func (a *Allocator) Collect() {
	before := a.bytesAllocated

	a.markRoots()
	a.traceReferences()
	a.removeWhiteStrings()
	freed := a.sweep()

	a.nextGC = a.bytesAllocated * a.growthFactor
	if a.nextGC < DefaultInitialThreshold {
		a.nextGC = DefaultInitialThreshold
	}

	if a.StatsHook != nil {
		a.StatsHook(Stats{
			BytesBefore:    before,
			BytesAfter:     a.bytesAllocated,
			ObjectsFreed:   freed,
			NextCollection: a.nextGC,
		})
	}
}

// markRoots marks every GC root: the most recent allocation (protects
// temporaries not yet pushed anywhere observable), every stack Value,
// every active frame's Closure, every open Upvalue, and every global.
func (a *Allocator) markRoots() {
	if a.lastAllocated != nil {
		a.markObject(a.lastAllocated)
	}
	if a.roots == nil {
		return
	}
	for _, v := range a.roots.StackRoots() {
		a.markValue(v)
	}
	for _, cl := range a.roots.FrameClosures() {
		a.markObject(cl)
	}
	for _, uv := range a.roots.OpenUpvalues() {
		a.markObject(uv)
	}
	for _, v := range a.roots.Globals() {
		a.markValue(v)
	}
}

func (a *Allocator) markValue(v bytecode.Value) {
	if v.IsObject() {
		a.markObject(v.AsObject())
	}
}

// markObject grays o if it is white; black (already-marked) and nil
// objects are left alone.
func (a *Allocator) markObject(o bytecode.Obj) {
	if o == nil || o.Marked() {
		return
	}
	o.SetMarked(true)
	a.grey = append(a.grey, o)
}

// traceReferences drains the grey worklist, blackening each object by
// marking everything it directly references.
func (a *Allocator) traceReferences() {
	for len(a.grey) > 0 {
		n := len(a.grey) - 1
		o := a.grey[n]
		a.grey = a.grey[:n]
		a.blacken(o)
	}
}

func (a *Allocator) blacken(o bytecode.Obj) {
	switch obj := o.(type) {
	case *bytecode.FunctionObj:
		for _, c := range obj.Chunk.Constants {
			a.markValue(c)
		}
	case *bytecode.ClosureObj:
		a.markObject(obj.Function)
		for _, uv := range obj.Upvalues {
			a.markObject(uv)
		}
	case *bytecode.UpvalueObj:
		a.markValue(obj.Get())
	case *bytecode.ClassObj:
		for _, m := range obj.Methods {
			a.markObject(m)
		}
	case *bytecode.InstanceObj:
		a.markObject(obj.Class)
		for _, v := range obj.Fields {
			a.markValue(v)
		}
	case *bytecode.BoundMethodObj:
		a.markValue(obj.Receiver)
		a.markObject(obj.Method)
	case *bytecode.StringObj, *bytecode.NativeObj, *bytecode.NativeHandleObj:
		// leaves: nothing further to blacken
	}
}

// removeWhiteStrings erases intern-table entries whose string did not
// survive tracing, so an unreachable string cannot be resurrected by
// the intern table alone.
func (a *Allocator) removeWhiteStrings() {
	for text, s := range a.strings {
		if !s.Marked() {
			delete(a.strings, text)
		}
	}
}

// sweep walks the all-objects list, clearing the mark bit of survivors
// and unlinking + deducting the size of everything unmarked. It returns
// the number of objects freed.
func (a *Allocator) sweep() int {
	var prev bytecode.Obj
	obj := a.objects
	freed := 0

	for obj != nil {
		if obj.Marked() {
			obj.SetMarked(false)
			prev = obj
			obj = obj.Next()
			continue
		}

		dead := obj
		obj = obj.Next()
		if prev != nil {
			prev.SetNext(obj)
		} else {
			a.objects = obj
		}

		a.bytesAllocated -= sizeOf(dead)
		freed++

		if nh, ok := dead.(*bytecode.NativeHandleObj); ok && nh.Close != nil {
			nh.Close()
		}
	}

	return freed
}
