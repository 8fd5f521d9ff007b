package vm

import (
	"fmt"
	"strings"

	"github.com/chazu/loxvm/internal/bytecode"
)

// run executes instructions from the current (innermost) frame until a
// RETURN unwinds the last frame or a runtime error occurs.
func (vm *VM) run() error {
	f := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := f.closure.Function.Chunk.Code[f.ip]
		f.ip++
		return b
	}
	readShort := func() int {
		hi := readByte()
		lo := readByte()
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() bytecode.Value {
		return f.closure.Function.Chunk.Constants[readByte()]
	}
	readString := func() string {
		return readConstant().AsObject().(*bytecode.StringObj).Chars
	}

	for {
		if vm.cfg.TraceExecution {
			vm.traceInstruction(f)
		}

		op := bytecode.Op(readByte())
		switch op {
		case bytecode.OpConstant:
			vm.push(readConstant())

		case bytecode.OpNil:
			vm.push(bytecode.Nil)
		case bytecode.OpTrue:
			vm.push(bytecode.Bool(true))
		case bytecode.OpFalse:
			vm.push(bytecode.Bool(false))
		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			vm.push(vm.stack[f.slots+int(readByte())])
		case bytecode.OpSetLocal:
			vm.stack[f.slots+int(readByte())] = vm.peek(0)

		case bytecode.OpGetGlobal:
			name := readString()
			v, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.push(v)
		case bytecode.OpDefineGlobal:
			vm.globals[readString()] = vm.peek(0)
			vm.pop()
		case bytecode.OpSetGlobal:
			name := readString()
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.globals[name] = vm.peek(0)

		case bytecode.OpGetUpvalue:
			vm.push(f.closure.Upvalues[readByte()].Get())
		case bytecode.OpSetUpvalue:
			f.closure.Upvalues[readByte()].Set(vm.peek(0))
		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(bytecode.Bool(a.Equal(b)))
		case bytecode.OpGreater:
			if err := vm.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Bool(a > b) }); err != nil {
				return err
			}
		case bytecode.OpLess:
			if err := vm.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Bool(a < b) }); err != nil {
				return err
			}

		case bytecode.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case bytecode.OpSubtract:
			if err := vm.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Number(a - b) }); err != nil {
				return err
			}
		case bytecode.OpMultiply:
			if err := vm.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Number(a * b) }); err != nil {
				return err
			}
		case bytecode.OpDivide:
			if err := vm.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Number(a / b) }); err != nil {
				return err
			}

		case bytecode.OpNot:
			vm.push(bytecode.Bool(vm.pop().IsFalsey()))
		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(bytecode.Number(-vm.pop().AsNumber()))

		case bytecode.OpJump:
			offset := readShort()
			f.ip += offset
		case bytecode.OpJumpIfFalse:
			offset := readShort()
			if vm.peek(0).IsFalsey() {
				f.ip += offset
			}
		case bytecode.OpJumpIfTrue:
			offset := readShort()
			if !vm.peek(0).IsFalsey() {
				f.ip += offset
			}
		case bytecode.OpLoop:
			offset := readShort()
			f.ip -= offset

		case bytecode.OpCall:
			argCount := int(readByte())
			if !vm.callValue(vm.peek(argCount), argCount) {
				return vm.popError()
			}
			f = &vm.frames[vm.frameCount-1]

		case bytecode.OpInvoke:
			name := readString()
			argCount := int(readByte())
			if !vm.invoke(name, argCount) {
				return vm.popError()
			}
			f = &vm.frames[vm.frameCount-1]

		case bytecode.OpSuperInvoke:
			name := readString()
			argCount := int(readByte())
			superclass := vm.pop().AsObject().(*bytecode.ClassObj)
			if !vm.invokeFromClass(superclass, name, argCount) {
				return vm.popError()
			}
			f = &vm.frames[vm.frameCount-1]

		case bytecode.OpClosure:
			fn := readConstant().AsObject().(*bytecode.FunctionObj)
			closure := vm.alloc.NewClosure(fn)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := int(readByte())
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(f.slots + index)
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}
			vm.push(bytecode.FromObject(closure))

		case bytecode.OpClass:
			vm.push(bytecode.FromObject(vm.alloc.NewClass(readString())))

		case bytecode.OpInherit:
			superVal := vm.peek(1)
			superclass, ok := superVal.AsObject().(*bytecode.ClassObj)
			if !superVal.IsObject() || !ok {
				return vm.runtimeError("Superclass must be a class.")
			}
			subclass := vm.peek(0).AsObject().(*bytecode.ClassObj)
			for name, method := range superclass.Methods {
				subclass.Methods[name] = method
			}
			vm.pop() // drop this redundant subclass copy; the superclass
			// value underneath stays on the stack as the class body's
			// `super` local until its scope closes

		case bytecode.OpMethod:
			name := readString()
			method := vm.peek(0).AsObject().(*bytecode.ClosureObj)
			class := vm.peek(1).AsObject().(*bytecode.ClassObj)
			class.Methods[name] = method
			vm.pop()

		case bytecode.OpGetProperty:
			name := readString()
			instVal := vm.peek(0)
			instance, ok := instVal.AsObject().(*bytecode.InstanceObj)
			if !instVal.IsObject() || !ok {
				return vm.runtimeError("Only instances have properties.")
			}
			if field, ok := instance.Fields[name]; ok {
				vm.pop()
				vm.push(field)
				break
			}
			bound, ok := vm.bindMethod(instance.Class, name)
			if !ok {
				return vm.runtimeError("Undefined property '%s'.", name)
			}
			vm.pop()
			vm.push(bytecode.FromObject(bound))

		case bytecode.OpSetProperty:
			name := readString()
			instVal := vm.peek(1)
			instance, ok := instVal.AsObject().(*bytecode.InstanceObj)
			if !instVal.IsObject() || !ok {
				return vm.runtimeError("Only instances have fields.")
			}
			instance.Fields[name] = vm.peek(0)
			value := vm.pop()
			vm.pop()
			vm.push(value)

		case bytecode.OpGetSuper:
			name := readString()
			superclass := vm.pop().AsObject().(*bytecode.ClassObj)
			bound, ok := vm.bindMethod(superclass, name)
			if !ok {
				return vm.runtimeError("Undefined property '%s'.", name)
			}
			vm.pop()
			vm.push(bytecode.FromObject(bound))

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(f.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = f.slots
			vm.push(result)
			f = &vm.frames[vm.frameCount-1]

		default:
			return vm.runtimeError("Unknown opcode 0x%02x.", byte(op))
		}
	}
}

func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)

	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(bytecode.Number(a.AsNumber() + b.AsNumber()))
	case a.IsObjType(bytecode.ObjTypeString) && b.IsObjType(bytecode.ObjTypeString):
		vm.pop()
		vm.pop()
		var sb strings.Builder
		sb.WriteString(a.AsObject().(*bytecode.StringObj).Chars)
		sb.WriteString(b.AsObject().(*bytecode.StringObj).Chars)
		vm.push(bytecode.FromObject(vm.alloc.InternString(sb.String())))
	default:
		return vm.runtimeError("Operands to + must both be numbers or strings.")
	}
	return nil
}

func (vm *VM) numericBinary(op func(a, b float64) bytecode.Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return nil
}

func (vm *VM) traceInstruction(f *frame) {
	var sb strings.Builder
	bytecode.DisassembleInstruction(&sb, f.closure.Function.Chunk, f.ip)
	fmt.Fprint(vm.cfg.Stderr, sb.String())
}
