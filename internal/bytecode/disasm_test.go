package bytecode

import "testing"

func TestDisassembleSimpleChunk(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(Number(1))
	c.WriteOp(OpConstant, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(OpReturn, 1)

	out := Disassemble(c, "test")
	if out == "" {
		t.Fatal("expected non-empty disassembly")
	}
}

func TestDisassembleClosureWalksUpvalueOperands(t *testing.T) {
	outer := NewChunk()
	fn := &FunctionObj{Name: "inner", Chunk: NewChunk(), UpvalueCount: 2}
	idx := outer.AddConstant(FromObject(fn))

	outer.WriteOp(OpClosure, 1)
	outer.Write(byte(idx), 1)
	outer.Write(1, 1) // upvalue 0: local
	outer.Write(0, 1) // upvalue 0: index
	outer.Write(0, 1) // upvalue 1: upvalue
	outer.Write(2, 1) // upvalue 1: index
	outer.WriteOp(OpReturn, 1)

	out := Disassemble(outer, "outer")
	if out == "" {
		t.Fatal("expected non-empty disassembly")
	}
}

func TestOpInfoUnknownOpcode(t *testing.T) {
	info := Info(Op(0xfe))
	if info.Name == "" {
		t.Error("expected a placeholder name for an unknown opcode")
	}
}
