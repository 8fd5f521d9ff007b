package bytecode

import "testing"

func TestWriteTracksOffsetsAndLines(t *testing.T) {
	c := NewChunk()
	off0 := c.WriteOp(OpNil, 1)
	off1 := c.WriteOp(OpTrue, 1)
	off2 := c.WriteOp(OpPop, 2)

	if off0 != 0 || off1 != 1 || off2 != 2 {
		t.Fatalf("unexpected offsets: %d %d %d", off0, off1, off2)
	}
	if c.LineAt(0) != 1 || c.LineAt(1) != 1 || c.LineAt(2) != 2 {
		t.Fatalf("unexpected lines: %v", c.Lines)
	}
}

func TestAddConstantDedupIsCallerResponsibility(t *testing.T) {
	c := NewChunk()
	i0 := c.AddConstant(Number(1))
	i1 := c.AddConstant(Number(1))
	if i0 == i1 {
		t.Fatal("AddConstant should append unconditionally; dedup belongs to the compiler")
	}
	if len(c.Constants) != 2 {
		t.Fatalf("expected 2 constants, got %d", len(c.Constants))
	}
}

func TestLineAtOutOfRange(t *testing.T) {
	c := NewChunk()
	if c.LineAt(-1) != -1 || c.LineAt(0) != -1 {
		t.Error("LineAt should return -1 for an offset with no recorded line")
	}
}
