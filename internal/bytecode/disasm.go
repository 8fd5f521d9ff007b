package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of every instruction in
// the chunk, headed by name.
func Disassemble(c *Chunk, name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(&sb, c, offset)
	}
	return sb.String()
}

// DisassembleInstruction writes one instruction at offset to sb and
// returns the offset of the next instruction. Centralizing operand
// widths in Info keeps this in lockstep with CLOSURE's variable-length
// upvalue operand list (spec's disassembler-alignment open question).
func DisassembleInstruction(sb *strings.Builder, c *Chunk, offset int) int {
	fmt.Fprintf(sb, "%04d ", offset)
	if offset > 0 && c.LineAt(offset) == c.LineAt(offset-1) {
		fmt.Fprint(sb, "   | ")
	} else {
		fmt.Fprintf(sb, "%4d ", c.LineAt(offset))
	}

	op := Op(c.Code[offset])
	info := Info(op)

	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal, OpClass,
		OpGetProperty, OpSetProperty, OpMethod, OpGetSuper:
		constantInstruction(sb, info.Name, c, offset)
	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall:
		byteInstruction(sb, info.Name, c, offset)
	case OpJump, OpJumpIfFalse, OpJumpIfTrue:
		jumpInstruction(sb, info.Name, 1, c, offset)
	case OpLoop:
		jumpInstruction(sb, info.Name, -1, c, offset)
	case OpInvoke, OpSuperInvoke:
		invokeInstruction(sb, info.Name, c, offset)
	case OpClosure:
		return closureInstruction(sb, c, offset)
	default:
		fmt.Fprintln(sb, info.Name)
	}
	return offset + 1 + info.OperandBytes
}

func constantInstruction(sb *strings.Builder, name string, c *Chunk, offset int) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(sb, "%-16s %4d '%s'\n", name, idx, c.Constants[idx].String())
	return offset + 2
}

func byteInstruction(sb *strings.Builder, name string, c *Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(sb, "%-16s %4d\n", name, slot)
	return offset + 2
}

func jumpInstruction(sb *strings.Builder, name string, sign int, c *Chunk, offset int) int {
	jump := int(binary.BigEndian.Uint16(c.Code[offset+1 : offset+3]))
	target := offset + 3 + sign*jump
	fmt.Fprintf(sb, "%-16s %4d -> %d\n", name, offset, target)
	return offset + 3
}

func invokeInstruction(sb *strings.Builder, name string, c *Chunk, offset int) int {
	idx := c.Code[offset+1]
	argc := c.Code[offset+2]
	fmt.Fprintf(sb, "%-16s (%d args) %4d '%s'\n", name, argc, idx, c.Constants[idx].String())
	return offset + 3
}

func closureInstruction(sb *strings.Builder, c *Chunk, offset int) int {
	offset++
	idx := c.Code[offset]
	offset++
	fmt.Fprintf(sb, "%-16s %4d '%s'\n", "CLOSURE", idx, c.Constants[idx].String())

	fn, ok := c.Constants[idx].AsObject().(*FunctionObj)
	if !ok {
		return offset
	}
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := c.Code[offset]
		offset++
		index := c.Code[offset]
		offset++
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(sb, "%04d      |                     %s %d\n", offset-2, kind, index)
	}
	return offset
}
