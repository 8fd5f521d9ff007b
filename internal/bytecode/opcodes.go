package bytecode

import "fmt"

// Op is a single VM instruction opcode.
type Op byte

const (
	OpReturn Op = iota
	OpConstant
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpNot
	OpNegate
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpDefineGlobal
	OpGetGlobal
	OpSetGlobal
	OpGetLocal
	OpSetLocal
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpLoop
	OpCall
	OpClosure
	OpGetUpvalue
	OpSetUpvalue
	OpCloseUpvalue
	OpClass
	OpGetProperty
	OpSetProperty
	OpMethod
	OpInvoke
	OpInherit
	OpGetSuper
	OpSuperInvoke
)

// OpInfo describes an opcode's on-the-wire shape: how many operand
// bytes follow it. This is the single table the spec's "disassembler
// alignment" open question asks to centralize — both Disassemble and
// anything else that needs to skip an instruction use OperandBytes
// instead of re-deriving widths per opcode.
type OpInfo struct {
	Name          string
	OperandBytes  int // fixed operand width; -1 means variable (CLOSURE)
}

var opInfo = map[Op]OpInfo{
	OpReturn:       {"RETURN", 0},
	OpConstant:     {"CONSTANT", 1},
	OpNil:          {"NIL", 0},
	OpTrue:         {"TRUE", 0},
	OpFalse:        {"FALSE", 0},
	OpPop:          {"POP", 0},
	OpNot:          {"NOT", 0},
	OpNegate:       {"NEGATE", 0},
	OpEqual:        {"EQUAL", 0},
	OpGreater:      {"GREATER", 0},
	OpLess:         {"LESS", 0},
	OpAdd:          {"ADD", 0},
	OpSubtract:     {"SUBTRACT", 0},
	OpMultiply:     {"MULTIPLY", 0},
	OpDivide:       {"DIVIDE", 0},
	OpDefineGlobal: {"DEFINE_GLOBAL", 1},
	OpGetGlobal:    {"GET_GLOBAL", 1},
	OpSetGlobal:    {"SET_GLOBAL", 1},
	OpGetLocal:     {"GET_LOCAL", 1},
	OpSetLocal:     {"SET_LOCAL", 1},
	OpJump:         {"JUMP", 2},
	OpJumpIfFalse:  {"JUMP_IF_FALSE", 2},
	OpJumpIfTrue:   {"JUMP_IF_TRUE", 2},
	OpLoop:         {"LOOP", 2},
	OpCall:         {"CALL", 1},
	OpClosure:      {"CLOSURE", -1},
	OpGetUpvalue:   {"GET_UPVALUE", 1},
	OpSetUpvalue:   {"SET_UPVALUE", 1},
	OpCloseUpvalue: {"CLOSE_UPVALUE", 0},
	OpClass:        {"CLASS", 1},
	OpGetProperty:  {"GET_PROPERTY", 1},
	OpSetProperty:  {"SET_PROPERTY", 1},
	OpMethod:       {"METHOD", 1},
	OpInvoke:       {"INVOKE", 2},
	OpInherit:      {"INHERIT", 0},
	OpGetSuper:     {"GET_SUPER", 1},
	OpSuperInvoke:  {"SUPER_INVOKE", 2},
}

// Info returns the operand-width metadata for op.
func Info(op Op) OpInfo {
	if info, ok := opInfo[op]; ok {
		return info
	}
	return OpInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), OperandBytes: 0}
}

func (op Op) String() string {
	return Info(op).Name
}
