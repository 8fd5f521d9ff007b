package compiler

import (
	"github.com/chazu/loxvm/internal/bytecode"
	"github.com/chazu/loxvm/internal/token"
)

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(token.RightParen, "Expect ')' after expression.")
}

func (c *Compiler) number(_ bool) {
	c.emitConstant(bytecode.Number(parseNumber(c.previous.Lexeme)))
}

func (c *Compiler) string(_ bool) {
	raw := c.previous.Lexeme
	text := raw[1 : len(raw)-1] // strip surrounding quotes
	c.emitConstant(bytecode.FromObject(c.alloc.InternString(text)))
}

func (c *Compiler) literal(_ bool) {
	switch c.previous.Kind {
	case token.False:
		c.emitOp(bytecode.OpFalse)
	case token.True:
		c.emitOp(bytecode.OpTrue)
	case token.Nil:
		c.emitOp(bytecode.OpNil)
	}
}

func (c *Compiler) unary(_ bool) {
	opKind := c.previous.Kind
	c.parsePrecedence(PrecUnary)
	switch opKind {
	case token.Minus:
		c.emitOp(bytecode.OpNegate)
	case token.Bang:
		c.emitOp(bytecode.OpNot)
	}
}

func (c *Compiler) binary(_ bool) {
	opKind := c.previous.Kind
	rule := ruleFor(opKind)
	c.parsePrecedence(rule.Precedence + 1)

	switch opKind {
	case token.BangEqual:
		c.emitOp(bytecode.OpEqual)
		c.emitOp(bytecode.OpNot)
	case token.EqualEqual:
		c.emitOp(bytecode.OpEqual)
	case token.Greater:
		c.emitOp(bytecode.OpGreater)
	case token.GreaterEqual:
		c.emitOp(bytecode.OpLess)
		c.emitOp(bytecode.OpNot)
	case token.Less:
		c.emitOp(bytecode.OpLess)
	case token.LessEqual:
		c.emitOp(bytecode.OpGreater)
		c.emitOp(bytecode.OpNot)
	case token.Plus:
		c.emitOp(bytecode.OpAdd)
	case token.Minus:
		c.emitOp(bytecode.OpSubtract)
	case token.Star:
		c.emitOp(bytecode.OpMultiply)
	case token.Slash:
		c.emitOp(bytecode.OpDivide)
	}
}

// and_ short-circuits: if the left operand is falsey, jump over the
// right operand, leaving the falsey value as the whole expression's
// result.
func (c *Compiler) and_(_ bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

// or_ short-circuits the opposite way: a truthy left operand jumps
// straight past the right operand, leaving the truthy value as the
// whole expression's result.
func (c *Compiler) or_(_ bool) {
	endJump := c.emitJump(bytecode.OpJumpIfTrue)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(_ bool) {
	argc := c.argumentList()
	c.emitOpByte(bytecode.OpCall, argc)
}

// dot compiles a property access or, fused with a trailing call, an
// INVOKE — skipping the intermediate GET_PROPERTY + CALL sequence for
// the common `receiver.method(args)` shape.
func (c *Compiler) dot(canAssign bool) {
	c.consume(token.Identifier, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous.Lexeme)

	switch {
	case canAssign && c.match(token.Equal):
		c.expression()
		c.emitOpByte(bytecode.OpSetProperty, name)
	case c.match(token.LeftParen):
		argc := c.argumentList()
		c.emitOp(bytecode.OpInvoke)
		c.emitByte(name)
		c.emitByte(argc)
	default:
		c.emitOpByte(bytecode.OpGetProperty, name)
	}
}

// namedVariable resolves name to a local, upvalue, or global slot and
// emits the matching GET/SET pair, handling `=` as an assignment target
// only when canAssign permits it.
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp bytecode.Op
	var arg int

	if slot := c.resolveLocal(name); slot != -1 {
		arg = slot
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
	} else if slot := c.resolveUpvalue(name); slot != -1 {
		arg = slot
		getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && c.match(token.Equal) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Lexeme, canAssign)
}

func (c *Compiler) this_(_ bool) {
	if c.class == nil {
		c.errorKind(ThisOutsideClass)
		return
	}
	c.namedVariable("this", false)
}

// super_ compiles `super.method` or, fused with a call, SUPER_INVOKE.
// It reads the current `this` and the enclosing `super` local (pushed
// by the class's inherit-time scope) as the two operands the runtime
// needs to look the method up in the superclass's table and bind it to
// the current instance.
func (c *Compiler) super_(_ bool) {
	if c.class == nil {
		c.errorKind(SuperOutsideClass)
	} else if !c.class.hasSuperclass {
		c.errorKind(SuperInClassWithNoSuperclass)
	}

	c.consume(token.Dot, "Expect '.' after 'super'.")
	c.consume(token.Identifier, "Expect superclass method name.")
	name := c.identifierConstant(c.previous.Lexeme)

	c.namedVariable("this", false)
	if c.match(token.LeftParen) {
		argc := c.argumentList()
		c.namedVariable("super", false)
		c.emitOp(bytecode.OpSuperInvoke)
		c.emitByte(name)
		c.emitByte(argc)
		return
	}

	c.namedVariable("super", false)
	c.emitOpByte(bytecode.OpGetSuper, name)
}
