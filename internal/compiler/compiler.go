// Package compiler implements the single-pass Pratt compiler: it fuses
// parsing and bytecode emission so no intermediate AST is ever built.
package compiler

import (
	"strconv"

	"github.com/chazu/loxvm/internal/alloc"
	"github.com/chazu/loxvm/internal/bytecode"
	"github.com/chazu/loxvm/internal/lexer"
	"github.com/chazu/loxvm/internal/token"
)

const maxLocals = 256
const maxUpvalues = 256
const maxParams = 255
const maxJump = 1<<16 - 1

// FunctionKind distinguishes the compiler instance compiling the
// top-level script from one compiling a function, method, or initializer
// body — it changes what `return` and `this` mean.
type FunctionKind int

const (
	KindScript FunctionKind = iota
	KindFunction
	KindMethod
	KindInitializer
)

// Local tracks one declared local variable's name, the scope depth it
// was declared at (-1 while its initializer is still being compiled),
// and whether any nested function captures it as an upvalue.
type Local struct {
	Name       string
	Depth      int
	IsCaptured bool
}

// Upvalue records how a compiled function closes over a variable from
// an enclosing function: either by lifting an enclosing local directly,
// or by forwarding an upvalue the enclosing function already captured.
type Upvalue struct {
	Index   byte
	IsLocal bool
}

// classState tracks the class currently being compiled, linked to any
// enclosing class so nested class declarations resolve `this`/`super`
// correctly.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler compiles one function body (or the top-level script) into a
// bytecode.FunctionObj. Nested functions get their own Compiler chained
// via enclosing, mirroring the call stack of nested function
// declarations in the source.
type Compiler struct {
	enclosing *Compiler
	alloc     *alloc.Allocator
	lex       *lexer.Lexer

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errors    []CompileError

	function *bytecode.FunctionObj
	kind     FunctionKind

	locals     []Local
	scopeDepth int
	upvalues   []Upvalue

	class *classState
}

// Compile compiles source into a top-level script function. The second
// return value is empty on success; on failure it lists every compile
// error recovered via panic-mode synchronization (the returned function
// is still non-nil but must not be run).
func Compile(source string, a *alloc.Allocator) (*bytecode.FunctionObj, []CompileError) {
	c := newCompiler(nil, a, lexer.New(source), KindScript, "")
	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endCompiler()
	return fn, c.errors
}

func newCompiler(enclosing *Compiler, a *alloc.Allocator, lex *lexer.Lexer, kind FunctionKind, name string) *Compiler {
	c := &Compiler{
		enclosing: enclosing,
		alloc:     a,
		kind:      kind,
		function:  a.NewFunction(name),
	}
	if enclosing != nil {
		c.lex = enclosing.lex
		c.current = enclosing.current
		c.previous = enclosing.previous
		c.class = enclosing.class
	} else {
		c.lex = lex
	}

	// Slot 0 is reserved: the receiver for methods/initializers, an
	// unnamed sentinel for plain functions and the top-level script.
	reserved := ""
	if kind == KindMethod || kind == KindInitializer {
		reserved = "this"
	}
	c.locals = append(c.locals, Local{Name: reserved, Depth: 0})

	return c
}

// ---------------------------------------------------------------------------
// Token stream plumbing
// ---------------------------------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.Next()
		if c.current.Kind != token.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(k token.Kind) bool {
	return c.current.Kind == k
}

func (c *Compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k token.Kind, message string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *Compiler) errorAt(t token.Token, kind ErrorKind, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	lexeme := t.Lexeme
	if t.Kind == token.EOF {
		lexeme = ""
	}
	c.errors = append(c.errors, CompileError{Kind: kind, Line: t.Line, Lexeme: lexeme, Message: message})
}

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, UnexpectedToken, message)
}

func (c *Compiler) error(message string) {
	c.errorAt(c.previous, UnexpectedToken, message)
}

func (c *Compiler) errorKind(kind ErrorKind) {
	c.errorAt(c.previous, kind, errorMessages[kind])
}

func (c *Compiler) errorKindAt(t token.Token, kind ErrorKind) {
	c.errorAt(t, kind, errorMessages[kind])
}

// synchronize discards tokens until it reaches a statement boundary,
// limiting error cascades after a parse error.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.Semicolon {
			return
		}
		switch c.current.Kind {
		case token.Class, token.Fun, token.Var, token.For,
			token.If, token.While, token.Return:
			return
		}
		c.advance()
	}
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

func (c *Compiler) chunk() *bytecode.Chunk { return c.function.Chunk }

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op bytecode.Op) {
	c.chunk().WriteOp(op, c.previous.Line)
}

func (c *Compiler) emitOpByte(op bytecode.Op, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(bytecode.OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > maxJump {
		c.errorKind(LoopLimitExceeded)
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

func (c *Compiler) emitJump(op bytecode.Op) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > maxJump {
		c.errorKind(JumpLimitExceeded)
	}
	c.chunk().Code[offset] = byte(jump >> 8)
	c.chunk().Code[offset+1] = byte(jump)
}

func (c *Compiler) makeConstant(v bytecode.Value) byte {
	if len(c.chunk().Constants) >= bytecode.MaxConstants {
		c.errorKind(ConstantLimitExceeded)
		return 0
	}
	return byte(c.chunk().AddConstant(v))
}

func (c *Compiler) emitConstant(v bytecode.Value) {
	c.emitOpByte(bytecode.OpConstant, c.makeConstant(v))
}

func (c *Compiler) identifierConstant(name string) byte {
	return c.makeConstant(bytecode.FromObject(c.alloc.InternString(name)))
}

func (c *Compiler) emitReturn() {
	if c.kind == KindInitializer {
		c.emitOpByte(bytecode.OpGetLocal, 0)
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.emitOp(bytecode.OpReturn)
}

func (c *Compiler) endCompiler() *bytecode.FunctionObj {
	c.emitReturn()
	return c.function
}

// ---------------------------------------------------------------------------
// Scopes and locals
// ---------------------------------------------------------------------------

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].Depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.IsCaptured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (c *Compiler) addLocal(name string) {
	if len(c.locals) >= maxLocals {
		c.errorKind(LocalLimitExceeded)
		return
	}
	c.locals = append(c.locals, Local{Name: name, Depth: -1})
}

func (c *Compiler) declareVariable(name string) {
	if c.scopeDepth == 0 {
		return
	}
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.Depth != -1 && l.Depth < c.scopeDepth {
			break
		}
		if l.Name == name {
			c.errorKind(RedefinedInSameScope)
		}
	}
	c.addLocal(name)
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].Depth = c.scopeDepth
}

func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			if c.locals[i].Depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) addUpvalue(index byte, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= maxUpvalues {
		c.errorKind(UpvalueLimitExceeded)
		return 0
	}
	c.upvalues = append(c.upvalues, Upvalue{Index: index, IsLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := c.enclosing.resolveLocal(name); local != -1 {
		c.enclosing.locals[local].IsCaptured = true
		return c.addUpvalue(byte(local), true)
	}
	if up := c.enclosing.resolveUpvalue(name); up != -1 {
		return c.addUpvalue(byte(up), false)
	}
	return -1
}

// parseVariable consumes an identifier, declares it if inside a scope,
// and returns the constant-pool index to use with DEFINE_GLOBAL (0 when
// the variable is local and no global slot is needed).
func (c *Compiler) parseVariable(message string) byte {
	c.consume(token.Identifier, message)
	name := c.previous.Lexeme
	c.declareVariable(name)
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(bytecode.OpDefineGlobal, global)
}

func (c *Compiler) argumentList() byte {
	argc := 0
	if !c.check(token.RightParen) {
		for {
			c.expression()
			if argc == maxParams {
				c.error("Can't have more than 255 arguments.")
			} else {
				argc++
			}
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RightParen, "Expect ')' after arguments.")
	return byte(argc)
}

// parseNumber converts a NUMBER token's lexeme to a float64; the lexer
// guarantees the text matches digits+('.'+digits)?, so this never fails.
func parseNumber(lexeme string) float64 {
	n, _ := strconv.ParseFloat(lexeme, 64)
	return n
}
