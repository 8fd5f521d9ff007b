package compiler

import (
	"github.com/chazu/loxvm/internal/bytecode"
	"github.com/chazu/loxvm/internal/token"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(token.Class):
		c.classDeclaration()
	case c.match(token.Fun):
		c.funDeclaration()
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.If):
		c.ifStatement()
	case c.match(token.While):
		c.whileStatement()
	case c.match(token.For):
		c.forStatement()
	case c.match(token.Return):
		c.returnStatement()
	case c.match(token.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RightBrace) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RightBrace, "Expect '}' after block.")
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after expression.")
	c.emitOp(bytecode.OpPop)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(token.Equal) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.consume(token.Semicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)

	if c.match(token.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(token.LeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop)
}

// forStatement desugars the C-style for loop into the equivalent while
// loop's bytecode shape: an optional initializer in its own scope, the
// condition guarding an exit jump, the body, then the increment spliced
// in via a jump-over/loop-back dance so it runs after the body but
// before the next condition check.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(token.Semicolon):
		// no initializer
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(token.Semicolon) {
		c.expression()
		c.consume(token.Semicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emitOp(bytecode.OpPop)
	}

	if !c.match(token.RightParen) {
		bodyJump := c.emitJump(bytecode.OpJump)

		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(bytecode.OpPop)
		c.consume(token.RightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(bytecode.OpPop)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.kind == KindScript {
		c.errorKind(ReturnOutsideFunction)
	}
	if c.match(token.Semicolon) {
		c.emitReturn()
		return
	}
	if c.kind == KindInitializer {
		c.errorKind(ReturnInsideInitializer)
	}
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after return value.")
	c.emitOp(bytecode.OpReturn)
}

// funDeclaration compiles a named function: the name is declared (and,
// for globals, defined) in the enclosing compiler before the body is
// parsed, so a function can refer to itself recursively.
func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function_(KindFunction, c.previous.Lexeme)
	c.defineVariable(global)
}

// function_ parses a parameter list and body into a freshly chained
// Compiler, then emits CLOSURE in the enclosing chunk with the
// resulting function as its constant, followed by one (isLocal, index)
// pair per captured upvalue.
func (c *Compiler) function_(kind FunctionKind, name string) {
	sub := newCompiler(c, c.alloc, nil, kind, name)

	sub.beginScope()
	sub.consume(token.LeftParen, "Expect '(' after function name.")
	if !sub.check(token.RightParen) {
		for {
			sub.function.Arity++
			if sub.function.Arity > maxParams {
				sub.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := sub.parseVariable("Expect parameter name.")
			sub.defineVariable(paramConst)
			if !sub.match(token.Comma) {
				break
			}
		}
	}
	sub.consume(token.RightParen, "Expect ')' after parameters.")
	sub.consume(token.LeftBrace, "Expect '{' before function body.")
	sub.block()

	fn := sub.endCompiler()

	c.current = sub.current
	c.previous = sub.previous
	c.errors = append(c.errors, sub.errors...)
	c.hadError = c.hadError || sub.hadError

	c.emitOpByte(bytecode.OpClosure, c.makeConstant(bytecode.FromObject(fn)))
	for _, uv := range sub.upvalues {
		if uv.IsLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(uv.Index)
	}
}

// classDeclaration compiles a class: its name (declared before the body
// so methods can refer to the class itself), an optional superclass
// (pushed under a synthetic `super` local so methods resolve it as an
// upvalue), and each method compiled as a closure stored via METHOD.
func (c *Compiler) classDeclaration() {
	c.consume(token.Identifier, "Expect class name.")
	nameTok := c.previous
	nameConst := c.identifierConstant(nameTok.Lexeme)
	c.declareVariable(nameTok.Lexeme)

	c.emitOpByte(bytecode.OpClass, nameConst)
	c.defineVariable(nameConst)

	cls := &classState{enclosing: c.class}
	c.class = cls

	if c.match(token.Less) {
		c.consume(token.Identifier, "Expect superclass name.")
		if c.previous.Lexeme == nameTok.Lexeme {
			c.errorKind(CyclicInheritance)
		}
		c.variable(false)

		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariable(nameTok.Lexeme, false)
		c.emitOp(bytecode.OpInherit)
		cls.hasSuperclass = true
	}

	c.namedVariable(nameTok.Lexeme, false)
	c.consume(token.LeftBrace, "Expect '{' before class body.")
	for !c.check(token.RightBrace) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RightBrace, "Expect '}' after class body.")
	c.emitOp(bytecode.OpPop) // the class value pushed for method binding

	if cls.hasSuperclass {
		c.endScope()
	}
	c.class = cls.enclosing
}

func (c *Compiler) method() {
	c.consume(token.Identifier, "Expect method name.")
	name := c.previous.Lexeme
	nameConst := c.identifierConstant(name)

	kind := KindMethod
	if name == "init" {
		kind = KindInitializer
	}
	c.function_(kind, name)
	c.emitOpByte(bytecode.OpMethod, nameConst)
}
