package compiler

import "github.com/chazu/loxvm/internal/token"

// Precedence orders binding strength from loosest to tightest, exactly
// as the grammar's precedence climb expects.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

// ParseRule binds a token kind to its prefix parser, infix parser, and
// the precedence used when that token appears as an infix operator.
type ParseRule struct {
	Prefix     parseFn
	Infix      parseFn
	Precedence Precedence
}

var rules map[token.Kind]ParseRule

func init() {
	rules = map[token.Kind]ParseRule{
		token.LeftParen:    {Prefix: (*Compiler).grouping, Infix: (*Compiler).call, Precedence: PrecCall},
		token.Dot:          {Infix: (*Compiler).dot, Precedence: PrecCall},
		token.Minus:        {Prefix: (*Compiler).unary, Infix: (*Compiler).binary, Precedence: PrecTerm},
		token.Plus:         {Infix: (*Compiler).binary, Precedence: PrecTerm},
		token.Slash:        {Infix: (*Compiler).binary, Precedence: PrecFactor},
		token.Star:         {Infix: (*Compiler).binary, Precedence: PrecFactor},
		token.Bang:         {Prefix: (*Compiler).unary},
		token.BangEqual:    {Infix: (*Compiler).binary, Precedence: PrecEquality},
		token.EqualEqual:   {Infix: (*Compiler).binary, Precedence: PrecEquality},
		token.Greater:      {Infix: (*Compiler).binary, Precedence: PrecComparison},
		token.GreaterEqual: {Infix: (*Compiler).binary, Precedence: PrecComparison},
		token.Less:         {Infix: (*Compiler).binary, Precedence: PrecComparison},
		token.LessEqual:    {Infix: (*Compiler).binary, Precedence: PrecComparison},
		token.Identifier:   {Prefix: (*Compiler).variable},
		token.String:       {Prefix: (*Compiler).string},
		token.Number:       {Prefix: (*Compiler).number},
		token.And:          {Infix: (*Compiler).and_, Precedence: PrecAnd},
		token.Or:           {Infix: (*Compiler).or_, Precedence: PrecOr},
		token.False:        {Prefix: (*Compiler).literal},
		token.Nil:          {Prefix: (*Compiler).literal},
		token.True:         {Prefix: (*Compiler).literal},
		token.This:         {Prefix: (*Compiler).this_},
		token.Super:        {Prefix: (*Compiler).super_},
	}
}

func ruleFor(k token.Kind) ParseRule {
	return rules[k]
}

// parsePrecedence climbs the grammar at or above prec: it applies the
// current token's prefix rule, then repeatedly consumes infix operators
// whose precedence is at least prec.
func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := ruleFor(c.previous.Kind).Prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	prefix(c, canAssign)

	for prec <= ruleFor(c.current.Kind).Precedence {
		c.advance()
		infix := ruleFor(c.previous.Kind).Infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.Equal) {
		c.errorKind(InvalidAssignmentTarget)
	}
}

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}
