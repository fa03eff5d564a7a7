// Package compiler fuses lexing-driven parsing and code generation into a
// single pass: there is no intermediate AST. Expressions are parsed with a
// Pratt binding-power loop directly grounded on original_source's
// expression_bp(min_bp) (src/compiler/parser.rs); statements are compiled by
// recursive descent emitting straight into a chunk.Chunk as each construct
// is recognized (SPEC_FULL.md §4.3).
package compiler

import (
	"github.com/kcorder/vesper/pkg/chunk"
	"github.com/kcorder/vesper/pkg/lexer"
	"github.com/kcorder/vesper/pkg/token"
	"github.com/kcorder/vesper/pkg/value"
)

// local tracks one declared local variable. Its runtime stack slot is its
// position in the Compiler.locals slice — not stored explicitly, because
// that position is always recoverable from the slice index itself.
type local struct {
	name  string
	depth int
}

// Compiler compiles one source unit into a chunk.Chunk, interning
// identifiers and string literals into a shared heap. A Compiler is
// scratch state for a single compilation: the REPL constructs a fresh one
// per input line, but keeps passing the same *value.Heap across lines so
// globals persist (SPEC_FULL.md §5).
type Compiler struct {
	lex   *lexer.Lexer
	chunk *chunk.Chunk
	heap  *value.Heap

	locals     []local
	scopeDepth int

	prev token.Token // last token consumed by advance

	errors []*ParseError
}

// Compile parses and compiles source in full, returning the resulting chunk
// and any accumulated parse errors. If errs is non-empty the chunk's
// bytecode must not be run — compilation recorded at least one mistake
// (SPEC_FULL.md §4.3, "never execute bytecode if any parse error occurred").
func Compile(source string, heap *value.Heap) (c *chunk.Chunk, errs []*ParseError) {
	p := &Compiler{
		lex:   lexer.New(source),
		chunk: chunk.New(),
		heap:  heap,
	}
	for !p.check(token.EOF) {
		p.declaration()
	}
	p.chunk.PushOp(chunk.OpReturn)
	return p.chunk, p.errors
}

// --- token helpers ---

func (c *Compiler) peek() token.Token { return c.lex.Peek() }

func (c *Compiler) check(k token.Kind) bool { return c.peek().Kind == k }

func (c *Compiler) advance() token.Token {
	c.prev = c.lex.Advance()
	return c.prev
}

// expect consumes the current token if it has kind k, else records an
// ErrExpectedToken error and returns it unconsumed.
func (c *Compiler) expect(k token.Kind, context string) (token.Token, bool) {
	tok := c.peek()
	if tok.Kind != k {
		c.errorAt(newError(ErrExpectedToken, tok.Span,
			"expected %s %s, found %s", k, context, tok.Kind))
		return tok, false
	}
	return c.advance(), true
}

func (c *Compiler) errorAt(err *ParseError) {
	c.errors = append(c.errors, err)
}

// synchronize discards tokens until a ';' has been consumed or the next
// token starts a new statement, so one mistake doesn't cascade into
// unrelated follow-on errors (SPEC_FULL.md §7). It first checks the token
// consumed last: a statement that recorded an error but still parsed
// through its own trailing ';' is already resynchronized, and must not have
// the next statement's leading token eaten out from under it.
func (c *Compiler) synchronize() {
	if c.prev.Kind == token.Semicolon {
		return
	}
	for !c.check(token.EOF) {
		if c.check(token.Semicolon) {
			c.advance()
			return
		}
		switch c.peek().Kind {
		case token.Class, token.Fn, token.Let, token.For, token.If,
			token.While, token.Print, token.Return:
			return
		}
		c.advance()
	}
}

// --- declarations / statements ---

func (c *Compiler) declaration() {
	before := len(c.errors)
	c.statement()
	if len(c.errors) > before {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	tok := c.peek()
	switch {
	case tok.Kind == token.Print:
		c.printStatement()
	case tok.Kind == token.Let:
		c.letStatement()
	case tok.Kind == token.If:
		c.ifStatement()
	case tok.Kind == token.LBrace:
		c.braceBlock()
	case token.ReservedUnimplemented(tok.Kind):
		c.advance()
		c.errorAt(newError(ErrReservedKeyword, tok.Span,
			"%s is reserved but not implemented", tok.Kind))
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	tok := c.advance() // 'print'
	c.expression()
	c.chunk.PushSpan(tok.Span)
	c.chunk.PushOp(chunk.OpPrint)
	c.expect(token.Semicolon, "after print statement")
}

func (c *Compiler) letStatement() {
	c.advance() // 'let'
	nameTok, ok := c.expect(token.Ident, "after let")
	if !ok {
		return
	}
	name := c.lex.SliceSpan(nameTok.Span)

	if c.check(token.Assign) {
		c.advance()
		c.expression()
	} else {
		c.chunk.PushOp(chunk.OpNil)
	}
	c.expect(token.Semicolon, "after let statement")

	if c.scopeDepth == 0 {
		idx, ok := c.identifierConstant(name, nameTok.Span)
		if !ok {
			return
		}
		c.chunk.PushSpan(nameTok.Span)
		c.chunk.PushOp(chunk.OpDefGlobal)
		c.chunk.PushByte(idx)
		return
	}

	if len(c.locals) >= 256 {
		c.errorAt(newError(ErrTooManyLocals, nameTok.Span,
			"too many locals (max 256)"))
		return
	}
	c.locals = append(c.locals, local{name: name, depth: c.scopeDepth})
}

func (c *Compiler) ifStatement() {
	c.advance() // 'if'
	c.expression()

	thenJump := c.emitJump(chunk.OpJumpF)
	c.chunk.PushOp(chunk.OpPop)
	c.braceBlock()

	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	c.chunk.PushOp(chunk.OpPop)

	if c.check(token.Else) {
		c.advance()
		c.braceBlock()
	}
	c.patchJump(elseJump)
}

// braceBlock compiles "{ declaration* }" as one lexical scope, popping every
// local the block introduced on the way out.
func (c *Compiler) braceBlock() {
	if _, ok := c.expect(token.LBrace, "to start a block"); !ok {
		return
	}
	c.beginScope()
	for !c.check(token.RBrace) && !c.check(token.EOF) {
		c.declaration()
	}
	c.expect(token.RBrace, "to close a block")
	c.endScope()
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.chunk.PushOp(chunk.OpPop)
	c.expect(token.Semicolon, "after expression statement")
}

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		c.locals = c.locals[:len(c.locals)-1]
		c.chunk.PushOp(chunk.OpPop)
	}
}

// --- expressions ---

// bindingPower holds the (left, right) binding powers of a left-associative
// infix operator: right = left+1 makes same-precedence chains left-fold.
type bindingPower struct{ left, right int }

var infixTable = map[token.Kind]bindingPower{
	token.PipePipe:  {1, 2},
	token.Or:        {1, 2},
	token.AmpAmp:    {3, 4},
	token.And:       {3, 4},
	token.EqEq:      {5, 6},
	token.BangEq:    {5, 6},
	token.Greater:   {5, 6},
	token.Less:      {5, 6},
	token.GreaterEq: {5, 6},
	token.LessEq:    {5, 6},
	token.Plus:      {7, 8},
	token.Minus:     {7, 8},
	token.Star:      {9, 10},
	token.Slash:     {9, 10},
}

// unaryRightBP is the binding power unary prefix operators parse their
// operand at: tighter than any binary operator, so "-a + b" is "(-a) + b".
const unaryRightBP = 11

func (c *Compiler) expression() { c.expressionBP(0) }

func (c *Compiler) expressionBP(minBP int) {
	canAssign := minBP == 0
	c.parsePrimary(canAssign)

	for {
		tok := c.peek()
		bp, ok := infixTable[tok.Kind]
		if !ok || bp.left < minBP {
			return
		}
		opTok := c.advance()
		c.expressionBP(bp.right)
		c.chunk.PushSpan(opTok.Span)
		c.emitInfix(opTok.Kind)
	}
}

func (c *Compiler) emitInfix(k token.Kind) {
	switch k {
	case token.Plus:
		c.chunk.PushOp(chunk.OpAdd)
	case token.Minus:
		c.chunk.PushOp(chunk.OpSub)
	case token.Star:
		c.chunk.PushOp(chunk.OpMul)
	case token.Slash:
		c.chunk.PushOp(chunk.OpDiv)
	case token.AmpAmp, token.And:
		c.chunk.PushOp(chunk.OpAnd)
	case token.PipePipe, token.Or:
		c.chunk.PushOp(chunk.OpOr)
	case token.EqEq:
		c.chunk.PushOp(chunk.OpEqual)
	case token.BangEq:
		c.chunk.PushOp(chunk.OpEqual)
		c.chunk.PushOp(chunk.OpNot)
	case token.Less:
		c.chunk.PushOp(chunk.OpLess)
	case token.Greater:
		c.chunk.PushOp(chunk.OpGreater)
	case token.LessEq:
		c.chunk.PushOp(chunk.OpGreater)
		c.chunk.PushOp(chunk.OpNot)
	case token.GreaterEq:
		c.chunk.PushOp(chunk.OpLess)
		c.chunk.PushOp(chunk.OpNot)
	}
}

// parsePrimary compiles one primary expression (literal, identifier,
// parenthesized expression, or unary-prefixed expression) and, for a bare
// identifier immediately followed by '=', folds in assignment-target
// handling right here — before a GET instruction is ever emitted — so the
// assignment can overwrite rather than read the variable.
func (c *Compiler) parsePrimary(canAssign bool) {
	tok := c.peek()

	switch tok.Kind {
	case token.Number:
		c.advance()
		c.emitNumber(tok)
		c.rejectAssign(tok)
		return
	case token.String:
		c.advance()
		c.emitString(tok)
		c.rejectAssign(tok)
		return
	case token.True:
		c.advance()
		c.chunk.PushSpan(tok.Span)
		c.chunk.PushOp(chunk.OpTrue)
		c.rejectAssign(tok)
		return
	case token.False:
		c.advance()
		c.chunk.PushSpan(tok.Span)
		c.chunk.PushOp(chunk.OpFalse)
		c.rejectAssign(tok)
		return
	case token.Nil:
		c.advance()
		c.chunk.PushSpan(tok.Span)
		c.chunk.PushOp(chunk.OpNil)
		c.rejectAssign(tok)
		return
	case token.Ident:
		c.advance()
		c.identifierExpr(tok, canAssign)
		return
	case token.LParen:
		c.advance()
		c.expressionBP(0)
		c.expect(token.RParen, "to close a parenthesized expression")
		c.rejectAssign(tok)
		return
	case token.Minus:
		c.advance()
		c.expressionBP(unaryRightBP)
		c.chunk.PushSpan(tok.Span)
		c.chunk.PushOp(chunk.OpNeg)
		c.rejectAssign(tok)
		return
	case token.Bang, token.Not:
		c.advance()
		c.expressionBP(unaryRightBP)
		c.chunk.PushSpan(tok.Span)
		c.chunk.PushOp(chunk.OpNot)
		c.rejectAssign(tok)
		return
	case token.Percent:
		// '%' lexes as an operator token (SPEC_FULL.md §3) but names no
		// grammar production (§4.3 defines no modulo rule) — reject like any
		// other token that cannot start an expression.
		c.advance()
		c.errorAt(newError(ErrUnexpectedToken, tok.Span,
			"unexpected token %s", tok.Kind))
		return
	default:
		c.advance()
		c.errorAt(newError(ErrUnexpectedToken, tok.Span,
			"unexpected token %s", tok.Kind))
		return
	}
}

// rejectAssign reports "invalid assignment target" if the primary just
// compiled is immediately followed by '=' — literals, parenthesized and
// unary-prefixed expressions reach this path; identifiers handle a
// following '=' in identifierExpr instead.
func (c *Compiler) rejectAssign(tok token.Token) {
	if c.check(token.Assign) {
		c.advance()
		c.errorAt(newError(ErrInvalidAssignmentTarget, tok.Span,
			"invalid assignment target"))
		// Still compile the RHS so we resynchronize past the whole
		// expression rather than leaving '=' '<rhs>' dangling mid-statement.
		c.expressionBP(0)
	}
}

// identifierExpr compiles a bare identifier reference, folding in
// assignment when the identifier is immediately followed by '=' at the top
// of an expression (min_bp == 0, i.e. canAssign).
func (c *Compiler) identifierExpr(tok token.Token, canAssign bool) {
	name := c.lex.SliceSpan(tok.Span)
	slot, isLocal := c.resolveLocal(name)

	if c.check(token.Assign) {
		if !canAssign {
			c.advance()
			c.errorAt(newError(ErrInvalidAssignmentTarget, tok.Span,
				"invalid assignment target"))
			c.expressionBP(0)
			return
		}
		c.advance() // '='
		c.expressionBP(0)
		c.chunk.PushSpan(tok.Span)
		if isLocal {
			c.chunk.PushOp(chunk.OpSetLocal)
			c.chunk.PushByte(slot)
		} else {
			idx, ok := c.identifierConstant(name, tok.Span)
			if !ok {
				return
			}
			c.chunk.PushOp(chunk.OpSetGlobal)
			c.chunk.PushByte(idx)
		}
		return
	}

	c.chunk.PushSpan(tok.Span)
	if isLocal {
		c.chunk.PushOp(chunk.OpGetLocal)
		c.chunk.PushByte(slot)
	} else {
		idx, ok := c.identifierConstant(name, tok.Span)
		if !ok {
			return
		}
		c.chunk.PushOp(chunk.OpGetGlobal)
		c.chunk.PushByte(idx)
	}
}

func (c *Compiler) resolveLocal(name string) (slot byte, found bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return byte(i), true
		}
	}
	return 0, false
}

func (c *Compiler) emitNumber(tok token.Token) {
	text := c.lex.SliceSpan(tok.Span)
	n := parseFloat(text)
	idx, ok := c.pushConstant(value.Number(n), tok.Span)
	if !ok {
		return
	}
	c.chunk.PushSpan(tok.Span)
	c.chunk.PushOp(chunk.OpConstant)
	c.chunk.PushByte(idx)
}

func (c *Compiler) emitString(tok token.Token) {
	raw := c.lex.SliceSpan(tok.Span)
	// Strip the surrounding quotes; an unterminated string (no closing
	// quote) keeps whatever the lexer captured rather than panicking.
	s := raw
	if len(s) >= 1 && s[0] == '"' {
		s = s[1:]
	}
	if len(s) >= 1 && s[len(s)-1] == '"' {
		s = s[:len(s)-1]
	}
	key := c.heap.Intern(s)
	idx, ok := c.pushConstant(value.Object(key), tok.Span)
	if !ok {
		return
	}
	c.chunk.PushSpan(tok.Span)
	c.chunk.PushOp(chunk.OpConstant)
	c.chunk.PushByte(idx)
}

func (c *Compiler) identifierConstant(name string, span token.Span) (byte, bool) {
	key := c.heap.Intern(name)
	return c.pushConstant(value.Object(key), span)
}

// pushConstant checks the 256-entry constant pool limit before delegating
// to chunk.PushConstant, so overflow is a recorded ParseError rather than a
// panic reaching the caller (SPEC_FULL.md §4.2, §9: ">256 distinct
// constants is a compile-time failure").
func (c *Compiler) pushConstant(v value.Value, span token.Span) (byte, bool) {
	if c.chunk.ConstantCount() >= chunk.MaxConstants {
		c.errorAt(newError(ErrConstantPoolOverflow, span,
			"too many constants in one chunk (max %d)", chunk.MaxConstants))
		return 0, false
	}
	return c.chunk.PushConstant(v), true
}

// --- jumps ---

// emitJump writes op followed by a two-byte placeholder operand and returns
// the operand's offset, for a later patchJump call once the target address
// is known.
func (c *Compiler) emitJump(op chunk.Op) int {
	c.chunk.PushOp(op)
	c.chunk.PushByte(0xff)
	c.chunk.PushByte(0xff)
	return c.chunk.Size() - 2
}

// patchJump back-patches the jump operand at offset to land on the current
// chunk end.
func (c *Compiler) patchJump(offset int) {
	dist := c.chunk.Size() - (offset + 2)
	if dist > 0xffff {
		c.errorAt(newError(ErrJumpTooLong, token.Span{},
			"jump distance %d exceeds maximum (65535)", dist))
		dist = 0xffff
	}
	c.chunk.Patch(offset, byte(dist>>8))
	c.chunk.Patch(offset+1, byte(dist&0xff))
}
