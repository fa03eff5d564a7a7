// Package chunk implements CodeChunk: the append-only instruction buffer,
// constant pool, and span sidetable that the compiler emits into and the VM
// executes. See SPEC_FULL.md §3 and §4.2.
package chunk

import (
	"fmt"
	"sort"

	"github.com/kcorder/vesper/pkg/token"
	"github.com/kcorder/vesper/pkg/value"
)

// Op is a single-byte opcode.
type Op byte

const (
	OpReturn Op = iota
	OpConstant
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpPrint
	OpNeg
	OpNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpEqual
	OpLess
	OpGreater
	OpDefGlobal
	OpGetGlobal
	OpSetGlobal
	OpGetLocal
	OpSetLocal
	OpJump
	OpJumpF
)

var opNames = [...]string{
	OpReturn:    "RETURN",
	OpConstant:  "CONSTANT",
	OpNil:       "NIL",
	OpTrue:      "TRUE",
	OpFalse:     "FALSE",
	OpPop:       "POP",
	OpPrint:     "PRINT",
	OpNeg:       "NEG",
	OpNot:       "NOT",
	OpAdd:       "ADD",
	OpSub:       "SUB",
	OpMul:       "MUL",
	OpDiv:       "DIV",
	OpAnd:       "AND",
	OpOr:        "OR",
	OpEqual:     "EQUAL",
	OpLess:      "LESS",
	OpGreater:   "GREATER",
	OpDefGlobal: "DEF_GLOBAL",
	OpGetGlobal: "GET_GLOBAL",
	OpSetGlobal: "SET_GLOBAL",
	OpGetLocal:  "GET_LOCAL",
	OpSetLocal:  "SET_LOCAL",
	OpJump:      "JUMP",
	OpJumpF:     "JUMP_F",
}

// String renders the opcode's mnemonic.
func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("UNKNOWN(%d)", byte(op))
}

// MaxConstants is the hard per-chunk constant pool limit: the constant
// index is encoded as a single byte in the instruction stream.
const MaxConstants = 256

// spanEntry records that, from codeOffset onward (until the next entry),
// span is the source range in effect.
type spanEntry struct {
	codeOffset int
	span       token.Span
}

// Chunk is an append-only instruction buffer, constant pool, and span
// sidetable for one compilation unit.
type Chunk struct {
	code      []byte
	constants []value.Value
	spans     []spanEntry
}

// New returns an empty chunk, pre-seeded with the sentinel span entry so
// SpanFor never underflows (SPEC_FULL.md §3).
func New() *Chunk {
	return &Chunk{
		spans: []spanEntry{{codeOffset: 0, span: token.Span{}}},
	}
}

// PushByte appends a raw byte to the instruction stream.
func (c *Chunk) PushByte(b byte) {
	c.code = append(c.code, b)
}

// PushOp appends an opcode byte.
func (c *Chunk) PushOp(op Op) {
	c.PushByte(byte(op))
}

// PushConstant appends v to the constant pool and returns its index. Panics
// if the pool would exceed MaxConstants entries — a hard compile-time
// language limit, not a runtime error (SPEC_FULL.md §4.2).
func (c *Chunk) PushConstant(v value.Value) byte {
	if len(c.constants) >= MaxConstants {
		panic("chunk: exceeded maximum number of constants in a pool (256)")
	}
	c.constants = append(c.constants, v)
	return byte(len(c.constants) - 1)
}

// PushSpan records that sp is the span in effect for code emitted from this
// point on, until the next PushSpan call.
func (c *Chunk) PushSpan(sp token.Span) {
	c.spans = append(c.spans, spanEntry{codeOffset: len(c.code), span: sp})
}

// Patch overwrites the byte at offset — used to back-patch jump operands
// once their target address is known.
func (c *Chunk) Patch(offset int, b byte) {
	c.code[offset] = b
}

// Size returns the number of bytes emitted so far.
func (c *Chunk) Size() int { return len(c.code) }

// ConstantCount returns the number of entries currently in the constant pool.
func (c *Chunk) ConstantCount() int { return len(c.constants) }

// GetByte returns the byte at offset, or false if offset is out of range.
func (c *Chunk) GetByte(offset int) (byte, bool) {
	if offset < 0 || offset >= len(c.code) {
		return 0, false
	}
	return c.code[offset], true
}

// GetConstant returns the constant at idx, or false if idx is out of range.
func (c *Chunk) GetConstant(idx int) (value.Value, bool) {
	if idx < 0 || idx >= len(c.constants) {
		return value.Value{}, false
	}
	return c.constants[idx], true
}

// SpanFor returns the span in effect at code offset pc, found by binary
// search (partition point) over the span sidetable.
func (c *Chunk) SpanFor(pc int) token.Span {
	i := sort.Search(len(c.spans), func(i int) bool {
		return c.spans[i].codeOffset > pc
	})
	// i is the first entry strictly after pc; the entry in effect is the one
	// just before it. The sentinel guarantees i > 0.
	return c.spans[i-1].span
}
