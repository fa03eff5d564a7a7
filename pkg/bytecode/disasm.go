// Package bytecode provides a plain-text disassembler for chunk.Chunk,
// adapted from kristofer-smog's pkg/bytecode/format.go with the .sg binary
// file format and ANSI color stripped — there is no on-disk bytecode format
// in this spec, and colored disassembly belongs to the external CLI, not the
// core. What remains is test tooling: _test.go files in pkg/compiler and
// pkg/vm use Disassemble to assert on emitted instruction sequences.
package bytecode

import (
	"fmt"
	"strings"

	"github.com/kcorder/vesper/pkg/chunk"
	"github.com/kcorder/vesper/pkg/value"
)

// operandWidth is the number of operand bytes each opcode consumes, keyed by
// opcode so the one-instruction formatter and the walking disassembler
// agree on instruction length.
var operandWidth = map[chunk.Op]int{
	chunk.OpReturn:    0,
	chunk.OpConstant:  1,
	chunk.OpNil:       0,
	chunk.OpTrue:      0,
	chunk.OpFalse:     0,
	chunk.OpPop:       0,
	chunk.OpPrint:     0,
	chunk.OpNeg:       0,
	chunk.OpNot:       0,
	chunk.OpAdd:       0,
	chunk.OpSub:       0,
	chunk.OpMul:       0,
	chunk.OpDiv:       0,
	chunk.OpAnd:       0,
	chunk.OpOr:        0,
	chunk.OpEqual:     0,
	chunk.OpLess:      0,
	chunk.OpGreater:   0,
	chunk.OpDefGlobal: 1,
	chunk.OpGetGlobal: 1,
	chunk.OpSetGlobal: 1,
	chunk.OpGetLocal:  1,
	chunk.OpSetLocal:  1,
	chunk.OpJump:  2,
	chunk.OpJumpF: 2,
}

// Disassemble renders every instruction in c as "OFFSET MNEMONIC operand",
// one per line, with constant operands annotated with their value.
func Disassemble(c *chunk.Chunk) string {
	var b strings.Builder
	offset := 0
	for offset < c.Size() {
		n := disassembleOne(&b, c, offset)
		offset += n
	}
	return b.String()
}

func disassembleOne(b *strings.Builder, c *chunk.Chunk, offset int) int {
	opByte, ok := c.GetByte(offset)
	if !ok {
		fmt.Fprintf(b, "%04d UNEXPECTED_END\n", offset)
		return 1
	}
	op := chunk.Op(opByte)
	width, known := operandWidth[op]
	if !known {
		fmt.Fprintf(b, "%04d UNKNOWN(%d)\n", offset, opByte)
		return 1
	}

	switch width {
	case 0:
		fmt.Fprintf(b, "%04d %s\n", offset, op)
	case 1:
		operand, _ := c.GetByte(offset + 1)
		if op == chunk.OpConstant || op == chunk.OpDefGlobal || op == chunk.OpGetGlobal || op == chunk.OpSetGlobal {
			cst, _ := c.GetConstant(int(operand))
			fmt.Fprintf(b, "%04d %-11s %3d '%s'\n", offset, op, operand, cst.Display(nil))
		} else {
			fmt.Fprintf(b, "%04d %-11s %3d\n", offset, op, operand)
		}
	case 2:
		hi, _ := c.GetByte(offset + 1)
		lo, _ := c.GetByte(offset + 2)
		rel := int(hi)<<8 | int(lo)
		target := offset + 1 + width + rel
		fmt.Fprintf(b, "%04d %-11s -> %d\n", offset, op, target)
	}
	return 1 + width
}

// FormatConstant is a small helper exposed for tests that want to print a
// constant pool entry without resolving heap-backed strings (Display needs
// a *value.Heap for Object values; this falls back to the object's raw key
// string form instead of panicking on a nil heap).
func FormatConstant(v value.Value) string {
	return v.Display(nil)
}
