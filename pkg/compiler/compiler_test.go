package compiler_test

import (
	"testing"

	"github.com/kcorder/vesper/pkg/bytecode"
	"github.com/kcorder/vesper/pkg/chunk"
	"github.com/kcorder/vesper/pkg/compiler"
	"github.com/kcorder/vesper/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileOK(t *testing.T, src string) *chunk.Chunk {
	t.Helper()
	h := value.NewHeap()
	c, errs := compiler.Compile(src, h)
	require.Empty(t, errs, "unexpected parse errors for %q", src)
	return c
}

func TestCompileArithmeticPrecedence(t *testing.T) {
	c := compileOK(t, "print 1 + 2 * 3;")
	out := bytecode.Disassemble(c)
	assert.Contains(t, out, "MUL")
	assert.Contains(t, out, "ADD")
	assert.Contains(t, out, "PRINT")
}

func TestCompileLetGlobalAndReassignment(t *testing.T) {
	c := compileOK(t, "let x = 10; x = x + 5; print x;")
	out := bytecode.Disassemble(c)
	assert.Contains(t, out, "DEF_GLOBAL")
	assert.Contains(t, out, "SET_GLOBAL")
	assert.Contains(t, out, "GET_GLOBAL")
}

func TestCompileLetLocalUsesLocalOps(t *testing.T) {
	c := compileOK(t, "{ let x = 1; print x; }")
	out := bytecode.Disassemble(c)
	assert.NotContains(t, out, "DEF_GLOBAL")
	assert.Contains(t, out, "GET_LOCAL")
}

func TestCompileBlockScopingPopsLocalsOnExit(t *testing.T) {
	c := compileOK(t, "{ let a = 1; let b = 2; }")
	out := bytecode.Disassemble(c)
	// Two locals declared, none escape the block: two POPs on the way out.
	assert.Equal(t, 2, countOccurrences(out, "POP\n"))
}

func TestCompileShadowingInNestedBlock(t *testing.T) {
	c := compileOK(t, "let x = 1; { let x = 2; print x; } print x;")
	out := bytecode.Disassemble(c)
	assert.Contains(t, out, "GET_LOCAL")
	assert.Contains(t, out, "GET_GLOBAL")
}

func TestCompileIfElse(t *testing.T) {
	c := compileOK(t, "if true { print 1; } else { print 2; }")
	out := bytecode.Disassemble(c)
	assert.Contains(t, out, "JUMP_F")
	assert.Contains(t, out, "JUMP ")
}

func TestCompileUnaryNegAndNot(t *testing.T) {
	c := compileOK(t, "print -5; print !true; print not false;")
	out := bytecode.Disassemble(c)
	assert.Contains(t, out, "NEG")
	// Both '!' and the 'not' keyword compile to the same NOT opcode.
	assert.Equal(t, 2, countOccurrences(out, "NOT\n"))
}

func TestCompileStringConcatConstants(t *testing.T) {
	c := compileOK(t, `print "a" + "b";`)
	out := bytecode.Disassemble(c)
	assert.Contains(t, out, "'a'")
	assert.Contains(t, out, "'b'")
}

func TestInvalidAssignmentTargetLiteral(t *testing.T) {
	h := value.NewHeap()
	_, errs := compiler.Compile("1 = 2;", h)
	require.NotEmpty(t, errs)
	assert.Equal(t, compiler.ErrInvalidAssignmentTarget, errs[0].Kind)
}

func TestInvalidAssignmentTargetInSubexpression(t *testing.T) {
	// "y = 2" appears as the right operand of '+', parsed at a binding power
	// above zero, so it is not at the top of an expression.
	h := value.NewHeap()
	_, errs := compiler.Compile("let y = 0; print 1 + y = 2;", h)
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.Kind == compiler.ErrInvalidAssignmentTarget {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReservedKeywordRejected(t *testing.T) {
	tests := []string{"while true {}", "fn f() {}", "class C {}", "return 1;"}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			h := value.NewHeap()
			_, errs := compiler.Compile(src, h)
			require.NotEmpty(t, errs)
			assert.Equal(t, compiler.ErrReservedKeyword, errs[0].Kind)
		})
	}
}

func TestParseErrorsAccumulateAcrossStatements(t *testing.T) {
	h := value.NewHeap()
	_, errs := compiler.Compile("1 = 2; 3 = 4;", h)
	assert.Len(t, errs, 2, "both malformed statements should be reported, not just the first")
}

func TestConstantPoolOverflow(t *testing.T) {
	h := value.NewHeap()
	src := ""
	for i := 0; i < 300; i++ {
		src += "print " + itoa(i) + ";"
	}
	_, errs := compiler.Compile(src, h)
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.Kind == compiler.ErrConstantPoolOverflow {
			found = true
		}
	}
	assert.True(t, found)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
