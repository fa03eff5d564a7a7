package chunk_test

import (
	"testing"

	"github.com/kcorder/vesper/pkg/chunk"
	"github.com/kcorder/vesper/pkg/token"
	"github.com/kcorder/vesper/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushByteAndOp(t *testing.T) {
	c := chunk.New()
	c.PushOp(chunk.OpNil)
	c.PushOp(chunk.OpReturn)
	assert.Equal(t, 2, c.Size())

	b, ok := c.GetByte(0)
	require.True(t, ok)
	assert.Equal(t, byte(chunk.OpNil), b)
}

func TestPushConstant(t *testing.T) {
	c := chunk.New()
	idx := c.PushConstant(value.Number(42))
	assert.Equal(t, byte(0), idx)
	assert.Equal(t, 1, c.ConstantCount())

	v, ok := c.GetConstant(0)
	require.True(t, ok)
	assert.Equal(t, value.Number(42), v)

	_, ok = c.GetConstant(1)
	assert.False(t, ok)
}

func TestPushConstantOverflowPanics(t *testing.T) {
	c := chunk.New()
	for i := 0; i < chunk.MaxConstants; i++ {
		c.PushConstant(value.Number(float64(i)))
	}
	assert.Panics(t, func() {
		c.PushConstant(value.Number(999))
	})
}

func TestPatch(t *testing.T) {
	c := chunk.New()
	c.PushOp(chunk.OpJump)
	c.PushByte(0xff)
	c.PushByte(0xff)
	c.Patch(1, 0x00)
	c.Patch(2, 0x05)

	b1, _ := c.GetByte(1)
	b2, _ := c.GetByte(2)
	assert.Equal(t, byte(0x00), b1)
	assert.Equal(t, byte(0x05), b2)
}

func TestSpanFor(t *testing.T) {
	c := chunk.New()
	c.PushSpan(token.Span{Start: 0, End: 1})
	c.PushOp(chunk.OpNil) // offset 0

	c.PushSpan(token.Span{Start: 2, End: 3})
	c.PushOp(chunk.OpTrue) // offset 1

	assert.Equal(t, token.Span{Start: 0, End: 1}, c.SpanFor(0))
	assert.Equal(t, token.Span{Start: 2, End: 3}, c.SpanFor(1))
}

func TestSpanForBeforeAnyPush(t *testing.T) {
	c := chunk.New()
	assert.Equal(t, token.Span{}, c.SpanFor(0), "the sentinel entry keeps SpanFor from underflowing")
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "RETURN", chunk.OpReturn.String())
	assert.Equal(t, "JUMP_F", chunk.OpJumpF.String())
	assert.Contains(t, chunk.Op(250).String(), "UNKNOWN")
}
