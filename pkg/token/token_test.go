package token_test

import (
	"testing"

	"github.com/kcorder/vesper/pkg/token"
	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		ident string
		want  token.Kind
	}{
		{"let", token.Let},
		{"if", token.If},
		{"else", token.Else},
		{"print", token.Print},
		{"true", token.True},
		{"false", token.False},
		{"nil", token.Nil},
		{"and", token.And},
		{"or", token.Or},
		{"not", token.Not},
		{"while", token.While},
		{"foo", token.Ident},
		{"x1", token.Ident},
	}
	for _, tt := range tests {
		t.Run(tt.ident, func(t *testing.T) {
			assert.Equal(t, tt.want, token.Lookup(tt.ident))
		})
	}
}

func TestReservedUnimplemented(t *testing.T) {
	reserved := []token.Kind{token.While, token.For, token.Fn, token.Return, token.Class, token.This, token.Super}
	for _, k := range reserved {
		assert.True(t, token.ReservedUnimplemented(k), "%s should be reserved", k)
	}

	implemented := []token.Kind{token.Let, token.If, token.Else, token.Print, token.And, token.Or, token.Not}
	for _, k := range implemented {
		assert.False(t, token.ReservedUnimplemented(k), "%s should not be reserved", k)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "+", token.Plus.String())
	assert.Equal(t, "let", token.Let.String())
	assert.Contains(t, token.Kind(9999).String(), "Kind(")
}
