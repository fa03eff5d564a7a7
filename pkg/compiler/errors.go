package compiler

import (
	"fmt"

	"github.com/kcorder/vesper/pkg/token"
)

// ErrorKind distinguishes the compiler's failure modes (SPEC_FULL.md §7).
type ErrorKind int

const (
	ErrUnexpectedToken ErrorKind = iota
	ErrExpectedToken
	ErrInvalidAssignmentTarget
	ErrReservedKeyword
	ErrConstantPoolOverflow
	ErrJumpTooLong
	ErrTooManyLocals
)

// ParseError is one accumulated compile-time failure. Parsing never stops at
// the first error — it resynchronizes and keeps going so a single compile
// can report more than one mistake (SPEC_FULL.md §7).
type ParseError struct {
	Kind    ErrorKind
	Message string
	Span    token.Span
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s", e.Message)
}

func newError(kind ErrorKind, span token.Span, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}
