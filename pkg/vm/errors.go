package vm

import (
	"fmt"

	"github.com/kcorder/vesper/pkg/token"
)

// RuntimeErrorKind distinguishes the VM's failure modes (SPEC_FULL.md §7),
// grounded on original_source/src/bytecode/vm.rs's RuntimeError enum.
type RuntimeErrorKind int

const (
	ErrUnexpectedEnd RuntimeErrorKind = iota
	ErrUnknownOpcode
	ErrConstantNotFound
	ErrConstantNotIdentifier
	ErrEmptyStack
	ErrUnsupportedOperation
	ErrUndefinedGlobal
	ErrObjectNotFound
)

// RuntimeError is a failure raised while executing a chunk's bytecode. It
// carries the span of the instruction that failed, recovered from the
// chunk's span sidetable at the point of failure (SPEC_FULL.md §4.4).
type RuntimeError struct {
	Kind    RuntimeErrorKind
	Message string
	Span    token.Span
}

func (e *RuntimeError) Error() string { return e.Message }

func newRuntimeError(kind RuntimeErrorKind, span token.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}
