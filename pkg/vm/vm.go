// Package vm implements the bytecode interpreter: a stack machine that
// fetches, decodes, and executes the instruction stream a chunk.Chunk
// holds, resolving global/local variables through a shared value.Heap.
// See SPEC_FULL.md §4.4.
package vm

import (
	"github.com/kcorder/vesper/pkg/chunk"
	"github.com/kcorder/vesper/pkg/token"
	"github.com/kcorder/vesper/pkg/value"
)

// Printer receives PRINT statement output. The VM never writes directly to
// stdout so it stays testable: tests and cmd/vesper both supply a Printer.
type Printer interface {
	Print(s string)
}

// PrinterFunc adapts a plain function to Printer.
type PrinterFunc func(s string)

func (f PrinterFunc) Print(s string) { f(s) }

// VM executes one chunk's bytecode against a shared heap. A VM is
// lightweight scratch state: the REPL constructs a fresh one per compiled
// chunk (the value stack does not survive across top-level statements),
// while heap and globals persist across an entire session.
type VM struct {
	chunk *chunk.Chunk
	heap  *value.Heap
	stack []value.Value
	pc    int
	out   Printer
}

// New creates a VM ready to run c against heap, sending PRINT output to out.
func New(c *chunk.Chunk, heap *value.Heap, out Printer) *VM {
	return &VM{chunk: c, heap: heap, out: out}
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

// pop removes and returns the top of the stack, or ErrEmptyStack if the
// stack is empty — a malformed or hand-built chunk can pop more than it
// pushed, so this is a runtime error, not a programmer-error panic.
func (vm *VM) pop() (value.Value, error) {
	n := len(vm.stack)
	if n == 0 {
		return value.Value{}, vm.emptyStack()
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v, nil
}

func (vm *VM) peek(distanceFromTop int) (value.Value, error) {
	i := len(vm.stack) - 1 - distanceFromTop
	if i < 0 {
		return value.Value{}, vm.emptyStack()
	}
	return vm.stack[i], nil
}

func (vm *VM) readByte() (byte, error) {
	b, ok := vm.chunk.GetByte(vm.pc)
	if !ok {
		return 0, newRuntimeError(ErrUnexpectedEnd, vm.chunk.SpanFor(vm.pc),
			"unexpected end of bytecode")
	}
	vm.pc++
	return b, nil
}

func (vm *VM) readU16() (int, error) {
	hi, err := vm.readByte()
	if err != nil {
		return 0, err
	}
	lo, err := vm.readByte()
	if err != nil {
		return 0, err
	}
	return int(hi)<<8 | int(lo), nil
}

func (vm *VM) readConstant() (value.Value, error) {
	idx, err := vm.readByte()
	if err != nil {
		return value.Value{}, err
	}
	v, ok := vm.chunk.GetConstant(int(idx))
	if !ok {
		return value.Value{}, newRuntimeError(ErrConstantNotFound, vm.spanOfLastInstruction(),
			"no constant at index %d", idx)
	}
	return v, nil
}

// readIdentifierConstant reads a constant that must name a global (DEF/GET/
// SET_GLOBAL's operand): it has to be an Object value, since only interned
// strings are valid identifiers.
func (vm *VM) readIdentifierConstant() (value.Value, error) {
	name, err := vm.readConstant()
	if err != nil {
		return value.Value{}, err
	}
	if name.Kind() != value.KindObject {
		return value.Value{}, newRuntimeError(ErrConstantNotIdentifier, vm.spanOfLastInstruction(),
			"constant is not an identifier")
	}
	return name, nil
}

// spanOfLastInstruction recovers the source span for the instruction that
// just finished decoding its opcode byte (pc-1, per chunk.SpanFor's
// contract).
func (vm *VM) spanOfLastInstruction() token.Span {
	return vm.chunk.SpanFor(vm.pc - 1)
}

func (vm *VM) emptyStack() error {
	return newRuntimeError(ErrEmptyStack, vm.spanOfLastInstruction(), "stack is empty")
}

// Run executes the chunk from its current pc until OP_RETURN or a runtime
// error, calling Step repeatedly.
func (vm *VM) Run() error {
	for {
		done, err := vm.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Step decodes and executes exactly one instruction, letting an embedder
// single-step the machine. It reports done=true once OP_RETURN has run, at
// which point further calls to Step must not be made.
func (vm *VM) Step() (done bool, err error) {
	opByte, err := vm.readByte()
	if err != nil {
		return false, err
	}
	op := chunk.Op(opByte)
	switch op {
	case chunk.OpReturn:
		return true, nil

	case chunk.OpConstant:
		v, err := vm.readConstant()
		if err != nil {
			return false, err
		}
		vm.push(v)

	case chunk.OpNil:
		vm.push(value.Nil)

	case chunk.OpTrue:
		vm.push(value.Bool(true))

	case chunk.OpFalse:
		vm.push(value.Bool(false))

	case chunk.OpPop:
		if _, err := vm.pop(); err != nil {
			return false, err
		}

	case chunk.OpPrint:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.out.Print(v.Display(vm.heap))

	case chunk.OpNeg:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		if v.Kind() != value.KindNumber {
			return false, vm.unsupported("negate", v)
		}
		vm.push(value.Number(-v.AsNumber()))

	case chunk.OpNot:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.push(value.Bool(!v.Truthy()))

	case chunk.OpAdd:
		if err := vm.add(); err != nil {
			return false, err
		}

	case chunk.OpSub:
		if err := vm.numericBinOp(func(a, b float64) float64 { return a - b }); err != nil {
			return false, err
		}

	case chunk.OpMul:
		if err := vm.numericBinOp(func(a, b float64) float64 { return a * b }); err != nil {
			return false, err
		}

	case chunk.OpDiv:
		if err := vm.divide(); err != nil {
			return false, err
		}

	case chunk.OpAnd:
		if err := vm.boolBinOp(func(a, b bool) bool { return a && b }); err != nil {
			return false, err
		}

	case chunk.OpOr:
		if err := vm.boolBinOp(func(a, b bool) bool { return a || b }); err != nil {
			return false, err
		}

	case chunk.OpEqual:
		if err := vm.equal(); err != nil {
			return false, err
		}

	case chunk.OpLess:
		if err := vm.comparisonOp(func(a, b float64) bool { return a < b }); err != nil {
			return false, err
		}

	case chunk.OpGreater:
		if err := vm.comparisonOp(func(a, b float64) bool { return a > b }); err != nil {
			return false, err
		}

	case chunk.OpDefGlobal:
		name, err := vm.readIdentifierConstant()
		if err != nil {
			return false, err
		}
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.heap.DefineGlobal(name.AsObject(), v)

	case chunk.OpGetGlobal:
		name, err := vm.readIdentifierConstant()
		if err != nil {
			return false, err
		}
		v, err := vm.heap.GetGlobal(name.AsObject())
		if err != nil {
			return false, newRuntimeError(ErrUndefinedGlobal, vm.spanOfLastInstruction(),
				"undefined global %q", name.Display(vm.heap))
		}
		vm.push(v)

	case chunk.OpSetGlobal:
		name, err := vm.readIdentifierConstant()
		if err != nil {
			return false, err
		}
		if _, err := vm.heap.GetGlobal(name.AsObject()); err != nil {
			return false, newRuntimeError(ErrUndefinedGlobal, vm.spanOfLastInstruction(),
				"undefined global %q", name.Display(vm.heap))
		}
		top, err := vm.peek(0)
		if err != nil {
			return false, err
		}
		vm.heap.DefineGlobal(name.AsObject(), top)

	case chunk.OpGetLocal:
		slot, err := vm.readByte()
		if err != nil {
			return false, err
		}
		if int(slot) >= len(vm.stack) {
			return false, vm.emptyStack()
		}
		vm.push(vm.stack[slot])

	case chunk.OpSetLocal:
		slot, err := vm.readByte()
		if err != nil {
			return false, err
		}
		top, err := vm.peek(0)
		if err != nil {
			return false, err
		}
		if int(slot) >= len(vm.stack) {
			return false, vm.emptyStack()
		}
		vm.stack[slot] = top

	case chunk.OpJump:
		dist, err := vm.readU16()
		if err != nil {
			return false, err
		}
		vm.pc += dist

	case chunk.OpJumpF:
		dist, err := vm.readU16()
		if err != nil {
			return false, err
		}
		top, err := vm.peek(0)
		if err != nil {
			return false, err
		}
		if !top.Truthy() {
			vm.pc += dist
		}

	default:
		return false, newRuntimeError(ErrUnknownOpcode, vm.spanOfLastInstruction(),
			"unknown opcode %d", opByte)
	}
	return false, nil
}

func (vm *VM) add() error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if a.Kind() == value.KindNumber && b.Kind() == value.KindNumber {
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
		return nil
	}
	if a.Kind() == value.KindObject && b.Kind() == value.KindObject {
		aObj, err := vm.heap.Get(a.AsObject())
		if err != nil {
			return vm.objectNotFound()
		}
		bObj, err := vm.heap.Get(b.AsObject())
		if err != nil {
			return vm.objectNotFound()
		}
		key := vm.heap.Intern(aObj.String + bObj.String)
		vm.push(value.Object(key))
		return nil
	}
	return newRuntimeError(ErrUnsupportedOperation, vm.spanOfLastInstruction(),
		"unsupported operation: cannot add %s and %s", a.TypeName(), b.TypeName())
}

func (vm *VM) divide() error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if a.Kind() != value.KindNumber || b.Kind() != value.KindNumber {
		return newRuntimeError(ErrUnsupportedOperation, vm.spanOfLastInstruction(),
			"unsupported operation: cannot divide %s and %s", a.TypeName(), b.TypeName())
	}
	vm.push(value.Number(a.AsNumber() / b.AsNumber()))
	return nil
}

func (vm *VM) numericBinOp(f func(a, b float64) float64) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if a.Kind() != value.KindNumber || b.Kind() != value.KindNumber {
		return newRuntimeError(ErrUnsupportedOperation, vm.spanOfLastInstruction(),
			"unsupported operation on %s and %s", a.TypeName(), b.TypeName())
	}
	vm.push(value.Number(f(a.AsNumber(), b.AsNumber())))
	return nil
}

// boolBinOp implements AND/OR: both operands must be Bool (spec.md §4.2,
// §4.4; original_source/src/bytecode/value.rs's and/or return None, i.e. an
// error, for any non-Bool operand).
func (vm *VM) boolBinOp(f func(a, b bool) bool) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if a.Kind() != value.KindBool || b.Kind() != value.KindBool {
		return newRuntimeError(ErrUnsupportedOperation, vm.spanOfLastInstruction(),
			"unsupported operation: cannot combine %s and %s", a.TypeName(), b.TypeName())
	}
	vm.push(value.Bool(f(a.AsBool(), b.AsBool())))
	return nil
}

// equal implements EQUAL: same-variant only. Cross-variant pairs are a
// runtime error rather than false (SPEC_FULL.md §9.3,
// original_source/src/bytecode/value.rs's equal returning None for any
// mismatched pair).
func (vm *VM) equal() error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if a.Kind() != b.Kind() {
		return newRuntimeError(ErrUnsupportedOperation, vm.spanOfLastInstruction(),
			"unsupported operation: cannot compare %s and %s for equality", a.TypeName(), b.TypeName())
	}
	vm.push(value.Bool(a.Equal(b)))
	return nil
}

func (vm *VM) comparisonOp(f func(a, b float64) bool) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if a.Kind() != value.KindNumber || b.Kind() != value.KindNumber {
		return newRuntimeError(ErrUnsupportedOperation, vm.spanOfLastInstruction(),
			"unsupported operation: cannot compare %s and %s", a.TypeName(), b.TypeName())
	}
	vm.push(value.Bool(f(a.AsNumber(), b.AsNumber())))
	return nil
}

func (vm *VM) unsupported(op string, v value.Value) error {
	return newRuntimeError(ErrUnsupportedOperation, vm.spanOfLastInstruction(),
		"unsupported operation: cannot %s %s", op, v.TypeName())
}

func (vm *VM) objectNotFound() error {
	return newRuntimeError(ErrObjectNotFound, vm.spanOfLastInstruction(), "object not found")
}
