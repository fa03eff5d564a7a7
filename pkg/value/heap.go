package value

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// Object is currently the heap's only inhabitant kind: an immutable byte
// sequence. The heap may later hold other kinds (SPEC_FULL.md §3 leaves
// this open), so Object is a struct rather than a bare string, ready to grow
// a kind tag the way Value already has one.
type Object struct {
	String string
}

// ObjectKey is a stable, copyable handle into the heap. It pairs a slot
// index with a generation counter so that, if the heap ever gains the
// ability to free and recycle slots, a stale key from before a free cannot
// be confused with a new object occupying the same slot. The heap in this
// version never frees (objects accumulate for the process lifetime, per
// spec's no-GC Non-goal), so generation is always 0 today — the field
// exists for that future, not because it does anything yet.
type ObjectKey struct {
	index      uint32
	generation uint32
}

// HeapErrorKind distinguishes the heap's two failure modes.
type HeapErrorKind int

const (
	ErrObjectNotFound HeapErrorKind = iota
	ErrGlobalNotFound
)

// HeapError reports a failed heap lookup.
type HeapError struct {
	Kind HeapErrorKind
}

func (e *HeapError) Error() string {
	switch e.Kind {
	case ErrObjectNotFound:
		return "object not found"
	case ErrGlobalNotFound:
		return "undefined global"
	default:
		return "heap error"
	}
}

// Heap is an append-only slot map of Objects, a string interner, and a
// globals table keyed by interned identifier. The compiler and VM borrow it
// mutably in alternation (never concurrently); see SPEC_FULL.md §5.
type Heap struct {
	slots    []Object
	interner *swiss.Map[string, ObjectKey]
	globals  *swiss.Map[ObjectKey, Value]

	dynamicMemoryUsed int
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{
		interner: swiss.NewMap[string, ObjectKey](16),
		globals:  swiss.NewMap[ObjectKey, Value](16),
	}
}

// Intern returns the ObjectKey for s, allocating a new String object on
// first sight. Two calls with equal contents always return the same key —
// this is what lets identifier comparison and string equality be O(1) key
// comparisons instead of content comparisons.
func (h *Heap) Intern(s string) ObjectKey {
	if key, ok := h.interner.Get(s); ok {
		return key
	}
	key := h.alloc(Object{String: s})
	h.interner.Put(s, key)
	return key
}

func (h *Heap) alloc(obj Object) ObjectKey {
	key := ObjectKey{index: uint32(len(h.slots))}
	h.slots = append(h.slots, obj)
	h.dynamicMemoryUsed += len(obj.String)
	return key
}

// Get resolves key to its Object, or ErrObjectNotFound if key is not live.
func (h *Heap) Get(key ObjectKey) (Object, error) {
	if int(key.index) >= len(h.slots) {
		return Object{}, &HeapError{Kind: ErrObjectNotFound}
	}
	return h.slots[key.index], nil
}

// DefineGlobal binds identifier (which must be a key returned by Intern) to
// value, overwriting any prior binding. identifier not referring to a live
// String object is a programmer error and panics, per spec's precondition.
func (h *Heap) DefineGlobal(identifier ObjectKey, val Value) {
	if int(identifier.index) >= len(h.slots) {
		panic(fmt.Sprintf("value: DefineGlobal: %v does not refer to a live object", identifier))
	}
	h.globals.Put(identifier, val)
}

// GetGlobal looks up the value bound to identifier, or ErrGlobalNotFound if
// unbound.
func (h *Heap) GetGlobal(identifier ObjectKey) (Value, error) {
	v, ok := h.globals.Get(identifier)
	if !ok {
		return Value{}, &HeapError{Kind: ErrGlobalNotFound}
	}
	return v, nil
}

// LiveCount returns the number of heap entries (informational).
func (h *Heap) LiveCount() int { return len(h.slots) }

// DynamicMemoryUsed returns the byte count of string contents allocated so
// far (informational).
func (h *Heap) DynamicMemoryUsed() int { return h.dynamicMemoryUsed }
