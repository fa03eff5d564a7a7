// Package reporter formats compile- and run-time diagnostics as plain text
// to stderr. There is no caret-pointing or color: a pretty, IDE-quality
// diagnostic renderer is explicitly out of scope (SPEC_FULL.md §6) — this
// is the minimal formatter the CLI and REPL fall back to.
package reporter

import (
	"fmt"
	"io"

	"github.com/kcorder/vesper/pkg/compiler"
	"github.com/kcorder/vesper/pkg/token"
	"github.com/kcorder/vesper/pkg/vm"
)

// ReportParseErrors writes every accumulated parse error, one per line.
func ReportParseErrors(w io.Writer, name, source string, errs []*compiler.ParseError) {
	for _, e := range errs {
		Report(w, name, source, e.Span, e.Message)
	}
}

// ReportRuntimeError writes a single runtime failure.
func ReportRuntimeError(w io.Writer, name, source string, err *vm.RuntimeError) {
	Report(w, name, source, err.Span, err.Message)
}

// Report writes one formatted diagnostic line to w: "name:line:col: message".
// Line and column are derived from span.Start by counting newlines and
// bytes in source up to that offset — this is a byte-offset count, not a
// rune count, matching the lexer's byte-oriented scanning.
func Report(w io.Writer, name, source string, span token.Span, message string) {
	line, col := lineCol(source, span.Start)
	fmt.Fprintf(w, "%s:%d:%d: %s\n", name, line, col, message)
}

func lineCol(source string, offset int) (line, col int) {
	line, col = 1, 1
	if offset > len(source) {
		offset = len(source)
	}
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
