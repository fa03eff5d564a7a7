// Command vesper is the reference CLI front end for the language: a
// --input-driven file runner and, with no --input given, an interactive
// REPL. Both are thin shells around pkg/compiler and pkg/vm — line editing,
// colored diagnostics, and any other outer-surface polish are explicitly
// out of scope (SPEC_FULL.md §6) and left to whatever wraps this binary.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/kcorder/vesper/internal/reporter"
	"github.com/kcorder/vesper/pkg/compiler"
	"github.com/kcorder/vesper/pkg/value"
	"github.com/kcorder/vesper/pkg/vm"
)

func main() {
	inputPath := flag.String("input", "", "path to a source file to run; omit to start the REPL")
	flag.Parse()

	if *inputPath != "" {
		if err := runFile(*inputPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	runREPL()
}

func runFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	source := string(data)

	heap := value.NewHeap()
	if !evalSource(path, source, heap, stdoutPrinter{}) {
		os.Exit(1)
	}
	return nil
}

func runREPL() {
	fmt.Println("vesper REPL")
	fmt.Println("Enter statements terminated by ';'. Ctrl-D to exit.")

	heap := value.NewHeap()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		evalSource("<repl>", line, heap, stdoutPrinter{})
	}
}

// evalSource compiles and runs one source unit against heap, reporting any
// parse or runtime error to stderr. It returns whether the run succeeded.
func evalSource(name, source string, heap *value.Heap, out vm.Printer) bool {
	chnk, errs := compiler.Compile(source, heap)
	if len(errs) > 0 {
		reporter.ReportParseErrors(os.Stderr, name, source, errs)
		return false
	}

	machine := vm.New(chnk, heap, out)
	if err := machine.Run(); err != nil {
		if rtErr, ok := err.(*vm.RuntimeError); ok {
			reporter.ReportRuntimeError(os.Stderr, name, source, rtErr)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return false
	}
	return true
}

type stdoutPrinter struct{}

func (stdoutPrinter) Print(s string) { fmt.Println(s) }
