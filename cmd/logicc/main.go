// cmd/logicc/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"

	"github.com/dustin/go-humanize"

	"logicc/internal/compiler"
	"logicc/internal/diagnostics"
	cerrors "logicc/internal/errors"
	"logicc/internal/lexer"
	"logicc/internal/linker"
	"logicc/internal/parser"
)

const usage = `usage: logicc <file.c> [-O 0-3] [-o out] [-v] [-cpp path]

Compiles a restricted C subset to a flat Mindustry-logic instruction
stream. The input is run through a C preprocessor before lexing.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the testable body of main: it never calls os.Exit itself, so
// the exit-code contract (0 success, 1 compile error, 2 I/O error) can
// be asserted on directly.
func run(args []string) int {
	fs := flag.NewFlagSet("logicc", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage); fs.PrintDefaults() }

	optLevel := fs.Int("O", 1, "optimization level (0-3)")
	outPath := fs.String("o", "", "output path (default stdout)")
	verbose := fs.Bool("v", false, "print a compile summary to stderr")
	cppPath := fs.String("cpp", "cc", "C preprocessor binary (invoked as `<cpp> -E <file>`)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	if *optLevel < 0 || *optLevel > 3 {
		fmt.Fprintln(os.Stderr, "logicc: -O must be between 0 and 3")
		return 1
	}

	printer := diagnostics.NewPrinter(os.Stderr)
	inputFile := fs.Arg(0)

	src, err := preprocess(*cppPath, inputFile)
	if err != nil {
		if ce, ok := asCompileError(err); ok {
			printer.Print(ce)
		} else {
			fmt.Fprintf(os.Stderr, "logicc: %s\n", err)
		}
		return 2
	}

	program, err := compile(inputFile, src, *optLevel)
	if err != nil {
		if ce, ok := asCompileError(err); ok {
			printer.Print(ce)
			return 1
		}
		fmt.Fprintf(os.Stderr, "logicc: %s\n", err)
		return 2
	}

	rendered := program.Render() + "\n"
	if err := writeOutput(*outPath, rendered); err != nil {
		if ce, ok := asCompileError(err); ok {
			printer.Print(ce)
		} else {
			fmt.Fprintf(os.Stderr, "logicc: %s\n", err)
		}
		return 2
	}

	if *verbose {
		printSummary(len(program.Instructions), len(rendered))
	}
	return 0
}

// preprocess shells out to the system C preprocessor; this compiler
// never implements macro expansion itself.
func preprocess(cppPath, file string) (string, error) {
	if _, err := os.Stat(file); err != nil {
		return "", cerrors.IO("cannot read %q: %s", file, err)
	}
	cmd := exec.Command(cppPath, "-E", file)
	out, err := cmd.Output()
	if err != nil {
		return "", cerrors.IO("preprocessor %q failed: %s", cppPath, err)
	}
	return string(out), nil
}

func compile(file, src string, optLevel int) (*linker.Program, error) {
	scanner := lexer.NewScanner(src)
	tokens := scanner.ScanTokens()
	if errs := scanner.Errors(); len(errs) > 0 {
		return nil, cerrors.Unsupported(cerrors.SourceLocation{File: file}, "%s", errs[0])
	}

	ast, err := parser.Parse(tokens, file)
	if err != nil {
		return nil, err
	}

	sess := compiler.NewSession(optLevel, file)
	if err := sess.Compile(ast); err != nil {
		return nil, err
	}

	return linker.Link(sess), nil
}

func writeOutput(path, content string) error {
	if path == "" {
		_, err := fmt.Fprint(os.Stdout, content)
		if err != nil {
			return cerrors.IO("writing stdout: %s", err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return cerrors.IO("writing %q: %s", path, err)
	}
	return nil
}

func printSummary(instructions, bytes int) {
	fmt.Fprintf(os.Stderr, "compiled %s instructions (%s)\n",
		humanize.Comma(int64(instructions)), humanize.Bytes(uint64(bytes)))
}

// asCompileError unwraps a github.com/pkg/errors-wrapped chain down to
// the underlying *errors.CompileError, if any.
func asCompileError(err error) (*cerrors.CompileError, bool) {
	type causer interface{ Cause() error }
	for err != nil {
		if ce, ok := err.(*cerrors.CompileError); ok {
			return ce, true
		}
		c, ok := err.(causer)
		if !ok {
			return nil, false
		}
		err = c.Cause()
	}
	return nil, false
}
