// Package diagnostics renders internal/errors.CompileError values for
// human consumption. It is the only component that prints one of these
// directly; everywhere else in the compiler a CompileError is just a
// plain error value.
package diagnostics

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	cerrors "logicc/internal/errors"
)

const (
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// Printer formats CompileErrors to an io.Writer, colorizing the kind
// label when the writer is a terminal.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter builds a Printer for w. Color is enabled only when w is
// an *os.File attached to a terminal.
func NewPrinter(w io.Writer) *Printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{w: w, color: color}
}

// Print renders err as a "kind: message" line, an "at file:line:col"
// line when a location is known, then the offending source line with a
// caret under the column.
func (p *Printer) Print(err *cerrors.CompileError) {
	kind := string(err.Kind)
	if p.color {
		kind = colorRed + kind + colorReset
	}
	fmt.Fprintf(p.w, "%s: %s\n", kind, err.Message)
	if loc := err.Location.String(); loc != "" {
		fmt.Fprintf(p.w, "  at %s\n", loc)
	}
	if err.Source != "" {
		gutter := fmt.Sprintf("  %d | ", err.Location.Line)
		fmt.Fprintf(p.w, "%s%s\n", gutter, err.Source)
		if err.Location.Column > 0 {
			caret := "^"
			if p.color {
				caret = colorYellow + caret + colorReset
			}
			pad := len(gutter) + err.Location.Column - 1
			fmt.Fprintf(p.w, "%*s%s\n", pad, "", caret)
		}
	}
}
