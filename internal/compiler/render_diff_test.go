package compiler_test

import (
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/kr/text"
)

// TestRenderedLinesMatchExpected compiles a small program and compares
// its rendered instruction lines against a known-good sequence. On
// mismatch it reports a kr/pretty structural diff (indented with
// kr/text) instead of a flat string comparison, since a line-by-line
// []string diff is far more readable than one long joined string.
func TestRenderedLinesMatchExpected(t *testing.T) {
	src := `
int main() {
	print(1);
	return 0;
}
`
	prog := compileSource(t, src, 3)
	got := strings.Split(strings.TrimRight(prog.Render(), "\n"), "\n")
	want := []string{
		"jump 1 equal 0 0",
		"print 1",
		"end",
	}
	if diff := pretty.Diff(want, got); len(diff) > 0 {
		t.Errorf("rendered instructions differ from expected:\n%s",
			text.Indent(strings.Join(diff, "\n"), "  "))
	}
}
