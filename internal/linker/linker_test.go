package linker

import (
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/kr/text"

	"logicc/internal/compiler"
	"logicc/internal/ir"
	"logicc/internal/lexer"
	"logicc/internal/parser"
)

func fn(name string, instrs ...ir.Instruction) *compiler.Function {
	return &compiler.Function{
		Name:         name,
		Instructions: instrs,
		Labels:       map[string]int{},
		Callees:      map[string]bool{},
		Callers:      map[string]bool{},
	}
}

// TestReachableFromFollowsCallees: a function reachable only
// transitively (main -> helper -> leaf) is kept, while one with no
// path from the entry is not.
func TestReachableFromFollowsCallees(t *testing.T) {
	main := fn("main")
	helper := fn("helper")
	leaf := fn("leaf")
	orphan := fn("orphan")
	main.Callees["helper"] = true
	helper.Callees["leaf"] = true

	functions := map[string]*compiler.Function{
		"main": main, "helper": helper, "leaf": leaf, "orphan": orphan,
	}
	reachable := reachableFrom(functions, "main")
	for _, want := range []string{"main", "helper", "leaf"} {
		if !reachable[want] {
			t.Errorf("%q should be reachable from main", want)
		}
	}
	if reachable["orphan"] {
		t.Error("orphan should not be reachable from main")
	}
}

func TestPruneUnreachablePreservesOrder(t *testing.T) {
	main := fn("main")
	used := fn("used")
	dead := fn("dead")
	main.Callees["used"] = true
	functions := map[string]*compiler.Function{"main": main, "used": used, "dead": dead}
	order := []string{"dead", "main", "used"}

	pruned := pruneUnreachable(functions, order, "main")
	if len(pruned) != 2 || pruned[0] != "main" || pruned[1] != "used" {
		t.Fatalf("got %v, want [main used] with relative order preserved", pruned)
	}
}

// TestBuildPreambleDefaultStashesRetaddr covers the non-collapsed
// preamble shape: a Set to the entry's retaddr register, a call, and a
// trailing End.
func TestBuildPreambleDefaultStashesRetaddr(t *testing.T) {
	preamble, call := buildPreamble("main", 1, 2)
	if len(preamble) != 3 {
		t.Fatalf("want 3 preamble instructions, got %d", len(preamble))
	}
	set, ok := preamble[0].(*ir.Set)
	if !ok || set.Dest != "__retaddr_main" || set.Src != "2" {
		t.Errorf("got %+v, want Set{__retaddr_main, 2}", preamble[0])
	}
	if preamble[1] != ir.Instruction(call) {
		t.Error("second preamble instruction should be the returned call")
	}
	if _, ok := preamble[2].(*ir.End); !ok {
		t.Errorf("want a trailing End, got %T", preamble[2])
	}
}

// TestBuildPreambleCollapsesAtOptTwoSoleFunction covers the opt>=2
// single-function special case: no retaddr Set, no trailing End. This
// matches the opt level at which compiler.Session's pushReturn starts
// emitting End instead of Return for main, so the retaddr Set this
// preamble would otherwise stash is never read by either opt level.
func TestBuildPreambleCollapsesAtOptTwoSoleFunction(t *testing.T) {
	preamble, call := buildPreamble("main", 2, 1)
	if len(preamble) != 1 {
		t.Fatalf("want the preamble collapsed to 1 instruction, got %d", len(preamble))
	}
	if preamble[0] != ir.Instruction(call) {
		t.Error("sole preamble instruction should be the call itself")
	}
}

func TestBuildPreambleDoesNotCollapseBelowOptTwo(t *testing.T) {
	preamble, _ := buildPreamble("main", 1, 1)
	if len(preamble) != 3 {
		t.Errorf("want the full 3-instruction preamble below opt level 2, got %d", len(preamble))
	}
}

func TestBuildPreambleDoesNotCollapseWithMultipleFunctions(t *testing.T) {
	preamble, _ := buildPreamble("main", 3, 2)
	if len(preamble) != 3 {
		t.Errorf("want the full 3-instruction preamble when more than one function exists, got %d", len(preamble))
	}
}

// TestResolveFunctionRewritesSymbolicFields: after resolveFunction,
// every RelativeJump/FunctionCall/Goto carries an absolute offset, and
// a __retaddr Set's literal is shifted by the function's Start.
func TestResolveFunctionRewritesSymbolicFields(t *testing.T) {
	offset := 2
	jump := &ir.RelativeJump{Offset: &offset, Cond: ir.Always}
	call := ir.NewFunctionCall("callee")
	retSet := &ir.Set{Dest: "__retaddr_callee", Src: "5"}

	caller := fn("caller", jump, call, retSet)
	caller.Start = 10
	callee := fn("callee")
	callee.Start = 20
	functions := map[string]*compiler.Function{"caller": caller, "callee": callee}

	resolveFunction(caller, functions)

	if jump.FuncStart != 10 {
		t.Errorf("RelativeJump.FuncStart = %d, want 10 (caller's Start)", jump.FuncStart)
	}
	if call.FuncStart != 20 {
		t.Errorf("FunctionCall.FuncStart = %d, want 20 (callee's Start)", call.FuncStart)
	}
	if retSet.Src != "15" {
		t.Errorf("retaddr Set.Src = %q, want \"15\" (5 + caller.Start)", retSet.Src)
	}
}

func TestResolveFunctionRewritesGoto(t *testing.T) {
	g := ir.NewGoto("top")
	caller := fn("caller", g)
	caller.Start = 7
	caller.Labels["top"] = 3
	functions := map[string]*compiler.Function{"caller": caller}

	resolveFunction(caller, functions)

	if g.FuncStart != 7 {
		t.Errorf("Goto.FuncStart = %d, want 7", g.FuncStart)
	}
	if g.Offset != 3 {
		t.Errorf("Goto.Offset = %d, want 3 (the label's recorded offset)", g.Offset)
	}
}

// TestLinkedProgramMatchesExpectedLines goes end-to-end
// through the public Link entry point and reports any mismatch as a
// kr/pretty structural diff (indented with kr/text) rather than one
// long joined string, since instruction-sequence mismatches are much
// easier to read one line at a time.
func TestLinkedProgramMatchesExpectedLines(t *testing.T) {
	scanner := lexer.NewScanner("int main() { print(7); return 0; }")
	tokens := scanner.ScanTokens()
	file, err := parser.Parse(tokens, "t.c")
	if err != nil {
		t.Fatal(err)
	}
	sess := compiler.NewSession(3, "t.c")
	if err := sess.Compile(file); err != nil {
		t.Fatal(err)
	}
	prog := Link(sess)

	got := make([]string, len(prog.Instructions))
	for i, in := range prog.Instructions {
		got[i] = in.String()
	}
	want := []string{"jump 1 equal 0 0", "print 7", "end"}
	if diff := pretty.Diff(want, got); len(diff) > 0 {
		t.Errorf("linked program differs from expected:\n%s",
			text.Indent(strings.Join(diff, "\n"), "  "))
	}
}
