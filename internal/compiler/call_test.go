package compiler

import (
	"testing"

	"logicc/internal/ir"
	"logicc/internal/parser"
)

// TestMultiArgReverseScanElidesAllStagingSets covers the builtinMultiArg
// peephole: when every staged slot is still the stream tail at the
// point it's examined, the reverse scan collapses all of them back to
// their source operands and no scratch Sets remain.
func TestMultiArgReverseScanElidesAllStagingSets(t *testing.T) {
	s, fn := newTestSession(1)
	call := &parser.Call{Name: "write", Args: []parser.Expr{lit("1"), lit("2"), lit("3")}}
	if err := s.visitExpr(call); err != nil {
		t.Fatal(err)
	}
	w := fn.Instructions[len(fn.Instructions)-1].(*ir.Write)
	if w.Src != "1" || w.Cell != "2" || w.Index != "3" {
		t.Fatalf("want all three args elided, got %+v", w)
	}
	// All three scratch Sets folded away: only the Write instruction
	// itself should remain.
	if len(fn.Instructions) != 1 {
		t.Errorf("want 1 instruction, got %d: %v", len(fn.Instructions), fn.Instructions)
	}
}

func TestAsmRequiresStringLiteral(t *testing.T) {
	s, _ := newTestSession(1)
	call := &parser.Call{Name: "asm", Args: []parser.Expr{lit("1")}}
	if err := s.visitExpr(call); err == nil {
		t.Fatal("want a type-shape error for a non-string asm argument")
	}
}

func TestAsmPassesStringVerbatim(t *testing.T) {
	s, fn := newTestSession(1)
	strLit := &parser.Literal{Kind: parser.LiteralString, Value: `"op add x y z"`}
	call := &parser.Call{Name: "asm", Args: []parser.Expr{strLit}}
	if err := s.visitExpr(call); err != nil {
		t.Fatal(err)
	}
	raw := fn.Instructions[0].(*ir.RawAsm)
	if raw.Code != `op add x y z` {
		t.Errorf("got %q, want the literal's quotes stripped", raw.Code)
	}
}

func TestSensorEmitsAtPrefixedProperty(t *testing.T) {
	s, fn := newTestSession(1)
	fn.addLocal("obj")
	prop := &parser.Literal{Kind: parser.LiteralString, Value: `"copper"`}
	call := &parser.Call{Name: "sensor", Args: []parser.Expr{ident("obj"), prop}}
	if err := s.visitExpr(call); err != nil {
		t.Fatal(err)
	}
	sn := fn.Instructions[len(fn.Instructions)-1].(*ir.Sensor)
	if sn.Prop != "copper" {
		t.Errorf("sensor prop = %q, want the bare property name (rendering adds the @)", sn.Prop)
	}
	if got, want := sn.String(), "sensor __rax _obj_main @copper"; got != want {
		t.Errorf("Sensor.String() = %q, want %q", got, want)
	}
}

func TestUnknownFunctionCallIsUnknownName(t *testing.T) {
	s, _ := newTestSession(1)
	call := &parser.Call{Name: "not_declared", Args: nil}
	if err := s.visitExpr(call); err == nil {
		t.Fatal("want an unknown-name error for an undeclared function")
	}
}

func TestNamedBinaryBuiltinDispatch(t *testing.T) {
	s, fn := newTestSession(1)
	call := &parser.Call{Name: "max", Args: []parser.Expr{lit("1"), lit("2")}}
	if err := s.visitExpr(call); err != nil {
		t.Fatal(err)
	}
	b := fn.Instructions[len(fn.Instructions)-1].(*ir.BinaryOp)
	if b.Op != "max" || b.Left != "1" || b.Right != "2" {
		t.Errorf("got %+v, want BinaryOp{max,1,2}", b)
	}
}
