package operators

import "testing"

func TestBinaryOpcodeTable(t *testing.T) {
	tests := map[string]string{
		"+": "add", "-": "sub", "*": "mul", "/": "div", "%": "mod",
		"==": "equal", "!=": "notEqual",
		"<": "lessThan", "<=": "lessThanEq", ">": "greaterThan", ">=": "greaterThanEq",
		">>": "shl", "<<": "shr", "|": "or", "&": "and", "^": "xor",
	}
	for tok, want := range tests {
		if got := BinaryOpcodes[tok]; got != want {
			t.Errorf("BinaryOpcodes[%q] = %q, want %q", tok, got, want)
		}
	}
}

func TestInverseConditionIsInvolution(t *testing.T) {
	for op, inv := range InverseCondition {
		if InverseCondition[inv] != op {
			t.Errorf("InverseCondition[%q] = %q but InverseCondition[%q] = %q, not involutive",
				op, inv, inv, InverseCondition[inv])
		}
	}
}

func TestNamedBuiltinsMapToThemselves(t *testing.T) {
	for _, name := range FuncBinaryOps {
		if BinaryOpcodes[name] != name {
			t.Errorf("BinaryOpcodes[%q] = %q, want itself", name, BinaryOpcodes[name])
		}
	}
	for _, name := range FuncUnaryOps {
		if UnaryOpcodes[name] != name {
			t.Errorf("UnaryOpcodes[%q] = %q, want itself", name, UnaryOpcodes[name])
		}
	}
}

func TestIsConditionSubsetOfBinary(t *testing.T) {
	for op := range ConditionOpcodes {
		if !IsBinary(op) {
			t.Errorf("%q is a condition operator but not recognized as binary", op)
		}
	}
}

func TestBuiltinsIncludesFixedAndDerivedNames(t *testing.T) {
	for _, name := range []string{"print", "radar", "sensor", "write", "drawline", "pow", "abs"} {
		if !Builtins[name] {
			t.Errorf("Builtins[%q] = false, want true", name)
		}
	}
	if Builtins["not_a_builtin"] {
		t.Error("Builtins[\"not_a_builtin\"] = true, want false")
	}
}
