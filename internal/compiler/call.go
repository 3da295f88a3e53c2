// internal/compiler/call.go
package compiler

import (
	"fmt"
	"strconv"

	cerrors "logicc/internal/errors"
	"logicc/internal/ir"
	"logicc/internal/operators"
	"logicc/internal/parser"
)

// visitCall dispatches a call expression to either the fixed builtin
// table or a user-defined function's call/return ABI.
func (s *Session) visitCall(n *parser.Call) error {
	switch {
	case n.Name == "asm":
		return s.builtinAsm(n)
	case n.Name == "print" || n.Name == "printd":
		return s.builtinUnary(n, func(arg string) ir.Instruction { return &ir.Print{Val: arg} })
	case n.Name == "printflush":
		return s.builtinUnary(n, func(arg string) ir.Instruction { return &ir.PrintFlush{Val: arg} })
	case n.Name == "radar":
		return s.builtinRadar(n)
	case n.Name == "sensor":
		return s.builtinSensor(n)
	case n.Name == "enable":
		return s.builtinBinary(n, "enable", func(l, r string) ir.Instruction { return &ir.Enable{Obj: l, Enabled: r} })
	case n.Name == "shoot":
		return s.builtinMultiArg(n, "shoot", 4, func(a []string) ir.Instruction {
			return &ir.Shoot{Obj: a[0], X: a[1], Y: a[2], Shoot: a[3]}
		})
	case n.Name == "get_link":
		return s.builtinGetLink(n)
	case n.Name == "read":
		return s.builtinBinary(n, "read", func(l, r string) ir.Instruction { return &ir.Read{Dest: "__rax", Cell: l, Index: r} })
	case n.Name == "write":
		return s.builtinMultiArg(n, "write", 3, func(a []string) ir.Instruction {
			return &ir.Write{Src: a[0], Cell: a[1], Index: a[2]}
		})
	case n.Name == "end":
		if err := s.checkArity(n, 0); err != nil {
			return err
		}
		s.push(&ir.End{})
		return nil
	case operators.DrawFuncs[n.Name] != "":
		if len(n.Args) > ir.DrawMaxArgs {
			return cerrors.Unsupported(n.Loc(), "%s accepts at most %d arguments, got %d", n.Name, ir.DrawMaxArgs, len(n.Args))
		}
		cmd := operators.DrawFuncs[n.Name]
		return s.builtinMultiArg(n, n.Name, len(n.Args), func(a []string) ir.Instruction {
			return &ir.Draw{Cmd: cmd, Args: a}
		})
	case n.Name == "drawflush":
		return s.builtinUnary(n, func(arg string) ir.Instruction { return &ir.DrawFlush{Display: arg} })
	case isNamed(operators.FuncBinaryOps, n.Name):
		return s.builtinBinary(n, n.Name, func(l, r string) ir.Instruction {
			return &ir.BinaryOp{Dest: "__rax", Left: l, Right: r, Op: n.Name}
		})
	case isNamed(operators.FuncUnaryOps, n.Name):
		return s.builtinNamedUnary(n)
	default:
		return s.visitUserCall(n)
	}
}

func isNamed(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

func (s *Session) checkArity(n *parser.Call, want int) error {
	if len(n.Args) != want {
		return cerrors.Unsupported(n.Loc(), "%s expects %d argument(s), got %d", n.Name, want, len(n.Args))
	}
	return nil
}

// stringLiteral returns x's string-literal value with its surrounding
// quotes stripped: the lexer keeps the quotes as part of the token
// lexeme, but every consumer of a string-literal builtin argument
// (asm, radar, sensor) wants the bare text.
func stringLiteral(x parser.Expr) (string, bool) {
	lit, ok := x.(*parser.Literal)
	if !ok || lit.Kind != parser.LiteralString {
		return "", false
	}
	v := lit.Value
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return v, true
}

// builtinAsm requires its single argument to be a string literal,
// passed through verbatim once stringLiteral has stripped its quotes.
func (s *Session) builtinAsm(n *parser.Call) error {
	if err := s.checkArity(n, 1); err != nil {
		return err
	}
	code, ok := stringLiteral(n.Args[0])
	if !ok {
		return cerrors.TypeShape(n.Loc(), "asm requires a string literal argument")
	}
	s.push(&ir.RawAsm{Code: code})
	return nil
}

// builtinUnary evaluates a single-argument builtin, eliding the
// indirection through __rax if possible.
func (s *Session) builtinUnary(n *parser.Call, build func(arg string) ir.Instruction) error {
	if err := s.checkArity(n, 1); err != nil {
		return err
	}
	if err := s.visitExpr(n.Args[0]); err != nil {
		return err
	}
	arg := "__rax"
	if s.canAvoidIndirection("__rax") {
		arg = s.pop().(*ir.Set).Src
	}
	s.push(build(arg))
	return nil
}

// builtinBinary evaluates a two-argument builtin: left operand staged
// through a uniqued scratch slot, right evaluated directly, both
// peephole-elided in right-then-left order. Uniquing the slot keeps a
// nested call to the same builtin (max(max(1,2), max(3,4))) from
// clobbering its parent's staged operand.
func (s *Session) builtinBinary(n *parser.Call, label string, build func(left, right string) ir.Instruction) error {
	if err := s.checkArity(n, 2); err != nil {
		return err
	}
	prefix := fmt.Sprintf("__%s_arg0", label)
	leftSlot := s.uq.alloc(prefix)
	if err := s.visitExpr(n.Args[0]); err != nil {
		return err
	}
	s.setToRax(leftSlot)
	if err := s.visitExpr(n.Args[1]); err != nil {
		return err
	}
	left, right := leftSlot, "__rax"
	if s.canAvoidIndirection("__rax") {
		right = s.pop().(*ir.Set).Src
	}
	if s.canAvoidIndirection(leftSlot) {
		left = s.pop().(*ir.Set).Src
	}
	s.push(build(left, right))
	s.uq.release(prefix, leftSlot)
	return nil
}

// builtinMultiArg stages each argument through its own uniqued scratch
// slot, then the reverse-scan peephole collapses trailing slots still
// holding their staging Set back to their source operand.
func (s *Session) builtinMultiArg(n *parser.Call, label string, want int, build func(args []string) ir.Instruction) error {
	if err := s.checkArity(n, want); err != nil {
		return err
	}
	prefixes := make([]string, len(n.Args))
	slots := make([]string, len(n.Args))
	names := make([]string, len(n.Args))
	for i, arg := range n.Args {
		if err := s.visitExpr(arg); err != nil {
			return err
		}
		prefixes[i] = fmt.Sprintf("__%s_arg%d", label, i)
		slots[i] = s.uq.alloc(prefixes[i])
		s.setToRax(slots[i])
		names[i] = slots[i]
	}
	s.optimizePseudoFuncArgs(names)
	s.push(build(names))
	for i := len(slots) - 1; i >= 0; i-- {
		s.uq.release(prefixes[i], slots[i])
	}
	return nil
}

// optimizePseudoFuncArgs scans args in reverse, substituting each
// trailing slot with its staging Set's source operand as long as the
// stream tail still matches; stops at the first non-match so earlier
// slots whose Set has since been consumed or superseded are left alone.
func (s *Session) optimizePseudoFuncArgs(args []string) {
	if s.OptLevel < 1 {
		return
	}
	for i := len(args) - 1; i >= 0; i-- {
		if s.canAvoidIndirection(args[i]) {
			args[i] = s.pop().(*ir.Set).Src
		} else {
			break
		}
	}
}

func (s *Session) builtinRadar(n *parser.Call) error {
	if err := s.checkArity(n, 6); err != nil {
		return err
	}
	prefixes := make([]string, len(n.Args))
	slots := make([]string, len(n.Args))
	names := make([]string, len(n.Args))
	for i, arg := range n.Args {
		if i >= 1 && i <= 4 {
			lit, ok := stringLiteral(arg)
			if !ok {
				return cerrors.TypeShape(arg.Loc(), "radar argument %d must be a string literal", i)
			}
			s.push(&ir.Set{Dest: "__rax", Src: lit})
		} else if err := s.visitExpr(arg); err != nil {
			return err
		}
		prefixes[i] = fmt.Sprintf("__radar_arg%d", i)
		slots[i] = s.uq.alloc(prefixes[i])
		s.setToRax(slots[i])
		names[i] = slots[i]
	}
	s.optimizePseudoFuncArgs(names)
	s.push(&ir.Radar{
		Dest: "__rax", Src: names[0],
		Target1: names[1], Target2: names[2], Target3: names[3],
		Sort: names[4], Index: names[5],
	})
	for i := len(slots) - 1; i >= 0; i-- {
		s.uq.release(prefixes[i], slots[i])
	}
	return nil
}

func (s *Session) builtinSensor(n *parser.Call) error {
	if err := s.checkArity(n, 2); err != nil {
		return err
	}
	slot := s.uq.alloc("__sensor_arg0")
	if err := s.visitExpr(n.Args[0]); err != nil {
		return err
	}
	s.setToRax(slot)
	lit, ok := stringLiteral(n.Args[1])
	if !ok {
		return cerrors.TypeShape(n.Args[1].Loc(), "sensor property argument must be a string literal")
	}
	s.push(&ir.Set{Dest: "__rax", Src: lit})
	left, right := slot, "__rax"
	if s.canAvoidIndirection("__rax") {
		right = s.pop().(*ir.Set).Src
	}
	if s.canAvoidIndirection(slot) {
		left = s.pop().(*ir.Set).Src
	}
	s.push(&ir.Sensor{Dest: "__rax", Src: left, Prop: right})
	s.uq.release("__sensor_arg0", slot)
	return nil
}

func (s *Session) builtinGetLink(n *parser.Call) error {
	if err := s.checkArity(n, 1); err != nil {
		return err
	}
	if err := s.visitExpr(n.Args[0]); err != nil {
		return err
	}
	index := "__rax"
	if s.canAvoidIndirection("__rax") {
		index = s.pop().(*ir.Set).Src
	}
	s.push(&ir.GetLink{Dest: "__rax", Index: index})
	return nil
}

func (s *Session) builtinNamedUnary(n *parser.Call) error {
	if err := s.checkArity(n, 1); err != nil {
		return err
	}
	if err := s.visitExpr(n.Args[0]); err != nil {
		return err
	}
	src := "__rax"
	if s.canAvoidIndirection("__rax") {
		src = s.pop().(*ir.Set).Src
	}
	s.push(&ir.UnaryOp{Dest: "__rax", Src: src, Op: n.Name})
	return nil
}

// visitUserCall emits the call/return sequence: arguments
// are written directly into the callee's mangled local slots, then the
// return address (the offset of the instruction immediately after the
// FunctionCall, expressed as currOffset()+3: +1 for the Set itself, +1
// for the FunctionCall, +1 to land past it) is stashed, then control
// transfers unconditionally. The stashed literal is relative to the
// caller's start; the linker adds that start to make it absolute.
func (s *Session) visitUserCall(n *parser.Call) error {
	fn, ok := s.functions[n.Name]
	if !ok {
		return cerrors.UnknownName(n.Loc(), "%q is not a function", n.Name)
	}
	if len(n.Args) != len(fn.Params) {
		return cerrors.Unsupported(n.Loc(), "%q expects %d argument(s), got %d", n.Name, len(fn.Params), len(n.Args))
	}
	if s.curr != nil {
		s.curr.Callees[n.Name] = true
		fn.Callers[s.curr.Name] = true
	}
	for i, param := range fn.Params {
		if err := s.visitExpr(n.Args[i]); err != nil {
			return err
		}
		s.setToRax(fn.mangledLocal(param))
	}
	s.push(&ir.Set{Dest: fn.retaddr(), Src: strconv.Itoa(s.currOffset() + 3)})
	s.push(ir.NewFunctionCall(n.Name))
	return nil
}
