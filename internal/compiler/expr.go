// internal/compiler/expr.go
package compiler

import (
	"github.com/pkg/errors"

	cerrors "logicc/internal/errors"
	"logicc/internal/ir"
	"logicc/internal/operators"
	"logicc/internal/parser"
)

// visitExpr schedules x so its value ends up in __rax; every
// expression form shares that post-condition (or the tail instruction
// is retargeted by the peephole).
func (s *Session) visitExpr(x parser.Expr) error {
	switch n := x.(type) {
	case *parser.Literal:
		s.push(&ir.Set{Dest: "__rax", Src: n.Value})
		return nil
	case *parser.Ident:
		return s.visitIdent(n)
	case *parser.Assign:
		return s.visitAssign(n)
	case *parser.Binary:
		return s.visitBinary(n)
	case *parser.IncDec:
		return s.visitIncDec(n)
	case *parser.Unary:
		return s.visitUnary(n)
	case *parser.Call:
		return s.visitCall(n)
	default:
		return cerrors.Unsupported(x.Loc(), "unsupported expression %T", x)
	}
}

func (s *Session) visitIdent(n *parser.Ident) error {
	name, err := s.resolveIdent(n.Name, n.Loc())
	if err != nil {
		return err
	}
	s.push(&ir.Set{Dest: "__rax", Src: name})
	return nil
}

// visitAssign handles plain and augmented assignment.
func (s *Session) visitAssign(n *parser.Assign) error {
	if err := s.visitExpr(n.Value); err != nil {
		return errors.Wrapf(err, "assigning to %q", n.Target)
	}
	dest, err := s.resolveIdent(n.Target, n.Loc())
	if err != nil {
		return err
	}
	if n.Op == "=" {
		s.setToRax(dest)
		return nil
	}
	op := n.Op[:len(n.Op)-1] // "+=" -> "+"
	src := "__rax"
	var slot string
	if s.canAvoidIndirection("__rax") {
		src = s.pop().(*ir.Set).Src
	} else if s.OptLevel >= 1 {
		// A compound rvalue leaves a dest-carrying instruction (not a
		// Set) on the tail; retarget it into a scratch slot so the
		// combining op reads the value without a __rax round trip.
		if d, ok := ir.Dest(s.peek()); ok && d == "__rax" {
			slot = s.uq.alloc("__rbx")
			ir.SetDest(s.peek(), slot)
			src = slot
		}
	}
	s.push(&ir.BinaryOp{Dest: dest, Left: dest, Right: src, Op: op})
	if slot != "" {
		s.uq.release("__rbx", slot)
	}
	if s.OptLevel < 3 {
		s.push(&ir.Set{Dest: "__rax", Src: dest})
	}
	return nil
}

// visitBinary evaluates the left side into a uniqued scratch slot,
// evaluates the right side, applies the indirection peephole to both
// operands (consuming right/__rax before left/__rbx_k; reversing would
// read the wrong stream tail), then emits the op.
func (s *Session) visitBinary(n *parser.Binary) error {
	if !operators.IsBinary(n.Op) {
		return cerrors.Unsupported(n.Loc(), "unsupported binary operator %q", n.Op)
	}
	leftSlot := s.uq.alloc("__rbx")
	if err := s.visitExpr(n.Left); err != nil {
		return errors.Wrap(err, "evaluating left operand")
	}
	s.setToRax(leftSlot)
	if err := s.visitExpr(n.Right); err != nil {
		return errors.Wrap(err, "evaluating right operand")
	}
	left := leftSlot
	right := "__rax"
	if s.canAvoidIndirection("__rax") {
		right = s.pop().(*ir.Set).Src
	}
	if s.canAvoidIndirection(leftSlot) {
		left = s.pop().(*ir.Set).Src
	}
	s.push(&ir.BinaryOp{Dest: "__rax", Left: left, Right: right, Op: n.Op})
	s.uq.release("__rbx", leftSlot)
	return nil
}

// visitIncDec emits pre/post increment and decrement. The Set that
// exposes the expression's value is skipped at opt level >= 3.
func (s *Session) visitIncDec(n *parser.IncDec) error {
	if s.curr == nil {
		return cerrors.Unsupported(n.Loc(), "++/-- outside a function")
	}
	varname, err := s.resolveIdent(n.Name, n.Loc())
	if err != nil {
		return err
	}
	opTok := "+"
	if n.Op == "--" {
		opTok = "-"
	}
	if n.Postfix {
		if s.OptLevel < 3 {
			s.push(&ir.Set{Dest: "__rax", Src: varname})
		}
		s.push(&ir.BinaryOp{Dest: varname, Left: varname, Right: "1", Op: opTok})
		return nil
	}
	s.push(&ir.BinaryOp{Dest: varname, Left: varname, Right: "1", Op: opTok})
	if s.OptLevel < 3 {
		s.push(&ir.Set{Dest: "__rax", Src: varname})
	}
	return nil
}

// visitUnary emits the unary forms, including the `!x`
// inverse-comparison rewrite.
func (s *Session) visitUnary(n *parser.Unary) error {
	switch n.Op {
	case "!":
		if err := s.visitExpr(n.X); err != nil {
			return err
		}
		if s.OptLevel >= 1 {
			if bin, ok := s.peek().(*ir.BinaryOp); ok && operators.IsCondition(bin.Op) {
				s.pop()
				s.push(bin.Inverse())
				return nil
			}
		}
		s.push(&ir.BinaryOp{Dest: "__rax", Left: "__rax", Right: "0", Op: "=="})
		return nil
	case "~":
		if err := s.visitExpr(n.X); err != nil {
			return err
		}
		s.push(&ir.UnaryOp{Dest: "__rax", Src: "__rax", Op: "~"})
		return nil
	case "-":
		// Numeric negation has no dedicated target-VM unary opcode (the
		// VM's unary encoding is a binary opcode applied against a
		// literal 0 right operand, which would compute src-0 rather than
		// 0-src); schedule it as a BinaryOp against a literal left 0
		// instead, consuming the operand's staging Set when possible.
		if err := s.visitExpr(n.X); err != nil {
			return err
		}
		src := "__rax"
		if s.canAvoidIndirection("__rax") {
			src = s.pop().(*ir.Set).Src
		}
		s.push(&ir.BinaryOp{Dest: "__rax", Left: "0", Right: src, Op: "-"})
		return nil
	default:
		// Named unary builtins are dispatched through visitCall; any other
		// unary token reaching here has no target-VM opcode.
		return cerrors.Unsupported(n.Loc(), "unsupported unary operator %q", n.Op)
	}
}
