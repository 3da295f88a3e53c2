// internal/compiler/stmt.go
package compiler

import (
	"github.com/pkg/errors"

	cerrors "logicc/internal/errors"
	"logicc/internal/ir"
	"logicc/internal/operators"
	"logicc/internal/parser"
)

// visitStmt is the tagged-variant match over statement forms.
func (s *Session) visitStmt(n parser.Stmt) error {
	switch st := n.(type) {
	case *parser.CompoundStmt:
		for _, inner := range st.Stmts {
			if err := s.visitStmt(inner); err != nil {
				return err
			}
		}
		return nil
	case *parser.ExprStmt:
		return s.visitExpr(st.X)
	case *parser.VarDecl:
		return s.visitVarDecl(st)
	case *parser.IfStmt:
		return s.visitIf(st)
	case *parser.WhileStmt:
		return s.visitWhile(st)
	case *parser.DoWhileStmt:
		return s.visitDoWhile(st)
	case *parser.ForStmt:
		return s.visitFor(st)
	case *parser.BreakStmt:
		return s.visitBreak(st)
	case *parser.ContinueStmt:
		return s.visitContinue(st)
	case *parser.ReturnStmt:
		return s.visitReturn(st)
	case *parser.GotoStmt:
		s.push(ir.NewGoto(st.Label))
		return nil
	case *parser.LabeledStmt:
		s.curr.Labels[st.Label] = s.curr.offset()
		return s.visitStmt(st.Stmt)
	default:
		return cerrors.Unsupported(n.Loc(), "unsupported statement %T", n)
	}
}

func (s *Session) visitVarDecl(d *parser.VarDecl) error {
	if err := checkTypeName(d.TypeName, d.Loc()); err != nil {
		return err
	}
	s.curr.addLocal(d.Name)
	if d.Init == nil {
		return nil
	}
	if err := s.visitExpr(d.Init); err != nil {
		return errors.Wrapf(err, "initializing %q", d.Name)
	}
	s.setToRax(s.curr.mangledLocal(d.Name))
	return nil
}

// pushBodyJump pushes the jump that skips a loop or if body when its
// condition is false: if the tail is an invertible comparison, pop it
// and jump on its inverse; otherwise jump on an explicit `__rax == 0`
// test. The returned instruction's Offset is nil until patched by the
// caller.
func (s *Session) pushBodyJump() *ir.RelativeJump {
	if s.OptLevel >= 1 {
		if bin, ok := s.peek().(*ir.BinaryOp); ok && operators.IsCondition(bin.Op) {
			s.pop()
			return s.push(ir.NewRelativeJump(ir.ConditionFromBinaryOp(bin.Inverse()))).(*ir.RelativeJump)
		}
	}
	return s.push(ir.NewRelativeJump(ir.JumpCondition{Op: "==", Left: "__rax", Right: "0"})).(*ir.RelativeJump)
}

func (s *Session) visitIf(n *parser.IfStmt) error {
	if err := s.visitExpr(n.Cond); err != nil {
		return errors.Wrap(err, "evaluating if condition")
	}
	j1 := s.pushBodyJump()
	if err := s.visitStmt(n.Then); err != nil {
		return err
	}
	var j2 *ir.RelativeJump
	if n.Else != nil {
		j2 = s.push(ir.NewRelativeJump(ir.Always)).(*ir.RelativeJump)
	}
	patch(j1, s.curr.offset())
	if n.Else != nil {
		if err := s.visitStmt(n.Else); err != nil {
			return err
		}
		patch(j2, s.curr.offset())
	}
	return nil
}

func patch(j *ir.RelativeJump, offset int) {
	o := offset
	j.Offset = &o
}

// startLoop records the loop's back-edge start, evaluates cond, and
// pushes the body-exit jump, which doubles as the first entry in the
// loop's break-target list.
func (s *Session) startLoop(cond parser.Expr) error {
	loop := &Loop{Start: s.curr.offset()}
	s.loops = append(s.loops, loop)
	if err := s.visitExpr(cond); err != nil {
		return err
	}
	exit := s.pushBodyJump()
	loop.EndJumps = append(loop.EndJumps, exit)
	return nil
}

func (s *Session) endLoop() {
	loop := s.loops[len(s.loops)-1]
	s.loops = s.loops[:len(s.loops)-1]
	start := loop.Start
	s.push(ir.NewBackwardJump(start, ir.Always))
	end := s.curr.offset()
	for _, j := range loop.EndJumps {
		patch(j, end)
	}
}

func (s *Session) visitWhile(n *parser.WhileStmt) error {
	if err := s.startLoop(n.Cond); err != nil {
		return err
	}
	if err := s.visitStmt(n.Body); err != nil {
		return err
	}
	s.endLoop()
	return nil
}

func (s *Session) visitFor(n *parser.ForStmt) error {
	if n.Init != nil {
		if err := s.visitStmt(n.Init); err != nil {
			return err
		}
	}
	cond := n.Cond
	if cond == nil {
		cond = &parser.Literal{Kind: parser.LiteralInt, Value: "1"}
	}
	if err := s.startLoop(cond); err != nil {
		return err
	}
	if err := s.visitStmt(n.Body); err != nil {
		return err
	}
	if n.Step != nil {
		if err := s.visitExpr(n.Step); err != nil {
			return err
		}
	}
	s.endLoop()
	return nil
}

// visitDoWhile pushes a skip-jump over the condition block so the
// first iteration lands directly on the body, then the usual
// loop-start/body-jump/back-edge machinery runs with loop-start at the
// condition block so the back-edge re-tests it.
func (s *Session) visitDoWhile(n *parser.DoWhileStmt) error {
	skip := s.push(ir.NewRelativeJump(ir.Always)).(*ir.RelativeJump)
	if err := s.startLoop(n.Cond); err != nil {
		return err
	}
	patch(skip, s.curr.offset())
	if err := s.visitStmt(n.Body); err != nil {
		return err
	}
	s.endLoop()
	return nil
}

func (s *Session) visitBreak(n *parser.BreakStmt) error {
	if len(s.loops) == 0 {
		return cerrors.Unsupported(n.Loc(), "break outside a loop")
	}
	j := s.push(ir.NewRelativeJump(ir.Always)).(*ir.RelativeJump)
	loop := s.loops[len(s.loops)-1]
	loop.EndJumps = append(loop.EndJumps, j)
	return nil
}

func (s *Session) visitContinue(n *parser.ContinueStmt) error {
	if len(s.loops) == 0 {
		return cerrors.Unsupported(n.Loc(), "continue outside a loop")
	}
	loop := s.loops[len(s.loops)-1]
	s.push(ir.NewBackwardJump(loop.Start, ir.Always))
	return nil
}

func (s *Session) visitReturn(n *parser.ReturnStmt) error {
	if n.Value != nil {
		if err := s.visitExpr(n.Value); err != nil {
			return errors.Wrap(err, "evaluating return value")
		}
	} else {
		s.push(&ir.Set{Dest: "__rax", Src: "null"})
	}
	s.pushReturn()
	return nil
}

// pushReturn ends the current function. At opt level >= 2, main never
// executes a Return (there is no caller to return to in the fabricated
// ABI sense; the preamble's own End halts the VM), so its trailing
// `Set __rax, ...` is dropped in favor of a plain End.
func (s *Session) pushReturn() {
	if s.OptLevel >= 2 && s.curr.Name == "main" {
		if set, ok := s.peek().(*ir.Set); ok && set.Dest == "__rax" {
			s.pop()
		}
		s.push(&ir.End{})
		return
	}
	s.push(&ir.Return{FuncName: s.curr.Name})
}
