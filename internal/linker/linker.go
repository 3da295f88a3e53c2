// Package linker lays compiled functions out sequentially after a
// preamble and rewrites every symbolic jump, call, and return-address
// literal to an absolute instruction index. There is no
// separate-compilation concept here (the whole translation unit is one
// Session), so this is a single in-memory two-pass resolver, not a
// traditional object-file linker.
package linker

import (
	"strconv"
	"strings"

	"logicc/internal/compiler"
	"logicc/internal/ir"
)

// Program is the final, fully resolved instruction stream.
type Program struct {
	Instructions []ir.Instruction
}

// Render concatenates every instruction's rendered line, one
// instruction per line.
func (p *Program) Render() string {
	lines := make([]string, len(p.Instructions))
	for i, instr := range p.Instructions {
		lines[i] = instr.String()
	}
	return strings.Join(lines, "\n")
}

// Link lays out sess's compiled functions and resolves every symbolic
// target to an absolute offset. At opt level >= 2 it first prunes
// functions unreachable from the entry point.
func Link(sess *compiler.Session) *Program {
	functions, order := sess.Functions()
	entry := sess.EntryFunction()

	if sess.OptLevel >= 2 {
		order = pruneUnreachable(functions, order, entry)
	}

	preamble, call := buildPreamble(entry, sess.OptLevel, len(order))

	offset := len(preamble)
	for _, name := range order {
		fn := functions[name]
		fn.Start = offset
		offset += len(fn.Instructions)
	}
	if call != nil {
		call.FuncStart = functions[entry].Start
	}

	program := make([]ir.Instruction, 0, offset)
	program = append(program, preamble...)
	for _, name := range order {
		fn := functions[name]
		resolveFunction(fn, functions)
		program = append(program, fn.Instructions...)
	}
	return &Program{Instructions: program}
}

// buildPreamble builds the program's entry sequence. The default
// preamble stashes the entry function's return address, jumps to it,
// and halts when it (hypothetically) returns. At opt level >= 2, if
// main is the program's only function, the preamble collapses to a
// single unconditional jump: main emits End instead of Return at that
// same opt level, so nothing would ever read __retaddr_main and the
// full preamble would carry a dead instruction.
func buildPreamble(entry string, optLevel, numFuncs int) ([]ir.Instruction, *ir.FunctionCall) {
	if optLevel >= 2 && numFuncs == 1 && entry == "main" {
		call := ir.NewFunctionCall(entry)
		return []ir.Instruction{call}, call
	}
	call := ir.NewFunctionCall(entry)
	// The retaddr literal is the absolute index of the instruction right
	// after the call: this preamble is always instructions [0,1,2), so
	// that index is always 2, independent of where functions land.
	return []ir.Instruction{
		&ir.Set{Dest: "__retaddr_" + entry, Src: "2"},
		call,
		&ir.End{},
	}, call
}

// resolveFunction rewrites every symbolic field in fn's instruction
// list to an absolute offset.
func resolveFunction(fn *compiler.Function, functions map[string]*compiler.Function) {
	for _, instr := range fn.Instructions {
		switch in := instr.(type) {
		case *ir.RelativeJump:
			in.FuncStart = fn.Start
		case *ir.FunctionCall:
			in.FuncStart = functions[in.FuncName].Start
		case *ir.Goto:
			in.Offset = fn.Labels[in.Label]
			in.FuncStart = fn.Start
		case *ir.Set:
			if strings.HasPrefix(in.Dest, "__retaddr") {
				if rel, err := strconv.Atoi(in.Src); err == nil {
					in.Src = strconv.Itoa(rel + fn.Start)
				}
			}
		}
	}
}
