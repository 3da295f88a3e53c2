// Package compiler implements the AST-directed emitter: the expression
// scheduler, the indirection peephole, control-flow jump management,
// and the call/return ABI fabricated out of target-VM primitives.
// Compilation is two-pass: declare every top-level name, then emit
// bodies, so forward references resolve regardless of source order.
package compiler

import (
	"strconv"

	"github.com/pkg/errors"

	cerrors "logicc/internal/errors"
	"logicc/internal/ir"
	"logicc/internal/operators"
	"logicc/internal/parser"
)

// Session is the single owned context threaded through emission: the
// function table (insertion-ordered), the function under emission, the
// global-variable set, the active loop stack, and the uniquifier.
// There is no state outside a Session; one compilation per Session.
type Session struct {
	OptLevel int

	functions map[string]*Function
	order     []string // insertion order; determines final layout

	globals map[string]bool

	curr  *Function
	loops []*Loop
	uq    *uniquifier

	file string
}

func NewSession(optLevel int, file string) *Session {
	return &Session{
		OptLevel:  optLevel,
		functions: make(map[string]*Function),
		globals:   make(map[string]bool),
		uq:        newUniquifier(),
		file:      file,
	}
}

// Functions returns the compiled function table in insertion order,
// ready for the linker.
func (s *Session) Functions() (map[string]*Function, []string) {
	return s.functions, s.order
}

// Compile walks the whole translation unit: a first pass registers
// every function name (definition or forward declaration) as a
// placeholder Function so call sites can resolve forward references,
// then a second pass emits bodies and global initializers in source
// order.
func (s *Session) Compile(file *parser.File) error {
	for _, decl := range file.Decls {
		if err := s.declareTopLevel(decl); err != nil {
			return err
		}
	}
	for _, decl := range file.Decls {
		if err := s.defineTopLevel(decl); err != nil {
			return err
		}
	}
	if fn, ok := s.functions["main"]; !ok || !fn.Defined {
		return cerrors.UnknownName(cerrors.SourceLocation{File: s.file}, "no definition of 'main'")
	}
	if init, ok := s.functions[initFuncName]; ok && len(init.Instructions) > 0 {
		// __init hands off to main through the ordinary call ABI so
		// main's Return has a live __retaddr_main to load, then returns
		// itself, landing on the preamble's End.
		init.push(&ir.Set{Dest: "__retaddr_main", Src: strconv.Itoa(len(init.Instructions) + 2)})
		init.push(ir.NewFunctionCall("main"))
		init.push(&ir.Return{FuncName: initFuncName})
		init.Defined = true
		init.Callees["main"] = true
		s.functions["main"].Callers[initFuncName] = true
	}
	return s.checkCalledButUndefined()
}

// checkCalledButUndefined rejects calls to a forward-declared function
// that never gets a body. The check runs only once the whole
// translation unit has been read, since a call may simply precede its
// definition in source order, which is not an error.
func (s *Session) checkCalledButUndefined() error {
	for _, name := range s.order {
		fn := s.functions[name]
		if !fn.Defined && len(fn.Callers) > 0 {
			return cerrors.UnknownName(cerrors.SourceLocation{File: s.file}, "function %q is called but never defined", name)
		}
	}
	return nil
}

// EntryFunction names the function the linker's preamble should call:
// the synthesized global-initializer function when any global has an
// initializer, otherwise main directly.
func (s *Session) EntryFunction() string {
	if init, ok := s.functions[initFuncName]; ok && len(init.Instructions) > 0 {
		return init.Name
	}
	return "main"
}

func (s *Session) declareTopLevel(decl parser.Node) error {
	switch d := decl.(type) {
	case *parser.FuncDecl:
		if operators.Builtins[d.Name] {
			return cerrors.Unsupported(d.Loc(), "cannot forward-declare builtin %q", d.Name)
		}
		if err := checkSignature(d.ReturnType, d.Params, d.Loc()); err != nil {
			return err
		}
		if _, exists := s.functions[d.Name]; !exists {
			s.registerFunction(d.Name, paramNames(d.Params))
		}
	case *parser.FuncDef:
		if operators.Builtins[d.Name] {
			return cerrors.Unsupported(d.Loc(), "cannot redefine builtin %q", d.Name)
		}
		if err := checkSignature(d.ReturnType, d.Params, d.Loc()); err != nil {
			return err
		}
		if existing, exists := s.functions[d.Name]; exists && existing.Defined {
			return cerrors.Unsupported(d.Loc(), "redefinition of function %q", d.Name)
		}
		s.registerFunction(d.Name, paramNames(d.Params))
		s.functions[d.Name].Defined = true
	case *parser.GlobalVarDecl:
		if err := checkTypeName(d.TypeName, d.Loc()); err != nil {
			return err
		}
		s.globals[d.Name] = true
	default:
		return cerrors.Unsupported(decl.Loc(), "unsupported top-level declaration %T", decl)
	}
	return nil
}

func (s *Session) registerFunction(name string, params []string) {
	if _, exists := s.order2index(name); !exists {
		s.order = append(s.order, name)
	}
	s.functions[name] = newFunction(name, params)
}

func (s *Session) order2index(name string) (int, bool) {
	for i, n := range s.order {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func (s *Session) defineTopLevel(decl parser.Node) error {
	switch d := decl.(type) {
	case *parser.FuncDef:
		return s.compileFunction(d)
	case *parser.GlobalVarDecl:
		return s.compileGlobalInit(d)
	case *parser.FuncDecl:
		return nil
	default:
		return cerrors.Unsupported(decl.Loc(), "unsupported top-level declaration %T", decl)
	}
}

func checkTypeName(typeName string, loc cerrors.SourceLocation) error {
	switch typeName {
	case "int", "float", "char", "void", "struct MindustryObject":
		return nil
	default:
		return cerrors.Unsupported(loc, "unsupported type %q (structs/enums other than MindustryObject are not supported)", typeName)
	}
}

func checkSignature(returnType string, params []parser.Param, loc cerrors.SourceLocation) error {
	if err := checkTypeName(returnType, loc); err != nil {
		return err
	}
	for _, p := range params {
		if err := checkTypeName(p.Type, loc); err != nil {
			return err
		}
	}
	return nil
}

// compileGlobalInit emits a global variable's initializer outside of
// any function. Initializers land in a synthetic "__init" function, a
// genuine Function like any other; Compile appends the handoff to main
// (retaddr Set, call, Return) once the whole unit is read, and the
// linker's preamble targets __init instead of main when one exists, so
// the ordinary per-function offset rewriting needs no special-casing
// for it.
func (s *Session) compileGlobalInit(d *parser.GlobalVarDecl) error {
	if d.Init == nil {
		return nil
	}
	init := s.initFunction()
	prev := s.curr
	s.curr = init
	if err := s.visitExpr(d.Init); err != nil {
		s.curr = prev
		return err
	}
	s.setToRax(d.Name)
	s.curr = prev
	return nil
}

const initFuncName = "__init"

func (s *Session) initFunction() *Function {
	if f, ok := s.functions["__init"]; ok {
		return f
	}
	f := newFunction(initFuncName, nil)
	s.functions[initFuncName] = f
	s.order = append([]string{initFuncName}, s.order...)
	return f
}

func (s *Session) compileFunction(d *parser.FuncDef) error {
	fn, ok := s.functions[d.Name]
	if !ok {
		fn = newFunction(d.Name, paramNames(d.Params))
		s.functions[d.Name] = fn
	}
	fn.Defined = true
	prev := s.curr
	s.curr = fn
	defer func() { s.curr = prev }()

	for _, stmt := range d.Body.Stmts {
		if err := s.visitStmt(stmt); err != nil {
			return errors.Wrapf(err, "compiling function %q", d.Name)
		}
	}
	if !s.endsInReturn() {
		s.push(&ir.Set{Dest: "__rax", Src: "null"})
		s.pushReturn()
	}
	// Labels are recorded as statements are emitted, so a goto to a label
	// that never appears is only detectable once the body is done; left
	// unchecked it would silently link to the function's first instruction.
	for _, in := range fn.Instructions {
		if g, ok := in.(*ir.Goto); ok {
			if _, exists := fn.Labels[g.Label]; !exists {
				return cerrors.UnknownName(d.Loc(), "unknown label %q in function %q", g.Label, d.Name)
			}
		}
	}
	return nil
}

// endsInReturn reports whether the current function's instruction
// stream already ends with a Return/End. A loop or if body that abuts
// the function end still needs an implicit return synthesized, since
// the loop/if machinery never itself emits one.
func (s *Session) endsInReturn() bool {
	top := s.curr.peek()
	if top == nil {
		return false
	}
	switch top.(type) {
	case *ir.Return, *ir.End:
		return true
	default:
		return false
	}
}

func paramNames(params []parser.Param) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

// ---- shared emission primitives ----

func (s *Session) push(i ir.Instruction) ir.Instruction { return s.curr.push(i) }

func (s *Session) peek() ir.Instruction { return s.curr.peek() }

func (s *Session) pop() ir.Instruction { return s.curr.pop() }

// currOffset is the index of the most recently pushed instruction
// (len-1), not the next free slot.
func (s *Session) currOffset() int { return len(s.curr.Instructions) - 1 }

// canAvoidIndirection reports whether the tail instruction is a Set
// targeting v; gated on opt level >= 1 like every peephole action.
func (s *Session) canAvoidIndirection(v string) bool {
	if s.OptLevel < 1 {
		return false
	}
	set, ok := s.peek().(*ir.Set)
	return ok && set.Dest == v
}

// setToRax stores the value of the expression just emitted into v: if
// the tail instruction writes __rax (a Set, a BinaryOp, or any other
// variant that carries a destination register), retarget it in place;
// otherwise emit an explicit Set. Treating any store to __rax as a
// retargeting candidate is what folds `int x = 1 + 2` down to a single
// `op add _x_main 1 2`.
func (s *Session) setToRax(v string) {
	if s.OptLevel >= 1 {
		if dest, ok := ir.Dest(s.peek()); ok && dest == "__rax" {
			ir.SetDest(s.peek(), v)
			return
		}
	}
	s.push(&ir.Set{Dest: v, Src: "__rax"})
}

// resolveIdent resolves an identifier in category order: local,
// global, function name as a value, VM intrinsic.
func (s *Session) resolveIdent(name string, loc cerrors.SourceLocation) (string, error) {
	if s.curr != nil && s.curr.hasLocal(name) {
		return s.curr.mangledLocal(name), nil
	}
	if s.globals[name] {
		return name, nil
	}
	if _, ok := s.functions[name]; ok {
		return name, nil
	}
	if operators.SpecialVars[name] {
		return "@" + name, nil
	}
	return "", cerrors.UnknownName(loc, "unknown identifier %q", name)
}
