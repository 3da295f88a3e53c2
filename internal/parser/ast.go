// Package parser turns a preprocessed-C token stream into the tagged-
// variant AST the compiler's emitter matches over. There is no
// Visitor/Accept machinery: consumers type-switch on Node directly.
package parser

import "logicc/internal/errors"

// Node is implemented by every AST variant. It carries only a source
// location; dispatch is a type switch in the compiler package, not a
// method on this interface.
type Node interface {
	Loc() errors.SourceLocation
}

type node struct {
	Location errors.SourceLocation
}

func (n node) Loc() errors.SourceLocation { return n.Location }

// ---- Expressions ----

type LiteralKind int

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralString
	LiteralChar
	LiteralNull
)

// Literal is a constant token carried through to codegen as a raw
// string value, consumed verbatim.
type Literal struct {
	node
	Kind  LiteralKind
	Value string // raw textual value, e.g. "5", "\"hi\"", "null"
}

// Ident is a bare identifier reference: local, global, function name
// used as a value, or a VM-intrinsic name.
type Ident struct {
	node
	Name string
}

// Assign is `target = Value` or an augmented form (`+=`, `-=`, ...).
// Op is "=" for a plain assignment.
type Assign struct {
	node
	Target string
	Op     string
	Value  Expr
}

// Binary is `Left Op Right` for any recognized binary operator token.
type Binary struct {
	node
	Left  Expr
	Op    string
	Right Expr
}

// IncDec is `++`/`--`, pre- or post-fix, on a named lvalue.
type IncDec struct {
	node
	Name    string
	Op      string // "++" or "--"
	Postfix bool
}

// Unary is `!x`, `-x`, or `~x`. Named unary builtins (abs, sqrt, ...)
// parse as a Call, not a Unary.
type Unary struct {
	node
	Op string
	X  Expr
}

// Call is either a user-defined function invocation or a pseudo-function
// builtin, disambiguated at compile time by name.
type Call struct {
	node
	Name string
	Args []Expr
}

// Expr is the subset of Node that can appear in expression position.
// It exists only for documentation; the compiler type-switches on Node
// directly since Go lacks sealed unions.
type Expr = Node

// ---- Statements ----

// ExprStmt is an expression evaluated for its side effect, value discarded.
type ExprStmt struct {
	node
	X Expr
}

// VarDecl declares a local variable with an optional initializer
// (file-scope variables parse as GlobalVarDecl).
// TypeName is kept only so `struct MindustryObject` can be accepted and
// ignored; any other struct/enum type name is rejected by the compiler
// as unsupported-construct.
type VarDecl struct {
	node
	Name     string
	TypeName string
	Init     Expr // nil if uninitialized
}

// CompoundStmt is a `{ ... }` block.
type CompoundStmt struct {
	node
	Stmts []Stmt
}

type IfStmt struct {
	node
	Cond Expr
	Then Stmt
	Else Stmt // nil if no else branch
}

type WhileStmt struct {
	node
	Cond Expr
	Body Stmt
}

type DoWhileStmt struct {
	node
	Body Stmt
	Cond Expr
}

// ForStmt's Init may be a VarDecl, an ExprStmt, or nil; Cond and Step
// may be nil.
type ForStmt struct {
	node
	Init Stmt
	Cond Expr
	Step Expr
	Body Stmt
}

type BreakStmt struct{ node }

type ContinueStmt struct{ node }

// ReturnStmt's Value is nil for a bare `return;`.
type ReturnStmt struct {
	node
	Value Expr
}

// LabeledStmt is `label: stmt`, the target of a Goto within the same
// function; cross-function labels are not supported.
type LabeledStmt struct {
	node
	Label string
	Stmt  Stmt
}

type GotoStmt struct {
	node
	Label string
}

// Stmt mirrors Expr: documentation only, compiler type-switches on Node.
type Stmt = Node

// ---- Top-level declarations ----

// Param is a function parameter; Type is checked only to reject
// unsupported struct/enum type names, never consulted for real C type
// semantics.
type Param struct {
	Name string
	Type string
}

// FuncDecl is a forward declaration: `int add(int a, int b);` with no body.
type FuncDecl struct {
	node
	Name       string
	Params     []Param
	ReturnType string
}

// FuncDef is a full function definition with a body.
type FuncDef struct {
	node
	Name       string
	Params     []Param
	ReturnType string
	Body       *CompoundStmt
}

// GlobalVarDecl is a file-scope variable declaration.
type GlobalVarDecl struct {
	node
	Name     string
	TypeName string
	Init     Expr
}

// File is the whole translation unit: an ordered list of top-level
// declarations, compiled in source order.
type File struct {
	node
	Decls []Node
}
