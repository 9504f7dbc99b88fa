// Package ast defines the JEXL abstract syntax tree. Nodes are tagged
// variants: the concrete Go type of a Node is its tag, and the interpreter
// and printer dispatch on it with a type switch. An AST is immutable after
// parse — no node carries per-evaluation state.
package ast

import (
	"math/big"

	"github.com/jexl-go/jexl/pkg/token"
)

// TokenType aliases the lexical token type so downstream packages that only
// need AST-level operator tags don't have to import pkg/token themselves.
type TokenType = token.Type

// Origin is the source location a node was parsed from, carried through to
// every error raised while evaluating it.
type Origin struct {
	Name   string
	Line   int
	Column int
}

// Node is implemented by every AST node.
type Node interface {
	Origin() Origin
	node()
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

type base struct{ Pos Origin }

func (b base) Origin() Origin { return b.Pos }
func (base) node()            {}

type exprBase struct{ base }

func (exprBase) exprNode() {}

type stmtBase struct{ base }

func (stmtBase) stmtNode() {}

func newExprBase(o Origin) exprBase { return exprBase{base{o}} }
func newStmtBase(o Origin) stmtBase { return stmtBase{base{o}} }

// ---- Literals ----

// IntLiteral is an integer literal, widened to Big when the written form
// overflows a plain int64 (unsuffixed policy: int -> long -> big-integer).
type IntLiteral struct {
	exprBase
	Value  int64
	Big    *big.Int // non-nil only on overflow of the written form
	Suffix string    // "", "L", "H"
}

// FloatLiteral is a decimal literal, widened to Big when the written form
// overflows a float64 (unsuffixed policy: double -> big-decimal).
type FloatLiteral struct {
	exprBase
	Value  float64
	Big    *big.Float
	Suffix string // "", "f", "d", "B"
}

// BoolLiteral is `true` or `false`.
type BoolLiteral struct {
	exprBase
	Value bool
}

// NullLiteral is `null`.
type NullLiteral struct{ exprBase }

// StringLiteral is a single- or double-quoted string literal.
type StringLiteral struct {
	exprBase
	Value string
}

// RegexLiteral is a `~/pattern/` literal.
type RegexLiteral struct {
	exprBase
	Pattern string
}

// SpreadExpr is `...x` inside an array/set/map literal or an argument list.
// A null operand spreads as empty.
type SpreadExpr struct {
	exprBase
	Value Expr
}

// ArrayLiteral is `[1,2,3]`.
type ArrayLiteral struct {
	exprBase
	Elements []Expr
}

// SetLiteral is `{1,2,3}`.
type SetLiteral struct {
	exprBase
	Elements []Expr
}

// MapEntry is one `k: v` pair of a MapLiteral.
type MapEntry struct {
	Key   Expr
	Value Expr
}

// MapLiteral is `{k:v, ...}`, optionally with a `{*: x}` spread-all entry
// merging the key/value pairs of x into the resulting map.
type MapLiteral struct {
	exprBase
	Entries   []MapEntry
	SpreadAll Expr // non-nil for {*: x} form
}

// RangeExpr is the primary-level `a..b` inclusive integer range operator.
type RangeExpr struct {
	exprBase
	From, To Expr
}

// ---- Identifiers / references ----

// Ident is a simple variable name.
type Ident struct {
	exprBase
	Name string
}

// AntishIdent is a dotted name (`a.b.c`) parsed as a candidate single
// variable; resolution is attempted lazily at evaluation time, falling back
// to member-chain semantics if the outermost segment is bound in scope.
type AntishIdent struct {
	exprBase
	Segments []string
}

// Member is `target.name` / `target?.name`.
type Member struct {
	exprBase
	Target Expr
	Name   string
	Safe   bool
}

// TemplateMember is the backtick-templated member form
// `x.`c${a}ss`` — the member name is itself a template string.
type TemplateMember struct {
	exprBase
	Target Expr
	Name   *TemplateStringExpr
	Safe   bool
}

// Index is `target[key]` / `target?[key]`.
type Index struct {
	exprBase
	Target Expr
	Key    Expr
	Safe   bool
}

// TemplateChunk is one piece of a backtick template string: either literal
// text or an interpolated expression.
type TemplateChunk struct {
	Literal string // valid when Expr == nil
	Expr    Expr
}

// TemplateStringExpr is a backtick `...${expr}...` template-string
// expression, evaluated to a concatenated string.
type TemplateStringExpr struct {
	exprBase
	Chunks []TemplateChunk
}

// ---- Operators ----

// UnaryExpr is a prefix or postfix unary operator: `-x`, `!x`, `~x`,
// `++x`/`x++`, `--x`/`x--`.
type UnaryExpr struct {
	exprBase
	Op      token.Type
	Operand Expr
	Postfix bool
}

// BinaryExpr covers arithmetic, comparison, bitwise/shift, string/collection
// (`=~ !~ =^ =$ !^ !$ in`), and logical `&&`/`||` operators.
type BinaryExpr struct {
	exprBase
	Op          token.Type
	Left, Right Expr
}

// TernaryExpr is `cond ? then : else`, or the elvis form `cond ?: else`
// when Then == nil (in which case the value of Cond is also the truthy
// result).
type TernaryExpr struct {
	exprBase
	Cond, Then, Else Expr
}

// CoalesceExpr is the null-coalescing `left ?? right` operator.
type CoalesceExpr struct {
	exprBase
	Left, Right Expr
}

// Paren is an explicit parenthesized sub-expression. It exists purely so the
// debug printer can round-trip precedence-altering grouping; the
// interpreter evaluates it by evaluating X.
type Paren struct {
	exprBase
	X Expr
}

// CastExpr is a `(int)x`-style cast operator.
type CastExpr struct {
	exprBase
	TypeName string
	Operand  Expr
}

// ---- Functional ----

// Param is one lambda/function parameter.
type Param struct {
	Name string
}

// Lambda is `(a,b) -> expr`, `(a,b) -> { stmts }`, or `function(a,b){ stmts }`.
type Lambda struct {
	exprBase
	Params   []Param
	Body     []Stmt // a single-expression body is wrapped as ReturnStmt
	FatArrow bool
}

// CallExpr is `callee(args...)`.
type CallExpr struct {
	exprBase
	Callee Expr
	Args   []Expr
}

// NewExpr is `new(ClassName, args...)` / `new ClassName(args...)`.
type NewExpr struct {
	exprBase
	ClassName Expr
	Args      []Expr
}

// ---- Statements ----

// Block is `{ stmt* }`.
type Block struct {
	stmtBase
	Stmts []Stmt
}

// ExprStmt wraps an expression evaluated for its value/side effect.
type ExprStmt struct {
	stmtBase
	X Expr
}

// VarDecl is `var`/`let`/`const name [= expr]`.
type VarDecl struct {
	stmtBase
	Kind  token.Type // VAR, LET, CONST
	Name  string
	Value Expr // nil if uninitialized
}

// Assignment is `target = value` or a compound form
// (`+= -= *= /= %= &= |= ^= <<= >>= >>>=`).
type Assignment struct {
	stmtBase
	Target Expr
	Op     token.Type // ASSIGN for plain `=`
	Value  Expr
}

// MultiAssign is `(x, y) = expr` destructuring assignment.
type MultiAssign struct {
	stmtBase
	Targets []Expr
	Value   Expr
}

// IfStmt is `if (cond) then [else else_]`.
type IfStmt struct {
	stmtBase
	Cond Expr
	Then Stmt
	Else Stmt // nil if absent
}

// WhileStmt is `while (cond) body`.
type WhileStmt struct {
	stmtBase
	Cond Expr
	Body Stmt
}

// DoWhileStmt is `do body while (cond)`.
type DoWhileStmt struct {
	stmtBase
	Body Stmt
	Cond Expr
}

// ForStmt is the C-style `for (init; cond; step) body`. Any clause may be
// nil (e.g. `for(;;)`).
type ForStmt struct {
	stmtBase
	Init Stmt
	Cond Expr
	Step Stmt
	Body Stmt
}

// ForEachStmt is `for (var x : iterable) body`.
type ForEachStmt struct {
	stmtBase
	VarName  string
	Declared bool
	Iterable Expr
	Body     Stmt
}

// BreakStmt is `break`.
type BreakStmt struct{ stmtBase }

// ContinueStmt is `continue`.
type ContinueStmt struct{ stmtBase }

// RemoveStmt is `remove`, legal only lexically inside a for-each loop body.
type RemoveStmt struct{ stmtBase }

// ReturnStmt is `return [expr]`.
type ReturnStmt struct {
	stmtBase
	Value Expr // nil for bare `return`
}

// AnnotatedStmt is `@name(args) stmt`.
type AnnotatedStmt struct {
	stmtBase
	Name string
	Args []Expr
	Body Stmt
}

// PragmaStmt is `#pragma key value`, collected at parse time and surfaced
// via Script.Pragmas; it is also a Stmt so `pragmaAnywhere` can place one
// mid-block.
type PragmaStmt struct {
	stmtBase
	Key   string
	Value Expr
}

// ---- Roots ----

// Expression is a parsed expression-only root (no statements, no blocks).
type Expression struct {
	Pos Origin
	X   Expr
}

func (e *Expression) Origin() Origin { return e.Pos }
func (e *Expression) node()          {}

// Script is a parsed statement-sequence root, optionally parameterized
// (used for lambdas compiled as top-level scripts and for template control
// blocks).
type Script struct {
	Pos     Origin
	Params  []Param
	Body    []Stmt
	Pragmas []*PragmaStmt
}

func (s *Script) Origin() Origin { return s.Pos }
func (s *Script) node()          {}
