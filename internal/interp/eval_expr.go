package interp

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/jexl-go/jexl/internal/arithmetic"
	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/internal/values"
	"github.com/jexl-go/jexl/pkg/token"
)

// binaryOps maps every token the parser can store on BinaryExpr.Op to the
// Arithmetic operator it dispatches through. The word-form comparators
// (eq/ne/lt/le/gt/ge) are parsed into the exact same token types, gated at
// parse time by the comparatorNames feature, and collapse onto the same
// arithmetic.Op as their symbolic counterparts here.
var binaryOps = map[token.Type]arithmetic.Op{
	token.PLUS: arithmetic.Add, token.MINUS: arithmetic.Sub,
	token.STAR: arithmetic.Mul, token.SLASH: arithmetic.Div, token.PERCENT: arithmetic.Mod,
	token.AMP: arithmetic.BAnd, token.PIPE: arithmetic.BOr, token.CARET: arithmetic.BXor,
	token.SHL: arithmetic.Shl, token.SHR: arithmetic.Shr, token.USHR: arithmetic.Ushr,
	token.EQ: arithmetic.Eq, token.EQ_WORD: arithmetic.Eq,
	token.NE: arithmetic.Ne, token.NE_WORD: arithmetic.Ne,
	token.LT: arithmetic.Lt, token.LT_WORD: arithmetic.Lt,
	token.LE: arithmetic.Le, token.LE_WORD: arithmetic.Le,
	token.GT: arithmetic.Gt, token.GT_WORD: arithmetic.Gt,
	token.GE: arithmetic.Ge, token.GE_WORD: arithmetic.Ge,
	token.MATCH: arithmetic.Match, token.NOMATCH: arithmetic.NoMatch,
	token.STARTS: arithmetic.Starts, token.ENDS: arithmetic.Ends,
	token.NSTARTS: arithmetic.NStarts, token.NENDS: arithmetic.NEnds,
	token.IN: arithmetic.In,
}

var comparisonOps = map[arithmetic.Op]bool{
	arithmetic.Eq: true, arithmetic.Ne: true, arithmetic.Lt: true,
	arithmetic.Le: true, arithmetic.Gt: true, arithmetic.Ge: true,
}

// evalExpr evaluates an expression node to its dynamic value.
func (it *Interpreter) evalExpr(e ast.Expr) (any, error) {
	if stop, err := it.checkCancel(e); stop {
		return nil, err
	}
	switch n := e.(type) {
	case *ast.IntLiteral:
		if n.Big != nil {
			return n.Big, nil
		}
		return n.Value, nil
	case *ast.FloatLiteral:
		if n.Big != nil {
			return n.Big, nil
		}
		return n.Value, nil
	case *ast.BoolLiteral:
		return n.Value, nil
	case *ast.NullLiteral:
		return nil, nil
	case *ast.StringLiteral:
		return n.Value, nil
	case *ast.RegexLiteral:
		re, err := regexp.Compile(n.Pattern)
		if err != nil {
			return nil, opError(n, "invalid regular expression /%s/: %s", n.Pattern, err.Error())
		}
		return re, nil
	case *ast.SpreadExpr:
		return it.evalExpr(n.Value)

	case *ast.ArrayLiteral:
		return it.evalArrayLiteral(n)
	case *ast.SetLiteral:
		return it.evalSetLiteral(n)
	case *ast.MapLiteral:
		return it.evalMapLiteral(n)
	case *ast.RangeExpr:
		return it.evalRangeExpr(n)

	case *ast.Ident:
		return it.evalIdent(n)
	case *ast.AntishIdent:
		return it.evalAntishIdent(n)
	case *ast.Member:
		return it.evalMember(n)
	case *ast.TemplateMember:
		return it.evalTemplateMember(n)
	case *ast.Index:
		return it.evalIndex(n)
	case *ast.TemplateStringExpr:
		return it.evalTemplateString(n)

	case *ast.UnaryExpr:
		return it.evalUnary(n)
	case *ast.BinaryExpr:
		return it.evalBinary(n)
	case *ast.TernaryExpr:
		return it.evalTernary(n)
	case *ast.CoalesceExpr:
		return it.evalCoalesce(n)
	case *ast.Paren:
		return it.evalExpr(n.X)
	case *ast.CastExpr:
		return it.evalCast(n)

	case *ast.Lambda:
		return it.makeClosure(n), nil
	case *ast.CallExpr:
		return it.evalCall(n)
	case *ast.NewExpr:
		return it.evalNew(n)
	}
	return nil, jexlInternal(e, "unhandled expression node %T", e)
}

func jexlInternal(n ast.Node, format string, args ...any) error {
	return opError(n, format, args...)
}

// ---- identifiers ----

func (it *Interpreter) evalIdent(n *ast.Ident) (any, error) {
	f := it.frame()
	if slot, _ := f.top.lookup(n.Name); slot != nil {
		return slot.value, nil
	}
	if f.shaded[n.Name] {
		return nil, undefinedVarError(n, n.Name)
	}
	if v, ok := it.Ctx.Get(n.Name); ok {
		return v, nil
	}
	if it.Opts.Strict {
		return nil, undefinedVarError(n, n.Name)
	}
	return nil, nil
}

// evalAntishIdent implements the read side of antish resolution: the whole
// dotted name is tried first against the context, then the
// chain falls back to member access rooted at the outermost bound segment.
func (it *Interpreter) evalAntishIdent(n *ast.AntishIdent) (any, error) {
	full := strings.Join(n.Segments, ".")
	if v, ok := it.Ctx.Get(full); ok {
		return v, nil
	}
	head := ast.NewIdent(n.Origin(), n.Segments[0])
	v, err := it.evalIdent(head)
	if err != nil {
		if len(n.Segments) == 1 {
			return nil, err
		}
		if !it.Opts.Antish {
			return nil, err
		}
		return nil, undefinedVarError(n, full)
	}
	for _, seg := range n.Segments[1:] {
		if v == nil {
			if it.nullNavigates(false) {
				return nil, nil
			}
			return nil, propError(n, "cannot access %q of null", seg)
		}
		getter, gerr := it.Uber.GetProperty(v, seg)
		if gerr != nil {
			return nil, propError(n, "%s", gerr.Error())
		}
		v, err = getter()
		if err != nil {
			return nil, propError(n, "%s", err.Error())
		}
	}
	return v, nil
}

// nullNavigates reports whether dereferencing a null receiver yields null
// instead of an error: explicit `?.`/`?[`, the safe option, or lenient mode.
func (it *Interpreter) nullNavigates(safe bool) bool {
	return safe || it.Opts.Safe || !it.Opts.Strict
}

func (it *Interpreter) evalMember(n *ast.Member) (any, error) {
	target, err := it.evalExpr(n.Target)
	if err != nil {
		return nil, err
	}
	if target == nil {
		if it.nullNavigates(n.Safe) {
			return nil, nil
		}
		return nil, propError(n, "cannot access %q of null", n.Name).WithSymbol(n.Name)
	}
	getter, err := it.Uber.GetProperty(target, n.Name)
	if err != nil {
		if !it.Opts.Strict {
			return nil, nil
		}
		return nil, propError(n, "%s", err.Error()).WithSymbol(n.Name)
	}
	return getter()
}

func (it *Interpreter) evalTemplateMember(n *ast.TemplateMember) (any, error) {
	target, err := it.evalExpr(n.Target)
	if err != nil {
		return nil, err
	}
	if target == nil && it.nullNavigates(n.Safe) {
		return nil, nil
	}
	name, err := it.evalTemplateString(n.Name)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, propError(n, "cannot access %q of null", name).WithSymbol(name)
	}
	getter, err := it.Uber.GetProperty(target, name)
	if err != nil {
		return nil, propError(n, "%s", err.Error()).WithSymbol(name)
	}
	return getter()
}

func (it *Interpreter) evalIndex(n *ast.Index) (any, error) {
	target, err := it.evalExpr(n.Target)
	if err != nil {
		return nil, err
	}
	if target == nil && it.nullNavigates(n.Safe) {
		return nil, nil
	}
	key, err := it.evalExpr(n.Key)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, propError(n, "cannot index null with %v", key)
	}
	getter, err := it.Uber.GetIndex(target, key)
	if err != nil {
		return nil, propError(n, "%s", err.Error())
	}
	return getter(key)
}

func (it *Interpreter) evalTemplateString(n *ast.TemplateStringExpr) (string, error) {
	var sb strings.Builder
	for _, chunk := range n.Chunks {
		if chunk.Expr == nil {
			sb.WriteString(chunk.Literal)
			continue
		}
		v, err := it.evalExpr(chunk.Expr)
		if err != nil {
			return "", err
		}
		sb.WriteString(displayString(v))
	}
	return sb.String(), nil
}

// displayString renders v the way string concatenation and template
// interpolation show it: no Go-ism like "<nil>" or pointer syntax.
func displayString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *big.Int:
		return t.String()
	case *big.Float:
		return t.Text('g', -1)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// ---- literals with spread ----

// expandSpreadable flattens v (the evaluated operand of `...x`) into a
// sequence of elements for array/set literals and argument lists. A null
// operand spreads as empty.
func expandSpreadable(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case *values.Set:
		return t.Slice()
	case *values.Range:
		return t.Slice()
	default:
		return []any{v}
	}
}

func (it *Interpreter) evalArrayLiteral(n *ast.ArrayLiteral) (any, error) {
	out := make([]any, 0, len(n.Elements))
	for _, el := range n.Elements {
		if sp, ok := el.(*ast.SpreadExpr); ok {
			v, err := it.evalExpr(sp.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, expandSpreadable(v)...)
			continue
		}
		v, err := it.evalExpr(el)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (it *Interpreter) evalSetLiteral(n *ast.SetLiteral) (any, error) {
	s := values.NewSet()
	for _, el := range n.Elements {
		if sp, ok := el.(*ast.SpreadExpr); ok {
			v, err := it.evalExpr(sp.Value)
			if err != nil {
				return nil, err
			}
			for _, item := range expandSpreadable(v) {
				s.Add(item)
			}
			continue
		}
		v, err := it.evalExpr(el)
		if err != nil {
			return nil, err
		}
		s.Add(v)
	}
	return s, nil
}

func (it *Interpreter) evalMapLiteral(n *ast.MapLiteral) (any, error) {
	m := map[string]any{}
	for _, entry := range n.Entries {
		k, err := it.evalExpr(entry.Key)
		if err != nil {
			return nil, err
		}
		v, err := it.evalExpr(entry.Value)
		if err != nil {
			return nil, err
		}
		m[displayString(k)] = v
	}
	if n.SpreadAll != nil {
		v, err := it.evalExpr(n.SpreadAll)
		if err != nil {
			return nil, err
		}
		if src, ok := v.(map[string]any); ok {
			for k, sv := range src {
				m[k] = sv
			}
		} else if v != nil {
			return nil, opError(n, "cannot spread %T into a map", v)
		}
	}
	return m, nil
}

func (it *Interpreter) evalRangeExpr(n *ast.RangeExpr) (any, error) {
	from, err := it.evalExpr(n.From)
	if err != nil {
		return nil, err
	}
	to, err := it.evalExpr(n.To)
	if err != nil {
		return nil, err
	}
	fi, ok := toInt64(from)
	if !ok {
		return nil, opError(n, "range bound %v is not an integer", from)
	}
	ti, ok := toInt64(to)
	if !ok {
		return nil, opError(n, "range bound %v is not an integer", to)
	}
	return values.NewRange(fi, ti), nil
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case *big.Int:
		return t.Int64(), true
	case float64:
		return int64(t), true
	case *big.Float:
		i, _ := t.Int64()
		return i, true
	default:
		return 0, false
	}
}

// ---- operators ----

func (it *Interpreter) evalUnary(n *ast.UnaryExpr) (any, error) {
	switch n.Op {
	case token.INC, token.DEC:
		return it.evalIncDec(n)
	}
	v, err := it.evalExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	op, ok := unaryOp(n.Op)
	if !ok {
		return nil, jexlInternal(n, "unsupported unary operator %s", n.Op)
	}
	if v == nil && it.Arith.IsStrict(op) {
		if it.Opts.Strict {
			return nil, opError(n, "operator %s requires a non-null operand", op)
		}
		return nil, nil
	}
	result, err := it.Arith.Unary(op, v)
	if err != nil {
		return nil, opError(n, "%s", err.Error())
	}
	return result, nil
}

func unaryOp(t token.Type) (arithmetic.Op, bool) {
	switch t {
	case token.MINUS:
		return arithmetic.Neg, true
	case token.PLUS:
		return arithmetic.Pos, true
	case token.BANG:
		return arithmetic.Not, true
	case token.TILDE:
		return arithmetic.BNot, true
	default:
		return "", false
	}
}

func (it *Interpreter) evalIncDec(n *ast.UnaryExpr) (any, error) {
	get, set, err := it.resolveLValue(n.Operand)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, assignError(n, "%s operand is not assignable", n.Op)
	}
	old, err := get()
	if err != nil {
		return nil, err
	}
	op := arithmetic.Add
	if n.Op == token.DEC {
		op = arithmetic.Sub
	}
	next, err := it.Arith.Binary(op, old, int64(1))
	if err != nil {
		return nil, opError(n, "%s", err.Error())
	}
	if err := set(next); err != nil {
		return nil, assignError(n, "%s", err.Error())
	}
	if n.Postfix {
		return old, nil
	}
	return next, nil
}

func (it *Interpreter) evalBinary(n *ast.BinaryExpr) (any, error) {
	if n.Op == token.AND {
		left, err := it.evalExpr(n.Left)
		if err != nil {
			return nil, err
		}
		if !it.Arith.Truthy(left) {
			return left, nil
		}
		return it.evalExpr(n.Right)
	}
	if n.Op == token.OR {
		left, err := it.evalExpr(n.Left)
		if err != nil {
			return nil, err
		}
		if it.Arith.Truthy(left) {
			return left, nil
		}
		return it.evalExpr(n.Right)
	}

	op, ok := binaryOps[n.Op]
	if !ok {
		return nil, jexlInternal(n, "unsupported binary operator %s", n.Op)
	}
	left, err := it.evalExpr(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := it.evalExpr(n.Right)
	if err != nil {
		return nil, err
	}
	if (left == nil || right == nil) && it.Arith.IsStrict(op) && !comparisonOps[op] {
		if it.Opts.Strict {
			return nil, opError(n, "operator %s requires non-null operands", op)
		}
		return nil, nil
	}
	if comparisonOps[op] {
		result, err := it.Arith.Compare(left, right, op)
		if err != nil {
			return nil, opError(n, "%s", err.Error())
		}
		return result, nil
	}
	result, err := it.Arith.Binary(op, left, right)
	if err != nil {
		return nil, opError(n, "%s", err.Error())
	}
	return result, nil
}

func (it *Interpreter) evalTernary(n *ast.TernaryExpr) (any, error) {
	cond, err := it.evalExpr(n.Cond)
	if err != nil {
		return nil, err
	}
	if n.Then == nil {
		if it.Arith.Truthy(cond) {
			return cond, nil
		}
		return it.evalExpr(n.Else)
	}
	if it.Arith.Truthy(cond) {
		return it.evalExpr(n.Then)
	}
	return it.evalExpr(n.Else)
}

func (it *Interpreter) evalCoalesce(n *ast.CoalesceExpr) (any, error) {
	left, err := it.evalExpr(n.Left)
	if err != nil {
		return nil, err
	}
	if left != nil {
		return left, nil
	}
	return it.evalExpr(n.Right)
}

func (it *Interpreter) evalCast(n *ast.CastExpr) (any, error) {
	v, err := it.evalExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	result, err := it.Arith.Cast(n.TypeName, v)
	if err != nil {
		return nil, opError(n, "%s", err.Error())
	}
	return result, nil
}
