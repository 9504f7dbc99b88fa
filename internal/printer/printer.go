// Package printer reconstructs JEXL source text from an AST. The result is
// round-trippable to within whitespace: re-parsing Print(parse(src)) yields
// an AST equal in structure to parse(src). Used for diagnostics and for the
// engine's getParsedText().
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jexl-go/jexl/internal/ast"
)

// Print renders any AST node (Script, Expression, Stmt, or Expr) to source
// text.
func Print(n ast.Node) string {
	var b strings.Builder
	p := &printer{w: &b}
	p.node(n)
	return b.String()
}

type printer struct {
	w     *strings.Builder
	depth int
}

func (p *printer) indent() {
	p.w.WriteString(strings.Repeat("  ", p.depth))
}

func (p *printer) node(n ast.Node) {
	switch v := n.(type) {
	case *ast.Script:
		p.script(v)
	case *ast.Expression:
		p.expr(v.X)
	case ast.Stmt:
		p.stmt(v)
	case ast.Expr:
		p.expr(v)
	default:
		fmt.Fprintf(p.w, "<?%T?>", n)
	}
}

// script prints a root's statements bare: re-parsing the result yields the
// same statement sequence, not a nested block. A parameterized root prints
// as the equivalent lambda.
func (p *printer) script(s *ast.Script) {
	if len(s.Params) > 0 {
		names := make([]string, len(s.Params))
		for i, pa := range s.Params {
			names[i] = pa.Name
		}
		fmt.Fprintf(p.w, "(%s) -> ", strings.Join(names, ", "))
		p.block(s.Body)
		return
	}
	for i, st := range s.Body {
		if i > 0 {
			p.w.WriteString("\n")
		}
		p.stmt(st)
	}
}

func (p *printer) block(stmts []ast.Stmt) {
	p.w.WriteString("{\n")
	p.depth++
	for _, s := range stmts {
		p.indent()
		p.stmt(s)
		p.w.WriteString("\n")
	}
	p.depth--
	p.indent()
	p.w.WriteString("}")
}

func (p *printer) stmt(s ast.Stmt) {
	if s == nil {
		p.w.WriteString(";")
		return
	}
	switch v := s.(type) {
	case *ast.Block:
		p.block(v.Stmts)
	case *ast.ExprStmt:
		p.expr(v.X)
		p.w.WriteString(";")
	case *ast.VarDecl:
		fmt.Fprintf(p.w, "%s %s", v.Kind, v.Name)
		if v.Value != nil {
			p.w.WriteString(" = ")
			p.expr(v.Value)
		}
		p.w.WriteString(";")
	case *ast.Assignment:
		p.expr(v.Target)
		fmt.Fprintf(p.w, " %s ", v.Op)
		p.expr(v.Value)
		p.w.WriteString(";")
	case *ast.MultiAssign:
		p.w.WriteString("(")
		for i, t := range v.Targets {
			if i > 0 {
				p.w.WriteString(", ")
			}
			p.expr(t)
		}
		p.w.WriteString(") = ")
		p.expr(v.Value)
		p.w.WriteString(";")
	case *ast.IfStmt:
		p.w.WriteString("if (")
		p.expr(v.Cond)
		p.w.WriteString(") ")
		p.stmt(v.Then)
		if v.Else != nil {
			p.w.WriteString(" else ")
			p.stmt(v.Else)
		}
	case *ast.WhileStmt:
		p.w.WriteString("while (")
		p.expr(v.Cond)
		p.w.WriteString(") ")
		p.stmt(v.Body)
	case *ast.DoWhileStmt:
		p.w.WriteString("do ")
		p.stmt(v.Body)
		p.w.WriteString(" while (")
		p.expr(v.Cond)
		p.w.WriteString(");")
	case *ast.ForStmt:
		p.w.WriteString("for (")
		if v.Init != nil {
			p.stmtNoSemi(v.Init)
		}
		p.w.WriteString("; ")
		if v.Cond != nil {
			p.expr(v.Cond)
		}
		p.w.WriteString("; ")
		if v.Step != nil {
			p.stmtNoSemi(v.Step)
		}
		p.w.WriteString(") ")
		p.stmt(v.Body)
	case *ast.ForEachStmt:
		p.w.WriteString("for (")
		if v.Declared {
			p.w.WriteString("var ")
		}
		fmt.Fprintf(p.w, "%s : ", v.VarName)
		p.expr(v.Iterable)
		p.w.WriteString(") ")
		p.stmt(v.Body)
	case *ast.BreakStmt:
		p.w.WriteString("break;")
	case *ast.ContinueStmt:
		p.w.WriteString("continue;")
	case *ast.RemoveStmt:
		p.w.WriteString("remove;")
	case *ast.ReturnStmt:
		p.w.WriteString("return")
		if v.Value != nil {
			p.w.WriteString(" ")
			p.expr(v.Value)
		}
		p.w.WriteString(";")
	case *ast.AnnotatedStmt:
		fmt.Fprintf(p.w, "@%s(", v.Name)
		p.exprList(v.Args)
		p.w.WriteString(") ")
		p.stmt(v.Body)
	case *ast.PragmaStmt:
		fmt.Fprintf(p.w, "#pragma %s", v.Key)
		if v.Value != nil {
			p.w.WriteString(" ")
			p.expr(v.Value)
		}
	default:
		fmt.Fprintf(p.w, "<?stmt:%T?>", s)
	}
}

// stmtNoSemi renders a statement used inside a for(...) header without its
// trailing semicolon (the header supplies its own separators).
func (p *printer) stmtNoSemi(s ast.Stmt) {
	var b strings.Builder
	sub := &printer{w: &b, depth: p.depth}
	sub.stmt(s)
	p.w.WriteString(strings.TrimSuffix(b.String(), ";"))
}

func (p *printer) exprList(exprs []ast.Expr) {
	for i, e := range exprs {
		if i > 0 {
			p.w.WriteString(", ")
		}
		p.expr(e)
	}
}

func (p *printer) expr(e ast.Expr) {
	switch v := e.(type) {
	case *ast.IntLiteral:
		if v.Big != nil {
			p.w.WriteString(v.Big.String() + v.Suffix)
		} else {
			p.w.WriteString(strconv.FormatInt(v.Value, 10) + v.Suffix)
		}
	case *ast.FloatLiteral:
		if v.Big != nil {
			p.w.WriteString(v.Big.Text('g', -1) + v.Suffix)
		} else {
			p.w.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64) + v.Suffix)
		}
	case *ast.BoolLiteral:
		fmt.Fprintf(p.w, "%t", v.Value)
	case *ast.NullLiteral:
		p.w.WriteString("null")
	case *ast.StringLiteral:
		fmt.Fprintf(p.w, "%q", v.Value)
	case *ast.RegexLiteral:
		fmt.Fprintf(p.w, "~/%s/", v.Pattern)
	case *ast.SpreadExpr:
		p.w.WriteString("...")
		p.expr(v.Value)
	case *ast.ArrayLiteral:
		p.w.WriteString("[")
		p.exprList(v.Elements)
		p.w.WriteString("]")
	case *ast.SetLiteral:
		p.w.WriteString("{")
		p.exprList(v.Elements)
		p.w.WriteString("}")
	case *ast.MapLiteral:
		p.w.WriteString("{")
		first := true
		for _, ent := range v.Entries {
			if !first {
				p.w.WriteString(", ")
			}
			first = false
			p.expr(ent.Key)
			p.w.WriteString(": ")
			p.expr(ent.Value)
		}
		if v.SpreadAll != nil {
			if !first {
				p.w.WriteString(", ")
			}
			p.w.WriteString("*: ")
			p.expr(v.SpreadAll)
		}
		p.w.WriteString("}")
	case *ast.RangeExpr:
		p.expr(v.From)
		p.w.WriteString("..")
		p.expr(v.To)
	case *ast.Ident:
		p.w.WriteString(v.Name)
	case *ast.AntishIdent:
		p.w.WriteString(strings.Join(v.Segments, "."))
	case *ast.Member:
		p.expr(v.Target)
		if v.Safe {
			p.w.WriteString("?.")
		} else {
			p.w.WriteString(".")
		}
		p.w.WriteString(v.Name)
	case *ast.TemplateMember:
		p.expr(v.Target)
		if v.Safe {
			p.w.WriteString("?.")
		} else {
			p.w.WriteString(".")
		}
		p.expr(v.Name)
	case *ast.Index:
		p.expr(v.Target)
		if v.Safe {
			p.w.WriteString("?[")
		} else {
			p.w.WriteString("[")
		}
		p.expr(v.Key)
		p.w.WriteString("]")
	case *ast.TemplateStringExpr:
		p.w.WriteString("`")
		for _, c := range v.Chunks {
			if c.Expr != nil {
				p.w.WriteString("${")
				p.expr(c.Expr)
				p.w.WriteString("}")
			} else {
				p.w.WriteString(c.Literal)
			}
		}
		p.w.WriteString("`")
	case *ast.UnaryExpr:
		if v.Postfix {
			p.expr(v.Operand)
			p.w.WriteString(v.Op.String())
		} else {
			p.w.WriteString(v.Op.String())
			p.expr(v.Operand)
		}
	case *ast.BinaryExpr:
		p.expr(v.Left)
		fmt.Fprintf(p.w, " %s ", v.Op)
		p.expr(v.Right)
	case *ast.TernaryExpr:
		p.expr(v.Cond)
		if v.Then == nil {
			p.w.WriteString(" ?: ")
			p.expr(v.Else)
			return
		}
		p.w.WriteString(" ? ")
		p.expr(v.Then)
		p.w.WriteString(" : ")
		p.expr(v.Else)
	case *ast.CoalesceExpr:
		p.expr(v.Left)
		p.w.WriteString(" ?? ")
		p.expr(v.Right)
	case *ast.Paren:
		p.w.WriteString("(")
		p.expr(v.X)
		p.w.WriteString(")")
	case *ast.CastExpr:
		fmt.Fprintf(p.w, "(%s)", v.TypeName)
		p.expr(v.Operand)
	case *ast.Lambda:
		names := make([]string, len(v.Params))
		for i, pa := range v.Params {
			names[i] = pa.Name
		}
		if v.FatArrow {
			fmt.Fprintf(p.w, "(%s) => ", strings.Join(names, ", "))
		} else {
			fmt.Fprintf(p.w, "(%s) -> ", strings.Join(names, ", "))
		}
		p.block(v.Body)
	case *ast.CallExpr:
		p.expr(v.Callee)
		p.w.WriteString("(")
		p.exprList(v.Args)
		p.w.WriteString(")")
	case *ast.NewExpr:
		p.w.WriteString("new(")
		p.expr(v.ClassName)
		for _, a := range v.Args {
			p.w.WriteString(", ")
			p.expr(a)
		}
		p.w.WriteString(")")
	default:
		fmt.Fprintf(p.w, "<?expr:%T?>", e)
	}
}
