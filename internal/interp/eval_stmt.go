package interp

import (
	"github.com/jexl-go/jexl/internal/arithmetic"
	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/internal/options"
	"github.com/jexl-go/jexl/internal/uberspect"
	"github.com/jexl-go/jexl/internal/values"
	"github.com/jexl-go/jexl/pkg/token"
)

// evalStmt evaluates a statement, returning the value of its last
// expression (used as a script/lambda's implicit result), the control-flow
// signal it raised, and any error. Callers must check err first, then sig.
func (it *Interpreter) evalStmt(s ast.Stmt) (any, signal, error) {
	if s == nil {
		// Empty statement, e.g. the body of `for(...);`.
		return nil, sigNone, nil
	}
	if stop, err := it.checkCancel(s); stop {
		return nil, sigNone, err
	}
	switch n := s.(type) {
	case *ast.Block:
		return it.evalBlock(n)
	case *ast.ExprStmt:
		v, err := it.evalExpr(n.X)
		return v, sigNone, err
	case *ast.VarDecl:
		return it.evalVarDecl(n)
	case *ast.Assignment:
		return it.evalAssignment(n)
	case *ast.MultiAssign:
		return it.evalMultiAssign(n)
	case *ast.IfStmt:
		return it.evalIf(n)
	case *ast.WhileStmt:
		return it.evalWhile(n)
	case *ast.DoWhileStmt:
		return it.evalDoWhile(n)
	case *ast.ForStmt:
		return it.evalFor(n)
	case *ast.ForEachStmt:
		return it.evalForEach(n)
	case *ast.BreakStmt:
		return nil, sigBreak, nil
	case *ast.ContinueStmt:
		return nil, sigContinue, nil
	case *ast.RemoveStmt:
		return nil, sigRemove, nil
	case *ast.ReturnStmt:
		if n.Value == nil {
			return nil, sigReturn, nil
		}
		v, err := it.evalExpr(n.Value)
		if err != nil {
			return nil, sigNone, err
		}
		return v, sigReturn, nil
	case *ast.AnnotatedStmt:
		return it.evalAnnotated(n)
	case *ast.PragmaStmt:
		// Pragmas are collected at parse time and applied before the body
		// runs; in statement position they contribute no value.
		return nil, sigNone, nil
	}
	return nil, sigNone, jexlInternal(s, "unhandled statement node %T", s)
}

func (it *Interpreter) evalBlock(n *ast.Block) (any, signal, error) {
	pop := it.pushBlock()
	defer pop()
	var result any
	for _, stmt := range n.Stmts {
		v, sig, err := it.evalStmt(stmt)
		if err != nil {
			return nil, sigNone, err
		}
		if sig != sigNone {
			return v, sig, nil
		}
		result = v
	}
	return result, sigNone, nil
}

func (it *Interpreter) evalVarDecl(n *ast.VarDecl) (any, signal, error) {
	var v any
	bound := n.Value != nil
	if n.Value != nil {
		var err error
		v, err = it.evalExpr(n.Value)
		if err != nil {
			return nil, sigNone, err
		}
		bound = true
	}

	f := it.frame()
	target := f.top
	if n.Kind == token.VAR {
		target = f.top.funcEnv()
	}
	isConst := n.Kind == token.CONST
	redeclared := declareLocal(target, n.Name, v, isConst, bound)

	if redeclared && it.Opts.Lexical && n.Kind != token.VAR {
		return nil, sigNone, assignError(n, "variable %q already declared in this scope", n.Name).WithSymbol(n.Name)
	}
	if it.Opts.LexicalShade {
		if _, ok := it.Ctx.Get(n.Name); ok {
			f.shaded[n.Name] = true
		}
	}
	return v, sigNone, nil
}

func (it *Interpreter) evalAssignment(n *ast.Assignment) (any, signal, error) {
	get, set, err := it.resolveLValue(n.Target)
	if err != nil {
		return nil, sigNone, err
	}
	if set == nil {
		return nil, sigNone, assignError(n, "left-hand side is not assignable")
	}
	value, err := it.evalExpr(n.Value)
	if err != nil {
		return nil, sigNone, err
	}
	if n.Op != token.ASSIGN {
		current, err := get()
		if err != nil {
			return nil, sigNone, err
		}
		op, ok := compoundOp(n.Op)
		if !ok {
			return nil, sigNone, jexlInternal(n, "unsupported compound assignment %s", n.Op)
		}
		value, err = it.Arith.SelfAssign(op, current, value)
		if err != nil {
			return nil, sigNone, opError(n, "%s", err.Error())
		}
	}
	if err := set(value); err != nil {
		return nil, sigNone, assignError(n, "%s", err.Error())
	}
	return value, sigNone, nil
}

func compoundOp(t token.Type) (arithmetic.Op, bool) {
	switch t {
	case token.PLUS_ASSIGN:
		return arithmetic.Add, true
	case token.MINUS_ASSIGN:
		return arithmetic.Sub, true
	case token.STAR_ASSIGN:
		return arithmetic.Mul, true
	case token.SLASH_ASSIGN:
		return arithmetic.Div, true
	case token.PERCENT_ASSIGN:
		return arithmetic.Mod, true
	case token.AMP_ASSIGN:
		return arithmetic.BAnd, true
	case token.PIPE_ASSIGN:
		return arithmetic.BOr, true
	case token.CARET_ASSIGN:
		return arithmetic.BXor, true
	case token.SHL_ASSIGN:
		return arithmetic.Shl, true
	case token.SHR_ASSIGN:
		return arithmetic.Shr, true
	case token.USHR_ASSIGN:
		return arithmetic.Ushr, true
	default:
		return "", false
	}
}

// evalMultiAssign destructures `(x, y) = E`: arrays bind by position, maps by
// target name, anything else by property name. Arity mismatch is permitted —
// extra targets become null, extra sources are dropped. The statement's value
// is the second target's new value.
func (it *Interpreter) evalMultiAssign(n *ast.MultiAssign) (any, signal, error) {
	value, err := it.evalExpr(n.Value)
	if err != nil {
		return nil, sigNone, err
	}
	written := make([]any, len(n.Targets))
	for i, target := range n.Targets {
		v, derr := it.destructure(n, value, i, target)
		if derr != nil {
			return nil, sigNone, derr
		}
		_, set, err := it.resolveLValue(target)
		if err != nil {
			return nil, sigNone, err
		}
		if set == nil {
			return nil, sigNone, assignError(n, "destructuring target is not assignable")
		}
		if err := set(v); err != nil {
			return nil, sigNone, assignError(n, "%s", err.Error())
		}
		written[i] = v
	}
	result := written[0]
	if len(written) > 1 {
		result = written[1]
	}
	return result, sigNone, nil
}

// destructure picks the i-th target's value out of the multi-assignment
// source.
func (it *Interpreter) destructure(n *ast.MultiAssign, value any, i int, target ast.Expr) (any, error) {
	switch src := value.(type) {
	case nil:
		return nil, nil
	case []any:
		if i < len(src) {
			return src[i], nil
		}
		return nil, nil
	case *values.Set:
		elems := src.Slice()
		if i < len(elems) {
			return elems[i], nil
		}
		return nil, nil
	case map[string]any:
		return src[destructureName(target)], nil
	default:
		name := destructureName(target)
		getter, err := it.Uber.GetProperty(value, name)
		if err != nil {
			return nil, nil
		}
		v, gerr := getter()
		if gerr != nil {
			return nil, propError(n, "%s", gerr.Error())
		}
		return v, nil
	}
}

// destructureName is the key/property the i-th target of a multi-assignment
// binds against when the source is a map or an object.
func destructureName(target ast.Expr) string {
	switch t := target.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.AntishIdent:
		return t.Segments[len(t.Segments)-1]
	case *ast.Member:
		return t.Name
	default:
		return ""
	}
}

func (it *Interpreter) evalIf(n *ast.IfStmt) (any, signal, error) {
	cond, err := it.evalExpr(n.Cond)
	if err != nil {
		return nil, sigNone, err
	}
	if it.Arith.Truthy(cond) {
		return it.evalStmt(n.Then)
	}
	if n.Else != nil {
		return it.evalStmt(n.Else)
	}
	return nil, sigNone, nil
}

func (it *Interpreter) evalWhile(n *ast.WhileStmt) (any, signal, error) {
	var result any
	for {
		if stop, err := it.checkCancel(n); stop {
			return nil, sigNone, err
		}
		cond, err := it.evalExpr(n.Cond)
		if err != nil {
			return nil, sigNone, err
		}
		if !it.Arith.Truthy(cond) {
			return result, sigNone, nil
		}
		v, sig, err := it.evalStmt(n.Body)
		if err != nil {
			return nil, sigNone, err
		}
		switch sig {
		case sigBreak:
			return v, sigNone, nil
		case sigReturn:
			return v, sig, nil
		case sigContinue, sigNone:
			result = v
		}
	}
}

func (it *Interpreter) evalDoWhile(n *ast.DoWhileStmt) (any, signal, error) {
	var result any
	for {
		if stop, err := it.checkCancel(n); stop {
			return nil, sigNone, err
		}
		v, sig, err := it.evalStmt(n.Body)
		if err != nil {
			return nil, sigNone, err
		}
		switch sig {
		case sigBreak:
			return v, sigNone, nil
		case sigReturn:
			return v, sig, nil
		case sigContinue, sigNone:
			result = v
		}
		cond, err := it.evalExpr(n.Cond)
		if err != nil {
			return nil, sigNone, err
		}
		if !it.Arith.Truthy(cond) {
			return result, sigNone, nil
		}
	}
}

func (it *Interpreter) evalFor(n *ast.ForStmt) (any, signal, error) {
	pop := it.pushBlock()
	defer pop()
	if n.Init != nil {
		if _, _, err := it.evalStmt(n.Init); err != nil {
			return nil, sigNone, err
		}
	}
	var result any
	for {
		if stop, err := it.checkCancel(n); stop {
			return nil, sigNone, err
		}
		if n.Cond != nil {
			cond, err := it.evalExpr(n.Cond)
			if err != nil {
				return nil, sigNone, err
			}
			if !it.Arith.Truthy(cond) {
				return result, sigNone, nil
			}
		}
		v, sig, err := it.evalStmt(n.Body)
		if err != nil {
			return nil, sigNone, err
		}
		switch sig {
		case sigBreak:
			return v, sigNone, nil
		case sigReturn:
			return v, sig, nil
		case sigContinue, sigNone:
			result = v
		}
		if n.Step != nil {
			if _, _, err := it.evalStmt(n.Step); err != nil {
				return nil, sigNone, err
			}
		}
	}
}

func (it *Interpreter) evalForEach(n *ast.ForEachStmt) (any, signal, error) {
	iterable, err := it.evalExpr(n.Iterable)
	if err != nil {
		return nil, sigNone, err
	}
	if iterable == nil {
		return nil, sigNone, nil
	}
	it2, ierr := it.Uber.Iterate(iterable)
	if ierr != nil {
		return nil, sigNone, propError(n, "%s", ierr.Error())
	}
	// finish runs the removal write-back before any exit from the loop, so
	// break/return paths see the shrunk array too.
	finish := func(v any, sig signal, err error) (any, signal, error) {
		if err != nil {
			return nil, sigNone, err
		}
		if werr := it.writeBackRemovals(n, it2); werr != nil {
			return nil, sigNone, werr
		}
		return v, sig, nil
	}
	var result any
	for {
		if stop, err := it.checkCancel(n); stop {
			return finish(nil, sigNone, err)
		}
		item, ok := it2.Next()
		if !ok {
			return finish(result, sigNone, nil)
		}
		pop := it.pushBlock()
		f := it.frame()
		declareLocal(f.top, n.VarName, item, false, true)
		v, sig, err := it.evalStmt(n.Body)
		pop()
		if err != nil {
			return nil, sigNone, err
		}
		switch sig {
		case sigBreak:
			return finish(v, sigNone, nil)
		case sigReturn:
			return finish(v, sig, nil)
		case sigRemove:
			if rerr := it2.Remove(); rerr != nil {
				return nil, sigNone, methodError(n, "%s", rerr.Error())
			}
			result = v
		case sigContinue, sigNone:
			result = v
		}
	}
}

// writeBackRemovals propagates `remove` on a value-typed sequence: the
// iterator shrank its own copy, so the shrunk slice is written back to the
// lvalue the loop read its iterable from. Iterables that are not assignable
// expressions (literals, call results) keep the removals scoped to the copy.
func (it *Interpreter) writeBackRemovals(n *ast.ForEachStmt, iter uberspect.Iterator) error {
	ri, ok := iter.(uberspect.ReslicedIterator)
	if !ok {
		return nil
	}
	slice, removed := ri.Resliced()
	if !removed {
		return nil
	}
	_, set, err := it.resolveLValue(n.Iterable)
	if err != nil || set == nil {
		return nil
	}
	if serr := set(slice); serr != nil {
		return assignError(n, "%s", serr.Error())
	}
	return nil
}

func (it *Interpreter) evalAnnotated(n *ast.AnnotatedStmt) (any, signal, error) {
	args, err := it.evalArgs(n.Args)
	if err != nil {
		return nil, sigNone, err
	}
	if handled, v, sig, err := it.evalBuiltinAnnotation(n, args); handled {
		return v, sig, err
	}

	// A return/break/continue inside the annotated statement must survive the
	// trip through the processor's continuation.
	var bodySig signal
	run := func() (any, error) {
		v, sig, err := it.evalStmt(n.Body)
		if err != nil {
			return nil, err
		}
		bodySig = sig
		return v, nil
	}

	proc, ok := it.annotationProcessor()
	if !ok {
		v, rerr := run()
		if rerr != nil {
			return nil, sigNone, rerr
		}
		if it.Opts.Silent {
			it.warn("annotation %q ignored: no AnnotationProcessor registered", n.Name)
			return v, bodySig, nil
		}
		return v, bodySig, jexlAnnotationErr(n)
	}

	// The processor may cancel the wrapped statement without cancelling the
	// enclosing script, so the body runs under a scoped child flag.
	child := options.NewChildCancellation(it.Cancel)
	prevCancel := it.Cancel
	it.Cancel = child
	statement := any(it.Engine)
	if len(args) > 0 {
		statement = args[0]
	}
	call := &annotatedCall{run: run, cancel: child, statement: statement}
	v, err := proc.ProcessAnnotation(n.Name, args, call)
	it.Cancel = prevCancel
	if err != nil {
		return nil, sigNone, err
	}
	return v, bodySig, nil
}

// annotatedCall packages an annotated statement for a host processor.
type annotatedCall struct {
	run       func() (any, error)
	cancel    *options.Cancellation
	statement any
}

func (c *annotatedCall) Call() (any, error) { return c.run() }
func (c *annotatedCall) Cancel()            { c.cancel.Cancel() }
func (c *annotatedCall) Statement() any     { return c.statement }
