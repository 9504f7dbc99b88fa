package interp

import (
	"strings"

	jexlerrors "github.com/jexl-go/jexl/errors"
	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/internal/options"
	"github.com/jexl-go/jexl/internal/uberspect"
	"github.com/jexl-go/jexl/internal/values"
)

// evalArgs evaluates a call/constructor argument list, expanding `...x`
// spread arguments in place; spread is symmetric between calls and `new`.
func (it *Interpreter) evalArgs(args []ast.Expr) ([]any, error) {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if sp, ok := a.(*ast.SpreadExpr); ok {
			v, err := it.evalExpr(sp.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, expandSpreadable(v)...)
			continue
		}
		v, err := it.evalExpr(a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func callLambda(n ast.Node, v any, args []any) (any, bool, error) {
	lam, ok := v.(values.Lambda)
	if !ok {
		// A plain Go func bound into the context is callable too.
		if inv, isFunc := uberspect.FuncInvoker(v); isFunc {
			res, err := inv(args)
			if err != nil {
				return nil, true, methodError(n, "%s", err.Error())
			}
			return res, true, nil
		}
		return nil, false, nil
	}
	res, err := lam.Call(args)
	if err != nil {
		// An error raised inside the lambda body keeps its own kind/origin.
		if _, isTyped := err.(*jexlerrors.JexlError); isTyped {
			return nil, true, err
		}
		return nil, true, methodError(n, "%s", err.Error())
	}
	return res, true, nil
}

func (it *Interpreter) evalCall(n *ast.CallExpr) (any, error) {
	switch callee := n.Callee.(type) {
	case *ast.Ident:
		if idx := strings.IndexByte(callee.Name, ':'); idx >= 0 {
			return it.evalNamespaceCall(n, callee.Name[:idx], callee.Name[idx+1:])
		}
		return it.evalPlainCall(n, callee)
	case *ast.Member:
		return it.evalMethodCall(n, callee)
	case *ast.AntishIdent:
		return it.evalAntishCall(n, callee)
	default:
		target, err := it.evalExpr(n.Callee)
		if err != nil {
			return nil, err
		}
		args, err := it.evalArgs(n.Args)
		if err != nil {
			return nil, err
		}
		res, handled, err := callLambda(n, target, args)
		if err != nil {
			return nil, err
		}
		if !handled {
			return nil, methodError(n, "value is not callable")
		}
		return res, nil
	}
}

// evalPlainCall resolves a bare `name(args)` call: a local or context
// variable bound to a callable wins over the size/empty built-in pseudo
// functions.
func (it *Interpreter) evalPlainCall(n *ast.CallExpr, callee *ast.Ident) (any, error) {
	f := it.frame()
	var (
		v     any
		bound bool
	)
	if slot, _ := f.top.lookup(callee.Name); slot != nil {
		v, bound = slot.value, true
	} else if !f.shaded[callee.Name] {
		if cv, ok := it.Ctx.Get(callee.Name); ok {
			v, bound = cv, true
		}
	}
	args, err := it.evalArgs(n.Args)
	if err != nil {
		return nil, err
	}
	if bound {
		res, handled, err := callLambda(n, v, args)
		if err != nil {
			return nil, err
		}
		if handled {
			return res, nil
		}
		return nil, methodError(n, "%q is not callable", callee.Name).WithSymbol(callee.Name)
	}
	switch callee.Name {
	case "size":
		return it.callSize(n, args)
	case "empty":
		return it.callEmpty(n, args)
	}
	return nil, undefinedVarError(callee, callee.Name)
}

func (it *Interpreter) callSize(n ast.Node, args []any) (any, error) {
	if len(args) != 1 {
		return nil, methodError(n, "size() takes exactly one argument")
	}
	sz, err := it.Arith.Size(args[0])
	if err != nil {
		return nil, methodError(n, "%s", err.Error())
	}
	return int64(sz), nil
}

func (it *Interpreter) callEmpty(n ast.Node, args []any) (any, error) {
	if len(args) != 1 {
		return nil, methodError(n, "empty() takes exactly one argument")
	}
	empty, err := it.Arith.Empty(args[0])
	if err != nil {
		return nil, methodError(n, "%s", err.Error())
	}
	return empty, nil
}

// evalAntishCall resolves `a.b.m(args)`: the whole dotted name may be a
// context-bound callable, otherwise the last segment is a method on the
// chain's target.
func (it *Interpreter) evalAntishCall(n *ast.CallExpr, callee *ast.AntishIdent) (any, error) {
	full := strings.Join(callee.Segments, ".")
	if v, ok := it.Ctx.Get(full); ok {
		args, err := it.evalArgs(n.Args)
		if err != nil {
			return nil, err
		}
		res, handled, err := callLambda(n, v, args)
		if err != nil {
			return nil, err
		}
		if handled {
			return res, nil
		}
		return nil, methodError(n, "%q is not callable", full).WithSymbol(full)
	}
	last := len(callee.Segments) - 1
	var target ast.Expr
	if last == 1 {
		target = ast.NewIdent(callee.Origin(), callee.Segments[0])
	} else {
		target = ast.NewAntishIdent(callee.Origin(), callee.Segments[:last])
	}
	member := ast.NewMember(callee.Origin(), target, callee.Segments[last], false)
	return it.evalMethodCall(n, member)
}

func (it *Interpreter) evalMethodCall(n *ast.CallExpr, callee *ast.Member) (any, error) {
	target, err := it.evalExpr(callee.Target)
	if err != nil {
		return nil, err
	}
	if target == nil {
		if it.nullNavigates(callee.Safe) {
			return nil, nil
		}
		return nil, methodError(callee, "cannot call %q on null", callee.Name).WithSymbol(callee.Name)
	}
	args, err := it.evalArgs(n.Args)
	if err != nil {
		return nil, err
	}
	// A property holding a callable (e.g. a lambda stashed in a map/struct
	// field) is invoked directly; otherwise fall back to a real method.
	if getter, gerr := it.Uber.GetProperty(target, callee.Name); gerr == nil {
		if propVal, verr := getter(); verr == nil {
			if res, handled, cerr := callLambda(n, propVal, args); handled {
				if cerr != nil {
					return nil, cerr
				}
				return res, nil
			}
		}
	}
	invoke, err := it.Uber.Method(target, callee.Name, len(args))
	if err != nil {
		return nil, methodError(callee, "%s", err.Error()).WithSymbol(callee.Name)
	}
	res, err := invoke(args)
	if err != nil {
		return nil, methodError(callee, "%s", err.Error()).WithSymbol(callee.Name)
	}
	return res, nil
}

// evalNamespaceCall resolves `prefix:name(args)`: the
// built-in `jexl:` self namespace is handled directly; every other prefix is
// resolved through the context's NamespaceResolver capability or the
// jexl.namespace.<prefix> pragma mapping, then dispatched through Uberspect.
func (it *Interpreter) evalNamespaceCall(n *ast.CallExpr, prefix, name string) (any, error) {
	args, err := it.evalArgs(n.Args)
	if err != nil {
		return nil, err
	}
	if prefix == "jexl" {
		return it.callSelfNamespace(n, name, args)
	}
	nsValue, found := it.resolveNamespace(prefix)
	if !found {
		return nil, methodError(n, "unknown namespace prefix %q", prefix).WithSymbol(prefix)
	}
	ns := values.Namespace{Name: prefix, Value: nsValue}
	method, err := uberspect.ResolveNamespaceMethod(it.Uber, ns, name, len(args))
	if err != nil {
		return nil, methodError(n, "%s", err.Error()).WithSymbol(name)
	}
	res, err := method(args)
	if err != nil {
		return nil, methodError(n, "%s", err.Error()).WithSymbol(name)
	}
	return res, nil
}

// resolveNamespace maps a call prefix to its host object: the context's
// NamespaceResolver capability wins; otherwise a `jexl.namespace.<prefix>`
// pragma names a class registered with the uberspect, optionally expanded
// from a short name through the context's ClassResolver.
func (it *Interpreter) resolveNamespace(prefix string) (any, bool) {
	if resolver, ok := it.Ctx.(options.NamespaceResolver); ok {
		if v, found := resolver.ResolveNamespace(prefix); found {
			return v, true
		}
	}
	fqcn, ok := it.Opts.Namespaces[prefix]
	if !ok {
		return nil, false
	}
	if v, found := it.Uber.ResolveClass(fqcn); found {
		return v, true
	}
	if cr, ok := it.Ctx.(options.ClassResolver); ok {
		if full, found := cr.ResolveClassName(fqcn); found {
			return it.Uber.ResolveClass(full)
		}
	}
	return nil, false
}

// callSelfNamespace implements the `jexl:` self namespace: engine-level
// introspection callable from any script without a host-registered
// namespace.
func (it *Interpreter) callSelfNamespace(n ast.Node, name string, args []any) (any, error) {
	switch name {
	case "size":
		return it.callSize(n, args)
	case "empty":
		return it.callEmpty(n, args)
	case "version":
		return "1.0", nil
	default:
		return nil, methodError(n, "jexl: has no member %q", name).WithSymbol(name)
	}
}

func (it *Interpreter) evalNew(n *ast.NewExpr) (any, error) {
	name, ok := classNameOf(n.ClassName)
	if !ok {
		v, err := it.evalExpr(n.ClassName)
		if err != nil {
			return nil, err
		}
		s, isStr := v.(string)
		if !isStr {
			return nil, methodError(n, "new() class name must be a string or identifier chain")
		}
		name = s
	}
	args, err := it.evalArgs(n.Args)
	if err != nil {
		return nil, err
	}
	res, err := it.Uber.NewInstance(name, args)
	if err != nil {
		return nil, methodError(n, "%s", err.Error()).WithSymbol(name)
	}
	return res, nil
}

// classNameOf extracts a dotted class name from the syntactic forms
// `new ClassName(...)` / `new Outer.Inner(...)` without evaluating it as an
// expression.
func classNameOf(e ast.Expr) (string, bool) {
	switch n := e.(type) {
	case *ast.Ident:
		return n.Name, true
	case *ast.AntishIdent:
		return strings.Join(n.Segments, "."), true
	case *ast.Member:
		base, ok := classNameOf(n.Target)
		if !ok {
			return "", false
		}
		return base + "." + n.Name, true
	default:
		return "", false
	}
}
