package interp

import (
	"strings"

	"github.com/jexl-go/jexl/internal/ast"
)

// resolveLValue resolves e to a get/set pair usable by assignment, compound
// assignment, and prefix/postfix increment/decrement. set is nil for targets
// that cannot be written to from here (the caller raises Assignment).
func (it *Interpreter) resolveLValue(e ast.Expr) (get func() (any, error), set func(any) error, err error) {
	switch n := e.(type) {
	case *ast.Paren:
		return it.resolveLValue(n.X)

	case *ast.Ident:
		return it.resolveIdentLValue(n)

	case *ast.AntishIdent:
		return it.resolveAntishLValue(n)

	case *ast.Member:
		target, terr := it.evalExpr(n.Target)
		if terr != nil {
			return nil, nil, terr
		}
		if target == nil {
			if n.Safe {
				return func() (any, error) { return nil, nil }, nil, nil
			}
			return nil, nil, propError(n, "cannot access %q of null", n.Name)
		}
		get = func() (any, error) {
			getter, err := it.Uber.GetProperty(target, n.Name)
			if err != nil {
				return nil, propError(n, "%s", err.Error())
			}
			return getter()
		}
		set = func(v any) error {
			setter, err := it.Uber.SetProperty(target, n.Name)
			if err != nil {
				return propError(n, "%s", err.Error())
			}
			return setter(v)
		}
		return get, set, nil

	case *ast.TemplateMember:
		target, terr := it.evalExpr(n.Target)
		if terr != nil {
			return nil, nil, terr
		}
		if target == nil && n.Safe {
			return func() (any, error) { return nil, nil }, nil, nil
		}
		name, nerr := it.evalTemplateString(n.Name)
		if nerr != nil {
			return nil, nil, nerr
		}
		if target == nil {
			return nil, nil, propError(n, "cannot access %q of null", name)
		}
		get = func() (any, error) {
			getter, err := it.Uber.GetProperty(target, name)
			if err != nil {
				return nil, propError(n, "%s", err.Error())
			}
			return getter()
		}
		set = func(v any) error {
			setter, err := it.Uber.SetProperty(target, name)
			if err != nil {
				return propError(n, "%s", err.Error())
			}
			return setter(v)
		}
		return get, set, nil

	case *ast.Index:
		target, terr := it.evalExpr(n.Target)
		if terr != nil {
			return nil, nil, terr
		}
		if target == nil && n.Safe {
			return func() (any, error) { return nil, nil }, nil, nil
		}
		key, kerr := it.evalExpr(n.Key)
		if kerr != nil {
			return nil, nil, kerr
		}
		if target == nil {
			return nil, nil, propError(n, "cannot index null with %v", key)
		}
		get = func() (any, error) {
			getter, err := it.Uber.GetIndex(target, key)
			if err != nil {
				return nil, propError(n, "%s", err.Error())
			}
			return getter(key)
		}
		set = func(v any) error {
			setter, err := it.Uber.SetIndex(target, key)
			if err != nil {
				return propError(n, "%s", err.Error())
			}
			return setter(key, v)
		}
		return get, set, nil

	default:
		return nil, nil, assignError(e, "not an assignable expression")
	}
}

func (it *Interpreter) resolveIdentLValue(n *ast.Ident) (func() (any, error), func(any) error, error) {
	name := n.Name
	f := it.frame()
	if slot, owner := f.top.lookup(name); slot != nil {
		_ = owner
		get := func() (any, error) { return slot.value, nil }
		set := func(v any) error {
			if slot.isConst {
				return assignError(n, "cannot assign to const %q", name).WithSymbol(name)
			}
			slot.value = v
			slot.bound = true
			return nil
		}
		return get, set, nil
	}
	if f.shaded[name] {
		return func() (any, error) { return nil, undefinedVarError(n, name) },
			func(any) error { return undefinedVarError(n, name) }, nil
	}
	get := func() (any, error) {
		if v, ok := it.Ctx.Get(name); ok {
			return v, nil
		}
		if it.Opts.Strict {
			return nil, undefinedVarError(n, name)
		}
		return nil, nil
	}
	set := func(v any) error { return it.Ctx.Set(name, v) }
	return get, set, nil
}

// resolveAntishLValue implements the write side of antish resolution: the
// whole dotted name wins if the context already binds it literally,
// otherwise the chain is treated as nested member access off the outermost
// bound segment.
func (it *Interpreter) resolveAntishLValue(n *ast.AntishIdent) (func() (any, error), func(any) error, error) {
	full := strings.Join(n.Segments, ".")
	if it.Ctx.Has(full) {
		get := func() (any, error) { v, _ := it.Ctx.Get(full); return v, nil }
		set := func(v any) error { return it.Ctx.Set(full, v) }
		return get, set, nil
	}
	head := ast.NewIdent(n.Origin(), n.Segments[0])
	if len(n.Segments) == 1 {
		return it.resolveIdentLValue(head)
	}
	f := it.frame()
	if slot, _ := f.top.lookup(n.Segments[0]); slot == nil && !it.Ctx.Has(n.Segments[0]) {
		// Neither `a` nor `a.b` names a structure: the whole dotted form is
		// one context variable.
		get := func() (any, error) {
			if v, ok := it.Ctx.Get(full); ok {
				return v, nil
			}
			if it.Opts.Strict {
				return nil, undefinedVarError(n, full)
			}
			return nil, nil
		}
		set := func(v any) error { return it.Ctx.Set(full, v) }
		return get, set, nil
	}
	target, err := it.evalIdent(head)
	if err != nil {
		return nil, nil, err
	}
	for _, seg := range n.Segments[1 : len(n.Segments)-1] {
		getter, gerr := it.Uber.GetProperty(target, seg)
		if gerr != nil {
			return nil, nil, propError(n, "%s", gerr.Error())
		}
		target, err = getter()
		if err != nil {
			return nil, nil, propError(n, "%s", err.Error())
		}
	}
	last := n.Segments[len(n.Segments)-1]
	finalTarget := target
	get := func() (any, error) {
		getter, err := it.Uber.GetProperty(finalTarget, last)
		if err != nil {
			return nil, propError(n, "%s", err.Error())
		}
		return getter()
	}
	set := func(v any) error {
		setter, err := it.Uber.SetProperty(finalTarget, last)
		if err != nil {
			return propError(n, "%s", err.Error())
		}
		return setter(v)
	}
	return get, set, nil
}
