package interp

import (
	"strings"

	jexlerrors "github.com/jexl-go/jexl/errors"
	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/internal/options"
)

// pragmaValue resolves a pragma's value expression. Dotted and bare names are
// taken as symbolic text (`#pragma jexl.namespace.ns com.host.Thing` names a
// class, it does not read a variable); literals evaluate normally.
func (it *Interpreter) pragmaValue(e ast.Expr) (any, error) {
	switch n := e.(type) {
	case nil:
		return nil, nil
	case *ast.Ident:
		return n.Name, nil
	case *ast.AntishIdent:
		return strings.Join(n.Segments, "."), nil
	default:
		return it.evalExpr(e)
	}
}

// applyPragma applies one script pragma to it.Opts, following the engine
// default -> script pragma -> context PragmaProcessor pipeline.
// Every key, built-in or not, is then forwarded verbatim to a
// PragmaProcessor, if the context implements one; without one, unrecognized
// keys are a no-op, matching a permissive host that simply doesn't care
// about them.
func (it *Interpreter) applyPragma(key string, value any, o jexlerrors.Origin) error {
	switch {
	case key == "jexl.strict":
		if b, ok := value.(bool); ok {
			it.Opts.Strict = b
		}
	case key == "jexl.silent":
		if b, ok := value.(bool); ok {
			it.Opts.Silent = b
		}
	case key == "jexl.safe":
		if b, ok := value.(bool); ok {
			it.Opts.Safe = b
		}
	case key == "jexl.import":
		if s, ok := value.(string); ok {
			it.Opts.Imports = append(it.Opts.Imports, s)
		}
	case key == "script.mode" && value == "pro50":
		it.Opts.ApplyPreset("pro50")
	case strings.HasPrefix(key, "jexl.namespace."):
		prefix := strings.TrimPrefix(key, "jexl.namespace.")
		if s, ok := value.(string); ok {
			it.Opts.Namespaces[prefix] = s
		}
	}
	if proc, ok := it.Ctx.(options.PragmaProcessor); ok {
		if err := proc.ProcessPragma(it.Opts, key, value); err != nil {
			return jexlerrors.New(jexlerrors.Annotation, o, "pragma %q rejected: %s", key, err.Error()).WithSymbol(key)
		}
	}
	// A pragma or the context's processor may have changed the math options.
	it.rebindArithmetic()
	return nil
}

func (it *Interpreter) annotationProcessor() (options.AnnotationProcessor, bool) {
	proc, ok := it.Ctx.(options.AnnotationProcessor)
	return proc, ok
}

func jexlAnnotationErr(n *ast.AnnotatedStmt) error {
	return jexlerrors.New(jexlerrors.Annotation, origin(n), "annotation %q has no processor", n.Name).WithSymbol(n.Name)
}

// evalBuiltinAnnotation handles the reserved annotations the interpreter
// processes itself, as per-statement Options overrides: @strict(bool),
// @silent(bool), @scale(n).
func (it *Interpreter) evalBuiltinAnnotation(n *ast.AnnotatedStmt, args []any) (handled bool, v any, sig signal, err error) {
	switch n.Name {
	case "strict":
		b, ok := boolArg(args)
		if !ok {
			return true, nil, sigNone, assignError(n, "@strict takes one boolean argument")
		}
		prev := it.Opts.Strict
		it.Opts.Strict = b
		defer func() { it.Opts.Strict = prev }()
		v, sig, err = it.evalStmt(n.Body)
		return true, v, sig, err

	case "silent":
		// Zero args means unconditionally swallow.
		b := true
		if len(args) > 0 {
			var ok bool
			if b, ok = boolArg(args); !ok {
				return true, nil, sigNone, assignError(n, "@silent takes at most one boolean argument")
			}
		}
		prev := it.Opts.Silent
		it.Opts.Silent = b
		v, sig, err = it.evalStmt(n.Body)
		it.Opts.Silent = prev
		if err != nil && b {
			if je, isJexl := err.(*jexlerrors.JexlError); !isJexl || je.Kind() != jexlerrors.Cancel {
				it.warn("%s", err.Error())
				// The swallowed error yields a null result to the enclosing
				// script or lambda, not just to this statement.
				return true, nil, sigReturn, nil
			}
		}
		return true, v, sig, err

	case "scale":
		scale, ok := toInt64(firstArg(args))
		if !ok {
			return true, nil, sigNone, assignError(n, "@scale takes one integer argument")
		}
		// Durable for the remainder of the frame.
		it.Opts.MathScale = int(scale)
		it.rebindArithmetic()
		v, sig, err = it.evalStmt(n.Body)
		return true, v, sig, err

	default:
		return false, nil, sigNone, nil
	}
}

func boolArg(args []any) (bool, bool) {
	if len(args) != 1 {
		return false, false
	}
	b, ok := args[0].(bool)
	return b, ok
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
