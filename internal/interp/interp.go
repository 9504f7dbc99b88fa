// Package interp implements the JEXL tree-walking interpreter:
// scope frames, operator dispatch through Arithmetic/Uberspect, safe
// navigation, short-circuiting, annotations, pragmas, and cooperative
// cancellation. One Interpreter is built per Script.Execute/Callable call; it
// is not reused across concurrent evaluations.
package interp

import (
	jexlerrors "github.com/jexl-go/jexl/errors"
	"github.com/jexl-go/jexl/internal/arithmetic"
	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/internal/log"
	"github.com/jexl-go/jexl/internal/options"
	"github.com/jexl-go/jexl/internal/uberspect"
)

// callFrame is one function-call activation: a script body or a lambda
// invocation. shaded records names a lexicalShade declaration has hidden
// from the context for the remainder of this frame.
type callFrame struct {
	top    *env
	shaded map[string]bool
}

// Interpreter walks one parsed Script or Expression against a Context under
// a set of Options, dispatching operators through Arithmetic and member
// access through Uberspect.
type Interpreter struct {
	Opts   *options.Options
	Ctx    options.Context
	Arith  arithmetic.Arithmetic
	Uber   *uberspect.Uberspect
	Cancel *options.Cancellation
	Logger log.Logger
	// Engine is the opaque engine handle surfaced through AnnotatedCall
	// Statement() when an annotation has no arguments.
	Engine any

	frames    []*callFrame
	warnCount int
	baseArith arithmetic.Arithmetic // engine-constructed instance, before scale rebinding
}

// New builds an Interpreter. opts is cloned unless opts.SharedInstance is
// set, so pragma/annotation overrides during this call never leak back to
// the engine's defaults.
func New(ctx options.Context, opts *options.Options, arith arithmetic.Arithmetic, uber *uberspect.Uberspect) *Interpreter {
	effective := opts
	if !opts.SharedInstance {
		effective = opts.Clone()
	}
	cancel := options.NewCancellation()
	if src, ok := ctx.(options.CancellationSource); ok {
		if c := src.Cancellation(); c != nil {
			cancel = c
		}
	}
	logger := log.Logger(log.Default)
	if l, ok := ctx.(log.Logger); ok {
		logger = l
	}
	it := &Interpreter{Opts: effective, Ctx: ctx, Arith: arith, Uber: uber, Cancel: cancel, Logger: logger, baseArith: arith}
	it.rebindArithmetic()
	return it
}

// rebindArithmetic applies the current options' mathContext/mathScale to the
// arithmetic, for arithmetics that support per-evaluation scaling. Called
// whenever those options may have changed: construction, pragma
// application, and the @scale annotation.
func (it *Interpreter) rebindArithmetic() {
	if s, ok := it.baseArith.(arithmetic.Scaled); ok {
		it.Arith = s.WithOptions(it.Opts.MathContext, it.Opts.MathScale)
	}
}

// WarnCount reports how many silent-mode/annotation-fallback warnings were
// logged during this interpreter's lifetime.
func (it *Interpreter) WarnCount() int { return it.warnCount }

func (it *Interpreter) warn(format string, args ...any) {
	it.warnCount++
	it.Logger.Log(log.Warn, format, args...)
}

func (it *Interpreter) frame() *callFrame { return it.frames[len(it.frames)-1] }

// pushFrame enters a new function-call activation (script body or lambda
// call) and returns a restore function.
func (it *Interpreter) pushFrame() func() {
	top := newEnv(nil, true)
	it.frames = append(it.frames, &callFrame{top: top, shaded: map[string]bool{}})
	return func() { it.frames = it.frames[:len(it.frames)-1] }
}

// pushBlock enters a nested lexical block (`{ }`, loop body, for-init).
func (it *Interpreter) pushBlock() func() {
	f := it.frame()
	prevTop := f.top
	f.top = newEnv(prevTop, false)
	return func() { f.top = prevTop }
}

func origin(n ast.Node) jexlerrors.Origin {
	o := n.Origin()
	return jexlerrors.Origin{Name: o.Name, Line: o.Line, Column: o.Column}
}

// checkCancel polls the cancellation flag, returning a Cancel error when
// Cancellable is set and the flag has tripped. When not cancellable, the
// caller is told to stop via stop=true with a nil error.
func (it *Interpreter) checkCancel(n ast.Node) (stop bool, err error) {
	if !it.Cancel.IsCancelled() {
		return false, nil
	}
	if it.Opts.Cancellable {
		return true, jexlerrors.New(jexlerrors.Cancel, origin(n), "evaluation cancelled")
	}
	return true, nil
}

// ExecuteScript runs a parsed Script against the interpreter's context,
// binding args positionally to the script's declared parameters.
func (it *Interpreter) ExecuteScript(script *ast.Script, args []any) (any, error) {
	pop := it.pushFrame()
	defer pop()
	f := it.frame()
	for i, p := range script.Params {
		var v any
		if i < len(args) {
			v = args[i]
		}
		declareLocal(f.top, p.Name, v, false, true)
	}

	for _, pragma := range script.Pragmas {
		value, err := it.pragmaValue(pragma.Value)
		if err != nil {
			return nil, err
		}
		if err := it.applyPragma(pragma.Key, value, origin(pragma)); err != nil {
			return nil, err
		}
	}

	var result any
	for _, stmt := range script.Body {
		v, sig, err := it.evalStmt(stmt)
		if err != nil {
			return it.settle(nil, err)
		}
		if sig == sigReturn {
			return v, nil
		}
		if sig != sigNone {
			return it.settle(nil, jexlerrors.New(jexlerrors.Parsing, origin(stmt), "%s outside of loop", sigName(sig)))
		}
		result = v
	}
	return result, nil
}

// EvalExpression evaluates a parsed Expression against the interpreter's
// context.
func (it *Interpreter) EvalExpression(expr *ast.Expression) (any, error) {
	pop := it.pushFrame()
	defer pop()
	v, err := it.evalExpr(expr.X)
	return it.settle(v, err)
}

// settle applies the silent-mode failure rule: a
// non-Cancel error is swallowed into a warning and a neutral (nil) result
// when Silent is set; Cancel always propagates.
func (it *Interpreter) settle(v any, err error) (any, error) {
	if err == nil {
		return v, nil
	}
	if je, ok := err.(*jexlerrors.JexlError); ok && je.Kind() == jexlerrors.Cancel {
		return nil, err
	}
	if it.Opts.Silent {
		it.warn("%s", err.Error())
		return nil, nil
	}
	return nil, err
}

func sigName(s signal) string {
	switch s {
	case sigBreak:
		return "break"
	case sigContinue:
		return "continue"
	case sigRemove:
		return "remove"
	default:
		return "control flow"
	}
}

func undefinedVarError(n ast.Node, name string) *jexlerrors.JexlError {
	return jexlerrors.Undefined(origin(n), name)
}

func opError(n ast.Node, format string, args ...any) *jexlerrors.JexlError {
	return jexlerrors.New(jexlerrors.Operator, origin(n), format, args...)
}

func propError(n ast.Node, format string, args ...any) *jexlerrors.JexlError {
	return jexlerrors.New(jexlerrors.Property, origin(n), format, args...)
}

func methodError(n ast.Node, format string, args ...any) *jexlerrors.JexlError {
	return jexlerrors.New(jexlerrors.Method, origin(n), format, args...)
}

func assignError(n ast.Node, format string, args ...any) *jexlerrors.JexlError {
	return jexlerrors.New(jexlerrors.Assignment, origin(n), format, args...)
}
