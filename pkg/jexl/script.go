package jexl

import (
	jexlerrors "github.com/jexl-go/jexl/errors"
	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/internal/interp"
	"github.com/jexl-go/jexl/internal/log"
	"github.com/jexl-go/jexl/internal/options"
	"github.com/jexl-go/jexl/internal/parser"
	"github.com/jexl-go/jexl/internal/printer"
	"github.com/jexl-go/jexl/internal/uberspect"
	"github.com/jexl-go/jexl/internal/values"
)

// Script is a parsed statement sequence, optionally parameterized. It is
// immutable and safe to Execute concurrently; each Execute walks the shared
// AST with its own interpreter.
type Script struct {
	engine *Engine
	root   *ast.Script
	source string
}

// CreateScript parses source as a script, with params bound positionally to
// Execute's trailing arguments. Parses are cached by source fingerprint.
func (e *Engine) CreateScript(source string, params ...string) (*Script, error) {
	key := cacheKey("s", source, params)
	if v, ok := e.cache.Get(key); ok {
		return &Script{engine: e, root: v.(*ast.Script), source: source}, nil
	}
	root, errs := parser.ParseScript(source, "", e.feats)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	root.Params = make([]ast.Param, len(params))
	for i, p := range params {
		root.Params[i] = ast.Param{Name: p}
	}
	e.cache.Put(key, root)
	return &Script{engine: e, root: root, source: source}, nil
}

// MustCreateScript is CreateScript, panicking on error; intended for
// compile-time-constant sources.
func (e *Engine) MustCreateScript(source string, params ...string) *Script {
	s, err := e.CreateScript(source, params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Execute runs the script against ctx, binding args to declared parameters.
// When the script body is a single lambda literal and args are supplied, the
// lambda is invoked with them, so `(a, b) -> {...}` sources behave as
// directly-callable scripts.
func (s *Script) Execute(ctx Context, args ...any) (any, error) {
	it := s.engine.interpreter(ctx)
	restore := uberspect.SetCurrentEngine(&threadState{engine: s.engine, ctx: ctx})
	defer restore()
	res, err := it.ExecuteScript(s.root, args)
	if err != nil {
		return nil, err
	}
	if lam, ok := res.(values.Lambda); ok && len(args) > 0 && len(s.root.Params) == 0 && s.isLambdaBody() {
		return lam.Call(args)
	}
	return res, nil
}

// Callable wraps one evaluation so a host can run it on a worker and cancel
// it cooperatively from another goroutine.
type Callable struct {
	inner *interp.Callable
}

// Call performs the evaluation. At most one Call per Callable.
func (c *Callable) Call() (any, error) { return c.inner.Call() }

// Cancel requests that the evaluation stop at its next statement boundary.
func (c *Callable) Cancel() { c.inner.Cancel() }

// IsCancelled reports whether Cancel has been requested.
func (c *Callable) IsCancelled() bool { return c.inner.IsCancelled() }

// IsCancellable reports whether cancellation raises a Cancel error (true) or
// ends the walk silently with a null result (false).
func (c *Callable) IsCancellable() bool { return c.inner.IsCancellable() }

// Callable packages an Execute(ctx, args...) for deferred/worker execution.
func (s *Script) Callable(ctx Context, args ...any) *Callable {
	it := s.engine.interpreter(ctx)
	run := func() (any, error) {
		restore := uberspect.SetCurrentEngine(&threadState{engine: s.engine, ctx: ctx})
		defer restore()
		res, err := it.ExecuteScript(s.root, args)
		if err != nil {
			return nil, err
		}
		if lam, ok := res.(values.Lambda); ok && len(args) > 0 && len(s.root.Params) == 0 && s.isLambdaBody() {
			return lam.Call(args)
		}
		return res, nil
	}
	return &Callable{inner: interp.NewCallable(it, run)}
}

// Pragmas returns the `#pragma` directives collected at parse time, dotted
// names resolved to their symbolic text.
func (s *Script) Pragmas() map[string]any {
	out := make(map[string]any, len(s.root.Pragmas))
	for _, p := range s.root.Pragmas {
		out[p.Key] = pragmaLiteral(p.Value)
	}
	return out
}

// ParsedText reconstructs source text from the AST; it round-trips to an
// equivalent parse, whitespace aside.
func (s *Script) ParsedText() string { return printer.Print(s.root) }

// SourceText returns the original source the script was parsed from.
func (s *Script) SourceText() string { return s.source }

// isLambdaBody reports whether the script body is exactly one lambda
// literal expression.
func (s *Script) isLambdaBody() bool {
	if len(s.root.Body) != 1 {
		return false
	}
	es, ok := s.root.Body[0].(*ast.ExprStmt)
	if !ok {
		return false
	}
	_, ok = es.X.(*ast.Lambda)
	return ok
}

// Expression is a parsed single expression: no statements, no side-effectful
// script surface.
type Expression struct {
	engine *Engine
	root   *ast.Expression
	source string
}

// CreateExpression parses source as a single expression.
func (e *Engine) CreateExpression(source string) (*Expression, error) {
	key := cacheKey("e", source, nil)
	if v, ok := e.cache.Get(key); ok {
		return &Expression{engine: e, root: v.(*ast.Expression), source: source}, nil
	}
	root, errs := parser.ParseExpression(source, "", e.feats)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	e.cache.Put(key, root)
	return &Expression{engine: e, root: root, source: source}, nil
}

// Evaluate computes the expression's value against ctx.
func (x *Expression) Evaluate(ctx Context) (any, error) {
	it := x.engine.interpreter(ctx)
	restore := uberspect.SetCurrentEngine(&threadState{engine: x.engine, ctx: ctx})
	defer restore()
	return it.EvalExpression(x.root)
}

// ParsedText reconstructs source text from the AST.
func (x *Expression) ParsedText() string { return printer.Print(x.root) }

// SourceText returns the original source.
func (x *Expression) SourceText() string { return x.source }

// interpreter builds the per-call interpreter: the context's own options
// record wins over the engine defaults, and the engine's logger backs
// silent-mode warnings unless the context carries its own.
func (e *Engine) interpreter(ctx Context) *interp.Interpreter {
	if ctx == nil {
		ctx = options.NewMapContext(nil)
	}
	base := e.opts
	if h, ok := ctx.(options.OptionsHandle); ok {
		if o := h.JexlOptions(); o != nil {
			base = o
		}
	}
	it := interp.New(ctx, base, e.arith, e.uber)
	it.Engine = e
	if _, hasOwn := ctx.(log.Logger); !hasOwn && e.logger != nil {
		it.Logger = e.logger
	}
	return it
}

// pragmaLiteral maps a pragma value expression to plain data without
// evaluating it: dotted and bare names become their symbolic text.
func pragmaLiteral(v ast.Expr) any {
	switch n := v.(type) {
	case nil:
		return nil
	case *ast.Ident:
		return n.Name
	case *ast.AntishIdent:
		return printer.Print(n)
	case *ast.StringLiteral:
		return n.Value
	case *ast.BoolLiteral:
		return n.Value
	case *ast.IntLiteral:
		if n.Big != nil {
			return n.Big
		}
		return n.Value
	case *ast.FloatLiteral:
		if n.Big != nil {
			return n.Big
		}
		return n.Value
	default:
		return printer.Print(v)
	}
}

// kindOf reports the taxonomy of err when it is a JexlError, for hosts that
// branch on failure kinds without importing the errors package directly.
func kindOf(err error) (jexlerrors.Kind, bool) {
	je, ok := err.(*jexlerrors.JexlError)
	if !ok {
		return 0, false
	}
	return je.Kind(), true
}

// IsCancelError reports whether err is the typed cancellation error raised
// by a cancellable evaluation.
func IsCancelError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == jexlerrors.Cancel
}
