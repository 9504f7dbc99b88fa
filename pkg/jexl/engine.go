// Package jexl is the public façade over the JEXL evaluation pipeline:
// feature-gated parsing, the tree-walking interpreter, the bounded parse
// cache, and the JXLT template engine. An Engine is immutable after New and
// safe for concurrent use; per-evaluation state lives in the interpreter
// built for each Execute/Evaluate call.
package jexl

import (
	"fmt"
	"strings"

	jexlerrors "github.com/jexl-go/jexl/errors"
	"github.com/jexl-go/jexl/internal/arithmetic"
	"github.com/jexl-go/jexl/internal/cache"
	"github.com/jexl-go/jexl/internal/features"
	"github.com/jexl-go/jexl/internal/log"
	"github.com/jexl-go/jexl/internal/options"
	"github.com/jexl-go/jexl/internal/uberspect"
)

// Re-exported configuration and capability surface, so hosts configure the
// engine without reaching into internal packages.
type (
	// Options is the per-evaluation knob record.
	Options = options.Options
	// Context is the host-supplied symbol table.
	Context = options.Context
	// MapContext is the built-in map-backed Context.
	MapContext = options.MapContext
	// NamespaceResolver is the optional Context capability resolving call
	// prefixes to host objects.
	NamespaceResolver = options.NamespaceResolver
	// AnnotationProcessor is the optional Context capability wrapping
	// annotated statements.
	AnnotationProcessor = options.AnnotationProcessor
	// AnnotatedCall is the wrapped statement handed to an AnnotationProcessor.
	AnnotatedCall = options.AnnotatedCall
	// PragmaProcessor is the optional Context capability consulted for each
	// script pragma.
	PragmaProcessor = options.PragmaProcessor
	// Cancellation is the cooperative cancel flag observed at statement
	// boundaries.
	Cancellation = options.Cancellation
	// CancellationSource is the optional Context capability sharing a
	// Cancellation across evaluations.
	CancellationSource = options.CancellationSource
	// Features is the parse-time capability gate.
	Features = features.Set
	// Arithmetic is the pluggable operator algebra.
	Arithmetic = arithmetic.Arithmetic
	// Uberspect resolves members, methods, iterators and constructors on
	// host values.
	Uberspect = uberspect.Uberspect
	// CacheFactory builds the parse cache; hosts inject one to replace the
	// built-in variants.
	CacheFactory = cache.Factory
	// Logger receives silent-mode warnings.
	Logger = log.Logger
	// CountingLogger is a Logger that records warnings for inspection, e.g.
	// by a host asserting on silent-mode behavior.
	CountingLogger = log.CountingLogger
	// Error is the typed error produced by every stage of the pipeline.
	Error = jexlerrors.JexlError
)

// FeatureFlag identifies one parse-time capability gate.
type FeatureFlag = features.Flag

// The gated capabilities, for Features.With/Without.
const (
	FeatureRegister           = features.Register
	FeatureReservedNames      = features.ReservedNames
	FeatureLocalVar           = features.LocalVar
	FeatureSideEffect         = features.SideEffect
	FeatureSideEffectGlobal   = features.SideEffectGlobal
	FeatureLexical            = features.Lexical
	FeatureLexicalShade       = features.LexicalShade
	FeatureLoops              = features.Loops
	FeatureLambda             = features.Lambda
	FeatureNewInstance        = features.NewInstance
	FeatureMethodCall         = features.MethodCall
	FeatureStructuredLiteral  = features.StructuredLiteral
	FeatureArrayReferenceExpr = features.ArrayReferenceExpr
	FeaturePragma             = features.Pragma
	FeaturePragmaAnywhere     = features.PragmaAnywhere
	FeatureAnnotation         = features.Annotation
	FeatureScript             = features.Script
	FeatureComparatorNames    = features.ComparatorNames
	FeatureFatArrow           = features.FatArrow
	FeatureNamespacePragma    = features.NamespacePragma
	FeatureImportPragma       = features.ImportPragma
	FeatureConstCapture       = features.ConstCapture
	FeatureAmbiguousStatement = features.AmbiguousStatement
)

// NewMapContext builds a MapContext over vars (which may be nil).
func NewMapContext(vars map[string]any) *MapContext { return options.NewMapContext(vars) }

// NewCancellation builds an untripped cancellation flag.
func NewCancellation() *Cancellation { return options.NewCancellation() }

// DefaultFeatures returns the permissive default feature set.
func DefaultFeatures() Features { return features.Default() }

// DefaultOptions returns the engine's baseline evaluation options, ready to
// tweak and pass to WithOptions.
func DefaultOptions() *Options { return options.Default() }

// NewArithmetic builds the default arithmetic, optionally with a host
// overloads value whose exported methods intercept operators.
func NewArithmetic(overloads any) Arithmetic { return arithmetic.New(overloads) }

// NewCountingLogger builds a Logger that records warnings for inspection.
func NewCountingLogger() *CountingLogger { return log.NewCountingLogger() }

// defaultCacheCapacity bounds the engine parse cache unless WithCache
// overrides it.
const defaultCacheCapacity = 512

// Engine is the evaluation façade. Build one with New, share it freely.
type Engine struct {
	feats  features.Set
	opts   *options.Options
	arith  arithmetic.Arithmetic
	uber   *uberspect.Uberspect
	cache  cache.Cache
	logger log.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine) error

// WithFeatures replaces the parse-time feature gate.
func WithFeatures(f Features) Option {
	return func(e *Engine) error { e.feats = f; return nil }
}

// WithOptions replaces the engine's default evaluation options.
func WithOptions(o *Options) Option {
	return func(e *Engine) error {
		if o == nil {
			return fmt.Errorf("jexl: nil options")
		}
		e.opts = o
		return nil
	}
}

// WithArithmetic replaces the operator algebra.
func WithArithmetic(a Arithmetic) Option {
	return func(e *Engine) error { e.arith = a; return nil }
}

// WithOverloads installs the default arithmetic wrapped around a host
// overloads value.
func WithOverloads(overloads any) Option {
	return func(e *Engine) error { e.arith = arithmetic.New(overloads); return nil }
}

// WithUberspect replaces the member resolver.
func WithUberspect(u *Uberspect) Option {
	return func(e *Engine) error { e.uber = u; return nil }
}

// WithMapStrategy reorders member resolution so maps win over struct
// fields/getters.
func WithMapStrategy() Option {
	return func(e *Engine) error { e.uber.WithMapStrategy(); return nil }
}

// WithPermissions installs a sandbox of deny/allow package-path globs.
func WithPermissions(denyGlobs, allowGlobs []string) Option {
	return func(e *Engine) error {
		e.uber.WithPermissions(uberspect.NewPermissionFilter(denyGlobs, allowGlobs))
		return nil
	}
}

// WithCache sets the parse-cache capacity.
func WithCache(capacity int) Option {
	return func(e *Engine) error {
		if capacity < 1 {
			return fmt.Errorf("jexl: cache capacity must be positive, got %d", capacity)
		}
		e.cache = cache.NewSynchronized(capacity)
		return nil
	}
}

// WithCacheFactory builds the parse cache through fn instead of the built-in
// synchronized variant.
func WithCacheFactory(capacity int, fn CacheFactory) Option {
	return func(e *Engine) error {
		if fn == nil {
			return fmt.Errorf("jexl: nil cache factory")
		}
		e.cache = fn(capacity)
		return nil
	}
}

// WithLogger routes silent-mode warnings to l for contexts that don't carry
// their own logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) error { e.logger = l; return nil }
}

// WithNamespace binds prefix:name(...) calls to methods on object for every
// script this engine runs, without needing a pragma or a context resolver.
func WithNamespace(prefix string, object any) Option {
	return func(e *Engine) error {
		e.opts.Namespaces[prefix] = prefix
		e.uber.RegisterNamespace(prefix, object)
		return nil
	}
}

// New builds an Engine with permissive defaults: full feature set, strict
// options, default arithmetic/uberspect, and a synchronized parse cache.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		feats:  features.Default(),
		opts:   options.Default(),
		arith:  arithmetic.New(nil),
		uber:   uberspect.New(),
		logger: log.Default,
	}
	for _, o := range opts {
		if err := o(e); err != nil {
			return nil, err
		}
	}
	if e.cache == nil {
		e.cache = cache.NewSynchronized(defaultCacheCapacity)
	}
	return e, nil
}

// Uberspect returns the engine's member resolver.
func (e *Engine) Uberspect() *Uberspect { return e.uber }

// Arithmetic returns the engine's operator algebra.
func (e *Engine) Arithmetic() Arithmetic { return e.arith }

// Features returns the engine's parse-time feature gate.
func (e *Engine) Features() Features { return e.feats }

// RegisterConstructor installs a named constructor consulted by `new(...)`.
func (e *Engine) RegisterConstructor(clazz string, ctor func(args []any) (any, error)) {
	e.uber.RegisterConstructor(clazz, ctor)
}

// RegisterNamespace binds a fully-qualified class name, as used by
// `#pragma jexl.namespace.<prefix> <fqcn>`, to a host object.
func (e *Engine) RegisterNamespace(fqcn string, object any) {
	e.uber.RegisterNamespace(fqcn, object)
}

// InvokeMethod calls name on target through the uberspect.
func (e *Engine) InvokeMethod(target any, name string, args ...any) (any, error) {
	invoke, err := e.uber.Method(target, name, len(args))
	if err != nil {
		return nil, jexlerrors.New(jexlerrors.Method, jexlerrors.Origin{}, "%s", err.Error()).WithSymbol(name)
	}
	return invoke(args)
}

// NewInstance builds an instance of a registered class through the
// uberspect's constructor registry.
func (e *Engine) NewInstance(clazz string, args ...any) (any, error) {
	v, err := e.uber.NewInstance(clazz, args)
	if err != nil {
		return nil, jexlerrors.New(jexlerrors.Method, jexlerrors.Origin{}, "%s", err.Error()).WithSymbol(clazz)
	}
	return v, nil
}

// ClearCache drops every cached parse.
func (e *Engine) ClearCache() { e.cache.Clear() }

// CacheLen reports how many parsed units the cache currently holds.
func (e *Engine) CacheLen() int { return e.cache.Len() }

// threadState is what the thread-current accessors expose during an
// evaluation.
type threadState struct {
	engine *Engine
	ctx    options.Context
}

// ThreadEngine returns the Engine currently evaluating on this goroutine,
// if any. It is the hook `@synchronized` processors use to find a stable
// mutex target.
func ThreadEngine() (*Engine, bool) {
	v, ok := uberspect.CurrentEngine()
	if !ok {
		return nil, false
	}
	st, ok := v.(*threadState)
	if !ok {
		return nil, false
	}
	return st.engine, true
}

// ThreadContext returns the Context of the evaluation currently running on
// this goroutine, if any.
func ThreadContext() (Context, bool) {
	v, ok := uberspect.CurrentEngine()
	if !ok {
		return nil, false
	}
	st, ok := v.(*threadState)
	if !ok {
		return nil, false
	}
	return st.ctx, true
}

// cacheKey fingerprints a parse request. The parameter list participates so
// the same source parameterized differently never aliases.
func cacheKey(kind string, src string, params []string) string {
	if len(params) == 0 {
		return kind + "\x00" + src
	}
	return kind + "\x00" + strings.Join(params, ",") + "\x00" + src
}
