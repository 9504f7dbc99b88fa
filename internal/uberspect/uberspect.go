// Package uberspect resolves properties, indexed access, methods, iterators,
// and constructors on arbitrary Go values on behalf of the interpreter,
// filtered by an optional permission sandbox. It is the one place in the
// module that uses reflection to bridge dynamic script values onto static Go
// types.
package uberspect

import (
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/match"

	"github.com/jexl-go/jexl/internal/values"
)

// PropertyGetter reads a resolved property.
type PropertyGetter func() (any, error)

// PropertySetter writes a resolved property.
type PropertySetter func(v any) error

// MethodInvoker calls a resolved method.
type MethodInvoker func(args []any) (any, error)

// IndexGetter reads a resolved indexed slot.
type IndexGetter func(key any) (any, error)

// IndexSetter writes a resolved indexed slot.
type IndexSetter func(key any, v any) error

// Iterator walks a resolved iterable. Remove returns an error when the
// underlying iterable does not support in-place removal.
type Iterator interface {
	Next() (any, bool)
	Remove() error
}

// ReslicedIterator is implemented by iterators over value-typed sequences
// (plain []any): Remove shrinks the iterator's own copy, and the caller that
// owns the original binding writes the shrunk slice back after iteration.
// Maps and sets don't need this — their iterators mutate shared state
// directly.
type ReslicedIterator interface {
	Iterator
	Resliced() ([]any, bool)
}

// Constructor builds a new instance of a resolved class/type reference.
type Constructor func(args []any) (any, error)

// Strategy is one link in the resolver chain: it attempts to resolve a
// member access and reports whether it recognized the shape of v at all
// (found=false lets the chain continue; found=true with a nil accessor is a
// terminal "no such member").
type Strategy interface {
	Name() string
	GetProperty(v any, key string) (PropertyGetter, bool)
	SetProperty(v any, key string) (PropertySetter, bool)
	GetIndex(v any, key any) (IndexGetter, bool)
	SetIndex(v any, key any) (IndexSetter, bool)
	Method(v any, name string, argc int) (MethodInvoker, bool)
	Iterate(v any) (Iterator, bool)
}

// Uberspect is the resolution façade consulted by the interpreter. The
// strategy chain order is {field, bean, map, list/array, user-custom} by
// default; MapStrategy reorders so maps win over beans, matching the
// documented MAP_STRATEGY toggle.
type Uberspect struct {
	mu         sync.RWMutex
	strategies []Strategy
	perm       *PermissionFilter
	ctors      map[string]Constructor
	namespaces map[string]any
}

// New builds an Uberspect with the default strategy chain.
func New() *Uberspect {
	u := &Uberspect{}
	u.strategies = []Strategy{
		fieldStrategy{}, beanStrategy{}, mapStrategy{}, listStrategy{}, setStrategy{}, rangeStrategy{},
	}
	return u
}

// WithMapStrategy reorders the chain so maps resolve before struct
// fields/getters, so e.g. `i.class` on a map reads the "class" entry
// instead of a bean-shaped lookup.
func (u *Uberspect) WithMapStrategy() *Uberspect {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.strategies = []Strategy{
		mapStrategy{}, fieldStrategy{}, beanStrategy{}, listStrategy{}, setStrategy{}, rangeStrategy{},
	}
	return u
}

// WithCustomStrategy appends a user-supplied resolver to the end of the
// chain, consulted after every built-in strategy.
func (u *Uberspect) WithCustomStrategy(s Strategy) *Uberspect {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.strategies = append(u.strategies, s)
	return u
}

// WithPermissions installs a sandbox consulted before any resolution is
// handed back to the caller.
func (u *Uberspect) WithPermissions(p *PermissionFilter) *Uberspect {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.perm = p
	return u
}

func (u *Uberspect) chain() []Strategy {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.strategies
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}

func (u *Uberspect) denied(v any) bool {
	if u.perm == nil {
		return false
	}
	return u.perm.Denies(typeName(v))
}

// GetProperty resolves `a.b` (or antish property-style access) to a reader.
func (u *Uberspect) GetProperty(v any, key string) (PropertyGetter, error) {
	if u.denied(v) {
		return nil, fmt.Errorf("uberspect: access to %s denied by sandbox", typeName(v))
	}
	for _, s := range u.chain() {
		if get, ok := s.GetProperty(v, key); ok {
			return get, nil
		}
	}
	return nil, fmt.Errorf("uberspect: no property %q on %s", key, typeName(v))
}

// SetProperty resolves `a.b = x` to a writer.
func (u *Uberspect) SetProperty(v any, key string) (PropertySetter, error) {
	if u.denied(v) {
		return nil, fmt.Errorf("uberspect: access to %s denied by sandbox", typeName(v))
	}
	for _, s := range u.chain() {
		if set, ok := s.SetProperty(v, key); ok {
			return set, nil
		}
	}
	return nil, fmt.Errorf("uberspect: no settable property %q on %s", key, typeName(v))
}

// GetIndex resolves `a[k]`.
func (u *Uberspect) GetIndex(v any, key any) (IndexGetter, error) {
	if u.denied(v) {
		return nil, fmt.Errorf("uberspect: access to %s denied by sandbox", typeName(v))
	}
	for _, s := range u.chain() {
		if get, ok := s.GetIndex(v, key); ok {
			return get, nil
		}
	}
	return nil, fmt.Errorf("uberspect: no index %v on %s", key, typeName(v))
}

// SetIndex resolves `a[k] = x`.
func (u *Uberspect) SetIndex(v any, key any) (IndexSetter, error) {
	if u.denied(v) {
		return nil, fmt.Errorf("uberspect: access to %s denied by sandbox", typeName(v))
	}
	for _, s := range u.chain() {
		if set, ok := s.SetIndex(v, key); ok {
			return set, nil
		}
	}
	return nil, fmt.Errorf("uberspect: no settable index %v on %s", key, typeName(v))
}

// Method resolves `a.m(args)`.
func (u *Uberspect) Method(v any, name string, argc int) (MethodInvoker, error) {
	if u.denied(v) {
		return nil, fmt.Errorf("uberspect: access to %s denied by sandbox", typeName(v))
	}
	for _, s := range u.chain() {
		if m, ok := s.Method(v, name, argc); ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("uberspect: no method %s/%d on %s", name, argc, typeName(v))
}

// Iterate resolves `for (x : v)`.
func (u *Uberspect) Iterate(v any) (Iterator, error) {
	if u.denied(v) {
		return nil, fmt.Errorf("uberspect: access to %s denied by sandbox", typeName(v))
	}
	for _, s := range u.chain() {
		if it, ok := s.Iterate(v); ok {
			return it, nil
		}
	}
	return nil, fmt.Errorf("uberspect: %s is not iterable", typeName(v))
}

// NewInstance resolves `new(clazz, args...)` against a class/type reference.
// clazz is a string naming a registered constructor; the registry is
// populated by the host through RegisterConstructor.
func (u *Uberspect) NewInstance(clazz string, args []any) (any, error) {
	u.mu.RLock()
	ctor, ok := u.ctors[clazz]
	u.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("uberspect: no constructor registered for %q", clazz)
	}
	return ctor(args)
}

// RegisterConstructor installs a named constructor consulted by NewInstance.
func (u *Uberspect) RegisterConstructor(clazz string, ctor Constructor) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.ctors == nil {
		u.ctors = map[string]Constructor{}
	}
	u.ctors[clazz] = ctor
}

// RegisterNamespace binds a fully-qualified class name to the host object a
// `jexl.namespace.<prefix>`-pragma'd call dispatches methods against.
func (u *Uberspect) RegisterNamespace(fqcn string, v any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.namespaces == nil {
		u.namespaces = map[string]any{}
	}
	u.namespaces[fqcn] = v
}

// ResolveClass looks up a host object registered under fqcn.
func (u *Uberspect) ResolveClass(fqcn string) (any, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	v, ok := u.namespaces[fqcn]
	return v, ok
}

// ---- thread-current engine/arithmetic, Go-style best effort ----
//
// Go has no true thread-locals. We approximate the documented "current
// engine/arithmetic" facility by keying a map on the calling goroutine's id,
// parsed out of a runtime.Stack dump; good enough for the single-threaded,
// reentrant-per-goroutine execution model the interpreter actually uses.

var (
	currentMu sync.Mutex
	current   = map[int64]any{}
)

func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return 0
	}
	id, _ := strconv.ParseInt(fields[1], 10, 64)
	return id
}

// SetCurrentEngine registers engine as the "current" one for the calling
// goroutine, for the duration of a script evaluation.
func SetCurrentEngine(engine any) (restore func()) {
	id := goroutineID()
	currentMu.Lock()
	prev, had := current[id]
	current[id] = engine
	currentMu.Unlock()
	return func() {
		currentMu.Lock()
		if had {
			current[id] = prev
		} else {
			delete(current, id)
		}
		currentMu.Unlock()
	}
}

// CurrentEngine returns the engine registered for the calling goroutine, if
// any.
func CurrentEngine() (any, bool) {
	id := goroutineID()
	currentMu.Lock()
	defer currentMu.Unlock()
	v, ok := current[id]
	return v, ok
}

// PermissionFilter denies resolution against whole packages/types using
// glob patterns (`"java.lang.*"`-style, here Go package-path globs),
// matched with tidwall/match.
type PermissionFilter struct {
	deny  []string
	allow []string
}

// NewPermissionFilter builds a filter; denyGlobs are checked first, then
// allowGlobs (if non-empty, acts as an allowlist — anything not matching is
// denied).
func NewPermissionFilter(denyGlobs, allowGlobs []string) *PermissionFilter {
	return &PermissionFilter{deny: denyGlobs, allow: allowGlobs}
}

// Restricted is the built-in sandbox preset denying Go's reflect and
// unsafe-adjacent packages, analogous to Commons JEXL's RESTRICTED
// permissions.
func Restricted() *PermissionFilter {
	return NewPermissionFilter([]string{"reflect.*", "unsafe.*", "os/exec.*", "syscall.*"}, nil)
}

// Denies reports whether name (a fully-qualified package.Type string) is
// blocked.
func (p *PermissionFilter) Denies(name string) bool {
	for _, g := range p.deny {
		if match.Match(name, g) {
			return true
		}
	}
	if len(p.allow) == 0 {
		return false
	}
	for _, g := range p.allow {
		if match.Match(name, g) {
			return false
		}
	}
	return true
}

// ResolveNamespaceMethod resolves a `prefix:method(args)` call target registered through
// a `jexl.namespace.<prefix>` pragma; it is a thin Uberspect-compatible
// wrapper over values.Namespace.
func ResolveNamespaceMethod(u *Uberspect, ns values.Namespace, name string, argc int) (MethodInvoker, error) {
	return u.Method(ns.Value, name, argc)
}
