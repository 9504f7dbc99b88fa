// Package errors defines the typed error kinds raised by the JEXL pipeline.
//
// Errors are kinds, not ad hoc strings: every failure mode named in the
// language specification (parsing, feature gating, variable resolution,
// property/method dispatch, operator overload search, annotations,
// cancellation, assignment) has a dedicated kind here so that host code can
// branch on `errors.As` / `Kind()` instead of substring-matching messages.
package errors

import "fmt"

// Kind identifies the taxonomy of a JexlError.
type Kind int

const (
	// Parsing indicates the source text could not be parsed.
	Parsing Kind = iota
	// Ambiguous indicates the grammar matched more than one production.
	Ambiguous
	// Feature indicates a construct was rejected by the feature gate.
	Feature
	// Variable indicates an identifier could not be resolved.
	Variable
	// Property indicates a member access failed.
	Property
	// Method indicates a method/constructor/iterator resolution failed.
	Method
	// Operator indicates an operator could not be evaluated for its operands.
	Operator
	// Annotation indicates an annotation could not be processed.
	Annotation
	// Cancel indicates evaluation was cooperatively cancelled.
	Cancel
	// Assignment indicates an illegal write (e.g. to a const slot).
	Assignment
	// InternalBug indicates a defect in the implementation itself.
	InternalBug
)

func (k Kind) String() string {
	switch k {
	case Parsing:
		return "Parsing"
	case Ambiguous:
		return "Ambiguous"
	case Feature:
		return "Feature"
	case Variable:
		return "Variable"
	case Property:
		return "Property"
	case Method:
		return "Method"
	case Operator:
		return "Operator"
	case Annotation:
		return "Annotation"
	case Cancel:
		return "Cancel"
	case Assignment:
		return "Assignment"
	case InternalBug:
		return "InternalBug"
	default:
		return "Unknown"
	}
}

// Origin is the source location an error is attributed to.
type Origin struct {
	Name   string // source/template name, may be empty
	Line   int
	Column int
}

func (o Origin) String() string {
	if o.Name == "" {
		return fmt.Sprintf("line %d, column %d", o.Line, o.Column)
	}
	return fmt.Sprintf("%s:%d:%d", o.Name, o.Line, o.Column)
}

// JexlError is the single concrete error type produced by this module.
// Host code distinguishes failures by Kind, not by type assertion on a
// family of exception types.
type JexlError struct {
	kind   Kind
	origin Origin
	detail string // human-readable detail, should mention the offending symbol
	symbol string // offending name/operator/annotation, when applicable
	wrapped error
}

// New creates a JexlError of the given kind with a formatted detail message.
func New(kind Kind, origin Origin, format string, args ...any) *JexlError {
	return &JexlError{kind: kind, origin: origin, detail: fmt.Sprintf(format, args...)}
}

// WithSymbol attaches the offending name/operator/annotation to the error.
func (e *JexlError) WithSymbol(symbol string) *JexlError {
	e.symbol = symbol
	return e
}

// WithWrapped attaches an underlying cause for errors.Unwrap.
func (e *JexlError) WithWrapped(cause error) *JexlError {
	e.wrapped = cause
	return e
}

// Kind reports the error's taxonomy.
func (e *JexlError) Kind() Kind { return e.kind }

// Origin reports where the error occurred.
func (e *JexlError) Origin() Origin { return e.origin }

// Symbol reports the offending identifier/operator/annotation name, if any.
func (e *JexlError) Symbol() string { return e.symbol }

// IsUndefined reports whether a Variable error is "undefined" as opposed to
// some other variable-resolution failure.
func (e *JexlError) IsUndefined() bool { return e.kind == Variable && e.detail == undefinedDetail }

const undefinedDetail = "undefined variable"

// Undefined builds a Variable error flagged as "undefined" rather than some
// other resolution failure (e.g. a const/read-before-declaration error).
func Undefined(origin Origin, name string) *JexlError {
	return New(Variable, origin, "%s", undefinedDetail).WithSymbol(name)
}

func (e *JexlError) Error() string {
	sym := e.symbol
	if sym != "" {
		return fmt.Sprintf("%s: %s: %s (%s)", e.kind, e.detail, sym, e.origin)
	}
	return fmt.Sprintf("%s: %s (%s)", e.kind, e.detail, e.origin)
}

func (e *JexlError) Unwrap() error { return e.wrapped }

// Is supports errors.Is(err, SentinelKind) style checks against a bare Kind
// wrapped in a JexlError with no detail, by comparing kinds.
func (e *JexlError) Is(target error) bool {
	other, ok := target.(*JexlError)
	if !ok {
		return false
	}
	return e.kind == other.kind
}

// Sentinel returns a zero-detail JexlError usable with errors.Is to test
// only the kind of an error, e.g. errors.Is(err, errors.Sentinel(errors.Cancel)).
func Sentinel(kind Kind) *JexlError { return &JexlError{kind: kind} }
