// Package features implements the JEXL parse-time capability gate: a set of
// bit flags that the parser consults to accept or reject constructs before
// any evaluation takes place. Feature checks are pure predicates — they
// reject, they never rewrite a program.
package features

// Flag identifies a single gated capability.
type Flag uint64

const (
	Register Flag = 1 << iota
	ReservedNames
	LocalVar
	SideEffect
	SideEffectGlobal
	Lexical
	LexicalShade
	Loops
	Lambda
	NewInstance
	MethodCall
	StructuredLiteral
	ArrayReferenceExpr
	Pragma
	PragmaAnywhere
	Annotation
	Script
	ComparatorNames
	FatArrow
	NamespacePragma
	ImportPragma
	ConstCapture
	AmbiguousStatement
)

var allNames = map[Flag]string{
	Register: "register", ReservedNames: "reservedNames", LocalVar: "localVar",
	SideEffect: "sideEffect", SideEffectGlobal: "sideEffectGlobal", Lexical: "lexical",
	LexicalShade: "lexicalShade", Loops: "loops", Lambda: "lambda", NewInstance: "newInstance",
	MethodCall: "methodCall", StructuredLiteral: "structuredLiteral",
	ArrayReferenceExpr: "arrayReferenceExpr", Pragma: "pragma", PragmaAnywhere: "pragmaAnywhere",
	Annotation: "annotation", Script: "script", ComparatorNames: "comparatorNames",
	FatArrow: "fatArrow", NamespacePragma: "namespacePragma", ImportPragma: "importPragma",
	ConstCapture: "constCapture", AmbiguousStatement: "ambiguousStatement",
}

func (f Flag) String() string {
	if n, ok := allNames[f]; ok {
		return n
	}
	return "unknown"
}

// defaultSet mirrors the reference engine defaults: everything permissive
// except reservedNames (empty set) and constCapture, which defaults on.
const defaultSet = Register | LocalVar | SideEffect | SideEffectGlobal | Loops |
	Lambda | NewInstance | MethodCall | StructuredLiteral | ArrayReferenceExpr |
	Pragma | PragmaAnywhere | Annotation | Script | ComparatorNames | FatArrow |
	NamespacePragma | ImportPragma | ConstCapture | AmbiguousStatement

// Set is an immutable collection of enabled flags plus a reserved-name list.
type Set struct {
	enabled  Flag
	reserved map[string]struct{}
}

// Default returns the engine's default feature set.
func Default() Set {
	return Set{enabled: defaultSet}
}

// New builds a Set from explicit flags, replacing the defaults entirely.
func New(enabled Flag) Set {
	return Set{enabled: enabled}
}

// Has reports whether flag is enabled.
func (s Set) Has(flag Flag) bool { return s.enabled&flag != 0 }

// With returns a copy of s with flag turned on.
func (s Set) With(flag Flag) Set {
	s.enabled |= flag
	return s
}

// Without returns a copy of s with flag turned off.
func (s Set) Without(flag Flag) Set {
	s.enabled &^= flag
	return s
}

// WithReserved returns a copy of s whose reserved-name set is names.
// Reserved names are rejected only as var/let/const declaration names;
// lambda parameters and for-each loop variables are not checked, and using
// reserved names inside other expressions is unaffected.
func (s Set) WithReserved(names ...string) Set {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	s.reserved = m
	return s
}

// IsReserved reports whether name may not be used as a declaration target.
func (s Set) IsReserved(name string) bool {
	if s.reserved == nil {
		return false
	}
	_, ok := s.reserved[name]
	return ok
}

// Superset reports whether s contains every flag enabled in other, and every
// reserved name in other — i.e. s ⊇ other. Used to state and test the
// feature-monotonicity property: anything that parses under other
// parses under any superset.
func (s Set) Superset(other Set) bool {
	if other.enabled&^s.enabled != 0 {
		return false
	}
	for n := range other.reserved {
		if !s.IsReserved(n) {
			return false
		}
	}
	return true
}
