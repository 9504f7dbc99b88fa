package jexl

import (
	"math/big"
	"reflect"
	"testing"

	jexlerrors "github.com/jexl-go/jexl/errors"
)

// mustEngine builds an engine with defaults, failing the test on error.
func mustEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// run parses src as a script and executes it against vars.
func run(t *testing.T, e *Engine, src string, vars map[string]any, args ...any) (any, error) {
	t.Helper()
	s, err := e.CreateScript(src)
	if err != nil {
		return nil, err
	}
	return s.Execute(NewMapContext(vars), args...)
}

func TestExpression_Literals(t *testing.T) {
	e := mustEngine(t)
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"int", "42", int64(42)},
		{"negative", "-42", int64(-42)},
		{"float", "1.5", 1.5},
		{"bool", "true", true},
		{"null", "null", nil},
		{"single quoted", "'abc'", "abc"},
		{"double quoted", `"abc"`, "abc"},
		{"escapes", `'a\tb'`, "a\tb"},
		{"addition", "40 + 2", int64(42)},
		{"precedence", "1 + 2 * 3", int64(7)},
		{"division", "10 / 3", int64(3)},
		{"modulo", "10 % 3", int64(1)},
		{"float widen", "1 + 0.5", 1.5},
		{"string concat", "'a' + 'b'", "ab"},
		{"mixed concat", "'n=' + 1", "n=1"},
		{"parens", "(1 + 2) * 3", int64(9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := e.CreateExpression(tt.src)
			if err != nil {
				t.Fatalf("CreateExpression(%q): %v", tt.src, err)
			}
			got, err := expr.Evaluate(NewMapContext(nil))
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tt.src, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Evaluate(%q) = %#v, want %#v", tt.src, got, tt.want)
			}
		})
	}
}

func TestExpression_IntegerWidening(t *testing.T) {
	e := mustEngine(t)

	expr, err := e.CreateExpression("9223372036854775807 + 1")
	if err != nil {
		t.Fatalf("CreateExpression: %v", err)
	}
	got, err := expr.Evaluate(NewMapContext(nil))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := new(big.Int)
	want.SetString("9223372036854775808", 10)
	bi, ok := got.(*big.Int)
	if !ok {
		t.Fatalf("got %T, want *big.Int", got)
	}
	if bi.Cmp(want) != 0 {
		t.Errorf("got %s, want %s", bi, want)
	}

	// A literal too wide for int64 parses straight to a big integer.
	expr2, err := e.CreateExpression("9223372036854775808")
	if err != nil {
		t.Fatalf("CreateExpression: %v", err)
	}
	got2, err := expr2.Evaluate(NewMapContext(nil))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if bi2, ok := got2.(*big.Int); !ok || bi2.Cmp(want) != 0 {
		t.Errorf("got %#v, want %s", got2, want)
	}
}

func TestExpression_ShiftPrecedence(t *testing.T) {
	e := mustEngine(t)
	expr, err := e.CreateExpression("40 + 2 << 1 + 1")
	if err != nil {
		t.Fatalf("CreateExpression: %v", err)
	}
	got, err := expr.Evaluate(NewMapContext(nil))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != int64((40+2)<<(1+1)) {
		t.Errorf("40 + 2 << 1 + 1 = %v, want %d", got, (40+2)<<(1+1))
	}
}

func TestExpression_ComparisonOperators(t *testing.T) {
	e := mustEngine(t)
	tests := []struct {
		src  string
		want bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 2", true},
		{"2 >= 3", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{"1 == 1.0", true},
		{"2 lt 3", true},
		{"3 le 3", true},
		{"4 gt 3", true},
		{"4 ge 5", false},
		{"1 eq 1", true},
		{"1 ne 2", true},
		{"'item2' < 'item10'", true}, // natural ordering
		{"'a' == 'a'", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := run(t, e, tt.src, nil)
			if err != nil {
				t.Fatalf("%q: %v", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("%q = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestExpression_StringCollectionOperators(t *testing.T) {
	e := mustEngine(t)
	tests := []struct {
		src  string
		want bool
	}{
		{"'foobar' =^ 'foo'", true},
		{"'foobar' =$ 'bar'", true},
		{"'foobar' !^ 'bar'", true},
		{"'foobar' !$ 'foo'", true},
		{"'abc' =~ 'a.c'", true},
		{"'abc' !~ 'x.z'", true},
		{"'abc' =~ ~/b+/", true},
		{"2 =~ [1, 2, 3]", true},
		{"5 =~ [1, 2, 3]", false},
		{"2 in {1, 2, 3}", true},
		{"'k' =~ {'k': 1}", true},
		{"5 in 1..10", true},
		{"11 in 1..10", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := run(t, e, tt.src, nil)
			if err != nil {
				t.Fatalf("%q: %v", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("%q = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestExpression_TernaryElvisCoalesce(t *testing.T) {
	e := mustEngine(t)
	tests := []struct {
		src  string
		vars map[string]any
		want any
	}{
		{"true ? 1 : 2", nil, int64(1)},
		{"false ? 1 : 2", nil, int64(2)},
		{"x ?: 42", map[string]any{"x": nil}, int64(42)},
		{"x ?: 42", map[string]any{"x": int64(7)}, int64(7)},
		{"x ?: 42", map[string]any{"x": ""}, int64(42)},
		{"x ?? 42", map[string]any{"x": nil}, int64(42)},
		{"x ?? 42", map[string]any{"x": int64(0)}, int64(0)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := run(t, e, tt.src, tt.vars)
			if err != nil {
				t.Fatalf("%q: %v", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("%q = %#v, want %#v", tt.src, got, tt.want)
			}
		})
	}
}

func TestExpression_Casts(t *testing.T) {
	e := mustEngine(t)
	tests := []struct {
		src  string
		want any
	}{
		{"(int)3.7", int64(3)},
		{"(long)true", int64(1)},
		{"(double)2", float64(2)},
		{"(boolean)null", false},
		{"(int)null", int64(0)},
		{"(boolean)'false'", false},
		{"(boolean)'yes'", true},
		{"(string)42", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := run(t, e, tt.src, nil)
			if err != nil {
				t.Fatalf("%q: %v", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("%q = %#v, want %#v", tt.src, got, tt.want)
			}
		})
	}
}

func TestExpression_TemplateString(t *testing.T) {
	e := mustEngine(t)
	got, err := run(t, e, "`a${x}b${x + 1}`", map[string]any{"x": int64(3)})
	if err != nil {
		t.Fatalf("template string: %v", err)
	}
	if got != "a3b4" {
		t.Errorf("got %q, want %q", got, "a3b4")
	}
}

func TestExpression_StructuredLiterals(t *testing.T) {
	e := mustEngine(t)
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"array index", "[10, 20, 30][1]", int64(20)},
		{"array size", "size([1, 2, 3])", int64(3)},
		{"set dedups", "size({1, 2, 2, 3})", int64(3)},
		{"map access", "var m = {'a': 1, 'b': 2}; m['b']", int64(2)},
		{"trailing comma", "size([1, 2, 3,])", int64(3)},
		{"spread array", "size([0, ...[1, 2], 3])", int64(4)},
		{"null spreads empty", "size([...x])", int64(0)},
		{"range size", "size(1..10)", int64(10)},
		{"empty string", "empty('')", true},
		{"empty zero", "empty(0)", true},
		{"empty list", "empty([1])", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, e, tt.src, map[string]any{"x": nil})
			if err != nil {
				t.Fatalf("%q: %v", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("%q = %#v, want %#v", tt.src, got, tt.want)
			}
		})
	}
}

func TestExpression_MapSpread(t *testing.T) {
	e := mustEngine(t)
	vars := map[string]any{"base": map[string]any{"a": int64(1), "b": int64(2)}}
	got, err := run(t, e, "var m = {*: base, 'c': 3}; size(m)", vars)
	if err != nil {
		t.Fatalf("map spread: %v", err)
	}
	if got != int64(3) {
		t.Errorf("size = %v, want 3", got)
	}
}

func TestExpression_SafeNavigation(t *testing.T) {
	e := mustEngine(t)
	tests := []struct {
		name string
		src  string
		vars map[string]any
	}{
		{"safe member", "a?.b", map[string]any{"a": nil}},
		{"safe chain", "a?.b?.c", map[string]any{"a": nil}},
		{"safe index", "a?[0]", map[string]any{"a": nil}},
		{"safe call", "a?.run()", map[string]any{"a": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, e, tt.src, tt.vars)
			if err != nil {
				t.Fatalf("%q: %v", tt.src, err)
			}
			if got != nil {
				t.Errorf("%q = %#v, want nil", tt.src, got)
			}
		})
	}
}

func TestExpression_StrictNullDeref(t *testing.T) {
	e := mustEngine(t)
	_, err := run(t, e, "a.b", map[string]any{"a": nil})
	if err == nil {
		t.Fatal("expected Property error on null dereference")
	}
	je := asJexlError(t, err)
	if je.Kind() != jexlerrors.Property {
		t.Errorf("kind = %s, want Property", je.Kind())
	}
}

func TestExpression_UndefinedVariable(t *testing.T) {
	e := mustEngine(t)
	_, err := run(t, e, "nope + 1", nil)
	if err == nil {
		t.Fatal("expected Variable error")
	}
	je := asJexlError(t, err)
	if je.Kind() != jexlerrors.Variable {
		t.Errorf("kind = %s, want Variable", je.Kind())
	}
	if !je.IsUndefined() {
		t.Error("IsUndefined() = false, want true")
	}
	if je.Symbol() != "nope" {
		t.Errorf("symbol = %q, want %q", je.Symbol(), "nope")
	}
}

func TestExpression_SafeOption(t *testing.T) {
	opts := DefaultOptions()
	opts.Safe = true
	e := mustEngine(t, WithOptions(opts))
	got, err := run(t, e, "a.b.c", map[string]any{"a": nil})
	if err != nil {
		t.Fatalf("safe option: %v", err)
	}
	if got != nil {
		t.Errorf("got %#v, want nil", got)
	}
}

func TestExpression_NullAdd(t *testing.T) {
	// Add is a lenient operator: null + 'x' yields 'x' even in strict mode.
	e := mustEngine(t)
	got, err := run(t, e, "x + 'x'", map[string]any{"x": nil})
	if err != nil {
		t.Fatalf("null add: %v", err)
	}
	if got != "x" {
		t.Errorf("got %#v, want %q", got, "x")
	}
}

func TestExpressionOnly_RejectsStatements(t *testing.T) {
	e := mustEngine(t)
	if _, err := e.CreateExpression("var x = 1"); err == nil {
		t.Fatal("expected expression-only parse to reject a declaration")
	}
}

func asJexlError(t *testing.T, err error) *jexlerrors.JexlError {
	t.Helper()
	je, ok := err.(*jexlerrors.JexlError)
	if !ok {
		t.Fatalf("error is %T, want *jexlerrors.JexlError: %v", err, err)
	}
	return je
}
