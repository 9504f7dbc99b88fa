package parser

import (
	"strings"
	"testing"

	jexlerrors "github.com/jexl-go/jexl/errors"
	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/internal/features"
)

func parseScript(t *testing.T, src string) *ast.Script {
	t.Helper()
	root, errs := ParseScript(src, "test", features.Default())
	if len(errs) > 0 {
		t.Fatalf("ParseScript(%q): %v", src, errs[0])
	}
	return root
}

func firstError(src string, feats features.Set) *jexlerrors.JexlError {
	_, errs := ParseScript(src, "test", feats)
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

func TestParseScript_Accepts(t *testing.T) {
	sources := []string{
		"1 + 2",
		"var x = 1; x",
		"let y = 2; const z = 3;",
		"if (a) b; else c;",
		"while (x < 10) x = x + 1;",
		"do x = x + 1; while (x < 10);",
		"for (var i = 0; i < 10; i = i + 1) s = s + i;",
		"for (var x : items) total = total + x;",
		"for(;;) break",
		"(a, b) -> a + b",
		"function(a) { return a; }",
		"(a) => a + 1",
		"new(Point, 1, 2)",
		"new Point(1, 2)",
		"[1, 2, 3]",
		"size({1, 2, 3})",
		"var m = {'k': 1, 'j': 2,}",
		"var m = {*: base, 'k': 1}",
		"x?.y?.z",
		"x?[0]",
		"a.b.c = 42",
		"(x, y) = [1, 2]",
		"x += 1; x -= 1; x *= 2; x /= 2; x %= 2; x &= 1; x |= 1; x ^= 1; x <<= 1; x >>= 1; x >>>= 1;",
		"@synchronized { x; }",
		"@timeout(100, -1) { while(true); }",
		"#pragma jexl.silent true\n42",
		"`tpl ${x} txt`",
		"~/ab+c/",
		"x.`c${a}ss`",
		"a in b",
		"1 eq 1 && 2 ne 3 && 1 lt 2 && 2 le 2 && 3 gt 2 && 3 ge 3",
		"x++ ; --x",
		"(int)x + (boolean)y",
		"f(...args)",
		"new(Point, ...args)",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			parseScript(t, src)
		})
	}
}

func TestParseScript_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		keyword string
	}{
		{"remove outside loop", "remove;", "remove"},
		{"break outside loop", "break;", "break"},
		{"continue outside loop", "continue;", "continue"},
		{"unclosed paren", "(1 + 2", ""},
		{"bad ternary", "a ? b", ""},
		{"dangling operator", "1 +", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := firstError(tt.src, features.Default())
			if err == nil {
				t.Fatalf("ParseScript(%q) succeeded, want error", tt.src)
			}
			if tt.keyword != "" && !strings.Contains(err.Error(), tt.keyword) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.keyword)
			}
		})
	}
}

func TestParseScript_FeatureGates(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		disable features.Flag
		feature string
	}{
		{"loops/while", "while (true) x;", features.Loops, "loops"},
		{"loops/for", "for(;;) break", features.Loops, "loops"},
		{"lambda", "(a) -> a", features.Lambda, "lambda"},
		{"fat arrow", "(a) => a", features.FatArrow, "fatArrow"},
		{"new instance", "new(Point)", features.NewInstance, "newInstance"},
		{"structured literal", "[1, 2]", features.StructuredLiteral, "structuredLiteral"},
		{"array reference", "a[0]", features.ArrayReferenceExpr, "arrayReferenceExpr"},
		{"method call", "a.b()", features.MethodCall, "methodCall"},
		{"local var", "var x = 1", features.LocalVar, "localVar"},
		{"annotation", "@silent x", features.Annotation, "annotation"},
		{"pragma", "#pragma jexl.silent true\n1", features.Pragma, "pragma"},
		{"pragma anywhere", "1;\n#pragma jexl.silent true\n2", features.PragmaAnywhere, "pragmaAnywhere"},
		{"namespace pragma", "#pragma jexl.namespace.ns com.x.Y\n1", features.NamespacePragma, "namespacePragma"},
		{"import pragma", "#pragma jexl.import com.x\n1", features.ImportPragma, "importPragma"},
		{"side effect", "x = 1", features.SideEffect, "sideEffect"},
		{"script", "var x = 1; x", features.Script, "script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := firstError(tt.src, features.Default().Without(tt.disable))
			if err == nil {
				t.Fatalf("expected Feature error for %q", tt.src)
			}
			if err.Kind() != jexlerrors.Feature {
				t.Fatalf("kind = %s, want Feature (%v)", err.Kind(), err)
			}
			if err.Symbol() != tt.feature {
				t.Errorf("feature symbol = %q, want %q", err.Symbol(), tt.feature)
			}
		})
	}
}

func TestParseScript_SideEffectGlobal(t *testing.T) {
	feats := features.Default().Without(features.SideEffectGlobal)
	// Local-shaped targets stay legal.
	if err := firstError("x = 1", feats); err != nil {
		t.Fatalf("local assignment rejected: %v", err)
	}
	err := firstError("a[0] = 1", feats)
	if err == nil {
		t.Fatal("expected Feature error for non-local assignment")
	}
	if err.Symbol() != "sideEffectGlobal" {
		t.Errorf("feature symbol = %q, want sideEffectGlobal", err.Symbol())
	}
}

func TestParseScript_ReservedNames(t *testing.T) {
	feats := features.Default().WithReserved("engine")
	err := firstError("var engine = 1", feats)
	if err == nil {
		t.Fatal("expected reserved-name declaration to fail")
	}
	if !strings.Contains(err.Error(), "engine") {
		t.Errorf("error %q does not mention the reserved name", err.Error())
	}
	// Reserved names target declarations only; reads are untouched.
	if err := firstError("engine + 1", feats); err != nil {
		t.Fatalf("reserved name read rejected: %v", err)
	}
}

func TestParseScript_FeatureMonotonicity(t *testing.T) {
	// Anything that parses under a reduced feature set parses under the
	// default superset.
	reduced := features.New(features.Script | features.SideEffect | features.SideEffectGlobal | features.LocalVar)
	sources := []string{"var x = 1; x", "x = 2", "1 + 2"}
	for _, src := range sources {
		if _, errs := ParseScript(src, "t", reduced); len(errs) > 0 {
			t.Fatalf("%q did not parse under the reduced set: %v", src, errs[0])
		}
		if _, errs := ParseScript(src, "t", features.Default()); len(errs) > 0 {
			t.Errorf("%q parses under a subset but not the default superset: %v", src, errs[0])
		}
	}
	if !features.Default().Superset(reduced) {
		t.Error("default is not a superset of the reduced set")
	}
}

func TestParseScript_Pragmas(t *testing.T) {
	root := parseScript(t, "#pragma jexl.namespace.ns com.host.Thing\n#pragma script.mode pro50\n42")
	if len(root.Pragmas) != 2 {
		t.Fatalf("pragmas = %d, want 2", len(root.Pragmas))
	}
	if root.Pragmas[0].Key != "jexl.namespace.ns" {
		t.Errorf("key = %q, want jexl.namespace.ns", root.Pragmas[0].Key)
	}
	if root.Pragmas[1].Key != "script.mode" {
		t.Errorf("key = %q, want script.mode", root.Pragmas[1].Key)
	}
}

func TestParseScript_AntishCollection(t *testing.T) {
	root := parseScript(t, "a.b.c")
	es, ok := root.Body[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("statement is %T", root.Body[0])
	}
	ai, ok := es.X.(*ast.AntishIdent)
	if !ok {
		t.Fatalf("expression is %T, want *ast.AntishIdent", es.X)
	}
	if strings.Join(ai.Segments, ".") != "a.b.c" {
		t.Errorf("segments = %v", ai.Segments)
	}
}

func TestParseScript_KeywordAfterDot(t *testing.T) {
	// Keywords are accepted as member names after a dot.
	parseScript(t, "x.new")
	parseScript(t, "x.if")
}

func TestParseExpression_RejectsTrailing(t *testing.T) {
	_, errs := ParseExpression("1 + 2; 3", "t", features.Default())
	if len(errs) == 0 {
		t.Fatal("expected trailing-token error in expression-only parse")
	}
}

func TestParseScript_ErrorPositions(t *testing.T) {
	err := firstError("1 +\n  *", features.Default())
	if err == nil {
		t.Fatal("expected parse error")
	}
	if err.Origin().Name != "test" {
		t.Errorf("origin name = %q, want test", err.Origin().Name)
	}
	if err.Origin().Line != 2 {
		t.Errorf("origin line = %d, want 2", err.Origin().Line)
	}
}
