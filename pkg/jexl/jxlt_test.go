package jexl

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	jexlerrors "github.com/jexl-go/jexl/errors"
)

func TestJxlt_ImmediateInterpolation(t *testing.T) {
	e := mustEngine(t)
	jxlt := e.CreateJxltEngine()
	tmpl, err := jxlt.CreateTemplate("greet", "Hello ${who}!")
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	got, err := tmpl.EvaluateToString(NewMapContext(map[string]any{"who": "world"}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != "Hello world!" {
		t.Errorf("got %q, want %q", got, "Hello world!")
	}
}

func TestJxlt_ScriptLines(t *testing.T) {
	e := mustEngine(t)
	jxlt := e.CreateJxltEngine()
	source := strings.Join([]string{
		"Items:",
		"$$ for (var i : 1..3) {",
		" - item ${i}",
		"$$ }",
		"Done.",
	}, "\n")
	tmpl, err := jxlt.CreateTemplate("items", source)
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	got, err := tmpl.EvaluateToString(NewMapContext(nil))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := "Items:\n - item 1\n - item 2\n - item 3\nDone."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestJxlt_DeferredInterpolation(t *testing.T) {
	e := mustEngine(t)
	jxlt := e.CreateJxltEngine()
	tmpl, err := jxlt.CreateTemplate("deferred", "value: #{rule}")
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	// The deferred expression's value is itself an expression, re-evaluated
	// against the same context.
	ctx := NewMapContext(map[string]any{
		"rule": "a + b",
		"a":    int64(40),
		"b":    int64(2),
	})
	got, err := tmpl.EvaluateToString(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != "value: 42" {
		t.Errorf("got %q, want %q", got, "value: 42")
	}

	// Re-evaluation picks up context changes.
	if err := ctx.Set("b", int64(60)); err != nil {
		t.Fatal(err)
	}
	got, err = tmpl.EvaluateToString(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != "value: 100" {
		t.Errorf("got %q, want %q", got, "value: 100")
	}
}

func TestJxlt_TemplateParameters(t *testing.T) {
	e := mustEngine(t)
	jxlt := e.CreateJxltEngine()
	tmpl, err := jxlt.CreateTemplate("param", "${greeting}, ${name}!", "greeting", "name")
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	got, err := tmpl.EvaluateToString(NewMapContext(nil), "Hi", "ada")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != "Hi, ada!" {
		t.Errorf("got %q, want %q", got, "Hi, ada!")
	}
}

func TestJxlt_ParseErrorKeepsTemplateLine(t *testing.T) {
	e := mustEngine(t)
	jxlt := e.CreateJxltEngine()
	source := "line one\nline two\nline three\n${ 1 + }\n"
	_, err := jxlt.CreateTemplate("broken.jxlt", source)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	je, ok := err.(*jexlerrors.JexlError)
	if !ok {
		t.Fatalf("error is %T, want *jexlerrors.JexlError", err)
	}
	if je.Origin().Name != "broken.jxlt" {
		t.Errorf("origin name = %q, want broken.jxlt", je.Origin().Name)
	}
	if je.Origin().Line != 4 {
		t.Errorf("origin line = %d, want 4", je.Origin().Line)
	}
}

func TestJxlt_EscapedQuotesInLiterals(t *testing.T) {
	e := mustEngine(t)
	jxlt := e.CreateJxltEngine()
	tmpl, err := jxlt.CreateTemplate("quote", "it's ${x}'s")
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	got, err := tmpl.EvaluateToString(NewMapContext(map[string]any{"x": "ada"}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != "it's ada's" {
		t.Errorf("got %q, want %q", got, "it's ada's")
	}
}

func TestJxlt_SharesEngineCache(t *testing.T) {
	e := mustEngine(t)
	jxlt := e.CreateJxltEngine()
	before := e.CacheLen()
	for i := 0; i < 3; i++ {
		if _, err := jxlt.CreateTemplate("cached", "v=${x}"); err != nil {
			t.Fatalf("CreateTemplate: %v", err)
		}
	}
	if e.CacheLen() != before+1 {
		t.Errorf("cache len = %d, want %d", e.CacheLen(), before+1)
	}
}

func TestJxlt_ReportRendering(t *testing.T) {
	e := mustEngine(t)
	jxlt := e.CreateJxltEngine()
	source := strings.Join([]string{
		"Report for ${user.name}",
		"$$ var total = 0;",
		"$$ for (var item : items) {",
		"  ${item.label}: ${item.price}",
		"$$   total = total + item.price;",
		"$$ }",
		"total: ${total}",
	}, "\n")
	tmpl, err := jxlt.CreateTemplate("report.jxlt", source)
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	ctx := NewMapContext(map[string]any{
		"user": map[string]any{"name": "ada"},
		"items": []any{
			map[string]any{"label": "widget", "price": int64(12)},
			map[string]any{"label": "gadget", "price": int64(30)},
		},
	})
	got, err := tmpl.EvaluateToString(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	snaps.MatchSnapshot(t, got)
}
