package printer

import (
	"testing"

	"github.com/jexl-go/jexl/internal/features"
	"github.com/jexl-go/jexl/internal/parser"
)

// TestPrintRoundTrip checks the printer's defining property: printing a
// parse and re-parsing the result reaches a fixed point, i.e. the second
// print equals the first.
func TestPrintRoundTrip(t *testing.T) {
	sources := []string{
		"1 + 2 * 3",
		"(1 + 2) * 3",
		"40 + 2 << 1 + 1",
		"var x = 1; x + 2",
		"let y = 'abc'; const z = true;",
		"if (a < b) { x = 1; } else { x = 2; }",
		"while (i < 10) i = i + 1;",
		"do i = i + 1; while (i < 10);",
		"for (var i = 0; i < 10; i = i + 1) s = s + i;",
		"for (var x : items) { if (x == null) continue; n = n + 1; }",
		"for(;;) break",
		"(a, b) -> a + b",
		"(a) => a * 2",
		"var f = function(n) { return n * n; };",
		"x?.y?.z",
		"m?['k']",
		"a.b.c = 42",
		"(x, y) = [40, 2]",
		"x += 1",
		"i++",
		"--i",
		"!done && ready || x == 1",
		"t ? 'yes' : 'no'",
		"v ?: fallback",
		"v ?? fallback",
		"[1, 2, 3]",
		"size({1, 2, 3})",
		"var m = {'k': 1, 'j': [1, 2]};",
		"1..10",
		"x =~ ~/a+b/",
		"'s' =^ 'p' && 's' =$ 'q'",
		"2 in {1, 2}",
		"(int)x",
		"new(Point, 1, 2)",
		"@synchronized { x = 1; }",
		"@timeout(100, -1) { work(); }",
		"`a${x}b`",
		"f(...args)",
		"-x + +y",
		"~bits",
		"null",
		"return 42;",
	}
	feats := features.Default()
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			first, errs := parser.ParseScript(src, "rt", feats)
			if len(errs) > 0 {
				t.Fatalf("parse: %v", errs[0])
			}
			printed := Print(first)
			second, errs := parser.ParseScript(printed, "rt2", feats)
			if len(errs) > 0 {
				t.Fatalf("reparse of %q: %v", printed, errs[0])
			}
			reprinted := Print(second)
			if printed != reprinted {
				t.Errorf("round trip diverged:\nfirst:  %q\nsecond: %q", printed, reprinted)
			}
		})
	}
}

func TestPrintPragma(t *testing.T) {
	root, errs := parser.ParseScript("#pragma jexl.namespace.ns com.host.Thing\n42", "p", features.Default())
	if len(errs) > 0 {
		t.Fatalf("parse: %v", errs[0])
	}
	printed := Print(root)
	second, errs := parser.ParseScript(printed, "p2", features.Default())
	if len(errs) > 0 {
		t.Fatalf("reparse of %q: %v", printed, errs[0])
	}
	if len(second.Pragmas) != 1 || second.Pragmas[0].Key != "jexl.namespace.ns" {
		t.Errorf("pragma lost in round trip: %q", printed)
	}
}
