package jexl

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/jexl-go/jexl/internal/ast"
	"github.com/jexl-go/jexl/internal/parser"
	"github.com/jexl-go/jexl/internal/printer"
	"github.com/jexl-go/jexl/internal/uberspect"
)

// JxltEngine is the template engine layered on the expression engine: text
// interleaved with `${expr}` (immediate) and `#{expr}` (deferred)
// interpolations, plus whole script lines introduced by a prefix (`$$` by
// default). Parsed templates share the engine's cache.
type JxltEngine struct {
	engine *Engine
	prefix string
}

// CreateJxltEngine builds a template engine with the standard `$$` script
// prefix.
func (e *Engine) CreateJxltEngine() *JxltEngine {
	return &JxltEngine{engine: e, prefix: "$$"}
}

// CreateJxltEngineWithPrefix builds a template engine with a custom script
// prefix.
func (e *Engine) CreateJxltEngineWithPrefix(prefix string) *JxltEngine {
	if prefix == "" {
		prefix = "$$"
	}
	return &JxltEngine{engine: e, prefix: prefix}
}

// Hidden parameters threaded through every generated template script. The
// writer receives each rendered chunk; the deferrer re-evaluates a
// `#{...}` result as an expression.
const (
	writerParam = "__jxlt_write"
	deferParam  = "__jxlt_defer"
)

// Template is a compiled template. It is immutable and safe to Evaluate
// concurrently.
type Template struct {
	jxlt   *JxltEngine
	name   string
	source string
	root   *ast.Script
	params []string
}

// CreateTemplate compiles source under name (carried into error origins and
// line numbers). params declare template arguments bound positionally by
// Evaluate.
func (j *JxltEngine) CreateTemplate(name, source string, params ...string) (*Template, error) {
	generated := j.generate(source)
	key := cacheKey("t", generated, params)
	if v, ok := j.engine.cache.Get(key); ok {
		return &Template{jxlt: j, name: name, source: source, root: v.(*ast.Script), params: params}, nil
	}
	root, errs := parser.ParseScript(generated, name, j.engine.feats)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	declared := append([]string{writerParam, deferParam}, params...)
	root.Params = make([]ast.Param, len(declared))
	for i, p := range declared {
		root.Params[i] = ast.Param{Name: p}
	}
	j.engine.cache.Put(key, root)
	return &Template{jxlt: j, name: name, source: source, root: root, params: params}, nil
}

// generate rewrites template source into a script, one generated line per
// template line so error line numbers keep pointing into the template.
// Literal and interpolated chunks become calls on the hidden writer
// parameter; prefix lines pass through as plain statements.
func (j *JxltEngine) generate(source string) string {
	lines := strings.Split(source, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, j.prefix) {
			b.WriteString(strings.TrimPrefix(trimmed, j.prefix))
			continue
		}
		hasNewline := i < len(lines)-1
		b.WriteString(generateWriteLine(line, hasNewline))
	}
	return b.String()
}

// generateWriteLine turns one literal template line into a writer call,
// splitting out `${...}` and `#{...}` spans.
func generateWriteLine(line string, trailingNewline bool) string {
	var (
		argsOut []string
		lit     strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			argsOut = append(argsOut, "'"+escapeTemplateLiteral(lit.String())+"'")
			lit.Reset()
		}
	}
	i := 0
	for i < len(line) {
		if i+1 < len(line) && (line[i] == '$' || line[i] == '#') && line[i+1] == '{' {
			deferred := line[i] == '#'
			depth := 1
			j := i + 2
			for j < len(line) && depth > 0 {
				switch line[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth == 0 {
					break
				}
				j++
			}
			expr := line[i+2 : j]
			flush()
			if deferred {
				argsOut = append(argsOut, deferParam+"("+expr+")")
			} else {
				argsOut = append(argsOut, expr)
			}
			if j < len(line) {
				i = j + 1
			} else {
				i = j
			}
			continue
		}
		lit.WriteByte(line[i])
		i++
	}
	if trailingNewline {
		lit.WriteString("\n")
	}
	flush()
	if len(argsOut) == 0 {
		return ""
	}
	return writerParam + "(" + strings.Join(argsOut, ", ") + ");"
}

// escapeTemplateLiteral escapes literal text into a single-quoted JEXL
// string body.
func escapeTemplateLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// templateFn adapts a Go closure into a script-callable value for the hidden
// writer/deferrer parameters.
type templateFn struct {
	fn func(args []any) (any, error)
}

func (t *templateFn) Call(args []any) (any, error) { return t.fn(args) }
func (t *templateFn) Arity() int                   { return -1 }

// Evaluate renders the template against ctx into w, binding args to the
// template's declared parameters.
func (t *Template) Evaluate(ctx Context, w io.Writer, args ...any) error {
	if ctx == nil {
		ctx = NewMapContext(nil)
	}
	write := &templateFn{fn: func(args []any) (any, error) {
		for _, a := range args {
			if _, err := io.WriteString(w, renderValue(a)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}}
	deferred := &templateFn{fn: func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("deferred interpolation takes one value")
		}
		src, ok := args[0].(string)
		if !ok {
			return args[0], nil
		}
		expr, err := t.jxlt.engine.CreateExpression(src)
		if err != nil {
			return nil, err
		}
		return expr.Evaluate(ctx)
	}}

	it := t.jxlt.engine.interpreter(ctx)
	restore := uberspect.SetCurrentEngine(&threadState{engine: t.jxlt.engine, ctx: ctx})
	defer restore()
	callArgs := append([]any{write, deferred}, args...)
	_, err := it.ExecuteScript(t.root, callArgs)
	return err
}

// EvaluateToString renders the template to a string.
func (t *Template) EvaluateToString(ctx Context, args ...any) (string, error) {
	var b strings.Builder
	err := t.Evaluate(ctx, &b, args...)
	return b.String(), err
}

// Name returns the template's name as carried into error origins.
func (t *Template) Name() string { return t.name }

// Source returns the original template text.
func (t *Template) Source() string { return t.source }

// ParsedText reconstructs the generated script from its AST, for
// diagnostics.
func (t *Template) ParsedText() string { return printer.Print(t.root) }

// renderValue writes a value the way interpolation shows it: no Go-isms
// like "<nil>".
func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *big.Int:
		return t.String()
	case *big.Float:
		return t.Text('g', -1)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
