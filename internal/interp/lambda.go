package interp

import (
	jexlerrors "github.com/jexl-go/jexl/errors"
	"github.com/jexl-go/jexl/internal/ast"
)

// closure implements values.Lambda: a lambda literal paired with the
// defining environment it closes over, so nested lambdas see the locals of
// their enclosing call frame even after that frame's own evalStmt returns.
type closure struct {
	it      *Interpreter
	node    *ast.Lambda
	capture *env
	shaded  map[string]bool
}

func (it *Interpreter) makeClosure(n *ast.Lambda) *closure {
	f := it.frame()
	shaded := make(map[string]bool, len(f.shaded))
	for k := range f.shaded {
		shaded[k] = true
	}
	return &closure{it: it, node: n, capture: f.top, shaded: shaded}
}

// Arity reports the lambda's declared parameter count.
func (c *closure) Arity() int { return len(c.node.Params) }

// Call invokes the closure with positional arguments, missing trailing
// arguments binding to null.
func (c *closure) Call(args []any) (any, error) {
	it := c.it
	it.frames = append(it.frames, &callFrame{top: newEnv(c.capture, true), shaded: c.shaded})
	defer func() { it.frames = it.frames[:len(it.frames)-1] }()

	f := it.frame()
	for i, p := range c.node.Params {
		var v any
		if i < len(args) {
			v = args[i]
		}
		declareLocal(f.top, p.Name, v, false, true)
	}

	var result any
	for _, stmt := range c.node.Body {
		v, sig, err := it.evalStmt(stmt)
		if err != nil {
			return c.settleLambda(err)
		}
		switch sig {
		case sigReturn:
			return v, nil
		case sigBreak, sigContinue, sigRemove:
			return nil, jexlerrors.New(jexlerrors.Parsing, origin(stmt), "%s outside of loop", sigName(sig))
		}
		result = v
	}
	return result, nil
}

// settleLambda applies the silent-mode rule at the lambda-call boundary, so
// an error swallowed under an active @silent yields a null call result
// instead of unwinding into the caller.
func (c *closure) settleLambda(err error) (any, error) {
	if je, ok := err.(*jexlerrors.JexlError); ok && je.Kind() == jexlerrors.Cancel {
		return nil, err
	}
	if c.it.Opts.Silent {
		c.it.warn("%s", err.Error())
		return nil, nil
	}
	return nil, err
}
