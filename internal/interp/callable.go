package interp

// Callable wraps one interpreter evaluation so a host can invoke it, cancel
// it cooperatively from another goroutine, and query cancellation state.
type Callable struct {
	it  *Interpreter
	run func() (any, error)
}

// NewCallable builds a Callable around run, which performs exactly one
// ExecuteScript/EvalExpression call against it.
func NewCallable(it *Interpreter, run func() (any, error)) *Callable {
	return &Callable{it: it, run: run}
}

// Call runs the wrapped evaluation. Safe to call at most once per Callable;
// a script's own engine builds a fresh Callable per invocation.
func (c *Callable) Call() (any, error) { return c.run() }

// Cancel cooperatively requests that the evaluation stop at its next
// statement boundary or loop iteration.
func (c *Callable) Cancel() { c.it.Cancel.Cancel() }

// IsCancelled reports whether Cancel has been called.
func (c *Callable) IsCancelled() bool { return c.it.Cancel.IsCancelled() }

// IsCancellable reports whether the evaluation's Options.Cancellable is set;
// when false, Cancel still stops the loop but evaluation ends silently
// instead of raising a Cancel error.
func (c *Callable) IsCancellable() bool { return c.it.Opts.Cancellable }
