package jexl

import (
	"fmt"
	"sync"
	"testing"
	"time"

	jexlerrors "github.com/jexl-go/jexl/errors"
)

// hostContext implements the annotation-processor capability the way a host
// would: @synchronized mutexes on the statement target, @timeout runs the
// body on a helper goroutine under a deadline, anything else is forwarded
// unchanged.
type hostContext struct {
	*MapContext
	mu        sync.Mutex
	syncCalls int
	lastStmt  any
}

func (h *hostContext) ProcessAnnotation(name string, args []any, body AnnotatedCall) (any, error) {
	switch name {
	case "synchronized":
		h.mu.Lock()
		defer h.mu.Unlock()
		h.syncCalls++
		h.lastStmt = body.Statement()
		return body.Call()
	case "timeout":
		if len(args) == 0 {
			return nil, fmt.Errorf("@timeout needs a deadline")
		}
		ms, ok := args[0].(int64)
		if !ok {
			return nil, fmt.Errorf("@timeout deadline must be an integer")
		}
		done := make(chan struct{})
		var (
			v   any
			err error
		)
		go func() {
			v, err = body.Call()
			close(done)
		}()
		select {
		case <-done:
			return v, err
		case <-time.After(time.Duration(ms) * time.Millisecond):
			body.Cancel()
			<-done
			if len(args) > 1 {
				return args[1], nil
			}
			return nil, nil
		}
	default:
		return body.Call()
	}
}

func TestAnnotation_Synchronized(t *testing.T) {
	e := mustEngine(t)
	ctx := &hostContext{MapContext: NewMapContext(nil)}
	got, err := e.MustCreateScript("@synchronized { return 42; }").Execute(ctx)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != int64(42) {
		t.Errorf("result = %#v, want 42", got)
	}
	if ctx.syncCalls != 1 {
		t.Errorf("processor called %d times, want 1", ctx.syncCalls)
	}
	if ctx.lastStmt != e {
		t.Errorf("Statement() = %#v, want the engine", ctx.lastStmt)
	}
}

func TestAnnotation_SynchronizedOnArgument(t *testing.T) {
	e := mustEngine(t)
	ctx := &hostContext{MapContext: NewMapContext(map[string]any{"lock": "the-lock"})}
	if _, err := e.MustCreateScript("@synchronized(lock) { 1; }").Execute(ctx); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ctx.lastStmt != "the-lock" {
		t.Errorf("Statement() = %#v, want the first annotation argument", ctx.lastStmt)
	}
}

func TestAnnotation_Timeout(t *testing.T) {
	e := mustEngine(t)
	ctx := &hostContext{MapContext: NewMapContext(nil)}
	got, err := e.MustCreateScript("@timeout(100) { while(true); return 42 } -42").Execute(ctx)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != int64(-42) {
		t.Errorf("result = %#v, want -42", got)
	}
}

func TestAnnotation_TimeoutFastBody(t *testing.T) {
	e := mustEngine(t)
	ctx := &hostContext{MapContext: NewMapContext(nil)}
	got, err := e.MustCreateScript("@timeout(5000) { return 42 } -42").Execute(ctx)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != int64(42) {
		t.Errorf("result = %#v, want 42", got)
	}
}

func TestAnnotation_StrictSilentMatrix(t *testing.T) {
	e := mustEngine(t)
	src := "(s, v)->{ @strict(s) @silent(v) var x = y ; 42; }"
	tests := []struct {
		strict, silent bool
		want           any
		wantVariable   bool
	}{
		{false, true, int64(42), false},
		{true, false, nil, true},
		{true, true, nil, false},
		{false, false, int64(42), false},
	}
	for _, tt := range tests {
		name := fmt.Sprintf("strict=%t silent=%t", tt.strict, tt.silent)
		t.Run(name, func(t *testing.T) {
			s, err := e.CreateScript(src)
			if err != nil {
				t.Fatalf("CreateScript: %v", err)
			}
			got, err := s.Execute(NewMapContext(nil), tt.strict, tt.silent)
			if tt.wantVariable {
				if err == nil {
					t.Fatal("expected Variable error")
				}
				if je := asJexlError(t, err); je.Kind() != jexlerrors.Variable {
					t.Errorf("kind = %s, want Variable", je.Kind())
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got != tt.want {
				t.Errorf("result = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestAnnotation_SilentZeroArgsSwallows(t *testing.T) {
	e := mustEngine(t)
	got, err := run(t, e, "@silent var x = y; 42", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != nil {
		t.Errorf("result = %#v, want nil", got)
	}
}

func TestAnnotation_UnknownWithoutProcessor(t *testing.T) {
	e := mustEngine(t)
	_, err := run(t, e, "@audit 42", nil)
	if err == nil {
		t.Fatal("expected Annotation error without a processor")
	}
	je := asJexlError(t, err)
	if je.Kind() != jexlerrors.Annotation {
		t.Errorf("kind = %s, want Annotation", je.Kind())
	}
	if je.Symbol() != "audit" {
		t.Errorf("symbol = %q, want audit", je.Symbol())
	}
}

func TestAnnotation_UnknownSilentWarnsAndContinues(t *testing.T) {
	opts := DefaultOptions()
	opts.Silent = true
	logger := NewCountingLogger()
	e := mustEngine(t, WithOptions(opts), WithLogger(logger))
	got, err := run(t, e, "@audit 42", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != int64(42) {
		t.Errorf("result = %#v, want 42", got)
	}
	if logger.WarnCount() != 1 {
		t.Errorf("warn count = %d, want 1", logger.WarnCount())
	}
}

func TestAnnotation_ScaleAffectsBigDecimals(t *testing.T) {
	e := mustEngine(t)

	// Without a scale, the big decimals differ.
	got, err := run(t, e, "1.234B == 1.23B", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != false {
		t.Errorf("unscaled comparison = %#v, want false", got)
	}

	// @scale(2) quantizes both sides before comparing.
	got, err = run(t, e, "@scale(2) 1.234B == 1.23B", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != true {
		t.Errorf("scale-2 comparison = %#v, want true", got)
	}

	// The scale is durable for the rest of the frame.
	got, err = run(t, e, "@scale(2) var x = 1.111B; x + 2.222B == 3.33B", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != true {
		t.Errorf("scaled addition = %#v, want true", got)
	}

	// Plain float arithmetic is untouched by the scale.
	got, err = run(t, e, "@scale(4) 1.5 + 1.25", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != 2.75 {
		t.Errorf("result = %#v, want 2.75", got)
	}
}
