package jexl

import (
	"strings"
	"testing"
)

// stringShift overloads << for a string left operand.
type stringShift struct{}

func (stringShift) LeftShift(a string, b int64) (any, bool) {
	return a + strings.Repeat("!", int(b)), true
}

func TestOverload_Discovery(t *testing.T) {
	e := mustEngine(t, WithOverloads(stringShift{}))

	got, err := run(t, e, "'hey' << 3", nil)
	if err != nil {
		t.Fatalf("overloaded shift: %v", err)
	}
	if got != "hey!!!" {
		t.Errorf("'hey' << 3 = %#v, want hey!!!", got)
	}

	// Operand types that don't match the overload fall through to the
	// built-in numeric behavior.
	got, err = run(t, e, "1 << 3", nil)
	if err != nil {
		t.Fatalf("built-in shift: %v", err)
	}
	if got != int64(8) {
		t.Errorf("1 << 3 = %#v, want 8", got)
	}
}

// failingShift matches int operands but always reports try-failed, so the
// built-in must handle the operation.
type failingShift struct {
	attempts int
}

func (f *failingShift) LeftShift(a, b int64) (any, bool) {
	f.attempts++
	return nil, false
}

func TestOverload_TryFailedFallsThrough(t *testing.T) {
	over := &failingShift{}
	e := mustEngine(t, WithOverloads(over))
	got, err := run(t, e, "1 << 3", nil)
	if err != nil {
		t.Fatalf("shift: %v", err)
	}
	if got != int64(8) {
		t.Errorf("1 << 3 = %#v, want 8", got)
	}
	if over.attempts != 1 {
		t.Errorf("overload attempted %d times, want 1", over.attempts)
	}
}

// appender overloads the self-add operator for list left operands.
type appender struct{}

func (appender) SelfAdd(l []any, r any) (any, bool) {
	return append(l, r), true
}

func TestOverload_SelfOperator(t *testing.T) {
	e := mustEngine(t, WithOverloads(appender{}))
	got, err := run(t, e, "var a = [1]; a += 2; size(a)", nil)
	if err != nil {
		t.Fatalf("self add: %v", err)
	}
	if got != int64(2) {
		t.Errorf("size = %#v, want 2", got)
	}
}

// compareCounter routes every ordering comparison through one Compare
// overload and counts consultations.
type compareCounter struct {
	calls int
}

func (c *compareCounter) Compare(l, r any) (any, bool) {
	c.calls++
	li, lok := l.(int64)
	ri, rok := r.(int64)
	if !lok || !rok {
		return nil, false
	}
	switch {
	case li < ri:
		return -1, true
	case li > ri:
		return 1, true
	default:
		return 0, true
	}
}

func TestOverload_CompareConsistency(t *testing.T) {
	over := &compareCounter{}
	e := mustEngine(t, WithOverloads(over))
	src := "1 < 2 && 2 <= 3 && 3 > 2 && 2 >= 2 && 1 == 1 && 1 != 2"
	got, err := run(t, e, src, nil)
	if err != nil {
		t.Fatalf("comparisons: %v", err)
	}
	if got != true {
		t.Errorf("result = %#v, want true", got)
	}
	if over.calls != 6 {
		t.Errorf("Compare consulted %d times, want 6", over.calls)
	}
}
