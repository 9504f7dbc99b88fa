package uberspect

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/jexl-go/jexl/internal/values"
)

type widget struct {
	Label string
	Price int64
}

type account struct {
	balance int64
}

func (a *account) Balance() int64       { return a.balance }
func (a *account) SetBalance(v int64)   { a.balance = v }
func (a *account) Deposit(v int64) int64 {
	a.balance += v
	return a.balance
}

func TestGetProperty_StructField(t *testing.T) {
	u := New()
	get, err := u.GetProperty(widget{Label: "w", Price: 9}, "label")
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	v, err := get()
	if err != nil || v != "w" {
		t.Errorf("label = %#v, %v", v, err)
	}
}

func TestSetProperty_StructField(t *testing.T) {
	u := New()
	w := &widget{}
	set, err := u.SetProperty(w, "price")
	if err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if err := set(int64(12)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if w.Price != 12 {
		t.Errorf("Price = %d, want 12", w.Price)
	}
}

func TestBeanAccessors(t *testing.T) {
	u := New()
	a := &account{balance: 10}
	get, err := u.GetProperty(a, "balance")
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if v, _ := get(); v != int64(10) {
		t.Errorf("balance = %#v", v)
	}
	set, err := u.SetProperty(a, "balance")
	if err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if err := set(int64(99)); err != nil {
		t.Fatal(err)
	}
	if a.balance != 99 {
		t.Errorf("balance = %d, want 99", a.balance)
	}
}

func TestMethodInvocation(t *testing.T) {
	u := New()
	a := &account{balance: 40}
	m, err := u.Method(a, "deposit", 1)
	if err != nil {
		t.Fatalf("Method: %v", err)
	}
	v, err := m([]any{int64(2)})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if v != int64(42) {
		t.Errorf("deposit = %#v, want 42", v)
	}
}

func TestMapAccess(t *testing.T) {
	u := New()
	m := map[string]any{"k": int64(1)}
	get, err := u.GetProperty(m, "k")
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if v, _ := get(); v != int64(1) {
		t.Errorf("k = %#v", v)
	}
	set, err := u.SetIndex(m, "j")
	if err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	if err := set("j", int64(2)); err != nil {
		t.Fatal(err)
	}
	if m["j"] != int64(2) {
		t.Errorf("j = %#v", m["j"])
	}
}

func TestListAccess(t *testing.T) {
	u := New()
	l := []any{int64(10), int64(20)}
	get, err := u.GetIndex(l, int64(1))
	if err != nil {
		t.Fatalf("GetIndex: %v", err)
	}
	if v, _ := get(int64(1)); v != int64(20) {
		t.Errorf("l[1] = %#v", v)
	}
	if _, err := get(int64(9)); err == nil {
		t.Error("out-of-range read did not error")
	}
	lenGet, err := u.GetProperty(l, "size")
	if err != nil {
		t.Fatalf("GetProperty(size): %v", err)
	}
	if v, _ := lenGet(); v != int64(2) {
		t.Errorf("size = %#v", v)
	}
}

func TestIterate(t *testing.T) {
	u := New()
	it, err := u.Iterate([]any{int64(1), int64(2), int64(3)})
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	var sum int64
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		sum += v.(int64)
	}
	if sum != 6 {
		t.Errorf("sum = %d, want 6", sum)
	}

	rit, err := u.Iterate(values.NewRange(1, 3))
	if err != nil {
		t.Fatalf("Iterate(range): %v", err)
	}
	var got []any
	for {
		v, ok := rit.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	if len(got) != 3 || got[0] != int64(1) || got[2] != int64(3) {
		t.Errorf("range iteration = %v", got)
	}
	if err := rit.Remove(); err == nil {
		t.Error("range Remove() should error")
	}
}

func TestIterate_ListRemoveDoesNotCorruptOriginal(t *testing.T) {
	u := New()
	orig := []any{int64(1), int64(2), int64(3)}
	it, err := u.Iterate(orig)
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	ri, ok := it.(ReslicedIterator)
	if !ok {
		t.Fatal("list iterator does not implement ReslicedIterator")
	}
	if _, removed := ri.Resliced(); removed {
		t.Fatal("removed reported before any Remove")
	}
	for {
		v, more := it.Next()
		if !more {
			break
		}
		if v == int64(2) {
			if err := it.Remove(); err != nil {
				t.Fatalf("Remove: %v", err)
			}
		}
	}
	// The original slice is untouched: removal shrank the iterator's copy.
	want := []any{int64(1), int64(2), int64(3)}
	if !reflect.DeepEqual(orig, want) {
		t.Errorf("original slice corrupted: %v, want %v", orig, want)
	}
	got, removed := ri.Resliced()
	if !removed {
		t.Error("removed not reported after Remove")
	}
	if !reflect.DeepEqual(got, []any{int64(1), int64(3)}) {
		t.Errorf("Resliced = %v, want [1 3]", got)
	}
}

func TestPermissionFilter(t *testing.T) {
	u := New().WithPermissions(NewPermissionFilter([]string{"*.widget"}, nil))
	if _, err := u.GetProperty(widget{}, "label"); err == nil {
		t.Error("denied type was resolvable")
	}
	// Other types stay accessible.
	if _, err := u.GetProperty(map[string]any{"k": 1}, "k"); err != nil {
		t.Errorf("map blocked by unrelated deny glob: %v", err)
	}
}

func TestPermissionFilter_Allowlist(t *testing.T) {
	p := NewPermissionFilter(nil, []string{"github.com/jexl-go/*"})
	if p.Denies("github.com/jexl-go/jexl/internal/uberspect.widget") {
		t.Error("allowlisted name denied")
	}
	if !p.Denies("os/exec.Cmd") {
		t.Error("non-allowlisted name permitted")
	}
}

func TestConstructorRegistry(t *testing.T) {
	u := New()
	u.RegisterConstructor("Point", func(args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("Point takes two coordinates")
		}
		return map[string]any{"x": args[0], "y": args[1]}, nil
	})
	v, err := u.NewInstance("Point", []any{int64(1), int64(2)})
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	if v.(map[string]any)["x"] != int64(1) {
		t.Errorf("x = %#v", v)
	}
	if _, err := u.NewInstance("Missing", nil); err == nil {
		t.Error("unregistered constructor did not error")
	}
}

func TestFuncInvoker(t *testing.T) {
	inv, ok := FuncInvoker(func(a, b int64) int64 { return a + b })
	if !ok {
		t.Fatal("func not recognized")
	}
	v, err := inv([]any{int64(40), int64(2)})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if v != int64(42) {
		t.Errorf("result = %#v", v)
	}

	vinv, ok := FuncInvoker(func(parts ...string) string {
		out := ""
		for _, p := range parts {
			out += p
		}
		return out
	})
	if !ok {
		t.Fatal("variadic func not recognized")
	}
	v, err = vinv([]any{"a", "b", "c"})
	if err != nil {
		t.Fatalf("variadic invoke: %v", err)
	}
	if v != "abc" {
		t.Errorf("variadic result = %#v", v)
	}

	if _, ok := FuncInvoker(42); ok {
		t.Error("non-func recognized as invokable")
	}
}

func TestCurrentEngine(t *testing.T) {
	if _, ok := CurrentEngine(); ok {
		t.Fatal("engine set before registration")
	}
	restore := SetCurrentEngine("engine-handle")
	v, ok := CurrentEngine()
	if !ok || v != "engine-handle" {
		t.Errorf("CurrentEngine = %#v, %t", v, ok)
	}
	restore()
	if _, ok := CurrentEngine(); ok {
		t.Error("engine still set after restore")
	}
}

func TestMapStrategyOrdering(t *testing.T) {
	// With the default chain a map resolves through the map strategy either
	// way; the reordered chain simply guarantees maps win over bean-shaped
	// lookups for ambiguous keys.
	u := New().WithMapStrategy()
	m := map[string]any{"class": "stored"}
	get, err := u.GetProperty(m, "class")
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if v, _ := get(); v != "stored" {
		t.Errorf("class = %#v, want stored", v)
	}
}
