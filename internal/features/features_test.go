package features

import "testing"

func TestSet_HasWithWithout(t *testing.T) {
	s := Default()
	if !s.Has(Loops) {
		t.Error("default set should enable loops")
	}
	s2 := s.Without(Loops)
	if s2.Has(Loops) {
		t.Error("Without(Loops) still has loops")
	}
	if !s.Has(Loops) {
		t.Error("Without mutated the receiver")
	}
	if !s2.With(Loops).Has(Loops) {
		t.Error("With(Loops) did not restore the flag")
	}
}

func TestSet_Reserved(t *testing.T) {
	s := Default().WithReserved("engine", "context")
	if !s.IsReserved("engine") {
		t.Error("engine should be reserved")
	}
	if s.IsReserved("other") {
		t.Error("other should not be reserved")
	}
	if Default().IsReserved("engine") {
		t.Error("reserved names leaked into the default set")
	}
}

func TestSet_Superset(t *testing.T) {
	full := Default()
	smaller := full.Without(Loops).Without(Lambda)
	if !full.Superset(smaller) {
		t.Error("default should be a superset of a reduced set")
	}
	if smaller.Superset(full) {
		t.Error("reduced set should not be a superset of the default")
	}
	if !full.Superset(full) {
		t.Error("a set should be a superset of itself")
	}
}

func TestFlag_String(t *testing.T) {
	tests := map[Flag]string{
		Loops:           "loops",
		Lambda:          "lambda",
		ComparatorNames: "comparatorNames",
		ConstCapture:    "constCapture",
	}
	for flag, want := range tests {
		if flag.String() != want {
			t.Errorf("%d.String() = %q, want %q", flag, flag.String(), want)
		}
	}
}
