// Package values defines the dynamic runtime value shapes that flow through
// the interpreter beyond Go's own primitive types: an ordered Set, a lazy
// integer Range, and a Lambda marker interface implemented by the
// interpreter's closures. Arithmetic and Uberspect both operate over these
// shapes without importing the interpreter itself, which is what keeps the
// dependency graph acyclic (interp depends on arithmetic/uberspect, not the
// reverse).
package values

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// Set is an insertion-ordered collection with set semantics, the runtime
// shape of a `{1,2,3}` literal.
type Set struct {
	order []any
	index map[any]int
}

// NewSet builds a Set from elems, de-duplicating by Go equality of the keys
// normalizeKey produces, so int64(2) and float64(2) count as one element.
func NewSet(elems ...any) *Set {
	s := &Set{index: make(map[any]int, len(elems))}
	for _, e := range elems {
		s.Add(e)
	}
	return s
}

// Add inserts v if not already present, returning whether it was added.
func (s *Set) Add(v any) bool {
	key := normalizeKey(v)
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.order)
	s.order = append(s.order, v)
	return true
}

// Contains reports whether v is a member of the set.
func (s *Set) Contains(v any) bool {
	_, ok := s.index[normalizeKey(v)]
	return ok
}

// Remove deletes v, reporting whether it was present.
func (s *Set) Remove(v any) bool {
	key := normalizeKey(v)
	idx, ok := s.index[key]
	if !ok {
		return false
	}
	s.order = append(s.order[:idx], s.order[idx+1:]...)
	delete(s.index, key)
	for k, i := range s.index {
		if i > idx {
			s.index[k] = i - 1
		}
	}
	return true
}

// Len reports the number of elements.
func (s *Set) Len() int { return len(s.order) }

// Slice returns the elements in insertion order. The returned slice is a
// copy; mutating it does not affect the Set.
func (s *Set) Slice() []any {
	out := make([]any, len(s.order))
	copy(out, s.order)
	return out
}

// Sorted returns the elements ordered with natural (alphanumeric-aware)
// comparison when all elements stringify comparably.
func (s *Set) Sorted() []any {
	out := s.Slice()
	sort.Slice(out, func(i, j int) bool {
		return natural.Less(fmt.Sprint(out[i]), fmt.Sprint(out[j]))
	})
	return out
}

func (s *Set) String() string {
	parts := make([]string, len(s.order))
	for i, v := range s.order {
		parts[i] = fmt.Sprint(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// normalizeKey collapses values that compare equal under JEXL's numeric
// tower (e.g. int64(1) and float64(1)) onto the same map key.
func normalizeKey(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float32:
		return normalizeFloat(float64(n))
	case float64:
		return normalizeFloat(n)
	default:
		return v
	}
}

// normalizeFloat maps whole-valued floats onto their integer key so
// int64(2) and float64(2) occupy one set slot.
func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
		return int64(f)
	}
	return f
}

// Range is the lazy inclusive integer sequence produced by `a..b`. It is
// restartable: Iterate may be called more than once.
type Range struct {
	From, To int64
}

// NewRange builds an inclusive [from, to] range; from > to yields a
// descending (still inclusive) sequence.
func NewRange(from, to int64) *Range { return &Range{From: from, To: to} }

// Len reports the number of integers the range yields.
func (r *Range) Len() int64 {
	if r.From <= r.To {
		return r.To - r.From + 1
	}
	return r.From - r.To + 1
}

// Contains reports whether n falls within the (inclusive) range bounds.
func (r *Range) Contains(n int64) bool {
	if r.From <= r.To {
		return n >= r.From && n <= r.To
	}
	return n <= r.From && n >= r.To
}

// Slice materializes the range as a []any of int64, for contexts (set/map
// literal spread, array conversion) that need a concrete sequence.
func (r *Range) Slice() []any {
	n := r.Len()
	out := make([]any, 0, n)
	if r.From <= r.To {
		for i := r.From; i <= r.To; i++ {
			out = append(out, i)
		}
	} else {
		for i := r.From; i >= r.To; i-- {
			out = append(out, i)
		}
	}
	return out
}

func (r *Range) String() string { return fmt.Sprintf("%d..%d", r.From, r.To) }

// Lambda is implemented by the interpreter's closures so that Arithmetic and
// Uberspect can recognize and invoke a callable value without importing the
// interpreter package.
type Lambda interface {
	// Call invokes the closure with the given positional arguments.
	Call(args []any) (any, error)
	// Arity reports the declared parameter count.
	Arity() int
}

// Namespace is a host-resolved namespace object as surfaced by the
// `jexl.namespace.<prefix>` pragma; Uberspect treats it as any other value
// when resolving `prefix:method(...)` calls.
type Namespace struct {
	Name  string
	Value any
}
