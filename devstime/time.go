// Package devstime implements super-dense simulation time: pairs (t, c) of a
// real-valued instant and an integer ordinal, totally ordered lexicographically.
// The ordinal disambiguates events that share the same real instant, giving a
// deterministic order to simultaneous transitions of the same or different
// components.
//
// T is not goroutine-safe by itself; it is an immutable value type and callers
// share it by copy, the same way the optimistic and conservative engines pass
// timestamps between logical processes without a lock.
package devstime

import "math"

// T is a super-dense time coordinate.
type T struct {
	Time float64
	C    uint64
}

// Zero is the super-dense origin (0, 0).
func Zero() T { return T{} }

// At returns the super-dense time (t, 0).
func At(t float64) T { return T{Time: t} }

// Inf is the distinguished value greater than every finite T.
func Inf() T { return T{Time: math.Inf(1)} }

// IsInf reports whether t is the distinguished infinite value.
func (t T) IsInf() bool { return math.IsInf(t.Time, 1) }

// Epsilon returns t advanced by one infinitesimal ordinal step, i.e. (t.Time,
// t.C+1). Consecutive transitions of the same component use this to remain
// strictly ordered even when they share the same real instant.
func (t T) Epsilon() T { return T{Time: t.Time, C: t.C + 1} }

// Advance implements the non-commutative super-dense addition: advancing by a
// pure-ordinal delta (Time == 0) only bumps the ordinal; advancing by a
// positive real delta resets the ordinal to zero.
func (t T) Advance(delta T) T {
	if delta.Time == 0 {
		return T{Time: t.Time, C: t.C + delta.C}
	}
	return T{Time: t.Time + delta.Time, C: 0}
}

// AdvanceBy is a convenience for Advance(At(dt)) when dt is a plain real time
// advance (the common case: t + ta()).
func (t T) AdvanceBy(dt float64) T {
	if dt == 0 {
		return t
	}
	return T{Time: t.Time + dt, C: 0}
}

// Sub returns the elapsed real time from 'from' to t. Only the real
// component participates; super-dense ties within the same instant elapse
// zero time, matching the elapsed-time argument (e) passed to delta_ext.
func (t T) Sub(from T) float64 { return t.Time - from.Time }

// Less reports whether t sorts strictly before o.
func (t T) Less(o T) bool {
	if t.Time != o.Time {
		return t.Time < o.Time
	}
	return t.C < o.C
}

// LessOrEqual reports whether t sorts before or equal to o.
func (t T) LessOrEqual(o T) bool { return t.Equal(o) || t.Less(o) }

// Equal reports whether t and o denote the same super-dense instant.
func (t T) Equal(o T) bool { return t.Time == o.Time && t.C == o.C }

// Min returns the lexicographically smaller of a and b.
func Min(a, b T) T {
	if b.Less(a) {
		return b
	}
	return a
}
