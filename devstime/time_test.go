package devstime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrdering(t *testing.T) {
	a := At(1.0)
	b := At(1.0).Epsilon()
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, At(0.5).Less(a))
}

func TestInf(t *testing.T) {
	inf := Inf()
	assert.True(t, inf.IsInf())
	assert.True(t, At(1e300).Less(inf))
	assert.False(t, inf.Less(inf))
}

func TestAdvanceNonCommutative(t *testing.T) {
	// GIVEN a time with a nonzero ordinal
	base := T{Time: 2, C: 3}

	// WHEN advancing by a pure-ordinal delta
	got := base.Advance(T{Time: 0, C: 1})

	// THEN only the ordinal advances
	assert.Equal(t, T{Time: 2, C: 4}, got)

	// WHEN advancing by a positive real delta
	got2 := base.Advance(T{Time: 5, C: 9})

	// THEN the ordinal resets to zero
	assert.Equal(t, T{Time: 7, C: 0}, got2)
}

func TestSubElapsed(t *testing.T) {
	assert.Equal(t, 1.5, At(3.5).Sub(At(2.0)))
}

func TestEpsilonKeepsSameInstantOrdered(t *testing.T) {
	t0 := At(4.0)
	t1 := t0.Epsilon()
	t2 := t1.Epsilon()
	assert.True(t, t0.Less(t1))
	assert.True(t, t1.Less(t2))
	assert.Equal(t, t0.Time, t2.Time)
}

func TestMin(t *testing.T) {
	assert.Equal(t, At(1), Min(At(1), At(2)))
	assert.Equal(t, At(1), Min(At(2), At(1)))
}
