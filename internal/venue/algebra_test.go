package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// exactlyOne asserts that exactly one of behind/matches/ahead holds for a
// given (event, S) pair, per spec's predicate law.
func exactlyOne(t *testing.T, algebra Algebra, evt IncrementalEvent, s int64) {
	t.Helper()
	count := 0
	if algebra.Behind(evt, s) {
		count++
	}
	if algebra.Matches(evt, s) {
		count++
	}
	if algebra.Ahead(evt, s) {
		count++
	}
	assert.Equal(t, 1, count, "expected exactly one predicate to hold for S=%d, evt=%+v", s, evt)
}

func TestStandardAlgebra_PredicateLaw(t *testing.T) {
	algebra := standardAlgebra{}
	cases := []struct {
		evt IncrementalEvent
		s   int64
	}{
		{IncrementalEvent{FirstUpdateID: 111, LastUpdateID: 120}, 115},
		{IncrementalEvent{FirstUpdateID: 100, LastUpdateID: 110}, 115},
		{IncrementalEvent{FirstUpdateID: 200, LastUpdateID: 210}, 150},
		{IncrementalEvent{FirstUpdateID: 1, LastUpdateID: 1}, 0},
	}
	for _, c := range cases {
		exactlyOne(t, algebra, c.evt, c.s)
	}
}

func TestStandardAlgebra_ContinuesImpliesNotBehindNotAhead(t *testing.T) {
	algebra := standardAlgebra{}
	evt := IncrementalEvent{FirstUpdateID: 121, LastUpdateID: 130}
	p := int64(120)
	assert.True(t, algebra.Continues(evt, p))
	assert.False(t, algebra.Behind(evt, p))
	assert.False(t, algebra.Ahead(evt, p))
}

func TestInverseAlgebra_PredicateLaw(t *testing.T) {
	algebra := inverseAlgebra{}
	cases := []struct {
		evt IncrementalEvent
		s   int64
	}{
		{IncrementalEvent{FirstUpdateID: 100, LastUpdateID: 110}, 105},
		{IncrementalEvent{FirstUpdateID: 100, LastUpdateID: 110}, 110},
		{IncrementalEvent{FirstUpdateID: 100, LastUpdateID: 110}, 200},
		{IncrementalEvent{FirstUpdateID: 100, LastUpdateID: 110}, 50},
	}
	for _, c := range cases {
		exactlyOne(t, algebra, c.evt, c.s)
	}
}

func TestInverseAlgebra_ContinuesUsesPrevLastUpdateID(t *testing.T) {
	algebra := inverseAlgebra{}
	evt := IncrementalEvent{FirstUpdateID: 111, LastUpdateID: 120, PrevLastUpdateID: 100}
	assert.True(t, algebra.Continues(evt, 100))
	assert.False(t, algebra.Continues(evt, 111))
}

func TestAlgebraFor(t *testing.T) {
	_, okStd := AlgebraFor(Spot).(standardAlgebra)
	assert.True(t, okStd)
	_, okStd2 := AlgebraFor(LinearPerp).(standardAlgebra)
	assert.True(t, okStd2)
	_, okInv := AlgebraFor(InversePerp).(inverseAlgebra)
	assert.True(t, okInv)
}
