package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func lvl(price, size string) PriceLevel {
	return PriceLevel{Price: dec(price), Size: dec(size)}
}

func TestLadder_LoadSnapshotOrdering(t *testing.T) {
	restoreNow := stubNow(1000)
	defer restoreNow()

	l := New()
	l.LoadSnapshot(
		[]PriceLevel{lvl("10.0", "1"), lvl("9.5", "2"), lvl("9.8", "3")},
		[]PriceLevel{lvl("10.5", "1"), lvl("11.0", "2"), lvl("10.8", "3")},
		42, 900, 890,
	)

	snap := l.Export(0)
	require.Len(t, snap.Bids, 3)
	require.Len(t, snap.Asks, 3)

	// P1: bids strictly descending, asks strictly ascending.
	assert.True(t, snap.Bids[0].Price.GreaterThan(snap.Bids[1].Price))
	assert.True(t, snap.Bids[1].Price.GreaterThan(snap.Bids[2].Price))
	assert.True(t, snap.Asks[0].Price.LessThan(snap.Asks[1].Price))
	assert.True(t, snap.Asks[1].Price.LessThan(snap.Asks[2].Price))

	assert.Equal(t, int64(42), snap.SequenceID)
	assert.Equal(t, int64(900), snap.VenueTS)
	// P4: local_ts >= venue_ts and both > 0.
	assert.GreaterOrEqual(t, snap.LocalTS, snap.VenueTS)
	assert.Greater(t, snap.LocalTS, int64(0))
}

func TestLadder_ApplyDeltas_ZeroSizeDeletes(t *testing.T) {
	restoreNow := stubNow(2000)
	defer restoreNow()

	l := New()
	l.LoadSnapshot(
		[]PriceLevel{lvl("10.0", "1"), lvl("9.5", "2")},
		[]PriceLevel{lvl("10.5", "1")},
		1, 100, 100,
	)

	l.ApplyDeltas(
		[]PriceLevel{lvl("9.5", "0")}, // delete
		[]PriceLevel{lvl("10.5", "5")}, // upsert
		2, 200, 200,
	)

	snap := l.Export(0)
	require.Len(t, snap.Bids, 1)
	assert.True(t, snap.Bids[0].Price.Equal(dec("10.0")))

	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Asks[0].Size.Equal(dec("5")))

	// P2: every size > 0.
	for _, b := range snap.Bids {
		assert.True(t, b.Size.GreaterThan(decimal.Zero))
	}
	for _, a := range snap.Asks {
		assert.True(t, a.Size.GreaterThan(decimal.Zero))
	}

	// P3: sequence id non-decreasing.
	assert.Equal(t, int64(2), l.SequenceID())
}

func TestLadder_ExportDepthLimit(t *testing.T) {
	l := New()
	l.LoadSnapshot(
		[]PriceLevel{lvl("10", "1"), lvl("9", "1"), lvl("8", "1")},
		[]PriceLevel{lvl("11", "1"), lvl("12", "1"), lvl("13", "1")},
		1, 0, 0,
	)
	snap := l.Export(2)
	assert.Len(t, snap.Bids, 2)
	assert.Len(t, snap.Asks, 2)
	assert.True(t, snap.Bids[0].Price.Equal(dec("10")))
	assert.True(t, snap.Asks[0].Price.Equal(dec("11")))
}

func TestLadder_BestLevel(t *testing.T) {
	l := New()
	_, ok := l.BestLevel(Bid)
	assert.False(t, ok)

	l.LoadSnapshot(
		[]PriceLevel{lvl("10", "1"), lvl("9", "1")},
		[]PriceLevel{lvl("11", "1"), lvl("12", "1")},
		1, 0, 0,
	)

	best, ok := l.BestLevel(Bid)
	require.True(t, ok)
	assert.True(t, best.Price.Equal(dec("10")))

	best, ok = l.BestLevel(Ask)
	require.True(t, ok)
	assert.True(t, best.Price.Equal(dec("11")))
}

func TestLadder_SetFromLevelEvent_ReplacesWholesale(t *testing.T) {
	l := New()
	l.LoadSnapshot([]PriceLevel{lvl("10", "1")}, []PriceLevel{lvl("11", "1")}, 1, 0, 0)
	l.SetFromLevelEvent([]PriceLevel{lvl("20", "2")}, []PriceLevel{lvl("21", "2")}, 99, 500)

	snap := l.Export(0)
	require.Len(t, snap.Bids, 1)
	assert.True(t, snap.Bids[0].Price.Equal(dec("20")))
	assert.Equal(t, int64(99), snap.SequenceID)
}

// stubNow overrides Now for deterministic local_ts assertions, returning a
// restore function.
func stubNow(ts int64) func() {
	orig := Now
	Now = func() int64 { return ts }
	return func() { Now = orig }
}
