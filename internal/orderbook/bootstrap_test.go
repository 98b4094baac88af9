package orderbook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sequex/depthgateway/internal/venue"
)

// scriptedFetcher returns one canned snapshot per call, in order. If started
// is set, it is sent the zero-based call index right before FetchSnapshot
// returns, letting a test observe exactly when a given round's fetch has
// resolved without racing Bootstrap.Run's internal buffering.
type scriptedFetcher struct {
	snapshots []venue.RestBootstrapSnapshot
	calls     int
	started   chan int
}

func (f *scriptedFetcher) FetchSnapshot(ctx context.Context) (venue.RestBootstrapSnapshot, error) {
	idx := f.calls
	snap := f.snapshots[idx]
	f.calls++
	if f.started != nil {
		f.started <- idx
	}
	return snap, nil
}

func incEvt(u, uu int64) venue.IncrementalEvent {
	return venue.IncrementalEvent{
		FirstUpdateID: u,
		LastUpdateID:  uu,
		BidDeltas:     []PriceLevel{lvl("10", "1")},
		AskDeltas:     []PriceLevel{lvl("11", "1")},
	}
}

// S1 — Clean spot bootstrap: the REST snapshot (last_update_id=115) returns
// after only 3 events are buffered, below the 5-event cap, and still
// reconciles against the second of them. The matched event's snapshot load
// (120) and the one catch-up delta that follows it (130) must each publish
// a snapshot and mark the subscription ready exactly once.
func TestBootstrap_S1_CleanBootstrap(t *testing.T) {
	fetcher := &scriptedFetcher{snapshots: []venue.RestBootstrapSnapshot{
		{LastUpdateID: 115, Bids: []PriceLevel{lvl("9", "1")}, Asks: []PriceLevel{lvl("12", "1")}},
	}}
	ladder := New()
	bootstrap := NewBootstrap(ladder, fetcher, venue.AlgebraFor(venue.Spot))

	events := make(chan venue.IncrementalEvent, 3)
	events <- incEvt(100, 110)
	events <- incEvt(111, 120)
	events <- incEvt(121, 130)

	var readyCount int
	var emitted []int64
	seq, err := bootstrap.Run(context.Background(), events,
		func() { readyCount++ },
		func(snap DepthSnapshot) { emitted = append(emitted, snap.SequenceID) },
	)
	require.NoError(t, err)
	assert.Equal(t, int64(130), seq)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, readyCount)
	assert.Equal(t, []int64{120, 130}, emitted)
}

// S2 — Stale REST (ahead): the first snapshot is already behind the buffer,
// so bootstrap discards it and retries with a fresh one. The fetcher's
// started channel lets this test hand each round exactly its own events,
// since the fetch now runs concurrently with buffering and would otherwise
// race a pre-queued channel into bleeding later rounds' events into an
// earlier round's (discarded) buffer.
func TestBootstrap_S2_StaleRestRetries(t *testing.T) {
	started := make(chan int, 2)
	fetcher := &scriptedFetcher{snapshots: []venue.RestBootstrapSnapshot{
		{LastUpdateID: 150},
		{LastUpdateID: 205},
	}, started: started}
	ladder := New()
	bootstrap := NewBootstrap(ladder, fetcher, venue.AlgebraFor(venue.Spot))

	events := make(chan venue.IncrementalEvent, 5)
	type result struct {
		seq int64
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		seq, err := bootstrap.Run(context.Background(), events, nil, nil)
		resultCh <- result{seq, err}
	}()

	require.Equal(t, 0, <-started) // round 1's fetch has resolved against snapshot 150
	events <- incEvt(300, 310)     // strictly ahead of 150: triggers the discard-and-retry

	require.Equal(t, 1, <-started) // round 2's fetch has resolved against snapshot 205
	events <- incEvt(195, 200)     // behind 205: skipped
	events <- incEvt(201, 210)     // matches 205
	events <- incEvt(211, 220)     // arrives live after the match: left for steady state

	res := <-resultCh
	require.NoError(t, res.err)
	assert.Equal(t, 2, fetcher.calls)
	assert.Equal(t, int64(210), res.seq)
}

func TestBootstrap_ExhaustsAfterMaxAttempts(t *testing.T) {
	snapshots := make([]venue.RestBootstrapSnapshot, MaxBootstrapAttempts)
	for i := range snapshots {
		// Every snapshot is perpetually stale relative to the buffered
		// events, so every round discards and retries.
		snapshots[i] = venue.RestBootstrapSnapshot{LastUpdateID: 1}
	}
	fetcher := &scriptedFetcher{snapshots: snapshots}
	ladder := New()
	bootstrap := NewBootstrap(ladder, fetcher, venue.AlgebraFor(venue.Spot))

	events := make(chan venue.IncrementalEvent, maxBufferedEvents*MaxBootstrapAttempts)
	for i := 0; i < maxBufferedEvents*MaxBootstrapAttempts; i++ {
		base := int64(1000 + i*10)
		events <- incEvt(base, base+9)
	}

	_, err := bootstrap.Run(context.Background(), events, nil, nil)
	assert.ErrorIs(t, err, ErrBootstrapExhausted)
}
