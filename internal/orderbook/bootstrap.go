package orderbook

import (
	"context"
	"errors"
	"fmt"

	"github.com/sequex/depthgateway/internal/venue"
)

// MaxBootstrapAttempts bounds how many times bootstrap will fetch a fresh
// REST snapshot and retry reconciliation before giving up. Grounded on
// original_source/src/binance/connection/binance_spot.rs, which restarts
// the buffer-and-fetch cycle on every Ahead verdict with no attempt cap of
// its own; the engine adds one so a persistently diverging feed fails a
// subscription instead of looping forever.
const MaxBootstrapAttempts = 20

// maxBufferedEvents caps how many incremental events are held while the REST
// snapshot fetch is still in flight, matching MAX_BUFFER_EVENTS in
// binance_spot.rs. It is a cap, not a precondition: the fetch runs
// concurrently with buffering and can return after fewer than this many
// events have arrived.
const maxBufferedEvents = 5

// ErrBootstrapExhausted is returned when MaxBootstrapAttempts consecutive
// REST fetches all fail to produce a usable snapshot. The subscription
// supervisor treats this as fatal for the subscription.
var ErrBootstrapExhausted = errors.New("orderbook: bootstrap attempts exhausted")

// RestFetcher fetches a fresh REST depth snapshot for the symbol a
// Bootstrap is running against.
type RestFetcher interface {
	FetchSnapshot(ctx context.Context) (venue.RestBootstrapSnapshot, error)
}

// Bootstrap drives the buffer-then-reconcile state machine (C3): incoming
// incremental events are buffered while a REST snapshot is fetched
// concurrently, then replayed against the snapshot using the product
// class's Behind/Matches/Ahead predicates until one event straddles the
// snapshot's sequence id.
type Bootstrap struct {
	fetch   RestFetcher
	algebra venue.Algebra
	ladder  *Ladder
}

// NewBootstrap constructs a Bootstrap for one ladder using the given REST
// fetcher and product-class algebra.
func NewBootstrap(ladder *Ladder, fetch RestFetcher, algebra venue.Algebra) *Bootstrap {
	return &Bootstrap{fetch: fetch, algebra: algebra, ladder: ladder}
}

type bootstrapFetch struct {
	snap venue.RestBootstrapSnapshot
	err  error
}

// Run buffers incremental events from events (closed by the caller when the
// connection ends) while concurrently fetching a REST snapshot, then
// reconciles the buffer against the snapshot using Behind/Matches/Ahead. On
// Matches it loads the ladder from the snapshot plus the catch-up deltas,
// calling onReady once and onSnapshot after the snapshot load and after
// every catch-up delta, and returns the sequence id the ladder now holds.
// On Ahead it discards the buffer and retries with a fresh snapshot; when
// every buffered event is Behind (no match, not ahead) it keeps reading live
// events against the same snapshot instead of re-fetching. It returns
// ErrBootstrapExhausted after MaxBootstrapAttempts failed reconciliation
// rounds, or the first fetch or context error encountered.
func (b *Bootstrap) Run(ctx context.Context, events <-chan venue.IncrementalEvent, onReady func(), onSnapshot func(DepthSnapshot)) (int64, error) {
	var buf []venue.IncrementalEvent

	for attempt := 0; attempt < MaxBootstrapAttempts; attempt++ {
		fetchCh := make(chan bootstrapFetch, 1)
		go func() {
			snap, err := b.fetch.FetchSnapshot(ctx)
			fetchCh <- bootstrapFetch{snap: snap, err: err}
		}()

		var snap venue.RestBootstrapSnapshot
		fetched := false
		for !fetched {
			select {
			case res := <-fetchCh:
				if res.err != nil {
					return 0, fmt.Errorf("orderbook: bootstrap snapshot fetch: %w", res.err)
				}
				snap = res.snap
				fetched = true
			case evt, ok := <-events:
				if !ok {
					return 0, fmt.Errorf("orderbook: event stream closed during bootstrap")
				}
				buf = append(buf, evt)
				if len(buf) > maxBufferedEvents {
					buf = buf[len(buf)-maxBufferedEvents:]
				}
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		ahead := false
	reconcile:
		for {
			for len(buf) > 0 {
				evt := buf[0]
				if b.algebra.Behind(evt, snap.LastUpdateID) {
					buf = buf[1:]
					continue
				}
				if b.algebra.Ahead(evt, snap.LastUpdateID) {
					ahead = true
				}
				// Either Matches or Ahead: buf[0] is the pivot event, stop
				// scanning either way.
				break reconcile
			}
			// Every buffered event so far was Behind the snapshot: it is
			// still valid, so keep reading live events against it rather
			// than fetching a newer one.
			select {
			case evt, ok := <-events:
				if !ok {
					return 0, fmt.Errorf("orderbook: event stream closed during bootstrap")
				}
				buf = append(buf, evt)
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		if ahead {
			// The snapshot is already stale relative to the stream: drop
			// the buffer and retry against a fresh snapshot.
			buf = buf[:0]
			continue
		}

		b.ladder.LoadSnapshot(snap.Bids, snap.Asks, snap.LastUpdateID, snap.VenueTS, snap.VenueTxTS)
		// buf[0] is the pivot (Matches) event: it straddles the snapshot and
		// is applied like any other delta, advancing the sequence id past
		// the snapshot's own. Everything after it is pure catch-up.
		for i, evt := range buf {
			b.ladder.ApplyDeltas(evt.BidDeltas, evt.AskDeltas, evt.LastUpdateID, evt.VenueTS, evt.VenueTxTS)
			if i == 0 && onReady != nil {
				onReady()
			}
			if onSnapshot != nil {
				onSnapshot(b.ladder.Export(0))
			}
		}
		return b.ladder.SequenceID(), nil
	}

	return 0, ErrBootstrapExhausted
}
