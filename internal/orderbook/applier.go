package orderbook

import (
	"context"
	"errors"

	"github.com/sequex/depthgateway/internal/venue"
)

// ErrSequenceGap is returned by RunSteadyState when an incremental event no
// longer continues the ladder's sequence. The caller (the subscription
// supervisor) treats this as a signal to mark the subscription not-ready
// and re-run Bootstrap.
var ErrSequenceGap = errors.New("orderbook: sequence gap detected")

// RunSteadyState applies incremental events to ladder for as long as each
// one continues the ladder's current sequence id, invoking onReady the
// first time it successfully applies an event (the subscription becomes
// Ready only once steady-state application is actually flowing) and
// onSnapshot after every applied event so consumers see the update.
//
// It returns ErrSequenceGap as soon as an event fails Continues, context.Err
// if ctx is cancelled, or nil if events closes cleanly.
func RunSteadyState(ctx context.Context, ladder *Ladder, algebra venue.Algebra, events <-chan venue.IncrementalEvent, onReady func(), onSnapshot func(DepthSnapshot)) error {
	ready := false
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if !algebra.Continues(evt, ladder.SequenceID()) {
				return ErrSequenceGap
			}
			ladder.ApplyDeltas(evt.BidDeltas, evt.AskDeltas, evt.LastUpdateID, evt.VenueTS, evt.VenueTxTS)
			if !ready {
				ready = true
				if onReady != nil {
					onReady()
				}
			}
			if onSnapshot != nil {
				onSnapshot(ladder.Export(0))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunLevelStream applies full top-N level-event replacements to ladder.
// There is no sequence algebra to violate - every frame is authoritative -
// so the subscription becomes Ready on the first applied frame and stays
// Ready until the stream ends.
func RunLevelStream(ctx context.Context, ladder *Ladder, events <-chan venue.LevelEvent, onReady func(), onSnapshot func(DepthSnapshot)) error {
	ready := false
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			ladder.SetFromLevelEvent(evt.Bids, evt.Asks, evt.SequenceID, evt.VenueTS)
			if !ready {
				ready = true
				if onReady != nil {
					onReady()
				}
			}
			if onSnapshot != nil {
				onSnapshot(ladder.Export(0))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
