// Package subscription implements the supervisor (C6): one goroutine per
// live subscription that owns a ladder, drives it through bootstrap and
// steady-state, and reconnects with exponential backoff whenever the
// transport drops, or at once when a sequence gap forces a re-bootstrap.
//
// Grounded on the teacher's pkg/wsapi.BinanceWSClient.reconnectWithBackoff
// for the backoff shape (double on failure, cap at a ceiling, reset on
// success), generalized to also treat a steady-state sequence gap as a
// reconnect trigger rather than only a transport error.
package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sequex/depthgateway/internal/orderbook"
	"github.com/sequex/depthgateway/internal/venue"
	"github.com/sequex/depthgateway/pkg/logger"
)

const (
	backoffBase = 1 * time.Second
	backoffMax  = 30 * time.Second
)

// Source is the venue-specific glue a Supervisor drives: connecting,
// decoding incremental events, and fetching REST snapshots. A Source
// implementation is created fresh for each connect attempt so it can hold
// per-connection state (the live transport session).
type Source interface {
	// Connect opens the transport and returns a channel of decoded
	// incremental events, closed when the connection ends.
	Connect(ctx context.Context) (<-chan venue.IncrementalEvent, error)
	// Close tears down the transport opened by Connect.
	Close() error
	orderbook.RestFetcher
}

// Supervisor runs one incremental-depth subscription end to end: bootstrap,
// steady-state, and reconnect-on-gap, for as long as ctx is live.
type Supervisor struct {
	newSource func() Source
	algebra   venue.Algebra
	ladder    *orderbook.Ladder

	venueName string
	symbol    string

	mu     sync.Mutex
	ready  bool
	latest *orderbook.DepthSnapshot

	snapshotsIn  chan<- orderbook.DepthSnapshot
	snapshotsOut <-chan orderbook.DepthSnapshot
}

// New constructs a Supervisor. newSource is called once per connect
// attempt (including reconnects) to build a fresh Source.
func New(venueName, symbol string, algebra venue.Algebra, newSource func() Source) *Supervisor {
	in, out := newUnboundedSnapshotChan()
	return &Supervisor{
		newSource:    newSource,
		algebra:      algebra,
		ladder:       orderbook.New(),
		venueName:    venueName,
		symbol:       symbol,
		snapshotsIn:  in,
		snapshotsOut: out,
	}
}

// Snapshots returns the channel of exported depth snapshots. It is never
// closed by the Supervisor; callers stop reading when ctx is done.
func (s *Supervisor) Snapshots() <-chan orderbook.DepthSnapshot { return s.snapshotsOut }

// Ready reports whether the ladder currently holds a reconciled, live view.
func (s *Supervisor) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Supervisor) setReady(v bool) {
	s.mu.Lock()
	s.ready = v
	if !v {
		s.latest = nil
	}
	s.mu.Unlock()
}

// LatestDepth returns the most recently emitted snapshot, or false while the
// subscription is not Ready: before the first bootstrap succeeds and again
// after each stream end or gap until the next one does (matching the
// "polling accessor returning the current depth or None" consumer API).
func (s *Supervisor) LatestDepth() (orderbook.DepthSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return orderbook.DepthSnapshot{}, false
	}
	return *s.latest, true
}

func (s *Supervisor) recordSnapshot(snap orderbook.DepthSnapshot) {
	s.mu.Lock()
	s.latest = &snap
	s.mu.Unlock()
}

// Run drives the subscription until ctx is cancelled or a bootstrap run
// fails MaxBootstrapAttempts reconciliation rounds in a row, at which point
// it returns orderbook.ErrBootstrapExhausted as fatal.
func (s *Supervisor) Run(ctx context.Context) error {
	log := logger.ForSubscription(s.venueName, s.symbol)
	backoff := backoffBase

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		src := s.newSource()
		events, err := src.Connect(ctx)
		if err != nil {
			log.Warn().Err(err).Dur("backoff", backoff).Msg("subscription: connect failed, retrying")
			if !s.sleep(ctx, &backoff) {
				return ctx.Err()
			}
			continue
		}

		bootstrap := orderbook.NewBootstrap(s.ladder, src, s.algebra)
		_, err = bootstrap.Run(ctx, events, func() {
			s.setReady(true)
		}, func(snap orderbook.DepthSnapshot) {
			s.recordSnapshot(snap)
			s.snapshotsIn <- snap
		})
		if err != nil {
			src.Close()
			if errors.Is(err, orderbook.ErrBootstrapExhausted) {
				log.Error().Msg("subscription: bootstrap exhausted, giving up")
				s.setReady(false)
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Dur("backoff", backoff).Msg("subscription: bootstrap failed, reconnecting")
			if !s.sleep(ctx, &backoff) {
				return ctx.Err()
			}
			continue
		}

		// A successful bootstrap resets the backoff so a
		// transient blip doesn't escalate wait times across an otherwise
		// healthy connection.
		backoff = backoffBase

		err = orderbook.RunSteadyState(ctx, s.ladder, s.algebra, events, func() {
			s.setReady(true)
		}, func(snap orderbook.DepthSnapshot) {
			s.recordSnapshot(snap)
			s.snapshotsIn <- snap
		})
		src.Close()
		s.setReady(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, orderbook.ErrSequenceGap) {
			log.Info().Msg("subscription: sequence gap, re-bootstrapping")
			continue
		}
		log.Warn().Err(err).Dur("backoff", backoff).Msg("subscription: steady state ended, reconnecting")
		if !s.sleep(ctx, &backoff) {
			return ctx.Err()
		}
	}
}

// sleep waits out the current backoff (doubling it afterward, capped at
// backoffMax), returning false if ctx is cancelled first.
func (s *Supervisor) sleep(ctx context.Context, backoff *time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(*backoff):
	}
	*backoff *= 2
	if *backoff > backoffMax {
		*backoff = backoffMax
	}
	return true
}
