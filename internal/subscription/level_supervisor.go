package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/sequex/depthgateway/internal/orderbook"
	"github.com/sequex/depthgateway/internal/venue"
	"github.com/sequex/depthgateway/pkg/logger"
)

// LevelSource is the venue-specific glue for a level-event subscription:
// no sequence algebra, no bootstrap, just a stream of full top-N replacements.
type LevelSource interface {
	Connect(ctx context.Context) (<-chan venue.LevelEvent, error)
	Close() error
}

// LevelSupervisor runs one level-event subscription with the same
// reconnect/backoff shape as Supervisor but without bootstrap or a sequence
// algebra: every frame received is immediately authoritative.
type LevelSupervisor struct {
	newSource func() LevelSource
	ladder    *orderbook.Ladder

	venueName string
	symbol    string

	mu     sync.Mutex
	ready  bool
	latest *orderbook.DepthSnapshot

	snapshotsIn  chan<- orderbook.DepthSnapshot
	snapshotsOut <-chan orderbook.DepthSnapshot
}

// Ready reports whether the ladder has received at least one level frame on
// the current connection.
func (s *LevelSupervisor) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *LevelSupervisor) setReady(v bool) {
	s.mu.Lock()
	s.ready = v
	if !v {
		s.latest = nil
	}
	s.mu.Unlock()
}

// LatestDepth returns the most recently emitted snapshot, or false while the
// subscription is not Ready (before the first frame of each connection).
func (s *LevelSupervisor) LatestDepth() (orderbook.DepthSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return orderbook.DepthSnapshot{}, false
	}
	return *s.latest, true
}

func (s *LevelSupervisor) recordSnapshot(snap orderbook.DepthSnapshot) {
	s.mu.Lock()
	s.latest = &snap
	s.mu.Unlock()
}

// NewLevelSupervisor constructs a LevelSupervisor.
func NewLevelSupervisor(venueName, symbol string, newSource func() LevelSource) *LevelSupervisor {
	in, out := newUnboundedSnapshotChan()
	return &LevelSupervisor{
		newSource:    newSource,
		ladder:       orderbook.New(),
		venueName:    venueName,
		symbol:       symbol,
		snapshotsIn:  in,
		snapshotsOut: out,
	}
}

// Snapshots returns the channel of exported depth snapshots.
func (s *LevelSupervisor) Snapshots() <-chan orderbook.DepthSnapshot { return s.snapshotsOut }

// Run drives the subscription until ctx is cancelled.
func (s *LevelSupervisor) Run(ctx context.Context) error {
	log := logger.ForSubscription(s.venueName, s.symbol)
	backoff := backoffBase

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		src := s.newSource()
		events, err := src.Connect(ctx)
		if err != nil {
			log.Warn().Err(err).Dur("backoff", backoff).Msg("subscription: level connect failed, retrying")
			if !s.sleep(ctx, &backoff) {
				return ctx.Err()
			}
			continue
		}

		backoff = backoffBase
		err = orderbook.RunLevelStream(ctx, s.ladder, events, func() {
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
		log.Warn().Err(err).Dur("backoff", backoff).Msg("subscription: level stream ended, reconnecting")
		if !s.sleep(ctx, &backoff) {
			return ctx.Err()
		}
	}
}

func (s *LevelSupervisor) sleep(ctx context.Context, backoff *time.Duration) bool {
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
