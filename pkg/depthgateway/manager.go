// Package depthgateway is the public façade (C8): it resolves a
// venue/symbol/limit request into the right subscription kind, owns its
// goroutine, and hands callers a read-only view of the live book plus a
// channel of depth snapshots.
//
// Grounded on the teacher's internal/orderbook/orderbookmanager.go
// BinanceOrderBookManager, which is the closest prior art for "one manager
// per running symbol subscription with a constructor per mode" - adapted
// here into two constructors (NewDepthManager / NewDepthManagerWithSnapshot)
// selected by whether the resolved venue.Config is level-mode or
// incremental-depth mode, matching Config.is_normal / Config.is_depth in
// original_source/src/match_up.rs.
package depthgateway

import (
	"context"
	"fmt"

	"github.com/sequex/depthgateway/internal/orderbook"
	"github.com/sequex/depthgateway/internal/subscription"
	"github.com/sequex/depthgateway/internal/tradefeed"
	"github.com/sequex/depthgateway/internal/venue"
	"github.com/sequex/depthgateway/internal/venue/binance"
	"github.com/sequex/depthgateway/internal/venue/crypto"
)

// DepthManager drives one live, sequence-consistent book subscription and
// exposes it to callers. Construct one with NewDepthManager (level mode) or
// NewDepthManagerWithSnapshot (incremental-depth mode); never both at once
// for the same (venue, symbol) pair.
type DepthManager struct {
	cfg    venue.Config
	cancel context.CancelFunc

	incremental *subscription.Supervisor
	level       *subscription.LevelSupervisor
}

// NewDepthManagerWithSnapshot subscribes to a venue's incremental depth
// stream (REST bootstrap + depth deltas), valid only when limit > 0 resolves
// to incremental-depth mode for that venue/product (Crypto.com never does;
// see venue.Resolve).
func NewDepthManagerWithSnapshot(venueName venue.Name, symbol string, limit int) (*DepthManager, error) {
	cfg, err := venue.Resolve(venueName, symbol, limit)
	if err != nil {
		return nil, err
	}
	if !cfg.IsIncrementalDepth() {
		return nil, fmt.Errorf("depthgateway: %s/%s does not support incremental depth at limit=%d", venueName, symbol, limit)
	}

	newSource := func() subscription.Source {
		return binance.NewDepthSource(cfg)
	}
	sup := subscription.New(venueName.String(), symbol, venue.AlgebraFor(cfg.Product), newSource)

	ctx, cancel := context.WithCancel(context.Background())
	m := &DepthManager{cfg: cfg, cancel: cancel, incremental: sup}
	go sup.Run(ctx)
	return m, nil
}

// NewDepthManager subscribes to a venue's level-event stream (a full top-N
// book replacement on every message, no incremental sequence algebra).
func NewDepthManager(venueName venue.Name, symbol string, limit int) (*DepthManager, error) {
	cfg, err := venue.Resolve(venueName, symbol, 0)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		cfg, err = venue.Resolve(venueName, symbol, limit)
		if err != nil {
			return nil, err
		}
	}
	if !cfg.IsLevelMode() {
		return nil, fmt.Errorf("depthgateway: %s/%s does not support level mode at limit=%d", venueName, symbol, limit)
	}

	newSource := func() subscription.LevelSource {
		switch venueName {
		case venue.Binance:
			return binance.NewLevelSource(cfg)
		case venue.Crypto:
			return crypto.NewLevelSource(cfg.LevelDepth, fmt.Sprintf("book.%s", cfg.NormSymbol))
		default:
			return nil
		}
	}
	sup := subscription.NewLevelSupervisor(venueName.String(), symbol, newSource)

	ctx, cancel := context.WithCancel(context.Background())
	m := &DepthManager{cfg: cfg, cancel: cancel, level: sup}
	go sup.Run(ctx)
	return m, nil
}

// Ready reports whether the manager's ladder currently holds a reconciled,
// live view of the book.
func (m *DepthManager) Ready() bool {
	if m.incremental != nil {
		return m.incremental.Ready()
	}
	return m.level.Ready()
}

// SubscribeDepth returns the channel of depth snapshots emitted as the book
// updates.
func (m *DepthManager) SubscribeDepth() <-chan orderbook.DepthSnapshot {
	if m.incremental != nil {
		return m.incremental.Snapshots()
	}
	return m.level.Snapshots()
}

// LatestDepth is the polling accessor: it returns the most recently emitted
// snapshot, or false while the subscription is not Ready.
func (m *DepthManager) LatestDepth() (orderbook.DepthSnapshot, bool) {
	if m.incremental != nil {
		return m.incremental.LatestDepth()
	}
	return m.level.LatestDepth()
}

// BestBidAsk returns the best bid and best ask from the most recently
// emitted snapshot, or false if none is available yet.
func (m *DepthManager) BestBidAsk() (bid, ask orderbook.PriceLevel, ok bool) {
	snap, ok := m.LatestDepth()
	if !ok || len(snap.Bids) == 0 || len(snap.Asks) == 0 {
		return orderbook.PriceLevel{}, orderbook.PriceLevel{}, false
	}
	return snap.Bids[0], snap.Asks[0], true
}

// Close stops the manager's subscription goroutine.
func (m *DepthManager) Close() { m.cancel() }

// TickerManager drives one live trade-tape subscription.
type TickerManager struct {
	cancel context.CancelFunc
	sup    *tradefeed.Supervisor
}

// NewTickerManager subscribes to a venue's trade stream for symbol.
func NewTickerManager(venueName venue.Name, symbol string) (*TickerManager, error) {
	cfg, err := venue.Resolve(venueName, symbol, 0)
	if err != nil {
		return nil, err
	}

	newSource := func() tradefeed.Source {
		switch venueName {
		case venue.Binance:
			return binance.NewTradeSource(venue.BinanceTradeURL(cfg.Product, cfg.NormSymbol))
		case venue.Crypto:
			return crypto.NewTradeSource(cfg.LevelDepth, fmt.Sprintf("trade.%s", cfg.NormSymbol))
		default:
			return nil
		}
	}
	sup := tradefeed.New(venueName.String(), symbol, newSource)

	ctx, cancel := context.WithCancel(context.Background())
	m := &TickerManager{cancel: cancel, sup: sup}
	go sup.Run(ctx)
	return m, nil
}

// SubscribeTrades returns the channel of trade batches, delivered as one
// channel item per decoded frame (Binance: length 1, Crypto.com: however
// many the frame carried), in input order.
func (m *TickerManager) SubscribeTrades() <-chan []venue.Trade { return m.sup.Trades() }

// Close stops the manager's subscription goroutine.
func (m *TickerManager) Close() { m.cancel() }
