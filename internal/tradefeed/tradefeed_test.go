package tradefeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sequex/depthgateway/internal/venue"
)

type stubSource struct {
	batches chan []venue.Trade
}

func (s *stubSource) Connect(ctx context.Context) (<-chan []venue.Trade, error) {
	return s.batches, nil
}

func (s *stubSource) Close() error { return nil }

// S6 — A three-trade frame is delivered as one batch on the output channel,
// in input order, not flattened into three individual sends.
func TestSupervisor_EmitsBatchAsOneUnit(t *testing.T) {
	restore := nowMillis
	nowMillis = func() int64 { return 42 }
	defer func() { nowMillis = restore }()

	batches := make(chan []venue.Trade, 1)
	src := &stubSource{batches: batches}
	sup := New("binance", "BTC_USDT", func() Source { return src })

	batches <- []venue.Trade{
		{TradeID: "1", Side: venue.Buy},
		{TradeID: "2", Side: venue.Sell},
		{TradeID: "3", Side: venue.Buy},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	select {
	case got := <-sup.Trades():
		require.Len(t, got, 3)
		assert.Equal(t, "1", got[0].TradeID)
		assert.Equal(t, "2", got[1].TradeID)
		assert.Equal(t, "3", got[2].TradeID)
		assert.Equal(t, int64(42), got[0].LocalTS)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for trade batch")
	}

	cancel()
	<-done
}
