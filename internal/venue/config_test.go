package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBinance_Spot(t *testing.T) {
	cfg, err := Resolve(Binance, "BNB_BTC", 1000)
	require.NoError(t, err)
	assert.Equal(t, Spot, cfg.Product)
	assert.Equal(t, "bnbbtc", cfg.NormSymbol)
	assert.Contains(t, cfg.Rest, "BNBBTC")
	assert.Contains(t, cfg.Depth, "bnbbtc@depth@100ms")
	assert.True(t, cfg.IsIncrementalDepth())
}

func TestResolveBinance_LinearPerp(t *testing.T) {
	cfg, err := Resolve(Binance, "BTC_USDT_SWAP", 1000)
	require.NoError(t, err)
	assert.Equal(t, LinearPerp, cfg.Product)
	assert.Contains(t, cfg.Depth, "fstream.binance.com")
	assert.Contains(t, cfg.Rest, "fapi.binance.com")
}

func TestResolveBinance_InversePerp(t *testing.T) {
	cfg, err := Resolve(Binance, "BTC_USD_221230_SWAP", 1000)
	require.NoError(t, err)
	assert.Equal(t, InversePerp, cfg.Product)
	assert.Contains(t, cfg.Depth, "dstream.binance.com")
	assert.Contains(t, cfg.NormSymbol, "221230")
}

func TestResolveBinance_LevelMode(t *testing.T) {
	cfg, err := Resolve(Binance, "BNB_BTC", 0)
	require.NoError(t, err)
	assert.True(t, cfg.IsLevelMode())
	assert.Contains(t, cfg.LevelDepth, "depth20")
}

func TestResolveBinance_UnsupportedSymbol(t *testing.T) {
	_, err := Resolve(Binance, "BADSYMBOL", 1000)
	assert.ErrorIs(t, err, ErrUnsupportedSymbol)
}

func TestResolveCrypto_Spot(t *testing.T) {
	cfg, err := Resolve(Crypto, "BTC_USDT", 10)
	require.NoError(t, err)
	assert.Equal(t, Spot, cfg.Product)
	assert.True(t, cfg.IsLevelMode())
	assert.Contains(t, cfg.LevelDepth, "BTC_USDT")
	assert.Contains(t, cfg.LevelDepth, "depth=10")
}

func TestResolveCrypto_RejectsContract(t *testing.T) {
	_, err := Resolve(Crypto, "BTC_USDT_SWAP", 10)
	assert.ErrorIs(t, err, ErrUnsupportedSymbol)
}

func TestResolve_UnsupportedVenue(t *testing.T) {
	_, err := Resolve(Name(99), "BTC_USDT", 10)
	assert.ErrorIs(t, err, ErrUnsupportedVenue)
}
