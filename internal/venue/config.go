package venue

import (
	"fmt"
	"strings"
)

// Config is the resolved set of addresses and product tag for one
// (venue, symbol, limit) request. Exactly one of {Rest+Depth, LevelDepth}
// is populated, matching Config::is_depth / Config::is_normal.
type Config struct {
	Venue      Name
	Product    Product
	NormSymbol string // venue-native symbol spelling, e.g. "btcusdt" or "BTC_USDT"
	Rest       string // REST bootstrap-snapshot URL; set only in incremental-depth mode
	Depth      string // incremental depth-update WS URL; set only in incremental-depth mode
	LevelDepth string // full top-N level WS URL; set only in level mode
}

// Resolve builds a Config for venue/symbol. limit > 0 requests incremental
// depth mode (REST snapshot + depth deltas) where the venue supports it;
// limit <= 0 requests level mode (a full top-N stream: top 20 on Binance;
// on the crypto venue, which is level-only, depth is limit, or 10 when no
// limit is given).
//
// Grounded on original_source/src/match_up.rs match_up/set_addr_for_binance/
// set_addr_for_crypto, with panics on unsupported input replaced by errors:
// this package never panics on attacker- or operator-controlled strings.
func Resolve(v Name, symbol string, limit int) (Config, error) {
	switch v {
	case Binance:
		return resolveBinance(symbol, limit)
	case Crypto:
		return resolveCrypto(symbol, limit)
	default:
		return Config{}, fmt.Errorf("%w: %v", ErrUnsupportedVenue, v)
	}
}

// symbolShape is the parsed (product, normalized-inner-symbol) pair shared
// by both venues' symbol grammar: "BTC_USDT", "BTC_USDT_SWAP" (USDT-margined
// perp), or "BTC_USDT_221230_SWAP" (coin-margined perp).
type symbolShape struct {
	product Product
	inner   string // underscore-joined parts with the trailing "_SWAP" removed
}

func parseSymbolShape(symbol string) (symbolShape, error) {
	parts := strings.Split(symbol, "_")
	if len(parts) < 2 || len(parts) > 4 {
		return symbolShape{}, fmt.Errorf("%w: %q", ErrUnsupportedSymbol, symbol)
	}

	isContract := strings.HasSuffix(symbol, "_SWAP")
	isSpot := !strings.Contains(symbol, "SWAP")
	isContractCoin := isContract && len(parts) == 4

	inner := parts
	if isContract {
		inner = inner[:len(inner)-1]
	}

	switch {
	case isContract && isContractCoin:
		return symbolShape{product: InversePerp, inner: strings.Join(inner, "_")}, nil
	case isContract && !isContractCoin:
		return symbolShape{product: LinearPerp, inner: strings.Join(inner, "_")}, nil
	case isSpot:
		return symbolShape{product: Spot, inner: strings.Join(inner, "_")}, nil
	default:
		return symbolShape{}, fmt.Errorf("%w: %q", ErrUnsupportedSymbol, symbol)
	}
}

func resolveBinance(symbol string, limit int) (Config, error) {
	shape, err := parseSymbolShape(symbol)
	if err != nil {
		return Config{}, err
	}
	inner := strings.ToLower(strings.ReplaceAll(shape.inner, "_", ""))
	// ContractCoin keeps its underscore before the delivery date, e.g.
	// "btcusd_221230"; the other two classes are fully concatenated.
	if shape.product == InversePerp {
		parts := strings.Split(shape.inner, "_")
		if len(parts) != 3 {
			return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedSymbol, symbol)
		}
		inner = fmt.Sprintf("%s%s_%s", strings.ToLower(parts[0]), strings.ToLower(parts[1]), parts[2])
	}

	cfg := Config{Venue: Binance, Product: shape.product, NormSymbol: inner}

	if limit > 0 {
		switch shape.product {
		case Spot:
			cfg.Rest = fmt.Sprintf("https://api.binance.com/api/v3/depth?symbol=%s&limit=%d", strings.ToUpper(inner), limit)
			cfg.Depth = fmt.Sprintf("wss://stream.binance.com:9443/ws/%s@depth@100ms", inner)
		case LinearPerp:
			cfg.Rest = fmt.Sprintf("https://fapi.binance.com/fapi/v1/depth?symbol=%s&limit=%d", strings.ToUpper(inner), limit)
			cfg.Depth = fmt.Sprintf("wss://fstream.binance.com/stream?streams=%s@depth@100ms", inner)
		case InversePerp:
			cfg.Rest = fmt.Sprintf("https://dapi.binance.com/dapi/v1/depth?symbol=%s&limit=%d", strings.ToUpper(inner), limit)
			cfg.Depth = fmt.Sprintf("wss://dstream.binance.com/stream?streams=%s@depth@100ms", inner)
		}
		return cfg, nil
	}

	switch shape.product {
	case Spot:
		cfg.LevelDepth = fmt.Sprintf("wss://stream.binance.com:9443/ws/%s@depth20@100ms", inner)
	case LinearPerp:
		cfg.LevelDepth = fmt.Sprintf("wss://fstream.binance.com/stream?streams=%s@depth20@100ms", inner)
	case InversePerp:
		cfg.LevelDepth = fmt.Sprintf("wss://dstream.binance.com/stream?streams=%s@depth20@100ms", inner)
	}
	return cfg, nil
}

// resolveCrypto resolves a Crypto.com-style venue config. This venue is
// spot-only and level-event-only: it never serves incremental depth or
// contract symbols, matching set_addr_for_crypto's panic-on-contract
// behavior (translated here into a returned error instead).
func resolveCrypto(symbol string, limit int) (Config, error) {
	shape, err := parseSymbolShape(symbol)
	if err != nil {
		return Config{}, err
	}
	if shape.product != Spot {
		return Config{}, fmt.Errorf("%w: crypto venue only supports spot symbols, got %q", ErrUnsupportedSymbol, symbol)
	}

	depth := 10
	if limit > 0 {
		depth = limit
	}
	return Config{
		Venue:      Crypto,
		Product:    Spot,
		NormSymbol: shape.inner,
		LevelDepth: fmt.Sprintf("wss://stream.crypto.com/v2/market/get-book?instrument_name=%s&depth=%d", shape.inner, depth),
	}, nil
}

// BinanceTradeURL derives the raw-trade stream URL for a Binance product
// class and normalized symbol, mirroring set_addr_for_binance's per-product
// host selection for the depth streams.
func BinanceTradeURL(product Product, normSymbol string) string {
	switch product {
	case LinearPerp:
		return fmt.Sprintf("wss://fstream.binance.com/stream?streams=%s@trade", normSymbol)
	case InversePerp:
		return fmt.Sprintf("wss://dstream.binance.com/stream?streams=%s@trade", normSymbol)
	default:
		return fmt.Sprintf("wss://stream.binance.com:9443/ws/%s@trade", normSymbol)
	}
}

// IsIncrementalDepth reports whether a Config represents incremental-depth
// mode (REST snapshot + depth deltas) rather than level-event mode.
func (c Config) IsIncrementalDepth() bool {
	return c.Rest != "" && c.Depth != "" && c.LevelDepth == ""
}

// IsLevelMode reports whether a Config represents level-event mode.
func (c Config) IsLevelMode() bool {
	return c.LevelDepth != "" && c.Rest == "" && c.Depth == ""
}
