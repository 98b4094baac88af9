package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sequex/depthgateway/internal/venue"
)

// RestClient fetches REST depth-snapshot bootstrap responses. Grounded on
// the resty retry/timeout configuration used across the pack's REST clients
// (e.g. 0xtitan6-polymarket-mm/internal/exchange/client.go NewClient).
type RestClient struct {
	http *resty.Client
	url  string
}

// NewRestClient builds a RestClient that always fetches from url.
func NewRestClient(url string) *RestClient {
	http := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})
	return &RestClient{http: http, url: url}
}

type restDepthResponse struct {
	LastUpdateID int64     `json:"lastUpdateId"`
	Bids         rawLevels `json:"bids"`
	Asks         rawLevels `json:"asks"`
}

// FetchSnapshot implements orderbook.RestFetcher.
func (c *RestClient) FetchSnapshot(ctx context.Context) (venue.RestBootstrapSnapshot, error) {
	var body restDepthResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get(c.url)
	if err != nil {
		return venue.RestBootstrapSnapshot{}, fmt.Errorf("binance: rest snapshot fetch: %w", err)
	}
	if resp.IsError() {
		return venue.RestBootstrapSnapshot{}, fmt.Errorf("binance: rest snapshot fetch: status %d", resp.StatusCode())
	}

	bids, err := parseLevels(body.Bids)
	if err != nil {
		return venue.RestBootstrapSnapshot{}, err
	}
	asks, err := parseLevels(body.Asks)
	if err != nil {
		return venue.RestBootstrapSnapshot{}, err
	}
	return venue.RestBootstrapSnapshot{
		LastUpdateID: body.LastUpdateID,
		Bids:         bids,
		Asks:         asks,
		VenueTS:      0,
	}, nil
}
