package nordpool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mkrogh/nightcharge/core/model"
	"github.com/mkrogh/nightcharge/core/pricing"
	"github.com/mkrogh/nightcharge/infra/logger"
)

// Client fetches hourly spot prices from a Nord Pool style JSON API.
type Client struct {
	base  string
	httpc *http.Client
	log   logger.Logger
}

// New creates a price feed client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		base:  baseURL,
		httpc: &http.Client{Timeout: 10 * time.Second},
		log:   logger.New("nordpool"),
	}
}

// hourlyResponse is the feed's wire shape. Hours the feed has not
// published yet come back with a null value.
type hourlyResponse struct {
	Values []struct {
		Start time.Time `json:"start"`
		Value *float64  `json:"value"`
	} `json:"values"`
}

// HourlyPrices returns the 24 hourly prices for the given calendar day,
// area and currency. Unpublished hours map to points with Known=false.
// Any response shape other than 24 ordered contiguous hourly points is
// a contract violation surfaced as ErrDataUnavailable.
func (c *Client) HourlyPrices(ctx context.Context, day time.Time, area, currency string) (model.PriceSeries, error) {
	q := url.Values{}
	q.Set("date", day.Format("2006-01-02"))
	q.Set("area", area)
	q.Set("currency", currency)
	u := fmt.Sprintf("%s/hourly?%s", c.base, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hourly prices: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: feed returned %s for %s", pricing.ErrDataUnavailable, resp.Status, day.Format("2006-01-02"))
	}

	var body hourlyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode feed response: %v", pricing.ErrDataUnavailable, err)
	}

	series := make(model.PriceSeries, 0, len(body.Values))
	for _, v := range body.Values {
		p := model.PricePoint{Start: v.Start}
		if v.Value != nil {
			p.Value = *v.Value
			p.Known = true
		}
		series = append(series, p)
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pricing.ErrDataUnavailable, err)
	}
	c.log.Debugw("fetched hourly prices", map[string]any{
		"date":      day.Format("2006-01-02"),
		"area":      area,
		"currency":  currency,
		"published": series.Available(),
	})
	return series, nil
}
