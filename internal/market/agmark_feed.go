package market

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// AgmarkFeed pulls mandi price records from an Agmarknet-style REST API.
type AgmarkFeed struct {
	apiKey string
	client *resty.Client
}

type agmarkRecord struct {
	Commodity  string  `json:"commodity"`
	Market     string  `json:"market"`
	District   string  `json:"district"`
	State      string  `json:"state"`
	ModalPrice float64 `json:"modal_price"`
	Unit       string  `json:"unit"`
	Grade      string  `json:"grade"`
	ArrivalAt  string  `json:"arrival_date"`
	Confidence float64 `json:"confidence"`
}

type agmarkPriceResponse struct {
	Records []agmarkRecord `json:"records"`
	Total   int            `json:"total"`
}

type agmarkTrendResponse struct {
	Commodity     string  `json:"commodity"`
	Direction     string  `json:"direction"`
	ChangePercent float64 `json:"change_percent"`
	Timeframe     string  `json:"timeframe"`
}

func NewAgmarkFeed(baseURL, apiKey string, timeout time.Duration, retries int) *AgmarkFeed {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetRetryCount(retries)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})
	client.SetHeader("Accept", "application/json")
	return &AgmarkFeed{apiKey: apiKey, client: client}
}

func (f *AgmarkFeed) CurrentPrices(ctx context.Context, commodity, location string) ([]PriceObservation, error) {
	if err := ValidateCommodity(commodity); err != nil {
		return nil, err
	}
	req := f.client.R().
		SetContext(ctx).
		SetQueryParam("commodity", strings.TrimSpace(commodity))
	if f.apiKey != "" {
		req.SetQueryParam("api-key", f.apiKey)
	}
	if loc := strings.TrimSpace(location); loc != "" {
		req.SetQueryParam("district", loc)
	}
	var payload agmarkPriceResponse
	resp, err := req.SetResult(&payload).Get("/prices")
	if err != nil {
		return nil, fmt.Errorf("price feed request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("price feed returned %s", resp.Status())
	}

	now := time.Now()
	out := make([]PriceObservation, 0, len(payload.Records))
	for _, rec := range payload.Records {
		if rec.ModalPrice <= 0 {
			continue
		}
		obs := PriceObservation{
			Commodity:  strings.TrimSpace(rec.Commodity),
			Market:     strings.TrimSpace(rec.Market),
			Price:      rec.ModalPrice,
			Unit:       rec.Unit,
			Quality:    ParseQuality(rec.Grade),
			Source:     "agmarknet",
			Confidence: rec.Confidence,
			Location:   joinLocation(rec.District, rec.State),
			Timestamp:  parseArrival(rec.ArrivalAt, now),
		}
		if obs.Commodity == "" {
			obs.Commodity = commodity
		}
		if obs.Unit == "" {
			obs.Unit = "quintal"
		}
		out = append(out, obs)
	}
	return out, nil
}

func (f *AgmarkFeed) PriceTrend(ctx context.Context, commodity string) (PriceTrend, error) {
	if err := ValidateCommodity(commodity); err != nil {
		return PriceTrend{}, err
	}
	req := f.client.R().
		SetContext(ctx).
		SetQueryParam("commodity", strings.TrimSpace(commodity))
	if f.apiKey != "" {
		req.SetQueryParam("api-key", f.apiKey)
	}
	var payload agmarkTrendResponse
	resp, err := req.SetResult(&payload).Get("/trend")
	if err != nil {
		return PriceTrend{}, fmt.Errorf("trend request failed: %w", err)
	}
	if resp.IsError() {
		return PriceTrend{}, fmt.Errorf("trend endpoint returned %s", resp.Status())
	}
	trend := PriceTrend{
		Commodity:     commodity,
		Direction:     TrendDirection(strings.ToLower(strings.TrimSpace(payload.Direction))),
		ChangePercent: payload.ChangePercent,
		Timeframe:     payload.Timeframe,
	}
	switch trend.Direction {
	case TrendRising, TrendFalling, TrendStable:
	default:
		trend.Direction = TrendStable
	}
	if trend.Timeframe == "" {
		trend.Timeframe = "7d"
	}
	return trend, nil
}

func joinLocation(district, state string) string {
	district = strings.TrimSpace(district)
	state = strings.TrimSpace(state)
	switch {
	case district == "":
		return state
	case state == "":
		return district
	default:
		return district + ", " + state
	}
}

func parseArrival(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "02/01/2006"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return fallback
}
