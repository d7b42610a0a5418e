package analytics

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"mandimind/internal/market"
)

// Severity buckets how far an observed price sits from the market mean.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Deviation breakpoints relative to the arithmetic mean. These are a simple
// robust-statistics pass, deliberately insensitive to small samples.
const (
	anomalyDeviation = 0.30
	mediumDeviation  = 0.40
	highDeviation    = 0.50
)

// minAnomalySample is the smallest observation set with enough signal to
// call anything an outlier.
const minAnomalySample = 3

// PriceAnomaly flags one observation that falls outside the expected range.
// Emitted per analysis call; it has no lifecycle of its own.
type PriceAnomaly struct {
	ID            string    `json:"id"`
	Commodity     string    `json:"commodity"`
	Market        string    `json:"market"`
	DetectedPrice float64   `json:"detected_price"`
	ExpectedMin   float64   `json:"expected_min"`
	ExpectedMax   float64   `json:"expected_max"`
	Severity      Severity  `json:"severity"`
	Explanation   string    `json:"explanation"`
	Timestamp     time.Time `json:"timestamp"`
}

// DetectAnomalies scans one commodity's observations for prices deviating
// more than 30% from the mean. Fewer than three usable observations yields
// no anomalies rather than an error.
func DetectAnomalies(observations []market.PriceObservation) []PriceAnomaly {
	prices := make([]float64, 0, len(observations))
	usable := make([]market.PriceObservation, 0, len(observations))
	for _, obs := range observations {
		if obs.Price <= 0 {
			continue
		}
		prices = append(prices, obs.Price)
		usable = append(usable, obs)
	}
	if len(usable) < minAnomalySample {
		return nil
	}

	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))
	if mean <= 0 {
		return nil
	}
	expectedMin := mean * (1 - anomalyDeviation)
	expectedMax := mean * (1 + anomalyDeviation)

	var anomalies []PriceAnomaly
	now := time.Now()
	for _, obs := range usable {
		deviation := (obs.Price - mean) / mean
		abs := deviation
		if abs < 0 {
			abs = -abs
		}
		if abs <= anomalyDeviation {
			continue
		}
		direction := "above"
		if deviation < 0 {
			direction = "below"
		}
		anomalies = append(anomalies, PriceAnomaly{
			ID:            uuid.NewString(),
			Commodity:     obs.Commodity,
			Market:        obs.Market,
			DetectedPrice: obs.Price,
			ExpectedMin:   expectedMin,
			ExpectedMax:   expectedMax,
			Severity:      severityFor(abs),
			Explanation: fmt.Sprintf("price %.2f at %s is %.1f%% %s the market mean %.2f",
				obs.Price, obs.Market, abs*100, direction, mean),
			Timestamp: now,
		})
	}
	return anomalies
}

func severityFor(deviation float64) Severity {
	switch {
	case deviation > highDeviation:
		return SeverityHigh
	case deviation > mediumDeviation:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
