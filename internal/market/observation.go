package market

import (
	"fmt"
	"strings"
	"time"
)

// QualityGrade classifies a lot offered at a mandi.
type QualityGrade string

const (
	QualityPremium  QualityGrade = "premium"
	QualityStandard QualityGrade = "standard"
	QualityBasic    QualityGrade = "basic"
	QualityMixed    QualityGrade = "mixed"
)

func ParseQuality(raw string) QualityGrade {
	switch QualityGrade(strings.ToLower(strings.TrimSpace(raw))) {
	case QualityPremium:
		return QualityPremium
	case QualityBasic:
		return QualityBasic
	case QualityMixed:
		return QualityMixed
	default:
		return QualityStandard
	}
}

// PriceObservation is one reported price for a commodity at one mandi.
// Observations are immutable once produced by the feed.
type PriceObservation struct {
	Commodity  string       `json:"commodity"`
	Market     string       `json:"market"`
	Price      float64      `json:"price"`
	Unit       string       `json:"unit"`
	Quality    QualityGrade `json:"quality"`
	Timestamp  time.Time    `json:"timestamp"`
	Source     string       `json:"source"`
	Confidence float64      `json:"confidence,omitempty"`
	Location   string       `json:"location,omitempty"`
}

// TrendDirection classifies price movement over a window.
type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
	TrendStable  TrendDirection = "stable"
)

// PriceTrend is derived on demand and never persisted as source of truth.
type PriceTrend struct {
	Commodity     string         `json:"commodity"`
	Direction     TrendDirection `json:"direction"`
	ChangePercent float64        `json:"change_percent"`
	Timeframe     string         `json:"timeframe"`
}

// PriceRange summarizes the spread of observed prices.
type PriceRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// MarketComparison aggregates multi-market statistics for one commodity.
// Built fresh per request and cached with a short TTL.
type MarketComparison struct {
	Commodity     string             `json:"commodity"`
	CurrentPrice  float64            `json:"current_price"`
	Range         PriceRange         `json:"range"`
	NearbyMarkets []PriceObservation `json:"nearby_markets"`
	Trend         PriceTrend         `json:"trend"`
	Synthetic     bool               `json:"synthetic,omitempty"`
	FetchedAt     time.Time          `json:"fetched_at"`
}

// Validate guards feed-facing inputs before any I/O happens.
func ValidateCommodity(commodity string) error {
	if strings.TrimSpace(commodity) == "" {
		return fmt.Errorf("commodity cannot be empty")
	}
	return nil
}
