package analytics

import (
	talib "github.com/markcheno/go-talib"

	"mandimind/internal/market"
)

// Percent-change thresholds for classifying a window as rising or falling.
const trendThresholdPct = 5.0

// CalculateTrend classifies chronologically ordered prices for one
// commodity. Fewer than two points degrades to stable/0 rather than an
// error; the raw percent change is carried unclamped.
func CalculateTrend(commodity string, points []float64, timeframe string) market.PriceTrend {
	trend := market.PriceTrend{
		Commodity: commodity,
		Direction: market.TrendStable,
		Timeframe: timeframe,
	}
	if len(points) < 2 {
		return trend
	}
	first, last := points[0], points[len(points)-1]
	if first <= 0 {
		return trend
	}
	change := (last - first) / first * 100
	trend.ChangePercent = change
	switch {
	case change > trendThresholdPct:
		trend.Direction = market.TrendRising
	case change < -trendThresholdPct:
		trend.Direction = market.TrendFalling
	}
	return trend
}

// SmoothedSeries overlays a simple moving average on a price series, used by
// the chart page to de-noise short windows. Series shorter than the window
// come back unchanged.
func SmoothedSeries(points []float64, window int) []float64 {
	if window < 2 || len(points) < window {
		return append([]float64(nil), points...)
	}
	return talib.Sma(points, window)
}
