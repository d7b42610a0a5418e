package market

import "context"

// Feed is the external price source. Both calls may fail; consumers are
// expected to catch and degrade rather than surface feed errors.
type Feed interface {
	// CurrentPrices returns the latest observations for a commodity,
	// optionally narrowed to a location. Order is feed order.
	CurrentPrices(ctx context.Context, commodity, location string) ([]PriceObservation, error)

	// PriceTrend returns the feed's own pre-derived trend for a commodity.
	PriceTrend(ctx context.Context, commodity string) (PriceTrend, error)
}
