package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"mandimind/internal/cache"
	"mandimind/internal/logger"
	"mandimind/internal/market"
)

const (
	comparisonTTL     = 5 * time.Minute
	maxNearbyMarkets  = 5
	syntheticSpread   = 0.1
	defaultTimeframe  = "7d"
	comparisonKeyStem = "comparison"
)

// Builder assembles market comparisons over the price feed with a fail-soft
// cache discipline: fresh cache wins while online, any cache wins while
// offline, and a total fetch failure degrades to a synthetic comparison
// around the reference price. Build never returns an error.
type Builder struct {
	feed     market.Feed
	store    cache.Store
	online   cache.OnlineFunc
	location string
	ttl      time.Duration
	nowFn    func() time.Time
}

func NewBuilder(feed market.Feed, store cache.Store, online cache.OnlineFunc) *Builder {
	return &Builder{
		feed:   feed,
		store:  store,
		online: online,
		ttl:    comparisonTTL,
		nowFn:  time.Now,
	}
}

// SetLocation narrows feed queries to a district; empty means nationwide.
func (b *Builder) SetLocation(location string) {
	b.location = strings.TrimSpace(location)
}

// Build returns the comparison for a commodity around a reference price.
func (b *Builder) Build(ctx context.Context, commodity string, referencePrice float64) market.MarketComparison {
	key := comparisonKey(commodity, referencePrice)
	now := b.nowFn()
	online := cache.Online(b.online)

	if cached, meta, ok := cache.Lookup[market.MarketComparison](ctx, b.store, key); ok {
		if online && !meta.Stale(now) {
			return cached
		}
		if !online {
			logger.Debugf("comparison served stale from cache (offline): %s", key)
			return cached
		}
	}
	if !online {
		logger.Warnf("comparison offline with no cache, synthesizing: %s", commodity)
		return b.synthetic(commodity, referencePrice)
	}

	comparison, err := b.fetch(ctx, commodity, referencePrice)
	if err != nil {
		logger.Warnf("comparison fetch failed for %s, synthesizing: %v", commodity, err)
		return b.synthetic(commodity, referencePrice)
	}
	if err := cache.Put(ctx, b.store, key, comparison, b.ttl); err != nil {
		logger.Warnf("comparison cache write failed: %v", err)
	}
	return comparison
}

func (b *Builder) fetch(ctx context.Context, commodity string, referencePrice float64) (market.MarketComparison, error) {
	var (
		observations []market.PriceObservation
		trend        market.PriceTrend
		trendErr     error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		observations, err = b.feed.CurrentPrices(gctx, commodity, b.location)
		return err
	})
	g.Go(func() error {
		// Trend failure is non-fatal: the comparison falls back to stable.
		trend, trendErr = b.feed.PriceTrend(gctx, commodity)
		return nil
	})
	if err := g.Wait(); err != nil {
		return market.MarketComparison{}, err
	}
	if len(observations) == 0 {
		return market.MarketComparison{}, fmt.Errorf("feed returned no observations for %s", commodity)
	}
	if trendErr != nil {
		logger.Debugf("trend fetch failed for %s, using stable: %v", commodity, trendErr)
		trend = market.PriceTrend{
			Commodity: commodity,
			Direction: market.TrendStable,
			Timeframe: defaultTimeframe,
		}
	}

	stats := priceStats(observations)
	nearby := observations
	if len(nearby) > maxNearbyMarkets {
		nearby = nearby[:maxNearbyMarkets]
	}
	return market.MarketComparison{
		Commodity:     commodity,
		CurrentPrice:  stats.Average,
		Range:         stats,
		NearbyMarkets: append([]market.PriceObservation(nil), nearby...),
		Trend:         trend,
		FetchedAt:     b.nowFn(),
	}, nil
}

func (b *Builder) synthetic(commodity string, referencePrice float64) market.MarketComparison {
	ref := decimal.NewFromFloat(referencePrice)
	low, _ := ref.Mul(decimal.NewFromFloat(1 - syntheticSpread)).Float64()
	high, _ := ref.Mul(decimal.NewFromFloat(1 + syntheticSpread)).Float64()
	return market.MarketComparison{
		Commodity:    commodity,
		CurrentPrice: referencePrice,
		Range:        market.PriceRange{Min: low, Max: high, Average: referencePrice},
		Trend: market.PriceTrend{
			Commodity: commodity,
			Direction: market.TrendStable,
			Timeframe: defaultTimeframe,
		},
		Synthetic: true,
		FetchedAt: b.nowFn(),
	}
}

func priceStats(observations []market.PriceObservation) market.PriceRange {
	min := decimal.NewFromFloat(observations[0].Price)
	max := min
	sum := decimal.Zero
	for _, obs := range observations {
		p := decimal.NewFromFloat(obs.Price)
		if p.LessThan(min) {
			min = p
		}
		if p.GreaterThan(max) {
			max = p
		}
		sum = sum.Add(p)
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(len(observations)))).Float64()
	lo, _ := min.Float64()
	hi, _ := max.Float64()
	return market.PriceRange{Min: lo, Max: hi, Average: avg}
}

func comparisonKey(commodity string, referencePrice float64) string {
	return fmt.Sprintf("%s:%s:%.2f", comparisonKeyStem, strings.ToLower(strings.TrimSpace(commodity)), referencePrice)
}
