package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mandimind/internal/market"
	"mandimind/internal/negotiation"
)

func comparison(mean, min, max float64) market.MarketComparison {
	return market.MarketComparison{
		Commodity:    "wheat",
		CurrentPrice: mean,
		Range:        market.PriceRange{Min: min, Max: max, Average: mean},
	}
}

func TestDeterministicSuggestion(t *testing.T) {
	t.Run("VendorBelowMarket", func(t *testing.T) {
		// 2100 * 1.05 = 2205, inside the range, so no clamp.
		s := deterministicSuggestion(negotiation.RoleVendor, defaultProfiles[negotiation.RoleVendor], 2000, comparison(2100, 1900, 2400))
		assert.InDelta(t, 2205.0, s.SuggestedPrice, 1e-9)
		assert.Equal(t, confTowardMarket, s.Confidence)
		assert.Contains(t, s.Reasoning, "below the market average")
	})

	t.Run("VendorBelowMarketClampedToRangeMax", func(t *testing.T) {
		s := deterministicSuggestion(negotiation.RoleVendor, defaultProfiles[negotiation.RoleVendor], 2000, comparison(2100, 1900, 2150))
		assert.InDelta(t, 2150.0, s.SuggestedPrice, 1e-9)
	})

	t.Run("VendorAtOrAboveMarket", func(t *testing.T) {
		s := deterministicSuggestion(negotiation.RoleVendor, defaultProfiles[negotiation.RoleVendor], 2200, comparison(2100, 1900, 2400))
		assert.InDelta(t, 2310.0, s.SuggestedPrice, 1e-9)
		assert.Equal(t, confCompetitive, s.Confidence)
		assert.Contains(t, s.Reasoning, "competitive")
	})

	t.Run("BuyerAboveMarket", func(t *testing.T) {
		s := deterministicSuggestion(negotiation.RoleBuyer, defaultProfiles[negotiation.RoleBuyer], 2200, comparison(2100, 1900, 2400))
		assert.InDelta(t, 1995.0, s.SuggestedPrice, 1e-9)
		assert.Equal(t, confTowardMarket, s.Confidence)
		assert.Contains(t, s.Reasoning, "above the market average")
	})

	t.Run("BuyerAboveMarketClampedToRangeMin", func(t *testing.T) {
		s := deterministicSuggestion(negotiation.RoleBuyer, defaultProfiles[negotiation.RoleBuyer], 2200, comparison(2100, 2050, 2400))
		assert.InDelta(t, 2050.0, s.SuggestedPrice, 1e-9)
	})

	t.Run("BuyerAtOrBelowMarket", func(t *testing.T) {
		s := deterministicSuggestion(negotiation.RoleBuyer, defaultProfiles[negotiation.RoleBuyer], 2000, comparison(2100, 1900, 2400))
		assert.InDelta(t, 1900.0, s.SuggestedPrice, 1e-9)
		assert.Equal(t, confCompetitive, s.Confidence)
	})

	t.Run("AgentSuggestsMarketPrice", func(t *testing.T) {
		s := deterministicSuggestion(negotiation.RoleAgent, defaultProfiles[negotiation.RoleAgent], 2000, comparison(2100, 1900, 2400))
		assert.Equal(t, 2100.0, s.SuggestedPrice)
		assert.Equal(t, confNeutral, s.Confidence)
	})

	t.Run("AdminSuggestsMarketPrice", func(t *testing.T) {
		s := deterministicSuggestion(negotiation.RoleAdmin, defaultProfiles[negotiation.RoleAdmin], 2000, comparison(2100, 1900, 2400))
		assert.Equal(t, 2100.0, s.SuggestedPrice)
		assert.Equal(t, confNeutral, s.Confidence)
	})

	t.Run("ZeroMarketPriceFallsBackToOffer", func(t *testing.T) {
		s := deterministicSuggestion(negotiation.RoleAgent, defaultProfiles[negotiation.RoleAgent], 2000, market.MarketComparison{})
		assert.Equal(t, 2000.0, s.SuggestedPrice)
	})
}

func TestProfileBiasDrivesNudge(t *testing.T) {
	t.Run("VendorBiasWidensNudge", func(t *testing.T) {
		// 2100 * 1.10, still inside the range.
		s := deterministicSuggestion(negotiation.RoleVendor, Profile{MarketBias: 0.10}, 2000, comparison(2100, 1900, 2400))
		assert.InDelta(t, 2310.0, s.SuggestedPrice, 1e-9)
	})

	t.Run("BuyerBiasWidensNudge", func(t *testing.T) {
		// 2100 * 0.90.
		s := deterministicSuggestion(negotiation.RoleBuyer, Profile{MarketBias: -0.10}, 2200, comparison(2100, 1800, 2400))
		assert.InDelta(t, 1890.0, s.SuggestedPrice, 1e-9)
	})

	t.Run("ZeroBiasUsesDefaultStep", func(t *testing.T) {
		s := deterministicSuggestion(negotiation.RoleVendor, Profile{}, 2000, comparison(2100, 1900, 2400))
		assert.InDelta(t, 2205.0, s.SuggestedPrice, 1e-9)
	})

	t.Run("WrongSignBiasUsesDefaultStep", func(t *testing.T) {
		// A vendor profile leaning below market is ignored.
		s := deterministicSuggestion(negotiation.RoleVendor, Profile{MarketBias: -0.20}, 2000, comparison(2100, 1900, 2400))
		assert.InDelta(t, 2205.0, s.SuggestedPrice, 1e-9)
	})
}
