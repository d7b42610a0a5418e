package advisor

import (
	"github.com/shopspring/decimal"

	"mandimind/internal/market"
	"mandimind/internal/negotiation"
)

// Confidence levels reflect how directly the market data backs a branch:
// the neutral mid-market answer is strongest, the move-toward-market nudge
// next, the keep-close-to-offer nudge weakest.
const (
	confCompetitive  = 0.6
	confTowardMarket = 0.7
	confNeutral      = 0.8
)

// roleNudge is the default 5% step buyer/vendor suggestions move by when the
// profile carries no market bias of its own.
const roleNudge = 0.05

// biasNudge is the signed market lean for the role: the profile's market
// bias when it points toward the role's side, otherwise the default step.
// Neutral roles never lean.
func biasNudge(role negotiation.Role, profile Profile) float64 {
	bias := profile.MarketBias
	switch {
	case sellerLeaning(role):
		if bias <= 0 {
			bias = roleNudge
		}
	case buyerLeaning(role):
		if bias >= 0 {
			bias = -roleNudge
		}
	default:
		bias = 0
	}
	return bias
}

// deterministicSuggestion is the always-available advisory path: a pure
// function of the current offer, the role profile, and the market comparison.
func deterministicSuggestion(role negotiation.Role, profile Profile, currentOffer float64, comp market.MarketComparison) Suggestion {
	marketPrice := comp.CurrentPrice
	if marketPrice <= 0 {
		marketPrice = currentOffer
	}
	nudge := biasNudge(role, profile)

	switch {
	case buyerLeaning(role):
		if currentOffer > marketPrice {
			return Suggestion{
				SuggestedPrice: maxPrice(comp.Range.Min, mulFactor(marketPrice, 1+nudge)),
				Reasoning:      "Your offer is above the market average; moving toward the market rate keeps you competitive.",
				Confidence:     confTowardMarket,
				Source:         SourceFallback,
			}
		}
		return Suggestion{
			SuggestedPrice: maxPrice(mulFactor(currentOffer, 1+nudge), comp.Range.Min),
			Reasoning:      "Your offer is competitive; a small reduction may close the deal.",
			Confidence:     confCompetitive,
			Source:         SourceFallback,
		}
	case sellerLeaning(role):
		if currentOffer < marketPrice {
			return Suggestion{
				SuggestedPrice: minPrice(comp.Range.Max, mulFactor(marketPrice, 1+nudge)),
				Reasoning:      "Your offer is below the market average; asking closer to the market rate is justified.",
				Confidence:     confTowardMarket,
				Source:         SourceFallback,
			}
		}
		return Suggestion{
			SuggestedPrice: minPrice(mulFactor(currentOffer, 1+nudge), comp.Range.Max),
			Reasoning:      "Your offer is competitive; a small increase may still be accepted.",
			Confidence:     confCompetitive,
			Source:         SourceFallback,
		}
	default:
		// Agents and admins arbitrate from the middle.
		return Suggestion{
			SuggestedPrice: marketPrice,
			Reasoning:      "The market average is the fair midpoint between both sides.",
			Confidence:     confNeutral,
			Source:         SourceFallback,
		}
	}
}

// Price arithmetic goes through decimal so repeated percentage nudges do not
// accumulate float drift.

func mulFactor(price, factor float64) float64 {
	out, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(factor)).Float64()
	return out
}

func maxPrice(a, b float64) float64 {
	if decimal.NewFromFloat(a).GreaterThanOrEqual(decimal.NewFromFloat(b)) {
		return a
	}
	return b
}

func minPrice(a, b float64) float64 {
	if decimal.NewFromFloat(a).LessThanOrEqual(decimal.NewFromFloat(b)) {
		return a
	}
	return b
}
