package advisor

import (
	"context"
	"fmt"
	"strings"

	"mandimind/internal/cache"
	"mandimind/internal/logger"
	"mandimind/internal/market"
	"mandimind/internal/negotiation"
)

// Level grades a market-condition signal.
type Level string

const (
	LevelLow    Level = "low"
	LevelNormal Level = "normal"
	LevelHigh   Level = "high"
)

// Conditions are coarse market-state signals folded into the dynamic path.
// Seasonal is a multiplier around 1.0 (harvest glut < 1 < lean season).
type Conditions struct {
	Supply      Level   `json:"supply"`
	Demand      Level   `json:"demand"`
	Seasonal    float64 `json:"seasonal"`
	Competition Level   `json:"competition"`
}

// ConditionSource supplies current conditions for a commodity. Pluggable;
// the static default keeps the dynamic path total when no live source is
// wired.
type ConditionSource interface {
	Conditions(ctx context.Context, commodity string) (Conditions, error)
}

// StaticConditions always answers with a fixed (by default neutral) state.
type StaticConditions struct {
	State Conditions
}

func (s StaticConditions) Conditions(context.Context, string) (Conditions, error) {
	c := s.State
	if c.Supply == "" {
		c.Supply = LevelNormal
	}
	if c.Demand == "" {
		c.Demand = LevelNormal
	}
	if c.Competition == "" {
		c.Competition = LevelNormal
	}
	if c.Seasonal == 0 {
		c.Seasonal = 1.0
	}
	return c, nil
}

// Per-signal nudges, all within the 1-5% band.
const (
	supplyNudge      = 0.05
	demandNudge      = 0.04
	competitionNudge = 0.03
	seasonalCap      = 0.03
	movementNudge    = 0.02
	latencyNudge     = 0.02
	moderationPull   = 0.3
)

const (
	dynamicBaseConfidence = 0.7
	signalConfidenceStep  = 0.05
	aggressivenessCeiling = 0.7
)

// GetDynamicSuggestion layers market-condition and chat-pattern signals on
// top of the fair market price. Any internal failure falls back to the
// deterministic base algorithm; like GetSuggestion, the only errors returned
// are validation errors.
func (e *Engine) GetDynamicSuggestion(ctx context.Context, n negotiation.Negotiation, currentOffer float64, role negotiation.Role, history []negotiation.Message) (Suggestion, error) {
	if err := e.validate(n, currentOffer, role); err != nil {
		return Suggestion{}, err
	}

	key := suggestionKey(n.ID, currentOffer, true)
	if s, ok := e.cached(ctx, key); ok {
		return s, nil
	}

	comp := e.comparisons.Build(ctx, n.Proposal.Commodity, currentOffer)
	s, err := e.dynamicSuggestion(ctx, n, currentOffer, role, comp, history)
	if err != nil {
		logger.Warnf("dynamic suggestion failed for %s, using deterministic path: %v", n.ID, err)
		profile, _ := e.registry.Profile(role)
		s = deterministicSuggestion(role, profile, currentOffer, comp)
	}
	s.Market = comp
	s = applyAdvisoryWrapper(s, e.registry.Disclaimers(), e.picker)

	if err := cache.Put(ctx, e.store, key, s, e.ttl); err != nil {
		logger.Warnf("suggestion cache write failed: %v", err)
	}
	return s, nil
}

func (e *Engine) dynamicSuggestion(ctx context.Context, n negotiation.Negotiation, currentOffer float64, role negotiation.Role, comp market.MarketComparison, history []negotiation.Message) (s Suggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dynamic path panic: %v", r)
		}
	}()

	conditions, err := e.conditions.Conditions(ctx, n.Proposal.Commodity)
	if err != nil {
		return Suggestion{}, fmt.Errorf("condition source failed: %w", err)
	}
	profile, _ := e.registry.Profile(role)

	fair := comp.CurrentPrice
	if fair <= 0 {
		fair = currentOffer
	}
	price := fair
	var notes []string
	signals := 0

	apply := func(factor float64, note string) {
		price = mulFactor(price, factor)
		signals++
		notes = append(notes, note)
	}

	if sellerLeaning(role) {
		if conditions.Supply == LevelLow {
			apply(1+supplyNudge, "supply is tight")
		}
		if conditions.Demand == LevelHigh {
			apply(1+demandNudge, "demand is strong")
		}
		if conditions.Competition == LevelLow {
			apply(1+competitionNudge, "few competing sellers")
		}
		if seasonal := clampSeasonal(conditions.Seasonal); seasonal > 1 {
			apply(seasonal, "seasonal prices run high")
		}
	} else if buyerLeaning(role) {
		if conditions.Supply == LevelHigh {
			apply(1-supplyNudge, "supply is plentiful")
		}
		if conditions.Demand == LevelLow {
			apply(1-demandNudge, "demand is soft")
		}
		if conditions.Competition == LevelHigh {
			apply(1-competitionNudge, "many competing sellers")
		}
		if seasonal := clampSeasonal(conditions.Seasonal); seasonal < 1 {
			apply(seasonal, "seasonal prices run low")
		}
	}

	patterns := analyzeMessages(history)

	// Price-mention movement favors whichever side it is drifting toward.
	switch patterns.movement {
	case movementIncreasing:
		price = mulFactor(price, 1+movementNudge)
		notes = append(notes, "offers in this chat are trending up")
		if sellerLeaning(role) {
			signals++
		}
	case movementDecreasing:
		price = mulFactor(price, 1-movementNudge)
		notes = append(notes, "offers in this chat are trending down")
		if buyerLeaning(role) {
			signals++
		}
	}

	// A slow counterpart weakens their position slightly.
	if patterns.gapMeasurable && patterns.meanGapHours > lowEngagementGapHours && !neutralRole(role) {
		if sellerLeaning(role) {
			apply(1+latencyNudge, "the other side is replying slowly")
		} else {
			apply(1-latencyNudge, "the other side is replying slowly")
		}
	}

	// Cumulative nudges never drift past the role's aggression bound.
	price = clampAggression(price, fair, role, profile)

	// Heated chats get moderated back toward the fair price so the advice
	// de-escalates rather than amplifies.
	if patterns.aggressiveness > aggressivenessCeiling && !neutralRole(role) {
		pull := moderationPull
		if profile.ConcessionRate > 0 {
			pull = moderationPull + profile.ConcessionRate
		}
		price = price + (fair-price)*pull
		notes = append(notes, "the tone is heated, so this stays close to the fair rate")
	}

	confidence := dynamicBaseConfidence + float64(signals)*signalConfidenceStep

	reasoning := "Suggested from the current market rate."
	if len(notes) > 0 {
		reasoning = "Adjusted from the market rate: " + strings.Join(notes, "; ") + "."
	}
	return Suggestion{
		SuggestedPrice: price,
		Reasoning:      reasoning,
		Confidence:     confidence,
		Source:         SourceDynamic,
	}, nil
}

// clampAggression caps the price at fair x PriceAggression for seller-leaning
// roles and floors it at the same bound for buyer-leaning roles. A profile
// without an aggression multiplier leaves the price alone.
func clampAggression(price, fair float64, role negotiation.Role, profile Profile) float64 {
	if fair <= 0 || profile.PriceAggression <= 0 {
		return price
	}
	bound := mulFactor(fair, profile.PriceAggression)
	switch {
	case sellerLeaning(role) && profile.PriceAggression > 1:
		return minPrice(price, bound)
	case buyerLeaning(role) && profile.PriceAggression < 1:
		return maxPrice(price, bound)
	}
	return price
}

func clampSeasonal(seasonal float64) float64 {
	if seasonal <= 0 {
		return 1
	}
	if seasonal > 1+seasonalCap {
		return 1 + seasonalCap
	}
	if seasonal < 1-seasonalCap {
		return 1 - seasonalCap
	}
	return seasonal
}
