package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mandimind/internal/cache"
	"mandimind/internal/negotiation"
)

type errConditions struct{}

func (errConditions) Conditions(context.Context, string) (Conditions, error) {
	return Conditions{}, errors.New("feed unreachable")
}

type panicConditions struct{}

func (panicConditions) Conditions(context.Context, string) (Conditions, error) {
	panic("boom")
}

func newDynamicEngine(t *testing.T, comps ComparisonSource, src ConditionSource) *Engine {
	t.Helper()
	e, err := NewEngine(EngineParams{
		Comparisons: comps,
		Cache:       cache.NewMemory(),
		Conditions:  src,
		Seed:        1,
	})
	require.NoError(t, err)
	return e
}

func TestGetDynamicSuggestion(t *testing.T) {
	ctx := context.Background()

	t.Run("NeutralConditionsStayAtMarket", func(t *testing.T) {
		e := newDynamicEngine(t, wheatComparisons(), StaticConditions{})
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor, nil)
		require.NoError(t, err)
		assert.Equal(t, SourceDynamic, s.Source)
		assert.InDelta(t, 2100.0, s.SuggestedPrice, 1e-9)
		assert.Equal(t, dynamicBaseConfidence, s.Confidence)
		endsWithOneOf(t, s.Reasoning, defaultDisclaimers)
	})

	t.Run("SellerConditionNudges", func(t *testing.T) {
		src := StaticConditions{State: Conditions{Supply: LevelLow, Demand: LevelHigh}}
		e := newDynamicEngine(t, wheatComparisons(), src)
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor, nil)
		require.NoError(t, err)
		// 2100 * 1.05 * 1.04
		assert.InDelta(t, 2293.2, s.SuggestedPrice, 1e-6)
		assert.InDelta(t, dynamicBaseConfidence+2*signalConfidenceStep, s.Confidence, 1e-9)
		assert.Contains(t, s.Reasoning, "supply is tight")
		assert.Contains(t, s.Reasoning, "demand is strong")
	})

	t.Run("BuyerConditionNudges", func(t *testing.T) {
		src := StaticConditions{State: Conditions{Supply: LevelHigh}}
		e := newDynamicEngine(t, wheatComparisons(), src)
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleBuyer, nil)
		require.NoError(t, err)
		// 2100 * 0.95
		assert.InDelta(t, 1995.0, s.SuggestedPrice, 1e-6)
		assert.Contains(t, s.Reasoning, "supply is plentiful")
	})

	t.Run("SeasonalFactorClamped", func(t *testing.T) {
		src := StaticConditions{State: Conditions{Seasonal: 1.2}}
		e := newDynamicEngine(t, wheatComparisons(), src)
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor, nil)
		require.NoError(t, err)
		// 2100 * 1.03, not 2100 * 1.2
		assert.InDelta(t, 2163.0, s.SuggestedPrice, 1e-6)
	})

	t.Run("AggressionBoundsSellerNudges", func(t *testing.T) {
		src := StaticConditions{State: Conditions{
			Supply:      LevelLow,
			Demand:      LevelHigh,
			Competition: LevelLow,
			Seasonal:    1.05,
		}}
		e := newDynamicEngine(t, wheatComparisons(), src)
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor, nil)
		require.NoError(t, err)
		// 2100*1.05*1.04*1.03*1.03 = 2432.86 exceeds the vendor 1.10 bound,
		// so the price stops at 2100*1.10.
		assert.InDelta(t, 2310.0, s.SuggestedPrice, 1e-6)
	})

	t.Run("AggressionBoundsBuyerNudges", func(t *testing.T) {
		src := StaticConditions{State: Conditions{
			Supply:      LevelHigh,
			Demand:      LevelLow,
			Competition: LevelHigh,
			Seasonal:    0.95,
		}}
		e := newDynamicEngine(t, wheatComparisons(), src)
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleBuyer, nil)
		require.NoError(t, err)
		// 2100*0.95*0.96*0.97*0.97 = 1802.01 undercuts the buyer 0.90 bound.
		assert.InDelta(t, 1890.0, s.SuggestedPrice, 1e-6)
	})

	t.Run("RisingOffersNudgeUp", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		history := []negotiation.Message{
			msgAt("I can pay ₹2000", base),
			msgAt("fine, ₹2100", base.Add(time.Hour)),
		}
		e := newDynamicEngine(t, wheatComparisons(), StaticConditions{})
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor, history)
		require.NoError(t, err)
		// 2100 * 1.02, movement counts as a seller-side signal
		assert.InDelta(t, 2142.0, s.SuggestedPrice, 1e-6)
		assert.InDelta(t, dynamicBaseConfidence+signalConfidenceStep, s.Confidence, 1e-9)
		assert.Contains(t, s.Reasoning, "trending up")
	})

	t.Run("RisingOffersNoSignalForBuyer", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		history := []negotiation.Message{
			msgAt("I can pay ₹2000", base),
			msgAt("fine, ₹2100", base.Add(time.Hour)),
		}
		e := newDynamicEngine(t, wheatComparisons(), StaticConditions{})
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleBuyer, history)
		require.NoError(t, err)
		assert.Equal(t, dynamicBaseConfidence, s.Confidence)
	})

	t.Run("SlowRepliesNudgeSeller", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		history := []negotiation.Message{
			msgAt("checking in", base),
			msgAt("any update", base.Add(30*time.Hour)),
		}
		e := newDynamicEngine(t, wheatComparisons(), StaticConditions{})
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor, history)
		require.NoError(t, err)
		// 2100 * 1.02
		assert.InDelta(t, 2142.0, s.SuggestedPrice, 1e-6)
		assert.Contains(t, s.Reasoning, "replying slowly")
	})

	t.Run("HeatedToneModeratesTowardFair", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		history := []negotiation.Message{
			msgAt("this is my final offer", base),
			msgAt("last offer, no more", base.Add(time.Minute)),
		}
		src := StaticConditions{State: Conditions{Supply: LevelLow}}
		e := newDynamicEngine(t, wheatComparisons(), src)
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor, history)
		require.NoError(t, err)
		// 2100*1.05 = 2205, pulled back by 0.3 + vendor concession 0.05
		assert.InDelta(t, 2168.25, s.SuggestedPrice, 1e-6)
		assert.Contains(t, s.Reasoning, "heated")
	})

	t.Run("ConfidenceNeverExceedsCeiling", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		history := []negotiation.Message{
			msgAt("offering ₹2000", base),
			msgAt("ok, ₹2100", base.Add(30*time.Hour)),
		}
		src := StaticConditions{State: Conditions{
			Supply:      LevelLow,
			Demand:      LevelHigh,
			Competition: LevelLow,
			Seasonal:    1.05,
		}}
		e := newDynamicEngine(t, wheatComparisons(), src)
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor, history)
		require.NoError(t, err)
		assert.Equal(t, MaxConfidence, s.Confidence)
		assert.Greater(t, s.SuggestedPrice, 2100.0)
	})

	t.Run("ConditionSourceErrorFallsBack", func(t *testing.T) {
		e := newDynamicEngine(t, wheatComparisons(), errConditions{})
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor, nil)
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, s.Source)
		assert.InDelta(t, 2205.0, s.SuggestedPrice, 1e-9)
		endsWithOneOf(t, s.Reasoning, defaultDisclaimers)
	})

	t.Run("PanicFallsBack", func(t *testing.T) {
		e := newDynamicEngine(t, wheatComparisons(), panicConditions{})
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor, nil)
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, s.Source)
	})

	t.Run("DynamicKeyDoesNotCollideWithBase", func(t *testing.T) {
		comps := wheatComparisons()
		e := newDynamicEngine(t, comps, StaticConditions{})
		_, err := e.GetSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor)
		require.NoError(t, err)
		s, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), 2000, negotiation.RoleVendor, nil)
		require.NoError(t, err)
		assert.Equal(t, SourceDynamic, s.Source)
		assert.Equal(t, 2, comps.calls)
	})

	t.Run("Validation", func(t *testing.T) {
		e := newDynamicEngine(t, wheatComparisons(), StaticConditions{})
		_, err := e.GetDynamicSuggestion(ctx, wheatNegotiation(), -1, negotiation.RoleVendor, nil)
		assert.Error(t, err)
	})
}
