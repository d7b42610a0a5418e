package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mandimind/internal/cache"
	"mandimind/internal/logger"
	"mandimind/internal/market"
	"mandimind/internal/negotiation"
)

// Suggestion sources, carried for observability only.
const (
	SourceOracle   = "oracle"
	SourceFallback = "fallback"
	SourceDynamic  = "dynamic"
)

const suggestionTTL = 5 * time.Minute

// Suggestion is a non-binding, confidence-capped counter-offer. Reasoning
// always ends with an advisory disclaimer.
type Suggestion struct {
	SuggestedPrice float64                 `json:"suggested_price"`
	Reasoning      string                  `json:"reasoning"`
	Confidence     float64                 `json:"confidence"`
	Market         market.MarketComparison `json:"market"`
	Source         string                  `json:"source"`
}

// ComparisonSource builds a market comparison; analytics.Builder satisfies
// this and never fails.
type ComparisonSource interface {
	Build(ctx context.Context, commodity string, referencePrice float64) market.MarketComparison
}

// Oracle is the optional hosted-AI advisory call. It is untrusted: results
// pass through schema validation upstream and the advisory wrapper here, and
// any failure falls back to the deterministic path.
type Oracle interface {
	Suggest(ctx context.Context, req OracleRequest) (OracleResult, error)
}

type OracleRequest struct {
	Negotiation  negotiation.Negotiation
	CurrentOffer float64
	Role         negotiation.Role
	Market       market.MarketComparison
}

type OracleResult struct {
	SuggestedPrice float64 `json:"suggested_price"`
	Reasoning      string  `json:"reasoning"`
	Confidence     float64 `json:"confidence"`
}

// EngineParams collects the engine's collaborators. Comparisons and Cache
// are required; everything else degrades gracefully when absent.
type EngineParams struct {
	Comparisons ComparisonSource
	Cache       cache.Store
	Online      cache.OnlineFunc
	Oracle      Oracle
	Registry    *Registry
	Conditions  ConditionSource
	Seed        int64
}

// Engine computes advisory counter-offers for active negotiations. It only
// reads negotiations, never mutates them, and its public methods return
// errors solely for input validation.
type Engine struct {
	comparisons ComparisonSource
	store       cache.Store
	online      cache.OnlineFunc
	oracle      Oracle
	registry    *Registry
	conditions  ConditionSource
	ttl         time.Duration
	nowFn       func() time.Time
	picker      *disclaimerPicker
}

func NewEngine(p EngineParams) (*Engine, error) {
	if p.Comparisons == nil {
		return nil, fmt.Errorf("advisory engine requires a comparison source")
	}
	if p.Cache == nil {
		return nil, fmt.Errorf("advisory engine requires a cache store")
	}
	registry := p.Registry
	if registry == nil {
		registry, _ = NewRegistry("")
	}
	conditions := p.Conditions
	if conditions == nil {
		conditions = StaticConditions{}
	}
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		comparisons: p.Comparisons,
		store:       p.Cache,
		online:      p.Online,
		oracle:      p.Oracle,
		registry:    registry,
		conditions:  conditions,
		ttl:         suggestionTTL,
		nowFn:       time.Now,
		picker:      newDisclaimerPicker(seed),
	}, nil
}

// GetSuggestion returns the advisory counter-offer for the current offer.
// The oracle, when configured, is strictly an optimization: any oracle
// failure silently downgrades to the deterministic algorithm.
func (e *Engine) GetSuggestion(ctx context.Context, n negotiation.Negotiation, currentOffer float64, role negotiation.Role) (Suggestion, error) {
	if err := e.validate(n, currentOffer, role); err != nil {
		return Suggestion{}, err
	}

	key := suggestionKey(n.ID, currentOffer, false)
	if s, ok := e.cached(ctx, key); ok {
		return s, nil
	}

	comp := e.comparisons.Build(ctx, n.Proposal.Commodity, currentOffer)
	s, ok := e.fromOracle(ctx, n, currentOffer, role, comp)
	if !ok {
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

func (e *Engine) validate(n negotiation.Negotiation, currentOffer float64, role negotiation.Role) error {
	if strings.TrimSpace(n.Proposal.Commodity) == "" {
		return fmt.Errorf("negotiation %s has no commodity", n.ID)
	}
	if currentOffer <= 0 {
		return fmt.Errorf("current offer must be positive, got %v", currentOffer)
	}
	if _, ok := e.registry.Profile(role); !ok {
		return fmt.Errorf("unknown advisory role: %q", role)
	}
	return nil
}

// cached applies the shared ladder: fresh entries win while online, any
// entry wins while offline.
func (e *Engine) cached(ctx context.Context, key string) (Suggestion, bool) {
	s, meta, ok := cache.Lookup[Suggestion](ctx, e.store, key)
	if !ok {
		return Suggestion{}, false
	}
	online := cache.Online(e.online)
	if online && !meta.Stale(e.nowFn()) {
		return s, true
	}
	if !online {
		logger.Debugf("suggestion served stale from cache (offline): %s", key)
		return s, true
	}
	return Suggestion{}, false
}

func (e *Engine) fromOracle(ctx context.Context, n negotiation.Negotiation, currentOffer float64, role negotiation.Role, comp market.MarketComparison) (Suggestion, bool) {
	if e.oracle == nil || !cache.Online(e.online) {
		return Suggestion{}, false
	}
	res, err := e.oracle.Suggest(ctx, OracleRequest{
		Negotiation:  n,
		CurrentOffer: currentOffer,
		Role:         role,
		Market:       comp,
	})
	if err != nil {
		logger.Warnf("advisory oracle failed for %s, using deterministic path: %v", n.ID, err)
		return Suggestion{}, false
	}
	if res.SuggestedPrice <= 0 {
		logger.Warnf("advisory oracle returned non-positive price for %s, using deterministic path", n.ID)
		return Suggestion{}, false
	}
	return Suggestion{
		SuggestedPrice: res.SuggestedPrice,
		Reasoning:      res.Reasoning,
		Confidence:     res.Confidence,
		Source:         SourceOracle,
	}, true
}

func suggestionKey(negotiationID string, currentOffer float64, dynamic bool) string {
	kind := "suggestion"
	if dynamic {
		kind = "suggestion:dyn"
	}
	return fmt.Sprintf("%s:%s:%.2f", kind, negotiationID, currentOffer)
}
