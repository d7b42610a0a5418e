package advisor

import "mandimind/internal/negotiation"

// Profile binds a negotiation role to its static pricing posture.
// MarketBias leans deterministic suggestions toward the role's side of the
// market rate; PriceAggression bounds how far cumulative dynamic nudges may
// drift from it; ConcessionRate scales how quickly the dynamic path gives
// ground.
type Profile struct {
	PriceAggression float64 `mapstructure:"price_aggression" yaml:"price_aggression"`
	ConcessionRate  float64 `mapstructure:"concession_rate" yaml:"concession_rate"`
	MarketBias      float64 `mapstructure:"market_bias" yaml:"market_bias"`
}

// Seller-leaning roles carry a market premium, buyer-leaning roles a
// discount; agent is a neutral arbiter and admin is neutral with a larger
// concession allowance.
var defaultProfiles = map[negotiation.Role]Profile{
	negotiation.RoleVendor: {PriceAggression: 1.10, ConcessionRate: 0.05, MarketBias: 0.05},
	negotiation.RoleBuyer:  {PriceAggression: 0.90, ConcessionRate: 0.05, MarketBias: -0.05},
	negotiation.RoleAgent:  {PriceAggression: 1.00, ConcessionRate: 0.10, MarketBias: 0},
	negotiation.RoleAdmin:  {PriceAggression: 1.00, ConcessionRate: 0.15, MarketBias: 0},
}

func sellerLeaning(role negotiation.Role) bool { return role == negotiation.RoleVendor }
func buyerLeaning(role negotiation.Role) bool  { return role == negotiation.RoleBuyer }
func neutralRole(role negotiation.Role) bool {
	return role == negotiation.RoleAgent || role == negotiation.RoleAdmin
}
