package negotiation

import (
	"fmt"
	"strings"
	"time"

	"mandimind/internal/market"
)

// Role identifies how a participant (or an advisory caller) sits in a deal.
type Role string

const (
	RoleVendor Role = "vendor"
	RoleBuyer  Role = "buyer"
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
)

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleVendor:
		return RoleVendor, nil
	case RoleBuyer:
		return RoleBuyer, nil
	case RoleAgent:
		return RoleAgent, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role: %q", raw)
	}
}

// Status is the negotiation lifecycle. active is the only non-terminal state.
type Status string

const (
	StatusActive   Status = "active"
	StatusAgreed   Status = "agreed"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

func (s Status) Terminal() bool {
	return s == StatusAgreed || s == StatusRejected || s == StatusExpired
}

// Message is one chat entry inside a negotiation, ordered by SentAt.
type Message struct {
	ID     string    `json:"id"`
	Sender string    `json:"sender"`
	Role   Role      `json:"role"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

// DealProposal is the opening terms of a negotiation.
type DealProposal struct {
	Commodity        string              `json:"commodity"`
	Quantity         float64             `json:"quantity"`
	Unit             string              `json:"unit"`
	ProposedPrice    float64             `json:"proposed_price"`
	Quality          market.QualityGrade `json:"quality"`
	DeliveryLocation string              `json:"delivery_location"`
	DeliveryDate     time.Time           `json:"delivery_date"`
}

// Validate rejects malformed proposals before anything touches storage or
// the network. These are the only errors allowed to surface to callers.
func (p DealProposal) Validate() error {
	if strings.TrimSpace(p.Commodity) == "" {
		return fmt.Errorf("deal proposal missing commodity")
	}
	if p.ProposedPrice <= 0 {
		return fmt.Errorf("deal proposal price must be positive, got %v", p.ProposedPrice)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("deal proposal quantity must be positive, got %v", p.Quantity)
	}
	return nil
}

// Negotiation is owned by the negotiation subsystem. The advisory engine
// reads it and never mutates it.
type Negotiation struct {
	ID           string       `json:"id"`
	Proposal     DealProposal `json:"proposal"`
	BuyerID      string       `json:"buyer_id"`
	SellerID     string       `json:"seller_id"`
	AgentID      string       `json:"agent_id,omitempty"`
	Messages     []Message    `json:"messages"`
	CurrentOffer float64      `json:"current_offer"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
