package oracle

import (
	"fmt"
	"strings"

	"mandimind/internal/advisor"
)

const systemPrompt = `You are a pricing advisor for an agricultural commodity marketplace (mandi).
Given a negotiation and the current market comparison, suggest a counter-offer for the caller's side.

Rules:
- The suggestion must be a realistic price in the same currency and unit as the offer.
- Stay inside or very close to the quoted market range.
- Be brief and concrete in the reasoning; one or two sentences.

Respond with a single JSON object and nothing else:
{"suggested_price": <number>, "reasoning": "<string>", "confidence": <number between 0 and 1>}`

func buildUserPrompt(req advisor.OracleRequest) string {
	var b strings.Builder
	p := req.Negotiation.Proposal
	fmt.Fprintf(&b, "Commodity: %s", p.Commodity)
	if p.Quality != "" {
		fmt.Fprintf(&b, " (%s grade)", p.Quality)
	}
	b.WriteString("\n")
	if p.Quantity > 0 {
		fmt.Fprintf(&b, "Quantity: %.2f %s\n", p.Quantity, p.Unit)
	}
	fmt.Fprintf(&b, "Caller role: %s\n", req.Role)
	fmt.Fprintf(&b, "Current offer on the table: %.2f\n", req.CurrentOffer)
	if req.Market.CurrentPrice > 0 {
		fmt.Fprintf(&b, "Market price: %.2f (range %.2f - %.2f)\n",
			req.Market.CurrentPrice, req.Market.Range.Min, req.Market.Range.Max)
	}
	if req.Market.Trend.Direction != "" {
		fmt.Fprintf(&b, "Trend: %s (%.1f%% over %s)\n",
			req.Market.Trend.Direction, req.Market.Trend.ChangePercent, req.Market.Trend.Timeframe)
	}

	// Only the tail of the chat; old messages rarely change the advice and
	// bloat the request.
	msgs := req.Negotiation.Messages
	if len(msgs) > 6 {
		msgs = msgs[len(msgs)-6:]
	}
	if len(msgs) > 0 {
		b.WriteString("Recent messages:\n")
		for _, m := range msgs {
			fmt.Fprintf(&b, "- [%s] %s\n", m.Role, m.Body)
		}
	}
	b.WriteString("Suggest the next counter-offer for the caller.")
	return b.String()
}
