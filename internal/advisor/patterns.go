package advisor

import (
	"regexp"
	"strconv"
	"strings"

	"mandimind/internal/negotiation"
)

// Currency-aware price mention, e.g. "₹2,100", "Rs. 2100.50", "INR 2100",
// "$40", "2100 rupees".
var priceMentionRe = regexp.MustCompile(`(?i)(?:₹|\$|\b(?:rs\.?|inr))\s*([0-9][0-9,]*(?:\.[0-9]+)?)|([0-9][0-9,]*(?:\.[0-9]+)?)\s*\b(?:rupees|rs)\b`)

var (
	finalityMarkers   = []string{"final", "take it or leave it", "last offer", "no more"}
	politenessMarkers = []string{"please", "kindly", "thank", "appreciate"}
	urgencyMarkers    = []string{"urgent", "asap", "immediately", "today only"}
)

type priceMovement string

const (
	movementIncreasing priceMovement = "increasing"
	movementDecreasing priceMovement = "decreasing"
	movementStable     priceMovement = "stable"
	movementUnknown    priceMovement = "unknown"
)

// movementThresholdPct: relative change between the first and last price
// mention below this is noise.
const movementThresholdPct = 0.02

// lowEngagementGapHours: a mean reply gap beyond this reads as a distracted
// counterpart.
const lowEngagementGapHours = 24.0

type patternSummary struct {
	priceMentions  []float64
	movement       priceMovement
	meanGapHours   float64
	gapMeasurable  bool
	aggressiveness float64
}

// analyzeMessages derives negotiation-pattern signals from the chat history.
// Pure and total: any history, including empty, yields a usable summary.
func analyzeMessages(history []negotiation.Message) patternSummary {
	summary := patternSummary{
		movement:       movementUnknown,
		aggressiveness: 0.5,
	}

	for _, msg := range history {
		summary.priceMentions = append(summary.priceMentions, extractPrices(msg.Body)...)
		summary.aggressiveness += toneDelta(msg.Body)
	}
	summary.aggressiveness = clamp01(summary.aggressiveness)

	if len(summary.priceMentions) >= 2 {
		first := summary.priceMentions[0]
		last := summary.priceMentions[len(summary.priceMentions)-1]
		summary.movement = movementStable
		if first > 0 {
			rel := (last - first) / first
			switch {
			case rel > movementThresholdPct:
				summary.movement = movementIncreasing
			case rel < -movementThresholdPct:
				summary.movement = movementDecreasing
			}
		}
	}

	if len(history) >= 2 {
		var total float64
		var gaps int
		for i := 1; i < len(history); i++ {
			prev, cur := history[i-1].SentAt, history[i].SentAt
			if prev.IsZero() || cur.IsZero() || cur.Before(prev) {
				continue
			}
			total += cur.Sub(prev).Hours()
			gaps++
		}
		if gaps > 0 {
			summary.meanGapHours = total / float64(gaps)
			summary.gapMeasurable = true
		}
	}
	return summary
}

func extractPrices(body string) []float64 {
	var out []float64
	for _, groups := range priceMentionRe.FindAllStringSubmatch(body, -1) {
		raw := groups[1]
		if raw == "" {
			raw = groups[2]
		}
		raw = strings.ReplaceAll(raw, ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func toneDelta(body string) float64 {
	lower := strings.ToLower(body)
	var delta float64
	if containsAny(lower, finalityMarkers) {
		delta += 0.2
	}
	if containsAny(lower, politenessMarkers) {
		delta -= 0.1
	}
	if containsAny(lower, urgencyMarkers) {
		delta += 0.1
	}
	return delta
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
