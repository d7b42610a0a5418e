package advisor

import (
	"math/rand"
	"strings"
	"sync"
)

// MaxConfidence is a hard ceiling: the engine never presents near-certainty.
const MaxConfidence = 0.95

// disclaimerPicker selects disclaimer phrases from a seedable source so
// tests can pin the sequence.
type disclaimerPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newDisclaimerPicker(seed int64) *disclaimerPicker {
	return &disclaimerPicker{rng: rand.New(rand.NewSource(seed))}
}

func (p *disclaimerPicker) pick(phrases []string) string {
	if len(phrases) == 0 {
		return ""
	}
	p.mu.Lock()
	idx := p.rng.Intn(len(phrases))
	p.mu.Unlock()
	return phrases[idx]
}

// applyAdvisoryWrapper is mandatory on every suggestion regardless of how it
// was produced: append one disclaimer and clamp confidence. Oracle output in
// particular must pass through here before a caller ever sees it.
func applyAdvisoryWrapper(s Suggestion, phrases []string, picker *disclaimerPicker) Suggestion {
	disclaimer := picker.pick(phrases)
	reasoning := strings.TrimSpace(s.Reasoning)
	if disclaimer != "" && !strings.HasSuffix(reasoning, disclaimer) {
		if reasoning != "" {
			reasoning += " "
		}
		reasoning += disclaimer
	}
	s.Reasoning = reasoning

	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > MaxConfidence {
		s.Confidence = MaxConfidence
	}
	return s
}
