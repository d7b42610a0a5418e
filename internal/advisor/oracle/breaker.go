package oracle

import (
	"context"
	"errors"
	"sync"
	"time"

	"mandimind/internal/advisor"
	"mandimind/internal/logger"
)

// ErrOpen is returned while the breaker refuses calls; the engine's
// deterministic fallback absorbs it like any other oracle error.
var ErrOpen = errors.New("advisory oracle circuit open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker shields the rest of the system from a flapping oracle endpoint.
// After threshold consecutive failures it opens for cooldown, then lets one
// probe call through.
type Breaker struct {
	mu          sync.Mutex
	inner       advisor.Oracle
	state       State
	failures    int
	threshold   int
	cooldown    time.Duration
	lastFailure time.Time
	probing     bool
	nowFn       func() time.Time
}

func NewBreaker(inner advisor.Oracle, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{
		inner:     inner,
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
		nowFn:     time.Now,
	}
}

func (b *Breaker) Suggest(ctx context.Context, req advisor.OracleRequest) (advisor.OracleResult, error) {
	if !b.allow() {
		return advisor.OracleResult{}, ErrOpen
	}
	res, err := b.inner.Suggest(ctx, req)
	if err != nil {
		b.recordFailure()
		return advisor.OracleResult{}, err
	}
	b.recordSuccess()
	return res, nil
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.nowFn().Sub(b.lastFailure) > b.cooldown {
			b.transition(StateHalfOpen)
			b.probing = true
			return true
		}
		return false
	case StateHalfOpen:
		// One probe at a time; everyone else short-circuits until it
		// resolves.
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
	b.failures = 0
	b.probing = false
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.nowFn()
	b.probing = false

	switch b.state {
	case StateClosed:
		if b.failures >= b.threshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	logger.Warnf("oracle breaker %s -> %s (failures=%d/%d)", from, to, b.failures, b.threshold)
}
