package monitor

import (
	"context"
	"sync"
	"time"

	"mandimind/internal/advisor"
	"mandimind/internal/logger"
	"mandimind/internal/market"
)

const defaultInterval = 30 * time.Minute

// Update is one observation cycle for a watched commodity.
type Update struct {
	Commodity  string
	Conditions advisor.Conditions
	Comparison market.MarketComparison
	TakenAt    time.Time
}

type Subscriber func(Update)

type Params struct {
	Conditions  advisor.ConditionSource
	Comparisons advisor.ComparisonSource
	Interval    time.Duration
}

// Monitor periodically re-reads market conditions for watched commodities
// and fans updates out to subscribers. It also serves as a ConditionSource
// that answers from the last poll, so advisory calls do not wait on the
// condition feed.
type Monitor struct {
	conditions  advisor.ConditionSource
	comparisons advisor.ComparisonSource
	interval    time.Duration

	mu       sync.Mutex
	subs     map[int]Subscriber
	nextID   int
	latest   map[string]advisor.Conditions
	lastMean map[string]float64
	nowFn    func() time.Time
}

func New(p Params) *Monitor {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	conditions := p.Conditions
	if conditions == nil {
		conditions = advisor.StaticConditions{}
	}
	return &Monitor{
		conditions:  conditions,
		comparisons: p.Comparisons,
		interval:    interval,
		subs:        make(map[int]Subscriber),
		latest:      make(map[string]advisor.Conditions),
		lastMean:    make(map[string]float64),
		nowFn:       time.Now,
	}
}

// Subscribe registers fn for every future update. The returned function
// removes the subscription and is safe to call more than once.
func (m *Monitor) Subscribe(fn Subscriber) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Watch polls the commodity immediately and then on every interval tick.
// The returned cancel stops the loop and may be called repeatedly.
func (m *Monitor) Watch(ctx context.Context, commodity string) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go m.run(ctx, commodity)

	var once sync.Once
	return func() {
		once.Do(func() {
			logger.Infof("stopping condition watch for %s", commodity)
			cancel()
		})
	}
}

// Conditions implements advisor.ConditionSource: last polled state when
// available, otherwise a live read from the underlying source.
func (m *Monitor) Conditions(ctx context.Context, commodity string) (advisor.Conditions, error) {
	m.mu.Lock()
	c, ok := m.latest[commodity]
	m.mu.Unlock()
	if ok {
		return c, nil
	}
	return m.conditions.Conditions(ctx, commodity)
}

func (m *Monitor) run(ctx context.Context, commodity string) {
	m.poll(ctx, commodity)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx, commodity)
		}
	}
}

func (m *Monitor) poll(ctx context.Context, commodity string) {
	conditions, err := m.conditions.Conditions(ctx, commodity)
	if err != nil {
		logger.Warnf("condition poll failed for %s: %v", commodity, err)
		return
	}

	update := Update{
		Commodity:  commodity,
		Conditions: conditions,
		TakenAt:    m.nowFn(),
	}
	if m.comparisons != nil {
		m.mu.Lock()
		reference := m.lastMean[commodity]
		m.mu.Unlock()
		comp := m.comparisons.Build(ctx, commodity, reference)
		// A zero mean means the feed gave nothing and no earlier poll
		// succeeded; the comparison is withheld rather than published.
		if comp.CurrentPrice > 0 {
			update.Comparison = comp
		}
	}

	m.mu.Lock()
	m.latest[commodity] = conditions
	if update.Comparison.CurrentPrice > 0 {
		m.lastMean[commodity] = update.Comparison.CurrentPrice
	}
	subs := make([]Subscriber, 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(update)
	}
}
