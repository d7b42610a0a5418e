package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mandimind/internal/advisor"
	"mandimind/internal/market"
)

type recordingComparisons struct {
	mu   sync.Mutex
	refs []float64
	comp market.MarketComparison
}

func (r *recordingComparisons) Build(_ context.Context, _ string, reference float64) market.MarketComparison {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, reference)
	return r.comp
}

func (r *recordingComparisons) setComparison(c market.MarketComparison) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comp = c
}

func (r *recordingComparisons) references() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.refs...)
}

type stubConditions struct {
	mu    sync.Mutex
	state advisor.Conditions
	err   error
	calls int
}

func (s *stubConditions) Conditions(context.Context, string) (advisor.Conditions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return advisor.Conditions{}, s.err
	}
	return s.state, nil
}

func (s *stubConditions) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func tightSupply() advisor.Conditions {
	return advisor.Conditions{
		Supply:      advisor.LevelLow,
		Demand:      advisor.LevelHigh,
		Seasonal:    1.0,
		Competition: advisor.LevelNormal,
	}
}

func TestWatchPollsImmediately(t *testing.T) {
	src := &stubConditions{state: tightSupply()}
	m := New(Params{Conditions: src, Interval: time.Hour})

	updates := make(chan Update, 1)
	defer m.Subscribe(func(u Update) { updates <- u })()

	cancel := m.Watch(context.Background(), "wheat")
	defer cancel()

	select {
	case u := <-updates:
		assert.Equal(t, "wheat", u.Commodity)
		assert.Equal(t, advisor.LevelLow, u.Conditions.Supply)
		assert.False(t, u.TakenAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no update within deadline")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	m := New(Params{Conditions: &stubConditions{}, Interval: time.Hour})
	cancel := m.Watch(context.Background(), "wheat")
	cancel()
	cancel()
	cancel()
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	src := &stubConditions{state: tightSupply()}
	m := New(Params{Conditions: src, Interval: time.Hour})

	var got int
	unsub := m.Subscribe(func(Update) { got++ })

	m.poll(context.Background(), "wheat")
	require.Equal(t, 1, got)

	unsub()
	unsub()
	m.poll(context.Background(), "wheat")
	assert.Equal(t, 1, got)
}

func TestConditionsAnsweredFromLastPoll(t *testing.T) {
	src := &stubConditions{state: tightSupply()}
	m := New(Params{Conditions: src, Interval: time.Hour})

	m.poll(context.Background(), "wheat")
	polled := src.callCount()

	c, err := m.Conditions(context.Background(), "wheat")
	require.NoError(t, err)
	assert.Equal(t, advisor.LevelLow, c.Supply)
	assert.Equal(t, polled, src.callCount())

	// Unwatched commodities go straight to the source.
	_, err = m.Conditions(context.Background(), "onion")
	require.NoError(t, err)
	assert.Equal(t, polled+1, src.callCount())
}

func TestPollSeedsReferenceFromLastComparison(t *testing.T) {
	src := &stubConditions{state: tightSupply()}
	comps := &recordingComparisons{}
	m := New(Params{Conditions: src, Comparisons: comps, Interval: time.Hour})

	var updates []Update
	m.Subscribe(func(u Update) { updates = append(updates, u) })

	// Feed down before any successful poll: no reference exists, so the
	// update carries no comparison.
	m.poll(context.Background(), "wheat")
	require.Len(t, updates, 1)
	assert.Zero(t, updates[0].Comparison.CurrentPrice)

	comps.setComparison(market.MarketComparison{Commodity: "wheat", CurrentPrice: 2100})
	m.poll(context.Background(), "wheat")
	require.Len(t, updates, 2)
	assert.Equal(t, 2100.0, updates[1].Comparison.CurrentPrice)

	// The next poll reuses the last good mean as its reference, and an
	// outage after that still leaves the update without a comparison.
	comps.setComparison(market.MarketComparison{})
	m.poll(context.Background(), "wheat")
	require.Len(t, updates, 3)
	assert.Zero(t, updates[2].Comparison.CurrentPrice)
	assert.Equal(t, []float64{0, 0, 2100}, comps.references())
}

func TestPollErrorKeepsLastState(t *testing.T) {
	src := &stubConditions{state: tightSupply()}
	m := New(Params{Conditions: src, Interval: time.Hour})

	var updates int
	m.Subscribe(func(Update) { updates++ })

	m.poll(context.Background(), "wheat")
	src.mu.Lock()
	src.err = errors.New("feed down")
	src.mu.Unlock()
	m.poll(context.Background(), "wheat")

	assert.Equal(t, 1, updates)
	c, err := m.Conditions(context.Background(), "wheat")
	require.NoError(t, err)
	assert.Equal(t, advisor.LevelLow, c.Supply)
}
