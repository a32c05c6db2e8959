// Package quota tracks request and token usage against per-model limits
// over sliding minute/hour/day windows, and gates whether a model call may
// be attempted at all. The tracker is the single admission point consulted
// before every provider request; recording happens exactly once per
// completed network attempt, successful or not.
package quota

import (
	"fmt"
	"sync"
	"time"
)

// Horizon identifies one sliding accounting window.
type Horizon string

const (
	HorizonMinute Horizon = "minute"
	HorizonHour   Horizon = "hour"
	HorizonDay    Horizon = "day"
)

// horizons in admission-check order: the shortest window trips first.
var horizons = []Horizon{HorizonMinute, HorizonHour, HorizonDay}

// duration returns the window length for a horizon.
func (h Horizon) duration() time.Duration {
	switch h {
	case HorizonMinute:
		return time.Minute
	case HorizonHour:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// Limits holds a per-horizon bound. A zero value for a horizon means
// unlimited at that horizon.
type Limits struct {
	Minute int `yaml:"minute"`
	Hour   int `yaml:"hour"`
	Day    int `yaml:"day"`
}

// at returns the bound for the given horizon.
func (l Limits) at(h Horizon) int {
	switch h {
	case HorizonMinute:
		return l.Minute
	case HorizonHour:
		return l.Hour
	default:
		return l.Day
	}
}

// ModelLimits is the static, read-only quota configuration for one model.
type ModelLimits struct {
	// MaxContextTokens is the largest request the model accepts.
	MaxContextTokens int `yaml:"max_context_tokens"`

	// Requests bounds request counts per horizon.
	Requests Limits `yaml:"requests"`

	// Tokens bounds token totals per horizon.
	Tokens Limits `yaml:"tokens"`
}

// window holds the parallel timestamp/token sequences for one horizon.
// The two slices always have equal length: entry i records one request.
type window struct {
	times  []time.Time
	tokens []int
}

// purge drops entries older than the horizon. Both slices shrink in
// lockstep, preserving the pairing invariant.
func (w *window) purge(h Horizon, now time.Time) {
	cutoff := now.Add(-h.duration())
	keep := 0
	for keep < len(w.times) && !w.times[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		w.times = append(w.times[:0], w.times[keep:]...)
		w.tokens = append(w.tokens[:0], w.tokens[keep:]...)
	}
}

// tokenSum returns the total tokens recorded in the window.
func (w *window) tokenSum() int {
	sum := 0
	for _, t := range w.tokens {
		sum += t
	}
	return sum
}

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed reports whether the request may be attempted.
	Allowed bool

	// Reason names the limit that tripped when Allowed is false.
	Reason string
}

// Snapshot reports current usage for display.
type Snapshot struct {
	// Requests is the request count per horizon.
	Requests map[Horizon]int

	// Tokens is the token total per horizon.
	Tokens map[Horizon]int
}

// Tracker accounts requests and tokens for a single model's limits.
//
// A tracker may be shared across provider-switch events but must not be
// driven by two simultaneously running loops; it serializes its own state
// with a mutex so display reads (Usage) stay safe alongside the loop.
type Tracker struct {
	limits  ModelLimits
	windows map[Horizon]*window
	now     func() time.Time
	mu      sync.Mutex
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the tracker's wall clock. Used by tests to drive
// window expiry deterministically.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a tracker for the given model limits.
func NewTracker(limits ModelLimits, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		limits: limits,
		windows: map[Horizon]*window{
			HorizonMinute: {},
			HorizonHour:   {},
			HorizonDay:    {},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CanMakeRequest checks whether a request of the given estimated size may
// be attempted. The first failing check wins; remaining checks and the
// actual call are skipped. Apart from purging expired entries, the check
// never changes tracker state.
func (t *Tracker) CanMakeRequest(estimatedTokens int) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.purgeAll(now)

	if t.limits.MaxContextTokens > 0 && estimatedTokens > t.limits.MaxContextTokens {
		return Decision{
			Reason: fmt.Sprintf("estimated %d tokens exceeds model context limit of %d",
				estimatedTokens, t.limits.MaxContextTokens),
		}
	}

	for _, h := range horizons {
		limit := t.limits.Requests.at(h)
		if limit <= 0 {
			continue
		}
		if count := len(t.windows[h].times); count >= limit {
			return Decision{
				Reason: fmt.Sprintf("request limit reached for %s window: %d/%d", h, count, limit),
			}
		}
	}

	for _, h := range horizons {
		limit := t.limits.Tokens.at(h)
		if limit <= 0 {
			continue
		}
		if used := t.windows[h].tokenSum(); used+estimatedTokens > limit {
			return Decision{
				Reason: fmt.Sprintf("token limit would be exceeded for %s window: %d used + %d requested > %d",
					h, used, estimatedTokens, limit),
			}
		}
	}

	return Decision{Allowed: true}
}

// RecordRequest records one completed request of the given token size. A
// single logical request increments all three windows simultaneously.
func (t *Tracker) RecordRequest(tokensUsed int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.purgeAll(now)

	for _, h := range horizons {
		w := t.windows[h]
		w.times = append(w.times, now)
		w.tokens = append(w.tokens, tokensUsed)
	}
}

// Usage returns a point-in-time snapshot of request and token counts.
func (t *Tracker) Usage() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.purgeAll(t.now())

	snapshot := Snapshot{
		Requests: make(map[Horizon]int, len(horizons)),
		Tokens:   make(map[Horizon]int, len(horizons)),
	}
	for _, h := range horizons {
		snapshot.Requests[h] = len(t.windows[h].times)
		snapshot.Tokens[h] = t.windows[h].tokenSum()
	}
	return snapshot
}

// Limits returns the tracker's static configuration.
func (t *Tracker) Limits() ModelLimits {
	return t.limits
}

// purgeAll expires stale entries in every window. Caller holds t.mu.
func (t *Tracker) purgeAll(now time.Time) {
	for _, h := range horizons {
		t.windows[h].purge(h, now)
	}
}
