// Package guard implements the distributed rate limiter and brute-force
// protection backed by the shared counter store.
package guard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
)

const defaultLimiterPrefix = "rt:rate"

// Rule configures a fixed-window limit for one protected surface. Window
// boundaries align to wall clock, which admits a burst of up to twice the
// limit across a boundary; the trade is bounded memory and a single counter
// per window.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Limiter enforces fixed-window request limits on shared atomic counters, so
// every process instance sees the same counts.
type Limiter struct {
	store  port.CounterStore
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// NewLimiter builds a limiter on the given counter store.
func NewLimiter(store port.CounterStore, keyPrefix string, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyPrefix == "" {
		keyPrefix = defaultLimiterPrefix
	}
	return &Limiter{
		store:  store,
		prefix: keyPrefix,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the limiter clock, primarily for testing.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// CheckAndRecord counts this request against the current window and decides
// whether it may proceed. A store failure logs and allows the request:
// wedging the ingress on a counter outage is worse than briefly losing
// enforcement.
func (l *Limiter) CheckAndRecord(ctx context.Context, clientAddress string, rule Rule) domain.RateDecision {
	allowAll := domain.RateDecision{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit}
	if rule.Limit <= 0 || rule.Window <= 0 || clientAddress == "" {
		return allowAll
	}

	now := l.now()
	windowStart := now.Truncate(rule.Window)
	windowEnd := windowStart.Add(rule.Window)
	key := fmt.Sprintf("%s:%s:%s:%d", l.prefix, rule.Name, clientAddress, windowStart.Unix())

	count, err := l.store.Increment(ctx, key, rule.Window)
	if err != nil {
		l.logger.Warn("rate window increment failed, allowing request",
			zap.String("rule", rule.Name),
			zap.String("client", clientAddress),
			zap.Error(err),
		)
		return allowAll
	}

	decision := domain.RateDecision{
		Limit: rule.Limit,
		Reset: windowEnd,
	}

	if count > int64(rule.Limit) {
		decision.Allowed = false
		decision.Remaining = 0
		decision.RetryAfter = clampDuration(windowEnd.Sub(now))
		return decision
	}

	decision.Allowed = true
	decision.Remaining = rule.Limit - int(count)
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	return decision
}

func clampDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
