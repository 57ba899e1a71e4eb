package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
)

const (
	defaultGuardPrefix   = "rt:guard"
	defaultMaxAttempts   = 5
	defaultAttemptWindow = 15 * time.Minute
	defaultBlockDuration = 30 * time.Minute
)

// BruteForceConfig tunes the failed-auth thresholds.
type BruteForceConfig struct {
	KeyPrefix     string
	MaxAttempts   int
	AttemptWindow time.Duration
	BlockDuration time.Duration
}

func (c BruteForceConfig) withDefaults() BruteForceConfig {
	if c.KeyPrefix == "" {
		c.KeyPrefix = defaultGuardPrefix
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = defaultAttemptWindow
	}
	if c.BlockDuration <= 0 {
		c.BlockDuration = defaultBlockDuration
	}
	return c
}

// BruteForce tracks failed credential validations per client address and
// blocks addresses that cross the threshold. Counters and block entries live
// in the shared counter store with TTL expiry, so no cleanup sweep exists and
// any process instance sees the same state.
type BruteForce struct {
	store  port.CounterStore
	cfg    BruteForceConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewBruteForce builds the guard on the given counter store.
func NewBruteForce(store port.CounterStore, cfg BruteForceConfig, logger *zap.Logger) *BruteForce {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BruteForce{
		store:  store,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the guard clock, primarily for testing.
func (g *BruteForce) WithClock(now func() time.Time) *BruteForce {
	if now != nil {
		g.now = now
	}
	return g
}

// RecordFailure counts one failed credential validation. Crossing the
// threshold within the rolling period creates an automatic block.
func (g *BruteForce) RecordFailure(ctx context.Context, clientAddress, identifier string) error {
	if clientAddress == "" {
		return fmt.Errorf("client address is required")
	}

	key := g.attemptKey(clientAddress, identifier)
	count, err := g.store.Increment(ctx, key, g.cfg.AttemptWindow)
	if err != nil {
		return fmt.Errorf("increment failed attempts: %w", err)
	}

	if count >= int64(g.cfg.MaxAttempts) {
		if err := g.Block(ctx, clientAddress, g.cfg.BlockDuration, domain.BlockReasonBruteForce); err != nil {
			return fmt.Errorf("create brute force block: %w", err)
		}
		g.logger.Warn("client address blocked after repeated failed logins",
			zap.String("client", clientAddress),
			zap.Int64("attempts", count),
			zap.Duration("duration", g.cfg.BlockDuration),
		)
	}

	return nil
}

// RecordSuccess clears the failed-attempt counter after a successful login.
func (g *BruteForce) RecordSuccess(ctx context.Context, clientAddress, identifier string) error {
	if clientAddress == "" {
		return fmt.Errorf("client address is required")
	}
	if err := g.store.Delete(ctx, g.attemptKey(clientAddress, identifier)); err != nil {
		return fmt.Errorf("clear failed attempts: %w", err)
	}
	return nil
}

// IsBlocked reports whether the client address is currently blocked and for
// how much longer. A store failure is reported as "not blocked": this is an
// explicit availability-over-enforcement trade, logged at error level.
func (g *BruteForce) IsBlocked(ctx context.Context, clientAddress string) domain.BlockStatus {
	if clientAddress == "" {
		return domain.BlockStatus{}
	}

	key := g.blockKey(clientAddress)
	value, found, err := g.store.Get(ctx, key)
	if err != nil {
		g.logger.Error("block lookup failed, treating address as not blocked",
			zap.String("client", clientAddress),
			zap.Error(err),
		)
		return domain.BlockStatus{}
	}
	if !found {
		return domain.BlockStatus{}
	}

	status := domain.BlockStatus{Blocked: true}

	var entry domain.BlockEntry
	if err := json.Unmarshal([]byte(value), &entry); err == nil {
		status.Reason = entry.Reason
		status.Remaining = clampDuration(entry.BlockedUntil.Sub(g.now()))
	}

	if remaining, err := g.store.TTL(ctx, key); err == nil && remaining > 0 {
		status.Remaining = remaining
	}

	return status
}

// Block is the administrative override creating (or extending) a block.
func (g *BruteForce) Block(ctx context.Context, clientAddress string, duration time.Duration, reason string) error {
	if clientAddress == "" {
		return fmt.Errorf("client address is required")
	}
	if duration <= 0 {
		duration = g.cfg.BlockDuration
	}

	now := g.now()
	entry := domain.BlockEntry{
		Address:      clientAddress,
		Reason:       reason,
		BlockedAt:    now,
		BlockedUntil: now.Add(duration),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal block entry: %w", err)
	}

	if err := g.store.Put(ctx, g.blockKey(clientAddress), string(data), duration); err != nil {
		return fmt.Errorf("store block entry: %w", err)
	}
	return nil
}

// Unblock is the administrative override removing an active block.
func (g *BruteForce) Unblock(ctx context.Context, clientAddress string) error {
	if clientAddress == "" {
		return fmt.Errorf("client address is required")
	}
	if err := g.store.Delete(ctx, g.blockKey(clientAddress)); err != nil {
		return fmt.Errorf("remove block entry: %w", err)
	}
	return nil
}

func (g *BruteForce) attemptKey(clientAddress, identifier string) string {
	normalized := strings.ToLower(strings.TrimSpace(identifier))
	return fmt.Sprintf("%s:attempts:%s:%s", g.cfg.KeyPrefix, clientAddress, normalized)
}

func (g *BruteForce) blockKey(clientAddress string) string {
	return fmt.Sprintf("%s:block:%s", g.cfg.KeyPrefix, clientAddress)
}
