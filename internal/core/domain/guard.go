package domain

import "time"

// BlockReasonBruteForce marks blocks created automatically by the failed-auth
// threshold; manual blocks carry whatever reason the operator supplied.
const BlockReasonBruteForce = "brute_force"

// BlockEntry records an active client-address block. Expiry is enforced by
// the counter store's TTL; BlockedUntil exists for reporting.
type BlockEntry struct {
	Address      string    `json:"address"`
	Reason       string    `json:"reason"`
	BlockedAt    time.Time `json:"blocked_at"`
	BlockedUntil time.Time `json:"blocked_until"`
}

// RateDecision is the outcome of a rate-limit window check.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// BlockStatus is the outcome of a block lookup.
type BlockStatus struct {
	Blocked   bool
	Reason    string
	Remaining time.Duration
}
