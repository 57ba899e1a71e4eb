package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/guard"
)

const (
	rateLimitProblemType  = "https://weather-platform.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
	blockedProblemType    = "https://weather-platform.example.com/errors/address-blocked"
	blockedProblemTitle   = "Address Blocked"
)

// IdentifierFunc extracts the identifier used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule pairs a limiter rule with the identifier it applies to.
type RateLimitRule struct {
	Rule       guard.Rule
	Identifier IdentifierFunc
}

// RateLimiter adapts the distributed limiter and brute-force guard to Gin.
type RateLimiter struct {
	limiter    *guard.Limiter
	bruteForce *guard.BruteForce
	logger     *zap.Logger
}

// ProblemDetails represents an RFC 9457 compatible error payload.
type ProblemDetails struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Instance   string         `json:"instance"`
	RetryAfter int            `json:"retry_after,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(limiter *guard.Limiter, bruteForce *guard.BruteForce, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		limiter:    limiter,
		bruteForce: bruteForce,
		logger:     logger,
	}
}

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// RateLimit returns a Gin middleware enforcing the provided rules on shared
// window counters. Counter outages never reject requests; the limiter allows
// and logs instead.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	filtered := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Rule.Limit <= 0 || rule.Rule.Window <= 0 {
			continue
		}
		if rule.Rule.Name == "" {
			rule.Rule.Name = "default"
		}
		filtered = append(filtered, rule)
	}

	return func(c *gin.Context) {
		if len(filtered) == 0 || rl.limiter == nil {
			c.Next()
			return
		}

		var tightest *domain.RateDecision

		for _, rule := range filtered {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			decision := rl.limiter.CheckAndRecord(c.Request.Context(), identifier, rule.Rule)

			if tightest == nil || shouldReplaceHeaderDecision(*tightest, decision) {
				snapshot := decision
				tightest = &snapshot
			}

			if !decision.Allowed {
				applyRateHeaders(c, decision)
				rl.respondRateLimited(c, decision)
				return
			}
		}

		if tightest != nil {
			applyRateHeaders(c, *tightest)
		}

		c.Next()
	}
}

// BlockGuard returns a Gin middleware rejecting requests from addresses under
// an active block. It runs before rate limiting so blocked clients never touch
// the window counters.
func (rl *RateLimiter) BlockGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.bruteForce == nil {
			c.Next()
			return
		}

		ip := c.ClientIP()
		status := rl.bruteForce.IsBlocked(c.Request.Context(), ip)
		if !status.Blocked {
			c.Next()
			return
		}

		retrySeconds := int(math.Ceil(status.Remaining.Seconds()))
		if retrySeconds < 0 {
			retrySeconds = 0
		}
		if retrySeconds > 0 {
			c.Writer.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
		}

		instance := c.FullPath()
		if instance == "" {
			instance = c.Request.URL.Path
		}

		problem := ProblemDetails{
			Type:       blockedProblemType,
			Title:      blockedProblemTitle,
			Status:     http.StatusForbidden,
			Detail:     "This address is temporarily blocked.",
			Instance:   instance,
			RetryAfter: retrySeconds,
			TraceID:    GetTraceID(c),
		}
		if status.Reason != "" {
			problem.Extensions = map[string]any{"reason": status.Reason}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, problem)
	}
}

func shouldReplaceHeaderDecision(current, candidate domain.RateDecision) bool {
	if !candidate.Allowed && current.Allowed {
		return true
	}

	if candidate.Allowed == current.Allowed {
		if candidate.Remaining < current.Remaining {
			return true
		}
		if candidate.Remaining == current.Remaining && candidate.Reset.Before(current.Reset) {
			return true
		}
	}

	return false
}

func applyRateHeaders(c *gin.Context, decision domain.RateDecision) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(decision.Remaining, 0)))
	if !decision.Reset.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))
	}

	if !decision.Allowed {
		seconds := retryAfterSeconds(decision.RetryAfter)
		headers.Set("Retry-After", strconv.Itoa(seconds))
	}
}

func (rl *RateLimiter) respondRateLimited(c *gin.Context, decision domain.RateDecision) {
	retrySeconds := retryAfterSeconds(decision.RetryAfter)

	detail := fmt.Sprintf("Too many requests. Try again in %d seconds.", retrySeconds)
	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	problem := ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     detail,
		Instance:   instance,
		RetryAfter: retrySeconds,
		TraceID:    GetTraceID(c),
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, problem)
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 0 {
		return 0
	}
	return seconds
}
