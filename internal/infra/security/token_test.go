package security

import (
	"testing"
	"time"

	"github.com/arklim/weather-platform-realtime/internal/infra/config"
)

func newTestTokenService(t *testing.T, now time.Time) *TokenService {
	t.Helper()

	svc, err := NewTokenService(config.JWTSettings{
		Secret:         "unit-test-secret",
		Issuer:         "weather-realtime",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	return svc.WithClock(func() time.Time { return now })
}

func TestTokenServiceIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, now)

	token, err := svc.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "weather-realtime" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, now)

	token, err := svc.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	svc.WithClock(func() time.Time { return now.Add(16 * time.Minute) })

	if _, err := svc.Verify(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestTokenServiceRejectsForeignSignature(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, now)

	other, err := NewTokenService(config.JWTSettings{
		Secret:         "different-secret",
		Issuer:         "weather-realtime",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	token, err := other.WithClock(func() time.Time { return now }).Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := svc.Verify(token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService(config.JWTSettings{}); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
