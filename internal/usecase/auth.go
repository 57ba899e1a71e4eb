package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
	"github.com/arklim/weather-platform-realtime/internal/guard"
	"github.com/arklim/weather-platform-realtime/internal/infra/logger"
	"github.com/arklim/weather-platform-realtime/internal/infra/security"
	"github.com/arklim/weather-platform-realtime/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided username or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is disabled.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrAddressBlocked indicates the client address is blocked from authenticating.
	ErrAddressBlocked = errors.New("client address is blocked")
)

// LoginInput carries credentials plus the request origin.
type LoginInput struct {
	Username         string
	Password         string
	ClientAddress    string
	OriginConnection string
}

// LoginResult is the successful outcome of credential validation.
type LoginResult struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
	User      domain.User
}

// AuthService validates credentials under brute-force protection and emits
// the session lifecycle events.
type AuthService struct {
	users      port.UserRepository
	bruteForce *guard.BruteForce
	tokens     *security.TokenService
	bus        port.EventBus
	sessionTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users port.UserRepository,
	bruteForce *guard.BruteForce,
	tokens *security.TokenService,
	bus port.EventBus,
	sessionTTL time.Duration,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if sessionTTL <= 0 {
		sessionTTL = 15 * time.Minute
	}
	return &AuthService{
		users:      users,
		bruteForce: bruteForce,
		tokens:     tokens,
		bus:        bus,
		sessionTTL: sessionTTL,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock, primarily for testing.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login validates credentials, records outcomes with the brute-force guard,
// and on success issues a token and publishes user.logged_in and
// session.created.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if input.Username == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	if status := s.bruteForce.IsBlocked(ctx, input.ClientAddress); status.Blocked {
		s.logger.Warn("login rejected for blocked address",
			zap.String("client", logger.MaskIP(input.ClientAddress)),
			zap.Duration("remaining", status.Remaining),
		)
		return nil, ErrAddressBlocked
	}

	user, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordFailure(ctx, input)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.recordFailure(ctx, input)
		return nil, ErrInvalidCredentials
	}

	if err := s.bruteForce.RecordSuccess(ctx, input.ClientAddress, input.Username); err != nil {
		s.logger.Warn("failed to clear attempt counter", zap.Error(err))
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	sessionID := uuid.NewString()
	expiresAt := s.now().Add(s.sessionTTL)

	s.bus.Publish(ctx, domain.NewEvent(domain.EventUserLoggedIn, user.ID, input.OriginConnection, domain.UserRef{
		UserID:   user.ID,
		Username: user.Username,
	}))
	s.bus.Publish(ctx, domain.NewEvent(domain.EventSessionCreated, user.ID, input.OriginConnection, domain.SessionPayload{
		SessionID: sessionID,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}))

	sanitized := *user
	sanitized.PasswordHash = ""

	return &LoginResult{
		Token:     token,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
		User:      sanitized,
	}, nil
}

// Logout publishes user.logged_out for the given user.
func (s *AuthService) Logout(ctx context.Context, userID, username, originConnection string) {
	s.bus.Publish(ctx, domain.NewEvent(domain.EventUserLoggedOut, userID, originConnection, domain.UserRef{
		UserID:   userID,
		Username: username,
	}))
}

func (s *AuthService) recordFailure(ctx context.Context, input LoginInput) {
	if err := s.bruteForce.RecordFailure(ctx, input.ClientAddress, input.Username); err != nil {
		s.logger.Warn("failed to record login failure", zap.Error(err))
	}
}
