package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/transport/http/middleware"
	"github.com/arklim/weather-platform-realtime/internal/usecase"
)

// AuthHandler exposes login and logout endpoints.
type AuthHandler struct {
	auth   *usecase.AuthService
	logger *zap.Logger
}

// NewAuthHandler builds an auth handler instance.
func NewAuthHandler(auth *usecase.AuthService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, logger: logger}
}

// RegisterRoutes wires the auth endpoints. The extra middlewares guard the
// login endpoint only, so rate limiting can be scoped to credential checks.
func (h *AuthHandler) RegisterRoutes(router gin.IRouter, authMiddleware gin.HandlerFunc, loginMiddlewares ...gin.HandlerFunc) {
	group := router.Group("/auth")

	loginChain := make([]gin.HandlerFunc, 0, len(loginMiddlewares)+1)
	loginChain = append(loginChain, loginMiddlewares...)
	loginChain = append(loginChain, h.Login)
	group.POST("/login", loginChain...)

	if authMiddleware != nil {
		group.POST("/logout", authMiddleware, h.Logout)
	}
}

// Login godoc
// @Summary Authenticate with username and password
// @Description Validates credentials and issues an access token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Username:         req.Username,
		Password:         req.Password,
		ClientAddress:    c.ClientIP(),
		OriginConnection: c.GetHeader(middleware.ConnectionIDHeader),
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAddressBlocked, Status: http.StatusForbidden, Message: "too many failed attempts, try again later"},
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid username or password"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is not active"},
		}, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
		SessionID:   result.SessionID,
		User: UserSummary{
			ID:       result.User.ID,
			Username: result.User.Username,
		},
	})
}

// Logout godoc
// @Summary End the current session
// @Description Emits the logout event for the authenticated user.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	username := middleware.GetAuthenticatedUsername(c)

	h.auth.Logout(c.Request.Context(), userID, username, c.GetHeader(middleware.ConnectionIDHeader))

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}
