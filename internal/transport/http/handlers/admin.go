package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/port"
	"github.com/arklim/weather-platform-realtime/internal/guard"
	"github.com/arklim/weather-platform-realtime/internal/infra/logger"
)

const defaultAdminBlockDuration = time.Hour

// AdminHandler exposes operator endpoints for address blocks and
// connection registry lookups.
type AdminHandler struct {
	bruteForce *guard.BruteForce
	registry   port.ConnectionRegistry
	logger     *zap.Logger
}

// NewAdminHandler builds an admin handler instance.
func NewAdminHandler(bruteForce *guard.BruteForce, registry port.ConnectionRegistry, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{bruteForce: bruteForce, registry: registry, logger: log}
}

// RegisterRoutes wires the admin endpoints behind the supplied middlewares.
func (h *AdminHandler) RegisterRoutes(router gin.IRouter, middlewares ...gin.HandlerFunc) {
	group := router.Group("/admin", middlewares...)
	group.POST("/blocks", h.BlockAddress)
	group.DELETE("/blocks/:address", h.UnblockAddress)
	group.GET("/blocks/:address", h.BlockStatus)
	group.GET("/users/:user_id/connections", h.UserConnections)
}

// BlockAddress godoc
// @Summary Block a client address
// @Description Places a manual block on a client address for the given duration.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BlockRequest true "Block parameters"
// @Success 200 {object} BlockStatusResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/admin/blocks [post]
func (h *AdminHandler) BlockAddress(c *gin.Context) {
	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	duration := defaultAdminBlockDuration
	if req.DurationSeconds > 0 {
		duration = time.Duration(req.DurationSeconds) * time.Second
	}

	reason := req.Reason
	if reason == "" {
		reason = "blocked by administrator"
	}

	if err := h.bruteForce.Block(c.Request.Context(), req.Address, duration, reason); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to block address"))
		return
	}

	h.logger.Info("address blocked by administrator",
		zap.String("address", logger.MaskIP(req.Address)),
		zap.Duration("duration", duration))

	c.JSON(http.StatusOK, BlockStatusResponse{
		Address:          req.Address,
		Blocked:          true,
		Reason:           reason,
		RemainingSeconds: int(duration / time.Second),
	})
}

// UnblockAddress godoc
// @Summary Remove a block from a client address
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param address path string true "Client address"
// @Success 200 {object} MessageResponse
// @Router /api/v1/admin/blocks/{address} [delete]
func (h *AdminHandler) UnblockAddress(c *gin.Context) {
	address := c.Param("address")
	if err := h.bruteForce.Unblock(c.Request.Context(), address); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to unblock address"))
		return
	}

	h.logger.Info("address unblocked by administrator",
		zap.String("address", logger.MaskIP(address)))

	c.JSON(http.StatusOK, MessageResponse{Message: "address unblocked"})
}

// BlockStatus godoc
// @Summary Inspect the block state of a client address
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param address path string true "Client address"
// @Success 200 {object} BlockStatusResponse
// @Router /api/v1/admin/blocks/{address} [get]
func (h *AdminHandler) BlockStatus(c *gin.Context) {
	address := c.Param("address")
	status := h.bruteForce.IsBlocked(c.Request.Context(), address)

	c.JSON(http.StatusOK, BlockStatusResponse{
		Address:          address,
		Blocked:          status.Blocked,
		Reason:           status.Reason,
		RemainingSeconds: int(status.Remaining / time.Second),
	})
}

// UserConnections godoc
// @Summary List a user's live push connections
// @Description Resolves the user's connections across all service instances.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User ID"
// @Success 200 {object} ConnectionListResponse
// @Router /api/v1/admin/users/{user_id}/connections [get]
func (h *AdminHandler) UserConnections(c *gin.Context) {
	userID := c.Param("user_id")

	records, err := h.registry.Records(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list connections"))
		return
	}

	connections := make([]ConnectionSummary, 0, len(records))
	for _, record := range records {
		connections = append(connections, ConnectionSummary{
			ConnectionID: record.ConnectionID,
			InstanceID:   record.InstanceID,
			ConnectedAt:  record.ConnectedAt,
		})
	}

	c.JSON(http.StatusOK, ConnectionListResponse{
		UserID:      userID,
		Connections: connections,
	})
}
