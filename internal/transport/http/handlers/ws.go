package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/push"
	"github.com/arklim/weather-platform-realtime/internal/transport/http/middleware"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
)

// welcomePayload is the first frame pushed on a fresh socket. Clients echo
// the connection ID back as X-Connection-ID on mutating requests so their
// own changes are not pushed back to them.
type welcomePayload struct {
	ConnectionID string `json:"connection_id"`
	InstanceID   string `json:"instance_id"`
}

// WSHandler upgrades authenticated requests to websocket push connections.
type WSHandler struct {
	hub        *push.Hub
	instanceID string
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewWSHandler builds a websocket handler instance. Allowed origins mirror
// the CORS configuration; "*" disables the origin check.
func NewWSHandler(hub *push.Hub, instanceID string, allowedOrigins []string, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}

	allowAll := false
	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
		origins[origin] = true
	}

	return &WSHandler{
		hub:        hub,
		instanceID: instanceID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsReadBufferSize,
			WriteBufferSize: wsWriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
		logger: log,
	}
}

// RegisterRoutes wires the websocket endpoint behind the supplied middlewares.
func (h *WSHandler) RegisterRoutes(router gin.IRouter, middlewares ...gin.HandlerFunc) {
	chain := append(append([]gin.HandlerFunc{}, middlewares...), h.Serve)
	router.GET("/ws", chain...)
}

// Serve godoc
// @Summary Open a realtime push connection
// @Description Upgrades the request to a websocket and streams change notifications.
// @Tags Push
// @Security BearerAuth
// @Success 101
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/ws [get]
func (h *WSHandler) Serve(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	client := h.hub.Register(c.Request.Context(), userID, conn)

	client.Enqueue(push.Frame{
		Method: "Connected",
		Payload: welcomePayload{
			ConnectionID: client.ID,
			InstanceID:   h.instanceID,
		},
	})

	client.Serve(c.Request.Context())
}
