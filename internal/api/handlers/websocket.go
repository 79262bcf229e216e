package handlers

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"party_lobby/internal/service"
)

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	services *service.Services
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 建立 handler，allowedOrigins 包含 "*" 時接受任何來源
func NewWebSocketHandler(services *service.Services, allowedOrigins []string) *WebSocketHandler {
	allowAll := slices.Contains(allowedOrigins, "*")
	return &WebSocketHandler{
		services: services,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// HandleWebSocket 升級連接並交給協調器處理，房間不存在時不會升級
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := h.services.Coordinator.Snapshot(roomID); errors.Is(err, service.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "房間不存在"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("websocket upgrade failed")
		return
	}

	client := h.services.NewClient(conn, c.ClientIP())
	log.Debug().Str("room", roomID).Str("client", client.ID).Str("ip", client.RemoteAddr).Msg("websocket connected")
	h.services.ServeClient(client)
}
