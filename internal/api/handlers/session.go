package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"party_lobby/internal/middleware"
	"party_lobby/internal/service"
)

type SessionHandler struct {
	coordinator *service.Coordinator
}

func NewSessionHandler(coordinator *service.Coordinator) *SessionHandler {
	return &SessionHandler{coordinator: coordinator}
}

// CheckSession 讓客戶端在重新連線前確認 session 是否還能恢復
func (h *SessionHandler) CheckSession(c *gin.Context) {
	roomID := c.GetString(middleware.ContextRoomID)
	playerID := c.GetString(middleware.ContextPlayerID)

	ok, err := h.coordinator.CheckSession(roomID, playerID, c.GetString(middleware.ContextSessionToken))
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "房間不存在"})
		return
	case err != nil:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "檢查 session 失敗"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roomId":     roomID,
		"playerId":   playerID,
		"restorable": ok,
	})
}
