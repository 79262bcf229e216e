package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"party_lobby/internal/repository"
	"party_lobby/internal/service"
)

// RoomHandler 處理與房間相關的請求
type RoomHandler struct {
	coordinator *service.Coordinator
}

func NewRoomHandler(coordinator *service.Coordinator) *RoomHandler {
	return &RoomHandler{coordinator: coordinator}
}

// CreateRoom 建立房間，沒有指定 roomId 時自動產生房間代碼
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var input struct {
		RoomID string `json:"roomId" binding:"omitempty,alphanum,max=16"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	state, err := h.coordinator.CreateRoom(input.RoomID)
	switch {
	case errors.Is(err, repository.ErrRoomExists):
		c.JSON(http.StatusConflict, gin.H{"error": "房間已存在"})
		return
	case err != nil:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "創建房間失敗"})
		return
	}
	c.JSON(http.StatusCreated, state)
}

// GetRoom 回傳房間目前的快照
func (h *RoomHandler) GetRoom(c *gin.Context) {
	state, err := h.coordinator.Snapshot(c.Param("id"))
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "房間不存在"})
		return
	case err != nil:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "讀取房間失敗"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// ListRooms 回傳所有房間 ID
func (h *RoomHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.coordinator.Rooms()})
}
