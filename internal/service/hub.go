package service

import (
	"sync"

	"github.com/rs/zerolog/log"

	"party_lobby/internal/models"
)

// Hub 管理每個房間頻道中的連接和消息廣播
type Hub struct {
	clients    map[string]map[*Client]bool // 兩層 map: roomID -> client -> bool
	clientsMux sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]bool),
	}
}

// Join 把連接加入房間頻道，重複加入不會有影響
func (h *Hub) Join(roomID string, client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	if h.clients[roomID] == nil {
		h.clients[roomID] = make(map[*Client]bool)
	}
	h.clients[roomID][client] = true
}

// Leave 把連接移出房間頻道
func (h *Hub) Leave(roomID string, client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	if clients, ok := h.clients[roomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, roomID)
		}
	}
}

// Broadcast 向房間內的所有連接廣播消息。
// 發送隊列已滿的連接會被移出頻道並關閉。
func (h *Hub) Broadcast(roomID string, msgType string, payload any) {
	raw, err := models.Encode(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("message encoding error")
		return
	}

	h.clientsMux.RLock()
	var slow []*Client
	for client := range h.clients[roomID] {
		if !client.Send(raw) {
			slow = append(slow, client)
		}
	}
	h.clientsMux.RUnlock()

	for _, client := range slow {
		log.Warn().Str("room", roomID).Str("client", client.ID).Msg("client send queue full, closing connection")
		h.Leave(roomID, client)
		client.Close()
	}
}

// Count 房間頻道中的連接數量
func (h *Hub) Count(roomID string) int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	return len(h.clients[roomID])
}
