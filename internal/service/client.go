package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"party_lobby/internal/models"
)

const sendBufferSize = 256

// Client 代表一個 WebSocket 客戶端連接。
// 連接和玩家是分開的：同一位玩家可以在重新連線後換成另一個 Client。
type Client struct {
	ID         string
	RemoteAddr string

	conn    *websocket.Conn // 測試時可以是 nil
	send    chan []byte     // 消息發送通道，由 writePump 消費
	limiter *rate.Limiter

	mu       sync.Mutex
	roomID   string // 所在的房間頻道
	playerID string // 綁定的玩家，旁觀者為空
	closed   bool
}

// NewClient 建立一個客戶端，limiter 為 nil 時不做限流
func NewClient(conn *websocket.Conn, remoteAddr string, limiter *rate.Limiter) *Client {
	return &Client{
		ID:         uuid.NewString(),
		RemoteAddr: remoteAddr,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		limiter:    limiter,
	}
}

// Binding 回傳目前所在的房間與綁定的玩家
func (c *Client) Binding() (roomID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID, c.playerID
}

func (c *Client) bind(roomID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID, c.playerID = roomID, playerID
}

// unbindPlayer 解除玩家綁定，連接仍留在房間頻道中
func (c *Client) unbindPlayer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = ""
}

// Send 將消息放入發送隊列，隊列已滿或連接已關閉時回傳 false
func (c *Client) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close 關閉發送隊列，writePump 會接著送出關閉訊框
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

func (c *Client) reply(msgType string, payload any) {
	raw, err := models.Encode(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("message encoding error")
		return
	}
	if !c.Send(raw) {
		log.Warn().Str("client", c.ID).Str("type", msgType).Msg("client send queue full, reply dropped")
	}
}

// replyError 只回覆給發送者，非協定錯誤一律以 INTERNAL_ERROR 回覆
func (c *Client) replyError(err error) {
	pe := models.AsProtocolError(err)
	if pe.Code == models.CodeInternal {
		log.Error().Err(err).Str("client", c.ID).Msg("request failed")
	}
	c.reply(models.MsgError, pe)
}
