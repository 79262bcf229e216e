package service

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"party_lobby/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

// ServeClient 處理一個已升級的 WebSocket 連接，直到連接關閉才回傳
func (s *Services) ServeClient(client *Client) {
	defer func() {
		s.Coordinator.Disconnect(client)
		client.Close()
	}()

	go s.writePump(client)
	s.readPump(client)
}

// readPump 持續監聽並處理從客戶端接收的消息
func (s *Services) readPump(client *Client) {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client", client.ID).Msg("websocket unexpected close error")
			}
			return
		}

		if !client.allow() {
			client.replyError(models.NewProtocolError(models.CodeRateLimited))
			continue
		}

		var env models.Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
			client.replyError(models.NewProtocolError(models.CodeInvalidMessage))
			continue
		}
		s.Coordinator.Dispatch(client, env)
	}
}

// writePump 處理向客戶端發送消息的邏輯
func (s *Services) writePump(client *Client) {
	conn := client.conn
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
