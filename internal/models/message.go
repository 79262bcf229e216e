package models

import "encoding/json"

// 客戶端 → 伺服器
const (
	MsgJoin           = "join"
	MsgWatch          = "watch"
	MsgRestoreSession = "restore-session"
	MsgHeartbeatPing  = "heartbeat-ping"
	MsgVoteGame       = "lobby:vote-game"
	MsgReadyToggle    = "lobby:ready-toggle"
	MsgGameAction     = "game:action"
	MsgNextRound      = "results:next-round"
	MsgAdminBoot      = "admin:boot-player"
	MsgAdminLobby     = "admin:back-to-lobby"
	MsgAdminReset     = "admin:hard-reset"
	MsgAdminPause     = "admin:pause"
	MsgAdminUnpause   = "admin:unpause"
	MsgAdminConfig    = "admin:update-config"
)

// 伺服器 → 客戶端
const (
	MsgRoomState          = "room:state"
	MsgJoinSuccess        = "join:success"
	MsgError              = "error"
	MsgVotingUpdate       = "lobby:voting-update"
	MsgCountdown          = "lobby:countdown"
	MsgCountdownCancelled = "lobby:countdown-cancelled"
	MsgGameStart          = "game:start"
	MsgGameEnd            = "game:end"
	MsgHeartbeatPong      = "heartbeat-pong"
	MsgRestoreFailed      = "restore-session:failed"
)

// Envelope 所有 websocket 訊息的外層格式
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode 把 data 解析進 v，data 缺少時視為空物件
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Encode 把訊息序列化成一個 websocket 文字訊框
func Encode(msgType string, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Data: data})
}

type JoinRequest struct {
	RoomID   string `json:"roomId"`
	Nickname string `json:"nickname"`
	DeviceID string `json:"deviceId,omitempty"`
}

type WatchRequest struct {
	RoomID string `json:"roomId"`
}

type RestoreSessionRequest struct {
	RoomID       string `json:"roomId"`
	PlayerID     string `json:"playerId"`
	SessionToken string `json:"sessionToken"`
}

type VoteGameRequest struct {
	GameID string `json:"gameId"`
}

type ReadyToggleRequest struct {
	IsReady bool `json:"isReady"`
}

type GameActionRequest struct {
	PlayerID string          `json:"playerId,omitempty"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type BootPlayerRequest struct {
	PlayerID string `json:"playerId"`
}

type UpdateConfigRequest struct {
	Config RoomConfig `json:"config"`
}

type RoomStatePayload struct {
	State RoomState `json:"state"`
}

type JoinSuccessPayload struct {
	Player       Player    `json:"player"`
	State        RoomState `json:"state"`
	SessionToken string    `json:"sessionToken"`
}

type VotingUpdatePayload struct {
	VotingState any `json:"votingState"`
}

type CountdownPayload struct {
	Countdown    int    `json:"countdown"`
	SelectedGame string `json:"selectedGame"`
}

type GameStartPayload struct {
	GameID string `json:"gameId"`
}

type GameEndPayload struct {
	Winners []string      `json:"winners"`
	Scores  []PlayerScore `json:"scores"`
}

type PongPayload struct {
	ServerTime int64 `json:"serverTime"`
}
