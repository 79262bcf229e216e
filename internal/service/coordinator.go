package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"party_lobby/internal/models"
	"party_lobby/internal/repository"
	"party_lobby/internal/utils"
)

var ErrRoomNotFound = errors.New("room not found")

// CoordinatorConfig 房間協調的時間與預設值
type CoordinatorConfig struct {
	DefaultRoom       models.RoomConfig
	HeartbeatInterval time.Duration
	DisconnectAfter   time.Duration // 超過這段時間沒有心跳就標記為離線
	RemoveAfter       time.Duration // 超過這段時間沒有心跳就移除玩家
	CountdownTick     time.Duration
}

type handlerFunc func(a *roomActor, c *Client, env models.Envelope) error

// Coordinator 把收到的訊息轉成房間與投票的變更，並廣播結果。
// 每個房間有自己的派送佇列，不同房間可以平行處理。
type Coordinator struct {
	cfg      CoordinatorConfig
	rooms    repository.RoomRepository
	launcher *Launcher
	tokens   *utils.TokenIssuer
	hub      *Hub
	clock    Clock

	mu       sync.RWMutex
	actors   map[string]*roomActor
	handlers map[string]handlerFunc
}

func NewCoordinator(cfg CoordinatorConfig, rooms repository.RoomRepository, launcher *Launcher, tokens *utils.TokenIssuer, hub *Hub, clock Clock) *Coordinator {
	if cfg.CountdownTick <= 0 {
		cfg.CountdownTick = time.Second
	}
	co := &Coordinator{
		cfg:      cfg,
		rooms:    rooms,
		launcher: launcher,
		tokens:   tokens,
		hub:      hub,
		clock:    clock,
		actors:   make(map[string]*roomActor),
	}
	co.handlers = map[string]handlerFunc{
		models.MsgJoin:           co.handleJoin,
		models.MsgWatch:          co.handleWatch,
		models.MsgRestoreSession: co.handleRestoreSession,
		models.MsgHeartbeatPing:  co.handleHeartbeatPing,
		models.MsgVoteGame:       co.handleVoteGame,
		models.MsgReadyToggle:    co.handleReadyToggle,
		models.MsgGameAction:     co.handleGameAction,
		models.MsgNextRound:      co.handleNextRound,
		models.MsgAdminBoot:      co.handleBootPlayer,
		models.MsgAdminLobby:     co.handleBackToLobby,
		models.MsgAdminReset:     co.handleHardReset,
		models.MsgAdminPause:     co.handlePause,
		models.MsgAdminUnpause:   co.handleUnpause,
		models.MsgAdminConfig:    co.handleUpdateConfig,
	}
	return co
}

// CreateRoom 建立房間並啟動它的派送佇列與心跳檢查，id 為空時自動產生房間代碼
func (co *Coordinator) CreateRoom(id string) (models.RoomState, error) {
	co.mu.Lock()
	if id == "" {
		code, err := utils.UniqueRoomCode(co.rooms.Exists)
		if err != nil {
			co.mu.Unlock()
			return models.RoomState{}, err
		}
		id = code
	}
	if _, err := co.rooms.CreateRoom(id, co.cfg.DefaultRoom); err != nil {
		co.mu.Unlock()
		return models.RoomState{}, err
	}

	a := newRoomActor(id)
	a.heartbeat = NewHeartbeatMonitor(co.clock, co.cfg.HeartbeatInterval, a.post, func() { co.sweep(a) })
	co.actors[id] = a
	co.mu.Unlock()

	go a.run()

	var state models.RoomState
	err := a.do(func() {
		a.heartbeat.Start()
		state = co.room(a).Snapshot()
	})
	log.Info().Str("room", id).Msg("room created")
	return state, err
}

// Snapshot 回傳房間目前的狀態
func (co *Coordinator) Snapshot(roomID string) (models.RoomState, error) {
	a := co.actor(roomID)
	if a == nil {
		return models.RoomState{}, ErrRoomNotFound
	}
	var state models.RoomState
	err := a.do(func() {
		state = co.room(a).Snapshot()
	})
	return state, err
}

// CheckSession 確認 session token 仍然可以用來恢復連線
func (co *Coordinator) CheckSession(roomID, playerID, token string) (bool, error) {
	a := co.actor(roomID)
	if a == nil {
		return false, ErrRoomNotFound
	}
	var ok bool
	err := a.do(func() {
		p := co.room(a).FindPlayer(playerID)
		ok = p != nil && co.tokens.Verify(token, playerID, roomID, p.SessionHash) == nil
	})
	return ok, err
}

// Rooms 回傳所有房間 ID
func (co *Coordinator) Rooms() []string {
	return co.rooms.List()
}

// Dispatch 處理一則來自客戶端的訊息，直到房間的派送佇列執行完畢才回傳
func (co *Coordinator) Dispatch(c *Client, env models.Envelope) {
	h, ok := co.handlers[env.Type]
	if !ok {
		c.replyError(models.NewProtocolError(models.CodeInvalidMessage))
		return
	}

	// prevRoom 是連接在切換房間前所在的房間，新房間接受之後才離開
	var roomID, prevRoom, prevPlayer string
	switch env.Type {
	case models.MsgJoin, models.MsgWatch, models.MsgRestoreSession:
		var target struct {
			RoomID string `json:"roomId"`
		}
		if err := env.Decode(&target); err != nil || target.RoomID == "" {
			c.replyError(models.NewProtocolError(models.CodeInvalidMessage))
			return
		}
		roomID = target.RoomID
		if bound, playerID := c.Binding(); bound != roomID {
			prevRoom, prevPlayer = bound, playerID
		}
	default:
		roomID, _ = c.Binding()
	}

	a := co.actor(roomID)
	if a == nil {
		switch env.Type {
		case models.MsgRestoreSession:
			c.reply(models.MsgRestoreFailed, nil)
		case models.MsgHeartbeatPing:
			c.reply(models.MsgHeartbeatPong, models.PongPayload{ServerTime: co.now().UnixMilli()})
		case models.MsgJoin, models.MsgWatch:
			c.replyError(models.NewProtocolError(models.CodeRoomNotFound))
		default:
			c.replyError(models.NewProtocolError(models.CodeNotInRoom))
		}
		return
	}

	err := a.do(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("room", a.id).Str("type", env.Type).Interface("panic", r).Msg("message handler panicked")
				c.replyError(models.NewProtocolError(models.CodeInternal))
			}
		}()
		if err := h(a, c, env); err != nil {
			c.replyError(err)
		}
	})
	if err != nil {
		c.replyError(err)
		return
	}

	if prevRoom != "" {
		if bound, _ := c.Binding(); bound == roomID {
			co.leaveRoom(c, prevRoom, prevPlayer)
		}
	}
}

// Disconnect 在傳輸層關閉時呼叫。
// 只有玩家目前的連接斷線才會影響玩家狀態。
func (co *Coordinator) Disconnect(c *Client) {
	roomID, playerID := c.Binding()
	if roomID == "" {
		return
	}
	c.bind("", "")
	co.leaveRoom(c, roomID, playerID)
}

// leaveRoom 把連接移出房間頻道，綁定的玩家視為斷線
func (co *Coordinator) leaveRoom(c *Client, roomID, playerID string) {
	co.hub.Leave(roomID, c)

	a := co.actor(roomID)
	if a == nil || playerID == "" {
		return
	}
	if err := a.do(func() { co.connectionLost(a, c, playerID) }); err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("disconnect after room closed")
	}
}

// Close 停止所有房間的計時器與派送佇列
func (co *Coordinator) Close() {
	co.mu.Lock()
	actors := co.actors
	co.actors = make(map[string]*roomActor)
	co.mu.Unlock()

	for _, a := range actors {
		_ = a.do(func() {
			a.heartbeat.Stop()
			a.cancelCountdown()
		})
		a.stop()
	}
}

func (co *Coordinator) actor(roomID string) *roomActor {
	if roomID == "" {
		return nil
	}
	co.mu.RLock()
	defer co.mu.RUnlock()
	return co.actors[roomID]
}

// room 只在派送佇列中呼叫，房間建立後不會被刪除
func (co *Coordinator) room(a *roomActor) *models.Room {
	room, ok := co.rooms.GetRoom(a.id)
	if !ok {
		panic(fmt.Sprintf("room %s has an actor but no record", a.id))
	}
	return room
}

func (co *Coordinator) now() time.Time {
	return co.clock.Now()
}

func (co *Coordinator) broadcast(a *roomActor, msgType string, payload any) {
	co.hub.Broadcast(a.id, msgType, payload)
}

func (co *Coordinator) broadcastState(a *roomActor) {
	co.broadcast(a, models.MsgRoomState, models.RoomStatePayload{State: co.room(a).Snapshot()})
}

// actingPlayer 找出連接目前代表的玩家
func (co *Coordinator) actingPlayer(a *roomActor, c *Client) (*models.Player, error) {
	roomID, playerID := c.Binding()
	if roomID != a.id || playerID == "" || a.conns[playerID] != c {
		return nil, models.NewProtocolError(models.CodeNotInRoom)
	}
	p := co.room(a).FindPlayer(playerID)
	if p == nil {
		return nil, models.NewProtocolError(models.CodeNotInRoom)
	}
	return p, nil
}

func decode(env models.Envelope, v any) error {
	if err := env.Decode(v); err != nil {
		return models.NewProtocolError(models.CodeInvalidMessage)
	}
	return nil
}
