package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"party_lobby/internal/models"
)

// 以下函式都只在房間的派送佇列中執行

func (co *Coordinator) handleJoin(a *roomActor, c *Client, env models.Envelope) error {
	var req models.JoinRequest
	if err := decode(env, &req); err != nil {
		return err
	}
	nickname, isAdmin, err := models.ParseNickname(req.Nickname)
	if err != nil {
		return models.NewProtocolError(models.CodeInvalidNick)
	}

	room := co.room(a)
	if room.Phase.Name() == models.PhaseCountdown {
		return models.NewProtocolError(models.CodeGameInProgress)
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = c.RemoteAddr
	}
	previous, hasPrevious := co.rooms.PlayerByDevice(room.ID, deviceID)

	occupied := len(room.Players)
	if hasPrevious {
		occupied--
	}
	if occupied >= room.Config.MaxPlayers {
		return models.NewProtocolError(models.CodeRoomFull)
	}

	// 同一個連接重新加入時，先放掉原本綁定的玩家
	if roomID, playerID := c.Binding(); roomID == a.id && playerID != "" && (!hasPrevious || previous.ID != playerID) {
		co.connectionLost(a, c, playerID)
	}
	if hasPrevious {
		co.removePlayer(a, previous.ID)
		log.Info().Str("room", room.ID).Str("player", previous.ID).Str("device", deviceID).Msg("evicted previous player of device")
	}

	now := co.now()
	player := &models.Player{
		ID:          uuid.NewString(),
		Nickname:    nickname,
		DeviceID:    deviceID,
		IsAdmin:     isAdmin,
		IsHost:      !room.HostAssigned,
		IsConnected: true,
		ConnectedAt: now,
		LastSeenAt:  now,
	}
	if score, ok := co.rooms.TakeDepartedScore(room.ID, nickname); ok {
		player.Score = score
	}

	token, hash, err := co.tokens.Issue(player.ID, room.ID)
	if err != nil {
		return err
	}
	player.SessionHash = hash

	if err := co.rooms.AddPlayer(room.ID, player); err != nil {
		return err
	}

	switch ph := room.Phase.(type) {
	case *models.TitlePhase:
		if err := co.enterLobby(a); err != nil {
			return err
		}
	case *models.LobbyPhase:
		ph.Voting.AddPlayer(player.ID)
	case *models.PlayingPhase:
		if a.instance != nil {
			a.instance.AddPlayer(participant(player))
			ph.GameState = a.instance.State()
		}
	}

	co.attach(a, c, player.ID)
	log.Info().Str("room", room.ID).Str("player", player.ID).Str("nickname", nickname).Bool("admin", isAdmin).Msg("player joined")

	c.reply(models.MsgJoinSuccess, models.JoinSuccessPayload{
		Player:       *player,
		State:        room.Snapshot(),
		SessionToken: token,
	})
	co.broadcastState(a)
	return nil
}

func (co *Coordinator) handleWatch(a *roomActor, c *Client, env models.Envelope) error {
	if roomID, playerID := c.Binding(); roomID == a.id && playerID != "" {
		co.connectionLost(a, c, playerID)
	}
	co.attach(a, c, "")
	c.reply(models.MsgRoomState, models.RoomStatePayload{State: co.room(a).Snapshot()})
	return nil
}

func (co *Coordinator) handleRestoreSession(a *roomActor, c *Client, env models.Envelope) error {
	var req models.RestoreSessionRequest
	if err := decode(env, &req); err != nil {
		return err
	}

	room := co.room(a)
	p := room.FindPlayer(req.PlayerID)
	if p == nil || co.tokens.Verify(req.SessionToken, p.ID, room.ID, p.SessionHash) != nil {
		c.reply(models.MsgRestoreFailed, nil)
		return nil
	}

	// 舊的連接之後斷線時不再影響這位玩家
	if old := a.conns[p.ID]; old != nil && old != c {
		old.unbindPlayer()
	}
	if roomID, playerID := c.Binding(); roomID == a.id && playerID != "" && playerID != p.ID {
		co.connectionLost(a, c, playerID)
	}

	now := co.now()
	co.markConnected(a, p, now, true)
	co.attach(a, c, p.ID)
	log.Info().Str("room", room.ID).Str("player", p.ID).Msg("session restored")

	c.reply(models.MsgJoinSuccess, models.JoinSuccessPayload{
		Player:       *p,
		State:        room.Snapshot(),
		SessionToken: req.SessionToken,
	})
	co.broadcastState(a)
	return nil
}

func (co *Coordinator) handleHeartbeatPing(a *roomActor, c *Client, env models.Envelope) error {
	now := co.now()
	defer c.reply(models.MsgHeartbeatPong, models.PongPayload{ServerTime: now.UnixMilli()})

	p, err := co.actingPlayer(a, c)
	if err != nil {
		return nil
	}
	if co.markConnected(a, p, now, false) {
		log.Info().Str("room", a.id).Str("player", p.ID).Msg("player reconnected by heartbeat")
		co.broadcastState(a)
	}
	return nil
}

// connectionLost 處理玩家目前連接的斷線
func (co *Coordinator) connectionLost(a *roomActor, c *Client, playerID string) {
	if a.conns[playerID] != c {
		return
	}
	delete(a.conns, playerID)

	p := co.room(a).FindPlayer(playerID)
	if p == nil {
		return
	}
	co.markDisconnected(a, p, true)
	log.Info().Str("room", a.id).Str("player", p.ID).Msg("player disconnected")
	co.broadcastState(a)
}

// sweep 是心跳檢查的內容：超過門檻的玩家標記離線，更久的直接移除
func (co *Coordinator) sweep(a *roomActor) {
	room := co.room(a)
	now := co.now()
	changed := false

	players := append([]*models.Player(nil), room.Players...)
	for _, p := range players {
		since := now.Sub(p.LastSeenAt)
		switch {
		case since > co.cfg.RemoveAfter:
			co.removePlayer(a, p.ID)
			log.Info().Str("room", room.ID).Str("player", p.ID).Dur("since", since).Msg("player removed after heartbeat timeout")
			changed = true
		case since > co.cfg.DisconnectAfter && p.IsConnected:
			co.markDisconnected(a, p, false)
			log.Info().Str("room", room.ID).Str("player", p.ID).Dur("since", since).Msg("player marked disconnected")
			changed = true
		}
	}
	if changed {
		co.broadcastState(a)
	}
}

// markDisconnected 標記玩家離線並移出投票，倒數中的房間會取消倒數。
// refresh 為 true 時把 lastSeenAt 更新為現在（傳輸層斷線）。
func (co *Coordinator) markDisconnected(a *roomActor, p *models.Player, refresh bool) {
	off := false
	patch := models.PlayerPatch{IsConnected: &off}
	if refresh {
		seen := latest(p.LastSeenAt, co.now())
		patch.LastSeenAt = &seen
	}
	if _, err := co.rooms.UpdatePlayer(a.id, p.ID, patch); err != nil {
		log.Error().Err(err).Str("room", a.id).Str("player", p.ID).Msg("mark disconnected failed")
		return
	}

	room := co.room(a)
	switch room.Phase.(type) {
	case *models.LobbyPhase:
		room.Lobby().Voting.RemovePlayer(p.ID)
	case *models.CountdownPhase:
		co.abortCountdown(a)
	}
}

// markConnected 更新 lastSeenAt（只會往後），並讓離線的玩家重新上線。
// 回傳玩家是否從離線變成上線。
func (co *Coordinator) markConnected(a *roomActor, p *models.Player, now time.Time, session bool) bool {
	seen := latest(p.LastSeenAt, now)
	patch := models.PlayerPatch{LastSeenAt: &seen}
	wasConnected := p.IsConnected
	if !wasConnected || session {
		on := true
		patch.IsConnected = &on
		patch.ConnectedAt = &now
	}
	if _, err := co.rooms.UpdatePlayer(a.id, p.ID, patch); err != nil {
		log.Error().Err(err).Str("room", a.id).Str("player", p.ID).Msg("mark connected failed")
		return false
	}
	if lobby := co.room(a).Lobby(); lobby != nil {
		lobby.Voting.AddPlayer(p.ID)
	}
	return !wasConnected
}

// removePlayer 把玩家從房間、投票與進行中的遊戲中移除
func (co *Coordinator) removePlayer(a *roomActor, playerID string) {
	if _, err := co.rooms.RemovePlayer(a.id, playerID); err != nil {
		log.Error().Err(err).Str("room", a.id).Str("player", playerID).Msg("remove player failed")
		return
	}
	if conn := a.conns[playerID]; conn != nil {
		conn.unbindPlayer()
		delete(a.conns, playerID)
	}
	if a.suspendedVotes != nil {
		a.suspendedVotes.RemovePlayer(playerID)
	}

	room := co.room(a)
	switch ph := room.Phase.(type) {
	case *models.LobbyPhase:
		ph.Voting.RemovePlayer(playerID)
	case *models.PlayingPhase:
		if a.instance == nil {
			return
		}
		outcome := a.instance.RemovePlayer(playerID)
		ph.GameState = a.instance.State()
		if outcome.Finished {
			co.finishGame(a, outcome)
		}
	}
}

// attach 把連接加入房間頻道並綁定玩家，playerID 為空時是旁觀者
func (co *Coordinator) attach(a *roomActor, c *Client, playerID string) {
	co.hub.Join(a.id, c)
	c.bind(a.id, playerID)
	if playerID != "" {
		a.conns[playerID] = c
	}
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
