package service

import (
	"github.com/rs/zerolog/log"

	"party_lobby/internal/models"
)

// requireAdmin 找出發送者並確認是管理員，失敗時不會改變任何狀態
func (co *Coordinator) requireAdmin(a *roomActor, c *Client) (*models.Player, error) {
	p, err := co.actingPlayer(a, c)
	if err != nil {
		return nil, models.NewProtocolError(models.CodeUnauthorized)
	}
	if !p.IsAdmin {
		return nil, models.NewProtocolError(models.CodeUnauthorized)
	}
	return p, nil
}

func (co *Coordinator) handleBootPlayer(a *roomActor, c *Client, env models.Envelope) error {
	admin, err := co.requireAdmin(a, c)
	if err != nil {
		return err
	}
	var req models.BootPlayerRequest
	if err := decode(env, &req); err != nil {
		return err
	}
	if req.PlayerID == admin.ID {
		return models.NewProtocolError(models.CodeCannotBootSelf)
	}
	if co.room(a).FindPlayer(req.PlayerID) == nil {
		return models.NewProtocolError(models.CodePlayerNotFound)
	}

	co.removePlayer(a, req.PlayerID)
	log.Info().Str("room", a.id).Str("admin", admin.ID).Str("player", req.PlayerID).Msg("player booted")
	co.broadcastState(a)
	return nil
}

func (co *Coordinator) handleBackToLobby(a *roomActor, c *Client, env models.Envelope) error {
	admin, err := co.requireAdmin(a, c)
	if err != nil {
		return err
	}
	a.cancelCountdown()
	a.instance = nil
	if err := co.enterLobby(a); err != nil {
		return err
	}
	log.Info().Str("room", a.id).Str("admin", admin.ID).Msg("back to lobby")
	co.broadcastState(a)
	return nil
}

// handleHardReset 清空房間回到 title，房間 ID 保留，所有連接解除玩家綁定
func (co *Coordinator) handleHardReset(a *roomActor, c *Client, env models.Envelope) error {
	admin, err := co.requireAdmin(a, c)
	if err != nil {
		return err
	}
	a.cancelCountdown()
	a.instance = nil
	a.suspendedVotes = nil
	if err := co.rooms.ResetRoom(a.id); err != nil {
		return err
	}
	for playerID, conn := range a.conns {
		conn.unbindPlayer()
		delete(a.conns, playerID)
	}
	log.Warn().Str("room", a.id).Str("admin", admin.ID).Msg("room hard reset")
	co.broadcastState(a)
	return nil
}

func (co *Coordinator) handlePause(a *roomActor, c *Client, env models.Envelope) error {
	return co.setPaused(a, c, true)
}

func (co *Coordinator) handleUnpause(a *roomActor, c *Client, env models.Envelope) error {
	return co.setPaused(a, c, false)
}

func (co *Coordinator) setPaused(a *roomActor, c *Client, paused bool) error {
	admin, err := co.requireAdmin(a, c)
	if err != nil {
		return err
	}
	phase, ok := co.room(a).Phase.(models.Pausable)
	if !ok {
		return models.NewProtocolError(models.CodeInvalidPhase)
	}

	ps := phase.PauseState()
	ps.IsPaused = paused
	ps.PausedByName = ""
	if paused {
		ps.PausedByName = admin.Nickname
	}
	log.Info().Str("room", a.id).Str("admin", admin.ID).Bool("paused", paused).Msg("pause state changed")
	co.broadcastState(a)
	return nil
}

func (co *Coordinator) handleUpdateConfig(a *roomActor, c *Client, env models.Envelope) error {
	admin, err := co.requireAdmin(a, c)
	if err != nil {
		return err
	}
	var req models.UpdateConfigRequest
	if err := decode(env, &req); err != nil {
		return err
	}
	if err := req.Config.Validate(); err != nil {
		return models.NewProtocolError(models.CodeInvalidMessage)
	}
	if err := co.rooms.UpdateConfig(a.id, req.Config); err != nil {
		return err
	}
	log.Info().Str("room", a.id).Str("admin", admin.ID).Interface("config", req.Config).Msg("room config updated")
	co.broadcastState(a)
	return nil
}
