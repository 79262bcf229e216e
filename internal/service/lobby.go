package service

import (
	"errors"

	"github.com/rs/zerolog/log"

	"party_lobby/internal/models"
	"party_lobby/internal/voting"
)

func (co *Coordinator) handleVoteGame(a *roomActor, c *Client, env models.Envelope) error {
	var req models.VoteGameRequest
	if err := decode(env, &req); err != nil {
		return err
	}
	p, lobby, err := co.lobbyPlayer(a, c)
	if err != nil {
		return err
	}
	if !co.launcher.HasGame(req.GameID) {
		return models.NewProtocolError(models.CodeInvalidMessage)
	}
	if err := lobby.Voting.RecordVote(p.ID, req.GameID); err != nil {
		return votingError(err)
	}
	return co.votingChanged(a, lobby)
}

func (co *Coordinator) handleReadyToggle(a *roomActor, c *Client, env models.Envelope) error {
	var req models.ReadyToggleRequest
	if err := decode(env, &req); err != nil {
		return err
	}
	p, lobby, err := co.lobbyPlayer(a, c)
	if err != nil {
		return err
	}
	if err := lobby.Voting.RecordReady(p.ID, req.IsReady); err != nil {
		return votingError(err)
	}
	return co.votingChanged(a, lobby)
}

func (co *Coordinator) lobbyPlayer(a *roomActor, c *Client) (*models.Player, *models.LobbyPhase, error) {
	p, err := co.actingPlayer(a, c)
	if err != nil {
		return nil, nil, err
	}
	lobby := co.room(a).Lobby()
	if lobby == nil {
		return nil, nil, models.NewProtocolError(models.CodeGameInProgress)
	}
	return p, lobby, nil
}

func votingError(err error) error {
	switch {
	case errors.Is(err, voting.ErrUnknownPlayer):
		return models.NewProtocolError(models.CodeNotInRoom)
	case errors.Is(err, voting.ErrVoteRequired):
		return models.NewProtocolError(models.CodeInvalidMessage)
	}
	return err
}

// votingChanged 廣播投票結果，全員準備時開始遊戲
func (co *Coordinator) votingChanged(a *roomActor, lobby *models.LobbyPhase) error {
	state := lobby.Voting.State()
	co.broadcast(a, models.MsgVotingUpdate, models.VotingUpdatePayload{VotingState: state})
	co.broadcastState(a)

	if !state.AllReady {
		return nil
	}
	if co.launcher.SkipsCountdown(state.SelectedGame) {
		return co.launch(a, state.SelectedGame)
	}
	return co.startCountdown(a, lobby, state.SelectedGame)
}

func (co *Coordinator) startCountdown(a *roomActor, lobby *models.LobbyPhase, gameID string) error {
	room := co.room(a)
	seconds := room.Config.CountdownSeconds
	phase := &models.CountdownPhase{SelectedGame: gameID, SecondsRemaining: seconds}
	if err := co.rooms.UpdateRoomState(room.ID, phase); err != nil {
		return err
	}
	a.suspendedVotes = lobby.Voting
	log.Info().Str("room", room.ID).Str("game", gameID).Int("seconds", seconds).Msg("countdown started")

	co.broadcast(a, models.MsgCountdown, models.CountdownPayload{Countdown: seconds, SelectedGame: gameID})
	co.broadcastState(a)
	co.scheduleTick(a)
	return nil
}

// scheduleTick 排程下一次倒數。取消倒數會讓已排入佇列的那一次失效，
// 取消和最後一次倒數同時到期時，以先進入佇列的為準。
func (co *Coordinator) scheduleTick(a *roomActor) {
	gen := a.countdownGen
	a.countdownTimer = co.clock.AfterFunc(co.cfg.CountdownTick, func() {
		a.post(func() {
			if gen != a.countdownGen {
				return
			}
			co.tick(a)
		})
	})
}

func (co *Coordinator) tick(a *roomActor) {
	room := co.room(a)
	phase, ok := room.Phase.(*models.CountdownPhase)
	if !ok {
		return
	}
	if phase.Pause.IsPaused {
		co.scheduleTick(a)
		return
	}

	phase.SecondsRemaining--
	if phase.SecondsRemaining > 0 {
		co.broadcast(a, models.MsgCountdown, models.CountdownPayload{
			Countdown:    phase.SecondsRemaining,
			SelectedGame: phase.SelectedGame,
		})
		co.broadcastState(a)
		co.scheduleTick(a)
		return
	}

	a.cancelCountdown()
	if err := co.launch(a, phase.SelectedGame); err != nil {
		log.Error().Err(err).Str("room", room.ID).Str("game", phase.SelectedGame).Msg("launch after countdown failed")
	}
}

// abortCountdown 取消倒數並回到大廳，保留投票但清除準備狀態
func (co *Coordinator) abortCountdown(a *roomActor) {
	a.cancelCountdown()

	room := co.room(a)
	votes := a.suspendedVotes
	a.suspendedVotes = nil
	if votes == nil {
		votes = voting.NewAggregator()
	}
	for _, p := range room.Players {
		if p.IsConnected {
			votes.AddPlayer(p.ID)
		} else {
			votes.RemovePlayer(p.ID)
		}
	}
	votes.ResetReadiness()

	if err := co.rooms.UpdateRoomState(room.ID, &models.LobbyPhase{Voting: votes}); err != nil {
		log.Error().Err(err).Str("room", room.ID).Msg("cancel countdown failed")
		return
	}
	log.Info().Str("room", room.ID).Msg("countdown cancelled")
	co.broadcast(a, models.MsgCountdownCancelled, nil)
}

// enterLobby 以目前上線的玩家開始新一輪投票
func (co *Coordinator) enterLobby(a *roomActor) error {
	room := co.room(a)
	lobby := models.NewLobbyPhase()
	for _, p := range room.Players {
		if p.IsConnected {
			lobby.Voting.AddPlayer(p.ID)
		}
	}
	if err := co.rooms.UpdateRoomState(room.ID, lobby); err != nil {
		return err
	}
	a.suspendedVotes = nil
	return nil
}

// cancelCountdown 停止倒數計時器，已排入佇列的倒數會被忽略
func (a *roomActor) cancelCountdown() {
	a.countdownGen++
	if a.countdownTimer != nil {
		a.countdownTimer.Stop()
		a.countdownTimer = nil
	}
}
