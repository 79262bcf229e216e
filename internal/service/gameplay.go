package service

import (
	"errors"

	"github.com/rs/zerolog/log"

	"party_lobby/internal/game"
	"party_lobby/internal/models"
)

// launch 建立遊戲並進入 playing 階段
func (co *Coordinator) launch(a *roomActor, gameID string) error {
	room := co.room(a)
	instance, err := co.launcher.Launch(gameID, room.Players)
	if err != nil {
		return err
	}
	phase := &models.PlayingPhase{GameID: gameID, GameState: instance.State()}
	if err := co.rooms.UpdateRoomState(room.ID, phase); err != nil {
		return err
	}
	a.instance = instance
	a.suspendedVotes = nil
	log.Info().Str("room", room.ID).Str("game", gameID).Int("players", len(room.Players)).Msg("game started")

	co.broadcast(a, models.MsgGameStart, models.GameStartPayload{GameID: gameID})
	co.broadcastState(a)
	return nil
}

func (co *Coordinator) handleGameAction(a *roomActor, c *Client, env models.Envelope) error {
	var req models.GameActionRequest
	if err := decode(env, &req); err != nil {
		return err
	}
	p, err := co.actingPlayer(a, c)
	if err != nil {
		return err
	}
	if req.PlayerID != "" && req.PlayerID != p.ID {
		return models.NewProtocolError(models.CodeUnauthorized)
	}

	phase, ok := co.room(a).Phase.(*models.PlayingPhase)
	if !ok || a.instance == nil {
		return models.NewProtocolError(models.CodeInvalidPhase)
	}
	if phase.Pause.IsPaused {
		return models.NewProtocolError(models.CodeGamePaused)
	}

	outcome, err := a.instance.HandleAction(p.ID, req.Type, req.Payload)
	if err != nil {
		return gameError(err)
	}
	phase.GameState = a.instance.State()
	if outcome.Finished {
		co.finishGame(a, outcome)
	}
	co.broadcastState(a)
	return nil
}

func gameError(err error) error {
	switch {
	case errors.Is(err, game.ErrNotParticipant):
		return models.NewProtocolError(models.CodeNotInRoom)
	case errors.Is(err, game.ErrFinished):
		return models.NewProtocolError(models.CodeInvalidPhase)
	case errors.Is(err, game.ErrUnknownAction), errors.Is(err, game.ErrInvalidAction):
		return models.NewProtocolError(models.CodeInvalidMessage)
	}
	return err
}

// finishGame 把這局的分數加到玩家身上並進入結算階段
func (co *Coordinator) finishGame(a *roomActor, outcome game.Outcome) {
	room := co.room(a)
	gameID := ""
	if ph, ok := room.Phase.(*models.PlayingPhase); ok {
		gameID = ph.GameID
	}

	scores := make([]models.PlayerScore, 0, len(room.Players))
	for _, p := range room.Players {
		earned, ok := outcome.Scores[p.ID]
		if !ok {
			continue
		}
		total := p.Score + earned
		if _, err := co.rooms.UpdatePlayer(room.ID, p.ID, models.PlayerPatch{Score: &total}); err != nil {
			log.Error().Err(err).Str("room", room.ID).Str("player", p.ID).Msg("update score failed")
			continue
		}
		scores = append(scores, models.PlayerScore{PlayerID: p.ID, Score: earned})
	}

	winners := append([]string{}, outcome.Winners...)
	results := &models.ResultsPhase{GameID: gameID, Winners: winners, Scores: scores}
	if err := co.rooms.UpdateRoomState(room.ID, results); err != nil {
		log.Error().Err(err).Str("room", room.ID).Msg("enter results failed")
		return
	}
	a.instance = nil
	log.Info().Str("room", room.ID).Str("game", gameID).Strs("winners", winners).Msg("game finished")

	co.broadcast(a, models.MsgGameEnd, models.GameEndPayload{Winners: winners, Scores: scores})
}

func (co *Coordinator) handleNextRound(a *roomActor, c *Client, env models.Envelope) error {
	p, err := co.actingPlayer(a, c)
	if err != nil {
		return err
	}
	room := co.room(a)
	if !p.IsHost && !p.IsAdmin && hostOnline(room) {
		return models.NewProtocolError(models.CodeUnauthorized)
	}
	if room.Phase.Name() != models.PhaseResults {
		return models.NewProtocolError(models.CodeInvalidPhase)
	}
	if err := co.enterLobby(a); err != nil {
		return err
	}
	co.broadcastState(a)
	return nil
}

// hostOnline 回報房主是否還在房間中且在線，房主不在時任何玩家都可以開始下一輪
func hostOnline(room *models.Room) bool {
	for _, p := range room.Players {
		if p.IsHost && p.IsConnected {
			return true
		}
	}
	return false
}
