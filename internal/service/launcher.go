package service

import (
	"fmt"

	"party_lobby/internal/game"
	"party_lobby/internal/models"
)

// Launcher 在進入 playing 階段時建立選中的遊戲
type Launcher struct {
	registry *game.Registry
}

func NewLauncher(registry *game.Registry) *Launcher {
	return &Launcher{registry: registry}
}

// HasGame 回報遊戲 ID 是否已註冊
func (l *Launcher) HasGame(gameID string) bool {
	_, ok := l.registry.Get(gameID)
	return ok
}

// SkipsCountdown 回報遊戲是否走快速通道
func (l *Launcher) SkipsCountdown(gameID string) bool {
	m, ok := l.registry.Get(gameID)
	return ok && m.SkipsCountdown()
}

func (l *Launcher) Games() []string {
	return l.registry.IDs()
}

// Launch 以房間目前的玩家建立一局遊戲
func (l *Launcher) Launch(gameID string, players []*models.Player) (game.Instance, error) {
	m, ok := l.registry.Get(gameID)
	if !ok {
		return nil, fmt.Errorf("launch %s: %w", gameID, game.ErrUnknownGame)
	}
	participants := make([]game.Participant, 0, len(players))
	for _, p := range players {
		participants = append(participants, participant(p))
	}
	return m.New(participants), nil
}

func participant(p *models.Player) game.Participant {
	return game.Participant{ID: p.ID, Nickname: p.Nickname}
}
