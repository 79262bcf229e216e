package service

import (
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"party_lobby/internal/game"
	"party_lobby/internal/models"
	"party_lobby/internal/repository"
	"party_lobby/internal/utils"
	"party_lobby/pkg/config"
)

type Services struct {
	Coordinator *Coordinator
	Hub         *Hub
	Tokens      *utils.TokenIssuer
	Launcher    *Launcher

	rateLimit config.RateLimitConfig
}

func NewServices(cfg *config.Config, repos *repository.Repositories, clock Clock) *Services {
	hub := NewHub()
	tokens := utils.NewTokenIssuer(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.BcryptCost)
	launcher := NewLauncher(game.DefaultRegistry())

	coordinator := NewCoordinator(CoordinatorConfig{
		DefaultRoom: models.RoomConfig{
			CountdownSeconds: cfg.Lobby.CountdownSeconds,
			MaxPlayers:       cfg.Lobby.MaxPlayers,
		},
		HeartbeatInterval: cfg.Heartbeat.Interval,
		DisconnectAfter:   cfg.Heartbeat.DisconnectAfter,
		RemoveAfter:       cfg.Heartbeat.RemoveAfter,
	}, repos.Room, launcher, tokens, hub, clock)

	return &Services{
		Coordinator: coordinator,
		Hub:         hub,
		Tokens:      tokens,
		Launcher:    launcher,
		rateLimit:   cfg.RateLimit,
	}
}

// NewClient 為一個已升級的連接建立客戶端，並套用每個連接的限流
func (s *Services) NewClient(conn *websocket.Conn, remoteAddr string) *Client {
	var limiter *rate.Limiter
	if s.rateLimit.PerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.rateLimit.PerSecond), s.rateLimit.Burst)
	}
	return NewClient(conn, remoteAddr, limiter)
}
