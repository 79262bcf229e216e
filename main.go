package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"party_lobby/internal/api"
	"party_lobby/internal/middleware"
	"party_lobby/internal/repository"
	"party_lobby/internal/service"
	"party_lobby/pkg/config"
	"party_lobby/pkg/logger"
)

func main() {
	// 載入應用程式配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Pretty)

	// 房間只存在記憶體中，重啟後全部清空
	repos := repository.NewRepositories(time.Now)

	services := service.NewServices(cfg, repos, service.RealClock())
	defer services.Coordinator.Close()

	// 預設房間讓玩家不用先建立房間就能加入
	if id := cfg.Lobby.DefaultRoomID; id != "" {
		if _, err := services.Coordinator.CreateRoom(id); err != nil {
			log.Fatal().Err(err).Str("room", id).Msg("failed to create default room")
		}
	}

	if !cfg.Log.Pretty {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	api.SetupRoutes(r, services, cfg.Server)

	log.Info().Str("address", cfg.Server.Address).Strs("games", services.Launcher.Games()).Msg("party lobby listening")
	if err := r.Run(cfg.Server.Address); err != nil {
		log.Fatal().Err(err).Msg("failed to run server")
	}
}
