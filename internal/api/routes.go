package api

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"party_lobby/internal/api/handlers"
	"party_lobby/internal/middleware"
	"party_lobby/internal/service"
	"party_lobby/pkg/config"
)

func SetupRoutes(r *gin.Engine, services *service.Services, cfg config.ServerConfig) {
	roomHandler := handlers.NewRoomHandler(services.Coordinator)
	sessionHandler := handlers.NewSessionHandler(services.Coordinator)
	wsHandler := handlers.NewWebSocketHandler(services, cfg.AllowedOrigins)

	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
				"rooms":  len(services.Coordinator.Rooms()),
				"games":  services.Launcher.Games(),
			})
		})

		rooms := api.Group("/rooms")
		{
			rooms.GET("", roomHandler.ListRooms)
			rooms.POST("", roomHandler.CreateRoom)
			rooms.GET("/:id", roomHandler.GetRoom)
			rooms.GET("/:id/ws", wsHandler.HandleWebSocket)
		}

		api.GET("/session", middleware.SessionMiddleware(services.Tokens), sessionHandler.CheckSession)
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
