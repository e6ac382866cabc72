package routes

import (
	"log/slog"
	"time"

	"chat_back_end_go/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type Dependencies struct {
	Chats        ChatService
	Replies      ReplyScheduler
	Generator    Generator
	Hub          *services.Hub
	AllowOrigins []string
	Log          *slog.Logger
}

func NewRouter(d Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(d.Log))
	r.Use(cors.New(corsConfig(d.AllowOrigins)))

	r.GET("/ws", services.ServeWs(d.Hub, d.Log))

	SetupChatRoutes(r, NewChatHandler(d.Chats, d.Replies, d.Log))
	SetupGeneratorRoutes(r, d.Generator)

	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	// Browsers refuse credentials on a wildcard origin.
	if len(origins) == 0 || lo.Contains(origins, "*") {
		config.AllowAllOrigins = true
		return config
	}
	config.AllowOrigins = origins
	config.AllowCredentials = true
	return config
}
