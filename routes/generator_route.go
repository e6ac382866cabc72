package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Generator interface {
	Start() bool
	Stop() bool
	Running() bool
}

func SetupGeneratorRoutes(r *gin.Engine, generator Generator) {
	r.POST("/api/start-random-messages", func(c *gin.Context) {
		message := "Random message sending already enabled"
		if generator.Start() {
			message = "Random message sending enabled"
		}
		c.JSON(http.StatusOK, gin.H{"message": message, "enabled": generator.Running()})
	})

	r.POST("/api/stop-random-messages", func(c *gin.Context) {
		message := "Random message sending already disabled"
		if generator.Stop() {
			message = "Random message sending disabled"
		}
		c.JSON(http.StatusOK, gin.H{"message": message, "enabled": generator.Running()})
	})
}
