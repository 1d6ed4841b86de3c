package routes

import (
	"net/http"
	"time"

	"bookio/handlers"
	"bookio/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes registers the conversational endpoints.
func RegisterChatRoutes(r *gin.Engine, chat *handlers.ChatHandler) {
	api := r.Group("/api/chat")
	{
		api.POST("", chat.HandleChat)
		api.POST("/reset", chat.HandleReset)
		api.POST("/cancel", chat.HandleCancel)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// CORSMiddleware returns the CORS policy for browser-based chat frontends.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	})
}

// RegisterRoutes wires every route group onto the router.
func RegisterRoutes(r *gin.Engine, chat *handlers.ChatHandler) {
	RegisterHealthRoute(r)
	RegisterChatRoutes(r, chat)
}
