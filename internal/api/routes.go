package api

import (
	"exachat_go_backend/internal/auth"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, chatHandler *ChatHandler) {
	api := r.Group("/api")
	{
		api.POST("/chat", auth.AuthMiddleware(), chatHandler.PostChat)
		api.GET("/chat", auth.AuthMiddleware(), chatHandler.GetChat)
		api.DELETE("/chat", auth.AuthMiddleware(), chatHandler.DeleteChat)
	}
}
