package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	chatH *ChatHandler,
	settingsH *SettingsHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/state", chatH.GetState)
	r.GET("/events", chatH.Events)
	r.POST("/messages", chatH.PostMessage)

	chats := r.Group("/chats")
	chats.GET("", chatH.ListChats)
	chats.POST("/new", chatH.NewChat)
	chats.POST("/:id/select", chatH.SelectChat)
	chats.DELETE("/:id", chatH.DeleteChat)

	models := r.Group("/models")
	models.GET("", settingsH.ListModels)
	models.PUT("/selected", chatH.SelectModel)
	models.POST("/custom", settingsH.AddCustomModel)
	models.DELETE("/custom/:id", settingsH.DeleteCustomModel)

	settings := r.Group("/settings")
	settings.GET("/api-keys", settingsH.GetAPIKeys)
	settings.PUT("/api-keys", settingsH.PutAPIKeys)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
