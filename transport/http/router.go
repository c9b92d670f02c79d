package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter sets up the Gin router
func SetupRouter(verifier Verifier, health Pinger, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger.Named("http")))

	handlers := NewVerificationHandlers(verifier, health, logger.Named("http"))

	router.GET("/healthz", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(RequireJSON())
	{
		v1.POST("/generate_hash", handlers.GenerateHash)
		v1.POST("/validate_user", handlers.ValidateUser)
		v1.POST("/check_proof", handlers.CheckProof)
	}

	return router
}
