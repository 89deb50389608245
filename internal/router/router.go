package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mediguide/backend/internal/api"
	"github.com/mediguide/backend/internal/middleware"
)

// SetupRouter configures the application routes.
func SetupRouter(
	authHandler *api.AuthHandler,
	cabinetHandler *api.CabinetHandler,
	taskHandler *api.TaskHandler,
	aiHandler *api.AIHandler,
	validator middleware.TokenValidator,
) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	authHandler.RegisterRoutes(v1)
	cabinetHandler.RegisterPublicRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(validator))
	{
		cabinetHandler.RegisterRoutes(protected)
		taskHandler.RegisterRoutes(protected)
		aiHandler.RegisterRoutes(protected)
	}

	return router
}
