package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"groupride/internal/config"
	"groupride/internal/handler"
	"groupride/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler        *handler.RideHandler
	ParticipantHandler *handler.ParticipantHandler
	CommentHandler     *handler.CommentHandler
	UserHandler        *handler.UserHandler
	RedisClient        *redis.Client
	NewRelicApp        *newrelic.Application
	Logger             *logrus.Logger
	Config             *config.Config
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(cors.New(corsConfig(deps.Config.Server.AllowedOrigins)))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.Config.RateLimit.Enabled {
		limit, err := middleware.RateLimiter(deps.Config.RateLimit.Rate)
		if err != nil {
			return nil, err
		}
		router.Use(limit)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(deps.Config.Auth.JWTSecret, deps.Config.Auth.Issuer))
	v1.Use(middleware.Idempotency(deps.RedisClient, deps.Logger))
	{
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("", deps.RideHandler.ListRides)
			rides.GET("/nearby", deps.RideHandler.NearbyRides)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.PUT("/:id", deps.RideHandler.UpdateRide)
			rides.DELETE("/:id", deps.RideHandler.DeleteRide)

			rides.POST("/:id/join", deps.ParticipantHandler.Join)
			rides.DELETE("/:id/join", deps.ParticipantHandler.Leave)
			rides.GET("/:id/participants", deps.ParticipantHandler.List)

			rides.GET("/:id/comments", deps.CommentHandler.List)
			rides.POST("/:id/comments", deps.CommentHandler.Create)
		}

		v1.DELETE("/comments/:id", deps.CommentHandler.Delete)

		users := v1.Group("/users")
		{
			users.GET("/me", deps.UserHandler.GetMe)
			users.PUT("/me", deps.UserHandler.UpdateMe)
			users.GET("/:id", deps.UserHandler.GetUser)
		}
	}

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Length", "Idempotent-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
