package handler

import (
	"net/http"

	"github.com/encore-live/server/internal/limiter"
	"github.com/encore-live/server/internal/middleware"
	"github.com/encore-live/server/internal/ws"
	"github.com/encore-live/server/pkg/logger"
	"github.com/encore-live/server/pkg/token"

	"github.com/gin-gonic/gin"
)

// RouterConfig wires the HTTP surface together.
type RouterConfig struct {
	Requests *RequestHandler
	Queue    *QueueHandler
	SetLists *SetListHandler
	Songs    *SongHandler

	Tokens      *token.Manager
	VoteLimiter *limiter.VoteLimiter
	Hub         *ws.Hub
	Log         logger.Logger
}

// NewRouter builds the gin engine with all routes and middleware attached.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(cfg.Log))
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logging(cfg.Log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.Auth(middleware.AuthConfig{Manager: cfg.Tokens, Required: true}, cfg.Log)

	api := router.Group("/api/v1")
	api.Use(auth)
	{
		api.POST("/requests", cfg.Requests.Submit)
		api.GET("/requests/:id", cfg.Requests.Get)
		api.GET("/requests/:id/vote", cfg.Requests.HasVoted)
		if cfg.VoteLimiter != nil {
			api.POST("/requests/:id/vote", middleware.VoteRateLimit(cfg.VoteLimiter, cfg.Log), cfg.Requests.Vote)
		} else {
			api.POST("/requests/:id/vote", cfg.Requests.Vote)
		}

		api.GET("/queue", cfg.Queue.List)
		api.POST("/queue/:id/lock", cfg.Queue.Lock)
		api.POST("/queue/:id/played", cfg.Queue.MarkPlayed)
		api.POST("/queue/reset", cfg.Queue.Reset)

		api.GET("/songs", cfg.Songs.List)
		api.GET("/songs/:id", cfg.Songs.Get)
		api.POST("/songs", cfg.Songs.Create)

		api.GET("/setlists", cfg.SetLists.List)
		api.GET("/setlists/active", cfg.SetLists.GetActive)
		api.GET("/setlists/:id", cfg.SetLists.Get)
		api.POST("/setlists", cfg.SetLists.Create)
		api.PUT("/setlists/:id", cfg.SetLists.Update)
		api.DELETE("/setlists/:id", cfg.SetLists.Delete)
		api.POST("/setlists/:id/activate", cfg.SetLists.SetActive)
	}

	if cfg.Hub != nil {
		// The socket is read-only state push, so tokens are optional here;
		// an anonymous session still mirrors the queue.
		router.GET("/ws", middleware.Auth(middleware.AuthConfig{Manager: cfg.Tokens}, cfg.Log), ws.Handler(cfg.Hub, cfg.Log))
	}

	return router
}
