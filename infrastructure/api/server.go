// Package api is the development chat server: the REST collaborator and the
// websocket stream the chat core talks to.
package api

import (
	"channel-chat/auth"
	"channel-chat/errors"
	"channel-chat/observability"
	"channel-chat/runtime"
	"channel-chat/services"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Config struct {
	RatePerSecond   float64
	RateBurst       int
	AllowTokenIssue bool
	SendBufferSize  int
	WriteTimeout    time.Duration
	PingInterval    time.Duration
}

type Server struct {
	log     *slog.Logger
	service services.IChatService
	issuer  auth.TokenIssuer
	hub     *Hub
	metrics *observability.Metrics
	limiter *limiterPool
	config  Config
}

func NewServer(log *slog.Logger, service services.IChatService, issuer auth.TokenIssuer,
	orchestrator *runtime.Orchestrator, metrics *observability.Metrics, config Config) *Server {
	return &Server{
		log:     log,
		service: service,
		issuer:  issuer,
		hub:     NewHub(log, service, orchestrator, metrics, config),
		metrics: metrics,
		limiter: newLimiterPool(config.RatePerSecond, config.RateBurst),
		config:  config,
	}
}

func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	if s.config.AllowTokenIssue {
		engine.POST("/api/tokens", s.handleIssueToken)
	}

	api := engine.Group("/api", auth.Middleware(s.issuer))
	api.GET("/channels", s.handleListChannels)
	api.POST("/channels", s.handleCreateChannel)
	api.GET("/channels/:id", s.handleGetChannel)
	api.GET("/channels/:id/messages", s.handleMessages)
	api.POST("/channels/:id/messages", s.rateLimit(), s.handlePostMessage)
	api.POST("/channels/:id/join", s.handleJoin)
	api.POST("/channels/:id/leave", s.handleLeave)
	api.DELETE("/messages/:id", s.rateLimit(), s.handleDeleteMessage)
	api.POST("/messages/:id/reactions", s.rateLimit(), s.handleReact)
	api.GET("/stream", s.hub.Handle)
	return engine
}

// requestLogger logs every request at debug level and counts it per route.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		s.log.Debug("HTTP request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// rateLimit throttles writes per identity, it runs after the auth middleware.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := auth.IdentityFrom(c)
		if !s.limiter.Allow(string(identity.ID)) {
			s.metrics.RateLimited.Inc()
			s.fail(c, errors.ErrRateLimited)
			return
		}
		c.Next()
	}
}

// bind decodes and validates a JSON body.
func bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidPayload, err)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidPayload, err)
	}
	return nil
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errors.ErrInvalidPayload, name, raw)
	}
	return value, nil
}
