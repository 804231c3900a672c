package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/enrich"
	"github.com/emilythestrangee/stackit/backend/internal/handlers"
	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/notify"
	"github.com/emilythestrangee/stackit/backend/internal/repository"
	"github.com/emilythestrangee/stackit/backend/internal/repository/memory"
)

// Store is the full persistence surface: forum reads and writes plus the ledger.
type Store interface {
	handlers.Store
	ledger.Store
}

type Server struct {
	cfg      config.Config
	db       database.Service // nil with STORAGE=memory
	store    Store
	tokens   *auth.Tokens
	notifier *notify.Async
	handler  *handlers.Handler
	logger   *slog.Logger
}

// NewServer opens storage, seeds the admin account and wires the handlers.
func NewServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	switch cfg.Storage {
	case config.StorageMemory:
		s.store = memory.New()
		logger.Warn("using in-memory storage, data is lost on restart")
	default:
		db, err := database.New(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		s.db = db
		s.store = repository.New(db.GetDB(), logger)
	}

	if err := auth.SeedAdmin(ctx, s.store, cfg.Admin, logger); err != nil {
		s.Close()
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	fanout := notify.Fanout{notify.NewLog(logger)}
	if cfg.Twilio.Enabled() {
		fanout = append(fanout, notify.NewTwilioSMS(cfg.Twilio, s.store, logger))
	}
	s.notifier = notify.NewAsync(fanout)

	l, err := ledger.New(s.store, cfg.Ledger.Options(), s.notifier, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.tokens = auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	s.handler = handlers.NewHandler(handlers.Deps{
		Store:         s.store,
		Ledger:        l,
		Tokens:        s.tokens,
		Enricher:      enrich.NewLexicon(),
		Logger:        logger,
		SecureCookies: cfg.IsProduction(),
	})
	return s, nil
}

// HTTPServer wraps the router in an http.Server listening on the configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Close waits for in-flight notification deliveries and closes the database.
func (s *Server) Close() {
	if s.notifier != nil {
		s.notifier.Wait()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("closing database", "error", err)
		}
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(s.logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.health)

	h := s.handler
	requireAuth := middleware.AuthMiddleware(s.tokens)

	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", h.Auth.Register)
		api.POST("/login", h.Auth.Login)
		api.POST("/logout", h.Auth.Logout)

		// Public reads
		api.GET("/questions", h.Question.ListQuestions)
		api.GET("/questions/:id", middleware.OptionalAuth(s.tokens), h.Question.GetQuestion)
		api.GET("/answers/:id/tally", h.Answer.Tally)
		api.GET("/answers/:id/votes", h.Answer.Votes)

		protected := api.Group("")
		protected.Use(requireAuth)
		{
			protected.GET("/me", h.Auth.GetMe)

			protected.POST("/questions", h.Question.CreateQuestion)
			protected.POST("/questions/:id/answers", h.Answer.PostAnswer)
			protected.POST("/questions/:id/accept/:aid", h.Answer.Accept)
			protected.DELETE("/questions/:id/accept/:aid", h.Answer.Unaccept)
			protected.POST("/answers/:id/vote", h.Answer.Vote)

			protected.GET("/notifications", h.Notification.List)
			protected.POST("/notifications/read", h.Notification.MarkRead)
		}

		admin := api.Group("/admin")
		admin.Use(requireAuth, middleware.AdminOnly(s.store))
		{
			admin.GET("", h.Admin.Dashboard)
			admin.DELETE("/questions/:id", h.Admin.DeleteQuestion)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "up", "storage": config.StorageMemory})
		return
	}
	stats := s.db.Health()
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
