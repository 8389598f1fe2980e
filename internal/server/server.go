package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkcast/inkcast/internal/config"
	"github.com/inkcast/inkcast/internal/service"
	"github.com/inkcast/inkcast/internal/service/store"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Store           *store.Store
	OAuthService    *service.OAuthService
	PublishService  *service.PublishService
	GenerateService *service.GenerateService
	Scheduler       *service.Scheduler
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	connStore := store.NewStore(db, logger)
	oauthService := service.NewOAuthService(&cfg.OAuth, cfg.Server.BaseURL, connStore, logger)
	publishService := service.NewPublishService(db, connStore, logger)
	generateService := service.NewGenerateService(&cfg.Generator, db, logger)
	scheduler := service.NewScheduler(&cfg.Scheduler, db, generateService, publishService, logger)

	// Create router
	router := gin.New()

	// Create server
	srv := &Server{
		Config:          cfg,
		DB:              db,
		Router:          router,
		Logger:          logger,
		Store:           connStore,
		OAuthService:    oauthService,
		PublishService:  publishService,
		GenerateService: generateService,
		Scheduler:       scheduler,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		connections := api.Group("/connections")
		{
			connections.GET("", s.handleListConnections)
			connections.POST("", s.handleConnect)
			connections.DELETE("", s.handleDisconnect)
		}

		oauth := api.Group("/oauth")
		{
			oauth.POST("/:platform/start", s.handleOAuthStart)
			// Public: providers redirect the browser here.
			oauth.GET("/:platform/callback", s.handleOAuthCallback)
		}

		articles := api.Group("/articles")
		{
			articles.POST("/generate", s.handleGenerateArticle)
			articles.POST("/:id/publish", s.handlePublishArticle)
			articles.GET("/:id/publish-history", s.handlePublishHistory)
		}

		api.POST("/scheduler/tick", s.handleSchedulerTick)
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start scheduler
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop scheduler first
	s.Scheduler.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
