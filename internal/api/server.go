// Package api exposes the HTTP surface: genotype upload, analysis status,
// category browsing, and the progress websocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/genome-trait-server/internal/config"
	"github.com/genome-trait-server/internal/middleware"
	"github.com/genome-trait-server/internal/queue"
	"github.com/genome-trait-server/internal/results"
	"github.com/genome-trait-server/pkg/cache"
)

// Enqueuer hands an analysis job to whichever execution mode is deployed:
// the Redis queue or the lite in-process runner.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// Options wires the server's collaborators. Cache and Progress are
// optional; routes depending on them degrade gracefully when absent.
type Options struct {
	Store    results.Store
	Jobs     Enqueuer
	Progress queue.ProgressBus
	Cache    *cache.Client
	Upload   config.UploadConfig
	Logger   *logrus.Logger
	Debug    bool
}

// Server is the HTTP server for the annotation service.
type Server struct {
	store    results.Store
	jobs     Enqueuer
	progress queue.ProgressBus
	cache    *cache.Client
	upload   config.UploadConfig
	log      *logrus.Logger
	router   *gin.Engine
	server   *http.Server
}

// NewServer creates a configured server with all routes registered.
func NewServer(opts Options) *Server {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestID())

	if opts.Upload.MaxFileSizeMB <= 0 {
		opts.Upload.MaxFileSizeMB = 50
	}
	router.MaxMultipartMemory = int64(opts.Upload.MaxFileSizeMB) << 20

	s := &Server{
		store:    opts.Store,
		jobs:     opts.Jobs,
		progress: opts.Progress,
		cache:    opts.Cache,
		upload:   opts.Upload,
		log:      opts.Logger,
		router:   router,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		upload := v1.Group("")
		if s.upload.RequestsPerSecond > 0 {
			upload.Use(middleware.RateLimit(s.upload.RequestsPerSecond, s.upload.Burst))
		}
		upload.POST("/analyses", s.handleCreateAnalysis)

		v1.GET("/analyses/:id", s.handleGetAnalysis)
		v1.GET("/analyses/:id/categories", s.handleListCategories)
		v1.GET("/analyses/:id/categories/:category", s.handleGetCategoryPage)
	}

	if s.progress != nil {
		s.router.GET("/ws/analyses/:id", s.handleProgressSocket)
	}
}

// Router exposes the handler for tests and for embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, serverCfg config.ServerConfig) error {
	addr := fmt.Sprintf("%s:%d", serverCfg.Host, serverCfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  serverCfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving HTTP: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.log.Info("HTTP server shutting down")
	return s.server.Shutdown(shutdownCtx)
}
