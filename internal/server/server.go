package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/procurehub/backend/internal/export"
	"github.com/procurehub/backend/internal/services/offers"
	"github.com/procurehub/backend/internal/services/requests"
)

// Config holds the HTTP surface knobs.
type Config struct {
	Addr           string
	UploadDir      string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Deps are the services the handlers delegate to.
type Deps struct {
	Requests *requests.Service
	Offers   *offers.Service
	Export   *export.Service
}

// Server is the HTTP API server.
type Server struct {
	cfg    Config
	deps   Deps
	engine *gin.Engine
	http   *http.Server
	logger *slog.Logger
}

func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		// extraction holds the request open while the model works
		cfg.WriteTimeout = 120 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog(logger))

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		engine: engine,
		logger: logger,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")

	api.POST("/requests/upload-pdf", s.uploadPDF)
	api.GET("/requests/export", s.exportRequests)

	api.POST("/requests", s.createRequest)
	api.GET("/requests", s.listRequests)
	api.GET("/requests/:id", s.getRequest)
	api.PATCH("/requests/:id", s.updateRequest)
	api.DELETE("/requests/:id", s.deleteRequest)
	api.PUT("/requests/:id/order-lines", s.replaceOrderLines)
	api.PATCH("/requests/:id/status", s.updateStatus)
	api.GET("/requests/:id/history", s.requestHistory)

	api.GET("/commodity-groups", s.listCommodityGroups)
	api.GET("/commodity-groups/search", s.searchCommodityGroups)
	api.GET("/commodity-groups/:id", s.getCommodityGroup)
	api.POST("/commodity-groups/classify-text", s.classifyText)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http.server.listen", "addr", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http.server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
