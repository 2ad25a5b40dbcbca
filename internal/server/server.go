package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qaydhq/qayd/internal/async"
	"github.com/qaydhq/qayd/internal/chat"
	"github.com/qaydhq/qayd/internal/common"
	"github.com/qaydhq/qayd/internal/export"
	"github.com/qaydhq/qayd/internal/pipeline"
	"github.com/qaydhq/qayd/internal/repository"
)

// Server wires the HTTP surface over the pipeline, store, exporter and
// chat proxy.
type Server struct {
	cfg    common.ServerConfig
	repo   repository.ReceiptRepository
	proc   *pipeline.Processor
	queue  *async.UploadQueue
	export *export.Service
	chat   *chat.Client
	logger *zap.Logger

	http *http.Server
}

func New(cfg common.ServerConfig, repo repository.ReceiptRepository, proc *pipeline.Processor,
	queue *async.UploadQueue, exporter *export.Service, chatClient *chat.Client, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		repo:   repo,
		proc:   proc,
		queue:  queue,
		export: exporter,
		chat:   chatClient,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	corsCfg := cors.DefaultConfig()
	if len(s.cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = s.cfg.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api", authRequired(s.cfg.JWTSecret))
	{
		api.POST("/receipts", s.handleUpload)
		api.POST("/receipts/batch", s.handleBatchUpload)
		api.GET("/receipts", s.handleList)
		api.GET("/receipts/export", s.handleExport)
		api.GET("/receipts/:id", s.handleGet)
		api.PUT("/receipts/:id", s.handleReplace)
		api.PATCH("/receipts/:id", s.handlePatch)
		api.DELETE("/receipts/:id", s.handleDelete)
		api.PUT("/receipts/:id/warranty", s.handleSetWarranty)

		api.GET("/health", s.handleChatHealth)
		api.POST("/connect", s.handleChatConnect)
		api.POST("/chat", s.handleChatMessage)
		api.POST("/reset", s.handleChatReset)
	}
	return r
}

// Run blocks until the listener fails or is shut down.
func (s *Server) Run() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then the upload queue.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.queue.Shutdown(ctx)
	return err
}
