package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/qaydhq/qayd/internal/async"
	"github.com/qaydhq/qayd/internal/blob"
	"github.com/qaydhq/qayd/internal/chat"
	"github.com/qaydhq/qayd/internal/common"
	"github.com/qaydhq/qayd/internal/export"
	"github.com/qaydhq/qayd/internal/ocr"
	"github.com/qaydhq/qayd/internal/pipeline"
	"github.com/qaydhq/qayd/internal/repository"
	"github.com/qaydhq/qayd/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	analyzer := ocr.NewClient(ocr.Config{
		Endpoint:     cfg.Azure.Endpoint,
		APIKey:       cfg.Azure.APIKey,
		PollInterval: cfg.Azure.PollInterval,
		MaxPolls:     cfg.Azure.MaxPolls,
		Timeout:      cfg.Azure.Timeout,
	}, logger.Named("ocr"))

	proc := pipeline.NewProcessor(analyzer, blobs, repo, logger.Named("pipeline"))
	queue := async.NewUploadQueue(proc, logger.Named("queue"),
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Ingest.JobTimeout),
	)
	exporter := export.NewService(logger.Named("export"))
	chatClient := chat.NewClient(chat.Config{
		BaseURL: cfg.Chat.BaseURL,
		Timeout: cfg.Chat.Timeout,
	}, logger.Named("chat"))

	srv := server.New(cfg.Server, repo, proc, queue, exporter, chatClient, logger.Named("http"))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRepository(ctx context.Context, cfg *common.Config, logger *zap.Logger) (repository.ReceiptRepository, error) {
	switch cfg.Store.Backend {
	case "firestore":
		return repository.NewFirestoreStore(ctx, cfg.Store.ProjectID, cfg.Store.Collection, logger.Named("firestore"))
	case "bolt":
		return repository.NewBoltStore(cfg.Store.BoltPath, logger.Named("bolt"))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newBlobStore(ctx context.Context, cfg *common.Config, logger *zap.Logger) (blob.Store, error) {
	switch cfg.Blob.Backend {
	case "gcs":
		return blob.NewGCSStore(ctx, cfg.Blob.Bucket, logger.Named("gcs"))
	case "fs":
		return blob.NewFSStore(cfg.Blob.LocalDir, cfg.Blob.PublicURL, logger.Named("fs"))
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Blob.Backend)
	}
}
