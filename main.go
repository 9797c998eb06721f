package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/nsqio/go-nsq"

	"github.com/marinoska/cv-ingest/features/upload"
	"github.com/marinoska/cv-ingest/internal/adapter/gemini"
	"github.com/marinoska/cv-ingest/internal/adapter/ledger"
	"github.com/marinoska/cv-ingest/internal/adapter/uploads"
	"github.com/marinoska/cv-ingest/internal/config"
	"github.com/marinoska/cv-ingest/internal/logger"
	"github.com/marinoska/cv-ingest/internal/middleware"
	"github.com/marinoska/cv-ingest/internal/storage"
	"github.com/marinoska/cv-ingest/internal/worker"
)

func main() {
	// Structured logger with correlation-id enrichment
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// 2. Object Store
	store, err := storage.NewMinioStore(ctx, storage.MinioOptions{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		slog.Error("failed to create object store", "error", err)
		os.Exit(1)
	}

	// 3. NSQ Producer (dead-letter publishing)
	nsqCfg := nsq.NewConfig()
	producer, err := nsq.NewProducer(cfg.NSQDHost, nsqCfg)
	if err != nil {
		slog.Error("failed to create NSQ producer", "error", err)
		os.Exit(1)
	}

	// Pre-create topics so the consumer doesn't 404 against lookupd before
	// the first publish. NSQ creates topics lazily; we hit the nsqd HTTP API
	// explicitly, fire-and-forget.
	go preCreateTopics(cfg.NSQDHost, cfg.ParseTopic, cfg.DeadLetterTopic)

	// 4. Collaborator clients
	uploadsClient := uploads.NewClient(cfg.UploadsAPIURL, cfg.UploadsAPIToken)
	ledgerClient := ledger.NewClient(cfg.LedgerAPIURL)

	extractor, err := gemini.NewExtractor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("failed to create extraction client", "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	// 5. Feature: Upload
	uploadService := upload.NewService(store, uploadsClient, cfg.MaxUploadBytes())
	uploadHandler := upload.NewHandler(uploadService, cfg.UploadAuthToken, cfg.MaxUploadBytes())

	http.Handle("POST /upload", middleware.CorrelationID(http.HandlerFunc(uploadHandler.Upload)))

	// 6. Worker: parse-job consumer
	parseConsumer := worker.NewParseConsumer(
		uploadsClient,
		extractor,
		ledgerClient,
		producer,
		cfg.DeadLetterTopic,
		cfg.MaxParseAttempts,
	)

	consumerCfg := nsq.NewConfig()
	// Retry/dead-letter policy is handled in the consumer; the transport must
	// not give up on its own.
	consumerCfg.MaxAttempts = 0
	consumerCfg.MaxInFlight = cfg.ParseConcurrency

	consumer, err := nsq.NewConsumer(cfg.ParseTopic, cfg.ParseChannel, consumerCfg)
	if err != nil {
		slog.Error("failed to create NSQ consumer", "error", err)
		os.Exit(1)
	}
	consumer.AddConcurrentHandlers(parseConsumer, cfg.ParseConcurrency)
	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		slog.Error("failed to connect to NSQLookupd", "error", err)
		os.Exit(1)
	}
	slog.Info("parse consumer connected", "topic", cfg.ParseTopic, "channel", cfg.ParseChannel)

	// 7. Start Server
	http.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	slog.Info("server starting", "port", cfg.ServerPort)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.ServerPort), nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func preCreateTopics(nsqdHost string, topics ...string) {
	host, _, err := net.SplitHostPort(nsqdHost)
	if err != nil || host == "" {
		host = nsqdHost
	}

	// Give nsqd a moment to come up.
	time.Sleep(2 * time.Second)

	for _, topic := range topics {
		url := fmt.Sprintf("http://%s:4151/topic/create?topic=%s", host, topic)
		resp, err := http.Post(url, "application/json", nil)
		if err != nil {
			slog.Warn("failed to pre-create topic", "topic", topic, "error", err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			slog.Info("topic pre-created", "topic", topic)
		}
	}
}
