package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Giopap1991/ai-agents/internal/agent"
	"github.com/Giopap1991/ai-agents/internal/api"
	"github.com/Giopap1991/ai-agents/internal/auth"
	"github.com/Giopap1991/ai-agents/internal/campaign"
	"github.com/Giopap1991/ai-agents/internal/classifier"
	"github.com/Giopap1991/ai-agents/internal/config"
	"github.com/Giopap1991/ai-agents/internal/db"
	"github.com/Giopap1991/ai-agents/internal/email"
	"github.com/Giopap1991/ai-agents/internal/events"
	"github.com/Giopap1991/ai-agents/internal/llm"
	"github.com/Giopap1991/ai-agents/internal/logging"
	"github.com/Giopap1991/ai-agents/internal/metrics"
	"github.com/Giopap1991/ai-agents/internal/pdf"
	"github.com/Giopap1991/ai-agents/internal/presentation"
	"github.com/Giopap1991/ai-agents/internal/timeline"
	"github.com/Giopap1991/ai-agents/internal/worker"
)

const (
	llmTemperature = 0.7
	planMaxTokens  = 500
)

func runServe(cmd *cobra.Command, _ []string) error {

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ------------------------------------------------
	// Database
	// ------------------------------------------------
	store, err := db.Connect(ctx, cfg.DatabaseURL, cfg.RetryAttempts, logger)
	if err != nil {
		logger.Error("database connection failed", zap.Error(err))
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Error("schema migration failed", zap.Error(err))
		return err
	}

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
			cancel()
		}
	}()

	// ------------------------------------------------
	// Events
	// ------------------------------------------------
	var publisher events.Publisher = events.Nop{}
	if cfg.KafkaBrokers != "" {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		logger.Info("publishing events to kafka", zap.String("topic", cfg.KafkaTopic))
	}

	// ------------------------------------------------
	// Email Delivery
	// ------------------------------------------------
	delivery, err := newDelivery(ctx, cfg)
	if err != nil {
		logger.Error("email delivery setup failed", zap.Error(err))
		return err
	}

	// ------------------------------------------------
	// Rate Limiter
	// ------------------------------------------------
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
	}

	// ------------------------------------------------
	// Campaigns
	// ------------------------------------------------
	campaigns := &campaign.Service{
		Store: store,
		Sender: &worker.BatchSender{
			Delivery:  delivery,
			Store:     store,
			Limiter:   limiter,
			ChunkSize: cfg.BatchSize,
			Log:       logger,
		},
		Events: publisher,
		Log:    logger,
	}

	// ------------------------------------------------
	// Language Model
	// ------------------------------------------------
	model, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
		Model:    cfg.LLMModel,
		Timeout:  cfg.LLMTimeout,
	})
	if err != nil {
		logger.Error("llm client setup failed", zap.Error(err))
		return err
	}

	planner := &agent.Planner{
		LLM:         model,
		Model:       cfg.LLMModel,
		Temperature: llmTemperature,
		MaxTokens:   planMaxTokens,
	}

	// ------------------------------------------------
	// Presentations
	// ------------------------------------------------
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logger.Error("upload dir unavailable", zap.String("dir", cfg.UploadDir), zap.Error(err))
		return err
	}

	renderer := &pdf.RodRenderer{Bin: cfg.ChromeBin, Log: logger}
	defer renderer.Close()

	presentations := &presentation.Service{
		LLM:         model,
		Model:       cfg.LLMModel,
		Temperature: llmTemperature,
		Store:       store,
		Renderer:    renderer,
		Events:      publisher,
		UploadDir:   cfg.UploadDir,
		URLPrefix:   cfg.UploadURLPrefix,
		Log:         logger,
	}

	// ------------------------------------------------
	// Orchestration
	// ------------------------------------------------
	router := &agent.Router{
		Classifier: &classifier.Classifier{
			LLM:         model,
			Model:       cfg.LLMModel,
			Temperature: llmTemperature,
			Log:         logger,
		},
		Tasks:         store,
		Campaigns:     campaigns,
		Presentations: presentations,
		Planner:       planner,
		Events:        publisher,
		Log:           logger,
		RetryAttempts: cfg.RetryAttempts,
		RetryInterval: 200 * time.Millisecond,
	}

	// ------------------------------------------------
	// HTTP API Server
	// ------------------------------------------------
	apiHandler := &api.Handler{
		Plans:         &agent.PlanService{Planner: planner, Tasks: store, Log: logger},
		Orchestrator:  router,
		Campaigns:     campaigns,
		Presentations: presentations,
		Tasks:         &timeline.Merger{Source: store},
		DB:            store,

		Auth: &auth.JWTResolver{Secret: []byte(cfg.JWTSecret), Cookie: cfg.SessionCookie},
		Log:  logger,

		UploadDir:       cfg.UploadDir,
		UploadURLPrefix: cfg.UploadURLPrefix,
		CSVMaxRows:      cfg.CSVMaxRows,
	}

	apiServer := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           apiHandler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api server started", zap.String("port", cfg.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server error", zap.Error(err))
			cancel()
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()

	logger.Info("shutting down services...")

	// In-flight campaigns run on a detached context; give them time to
	// finalize before the pool closes.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}

	logger.Info("application shutdown complete")
	return nil
}

func newDelivery(ctx context.Context, cfg *config.Config) (email.Delivery, error) {
	if cfg.EmailProvider != "ses" {
		return &email.SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		}, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.SESRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.SESRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return email.NewSESSender(awsCfg, cfg.EmailFrom, cfg.SESConfigurationSet)
}
