package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/thepriyanshumishra/scamshield-web/internal/blender"
	"github.com/thepriyanshumishra/scamshield-web/internal/config"
	"github.com/thepriyanshumishra/scamshield-web/internal/flywheel"
	"github.com/thepriyanshumishra/scamshield-web/internal/groq"
	"github.com/thepriyanshumishra/scamshield-web/internal/handler"
	"github.com/thepriyanshumishra/scamshield-web/internal/ml_client"
	"github.com/thepriyanshumishra/scamshield-web/internal/ocr_client"
	"github.com/thepriyanshumishra/scamshield-web/internal/repository"
	"github.com/thepriyanshumishra/scamshield-web/internal/server"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting ScamShield...")

	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	if cfg.Groq.APIKey == "" || cfg.Groq.APIKey == "YOUR_API_KEY_HERE" {
		logger.Fatal("Groq API key not configured. Set it in configs/config.yml or via GROQ_API_KEY")
	}

	// Initialize database
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}
	db, err := repository.NewSQLiteDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.MigrateDB(db, logger); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	analysisRepo := repository.NewAnalysisRepository(db, logger)
	ledgerRepo := repository.NewLedgerRepository(db, logger)

	// Initialize Groq client (remote reasoner)
	groqClient, err := groq.NewClient(groq.Config{
		APIKey:     cfg.Groq.APIKey,
		ModelName:  cfg.Groq.ModelName,
		MaxRetries: cfg.Groq.MaxRetries,
		RetryDelay: time.Duration(cfg.Groq.RetryDelaySecs) * time.Second,
		Timeout:    time.Duration(cfg.Groq.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Groq client", zap.Error(err))
	}

	// Initialize local classifier client if enabled
	var mlClient *ml_client.Client
	var localScorer flywheel.LocalScorer
	if cfg.MLService.Enabled {
		mlClient = ml_client.NewClient(cfg.MLService.URL, time.Duration(cfg.MLService.TimeoutSeconds)*time.Second)
		localScorer = mlClient
		logger.Info("Local classifier enabled", zap.String("url", cfg.MLService.URL))
	} else {
		logger.Info("Local classifier disabled, running remote-only")
	}

	// Initialize OCR client if enabled
	var ocrClient *ocr_client.Client
	if cfg.OCRService.Enabled {
		ocrClient = ocr_client.NewClient(cfg.OCRService.URL, logger)
		logger.Info("OCR service enabled", zap.String("url", cfg.OCRService.URL))
	}

	// Initialize the blender and flywheel engine
	blend := blender.New(cfg.Blend.LocalWeight, cfg.Blend.RemoteWeight, logger)
	engine := flywheel.NewEngine(
		groqClient,
		localScorer,
		blend,
		analysisRepo,
		logger,
		time.Duration(cfg.Groq.TimeoutSeconds)*time.Second,
		cfg.Blend.ScamThreshold,
	)

	// Initialize HTTP handler and server
	apiHandler := handler.NewHandler(engine, ledgerRepo, analysisRepo, groqClient, ocrClient, mlClient, logger)
	srv := server.NewServer(apiHandler, cfg.Server.AllowOrigins, logger)

	go func() {
		if err := srv.Start(":" + cfg.Server.Port); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("ScamShield is running",
		zap.String("port", cfg.Server.Port),
		zap.String("model", cfg.Groq.ModelName))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
