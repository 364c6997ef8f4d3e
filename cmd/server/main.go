package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/tomhaynes/invoice-intake/internal/config"
	"github.com/tomhaynes/invoice-intake/internal/export"
	"github.com/tomhaynes/invoice-intake/internal/extraction"
	httpserver "github.com/tomhaynes/invoice-intake/internal/interfaces/http"
	"github.com/tomhaynes/invoice-intake/internal/repository"
	"github.com/tomhaynes/invoice-intake/internal/service"
	"github.com/tomhaynes/invoice-intake/internal/storage"
	"github.com/tomhaynes/invoice-intake/migrations"
	"github.com/tomhaynes/invoice-intake/pkg/database"
	"github.com/tomhaynes/invoice-intake/pkg/utils"
)

func main() {
	// Local development secrets; missing file is fine
	_ = gotenv.Load()

	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice intake service",
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path))

	if err := os.MkdirAll(cfg.Storage.BaseDir, 0755); err != nil {
		logger.Fatal("Failed to create storage directory", zap.Error(err))
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(migrations.FS); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	vendorRepo := repository.NewVendorRepository(db.DB, logger)
	invoiceRepo := repository.NewInvoiceRepository(db.DB, logger)
	lineItemRepo := repository.NewLineItemRepository(db.DB, logger)

	invoiceService := service.NewInvoiceService(db, vendorRepo, invoiceRepo, lineItemRepo, logger)

	fileStore := storage.NewLocalFileStorage(cfg.Storage.BaseDir, logger)
	intake := storage.NewIntake(fileStore, cfg.Storage.BaseDir, logger)

	reader := extraction.NewVisionReader(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
	extractor := extraction.NewService(reader, intake, logger)

	exporter := export.NewService(invoiceService, logger)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, invoiceService, intake, extractor, exporter, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
