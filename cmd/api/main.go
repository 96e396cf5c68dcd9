package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/logistica-sv/freight-backoffice/internal/application/alias"
	"github.com/logistica-sv/freight-backoffice/internal/application/importer"
	"github.com/logistica-sv/freight-backoffice/internal/application/ingestion"
	"github.com/logistica-sv/freight-backoffice/internal/application/lifecycle"
	"github.com/logistica-sv/freight-backoffice/internal/application/mail"
	"github.com/logistica-sv/freight-backoffice/internal/application/matcher"
	"github.com/logistica-sv/freight-backoffice/internal/application/parser"
	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/excel"
	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/msgraph"
	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/postgres"
	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/storage"
	httpRouter "github.com/logistica-sv/freight-backoffice/internal/interfaces/http"
	"github.com/logistica-sv/freight-backoffice/pkg/config"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	otRepo := postgres.NewOTRepository(pool)
	costRepo := postgres.NewCostInvoiceRepository(pool)
	fileRepo := postgres.NewUploadedFileRepository(pool)
	providerRepo := postgres.NewProviderRepository(pool)
	creditNoteRepo := postgres.NewCreditNoteRepository(pool)
	disputeRepo := postgres.NewDisputeRepository(pool)
	salesRepo := postgres.NewSalesInvoiceRepository(pool)
	salesNoteRepo := postgres.NewSalesCreditNoteRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	aliasRepo := postgres.NewClientAliasRepository(pool)
	matchRepo := postgres.NewSimilarityMatchRepository(pool)
	resolutionRepo := postgres.NewClientResolutionRepository(pool)
	processedRepo := postgres.NewProcessedFileRepository(pool)
	patternRepo := postgres.NewPatternRepository(pool)
	emailConfigRepo := postgres.NewEmailConfigRepository(pool)
	emailLogRepo := postgres.NewEmailLogRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	aliasSvc := alias.NewService(aliasRepo, matchRepo, resolutionRepo, txRunner, log)
	importSvc := importer.NewService(otRepo, aliasRepo, resolutionRepo, processedRepo, aliasSvc, txRunner, log)
	costSvc := lifecycle.NewCostService(costRepo, otRepo, providerRepo, creditNoteRepo, txRunner, log)
	disputeSvc := lifecycle.NewDisputeService(disputeRepo, costSvc, txRunner, log)
	salesSvc := lifecycle.NewSalesService(salesRepo, salesNoteRepo, paymentRepo, aliasRepo, txRunner, log)

	catalog := parser.NewCatalog(patternRepo)
	pdfParser := parser.NewPDFParser(catalog)
	otMatcher := matcher.New(otRepo)

	// Backend de archivos: Cloudinary en producción, disco local en desarrollo.
	var store storage.Storage
	if cfg.Storage.UseCloudinary {
		store = storage.NewCloudinary(cfg.Storage.CloudName, cfg.Storage.APIKey, cfg.Storage.APISecret, log)
	} else {
		store = storage.NewLocal(cfg.Storage.LocalDir, cfg.App.BackendURL)
	}

	ingestSvc := ingestion.NewService(pdfParser, otMatcher, fileRepo, costRepo, providerRepo, costSvc, store, log)

	graphClient := msgraph.NewClient(cfg.Graph, log)
	poller := mail.NewPoller(emailConfigRepo, emailLogRepo, graphClient, ingestSvc, log)
	scheduler := mail.NewScheduler(poller, log)
	if err := scheduler.Start(ctx); err != nil {
		log.Error().Err(err).Msg("no se pudo programar el poller de correo")
	} else {
		defer scheduler.Stop()
	}

	archiver := excel.NewArchiver(store, log.Zerolog())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    50 * 1024 * 1024, // cargas de PDF y Excel
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CostSvc:    costSvc,
		DisputeSvc: disputeSvc,
		SalesSvc:   salesSvc,
		AliasSvc:   aliasSvc,
		ImportSvc:  importSvc,
		IngestSvc:  ingestSvc,
		Poller:     poller,
		Catalog:    catalog,

		Costs:       costRepo,
		CreditNotes: creditNoteRepo,
		OTs:         otRepo,
		Aliases:     aliasRepo,
		Matches:     matchRepo,
		Sales:       salesRepo,
		Payments:    paymentRepo,
		Disputes:    disputeRepo,
		Providers:   providerRepo,
		Files:       fileRepo,
		Patterns:    patternRepo,
		EmailConfig: emailConfigRepo,
		EmailLogs:   emailLogRepo,

		Store:     store,
		Archiver:  archiver,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
