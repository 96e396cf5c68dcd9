package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/logistica-sv/freight-backoffice/internal/application/alias"
	"github.com/logistica-sv/freight-backoffice/internal/application/importer"
	"github.com/logistica-sv/freight-backoffice/internal/application/ingestion"
	"github.com/logistica-sv/freight-backoffice/internal/application/lifecycle"
	"github.com/logistica-sv/freight-backoffice/internal/application/mail"
	"github.com/logistica-sv/freight-backoffice/internal/application/parser"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/excel"
	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/storage"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CostSvc    *lifecycle.CostService
	DisputeSvc *lifecycle.DisputeService
	SalesSvc   *lifecycle.SalesService
	AliasSvc   *alias.Service
	ImportSvc  *importer.Service
	IngestSvc  *ingestion.Service
	Poller     *mail.Poller
	Catalog    *parser.Catalog

	Costs       repository.CostInvoiceRepository
	CreditNotes repository.CreditNoteRepository
	OTs         repository.OTRepository
	Aliases     repository.ClientAliasRepository
	Matches     repository.SimilarityMatchRepository
	Sales       repository.SalesInvoiceRepository
	Payments    repository.PaymentRepository
	Disputes    repository.DisputeRepository
	Providers   repository.ProviderRepository
	Files       repository.UploadedFileRepository
	Patterns    repository.PatternRepository
	EmailConfig repository.EmailConfigRepository
	EmailLogs   repository.EmailLogRepository

	Store     storage.Storage
	Archiver  *excel.Archiver
	JWTSecret string
}

// Router registra las rutas de la API. Todo va detrás del Bearer Token; la
// administración de patrones y del poller exige rol admin.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	admin := RequireRole("admin")

	// OTs
	ots := api.Group("/ots")
	otHandler := NewOTHandler(deps.OTs, deps.Aliases)
	ots.Post("/", otHandler.Create)
	ots.Get("/", otHandler.Search)
	ots.Get("/stats", otHandler.Stats)
	ots.Get("/filters", otHandler.FilterValues)
	ots.Get("/export", otHandler.Export)
	ots.Get("/:id", otHandler.GetByID)
	ots.Put("/:id", otHandler.Update)
	ots.Delete("/:id", otHandler.Delete)

	// Facturas de costo y notas de crédito
	costHandler := NewCostInvoiceHandler(deps.CostSvc, deps.Costs, deps.CreditNotes)
	costs := api.Group("/cost-invoices")
	costs.Post("/", costHandler.Create)
	costs.Get("/", costHandler.List)
	costs.Get("/stats", costHandler.Stats)
	costs.Get("/review", costHandler.PendingReview)
	costs.Get("/export", costHandler.Export)
	costs.Get("/:id", costHandler.GetByID)
	costs.Put("/:id", costHandler.Update)
	costs.Delete("/:id", costHandler.Delete)
	costs.Post("/:id/review", costHandler.MarkReviewed)
	costs.Post("/bulk-delete", costHandler.BulkDelete)

	notes := api.Group("/credit-notes")
	notes.Post("/", costHandler.CreateCreditNote)
	notes.Get("/", costHandler.ListCreditNotes)
	notes.Post("/:id/apply", costHandler.ApplyCreditNote)

	// Reclamos
	disputeHandler := NewDisputeHandler(deps.DisputeSvc, deps.Disputes)
	disputes := api.Group("/disputes")
	disputes.Post("/", disputeHandler.Create)
	disputes.Get("/", disputeHandler.List)
	disputes.Get("/:id", disputeHandler.GetByID)
	disputes.Post("/:id/transition", disputeHandler.Transition)
	disputes.Post("/:id/comments", disputeHandler.Comment)
	disputes.Post("/:id/resolve", disputeHandler.Resolve)

	// Facturación a clientes
	salesHandler := NewSalesHandler(deps.SalesSvc, deps.Sales, deps.Payments)
	sales := api.Group("/sales-invoices")
	sales.Post("/", salesHandler.Create)
	sales.Get("/", salesHandler.List)
	sales.Get("/stats", salesHandler.Stats)
	sales.Get("/:id", salesHandler.GetByID)
	sales.Delete("/:id", salesHandler.Delete)
	sales.Post("/:id/items", salesHandler.AddItem)
	sales.Put("/:id/items/:itemID", salesHandler.UpdateItem)
	sales.Delete("/:id/items/:itemID", salesHandler.RemoveItem)
	sales.Post("/:id/credit-notes", salesHandler.ApplyCreditNote)
	sales.Post("/:id/payments", salesHandler.RegisterPayment)
	sales.Get("/:id/payments", salesHandler.ListPayments)
	sales.Post("/:id/costs", salesHandler.AssignCost)
	sales.Get("/:id/costs", salesHandler.ListMappings)
	sales.Delete("/:id/costs/:costID", salesHandler.UnassignCost)
	api.Post("/payments/:id/validate", salesHandler.ValidatePayment)

	// Alias de cliente y similitud
	aliasHandler := NewAliasHandler(deps.AliasSvc, deps.Aliases, deps.Matches, deps.Costs)
	aliases := api.Group("/aliases")
	aliases.Post("/", aliasHandler.Create)
	aliases.Get("/", aliasHandler.List)
	aliases.Get("/stats", aliasHandler.Stats)
	aliases.Post("/merge", aliasHandler.Merge)
	aliases.Post("/merge/bulk", aliasHandler.BulkMerge)
	aliases.Post("/bulk", aliasHandler.BulkCreate)
	aliases.Get("/:id", aliasHandler.GetByID)
	aliases.Put("/:id", aliasHandler.Update)
	aliases.Delete("/:id", aliasHandler.Delete)
	aliases.Post("/:id/rename", aliasHandler.Rename)
	aliases.Post("/:id/short-name", aliasHandler.RegenerateShortName)
	aliases.Post("/:id/verify", aliasHandler.Verify)
	aliases.Get("/:id/similar", aliasHandler.FindSimilar)

	similarity := api.Group("/similarity")
	similarity.Post("/suggest", aliasHandler.Suggest)
	similarity.Get("/pending", aliasHandler.PendingMatches)
	similarity.Post("/:id/approve", aliasHandler.ApproveMatch)
	similarity.Post("/:id/reject", aliasHandler.RejectMatch)

	// Proveedores
	providerHandler := NewProviderHandler(deps.Providers)
	providers := api.Group("/providers")
	providers.Post("/", providerHandler.Create)
	providers.Get("/", providerHandler.List)
	providers.Get("/:id", providerHandler.GetByID)
	providers.Put("/:id", providerHandler.Update)
	providers.Delete("/:id", providerHandler.Delete)

	// Documentos, archivos y exportaciones
	docHandler := NewDocumentHandler(deps.IngestSvc, deps.Costs, deps.Files, deps.OTs, deps.Aliases, deps.Store, deps.Archiver)
	api.Post("/documents", docHandler.Upload)
	api.Post("/documents/bulk", docHandler.BulkUpload)
	api.Get("/files/*", docHandler.Serve)
	api.Post("/exports/zip", docHandler.ExportZip)

	// Importación Excel de OTs
	importHandler := NewImportHandler(deps.ImportSvc)
	api.Post("/imports/excel", importHandler.Import)

	// Patrones de extracción (solo admin)
	patternHandler := NewPatternHandler(deps.Patterns, deps.Catalog)
	patterns := api.Group("/patterns", admin)
	patterns.Get("/", patternHandler.List)
	patterns.Post("/", patternHandler.Create)
	patterns.Put("/:id", patternHandler.Update)
	patterns.Delete("/:id", patternHandler.Delete)

	// Poller de correo (solo admin)
	emailHandler := NewEmailHandler(deps.EmailConfig, deps.EmailLogs, deps.Poller)
	email := api.Group("/email", admin)
	email.Get("/config", emailHandler.GetConfig)
	email.Put("/config", emailHandler.SaveConfig)
	email.Get("/logs", emailHandler.ListLogs)
	email.Post("/run", emailHandler.Run)
}
