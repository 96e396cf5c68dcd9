// Package ingestion orquesta la entrada de documentos de costo: deduplica el
// blob por sha256, extrae campos con el parser, asigna OT con el matcher de
// cinco niveles y crea la factura con las reglas del ciclo de vida.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/logistica-sv/freight-backoffice/internal/application/lifecycle"
	"github.com/logistica-sv/freight-backoffice/internal/application/matcher"
	"github.com/logistica-sv/freight-backoffice/internal/application/parser"
	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/storage"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

// lowConfidenceThreshold bajo esta confianza de extracción la factura entra
// a revisión manual.
const lowConfidenceThreshold = 0.6

// Service caso de uso de ingestión de documentos.
type Service struct {
	pdf       *parser.PDFParser
	matcher   *matcher.Matcher
	files     repository.UploadedFileRepository
	costs     repository.CostInvoiceRepository
	providers repository.ProviderRepository
	costSvc   *lifecycle.CostService
	store     storage.Storage
	log       *logger.Logger
}

// NewService construye el servicio.
func NewService(
	pdf *parser.PDFParser,
	m *matcher.Matcher,
	files repository.UploadedFileRepository,
	costs repository.CostInvoiceRepository,
	providers repository.ProviderRepository,
	costSvc *lifecycle.CostService,
	store storage.Storage,
	log *logger.Logger,
) *Service {
	return &Service{
		pdf:       pdf,
		matcher:   m,
		files:     files,
		costs:     costs,
		providers: providers,
		costSvc:   costSvc,
		store:     store,
		log:       log,
	}
}

// Input un documento a ingerir.
type Input struct {
	Filename      string
	Data          []byte
	ContentType   string
	CostType      string
	ProviderTaxID string // pista opcional para el catálogo de patrones
	Source        string // email_auto, upload_manual, csv_import
}

// Result resultado de la ingestión. Duplicate indica que el blob ya tenía
// una factura activa; Invoice apunta a la existente y no se crea nada.
type Result struct {
	Invoice     *entity.CostInvoice
	Duplicate   bool
	Parsed      *parser.ParsedDocument
	MatchMethod string
}

// Ingest procesa un documento de punta a punta.
func (s *Service) Ingest(ctx context.Context, in Input) (*Result, error) {
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("documento vacío: %w", domain.ErrValidation)
	}
	sum := sha256.Sum256(in.Data)
	sha := hex.EncodeToString(sum[:])

	// Deduplicación: el mismo blob con factura activa no se vuelve a crear.
	existingFile, err := s.files.GetBySHA256(ctx, sha)
	if err != nil {
		return nil, err
	}
	if existingFile != nil {
		inv, err := s.costs.GetByFileSHA(ctx, sha)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			s.log.Info().Str("sha", sha).Str("factura", inv.Number).Msg("documento duplicado")
			return &Result{Invoice: inv, Duplicate: true}, nil
		}
	}

	file := existingFile
	if file == nil {
		storagePath := fmt.Sprintf("invoices/%d_%s", time.Now().Unix(), filepath.Base(in.Filename))
		if _, err := s.store.Save(ctx, storagePath, in.Data); err != nil {
			return nil, err
		}
		file = &entity.UploadedFile{
			ID:          uuid.New().String(),
			Filename:    in.Filename,
			StoragePath: storagePath,
			SHA256:      sha,
			Size:        int64(len(in.Data)),
			ContentType: in.ContentType,
			CreatedAt:   time.Now(),
		}
		if err := s.files.Create(ctx, file); err != nil {
			return nil, err
		}
	}

	parsed := s.parse(ctx, in)

	providerID, providerName, providerTaxID := s.resolveProvider(ctx, in, parsed)

	var issueDate *time.Time
	if parsed != nil {
		issueDate = parsed.IssueDate
	}
	var refs []entity.DetectedRef
	if parsed != nil {
		refs = parsed.References
	}
	match, err := s.matcher.Match(ctx, refs, providerName, issueDate)
	if err != nil {
		return nil, err
	}

	inv := s.buildInvoice(in, sha, file, parsed, match, providerID, providerName, providerTaxID)
	if err := s.costSvc.Create(ctx, inv); err != nil {
		// Número ya ocupado por otra factura activa: se conserva el documento
		// con número temporal y revisión forzada.
		if errors.Is(err, domain.ErrDuplicate) {
			inv.Number = tempNumber(sha)
			inv.NeedsReview = true
			if err := s.costSvc.Create(ctx, inv); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	s.log.Info().
		Str("factura", inv.Number).
		Str("metodo", match.Method).
		Float64("confianza", match.Confidence).
		Bool("revision", inv.NeedsReview).
		Msg("documento ingerido")
	return &Result{Invoice: inv, Parsed: parsed, MatchMethod: match.Method}, nil
}

// parse elige el parser por extensión. Un documento ilegible no detiene la
// ingestión: la factura nace en revisión con número temporal.
func (s *Service) parse(ctx context.Context, in Input) *parser.ParsedDocument {
	ext := strings.ToLower(filepath.Ext(in.Filename))
	var (
		parsed *parser.ParsedDocument
		err    error
	)
	if ext == ".json" {
		parsed, err = parser.ParseDTE(in.Data)
	} else {
		parsed, err = s.pdf.Parse(ctx, in.Data, in.ProviderTaxID)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("archivo", in.Filename).Msg("documento no parseable")
		return nil
	}
	return parsed
}

// resolveProvider combina la pista del caller con lo extraído y busca el
// proveedor registrado por NIT.
func (s *Service) resolveProvider(ctx context.Context, in Input, parsed *parser.ParsedDocument) (providerID *string, name, taxID string) {
	taxID = in.ProviderTaxID
	if parsed != nil {
		if taxID == "" {
			taxID = parsed.ProviderTaxID
		}
		name = parsed.ProviderName
	}
	if taxID == "" {
		return nil, name, ""
	}
	provider, err := s.providers.GetByTaxID(ctx, taxID)
	if err != nil || provider == nil {
		return nil, name, taxID
	}
	if name == "" {
		name = provider.Name
	}
	return &provider.ID, name, taxID
}

func (s *Service) buildInvoice(in Input, sha string, file *entity.UploadedFile, parsed *parser.ParsedDocument, match matcher.Result, providerID *string, providerName, providerTaxID string) *entity.CostInvoice {
	inv := &entity.CostInvoice{
		ID:               uuid.New().String(),
		ProviderID:       providerID,
		ProviderName:     providerName,
		ProviderTaxID:    providerTaxID,
		CostType:         in.CostType,
		PaymentTerms:     entity.PaymentTermsCash,
		IssueDate:        time.Now(),
		MatchConfidence:  match.Confidence,
		MatchMethod:      match.Method,
		ProvisionStatus:  entity.InvoiceProvisionPending,
		BillingStatus:    entity.InvoiceBillingPending,
		UploadedFileID:   &file.ID,
		ProcessedAt:      time.Now(),
		ProcessingSource: in.Source,
	}
	if inv.CostType == "" {
		inv.CostType = entity.CostTypeOther
	}

	lowConfidence := parsed == nil || parsed.Confidence < lowConfidenceThreshold
	if parsed != nil {
		inv.Number = parsed.InvoiceNumber
		if parsed.IssueDate != nil {
			inv.IssueDate = *parsed.IssueDate
		}
		inv.DueDate = parsed.DueDate
		if parsed.AmountOK {
			inv.Amount = parsed.Amount
		}
		inv.DetectedRefs = parsed.References
	}
	if inv.Number == "" {
		inv.Number = tempNumber(sha)
		lowConfidence = true
	}

	if match.OT != nil {
		inv.OTID = &match.OT.ID
	}
	inv.NeedsReview = lowConfidence || match.NeedsReview()
	return inv
}

// tempNumber número temporal derivado del hash del documento.
func tempNumber(sha string) string {
	return "TEMP-" + strings.ToUpper(sha[:12])
}
