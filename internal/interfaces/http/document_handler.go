package http

import (
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/logistica-sv/freight-backoffice/internal/application/dto"
	"github.com/logistica-sv/freight-backoffice/internal/application/ingestion"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/excel"
	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/storage"
)

// DocumentHandler maneja la subida de documentos de costo, el proxy de
// archivos y el ZIP estructurado (protegido).
type DocumentHandler struct {
	svc      *ingestion.Service
	costs    repository.CostInvoiceRepository
	files    repository.UploadedFileRepository
	ots      repository.OTRepository
	aliases  repository.ClientAliasRepository
	store    storage.Storage
	archiver *excel.Archiver
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(
	svc *ingestion.Service,
	costs repository.CostInvoiceRepository,
	files repository.UploadedFileRepository,
	ots repository.OTRepository,
	aliases repository.ClientAliasRepository,
	store storage.Storage,
	archiver *excel.Archiver,
) *DocumentHandler {
	return &DocumentHandler{
		svc:      svc,
		costs:    costs,
		files:    files,
		ots:      ots,
		aliases:  aliases,
		store:    store,
		archiver: archiver,
	}
}

// Upload godoc
// @Summary      Subir documento de costo (PDF o DTE-JSON)
// @Tags         documents
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        file             formData  file    true   "Documento"
// @Param        cost_type        formData  string  false  "Tipo de costo"
// @Param        provider_tax_id  formData  string  false  "NIT del proveedor (pista)"
// @Success      201  {object}  dto.IngestResponse
// @Failure      409  {object}  dto.IngestResponse  "El blob ya tiene factura activa"
// @Router       /api/documents [post]
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "MISSING_FILE", "campo file requerido")
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fail(c, err)
	}

	res, err := h.svc.Ingest(c.Context(), ingestion.Input{
		Filename:      fh.Filename,
		Data:          data,
		ContentType:   fh.Header.Get("Content-Type"),
		CostType:      c.FormValue("cost_type"),
		ProviderTaxID: c.FormValue("provider_tax_id"),
		Source:        entity.SourceUploadManual,
	})
	if err != nil {
		return fail(c, err)
	}
	out := dto.IngestResponse{
		Invoice:     dto.FromCostInvoice(res.Invoice),
		Duplicate:   res.Duplicate,
		MatchMethod: res.MatchMethod,
		NeedsReview: res.Invoice.NeedsReview,
	}
	if res.Duplicate {
		return c.Status(fiber.StatusConflict).JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// BulkUpload godoc
// @Summary      Subir varios documentos de costo con reporte por archivo
// @Tags         documents
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        files  formData  file  true  "Documentos (repetible)"
// @Success      200  {object}  dto.BulkUploadResponse
// @Router       /api/documents/bulk [post]
func (h *DocumentHandler) BulkUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "INVALID_FORM", "formulario multipart inválido")
	}
	fhs := form.File["files"]
	if len(fhs) == 0 {
		return badRequest(c, "MISSING_FILES", "campo files requerido")
	}

	out := dto.BulkUploadResponse{Results: make([]dto.BulkUploadItemResponse, 0, len(fhs))}
	for _, fh := range fhs {
		item := dto.BulkUploadItemResponse{Filename: fh.Filename}
		data, err := readMultipartFile(fh)
		if err == nil {
			var res *ingestion.Result
			res, err = h.svc.Ingest(c.Context(), ingestion.Input{
				Filename:      fh.Filename,
				Data:          data,
				ContentType:   fh.Header.Get("Content-Type"),
				CostType:      c.FormValue("cost_type"),
				ProviderTaxID: c.FormValue("provider_tax_id"),
				Source:        entity.SourceUploadManual,
			})
			if err == nil {
				item.InvoiceID = res.Invoice.ID
				item.MatchMethod = res.MatchMethod
				if res.Duplicate {
					item.Status = "duplicate"
					out.Duplicates++
				} else {
					item.Status = "created"
					out.Created++
				}
			}
		}
		if err != nil {
			item.Status = "error"
			item.Error = err.Error()
			out.Failed++
		}
		out.Results = append(out.Results, item)
	}
	return c.JSON(out)
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Serve godoc
// @Summary      Servir un blob almacenado
// @Tags         documents
// @Security     Bearer
// @Param        path  path  string  true  "Ruta del blob"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/files/{path} [get]
func (h *DocumentHandler) Serve(c *fiber.Ctx) error {
	path := c.Params("*")
	if path == "" {
		return badRequest(c, "MISSING_PATH", "ruta requerida")
	}
	// El CDN entrega directo; el almacenamiento local se sirve por streaming.
	url, err := h.store.URL(c.Context(), path)
	if err == nil && (strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) {
		return c.Redirect(url, fiber.StatusFound)
	}
	rc, err := h.store.Open(c.Context(), path)
	if err != nil {
		return notFound(c, "archivo no encontrado")
	}
	return c.SendStream(rc)
}

// ExportZip godoc
// @Summary      ZIP de facturas agrupado por cliente y OT
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      application/zip
// @Param        body  body  object  true  "IDs de facturas de costo"
// @Success      200
// @Router       /api/exports/zip [post]
func (h *DocumentHandler) ExportZip(c *fiber.Ctx) error {
	var in struct {
		InvoiceIDs []string `json:"invoice_ids"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if len(in.InvoiceIDs) == 0 {
		return badRequest(c, "VALIDATION", "invoice_ids es requerido")
	}

	entries := make([]excel.ArchiveEntry, 0, len(in.InvoiceIDs))
	for _, id := range in.InvoiceIDs {
		inv, err := h.costs.GetByID(c.Context(), id)
		if err != nil {
			return fail(c, err)
		}
		if inv == nil || inv.UploadedFileID == nil {
			continue
		}
		file, err := h.files.GetByID(c.Context(), *inv.UploadedFileID)
		if err != nil {
			return fail(c, err)
		}
		if file == nil {
			continue
		}
		entry := excel.ArchiveEntry{
			ProviderName:  inv.ProviderName,
			InvoiceNumber: inv.Number,
			OTNumber:      inv.OTNumberDenorm,
			StoragePath:   file.StoragePath,
		}
		if inv.OTID != nil {
			ot, err := h.ots.GetByID(c.Context(), *inv.OTID)
			if err != nil {
				return fail(c, err)
			}
			if ot != nil && ot.ClientID != "" {
				a, err := h.aliases.GetByID(c.Context(), ot.ClientID)
				if err != nil {
					return fail(c, err)
				}
				if a != nil {
					entry.ClientShort = a.ShortName
					entry.Alias = a.ShortName
				}
			}
		}
		entries = append(entries, entry)
	}

	data, err := h.archiver.Build(c.Context(), entries)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="facturas.zip"`)
	return c.Send(data)
}
