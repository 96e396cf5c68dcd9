package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/logistica-sv/freight-backoffice/internal/application/dto"
	"github.com/logistica-sv/freight-backoffice/internal/application/lifecycle"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/excel"
)

// CostInvoiceHandler maneja las peticiones HTTP de facturas de costo (protegido).
type CostInvoiceHandler struct {
	svc   *lifecycle.CostService
	costs repository.CostInvoiceRepository
	notes repository.CreditNoteRepository
}

// NewCostInvoiceHandler construye el handler.
func NewCostInvoiceHandler(svc *lifecycle.CostService, costs repository.CostInvoiceRepository, notes repository.CreditNoteRepository) *CostInvoiceHandler {
	return &CostInvoiceHandler{svc: svc, costs: costs, notes: notes}
}

// Create godoc
// @Summary      Crear factura de costo manual
// @Tags         cost-invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCostInvoiceRequest  true  "Datos de la factura"
// @Success      201   {object}  dto.CostInvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/cost-invoices [post]
func (h *CostInvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCostInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Number == "" {
		return badRequest(c, "VALIDATION", "number es requerido")
	}
	now := time.Now()
	inv := &entity.CostInvoice{
		ID:               uuid.New().String(),
		Number:           in.Number,
		ProviderID:       in.ProviderID,
		ProviderName:     in.ProviderName,
		ProviderTaxID:    in.ProviderTaxID,
		CostType:         in.CostType,
		IssueDate:        in.IssueDate,
		PaymentTerms:     in.PaymentTerms,
		CreditDays:       in.CreditDays,
		Amount:           in.Amount,
		OTID:             in.OTID,
		ProvisionDate:    in.ProvisionDate,
		ProcessedAt:      now,
		ProcessingSource: entity.SourceUploadManual,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.svc.Create(c.Context(), inv); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromCostInvoice(inv))
}

// GetByID godoc
// @Summary      Obtener factura de costo por ID
// @Tags         cost-invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.CostInvoiceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/cost-invoices/{id} [get]
func (h *CostInvoiceHandler) GetByID(c *fiber.Ctx) error {
	inv, err := h.costs.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if inv == nil {
		return notFound(c, "factura no encontrada")
	}
	return c.JSON(dto.FromCostInvoice(inv))
}

// List godoc
// @Summary      Listar facturas de costo
// @Tags         cost-invoices
// @Security     Bearer
// @Produce      json
// @Param        search            query  string  false  "Número, proveedor u OT"
// @Param        provider_name     query  string  false  "Proveedor exacto"
// @Param        cost_type         query  string  false  "Tipo de costo"
// @Param        provision_status  query  string  false  "Estado de provisión"
// @Param        billing_status    query  string  false  "Estado de facturación"
// @Param        needs_review      query  bool    false  "Solo en revisión"
// @Param        ot_id             query  string  false  "OT vinculada"
// @Success      200  {object}  dto.CostInvoiceListResponse
// @Router       /api/cost-invoices [get]
func (h *CostInvoiceHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.DefaultPage()

	f := repository.CostInvoiceFilter{
		Search:          c.Query("search"),
		ProviderName:    c.Query("provider_name"),
		CostType:        c.Query("cost_type"),
		ProvisionStatus: c.Query("provision_status"),
		BillingStatus:   c.Query("billing_status"),
		OTID:            c.Query("ot_id"),
		Limit:           page.Limit,
		Offset:          page.Offset,
	}
	if c.Query("needs_review") != "" {
		v := c.QueryBool("needs_review")
		f.NeedsReview = &v
	}
	items, total, err := h.costs.List(c.Context(), f)
	if err != nil {
		return fail(c, err)
	}
	out := dto.CostInvoiceListResponse{
		Items: make([]dto.CostInvoiceResponse, 0, len(items)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, inv := range items {
		out.Items = append(out.Items, dto.FromCostInvoice(inv))
	}
	return c.JSON(out)
}

// PendingReview godoc
// @Summary      Cola de revisión manual
// @Tags         cost-invoices
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.CostInvoiceListResponse
// @Router       /api/cost-invoices/review [get]
func (h *CostInvoiceHandler) PendingReview(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.DefaultPage()
	items, err := h.costs.ListPendingReview(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	out := dto.CostInvoiceListResponse{
		Items: make([]dto.CostInvoiceResponse, 0, len(items)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, inv := range items {
		out.Items = append(out.Items, dto.FromCostInvoice(inv))
	}
	return c.JSON(out)
}

// Stats godoc
// @Summary      Agregados del panel de costos
// @Tags         cost-invoices
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.CostStatsResponse
// @Router       /api/cost-invoices/stats [get]
func (h *CostInvoiceHandler) Stats(c *fiber.Ctx) error {
	s, err := h.costs.Stats(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.CostStatsResponse{
		Total:            s.Total,
		ByProvision:      s.ByProvision,
		ByBilling:        s.ByBilling,
		AmountTotal:      s.AmountTotal,
		AmountApplicable: s.AmountApplicable,
		NeedsReview:      s.NeedsReview,
	})
}

// Update godoc
// @Summary      Actualizar factura de costo
// @Tags         cost-invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la factura"
// @Param        body  body  dto.UpdateCostInvoiceRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.CostInvoiceResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/cost-invoices/{id} [put]
func (h *CostInvoiceHandler) Update(c *fiber.Ctx) error {
	inv, err := h.costs.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if inv == nil {
		return notFound(c, "factura no encontrada")
	}
	var in dto.UpdateCostInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	applyInvoicePatch(inv, in)
	if err := h.svc.Update(c.Context(), inv); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromCostInvoice(inv))
}

// MarkReviewed godoc
// @Summary      Sacar la factura de la cola de revisión
// @Tags         cost-invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.CostInvoiceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/cost-invoices/{id}/review [post]
func (h *CostInvoiceHandler) MarkReviewed(c *fiber.Ctx) error {
	inv, err := h.costs.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if inv == nil {
		return notFound(c, "factura no encontrada")
	}
	inv.NeedsReview = false
	if inv.ProvisionStatus == entity.InvoiceProvisionReview {
		inv.ProvisionStatus = entity.InvoiceProvisionPending
	}
	if err := h.svc.Update(c.Context(), inv); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromCostInvoice(inv))
}

// Delete godoc
// @Summary      Eliminar (lógicamente) una factura de costo
// @Tags         cost-invoices
// @Security     Bearer
// @Param        id  path  string  true  "ID de la factura"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/cost-invoices/{id} [delete]
func (h *CostInvoiceHandler) Delete(c *fiber.Ctx) error {
	inv, err := h.costs.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if inv == nil {
		return notFound(c, "factura no encontrada")
	}
	if err := h.costs.SoftDelete(c.Context(), inv.ID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BulkDelete godoc
// @Summary      Eliminar (lógicamente) varias facturas de costo
// @Tags         cost-invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkDeleteRequest  true  "IDs a eliminar"
// @Success      200   {object}  dto.BulkDeleteResponse
// @Router       /api/cost-invoices/bulk-delete [post]
func (h *CostInvoiceHandler) BulkDelete(c *fiber.Ctx) error {
	var in dto.BulkDeleteRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if len(in.IDs) == 0 {
		return badRequest(c, "VALIDATION", "ids es requerido")
	}
	var out dto.BulkDeleteResponse
	for _, id := range in.IDs {
		inv, err := h.costs.GetByID(c.Context(), id)
		if err != nil {
			return fail(c, err)
		}
		if inv == nil {
			out.NotFound++
			continue
		}
		if err := h.costs.SoftDelete(c.Context(), inv.ID); err != nil {
			return fail(c, err)
		}
		out.Deleted++
	}
	return c.JSON(out)
}

// Export godoc
// @Summary      Exportar facturas de costo a XLSX
// @Tags         cost-invoices
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200
// @Router       /api/cost-invoices/export [get]
func (h *CostInvoiceHandler) Export(c *fiber.Ctx) error {
	f := repository.CostInvoiceFilter{
		Search:          c.Query("search"),
		ProviderName:    c.Query("provider_name"),
		CostType:        c.Query("cost_type"),
		ProvisionStatus: c.Query("provision_status"),
		BillingStatus:   c.Query("billing_status"),
		Limit:           10000,
	}
	items, _, err := h.costs.List(c.Context(), f)
	if err != nil {
		return fail(c, err)
	}
	data, err := excel.ExportCostInvoices(items)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="facturas_costo.xlsx"`)
	return c.Send(data)
}

// CreateCreditNote godoc
// @Summary      Registrar nota de crédito de costo
// @Tags         credit-notes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCreditNoteRequest  true  "Datos de la nota"
// @Success      201   {object}  dto.CreditNoteResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/credit-notes [post]
func (h *CostInvoiceHandler) CreateCreditNote(c *fiber.Ctx) error {
	var in dto.CreateCreditNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Number == "" {
		return badRequest(c, "VALIDATION", "number es requerido")
	}
	now := time.Now()
	note := &entity.CreditNote{
		ID:               uuid.New().String(),
		Number:           in.Number,
		RelatedInvoiceID: in.RelatedInvoiceID,
		ProviderName:     in.ProviderName,
		IssueDate:        in.IssueDate,
		Amount:           in.Amount,
		Reason:           in.Reason,
		State:            entity.CreditNotePending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.svc.CreateCreditNote(c.Context(), note); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromCreditNote(note))
}

// ApplyCreditNote godoc
// @Summary      Aplicar nota de crédito a su factura
// @Tags         credit-notes
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la nota"
// @Success      200  {object}  dto.CreditNoteResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/credit-notes/{id}/apply [post]
func (h *CostInvoiceHandler) ApplyCreditNote(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.svc.ApplyCreditNote(c.Context(), id); err != nil {
		return fail(c, err)
	}
	note, err := h.notes.GetByID(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if note == nil {
		return notFound(c, "nota no encontrada")
	}
	return c.JSON(dto.FromCreditNote(note))
}

// ListCreditNotes godoc
// @Summary      Listar notas de crédito de costo
// @Tags         credit-notes
// @Security     Bearer
// @Produce      json
// @Param        state  query  string  false  "Estado de la nota"
// @Success      200    {array}  dto.CreditNoteResponse
// @Router       /api/credit-notes [get]
func (h *CostInvoiceHandler) ListCreditNotes(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.DefaultPage()
	notes, err := h.notes.List(c.Context(), c.Query("state"), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	out := make([]dto.CreditNoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, dto.FromCreditNote(n))
	}
	return c.JSON(out)
}

// applyInvoicePatch copia a la entidad los campos presentes del request.
func applyInvoicePatch(inv *entity.CostInvoice, in dto.UpdateCostInvoiceRequest) {
	if in.Number != nil {
		inv.Number = *in.Number
	}
	if in.ProviderName != nil {
		inv.ProviderName = *in.ProviderName
	}
	if in.ProviderTaxID != nil {
		inv.ProviderTaxID = *in.ProviderTaxID
	}
	if in.CostType != nil {
		inv.CostType = *in.CostType
	}
	if in.IssueDate != nil {
		inv.IssueDate = *in.IssueDate
	}
	if in.PaymentTerms != nil {
		inv.PaymentTerms = *in.PaymentTerms
	}
	if in.CreditDays != nil {
		inv.CreditDays = *in.CreditDays
	}
	if in.Amount != nil {
		inv.Amount = *in.Amount
	}
	if in.ClearOT {
		inv.OTID = nil
		inv.OTNumberDenorm = ""
		inv.MatchMethod = ""
		inv.MatchConfidence = 0
	} else if in.OTID != nil {
		inv.OTID = in.OTID
		inv.MatchMethod = "manual"
		inv.MatchConfidence = 1
	}
	if in.ProvisionDate != nil {
		inv.ProvisionDate = in.ProvisionDate
	}
	if in.NeedsReview != nil {
		inv.NeedsReview = *in.NeedsReview
	}
}
