package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/logistica-sv/freight-backoffice/internal/application/dto"
	"github.com/logistica-sv/freight-backoffice/internal/application/lifecycle"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

// SalesHandler maneja las peticiones HTTP de facturación a clientes (protegido).
type SalesHandler struct {
	svc      *lifecycle.SalesService
	sales    repository.SalesInvoiceRepository
	payments repository.PaymentRepository
}

// NewSalesHandler construye el handler.
func NewSalesHandler(svc *lifecycle.SalesService, sales repository.SalesInvoiceRepository, payments repository.PaymentRepository) *SalesHandler {
	return &SalesHandler{svc: svc, sales: sales, payments: payments}
}

// Create godoc
// @Summary      Emitir factura de venta
// @Tags         sales-invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSalesInvoiceRequest  true  "Factura y líneas"
// @Success      201   {object}  dto.SalesInvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales-invoices [post]
func (h *SalesHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSalesInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Number == "" || in.ClientID == "" {
		return badRequest(c, "VALIDATION", "number y client_id son requeridos")
	}
	now := time.Now()
	inv := &entity.SalesInvoice{
		ID:            uuid.New().String(),
		Number:        in.Number,
		DocumentType:  in.DocumentType,
		OperationType: in.OperationType,
		ClientID:      in.ClientID,
		OTID:          in.OTID,
		IssueDate:     in.IssueDate,
		DueDate:       in.DueDate,
		Discount:      in.Discount,
		SRIAuth:       in.SRIAuth,
		AccessKey:     in.AccessKey,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	items := make([]*entity.SalesInvoiceItem, 0, len(in.Items))
	for i, it := range in.Items {
		items = append(items, itemFromRequest(inv.ID, i+1, it))
	}
	if err := h.svc.Create(c.Context(), inv, items); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromSalesInvoice(inv, items))
}

// GetByID godoc
// @Summary      Obtener factura de venta con líneas y asignaciones
// @Tags         sales-invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.SalesInvoiceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales-invoices/{id} [get]
func (h *SalesHandler) GetByID(c *fiber.Ctx) error {
	inv, err := h.sales.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if inv == nil {
		return notFound(c, "factura no encontrada")
	}
	items, err := h.sales.ListActiveItems(c.Context(), inv.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromSalesInvoice(inv, items))
}

// List godoc
// @Summary      Listar facturas de venta
// @Tags         sales-invoices
// @Security     Bearer
// @Produce      json
// @Param        client_id       query  string  false  "Cliente"
// @Param        status_billing  query  string  false  "Estado de facturación"
// @Success      200  {object}  dto.SalesInvoiceListResponse
// @Router       /api/sales-invoices [get]
func (h *SalesHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.DefaultPage()
	items, err := h.sales.List(c.Context(), c.Query("client_id"), c.Query("status_billing"), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	out := dto.SalesInvoiceListResponse{
		Items: make([]dto.SalesInvoiceResponse, 0, len(items)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, inv := range items {
		out.Items = append(out.Items, dto.FromSalesInvoice(inv, nil))
	}
	return c.JSON(out)
}

// Stats godoc
// @Summary      Agregados del panel de ventas
// @Tags         sales-invoices
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.SalesStatsResponse
// @Router       /api/sales-invoices/stats [get]
func (h *SalesHandler) Stats(c *fiber.Ctx) error {
	s, err := h.sales.Stats(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.SalesStatsResponse{
		Total:       s.Total,
		ByBilling:   s.ByBilling,
		AmountTotal: s.AmountTotal,
		AmountPaid:  s.AmountPaid,
	})
}

// Delete godoc
// @Summary      Eliminar (lógicamente) una factura de venta
// @Tags         sales-invoices
// @Security     Bearer
// @Param        id  path  string  true  "ID de la factura"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales-invoices/{id} [delete]
func (h *SalesHandler) Delete(c *fiber.Ctx) error {
	inv, err := h.sales.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if inv == nil {
		return notFound(c, "factura no encontrada")
	}
	if err := h.sales.SoftDelete(c.Context(), inv.ID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddItem godoc
// @Summary      Agregar línea a la factura
// @Tags         sales-invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la factura"
// @Param        body  body  dto.SalesItemRequest  true  "Línea nueva"
// @Success      201   {object}  dto.SalesItemResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/sales-invoices/{id}/items [post]
func (h *SalesHandler) AddItem(c *fiber.Ctx) error {
	invoiceID := c.Params("id")
	var in dto.SalesItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	current, err := h.sales.ListActiveItems(c.Context(), invoiceID)
	if err != nil {
		return fail(c, err)
	}
	it := itemFromRequest(invoiceID, len(current)+1, in)
	if err := h.svc.AddItem(c.Context(), invoiceID, it); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromSalesItem(it))
}

// UpdateItem godoc
// @Summary      Actualizar línea de la factura
// @Tags         sales-invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  string  true  "ID de la factura"
// @Param        itemID  path  string  true  "ID de la línea"
// @Param        body    body  dto.SalesItemRequest  true  "Campos de la línea"
// @Success      200     {object}  dto.SalesItemResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/sales-invoices/{id}/items/{itemID} [put]
func (h *SalesHandler) UpdateItem(c *fiber.Ctx) error {
	invoiceID := c.Params("id")
	itemID := c.Params("itemID")
	var in dto.SalesItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	items, err := h.sales.ListActiveItems(c.Context(), invoiceID)
	if err != nil {
		return fail(c, err)
	}
	var it *entity.SalesInvoiceItem
	for _, existing := range items {
		if existing.ID == itemID {
			it = existing
			break
		}
	}
	if it == nil {
		return notFound(c, "línea no encontrada")
	}
	it.Description = in.Description
	it.Concept = in.Concept
	it.ServiceType = in.ServiceType
	it.Quantity = in.Quantity
	it.UnitPrice = in.UnitPrice
	it.AppliesVAT = in.AppliesVAT
	it.VATPct = in.VATPct
	it.DiscountPct = in.DiscountPct
	it.ExemptionReason = in.ExemptionReason
	if err := h.svc.UpdateItem(c.Context(), invoiceID, it); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromSalesItem(it))
}

// RemoveItem godoc
// @Summary      Eliminar línea de la factura
// @Tags         sales-invoices
// @Security     Bearer
// @Param        id      path  string  true  "ID de la factura"
// @Param        itemID  path  string  true  "ID de la línea"
// @Success      204
// @Router       /api/sales-invoices/{id}/items/{itemID} [delete]
func (h *SalesHandler) RemoveItem(c *fiber.Ctx) error {
	if err := h.svc.RemoveItem(c.Context(), c.Params("id"), c.Params("itemID")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ApplyCreditNote godoc
// @Summary      Aplicar nota de crédito de venta
// @Tags         sales-invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la factura"
// @Param        body  body  dto.CreateSalesCreditNoteRequest  true  "Datos de la nota"
// @Success      201   {object}  map[string]string
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/sales-invoices/{id}/credit-notes [post]
func (h *SalesHandler) ApplyCreditNote(c *fiber.Ctx) error {
	var in dto.CreateSalesCreditNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Number == "" {
		return badRequest(c, "VALIDATION", "number es requerido")
	}
	now := time.Now()
	note := &entity.SalesCreditNote{
		ID:             uuid.New().String(),
		Number:         in.Number,
		SalesInvoiceID: c.Params("id"),
		IssueDate:      in.IssueDate,
		Amount:         in.Amount,
		Reason:         in.Reason,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.svc.ApplySalesCreditNote(c.Context(), note); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": note.ID, "state": note.State})
}

// RegisterPayment godoc
// @Summary      Registrar abono contra la factura
// @Tags         payments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la factura"
// @Param        body  body  dto.RegisterPaymentRequest  true  "Datos del abono"
// @Success      201   {object}  dto.PaymentResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/sales-invoices/{id}/payments [post]
func (h *SalesHandler) RegisterPayment(c *fiber.Ctx) error {
	var in dto.RegisterPaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	now := time.Now()
	p := &entity.Payment{
		ID:             uuid.New().String(),
		SalesInvoiceID: c.Params("id"),
		PaymentDate:    in.PaymentDate,
		Amount:         in.Amount,
		Method:         in.Method,
		Reference:      in.Reference,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.svc.RegisterPayment(c.Context(), p); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromPayment(p))
}

// ListPayments godoc
// @Summary      Abonos de la factura
// @Tags         payments
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {array}  dto.PaymentResponse
// @Router       /api/sales-invoices/{id}/payments [get]
func (h *SalesHandler) ListPayments(c *fiber.Ctx) error {
	items, err := h.payments.ListByInvoice(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	out := make([]dto.PaymentResponse, 0, len(items))
	for _, p := range items {
		out = append(out, dto.FromPayment(p))
	}
	return c.JSON(out)
}

// ValidatePayment godoc
// @Summary      Validar o rechazar un abono
// @Tags         payments
// @Security     Bearer
// @Accept       json
// @Param        id    path  string  true  "ID del abono"
// @Param        body  body  dto.ValidatePaymentRequest  true  "Decisión del revisor"
// @Success      204
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/payments/{id}/validate [post]
func (h *SalesHandler) ValidatePayment(c *fiber.Ctx) error {
	var in dto.ValidatePaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if err := h.svc.ValidatePayment(c.Context(), c.Params("id"), GetUserID(c), in.Notes, in.Approve); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AssignCost godoc
// @Summary      Asignar una factura de costo a la de venta
// @Tags         sales-invoices
// @Security     Bearer
// @Accept       json
// @Param        id    path  string  true  "ID de la factura de venta"
// @Param        body  body  dto.AssignCostRequest  true  "Costo y monto asignado"
// @Success      204
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales-invoices/{id}/costs [post]
func (h *SalesHandler) AssignCost(c *fiber.Ctx) error {
	var in dto.AssignCostRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.CostInvoiceID == "" {
		return badRequest(c, "VALIDATION", "cost_invoice_id es requerido")
	}
	if err := h.svc.AssignCost(c.Context(), c.Params("id"), in.CostInvoiceID, in.AssignedAmount, in.MarkupPct); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnassignCost godoc
// @Summary      Quitar la asignación de un costo
// @Tags         sales-invoices
// @Security     Bearer
// @Param        id      path  string  true  "ID de la factura de venta"
// @Param        costID  path  string  true  "ID de la factura de costo"
// @Success      204
// @Router       /api/sales-invoices/{id}/costs/{costID} [delete]
func (h *SalesHandler) UnassignCost(c *fiber.Ctx) error {
	if err := h.svc.UnassignCost(c.Context(), c.Params("id"), c.Params("costID")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListMappings godoc
// @Summary      Costos asignados a la factura de venta
// @Tags         sales-invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la factura de venta"
// @Success      200  {array}  dto.MappingResponse
// @Router       /api/sales-invoices/{id}/costs [get]
func (h *SalesHandler) ListMappings(c *fiber.Ctx) error {
	items, err := h.sales.ListMappings(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	out := make([]dto.MappingResponse, 0, len(items))
	for _, m := range items {
		out = append(out, dto.FromMapping(m))
	}
	return c.JSON(out)
}

// itemFromRequest arma la línea con los derivados recalculados.
func itemFromRequest(invoiceID string, lineNumber int, in dto.SalesItemRequest) *entity.SalesInvoiceItem {
	now := time.Now()
	it := &entity.SalesInvoiceItem{
		ID:              uuid.New().String(),
		InvoiceID:       invoiceID,
		LineNumber:      lineNumber,
		Description:     in.Description,
		Concept:         in.Concept,
		ServiceType:     in.ServiceType,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		AppliesVAT:      in.AppliesVAT,
		VATPct:          in.VATPct,
		DiscountPct:     in.DiscountPct,
		ExemptionReason: in.ExemptionReason,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	it.Recalc()
	return it
}
