package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/logistica-sv/freight-backoffice/internal/application/dto"
	"github.com/logistica-sv/freight-backoffice/internal/application/lifecycle"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

// DisputeHandler maneja las peticiones HTTP de reclamos (protegido).
type DisputeHandler struct {
	svc      *lifecycle.DisputeService
	disputes repository.DisputeRepository
}

// NewDisputeHandler construye el handler.
func NewDisputeHandler(svc *lifecycle.DisputeService, disputes repository.DisputeRepository) *DisputeHandler {
	return &DisputeHandler{svc: svc, disputes: disputes}
}

// Create godoc
// @Summary      Abrir reclamo contra una factura de costo
// @Tags         disputes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateDisputeRequest  true  "Datos del reclamo"
// @Success      201   {object}  dto.DisputeResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/disputes [post]
func (h *DisputeHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDisputeRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.CostInvoiceID == "" {
		return badRequest(c, "VALIDATION", "cost_invoice_id es requerido")
	}
	d, err := h.svc.Create(c.Context(), lifecycle.CreateInput{
		CostInvoiceID:  in.CostInvoiceID,
		Kind:           in.Kind,
		Detail:         in.Detail,
		DisputedAmount: in.DisputedAmount,
		Actor:          GetUserID(c),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromDispute(d))
}

// GetByID godoc
// @Summary      Obtener reclamo con su bitácora
// @Tags         disputes
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del reclamo"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/disputes/{id} [get]
func (h *DisputeHandler) GetByID(c *fiber.Ctx) error {
	d, err := h.disputes.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if d == nil {
		return notFound(c, "reclamo no encontrado")
	}
	events, err := h.disputes.ListEvents(c.Context(), d.ID)
	if err != nil {
		return fail(c, err)
	}
	evs := make([]dto.DisputeEventResponse, 0, len(events))
	for _, e := range events {
		evs = append(evs, dto.FromDisputeEvent(e))
	}
	return c.JSON(fiber.Map{"dispute": dto.FromDispute(d), "events": evs})
}

// List godoc
// @Summary      Listar reclamos
// @Tags         disputes
// @Security     Bearer
// @Produce      json
// @Param        state       query  string  false  "Estado del reclamo"
// @Param        invoice_id  query  string  false  "Solo los de una factura"
// @Success      200  {array}  dto.DisputeResponse
// @Router       /api/disputes [get]
func (h *DisputeHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.DefaultPage()

	var items []*entity.Dispute
	var err error
	if invoiceID := c.Query("invoice_id"); invoiceID != "" {
		items, err = h.disputes.ListByInvoice(c.Context(), invoiceID)
	} else {
		items, err = h.disputes.List(c.Context(), c.Query("state"), page.Limit, page.Offset)
	}
	if err != nil {
		return fail(c, err)
	}
	out := make([]dto.DisputeResponse, 0, len(items))
	for _, d := range items {
		out = append(out, dto.FromDispute(d))
	}
	return c.JSON(out)
}

// Transition godoc
// @Summary      Cambiar el estado del reclamo
// @Tags         disputes
// @Security     Bearer
// @Accept       json
// @Param        id    path  string  true  "ID del reclamo"
// @Param        body  body  dto.TransitionDisputeRequest  true  "Nuevo estado"
// @Success      204
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/disputes/{id}/transition [post]
func (h *DisputeHandler) Transition(c *fiber.Ctx) error {
	var in dto.TransitionDisputeRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.State == "" {
		return badRequest(c, "VALIDATION", "state es requerido")
	}
	if err := h.svc.Transition(c.Context(), c.Params("id"), in.State, GetUserID(c), in.Note); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Comment godoc
// @Summary      Comentar en la bitácora del reclamo
// @Tags         disputes
// @Security     Bearer
// @Accept       json
// @Param        id    path  string  true  "ID del reclamo"
// @Param        body  body  dto.CommentDisputeRequest  true  "Texto del comentario"
// @Success      204
// @Router       /api/disputes/{id}/comments [post]
func (h *DisputeHandler) Comment(c *fiber.Ctx) error {
	var in dto.CommentDisputeRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Text == "" {
		return badRequest(c, "VALIDATION", "text es requerido")
	}
	if err := h.svc.Comment(c.Context(), c.Params("id"), in.Text, GetUserID(c)); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Resolve godoc
// @Summary      Resolver el reclamo
// @Tags         disputes
// @Security     Bearer
// @Accept       json
// @Param        id    path  string  true  "ID del reclamo"
// @Param        body  body  dto.ResolveDisputeRequest  true  "Resultado y monto recuperado"
// @Success      204
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/disputes/{id}/resolve [post]
func (h *DisputeHandler) Resolve(c *fiber.Ctx) error {
	var in dto.ResolveDisputeRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Outcome == "" {
		return badRequest(c, "VALIDATION", "outcome es requerido")
	}
	err := h.svc.Resolve(c.Context(), lifecycle.ResolveInput{
		DisputeID:        c.Params("id"),
		Outcome:          in.Outcome,
		RecoveredAmount:  in.RecoveredAmount,
		Actor:            GetUserID(c),
		Note:             in.Note,
		CreditNoteNumber: in.CreditNoteNumber,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
