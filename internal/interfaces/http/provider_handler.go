package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/logistica-sv/freight-backoffice/internal/application/dto"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

// ProviderHandler maneja las peticiones HTTP de proveedores (protegido).
type ProviderHandler struct {
	providers repository.ProviderRepository
}

// NewProviderHandler construye el handler.
func NewProviderHandler(providers repository.ProviderRepository) *ProviderHandler {
	return &ProviderHandler{providers: providers}
}

// Create godoc
// @Summary      Crear proveedor
// @Tags         providers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProviderRequest  true  "Datos del proveedor"
// @Success      201   {object}  dto.ProviderResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/providers [post]
func (h *ProviderHandler) Create(c *fiber.Ctx) error {
	var in dto.ProviderRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Name == "" {
		return badRequest(c, "VALIDATION", "name es requerido")
	}
	now := time.Now()
	p := &entity.Provider{
		ID:         uuid.New().String(),
		Name:       in.Name,
		TaxID:      in.TaxID,
		Email:      in.Email,
		Phone:      in.Phone,
		HasCredit:  in.HasCredit,
		CreditDays: in.CreditDays,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.providers.Create(c.Context(), p); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromProvider(p))
}

// GetByID godoc
// @Summary      Obtener proveedor por ID
// @Tags         providers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del proveedor"
// @Success      200  {object}  dto.ProviderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/providers/{id} [get]
func (h *ProviderHandler) GetByID(c *fiber.Ctx) error {
	p, err := h.providers.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if p == nil {
		return notFound(c, "proveedor no encontrado")
	}
	return c.JSON(dto.FromProvider(p))
}

// List godoc
// @Summary      Listar proveedores
// @Tags         providers
// @Security     Bearer
// @Produce      json
// @Param        search  query  string  false  "Nombre o NIT"
// @Success      200     {array}  dto.ProviderResponse
// @Router       /api/providers [get]
func (h *ProviderHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.DefaultPage()
	items, err := h.providers.List(c.Context(), c.Query("search"), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	out := make([]dto.ProviderResponse, 0, len(items))
	for _, p := range items {
		out = append(out, dto.FromProvider(p))
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar proveedor
// @Tags         providers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del proveedor"
// @Param        body  body  dto.ProviderRequest  true  "Datos del proveedor"
// @Success      200   {object}  dto.ProviderResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/providers/{id} [put]
func (h *ProviderHandler) Update(c *fiber.Ctx) error {
	p, err := h.providers.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if p == nil {
		return notFound(c, "proveedor no encontrado")
	}
	var in dto.ProviderRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Name != "" {
		p.Name = in.Name
	}
	p.TaxID = in.TaxID
	p.Email = in.Email
	p.Phone = in.Phone
	p.HasCredit = in.HasCredit
	p.CreditDays = in.CreditDays
	p.UpdatedAt = time.Now()
	if err := h.providers.Update(c.Context(), p); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromProvider(p))
}

// Delete godoc
// @Summary      Eliminar (lógicamente) un proveedor
// @Tags         providers
// @Security     Bearer
// @Param        id  path  string  true  "ID del proveedor"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/providers/{id} [delete]
func (h *ProviderHandler) Delete(c *fiber.Ctx) error {
	p, err := h.providers.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if p == nil {
		return notFound(c, "proveedor no encontrado")
	}
	if err := h.providers.SoftDelete(c.Context(), p.ID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
