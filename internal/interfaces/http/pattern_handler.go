package http

import (
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/logistica-sv/freight-backoffice/internal/application/dto"
	"github.com/logistica-sv/freight-backoffice/internal/application/parser"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

// PatternHandler maneja el catálogo de patrones de extracción (protegido,
// solo admin). Toda escritura invalida la caché del catálogo.
type PatternHandler struct {
	patterns repository.PatternRepository
	catalog  *parser.Catalog
}

// NewPatternHandler construye el handler.
func NewPatternHandler(patterns repository.PatternRepository, catalog *parser.Catalog) *PatternHandler {
	return &PatternHandler{patterns: patterns, catalog: catalog}
}

// List godoc
// @Summary      Patrones activos de un proveedor más los genéricos
// @Tags         patterns
// @Security     Bearer
// @Produce      json
// @Param        provider_tax_id  query  string  false  "NIT del proveedor"
// @Success      200  {array}  dto.PatternResponse
// @Router       /api/patterns [get]
func (h *PatternHandler) List(c *fiber.Ctx) error {
	items, err := h.patterns.ListActive(c.Context(), c.Query("provider_tax_id"))
	if err != nil {
		return fail(c, err)
	}
	out := make([]dto.PatternResponse, 0, len(items))
	for _, p := range items {
		out = append(out, dto.FromPatternRow(p))
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear patrón de extracción
// @Tags         patterns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PatternRequest  true  "Datos del patrón"
// @Success      201   {object}  dto.PatternResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/patterns [post]
func (h *PatternHandler) Create(c *fiber.Ctx) error {
	var in dto.PatternRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Regex == "" {
		return badRequest(c, "VALIDATION", "regex es requerido")
	}
	if _, err := regexp.Compile(in.Regex); err != nil {
		return badRequest(c, "INVALID_REGEX", "regex no compila: "+err.Error())
	}
	p := rowFromRequest(in)
	p.ID = uuid.New().String()
	if err := h.patterns.Create(c.Context(), p); err != nil {
		return fail(c, err)
	}
	h.catalog.Invalidate()
	return c.Status(fiber.StatusCreated).JSON(dto.FromPatternRow(p))
}

// Update godoc
// @Summary      Actualizar patrón de extracción
// @Tags         patterns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del patrón"
// @Param        body  body  dto.PatternRequest  true  "Datos del patrón"
// @Success      200   {object}  dto.PatternResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/patterns/{id} [put]
func (h *PatternHandler) Update(c *fiber.Ctx) error {
	var in dto.PatternRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if _, err := regexp.Compile(in.Regex); err != nil {
		return badRequest(c, "INVALID_REGEX", "regex no compila: "+err.Error())
	}
	p := rowFromRequest(in)
	p.ID = c.Params("id")
	if err := h.patterns.Update(c.Context(), p); err != nil {
		return fail(c, err)
	}
	h.catalog.Invalidate()
	return c.JSON(dto.FromPatternRow(p))
}

// Delete godoc
// @Summary      Eliminar patrón de extracción
// @Tags         patterns
// @Security     Bearer
// @Param        id  path  string  true  "ID del patrón"
// @Success      204
// @Router       /api/patterns/{id} [delete]
func (h *PatternHandler) Delete(c *fiber.Ctx) error {
	if err := h.patterns.Delete(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	h.catalog.Invalidate()
	return c.SendStatus(fiber.StatusNoContent)
}

func rowFromRequest(in dto.PatternRequest) *entity.PatternRow {
	kind := in.Kind
	if kind == "" {
		kind = entity.PatternKindModern
	}
	return &entity.PatternRow{
		ProviderTaxID:    in.ProviderTaxID,
		Kind:             kind,
		TargetField:      in.TargetField,
		Code:             in.Code,
		Display:          in.Display,
		ValueType:        in.ValueType,
		Regex:            in.Regex,
		Priority:         in.Priority,
		ProviderSpecific: in.ProviderSpecific,
		Active:           in.Active,
		UpdatedAt:        time.Now(),
	}
}
