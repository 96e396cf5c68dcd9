package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/logistica-sv/freight-backoffice/internal/application/alias"
	"github.com/logistica-sv/freight-backoffice/internal/application/dto"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

// defaultSuggestThreshold umbral por defecto del regenerador de sugerencias.
const defaultSuggestThreshold = 85.0

// AliasHandler maneja las peticiones HTTP de alias de cliente (protegido).
type AliasHandler struct {
	svc     *alias.Service
	aliases repository.ClientAliasRepository
	matches repository.SimilarityMatchRepository
	costs   repository.CostInvoiceRepository
}

// NewAliasHandler construye el handler.
func NewAliasHandler(svc *alias.Service, aliases repository.ClientAliasRepository, matches repository.SimilarityMatchRepository, costs repository.CostInvoiceRepository) *AliasHandler {
	return &AliasHandler{svc: svc, aliases: aliases, matches: matches, costs: costs}
}

// Create godoc
// @Summary      Crear alias de cliente
// @Tags         aliases
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateAliasRequest  true  "Datos del alias"
// @Success      201   {object}  dto.AliasResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/aliases [post]
func (h *AliasHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateAliasRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Name == "" {
		return badRequest(c, "VALIDATION", "name es requerido")
	}
	a, err := h.svc.Resolve(c.Context(), in.Name)
	if err != nil {
		return fail(c, err)
	}
	a.CountryTaxType = in.CountryTaxType
	a.TaxID = in.TaxID
	a.SecondaryTaxID = in.SecondaryTaxID
	a.AppliesVATWithholding = in.AppliesVATWithholding
	a.AppliesIncomeWithholding = in.AppliesIncomeWithholding
	a.IncomeWithholdingPct = in.IncomeWithholdingPct
	a.AcceptsFiscalCredit = in.AcceptsFiscalCredit
	a.UpdatedAt = time.Now()
	if err := h.aliases.Update(c.Context(), a); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromAlias(a))
}

// GetByID godoc
// @Summary      Obtener alias por ID
// @Tags         aliases
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del alias"
// @Success      200  {object}  dto.AliasResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/aliases/{id} [get]
func (h *AliasHandler) GetByID(c *fiber.Ctx) error {
	a, err := h.aliases.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if a == nil {
		return notFound(c, "alias no encontrado")
	}
	return c.JSON(dto.FromAlias(a))
}

// List godoc
// @Summary      Listar alias
// @Tags         aliases
// @Security     Bearer
// @Produce      json
// @Param        search  query  string  false  "Nombre o NIT"
// @Success      200     {object}  dto.AliasListResponse
// @Router       /api/aliases [get]
func (h *AliasHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.DefaultPage()
	items, err := h.aliases.List(c.Context(), c.Query("search"), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	out := dto.AliasListResponse{
		Items: make([]dto.AliasResponse, 0, len(items)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, a := range items {
		out.Items = append(out.Items, dto.FromAlias(a))
	}
	return c.JSON(out)
}

// Stats godoc
// @Summary      Agregados del panel de alias
// @Tags         aliases
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.AliasStatsResponse
// @Router       /api/aliases/stats [get]
func (h *AliasHandler) Stats(c *fiber.Ctx) error {
	s, err := h.svc.Stats(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.AliasStatsResponse{
		Total:    s.Total,
		Verified: s.Verified,
		Merged:   s.Merged,
		Pending:  s.Pending,
	})
}

// Update godoc
// @Summary      Actualizar atributos fiscales del alias
// @Tags         aliases
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del alias"
// @Param        body  body  dto.UpdateAliasRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.AliasResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/aliases/{id} [put]
func (h *AliasHandler) Update(c *fiber.Ctx) error {
	a, err := h.aliases.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if a == nil {
		return notFound(c, "alias no encontrado")
	}
	var in dto.UpdateAliasRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.CountryTaxType != nil {
		a.CountryTaxType = *in.CountryTaxType
	}
	if in.TaxID != nil {
		a.TaxID = *in.TaxID
	}
	if in.SecondaryTaxID != nil {
		a.SecondaryTaxID = *in.SecondaryTaxID
	}
	if in.AppliesVATWithholding != nil {
		a.AppliesVATWithholding = *in.AppliesVATWithholding
	}
	if in.AppliesIncomeWithholding != nil {
		a.AppliesIncomeWithholding = *in.AppliesIncomeWithholding
	}
	if in.IncomeWithholdingPct != nil {
		a.IncomeWithholdingPct = *in.IncomeWithholdingPct
	}
	if in.AcceptsFiscalCredit != nil {
		a.AcceptsFiscalCredit = *in.AcceptsFiscalCredit
	}
	a.UpdatedAt = time.Now()
	if err := h.aliases.Update(c.Context(), a); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromAlias(a))
}

// Rename godoc
// @Summary      Renombrar alias (regenera nombre normalizado y corto)
// @Tags         aliases
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del alias"
// @Param        body  body  dto.RenameAliasRequest  true  "Nuevo nombre"
// @Success      200   {object}  dto.AliasResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/aliases/{id}/rename [post]
func (h *AliasHandler) Rename(c *fiber.Ctx) error {
	var in dto.RenameAliasRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Name == "" {
		return badRequest(c, "VALIDATION", "name es requerido")
	}
	a, err := h.svc.Rename(c.Context(), c.Params("id"), in.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromAlias(a))
}

// RegenerateShortName godoc
// @Summary      Regenerar el nombre corto del alias
// @Tags         aliases
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del alias"
// @Success      200  {object}  dto.AliasResponse
// @Router       /api/aliases/{id}/short-name [post]
func (h *AliasHandler) RegenerateShortName(c *fiber.Ctx) error {
	a, err := h.svc.RegenerateShortName(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromAlias(a))
}

// Verify godoc
// @Summary      Marcar alias como verificado
// @Tags         aliases
// @Security     Bearer
// @Param        id  path  string  true  "ID del alias"
// @Success      204
// @Router       /api/aliases/{id}/verify [post]
func (h *AliasHandler) Verify(c *fiber.Ctx) error {
	if err := h.svc.Verify(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete godoc
// @Summary      Eliminar (lógicamente) un alias
// @Tags         aliases
// @Security     Bearer
// @Param        id  path  string  true  "ID del alias"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/aliases/{id} [delete]
func (h *AliasHandler) Delete(c *fiber.Ctx) error {
	a, err := h.aliases.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if a == nil {
		return notFound(c, "alias no encontrado")
	}
	if err := h.aliases.SoftDelete(c.Context(), a.ID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Merge godoc
// @Summary      Fusionar un alias origen en uno destino
// @Tags         aliases
// @Security     Bearer
// @Accept       json
// @Param        body  body  dto.MergeAliasRequest  true  "Origen, destino y nombre final"
// @Success      204
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/aliases/merge [post]
func (h *AliasHandler) Merge(c *fiber.Ctx) error {
	var in dto.MergeAliasRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.SourceID == "" || in.TargetID == "" {
		return badRequest(c, "VALIDATION", "source_id y target_id son requeridos")
	}
	if err := h.svc.Merge(c.Context(), in.SourceID, in.TargetID, in.FinalName, GetUserID(c)); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BulkMerge godoc
// @Summary      Fusionar varios alias en un mismo destino
// @Tags         aliases
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkMergeRequest  true  "Fuentes y destino"
// @Success      200   {object}  map[string]int
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/aliases/merge/bulk [post]
func (h *AliasHandler) BulkMerge(c *fiber.Ctx) error {
	var in dto.BulkMergeRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.TargetID == "" || len(in.SourceIDs) == 0 {
		return badRequest(c, "VALIDATION", "target_id y source_ids son requeridos")
	}
	reviewer := GetUserID(c)
	merged := 0
	for _, sourceID := range in.SourceIDs {
		if sourceID == in.TargetID {
			continue
		}
		if err := h.svc.Merge(c.Context(), sourceID, in.TargetID, in.FinalName, reviewer); err != nil {
			return fail(c, err)
		}
		merged++
	}
	return c.JSON(fiber.Map{"merged": merged})
}

// BulkCreate godoc
// @Summary      Creación masiva de alias desde nombres crudos
// @Tags         aliases
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkAliasRequest  true  "Nombres o marca from_invoices"
// @Success      200   {object}  map[string]int
// @Router       /api/aliases/bulk [post]
func (h *AliasHandler) BulkCreate(c *fiber.Ctx) error {
	var in dto.BulkAliasRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	names := in.Names
	if in.FromInvoices {
		var err error
		names, err = h.costs.DistinctProviderNames(c.Context())
		if err != nil {
			return fail(c, err)
		}
	}
	created, err := h.svc.BulkCreateFromNames(c.Context(), names)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"created": created, "seen": len(names)})
}

// Suggest godoc
// @Summary      Regenerar sugerencias de similitud
// @Tags         similarity
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SuggestRequest  false  "Umbral y tope por alias"
// @Success      200   {object}  dto.SuggestReportResponse
// @Router       /api/similarity/suggest [post]
func (h *AliasHandler) Suggest(c *fiber.Ctx) error {
	in := dto.SuggestRequest{Threshold: defaultSuggestThreshold, LimitPerAlias: 5}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "INVALID_BODY", "cuerpo inválido")
		}
	}
	if in.Threshold <= 0 {
		in.Threshold = defaultSuggestThreshold
	}
	report, err := h.svc.SuggestPairs(c.Context(), in.Threshold, in.LimitPerAlias)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.SuggestReportResponse{
		Compared:     report.Compared,
		Created:      report.Created,
		Skipped:      report.Skipped,
		SweptMerged:  report.SweptMerged,
		SweptRescore: report.SweptRescore,
	})
}

// PendingMatches godoc
// @Summary      Sugerencias pendientes de revisión
// @Tags         similarity
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.SimilarityMatchResponse
// @Router       /api/similarity/pending [get]
func (h *AliasHandler) PendingMatches(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.DefaultPage()
	items, err := h.matches.ListPending(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	out := make([]dto.SimilarityMatchResponse, 0, len(items))
	for _, m := range items {
		out = append(out, dto.FromSimilarityMatch(m))
	}
	return c.JSON(out)
}

// ApproveMatch godoc
// @Summary      Aprobar una sugerencia (fusiona los alias)
// @Tags         similarity
// @Security     Bearer
// @Accept       json
// @Param        id    path  string  true  "ID de la sugerencia"
// @Param        body  body  dto.MergeAliasRequest  true  "Destino y nombre final"
// @Success      204
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/similarity/{id}/approve [post]
func (h *AliasHandler) ApproveMatch(c *fiber.Ctx) error {
	m, err := h.matches.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if m == nil {
		return notFound(c, "sugerencia no encontrada")
	}
	var in dto.MergeAliasRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	// El destino debe ser uno de los dos lados; el otro es el origen.
	source := ""
	switch in.TargetID {
	case m.Alias1ID:
		source = m.Alias2ID
	case m.Alias2ID:
		source = m.Alias1ID
	default:
		return badRequest(c, "VALIDATION", "target_id no pertenece a la sugerencia")
	}
	if err := h.svc.Merge(c.Context(), source, in.TargetID, in.FinalName, GetUserID(c)); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RejectMatch godoc
// @Summary      Rechazar una sugerencia de similitud
// @Tags         similarity
// @Security     Bearer
// @Accept       json
// @Param        id    path  string  true  "ID de la sugerencia"
// @Param        body  body  dto.ReviewMatchRequest  false  "Notas del revisor"
// @Success      204
// @Router       /api/similarity/{id}/reject [post]
func (h *AliasHandler) RejectMatch(c *fiber.Ctx) error {
	var in dto.ReviewMatchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "INVALID_BODY", "cuerpo inválido")
		}
	}
	if err := h.svc.RejectMatch(c.Context(), c.Params("id"), GetUserID(c), in.Notes); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// FindSimilar godoc
// @Summary      Candidatos similares a un alias
// @Tags         similarity
// @Security     Bearer
// @Produce      json
// @Param        id         path   string   true   "ID del alias"
// @Param        threshold  query  number   false  "Umbral 0-100"
// @Success      200  {array}  dto.AliasResponse
// @Router       /api/aliases/{id}/similar [get]
func (h *AliasHandler) FindSimilar(c *fiber.Ctx) error {
	threshold := c.QueryFloat("threshold", defaultSuggestThreshold)
	cands, err := h.svc.FindSimilar(c.Context(), c.Params("id"), threshold)
	if err != nil {
		return fail(c, err)
	}
	type candidate struct {
		Alias      dto.AliasResponse `json:"alias"`
		Score      float64           `json:"score"`
		Confidence string            `json:"confidence"`
		Action     string            `json:"action"`
	}
	out := make([]candidate, 0, len(cands))
	for _, cd := range cands {
		out = append(out, candidate{
			Alias:      dto.FromAlias(cd.Alias),
			Score:      cd.Result.Score,
			Confidence: cd.Result.Confidence,
			Action:     cd.Result.Action,
		})
	}
	return c.JSON(out)
}
