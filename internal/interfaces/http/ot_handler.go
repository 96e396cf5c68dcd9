package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/logistica-sv/freight-backoffice/internal/application/dto"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/excel"
)

// OTHandler maneja las peticiones HTTP de órdenes de trabajo (protegido).
type OTHandler struct {
	ots     repository.OTRepository
	aliases repository.ClientAliasRepository
}

// NewOTHandler construye el handler.
func NewOTHandler(ots repository.OTRepository, aliases repository.ClientAliasRepository) *OTHandler {
	return &OTHandler{ots: ots, aliases: aliases}
}

// Create godoc
// @Summary      Crear orden de trabajo
// @Tags         ots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOTRequest  true  "Datos de la OT"
// @Success      201   {object}  dto.OTResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ots [post]
func (h *OTHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOTRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Number == "" || in.ClientID == "" {
		return badRequest(c, "VALIDATION", "number y client_id son requeridos")
	}
	now := time.Now()
	ot := &entity.OT{
		ID:              uuid.New().String(),
		Number:          strings.ToUpper(strings.TrimSpace(in.Number)),
		ProviderName:    in.ProviderName,
		ClientID:        in.ClientID,
		MasterBL:        in.MasterBL,
		HouseBLs:        in.HouseBLs,
		Containers:      in.Containers,
		ETA:             in.ETA,
		ETD:             in.ETD,
		OriginPort:      in.OriginPort,
		DestinationPort: in.DestinationPort,
		Operator:        in.Operator,
		OperationType:   in.OperationType,
		Vessel:          in.Vessel,
		ProvisionSource: entity.ProvisionSourceManual,
		BillingStatus:   entity.OTBillingPending,
		ProvisionStatus: entity.OTProvisionPending,
		Comments:        in.Comments,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.ots.Create(c.Context(), ot); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromOT(ot))
}

// GetByID godoc
// @Summary      Obtener OT por ID
// @Tags         ots
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la OT"
// @Success      200  {object}  dto.OTResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ots/{id} [get]
func (h *OTHandler) GetByID(c *fiber.Ctx) error {
	ot, err := h.ots.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if ot == nil {
		return notFound(c, "OT no encontrada")
	}
	return c.JSON(dto.FromOT(ot))
}

// Search godoc
// @Summary      Buscar OTs
// @Tags         ots
// @Security     Bearer
// @Produce      json
// @Param        q                 query  string  false  "Número, MBL o naviera"
// @Param        container         query  string  false  "Contenedor exacto"
// @Param        bl                query  string  false  "Master o House BL"
// @Param        client_id         query  string  false  "Cliente"
// @Param        provision_status  query  string  false  "Estado de provisión"
// @Param        billing_status    query  string  false  "Estado de facturación"
// @Success      200  {object}  dto.OTListResponse
// @Router       /api/ots [get]
func (h *OTHandler) Search(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.DefaultPage()
	items, err := h.ots.Search(c.Context(), repository.OTSearchFilter{
		Query:           c.Query("q"),
		Container:       c.Query("container"),
		BL:              c.Query("bl"),
		ClientID:        c.Query("client_id"),
		ProvisionStatus: c.Query("provision_status"),
		BillingStatus:   c.Query("billing_status"),
		Limit:           page.Limit,
		Offset:          page.Offset,
	})
	if err != nil {
		return fail(c, err)
	}
	out := dto.OTListResponse{
		Items: make([]dto.OTResponse, 0, len(items)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, ot := range items {
		out.Items = append(out.Items, dto.FromOT(ot))
	}
	return c.JSON(out)
}

// Stats godoc
// @Summary      Conteos del tablero de OTs
// @Tags         ots
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.OTStatsResponse
// @Router       /api/ots/stats [get]
func (h *OTHandler) Stats(c *fiber.Ctx) error {
	s, err := h.ots.CardStats(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromOTStats(s))
}

// FilterValues godoc
// @Summary      Valores distintos para filtros de UI
// @Tags         ots
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.OTFilterValuesResponse
// @Router       /api/ots/filters [get]
func (h *OTHandler) FilterValues(c *fiber.Ctx) error {
	v, err := h.ots.FilterValues(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.OTFilterValuesResponse{
		Operators:      v.Operators,
		OperationTypes: v.OperationTypes,
		States:         v.States,
		Providers:      v.Providers,
	})
}

// Update godoc
// @Summary      Actualizar OT
// @Tags         ots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la OT"
// @Param        body  body  dto.UpdateOTRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.OTResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/ots/{id} [put]
func (h *OTHandler) Update(c *fiber.Ctx) error {
	ot, err := h.ots.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if ot == nil {
		return notFound(c, "OT no encontrada")
	}
	var in dto.UpdateOTRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	applyOTPatch(ot, in)
	ot.UpdatedAt = time.Now()
	if err := h.ots.Update(c.Context(), ot); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromOT(ot))
}

// Delete godoc
// @Summary      Eliminar (lógicamente) una OT
// @Tags         ots
// @Security     Bearer
// @Param        id  path  string  true  "ID de la OT"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ots/{id} [delete]
func (h *OTHandler) Delete(c *fiber.Ctx) error {
	ot, err := h.ots.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if ot == nil {
		return notFound(c, "OT no encontrada")
	}
	if err := h.ots.SoftDelete(c.Context(), ot.ID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Export godoc
// @Summary      Exportar OTs a XLSX
// @Tags         ots
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200
// @Router       /api/ots/export [get]
func (h *OTHandler) Export(c *fiber.Ctx) error {
	items, err := h.ots.Search(c.Context(), repository.OTSearchFilter{
		Query:           c.Query("q"),
		ClientID:        c.Query("client_id"),
		ProvisionStatus: c.Query("provision_status"),
		BillingStatus:   c.Query("billing_status"),
		Limit:           10000,
	})
	if err != nil {
		return fail(c, err)
	}

	// Nombre corto del cliente para la columna de exportación.
	clientNames := make(map[string]string)
	for _, ot := range items {
		if _, ok := clientNames[ot.ClientID]; ok || ot.ClientID == "" {
			continue
		}
		a, err := h.aliases.GetByID(c.Context(), ot.ClientID)
		if err != nil {
			return fail(c, err)
		}
		if a != nil {
			clientNames[ot.ClientID] = a.ShortName
		}
	}

	data, err := excel.ExportOTs(items, clientNames)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="ots.xlsx"`)
	return c.Send(data)
}

// applyOTPatch copia a la entidad los campos presentes del request. Los
// cambios de provisión hechos por aquí cuentan como fuente manual.
func applyOTPatch(ot *entity.OT, in dto.UpdateOTRequest) {
	if in.ClientID != nil {
		ot.ClientID = *in.ClientID
	}
	if in.ProviderName != nil {
		ot.ProviderName = *in.ProviderName
	}
	if in.MasterBL != nil {
		ot.MasterBL = *in.MasterBL
	}
	if in.HouseBLs != nil {
		ot.HouseBLs = in.HouseBLs
	}
	if in.Containers != nil {
		ot.Containers = in.Containers
	}
	if in.ETA != nil {
		ot.ETA = in.ETA
	}
	if in.ETD != nil {
		ot.ETD = in.ETD
	}
	if in.Arrival != nil {
		ot.Arrival = in.Arrival
	}
	if in.OriginPort != nil {
		ot.OriginPort = *in.OriginPort
	}
	if in.DestinationPort != nil {
		ot.DestinationPort = *in.DestinationPort
	}
	if in.Operator != nil {
		ot.Operator = *in.Operator
	}
	if in.OperationType != nil {
		ot.OperationType = *in.OperationType
	}
	if in.Vessel != nil {
		ot.Vessel = *in.Vessel
	}
	if in.ProvisionDate != nil {
		ot.ProvisionDate = in.ProvisionDate
		ot.ProvisionSource = entity.ProvisionSourceManual
		if ot.ProvisionStatus == entity.OTProvisionPending {
			ot.ProvisionStatus = entity.OTProvisionProvisioned
		}
	}
	if in.ProvisionLocked != nil {
		ot.ProvisionLocked = *in.ProvisionLocked
	}
	if in.State != nil {
		ot.State = *in.State
	}
	if in.Comments != nil {
		ot.Comments = *in.Comments
	}
}
