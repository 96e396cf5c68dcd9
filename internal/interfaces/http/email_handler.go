package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/logistica-sv/freight-backoffice/internal/application/dto"
	"github.com/logistica-sv/freight-backoffice/internal/application/mail"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

// EmailHandler maneja la configuración y bitácora del poller de correo
// (protegido, solo admin).
type EmailHandler struct {
	config repository.EmailConfigRepository
	logs   repository.EmailLogRepository
	poller *mail.Poller
}

// NewEmailHandler construye el handler.
func NewEmailHandler(config repository.EmailConfigRepository, logs repository.EmailLogRepository, poller *mail.Poller) *EmailHandler {
	return &EmailHandler{config: config, logs: logs, poller: poller}
}

// GetConfig godoc
// @Summary      Configuración vigente del poller
// @Tags         email
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.EmailConfigResponse
// @Router       /api/email/config [get]
func (h *EmailHandler) GetConfig(c *fiber.Ctx) error {
	cfg, err := h.config.Get(c.Context())
	if err != nil {
		return fail(c, err)
	}
	if cfg == nil {
		// Sin fila aún: se responde la configuración por defecto inactiva.
		cfg = &entity.EmailAutoProcessingConfig{
			CheckIntervalMinutes: 15,
			MaxEmailsPerRun:      50,
		}
	}
	return c.JSON(dto.FromEmailConfig(cfg))
}

// SaveConfig godoc
// @Summary      Guardar configuración del poller
// @Tags         email
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EmailConfigRequest  true  "Configuración"
// @Success      200   {object}  dto.EmailConfigResponse
// @Router       /api/email/config [put]
func (h *EmailHandler) SaveConfig(c *fiber.Ctx) error {
	var in dto.EmailConfigRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	// La tabla guarda una sola fila: se conserva el ID existente si lo hay.
	id := uuid.New().String()
	if current, err := h.config.Get(c.Context()); err != nil {
		return fail(c, err)
	} else if current != nil {
		id = current.ID
	}
	cfg := &entity.EmailAutoProcessingConfig{
		ID:                   id,
		IsActive:             in.IsActive,
		CheckIntervalMinutes: in.CheckIntervalMinutes,
		TargetFolders:        in.TargetFolders,
		SubjectFilters:       in.SubjectFilters,
		SenderWhitelist:      in.SenderWhitelist,
		AutoParseEnabled:     in.AutoParseEnabled,
		MaxEmailsPerRun:      in.MaxEmailsPerRun,
		UpdatedAt:            time.Now(),
	}
	if err := h.config.Save(c.Context(), cfg); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromEmailConfig(cfg))
}

// ListLogs godoc
// @Summary      Bitácora de correos procesados
// @Tags         email
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.EmailLogResponse
// @Router       /api/email/logs [get]
func (h *EmailHandler) ListLogs(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.DefaultPage()
	items, err := h.logs.List(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	out := make([]dto.EmailLogResponse, 0, len(items))
	for _, l := range items {
		out = append(out, dto.FromEmailLog(l))
	}
	return c.JSON(out)
}

// Run godoc
// @Summary      Correr el poller una vez, fuera del cron
// @Tags         email
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.PollReportResponse
// @Router       /api/email/run [post]
func (h *EmailHandler) Run(c *fiber.Ctx) error {
	report, err := h.poller.RunOnce(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.PollReportResponse{
		MessagesSeen:    report.MessagesSeen,
		Processed:       report.Processed,
		Skipped:         report.Skipped,
		Failed:          report.Failed,
		InvoicesCreated: report.InvoicesCreated,
		Duplicates:      report.Duplicates,
	})
}
