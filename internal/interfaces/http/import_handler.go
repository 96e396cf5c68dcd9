package http

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/logistica-sv/freight-backoffice/internal/application/importer"
	"github.com/logistica-sv/freight-backoffice/internal/domain"
)

// ImportHandler maneja la importación masiva de OTs desde Excel (protegido).
type ImportHandler struct {
	svc *importer.Service
}

// NewImportHandler construye el handler.
func NewImportHandler(svc *importer.Service) *ImportHandler {
	return &ImportHandler{svc: svc}
}

// Import godoc
// @Summary      Importar OTs desde archivos Excel
// @Description  Primera llamada sin decisiones: si hay conflictos responde 409
// @Description  con el reporte y no escribe nada. Segunda llamada con los
// @Description  mismos archivos más las decisiones en el campo decisions.
// @Tags         imports
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        files      formData  file    true   "Archivos .xlsx"
// @Param        decisions  formData  string  false  "JSON con las resoluciones de conflicto"
// @Success      200  {object}  importer.Report
// @Failure      409  {object}  importer.Report  "Conflictos pendientes de decisión"
// @Router       /api/imports/excel [post]
func (h *ImportHandler) Import(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "INVALID_FORM", "formulario multipart requerido")
	}
	fhs := form.File["files"]
	if len(fhs) == 0 {
		return badRequest(c, "MISSING_FILES", "campo files requerido")
	}

	files := make([]importer.File, 0, len(fhs))
	for _, fh := range fhs {
		f, err := fh.Open()
		if err != nil {
			return fail(c, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fail(c, err)
		}
		files = append(files, importer.File{Name: fh.Filename, Data: data})
	}

	var decisions []importer.Resolution
	if raw := c.FormValue("decisions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &decisions); err != nil {
			return badRequest(c, "INVALID_DECISIONS", "decisions no es JSON válido")
		}
	}

	report, err := h.svc.Import(c.Context(), files, decisions)
	if err != nil {
		if errors.Is(err, domain.ErrConflictPending) && report != nil {
			return c.Status(fiber.StatusConflict).JSON(report)
		}
		return fail(c, err)
	}
	return c.JSON(report)
}
