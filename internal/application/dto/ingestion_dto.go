package dto

import (
	"time"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// IngestResponse resultado de subir un documento de costo.
type IngestResponse struct {
	Invoice     CostInvoiceResponse `json:"invoice"`
	Duplicate   bool                `json:"duplicate"`
	MatchMethod string              `json:"match_method,omitempty"`
	NeedsReview bool                `json:"needs_review"`
}

// BulkUploadItemResponse resultado de un archivo dentro de una carga masiva.
type BulkUploadItemResponse struct {
	Filename    string `json:"filename"`
	Status      string `json:"status"` // created | duplicate | error
	InvoiceID   string `json:"invoice_id,omitempty"`
	MatchMethod string `json:"match_method,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BulkUploadResponse reporte por archivo de una carga masiva de documentos.
type BulkUploadResponse struct {
	Results    []BulkUploadItemResponse `json:"results"`
	Created    int                      `json:"created"`
	Duplicates int                      `json:"duplicates"`
	Failed     int                      `json:"failed"`
}

// EmailConfigRequest configuración del poller de correo.
type EmailConfigRequest struct {
	IsActive             bool     `json:"is_active"`
	CheckIntervalMinutes int      `json:"check_interval_minutes"`
	TargetFolders        []string `json:"target_folders"`
	SubjectFilters       []string `json:"subject_filters"`
	SenderWhitelist      []string `json:"sender_whitelist"`
	AutoParseEnabled     bool     `json:"auto_parse_enabled"`
	MaxEmailsPerRun      int      `json:"max_emails_per_run"`
}

// EmailConfigResponse configuración vigente del poller.
type EmailConfigResponse struct {
	IsActive             bool      `json:"is_active"`
	CheckIntervalMinutes int       `json:"check_interval_minutes"`
	TargetFolders        []string  `json:"target_folders"`
	SubjectFilters       []string  `json:"subject_filters"`
	SenderWhitelist      []string  `json:"sender_whitelist"`
	AutoParseEnabled     bool      `json:"auto_parse_enabled"`
	MaxEmailsPerRun      int       `json:"max_emails_per_run"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// EmailLogResponse entrada de la bitácora de correos.
type EmailLogResponse struct {
	ID          string    `json:"id"`
	MessageID   string    `json:"message_id"`
	Subject     string    `json:"subject,omitempty"`
	Sender      string    `json:"sender,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
	Folder      string    `json:"folder,omitempty"`
	Status      string    `json:"status"`
	Detail      string    `json:"detail,omitempty"`
	Attachments int       `json:"attachments"`
	CreatedAt   time.Time `json:"created_at"`
}

// PollReportResponse resultado de una corrida manual del poller.
type PollReportResponse struct {
	MessagesSeen    int `json:"messages_seen"`
	Processed       int `json:"processed"`
	Skipped         int `json:"skipped"`
	Failed          int `json:"failed"`
	InvoicesCreated int `json:"invoices_created"`
	Duplicates      int `json:"duplicates"`
}

// PatternRequest alta o edición de un patrón de extracción.
type PatternRequest struct {
	ProviderTaxID    string `json:"provider_tax_id"`
	Kind             string `json:"kind"`
	TargetField      string `json:"target_field"`
	Code             string `json:"code"`
	Display          string `json:"display"`
	ValueType        string `json:"value_type"`
	Regex            string `json:"regex" validate:"required"`
	Priority         int    `json:"priority"`
	ProviderSpecific bool   `json:"provider_specific"`
	Active           bool   `json:"active"`
}

// PatternResponse fila del catálogo de patrones.
type PatternResponse struct {
	ID               string    `json:"id"`
	ProviderTaxID    string    `json:"provider_tax_id,omitempty"`
	Kind             string    `json:"kind"`
	TargetField      string    `json:"target_field,omitempty"`
	Code             string    `json:"code,omitempty"`
	Display          string    `json:"display,omitempty"`
	ValueType        string    `json:"value_type"`
	Regex            string    `json:"regex"`
	Priority         int       `json:"priority"`
	ProviderSpecific bool      `json:"provider_specific"`
	Active           bool      `json:"active"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProviderRequest alta o edición de un proveedor.
type ProviderRequest struct {
	Name       string `json:"name" validate:"required"`
	TaxID      string `json:"tax_id"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	HasCredit  bool   `json:"has_credit"`
	CreditDays int    `json:"credit_days"`
}

// ProviderResponse salida de un proveedor.
type ProviderResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	TaxID      string    `json:"tax_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	HasCredit  bool      `json:"has_credit"`
	CreditDays int       `json:"credit_days"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FromEmailConfig mapea la configuración del poller.
func FromEmailConfig(c *entity.EmailAutoProcessingConfig) EmailConfigResponse {
	return EmailConfigResponse{
		IsActive:             c.IsActive,
		CheckIntervalMinutes: c.CheckIntervalMinutes,
		TargetFolders:        c.TargetFolders,
		SubjectFilters:       c.SubjectFilters,
		SenderWhitelist:      c.SenderWhitelist,
		AutoParseEnabled:     c.AutoParseEnabled,
		MaxEmailsPerRun:      c.MaxEmailsPerRun,
		UpdatedAt:            c.UpdatedAt,
	}
}

// FromEmailLog mapea una entrada de bitácora.
func FromEmailLog(l *entity.EmailProcessingLog) EmailLogResponse {
	return EmailLogResponse{
		ID:          l.ID,
		MessageID:   l.MessageID,
		Subject:     l.Subject,
		Sender:      l.Sender,
		ReceivedAt:  l.ReceivedAt,
		Folder:      l.Folder,
		Status:      l.Status,
		Detail:      l.Detail,
		Attachments: l.Attachments,
		CreatedAt:   l.CreatedAt,
	}
}

// FromPatternRow mapea una fila del catálogo.
func FromPatternRow(p *entity.PatternRow) PatternResponse {
	return PatternResponse{
		ID:               p.ID,
		ProviderTaxID:    p.ProviderTaxID,
		Kind:             p.Kind,
		TargetField:      p.TargetField,
		Code:             p.Code,
		Display:          p.Display,
		ValueType:        p.ValueType,
		Regex:            p.Regex,
		Priority:         p.Priority,
		ProviderSpecific: p.ProviderSpecific,
		Active:           p.Active,
		UpdatedAt:        p.UpdatedAt,
	}
}

// FromProvider mapea un proveedor.
func FromProvider(p *entity.Provider) ProviderResponse {
	return ProviderResponse{
		ID:         p.ID,
		Name:       p.Name,
		TaxID:      p.TaxID,
		Email:      p.Email,
		Phone:      p.Phone,
		HasCredit:  p.HasCredit,
		CreditDays: p.CreditDays,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
