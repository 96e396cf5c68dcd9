package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// DetectedRefDTO referencia extraída del documento.
type DetectedRefDTO struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// CreateCostInvoiceRequest entrada para crear una factura de costo manual.
type CreateCostInvoiceRequest struct {
	Number        string          `json:"number" validate:"required"`
	ProviderID    *string         `json:"provider_id"`
	ProviderName  string          `json:"provider_name"`
	ProviderTaxID string          `json:"provider_tax_id"`
	CostType      string          `json:"cost_type"`
	IssueDate     time.Time       `json:"issue_date" validate:"required"`
	PaymentTerms  string          `json:"payment_terms"`
	CreditDays    int             `json:"credit_days"`
	Amount        decimal.Decimal `json:"amount"`
	OTID          *string         `json:"ot_id"`
	ProvisionDate *time.Time      `json:"provision_date"`
}

// UpdateCostInvoiceRequest entrada para actualizar una factura de costo.
// Los campos nil no se tocan.
type UpdateCostInvoiceRequest struct {
	Number        *string          `json:"number"`
	ProviderName  *string          `json:"provider_name"`
	ProviderTaxID *string          `json:"provider_tax_id"`
	CostType      *string          `json:"cost_type"`
	IssueDate     *time.Time       `json:"issue_date"`
	PaymentTerms  *string          `json:"payment_terms"`
	CreditDays    *int             `json:"credit_days"`
	Amount        *decimal.Decimal `json:"amount"`
	OTID          *string          `json:"ot_id"`
	ClearOT       bool             `json:"clear_ot"`
	ProvisionDate *time.Time       `json:"provision_date"`
	NeedsReview   *bool            `json:"needs_review"`
}

// CostInvoiceResponse salida de una factura de costo.
type CostInvoiceResponse struct {
	ID               string           `json:"id"`
	Number           string           `json:"number"`
	ProviderID       *string          `json:"provider_id,omitempty"`
	ProviderName     string           `json:"provider_name"`
	ProviderTaxID    string           `json:"provider_tax_id"`
	CostType         string           `json:"cost_type"`
	IssueDate        time.Time        `json:"issue_date"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	PaymentTerms     string           `json:"payment_terms"`
	CreditDays       int              `json:"credit_days"`
	AmountOriginal   *decimal.Decimal `json:"amount_original,omitempty"`
	Amount           decimal.Decimal  `json:"amount"`
	AmountApplicable decimal.Decimal  `json:"amount_applicable"`
	OTID             *string          `json:"ot_id,omitempty"`
	OTNumber         string           `json:"ot_number,omitempty"`
	DetectedRefs     []DetectedRefDTO `json:"detected_refs,omitempty"`
	MatchConfidence  float64          `json:"match_confidence"`
	MatchMethod      string           `json:"match_method,omitempty"`
	NeedsReview      bool             `json:"needs_review"`
	ProvisionStatus  string           `json:"provision_status"`
	ProvisionDate    *time.Time       `json:"provision_date,omitempty"`
	BillingStatus    string           `json:"billing_status"`
	BillingDate      *time.Time       `json:"billing_date,omitempty"`
	UploadedFileID   *string          `json:"uploaded_file_id,omitempty"`
	ProcessingSource string           `json:"processing_source,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// CostInvoiceListResponse lista paginada de facturas de costo.
type CostInvoiceListResponse struct {
	Items []CostInvoiceResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// CostStatsResponse agregados del panel de costos.
type CostStatsResponse struct {
	Total            int             `json:"total"`
	ByProvision      map[string]int  `json:"by_provision"`
	ByBilling        map[string]int  `json:"by_billing"`
	AmountTotal      decimal.Decimal `json:"amount_total"`
	AmountApplicable decimal.Decimal `json:"amount_applicable"`
	NeedsReview      int             `json:"needs_review"`
}

// FromCostInvoice mapea la entidad a su respuesta.
func FromCostInvoice(inv *entity.CostInvoice) CostInvoiceResponse {
	refs := make([]DetectedRefDTO, 0, len(inv.DetectedRefs))
	for _, r := range inv.DetectedRefs {
		refs = append(refs, DetectedRefDTO{Kind: r.Kind, Value: r.Value})
	}
	return CostInvoiceResponse{
		ID:               inv.ID,
		Number:           inv.Number,
		ProviderID:       inv.ProviderID,
		ProviderName:     inv.ProviderName,
		ProviderTaxID:    inv.ProviderTaxID,
		CostType:         inv.CostType,
		IssueDate:        inv.IssueDate,
		DueDate:          inv.DueDate,
		PaymentTerms:     inv.PaymentTerms,
		CreditDays:       inv.CreditDays,
		AmountOriginal:   inv.AmountOriginal,
		Amount:           inv.Amount,
		AmountApplicable: inv.AmountApplicableEffective(),
		OTID:             inv.OTID,
		OTNumber:         inv.OTNumberDenorm,
		DetectedRefs:     refs,
		MatchConfidence:  inv.MatchConfidence,
		MatchMethod:      inv.MatchMethod,
		NeedsReview:      inv.NeedsReview,
		ProvisionStatus:  inv.ProvisionStatus,
		ProvisionDate:    inv.ProvisionDate,
		BillingStatus:    inv.BillingStatus,
		BillingDate:      inv.BillingDate,
		UploadedFileID:   inv.UploadedFileID,
		ProcessingSource: inv.ProcessingSource,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
}

// CreateCreditNoteRequest entrada para registrar una nota de crédito de costo.
type CreateCreditNoteRequest struct {
	Number           string          `json:"number" validate:"required"`
	RelatedInvoiceID *string         `json:"related_invoice_id"`
	ProviderName     string          `json:"provider_name"`
	IssueDate        time.Time       `json:"issue_date"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
}

// CreditNoteResponse salida de una nota de crédito de costo.
type CreditNoteResponse struct {
	ID               string          `json:"id"`
	Number           string          `json:"number"`
	RelatedInvoiceID *string         `json:"related_invoice_id,omitempty"`
	ProviderName     string          `json:"provider_name"`
	IssueDate        time.Time       `json:"issue_date"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
	State            string          `json:"state"`
	AppliedDate      *time.Time      `json:"applied_date,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// BulkDeleteRequest eliminación lógica masiva por IDs.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDeleteResponse resultado de una eliminación masiva.
type BulkDeleteResponse struct {
	Deleted  int `json:"deleted"`
	NotFound int `json:"not_found"`
}

// FromCreditNote mapea la entidad a su respuesta.
func FromCreditNote(n *entity.CreditNote) CreditNoteResponse {
	return CreditNoteResponse{
		ID:               n.ID,
		Number:           n.Number,
		RelatedInvoiceID: n.RelatedInvoiceID,
		ProviderName:     n.ProviderName,
		IssueDate:        n.IssueDate,
		Amount:           n.Amount,
		Reason:           n.Reason,
		State:            n.State,
		AppliedDate:      n.AppliedDate,
		CreatedAt:        n.CreatedAt,
	}
}
