package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// SalesItemRequest línea de una factura de venta (entrada).
type SalesItemRequest struct {
	Description     string          `json:"description" validate:"required"`
	Concept         string          `json:"concept"`
	ServiceType     string          `json:"service_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	AppliesVAT      bool            `json:"applies_vat"`
	VATPct          decimal.Decimal `json:"vat_pct"`
	DiscountPct     decimal.Decimal `json:"discount_pct"`
	ExemptionReason string          `json:"exemption_reason"`
}

// CreateSalesInvoiceRequest entrada para emitir una factura de venta.
type CreateSalesInvoiceRequest struct {
	Number        string             `json:"number" validate:"required"`
	DocumentType  string             `json:"document_type"`
	OperationType string             `json:"operation_type"`
	ClientID      string             `json:"client_id" validate:"required"`
	OTID          *string            `json:"ot_id"`
	IssueDate     time.Time          `json:"issue_date"`
	DueDate       time.Time          `json:"due_date"`
	Discount      decimal.Decimal    `json:"discount"`
	SRIAuth       string             `json:"sri_auth"`
	AccessKey     string             `json:"access_key"`
	Items         []SalesItemRequest `json:"items"`
}

// SalesItemResponse línea de una factura de venta (salida).
type SalesItemResponse struct {
	ID              string          `json:"id"`
	LineNumber      int             `json:"line_number"`
	Description     string          `json:"description"`
	Concept         string          `json:"concept,omitempty"`
	ServiceType     string          `json:"service_type,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	AppliesVAT      bool            `json:"applies_vat"`
	VATPct          decimal.Decimal `json:"vat_pct"`
	VAT             decimal.Decimal `json:"vat"`
	DiscountPct     decimal.Decimal `json:"discount_pct"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Total           decimal.Decimal `json:"total"`
	ExemptionReason string          `json:"exemption_reason,omitempty"`
}

// SalesInvoiceResponse salida de una factura de venta.
type SalesInvoiceResponse struct {
	ID              string              `json:"id"`
	Number          string              `json:"number"`
	DocumentType    string              `json:"document_type"`
	OperationType   string              `json:"operation_type"`
	ClientID        string              `json:"client_id"`
	OTID            *string             `json:"ot_id,omitempty"`
	IssueDate       time.Time           `json:"issue_date"`
	DueDate         time.Time           `json:"due_date"`
	SubtotalTaxable decimal.Decimal     `json:"subtotal_taxable"`
	SubtotalExempt  decimal.Decimal     `json:"subtotal_exempt"`
	VATTotal        decimal.Decimal     `json:"vat_total"`
	AmountTotal     decimal.Decimal     `json:"amount_total"`
	Discount        decimal.Decimal     `json:"discount"`
	VATWithheld     decimal.Decimal     `json:"vat_withheld"`
	IncomeWithheld  decimal.Decimal     `json:"income_withheld"`
	TotalWithheld   decimal.Decimal     `json:"total_withheld"`
	NetToCollect    decimal.Decimal     `json:"net_to_collect"`
	StatusBilling   string              `json:"status_billing"`
	StatusPayment   string              `json:"status_payment"`
	AmountPaid      decimal.Decimal     `json:"amount_paid"`
	AmountPending   decimal.Decimal     `json:"amount_pending"`
	SRIAuth         string              `json:"sri_auth,omitempty"`
	AccessKey       string              `json:"access_key,omitempty"`
	Items           []SalesItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// SalesInvoiceListResponse lista paginada de facturas de venta.
type SalesInvoiceListResponse struct {
	Items []SalesInvoiceResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}

// SalesStatsResponse agregados del panel de ventas.
type SalesStatsResponse struct {
	Total       int             `json:"total"`
	ByBilling   map[string]int  `json:"by_billing"`
	AmountTotal decimal.Decimal `json:"amount_total"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
}

// CreateSalesCreditNoteRequest nota de crédito contra una factura de venta.
type CreateSalesCreditNoteRequest struct {
	Number    string          `json:"number" validate:"required"`
	IssueDate time.Time       `json:"issue_date"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// RegisterPaymentRequest abono contra una factura de venta.
type RegisterPaymentRequest struct {
	PaymentDate time.Time       `json:"payment_date"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
}

// ValidatePaymentRequest decisión del revisor sobre un pago.
type ValidatePaymentRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// PaymentResponse salida de un pago.
type PaymentResponse struct {
	ID             string          `json:"id"`
	SalesInvoiceID string          `json:"sales_invoice_id"`
	PaymentDate    time.Time       `json:"payment_date"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method,omitempty"`
	Reference      string          `json:"reference,omitempty"`
	State          string          `json:"state"`
	ReviewerID     *string         `json:"reviewer_id,omitempty"`
	ReviewNotes    string          `json:"review_notes,omitempty"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AssignCostRequest asignación de una factura de costo a una de venta.
type AssignCostRequest struct {
	CostInvoiceID  string          `json:"cost_invoice_id" validate:"required"`
	AssignedAmount decimal.Decimal `json:"assigned_amount"`
	MarkupPct      decimal.Decimal `json:"markup_pct"`
}

// MappingResponse asignación costo <-> venta.
type MappingResponse struct {
	ID             string          `json:"id"`
	SalesInvoiceID string          `json:"sales_invoice_id"`
	CostInvoiceID  string          `json:"cost_invoice_id"`
	AssignedAmount decimal.Decimal `json:"assigned_amount"`
	MarkupPct      decimal.Decimal `json:"markup_pct"`
	CreatedAt      time.Time       `json:"created_at"`
}

// FromSalesInvoice mapea la entidad y sus líneas a la respuesta.
func FromSalesInvoice(inv *entity.SalesInvoice, items []*entity.SalesInvoiceItem) SalesInvoiceResponse {
	out := SalesInvoiceResponse{
		ID:              inv.ID,
		Number:          inv.Number,
		DocumentType:    inv.DocumentType,
		OperationType:   inv.OperationType,
		ClientID:        inv.ClientID,
		OTID:            inv.OTID,
		IssueDate:       inv.IssueDate,
		DueDate:         inv.DueDate,
		SubtotalTaxable: inv.SubtotalTaxable,
		SubtotalExempt:  inv.SubtotalExempt,
		VATTotal:        inv.VATTotal,
		AmountTotal:     inv.AmountTotal,
		Discount:        inv.Discount,
		VATWithheld:     inv.VATWithheld,
		IncomeWithheld:  inv.IncomeWithheld,
		TotalWithheld:   inv.TotalWithheld,
		NetToCollect:    inv.NetToCollect,
		StatusBilling:   inv.StatusBilling,
		StatusPayment:   inv.StatusPayment,
		AmountPaid:      inv.AmountPaid,
		AmountPending:   inv.AmountPending,
		SRIAuth:         inv.SRIAuth,
		AccessKey:       inv.AccessKey,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
	for _, it := range items {
		out.Items = append(out.Items, FromSalesItem(it))
	}
	return out
}

// FromSalesItem mapea una línea de venta.
func FromSalesItem(it *entity.SalesInvoiceItem) SalesItemResponse {
	return SalesItemResponse{
		ID:              it.ID,
		LineNumber:      it.LineNumber,
		Description:     it.Description,
		Concept:         it.Concept,
		ServiceType:     it.ServiceType,
		Quantity:        it.Quantity,
		UnitPrice:       it.UnitPrice,
		Subtotal:        it.Subtotal,
		AppliesVAT:      it.AppliesVAT,
		VATPct:          it.VATPct,
		VAT:             it.VAT,
		DiscountPct:     it.DiscountPct,
		DiscountAmount:  it.DiscountAmount,
		Total:           it.Total,
		ExemptionReason: it.ExemptionReason,
	}
}

// FromPayment mapea un pago.
func FromPayment(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		SalesInvoiceID: p.SalesInvoiceID,
		PaymentDate:    p.PaymentDate,
		Amount:         p.Amount,
		Method:         p.Method,
		Reference:      p.Reference,
		State:          p.State,
		ReviewerID:     p.ReviewerID,
		ReviewNotes:    p.ReviewNotes,
		ReviewedAt:     p.ReviewedAt,
		CreatedAt:      p.CreatedAt,
	}
}

// FromMapping mapea una asignación costo <-> venta.
func FromMapping(m *entity.InvoiceSalesMapping) MappingResponse {
	return MappingResponse{
		ID:             m.ID,
		SalesInvoiceID: m.SalesInvoiceID,
		CostInvoiceID:  m.CostInvoiceID,
		AssignedAmount: m.AssignedAmount,
		MarkupPct:      m.MarkupPct,
		CreatedAt:      m.CreatedAt,
	}
}
