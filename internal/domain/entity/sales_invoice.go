package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de documento de venta.
const (
	DocTypeFiscalCredit = "fiscal_credit" // CCF
	DocTypeConsumer     = "consumer"
	DocTypeExport       = "export"
	DocTypeDebitNote    = "debit_note"
	DocTypeCreditNote   = "credit_note"
)

// Tipos de operación de venta.
const (
	SalesOperationDomestic      = "domestic"
	SalesOperationInternational = "international"
)

// Estados de facturación y de pago de la factura de venta.
const (
	SalesBillingBilled            = "billed"
	SalesBillingPendingCollection = "pending_collection"
	SalesBillingPaid              = "paid"
	SalesBillingPartiallyVoided   = "partially_voided"
	SalesBillingVoided            = "voided"

	SalesPaymentPending = "pending"
	SalesPaymentPartial = "partial"
	SalesPaymentFull    = "full"
)

// SalesInvoice documento facturado a un cliente. Los totales se derivan de
// las líneas cuando existen; las retenciones se calculan sobre los totales.
type SalesInvoice struct {
	ID              string
	Number          string // único entre no eliminadas
	DocumentType    string
	OperationType   string
	ClientID        string
	OTID            *string
	IssueDate       time.Time
	DueDate         time.Time
	SubtotalTaxable decimal.Decimal
	SubtotalExempt  decimal.Decimal
	VATTotal        decimal.Decimal
	AmountTotal     decimal.Decimal
	Discount        decimal.Decimal
	VATWithheld     decimal.Decimal
	IncomeWithheld  decimal.Decimal
	TotalWithheld   decimal.Decimal
	NetToCollect    decimal.Decimal
	StatusBilling   string
	StatusPayment   string
	AmountPaid      decimal.Decimal
	AmountPending   decimal.Decimal
	SRIAuth         string
	AccessKey       string
	UploadedFileID  *string
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DefaultExemptionReason razón por defecto cuando una línea no grava IVA.
const DefaultExemptionReason = "exempt service"

// SalesInvoiceItem línea de una factura de venta. Los campos derivados
// (subtotal, vat, discount_amount, total) se recalculan con Recalc.
type SalesInvoiceItem struct {
	ID              string
	InvoiceID       string
	LineNumber      int
	Description     string
	Concept         string
	ServiceType     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	Subtotal        decimal.Decimal
	AppliesVAT      bool
	VATPct          decimal.Decimal // default 13
	VAT             decimal.Decimal
	DiscountPct     decimal.Decimal
	DiscountAmount  decimal.Decimal
	Total           decimal.Decimal
	ExemptionReason string
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DefaultVATPct IVA por defecto (13%).
var DefaultVATPct = decimal.NewFromInt(13)

// Recalc recalcula los campos derivados de la línea:
//
//	subtotal        = round(quantity * unit_price, 2)
//	discount_amount = round(subtotal * discount_pct / 100, 2)
//	vat             = round((subtotal - discount_amount) * vat_pct / 100, 2) si grava, 0 si no
//	total           = (subtotal - discount_amount) + vat
//
// Una línea exenta sin razón recibe la razón por defecto.
func (it *SalesInvoiceItem) Recalc() {
	hundred := decimal.NewFromInt(100)
	it.Subtotal = it.Quantity.Mul(it.UnitPrice).Round(2)
	it.DiscountAmount = it.Subtotal.Mul(it.DiscountPct).Div(hundred).Round(2)
	if it.AppliesVAT {
		if it.VATPct.IsZero() {
			it.VATPct = DefaultVATPct
		}
		it.VAT = it.Subtotal.Sub(it.DiscountAmount).Mul(it.VATPct).Div(hundred).Round(2)
	} else {
		it.VAT = decimal.Zero
		if it.ExemptionReason == "" {
			it.ExemptionReason = DefaultExemptionReason
		}
	}
	it.Total = it.Subtotal.Sub(it.DiscountAmount).Add(it.VAT)
}

// InvoiceSalesMapping asignación costo <-> venta. El par es único.
type InvoiceSalesMapping struct {
	ID             string
	SalesInvoiceID string
	CostInvoiceID  string
	AssignedAmount decimal.Decimal
	MarkupPct      decimal.Decimal
	CreatedAt      time.Time
}
