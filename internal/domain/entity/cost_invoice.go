package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de costo. Solo FREIGHT y CARRIER_CHARGES propagan provisión a la OT.
const (
	CostTypeFreight        = "FREIGHT"
	CostTypeCarrierCharges = "CARRIER_CHARGES"
	CostTypeTransport      = "TRANSPORT"
	CostTypeCustoms        = "CUSTOMS"
	CostTypeStorage        = "STORAGE"
	CostTypeDemurrage      = "DEMURRAGE"
	CostTypeOther          = "OTHER"
)

// Estados de provisión de la factura de costo.
const (
	InvoiceProvisionPending         = "pending"
	InvoiceProvisionReview          = "review"
	InvoiceProvisionDisputed        = "disputed"
	InvoiceProvisionProvisioned     = "provisioned"
	InvoiceProvisionVoided          = "voided"
	InvoiceProvisionPartiallyVoided = "partially_voided"
	InvoiceProvisionRejected        = "rejected"
)

// Estados de facturación y condiciones de pago.
const (
	InvoiceBillingPending = "pending"
	InvoiceBillingBilled  = "billed"

	PaymentTermsCash   = "cash"
	PaymentTermsCredit = "credit"
)

// Orígenes de procesamiento.
const (
	SourceEmailAuto    = "email_auto"
	SourceUploadManual = "upload_manual"
	SourceCSVImport    = "csv_import"
)

// DetectedRef una referencia extraída del documento (ot, mbl, container...).
type DetectedRef struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Tipos de referencia detectada.
const (
	RefKindOT        = "ot"
	RefKindMBL       = "mbl"
	RefKindContainer = "container"
	RefKindHBL       = "hbl"
)

// CostInvoice factura de costo por pagar a un proveedor.
// AmountOriginal conserva el monto previo a notas de crédito o disputas.
type CostInvoice struct {
	ID               string
	Number           string // único entre no eliminadas
	ProviderID       *string
	ProviderName     string
	ProviderTaxID    string
	CostType         string
	IssueDate        time.Time
	DueDate          *time.Time
	PaymentTerms     string
	CreditDays       int
	AmountOriginal   *decimal.Decimal
	Amount           decimal.Decimal
	AmountApplicable *decimal.Decimal
	OTID             *string
	OTNumberDenorm   string
	DetectedRefs     []DetectedRef
	MatchConfidence  float64 // 0..1
	MatchMethod      string
	NeedsReview      bool
	ProvisionStatus  string
	ProvisionDate    *time.Time
	BillingStatus    string
	BillingDate      *time.Time
	UploadedFileID   *string
	ProcessedAt      time.Time
	ProcessingSource string
	DeletedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AmountApplicableEffective monto aplicable efectivo: amount_applicable si
// existe, si no amount.
func (i *CostInvoice) AmountApplicableEffective() decimal.Decimal {
	if i.AmountApplicable != nil {
		return *i.AmountApplicable
	}
	return i.Amount
}

// IsLinkedCost predicado de costo vinculado: tipo FREIGHT o CARRIER_CHARGES
// con OT asignada. Solo estos propagan estado de provisión a la OT.
func (i *CostInvoice) IsLinkedCost() bool {
	return (i.CostType == CostTypeFreight || i.CostType == CostTypeCarrierCharges) && i.OTID != nil
}

// UploadedFile referencia deduplicada a un blob. sha256 es único global.
type UploadedFile struct {
	ID          string
	Filename    string
	StoragePath string
	SHA256      string
	Size        int64
	ContentType string
	CreatedAt   time.Time
}
