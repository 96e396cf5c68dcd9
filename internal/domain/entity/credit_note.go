package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de nota de crédito.
const (
	CreditNotePending  = "pending"
	CreditNoteApplied  = "applied"
	CreditNoteRejected = "rejected"
)

// CreditNote nota de crédito de un proveedor contra una factura de costo.
// El monto siempre se guarda como -|amount|.
type CreditNote struct {
	ID               string
	Number           string // único
	RelatedInvoiceID *string
	ProviderName     string
	IssueDate        time.Time
	Amount           decimal.Decimal // <= 0
	Reason           string
	State            string
	AppliedDate      *time.Time
	UploadedFileID   *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NormalizeAmount fuerza el signo negativo del monto antes de persistir.
func (n *CreditNote) NormalizeAmount() {
	n.Amount = n.Amount.Abs().Neg()
}

// SalesCreditNote nota de crédito emitida contra una factura de venta.
// Sigue la misma regla de signo que la de costo.
type SalesCreditNote struct {
	ID             string
	Number         string
	SalesInvoiceID string
	IssueDate      time.Time
	Amount         decimal.Decimal // <= 0
	Reason         string
	State          string
	AppliedDate    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NormalizeAmount fuerza el signo negativo del monto antes de persistir.
func (n *SalesCreditNote) NormalizeAmount() {
	n.Amount = n.Amount.Abs().Neg()
}
