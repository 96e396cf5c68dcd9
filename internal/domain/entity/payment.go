package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un pago recibido.
const (
	PaymentPendingValidation = "pending_validation"
	PaymentValidated         = "validated"
	PaymentRejected          = "rejected"
)

// Payment abono recibido contra una factura de venta. Solo los pagos
// validados afectan amount_paid; la suma de validados nunca supera el total.
type Payment struct {
	ID             string
	SalesInvoiceID string
	PaymentDate    time.Time
	Amount         decimal.Decimal
	Method         string
	Reference      string
	State          string
	ReviewerID     *string
	ReviewNotes    string
	ReviewedAt     *time.Time
	UploadedFileID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
