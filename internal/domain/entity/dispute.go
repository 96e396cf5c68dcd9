package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del reclamo.
const (
	DisputeOpen     = "open"
	DisputeInReview = "in_review"
	DisputeResolved = "resolved"
	DisputeClosed   = "closed"
)

// Resultados del reclamo.
const (
	OutcomePending            = "pending"
	OutcomeApprovedTotal      = "approved_total"
	OutcomeApprovedPartial    = "approved_partial"
	OutcomeRejectedByProvider = "rejected_by_provider"
	OutcomeVoidedInternal     = "voided_internal_error"
)

// Clases de reclamo.
const (
	DisputeKindFreight        = "freight"
	DisputeKindCarrierCharges = "carrier_charges"
	DisputeKindQuantity       = "quantity"
	DisputeKindService        = "service"
	DisputeKindDuplicate      = "duplicate"
	DisputeKindPrice          = "price"
	DisputeKindOther          = "other"
)

// Dispute reclamo contra una factura de costo. El OT se hereda de la factura.
type Dispute struct {
	ID              string
	CaseNumber      string
	CostInvoiceID   string
	OTID            *string
	Kind            string
	Detail          string
	State           string
	Outcome         string
	DisputedAmount  decimal.Decimal
	RecoveredAmount decimal.Decimal
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Tipos de evento de reclamo.
const (
	DisputeEventCreation    = "creation"
	DisputeEventUpdate      = "update"
	DisputeEventComment     = "comment"
	DisputeEventStateChange = "state_change"
	DisputeEventResolution  = "resolution"
	DisputeEventAttachment  = "attachment"
)

// DisputeEvent bitácora de un reclamo; cada transición de estado o resultado
// emite uno.
type DisputeEvent struct {
	ID        string
	DisputeID string
	Type      string
	Detail    string
	Actor     string
	CreatedAt time.Time
}

// validDisputeTransitions transiciones de estado permitidas.
var validDisputeTransitions = map[string][]string{
	DisputeOpen:     {DisputeInReview, DisputeResolved, DisputeClosed},
	DisputeInReview: {DisputeResolved, DisputeClosed},
	DisputeResolved: {DisputeClosed},
	DisputeClosed:   {},
}

// CanTransitionTo valida el cambio de estado del reclamo.
func (d *Dispute) CanTransitionTo(state string) bool {
	for _, s := range validDisputeTransitions[d.State] {
		if s == state {
			return true
		}
	}
	return false
}
