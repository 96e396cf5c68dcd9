package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// CreateDisputeRequest entrada para abrir un reclamo.
type CreateDisputeRequest struct {
	CostInvoiceID  string          `json:"cost_invoice_id" validate:"required"`
	Kind           string          `json:"kind"`
	Detail         string          `json:"detail"`
	DisputedAmount decimal.Decimal `json:"disputed_amount"`
}

// TransitionDisputeRequest cambio de estado de un reclamo.
type TransitionDisputeRequest struct {
	State string `json:"state" validate:"required"`
	Note  string `json:"note"`
}

// CommentDisputeRequest comentario en la bitácora del reclamo.
type CommentDisputeRequest struct {
	Text string `json:"text" validate:"required"`
}

// ResolveDisputeRequest decisión final del reclamo.
type ResolveDisputeRequest struct {
	Outcome          string          `json:"outcome" validate:"required"`
	RecoveredAmount  decimal.Decimal `json:"recovered_amount"`
	Note             string          `json:"note"`
	CreditNoteNumber string          `json:"credit_note_number"`
}

// DisputeResponse salida de un reclamo.
type DisputeResponse struct {
	ID              string          `json:"id"`
	CaseNumber      string          `json:"case_number"`
	CostInvoiceID   string          `json:"cost_invoice_id"`
	OTID            *string         `json:"ot_id,omitempty"`
	Kind            string          `json:"kind"`
	Detail          string          `json:"detail,omitempty"`
	State           string          `json:"state"`
	Outcome         string          `json:"outcome"`
	DisputedAmount  decimal.Decimal `json:"disputed_amount"`
	RecoveredAmount decimal.Decimal `json:"recovered_amount"`
	CreatedBy       string          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DisputeEventResponse entrada de la bitácora de un reclamo.
type DisputeEventResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Detail    string    `json:"detail,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FromDispute mapea la entidad a su respuesta.
func FromDispute(d *entity.Dispute) DisputeResponse {
	return DisputeResponse{
		ID:              d.ID,
		CaseNumber:      d.CaseNumber,
		CostInvoiceID:   d.CostInvoiceID,
		OTID:            d.OTID,
		Kind:            d.Kind,
		Detail:          d.Detail,
		State:           d.State,
		Outcome:         d.Outcome,
		DisputedAmount:  d.DisputedAmount,
		RecoveredAmount: d.RecoveredAmount,
		CreatedBy:       d.CreatedBy,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// FromDisputeEvent mapea un evento de bitácora.
func FromDisputeEvent(e *entity.DisputeEvent) DisputeEventResponse {
	return DisputeEventResponse{
		ID:        e.ID,
		Type:      e.Type,
		Detail:    e.Detail,
		Actor:     e.Actor,
		CreatedAt: e.CreatedAt,
	}
}
