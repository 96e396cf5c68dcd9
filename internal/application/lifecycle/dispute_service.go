package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

// DisputeService reclamos contra facturas de costo.
type DisputeService struct {
	disputes repository.DisputeRepository
	cost     *CostService // reutiliza syncOT
	txRunner TxRunner
	log      *logger.Logger
}

// NewDisputeService construye el servicio.
func NewDisputeService(
	disputes repository.DisputeRepository,
	cost *CostService,
	txRunner TxRunner,
	log *logger.Logger,
) *DisputeService {
	return &DisputeService{
		disputes: disputes,
		cost:     cost,
		txRunner: txRunner,
		log:      log,
	}
}

// CreateInput datos para abrir un reclamo.
type CreateInput struct {
	CostInvoiceID  string
	Kind           string
	Detail         string
	DisputedAmount decimal.Decimal
	Actor          string
}

// Create abre un reclamo: la factura pasa a disputed con la provisión
// anulada, la OT vinculada se sincroniza y se emite el evento de creación.
func (s *DisputeService) Create(ctx context.Context, in CreateInput) (*entity.Dispute, error) {
	var created *entity.Dispute
	err := s.txRunner.RunDispute(ctx, func(
		disputes repository.DisputeRepository,
		costs repository.CostInvoiceRepository,
		ots repository.OTRepository,
		_ repository.CreditNoteRepository,
	) error {
		inv, err := costs.GetByID(ctx, in.CostInvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("factura %s: %w", in.CostInvoiceID, domain.ErrNotFound)
		}

		now := time.Now()
		caseNumber, err := disputes.NextCaseNumber(ctx, now.Year())
		if err != nil {
			return err
		}
		d := &entity.Dispute{
			ID:             uuid.New().String(),
			CaseNumber:     caseNumber,
			CostInvoiceID:  inv.ID,
			OTID:           inv.OTID,
			Kind:           in.Kind,
			Detail:         in.Detail,
			State:          entity.DisputeOpen,
			Outcome:        entity.OutcomePending,
			DisputedAmount: in.DisputedAmount,
			CreatedBy:      in.Actor,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := disputes.Create(ctx, d); err != nil {
			return err
		}

		inv.ProvisionStatus = entity.InvoiceProvisionDisputed
		inv.ProvisionDate = nil
		inv.UpdatedAt = now
		if err := costs.Update(ctx, inv); err != nil {
			return err
		}
		if err := s.syncInvoiceOT(ctx, ots, inv); err != nil {
			return err
		}

		if err := s.emit(ctx, disputes, d.ID, entity.DisputeEventCreation, in.Detail, in.Actor); err != nil {
			return err
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("caso", created.CaseNumber).Str("factura", created.CostInvoiceID).Msg("reclamo abierto")
	return created, nil
}

// Transition cambia el estado del reclamo y emite el evento correspondiente.
func (s *DisputeService) Transition(ctx context.Context, disputeID, newState, actor, note string) error {
	return s.txRunner.RunDispute(ctx, func(
		disputes repository.DisputeRepository,
		_ repository.CostInvoiceRepository,
		_ repository.OTRepository,
		_ repository.CreditNoteRepository,
	) error {
		d, err := disputes.GetByID(ctx, disputeID)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("reclamo %s: %w", disputeID, domain.ErrNotFound)
		}
		if !d.CanTransitionTo(newState) {
			return fmt.Errorf("reclamo %s: %s -> %s: %w", d.CaseNumber, d.State, newState, domain.ErrStateTransition)
		}
		prev := d.State
		d.State = newState
		d.UpdatedAt = time.Now()
		if err := disputes.Update(ctx, d); err != nil {
			return err
		}
		detail := fmt.Sprintf("%s -> %s", prev, newState)
		if note != "" {
			detail += ": " + note
		}
		return s.emit(ctx, disputes, d.ID, entity.DisputeEventStateChange, detail, actor)
	})
}

// Comment agrega un comentario a la bitácora del reclamo.
func (s *DisputeService) Comment(ctx context.Context, disputeID, text, actor string) error {
	d, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("reclamo %s: %w", disputeID, domain.ErrNotFound)
	}
	return s.emit(ctx, s.disputes, d.ID, entity.DisputeEventComment, text, actor)
}

// ResolveInput resolución de un reclamo.
type ResolveInput struct {
	DisputeID        string
	Outcome          string
	RecoveredAmount  decimal.Decimal
	Actor            string
	Note             string
	CreditNoteNumber string // si no va vacío, se crea una nota aplicada por el recuperado
}

// Resolve cierra la decisión del reclamo: pasa a resolved, aplica las
// mutaciones de la factura según el resultado, sincroniza la OT y emite el
// evento de resolución. Con número de nota de crédito se registra una nota
// aplicada por el monto recuperado.
func (s *DisputeService) Resolve(ctx context.Context, in ResolveInput) error {
	return s.txRunner.RunDispute(ctx, func(
		disputes repository.DisputeRepository,
		costs repository.CostInvoiceRepository,
		ots repository.OTRepository,
		notes repository.CreditNoteRepository,
	) error {
		d, err := disputes.GetByID(ctx, in.DisputeID)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("reclamo %s: %w", in.DisputeID, domain.ErrNotFound)
		}
		if !d.CanTransitionTo(entity.DisputeResolved) {
			return fmt.Errorf("reclamo %s en %s: %w", d.CaseNumber, d.State, domain.ErrStateTransition)
		}
		if !validOutcome(in.Outcome) {
			return fmt.Errorf("resultado %q: %w", in.Outcome, domain.ErrValidation)
		}

		inv, err := costs.GetByID(ctx, d.CostInvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("factura %s: %w", d.CostInvoiceID, domain.ErrNotFound)
		}
		// El recuperado nunca puede dejar el aplicable fuera de [0, monto].
		if in.RecoveredAmount.IsNegative() || in.RecoveredAmount.GreaterThan(inv.Amount) {
			return fmt.Errorf("monto recuperado %s fuera de [0, %s]: %w",
				in.RecoveredAmount.StringFixed(2), inv.Amount.StringFixed(2), domain.ErrValidation)
		}

		now := time.Now()
		d.State = entity.DisputeResolved
		d.Outcome = in.Outcome
		d.RecoveredAmount = in.RecoveredAmount
		d.UpdatedAt = now
		if err := disputes.Update(ctx, d); err != nil {
			return err
		}

		applyOutcome(inv, in.Outcome, in.RecoveredAmount)
		inv.UpdatedAt = now
		if err := costs.Update(ctx, inv); err != nil {
			return err
		}
		if err := s.syncInvoiceOT(ctx, ots, inv); err != nil {
			return err
		}

		if in.CreditNoteNumber != "" && in.RecoveredAmount.IsPositive() {
			applied := now
			note := &entity.CreditNote{
				ID:               uuid.New().String(),
				Number:           in.CreditNoteNumber,
				RelatedInvoiceID: &inv.ID,
				ProviderName:     inv.ProviderName,
				IssueDate:        now,
				Amount:           in.RecoveredAmount,
				Reason:           fmt.Sprintf("resolución de reclamo %s", d.CaseNumber),
				State:            entity.CreditNoteApplied,
				AppliedDate:      &applied,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			note.NormalizeAmount()
			if err := notes.Create(ctx, note); err != nil {
				return err
			}
		}

		detail := fmt.Sprintf("resultado %s, recuperado %s", in.Outcome, in.RecoveredAmount.StringFixed(2))
		if in.Note != "" {
			detail += ": " + in.Note
		}
		return s.emit(ctx, disputes, d.ID, entity.DisputeEventResolution, detail, in.Actor)
	})
}

// applyOutcome mutaciones de la factura según el resultado del reclamo.
func applyOutcome(inv *entity.CostInvoice, outcome string, recovered decimal.Decimal) {
	switch outcome {
	case entity.OutcomeApprovedTotal:
		inv.ProvisionStatus = entity.InvoiceProvisionVoided
		zero := decimal.Zero
		inv.AmountApplicable = &zero
		inv.ProvisionDate = nil
	case entity.OutcomeApprovedPartial:
		if inv.AmountOriginal == nil {
			original := inv.Amount
			inv.AmountOriginal = &original
		}
		inv.ProvisionStatus = entity.InvoiceProvisionPartiallyVoided
		applicable := inv.Amount.Sub(recovered)
		inv.AmountApplicable = &applicable
		inv.ProvisionDate = nil
	case entity.OutcomeRejectedByProvider, entity.OutcomeVoidedInternal:
		inv.ProvisionStatus = entity.InvoiceProvisionPending
		applicable := inv.Amount
		inv.AmountApplicable = &applicable
		inv.ProvisionDate = nil
	}
}

func validOutcome(o string) bool {
	switch o {
	case entity.OutcomeApprovedTotal, entity.OutcomeApprovedPartial,
		entity.OutcomeRejectedByProvider, entity.OutcomeVoidedInternal:
		return true
	}
	return false
}

func (s *DisputeService) syncInvoiceOT(ctx context.Context, ots repository.OTRepository, inv *entity.CostInvoice) error {
	if !inv.IsLinkedCost() {
		return nil
	}
	ot, err := ots.GetByID(ctx, *inv.OTID)
	if err != nil {
		return err
	}
	return s.cost.syncOT(ctx, ots, inv, ot)
}

func (s *DisputeService) emit(ctx context.Context, disputes repository.DisputeRepository, disputeID, eventType, detail, actor string) error {
	return disputes.CreateEvent(ctx, &entity.DisputeEvent{
		ID:        uuid.New().String(),
		DisputeID: disputeID,
		Type:      eventType,
		Detail:    detail,
		Actor:     actor,
		CreatedAt: time.Now(),
	})
}
