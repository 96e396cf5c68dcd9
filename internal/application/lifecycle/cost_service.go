// Package lifecycle implementa el ciclo de vida de las facturas: reglas de
// guardado de costos, sincronización costo-OT, reclamos, notas de crédito y
// cobros de venta. Toda mutación derivada ocurre en la misma transacción que
// la escritura principal.
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

// TxRunner ejecuta cada caso de uso dentro de una transacción con repos
// atados a ella.
type TxRunner interface {
	RunCost(ctx context.Context, fn func(
		costs repository.CostInvoiceRepository,
		ots repository.OTRepository,
		notes repository.CreditNoteRepository,
	) error) error
	RunDispute(ctx context.Context, fn func(
		disputes repository.DisputeRepository,
		costs repository.CostInvoiceRepository,
		ots repository.OTRepository,
		notes repository.CreditNoteRepository,
	) error) error
	RunSales(ctx context.Context, fn func(
		sales repository.SalesInvoiceRepository,
		notes repository.SalesCreditNoteRepository,
		payments repository.PaymentRepository,
	) error) error
}

// Estados desde los que la provisión jamás avanza automáticamente.
var provisionAdvanceForbidden = map[string]bool{
	entity.InvoiceProvisionVoided:          true,
	entity.InvoiceProvisionPartiallyVoided: true,
	entity.InvoiceProvisionRejected:        true,
	entity.InvoiceProvisionDisputed:        true,
	entity.InvoiceProvisionReview:          true,
}

// CostService ciclo de vida de facturas de costo.
type CostService struct {
	costs     repository.CostInvoiceRepository
	ots       repository.OTRepository
	providers repository.ProviderRepository
	notes     repository.CreditNoteRepository
	txRunner  TxRunner
	log       *logger.Logger
}

// NewCostService construye el servicio.
func NewCostService(
	costs repository.CostInvoiceRepository,
	ots repository.OTRepository,
	providers repository.ProviderRepository,
	notes repository.CreditNoteRepository,
	txRunner TxRunner,
	log *logger.Logger,
) *CostService {
	return &CostService{
		costs:     costs,
		ots:       ots,
		providers: providers,
		notes:     notes,
		txRunner:  txRunner,
		log:       log,
	}
}

// Create aplica las reglas de guardado, persiste y sincroniza la OT en una
// sola transacción.
func (s *CostService) Create(ctx context.Context, inv *entity.CostInvoice) error {
	if inv.Number == "" {
		return fmt.Errorf("factura sin número: %w", domain.ErrValidation)
	}
	if existing, err := s.costs.GetByNumber(ctx, inv.Number); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("factura %s ya existe: %w", inv.Number, domain.ErrDuplicate)
	}

	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	now := time.Now()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	if inv.ProvisionStatus == "" {
		inv.ProvisionStatus = entity.InvoiceProvisionPending
	}
	if inv.BillingStatus == "" {
		inv.BillingStatus = entity.InvoiceBillingPending
	}

	return s.txRunner.RunCost(ctx, func(costs repository.CostInvoiceRepository, ots repository.OTRepository, _ repository.CreditNoteRepository) error {
		ot, err := s.applySaveRules(ctx, ots, inv, true)
		if err != nil {
			return err
		}
		if err := costs.Create(ctx, inv); err != nil {
			return err
		}
		return s.syncOT(ctx, ots, inv, ot)
	})
}

// Update aplica las reglas de guardado sobre una factura existente.
func (s *CostService) Update(ctx context.Context, inv *entity.CostInvoice) error {
	inv.UpdatedAt = time.Now()
	return s.txRunner.RunCost(ctx, func(costs repository.CostInvoiceRepository, ots repository.OTRepository, _ repository.CreditNoteRepository) error {
		ot, err := s.applySaveRules(ctx, ots, inv, false)
		if err != nil {
			return err
		}
		if err := costs.Update(ctx, inv); err != nil {
			return err
		}
		return s.syncOT(ctx, ots, inv, ot)
	})
}

// applySaveRules reglas previas a persistir:
//
//  1. ot_number_denorm se copia de la OT vinculada.
//  2. crédito con proveedor que tiene crédito: credit_days del proveedor y
//     due_date = issue_date + credit_days.
//  3. contado: credit_days en cero y due_date nulo.
//  4. billing_date presente avanza billing pending -> billed.
//  5. provision_date presente avanza provisión pending -> provisioned; nunca
//     desde voided, partially_voided, rejected, disputed ni review.
//
// Devuelve la OT vinculada (si hay) para la sincronización posterior.
func (s *CostService) applySaveRules(ctx context.Context, ots repository.OTRepository, inv *entity.CostInvoice, creating bool) (*entity.OT, error) {
	var ot *entity.OT
	if inv.OTID != nil {
		var err error
		ot, err = ots.GetByID(ctx, *inv.OTID)
		if err != nil {
			return nil, err
		}
		if ot == nil {
			return nil, fmt.Errorf("OT %s: %w", *inv.OTID, domain.ErrNotFound)
		}
		inv.OTNumberDenorm = ot.Number
	} else {
		inv.OTNumberDenorm = ""
	}

	switch inv.PaymentTerms {
	case entity.PaymentTermsCredit:
		if inv.ProviderID != nil {
			provider, err := s.providers.GetByID(ctx, *inv.ProviderID)
			if err != nil {
				return nil, err
			}
			if provider != nil && provider.HasCredit {
				inv.CreditDays = provider.CreditDays
			}
		}
		if inv.CreditDays > 0 {
			due := inv.IssueDate.AddDate(0, 0, inv.CreditDays)
			inv.DueDate = &due
		}
	case entity.PaymentTermsCash:
		inv.CreditDays = 0
		inv.DueDate = nil
	}

	if inv.BillingDate != nil && inv.BillingStatus == entity.InvoiceBillingPending {
		inv.BillingStatus = entity.InvoiceBillingBilled
	}

	// Un costo vinculado recién creado sin fecha de provisión hereda la de la OT.
	if creating && inv.IsLinkedCost() && inv.ProvisionDate == nil && ot != nil && ot.ProvisionDate != nil {
		d := *ot.ProvisionDate
		inv.ProvisionDate = &d
	}

	if inv.ProvisionDate != nil && inv.ProvisionStatus == entity.InvoiceProvisionPending &&
		!provisionAdvanceForbidden[inv.ProvisionStatus] {
		inv.ProvisionStatus = entity.InvoiceProvisionProvisioned
	}
	return ot, nil
}

// syncOT propaga la provisión del costo vinculado hacia su OT. Solo los
// costos FREIGHT y CARRIER_CHARGES con OT tocan la orden.
func (s *CostService) syncOT(ctx context.Context, ots repository.OTRepository, inv *entity.CostInvoice, ot *entity.OT) error {
	if !inv.IsLinkedCost() || ot == nil {
		return nil
	}

	changed := false
	switch inv.ProvisionStatus {
	case entity.InvoiceProvisionDisputed, entity.InvoiceProvisionReview,
		entity.InvoiceProvisionVoided, entity.InvoiceProvisionPartiallyVoided:
		if ot.ProvisionStatus != inv.ProvisionStatus {
			ot.ProvisionStatus = inv.ProvisionStatus
			if inv.ProvisionStatus == entity.InvoiceProvisionVoided ||
				inv.ProvisionStatus == entity.InvoiceProvisionPartiallyVoided {
				ot.ProvisionDate = nil
			}
			changed = true
		}
	case entity.InvoiceProvisionProvisioned:
		if inv.ProvisionDate != nil && !datesEqual(ot.ProvisionDate, inv.ProvisionDate) {
			d := *inv.ProvisionDate
			ot.ProvisionDate = &d
			ot.ProvisionStatus = entity.OTProvisionProvisioned
			changed = true
		}
	}
	if !changed {
		return nil
	}
	ot.UpdatedAt = time.Now()
	if err := ots.Update(ctx, ot); err != nil {
		return err
	}
	s.log.Debug().
		Str("ot", ot.Number).
		Str("factura", inv.Number).
		Str("provision", ot.ProvisionStatus).
		Msg("provisión sincronizada a la OT")
	return nil
}

// ApplyCreditNote marca la nota como aplicada y recalcula la factura
// relacionada: amount = amount_original + suma de notas aplicadas; si el
// resultado queda en cero o menos la factura se anula, si no queda
// parcialmente anulada.
func (s *CostService) ApplyCreditNote(ctx context.Context, noteID string) error {
	return s.txRunner.RunCost(ctx, func(costs repository.CostInvoiceRepository, ots repository.OTRepository, notes repository.CreditNoteRepository) error {
		note, err := notes.GetByID(ctx, noteID)
		if err != nil {
			return err
		}
		if note == nil {
			return fmt.Errorf("nota de crédito %s: %w", noteID, domain.ErrNotFound)
		}
		if note.State == entity.CreditNoteApplied {
			return fmt.Errorf("nota %s ya aplicada: %w", note.Number, domain.ErrStateTransition)
		}

		note.NormalizeAmount()
		note.State = entity.CreditNoteApplied
		now := time.Now()
		note.AppliedDate = &now
		note.UpdatedAt = now
		if err := notes.Update(ctx, note); err != nil {
			return err
		}
		if note.RelatedInvoiceID == nil {
			return nil
		}

		inv, err := costs.GetByID(ctx, *note.RelatedInvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("factura %s: %w", *note.RelatedInvoiceID, domain.ErrNotFound)
		}

		if inv.AmountOriginal == nil {
			original := inv.Amount
			inv.AmountOriginal = &original
		}
		applied, err := notes.SumAppliedByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		inv.Amount = inv.AmountOriginal.Add(applied)
		if inv.Amount.LessThanOrEqual(decimal.Zero) {
			inv.ProvisionStatus = entity.InvoiceProvisionVoided
		} else {
			inv.ProvisionStatus = entity.InvoiceProvisionPartiallyVoided
		}
		inv.UpdatedAt = time.Now()
		if err := costs.Update(ctx, inv); err != nil {
			return err
		}

		var ot *entity.OT
		if inv.OTID != nil {
			if ot, err = ots.GetByID(ctx, *inv.OTID); err != nil {
				return err
			}
		}
		return s.syncOT(ctx, ots, inv, ot)
	})
}

// CreateCreditNote registra una nota; si nace aplicada recalcula de una vez.
func (s *CostService) CreateCreditNote(ctx context.Context, note *entity.CreditNote) error {
	if note.Number == "" {
		return fmt.Errorf("nota sin número: %w", domain.ErrValidation)
	}
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	note.NormalizeAmount()
	applyNow := note.State == entity.CreditNoteApplied
	note.State = entity.CreditNotePending
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now
	if err := s.notes.Create(ctx, note); err != nil {
		return err
	}
	if applyNow {
		return s.ApplyCreditNote(ctx, note.ID)
	}
	return nil
}

func datesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
