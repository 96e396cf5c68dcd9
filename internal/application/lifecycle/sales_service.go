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

// Porcentaje de retención de IVA (1% sobre el subtotal gravado).
var vatWithholdingPct = decimal.NewFromInt(1)

// SalesService ciclo de vida de facturas de venta: líneas, retenciones,
// notas de crédito y cobros.
type SalesService struct {
	sales    repository.SalesInvoiceRepository
	notes    repository.SalesCreditNoteRepository
	payments repository.PaymentRepository
	aliases  repository.ClientAliasRepository
	txRunner TxRunner
	log      *logger.Logger
}

// NewSalesService construye el servicio.
func NewSalesService(
	sales repository.SalesInvoiceRepository,
	notes repository.SalesCreditNoteRepository,
	payments repository.PaymentRepository,
	aliases repository.ClientAliasRepository,
	txRunner TxRunner,
	log *logger.Logger,
) *SalesService {
	return &SalesService{
		sales:    sales,
		notes:    notes,
		payments: payments,
		aliases:  aliases,
		txRunner: txRunner,
		log:      log,
	}
}

// Create registra la factura con sus líneas y deriva los totales.
func (s *SalesService) Create(ctx context.Context, inv *entity.SalesInvoice, items []*entity.SalesInvoiceItem) error {
	if inv.Number == "" {
		return fmt.Errorf("factura sin número: %w", domain.ErrValidation)
	}
	if existing, err := s.sales.GetByNumber(ctx, inv.Number); err != nil {
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
	if inv.StatusBilling == "" {
		inv.StatusBilling = entity.SalesBillingBilled
	}
	if inv.StatusPayment == "" {
		inv.StatusPayment = entity.SalesPaymentPending
	}

	return s.txRunner.RunSales(ctx, func(
		sales repository.SalesInvoiceRepository,
		_ repository.SalesCreditNoteRepository,
		_ repository.PaymentRepository,
	) error {
		if err := sales.Create(ctx, inv); err != nil {
			return err
		}
		for i, it := range items {
			if it.ID == "" {
				it.ID = uuid.New().String()
			}
			it.InvoiceID = inv.ID
			it.LineNumber = i + 1
			it.Recalc()
			it.CreatedAt = now
			it.UpdatedAt = now
			if err := sales.CreateItem(ctx, it); err != nil {
				return err
			}
		}
		return s.recalcInvoice(ctx, sales, inv)
	})
}

// AddItem agrega una línea y recalcula la factura.
func (s *SalesService) AddItem(ctx context.Context, invoiceID string, it *entity.SalesInvoiceItem) error {
	return s.mutateItems(ctx, invoiceID, func(sales repository.SalesInvoiceRepository, inv *entity.SalesInvoice) error {
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.InvoiceID = inv.ID
		it.Recalc()
		now := time.Now()
		it.CreatedAt = now
		it.UpdatedAt = now
		if it.LineNumber == 0 {
			existing, err := sales.ListActiveItems(ctx, inv.ID)
			if err != nil {
				return err
			}
			it.LineNumber = len(existing) + 1
		}
		return sales.CreateItem(ctx, it)
	})
}

// UpdateItem recalcula la línea y la factura.
func (s *SalesService) UpdateItem(ctx context.Context, invoiceID string, it *entity.SalesInvoiceItem) error {
	return s.mutateItems(ctx, invoiceID, func(sales repository.SalesInvoiceRepository, inv *entity.SalesInvoice) error {
		it.Recalc()
		it.UpdatedAt = time.Now()
		return sales.UpdateItem(ctx, it)
	})
}

// RemoveItem elimina (suave) una línea y recalcula la factura.
func (s *SalesService) RemoveItem(ctx context.Context, invoiceID, itemID string) error {
	return s.mutateItems(ctx, invoiceID, func(sales repository.SalesInvoiceRepository, inv *entity.SalesInvoice) error {
		return sales.SoftDeleteItem(ctx, itemID)
	})
}

func (s *SalesService) mutateItems(ctx context.Context, invoiceID string, mutate func(repository.SalesInvoiceRepository, *entity.SalesInvoice) error) error {
	return s.txRunner.RunSales(ctx, func(
		sales repository.SalesInvoiceRepository,
		_ repository.SalesCreditNoteRepository,
		_ repository.PaymentRepository,
	) error {
		inv, err := sales.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("factura %s: %w", invoiceID, domain.ErrNotFound)
		}
		if err := mutate(sales, inv); err != nil {
			return err
		}
		return s.recalcInvoice(ctx, sales, inv)
	})
}

// recalcInvoice deriva los totales desde las líneas activas y aplica las
// retenciones:
//
//	subtotal_gravado / subtotal_exento según grave o no la línea
//	amount_total = gravado + exento + iva
//	retención IVA 1% del gravado (cliente retenedor, operación doméstica)
//	retención renta pct del total (cliente sujeto, pct > 0)
//	net_to_collect = amount_total - total retenido
func (s *SalesService) recalcInvoice(ctx context.Context, sales repository.SalesInvoiceRepository, inv *entity.SalesInvoice) error {
	items, err := sales.ListActiveItems(ctx, inv.ID)
	if err != nil {
		return err
	}

	taxable, exempt, vat, discount := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, it := range items {
		net := it.Subtotal.Sub(it.DiscountAmount)
		if it.AppliesVAT {
			taxable = taxable.Add(net)
		} else {
			exempt = exempt.Add(net)
		}
		vat = vat.Add(it.VAT)
		discount = discount.Add(it.DiscountAmount)
	}
	inv.SubtotalTaxable = taxable
	inv.SubtotalExempt = exempt
	inv.VATTotal = vat
	inv.Discount = discount
	inv.AmountTotal = taxable.Add(exempt).Add(vat)

	client, err := s.aliases.GetByID(ctx, inv.ClientID)
	if err != nil {
		return err
	}
	computeWithholding(inv, client)

	notesSum, err := s.notes.SumAppliedByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	inv.AmountPending = inv.AmountTotal.Sub(notesSum).Sub(inv.AmountPaid)
	if inv.AmountPending.IsNegative() {
		inv.AmountPending = decimal.Zero
	}
	inv.UpdatedAt = time.Now()
	return sales.Update(ctx, inv)
}

// computeWithholding retenciones sobre los totales ya derivados.
func computeWithholding(inv *entity.SalesInvoice, client *entity.ClientAlias) {
	hundred := decimal.NewFromInt(100)

	inv.VATWithheld = decimal.Zero
	if client != nil && client.AppliesVATWithholding && inv.OperationType == entity.SalesOperationDomestic {
		inv.VATWithheld = inv.SubtotalTaxable.Mul(vatWithholdingPct).Div(hundred).Round(2)
	}

	inv.IncomeWithheld = decimal.Zero
	if client != nil && client.AppliesIncomeWithholding && client.IncomeWithholdingPct > 0 {
		pct := decimal.NewFromFloat(client.IncomeWithholdingPct)
		inv.IncomeWithheld = inv.AmountTotal.Mul(pct).Div(hundred).Round(2)
	}

	inv.TotalWithheld = inv.VATWithheld.Add(inv.IncomeWithheld)
	inv.NetToCollect = inv.AmountTotal.Sub(inv.TotalWithheld)
}

// ApplySalesCreditNote registra y aplica una nota de crédito de venta. La
// suma de notas nunca puede superar el total original; al igualarlo la
// factura queda anulada y sus asignaciones costo-venta se eliminan.
func (s *SalesService) ApplySalesCreditNote(ctx context.Context, note *entity.SalesCreditNote) error {
	if note.Number == "" {
		return fmt.Errorf("nota sin número: %w", domain.ErrValidation)
	}
	return s.txRunner.RunSales(ctx, func(
		sales repository.SalesInvoiceRepository,
		notes repository.SalesCreditNoteRepository,
		_ repository.PaymentRepository,
	) error {
		inv, err := sales.GetByID(ctx, note.SalesInvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("factura %s: %w", note.SalesInvoiceID, domain.ErrNotFound)
		}

		applied, err := notes.SumAppliedByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		total := applied.Add(note.Amount.Abs())
		if total.GreaterThan(inv.AmountTotal) {
			return fmt.Errorf("notas de crédito (%s) superan el total de %s (%s): %w",
				total.StringFixed(2), inv.Number, inv.AmountTotal.StringFixed(2), domain.ErrValidation)
		}

		if note.ID == "" {
			note.ID = uuid.New().String()
		}
		note.NormalizeAmount()
		note.State = entity.CreditNoteApplied
		now := time.Now()
		note.AppliedDate = &now
		note.CreatedAt = now
		note.UpdatedAt = now
		if err := notes.Create(ctx, note); err != nil {
			return err
		}

		if total.GreaterThanOrEqual(inv.AmountTotal) {
			inv.StatusBilling = entity.SalesBillingVoided
			if err := sales.DeleteMappingsByInvoice(ctx, inv.ID); err != nil {
				return err
			}
		} else {
			inv.StatusBilling = entity.SalesBillingPartiallyVoided
		}
		inv.AmountPending = inv.AmountTotal.Sub(total).Sub(inv.AmountPaid)
		if inv.AmountPending.IsNegative() {
			inv.AmountPending = decimal.Zero
		}
		inv.UpdatedAt = now
		if err := sales.Update(ctx, inv); err != nil {
			return err
		}
		s.log.Info().
			Str("factura", inv.Number).
			Str("nota", note.Number).
			Str("estado", inv.StatusBilling).
			Msg("nota de crédito de venta aplicada")
		return nil
	})
}

// RegisterPayment registra un abono en espera de validación.
func (s *SalesService) RegisterPayment(ctx context.Context, p *entity.Payment) error {
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("monto de pago inválido: %w", domain.ErrValidation)
	}
	inv, err := s.sales.GetByID(ctx, p.SalesInvoiceID)
	if err != nil {
		return err
	}
	if inv == nil {
		return fmt.Errorf("factura %s: %w", p.SalesInvoiceID, domain.ErrNotFound)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.State = entity.PaymentPendingValidation
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.payments.Create(ctx, p)
}

// ValidatePayment valida o rechaza un abono y recalcula el estado de cobro:
//
//	pagado 0 y sin notas        -> pending
//	pagado >= total - notas     -> full (y billing pending_collection -> paid)
//	en otro caso                -> partial
func (s *SalesService) ValidatePayment(ctx context.Context, paymentID, reviewerID, notes string, approve bool) error {
	return s.txRunner.RunSales(ctx, func(
		sales repository.SalesInvoiceRepository,
		creditNotes repository.SalesCreditNoteRepository,
		payments repository.PaymentRepository,
	) error {
		p, err := payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("pago %s: %w", paymentID, domain.ErrNotFound)
		}
		if p.State != entity.PaymentPendingValidation {
			return fmt.Errorf("pago %s ya revisado: %w", paymentID, domain.ErrStateTransition)
		}

		inv, err := sales.GetByID(ctx, p.SalesInvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("factura %s: %w", p.SalesInvoiceID, domain.ErrNotFound)
		}

		paid, err := payments.SumValidatedByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		notesSum, err := creditNotes.SumAppliedByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		collectible := inv.AmountTotal.Sub(notesSum)

		// Lo pagado nunca puede superar el total menos las notas aplicadas.
		if approve && paid.Add(p.Amount).GreaterThan(collectible) {
			return fmt.Errorf("abono %s excede el saldo por cobrar %s de la factura %s: %w",
				p.Amount.StringFixed(2), collectible.Sub(paid).StringFixed(2), inv.Number, domain.ErrValidation)
		}

		now := time.Now()
		if approve {
			p.State = entity.PaymentValidated
			paid = paid.Add(p.Amount)
		} else {
			p.State = entity.PaymentRejected
		}
		p.ReviewerID = &reviewerID
		p.ReviewNotes = notes
		p.ReviewedAt = &now
		p.UpdatedAt = now
		if err := payments.Update(ctx, p); err != nil {
			return err
		}

		inv.AmountPaid = paid
		switch {
		case paid.IsZero() && notesSum.IsZero():
			inv.StatusPayment = entity.SalesPaymentPending
		case paid.GreaterThanOrEqual(collectible):
			inv.StatusPayment = entity.SalesPaymentFull
			if inv.StatusBilling == entity.SalesBillingPendingCollection {
				inv.StatusBilling = entity.SalesBillingPaid
			}
		default:
			inv.StatusPayment = entity.SalesPaymentPartial
		}
		inv.AmountPending = collectible.Sub(paid)
		if inv.AmountPending.IsNegative() {
			inv.AmountPending = decimal.Zero
		}
		inv.UpdatedAt = now
		return sales.Update(ctx, inv)
	})
}

// AssignCost crea la asignación costo-venta; el par es único.
func (s *SalesService) AssignCost(ctx context.Context, salesInvoiceID, costInvoiceID string, assignedAmount, markupPct decimal.Decimal) error {
	inv, err := s.sales.GetByID(ctx, salesInvoiceID)
	if err != nil {
		return err
	}
	if inv == nil {
		return fmt.Errorf("factura %s: %w", salesInvoiceID, domain.ErrNotFound)
	}
	if inv.StatusBilling == entity.SalesBillingVoided {
		return fmt.Errorf("factura %s anulada: %w", inv.Number, domain.ErrStateTransition)
	}
	return s.sales.CreateMapping(ctx, &entity.InvoiceSalesMapping{
		ID:             uuid.New().String(),
		SalesInvoiceID: salesInvoiceID,
		CostInvoiceID:  costInvoiceID,
		AssignedAmount: assignedAmount,
		MarkupPct:      markupPct,
		CreatedAt:      time.Now(),
	})
}

// UnassignCost elimina la asignación costo-venta.
func (s *SalesService) UnassignCost(ctx context.Context, salesInvoiceID, costInvoiceID string) error {
	return s.sales.DeleteMapping(ctx, salesInvoiceID, costInvoiceID)
}
