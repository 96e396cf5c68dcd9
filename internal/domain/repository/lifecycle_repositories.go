package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// DisputeRepository puerto de reclamos y su bitácora.
type DisputeRepository interface {
	Create(ctx context.Context, d *entity.Dispute) error
	GetByID(ctx context.Context, id string) (*entity.Dispute, error)
	Update(ctx context.Context, d *entity.Dispute) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Dispute, error)
	List(ctx context.Context, state string, limit, offset int) ([]*entity.Dispute, error)
	// NextCaseNumber consecutivo de caso (REC-<año>-<n>).
	NextCaseNumber(ctx context.Context, year int) (string, error)

	CreateEvent(ctx context.Context, e *entity.DisputeEvent) error
	ListEvents(ctx context.Context, disputeID string) ([]*entity.DisputeEvent, error)
}

// CreditNoteRepository notas de crédito de costo.
type CreditNoteRepository interface {
	Create(ctx context.Context, n *entity.CreditNote) error
	GetByID(ctx context.Context, id string) (*entity.CreditNote, error)
	Update(ctx context.Context, n *entity.CreditNote) error
	List(ctx context.Context, state string, limit, offset int) ([]*entity.CreditNote, error)
	// SumAppliedByInvoice suma de montos (negativos) de notas aplicadas a una factura.
	SumAppliedByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error)
}

// SalesCreditNoteRepository notas de crédito de venta.
type SalesCreditNoteRepository interface {
	Create(ctx context.Context, n *entity.SalesCreditNote) error
	GetByID(ctx context.Context, id string) (*entity.SalesCreditNote, error)
	Update(ctx context.Context, n *entity.SalesCreditNote) error
	// SumAppliedByInvoice suma absoluta de notas aplicadas contra la factura de venta.
	SumAppliedByInvoice(ctx context.Context, salesInvoiceID string) (decimal.Decimal, error)
}

// SalesInvoiceRepository facturas de venta, líneas y asignaciones.
type SalesInvoiceRepository interface {
	Create(ctx context.Context, inv *entity.SalesInvoice) error
	GetByID(ctx context.Context, id string) (*entity.SalesInvoice, error)
	GetByNumber(ctx context.Context, number string) (*entity.SalesInvoice, error)
	Update(ctx context.Context, inv *entity.SalesInvoice) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, clientID, statusBilling string, limit, offset int) ([]*entity.SalesInvoice, error)
	Stats(ctx context.Context) (*SalesInvoiceStats, error)

	CreateItem(ctx context.Context, it *entity.SalesInvoiceItem) error
	UpdateItem(ctx context.Context, it *entity.SalesInvoiceItem) error
	SoftDeleteItem(ctx context.Context, itemID string) error
	// ListActiveItems líneas no eliminadas, ordenadas por line_number.
	ListActiveItems(ctx context.Context, invoiceID string) ([]*entity.SalesInvoiceItem, error)

	CreateMapping(ctx context.Context, m *entity.InvoiceSalesMapping) error
	DeleteMapping(ctx context.Context, salesInvoiceID, costInvoiceID string) error
	DeleteMappingsByInvoice(ctx context.Context, salesInvoiceID string) error
	ListMappings(ctx context.Context, salesInvoiceID string) ([]*entity.InvoiceSalesMapping, error)
}

// SalesInvoiceStats agregados del panel de ventas.
type SalesInvoiceStats struct {
	Total       int
	ByBilling   map[string]int
	AmountTotal decimal.Decimal
	AmountPaid  decimal.Decimal
}

// PaymentRepository abonos contra facturas de venta.
type PaymentRepository interface {
	Create(ctx context.Context, p *entity.Payment) error
	GetByID(ctx context.Context, id string) (*entity.Payment, error)
	Update(ctx context.Context, p *entity.Payment) error
	ListByInvoice(ctx context.Context, salesInvoiceID string) ([]*entity.Payment, error)
	// SumValidatedByInvoice suma de pagos validados de la factura.
	SumValidatedByInvoice(ctx context.Context, salesInvoiceID string) (decimal.Decimal, error)
}
