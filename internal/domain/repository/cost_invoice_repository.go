package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// CostInvoiceFilter filtros de listado de facturas de costo.
type CostInvoiceFilter struct {
	Search          string // número, proveedor, OT denormalizada
	ProviderName    string
	CostType        string
	ProvisionStatus string
	BillingStatus   string
	NeedsReview     *bool
	OTID            string
	Limit           int
	Offset          int
}

// CostInvoiceRepository puerto de persistencia para facturas de costo.
type CostInvoiceRepository interface {
	Create(ctx context.Context, inv *entity.CostInvoice) error
	GetByID(ctx context.Context, id string) (*entity.CostInvoice, error)
	GetByNumber(ctx context.Context, number string) (*entity.CostInvoice, error)
	// GetByFileSHA devuelve la factura activa ligada a un blob por sha256.
	GetByFileSHA(ctx context.Context, sha256 string) (*entity.CostInvoice, error)
	Update(ctx context.Context, inv *entity.CostInvoice) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, f CostInvoiceFilter) ([]*entity.CostInvoice, int, error)
	ListPendingReview(ctx context.Context, limit, offset int) ([]*entity.CostInvoice, error)
	// DistinctProviderNames nombres de proveedor distintos (para creación masiva de alias).
	DistinctProviderNames(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*CostInvoiceStats, error)
}

// CostInvoiceStats agregados del panel de costos.
type CostInvoiceStats struct {
	Total            int
	ByProvision      map[string]int
	ByBilling        map[string]int
	AmountTotal      decimal.Decimal
	AmountApplicable decimal.Decimal
	NeedsReview      int
}

// UploadedFileRepository blobs deduplicados por sha256.
type UploadedFileRepository interface {
	Create(ctx context.Context, f *entity.UploadedFile) error
	GetByID(ctx context.Context, id string) (*entity.UploadedFile, error)
	GetBySHA256(ctx context.Context, sha string) (*entity.UploadedFile, error)
}
