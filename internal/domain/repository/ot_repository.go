package repository

import (
	"context"
	"time"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// OTSearchFilter filtros de búsqueda de OTs.
type OTSearchFilter struct {
	Query           string // sobre número, MBL, naviera
	Container       string
	BL              string
	ClientID        string
	ProvisionStatus string
	BillingStatus   string
	Limit           int
	Offset          int
}

// OTRepository puerto de persistencia para órdenes de trabajo. Los Find* del
// matcher devuelven candidatas ordenadas por id ascendente (desempate estable).
type OTRepository interface {
	Create(ctx context.Context, ot *entity.OT) error
	GetByID(ctx context.Context, id string) (*entity.OT, error)
	GetByNumber(ctx context.Context, number string) (*entity.OT, error)
	Update(ctx context.Context, ot *entity.OT) error
	SoftDelete(ctx context.Context, id string) error
	Search(ctx context.Context, f OTSearchFilter) ([]*entity.OT, error)

	// Consultas del matcher de cinco niveles.
	FindByNumberFold(ctx context.Context, number string) (*entity.OT, error)
	FindByMBLAndContainer(ctx context.Context, mbl, container string) (*entity.OT, error)
	FindByMBL(ctx context.Context, mbl string) (*entity.OT, error)
	FindByContainer(ctx context.Context, container string) (*entity.OT, error)
	FindByProviderAndDate(ctx context.Context, providerName string, date time.Time, windowDays int) (*entity.OT, error)

	// ReassignClient mueve todas las OTs de un alias a otro (fusión).
	ReassignClient(ctx context.Context, fromAliasID, toAliasID string) (int, error)
	// CardStats agregados para las tarjetas del tablero.
	CardStats(ctx context.Context) (*OTCardStats, error)
	// FilterValues valores distintos para poblar filtros de UI.
	FilterValues(ctx context.Context) (*OTFilterValues, error)
}

// OTCardStats conteos por estado para el tablero.
type OTCardStats struct {
	Total       int
	Pending     int
	Provisioned int
	Review      int
	Disputed    int
	Billed      int
}

// OTFilterValues valores distintos observados.
type OTFilterValues struct {
	Operators      []string
	OperationTypes []string
	States         []string
	Providers      []string
}
