package repository

import (
	"context"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// ProviderRepository puerto de persistencia para proveedores.
type ProviderRepository interface {
	Create(ctx context.Context, p *entity.Provider) error
	GetByID(ctx context.Context, id string) (*entity.Provider, error)
	GetByTaxID(ctx context.Context, taxID string) (*entity.Provider, error)
	// GetByNameFold búsqueda insensible a mayúsculas por nombre exacto.
	GetByNameFold(ctx context.Context, name string) (*entity.Provider, error)
	Update(ctx context.Context, p *entity.Provider) error
	List(ctx context.Context, search string, limit, offset int) ([]*entity.Provider, error)
	SoftDelete(ctx context.Context, id string) error
}
