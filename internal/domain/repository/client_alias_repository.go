package repository

import (
	"context"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// ClientAliasRepository puerto de persistencia para alias de cliente.
type ClientAliasRepository interface {
	Create(ctx context.Context, alias *entity.ClientAlias) error
	GetByID(ctx context.Context, id string) (*entity.ClientAlias, error)
	GetByNormalizedName(ctx context.Context, normalized string) (*entity.ClientAlias, error)
	// ShortNameExists consulta unicidad global entre alias activos, excluyendo un ID.
	ShortNameExists(ctx context.Context, shortName, excludeID string) (bool, error)
	Update(ctx context.Context, alias *entity.ClientAlias) error
	// ListActive devuelve alias no eliminados y no fusionados.
	ListActive(ctx context.Context) ([]*entity.ClientAlias, error)
	List(ctx context.Context, search string, limit, offset int) ([]*entity.ClientAlias, error)
	SoftDelete(ctx context.Context, id string) error
	// Stats conteos por verificación y fusión.
	Stats(ctx context.Context) (*AliasStats, error)
}

// AliasStats agregados para el panel de alias.
type AliasStats struct {
	Total    int
	Verified int
	Merged   int
	Pending  int
}

// SimilarityMatchRepository puerto para sugerencias de similitud. Las claves
// se guardan con el par ordenado (min, max) para idempotencia.
type SimilarityMatchRepository interface {
	GetByID(ctx context.Context, id string) (*entity.SimilarityMatch, error)
	GetByPair(ctx context.Context, alias1, alias2 string) (*entity.SimilarityMatch, error)
	Upsert(ctx context.Context, match *entity.SimilarityMatch) error
	Update(ctx context.Context, match *entity.SimilarityMatch) error
	ListPending(ctx context.Context, limit, offset int) ([]*entity.SimilarityMatch, error)
	// ListPendingAll devuelve todas las pendientes (para el barrido previo a regenerar).
	ListPendingAll(ctx context.Context) ([]*entity.SimilarityMatch, error)
}

// ClientResolutionRepository cache de normalizaciones manuales.
type ClientResolutionRepository interface {
	GetByNormalizedName(ctx context.Context, normalized string) (*entity.ClientResolution, error)
	Upsert(ctx context.Context, res *entity.ClientResolution) error
}
