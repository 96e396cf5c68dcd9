package repository

import (
	"context"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// ProcessedFileRepository idempotencia de importación Excel por sha256.
type ProcessedFileRepository interface {
	GetBySHA256(ctx context.Context, sha string) (*entity.ProcessedFile, error)
	Create(ctx context.Context, f *entity.ProcessedFile) error
}

// EmailLogRepository bitácora de correos procesados (dedup por message_id).
type EmailLogRepository interface {
	ExistsMessageID(ctx context.Context, messageID string) (bool, error)
	Create(ctx context.Context, l *entity.EmailProcessingLog) error
	List(ctx context.Context, limit, offset int) ([]*entity.EmailProcessingLog, error)
}

// EmailConfigRepository singleton de configuración del poller.
type EmailConfigRepository interface {
	Get(ctx context.Context) (*entity.EmailAutoProcessingConfig, error)
	Save(ctx context.Context, cfg *entity.EmailAutoProcessingConfig) error
}

// PatternRepository catálogo de patrones de extracción por proveedor.
type PatternRepository interface {
	// ListActive patrones activos de un proveedor (por NIT) más los genéricos,
	// ordenados por prioridad descendente.
	ListActive(ctx context.Context, providerTaxID string) ([]*entity.PatternRow, error)
	Create(ctx context.Context, p *entity.PatternRow) error
	Update(ctx context.Context, p *entity.PatternRow) error
	Delete(ctx context.Context, id string) error
}
