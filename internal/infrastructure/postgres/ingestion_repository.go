package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

var (
	_ repository.ProcessedFileRepository = (*ProcessedFileRepo)(nil)
	_ repository.EmailLogRepository      = (*EmailLogRepo)(nil)
	_ repository.EmailConfigRepository   = (*EmailConfigRepo)(nil)
	_ repository.PatternRepository       = (*PatternRepo)(nil)
)

// ProcessedFileRepo hashes de archivos Excel ya importados.
type ProcessedFileRepo struct {
	q Querier
}

// NewProcessedFileRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProcessedFileRepository(q Querier) *ProcessedFileRepo {
	return &ProcessedFileRepo{q: q}
}

// GetBySHA256 busca el registro de un archivo ya procesado.
func (r *ProcessedFileRepo) GetBySHA256(ctx context.Context, sha string) (*entity.ProcessedFile, error) {
	var f entity.ProcessedFile
	err := r.q.QueryRow(ctx, `
		SELECT id, filename, sha256, row_count, created_at
		FROM processed_files WHERE sha256 = $1`, sha).
		Scan(&f.ID, &f.Filename, &f.SHA256, &f.RowCount, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get archivo procesado: %w", err)
	}
	return &f, nil
}

// Create registra el hash del archivo importado.
func (r *ProcessedFileRepo) Create(ctx context.Context, f *entity.ProcessedFile) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO processed_files (id, filename, sha256, row_count, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.Filename, f.SHA256, f.RowCount, f.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("archivo %s: %w", f.SHA256, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert archivo procesado: %w", err)
	}
	return nil
}

// EmailLogRepo bitácora de correos sobre PostgreSQL.
type EmailLogRepo struct {
	q Querier
}

// NewEmailLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEmailLogRepository(q Querier) *EmailLogRepo {
	return &EmailLogRepo{q: q}
}

// ExistsMessageID dedup por message_id.
func (r *EmailLogRepo) ExistsMessageID(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM email_processing_logs WHERE message_id = $1)`, messageID).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists message id: %w", err)
	}
	return exists, nil
}

// Create registra la entrada de bitácora.
func (r *EmailLogRepo) Create(ctx context.Context, l *entity.EmailProcessingLog) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO email_processing_logs (id, message_id, subject, sender, received_at, folder, status, detail, attachments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.MessageID, l.Subject, l.Sender, l.ReceivedAt, l.Folder, l.Status, l.Detail, l.Attachments, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert log de correo: %w", err)
	}
	return nil
}

// List entradas recientes de bitácora.
func (r *EmailLogRepo) List(ctx context.Context, limit, offset int) ([]*entity.EmailProcessingLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, message_id, subject, sender, received_at, folder, status, detail, attachments, created_at
		FROM email_processing_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list logs de correo: %w", err)
	}
	defer rows.Close()
	var list []*entity.EmailProcessingLog
	for rows.Next() {
		var l entity.EmailProcessingLog
		if err := rows.Scan(&l.ID, &l.MessageID, &l.Subject, &l.Sender, &l.ReceivedAt, &l.Folder,
			&l.Status, &l.Detail, &l.Attachments, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log de correo: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// EmailConfigRepo singleton de configuración del poller. La tabla guarda a lo
// sumo una fila.
type EmailConfigRepo struct {
	q Querier
}

// NewEmailConfigRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEmailConfigRepository(q Querier) *EmailConfigRepo {
	return &EmailConfigRepo{q: q}
}

// Get lee la configuración vigente; nil si nunca se guardó.
func (r *EmailConfigRepo) Get(ctx context.Context) (*entity.EmailAutoProcessingConfig, error) {
	var c entity.EmailAutoProcessingConfig
	err := r.q.QueryRow(ctx, `
		SELECT id, is_active, check_interval_minutes, target_folders, subject_filters,
		       sender_whitelist, auto_parse_enabled, max_emails_per_run, updated_at
		FROM email_auto_processing_config LIMIT 1`).
		Scan(&c.ID, &c.IsActive, &c.CheckIntervalMinutes, &c.TargetFolders, &c.SubjectFilters,
			&c.SenderWhitelist, &c.AutoParseEnabled, &c.MaxEmailsPerRun, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get config de correo: %w", err)
	}
	return &c, nil
}

// Save upsert de la fila única.
func (r *EmailConfigRepo) Save(ctx context.Context, cfg *entity.EmailAutoProcessingConfig) error {
	cfg.Clamp()
	_, err := r.q.Exec(ctx, `
		INSERT INTO email_auto_processing_config
			(id, is_active, check_interval_minutes, target_folders, subject_filters,
			 sender_whitelist, auto_parse_enabled, max_emails_per_run, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			check_interval_minutes = EXCLUDED.check_interval_minutes,
			target_folders = EXCLUDED.target_folders,
			subject_filters = EXCLUDED.subject_filters,
			sender_whitelist = EXCLUDED.sender_whitelist,
			auto_parse_enabled = EXCLUDED.auto_parse_enabled,
			max_emails_per_run = EXCLUDED.max_emails_per_run,
			updated_at = EXCLUDED.updated_at`,
		cfg.ID, cfg.IsActive, cfg.CheckIntervalMinutes, cfg.TargetFolders, cfg.SubjectFilters,
		cfg.SenderWhitelist, cfg.AutoParseEnabled, cfg.MaxEmailsPerRun, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save config de correo: %w", err)
	}
	return nil
}

// PatternRepo catálogo de patrones de extracción por proveedor.
type PatternRepo struct {
	q Querier
}

// NewPatternRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPatternRepository(q Querier) *PatternRepo {
	return &PatternRepo{q: q}
}

const patternColumns = `id, provider_tax_id, kind, target_field, code, display, value_type,
	regex, priority, provider_specific, active, updated_at`

// ListActive patrones activos del proveedor más los genéricos, por prioridad
// descendente.
func (r *PatternRepo) ListActive(ctx context.Context, providerTaxID string) ([]*entity.PatternRow, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+patternColumns+` FROM extraction_patterns
		 WHERE active AND (provider_tax_id = $1 OR provider_tax_id = '')
		 ORDER BY priority DESC`, providerTaxID)
	if err != nil {
		return nil, fmt.Errorf("list patrones: %w", err)
	}
	defer rows.Close()
	var list []*entity.PatternRow
	for rows.Next() {
		var p entity.PatternRow
		if err := rows.Scan(&p.ID, &p.ProviderTaxID, &p.Kind, &p.TargetField, &p.Code, &p.Display, &p.ValueType,
			&p.Regex, &p.Priority, &p.ProviderSpecific, &p.Active, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan patrón: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// Create persiste una fila de patrón.
func (r *PatternRepo) Create(ctx context.Context, p *entity.PatternRow) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO extraction_patterns (`+patternColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.ProviderTaxID, p.Kind, p.TargetField, p.Code, p.Display, p.ValueType,
		p.Regex, p.Priority, p.ProviderSpecific, p.Active, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert patrón: %w", err)
	}
	return nil
}

// Update actualiza una fila de patrón.
func (r *PatternRepo) Update(ctx context.Context, p *entity.PatternRow) error {
	_, err := r.q.Exec(ctx, `
		UPDATE extraction_patterns SET
			provider_tax_id = $2, kind = $3, target_field = $4, code = $5, display = $6,
			value_type = $7, regex = $8, priority = $9, provider_specific = $10, active = $11, updated_at = $12
		WHERE id = $1`,
		p.ID, p.ProviderTaxID, p.Kind, p.TargetField, p.Code, p.Display,
		p.ValueType, p.Regex, p.Priority, p.ProviderSpecific, p.Active, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update patrón: %w", err)
	}
	return nil
}

// Delete elimina la fila de patrón.
func (r *PatternRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM extraction_patterns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patrón: %w", err)
	}
	return nil
}
