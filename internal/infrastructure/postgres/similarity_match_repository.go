package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

var (
	_ repository.SimilarityMatchRepository  = (*SimilarityMatchRepo)(nil)
	_ repository.ClientResolutionRepository = (*ClientResolutionRepo)(nil)
)

// SimilarityMatchRepo sugerencias de deduplicación de alias. El par se
// persiste ordenado (alias_1 < alias_2) para que el índice único aplique sin
// importar el orden de llegada.
type SimilarityMatchRepo struct {
	q Querier
}

// NewSimilarityMatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSimilarityMatchRepository(q Querier) *SimilarityMatchRepo {
	return &SimilarityMatchRepo{q: q}
}

const matchColumns = `id, alias_1_id, alias_2_id, score, method, status, reviewer_id, review_notes, created_at, updated_at`

func scanMatch(row pgx.Row) (*entity.SimilarityMatch, error) {
	var m entity.SimilarityMatch
	err := row.Scan(&m.ID, &m.Alias1ID, &m.Alias2ID, &m.Score, &m.Method, &m.Status,
		&m.ReviewerID, &m.ReviewNotes, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// GetByID obtiene una sugerencia por ID.
func (r *SimilarityMatchRepo) GetByID(ctx context.Context, id string) (*entity.SimilarityMatch, error) {
	m, err := scanMatch(r.q.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM similarity_matches WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

// GetByPair busca por el par ordenado.
func (r *SimilarityMatchRepo) GetByPair(ctx context.Context, alias1, alias2 string) (*entity.SimilarityMatch, error) {
	a1, a2 := entity.OrderPair(alias1, alias2)
	m, err := scanMatch(r.q.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM similarity_matches WHERE alias_1_id = $1 AND alias_2_id = $2`, a1, a2))
	if err != nil {
		return nil, fmt.Errorf("get match por par: %w", err)
	}
	return m, nil
}

// Upsert crea la sugerencia o actualiza el score si el par ya existe. El
// estado de una existente no se toca: una revisión hecha no se reabre.
func (r *SimilarityMatchRepo) Upsert(ctx context.Context, m *entity.SimilarityMatch) error {
	a1, a2 := entity.OrderPair(m.Alias1ID, m.Alias2ID)
	m.Alias1ID, m.Alias2ID = a1, a2
	query := `
		INSERT INTO similarity_matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (alias_1_id, alias_2_id) DO UPDATE
		SET score = EXCLUDED.score, method = EXCLUDED.method, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.Alias1ID, m.Alias2ID, m.Score, m.Method, m.Status,
		m.ReviewerID, m.ReviewNotes, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}

// Update actualiza estado y revisión de la sugerencia.
func (r *SimilarityMatchRepo) Update(ctx context.Context, m *entity.SimilarityMatch) error {
	_, err := r.q.Exec(ctx, `
		UPDATE similarity_matches
		SET score = $2, status = $3, reviewer_id = $4, review_notes = $5, updated_at = $6
		WHERE id = $1`,
		m.ID, m.Score, m.Status, m.ReviewerID, m.ReviewNotes, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return nil
}

// ListPending sugerencias pendientes paginadas, de mayor a menor score.
func (r *SimilarityMatchRepo) ListPending(ctx context.Context, limit, offset int) ([]*entity.SimilarityMatch, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+matchColumns+` FROM similarity_matches
		 WHERE status = $1 ORDER BY score DESC LIMIT $2 OFFSET $3`,
		entity.MatchStatusPending, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list matches pendientes: %w", err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

// ListPendingAll todas las pendientes, para el barrido previo a regenerar.
func (r *SimilarityMatchRepo) ListPendingAll(ctx context.Context) ([]*entity.SimilarityMatch, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+matchColumns+` FROM similarity_matches WHERE status = $1`,
		entity.MatchStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list matches pendientes: %w", err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

func collectMatches(rows pgx.Rows) ([]*entity.SimilarityMatch, error) {
	var list []*entity.SimilarityMatch
	for rows.Next() {
		var m entity.SimilarityMatch
		if err := rows.Scan(&m.ID, &m.Alias1ID, &m.Alias2ID, &m.Score, &m.Method, &m.Status,
			&m.ReviewerID, &m.ReviewNotes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// ClientResolutionRepo cache de resoluciones manuales nombre crudo -> alias.
type ClientResolutionRepo struct {
	q Querier
}

// NewClientResolutionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewClientResolutionRepository(q Querier) *ClientResolutionRepo {
	return &ClientResolutionRepo{q: q}
}

// GetByNormalizedName busca una resolución cacheada.
func (r *ClientResolutionRepo) GetByNormalizedName(ctx context.Context, normalized string) (*entity.ClientResolution, error) {
	var res entity.ClientResolution
	err := r.q.QueryRow(ctx, `
		SELECT id, original_name, normalized_name, resolved_to_id, created_at
		FROM client_resolutions WHERE normalized_name = $1`, normalized).
		Scan(&res.ID, &res.OriginalName, &res.NormalizedName, &res.ResolvedToID, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resolución: %w", err)
	}
	return &res, nil
}

// Upsert guarda la resolución; una decisión nueva sobre el mismo nombre
// reemplaza a la anterior.
func (r *ClientResolutionRepo) Upsert(ctx context.Context, res *entity.ClientResolution) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO client_resolutions (id, original_name, normalized_name, resolved_to_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (normalized_name) DO UPDATE
		SET original_name = EXCLUDED.original_name, resolved_to_id = EXCLUDED.resolved_to_id`,
		res.ID, res.OriginalName, res.NormalizedName, res.ResolvedToID, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert resolución: %w", err)
	}
	return nil
}
