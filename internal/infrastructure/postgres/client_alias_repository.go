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

var _ repository.ClientAliasRepository = (*ClientAliasRepo)(nil)

// ClientAliasRepo implementación del puerto ClientAliasRepository sobre PostgreSQL.
type ClientAliasRepo struct {
	q Querier
}

// NewClientAliasRepository construye el adaptador. Pasar pool o tx (Querier).
func NewClientAliasRepository(q Querier) *ClientAliasRepo {
	return &ClientAliasRepo{q: q}
}

const aliasColumns = `id, original_name, normalized_name, short_name, country_tax_type, tax_id,
	secondary_tax_id, applies_vat_withholding, applies_income_withholding, income_withholding_pct,
	accepts_fiscal_credit, merged_into_id, verified, usage_count, deleted_at, created_at, updated_at`

func scanAlias(row pgx.Row) (*entity.ClientAlias, error) {
	var a entity.ClientAlias
	err := row.Scan(
		&a.ID, &a.OriginalName, &a.NormalizedName, &a.ShortName, &a.CountryTaxType, &a.TaxID,
		&a.SecondaryTaxID, &a.AppliesVATWithholding, &a.AppliesIncomeWithholding, &a.IncomeWithholdingPct,
		&a.AcceptsFiscalCredit, &a.MergedIntoID, &a.Verified, &a.UsageCount, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Create persiste un alias nuevo.
func (r *ClientAliasRepo) Create(ctx context.Context, a *entity.ClientAlias) error {
	query := `
		INSERT INTO client_aliases (` + aliasColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.OriginalName, a.NormalizedName, a.ShortName, a.CountryTaxType, a.TaxID,
		a.SecondaryTaxID, a.AppliesVATWithholding, a.AppliesIncomeWithholding, a.IncomeWithholdingPct,
		a.AcceptsFiscalCredit, a.MergedIntoID, a.Verified, a.UsageCount, a.DeletedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("alias %s: %w", a.NormalizedName, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert alias: %w", err)
	}
	return nil
}

// GetByID obtiene un alias por ID.
func (r *ClientAliasRepo) GetByID(ctx context.Context, id string) (*entity.ClientAlias, error) {
	a, err := scanAlias(r.q.QueryRow(ctx,
		`SELECT `+aliasColumns+` FROM client_aliases WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("get alias: %w", err)
	}
	return a, nil
}

// GetByNormalizedName busca por nombre normalizado entre alias activos.
func (r *ClientAliasRepo) GetByNormalizedName(ctx context.Context, normalized string) (*entity.ClientAlias, error) {
	a, err := scanAlias(r.q.QueryRow(ctx,
		`SELECT `+aliasColumns+` FROM client_aliases WHERE normalized_name = $1 AND deleted_at IS NULL`, normalized))
	if err != nil {
		return nil, fmt.Errorf("get alias por nombre: %w", err)
	}
	return a, nil
}

// ShortNameExists unicidad global del nombre corto entre alias activos.
func (r *ClientAliasRepo) ShortNameExists(ctx context.Context, shortName, excludeID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM client_aliases
			WHERE short_name = $1 AND id <> $2 AND deleted_at IS NULL
		)`, shortName, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("short name exists: %w", err)
	}
	return exists, nil
}

// Update actualiza el alias completo.
func (r *ClientAliasRepo) Update(ctx context.Context, a *entity.ClientAlias) error {
	query := `
		UPDATE client_aliases SET
			original_name = $2, normalized_name = $3, short_name = $4, country_tax_type = $5,
			tax_id = $6, secondary_tax_id = $7, applies_vat_withholding = $8,
			applies_income_withholding = $9, income_withholding_pct = $10, accepts_fiscal_credit = $11,
			merged_into_id = $12, verified = $13, usage_count = $14, updated_at = $15
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.OriginalName, a.NormalizedName, a.ShortName, a.CountryTaxType,
		a.TaxID, a.SecondaryTaxID, a.AppliesVATWithholding,
		a.AppliesIncomeWithholding, a.IncomeWithholdingPct, a.AcceptsFiscalCredit,
		a.MergedIntoID, a.Verified, a.UsageCount, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("alias %s: %w", a.NormalizedName, domain.ErrDuplicate)
		}
		return fmt.Errorf("update alias: %w", err)
	}
	return nil
}

// ListActive alias no eliminados y no fusionados.
func (r *ClientAliasRepo) ListActive(ctx context.Context) ([]*entity.ClientAlias, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+aliasColumns+` FROM client_aliases
		 WHERE deleted_at IS NULL AND merged_into_id IS NULL
		 ORDER BY normalized_name`)
	if err != nil {
		return nil, fmt.Errorf("list alias activos: %w", err)
	}
	defer rows.Close()
	return collectAliases(rows)
}

// List alias paginados con búsqueda opcional sobre nombre y NIT.
func (r *ClientAliasRepo) List(ctx context.Context, search string, limit, offset int) ([]*entity.ClientAlias, error) {
	query := `SELECT ` + aliasColumns + ` FROM client_aliases WHERE deleted_at IS NULL`
	args := []any{}
	if search != "" {
		query += ` AND (normalized_name ILIKE $1 OR original_name ILIKE $1 OR tax_id ILIKE $1)`
		args = append(args, likePattern(search))
	}
	query += fmt.Sprintf(` ORDER BY normalized_name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alias: %w", err)
	}
	defer rows.Close()
	return collectAliases(rows)
}

// SoftDelete marca el alias como eliminado.
func (r *ClientAliasRepo) SoftDelete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE client_aliases SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}
	return nil
}

// Stats conteos por verificación y fusión.
func (r *ClientAliasRepo) Stats(ctx context.Context) (*repository.AliasStats, error) {
	var s repository.AliasStats
	err := r.q.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE verified),
		       count(*) FILTER (WHERE merged_into_id IS NOT NULL),
		       count(*) FILTER (WHERE NOT verified AND merged_into_id IS NULL)
		FROM client_aliases WHERE deleted_at IS NULL`).
		Scan(&s.Total, &s.Verified, &s.Merged, &s.Pending)
	if err != nil {
		return nil, fmt.Errorf("alias stats: %w", err)
	}
	return &s, nil
}

func collectAliases(rows pgx.Rows) ([]*entity.ClientAlias, error) {
	var list []*entity.ClientAlias
	for rows.Next() {
		var a entity.ClientAlias
		if err := rows.Scan(
			&a.ID, &a.OriginalName, &a.NormalizedName, &a.ShortName, &a.CountryTaxType, &a.TaxID,
			&a.SecondaryTaxID, &a.AppliesVATWithholding, &a.AppliesIncomeWithholding, &a.IncomeWithholdingPct,
			&a.AcceptsFiscalCredit, &a.MergedIntoID, &a.Verified, &a.UsageCount, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
