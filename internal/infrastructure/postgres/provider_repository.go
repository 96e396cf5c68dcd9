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

var _ repository.ProviderRepository = (*ProviderRepo)(nil)

// ProviderRepo implementación del puerto ProviderRepository sobre PostgreSQL.
type ProviderRepo struct {
	q Querier
}

// NewProviderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProviderRepository(q Querier) *ProviderRepo {
	return &ProviderRepo{q: q}
}

const providerColumns = `id, name, tax_id, email, phone, has_credit, credit_days, deleted_at, created_at, updated_at`

func scanProvider(row pgx.Row) (*entity.Provider, error) {
	var p entity.Provider
	err := row.Scan(&p.ID, &p.Name, &p.TaxID, &p.Email, &p.Phone, &p.HasCredit, &p.CreditDays,
		&p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Create persiste un proveedor.
func (r *ProviderRepo) Create(ctx context.Context, p *entity.Provider) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO providers (`+providerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.TaxID, p.Email, p.Phone, p.HasCredit, p.CreditDays,
		p.DeletedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("proveedor %s: %w", p.Name, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert proveedor: %w", err)
	}
	return nil
}

// GetByID obtiene un proveedor por ID.
func (r *ProviderRepo) GetByID(ctx context.Context, id string) (*entity.Provider, error) {
	p, err := scanProvider(r.q.QueryRow(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("get proveedor: %w", err)
	}
	return p, nil
}

// GetByTaxID obtiene un proveedor por NIT.
func (r *ProviderRepo) GetByTaxID(ctx context.Context, taxID string) (*entity.Provider, error) {
	p, err := scanProvider(r.q.QueryRow(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE tax_id = $1 AND deleted_at IS NULL`, taxID))
	if err != nil {
		return nil, fmt.Errorf("get proveedor por NIT: %w", err)
	}
	return p, nil
}

// GetByNameFold nombre exacto sin distinguir mayúsculas.
func (r *ProviderRepo) GetByNameFold(ctx context.Context, name string) (*entity.Provider, error) {
	p, err := scanProvider(r.q.QueryRow(ctx,
		`SELECT `+providerColumns+` FROM providers
		 WHERE upper(name) = upper($1) AND deleted_at IS NULL LIMIT 1`, name))
	if err != nil {
		return nil, fmt.Errorf("get proveedor por nombre: %w", err)
	}
	return p, nil
}

// Update actualiza el proveedor.
func (r *ProviderRepo) Update(ctx context.Context, p *entity.Provider) error {
	_, err := r.q.Exec(ctx, `
		UPDATE providers
		SET name = $2, tax_id = $3, email = $4, phone = $5, has_credit = $6, credit_days = $7, updated_at = $8
		WHERE id = $1`,
		p.ID, p.Name, p.TaxID, p.Email, p.Phone, p.HasCredit, p.CreditDays, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("proveedor %s: %w", p.Name, domain.ErrDuplicate)
		}
		return fmt.Errorf("update proveedor: %w", err)
	}
	return nil
}

// List proveedores con búsqueda opcional sobre nombre y NIT.
func (r *ProviderRepo) List(ctx context.Context, search string, limit, offset int) ([]*entity.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE deleted_at IS NULL`
	args := []any{}
	if search != "" {
		query += ` AND (name ILIKE $1 OR tax_id ILIKE $1)`
		args = append(args, likePattern(search))
	}
	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list proveedores: %w", err)
	}
	defer rows.Close()
	var list []*entity.Provider
	for rows.Next() {
		var p entity.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.TaxID, &p.Email, &p.Phone, &p.HasCredit, &p.CreditDays,
			&p.DeletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan proveedor: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// SoftDelete marca el proveedor como eliminado.
func (r *ProviderRepo) SoftDelete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `UPDATE providers SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete proveedor: %w", err)
	}
	return nil
}
