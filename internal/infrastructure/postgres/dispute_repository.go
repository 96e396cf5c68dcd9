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

var _ repository.DisputeRepository = (*DisputeRepo)(nil)

// DisputeRepo reclamos y su bitácora sobre PostgreSQL.
type DisputeRepo struct {
	q Querier
}

// NewDisputeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDisputeRepository(q Querier) *DisputeRepo {
	return &DisputeRepo{q: q}
}

const disputeColumns = `id, case_number, cost_invoice_id, ot_id, kind, detail, state, outcome,
	disputed_amount, recovered_amount, created_by, created_at, updated_at`

func scanDispute(row pgx.Row) (*entity.Dispute, error) {
	var d entity.Dispute
	err := row.Scan(&d.ID, &d.CaseNumber, &d.CostInvoiceID, &d.OTID, &d.Kind, &d.Detail, &d.State, &d.Outcome,
		&d.DisputedAmount, &d.RecoveredAmount, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// Create persiste un reclamo.
func (r *DisputeRepo) Create(ctx context.Context, d *entity.Dispute) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO disputes (`+disputeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		d.ID, d.CaseNumber, d.CostInvoiceID, d.OTID, d.Kind, d.Detail, d.State, d.Outcome,
		d.DisputedAmount, d.RecoveredAmount, d.CreatedBy, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reclamo %s: %w", d.CaseNumber, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert reclamo: %w", err)
	}
	return nil
}

// GetByID obtiene un reclamo por ID.
func (r *DisputeRepo) GetByID(ctx context.Context, id string) (*entity.Dispute, error) {
	d, err := scanDispute(r.q.QueryRow(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get reclamo: %w", err)
	}
	return d, nil
}

// Update actualiza estado, resultado y montos del reclamo.
func (r *DisputeRepo) Update(ctx context.Context, d *entity.Dispute) error {
	_, err := r.q.Exec(ctx, `
		UPDATE disputes
		SET kind = $2, detail = $3, state = $4, outcome = $5,
		    disputed_amount = $6, recovered_amount = $7, updated_at = $8
		WHERE id = $1`,
		d.ID, d.Kind, d.Detail, d.State, d.Outcome, d.DisputedAmount, d.RecoveredAmount, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update reclamo: %w", err)
	}
	return nil
}

// ListByInvoice reclamos de una factura, más recientes primero.
func (r *DisputeRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Dispute, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE cost_invoice_id = $1 ORDER BY created_at DESC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list reclamos por factura: %w", err)
	}
	defer rows.Close()
	return collectDisputes(rows)
}

// List reclamos filtrados por estado.
func (r *DisputeRepo) List(ctx context.Context, state string, limit, offset int) ([]*entity.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes`
	args := []any{}
	if state != "" {
		query += ` WHERE state = $1`
		args = append(args, state)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reclamos: %w", err)
	}
	defer rows.Close()
	return collectDisputes(rows)
}

// NextCaseNumber genera el consecutivo REC-<año>-<n> contando los casos del año.
func (r *DisputeRepo) NextCaseNumber(ctx context.Context, year int) (string, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM disputes WHERE case_number LIKE $1`,
		fmt.Sprintf("REC-%d-%%", year)).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("next case number: %w", err)
	}
	return fmt.Sprintf("REC-%d-%d", year, count+1), nil
}

// CreateEvent agrega un evento a la bitácora del reclamo.
func (r *DisputeRepo) CreateEvent(ctx context.Context, e *entity.DisputeEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO dispute_events (id, dispute_id, type, detail, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.DisputeID, e.Type, e.Detail, e.Actor, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evento de reclamo: %w", err)
	}
	return nil
}

// ListEvents bitácora del reclamo en orden cronológico.
func (r *DisputeRepo) ListEvents(ctx context.Context, disputeID string) ([]*entity.DisputeEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, dispute_id, type, detail, actor, created_at
		FROM dispute_events WHERE dispute_id = $1 ORDER BY created_at`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("list eventos: %w", err)
	}
	defer rows.Close()
	var list []*entity.DisputeEvent
	for rows.Next() {
		var e entity.DisputeEvent
		if err := rows.Scan(&e.ID, &e.DisputeID, &e.Type, &e.Detail, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evento: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

func collectDisputes(rows pgx.Rows) ([]*entity.Dispute, error) {
	var list []*entity.Dispute
	for rows.Next() {
		var d entity.Dispute
		if err := rows.Scan(&d.ID, &d.CaseNumber, &d.CostInvoiceID, &d.OTID, &d.Kind, &d.Detail, &d.State, &d.Outcome,
			&d.DisputedAmount, &d.RecoveredAmount, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reclamo: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}
