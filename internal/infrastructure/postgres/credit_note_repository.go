package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

var (
	_ repository.CreditNoteRepository      = (*CreditNoteRepo)(nil)
	_ repository.SalesCreditNoteRepository = (*SalesCreditNoteRepo)(nil)
)

// CreditNoteRepo notas de crédito de costo sobre PostgreSQL.
type CreditNoteRepo struct {
	q Querier
}

// NewCreditNoteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCreditNoteRepository(q Querier) *CreditNoteRepo {
	return &CreditNoteRepo{q: q}
}

const creditNoteColumns = `id, number, related_invoice_id, provider_name, issue_date, amount,
	reason, state, applied_date, uploaded_file_id, created_at, updated_at`

// Create persiste la nota de crédito.
func (r *CreditNoteRepo) Create(ctx context.Context, n *entity.CreditNote) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO credit_notes (`+creditNoteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		n.ID, n.Number, n.RelatedInvoiceID, n.ProviderName, n.IssueDate, n.Amount,
		n.Reason, n.State, n.AppliedDate, n.UploadedFileID, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("nota %s: %w", n.Number, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert nota de crédito: %w", err)
	}
	return nil
}

// GetByID obtiene la nota por ID.
func (r *CreditNoteRepo) GetByID(ctx context.Context, id string) (*entity.CreditNote, error) {
	var n entity.CreditNote
	err := r.q.QueryRow(ctx,
		`SELECT `+creditNoteColumns+` FROM credit_notes WHERE id = $1`, id).
		Scan(&n.ID, &n.Number, &n.RelatedInvoiceID, &n.ProviderName, &n.IssueDate, &n.Amount,
			&n.Reason, &n.State, &n.AppliedDate, &n.UploadedFileID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get nota de crédito: %w", err)
	}
	return &n, nil
}

// Update actualiza la nota.
func (r *CreditNoteRepo) Update(ctx context.Context, n *entity.CreditNote) error {
	_, err := r.q.Exec(ctx, `
		UPDATE credit_notes
		SET number = $2, related_invoice_id = $3, provider_name = $4, issue_date = $5,
		    amount = $6, reason = $7, state = $8, applied_date = $9, updated_at = $10
		WHERE id = $1`,
		n.ID, n.Number, n.RelatedInvoiceID, n.ProviderName, n.IssueDate,
		n.Amount, n.Reason, n.State, n.AppliedDate, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update nota de crédito: %w", err)
	}
	return nil
}

// List notas filtradas por estado.
func (r *CreditNoteRepo) List(ctx context.Context, state string, limit, offset int) ([]*entity.CreditNote, error) {
	query := `SELECT ` + creditNoteColumns + ` FROM credit_notes`
	args := []any{}
	if state != "" {
		query += ` WHERE state = $1`
		args = append(args, state)
	}
	query += fmt.Sprintf(` ORDER BY issue_date DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notas: %w", err)
	}
	defer rows.Close()
	var list []*entity.CreditNote
	for rows.Next() {
		var n entity.CreditNote
		if err := rows.Scan(&n.ID, &n.Number, &n.RelatedInvoiceID, &n.ProviderName, &n.IssueDate, &n.Amount,
			&n.Reason, &n.State, &n.AppliedDate, &n.UploadedFileID, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan nota: %w", err)
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

// SumAppliedByInvoice suma de montos (negativos) de notas aplicadas.
func (r *CreditNoteRepo) SumAppliedByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT coalesce(sum(amount), 0) FROM credit_notes
		WHERE related_invoice_id = $1 AND state = $2`,
		invoiceID, entity.CreditNoteApplied).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum notas aplicadas: %w", err)
	}
	return sum, nil
}

// SalesCreditNoteRepo notas de crédito de venta sobre PostgreSQL.
type SalesCreditNoteRepo struct {
	q Querier
}

// NewSalesCreditNoteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSalesCreditNoteRepository(q Querier) *SalesCreditNoteRepo {
	return &SalesCreditNoteRepo{q: q}
}

const salesNoteColumns = `id, number, sales_invoice_id, issue_date, amount, reason, state, applied_date, created_at, updated_at`

// Create persiste la nota de venta.
func (r *SalesCreditNoteRepo) Create(ctx context.Context, n *entity.SalesCreditNote) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales_credit_notes (`+salesNoteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID, n.Number, n.SalesInvoiceID, n.IssueDate, n.Amount, n.Reason, n.State, n.AppliedDate, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("nota de venta %s: %w", n.Number, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert nota de venta: %w", err)
	}
	return nil
}

// GetByID obtiene la nota por ID.
func (r *SalesCreditNoteRepo) GetByID(ctx context.Context, id string) (*entity.SalesCreditNote, error) {
	var n entity.SalesCreditNote
	err := r.q.QueryRow(ctx,
		`SELECT `+salesNoteColumns+` FROM sales_credit_notes WHERE id = $1`, id).
		Scan(&n.ID, &n.Number, &n.SalesInvoiceID, &n.IssueDate, &n.Amount, &n.Reason, &n.State,
			&n.AppliedDate, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get nota de venta: %w", err)
	}
	return &n, nil
}

// Update actualiza la nota de venta.
func (r *SalesCreditNoteRepo) Update(ctx context.Context, n *entity.SalesCreditNote) error {
	_, err := r.q.Exec(ctx, `
		UPDATE sales_credit_notes
		SET number = $2, sales_invoice_id = $3, issue_date = $4, amount = $5,
		    reason = $6, state = $7, applied_date = $8, updated_at = $9
		WHERE id = $1`,
		n.ID, n.Number, n.SalesInvoiceID, n.IssueDate, n.Amount,
		n.Reason, n.State, n.AppliedDate, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update nota de venta: %w", err)
	}
	return nil
}

// SumAppliedByInvoice suma absoluta de notas de venta aplicadas.
func (r *SalesCreditNoteRepo) SumAppliedByInvoice(ctx context.Context, salesInvoiceID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT coalesce(sum(abs(amount)), 0) FROM sales_credit_notes
		WHERE sales_invoice_id = $1 AND state = $2`,
		salesInvoiceID, entity.CreditNoteApplied).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum notas de venta: %w", err)
	}
	return sum, nil
}
