package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

// PaymentRepo abonos contra facturas de venta sobre PostgreSQL.
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

const paymentColumns = `id, sales_invoice_id, payment_date, amount, method, reference, state,
	reviewer_id, review_notes, reviewed_at, uploaded_file_id, created_at, updated_at`

// Create registra el abono.
func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.SalesInvoiceID, p.PaymentDate, p.Amount, p.Method, p.Reference, p.State,
		p.ReviewerID, p.ReviewNotes, p.ReviewedAt, p.UploadedFileID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pago: %w", err)
	}
	return nil
}

// GetByID obtiene el pago por ID.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	var p entity.Payment
	err := r.q.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id).
		Scan(&p.ID, &p.SalesInvoiceID, &p.PaymentDate, &p.Amount, &p.Method, &p.Reference, &p.State,
			&p.ReviewerID, &p.ReviewNotes, &p.ReviewedAt, &p.UploadedFileID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pago: %w", err)
	}
	return &p, nil
}

// Update actualiza estado y revisión del pago.
func (r *PaymentRepo) Update(ctx context.Context, p *entity.Payment) error {
	_, err := r.q.Exec(ctx, `
		UPDATE payments
		SET payment_date = $2, amount = $3, method = $4, reference = $5, state = $6,
		    reviewer_id = $7, review_notes = $8, reviewed_at = $9, updated_at = $10
		WHERE id = $1`,
		p.ID, p.PaymentDate, p.Amount, p.Method, p.Reference, p.State,
		p.ReviewerID, p.ReviewNotes, p.ReviewedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update pago: %w", err)
	}
	return nil
}

// ListByInvoice pagos de una factura en orden cronológico.
func (r *PaymentRepo) ListByInvoice(ctx context.Context, salesInvoiceID string) ([]*entity.Payment, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE sales_invoice_id = $1 ORDER BY payment_date`, salesInvoiceID)
	if err != nil {
		return nil, fmt.Errorf("list pagos: %w", err)
	}
	defer rows.Close()
	var list []*entity.Payment
	for rows.Next() {
		var p entity.Payment
		if err := rows.Scan(&p.ID, &p.SalesInvoiceID, &p.PaymentDate, &p.Amount, &p.Method, &p.Reference, &p.State,
			&p.ReviewerID, &p.ReviewNotes, &p.ReviewedAt, &p.UploadedFileID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pago: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// SumValidatedByInvoice suma de pagos validados de la factura.
func (r *PaymentRepo) SumValidatedByInvoice(ctx context.Context, salesInvoiceID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT coalesce(sum(amount), 0) FROM payments
		WHERE sales_invoice_id = $1 AND state = $2`,
		salesInvoiceID, entity.PaymentValidated).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum pagos validados: %w", err)
	}
	return sum, nil
}
