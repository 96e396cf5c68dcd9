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

var _ repository.SalesInvoiceRepository = (*SalesInvoiceRepo)(nil)

// SalesInvoiceRepo facturas de venta, líneas y asignaciones sobre PostgreSQL.
type SalesInvoiceRepo struct {
	q Querier
}

// NewSalesInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSalesInvoiceRepository(q Querier) *SalesInvoiceRepo {
	return &SalesInvoiceRepo{q: q}
}

const salesColumns = `id, number, document_type, operation_type, client_id, ot_id, issue_date, due_date,
	subtotal_taxable, subtotal_exempt, vat_total, amount_total, discount, vat_withheld, income_withheld,
	total_withheld, net_to_collect, status_billing, status_payment, amount_paid, amount_pending,
	sri_auth, access_key, uploaded_file_id, deleted_at, created_at, updated_at`

func scanSalesInvoice(row pgx.Row) (*entity.SalesInvoice, error) {
	var inv entity.SalesInvoice
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.DocumentType, &inv.OperationType, &inv.ClientID, &inv.OTID, &inv.IssueDate, &inv.DueDate,
		&inv.SubtotalTaxable, &inv.SubtotalExempt, &inv.VATTotal, &inv.AmountTotal, &inv.Discount, &inv.VATWithheld, &inv.IncomeWithheld,
		&inv.TotalWithheld, &inv.NetToCollect, &inv.StatusBilling, &inv.StatusPayment, &inv.AmountPaid, &inv.AmountPending,
		&inv.SRIAuth, &inv.AccessKey, &inv.UploadedFileID, &inv.DeletedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// Create persiste la factura de venta.
func (r *SalesInvoiceRepo) Create(ctx context.Context, inv *entity.SalesInvoice) error {
	query := `
		INSERT INTO sales_invoices (` + salesColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.Number, inv.DocumentType, inv.OperationType, inv.ClientID, inv.OTID, inv.IssueDate, inv.DueDate,
		inv.SubtotalTaxable, inv.SubtotalExempt, inv.VATTotal, inv.AmountTotal, inv.Discount, inv.VATWithheld, inv.IncomeWithheld,
		inv.TotalWithheld, inv.NetToCollect, inv.StatusBilling, inv.StatusPayment, inv.AmountPaid, inv.AmountPending,
		inv.SRIAuth, inv.AccessKey, inv.UploadedFileID, inv.DeletedAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("factura de venta %s: %w", inv.Number, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert factura de venta: %w", err)
	}
	return nil
}

// GetByID obtiene la factura por ID.
func (r *SalesInvoiceRepo) GetByID(ctx context.Context, id string) (*entity.SalesInvoice, error) {
	inv, err := scanSalesInvoice(r.q.QueryRow(ctx,
		`SELECT `+salesColumns+` FROM sales_invoices WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("get factura de venta: %w", err)
	}
	return inv, nil
}

// GetByNumber obtiene la factura activa con ese número.
func (r *SalesInvoiceRepo) GetByNumber(ctx context.Context, number string) (*entity.SalesInvoice, error) {
	inv, err := scanSalesInvoice(r.q.QueryRow(ctx,
		`SELECT `+salesColumns+` FROM sales_invoices WHERE number = $1 AND deleted_at IS NULL`, number))
	if err != nil {
		return nil, fmt.Errorf("get factura de venta por número: %w", err)
	}
	return inv, nil
}

// Update actualiza la factura completa.
func (r *SalesInvoiceRepo) Update(ctx context.Context, inv *entity.SalesInvoice) error {
	query := `
		UPDATE sales_invoices SET
			number = $2, document_type = $3, operation_type = $4, client_id = $5, ot_id = $6,
			issue_date = $7, due_date = $8, subtotal_taxable = $9, subtotal_exempt = $10,
			vat_total = $11, amount_total = $12, discount = $13, vat_withheld = $14,
			income_withheld = $15, total_withheld = $16, net_to_collect = $17, status_billing = $18,
			status_payment = $19, amount_paid = $20, amount_pending = $21, sri_auth = $22,
			access_key = $23, updated_at = $24
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.Number, inv.DocumentType, inv.OperationType, inv.ClientID, inv.OTID,
		inv.IssueDate, inv.DueDate, inv.SubtotalTaxable, inv.SubtotalExempt,
		inv.VATTotal, inv.AmountTotal, inv.Discount, inv.VATWithheld,
		inv.IncomeWithheld, inv.TotalWithheld, inv.NetToCollect, inv.StatusBilling,
		inv.StatusPayment, inv.AmountPaid, inv.AmountPending, inv.SRIAuth,
		inv.AccessKey, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("factura de venta %s: %w", inv.Number, domain.ErrDuplicate)
		}
		return fmt.Errorf("update factura de venta: %w", err)
	}
	return nil
}

// SoftDelete marca la factura como eliminada.
func (r *SalesInvoiceRepo) SoftDelete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE sales_invoices SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete factura de venta: %w", err)
	}
	return nil
}

// List facturas por cliente y estado de facturación.
func (r *SalesInvoiceRepo) List(ctx context.Context, clientID, statusBilling string, limit, offset int) ([]*entity.SalesInvoice, error) {
	query := `SELECT ` + salesColumns + ` FROM sales_invoices WHERE deleted_at IS NULL`
	args := []any{}
	if clientID != "" {
		args = append(args, clientID)
		query += fmt.Sprintf(` AND client_id = $%d`, len(args))
	}
	if statusBilling != "" {
		args = append(args, statusBilling)
		query += fmt.Sprintf(` AND status_billing = $%d`, len(args))
	}
	query += fmt.Sprintf(` ORDER BY issue_date DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list facturas de venta: %w", err)
	}
	defer rows.Close()
	var list []*entity.SalesInvoice
	for rows.Next() {
		var inv entity.SalesInvoice
		if err := rows.Scan(
			&inv.ID, &inv.Number, &inv.DocumentType, &inv.OperationType, &inv.ClientID, &inv.OTID, &inv.IssueDate, &inv.DueDate,
			&inv.SubtotalTaxable, &inv.SubtotalExempt, &inv.VATTotal, &inv.AmountTotal, &inv.Discount, &inv.VATWithheld, &inv.IncomeWithheld,
			&inv.TotalWithheld, &inv.NetToCollect, &inv.StatusBilling, &inv.StatusPayment, &inv.AmountPaid, &inv.AmountPending,
			&inv.SRIAuth, &inv.AccessKey, &inv.UploadedFileID, &inv.DeletedAt, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan factura de venta: %w", err)
		}
		list = append(list, &inv)
	}
	return list, rows.Err()
}

// Stats agregados del panel de ventas.
func (r *SalesInvoiceRepo) Stats(ctx context.Context) (*repository.SalesInvoiceStats, error) {
	s := &repository.SalesInvoiceStats{ByBilling: make(map[string]int)}
	err := r.q.QueryRow(ctx, `
		SELECT count(*), coalesce(sum(amount_total), 0), coalesce(sum(amount_paid), 0)
		FROM sales_invoices WHERE deleted_at IS NULL`).
		Scan(&s.Total, &s.AmountTotal, &s.AmountPaid)
	if err != nil {
		return nil, fmt.Errorf("stats ventas: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT status_billing, count(*) FROM sales_invoices
		WHERE deleted_at IS NULL GROUP BY status_billing`)
	if err != nil {
		return nil, fmt.Errorf("stats ventas: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, fmt.Errorf("stats ventas: %w", err)
		}
		s.ByBilling[k] = n
	}
	return s, rows.Err()
}

const itemColumns = `id, invoice_id, line_number, description, concept, service_type, quantity, unit_price,
	subtotal, applies_vat, vat_pct, vat, discount_pct, discount_amount, total, exemption_reason,
	deleted_at, created_at, updated_at`

// CreateItem persiste una línea.
func (r *SalesInvoiceRepo) CreateItem(ctx context.Context, it *entity.SalesInvoiceItem) error {
	query := `
		INSERT INTO sales_invoice_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.q.Exec(ctx, query,
		it.ID, it.InvoiceID, it.LineNumber, it.Description, it.Concept, it.ServiceType, it.Quantity, it.UnitPrice,
		it.Subtotal, it.AppliesVAT, it.VATPct, it.VAT, it.DiscountPct, it.DiscountAmount, it.Total, it.ExemptionReason,
		it.DeletedAt, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert línea: %w", err)
	}
	return nil
}

// UpdateItem actualiza una línea existente.
func (r *SalesInvoiceRepo) UpdateItem(ctx context.Context, it *entity.SalesInvoiceItem) error {
	query := `
		UPDATE sales_invoice_items SET
			line_number = $2, description = $3, concept = $4, service_type = $5, quantity = $6,
			unit_price = $7, subtotal = $8, applies_vat = $9, vat_pct = $10, vat = $11,
			discount_pct = $12, discount_amount = $13, total = $14, exemption_reason = $15, updated_at = $16
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		it.ID, it.LineNumber, it.Description, it.Concept, it.ServiceType, it.Quantity,
		it.UnitPrice, it.Subtotal, it.AppliesVAT, it.VATPct, it.VAT,
		it.DiscountPct, it.DiscountAmount, it.Total, it.ExemptionReason, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update línea: %w", err)
	}
	return nil
}

// SoftDeleteItem marca la línea como eliminada.
func (r *SalesInvoiceRepo) SoftDeleteItem(ctx context.Context, itemID string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE sales_invoice_items SET deleted_at = now(), updated_at = now() WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete línea: %w", err)
	}
	return nil
}

// ListActiveItems líneas activas en orden de line_number.
func (r *SalesInvoiceRepo) ListActiveItems(ctx context.Context, invoiceID string) ([]*entity.SalesInvoiceItem, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+itemColumns+` FROM sales_invoice_items
		 WHERE invoice_id = $1 AND deleted_at IS NULL
		 ORDER BY line_number`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list líneas: %w", err)
	}
	defer rows.Close()
	var list []*entity.SalesInvoiceItem
	for rows.Next() {
		var it entity.SalesInvoiceItem
		if err := rows.Scan(
			&it.ID, &it.InvoiceID, &it.LineNumber, &it.Description, &it.Concept, &it.ServiceType, &it.Quantity, &it.UnitPrice,
			&it.Subtotal, &it.AppliesVAT, &it.VATPct, &it.VAT, &it.DiscountPct, &it.DiscountAmount, &it.Total, &it.ExemptionReason,
			&it.DeletedAt, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan línea: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

// CreateMapping registra la asignación costo <-> venta. El par es único.
func (r *SalesInvoiceRepo) CreateMapping(ctx context.Context, m *entity.InvoiceSalesMapping) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO invoice_sales_mappings (id, sales_invoice_id, cost_invoice_id, assigned_amount, markup_pct, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.SalesInvoiceID, m.CostInvoiceID, m.AssignedAmount, m.MarkupPct, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("asignación ya existe: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert asignación: %w", err)
	}
	return nil
}

// DeleteMapping elimina una asignación puntual.
func (r *SalesInvoiceRepo) DeleteMapping(ctx context.Context, salesInvoiceID, costInvoiceID string) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM invoice_sales_mappings WHERE sales_invoice_id = $1 AND cost_invoice_id = $2`,
		salesInvoiceID, costInvoiceID)
	if err != nil {
		return fmt.Errorf("delete asignación: %w", err)
	}
	return nil
}

// DeleteMappingsByInvoice elimina todas las asignaciones de una venta anulada.
func (r *SalesInvoiceRepo) DeleteMappingsByInvoice(ctx context.Context, salesInvoiceID string) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM invoice_sales_mappings WHERE sales_invoice_id = $1`, salesInvoiceID)
	if err != nil {
		return fmt.Errorf("delete asignaciones: %w", err)
	}
	return nil
}

// ListMappings asignaciones de una venta.
func (r *SalesInvoiceRepo) ListMappings(ctx context.Context, salesInvoiceID string) ([]*entity.InvoiceSalesMapping, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sales_invoice_id, cost_invoice_id, assigned_amount, markup_pct, created_at
		FROM invoice_sales_mappings WHERE sales_invoice_id = $1 ORDER BY created_at`, salesInvoiceID)
	if err != nil {
		return nil, fmt.Errorf("list asignaciones: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceSalesMapping
	for rows.Next() {
		var m entity.InvoiceSalesMapping
		if err := rows.Scan(&m.ID, &m.SalesInvoiceID, &m.CostInvoiceID, &m.AssignedAmount, &m.MarkupPct, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asignación: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
