package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

var (
	_ repository.CostInvoiceRepository  = (*CostInvoiceRepo)(nil)
	_ repository.UploadedFileRepository = (*UploadedFileRepo)(nil)
)

// CostInvoiceRepo implementación del puerto CostInvoiceRepository sobre
// PostgreSQL. detected_refs se guarda como jsonb.
type CostInvoiceRepo struct {
	q Querier
}

// NewCostInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCostInvoiceRepository(q Querier) *CostInvoiceRepo {
	return &CostInvoiceRepo{q: q}
}

const costColumns = `id, number, provider_id, provider_name, provider_tax_id, cost_type,
	issue_date, due_date, payment_terms, credit_days, amount_original, amount, amount_applicable,
	ot_id, ot_number_denorm, detected_refs, match_confidence, match_method, needs_review,
	provision_status, provision_date, billing_status, billing_date, uploaded_file_id,
	processed_at, processing_source, deleted_at, created_at, updated_at`

func scanCostInvoice(row pgx.Row) (*entity.CostInvoice, error) {
	var (
		inv  entity.CostInvoice
		refs []byte
	)
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.ProviderID, &inv.ProviderName, &inv.ProviderTaxID, &inv.CostType,
		&inv.IssueDate, &inv.DueDate, &inv.PaymentTerms, &inv.CreditDays, &inv.AmountOriginal, &inv.Amount, &inv.AmountApplicable,
		&inv.OTID, &inv.OTNumberDenorm, &refs, &inv.MatchConfidence, &inv.MatchMethod, &inv.NeedsReview,
		&inv.ProvisionStatus, &inv.ProvisionDate, &inv.BillingStatus, &inv.BillingDate, &inv.UploadedFileID,
		&inv.ProcessedAt, &inv.ProcessingSource, &inv.DeletedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &inv.DetectedRefs); err != nil {
			return nil, fmt.Errorf("detected_refs: %w", err)
		}
	}
	return &inv, nil
}

func marshalRefs(refs []entity.DetectedRef) ([]byte, error) {
	if len(refs) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(refs)
}

// Create persiste una factura de costo.
func (r *CostInvoiceRepo) Create(ctx context.Context, inv *entity.CostInvoice) error {
	refs, err := marshalRefs(inv.DetectedRefs)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO cost_invoices (` + costColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`
	_, err = r.q.Exec(ctx, query,
		inv.ID, inv.Number, inv.ProviderID, inv.ProviderName, inv.ProviderTaxID, inv.CostType,
		inv.IssueDate, inv.DueDate, inv.PaymentTerms, inv.CreditDays, inv.AmountOriginal, inv.Amount, inv.AmountApplicable,
		inv.OTID, inv.OTNumberDenorm, refs, inv.MatchConfidence, inv.MatchMethod, inv.NeedsReview,
		inv.ProvisionStatus, inv.ProvisionDate, inv.BillingStatus, inv.BillingDate, inv.UploadedFileID,
		inv.ProcessedAt, inv.ProcessingSource, inv.DeletedAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("factura %s: %w", inv.Number, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert factura de costo: %w", err)
	}
	return nil
}

// GetByID obtiene una factura por ID.
func (r *CostInvoiceRepo) GetByID(ctx context.Context, id string) (*entity.CostInvoice, error) {
	inv, err := scanCostInvoice(r.q.QueryRow(ctx,
		`SELECT `+costColumns+` FROM cost_invoices WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("get factura: %w", err)
	}
	return inv, nil
}

// GetByNumber obtiene la factura activa con ese número.
func (r *CostInvoiceRepo) GetByNumber(ctx context.Context, number string) (*entity.CostInvoice, error) {
	inv, err := scanCostInvoice(r.q.QueryRow(ctx,
		`SELECT `+costColumns+` FROM cost_invoices WHERE number = $1 AND deleted_at IS NULL`, number))
	if err != nil {
		return nil, fmt.Errorf("get factura por número: %w", err)
	}
	return inv, nil
}

// GetByFileSHA factura activa ligada a un blob por sha256.
func (r *CostInvoiceRepo) GetByFileSHA(ctx context.Context, sha256 string) (*entity.CostInvoice, error) {
	inv, err := scanCostInvoice(r.q.QueryRow(ctx, `
		SELECT `+prefixColumns("ci", costColumns)+`
		FROM cost_invoices ci
		JOIN uploaded_files uf ON uf.id = ci.uploaded_file_id
		WHERE uf.sha256 = $1 AND ci.deleted_at IS NULL
		ORDER BY ci.created_at LIMIT 1`, sha256))
	if err != nil {
		return nil, fmt.Errorf("get factura por sha: %w", err)
	}
	return inv, nil
}

// Update actualiza la factura completa.
func (r *CostInvoiceRepo) Update(ctx context.Context, inv *entity.CostInvoice) error {
	refs, err := marshalRefs(inv.DetectedRefs)
	if err != nil {
		return err
	}
	query := `
		UPDATE cost_invoices SET
			number = $2, provider_id = $3, provider_name = $4, provider_tax_id = $5, cost_type = $6,
			issue_date = $7, due_date = $8, payment_terms = $9, credit_days = $10,
			amount_original = $11, amount = $12, amount_applicable = $13, ot_id = $14,
			ot_number_denorm = $15, detected_refs = $16, match_confidence = $17, match_method = $18,
			needs_review = $19, provision_status = $20, provision_date = $21, billing_status = $22,
			billing_date = $23, uploaded_file_id = $24, updated_at = $25
		WHERE id = $1`
	_, err = r.q.Exec(ctx, query,
		inv.ID, inv.Number, inv.ProviderID, inv.ProviderName, inv.ProviderTaxID, inv.CostType,
		inv.IssueDate, inv.DueDate, inv.PaymentTerms, inv.CreditDays,
		inv.AmountOriginal, inv.Amount, inv.AmountApplicable, inv.OTID,
		inv.OTNumberDenorm, refs, inv.MatchConfidence, inv.MatchMethod,
		inv.NeedsReview, inv.ProvisionStatus, inv.ProvisionDate, inv.BillingStatus,
		inv.BillingDate, inv.UploadedFileID, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("factura %s: %w", inv.Number, domain.ErrDuplicate)
		}
		return fmt.Errorf("update factura: %w", err)
	}
	return nil
}

// SoftDelete marca la factura como eliminada; su número queda libre.
func (r *CostInvoiceRepo) SoftDelete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE cost_invoices SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete factura: %w", err)
	}
	return nil
}

// List facturas con filtros combinables y total sin paginar.
func (r *CostInvoiceRepo) List(ctx context.Context, f repository.CostInvoiceFilter) ([]*entity.CostInvoice, int, error) {
	where := ` WHERE deleted_at IS NULL`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		p := arg(likePattern(f.Search))
		where += fmt.Sprintf(` AND (number ILIKE %s OR provider_name ILIKE %s OR ot_number_denorm ILIKE %s)`, p, p, p)
	}
	if f.ProviderName != "" {
		where += ` AND upper(provider_name) = upper(` + arg(f.ProviderName) + `)`
	}
	if f.CostType != "" {
		where += ` AND cost_type = ` + arg(f.CostType)
	}
	if f.ProvisionStatus != "" {
		where += ` AND provision_status = ` + arg(f.ProvisionStatus)
	}
	if f.BillingStatus != "" {
		where += ` AND billing_status = ` + arg(f.BillingStatus)
	}
	if f.NeedsReview != nil {
		where += ` AND needs_review = ` + arg(*f.NeedsReview)
	}
	if f.OTID != "" {
		where += ` AND ot_id = ` + arg(f.OTID)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM cost_invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count facturas: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + costColumns + ` FROM cost_invoices` + where +
		fmt.Sprintf(` ORDER BY issue_date DESC, number LIMIT %s OFFSET %s`, arg(limit), arg(f.Offset))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list facturas: %w", err)
	}
	defer rows.Close()

	list, err := collectCostInvoices(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListPendingReview facturas marcadas para revisión manual.
func (r *CostInvoiceRepo) ListPendingReview(ctx context.Context, limit, offset int) ([]*entity.CostInvoice, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+costColumns+` FROM cost_invoices
		 WHERE needs_review AND deleted_at IS NULL
		 ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list facturas en revisión: %w", err)
	}
	defer rows.Close()
	return collectCostInvoices(rows)
}

// DistinctProviderNames nombres de proveedor distintos entre facturas activas.
func (r *CostInvoiceRepo) DistinctProviderNames(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT provider_name FROM cost_invoices
		WHERE provider_name <> '' AND deleted_at IS NULL
		ORDER BY provider_name`)
	if err != nil {
		return nil, fmt.Errorf("distinct proveedores: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan proveedor: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Stats agregados para el tablero de costos.
func (r *CostInvoiceRepo) Stats(ctx context.Context) (*repository.CostInvoiceStats, error) {
	s := &repository.CostInvoiceStats{
		ByProvision: make(map[string]int),
		ByBilling:   make(map[string]int),
	}
	err := r.q.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE needs_review),
		       coalesce(sum(amount), 0),
		       coalesce(sum(coalesce(amount_applicable, amount)), 0)
		FROM cost_invoices WHERE deleted_at IS NULL`).
		Scan(&s.Total, &s.NeedsReview, &s.AmountTotal, &s.AmountApplicable)
	if err != nil {
		return nil, fmt.Errorf("stats facturas: %w", err)
	}

	group := func(column string, dst map[string]int) error {
		rows, err := r.q.Query(ctx, fmt.Sprintf(
			`SELECT %s, count(*) FROM cost_invoices WHERE deleted_at IS NULL GROUP BY %s`, column, column))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				k string
				n int
			)
			if err := rows.Scan(&k, &n); err != nil {
				return err
			}
			dst[k] = n
		}
		return rows.Err()
	}
	if err := group("provision_status", s.ByProvision); err != nil {
		return nil, fmt.Errorf("stats facturas: %w", err)
	}
	if err := group("billing_status", s.ByBilling); err != nil {
		return nil, fmt.Errorf("stats facturas: %w", err)
	}
	return s, nil
}

func collectCostInvoices(rows pgx.Rows) ([]*entity.CostInvoice, error) {
	var list []*entity.CostInvoice
	for rows.Next() {
		var (
			inv  entity.CostInvoice
			refs []byte
		)
		if err := rows.Scan(
			&inv.ID, &inv.Number, &inv.ProviderID, &inv.ProviderName, &inv.ProviderTaxID, &inv.CostType,
			&inv.IssueDate, &inv.DueDate, &inv.PaymentTerms, &inv.CreditDays, &inv.AmountOriginal, &inv.Amount, &inv.AmountApplicable,
			&inv.OTID, &inv.OTNumberDenorm, &refs, &inv.MatchConfidence, &inv.MatchMethod, &inv.NeedsReview,
			&inv.ProvisionStatus, &inv.ProvisionDate, &inv.BillingStatus, &inv.BillingDate, &inv.UploadedFileID,
			&inv.ProcessedAt, &inv.ProcessingSource, &inv.DeletedAt, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan factura: %w", err)
		}
		if len(refs) > 0 {
			if err := json.Unmarshal(refs, &inv.DetectedRefs); err != nil {
				return nil, fmt.Errorf("detected_refs: %w", err)
			}
		}
		list = append(list, &inv)
	}
	return list, rows.Err()
}

// UploadedFileRepo blobs deduplicados por sha256.
type UploadedFileRepo struct {
	q Querier
}

// NewUploadedFileRepository construye el adaptador. Pasar pool o tx (Querier).
func NewUploadedFileRepository(q Querier) *UploadedFileRepo {
	return &UploadedFileRepo{q: q}
}

// Create registra el blob.
func (r *UploadedFileRepo) Create(ctx context.Context, f *entity.UploadedFile) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO uploaded_files (id, filename, storage_path, sha256, size, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.Filename, f.StoragePath, f.SHA256, f.Size, f.ContentType, f.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("archivo %s: %w", f.SHA256, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert archivo: %w", err)
	}
	return nil
}

// GetByID obtiene el blob por ID.
func (r *UploadedFileRepo) GetByID(ctx context.Context, id string) (*entity.UploadedFile, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetBySHA256 obtiene el blob por hash.
func (r *UploadedFileRepo) GetBySHA256(ctx context.Context, sha string) (*entity.UploadedFile, error) {
	return r.get(ctx, `WHERE sha256 = $1`, sha)
}

func (r *UploadedFileRepo) get(ctx context.Context, where string, arg any) (*entity.UploadedFile, error) {
	var f entity.UploadedFile
	err := r.q.QueryRow(ctx,
		`SELECT id, filename, storage_path, sha256, size, content_type, created_at
		 FROM uploaded_files `+where, arg).
		Scan(&f.ID, &f.Filename, &f.StoragePath, &f.SHA256, &f.Size, &f.ContentType, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get archivo: %w", err)
	}
	return &f, nil
}
