package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

var _ repository.OTRepository = (*OTRepo)(nil)

// OTRepo implementación del puerto OTRepository sobre PostgreSQL.
// house_bls y containers viven como text[].
type OTRepo struct {
	q Querier
}

// NewOTRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOTRepository(q Querier) *OTRepo {
	return &OTRepo{q: q}
}

const otColumns = `id, number, provider_name, client_id, master_bl, house_bls, containers,
	eta, etd, arrival, origin_port, destination_port, operator, operation_type, vessel,
	provision_date, provision_source, provision_locked, billing_request_date, invoice_receipt_date,
	billing_status, provision_status, state, comments, deleted_at, created_at, updated_at`

func scanOT(row pgx.Row) (*entity.OT, error) {
	var ot entity.OT
	err := row.Scan(
		&ot.ID, &ot.Number, &ot.ProviderName, &ot.ClientID, &ot.MasterBL, &ot.HouseBLs, &ot.Containers,
		&ot.ETA, &ot.ETD, &ot.Arrival, &ot.OriginPort, &ot.DestinationPort, &ot.Operator, &ot.OperationType, &ot.Vessel,
		&ot.ProvisionDate, &ot.ProvisionSource, &ot.ProvisionLocked, &ot.BillingRequestDate, &ot.InvoiceReceiptDate,
		&ot.BillingStatus, &ot.ProvisionStatus, &ot.State, &ot.Comments, &ot.DeletedAt, &ot.CreatedAt, &ot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ot, nil
}

// Create persiste una OT nueva.
func (r *OTRepo) Create(ctx context.Context, ot *entity.OT) error {
	query := `
		INSERT INTO ots (` + otColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`
	_, err := r.q.Exec(ctx, query,
		ot.ID, ot.Number, ot.ProviderName, ot.ClientID, ot.MasterBL, ot.HouseBLs, ot.Containers,
		ot.ETA, ot.ETD, ot.Arrival, ot.OriginPort, ot.DestinationPort, ot.Operator, ot.OperationType, ot.Vessel,
		ot.ProvisionDate, ot.ProvisionSource, ot.ProvisionLocked, ot.BillingRequestDate, ot.InvoiceReceiptDate,
		ot.BillingStatus, ot.ProvisionStatus, ot.State, ot.Comments, ot.DeletedAt, ot.CreatedAt, ot.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("OT %s: %w", ot.Number, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert OT: %w", err)
	}
	return nil
}

// GetByID obtiene una OT por ID.
func (r *OTRepo) GetByID(ctx context.Context, id string) (*entity.OT, error) {
	ot, err := scanOT(r.q.QueryRow(ctx,
		`SELECT `+otColumns+` FROM ots WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("get OT: %w", err)
	}
	return ot, nil
}

// GetByNumber obtiene una OT por número exacto.
func (r *OTRepo) GetByNumber(ctx context.Context, number string) (*entity.OT, error) {
	ot, err := scanOT(r.q.QueryRow(ctx,
		`SELECT `+otColumns+` FROM ots WHERE number = $1 AND deleted_at IS NULL`, number))
	if err != nil {
		return nil, fmt.Errorf("get OT por número: %w", err)
	}
	return ot, nil
}

// Update actualiza la OT completa.
func (r *OTRepo) Update(ctx context.Context, ot *entity.OT) error {
	query := `
		UPDATE ots SET
			number = $2, provider_name = $3, client_id = $4, master_bl = $5, house_bls = $6,
			containers = $7, eta = $8, etd = $9, arrival = $10, origin_port = $11,
			destination_port = $12, operator = $13, operation_type = $14, vessel = $15,
			provision_date = $16, provision_source = $17, provision_locked = $18,
			billing_request_date = $19, invoice_receipt_date = $20, billing_status = $21,
			provision_status = $22, state = $23, comments = $24, updated_at = $25
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		ot.ID, ot.Number, ot.ProviderName, ot.ClientID, ot.MasterBL, ot.HouseBLs,
		ot.Containers, ot.ETA, ot.ETD, ot.Arrival, ot.OriginPort,
		ot.DestinationPort, ot.Operator, ot.OperationType, ot.Vessel,
		ot.ProvisionDate, ot.ProvisionSource, ot.ProvisionLocked,
		ot.BillingRequestDate, ot.InvoiceReceiptDate, ot.BillingStatus,
		ot.ProvisionStatus, ot.State, ot.Comments, ot.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("OT %s: %w", ot.Number, domain.ErrDuplicate)
		}
		return fmt.Errorf("update OT: %w", err)
	}
	return nil
}

// SoftDelete marca la OT como eliminada.
func (r *OTRepo) SoftDelete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `UPDATE ots SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete OT: %w", err)
	}
	return nil
}

// Search lista OTs con filtros combinables.
func (r *OTRepo) Search(ctx context.Context, f repository.OTSearchFilter) ([]*entity.OT, error) {
	query := `SELECT ` + otColumns + ` FROM ots WHERE deleted_at IS NULL`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Query != "" {
		p := arg(likePattern(f.Query))
		query += fmt.Sprintf(` AND (number ILIKE %s OR master_bl ILIKE %s OR vessel ILIKE %s)`, p, p, p)
	}
	if f.Container != "" {
		query += ` AND ` + arg(f.Container) + ` = ANY(containers)`
	}
	if f.BL != "" {
		p := arg(f.BL)
		query += fmt.Sprintf(` AND (master_bl = %s OR %s = ANY(house_bls))`, p, p)
	}
	if f.ClientID != "" {
		query += ` AND client_id = ` + arg(f.ClientID)
	}
	if f.ProvisionStatus != "" {
		query += ` AND provision_status = ` + arg(f.ProvisionStatus)
	}
	if f.BillingStatus != "" {
		query += ` AND billing_status = ` + arg(f.BillingStatus)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(` ORDER BY number DESC LIMIT %s OFFSET %s`, arg(limit), arg(f.Offset))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search OTs: %w", err)
	}
	defer rows.Close()
	return collectOTs(rows)
}

// FindByNumberFold número exacto sin distinguir mayúsculas.
func (r *OTRepo) FindByNumberFold(ctx context.Context, number string) (*entity.OT, error) {
	ot, err := scanOT(r.q.QueryRow(ctx,
		`SELECT `+otColumns+` FROM ots
		 WHERE upper(number) = upper($1) AND deleted_at IS NULL
		 ORDER BY id LIMIT 1`, number))
	if err != nil {
		return nil, fmt.Errorf("find OT por número: %w", err)
	}
	return ot, nil
}

// FindByMBLAndContainer MBL y contenedor en la misma OT.
func (r *OTRepo) FindByMBLAndContainer(ctx context.Context, mbl, container string) (*entity.OT, error) {
	ot, err := scanOT(r.q.QueryRow(ctx,
		`SELECT `+otColumns+` FROM ots
		 WHERE master_bl = $1 AND $2 = ANY(containers) AND deleted_at IS NULL
		 ORDER BY id LIMIT 1`, mbl, container))
	if err != nil {
		return nil, fmt.Errorf("find OT por MBL y contenedor: %w", err)
	}
	return ot, nil
}

// FindByMBL solo MBL.
func (r *OTRepo) FindByMBL(ctx context.Context, mbl string) (*entity.OT, error) {
	ot, err := scanOT(r.q.QueryRow(ctx,
		`SELECT `+otColumns+` FROM ots
		 WHERE master_bl = $1 AND deleted_at IS NULL
		 ORDER BY id LIMIT 1`, mbl))
	if err != nil {
		return nil, fmt.Errorf("find OT por MBL: %w", err)
	}
	return ot, nil
}

// FindByContainer solo contenedor.
func (r *OTRepo) FindByContainer(ctx context.Context, container string) (*entity.OT, error) {
	ot, err := scanOT(r.q.QueryRow(ctx,
		`SELECT `+otColumns+` FROM ots
		 WHERE $1 = ANY(containers) AND deleted_at IS NULL
		 ORDER BY id LIMIT 1`, container))
	if err != nil {
		return nil, fmt.Errorf("find OT por contenedor: %w", err)
	}
	return ot, nil
}

// FindByProviderAndDate proveedor por contención (ILIKE) con ETD o fecha de
// creación dentro de la ventana.
func (r *OTRepo) FindByProviderAndDate(ctx context.Context, providerName string, date time.Time, windowDays int) (*entity.OT, error) {
	window := time.Duration(windowDays) * 24 * time.Hour
	from, to := date.Add(-window), date.Add(window)
	ot, err := scanOT(r.q.QueryRow(ctx,
		`SELECT `+otColumns+` FROM ots
		 WHERE provider_name ILIKE $1
		   AND (etd BETWEEN $2 AND $3 OR created_at BETWEEN $2 AND $3)
		   AND deleted_at IS NULL
		 ORDER BY id LIMIT 1`, likePattern(providerName), from, to))
	if err != nil {
		return nil, fmt.Errorf("find OT por proveedor y fecha: %w", err)
	}
	return ot, nil
}

// ReassignClient mueve las OTs de un alias fusionado al alias destino.
func (r *OTRepo) ReassignClient(ctx context.Context, fromAliasID, toAliasID string) (int, error) {
	cmd, err := r.q.Exec(ctx,
		`UPDATE ots SET client_id = $2, updated_at = now() WHERE client_id = $1`,
		fromAliasID, toAliasID)
	if err != nil {
		return 0, fmt.Errorf("reassign client: %w", err)
	}
	return int(cmd.RowsAffected()), nil
}

// CardStats conteos por estado para las tarjetas del tablero.
func (r *OTRepo) CardStats(ctx context.Context) (*repository.OTCardStats, error) {
	var s repository.OTCardStats
	err := r.q.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE provision_status = 'pending'),
		       count(*) FILTER (WHERE provision_status = 'provisioned'),
		       count(*) FILTER (WHERE provision_status = 'review'),
		       count(*) FILTER (WHERE provision_status = 'disputed'),
		       count(*) FILTER (WHERE billing_status = 'billed')
		FROM ots WHERE deleted_at IS NULL`).
		Scan(&s.Total, &s.Pending, &s.Provisioned, &s.Review, &s.Disputed, &s.Billed)
	if err != nil {
		return nil, fmt.Errorf("OT stats: %w", err)
	}
	return &s, nil
}

// FilterValues valores distintos observados para los filtros de la UI.
func (r *OTRepo) FilterValues(ctx context.Context) (*repository.OTFilterValues, error) {
	v := &repository.OTFilterValues{}
	collect := func(column string, dst *[]string) error {
		rows, err := r.q.Query(ctx, fmt.Sprintf(
			`SELECT DISTINCT %s FROM ots WHERE deleted_at IS NULL AND %s <> '' ORDER BY %s`,
			column, column, column))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return err
			}
			*dst = append(*dst, s)
		}
		return rows.Err()
	}

	if err := collect("operator", &v.Operators); err != nil {
		return nil, fmt.Errorf("filter values: %w", err)
	}
	if err := collect("operation_type", &v.OperationTypes); err != nil {
		return nil, fmt.Errorf("filter values: %w", err)
	}
	if err := collect("state", &v.States); err != nil {
		return nil, fmt.Errorf("filter values: %w", err)
	}
	if err := collect("provider_name", &v.Providers); err != nil {
		return nil, fmt.Errorf("filter values: %w", err)
	}
	return v, nil
}

func collectOTs(rows pgx.Rows) ([]*entity.OT, error) {
	var list []*entity.OT
	for rows.Next() {
		var ot entity.OT
		if err := rows.Scan(
			&ot.ID, &ot.Number, &ot.ProviderName, &ot.ClientID, &ot.MasterBL, &ot.HouseBLs, &ot.Containers,
			&ot.ETA, &ot.ETD, &ot.Arrival, &ot.OriginPort, &ot.DestinationPort, &ot.Operator, &ot.OperationType, &ot.Vessel,
			&ot.ProvisionDate, &ot.ProvisionSource, &ot.ProvisionLocked, &ot.BillingRequestDate, &ot.InvoiceReceiptDate,
			&ot.BillingStatus, &ot.ProvisionStatus, &ot.State, &ot.Comments, &ot.DeletedAt, &ot.CreatedAt, &ot.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan OT: %w", err)
		}
		list = append(list, &ot)
	}
	return list, rows.Err()
}
