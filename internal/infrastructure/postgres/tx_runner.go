package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logistica-sv/freight-backoffice/internal/application/alias"
	"github.com/logistica-sv/freight-backoffice/internal/application/importer"
	"github.com/logistica-sv/freight-backoffice/internal/application/lifecycle"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

var (
	_ alias.TxRunner     = (*TxRunner)(nil)
	_ importer.TxRunner  = (*TxRunner)(nil)
	_ lifecycle.TxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL con los
// repositorios atados a la tx.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// run envuelve begin/commit/rollback alrededor de fn.
func (r *TxRunner) run(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunAlias transacción para fusiones y mantenimiento de alias.
func (r *TxRunner) RunAlias(ctx context.Context, fn func(
	aliases repository.ClientAliasRepository,
	ots repository.OTRepository,
	matches repository.SimilarityMatchRepository,
) error) error {
	return r.run(ctx, func(q Querier) error {
		return fn(NewClientAliasRepository(q), NewOTRepository(q), NewSimilarityMatchRepository(q))
	})
}

// RunImport transacción para la fase de aplicación del importador Excel.
func (r *TxRunner) RunImport(ctx context.Context, fn func(
	ots repository.OTRepository,
	processed repository.ProcessedFileRepository,
) error) error {
	return r.run(ctx, func(q Querier) error {
		return fn(NewOTRepository(q), NewProcessedFileRepository(q))
	})
}

// RunCost transacción para guardado de facturas de costo y su sincronización.
func (r *TxRunner) RunCost(ctx context.Context, fn func(
	costs repository.CostInvoiceRepository,
	ots repository.OTRepository,
	notes repository.CreditNoteRepository,
) error) error {
	return r.run(ctx, func(q Querier) error {
		return fn(NewCostInvoiceRepository(q), NewOTRepository(q), NewCreditNoteRepository(q))
	})
}

// RunDispute transacción para el ciclo de reclamos.
func (r *TxRunner) RunDispute(ctx context.Context, fn func(
	disputes repository.DisputeRepository,
	costs repository.CostInvoiceRepository,
	ots repository.OTRepository,
	notes repository.CreditNoteRepository,
) error) error {
	return r.run(ctx, func(q Querier) error {
		return fn(NewDisputeRepository(q), NewCostInvoiceRepository(q), NewOTRepository(q), NewCreditNoteRepository(q))
	})
}

// RunSales transacción para facturas de venta, notas y pagos.
func (r *TxRunner) RunSales(ctx context.Context, fn func(
	sales repository.SalesInvoiceRepository,
	notes repository.SalesCreditNoteRepository,
	payments repository.PaymentRepository,
) error) error {
	return r.run(ctx, func(q Querier) error {
		return fn(NewSalesInvoiceRepository(q), NewSalesCreditNoteRepository(q), NewPaymentRepository(q))
	})
}
