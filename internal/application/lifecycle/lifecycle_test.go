package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeCosts struct {
	repository.CostInvoiceRepository
	byID map[string]*entity.CostInvoice
}

func (f *fakeCosts) Create(_ context.Context, inv *entity.CostInvoice) error {
	f.byID[inv.ID] = inv
	return nil
}

func (f *fakeCosts) GetByID(_ context.Context, id string) (*entity.CostInvoice, error) {
	return f.byID[id], nil
}

func (f *fakeCosts) GetByNumber(_ context.Context, number string) (*entity.CostInvoice, error) {
	for _, inv := range f.byID {
		if inv.DeletedAt == nil && inv.Number == number {
			return inv, nil
		}
	}
	return nil, nil
}

func (f *fakeCosts) Update(_ context.Context, inv *entity.CostInvoice) error {
	f.byID[inv.ID] = inv
	return nil
}

type fakeOTsL struct {
	repository.OTRepository
	byID map[string]*entity.OT
}

func (f *fakeOTsL) GetByID(_ context.Context, id string) (*entity.OT, error) {
	return f.byID[id], nil
}

func (f *fakeOTsL) Update(_ context.Context, ot *entity.OT) error {
	f.byID[ot.ID] = ot
	return nil
}

type fakeProviders struct {
	repository.ProviderRepository
	byID map[string]*entity.Provider
}

func (f *fakeProviders) GetByID(_ context.Context, id string) (*entity.Provider, error) {
	return f.byID[id], nil
}

type fakeNotes struct {
	repository.CreditNoteRepository
	byID map[string]*entity.CreditNote
}

func (f *fakeNotes) Create(_ context.Context, n *entity.CreditNote) error {
	f.byID[n.ID] = n
	return nil
}

func (f *fakeNotes) GetByID(_ context.Context, id string) (*entity.CreditNote, error) {
	return f.byID[id], nil
}

func (f *fakeNotes) Update(_ context.Context, n *entity.CreditNote) error {
	f.byID[n.ID] = n
	return nil
}

func (f *fakeNotes) SumAppliedByInvoice(_ context.Context, invoiceID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, n := range f.byID {
		if n.State == entity.CreditNoteApplied && n.RelatedInvoiceID != nil && *n.RelatedInvoiceID == invoiceID {
			sum = sum.Add(n.Amount)
		}
	}
	return sum, nil
}

type fakeDisputes struct {
	repository.DisputeRepository
	byID   map[string]*entity.Dispute
	events []*entity.DisputeEvent
	seq    int
}

func (f *fakeDisputes) Create(_ context.Context, d *entity.Dispute) error {
	f.byID[d.ID] = d
	return nil
}

func (f *fakeDisputes) GetByID(_ context.Context, id string) (*entity.Dispute, error) {
	return f.byID[id], nil
}

func (f *fakeDisputes) Update(_ context.Context, d *entity.Dispute) error {
	f.byID[d.ID] = d
	return nil
}

func (f *fakeDisputes) NextCaseNumber(_ context.Context, year int) (string, error) {
	f.seq++
	return fmt.Sprintf("REC-%d-%d", year, f.seq), nil
}

func (f *fakeDisputes) CreateEvent(_ context.Context, e *entity.DisputeEvent) error {
	f.events = append(f.events, e)
	return nil
}

type fakeSales struct {
	repository.SalesInvoiceRepository
	byID     map[string]*entity.SalesInvoice
	items    map[string]*entity.SalesInvoiceItem
	mappings []*entity.InvoiceSalesMapping
}

func (f *fakeSales) Create(_ context.Context, inv *entity.SalesInvoice) error {
	f.byID[inv.ID] = inv
	return nil
}

func (f *fakeSales) GetByID(_ context.Context, id string) (*entity.SalesInvoice, error) {
	return f.byID[id], nil
}

func (f *fakeSales) GetByNumber(_ context.Context, number string) (*entity.SalesInvoice, error) {
	for _, inv := range f.byID {
		if inv.DeletedAt == nil && inv.Number == number {
			return inv, nil
		}
	}
	return nil, nil
}

func (f *fakeSales) Update(_ context.Context, inv *entity.SalesInvoice) error {
	f.byID[inv.ID] = inv
	return nil
}

func (f *fakeSales) CreateItem(_ context.Context, it *entity.SalesInvoiceItem) error {
	f.items[it.ID] = it
	return nil
}

func (f *fakeSales) UpdateItem(_ context.Context, it *entity.SalesInvoiceItem) error {
	f.items[it.ID] = it
	return nil
}

func (f *fakeSales) SoftDeleteItem(_ context.Context, itemID string) error {
	if it, ok := f.items[itemID]; ok {
		now := time.Now()
		it.DeletedAt = &now
	}
	return nil
}

func (f *fakeSales) ListActiveItems(_ context.Context, invoiceID string) ([]*entity.SalesInvoiceItem, error) {
	var out []*entity.SalesInvoiceItem
	for _, it := range f.items {
		if it.InvoiceID == invoiceID && it.DeletedAt == nil {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeSales) CreateMapping(_ context.Context, m *entity.InvoiceSalesMapping) error {
	f.mappings = append(f.mappings, m)
	return nil
}

func (f *fakeSales) DeleteMappingsByInvoice(_ context.Context, salesInvoiceID string) error {
	var kept []*entity.InvoiceSalesMapping
	for _, m := range f.mappings {
		if m.SalesInvoiceID != salesInvoiceID {
			kept = append(kept, m)
		}
	}
	f.mappings = kept
	return nil
}

type fakeSalesNotes struct {
	repository.SalesCreditNoteRepository
	byID map[string]*entity.SalesCreditNote
}

func (f *fakeSalesNotes) Create(_ context.Context, n *entity.SalesCreditNote) error {
	f.byID[n.ID] = n
	return nil
}

func (f *fakeSalesNotes) SumAppliedByInvoice(_ context.Context, salesInvoiceID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, n := range f.byID {
		if n.State == entity.CreditNoteApplied && n.SalesInvoiceID == salesInvoiceID {
			sum = sum.Add(n.Amount.Abs())
		}
	}
	return sum, nil
}

type fakePayments struct {
	repository.PaymentRepository
	byID map[string]*entity.Payment
}

func (f *fakePayments) Create(_ context.Context, p *entity.Payment) error {
	f.byID[p.ID] = p
	return nil
}

func (f *fakePayments) GetByID(_ context.Context, id string) (*entity.Payment, error) {
	return f.byID[id], nil
}

func (f *fakePayments) Update(_ context.Context, p *entity.Payment) error {
	f.byID[p.ID] = p
	return nil
}

func (f *fakePayments) SumValidatedByInvoice(_ context.Context, salesInvoiceID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range f.byID {
		if p.State == entity.PaymentValidated && p.SalesInvoiceID == salesInvoiceID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

type fakeAliasesL struct {
	repository.ClientAliasRepository
	byID map[string]*entity.ClientAlias
}

func (f *fakeAliasesL) GetByID(_ context.Context, id string) (*entity.ClientAlias, error) {
	return f.byID[id], nil
}

type fakeTxL struct {
	costs     *fakeCosts
	ots       *fakeOTsL
	notes     *fakeNotes
	disputes  *fakeDisputes
	sales     *fakeSales
	salesNote *fakeSalesNotes
	payments  *fakePayments
}

func (f *fakeTxL) RunCost(ctx context.Context, fn func(repository.CostInvoiceRepository, repository.OTRepository, repository.CreditNoteRepository) error) error {
	return fn(f.costs, f.ots, f.notes)
}

func (f *fakeTxL) RunDispute(ctx context.Context, fn func(repository.DisputeRepository, repository.CostInvoiceRepository, repository.OTRepository, repository.CreditNoteRepository) error) error {
	return fn(f.disputes, f.costs, f.ots, f.notes)
}

func (f *fakeTxL) RunSales(ctx context.Context, fn func(repository.SalesInvoiceRepository, repository.SalesCreditNoteRepository, repository.PaymentRepository) error) error {
	return fn(f.sales, f.salesNote, f.payments)
}

type lifecycleEnv struct {
	costSvc    *CostService
	disputeSvc *DisputeService
	salesSvc   *SalesService

	costs     *fakeCosts
	ots       *fakeOTsL
	providers *fakeProviders
	notes     *fakeNotes
	disputes  *fakeDisputes
	sales     *fakeSales
	salesNote *fakeSalesNotes
	payments  *fakePayments
	aliases   *fakeAliasesL
}

func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()
	e := &lifecycleEnv{
		costs:     &fakeCosts{byID: make(map[string]*entity.CostInvoice)},
		ots:       &fakeOTsL{byID: make(map[string]*entity.OT)},
		providers: &fakeProviders{byID: make(map[string]*entity.Provider)},
		notes:     &fakeNotes{byID: make(map[string]*entity.CreditNote)},
		disputes:  &fakeDisputes{byID: make(map[string]*entity.Dispute)},
		sales:     &fakeSales{byID: make(map[string]*entity.SalesInvoice), items: make(map[string]*entity.SalesInvoiceItem)},
		salesNote: &fakeSalesNotes{byID: make(map[string]*entity.SalesCreditNote)},
		payments:  &fakePayments{byID: make(map[string]*entity.Payment)},
		aliases:   &fakeAliasesL{byID: make(map[string]*entity.ClientAlias)},
	}
	tx := &fakeTxL{
		costs: e.costs, ots: e.ots, notes: e.notes, disputes: e.disputes,
		sales: e.sales, salesNote: e.salesNote, payments: e.payments,
	}
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	e.costSvc = NewCostService(e.costs, e.ots, e.providers, e.notes, tx, log)
	e.disputeSvc = NewDisputeService(e.disputes, e.costSvc, tx, log)
	e.salesSvc = NewSalesService(e.sales, e.salesNote, e.payments, e.aliases, tx, log)
	return e
}

func (e *lifecycleEnv) addOT(number string) *entity.OT {
	ot := &entity.OT{
		ID:              uuid.New().String(),
		Number:          number,
		ProvisionStatus: entity.OTProvisionPending,
		BillingStatus:   entity.OTBillingPending,
	}
	e.ots.byID[ot.ID] = ot
	return ot
}

// ── reglas de guardado de costos ─────────────────────────────────────────────

func TestCostCreate_CreditoConProveedor(t *testing.T) {
	e := newLifecycleEnv(t)
	ctx := context.Background()

	provider := &entity.Provider{ID: uuid.New().String(), Name: "MAERSK", HasCredit: true, CreditDays: 30}
	e.providers.byID[provider.ID] = provider
	ot := e.addOT("25OT-221")

	inv := &entity.CostInvoice{
		Number:       "F-001",
		ProviderID:   &provider.ID,
		ProviderName: "MAERSK",
		CostType:     entity.CostTypeFreight,
		IssueDate:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		PaymentTerms: entity.PaymentTermsCredit,
		Amount:       dec("1500.00"),
		OTID:         &ot.ID,
	}
	require.NoError(t, e.costSvc.Create(ctx, inv))

	assert.Equal(t, 30, inv.CreditDays)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), *inv.DueDate)
	assert.Equal(t, "25OT-221", inv.OTNumberDenorm)
}

func TestCostCreate_ContadoAnulaCredito(t *testing.T) {
	e := newLifecycleEnv(t)

	due := time.Now()
	inv := &entity.CostInvoice{
		Number:       "F-002",
		CostType:     entity.CostTypeOther,
		IssueDate:    time.Now(),
		PaymentTerms: entity.PaymentTermsCash,
		CreditDays:   15,
		DueDate:      &due,
		Amount:       dec("100.00"),
	}
	require.NoError(t, e.costSvc.Create(context.Background(), inv))
	assert.Zero(t, inv.CreditDays)
	assert.Nil(t, inv.DueDate)
}

func TestCostCreate_AvancesDeEstado(t *testing.T) {
	e := newLifecycleEnv(t)
	billing := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	provision := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)

	inv := &entity.CostInvoice{
		Number:        "F-003",
		CostType:      entity.CostTypeTransport,
		IssueDate:     time.Now(),
		PaymentTerms:  entity.PaymentTermsCash,
		Amount:        dec("200.00"),
		BillingDate:   &billing,
		ProvisionDate: &provision,
	}
	require.NoError(t, e.costSvc.Create(context.Background(), inv))
	assert.Equal(t, entity.InvoiceBillingBilled, inv.BillingStatus)
	assert.Equal(t, entity.InvoiceProvisionProvisioned, inv.ProvisionStatus)
}

func TestCostUpdate_NoAvanzaDesdeEstadoProhibido(t *testing.T) {
	e := newLifecycleEnv(t)
	ctx := context.Background()
	provision := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)

	inv := &entity.CostInvoice{
		ID:              uuid.New().String(),
		Number:          "F-004",
		CostType:        entity.CostTypeOther,
		IssueDate:       time.Now(),
		PaymentTerms:    entity.PaymentTermsCash,
		Amount:          dec("300.00"),
		ProvisionStatus: entity.InvoiceProvisionReview,
		ProvisionDate:   &provision,
	}
	e.costs.byID[inv.ID] = inv

	require.NoError(t, e.costSvc.Update(ctx, inv))
	assert.Equal(t, entity.InvoiceProvisionReview, inv.ProvisionStatus,
		"review jamás avanza a provisioned automáticamente")
}

func TestCostCreate_HeredaProvisionDeOT(t *testing.T) {
	e := newLifecycleEnv(t)
	ot := e.addOT("25OT-300")
	otDate := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	ot.ProvisionDate = &otDate
	ot.ProvisionStatus = entity.OTProvisionProvisioned

	inv := &entity.CostInvoice{
		Number:       "F-005",
		CostType:     entity.CostTypeCarrierCharges,
		IssueDate:    time.Now(),
		PaymentTerms: entity.PaymentTermsCash,
		Amount:       dec("80.00"),
		OTID:         &ot.ID,
	}
	require.NoError(t, e.costSvc.Create(context.Background(), inv))
	require.NotNil(t, inv.ProvisionDate)
	assert.True(t, inv.ProvisionDate.Equal(otDate), "el costo vinculado hereda la fecha de la OT")
	assert.Equal(t, entity.InvoiceProvisionProvisioned, inv.ProvisionStatus)
}

func TestCostSync_ProvisionadaCopiaFechaALaOT(t *testing.T) {
	e := newLifecycleEnv(t)
	ot := e.addOT("25OT-301")
	provision := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	inv := &entity.CostInvoice{
		Number:        "F-006",
		CostType:      entity.CostTypeFreight,
		IssueDate:     time.Now(),
		PaymentTerms:  entity.PaymentTermsCash,
		Amount:        dec("900.00"),
		OTID:          &ot.ID,
		ProvisionDate: &provision,
	}
	require.NoError(t, e.costSvc.Create(context.Background(), inv))

	require.NotNil(t, ot.ProvisionDate)
	assert.True(t, ot.ProvisionDate.Equal(provision))
	assert.Equal(t, entity.OTProvisionProvisioned, ot.ProvisionStatus)
}

func TestCostSync_NoVinculadoNoTocaOT(t *testing.T) {
	e := newLifecycleEnv(t)
	ot := e.addOT("25OT-302")
	provision := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	inv := &entity.CostInvoice{
		Number:        "F-007",
		CostType:      entity.CostTypeCustoms, // no es costo vinculado
		IssueDate:     time.Now(),
		PaymentTerms:  entity.PaymentTermsCash,
		Amount:        dec("50.00"),
		OTID:          &ot.ID,
		ProvisionDate: &provision,
	}
	require.NoError(t, e.costSvc.Create(context.Background(), inv))
	assert.Nil(t, ot.ProvisionDate)
	assert.Equal(t, entity.OTProvisionPending, ot.ProvisionStatus)
}

// ── reclamos ─────────────────────────────────────────────────────────────────

func newDisputedInvoice(t *testing.T, e *lifecycleEnv) (*entity.CostInvoice, *entity.Dispute, *entity.OT) {
	t.Helper()
	ctx := context.Background()
	ot := e.addOT("25OT-400")
	provision := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	inv := &entity.CostInvoice{
		Number:        "F-100",
		ProviderName:  "MAERSK",
		CostType:      entity.CostTypeFreight,
		IssueDate:     time.Now(),
		PaymentTerms:  entity.PaymentTermsCash,
		Amount:        dec("1000.00"),
		OTID:          &ot.ID,
		ProvisionDate: &provision,
	}
	require.NoError(t, e.costSvc.Create(ctx, inv))

	d, err := e.disputeSvc.Create(ctx, CreateInput{
		CostInvoiceID:  inv.ID,
		Kind:           entity.DisputeKindPrice,
		Detail:         "flete cobrado de más",
		DisputedAmount: dec("300.00"),
		Actor:          "admin",
	})
	require.NoError(t, err)
	return inv, d, ot
}

func TestDisputeCreate(t *testing.T) {
	e := newLifecycleEnv(t)
	inv, d, ot := newDisputedInvoice(t, e)

	assert.Equal(t, entity.DisputeOpen, d.State)
	assert.Equal(t, entity.OutcomePending, d.Outcome)
	assert.Contains(t, d.CaseNumber, "REC-")

	assert.Equal(t, entity.InvoiceProvisionDisputed, inv.ProvisionStatus)
	assert.Nil(t, inv.ProvisionDate)
	assert.Equal(t, entity.OTProvisionDisputed, ot.ProvisionStatus, "la disputa se propaga a la OT")

	require.Len(t, e.disputes.events, 1)
	assert.Equal(t, entity.DisputeEventCreation, e.disputes.events[0].Type)
}

func TestDisputeTransition_Invalida(t *testing.T) {
	e := newLifecycleEnv(t)
	_, d, _ := newDisputedInvoice(t, e)

	require.NoError(t, e.disputeSvc.Transition(context.Background(), d.ID, entity.DisputeClosed, "admin", ""))
	err := e.disputeSvc.Transition(context.Background(), d.ID, entity.DisputeInReview, "admin", "")
	assert.ErrorIs(t, err, domain.ErrStateTransition)
}

func TestDisputeResolve_AprobadoParcial(t *testing.T) {
	e := newLifecycleEnv(t)
	inv, d, ot := newDisputedInvoice(t, e)

	err := e.disputeSvc.Resolve(context.Background(), ResolveInput{
		DisputeID:       d.ID,
		Outcome:         entity.OutcomeApprovedPartial,
		RecoveredAmount: dec("300.00"),
		Actor:           "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.DisputeResolved, d.State)
	assert.Equal(t, entity.InvoiceProvisionPartiallyVoided, inv.ProvisionStatus)
	require.NotNil(t, inv.AmountApplicable)
	assert.True(t, inv.AmountApplicable.Equal(dec("700.00")), "aplicable = monto - recuperado")
	require.NotNil(t, inv.AmountOriginal)
	assert.True(t, inv.AmountOriginal.Equal(dec("1000.00")))
	assert.Equal(t, entity.InvoiceProvisionPartiallyVoided, ot.ProvisionStatus,
		"la anulación parcial se propaga a la OT")
	assert.Nil(t, ot.ProvisionDate)
}

func TestDisputeResolve_RechazadoRestaura(t *testing.T) {
	e := newLifecycleEnv(t)
	inv, d, _ := newDisputedInvoice(t, e)

	err := e.disputeSvc.Resolve(context.Background(), ResolveInput{
		DisputeID: d.ID,
		Outcome:   entity.OutcomeRejectedByProvider,
		Actor:     "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceProvisionPending, inv.ProvisionStatus)
	require.NotNil(t, inv.AmountApplicable)
	assert.True(t, inv.AmountApplicable.Equal(dec("1000.00")))
}

func TestDisputeResolve_RecuperadoMayorAlMonto(t *testing.T) {
	e := newLifecycleEnv(t)
	inv, d, _ := newDisputedInvoice(t, e)

	err := e.disputeSvc.Resolve(context.Background(), ResolveInput{
		DisputeID:       d.ID,
		Outcome:         entity.OutcomeApprovedPartial,
		RecoveredAmount: dec("1500.00"),
		Actor:           "admin",
	})
	require.ErrorIs(t, err, domain.ErrValidation,
		"recuperado por encima del monto de la factura debe rechazarse")

	assert.Equal(t, entity.DisputeOpen, d.State, "el reclamo no se resuelve")
	assert.True(t, inv.AmountApplicableEffective().Equal(dec("1000.00")),
		"la factura queda intacta")

	err = e.disputeSvc.Resolve(context.Background(), ResolveInput{
		DisputeID:       d.ID,
		Outcome:         entity.OutcomeApprovedPartial,
		RecoveredAmount: dec("-1.00"),
		Actor:           "admin",
	})
	require.ErrorIs(t, err, domain.ErrValidation, "recuperado negativo debe rechazarse")
}

func TestDisputeResolve_ConNotaDeCredito(t *testing.T) {
	e := newLifecycleEnv(t)
	inv, d, _ := newDisputedInvoice(t, e)

	err := e.disputeSvc.Resolve(context.Background(), ResolveInput{
		DisputeID:        d.ID,
		Outcome:          entity.OutcomeApprovedPartial,
		RecoveredAmount:  dec("300.00"),
		Actor:            "admin",
		CreditNoteNumber: "NC-900",
	})
	require.NoError(t, err)

	var note *entity.CreditNote
	for _, n := range e.notes.byID {
		if n.Number == "NC-900" {
			note = n
		}
	}
	require.NotNil(t, note)
	assert.Equal(t, entity.CreditNoteApplied, note.State)
	assert.True(t, note.Amount.Equal(dec("-300.00")), "el monto se guarda negativo")
	require.NotNil(t, note.RelatedInvoiceID)
	assert.Equal(t, inv.ID, *note.RelatedInvoiceID)
}

// ── notas de crédito de costo ────────────────────────────────────────────────

func TestApplyCreditNote_AnulacionTotalYParcial(t *testing.T) {
	e := newLifecycleEnv(t)
	ctx := context.Background()
	ot := e.addOT("25OT-500")

	inv := &entity.CostInvoice{
		Number:       "F-200",
		CostType:     entity.CostTypeFreight,
		IssueDate:    time.Now(),
		PaymentTerms: entity.PaymentTermsCash,
		Amount:       dec("500.00"),
		OTID:         &ot.ID,
	}
	require.NoError(t, e.costSvc.Create(ctx, inv))

	// Nota parcial: queda parcialmente anulada.
	n1 := &entity.CreditNote{Number: "NC-1", RelatedInvoiceID: &inv.ID, Amount: dec("200.00"), State: entity.CreditNoteApplied}
	require.NoError(t, e.costSvc.CreateCreditNote(ctx, n1))
	assert.True(t, inv.Amount.Equal(dec("300.00")))
	assert.Equal(t, entity.InvoiceProvisionPartiallyVoided, inv.ProvisionStatus)
	require.NotNil(t, inv.AmountOriginal)
	assert.True(t, inv.AmountOriginal.Equal(dec("500.00")))
	assert.Equal(t, entity.InvoiceProvisionPartiallyVoided, ot.ProvisionStatus)

	// Segunda nota agota el monto: anulación total.
	n2 := &entity.CreditNote{Number: "NC-2", RelatedInvoiceID: &inv.ID, Amount: dec("300.00"), State: entity.CreditNoteApplied}
	require.NoError(t, e.costSvc.CreateCreditNote(ctx, n2))
	assert.True(t, inv.Amount.LessThanOrEqual(decimal.Zero))
	assert.Equal(t, entity.InvoiceProvisionVoided, inv.ProvisionStatus)
	assert.Equal(t, entity.InvoiceProvisionVoided, ot.ProvisionStatus)
	assert.Nil(t, ot.ProvisionDate)
}

func TestApplyCreditNote_YaAplicada(t *testing.T) {
	e := newLifecycleEnv(t)
	ctx := context.Background()
	note := &entity.CreditNote{ID: uuid.New().String(), Number: "NC-3", Amount: dec("-10.00"), State: entity.CreditNoteApplied}
	e.notes.byID[note.ID] = note

	err := e.costSvc.ApplyCreditNote(ctx, note.ID)
	assert.ErrorIs(t, err, domain.ErrStateTransition)
}

// ── facturas de venta ────────────────────────────────────────────────────────

func newSalesEnv(t *testing.T, withVATWithholding bool, incomePct float64) (*lifecycleEnv, *entity.SalesInvoice) {
	t.Helper()
	e := newLifecycleEnv(t)
	client := &entity.ClientAlias{
		ID:                       uuid.New().String(),
		OriginalName:             "JUGUESAL S.A. DE C.V.",
		AppliesVATWithholding:    withVATWithholding,
		AppliesIncomeWithholding: incomePct > 0,
		IncomeWithholdingPct:     incomePct,
	}
	e.aliases.byID[client.ID] = client

	inv := &entity.SalesInvoice{
		Number:        "CCF-001",
		DocumentType:  entity.DocTypeFiscalCredit,
		OperationType: entity.SalesOperationDomestic,
		ClientID:      client.ID,
		IssueDate:     time.Now(),
		DueDate:       time.Now().AddDate(0, 0, 30),
	}
	return e, inv
}

func TestSalesCreate_LineasMixtasYRetenciones(t *testing.T) {
	e, inv := newSalesEnv(t, true, 0)
	ctx := context.Background()

	items := []*entity.SalesInvoiceItem{
		{Description: "Flete marítimo", Quantity: dec("1"), UnitPrice: dec("1000.00"), AppliesVAT: true},
		{Description: "Servicio exento", Quantity: dec("2"), UnitPrice: dec("50.00"), AppliesVAT: false},
	}
	require.NoError(t, e.salesSvc.Create(ctx, inv, items))

	// Línea gravada: 1000 + 13% = 1130; exenta: 100.
	assert.True(t, inv.SubtotalTaxable.Equal(dec("1000.00")), "gravado: %s", inv.SubtotalTaxable)
	assert.True(t, inv.SubtotalExempt.Equal(dec("100.00")), "exento: %s", inv.SubtotalExempt)
	assert.True(t, inv.VATTotal.Equal(dec("130.00")), "iva: %s", inv.VATTotal)
	assert.True(t, inv.AmountTotal.Equal(dec("1230.00")), "total: %s", inv.AmountTotal)

	// Retención IVA: 1% del gravado.
	assert.True(t, inv.VATWithheld.Equal(dec("10.00")), "retención iva: %s", inv.VATWithheld)
	assert.True(t, inv.TotalWithheld.Equal(dec("10.00")))
	assert.True(t, inv.NetToCollect.Equal(dec("1220.00")), "neto: %s", inv.NetToCollect)

	assert.Equal(t, entity.DefaultExemptionReason, items[1].ExemptionReason)
}

func TestSalesRecalc_RetencionRenta(t *testing.T) {
	e, inv := newSalesEnv(t, false, 10)
	ctx := context.Background()

	items := []*entity.SalesInvoiceItem{
		{Description: "Comisión", Quantity: dec("1"), UnitPrice: dec("500.00"), AppliesVAT: true},
	}
	require.NoError(t, e.salesSvc.Create(ctx, inv, items))

	// total = 565; renta = 10% de 565 = 56.50; sin retención de IVA.
	assert.True(t, inv.VATWithheld.IsZero())
	assert.True(t, inv.IncomeWithheld.Equal(dec("56.50")), "renta: %s", inv.IncomeWithheld)
	assert.True(t, inv.NetToCollect.Equal(dec("508.50")))
}

func TestSalesRemoveItem_Recalcula(t *testing.T) {
	e, inv := newSalesEnv(t, false, 0)
	ctx := context.Background()

	items := []*entity.SalesInvoiceItem{
		{Description: "A", Quantity: dec("1"), UnitPrice: dec("100.00"), AppliesVAT: true},
		{Description: "B", Quantity: dec("1"), UnitPrice: dec("200.00"), AppliesVAT: true},
	}
	require.NoError(t, e.salesSvc.Create(ctx, inv, items))
	require.True(t, inv.AmountTotal.Equal(dec("339.00")))

	require.NoError(t, e.salesSvc.RemoveItem(ctx, inv.ID, items[1].ID))
	assert.True(t, inv.AmountTotal.Equal(dec("113.00")), "total tras borrar: %s", inv.AmountTotal)
}

func TestSalesCreditNote_AnulacionYMapeos(t *testing.T) {
	e, inv := newSalesEnv(t, false, 0)
	ctx := context.Background()
	require.NoError(t, e.salesSvc.Create(ctx, inv, []*entity.SalesInvoiceItem{
		{Description: "Servicio", Quantity: dec("1"), UnitPrice: dec("100.00"), AppliesVAT: false},
	}))
	require.NoError(t, e.salesSvc.AssignCost(ctx, inv.ID, uuid.New().String(), dec("80.00"), dec("25")))
	require.Len(t, e.sales.mappings, 1)

	// Exceder el total se rechaza.
	err := e.salesSvc.ApplySalesCreditNote(ctx, &entity.SalesCreditNote{
		Number: "NCV-1", SalesInvoiceID: inv.ID, Amount: dec("150.00"),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Nota parcial.
	require.NoError(t, e.salesSvc.ApplySalesCreditNote(ctx, &entity.SalesCreditNote{
		Number: "NCV-2", SalesInvoiceID: inv.ID, Amount: dec("40.00"),
	}))
	assert.Equal(t, entity.SalesBillingPartiallyVoided, inv.StatusBilling)
	assert.Len(t, e.sales.mappings, 1)

	// La segunda nota iguala el total: anulación y borrado de asignaciones.
	require.NoError(t, e.salesSvc.ApplySalesCreditNote(ctx, &entity.SalesCreditNote{
		Number: "NCV-3", SalesInvoiceID: inv.ID, Amount: dec("60.00"),
	}))
	assert.Equal(t, entity.SalesBillingVoided, inv.StatusBilling)
	assert.Empty(t, e.sales.mappings, "la anulación total elimina las asignaciones costo-venta")
}

func TestPaymentValidation_Estados(t *testing.T) {
	e, inv := newSalesEnv(t, false, 0)
	ctx := context.Background()
	require.NoError(t, e.salesSvc.Create(ctx, inv, []*entity.SalesInvoiceItem{
		{Description: "Servicio", Quantity: dec("1"), UnitPrice: dec("100.00"), AppliesVAT: false},
	}))
	inv.StatusBilling = entity.SalesBillingPendingCollection

	p1 := &entity.Payment{SalesInvoiceID: inv.ID, Amount: dec("40.00"), PaymentDate: time.Now()}
	require.NoError(t, e.salesSvc.RegisterPayment(ctx, p1))
	require.NoError(t, e.salesSvc.ValidatePayment(ctx, p1.ID, "revisor", "", true))
	assert.Equal(t, entity.SalesPaymentPartial, inv.StatusPayment)
	assert.True(t, inv.AmountPaid.Equal(dec("40.00")))
	assert.True(t, inv.AmountPending.Equal(dec("60.00")))

	p2 := &entity.Payment{SalesInvoiceID: inv.ID, Amount: dec("60.00"), PaymentDate: time.Now()}
	require.NoError(t, e.salesSvc.RegisterPayment(ctx, p2))
	require.NoError(t, e.salesSvc.ValidatePayment(ctx, p2.ID, "revisor", "", true))
	assert.Equal(t, entity.SalesPaymentFull, inv.StatusPayment)
	assert.Equal(t, entity.SalesBillingPaid, inv.StatusBilling, "pending_collection avanza a paid")
	assert.True(t, inv.AmountPending.IsZero())
}

func TestPaymentValidation_SobrepagoRechazado(t *testing.T) {
	e, inv := newSalesEnv(t, false, 0)
	ctx := context.Background()
	require.NoError(t, e.salesSvc.Create(ctx, inv, []*entity.SalesInvoiceItem{
		{Description: "Servicio", Quantity: dec("1"), UnitPrice: dec("100.00"), AppliesVAT: false},
	}))

	p := &entity.Payment{SalesInvoiceID: inv.ID, Amount: dec("900.00"), PaymentDate: time.Now()}
	require.NoError(t, e.salesSvc.RegisterPayment(ctx, p))

	err := e.salesSvc.ValidatePayment(ctx, p.ID, "revisor", "", true)
	require.ErrorIs(t, err, domain.ErrValidation,
		"validar un abono mayor al saldo por cobrar debe rechazarse")

	assert.Equal(t, entity.PaymentPendingValidation, p.State, "el abono sigue pendiente")
	assert.True(t, inv.AmountPaid.IsZero())
	assert.Equal(t, entity.SalesPaymentPending, inv.StatusPayment)

	// El saldo exacto sí se acepta.
	p2 := &entity.Payment{SalesInvoiceID: inv.ID, Amount: dec("100.00"), PaymentDate: time.Now()}
	require.NoError(t, e.salesSvc.RegisterPayment(ctx, p2))
	require.NoError(t, e.salesSvc.ValidatePayment(ctx, p2.ID, "revisor", "", true))
	assert.Equal(t, entity.SalesPaymentFull, inv.StatusPayment)
}

func TestPaymentValidation_RechazoNoSuma(t *testing.T) {
	e, inv := newSalesEnv(t, false, 0)
	ctx := context.Background()
	require.NoError(t, e.salesSvc.Create(ctx, inv, []*entity.SalesInvoiceItem{
		{Description: "Servicio", Quantity: dec("1"), UnitPrice: dec("100.00"), AppliesVAT: false},
	}))

	p := &entity.Payment{SalesInvoiceID: inv.ID, Amount: dec("100.00"), PaymentDate: time.Now()}
	require.NoError(t, e.salesSvc.RegisterPayment(ctx, p))
	require.NoError(t, e.salesSvc.ValidatePayment(ctx, p.ID, "revisor", "comprobante ilegible", false))

	assert.Equal(t, entity.PaymentRejected, p.State)
	assert.Equal(t, entity.SalesPaymentPending, inv.StatusPayment)
	assert.True(t, inv.AmountPaid.IsZero())
}
