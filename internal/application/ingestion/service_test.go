package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logistica-sv/freight-backoffice/internal/application/lifecycle"
	"github.com/logistica-sv/freight-backoffice/internal/application/matcher"
	"github.com/logistica-sv/freight-backoffice/internal/application/parser"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

type fakeOTsIngest struct {
	repository.OTRepository
	ots []*entity.OT
}

func (f *fakeOTsIngest) GetByID(_ context.Context, id string) (*entity.OT, error) {
	for _, ot := range f.ots {
		if ot.ID == id {
			return ot, nil
		}
	}
	return nil, nil
}

func (f *fakeOTsIngest) Update(_ context.Context, _ *entity.OT) error { return nil }

func (f *fakeOTsIngest) FindByNumberFold(_ context.Context, number string) (*entity.OT, error) {
	for _, ot := range f.ots {
		if strings.EqualFold(ot.Number, number) {
			return ot, nil
		}
	}
	return nil, nil
}

func (f *fakeOTsIngest) FindByMBLAndContainer(_ context.Context, mbl, container string) (*entity.OT, error) {
	for _, ot := range f.ots {
		if ot.MasterBL == mbl && ot.HasContainer(container) {
			return ot, nil
		}
	}
	return nil, nil
}

func (f *fakeOTsIngest) FindByMBL(_ context.Context, mbl string) (*entity.OT, error) {
	for _, ot := range f.ots {
		if ot.MasterBL == mbl {
			return ot, nil
		}
	}
	return nil, nil
}

func (f *fakeOTsIngest) FindByContainer(_ context.Context, container string) (*entity.OT, error) {
	for _, ot := range f.ots {
		if ot.HasContainer(container) {
			return ot, nil
		}
	}
	return nil, nil
}

func (f *fakeOTsIngest) FindByProviderAndDate(_ context.Context, _ string, _ time.Time, _ int) (*entity.OT, error) {
	return nil, nil
}

type fakeFilesIngest struct {
	repository.UploadedFileRepository
	files []*entity.UploadedFile
}

func (f *fakeFilesIngest) Create(_ context.Context, file *entity.UploadedFile) error {
	f.files = append(f.files, file)
	return nil
}

func (f *fakeFilesIngest) GetBySHA256(_ context.Context, sha string) (*entity.UploadedFile, error) {
	for _, file := range f.files {
		if file.SHA256 == sha {
			return file, nil
		}
	}
	return nil, nil
}

type fakeCostsIngest struct {
	repository.CostInvoiceRepository
	files    *fakeFilesIngest
	invoices []*entity.CostInvoice
}

func (f *fakeCostsIngest) Create(_ context.Context, inv *entity.CostInvoice) error {
	cp := *inv
	f.invoices = append(f.invoices, &cp)
	return nil
}

func (f *fakeCostsIngest) Update(_ context.Context, inv *entity.CostInvoice) error {
	for i, existing := range f.invoices {
		if existing.ID == inv.ID {
			cp := *inv
			f.invoices[i] = &cp
		}
	}
	return nil
}

func (f *fakeCostsIngest) GetByNumber(_ context.Context, number string) (*entity.CostInvoice, error) {
	for _, inv := range f.invoices {
		if inv.Number == number && inv.DeletedAt == nil {
			return inv, nil
		}
	}
	return nil, nil
}

func (f *fakeCostsIngest) GetByFileSHA(_ context.Context, sha string) (*entity.CostInvoice, error) {
	for _, file := range f.files.files {
		if file.SHA256 != sha {
			continue
		}
		for _, inv := range f.invoices {
			if inv.UploadedFileID != nil && *inv.UploadedFileID == file.ID && inv.DeletedAt == nil {
				return inv, nil
			}
		}
	}
	return nil, nil
}

type fakeProvidersIngest struct {
	repository.ProviderRepository
	providers []*entity.Provider
}

func (f *fakeProvidersIngest) GetByID(_ context.Context, id string) (*entity.Provider, error) {
	for _, p := range f.providers {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProvidersIngest) GetByTaxID(_ context.Context, taxID string) (*entity.Provider, error) {
	for _, p := range f.providers {
		if p.TaxID == taxID {
			return p, nil
		}
	}
	return nil, nil
}

type fakeNotesIngest struct {
	repository.CreditNoteRepository
}

type fakeStoreIngest struct {
	blobs map[string][]byte
}

func (f *fakeStoreIngest) Save(_ context.Context, path string, data []byte) (string, error) {
	f.blobs[path] = data
	return path, nil
}

func (f *fakeStoreIngest) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, nil
}

func (f *fakeStoreIngest) Exists(_ context.Context, path string) (bool, error) {
	_, ok := f.blobs[path]
	return ok, nil
}

func (f *fakeStoreIngest) URL(_ context.Context, path string) (string, error) { return path, nil }

type fakeTxIngest struct {
	costs repository.CostInvoiceRepository
	ots   repository.OTRepository
	notes repository.CreditNoteRepository
}

func (f *fakeTxIngest) RunCost(_ context.Context, fn func(repository.CostInvoiceRepository, repository.OTRepository, repository.CreditNoteRepository) error) error {
	return fn(f.costs, f.ots, f.notes)
}

func (f *fakeTxIngest) RunDispute(_ context.Context, fn func(repository.DisputeRepository, repository.CostInvoiceRepository, repository.OTRepository, repository.CreditNoteRepository) error) error {
	return fn(nil, f.costs, f.ots, f.notes)
}

func (f *fakeTxIngest) RunSales(_ context.Context, fn func(repository.SalesInvoiceRepository, repository.SalesCreditNoteRepository, repository.PaymentRepository) error) error {
	return fn(nil, nil, nil)
}

type ingestEnv struct {
	svc       *Service
	ots       *fakeOTsIngest
	files     *fakeFilesIngest
	costs     *fakeCostsIngest
	providers *fakeProvidersIngest
	store     *fakeStoreIngest
}

func newIngestEnv() *ingestEnv {
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	ots := &fakeOTsIngest{}
	files := &fakeFilesIngest{}
	costs := &fakeCostsIngest{files: files}
	providers := &fakeProvidersIngest{}
	notes := &fakeNotesIngest{}
	store := &fakeStoreIngest{blobs: make(map[string][]byte)}
	tx := &fakeTxIngest{costs: costs, ots: ots, notes: notes}

	costSvc := lifecycle.NewCostService(costs, ots, providers, notes, tx, log)
	svc := NewService(parser.NewPDFParser(nil), matcher.New(ots), files, costs, providers, costSvc, store, log)
	return &ingestEnv{svc: svc, ots: ots, files: files, costs: costs, providers: providers, store: store}
}

const dteConOT = `{
  "identificacion": {"numeroControl": "DTE-03-0001-000000000000123", "fecEmi": "2025-03-01"},
  "emisor": {"nit": "06142509901021", "nombre": "NAVIERA DEL PACIFICO, S.A. DE C.V."},
  "resumen": {"totalPagar": 1540.75},
  "cuerpoDocumento": [{"descripcion": "FLETE MARITIMO OT-2025-001"}]
}`

const dteSinReferencias = `{
  "identificacion": {"numeroControl": "DTE-03-0001-000000000000456", "fecEmi": "2025-03-02"},
  "emisor": {"nit": "99999999999999", "nombre": "PROVEEDOR DESCONOCIDO"},
  "resumen": {"totalPagar": 200}
}`

func TestIngest_DTEAsignaOTPorNumero(t *testing.T) {
	env := newIngestEnv()
	env.ots.ots = append(env.ots.ots, &entity.OT{ID: "ot-1", Number: "OT-2025-001"})
	env.providers.providers = append(env.providers.providers, &entity.Provider{
		ID: "prov-1", Name: "NAVIERA DEL PACIFICO", TaxID: "06142509901021",
	})

	res, err := env.svc.Ingest(context.Background(), Input{
		Filename:    "factura.json",
		Data:        []byte(dteConOT),
		ContentType: "application/json",
		CostType:    entity.CostTypeFreight,
		Source:      entity.SourceUploadManual,
	})
	require.NoError(t, err)
	require.False(t, res.Duplicate)

	inv := res.Invoice
	assert.Equal(t, "DTE-03-0001-000000000000123", inv.Number)
	require.NotNil(t, inv.OTID)
	assert.Equal(t, "ot-1", *inv.OTID)
	assert.Equal(t, "OT-2025-001", inv.OTNumberDenorm)
	assert.Equal(t, matcher.MethodOTNumber, inv.MatchMethod)
	assert.InDelta(t, 0.95, inv.MatchConfidence, 0.001)
	assert.False(t, inv.NeedsReview, "alta confianza de parseo y de match")
	require.NotNil(t, inv.ProviderID)
	assert.Equal(t, "prov-1", *inv.ProviderID)
	assert.True(t, inv.Amount.Equal(decimal.RequireFromString("1540.75")))

	// El blob queda registrado una sola vez bajo invoices/.
	require.Len(t, env.files.files, 1)
	assert.True(t, strings.HasPrefix(env.files.files[0].StoragePath, "invoices/"))
	assert.Contains(t, env.files.files[0].StoragePath, "factura.json")
	assert.Len(t, env.store.blobs, 1)
}

func TestIngest_DuplicadoReusaBlob(t *testing.T) {
	env := newIngestEnv()

	in := Input{Filename: "factura.json", Data: []byte(dteConOT), Source: entity.SourceEmailAuto}
	first, err := env.svc.Ingest(context.Background(), in)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := env.svc.Ingest(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Invoice.ID, second.Invoice.ID, "se referencia la factura existente")
	assert.Len(t, env.files.files, 1, "el blob no se vuelve a guardar")
	assert.Len(t, env.costs.invoices, 1)
}

func TestIngest_SinCoincidenciaQuedaSinAsignar(t *testing.T) {
	env := newIngestEnv()

	res, err := env.svc.Ingest(context.Background(), Input{
		Filename: "factura.json",
		Data:     []byte(dteSinReferencias),
		Source:   entity.SourceUploadManual,
	})
	require.NoError(t, err)

	inv := res.Invoice
	assert.Nil(t, inv.OTID)
	assert.Equal(t, matcher.MethodNoMatch, inv.MatchMethod)
	assert.True(t, inv.NeedsReview)
}

func TestIngest_DocumentoIlegibleRecibeNumeroTemporal(t *testing.T) {
	env := newIngestEnv()

	data := []byte("esto no es un PDF")
	sum := sha256.Sum256(data)
	expected := "TEMP-" + strings.ToUpper(hex.EncodeToString(sum[:])[:12])

	res, err := env.svc.Ingest(context.Background(), Input{
		Filename: "escaneo.pdf",
		Data:     data,
		Source:   entity.SourceEmailAuto,
	})
	require.NoError(t, err)

	inv := res.Invoice
	assert.Equal(t, expected, inv.Number)
	assert.True(t, inv.NeedsReview)
	assert.Nil(t, res.Parsed)
	// El blob se conserva aunque el contenido no se pueda interpretar.
	assert.Len(t, env.files.files, 1)
}

func TestIngest_NumeroOcupadoCaeANumeroTemporal(t *testing.T) {
	env := newIngestEnv()
	env.costs.invoices = append(env.costs.invoices, &entity.CostInvoice{
		ID:     "previa",
		Number: "DTE-03-0001-000000000000123",
	})

	res, err := env.svc.Ingest(context.Background(), Input{
		Filename: "factura.json",
		Data:     []byte(dteConOT),
		Source:   entity.SourceUploadManual,
	})
	require.NoError(t, err)

	inv := res.Invoice
	assert.True(t, strings.HasPrefix(inv.Number, "TEMP-"), "número ocupado: se conserva el documento con número temporal")
	assert.True(t, inv.NeedsReview)
	assert.Len(t, env.costs.invoices, 2)
}
