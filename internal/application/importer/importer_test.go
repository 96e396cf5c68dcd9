package importer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/normalize"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeAliases struct {
	repository.ClientAliasRepository
	byID map[string]*entity.ClientAlias
}

func (f *fakeAliases) GetByID(_ context.Context, id string) (*entity.ClientAlias, error) {
	return f.byID[id], nil
}

func (f *fakeAliases) GetByNormalizedName(_ context.Context, n string) (*entity.ClientAlias, error) {
	for _, a := range f.byID {
		if a.NormalizedName == n {
			return a, nil
		}
	}
	return nil, nil
}

type fakeResolutions struct {
	byNormalized map[string]*entity.ClientResolution
}

func (f *fakeResolutions) GetByNormalizedName(_ context.Context, n string) (*entity.ClientResolution, error) {
	return f.byNormalized[n], nil
}

func (f *fakeResolutions) Upsert(_ context.Context, r *entity.ClientResolution) error {
	f.byNormalized[r.NormalizedName] = r
	return nil
}

type fakeResolver struct {
	aliases     *fakeAliases
	resolutions *fakeResolutions
}

func (f *fakeResolver) Resolve(ctx context.Context, raw string) (*entity.ClientAlias, error) {
	n := normalize.ClientName(raw)
	if a, _ := f.aliases.GetByNormalizedName(ctx, n); a != nil {
		return a, nil
	}
	a := &entity.ClientAlias{ID: uuid.New().String(), OriginalName: raw, NormalizedName: n}
	f.aliases.byID[a.ID] = a
	return a, nil
}

func (f *fakeResolver) CacheResolution(_ context.Context, raw, resolvedToID string) error {
	f.resolutions.byNormalized[normalize.ClientName(raw)] = &entity.ClientResolution{
		ID:             uuid.New().String(),
		OriginalName:   raw,
		NormalizedName: normalize.ClientName(raw),
		ResolvedToID:   resolvedToID,
	}
	return nil
}

type fakeOTs struct {
	repository.OTRepository
	byNumber map[string]*entity.OT
}

func (f *fakeOTs) GetByNumber(_ context.Context, number string) (*entity.OT, error) {
	return f.byNumber[number], nil
}

func (f *fakeOTs) Create(_ context.Context, ot *entity.OT) error {
	f.byNumber[ot.Number] = ot
	return nil
}

func (f *fakeOTs) Update(_ context.Context, ot *entity.OT) error {
	f.byNumber[ot.Number] = ot
	return nil
}

type fakeProcessed struct {
	bySHA map[string]*entity.ProcessedFile
}

func (f *fakeProcessed) GetBySHA256(_ context.Context, sha string) (*entity.ProcessedFile, error) {
	return f.bySHA[sha], nil
}

func (f *fakeProcessed) Create(_ context.Context, p *entity.ProcessedFile) error {
	f.bySHA[p.SHA256] = p
	return nil
}

type fakeImportTx struct {
	ots       *fakeOTs
	processed *fakeProcessed
}

func (f *fakeImportTx) RunImport(ctx context.Context, fn func(
	repository.OTRepository,
	repository.ProcessedFileRepository,
) error) error {
	return fn(f.ots, f.processed)
}

type env struct {
	svc         *Service
	ots         *fakeOTs
	aliases     *fakeAliases
	resolutions *fakeResolutions
	processed   *fakeProcessed
}

func newEnv(t *testing.T) *env {
	t.Helper()
	aliases := &fakeAliases{byID: make(map[string]*entity.ClientAlias)}
	resolutions := &fakeResolutions{byNormalized: make(map[string]*entity.ClientResolution)}
	ots := &fakeOTs{byNumber: make(map[string]*entity.OT)}
	processed := &fakeProcessed{bySHA: make(map[string]*entity.ProcessedFile)}
	resolver := &fakeResolver{aliases: aliases, resolutions: resolutions}
	tx := &fakeImportTx{ots: ots, processed: processed}
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	return &env{
		svc:         NewService(ots, aliases, resolutions, processed, resolver, tx, log),
		ots:         ots,
		aliases:     aliases,
		resolutions: resolutions,
		processed:   processed,
	}
}

// buildXLSX arma un libro en memoria con una sola hoja.
func buildXLSX(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// ── unidades ─────────────────────────────────────────────────────────────────

func TestDetectHeader(t *testing.T) {
	rows := [][]string{
		{"Reporte de operaciones", "", ""},
		{"No. OT", "Cliente", "Operador", "Contenedores", "Fecha Provisión"},
		{"25OT-221", "JUGUESAL", "ANA", "MSKU1234567", "2025-03-01"},
	}
	m, headerRow := detectHeader(rows)
	require.NotNil(t, m, "debe reconocer la fila de encabezados")
	assert.Equal(t, 1, headerRow)
	assert.True(t, m.has(colOTNumber))
	assert.True(t, m.has(colClient))
	assert.True(t, m.has(colOperator))
	assert.True(t, m.has(colContainers))
	assert.True(t, m.has(colProvisionDate))
}

func TestDetectHeader_SinCamposClave(t *testing.T) {
	rows := [][]string{{"Fecha", "Monto", "Notas"}}
	m, _ := detectHeader(rows)
	assert.Nil(t, m, "sin ot_number ni client no hay encabezado válido")
}

func TestOTYear(t *testing.T) {
	cases := []struct {
		number string
		year   int
		ok     bool
	}{
		{"25OT-221", 2025, true},
		{"24OT-001", 2024, true},
		{"OT-2025-0099", 2025, true},
		{"OT-ABC", 0, false},
	}
	for _, c := range cases {
		year, ok := otYear(c.number)
		assert.Equal(t, c.ok, ok, c.number)
		assert.Equal(t, c.year, year, c.number)
	}
}

func TestMapOTState(t *testing.T) {
	assert.Equal(t, "in_transit", mapOTState("En Tránsito"))
	assert.Equal(t, "closed", mapOTState("LIQUIDADA"))
	assert.Equal(t, "cancelled", mapOTState("anulada por cliente"))
	assert.Equal(t, "", mapOTState("zzz"))
}

// ── flujo completo ───────────────────────────────────────────────────────────

func importRows(extra ...[]any) [][]any {
	rows := [][]any{
		{"No. OT", "Cliente", "Operador", "MBL", "Contenedores", "Fecha Provisión"},
	}
	return append(rows, extra...)
}

func TestImport_CreaEIdempotencia(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	data := buildXLSX(t, "Base OTs", importRows(
		[]any{"25OT-221", "JUGUESAL S.A. DE C.V.", "ANA", "MAEU123456789", "MSKU1234567; TCLU7654321", "2025-03-01"},
		[]any{"25OT-222", "COMERCIAL SALVADOR", "LUIS", "", "", ""},
	))

	report, err := e.svc.Import(ctx, []File{{Name: "ots.xlsx", Data: data}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesProcessed)
	assert.Equal(t, 2, report.OTsCreated)

	ot := e.ots.byNumber["25OT-221"]
	require.NotNil(t, ot)
	assert.Equal(t, []string{"MSKU1234567", "TCLU7654321"}, ot.Containers)
	assert.Equal(t, entity.ProvisionSourceExcel, ot.ProvisionSource)
	assert.Equal(t, entity.OTProvisionProvisioned, ot.ProvisionStatus)
	require.NotNil(t, ot.ProvisionDate)

	alias, _ := e.aliases.GetByNormalizedName(ctx, "JUGUESAL S.A. DE C.V")
	require.NotNil(t, alias)
	assert.Equal(t, alias.ID, ot.ClientID)

	// Segunda corrida con el mismo archivo: omisión total.
	report2, err := e.svc.Import(ctx, []File{{Name: "ots.xlsx", Data: data}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report2.FilesSkipped)
	assert.Equal(t, 0, report2.OTsCreated)
	assert.Equal(t, 0, report2.OTsUpdated)
}

func TestImport_FiltraPorAnioYContenedores(t *testing.T) {
	e := newEnv(t)
	data := buildXLSX(t, "datos", importRows(
		[]any{"24OT-100", "CLIENTE VIEJO", "", "", "", ""},
		[]any{"25OT-300", "CLIENTE NUEVO", "", "", "NOVALIDO1; MSKU1234567", ""},
	))

	report, err := e.svc.Import(context.Background(), []File{{Name: "a.xlsx", Data: data}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.OTsCreated, "la OT 2024 se filtra")
	assert.Equal(t, 1, report.RowsSkipped)
	assert.Equal(t, 1, report.InvalidContainers)
	assert.Equal(t, []string{"MSKU1234567"}, e.ots.byNumber["25OT-300"].Containers)
}

func TestImport_ConflictoDosFases(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	current := &entity.ClientAlias{
		ID:             uuid.New().String(),
		OriginalName:   "JUGUESAL S.A. DE C.V.",
		NormalizedName: "JUGUESAL S.A. DE C.V",
	}
	e.aliases.byID[current.ID] = current
	updatedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	e.ots.byNumber["25OT-221"] = &entity.OT{
		ID:        uuid.New().String(),
		Number:    "25OT-221",
		ClientID:  current.ID,
		Operator:  "ANA",
		UpdatedAt: updatedAt,
	}

	data := buildXLSX(t, "import", importRows(
		[]any{"25OT-221", "JUGUESAL", "ANA", "", "", ""},
	))
	files := []File{{Name: "A.xlsx", Data: data}}

	// Fase 1: conflicto de cliente, nada se escribe.
	report, err := e.svc.Import(ctx, files, nil)
	require.ErrorIs(t, err, domain.ErrConflictPending)
	require.Len(t, report.Conflicts, 1)
	c := report.Conflicts[0]
	assert.Equal(t, "25OT-221", c.OTNumber)
	assert.Equal(t, ConflictFieldClient, c.Field)
	assert.Equal(t, "JUGUESAL S.A. DE C.V.", c.CurrentValue)
	assert.Equal(t, "JUGUESAL", c.NewValue)
	require.NotNil(t, c.OTUpdatedAt)
	assert.Empty(t, e.processed.bySHA, "fase 1 no marca archivos")

	// Fase 2: use_new reasigna el cliente y cachea la resolución.
	decisions := []Resolution{{
		OTNumber:    "25OT-221",
		Field:       ConflictFieldClient,
		Choice:      ChoiceUseNew,
		OTUpdatedAt: c.OTUpdatedAt,
	}}
	report2, err := e.svc.Import(ctx, files, decisions)
	require.NoError(t, err)
	assert.Equal(t, 1, report2.OTsUpdated)
	assert.Empty(t, report2.Conflicts)

	newAlias, _ := e.aliases.GetByNormalizedName(ctx, "JUGUESAL")
	require.NotNil(t, newAlias)
	assert.Equal(t, newAlias.ID, e.ots.byNumber["25OT-221"].ClientID)

	cached := e.resolutions.byNormalized["JUGUESAL S.A. DE C.V"]
	require.NotNil(t, cached, "la decisión use_new queda en el cache de resoluciones")
	assert.Equal(t, newAlias.ID, cached.ResolvedToID)
	assert.Len(t, e.processed.bySHA, 1)
}

func TestImport_ResolucionObsoleta(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	current := &entity.ClientAlias{
		ID:             uuid.New().String(),
		OriginalName:   "CLIENTE ORIGINAL",
		NormalizedName: "CLIENTE ORIGINAL",
	}
	e.aliases.byID[current.ID] = current
	e.ots.byNumber["25OT-500"] = &entity.OT{
		ID:        uuid.New().String(),
		Number:    "25OT-500",
		ClientID:  current.ID,
		UpdatedAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}

	data := buildXLSX(t, "import", importRows(
		[]any{"25OT-500", "OTRO CLIENTE", "", "", "", ""},
	))
	stale := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	decisions := []Resolution{{
		OTNumber:    "25OT-500",
		Field:       ConflictFieldClient,
		Choice:      ChoiceUseNew,
		OTUpdatedAt: &stale,
	}}

	_, err := e.svc.Import(ctx, []File{{Name: "a.xlsx", Data: data}}, decisions)
	assert.ErrorIs(t, err, domain.ErrStaleResolution)
}

func TestImport_ConflictoEntreArchivos(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := buildXLSX(t, "import", importRows([]any{"25OT-700", "CLIENTE A", "ANA", "", "", ""}))
	b := buildXLSX(t, "import", importRows([]any{"25OT-700", "CLIENTE B", "ANA", "", "", ""}))
	files := []File{{Name: "a.xlsx", Data: a}, {Name: "b.xlsx", Data: b}}

	report, err := e.svc.Import(ctx, files, nil)
	require.ErrorIs(t, err, domain.ErrConflictPending)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, "CLIENTE A", report.Conflicts[0].CurrentValue)
	assert.Equal(t, "CLIENTE B", report.Conflicts[0].NewValue)
	assert.Nil(t, report.Conflicts[0].OTUpdatedAt, "conflicto entre archivos no lleva marca de OT")

	report2, err := e.svc.Import(ctx, files, []Resolution{{
		OTNumber: "25OT-700",
		Field:    ConflictFieldClient,
		Choice:   ChoiceUseNew,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, report2.OTsCreated)

	alias, _ := e.aliases.GetByNormalizedName(ctx, "CLIENTE B")
	require.NotNil(t, alias)
	assert.Equal(t, alias.ID, e.ots.byNumber["25OT-700"].ClientID)
}
