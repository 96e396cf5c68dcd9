package alias_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logistica-sv/freight-backoffice/internal/application/alias"
	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

// ── fakes en memoria ─────────────────────────────────────────────────────────

type fakeAliasRepo struct {
	byID map[string]*entity.ClientAlias
}

func newFakeAliasRepo() *fakeAliasRepo {
	return &fakeAliasRepo{byID: make(map[string]*entity.ClientAlias)}
}

func (f *fakeAliasRepo) Create(_ context.Context, a *entity.ClientAlias) error {
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAliasRepo) GetByID(_ context.Context, id string) (*entity.ClientAlias, error) {
	return f.byID[id], nil
}

func (f *fakeAliasRepo) GetByNormalizedName(_ context.Context, normalized string) (*entity.ClientAlias, error) {
	for _, a := range f.byID {
		if a.DeletedAt == nil && a.NormalizedName == normalized {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAliasRepo) ShortNameExists(_ context.Context, shortName, excludeID string) (bool, error) {
	for _, a := range f.byID {
		if a.DeletedAt == nil && a.ID != excludeID && a.ShortName == shortName {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAliasRepo) Update(_ context.Context, a *entity.ClientAlias) error {
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAliasRepo) ListActive(_ context.Context) ([]*entity.ClientAlias, error) {
	var out []*entity.ClientAlias
	for _, a := range f.byID {
		if a.DeletedAt == nil && !a.IsMerged() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAliasRepo) List(_ context.Context, _ string, _, _ int) ([]*entity.ClientAlias, error) {
	return f.ListActive(context.Background())
}

func (f *fakeAliasRepo) SoftDelete(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeAliasRepo) Stats(_ context.Context) (*repository.AliasStats, error) {
	st := &repository.AliasStats{}
	for _, a := range f.byID {
		st.Total++
		if a.Verified {
			st.Verified++
		}
		if a.IsMerged() {
			st.Merged++
		}
	}
	st.Pending = st.Total - st.Verified - st.Merged
	return st, nil
}

type fakeMatchRepo struct {
	byPair map[string]*entity.SimilarityMatch
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{byPair: make(map[string]*entity.SimilarityMatch)}
}

func pairKey(a, b string) string {
	x, y := entity.OrderPair(a, b)
	return x + "|" + y
}

func (f *fakeMatchRepo) GetByID(_ context.Context, id string) (*entity.SimilarityMatch, error) {
	for _, m := range f.byPair {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMatchRepo) GetByPair(_ context.Context, a, b string) (*entity.SimilarityMatch, error) {
	return f.byPair[pairKey(a, b)], nil
}

func (f *fakeMatchRepo) Upsert(_ context.Context, m *entity.SimilarityMatch) error {
	f.byPair[pairKey(m.Alias1ID, m.Alias2ID)] = m
	return nil
}

func (f *fakeMatchRepo) Update(_ context.Context, m *entity.SimilarityMatch) error {
	f.byPair[pairKey(m.Alias1ID, m.Alias2ID)] = m
	return nil
}

func (f *fakeMatchRepo) ListPending(_ context.Context, _, _ int) ([]*entity.SimilarityMatch, error) {
	return f.ListPendingAll(context.Background())
}

func (f *fakeMatchRepo) ListPendingAll(_ context.Context) ([]*entity.SimilarityMatch, error) {
	var out []*entity.SimilarityMatch
	for _, m := range f.byPair {
		if m.Status == entity.MatchStatusPending {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeResolutionRepo struct {
	byNormalized map[string]*entity.ClientResolution
}

func newFakeResolutionRepo() *fakeResolutionRepo {
	return &fakeResolutionRepo{byNormalized: make(map[string]*entity.ClientResolution)}
}

func (f *fakeResolutionRepo) GetByNormalizedName(_ context.Context, n string) (*entity.ClientResolution, error) {
	return f.byNormalized[n], nil
}

func (f *fakeResolutionRepo) Upsert(_ context.Context, r *entity.ClientResolution) error {
	f.byNormalized[r.NormalizedName] = r
	return nil
}

type fakeOTRepoForAlias struct {
	repository.OTRepository
	reassigned map[string]string // clienteID -> nuevo clienteID
	ots        []*entity.OT
}

func (f *fakeOTRepoForAlias) ReassignClient(_ context.Context, from, to string) (int, error) {
	n := 0
	for _, ot := range f.ots {
		if ot.ClientID == from {
			ot.ClientID = to
			n++
		}
	}
	if f.reassigned == nil {
		f.reassigned = make(map[string]string)
	}
	f.reassigned[from] = to
	return n, nil
}

type fakeTx struct {
	aliases *fakeAliasRepo
	matches *fakeMatchRepo
	ots     *fakeOTRepoForAlias
}

func (f *fakeTx) RunAlias(ctx context.Context, fn func(
	repository.ClientAliasRepository,
	repository.OTRepository,
	repository.SimilarityMatchRepository,
) error) error {
	return fn(f.aliases, f.ots, f.matches)
}

func newService(t *testing.T) (*alias.Service, *fakeAliasRepo, *fakeMatchRepo, *fakeResolutionRepo, *fakeOTRepoForAlias) {
	t.Helper()
	aliases := newFakeAliasRepo()
	matches := newFakeMatchRepo()
	resolutions := newFakeResolutionRepo()
	ots := &fakeOTRepoForAlias{}
	tx := &fakeTx{aliases: aliases, matches: matches, ots: ots}
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	return alias.NewService(aliases, matches, resolutions, tx, log), aliases, matches, resolutions, ots
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestResolve_CreaYReutiliza(t *testing.T) {
	svc, _, _, _, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Resolve(ctx, "juguesal s.a. de c.v.")
	require.NoError(t, err)
	assert.Equal(t, "JUGUESAL S.A. DE C.V", a.NormalizedName)
	assert.Equal(t, "JUGUESAL", a.ShortName)
	assert.Equal(t, 1, a.UsageCount)

	// El mismo nombre con distinta puntuación final reutiliza el alias.
	b, err := svc.Resolve(ctx, "  JUGUESAL S.A. DE C.V.;")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 2, b.UsageCount)
}

func TestResolve_SigueFusionUnSalto(t *testing.T) {
	svc, aliases, _, _, _ := newService(t)
	ctx := context.Background()

	source, err := svc.Resolve(ctx, "JUGUESAL")
	require.NoError(t, err)
	target, err := svc.Resolve(ctx, "JUGUESAL S.A. DE C.V.")
	require.NoError(t, err)

	source.MergedIntoID = &target.ID
	require.NoError(t, aliases.Update(ctx, source))

	got, err := svc.Resolve(ctx, "JUGUESAL")
	require.NoError(t, err)
	assert.Equal(t, target.ID, got.ID, "resolver debe devolver el destino de la fusión")
}

func TestResolve_UsaCacheDeResoluciones(t *testing.T) {
	svc, _, _, _, _ := newService(t)
	ctx := context.Background()

	target, err := svc.Resolve(ctx, "JUGUESAL S.A. DE C.V.")
	require.NoError(t, err)
	require.NoError(t, svc.CacheResolution(ctx, "JUGUESAL", target.ID))

	// El nombre crudo cacheado salta directo al alias resuelto sin crear otro.
	got, err := svc.Resolve(ctx, "JUGUESAL")
	require.NoError(t, err)
	assert.Equal(t, target.ID, got.ID)
}

func TestMerge_ReasignaYAuditada(t *testing.T) {
	svc, aliases, matches, _, ots := newService(t)
	ctx := context.Background()

	source, _ := svc.Resolve(ctx, "JUGUESAL")
	target, _ := svc.Resolve(ctx, "JUGUESAL S.A. DE C.V.")
	ots.ots = []*entity.OT{
		{ID: "ot1", Number: "OT-2025-001", ClientID: source.ID},
		{ID: "ot2", Number: "OT-2025-002", ClientID: source.ID},
	}

	require.NoError(t, svc.Merge(ctx, source.ID, target.ID, "", "admin"))

	merged, _ := aliases.GetByID(ctx, source.ID)
	require.NotNil(t, merged.MergedIntoID)
	assert.Equal(t, target.ID, *merged.MergedIntoID)

	kept, _ := aliases.GetByID(ctx, target.ID)
	assert.Equal(t, 2, kept.UsageCount, "usage_count del origen se acumula")

	for _, ot := range ots.ots {
		assert.Equal(t, target.ID, ot.ClientID)
	}

	a1, a2 := entity.OrderPair(source.ID, target.ID)
	audit, _ := matches.GetByPair(ctx, a1, a2)
	require.NotNil(t, audit)
	assert.Equal(t, entity.MatchStatusApproved, audit.Status)
}

func TestMerge_RechazaCadenas(t *testing.T) {
	svc, aliases, _, _, _ := newService(t)
	ctx := context.Background()

	a, _ := svc.Resolve(ctx, "ALIAS A")
	b, _ := svc.Resolve(ctx, "ALIAS B")
	c, _ := svc.Resolve(ctx, "ALIAS C")

	a.MergedIntoID = &b.ID
	require.NoError(t, aliases.Update(ctx, a))

	// No se permite fusionar hacia un alias ya fusionado (profundidad > 1)...
	err := svc.Merge(ctx, c.ID, a.ID, "", "admin")
	assert.ErrorIs(t, err, domain.ErrStateTransition)
	// ...ni fusionar de nuevo un alias ya fusionado.
	err = svc.Merge(ctx, a.ID, c.ID, "", "admin")
	assert.ErrorIs(t, err, domain.ErrStateTransition)
}

func TestRename_Conflicto(t *testing.T) {
	svc, _, _, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "NAVIERA AZTECA")
	require.NoError(t, err)
	other, err := svc.Resolve(ctx, "COMERCIAL SALVADOR")
	require.NoError(t, err)

	_, err = svc.Rename(ctx, other.ID, "naviera azteca")
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestSuggestPairs_CreaYBarre(t *testing.T) {
	svc, aliases, matches, _, _ := newService(t)
	ctx := context.Background()

	a, _ := svc.Resolve(ctx, "JUGUESAL S.A. DE C.V.")
	b, _ := svc.Resolve(ctx, "JUGUESAL, S.A DE CV")
	_, _ = svc.Resolve(ctx, "COMERCIAL SALVADOR S.A.")

	report, err := svc.SuggestPairs(ctx, 85, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created, "solo el par JUGUESAL supera el umbral")

	a1, a2 := entity.OrderPair(a.ID, b.ID)
	m, _ := matches.GetByPair(ctx, a1, a2)
	require.NotNil(t, m)
	assert.Equal(t, entity.MatchStatusPending, m.Status)
	assert.GreaterOrEqual(t, m.Score, 85.0)

	// Segunda corrida: el par existente se salta (idempotencia).
	report2, err := svc.SuggestPairs(ctx, 85, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, report2.Created)

	// Fusionar un lado deja la pendiente obsoleta; el barrido la auto-rechaza.
	b2, _ := aliases.GetByID(ctx, b.ID)
	b2.MergedIntoID = &a.ID
	require.NoError(t, aliases.Update(ctx, b2))

	report3, err := svc.SuggestPairs(ctx, 85, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, report3.SweptMerged)
	m, _ = matches.GetByPair(ctx, a1, a2)
	assert.Equal(t, entity.MatchStatusRejected, m.Status)
	assert.True(t, strings.Contains(m.ReviewNotes, "auto-rechazada"))
}

func TestShortName_UnicidadGlobal(t *testing.T) {
	svc, _, _, _, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Resolve(ctx, "TRANSPORTES UNIDOS S.A.")
	require.NoError(t, err)
	assert.Equal(t, "TRANSPORTES UNIDOS", a.ShortName)

	// Mismo nombre corto base: el segundo alias recibe sufijo numérico.
	b, err := svc.Resolve(ctx, "TRANSPORTES UNIDOS LTDA.")
	require.NoError(t, err)
	assert.Equal(t, "TRANSPORTES UNIDOS 2", b.ShortName)
}
