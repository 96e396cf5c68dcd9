package matcher_test

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logistica-sv/freight-backoffice/internal/application/matcher"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

// fakeOTRepo índice en memoria con la misma semántica de desempate que el
// repositorio real: primer match por id ascendente.
type fakeOTRepo struct {
	repository.OTRepository // métodos no usados en el test entran en pánico
	ots                     []*entity.OT
}

func (f *fakeOTRepo) sorted() []*entity.OT {
	out := append([]*entity.OT(nil), f.ots...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeOTRepo) FindByNumberFold(_ context.Context, number string) (*entity.OT, error) {
	for _, ot := range f.sorted() {
		if strings.EqualFold(ot.Number, number) {
			return ot, nil
		}
	}
	return nil, nil
}

func (f *fakeOTRepo) FindByMBLAndContainer(_ context.Context, mbl, container string) (*entity.OT, error) {
	for _, ot := range f.sorted() {
		if ot.MasterBL == mbl && ot.HasContainer(container) {
			return ot, nil
		}
	}
	return nil, nil
}

func (f *fakeOTRepo) FindByMBL(_ context.Context, mbl string) (*entity.OT, error) {
	for _, ot := range f.sorted() {
		if ot.MasterBL == mbl {
			return ot, nil
		}
	}
	return nil, nil
}

func (f *fakeOTRepo) FindByContainer(_ context.Context, container string) (*entity.OT, error) {
	for _, ot := range f.sorted() {
		if ot.HasContainer(container) {
			return ot, nil
		}
	}
	return nil, nil
}

func (f *fakeOTRepo) FindByProviderAndDate(_ context.Context, provider string, date time.Time, windowDays int) (*entity.OT, error) {
	for _, ot := range f.sorted() {
		if !strings.Contains(strings.ToUpper(ot.ProviderName), strings.ToUpper(provider)) {
			continue
		}
		for _, candidate := range []*time.Time{ot.ETD, &ot.CreatedAt} {
			if candidate == nil {
				continue
			}
			diff := date.Sub(*candidate)
			if diff < 0 {
				diff = -diff
			}
			if diff <= time.Duration(windowDays)*24*time.Hour {
				return ot, nil
			}
		}
	}
	return nil, nil
}

func ref(kind, value string) entity.DetectedRef {
	return entity.DetectedRef{Kind: kind, Value: value}
}

func TestMatch_Nivel1_NumeroOT(t *testing.T) {
	repo := &fakeOTRepo{ots: []*entity.OT{
		{ID: "1", Number: "OT-2025-001"},
		{ID: "2", Number: "OT-2025-002"},
	}}
	m := matcher.New(repo)

	res, err := m.Match(context.Background(), []entity.DetectedRef{ref(entity.RefKindOT, "ot-2025-001")}, "", nil)
	require.NoError(t, err)
	require.NotNil(t, res.OT)
	assert.Equal(t, "OT-2025-001", res.OT.Number)
	assert.Equal(t, matcher.MethodOTNumber, res.Method)
	assert.Equal(t, 0.95, res.Confidence)
	assert.False(t, res.NeedsReview())
}

func TestMatch_Nivel2_MBLMasContenedor(t *testing.T) {
	repo := &fakeOTRepo{ots: []*entity.OT{
		{ID: "1", Number: "OT-A", MasterBL: "HLCU1234567890"},
		{ID: "2", Number: "OT-B", MasterBL: "HLCU1234567890", Containers: []string{"MSCU1234567"}},
	}}
	m := matcher.New(repo)

	res, err := m.Match(context.Background(), []entity.DetectedRef{
		ref(entity.RefKindMBL, "HLCU1234567890"),
		ref(entity.RefKindContainer, "MSCU1234567"),
	}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "OT-B", res.OT.Number)
	assert.Equal(t, matcher.MethodMBLContainer, res.Method)
	assert.Equal(t, 0.90, res.Confidence)
}

func TestMatch_Nivel3_SoloMBL(t *testing.T) {
	repo := &fakeOTRepo{ots: []*entity.OT{{ID: "1", Number: "OT-A", MasterBL: "HLCU1234567890"}}}
	m := matcher.New(repo)

	res, err := m.Match(context.Background(), []entity.DetectedRef{ref(entity.RefKindMBL, "HLCU1234567890")}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, matcher.MethodMBL, res.Method)
	assert.Equal(t, 0.75, res.Confidence)
	assert.False(t, res.NeedsReview())
}

// Caso límite de la especificación de pruebas: cuatro OTs comparten el
// contenedor; gana la de menor id con confianza 0.60 y revisión requerida.
func TestMatch_Nivel4_ContenedorRepetido(t *testing.T) {
	repo := &fakeOTRepo{ots: []*entity.OT{
		{ID: "4", Number: "OT-D", Containers: []string{"MSCU1234567"}},
		{ID: "2", Number: "OT-B", Containers: []string{"MSCU1234567"}},
		{ID: "1", Number: "OT-A", Containers: []string{"MSCU1234567"}},
		{ID: "3", Number: "OT-C", Containers: []string{"MSCU1234567"}},
	}}
	m := matcher.New(repo)

	res, err := m.Match(context.Background(), []entity.DetectedRef{ref(entity.RefKindContainer, "MSCU1234567")}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "OT-A", res.OT.Number)
	assert.Equal(t, 0.60, res.Confidence)
	assert.True(t, res.NeedsReview())
}

func TestMatch_Nivel5_ProveedorYFecha(t *testing.T) {
	etd := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	repo := &fakeOTRepo{ots: []*entity.OT{
		{ID: "1", Number: "OT-A", ProviderName: "NAVIERA DEL PACIFICO S.A.", ETD: &etd},
	}}
	m := matcher.New(repo)

	issue := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	res, err := m.Match(context.Background(), nil, "NAVIERA DEL PACIFICO", &issue)
	require.NoError(t, err)
	require.NotNil(t, res.OT)
	assert.Equal(t, matcher.MethodProviderDate, res.Method)
	assert.Equal(t, 0.40, res.Confidence)
	assert.True(t, res.NeedsReview())
}

func TestMatch_SinCandidata(t *testing.T) {
	m := matcher.New(&fakeOTRepo{})
	res, err := m.Match(context.Background(), []entity.DetectedRef{ref(entity.RefKindContainer, "XXXU0000000")}, "", nil)
	require.NoError(t, err)
	assert.Nil(t, res.OT)
	assert.Equal(t, matcher.MethodNoMatch, res.Method)
	assert.Equal(t, 0.0, res.Confidence)
	assert.True(t, res.NeedsReview())
}

// Un nivel superior siempre gana aunque niveles inferiores también coincidan.
func TestMatch_PrecedenciaDeNiveles(t *testing.T) {
	repo := &fakeOTRepo{ots: []*entity.OT{
		{ID: "1", Number: "OT-OTRA", Containers: []string{"MSCU1234567"}},
		{ID: "2", Number: "OT-2025-009"},
	}}
	m := matcher.New(repo)

	res, err := m.Match(context.Background(), []entity.DetectedRef{
		ref(entity.RefKindContainer, "MSCU1234567"),
		ref(entity.RefKindOT, "OT-2025-009"),
	}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "OT-2025-009", res.OT.Number)
	assert.Equal(t, matcher.MethodOTNumber, res.Method)
}
