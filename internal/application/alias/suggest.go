package alias

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/similarity"
)

// SuggestReport resultado de una regeneración de sugerencias.
type SuggestReport struct {
	Compared     int
	Created      int
	Skipped      int
	SweptMerged  int // pendientes auto-rechazadas por tener un lado fusionado
	SweptRescore int // pendientes auto-rechazadas por recalcular bajo umbral
}

// SuggestPairs regenera las sugerencias de similitud. Antes de comparar se
// barren las pendientes obsoletas: si un lado ya está fusionado, o si el
// algoritmo vigente ya no alcanza el umbral, se auto-rechazan dejando la
// razón recalculada. Las claves (min, max) hacen el upsert idempotente ante
// acciones de admin concurrentes.
func (s *Service) SuggestPairs(ctx context.Context, threshold float64, limitPerAlias int) (*SuggestReport, error) {
	if threshold <= 0 {
		threshold = 85
	}
	if limitPerAlias <= 0 {
		limitPerAlias = 5
	}

	// El contador de obsoletas arranca en cero en cada barrido.
	report := &SuggestReport{}

	active, err := s.aliases.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	activeByID := make(map[string]*entity.ClientAlias, len(active))
	for _, a := range active {
		activeByID[a.ID] = a
	}

	if err := s.sweepStale(ctx, activeByID, threshold, report); err != nil {
		return nil, err
	}

	now := time.Now()
	for i, a := range active {
		createdForAlias := 0
		for j := i + 1; j < len(active); j++ {
			if createdForAlias >= limitPerAlias {
				break
			}
			b := active[j]
			report.Compared++

			a1, a2 := entity.OrderPair(a.ID, b.ID)
			existing, err := s.matches.GetByPair(ctx, a1, a2)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				report.Skipped++
				continue
			}

			res := similarity.Compare(a.OriginalName, b.OriginalName)
			if res.Score < threshold {
				continue
			}
			match := &entity.SimilarityMatch{
				ID:        uuid.New().String(),
				Alias1ID:  a1,
				Alias2ID:  a2,
				Score:     res.Score,
				Method:    "levenshtein_multicapa",
				Status:    entity.MatchStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.matches.Upsert(ctx, match); err != nil {
				return nil, err
			}
			report.Created++
			createdForAlias++
		}
	}

	s.log.Info().
		Int("comparados", report.Compared).
		Int("creados", report.Created).
		Int("barridos", report.SweptMerged+report.SweptRescore).
		Msg("sugerencias de similitud regeneradas")
	return report, nil
}

// sweepStale auto-rechaza pendientes obsoletas antes de regenerar.
func (s *Service) sweepStale(ctx context.Context, activeByID map[string]*entity.ClientAlias, threshold float64, report *SuggestReport) error {
	pending, err := s.matches.ListPendingAll(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, m := range pending {
		a, okA := activeByID[m.Alias1ID]
		b, okB := activeByID[m.Alias2ID]
		if !okA || !okB {
			m.Status = entity.MatchStatusRejected
			m.ReviewNotes = "auto-rechazada: uno de los alias fue fusionado o eliminado"
			m.UpdatedAt = now
			if err := s.matches.Update(ctx, m); err != nil {
				return err
			}
			report.SweptMerged++
			continue
		}
		res := similarity.Compare(a.OriginalName, b.OriginalName)
		if res.Score < threshold {
			m.Status = entity.MatchStatusRejected
			m.ReviewNotes = fmt.Sprintf("auto-rechazada: score recalculado %.1f bajo umbral %.1f", res.Score, threshold)
			m.UpdatedAt = now
			if err := s.matches.Update(ctx, m); err != nil {
				return err
			}
			report.SweptRescore++
		}
	}
	return nil
}

// FindSimilar compara un alias contra todos los activos y devuelve los que
// superan el umbral, sin persistir nada.
func (s *Service) FindSimilar(ctx context.Context, aliasID string, threshold float64) ([]SimilarCandidate, error) {
	target, err := s.aliases.GetByID(ctx, aliasID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("alias %s: %w", aliasID, domain.ErrNotFound)
	}
	active, err := s.aliases.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var out []SimilarCandidate
	for _, a := range active {
		if a.ID == target.ID {
			continue
		}
		res := similarity.Compare(target.OriginalName, a.OriginalName)
		if res.Score >= threshold {
			out = append(out, SimilarCandidate{Alias: a, Result: res})
		}
	}
	return out, nil
}

// SimilarCandidate alias candidato con el desglose del score.
type SimilarCandidate struct {
	Alias  *entity.ClientAlias
	Result similarity.Result
}
