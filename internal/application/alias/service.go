// Package alias resuelve identidades de cliente: nombres crudos de cualquier
// fuente convergen en un ClientAlias, con cache de resoluciones manuales,
// sugerencias de similitud y fusiones auditadas.
package alias

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/normalize"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

// TxRunner ejecuta la fusión dentro de una transacción con repos atados a la tx.
type TxRunner interface {
	RunAlias(ctx context.Context, fn func(
		aliases repository.ClientAliasRepository,
		ots repository.OTRepository,
		matches repository.SimilarityMatchRepository,
	) error) error
}

// Service casos de uso de alias de cliente.
type Service struct {
	aliases     repository.ClientAliasRepository
	matches     repository.SimilarityMatchRepository
	resolutions repository.ClientResolutionRepository
	txRunner    TxRunner
	log         *logger.Logger
}

// NewService construye el servicio.
func NewService(
	aliases repository.ClientAliasRepository,
	matches repository.SimilarityMatchRepository,
	resolutions repository.ClientResolutionRepository,
	txRunner TxRunner,
	log *logger.Logger,
) *Service {
	return &Service{aliases: aliases, matches: matches, resolutions: resolutions, txRunner: txRunner, log: log}
}

// Resolve devuelve el alias efectivo para un nombre crudo. Primero consulta
// el cache de resoluciones manuales; si no hay, upsert por nombre
// normalizado. Siempre sigue merged_into un salto (el bosque tiene
// profundidad máxima 1).
func (s *Service) Resolve(ctx context.Context, rawName string) (*entity.ClientAlias, error) {
	normalized := normalize.ClientName(rawName)
	if normalized == "" {
		return nil, fmt.Errorf("nombre de cliente vacío: %w", domain.ErrValidation)
	}

	if res, err := s.resolutions.GetByNormalizedName(ctx, normalized); err != nil {
		return nil, err
	} else if res != nil {
		target, err := s.aliases.GetByID(ctx, res.ResolvedToID)
		if err != nil {
			return nil, err
		}
		if target != nil {
			return s.effective(ctx, target)
		}
		// Resolución huérfana: se ignora y se sigue el camino normal.
	}

	existing, err := s.aliases.GetByNormalizedName(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.UsageCount++
		if err := s.aliases.Update(ctx, existing); err != nil {
			return nil, err
		}
		return s.effective(ctx, existing)
	}

	short, err := uniqueShortName(ctx, s.aliases, rawName, "")
	if err != nil {
		return nil, err
	}
	now := time.Now()
	created := &entity.ClientAlias{
		ID:             uuid.New().String(),
		OriginalName:   rawName,
		NormalizedName: normalized,
		ShortName:      short,
		CountryTaxType: entity.TaxTypeNormal,
		UsageCount:     1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.aliases.Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// effective sigue merged_into un salto.
func (s *Service) effective(ctx context.Context, a *entity.ClientAlias) (*entity.ClientAlias, error) {
	if a.MergedIntoID == nil {
		return a, nil
	}
	target, err := s.aliases.GetByID(ctx, *a.MergedIntoID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return a, nil
	}
	return target, nil
}

// Merge fusiona source en target dentro de una transacción: reasigna las OTs,
// marca merged_into, acumula usage_count, renombra target si se pide y deja
// una SimilarityMatch aprobada como rastro de auditoría.
func (s *Service) Merge(ctx context.Context, sourceID, targetID, finalName, reviewerID string) error {
	if sourceID == targetID {
		return fmt.Errorf("un alias no puede fusionarse consigo mismo: %w", domain.ErrValidation)
	}
	source, err := s.aliases.GetByID(ctx, sourceID)
	if err != nil {
		return err
	}
	target, err := s.aliases.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if source == nil || target == nil {
		return domain.ErrNotFound
	}
	if source.IsMerged() || target.IsMerged() {
		return fmt.Errorf("alias ya fusionado: %w", domain.ErrStateTransition)
	}

	return s.txRunner.RunAlias(ctx, func(
		aliases repository.ClientAliasRepository,
		ots repository.OTRepository,
		matches repository.SimilarityMatchRepository,
	) error {
		moved, err := ots.ReassignClient(ctx, source.ID, target.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		source.MergedIntoID = &target.ID
		source.UpdatedAt = now
		if err := aliases.Update(ctx, source); err != nil {
			return err
		}

		target.UsageCount += source.UsageCount
		if finalName != "" {
			target.OriginalName = finalName
			target.NormalizedName = normalize.ClientName(finalName)
			short, err := uniqueShortName(ctx, aliases, finalName, target.ID)
			if err != nil {
				return err
			}
			target.ShortName = short
		}
		target.UpdatedAt = now
		if err := aliases.Update(ctx, target); err != nil {
			return err
		}

		// Rastro de auditoría: la fusión queda como sugerencia aprobada
		// aunque nunca haya existido una pendiente.
		a1, a2 := entity.OrderPair(source.ID, target.ID)
		audit := &entity.SimilarityMatch{
			ID:          uuid.New().String(),
			Alias1ID:    a1,
			Alias2ID:    a2,
			Score:       100,
			Method:      "manual_merge",
			Status:      entity.MatchStatusApproved,
			ReviewerID:  strPtrOrNil(reviewerID),
			ReviewNotes: fmt.Sprintf("fusión manual; %d OTs reasignadas", moved),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := matches.Upsert(ctx, audit); err != nil {
			return err
		}

		s.log.Info().
			Str("source", source.ID).
			Str("target", target.ID).
			Int("ots_reasignadas", moved).
			Msg("alias fusionado")
		return nil
	})
}

// Rename cambia el nombre de un alias. Si otro alias activo ya usa el mismo
// nombre normalizado se devuelve conflicto y el caller decide (fusionar o
// abortar).
func (s *Service) Rename(ctx context.Context, aliasID, newName string) (*entity.ClientAlias, error) {
	a, err := s.aliases.GetByID(ctx, aliasID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrNotFound
	}

	normalized := normalize.ClientName(newName)
	if normalized == "" {
		return nil, fmt.Errorf("nombre vacío: %w", domain.ErrValidation)
	}
	if other, err := s.aliases.GetByNormalizedName(ctx, normalized); err != nil {
		return nil, err
	} else if other != nil && other.ID != a.ID {
		return nil, fmt.Errorf("ya existe un alias con ese nombre: %w", domain.ErrDuplicate)
	}

	a.OriginalName = newName
	a.NormalizedName = normalized
	short, err := uniqueShortName(ctx, s.aliases, newName, a.ID)
	if err != nil {
		return nil, err
	}
	a.ShortName = short
	a.UpdatedAt = time.Now()
	if err := s.aliases.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RegenerateShortName recalcula el nombre corto del alias.
func (s *Service) RegenerateShortName(ctx context.Context, aliasID string) (*entity.ClientAlias, error) {
	a, err := s.aliases.GetByID(ctx, aliasID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrNotFound
	}
	short, err := uniqueShortName(ctx, s.aliases, a.OriginalName, a.ID)
	if err != nil {
		return nil, err
	}
	a.ShortName = short
	a.UpdatedAt = time.Now()
	if err := s.aliases.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Verify marca el alias como verificado por un humano.
func (s *Service) Verify(ctx context.Context, aliasID string) error {
	a, err := s.aliases.GetByID(ctx, aliasID)
	if err != nil {
		return err
	}
	if a == nil {
		return domain.ErrNotFound
	}
	a.Verified = true
	a.UpdatedAt = time.Now()
	return s.aliases.Update(ctx, a)
}

// RejectMatch rechaza una sugerencia pendiente.
func (s *Service) RejectMatch(ctx context.Context, matchID, reviewerID, notes string) error {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if m == nil {
		return domain.ErrNotFound
	}
	if m.Status != entity.MatchStatusPending {
		return fmt.Errorf("la sugerencia ya fue revisada: %w", domain.ErrStateTransition)
	}
	m.Status = entity.MatchStatusRejected
	m.ReviewerID = strPtrOrNil(reviewerID)
	m.ReviewNotes = notes
	m.UpdatedAt = time.Now()
	return s.matches.Update(ctx, m)
}

// CacheResolution registra una normalización manual para futuras ingestas.
func (s *Service) CacheResolution(ctx context.Context, rawName, resolvedToID string) error {
	normalized := normalize.ClientName(rawName)
	if normalized == "" || resolvedToID == "" {
		return domain.ErrValidation
	}
	return s.resolutions.Upsert(ctx, &entity.ClientResolution{
		ID:             uuid.New().String(),
		OriginalName:   rawName,
		NormalizedName: normalized,
		ResolvedToID:   resolvedToID,
		CreatedAt:      time.Now(),
	})
}

// BulkCreateFromNames resuelve una lista de nombres (p. ej. proveedores
// distintos de las facturas) creando los alias que falten.
func (s *Service) BulkCreateFromNames(ctx context.Context, names []string) (created int, err error) {
	for _, name := range names {
		normalized := normalize.ClientName(name)
		if normalized == "" {
			continue
		}
		existing, err := s.aliases.GetByNormalizedName(ctx, normalized)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		if _, err := s.Resolve(ctx, name); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// Stats agrega conteos del panel de alias.
func (s *Service) Stats(ctx context.Context) (*repository.AliasStats, error) {
	return s.aliases.Stats(ctx)
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
