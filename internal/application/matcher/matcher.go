// Package matcher asigna documentos parseados a una OT mediante cinco
// niveles de coincidencia con confianza decreciente.
package matcher

import (
	"context"
	"time"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

// Métodos de coincidencia, del más al menos confiable.
const (
	MethodOTNumber     = "ot_number"     // nivel 1: número exacto (case-insensitive)
	MethodMBLContainer = "mbl_container" // nivel 2: MBL + contenedor
	MethodMBL          = "mbl"           // nivel 3: solo MBL
	MethodContainer    = "container"     // nivel 4: solo contenedor
	MethodProviderDate = "provider_date" // nivel 5: proveedor + fecha +-7 días
	MethodNoMatch      = "no_match"
)

// Confianza por nivel.
var confidences = map[string]float64{
	MethodOTNumber:     0.95,
	MethodMBLContainer: 0.90,
	MethodMBL:          0.75,
	MethodContainer:    0.60,
	MethodProviderDate: 0.40,
	MethodNoMatch:      0,
}

// ReviewThreshold bajo esta confianza la factura queda en revisión.
const ReviewThreshold = 0.7

// providerDateWindowDays ventana del nivel 5.
const providerDateWindowDays = 7

// Result OT seleccionada (o ninguna) con su método y confianza.
type Result struct {
	OT         *entity.OT
	Method     string
	Confidence float64
}

// NeedsReview indica si la confianza obliga revisión manual.
func (r Result) NeedsReview() bool {
	return r.Confidence < ReviewThreshold
}

// Matcher resuelve referencias contra el índice de OTs.
type Matcher struct {
	ots repository.OTRepository
}

// New construye el matcher.
func New(ots repository.OTRepository) *Matcher {
	return &Matcher{ots: ots}
}

// Match recorre los cinco niveles y devuelve a lo sumo una OT. El desempate
// dentro de cada nivel lo resuelve el repositorio (primer id ascendente).
func (m *Matcher) Match(ctx context.Context, refs []entity.DetectedRef, providerName string, issueDate *time.Time) (Result, error) {
	var otRefs, mbls, containers []string
	for _, r := range refs {
		switch r.Kind {
		case entity.RefKindOT:
			otRefs = append(otRefs, r.Value)
		case entity.RefKindMBL:
			mbls = append(mbls, r.Value)
		case entity.RefKindContainer:
			containers = append(containers, r.Value)
		}
	}

	// Nivel 1: número de OT exacto.
	for _, ref := range otRefs {
		ot, err := m.ots.FindByNumberFold(ctx, ref)
		if err != nil {
			return Result{}, err
		}
		if ot != nil {
			return result(ot, MethodOTNumber), nil
		}
	}

	// Nivel 2: MBL y contenedor coinciden en la misma OT.
	for _, mbl := range mbls {
		for _, c := range containers {
			ot, err := m.ots.FindByMBLAndContainer(ctx, mbl, c)
			if err != nil {
				return Result{}, err
			}
			if ot != nil {
				return result(ot, MethodMBLContainer), nil
			}
		}
	}

	// Nivel 3: solo MBL.
	for _, mbl := range mbls {
		ot, err := m.ots.FindByMBL(ctx, mbl)
		if err != nil {
			return Result{}, err
		}
		if ot != nil {
			return result(ot, MethodMBL), nil
		}
	}

	// Nivel 4: solo contenedor.
	for _, c := range containers {
		ot, err := m.ots.FindByContainer(ctx, c)
		if err != nil {
			return Result{}, err
		}
		if ot != nil {
			return result(ot, MethodContainer), nil
		}
	}

	// Nivel 5: proveedor + fecha dentro de la ventana.
	if providerName != "" && issueDate != nil {
		ot, err := m.ots.FindByProviderAndDate(ctx, providerName, *issueDate, providerDateWindowDays)
		if err != nil {
			return Result{}, err
		}
		if ot != nil {
			return result(ot, MethodProviderDate), nil
		}
	}

	return Result{Method: MethodNoMatch, Confidence: 0}, nil
}

func result(ot *entity.OT, method string) Result {
	return Result{OT: ot, Method: method, Confidence: confidences[method]}
}
