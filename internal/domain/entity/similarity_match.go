package entity

import "time"

// Estados de una sugerencia de similitud.
const (
	MatchStatusPending  = "pending"
	MatchStatusApproved = "approved"
	MatchStatusRejected = "rejected"
	MatchStatusIgnored  = "ignored"
)

// SimilarityMatch sugerencia de que dos alias podrían ser la misma entidad.
// El par (alias_1, alias_2) es único sin importar el orden; se persiste con
// los IDs ordenados (min, max) para que el upsert sea idempotente.
type SimilarityMatch struct {
	ID          string
	Alias1ID    string
	Alias2ID    string
	Score       float64 // 0..100
	Method      string
	Status      string
	ReviewerID  *string
	ReviewNotes string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderPair devuelve el par ordenado (min, max) para la clave única.
func OrderPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// ClientResolution normalización manual cacheada: próximas ingestas del mismo
// nombre crudo evitan el diálogo de conflicto.
type ClientResolution struct {
	ID             string
	OriginalName   string
	NormalizedName string // derivado de OriginalName
	ResolvedToID   string
	CreatedAt      time.Time
}
