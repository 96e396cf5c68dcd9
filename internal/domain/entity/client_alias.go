package entity

import "time"

// Tipos de contribuyente (clasificación fiscal del cliente).
const (
	TaxTypeLarge        = "large"
	TaxTypeNormal       = "normal"
	TaxTypeSmall        = "small"
	TaxTypeSimplified   = "simplified"
	TaxTypeNonTaxpayer  = "non_taxpayer"
)

// ClientAlias una identidad de cliente. Los nombres crudos de distintas
// fuentes (parser, excel, captura manual) convergen aquí vía normalized_name.
// merged_into forma un bosque de profundidad <= 1: un alias fusionado no
// puede recibir fusiones.
type ClientAlias struct {
	ID                      string
	OriginalName            string
	NormalizedName          string // derivado: mayúsculas, espacios colapsados, puntuación final fuera
	ShortName               string // derivado, único global entre alias activos
	CountryTaxType          string
	TaxID                   string // NIT
	SecondaryTaxID          string // NRC
	AppliesVATWithholding   bool
	AppliesIncomeWithholding bool
	IncomeWithholdingPct    float64
	AcceptsFiscalCredit     bool
	MergedIntoID            *string
	Verified                bool
	UsageCount              int
	DeletedAt               *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// IsMerged indica si el alias ya fue absorbido por otro.
func (a *ClientAlias) IsMerged() bool {
	return a.MergedIntoID != nil
}
