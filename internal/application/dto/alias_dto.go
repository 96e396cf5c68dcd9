package dto

import (
	"time"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// CreateAliasRequest entrada para crear un alias de cliente.
type CreateAliasRequest struct {
	Name                     string  `json:"name" validate:"required"`
	CountryTaxType           string  `json:"country_tax_type"`
	TaxID                    string  `json:"tax_id"`
	SecondaryTaxID           string  `json:"secondary_tax_id"`
	AppliesVATWithholding    bool    `json:"applies_vat_withholding"`
	AppliesIncomeWithholding bool    `json:"applies_income_withholding"`
	IncomeWithholdingPct     float64 `json:"income_withholding_pct"`
	AcceptsFiscalCredit      bool    `json:"accepts_fiscal_credit"`
}

// UpdateAliasRequest entrada para actualizar atributos fiscales del alias.
type UpdateAliasRequest struct {
	CountryTaxType           *string  `json:"country_tax_type"`
	TaxID                    *string  `json:"tax_id"`
	SecondaryTaxID           *string  `json:"secondary_tax_id"`
	AppliesVATWithholding    *bool    `json:"applies_vat_withholding"`
	AppliesIncomeWithholding *bool    `json:"applies_income_withholding"`
	IncomeWithholdingPct     *float64 `json:"income_withholding_pct"`
	AcceptsFiscalCredit      *bool    `json:"accepts_fiscal_credit"`
}

// MergeAliasRequest fusión de un alias origen en uno destino.
type MergeAliasRequest struct {
	SourceID  string `json:"source_id" validate:"required"`
	TargetID  string `json:"target_id" validate:"required"`
	FinalName string `json:"final_name"`
}

// RenameAliasRequest renombrado de un alias.
type RenameAliasRequest struct {
	Name string `json:"name" validate:"required"`
}

// BulkMergeRequest fusiona varios alias fuente en un mismo destino.
type BulkMergeRequest struct {
	TargetID  string   `json:"target_id"`
	SourceIDs []string `json:"source_ids"`
	// FinalName nombre definitivo del destino; vacío conserva el actual.
	FinalName string `json:"final_name"`
}

// BulkAliasRequest creación masiva de alias desde nombres crudos.
type BulkAliasRequest struct {
	Names []string `json:"names"`
	// FromInvoices toma los nombres de proveedor distintos observados en las
	// facturas de costo en lugar de la lista.
	FromInvoices bool `json:"from_invoices"`
}

// ReviewMatchRequest decisión sobre una sugerencia de similitud.
type ReviewMatchRequest struct {
	Notes string `json:"notes"`
}

// SuggestRequest parámetros del regenerador de sugerencias.
type SuggestRequest struct {
	Threshold     float64 `json:"threshold"`
	LimitPerAlias int     `json:"limit_per_alias"`
}

// AliasResponse salida de un alias de cliente.
type AliasResponse struct {
	ID                       string     `json:"id"`
	OriginalName             string     `json:"original_name"`
	NormalizedName           string     `json:"normalized_name"`
	ShortName                string     `json:"short_name"`
	CountryTaxType           string     `json:"country_tax_type,omitempty"`
	TaxID                    string     `json:"tax_id,omitempty"`
	SecondaryTaxID           string     `json:"secondary_tax_id,omitempty"`
	AppliesVATWithholding    bool       `json:"applies_vat_withholding"`
	AppliesIncomeWithholding bool       `json:"applies_income_withholding"`
	IncomeWithholdingPct     float64    `json:"income_withholding_pct"`
	AcceptsFiscalCredit      bool       `json:"accepts_fiscal_credit"`
	MergedIntoID             *string    `json:"merged_into_id,omitempty"`
	Verified                 bool       `json:"verified"`
	UsageCount               int        `json:"usage_count"`
	DeletedAt                *time.Time `json:"deleted_at,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// AliasListResponse lista paginada de alias.
type AliasListResponse struct {
	Items []AliasResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// AliasStatsResponse agregados del panel de alias.
type AliasStatsResponse struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
	Merged   int `json:"merged"`
	Pending  int `json:"pending"`
}

// SimilarityMatchResponse sugerencia de similitud entre dos alias.
type SimilarityMatchResponse struct {
	ID          string    `json:"id"`
	Alias1ID    string    `json:"alias_1_id"`
	Alias2ID    string    `json:"alias_2_id"`
	Score       float64   `json:"score"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	ReviewerID  *string   `json:"reviewer_id,omitempty"`
	ReviewNotes string    `json:"review_notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SuggestReportResponse resultado de una regeneración de sugerencias.
type SuggestReportResponse struct {
	Compared     int `json:"compared"`
	Created      int `json:"created"`
	Skipped      int `json:"skipped"`
	SweptMerged  int `json:"swept_merged"`
	SweptRescore int `json:"swept_rescore"`
}

// FromAlias mapea la entidad a su respuesta.
func FromAlias(a *entity.ClientAlias) AliasResponse {
	return AliasResponse{
		ID:                       a.ID,
		OriginalName:             a.OriginalName,
		NormalizedName:           a.NormalizedName,
		ShortName:                a.ShortName,
		CountryTaxType:           a.CountryTaxType,
		TaxID:                    a.TaxID,
		SecondaryTaxID:           a.SecondaryTaxID,
		AppliesVATWithholding:    a.AppliesVATWithholding,
		AppliesIncomeWithholding: a.AppliesIncomeWithholding,
		IncomeWithholdingPct:     a.IncomeWithholdingPct,
		AcceptsFiscalCredit:      a.AcceptsFiscalCredit,
		MergedIntoID:             a.MergedIntoID,
		Verified:                 a.Verified,
		UsageCount:               a.UsageCount,
		DeletedAt:                a.DeletedAt,
		CreatedAt:                a.CreatedAt,
		UpdatedAt:                a.UpdatedAt,
	}
}

// FromSimilarityMatch mapea la entidad a su respuesta.
func FromSimilarityMatch(m *entity.SimilarityMatch) SimilarityMatchResponse {
	return SimilarityMatchResponse{
		ID:          m.ID,
		Alias1ID:    m.Alias1ID,
		Alias2ID:    m.Alias2ID,
		Score:       m.Score,
		Method:      m.Method,
		Status:      m.Status,
		ReviewerID:  m.ReviewerID,
		ReviewNotes: m.ReviewNotes,
		CreatedAt:   m.CreatedAt,
	}
}
