package parser

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

const sampleText = `NAVIERA DEL PACIFICO S.A. DE C.V. NIT: 0614-250990-102-1
FACTURA No. FAC-2025-0042 FECHA: 15/03/2025
REF OT-2025-001 MBL HLCU1234567890 CONTENEDOR MSCU1234567
TOTAL A PAGAR $ 1,540.75`

func TestApplyPatterns_FallbacksGenericos(t *testing.T) {
	doc := ApplyPatterns(sampleText, nil)

	assert.Equal(t, "FAC-2025-0042", doc.InvoiceNumber)
	require.NotNil(t, doc.IssueDate)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), *doc.IssueDate)
	assert.True(t, doc.AmountOK)
	assert.True(t, doc.Amount.Equal(decimal.RequireFromString("1540.75")))
	assert.Equal(t, "0614-250990-102-1", doc.ProviderTaxID)

	kinds := make(map[string]string)
	for _, r := range doc.References {
		kinds[r.Kind] = r.Value
	}
	assert.Equal(t, "OT-2025-001", kinds[entity.RefKindOT])
	assert.Equal(t, "HLCU1234567890", kinds[entity.RefKindMBL])
	assert.Equal(t, "MSCU1234567", kinds[entity.RefKindContainer])
}

// Sin patrón de nombre de proveedor solo se pueblan 4 de 5 campos requeridos.
func TestApplyPatterns_ConfianzaParcial(t *testing.T) {
	doc := ApplyPatterns(sampleText, nil)
	assert.InDelta(t, 0.8, doc.Confidence, 0.001)
}

// El catálogo del proveedor tiene precedencia sobre los fallbacks, en orden
// de prioridad descendente.
func TestApplyPatterns_PrioridadCatalogo(t *testing.T) {
	catalog := []Pattern{
		Modern{TargetField: FieldInvoiceNumber, ValueType: ValueText, Priority: 5, ProviderSpecific: true,
			Regex: regexp.MustCompile(`FAC-(\d{4}-\d{4})`)},
		Modern{TargetField: FieldInvoiceNumber, ValueType: ValueText, Priority: 10, ProviderSpecific: true,
			Regex: regexp.MustCompile(`(FAC-\d{4}-\d{4})`)},
		Modern{TargetField: FieldProviderName, ValueType: ValueText, Priority: 8, ProviderSpecific: true,
			Regex: regexp.MustCompile(`^([A-Z .]+S\.A\. DE C\.V\.)`)},
	}
	doc := ApplyPatterns(sampleText, catalog)

	// Gana el de prioridad 10 (match completo), no el de prioridad 5.
	assert.Equal(t, "FAC-2025-0042", doc.InvoiceNumber)
	assert.Equal(t, "NAVIERA DEL PACIFICO S.A. DE C.V", doc.ProviderName)
	assert.InDelta(t, 1.0, doc.Confidence, 0.001)
}

// Una captura que no cumple el tipo declarado se descarta y el campo queda
// para el fallback genérico.
func TestApplyPatterns_CapturaDeTipoInvalidoCedeAlFallback(t *testing.T) {
	catalog := []Pattern{
		// Captura "No." como fecha: no normaliza, así que no debe ganar el campo.
		Modern{TargetField: FieldIssueDate, ValueType: ValueDate, Priority: 10, ProviderSpecific: true,
			Regex: regexp.MustCompile(`FACTURA (No\.)`)},
		// Captura texto no numérico como monto.
		Modern{TargetField: FieldAmount, ValueType: ValueDecimal, Priority: 10, ProviderSpecific: true,
			Regex: regexp.MustCompile(`(CONTENEDOR)`)},
	}
	doc := ApplyPatterns(sampleText, catalog)

	require.NotNil(t, doc.IssueDate, "la fecha la aporta el fallback")
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), *doc.IssueDate)
	assert.True(t, doc.AmountOK, "el monto lo aporta el fallback")
	assert.True(t, doc.Amount.Equal(decimal.RequireFromString("1540.75")))
}

// Un patrón legado (código INV_NUM) se interpreta igual que uno moderno.
func TestApplyPatterns_PatronLegado(t *testing.T) {
	catalog := []Pattern{
		Legacy{Code: "INV_NUM", Display: "Número de factura", Priority: 7, ProviderSpecific: true,
			Regex: regexp.MustCompile(`FACTURA No\. (\S+)`)},
	}
	doc := ApplyPatterns(sampleText, catalog)
	assert.Equal(t, "FAC-2025-0042", doc.InvoiceNumber)
}

func TestFieldConfidence(t *testing.T) {
	// 0.5 + 0.03*10 + 0.2 (proveedor) + 0.1 (único) + 0.1 (largo 3..50) = 1.0 (clamp)
	assert.InDelta(t, 1.0, fieldConfidence(10, true, 1, "FAC-001"), 0.001)
	// 0.5 + 0 + 0 - 0.1 (más de 3 matches) + 0.1 = 0.5
	assert.InDelta(t, 0.5, fieldConfidence(0, false, 5, "FAC-001"), 0.001)
	// valor de 2 caracteres no suma el bono de longitud
	assert.InDelta(t, 0.6, fieldConfidence(0, false, 1, "AB"), 0.001)
}

func TestFromRow_RegexInvalida(t *testing.T) {
	row := &entity.PatternRow{Kind: entity.PatternKindModern, TargetField: FieldAmount, Regex: `([`}
	assert.Nil(t, FromRow(row))
}

func TestCanonicalOTRef(t *testing.T) {
	assert.Equal(t, "OT-2025-001", canonicalOTRef("ot 2025 001"))
	assert.Equal(t, "OT-2025-001", canonicalOTRef("OT-2025-001"))
}
