package parser

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

const sampleDTE = `{
  "identificacion": {
    "numeroControl": "DTE-03-M001P001-000000000000158",
    "codigoGeneracion": "A1B2C3D4-0000-0000-0000-000000000000",
    "fecEmi": "2025-03-15"
  },
  "emisor": {
    "nit": "06142509901021",
    "nombre": "Naviera del Pacífico, S.A. de C.V.",
    "nrc": "123456-7"
  },
  "resumen": {
    "totalPagar": 1540.75
  },
  "cuerpoDocumento": [
    {"descripcion": "Flete marítimo OT-2025-001 contenedor MSCU1234567"},
    {"descripcion": "Recargo BL HLCU1234567890"}
  ],
  "extension": {
    "observaciones": "Aplicar a OT-2025-001"
  }
}`

func TestParseDTE(t *testing.T) {
	doc, err := ParseDTE([]byte(sampleDTE))
	require.NoError(t, err)

	assert.Equal(t, "DTE-03-M001P001-000000000000158", doc.InvoiceNumber)
	require.NotNil(t, doc.IssueDate)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), *doc.IssueDate)
	assert.True(t, doc.AmountOK)
	assert.True(t, doc.Amount.Equal(decimal.RequireFromString("1540.75")))
	assert.Equal(t, "06142509901021", doc.ProviderTaxID)
	assert.Equal(t, "NAVIERA DEL PACÍFICO, S.A. DE C.V", doc.ProviderName)
	assert.InDelta(t, 1.0, doc.Confidence, 0.001)

	kinds := make(map[string][]string)
	for _, r := range doc.References {
		kinds[r.Kind] = append(kinds[r.Kind], r.Value)
	}
	assert.Equal(t, []string{"OT-2025-001"}, kinds[entity.RefKindOT], "la OT repetida se deduplica")
	assert.Equal(t, []string{"MSCU1234567"}, kinds[entity.RefKindContainer])
	assert.Equal(t, []string{"HLCU1234567890"}, kinds[entity.RefKindMBL])
}

func TestParseDTE_RutasAlternativas(t *testing.T) {
	// Sin numeroControl el código de generación toma su lugar.
	doc, err := ParseDTE([]byte(`{
	  "identificacion": {"codigoGeneracion": "ABC-123", "fecEmi": "2025-01-10"},
	  "emisor": {"nombre": "Proveedor X"},
	  "resumen": {"montoTotalOperacion": 200}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "ABC-123", doc.InvoiceNumber)
	assert.True(t, doc.Amount.Equal(decimal.NewFromInt(200)))
	assert.InDelta(t, 0.8, doc.Confidence, 0.001, "falta el NIT del emisor")
}

func TestParseDTE_JSONInvalido(t *testing.T) {
	_, err := ParseDTE([]byte("no es json"))
	assert.Error(t, err)
}
