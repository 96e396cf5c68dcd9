package similarity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logistica-sv/freight-backoffice/internal/domain/similarity"
)

// Mismo nombre comercial pero forma legal completa vs simple: entidades
// distintas, el score debe quedar por debajo de todo umbral de sugerencia.
func TestCompare_EntidadesLegalesDistintas(t *testing.T) {
	res := similarity.Compare("ALMACENES SIMAN, S.A. DE C.V.", "ALMACENES SIMAN, S.A.")

	assert.Less(t, res.Score, 30.0)
	assert.Equal(t, similarity.ConfidenceVeryLow, res.Confidence)
	assert.Equal(t, similarity.ActionSkip, res.Action)
	assert.Contains(t, res.Details.Notes[0], "entidades legales distintas")
}

// Diferencias de puntuación en el sufijo no cambian la identidad.
func TestCompare_SoloPuntuacion(t *testing.T) {
	res := similarity.Compare("JUGUESAL S.A. DE C.V.", "JUGUESAL S.A DE CV")

	assert.GreaterOrEqual(t, res.Score, 95.0)
	assert.Equal(t, similarity.ConfidenceHigh, res.Confidence)
	assert.Equal(t, similarity.ActionAutoMerge, res.Action)
}

func TestCompare_Identicos(t *testing.T) {
	res := similarity.Compare("TRANSPORTES MARITIMOS UNIDOS S.A.", "TRANSPORTES MARITIMOS UNIDOS S.A.")
	assert.Equal(t, 100.0, res.Score)
}

// Tipos de sociedad distintos con forma completa y tokens idénticos: variante
// probable de captura, el score se garantiza en al menos 85.
func TestCompare_TipoSociedadDistinto(t *testing.T) {
	res := similarity.Compare("OPERADORA DEL PACIFICO S.A. DE C.V.", "OPERADORA DEL PACIFICO LTDA. DE C.V.")
	assert.GreaterOrEqual(t, res.Score, 85.0)
}

func TestCompare_SinTokensComunes(t *testing.T) {
	res := similarity.Compare("NAVIERA AZTECA S.A.", "COMERCIAL SALVADOR S.A.")
	assert.Less(t, res.Score, 75.0)
	assert.Equal(t, similarity.ActionSkip, res.Action)
}

func TestCompare_LongitudesDispares(t *testing.T) {
	res := similarity.Compare("SIMAN", "ALMACENES SIMAN COMERCIALIZADORA INTERNACIONAL DE ORIENTE")
	assert.Less(t, res.Score, 85.0)
}

func TestExtractLegalSuffix(t *testing.T) {
	cases := []struct {
		in       string
		business string
		suffix   string
		kind     string
	}{
		{"JUGUESAL S.A. DE C.V.", "JUGUESAL", "S.A. DE C.V.", similarity.SuffixCompleteCV},
		{"JUGUESAL S.A DE CV", "JUGUESAL", "S.A. DE C.V.", similarity.SuffixCompleteCV},
		{"ALMACENES SIMAN, S.A.", "ALMACENES SIMAN", "S.A.", similarity.SuffixSimple},
		{"ACME CORP", "ACME", "CORP", similarity.SuffixSimple},
		{"FERRETERIA EL MARTILLO", "FERRETERIA EL MARTILLO", "", similarity.SuffixNone},
		{"CONSTRUCTORA LTDA. DE C.V.", "CONSTRUCTORA", "LTDA. DE C.V.", similarity.SuffixCompleteCV},
	}
	for _, c := range cases {
		business, suffix, kind, _ := similarity.ExtractLegalSuffix(c.in)
		assert.Equal(t, c.business, business, "business de %q", c.in)
		assert.Equal(t, c.suffix, suffix, "suffix de %q", c.in)
		assert.Equal(t, c.kind, kind, "kind de %q", c.in)
	}
}
