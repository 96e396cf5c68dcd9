package normalize_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logistica-sv/freight-backoffice/internal/domain/normalize"
)

func TestClientName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  juguesal   s.a. de c.v. ", "JUGUESAL S.A. DE C.V"},
		{"Almacenes Siman, S.A.;", "ALMACENES SIMAN, S.A"},
		{"TRANSPORTES\tDEL  SUR", "TRANSPORTES DEL SUR"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, normalize.ClientName(c.in), "entrada %q", c.in)
	}
}

// La normalización debe ser idempotente: aplicarla dos veces no cambia nada.
func TestClientName_Idempotente(t *testing.T) {
	inputs := []string{"juguesal s.a. de c.v.", "  A  B  C ;", "YA NORMALIZADO"}
	for _, in := range inputs {
		once := normalize.ClientName(in)
		assert.Equal(t, once, normalize.ClientName(once), "entrada %q", in)
	}
}

func TestContainer(t *testing.T) {
	c, ok := normalize.Container("mscu 123-4567")
	require.True(t, ok)
	assert.Equal(t, "MSCU1234567", c)

	_, ok = normalize.Container("MSCU12345")
	assert.False(t, ok, "dígitos insuficientes")

	_, ok = normalize.Container("12341234567")
	assert.False(t, ok, "prefijo no alfabético")

	_, ok = normalize.Container("")
	assert.False(t, ok)
}

func TestDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1234.56", "1234.56"},
		{"1234,5", "1234.5"},
		{"1.234.567,89", "1234567.89"},
		{"$ 12,345,678.00", "12345678.00"},
		{"1.234.567", "1234567"}, // varios puntos: separador de miles
		{"-500.25", "-500.25"},
		{"1000", "1000"},
	}
	for _, c := range cases {
		got, err := normalize.Decimal(c.in)
		require.NoError(t, err, "entrada %q", c.in)
		assert.True(t, got.Equal(decimal.RequireFromString(c.want)),
			"entrada %q: esperado %s, obtenido %s", c.in, c.want, got)
	}
}

func TestDecimal_Ambiguo(t *testing.T) {
	// Un separador único con tres dígitos detrás no se puede interpretar.
	for _, in := range []string{"1,234", "1.234", "12,345"} {
		_, err := normalize.Decimal(in)
		assert.Error(t, err, "entrada %q debería rechazarse", in)
	}
	_, err := normalize.Decimal("")
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-15", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15/03/2025", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15-03-2025", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2025/03/15", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15/mar/2025", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15/MAR/2025", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2025-03-15T10:22:45Z", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2025-03-15 10:22:45", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := normalize.Date(c.in)
		require.NoError(t, err, "entrada %q", c.in)
		assert.True(t, got.Equal(c.want), "entrada %q: esperado %v, obtenido %v", c.in, c.want, got)
	}

	_, err := normalize.Date("no es fecha")
	assert.Error(t, err)
}

func TestCollapseText(t *testing.T) {
	assert.Equal(t, "FACTURA No 123 CREDITO", normalize.CollapseText("FACTURA  No  123\n CRÉDITO "))
}
