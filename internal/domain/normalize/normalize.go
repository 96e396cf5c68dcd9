// Package normalize contiene las utilidades compartidas de normalización:
// nombres de cliente, contenedores ISO 6346, montos con separadores mixtos
// y fechas en los formatos que llegan en los documentos de los proveedores.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reWhitespace   = regexp.MustCompile(`\s+`)
	reContainer    = regexp.MustCompile(`^[A-Z]{4}[0-9]{7}$`)
	reNonAlnum     = regexp.MustCompile(`[^A-Z0-9]`)
	diacriticsForm = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// ClientName normaliza un nombre de cliente: mayúsculas, espacios internos
// colapsados y puntuación final (`. , ;`) eliminada. Es idempotente.
func ClientName(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = reWhitespace.ReplaceAllString(s, " ")
	s = strings.TrimRight(s, ".,; ")
	return s
}

// Container normaliza un número de contenedor: mayúsculas y solo
// alfanuméricos. Devuelve ok=false si el resultado no tiene la forma
// ISO 6346 (AAAA9999999). El dígito verificador no se valida.
func Container(s string) (string, bool) {
	c := reNonAlnum.ReplaceAllString(strings.ToUpper(s), "")
	if !reContainer.MatchString(c) {
		return "", false
	}
	return c, true
}

// StripDiacritics elimina marcas diacríticas combinantes (Á -> A, ñ -> n).
func StripDiacritics(s string) string {
	out, _, err := transform.String(diacriticsForm, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseText normaliza texto extraído de documentos: sin diacríticos y con
// el espaciado colapsado a espacios simples.
func CollapseText(s string) string {
	return reWhitespace.ReplaceAllString(strings.TrimSpace(StripDiacritics(s)), " ")
}

// Decimal interpreta montos tanto en formato europeo (1.234,56) como
// estadounidense (1,234.56) localizando el separador más a la derecha.
// Un separador único seguido de exactamente tres dígitos es ambiguo
// (¿1,234 es mil doscientos o uno coma dos?) y se rechaza.
func Decimal(s string) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, s)
	if clean == "" || clean == "-" {
		return decimal.Zero, fmt.Errorf("monto vacío: %q", s)
	}

	dots := strings.Count(clean, ".")
	commas := strings.Count(clean, ",")

	switch {
	case dots == 0 && commas == 0:
		// entero puro
	case dots > 0 && commas > 0:
		// El separador más a la derecha es el decimal; el otro es de miles.
		if strings.LastIndex(clean, ".") > strings.LastIndex(clean, ",") {
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		}
	case dots+commas > 1:
		// Varias ocurrencias del mismo separador: solo puede ser de miles.
		clean = strings.ReplaceAll(strings.ReplaceAll(clean, ".", ""), ",", "")
	default:
		sep := "."
		if commas == 1 {
			sep = ","
		}
		idx := strings.Index(clean, sep)
		if len(clean)-idx-1 == 3 {
			return decimal.Zero, fmt.Errorf("monto ambiguo (separador con tres dígitos): %q", s)
		}
		if sep == "," {
			clean = strings.Replace(clean, ",", ".", 1)
		}
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("monto inválido %q: %w", s, err)
	}
	return d, nil
}

// Layouts de fecha aceptados, en orden de prueba.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02/Jan/2006",
	"2/Jan/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Date interpreta una fecha en los formatos conocidos (meses en inglés,
// insensible a mayúsculas). Devuelve solo la fecha (medianoche UTC).
func Date(s string) (time.Time, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, fmt.Errorf("fecha vacía")
	}
	candidate := titleCaseMonths(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha no reconocida: %q", s)
}

// titleCaseMonths capitaliza los grupos alfabéticos (jan -> Jan, DEC -> Dec)
// para que time.Parse acepte meses escritos en cualquier caja.
func titleCaseMonths(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
