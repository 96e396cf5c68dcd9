package alias

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/internal/domain/similarity"
)

// Stop-words del nombre corto: las mismas del comparador más las formas
// legales sueltas que sobreviven a la tokenización.
var shortNameStopWords = map[string]bool{
	"DE": true, "Y": true, "E": true, "DEL": true, "LA": true, "EL": true,
	"LOS": true, "LAS": true, "EN": true, "AND": true,
	"SA": true, "SRL": true, "LTDA": true, "CV": true, "INC": true,
	"CORP": true, "LLC": true, "LTD": true,
}

var (
	reShortDashes  = regexp.MustCompile(`[-_—–]`)
	reShortNonWord = regexp.MustCompile(`[^A-ZÁÉÍÓÚÑ0-9 ]+`)
	reShortSpaces  = regexp.MustCompile(`\s+`)
)

// baseShortName deriva el nombre corto sin garantía de unicidad: mayúsculas,
// guiones a espacios, sin runs no alfanuméricos, sin stop-words ni sufijos
// legales, primeras 1 a 3 palabras significativas, máximo 50 caracteres.
func baseShortName(name string) string {
	// Quitar primero el sufijo legal completo ("S.A. DE C.V." no deja tokens útiles).
	business, _, _, _ := similarity.ExtractLegalSuffix(name)

	s := strings.ToUpper(business)
	s = reShortDashes.ReplaceAllString(s, " ")
	s = reShortNonWord.ReplaceAllString(s, " ")
	s = reShortSpaces.ReplaceAllString(strings.TrimSpace(s), " ")

	var words []string
	for _, w := range strings.Fields(s) {
		if shortNameStopWords[w] {
			continue
		}
		words = append(words, w)
		if len(words) == 3 {
			break
		}
	}
	if len(words) == 0 {
		words = strings.Fields(s)
		if len(words) > 3 {
			words = words[:3]
		}
	}

	short := strings.Join(words, " ")
	if len(short) > 50 {
		short = strings.TrimSpace(short[:50])
	}
	if short == "" {
		short = "CLIENTE"
	}
	return short
}

// uniqueShortName garantiza unicidad global agregando un sufijo numérico
// (" 2", " 3", ...) cuando el nombre base ya existe en otro alias activo.
func uniqueShortName(ctx context.Context, repo repository.ClientAliasRepository, name, excludeID string) (string, error) {
	base := baseShortName(name)
	candidate := base
	for n := 2; ; n++ {
		exists, err := repo.ShortNameExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		suffix := fmt.Sprintf(" %d", n)
		trimmed := base
		if len(trimmed)+len(suffix) > 50 {
			trimmed = strings.TrimSpace(trimmed[:50-len(suffix)])
		}
		candidate = trimmed + suffix
	}
}
