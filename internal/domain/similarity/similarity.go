// Package similarity implementa la comparación difusa de nombres de cliente
// con conciencia de sufijos legales (S.A. DE C.V., LTDA., etc.). Dos razones
// sociales con el mismo nombre comercial pero distinta forma legal son
// entidades distintas y nunca deben sugerirse para fusión automática.
package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/logistica-sv/freight-backoffice/internal/domain/normalize"
)

// Tipos de sufijo legal.
const (
	SuffixNone       = "none"
	SuffixSimple     = "simple"
	SuffixCompleteCV = "complete_cv" // contiene "DE C.V."
)

// Niveles de confianza y acciones recomendadas.
const (
	ConfidenceHigh    = "high"
	ConfidenceMedium  = "medium"
	ConfidenceLow     = "low"
	ConfidenceVeryLow = "very_low"

	ActionAutoMerge = "auto_merge" // se ofrece, nunca se aplica sola
	ActionSuggest   = "suggest"
	ActionReview    = "review"
	ActionSkip      = "skip"
)

// Result resultado de comparar dos nombres.
type Result struct {
	Score      float64 // 0..100
	Confidence string
	Action     string
	Details    Details
}

// Details desglose del cálculo, útil para auditoría de sugerencias.
type Details struct {
	Business1      string
	Business2      string
	Suffix1        string
	Suffix2        string
	SuffixType1    string
	SuffixType2    string
	TokenSortRatio float64
	PartialRatio   float64
	Ratio          float64
	Notes          []string
}

// legalSuffix un patrón de forma legal reconocida. Los patrones se prueban en
// orden (formas compuestas primero) y toleran puntuación omitida: "S.A DE CV"
// cuenta como "S.A. DE C.V.".
type legalSuffix struct {
	re        *regexp.Regexp
	canonical string
	kind      string
	society   string // tipo de sociedad (S.A., S.R.L., LTDA) para comparar variantes
}

var legalSuffixes = []legalSuffix{
	{regexp.MustCompile(`(?i)[\s,]+S\.?\s?A\.?,?\s+DE\s+C\.?\s?V\.?$`), "S.A. DE C.V.", SuffixCompleteCV, "S.A."},
	{regexp.MustCompile(`(?i)[\s,]+S\.?\s?R\.?\s?L\.?,?\s+DE\s+C\.?\s?V\.?$`), "S.R.L. DE C.V.", SuffixCompleteCV, "S.R.L."},
	{regexp.MustCompile(`(?i)[\s,]+LTDA\.?,?\s+DE\s+C\.?\s?V\.?$`), "LTDA. DE C.V.", SuffixCompleteCV, "LTDA."},
	{regexp.MustCompile(`(?i)[\s,]+S\.?\s?A\.?$`), "S.A.", SuffixSimple, "S.A."},
	{regexp.MustCompile(`(?i)[\s,]+LTDA\.?$`), "LTDA.", SuffixSimple, "LTDA."},
	{regexp.MustCompile(`(?i)[\s,]+S\.?\s?R\.?\s?L\.?$`), "S.R.L.", SuffixSimple, "S.R.L."},
	{regexp.MustCompile(`(?i)[\s,]+INC\.?$`), "INC", SuffixSimple, "INC"},
	{regexp.MustCompile(`(?i)[\s,]+CORP\.?$`), "CORP", SuffixSimple, "CORP"},
	{regexp.MustCompile(`(?i)[\s,]+LLC\.?$`), "LLC", SuffixSimple, "LLC"},
	{regexp.MustCompile(`(?i)[\s,]+LTD\.?$`), "LTD", SuffixSimple, "LTD"},
}

// stopWords tokens sin peso comparativo.
var stopWords = map[string]bool{
	"DE": true, "Y": true, "E": true, "DEL": true, "LA": true, "EL": true,
	"LOS": true, "LAS": true, "EN": true, "&": true, "AND": true,
}

// ExtractLegalSuffix separa la parte comercial del sufijo legal.
func ExtractLegalSuffix(name string) (business, suffix, kind, society string) {
	n := normalize.ClientName(name)
	for _, ls := range legalSuffixes {
		if loc := ls.re.FindStringIndex(n); loc != nil {
			business = strings.TrimRight(strings.TrimSpace(n[:loc[0]]), ".,; ")
			return business, ls.canonical, ls.kind, ls.society
		}
	}
	return n, "", SuffixNone, ""
}

var reTokenSplit = regexp.MustCompile(`[\s.,;:()\-_/]+`)

// tokens divide la parte comercial y descarta stop-words y tokens cortos.
// El símbolo & se conserva para el corte pero nunca llega como token (<3).
func tokens(business string) []string {
	raw := reTokenSplit.Split(business, -1)
	var out []string
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || stopWords[t] || len(t) < 3 {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ratio similitud Levenshtein clásica (0..100).
func ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	return levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions) * 100
}

// partialRatio mejor ratio de la cadena corta contra cada ventana de igual
// longitud en la cadena larga.
func partialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		return 0
	}
	if len(ra) == len(rb) {
		return ratio(string(ra), string(rb))
	}
	best := 0.0
	for i := 0; i+len(ra) <= len(rb); i++ {
		if r := ratio(string(ra), string(rb[i:i+len(ra)])); r > best {
			best = r
		}
	}
	return best
}

// tokenSortRatio ratio sobre los tokens ordenados alfabéticamente.
func tokenSortRatio(ta, tb []string) float64 {
	sa := append([]string(nil), ta...)
	sb := append([]string(nil), tb...)
	sort.Strings(sa)
	sort.Strings(sb)
	return ratio(strings.Join(sa, " "), strings.Join(sb, " "))
}

// Compare calcula la similitud entre dos nombres de cliente.
func Compare(name1, name2 string) Result {
	b1, s1, k1, soc1 := ExtractLegalSuffix(name1)
	b2, s2, k2, soc2 := ExtractLegalSuffix(name2)

	t1, t2 := tokens(b1), tokens(b2)
	clean1, clean2 := strings.Join(t1, " "), strings.Join(t2, " ")
	if clean1 == "" {
		clean1 = b1
	}
	if clean2 == "" {
		clean2 = b2
	}

	tsr := tokenSortRatio(t1, t2)
	pr := partialRatio(clean1, clean2)
	r := ratio(clean1, clean2)
	base := 0.5*tsr + 0.3*pr + 0.2*r

	details := Details{
		Business1: b1, Business2: b2,
		Suffix1: s1, Suffix2: s2,
		SuffixType1: k1, SuffixType2: k2,
		TokenSortRatio: tsr, PartialRatio: pr, Ratio: r,
	}

	suffixConflict := false
	switch {
	case (k1 == SuffixCompleteCV && k2 == SuffixSimple) || (k1 == SuffixSimple && k2 == SuffixCompleteCV):
		base *= 0.3
		suffixConflict = true
		details.Notes = append(details.Notes, "entidades legales distintas (forma completa vs simple)")
	case (k1 == SuffixNone) != (k2 == SuffixNone):
		details.Notes = append(details.Notes, "solo un nombre declara forma legal")
	case k1 == SuffixCompleteCV && k2 == SuffixCompleteCV && soc1 != soc2:
		// S.A. DE C.V. vs LTDA. DE C.V. con el mismo nombre comercial suele
		// ser error de captura, no otra sociedad.
		if tsr >= 90 && base < 85 {
			base = 85
			details.Notes = append(details.Notes, "variante probable de captura (tipos de sociedad distintos)")
		}
	}

	if !hasCommonToken(t1, t2) {
		base *= 0.5
		details.Notes = append(details.Notes, "sin tokens significativos en común")
	}
	if lr := lengthRatio(clean1, clean2); lr < 0.4 {
		base *= 0.6
		details.Notes = append(details.Notes, "longitudes muy dispares")
	}

	score := math.Min(math.Max(base, 0), 100)
	// Entidades legales distintas jamás alcanzan el umbral de revisión (75).
	if suffixConflict && score >= 30 {
		score = 29.9
	}

	return Result{
		Score:      score,
		Confidence: confidenceFor(score),
		Action:     actionFor(score),
		Details:    details,
	}
}

func hasCommonToken(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true // sin tokens no hay evidencia de divergencia
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	for _, t := range b {
		if set[t] {
			return true
		}
	}
	return false
}

func lengthRatio(a, b string) float64 {
	la, lb := float64(len([]rune(a))), float64(len([]rune(b)))
	if la == 0 || lb == 0 {
		return 1
	}
	return math.Min(la, lb) / math.Max(la, lb)
}

func confidenceFor(score float64) string {
	switch {
	case score >= 95:
		return ConfidenceHigh
	case score >= 85:
		return ConfidenceMedium
	case score >= 75:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

func actionFor(score float64) string {
	switch {
	case score >= 95:
		return ActionAutoMerge
	case score >= 85:
		return ActionSuggest
	case score >= 75:
		return ActionReview
	default:
		return ActionSkip
	}
}
