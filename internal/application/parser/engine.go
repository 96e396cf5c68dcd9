package parser

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/normalize"
)

// ParsedDocument resultado estructurado de un documento de proveedor.
// Confidence es la fracción de los cinco campos requeridos poblados.
type ParsedDocument struct {
	InvoiceNumber    string
	IssueDate        *time.Time
	DueDate          *time.Time
	Amount           decimal.Decimal
	AmountOK         bool
	ProviderTaxID    string
	ProviderName     string
	References       []entity.DetectedRef
	Confidence       float64
	FieldConfidences map[string]float64
}

// requiredFields los cinco campos que definen la confianza global.
var requiredFields = []string{FieldInvoiceNumber, FieldIssueDate, FieldAmount, FieldTaxID, FieldProviderName}

// genericFallbacks patrones de último recurso cuando el catálogo del
// proveedor no cubre un campo.
var genericFallbacks = []Pattern{
	Modern{TargetField: FieldInvoiceNumber, ValueType: ValueText, Priority: 0,
		Regex: regexp.MustCompile(`(?i)(?:FACTURA|INVOICE|DTE)[\s:]*(?:No\.?|N[o°º]\.?|#)?[\s:]*([A-Z0-9][A-Z0-9\-/]{3,24})`)},
	Modern{TargetField: FieldIssueDate, ValueType: ValueDate, Priority: 0,
		Regex: regexp.MustCompile(`(?i)(?:FECHA(?:\s+DE)?(?:\s+EMISION)?|DATE)[\s:]*(\d{4}[-/]\d{1,2}[-/]\d{1,2}|\d{1,2}[-/]\d{1,2}[-/]\d{4})`)},
	Modern{TargetField: FieldAmount, ValueType: ValueDecimal, Priority: 0,
		Regex: regexp.MustCompile(`(?i)(?:TOTAL\s+A\s+PAGAR|TOTAL|MONTO|AMOUNT\s+DUE)[\s:]*(?:USD|US\$|\$)?\s*(-?[0-9][0-9.,]*)`)},
	Modern{TargetField: FieldTaxID, ValueType: ValueText, Priority: 0,
		Regex: regexp.MustCompile(`(?i)(?:NIT|NRC|RUC|TAX\s*ID)[\s.:]*([0-9][0-9-]{3,16})`)},
	Modern{TargetField: FieldMBL, ValueType: ValueText, Priority: 0,
		Regex: regexp.MustCompile(`\b([A-Z]{4}[0-9]{10,})\b`)},
	Modern{TargetField: FieldContainer, ValueType: ValueText, Priority: 0,
		Regex: regexp.MustCompile(`\b([A-Z]{4}[\s-]?[0-9]{7})\b`)},
	Modern{TargetField: FieldOTRef, ValueType: ValueText, Priority: 0,
		Regex: regexp.MustCompile(`(?i)\b(OT[-\s]?[0-9]{4}[-\s]?[0-9]+)\b`)},
}

// fieldMatch captura de un patrón sobre el texto.
type fieldMatch struct {
	value      string
	confidence float64
}

// ApplyPatterns corre dos pasadas sobre el texto: primero el catálogo del
// proveedor (ya ordenado por prioridad descendente), luego los fallbacks
// genéricos. Por campo gana el primer patrón que captura.
func ApplyPatterns(text string, catalog []Pattern) *ParsedDocument {
	// Orden estable por prioridad descendente por si el repositorio no la garantiza.
	ordered := append([]Pattern(nil), catalog...)
	sort.SliceStable(ordered, func(i, j int) bool {
		_, _, _, pi, _, _ := fieldOf(ordered[i])
		_, _, _, pj, _, _ := fieldOf(ordered[j])
		return pi > pj
	})

	matches := make(map[string]fieldMatch)
	for _, pass := range [][]Pattern{ordered, genericFallbacks} {
		for _, p := range pass {
			field, valueType, re, priority, providerSpecific, ok := fieldOf(p)
			if !ok {
				continue
			}
			if _, done := matches[field]; done {
				continue
			}
			all := re.FindAllStringSubmatch(text, 4)
			if len(all) == 0 {
				continue
			}
			value := captured(all[0])
			if value == "" {
				continue
			}
			// Una captura que no cumple el tipo declarado se descarta y el
			// campo queda libre para el siguiente patrón o el fallback.
			if !typedOK(valueType, value) {
				continue
			}
			matches[field] = fieldMatch{
				value:      value,
				confidence: fieldConfidence(priority, providerSpecific, len(all), value),
			}
		}
	}

	return assemble(matches)
}

// typedOK valida la captura contra el tipo del patrón. Fechas y decimales
// deben normalizar; el resto de tipos acepta cualquier texto.
func typedOK(valueType, value string) bool {
	switch valueType {
	case ValueDate:
		_, err := normalize.Date(value)
		return err == nil
	case ValueDecimal:
		_, err := normalize.Decimal(value)
		return err == nil
	default:
		return true
	}
}

// captured grupo 1 si existe, si no el match completo.
func captured(groups []string) string {
	if len(groups) > 1 && groups[1] != "" {
		return strings.TrimSpace(groups[1])
	}
	return strings.TrimSpace(groups[0])
}

// fieldConfidence 0.5 + 0.03*prioridad + 0.2 si es específico del proveedor,
// +0.1 con match único / -0.1 con más de tres, +0.1 con longitud razonable.
func fieldConfidence(priority int, providerSpecific bool, matchCount int, value string) float64 {
	c := 0.5 + 0.03*float64(priority)
	if providerSpecific {
		c += 0.2
	}
	switch {
	case matchCount == 1:
		c += 0.1
	case matchCount > 3:
		c -= 0.1
	}
	if l := len(value); l >= 3 && l <= 50 {
		c += 0.1
	}
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// assemble convierte las capturas crudas al documento tipado.
func assemble(matches map[string]fieldMatch) *ParsedDocument {
	doc := &ParsedDocument{FieldConfidences: make(map[string]float64)}
	for field, m := range matches {
		doc.FieldConfidences[field] = m.confidence
	}

	if m, ok := matches[FieldInvoiceNumber]; ok {
		doc.InvoiceNumber = strings.ToUpper(m.value)
	}
	if m, ok := matches[FieldIssueDate]; ok {
		if d, err := normalize.Date(m.value); err == nil {
			doc.IssueDate = &d
		}
	}
	if m, ok := matches[FieldDueDate]; ok {
		if d, err := normalize.Date(m.value); err == nil {
			doc.DueDate = &d
		}
	}
	if m, ok := matches[FieldAmount]; ok {
		if amt, err := normalize.Decimal(m.value); err == nil {
			doc.Amount = amt
			doc.AmountOK = true
		}
	}
	if m, ok := matches[FieldTaxID]; ok {
		doc.ProviderTaxID = m.value
	}
	if m, ok := matches[FieldProviderName]; ok {
		doc.ProviderName = normalize.ClientName(m.value)
	}
	if m, ok := matches[FieldOTRef]; ok {
		doc.References = append(doc.References, entity.DetectedRef{Kind: entity.RefKindOT, Value: canonicalOTRef(m.value)})
	}
	if m, ok := matches[FieldMBL]; ok {
		doc.References = append(doc.References, entity.DetectedRef{Kind: entity.RefKindMBL, Value: strings.ToUpper(m.value)})
	}
	if m, ok := matches[FieldContainer]; ok {
		// La forma ISO 6346 es obligatoria; lo que no normaliza se descarta.
		if c, ok := normalize.Container(m.value); ok {
			doc.References = append(doc.References, entity.DetectedRef{Kind: entity.RefKindContainer, Value: c})
		}
	}

	populated := 0
	for _, f := range requiredFields {
		switch f {
		case FieldIssueDate:
			if doc.IssueDate != nil {
				populated++
			}
		case FieldAmount:
			if doc.AmountOK {
				populated++
			}
		default:
			if m, ok := matches[f]; ok && m.value != "" {
				populated++
			}
		}
	}
	doc.Confidence = float64(populated) / float64(len(requiredFields))
	return doc
}

var reOTSep = regexp.MustCompile(`[\s]+`)

// canonicalOTRef normaliza separadores de la referencia de OT (OT 2025 001 -> OT-2025-001).
func canonicalOTRef(s string) string {
	return strings.ToUpper(reOTSep.ReplaceAllString(strings.TrimSpace(s), "-"))
}
