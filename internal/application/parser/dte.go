package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/normalize"
)

// Rutas alternativas por campo lógico dentro del JSON DTE. Se prueban en
// orden y gana la primera con valor.
var dtePaths = map[string][]string{
	FieldInvoiceNumber: {"identificacion.numeroControl", "identificacion.codigoGeneracion", "numeroControl"},
	FieldIssueDate:     {"identificacion.fecEmi", "identificacion.fechaEmision", "fecEmi"},
	FieldAmount:        {"resumen.totalPagar", "resumen.montoTotalOperacion", "resumen.totalGravada", "totalPagar"},
	FieldTaxID:         {"emisor.nit", "emisor.numDocumento", "nit"},
	FieldProviderName:  {"emisor.nombre", "emisor.nombreComercial", "nombreEmisor"},
	FieldDueDate:       {"resumen.fechaVencimiento", "condicionOperacion.fechaVencimiento"},
}

// Regexes de referencias dentro de observaciones y descripciones de líneas.
var (
	reDTEOT        = regexp.MustCompile(`(?i)\bOT[-\s]?\d{4}[-\s]?\d+\b`)
	reDTEMBL       = regexp.MustCompile(`\b[A-Z]{4}\d{10,}\b`)
	reDTEContainer = regexp.MustCompile(`\b[A-Z]{4}\d{7}\b`)
)

// ParseDTE interpreta un Documento Tributario Electrónico en JSON.
func ParseDTE(raw []byte) (*ParsedDocument, error) {
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("DTE JSON inválido: %w", err)
	}

	doc := &ParsedDocument{FieldConfidences: make(map[string]float64)}

	if v := lookupFirst(root, dtePaths[FieldInvoiceNumber]); v != "" {
		doc.InvoiceNumber = strings.ToUpper(v)
		doc.FieldConfidences[FieldInvoiceNumber] = 0.95
	}
	if v := lookupFirst(root, dtePaths[FieldIssueDate]); v != "" {
		if d, err := normalize.Date(v); err == nil {
			doc.IssueDate = &d
			doc.FieldConfidences[FieldIssueDate] = 0.95
		}
	}
	if v := lookupFirst(root, dtePaths[FieldDueDate]); v != "" {
		if d, err := normalize.Date(v); err == nil {
			doc.DueDate = &d
		}
	}
	if v := lookupFirst(root, dtePaths[FieldAmount]); v != "" {
		if amt, err := decimal.NewFromString(v); err == nil {
			doc.Amount = amt
			doc.AmountOK = true
			doc.FieldConfidences[FieldAmount] = 0.95
		}
	}
	if v := lookupFirst(root, dtePaths[FieldTaxID]); v != "" {
		doc.ProviderTaxID = v
		doc.FieldConfidences[FieldTaxID] = 0.95
	}
	if v := lookupFirst(root, dtePaths[FieldProviderName]); v != "" {
		doc.ProviderName = normalize.ClientName(v)
		doc.FieldConfidences[FieldProviderName] = 0.95
	}

	doc.References = scanDTEReferences(root)

	populated := 0
	checks := []bool{doc.InvoiceNumber != "", doc.IssueDate != nil, doc.AmountOK, doc.ProviderTaxID != "", doc.ProviderName != ""}
	for _, ok := range checks {
		if ok {
			populated++
		}
	}
	doc.Confidence = float64(populated) / float64(len(checks))
	return doc, nil
}

// lookupFirst prueba cada ruta (a.b.c) y devuelve el primer valor no vacío.
func lookupFirst(root map[string]any, paths []string) string {
	for _, path := range paths {
		if v := lookup(root, path); v != "" {
			return v
		}
	}
	return ""
}

// lookup navega una ruta con puntos sobre mapas anidados. Números se
// devuelven con notación decimal completa.
func lookup(root map[string]any, path string) string {
	cur := any(root)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[key]
		if !ok {
			return ""
		}
	}
	switch v := cur.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return decimal.NewFromFloat(v).String()
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// scanDTEReferences recorre observaciones y descripciones de cuerpo buscando
// referencias de OT, MBL y contenedor.
func scanDTEReferences(root map[string]any) []entity.DetectedRef {
	var texts []string
	collectStrings(root, "observaciones", &texts)
	collectStrings(root, "descripcion", &texts)
	collectStrings(root, "descItem", &texts)

	seen := make(map[string]bool)
	var refs []entity.DetectedRef
	add := func(kind, value string) {
		key := kind + "|" + value
		if value == "" || seen[key] {
			return
		}
		seen[key] = true
		refs = append(refs, entity.DetectedRef{Kind: kind, Value: value})
	}

	for _, t := range texts {
		upper := strings.ToUpper(t)
		if m := reDTEOT.FindString(upper); m != "" {
			add(entity.RefKindOT, canonicalOTRef(m))
		}
		for _, m := range reDTEContainer.FindAllString(upper, -1) {
			if c, ok := normalize.Container(m); ok {
				add(entity.RefKindContainer, c)
			}
		}
		for _, m := range reDTEMBL.FindAllString(upper, -1) {
			// Un MBL comparte prefijo de 4 letras con los contenedores; el
			// largo de dígitos (>=10) ya lo distingue.
			add(entity.RefKindMBL, m)
		}
	}
	return refs
}

// collectStrings acumula recursivamente los valores string bajo claves con el
// nombre dado, en cualquier nivel del documento.
func collectStrings(node any, key string, out *[]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			if k == key {
				if s, ok := child.(string); ok && s != "" {
					*out = append(*out, s)
				}
			}
			collectStrings(child, key, out)
		}
	case []any:
		for _, child := range v {
			collectStrings(child, key, out)
		}
	}
}
