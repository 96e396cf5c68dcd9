package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/normalize"
)

// minTextLength bajo este largo el PDF se considera escaneado o vacío
// (sin OCR en alcance).
const minTextLength = 50

// PDFParser extrae texto de la capa de texto del PDF y aplica el catálogo.
type PDFParser struct {
	catalog *Catalog
}

// NewPDFParser construye el parser sobre el cache de catálogo.
func NewPDFParser(catalog *Catalog) *PDFParser {
	return &PDFParser{catalog: catalog}
}

// ExtractText concatena el texto de todas las páginas.
func ExtractText(raw []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("abrir PDF: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
				b.WriteString(" ")
			}
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// Parse extrae los campos del PDF usando los patrones del proveedor (si el
// NIT es conocido) más los genéricos. Falla con scanned_or_empty cuando el
// texto extraíble no alcanza el mínimo.
func (p *PDFParser) Parse(ctx context.Context, raw []byte, providerTaxID string) (*ParsedDocument, error) {
	text, err := ExtractText(raw)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(text)) < minTextLength {
		return nil, fmt.Errorf("scanned_or_empty: %w", domain.ErrValidation)
	}

	normalized := normalize.CollapseText(text)

	var patterns []Pattern
	if p.catalog != nil {
		patterns, err = p.catalog.ForProvider(ctx, providerTaxID)
		if err != nil {
			return nil, err
		}
	}
	return ApplyPatterns(normalized, patterns), nil
}
