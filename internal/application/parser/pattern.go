// Package parser extrae campos estructurados de facturas PDF y DTE-JSON
// aplicando catálogos de patrones por proveedor con fallback genérico.
package parser

import (
	"context"
	"regexp"
	"sync"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

// Campos lógicos que puede poblar un patrón.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldIssueDate     = "issue_date"
	FieldDueDate       = "due_date"
	FieldAmount        = "amount"
	FieldTaxID         = "tax_id"
	FieldProviderName  = "provider_name"
	FieldMBL           = "mbl"
	FieldContainer     = "container"
	FieldOTRef         = "ot_ref"
)

// Tipos de valor de un campo.
const (
	ValueText    = "text"
	ValueDecimal = "decimal"
	ValueDate    = "date"
)

// FieldSpec mapeo declarativo de un campo objetivo: código interno, etiqueta
// y tipo. Es la tabla que unifica el modelo legado (code) con el moderno.
type FieldSpec struct {
	Code    string
	Display string
	Type    string
}

// fieldSpecs tabla campo lógico -> (code, display, type).
var fieldSpecs = map[string]FieldSpec{
	FieldInvoiceNumber: {"INV_NUM", "Número de factura", ValueText},
	FieldIssueDate:     {"ISS_DATE", "Fecha de emisión", ValueDate},
	FieldDueDate:       {"DUE_DATE", "Fecha de vencimiento", ValueDate},
	FieldAmount:        {"AMOUNT", "Monto total", ValueDecimal},
	FieldTaxID:         {"TAX_ID", "NIT del proveedor", ValueText},
	FieldProviderName:  {"PROV_NAME", "Nombre del proveedor", ValueText},
	FieldMBL:           {"MBL", "Master BL", ValueText},
	FieldContainer:     {"CONTAINER", "Contenedor", ValueText},
	FieldOTRef:         {"OT_REF", "Referencia de OT", ValueText},
}

// Pattern tipo suma que unifica los dos modelos de catálogo: el legado
// (código + display sueltos) y el moderno (campo objetivo tipado).
// El motor es el único consumidor y distingue por type switch.
type Pattern interface{ isPattern() }

// Legacy patrón del modelo viejo: el campo se deduce del código.
type Legacy struct {
	Code             string
	Display          string
	Regex            *regexp.Regexp
	Priority         int
	ProviderSpecific bool
}

// Modern patrón del modelo nuevo: campo objetivo explícito y tipado.
type Modern struct {
	TargetField      string
	ValueType        string
	Regex            *regexp.Regexp
	Priority         int
	ProviderSpecific bool
}

func (Legacy) isPattern() {}
func (Modern) isPattern() {}

// codeToField índice inverso código legado -> campo lógico.
var codeToField = func() map[string]string {
	m := make(map[string]string, len(fieldSpecs))
	for field, spec := range fieldSpecs {
		m[spec.Code] = field
	}
	return m
}()

// fieldOf resuelve el campo lógico y tipo de cualquier variante del tipo suma.
func fieldOf(p Pattern) (field, valueType string, re *regexp.Regexp, priority int, providerSpecific bool, ok bool) {
	switch v := p.(type) {
	case Legacy:
		field, ok = codeToField[v.Code]
		if !ok {
			return "", "", nil, 0, false, false
		}
		return field, fieldSpecs[field].Type, v.Regex, v.Priority, v.ProviderSpecific, true
	case Modern:
		spec, known := fieldSpecs[v.TargetField]
		if !known {
			return "", "", nil, 0, false, false
		}
		valueType = v.ValueType
		if valueType == "" {
			valueType = spec.Type
		}
		return v.TargetField, valueType, v.Regex, v.Priority, v.ProviderSpecific, true
	default:
		return "", "", nil, 0, false, false
	}
}

// FromRow convierte una fila del catálogo al tipo suma. Regex inválidas se
// descartan (devuelve nil).
func FromRow(row *entity.PatternRow) Pattern {
	re, err := regexp.Compile(row.Regex)
	if err != nil {
		return nil
	}
	if row.Kind == entity.PatternKindLegacy {
		return Legacy{
			Code:             row.Code,
			Display:          row.Display,
			Regex:            re,
			Priority:         row.Priority,
			ProviderSpecific: row.ProviderSpecific,
		}
	}
	return Modern{
		TargetField:      row.TargetField,
		ValueType:        row.ValueType,
		Regex:            re,
		Priority:         row.Priority,
		ProviderSpecific: row.ProviderSpecific,
	}
}

// Catalog cache en proceso del catálogo de patrones. Lectura frecuente,
// escritura rara: se invalida cuando un admin modifica el catálogo.
type Catalog struct {
	repo repository.PatternRepository

	mu    sync.RWMutex
	cache map[string][]Pattern
}

// NewCatalog construye el cache sobre el repositorio.
func NewCatalog(repo repository.PatternRepository) *Catalog {
	return &Catalog{repo: repo, cache: make(map[string][]Pattern)}
}

// ForProvider patrones del proveedor (por NIT) más los genéricos, ya
// ordenados por prioridad descendente por el repositorio.
func (c *Catalog) ForProvider(ctx context.Context, providerTaxID string) ([]Pattern, error) {
	c.mu.RLock()
	if cached, ok := c.cache[providerTaxID]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	rows, err := c.repo.ListActive(ctx, providerTaxID)
	if err != nil {
		return nil, err
	}
	patterns := make([]Pattern, 0, len(rows))
	for _, row := range rows {
		if p := FromRow(row); p != nil {
			patterns = append(patterns, p)
		}
	}

	c.mu.Lock()
	c.cache[providerTaxID] = patterns
	c.mu.Unlock()
	return patterns, nil
}

// Invalidate vacía el cache tras una escritura de admin.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.cache = make(map[string][]Pattern)
	c.mu.Unlock()
}
