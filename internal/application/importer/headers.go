package importer

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/logistica-sv/freight-backoffice/internal/domain/normalize"
)

// Campos canónicos de una fila de importación.
const (
	colOTNumber        = "ot_number"
	colClient          = "client"
	colOperator        = "operator"
	colProvider        = "provider"
	colMasterBL        = "master_bl"
	colHouseBL         = "house_bl"
	colContainers      = "containers"
	colETA             = "eta"
	colETD             = "etd"
	colOriginPort      = "origin_port"
	colDestinationPort = "destination_port"
	colOperationType   = "operation_type"
	colVessel          = "vessel"
	colProvisionDate   = "provision_date"
	colState           = "state"
)

// headerSynonyms sinónimos por campo canónico, en minúsculas y sin tildes.
// Los encabezados reales llegan en español, inglés o abreviados.
var headerSynonyms = map[string][]string{
	colOTNumber:        {"ot", "no. ot", "numero ot", "numero de ot", "orden de trabajo", "ot number", "n ot"},
	colClient:          {"cliente", "client", "nombre cliente", "razon social", "customer"},
	colOperator:        {"operador", "operator", "ejecutivo", "encargado"},
	colProvider:        {"proveedor", "naviera", "provider", "carrier", "linea naviera"},
	colMasterBL:        {"mbl", "master bl", "bl master", "bl", "master"},
	colHouseBL:         {"hbl", "house bl", "bl house", "house"},
	colContainers:      {"contenedor", "contenedores", "container", "containers", "cntr"},
	colETA:             {"eta", "fecha eta", "arribo estimado"},
	colETD:             {"etd", "fecha etd", "zarpe estimado"},
	colOriginPort:      {"origen", "puerto origen", "puerto de origen", "origin", "pol"},
	colDestinationPort: {"destino", "puerto destino", "puerto de destino", "destination", "pod"},
	colOperationType:   {"tipo", "tipo operacion", "tipo de operacion", "operacion", "impo/expo"},
	colVessel:          {"buque", "vessel", "barco", "motonave", "nave"},
	colProvisionDate:   {"provision", "fecha provision", "fecha de provision", "provisionado"},
	colState:           {"estado", "estatus", "status", "state"},
}

// sheetNameHints nombres de hoja preferidos (contains, en minúsculas).
var sheetNameHints = []string{"import", "base", "datos", "ots", "ordenes"}

// pickSheet elige la hoja a importar: primero por nombre sugerente, si no la
// de más filas.
func pickSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	for _, name := range sheets {
		lower := strings.ToLower(normalize.StripDiacritics(name))
		for _, hint := range sheetNameHints {
			if strings.Contains(lower, hint) {
				return name
			}
		}
	}
	best, bestRows := sheets[0], -1
	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		if len(rows) > bestRows {
			best, bestRows = name, len(rows)
		}
	}
	return best
}

// headerMap columna (índice) -> campo canónico.
type headerMap map[int]string

func (h headerMap) has(field string) bool {
	for _, f := range h {
		if f == field {
			return true
		}
	}
	return false
}

// normalizeHeader prepara una celda de encabezado para comparar.
func normalizeHeader(cell string) string {
	s := strings.ToLower(normalize.StripDiacritics(strings.TrimSpace(cell)))
	s = strings.Trim(s, ".:")
	return strings.Join(strings.Fields(s), " ")
}

// detectHeader examina hasta las primeras 5 filas y se queda con la de mayor
// puntaje. Dos pasadas por fila: coincidencia exacta (100 puntos, el sinónimo
// se consume) y luego subcadena difusa (10 a 15 puntos). La fila ganadora debe
// mapear al menos ot_number o client.
func detectHeader(rows [][]string) (headerMap, int) {
	limit := len(rows)
	if limit > 5 {
		limit = 5
	}

	var bestMap headerMap
	bestScore, bestRow := 0, -1

	for r := 0; r < limit; r++ {
		m, score := scoreHeaderRow(rows[r])
		if score > bestScore && (m.has(colOTNumber) || m.has(colClient)) {
			bestMap, bestScore, bestRow = m, score, r
		}
	}
	return bestMap, bestRow
}

func scoreHeaderRow(row []string) (headerMap, int) {
	m := make(headerMap)
	score := 0
	consumed := make(map[string]bool) // "campo|sinonimo"

	// Pasada 1: exactos.
	for col, cell := range row {
		h := normalizeHeader(cell)
		if h == "" {
			continue
		}
		for field, syns := range headerSynonyms {
			if m.has(field) {
				continue
			}
			for _, syn := range syns {
				if h == syn && !consumed[field+"|"+syn] {
					m[col] = field
					consumed[field+"|"+syn] = true
					score += 100
					break
				}
			}
			if _, ok := m[col]; ok {
				break
			}
		}
	}

	// Pasada 2: difusos por subcadena sobre columnas sin asignar.
	for col, cell := range row {
		if _, ok := m[col]; ok {
			continue
		}
		h := normalizeHeader(cell)
		if h == "" {
			continue
		}
		for field, syns := range headerSynonyms {
			if m.has(field) {
				continue
			}
			matched := false
			for _, syn := range syns {
				if len(syn) >= 3 && strings.Contains(h, syn) {
					m[col] = field
					score += 15
					matched = true
					break
				}
				if len(h) >= 3 && strings.Contains(syn, h) {
					m[col] = field
					score += 10
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
	}
	return m, score
}

// otStateTable mapeo de estado libre a estado enumerado, por subcadena
// (insensible a mayúsculas). El orden importa: la primera que calce gana.
var otStateTable = []struct {
	substr string
	state  string
}{
	{"cancel", "cancelled"},
	{"anulad", "cancelled"},
	{"cerrad", "closed"},
	{"liquidad", "closed"},
	{"finaliz", "closed"},
	{"arrib", "arrived"},
	{"llegad", "arrived"},
	{"transito", "in_transit"},
	{"curso", "in_transit"},
	{"zarp", "in_transit"},
	{"pendiente", "pending"},
	{"abiert", "pending"},
}

// mapOTState normaliza una celda de estado libre; vacío si no se reconoce.
func mapOTState(raw string) string {
	s := strings.ToLower(normalize.StripDiacritics(strings.TrimSpace(raw)))
	if s == "" {
		return ""
	}
	for _, e := range otStateTable {
		if strings.Contains(s, e.substr) {
			return e.state
		}
	}
	return ""
}
