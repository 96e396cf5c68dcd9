// Package importer implementa la importación masiva de OTs desde Excel en
// dos fases: la primera carga y detecta conflictos sin escribir nada; la
// segunda aplica con las decisiones del usuario.
package importer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/normalize"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

// MinYear las OTs con año embebido anterior se descartan de la importación.
const MinYear = 2025

// Decisiones posibles sobre un conflicto.
const (
	ChoiceKeepCurrent = "keep_current"
	ChoiceUseNew      = "use_new"
)

// Campos sujetos a conflicto.
const (
	ConflictFieldClient   = "client"
	ConflictFieldOperator = "operator"
)

// File un archivo Excel subido.
type File struct {
	Name string
	Data []byte
}

// Conflict discrepancia que el usuario debe decidir. OTUpdatedAt lleva la
// marca de tiempo de la OT observada en fase 1 para detectar resoluciones
// obsoletas; es nil cuando el conflicto es entre archivos (OT aún sin crear).
type Conflict struct {
	OTNumber     string     `json:"ot_number"`
	Field        string     `json:"field"`
	CurrentValue string     `json:"current_value"`
	NewValue     string     `json:"new_value"`
	SourceFile   string     `json:"source_file"`
	SourceRow    int        `json:"source_row"`
	OTUpdatedAt  *time.Time `json:"ot_updated_at,omitempty"`
}

// Resolution decisión del usuario para un conflicto de fase 1.
type Resolution struct {
	OTNumber    string     `json:"ot_number"`
	Field       string     `json:"field"`
	Choice      string     `json:"choice"`
	OTUpdatedAt *time.Time `json:"ot_updated_at,omitempty"`
}

// Report resultado de una importación.
type Report struct {
	FilesProcessed    int        `json:"files_processed"`
	FilesSkipped      int        `json:"files_skipped"`
	RowsRead          int        `json:"rows_read"`
	RowsSkipped       int        `json:"rows_skipped"`
	OTsCreated        int        `json:"ots_created"`
	OTsUpdated        int        `json:"ots_updated"`
	InvalidContainers int        `json:"invalid_containers"`
	Conflicts         []Conflict `json:"conflicts,omitempty"`
}

// ClientResolver crea o reutiliza alias de cliente. Lo satisface el servicio
// de alias.
type ClientResolver interface {
	Resolve(ctx context.Context, rawName string) (*entity.ClientAlias, error)
	CacheResolution(ctx context.Context, rawName, resolvedToID string) error
}

// TxRunner ejecuta la fase de aplicación dentro de una transacción.
type TxRunner interface {
	RunImport(ctx context.Context, fn func(
		ots repository.OTRepository,
		processed repository.ProcessedFileRepository,
	) error) error
}

// Service caso de uso de importación Excel.
type Service struct {
	ots         repository.OTRepository
	aliases     repository.ClientAliasRepository
	resolutions repository.ClientResolutionRepository
	processed   repository.ProcessedFileRepository
	resolver    ClientResolver
	txRunner    TxRunner
	log         *logger.Logger
}

// NewService construye el servicio.
func NewService(
	ots repository.OTRepository,
	aliases repository.ClientAliasRepository,
	resolutions repository.ClientResolutionRepository,
	processed repository.ProcessedFileRepository,
	resolver ClientResolver,
	txRunner TxRunner,
	log *logger.Logger,
) *Service {
	return &Service{
		ots:         ots,
		aliases:     aliases,
		resolutions: resolutions,
		processed:   processed,
		resolver:    resolver,
		txRunner:    txRunner,
		log:         log,
	}
}

// pendingRow fila válida extraída de un archivo.
type pendingRow struct {
	otNumber      string
	clientRaw     string // nombre tal como vino (o el resuelto por cache)
	clientAliasID string // no vacío solo si el cache ya lo resolvió
	operator      string
	provider      string
	masterBL      string
	houseBLs      []string
	containers    []string
	eta           *time.Time
	etd           *time.Time
	originPort    string
	destPort      string
	operationType string
	vessel        string
	provisionDate *time.Time
	state         string
	sourceFile    string
	sourceRow     int // 1-based, como lo ve el usuario en Excel
}

// pendingOT acumulado por número de OT tras fusionar filas y archivos.
type pendingOT struct {
	row      pendingRow
	existing *entity.OT // nil si la OT no está en la base
}

// Import corre el flujo completo. La primera llamada va sin decisiones; si hay
// conflictos se devuelve el reporte con ellos y error domain.ErrConflictPending
// sin escribir nada. La segunda llamada repite los archivos más las decisiones.
func (s *Service) Import(ctx context.Context, files []File, decisions []Resolution) (*Report, error) {
	report := &Report{}

	pendings, rowsByFile, err := s.loadPhase(ctx, files, report)
	if err != nil {
		return nil, err
	}

	if len(report.Conflicts) > 0 {
		unresolved := s.filterResolved(report.Conflicts, decisions)
		if len(unresolved) > 0 {
			report.Conflicts = unresolved
			return report, domain.ErrConflictPending
		}
		if err := s.checkStale(ctx, decisions); err != nil {
			return nil, err
		}
	}

	if err := s.applyPhase(ctx, files, pendings, rowsByFile, decisions, report); err != nil {
		return nil, err
	}
	report.Conflicts = nil
	s.log.Info().
		Int("archivos", report.FilesProcessed).
		Int("creadas", report.OTsCreated).
		Int("actualizadas", report.OTsUpdated).
		Msg("importación excel aplicada")
	return report, nil
}

// ── fase 1: carga y detección de conflictos ──────────────────────────────────

func (s *Service) loadPhase(ctx context.Context, files []File, report *Report) (map[string]*pendingOT, map[string]int, error) {
	pendings := make(map[string]*pendingOT)
	rowsByFile := make(map[string]int)

	for _, file := range files {
		sha := fileSHA(file.Data)
		seen, err := s.processed.GetBySHA256(ctx, sha)
		if err != nil {
			return nil, nil, err
		}
		if seen != nil {
			report.FilesSkipped++
			s.log.Warn().Str("archivo", file.Name).Msg("archivo ya importado, se omite")
			continue
		}
		report.FilesProcessed++

		rows, err := s.parseFile(ctx, file, report)
		if err != nil {
			return nil, nil, err
		}
		rowsByFile[sha] = len(rows)
		for _, row := range rows {
			if err := s.mergePending(ctx, pendings, row, report); err != nil {
				return nil, nil, err
			}
		}
	}
	return pendings, rowsByFile, nil
}

func (s *Service) parseFile(ctx context.Context, file File, report *Report) ([]pendingRow, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		return nil, fmt.Errorf("excel ilegible %q: %w", file.Name, domain.ErrValidation)
	}
	defer xl.Close()

	sheet := pickSheet(xl)
	if sheet == "" {
		return nil, fmt.Errorf("excel sin hojas %q: %w", file.Name, domain.ErrValidation)
	}
	rows, err := xl.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("leyendo hoja %q de %q: %w", sheet, file.Name, err)
	}

	headers, headerRow := detectHeader(rows)
	if headers == nil {
		return nil, fmt.Errorf("sin encabezados reconocibles en %q: %w", file.Name, domain.ErrValidation)
	}

	var out []pendingRow
	invalidContainers := 0
	for r := headerRow + 1; r < len(rows); r++ {
		report.RowsRead++
		row, ok := s.parseRow(ctx, headers, rows[r], file.Name, r+1, &invalidContainers)
		if !ok {
			report.RowsSkipped++
			continue
		}
		out = append(out, row)
	}
	report.InvalidContainers += invalidContainers
	if invalidContainers > 0 {
		s.log.Warn().
			Str("archivo", file.Name).
			Int("contenedores_invalidos", invalidContainers).
			Msg("contenedores descartados por formato")
	}
	return out, nil
}

func (s *Service) parseRow(ctx context.Context, headers headerMap, cells []string, sourceFile string, sourceRow int, invalidContainers *int) (pendingRow, bool) {
	get := func(field string) string {
		for col, f := range headers {
			if f == field && col < len(cells) {
				return strings.TrimSpace(cells[col])
			}
		}
		return ""
	}

	row := pendingRow{sourceFile: sourceFile, sourceRow: sourceRow}

	row.otNumber = strings.ToUpper(strings.Join(strings.Fields(get(colOTNumber)), ""))
	row.clientRaw = get(colClient)
	if row.otNumber == "" || row.clientRaw == "" {
		return row, false
	}
	if year, ok := otYear(row.otNumber); ok && year < MinYear {
		return row, false
	}

	// Cache de resoluciones: un nombre crudo ya decidido salta directo al alias.
	if res, err := s.resolutions.GetByNormalizedName(ctx, normalize.ClientName(row.clientRaw)); err == nil && res != nil {
		if a, err := s.aliases.GetByID(ctx, res.ResolvedToID); err == nil && a != nil {
			row.clientAliasID = a.ID
			row.clientRaw = a.OriginalName
		}
	}

	row.operator = get(colOperator)
	row.provider = get(colProvider)
	row.masterBL = strings.ToUpper(get(colMasterBL))
	if hbl := strings.ToUpper(get(colHouseBL)); hbl != "" {
		row.houseBLs = splitMulti(hbl)
	}
	for _, raw := range splitMulti(get(colContainers)) {
		c, ok := normalize.Container(raw)
		if !ok {
			*invalidContainers++
			continue
		}
		row.containers = append(row.containers, c)
	}
	row.eta = parseDatePtr(get(colETA))
	row.etd = parseDatePtr(get(colETD))
	row.originPort = get(colOriginPort)
	row.destPort = get(colDestinationPort)
	row.operationType = mapOperationType(get(colOperationType))
	row.vessel = get(colVessel)
	row.provisionDate = parseDatePtr(get(colProvisionDate))
	row.state = mapOTState(get(colState))
	return row, true
}

// mergePending incorpora una fila al acumulado y registra los conflictos
// contra filas anteriores y contra la base.
func (s *Service) mergePending(ctx context.Context, pendings map[string]*pendingOT, row pendingRow, report *Report) error {
	p, ok := pendings[row.otNumber]
	if !ok {
		existing, err := s.ots.GetByNumber(ctx, row.otNumber)
		if err != nil {
			return err
		}
		p = &pendingOT{row: row, existing: existing}
		pendings[row.otNumber] = p

		if existing != nil {
			if err := s.conflictsAgainstDB(ctx, p, report); err != nil {
				return err
			}
		}
		return nil
	}

	// Conflictos entre archivos o filas repetidas del mismo número.
	if differs(p.row.clientRaw, row.clientRaw) {
		report.Conflicts = append(report.Conflicts, Conflict{
			OTNumber:     row.otNumber,
			Field:        ConflictFieldClient,
			CurrentValue: p.row.clientRaw,
			NewValue:     row.clientRaw,
			SourceFile:   row.sourceFile,
			SourceRow:    row.sourceRow,
		})
	}
	if differs(p.row.operator, row.operator) {
		report.Conflicts = append(report.Conflicts, Conflict{
			OTNumber:     row.otNumber,
			Field:        ConflictFieldOperator,
			CurrentValue: p.row.operator,
			NewValue:     row.operator,
			SourceFile:   row.sourceFile,
			SourceRow:    row.sourceRow,
		})
	}
	// La última fila completa los campos vacíos del acumulado.
	fillRow(&p.row, row)
	return nil
}

func (s *Service) conflictsAgainstDB(ctx context.Context, p *pendingOT, report *Report) error {
	ot := p.existing
	updatedAt := ot.UpdatedAt

	currentClientName, sameAlias, err := s.currentClient(ctx, ot, p.row)
	if err != nil {
		return err
	}
	if !sameAlias && differs(currentClientName, p.row.clientRaw) {
		report.Conflicts = append(report.Conflicts, Conflict{
			OTNumber:     p.row.otNumber,
			Field:        ConflictFieldClient,
			CurrentValue: currentClientName,
			NewValue:     p.row.clientRaw,
			SourceFile:   p.row.sourceFile,
			SourceRow:    p.row.sourceRow,
			OTUpdatedAt:  &updatedAt,
		})
	}
	if ot.Operator != "" && differs(ot.Operator, p.row.operator) {
		report.Conflicts = append(report.Conflicts, Conflict{
			OTNumber:     p.row.otNumber,
			Field:        ConflictFieldOperator,
			CurrentValue: ot.Operator,
			NewValue:     p.row.operator,
			SourceFile:   p.row.sourceFile,
			SourceRow:    p.row.sourceRow,
			OTUpdatedAt:  &updatedAt,
		})
	}
	return nil
}

// currentClient devuelve el nombre del cliente actual de la OT y si el nombre
// pendiente ya resuelve (solo lectura) al mismo alias.
func (s *Service) currentClient(ctx context.Context, ot *entity.OT, row pendingRow) (string, bool, error) {
	current, err := s.aliases.GetByID(ctx, ot.ClientID)
	if err != nil {
		return "", false, err
	}
	if current == nil {
		return "", false, nil
	}
	if row.clientAliasID == current.ID {
		return current.OriginalName, true, nil
	}
	pending, err := s.aliases.GetByNormalizedName(ctx, normalize.ClientName(row.clientRaw))
	if err != nil {
		return "", false, err
	}
	if pending != nil {
		effectiveID := pending.ID
		if pending.MergedIntoID != nil {
			effectiveID = *pending.MergedIntoID
		}
		if effectiveID == current.ID {
			return current.OriginalName, true, nil
		}
	}
	return current.OriginalName, false, nil
}

// ── fase 2: aplicación ───────────────────────────────────────────────────────

// filterResolved deja solo los conflictos sin decisión.
func (s *Service) filterResolved(conflicts []Conflict, decisions []Resolution) []Conflict {
	decided := make(map[string]bool, len(decisions))
	for _, d := range decisions {
		if d.Choice == ChoiceKeepCurrent || d.Choice == ChoiceUseNew {
			decided[d.OTNumber+"|"+d.Field] = true
		}
	}
	var out []Conflict
	for _, c := range conflicts {
		if !decided[c.OTNumber+"|"+c.Field] {
			out = append(out, c)
		}
	}
	return out
}

// checkStale rechaza decisiones cuya OT cambió desde la fase 1.
func (s *Service) checkStale(ctx context.Context, decisions []Resolution) error {
	for _, d := range decisions {
		if d.OTUpdatedAt == nil {
			continue
		}
		ot, err := s.ots.GetByNumber(ctx, d.OTNumber)
		if err != nil {
			return err
		}
		if ot == nil || !ot.UpdatedAt.Equal(*d.OTUpdatedAt) {
			return fmt.Errorf("la OT %s cambió desde la carga: %w", d.OTNumber, domain.ErrStaleResolution)
		}
	}
	return nil
}

func (s *Service) applyPhase(ctx context.Context, files []File, pendings map[string]*pendingOT, rowsByFile map[string]int, decisions []Resolution, report *Report) error {
	decisionFor := func(otNumber, field string) *Resolution {
		for i := range decisions {
			if decisions[i].OTNumber == otNumber && decisions[i].Field == field {
				return &decisions[i]
			}
		}
		return nil
	}
	conflictFor := func(otNumber, field string) *Conflict {
		for i := range report.Conflicts {
			if report.Conflicts[i].OTNumber == otNumber && report.Conflicts[i].Field == field {
				return &report.Conflicts[i]
			}
		}
		return nil
	}

	// Los alias se resuelven antes de abrir la transacción: el resolver tiene
	// su propio upsert idempotente y cachea las decisiones use_new.
	type resolved struct {
		p          *pendingOT
		clientID   string
		keepOp     bool
		opOverride string
	}
	var plan []resolved
	for _, p := range pendings {
		r := resolved{p: p}

		clientDecision := decisionFor(p.row.otNumber, ConflictFieldClient)
		clientConflict := conflictFor(p.row.otNumber, ConflictFieldClient)
		switch {
		case clientDecision != nil && clientDecision.Choice == ChoiceKeepCurrent && p.existing != nil:
			r.clientID = p.existing.ClientID
		case clientDecision != nil && clientDecision.Choice == ChoiceUseNew && clientConflict != nil:
			a, err := s.resolver.Resolve(ctx, clientConflict.NewValue)
			if err != nil {
				return err
			}
			r.clientID = a.ID
			// La decisión queda cacheada: futuras apariciones del nombre
			// anterior resuelven directo al alias elegido.
			if err := s.resolver.CacheResolution(ctx, clientConflict.CurrentValue, a.ID); err != nil {
				return err
			}
		case p.row.clientAliasID != "":
			r.clientID = p.row.clientAliasID
		default:
			a, err := s.resolver.Resolve(ctx, p.row.clientRaw)
			if err != nil {
				return err
			}
			r.clientID = a.ID
		}

		opDecision := decisionFor(p.row.otNumber, ConflictFieldOperator)
		r.keepOp = opDecision != nil && opDecision.Choice == ChoiceKeepCurrent
		if opDecision != nil && opDecision.Choice == ChoiceUseNew {
			if c := conflictFor(p.row.otNumber, ConflictFieldOperator); c != nil {
				r.opOverride = c.NewValue
			}
		}
		plan = append(plan, r)
	}

	return s.txRunner.RunImport(ctx, func(
		ots repository.OTRepository,
		processed repository.ProcessedFileRepository,
	) error {
		for _, r := range plan {
			if r.opOverride != "" {
				r.p.row.operator = r.opOverride
			}
			if r.p.existing == nil {
				if err := s.createOT(ctx, ots, r.p.row, r.clientID); err != nil {
					return err
				}
				report.OTsCreated++
				continue
			}
			if err := s.updateOT(ctx, ots, r.p, r.clientID, r.keepOp); err != nil {
				return err
			}
			report.OTsUpdated++
		}

		now := time.Now()
		for _, file := range files {
			sha := fileSHA(file.Data)
			count, fresh := rowsByFile[sha]
			if !fresh {
				continue // ya estaba importado en una corrida anterior
			}
			err := processed.Create(ctx, &entity.ProcessedFile{
				ID:        uuid.New().String(),
				Filename:  file.Name,
				SHA256:    sha,
				RowCount:  count,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
			delete(rowsByFile, sha) // por si el mismo archivo viene repetido
		}
		return nil
	})
}

func (s *Service) createOT(ctx context.Context, ots repository.OTRepository, row pendingRow, clientID string) error {
	now := time.Now()
	ot := &entity.OT{
		ID:              uuid.New().String(),
		Number:          row.otNumber,
		ProviderName:    row.provider,
		ClientID:        clientID,
		MasterBL:        row.masterBL,
		HouseBLs:        row.houseBLs,
		Containers:      row.containers,
		ETA:             row.eta,
		ETD:             row.etd,
		OriginPort:      row.originPort,
		DestinationPort: row.destPort,
		Operator:        row.operator,
		OperationType:   row.operationType,
		Vessel:          row.vessel,
		ProvisionSource: entity.ProvisionSourceExcel,
		BillingStatus:   entity.OTBillingPending,
		ProvisionStatus: entity.OTProvisionPending,
		State:           row.state,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if row.provisionDate != nil {
		ot.ProvisionDate = row.provisionDate
		ot.ProvisionStatus = entity.OTProvisionProvisioned
	}
	return ots.Create(ctx, ot)
}

// updateOT completa campos vacíos, agrega contenedores nuevos y aplica la
// provisión respetando la jerarquía de fuentes. Comments nunca se toca.
func (s *Service) updateOT(ctx context.Context, ots repository.OTRepository, p *pendingOT, clientID string, keepOperator bool) error {
	ot := p.existing
	row := p.row

	ot.ClientID = clientID
	if row.operator != "" && !keepOperator {
		ot.Operator = row.operator
	}
	if ot.ProviderName == "" {
		ot.ProviderName = row.provider
	}
	if ot.MasterBL == "" {
		ot.MasterBL = row.masterBL
	}
	if len(ot.HouseBLs) == 0 {
		ot.HouseBLs = row.houseBLs
	}
	for _, c := range row.containers {
		if !ot.HasContainer(c) {
			ot.Containers = append(ot.Containers, c)
		}
	}
	if ot.ETA == nil {
		ot.ETA = row.eta
	}
	if ot.ETD == nil {
		ot.ETD = row.etd
	}
	if ot.OriginPort == "" {
		ot.OriginPort = row.originPort
	}
	if ot.DestinationPort == "" {
		ot.DestinationPort = row.destPort
	}
	if ot.OperationType == "" {
		ot.OperationType = row.operationType
	}
	if ot.Vessel == "" {
		ot.Vessel = row.vessel
	}
	if row.state != "" {
		ot.State = row.state
	}
	if row.provisionDate != nil && ot.CanUpdateField(entity.ProvisionSourceExcel) {
		ot.ProvisionDate = row.provisionDate
		ot.ProvisionSource = entity.ProvisionSourceExcel
		if ot.ProvisionStatus == entity.OTProvisionPending {
			ot.ProvisionStatus = entity.OTProvisionProvisioned
		}
	}
	ot.UpdatedAt = time.Now()
	return ots.Update(ctx, ot)
}

// ── utilidades ───────────────────────────────────────────────────────────────

var reOTYear4 = regexp.MustCompile(`20[0-9]{2}`)
var reOTYear2 = regexp.MustCompile(`^([0-9]{2})OT`)

// otYear extrae el año embebido del número de OT: 4 dígitos en cualquier
// posición (OT-2025-001) o 2 dígitos iniciales antes de "OT" (25OT-221).
func otYear(number string) (int, bool) {
	if m := reOTYear4.FindString(number); m != "" {
		return atoi(m), true
	}
	if m := reOTYear2.FindStringSubmatch(number); m != nil {
		return 2000 + atoi(m[1]), true
	}
	return 0, false
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func fileSHA(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// differs compara dos valores ignorando mayúsculas y espacios; vacío nunca
// entra en conflicto.
func differs(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return !strings.EqualFold(normalize.ClientName(a), normalize.ClientName(b))
}

func splitMulti(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '/' || r == '\n'
	})
	var out []string
	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseDatePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := normalize.Date(s)
	if err != nil {
		return nil
	}
	return &t
}

func mapOperationType(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "impo"):
		return entity.OperationImport
	case strings.Contains(s, "expo"):
		return entity.OperationExport
	}
	return ""
}

// fillRow completa los campos vacíos de dst con los de src (filas repetidas
// del mismo número de OT).
func fillRow(dst *pendingRow, src pendingRow) {
	if dst.operator == "" {
		dst.operator = src.operator
	}
	if dst.provider == "" {
		dst.provider = src.provider
	}
	if dst.masterBL == "" {
		dst.masterBL = src.masterBL
	}
	if len(dst.houseBLs) == 0 {
		dst.houseBLs = src.houseBLs
	}
	for _, c := range src.containers {
		found := false
		for _, existing := range dst.containers {
			if existing == c {
				found = true
				break
			}
		}
		if !found {
			dst.containers = append(dst.containers, c)
		}
	}
	if dst.eta == nil {
		dst.eta = src.eta
	}
	if dst.etd == nil {
		dst.etd = src.etd
	}
	if dst.originPort == "" {
		dst.originPort = src.originPort
	}
	if dst.destPort == "" {
		dst.destPort = src.destPort
	}
	if dst.operationType == "" {
		dst.operationType = src.operationType
	}
	if dst.vessel == "" {
		dst.vessel = src.vessel
	}
	if dst.provisionDate == nil {
		dst.provisionDate = src.provisionDate
	}
	if dst.state == "" {
		dst.state = src.state
	}
}
