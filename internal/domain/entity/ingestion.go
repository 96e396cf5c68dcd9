package entity

import "time"

// ProcessedFile hash de un archivo Excel ya importado: la ingesta es
// idempotente, un archivo con el mismo sha256 se salta completo.
type ProcessedFile struct {
	ID        string
	Filename  string
	SHA256    string
	RowCount  int
	CreatedAt time.Time
}

// EmailProcessingLog bitácora de correos leídos del buzón. message_id es la
// clave de deduplicación.
type EmailProcessingLog struct {
	ID          string
	MessageID   string
	Subject     string
	Sender      string
	ReceivedAt  time.Time
	Folder      string
	Status      string // processed, skipped, failed
	Detail      string
	Attachments int
	CreatedAt   time.Time
}

// Estados del log de correo.
const (
	EmailStatusProcessed = "processed"
	EmailStatusSkipped   = "skipped"
	EmailStatusFailed    = "failed"
)

// EmailAutoProcessingConfig singleton con la configuración del poller.
// Los límites (1..500 correos, intervalo >= 1) se ajustan al guardar.
type EmailAutoProcessingConfig struct {
	ID                   string
	IsActive             bool
	CheckIntervalMinutes int
	TargetFolders        []string
	SubjectFilters       []string
	SenderWhitelist      []string
	AutoParseEnabled     bool
	MaxEmailsPerRun      int
	UpdatedAt            time.Time
}

// Clamp fuerza los límites documentados del poller.
func (c *EmailAutoProcessingConfig) Clamp() {
	if c.CheckIntervalMinutes < 1 {
		c.CheckIntervalMinutes = 1
	}
	if c.MaxEmailsPerRun < 1 {
		c.MaxEmailsPerRun = 1
	}
	if c.MaxEmailsPerRun > 500 {
		c.MaxEmailsPerRun = 500
	}
}

// PatternRow fila del catálogo de patrones tal como vive en la base.
// kind distingue el modelo legado (code/display) del moderno (target_field
// tipado); el motor de patrones los unifica en un tipo suma.
type PatternRow struct {
	ID               string
	ProviderTaxID    string // vacío = patrón genérico
	Kind             string // legacy | modern
	TargetField      string
	Code             string
	Display          string
	ValueType        string // text | decimal | date
	Regex            string
	Priority         int
	ProviderSpecific bool
	Active           bool
	UpdatedAt        time.Time
}

// Kinds de fila de patrón.
const (
	PatternKindLegacy = "legacy"
	PatternKindModern = "modern"
)
