package entity

import "time"

// Fuentes de provisión, en orden de prioridad ascendente. Una fuente de mayor
// prioridad puede sobreescribir lo cargado por una menor; nunca al revés.
const (
	ProvisionSourceExcel  = "excel"
	ProvisionSourceCSV    = "csv"
	ProvisionSourceManual = "manual"
)

// provisionPriority jerarquía MANUAL=3 > CSV=2 > EXCEL=1.
var provisionPriority = map[string]int{
	ProvisionSourceExcel:  1,
	ProvisionSourceCSV:    2,
	ProvisionSourceManual: 3,
}

// Estados de provisión y facturación de la OT.
const (
	OTProvisionPending     = "pending"
	OTProvisionProvisioned = "provisioned"
	OTProvisionReview      = "review"
	OTProvisionDisputed    = "disputed"
	OTProvisionVoided      = "voided"

	OTBillingPending = "pending"
	OTBillingBilled  = "billed"
)

// Tipos de operación.
const (
	OperationImport = "import"
	OperationExport = "export"
)

// OT Orden de Trabajo: la unidad operativa de un embarque.
// Containers guarda números ISO 6346 únicos dentro de la OT.
// Comments nunca lo tocan las importaciones.
type OT struct {
	ID                 string
	Number             string // único, mayúsculas
	ProviderName       string
	ClientID           string
	MasterBL           string
	HouseBLs           []string
	Containers         []string
	ETA                *time.Time
	ETD                *time.Time
	Arrival            *time.Time
	OriginPort         string
	DestinationPort    string
	Operator           string
	OperationType      string
	Vessel             string
	ProvisionDate      *time.Time
	ProvisionSource    string
	ProvisionLocked    bool
	BillingRequestDate *time.Time
	InvoiceReceiptDate *time.Time
	BillingStatus      string
	ProvisionStatus    string
	State              string
	Comments           string
	DeletedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CanUpdateField decide si una fuente puede sobreescribir la provisión actual.
// provision_locked bloquea toda escritura no manual.
func (o *OT) CanUpdateField(source string) bool {
	if o.ProvisionLocked && source != ProvisionSourceManual {
		return false
	}
	if o.ProvisionSource == "" {
		return true
	}
	return provisionPriority[source] >= provisionPriority[o.ProvisionSource]
}

// HasContainer indica si la OT ya registra el contenedor.
func (o *OT) HasContainer(c string) bool {
	for _, existing := range o.Containers {
		if existing == c {
			return true
		}
	}
	return false
}
