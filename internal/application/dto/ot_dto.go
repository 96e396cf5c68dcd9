package dto

import (
	"time"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
)

// CreateOTRequest entrada para crear una orden de trabajo manual.
type CreateOTRequest struct {
	Number          string     `json:"number" validate:"required"`
	ClientID        string     `json:"client_id" validate:"required"`
	ProviderName    string     `json:"provider_name"`
	MasterBL        string     `json:"master_bl"`
	HouseBLs        []string   `json:"house_bls"`
	Containers      []string   `json:"containers"`
	ETA             *time.Time `json:"eta"`
	ETD             *time.Time `json:"etd"`
	OriginPort      string     `json:"origin_port"`
	DestinationPort string     `json:"destination_port"`
	Operator        string     `json:"operator"`
	OperationType   string     `json:"operation_type"`
	Vessel          string     `json:"vessel"`
	Comments        string     `json:"comments"`
}

// UpdateOTRequest entrada para actualizar una OT. Los campos nil no se tocan.
type UpdateOTRequest struct {
	ClientID        *string    `json:"client_id"`
	ProviderName    *string    `json:"provider_name"`
	MasterBL        *string    `json:"master_bl"`
	HouseBLs        []string   `json:"house_bls"`
	Containers      []string   `json:"containers"`
	ETA             *time.Time `json:"eta"`
	ETD             *time.Time `json:"etd"`
	Arrival         *time.Time `json:"arrival"`
	OriginPort      *string    `json:"origin_port"`
	DestinationPort *string    `json:"destination_port"`
	Operator        *string    `json:"operator"`
	OperationType   *string    `json:"operation_type"`
	Vessel          *string    `json:"vessel"`
	ProvisionDate   *time.Time `json:"provision_date"`
	ProvisionLocked *bool      `json:"provision_locked"`
	State           *string    `json:"state"`
	Comments        *string    `json:"comments"`
}

// OTResponse salida de una orden de trabajo.
type OTResponse struct {
	ID                 string     `json:"id"`
	Number             string     `json:"number"`
	ProviderName       string     `json:"provider_name"`
	ClientID           string     `json:"client_id"`
	MasterBL           string     `json:"master_bl,omitempty"`
	HouseBLs           []string   `json:"house_bls,omitempty"`
	Containers         []string   `json:"containers,omitempty"`
	ETA                *time.Time `json:"eta,omitempty"`
	ETD                *time.Time `json:"etd,omitempty"`
	Arrival            *time.Time `json:"arrival,omitempty"`
	OriginPort         string     `json:"origin_port,omitempty"`
	DestinationPort    string     `json:"destination_port,omitempty"`
	Operator           string     `json:"operator,omitempty"`
	OperationType      string     `json:"operation_type,omitempty"`
	Vessel             string     `json:"vessel,omitempty"`
	ProvisionDate      *time.Time `json:"provision_date,omitempty"`
	ProvisionSource    string     `json:"provision_source,omitempty"`
	ProvisionLocked    bool       `json:"provision_locked"`
	BillingRequestDate *time.Time `json:"billing_request_date,omitempty"`
	InvoiceReceiptDate *time.Time `json:"invoice_receipt_date,omitempty"`
	BillingStatus      string     `json:"billing_status"`
	ProvisionStatus    string     `json:"provision_status"`
	State              string     `json:"state,omitempty"`
	Comments           string     `json:"comments,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// OTListResponse lista de OTs.
type OTListResponse struct {
	Items []OTResponse `json:"items"`
	Page  PageResponse `json:"page"`
}

// OTStatsResponse conteos para las tarjetas del tablero.
type OTStatsResponse struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Provisioned int `json:"provisioned"`
	Review      int `json:"review"`
	Disputed    int `json:"disputed"`
	Billed      int `json:"billed"`
}

// OTFilterValuesResponse valores distintos para poblar filtros de UI.
type OTFilterValuesResponse struct {
	Operators      []string `json:"operators"`
	OperationTypes []string `json:"operation_types"`
	States         []string `json:"states"`
	Providers      []string `json:"providers"`
}

// FromOT mapea la entidad a su respuesta.
func FromOT(ot *entity.OT) OTResponse {
	return OTResponse{
		ID:                 ot.ID,
		Number:             ot.Number,
		ProviderName:       ot.ProviderName,
		ClientID:           ot.ClientID,
		MasterBL:           ot.MasterBL,
		HouseBLs:           ot.HouseBLs,
		Containers:         ot.Containers,
		ETA:                ot.ETA,
		ETD:                ot.ETD,
		Arrival:            ot.Arrival,
		OriginPort:         ot.OriginPort,
		DestinationPort:    ot.DestinationPort,
		Operator:           ot.Operator,
		OperationType:      ot.OperationType,
		Vessel:             ot.Vessel,
		ProvisionDate:      ot.ProvisionDate,
		ProvisionSource:    ot.ProvisionSource,
		ProvisionLocked:    ot.ProvisionLocked,
		BillingRequestDate: ot.BillingRequestDate,
		InvoiceReceiptDate: ot.InvoiceReceiptDate,
		BillingStatus:      ot.BillingStatus,
		ProvisionStatus:    ot.ProvisionStatus,
		State:              ot.State,
		Comments:           ot.Comments,
		CreatedAt:          ot.CreatedAt,
		UpdatedAt:          ot.UpdatedAt,
	}
}

// FromOTStats mapea los agregados del tablero.
func FromOTStats(s *repository.OTCardStats) OTStatsResponse {
	return OTStatsResponse{
		Total:       s.Total,
		Pending:     s.Pending,
		Provisioned: s.Provisioned,
		Review:      s.Review,
		Disputed:    s.Disputed,
		Billed:      s.Billed,
	}
}
