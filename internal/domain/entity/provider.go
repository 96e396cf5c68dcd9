package entity

import "time"

// Provider proveedor de servicios (naviera, transportista, agente aduanal).
// has_credit habilita la copia de credit_days al guardar facturas a crédito.
type Provider struct {
	ID         string
	Name       string
	TaxID      string // NIT
	Email      string
	Phone      string
	HasCredit  bool
	CreditDays int
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
