package entity

import "time"

// Customer cliente de la empresa. La factura solo guarda su ID (referencia, no propiedad).
type Customer struct {
	ID        string
	CompanyID string
	Name      string
	TaxID     string // NIT o Cédula
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BelongsTo indica si el cliente es visible para la empresa.
func (c *Customer) BelongsTo(companyID string) bool {
	return c != nil && c.CompanyID == companyID
}
