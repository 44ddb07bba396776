package dto

import "github.com/shopspring/decimal"

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=0,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage aplica valores por defecto si Limit/Offset son cero o negativos.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ErrorResponse cuerpo de error HTTP.
// Details lleva el contexto de la regla violada (estado actual, saldo, campo) para que
// el cliente muestre un mensaje exacto.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Money monto serializado con 2 decimales fijos ("97.20").
type Money decimal.Decimal

// NewMoney convierte un decimal a Money.
func NewMoney(d decimal.Decimal) Money { return Money(d) }

// Decimal devuelve el valor como decimal.Decimal.
func (m Money) Decimal() decimal.Decimal { return decimal.Decimal(m) }

// String representación con 2 decimales.
func (m Money) String() string { return decimal.Decimal(m).StringFixed(2) }

// MarshalJSON serializa como string con 2 decimales para no perder precisión en clientes JS.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON acepta número o string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}
