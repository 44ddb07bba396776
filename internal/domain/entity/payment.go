package entity

import (
	"strings"
	"time"

	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// PaymentMethod medio de pago.
type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodCash         PaymentMethod = "CASH"
)

// IsValid indica si m es un medio de pago soportado.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodCash:
		return true
	}
	return false
}

// Payment pago aplicado a una factura. Inmutable: se crea una vez, nunca se actualiza ni se borra.
// BalanceAfter, InvoiceStatusAfter e InvoiceVersionAfter guardan el resultado calculado para responder igual
// ante un reintento con la misma llave de idempotencia.
type Payment struct {
	ID                  string
	InvoiceID           string
	CompanyID           string
	PaymentDate         time.Time
	Amount              decimal.Decimal
	Method              PaymentMethod
	Reference           string
	Notes               string
	IdempotencyKey      string // vacío = sin llave
	BalanceAfter        decimal.Decimal
	InvoiceStatusAfter  InvoiceStatus
	InvoiceVersionAfter int64
	CreatedAt           time.Time
	CreatedBy           string
}

// NewPaymentParams datos de entrada de un pago.
type NewPaymentParams struct {
	ID             string
	InvoiceID      string
	CompanyID      string
	PaymentDate    time.Time
	Amount         decimal.Decimal
	Method         PaymentMethod
	Reference      string
	Notes          string
	IdempotencyKey string
	CreatedBy      string
	Now            time.Time
}

// NewPayment valida el pago: monto > 0 con máximo 2 decimales, fecha no futura
// (comparada por día calendario contra Now), medio de pago conocido y referencia no vacía.
func NewPayment(p NewPaymentParams) (*Payment, error) {
	if !p.Amount.GreaterThan(decimal.Zero) {
		return nil, domain.NewValidationError("amount", "debe ser mayor que cero")
	}
	if !p.Amount.Equal(billing.RoundMoney(p.Amount)) {
		return nil, domain.NewValidationError("amount", "admite máximo 2 decimales")
	}
	if p.PaymentDate.IsZero() {
		return nil, domain.NewValidationError("payment_date", "es obligatoria")
	}
	if DateOnly(p.PaymentDate).After(DateOnly(p.Now)) {
		return nil, domain.NewValidationError("payment_date", "no puede ser futura")
	}
	if !p.Method.IsValid() {
		return nil, domain.NewValidationError("method", "medio de pago no soportado: "+string(p.Method))
	}
	reference := strings.TrimSpace(p.Reference)
	if reference == "" {
		return nil, domain.NewValidationError("reference", "es obligatoria")
	}
	return &Payment{
		ID:             p.ID,
		InvoiceID:      p.InvoiceID,
		CompanyID:      p.CompanyID,
		PaymentDate:    DateOnly(p.PaymentDate),
		Amount:         p.Amount,
		Method:         p.Method,
		Reference:      reference,
		Notes:          strings.TrimSpace(p.Notes),
		IdempotencyKey: strings.TrimSpace(p.IdempotencyKey),
		CreatedAt:      p.Now,
		CreatedBy:      p.CreatedBy,
	}, nil
}

// RecordOutcome guarda saldo, estado y versión de la factura ya persistida tras aplicar el pago.
func (p *Payment) RecordOutcome(inv *Invoice) {
	p.BalanceAfter = inv.Balance()
	p.InvoiceStatusAfter = inv.Status()
	p.InvoiceVersionAfter = inv.Version()
}
