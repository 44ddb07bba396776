package billing

import (
	"context"
	"time"

	"github.com/jhoicas/Invorya-api/internal/domain/repository"
)

// BillingTxRunner ejecuta fn dentro de una transacción con los repositorios de facturación atados a ella.
// Si fn retorna error se hace Rollback; si no, Commit. Cada comando usa exactamente una ejecución.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		paymentRepo repository.PaymentRepository,
		sequenceRepo repository.InvoiceSequenceRepository,
	) error) error
}

// Config parámetros de facturación.
type Config struct {
	NumberPrefix        string         // INV
	DefaultPaymentTerms string         // NET 30
	Location            *time.Location // zona horaria para "hoy" y el año del consecutivo
	Now                 func() time.Time
}

// clock devuelve la hora actual en la zona configurada.
func (c Config) clock() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if c.Location != nil {
		return now().In(c.Location)
	}
	return now()
}
