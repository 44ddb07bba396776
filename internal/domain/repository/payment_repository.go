package repository

import (
	"context"

	"github.com/jhoicas/Invorya-api/internal/domain/entity"
)

// PaymentRepository puerto de persistencia de pagos (solo inserción y lectura).
type PaymentRepository interface {
	// Create inserta el pago. Una llave de idempotencia repetida para la misma factura
	// devuelve domain.ErrDuplicate.
	Create(ctx context.Context, payment *entity.Payment) error
	// LockIdempotencyKey toma un candado sobre (factura, llave) que dura hasta el fin de la
	// transacción. Dos registros con la misma llave quedan en serie: el segundo ve el pago del primero.
	LockIdempotencyKey(ctx context.Context, invoiceID, key string) error
	// GetByIdempotencyKey devuelve (nil, nil) si no hay pago con esa llave para la factura.
	GetByIdempotencyKey(ctx context.Context, invoiceID, key string) (*entity.Payment, error)
	// ListByInvoice devuelve los pagos de la factura en orden de creación.
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error)
}
