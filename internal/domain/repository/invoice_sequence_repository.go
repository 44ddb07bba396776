package repository

import "context"

// InvoiceSequenceRepository contador durable de consecutivos por año.
type InvoiceSequenceRepository interface {
	// Next incrementa atómicamente el contador del año y devuelve el nuevo valor (1 para el primero).
	Next(ctx context.Context, year int) (int64, error)
}
